// Command indieauth-server runs an IndieAuth token endpoint. It redeems
// authorization codes, answers token introspection, and accepts tickets.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"hawx.me/code/indieauth/v3"
	"hawx.me/code/indieauth/v3/ledger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "indieauth-server",
		Short:         "Run an IndieAuth token endpoint",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, viper.New())
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}

			log := newLogger(cfg)
			if err := run(cmd.Context(), cfg, log); err != nil {
				log.Error().Err(err).Msg("server stopped")
				return err
			}

			return nil
		},
	}

	addFlags(cmd)
	return cmd
}

func newLogger(cfg *config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if cfg.LogPretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stderr)
	}

	log = log.Level(level).With().Timestamp().Logger()
	if err != nil {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, using info")
	}

	return log
}

func newLedger(ctx context.Context, cfg *config) (indieauth.Ledger, func() error, error) {
	if cfg.RedisAddr == "" {
		m := ledger.NewMemory()
		return m, m.Close, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	r := ledger.NewRedis(client, cfg.RedisPrefix)

	if err := r.Ping(ctx); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}

	return r, client.Close, nil
}

func run(ctx context.Context, cfg *config, log zerolog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = log.WithContext(ctx)

	codes, closeLedger, err := newLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLedger()

	a, err := newApp(cfg, codes, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Bool("redis", cfg.RedisAddr != "").Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
