package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "INDIEAUTH"

type config struct {
	Addr            string        `mapstructure:"addr"`
	Secret          string        `mapstructure:"secret"`
	Issuer          string        `mapstructure:"issuer"`
	Scopes          []string      `mapstructure:"scopes"`
	CodeTTL         time.Duration `mapstructure:"code-ttl"`
	TokenTTL        time.Duration `mapstructure:"token-ttl"`
	RedisAddr       string        `mapstructure:"redis-addr"`
	RedisPrefix     string        `mapstructure:"redis-prefix"`
	AllowLoopback   bool          `mapstructure:"allow-loopback"`
	LogLevel        string        `mapstructure:"log-level"`
	LogPretty       bool          `mapstructure:"log-pretty"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
}

func addFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.String("config", "", "config file to read, in any format viper supports")
	flags.String("addr", ":8080", "address to listen on")
	flags.String("secret", "", "base64 encoded key to sign codes and tokens with")
	flags.String("issuer", "", "issuer URL, endpoints are advertised relative to it")
	flags.StringSlice("scopes", nil, "scopes advertised as supported")
	flags.Duration("code-ttl", 3600*time.Second, "how long authorization codes are valid for")
	flags.Duration("token-ttl", 360000*time.Second, "how long access tokens are valid for")
	flags.String("redis-addr", "", "redis to record redeemed codes in, in memory if not set")
	flags.String("redis-prefix", "indieauth", "prefix for redis keys")
	flags.Bool("allow-loopback", false, "allow endpoints on loopback addresses to be discovered")
	flags.String("log-level", "info", "minimum level to log at")
	flags.Bool("log-pretty", false, "log human readable lines instead of JSON")
	flags.Duration("shutdown-timeout", 30*time.Second, "how long to wait for requests to finish on shutdown")
}

// loadConfig reads flags, then INDIEAUTH_ environment variables, then the
// config file if one is given.
func loadConfig(cmd *cobra.Command, v *viper.Viper) (*config, error) {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, cfg.validate()
}

func (c *config) validate() error {
	if c.Secret == "" {
		return errors.New("a secret is required")
	}
	if _, err := c.secret(); err != nil {
		return fmt.Errorf("secret is not valid base64: %w", err)
	}
	if c.CodeTTL <= 0 || c.TokenTTL <= 0 {
		return errors.New("code-ttl and token-ttl must be positive")
	}

	return nil
}

func (c *config) secret() ([]byte, error) {
	return base64.StdEncoding.DecodeString(c.Secret)
}
