package main

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"hawx.me/code/indieauth/v3"
)

type app struct {
	server  *indieauth.Server
	handler http.Handler
}

func newApp(cfg *config, ledger indieauth.Ledger, log zerolog.Logger) (*app, error) {
	secret, err := cfg.secret()
	if err != nil {
		return nil, err
	}

	codec, err := indieauth.NewHMACCodec(secret)
	if err != nil {
		return nil, err
	}

	server := indieauth.NewServer(codec)
	server.Ledger = ledger
	server.CodeTTL = cfg.CodeTTL
	server.TokenTTL = cfg.TokenTTL
	server.Metadata, err = metadata(cfg)
	if err != nil {
		return nil, err
	}

	client := &indieauth.Config{
		ClientID:      cfg.Issuer,
		AllowLoopback: cfg.AllowLoopback,
	}

	mux := http.NewServeMux()
	mux.Handle("/token", server.TokenEndpoint())
	mux.Handle("/ticket", client.TicketHandler(logGrant))
	mux.Handle("/.well-known/oauth-authorization-server", server.MetadataHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	var handler http.Handler = mux
	handler = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("")
	})(handler)
	handler = hlog.RemoteAddrHandler("ip")(handler)
	handler = hlog.RequestIDHandler("req_id", "Request-Id")(handler)
	handler = hlog.NewHandler(log)(handler)

	return &app{server: server, handler: handler}, nil
}

func metadata(cfg *config) (indieauth.Metadata, error) {
	m := indieauth.Metadata{
		Issuer:              cfg.Issuer,
		ScopesSupported:     cfg.Scopes,
		GrantTypesSupported: []string{indieauth.GrantAuthorizationCode},
	}
	m.IntrospectionEndpointAuthMethodsSupported = []string{"Bearer"}

	if cfg.Issuer == "" {
		return m, nil
	}

	issuer, err := url.Parse(cfg.Issuer)
	if err != nil {
		return m, err
	}

	resolve := func(path string) string {
		return issuer.ResolveReference(&url.URL{Path: path}).String()
	}

	m.TokenEndpoint = resolve("token")
	m.IntrospectionEndpoint = resolve("token")
	m.TicketEndpoint = resolve("ticket")

	return m, nil
}

func logGrant(ctx context.Context, grant indieauth.TicketGrant) error {
	zerolog.Ctx(ctx).Info().
		Str("subject", grant.Ticket.Subject).
		Str("resource", grant.Ticket.Resource).
		Str("me", grant.Token.Me).
		Strs("scope", grant.Token.Scopes).
		Msg("accepted ticket")

	return nil
}
