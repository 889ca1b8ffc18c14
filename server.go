package indieauth

import (
	"context"
	"time"
)

const (
	// DefaultCodeTTL is how long an authorization code is valid for.
	DefaultCodeTTL = 3600 * time.Second

	// DefaultTokenTTL is how long an access token is valid for.
	DefaultTokenTTL = 360000 * time.Second
)

// A Ledger records redeemed authorization codes so that each can only be
// used once.
type Ledger interface {
	// Consume records key as used for ttl. It returns false if key was already
	// recorded and has not yet expired.
	Consume(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedirectVerifier checks that a redirect_uri may be used with a client_id.
// *Config implements this.
type RedirectVerifier interface {
	VerifyRedirect(ctx context.Context, clientID, redirectURI string) error
}

// Server issues authorization codes and access tokens, and validates them
// again. The zero value is not usable; Codec must be set.
type Server struct {
	// Codec signs and verifies codes and tokens.
	Codec *Codec

	// Ledger, if set, rejects authorization codes that have already been
	// redeemed. Without one a code can be redeemed any number of times until
	// it expires.
	Ledger Ledger

	// Redirects, if set, is consulted before issuing a code.
	Redirects RedirectVerifier

	// CodeTTL and TokenTTL default to DefaultCodeTTL and DefaultTokenTTL.
	CodeTTL  time.Duration
	TokenTTL time.Duration

	// ChallengeMethods are the PKCE methods accepted, defaulting to
	// DefaultChallengeMethods.
	ChallengeMethods []string

	// Metadata is served by MetadataHandler.
	Metadata Metadata

	// Now returns the current time, defaulting to time.Now.
	Now func() time.Time
}

// NewServer creates a Server that signs codes and tokens with codec.
func NewServer(codec *Codec) *Server {
	return &Server{
		Codec:            codec,
		CodeTTL:          DefaultCodeTTL,
		TokenTTL:         DefaultTokenTTL,
		ChallengeMethods: DefaultChallengeMethods,
	}
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}

	return time.Now()
}

func (s *Server) codeTTL() time.Duration {
	if s.CodeTTL > 0 {
		return s.CodeTTL
	}

	return DefaultCodeTTL
}

func (s *Server) tokenTTL() time.Duration {
	if s.TokenTTL > 0 {
		return s.TokenTTL
	}

	return DefaultTokenTTL
}

func (s *Server) challengeMethods() []string {
	if len(s.ChallengeMethods) > 0 {
		return s.ChallengeMethods
	}

	return DefaultChallengeMethods
}
