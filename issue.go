package indieauth

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// IssueRequest holds what the authorization endpoint knows once the user has
// approved a client.
type IssueRequest struct {
	Me                  string
	ClientID            string
	RedirectURI         string
	ResponseType        string
	State               string
	CodeChallengeMethod string
	Scope               string
	Extra               map[string]string
}

// CodeResponse is the result of issuing an authorization code.
type CodeResponse struct {
	Code          string
	CodeVerifier  string
	CodeChallenge string
	ExpiresAt     time.Time
}

// RedirectURL returns the URL to send the user back to the client with, with
// the code and state added to redirectURI. If issuer is non-empty it is
// included as the "iss" parameter.
func (c *CodeResponse) RedirectURL(redirectURI, state, issuer string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", err
	}

	query := u.Query()
	query.Set("code", c.Code)
	if state != "" {
		query.Set("state", state)
	}
	if issuer != "" {
		query.Set("iss", issuer)
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}

// IssueCode creates an authorization code for the request. A code verifier is
// generated and its S256 challenge is bound to the code along with the client,
// redirect and scope.
func (s *Server) IssueCode(ctx context.Context, req IssueRequest) (*CodeResponse, error) {
	if req.Me == "" || req.ClientID == "" || req.RedirectURI == "" || req.ResponseType == "" {
		return nil, newError(ErrRequestMalformed, "me, client_id, redirect_uri and response_type are required")
	}

	if req.ResponseType != "code" && req.ResponseType != "id" {
		return nil, &Error{
			Kind:        ErrRequestMalformed,
			Code:        "unsupported_response_type",
			Description: "only code and id response types are supported",
		}
	}

	if req.CodeChallengeMethod != "" {
		if err := validateChallengeMethod(req.CodeChallengeMethod, s.challengeMethods()); err != nil {
			return nil, err
		}
	}

	if s.Redirects != nil {
		if err := s.Redirects.VerifyRedirect(ctx, req.ClientID, req.RedirectURI); err != nil {
			return nil, err
		}
	}

	verifier, err := GenerateVerifier()
	if err != nil {
		return nil, fmt.Errorf("generate code verifier: %w", err)
	}
	challenge := DeriveChallenge(verifier)

	expiresAt := s.now().Add(s.codeTTL())

	code, err := s.Codec.Encode(Claims{
		ID:                  uuid.NewString(),
		Type:                TypeCode,
		Me:                  req.Me,
		ClientID:            req.ClientID,
		RedirectURI:         req.RedirectURI,
		Scope:               req.Scope,
		Expires:             expiresAt.Unix(),
		CodeVerifier:        verifier,
		CodeChallenge:       challenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
		Extra:               req.Extra,
	})
	if err != nil {
		return nil, fmt.Errorf("sign authorization code: %w", err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("me", req.Me).
		Str("client_id", req.ClientID).
		Str("scope", req.Scope).
		Time("expires", expiresAt).
		Msg("issued authorization code")

	return &CodeResponse{
		Code:          code,
		CodeVerifier:  verifier,
		CodeChallenge: challenge,
		ExpiresAt:     time.Unix(expiresAt.Unix(), 0),
	}, nil
}
