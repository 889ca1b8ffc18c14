package indieauth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RedeemRequest holds the parameters sent to the token endpoint to exchange
// an authorization code.
type RedeemRequest struct {
	GrantType    string
	Code         string
	ClientID     string
	RedirectURI  string
	CodeVerifier string
	Extra        map[string]string
}

// TokenResponse is the body returned by the token endpoint on a successful
// redemption.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	Me          string `json:"me"`
}

// RedeemCode exchanges an authorization code for an access token. The code
// must verify, have been issued to the client_id and redirect_uri given, match
// the code_verifier when issued with a S256 challenge, and not have expired.
//
// If the Server has a Ledger the code is recorded as used, and later attempts
// to redeem it fail with ErrCodeInvalid.
func (s *Server) RedeemCode(ctx context.Context, req RedeemRequest) (*TokenResponse, error) {
	log := zerolog.Ctx(ctx)

	shape := AuthorizationRequest{
		GrantType:   req.GrantType,
		Code:        req.Code,
		ClientID:    req.ClientID,
		RedirectURI: req.RedirectURI,
	}
	if err := shape.Validate(s.challengeMethods()...); err != nil {
		return nil, err
	}

	claims, err := s.Codec.Decode(req.Code)
	if err != nil {
		log.Warn().Err(err).Str("client_id", req.ClientID).Msg("rejected authorization code")
		return nil, err
	}

	if claims.Type != TypeCode {
		err := newError(ErrCodeInvalid, "the token is not an authorization code")
		log.Warn().Err(err).Str("client_id", req.ClientID).Msg("rejected authorization code")
		return nil, err
	}

	if err := verifyCodeChallenge(claims, req.CodeVerifier); err != nil {
		log.Warn().Err(err).Str("client_id", req.ClientID).Msg("rejected authorization code")
		return nil, err
	}

	now := s.now()
	if err := verifyCodeBinding(claims, req, now); err != nil {
		log.Warn().Err(err).Str("client_id", req.ClientID).Msg("rejected authorization code")
		return nil, err
	}

	if s.Ledger != nil {
		ttl := time.Duration(claims.Expires-now.Unix()+1) * time.Second

		first, err := s.Ledger.Consume(ctx, hashCode(req.Code), ttl)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &Error{Kind: ErrCancelled, Description: "recording redemption", Err: ctx.Err()}
			}
			return nil, fmt.Errorf("record redemption: %w", err)
		}
		if !first {
			log.Warn().Str("client_id", req.ClientID).Str("me", claims.Me).Msg("authorization code replayed")
			return nil, newError(ErrCodeInvalid, "the authorization code has already been redeemed")
		}
	}

	accessToken, err := s.Codec.Encode(Claims{
		ID:          uuid.NewString(),
		Type:        TypeAccess,
		Me:          claims.Me,
		ClientID:    req.ClientID,
		RedirectURI: req.RedirectURI,
		Scope:       claims.Scope,
		Expires:     now.Add(s.tokenTTL()).Unix(),
		Extra:       req.Extra,
	})
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	log.Debug().
		Str("me", claims.Me).
		Str("client_id", req.ClientID).
		Str("scope", claims.Scope).
		Msg("redeemed authorization code")

	return &TokenResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
		Scope:       claims.Scope,
		Me:          claims.Me,
	}, nil
}

func verifyCodeChallenge(claims Claims, verifier string) error {
	switch claims.CodeChallengeMethod {
	case "":
		return nil
	case MethodS256:
		if !ChallengesMatch(claims.CodeChallenge, verifier) {
			return newError(ErrCodeMismatch, "the code_verifier does not match the code challenge")
		}
		return nil
	default:
		return newError(ErrChallengeInvalid, "the challenge method of the code is not supported")
	}
}

func verifyCodeBinding(claims Claims, req RedeemRequest, now time.Time) error {
	if claims.Expired(now) {
		return newError(ErrCodeExpired, "the authorization code has expired")
	}

	if claims.RedirectURI != req.RedirectURI {
		return newError(ErrCodeMismatch, "the redirect_uri does not match the one the code was issued for")
	}

	if claims.ClientID != req.ClientID {
		return newError(ErrCodeMismatch, "the client_id does not match the one the code was issued for")
	}

	return nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
