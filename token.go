package indieauth

import (
	"strings"
)

// DecodedAuthToken is a verified access token.
type DecodedAuthToken struct {
	Me       string
	ClientID string
	Scope    string
	Claims   Claims
}

// Scopes returns the space separated scope as a list.
func (t DecodedAuthToken) Scopes() []string {
	return strings.Fields(t.Scope)
}

// HasScope returns true if the token was issued with the scope.
func (t DecodedAuthToken) HasScope(scope string) bool {
	return containsString(t.Scopes(), scope)
}

// ValidateAccessToken verifies the token and checks it has not expired. It
// returns ErrCodeInvalid if the token cannot be verified or is not an access
// token, and ErrCodeExpired if it has expired.
func (s *Server) ValidateAccessToken(token string) (*DecodedAuthToken, error) {
	claims, err := s.Codec.Decode(token)
	if err != nil {
		return nil, err
	}

	if claims.Type != TypeAccess {
		return nil, newError(ErrCodeInvalid, "the token is not an access token")
	}

	if claims.Expired(s.now()) {
		return nil, newError(ErrCodeExpired, "the access token has expired")
	}

	return &DecodedAuthToken{
		Me:       claims.Me,
		ClientID: claims.ClientID,
		Scope:    claims.Scope,
		Claims:   claims,
	}, nil
}
