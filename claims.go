package indieauth

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the set of values signed into an authorization code or access
// token. Extra holds any further claims; when encoded they sit alongside the
// named claims, which take precedence on a clash.
type Claims struct {
	ID                  string
	Type                string
	Me                  string
	ClientID            string
	RedirectURI         string
	Scope               string
	Expires             int64
	CodeVerifier        string
	CodeChallenge       string
	CodeChallengeMethod string
	Extra               map[string]string
}

// Values of Claims.Type. A code can only be redeemed and an access token can
// only be introspected.
const (
	TypeCode   = "code"
	TypeAccess = "access"
)

// ExpiresAt returns the expires claim as a time.
func (c Claims) ExpiresAt() time.Time {
	return time.Unix(c.Expires, 0)
}

// Expired reports whether the claims have expired at the time given.
func (c Claims) Expired(now time.Time) bool {
	return now.Unix() > c.Expires
}

const (
	claimID                  = "jti"
	claimType                = "typ"
	claimMe                  = "me"
	claimClientID            = "client_id"
	claimRedirectURI         = "redirect_uri"
	claimScope               = "scope"
	claimExpires             = "expires"
	claimCodeVerifier        = "code_verifier"
	claimCodeChallenge       = "code_challenge"
	claimCodeChallengeMethod = "code_challenge_method"
)

func (c Claims) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(c.Extra)+10)
	for k, v := range c.Extra {
		m[k] = v
	}

	m[claimMe] = c.Me
	m[claimClientID] = c.ClientID
	m[claimRedirectURI] = c.RedirectURI
	m[claimScope] = c.Scope
	m[claimExpires] = c.Expires

	optional := map[string]string{
		claimID:                  c.ID,
		claimType:                c.Type,
		claimCodeVerifier:        c.CodeVerifier,
		claimCodeChallenge:       c.CodeChallenge,
		claimCodeChallengeMethod: c.CodeChallengeMethod,
	}
	for k, v := range optional {
		if v != "" {
			m[k] = v
		} else {
			delete(m, k)
		}
	}

	return json.Marshal(m)
}

func (c *Claims) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = Claims{}

	fields := map[string]*string{
		claimID:                  &c.ID,
		claimType:                &c.Type,
		claimMe:                  &c.Me,
		claimClientID:            &c.ClientID,
		claimRedirectURI:         &c.RedirectURI,
		claimScope:               &c.Scope,
		claimCodeVerifier:        &c.CodeVerifier,
		claimCodeChallenge:       &c.CodeChallenge,
		claimCodeChallengeMethod: &c.CodeChallengeMethod,
	}

	for k, v := range raw {
		if k == claimExpires {
			var n json.Number
			if err := json.Unmarshal(v, &n); err != nil {
				return fmt.Errorf("expires claim: %w", err)
			}
			expires, err := n.Int64()
			if err != nil {
				f, ferr := n.Float64()
				if ferr != nil {
					return fmt.Errorf("expires claim: %w", err)
				}
				expires = int64(f)
			}
			c.Expires = expires
			continue
		}

		if field, ok := fields[k]; ok {
			if err := json.Unmarshal(v, field); err != nil {
				return fmt.Errorf("%s claim: %w", k, err)
			}
			continue
		}

		if c.Extra == nil {
			c.Extra = map[string]string{}
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			c.Extra[k] = s
		} else {
			c.Extra[k] = string(v)
		}
	}

	return nil
}

// The expires claim is checked by the callers of Decode, so that an expired
// token can be told apart from one that is forged. None of the registered
// claims are used.

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) { return nil, nil }
func (c Claims) GetIssuedAt() (*jwt.NumericDate, error)       { return nil, nil }
func (c Claims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c Claims) GetIssuer() (string, error)                   { return "", nil }
func (c Claims) GetSubject() (string, error)                  { return c.Me, nil }
func (c Claims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }
