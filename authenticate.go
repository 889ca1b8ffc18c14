package indieauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// AuthContext carries what a request presents to be authenticated: its
// headers, and the values of its session if it has one.
type AuthContext struct {
	Header  http.Header
	Session map[interface{}]interface{}
}

// AuthContextFromRequest returns an AuthContext with the headers of r and the
// session values given, which may be nil.
func AuthContextFromRequest(r *http.Request, session map[interface{}]interface{}) AuthContext {
	return AuthContext{Header: r.Header, Session: session}
}

func (ac AuthContext) bearer() string {
	if header := ac.Header.Get("Authorization"); header != "" {
		fields := strings.Fields(header)
		if len(fields) > 0 {
			return fields[len(fields)-1]
		}
	}

	if token, ok := ac.Session["access_token"].(string); ok {
		return token
	}

	return ""
}

// TokenInfo is the introspected form of an access token.
type TokenInfo struct {
	Me       string `json:"me"`
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
}

// HasScope returns true if the token was issued with the scope.
func (t TokenInfo) HasScope(scope string) bool {
	return containsString(strings.Fields(t.Scope), scope)
}

// Authenticator checks access tokens by asking the token endpoint that issued
// them.
type Authenticator struct {
	TokenEndpoint string

	// ApprovedMe, if set, is the only user that will be authenticated.
	ApprovedMe string

	// Client defaults to a client with DefaultTimeout.
	Client *http.Client
}

// Authenticate looks for an access token in the Authorization header, then in
// the session, and returns its information if the token endpoint accepts it.
//
// A missing or rejected token is reported as false with a nil error. An error
// is only returned when the token endpoint could not be asked, which is
// ErrEndpointUnreachable or ErrCancelled.
func (a *Authenticator) Authenticate(ctx context.Context, ac AuthContext) (*TokenInfo, bool, error) {
	token := ac.bearer()
	if token == "" {
		return nil, false, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.TokenEndpoint, nil)
	if err != nil {
		return nil, false, &Error{Kind: ErrRequestMalformed, Description: "token endpoint is not a valid URL", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	client := a.Client
	if client == nil {
		client = defaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, false, networkError(ctx, "introspecting token", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, nil
	}

	var info TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil || info.Me == "" {
		return nil, false, nil
	}

	if a.ApprovedMe != "" && info.Me != a.ApprovedMe {
		zerolog.Ctx(ctx).Info().Str("me", info.Me).Msg("token is not for the approved user")
		return nil, false, nil
	}

	return &info, true, nil
}

// Shield lets the request continue to signedIn if its Authorization header
// holds an accepted token. Otherwise a 401 is returned, or a 503 if the token
// endpoint could not be reached.
func (a *Authenticator) Shield(signedIn http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok, err := a.Authenticate(r.Context(), AuthContextFromRequest(r, nil))
		if err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("could not authenticate request")
			if errors.Is(err, ErrCancelled) || errors.Is(err, ErrEndpointUnreachable) {
				http.Error(w, "", http.StatusServiceUnavailable)
			} else {
				http.Error(w, "", http.StatusInternalServerError)
			}
			return
		}

		if !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "", http.StatusUnauthorized)
			return
		}

		signedIn.ServeHTTP(w, r)
	})
}
