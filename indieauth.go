package indieauth

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds each request made when Config.Client is not set.
const DefaultTimeout = 5 * time.Second

var defaultClient = &http.Client{Timeout: DefaultTimeout}

// Config defines a client for authorizing users to perform a set of defined
// actions.
type Config struct {
	ClientID    string
	RedirectURL string
	Scopes      []string

	// RequiredScopes must all be granted for Exchange to succeed.
	RequiredScopes []string

	// Client is used for all requests, it defaults to a client with
	// DefaultTimeout.
	Client *http.Client

	// Resolver is used to find ticket and token endpoints for the ticket flow,
	// it defaults to the Config itself.
	Resolver EndpointResolver

	// AllowLoopback permits discovered endpoints on localhost or loopback
	// addresses.
	AllowLoopback bool
}

func (c *Config) client() *http.Client {
	if c.Client != nil {
		return c.Client
	}

	return defaultClient
}

func (c *Config) resolver() EndpointResolver {
	if c.Resolver != nil {
		return c.Resolver
	}

	return c
}

// AuthCodeURL returns a URL to the authorization provider.
func (c *Config) AuthCodeURL(endpoints Endpoints, state, codeChallenge, me string) string {
	form := url.Values{
		"response_type":         {"code"},
		"client_id":             {c.ClientID},
		"redirect_uri":          {c.RedirectURL},
		"state":                 {state},
		"code_challenge":        {codeChallenge},
		"code_challenge_method": {MethodS256},
	}

	if me != "" {
		form.Set("me", me)
	}

	if len(c.Scopes) > 0 {
		form.Set("scope", strings.Join(c.Scopes, " "))
	}

	queryURL := &url.URL{
		RawQuery: form.Encode(),
	}

	return endpoints.Authorization.ResolveReference(queryURL).String()
}

// Exchange converts an authorization code into a token or profile
// information. The code will be in the query string of the request sent to the
// RedirectURL, before calling this method ensure you check the state parameter
// matches the value used for AuthCodeURL.
//
// If Scopes is empty, "profile", or "profile email", the response will not
// contain an access token. If RequiredScopes are not all granted
// ErrScopeDenied is returned.
func (c *Config) Exchange(ctx context.Context, endpoints Endpoints, code, codeVerifier string) (*Response, error) {
	if endpoints.Authorization == nil {
		return nil, ErrAuthorizationEndpointMissing
	}

	form := url.Values{
		"grant_type":    {GrantAuthorizationCode},
		"code":          {code},
		"client_id":     {c.ClientID},
		"redirect_uri":  {c.RedirectURL},
		"code_verifier": {codeVerifier},
	}

	endpoint := endpoints.Token
	if c.isProfile() {
		endpoint = endpoints.Authorization
	}
	if endpoint == nil {
		return nil, newError(ErrEndpointNotFound, "no endpoint to exchange the code at")
	}

	resp, err := c.postForm(ctx, endpoint.String(), form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	mediatype, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if resp.StatusCode != http.StatusOK || mediatype != "application/json" {
		return nil, readRequestError(resp)
	}

	var data struct {
		AccessToken string                 `json:"access_token"`
		TokenType   string                 `json:"token_type"`
		Scope       string                 `json:"scope"`
		Me          string                 `json:"me"`
		Profile     map[string]interface{} `json:"profile"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	newEndpoints, err := c.FindEndpoints(ctx, data.Me)
	if err != nil {
		return nil, err
	}

	if newEndpoints.Authorization.String() != endpoints.Authorization.String() {
		return nil, ErrCannotClaim
	}

	response := &Response{
		AccessToken: data.AccessToken,
		TokenType:   data.TokenType,
		Scopes:      strings.Fields(data.Scope),
		Me:          data.Me,
		Profile:     data.Profile,
	}

	for _, scope := range c.RequiredScopes {
		if !response.HasScope(scope) {
			return nil, newError(ErrScopeDenied, "the "+scope+" scope was not granted")
		}
	}

	return response, nil
}

func (c *Config) postForm(ctx context.Context, endpoint string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client().Do(req)
	if err != nil {
		return nil, networkError(ctx, "posting to "+endpoint, err)
	}

	return resp, nil
}

func (c *Config) isProfile() bool {
	switch len(c.Scopes) {
	case 0:
		return true
	case 1:
		return c.Scopes[0] == "profile"
	case 2:
		return c.Scopes[0] == "profile" && c.Scopes[1] == "email" ||
			c.Scopes[0] == "email" && c.Scopes[1] == "profile"
	default:
		return false
	}
}
