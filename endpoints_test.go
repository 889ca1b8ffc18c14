package indieauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"hawx.me/code/assert"
)

func htmlPage(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(body))
	})
}

func TestFindEndpoints(t *testing.T) {
	assert := assert.Wrap(t)

	homepage := httptest.NewServer(htmlPage(`
<html>
<head>
<link rel="authorization_endpoint" href="http://example.com/hey" />
<link rel="token_endpoint" href="http://example.com/what" />
<link rel="ticket_endpoint" href="http://example.com/ticket" />
</head>
</html>
`))
	defer homepage.Close()

	endpoints, err := (&Config{}).FindEndpoints(context.Background(), homepage.URL)

	assert(err).Must.Nil()
	assert(endpoints.Authorization.String()).Equal("http://example.com/hey")
	assert(endpoints.Token.String()).Equal("http://example.com/what")
	assert(endpoints.Ticket.String()).Equal("http://example.com/ticket")
}

func TestFindEndpointsRelative(t *testing.T) {
	assert := assert.Wrap(t)

	homepage := httptest.NewServer(htmlPage(`
<html>
<head>
<link rel="authorization_endpoint" href="/hey" />
<link rel="token_endpoint" href="what" />
</head>
</html>
`))
	defer homepage.Close()

	endpoints, err := (&Config{AllowLoopback: true}).FindEndpoints(context.Background(), homepage.URL)

	assert(err).Must.Nil()
	assert(endpoints.Authorization.String()).Equal(homepage.URL + "/hey")
	assert(endpoints.Token.String()).Equal(homepage.URL + "/what")
}

func TestFindEndpointsFromHeader(t *testing.T) {
	assert := assert.Wrap(t)

	homepage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Link", `<http://example.com/header-auth>; rel="authorization_endpoint"`)
		w.Header().Add("Link", `<http://example.com/token>; rel="token_endpoint"`)
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<link rel="authorization_endpoint" href="http://example.com/html-auth" />`))
	}))
	defer homepage.Close()

	endpoints, err := (&Config{}).FindEndpoints(context.Background(), homepage.URL)

	assert(err).Must.Nil()
	assert(endpoints.Authorization.String()).Equal("http://example.com/header-auth")
	assert(endpoints.Token.String()).Equal("http://example.com/token")
}

func TestFindEndpointsMissingAuthorization(t *testing.T) {
	assert := assert.Wrap(t)

	homepage := httptest.NewServer(htmlPage(`<link rel="token_endpoint" href="http://example.com/token" />`))
	defer homepage.Close()

	_, err := (&Config{}).FindEndpoints(context.Background(), homepage.URL)
	assert(err).Equal(ErrAuthorizationEndpointMissing)
}

func TestResolveEndpointsRejectsUnsafe(t *testing.T) {
	assert := assert.Wrap(t)

	homepage := httptest.NewServer(htmlPage(`
<link rel="authorization_endpoint" href="http://localhost/auth" />
<link rel="token_endpoint" href="ftp://example.com/token" />
<link rel="ticket_endpoint" href="http://127.0.0.1/ticket" />
`))
	defer homepage.Close()

	found, err := (&Config{}).ResolveEndpoints(context.Background(), homepage.URL, RelAuthorization, RelToken, RelTicket)
	assert(err).Must.Nil()
	assert(len(found)).Equal(0)

	found, err = (&Config{AllowLoopback: true}).ResolveEndpoints(context.Background(), homepage.URL, RelAuthorization, RelToken, RelTicket)
	assert(err).Must.Nil()
	assert(found[RelAuthorization].String()).Equal("http://localhost/auth")
	assert(found[RelTicket].String()).Equal("http://127.0.0.1/ticket")
	_, hasToken := found[RelToken]
	assert(hasToken).Equal(false)
}

func TestResolveEndpointsOnlyKindsRequested(t *testing.T) {
	assert := assert.Wrap(t)

	homepage := httptest.NewServer(htmlPage(`
<link rel="authorization_endpoint" href="http://example.com/auth" />
<link rel="ticket_endpoint me" href="http://example.com/ticket" />
`))
	defer homepage.Close()

	found, err := (&Config{}).ResolveEndpoints(context.Background(), homepage.URL, RelTicket)
	assert(err).Must.Nil()
	assert(len(found)).Equal(1)
	assert(found[RelTicket].String()).Equal("http://example.com/ticket")
}

func TestResolveEndpointsPrefersMetadata(t *testing.T) {
	assert := assert.Wrap(t)

	var homepage *httptest.Server

	metadata := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
  "issuer": "https://auth.example.com/",
  "authorization_endpoint": "https://auth.example.com/auth",
  "token_endpoint": "https://auth.example.com/token"
}`)
	}))
	defer metadata.Close()

	homepage = httptest.NewServer(htmlPage(fmt.Sprintf(`
<link rel="indieauth-metadata" href="%s" />
<link rel="authorization_endpoint" href="http://example.com/auth" />
<link rel="ticket_endpoint" href="http://example.com/ticket" />
`, metadata.URL)))
	defer homepage.Close()

	endpoints, err := (&Config{}).FindEndpoints(context.Background(), homepage.URL)
	assert(err).Must.Nil()
	assert(endpoints.Authorization.String()).Equal("https://auth.example.com/auth")
	assert(endpoints.Token.String()).Equal("https://auth.example.com/token")
	assert(endpoints.Ticket.String()).Equal("http://example.com/ticket")
}

func TestResolveEndpointsNotFound(t *testing.T) {
	assert := assert.Wrap(t)

	homepage := httptest.NewServer(http.NotFoundHandler())
	defer homepage.Close()

	_, err := (&Config{}).ResolveEndpoints(context.Background(), homepage.URL, RelToken)
	assert(errors.Is(err, ErrEndpointNotFound)).True()

	var requestErr *RequestError
	assert(errors.As(err, &requestErr)).True()
	assert(requestErr.StatusCode).Equal(http.StatusNotFound)
}

func TestResolveEndpointsUnreachable(t *testing.T) {
	assert := assert.Wrap(t)

	homepage := httptest.NewServer(htmlPage(""))
	homepageURL := homepage.URL
	homepage.Close()

	_, err := (&Config{}).ResolveEndpoints(context.Background(), homepageURL, RelToken)
	assert(errors.Is(err, ErrEndpointUnreachable)).True()
}

func TestFetchMetadata(t *testing.T) {
	assert := assert.Wrap(t)

	metadata := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert(r.Header.Get("Accept")).Equal("application/json")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
  "issuer": "https://auth.example.com/",
  "code_challenge_methods_supported": ["S256"],
  "authorization_response_iss_parameter_supported": true
}`)
	}))
	defer metadata.Close()

	m, err := (&Config{}).FetchMetadata(context.Background(), metadata.URL)
	assert(err).Must.Nil()
	assert(m.Issuer).Equal("https://auth.example.com/")
	assert(m.CodeChallengeMethodsSupported).Equal([]string{"S256"})
	assert(m.AuthorizationResponseIssParameterSupported).True()
}

func TestIsLoopback(t *testing.T) {
	assert := assert.Wrap(t)

	for _, host := range []string{"localhost", "LOCALHOST", "dev.localhost", "127.0.0.1", "127.1.2.3", "::1", "0.0.0.0"} {
		assert(isLoopback(host)).True()
	}

	for _, host := range []string{"example.com", "192.168.0.1", "localhost.example.com"} {
		assert(isLoopback(host)).Equal(false)
	}
}
