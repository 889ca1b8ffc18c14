package indieauth

import (
	"context"
	"mime"
	"net/http"
	"net/url"

	"github.com/peterhellberg/link"
)

// RelRedirectURI is the link relation a client uses to publish the redirect
// URIs it may use.
const RelRedirectURI = "redirect_uri"

// VerifyRedirect checks that redirectURI may be used by clientID. This is the
// case when they share a scheme and host, or when the page at clientID lists
// redirectURI with rel="redirect_uri" in its Link header or a <link> element.
func (c *Config) VerifyRedirect(ctx context.Context, clientID, redirectURI string) error {
	clientURL, err := url.Parse(clientID)
	if err != nil || clientURL.Host == "" {
		return &Error{Kind: ErrRequestMalformed, Description: "client_id is not a valid URL", Err: err}
	}

	redirectURL, err := url.Parse(redirectURI)
	if err != nil || redirectURL.Host == "" {
		return &Error{Kind: ErrRequestMalformed, Description: "redirect_uri is not a valid URL", Err: err}
	}

	if clientURL.Scheme == redirectURL.Scheme && clientURL.Host == redirectURL.Host {
		return nil
	}

	whitelist, err := c.redirectWhitelist(ctx, clientURL)
	if err != nil {
		return err
	}

	redirect := redirectURL.String()
	for _, candidate := range whitelist {
		if candidate == redirect {
			return nil
		}
	}

	return newError(ErrRequestMalformed, "redirect_uri is not registered for client_id")
}

func (c *Config) redirectWhitelist(ctx context.Context, clientURL *url.URL) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, clientURL.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return nil, networkError(ctx, "fetching client_id", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Kind:        ErrRequestMalformed,
			Description: "client_id could not be fetched",
			Err:         &RequestError{StatusCode: resp.StatusCode},
		}
	}

	var whitelist []string

	if whitelisted, ok := link.ParseResponse(resp)[RelRedirectURI]; ok {
		if u, err := clientURL.Parse(whitelisted.URI); err == nil {
			whitelist = append(whitelist, u.String())
		}
	}

	mediatype, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediatype != "text/html" {
		return whitelist, nil
	}

	for _, l := range parseHTMLLinks(resp.Body).FilterByRel(RelRedirectURI) {
		if u, err := clientURL.Parse(l.URL); err == nil {
			whitelist = append(whitelist, u.String())
		}
	}

	return whitelist, nil
}
