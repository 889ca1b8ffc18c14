package indieauth

import (
	"context"
	"encoding/json"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/tomnomnom/linkheader"
)

// Link relations used for discovery.
const (
	RelMetadata      = "indieauth-metadata"
	RelAuthorization = "authorization_endpoint"
	RelToken         = "token_endpoint"
	RelTicket        = "ticket_endpoint"
)

// EndpointResolver finds the endpoints a resource advertises. *Config
// implements this.
type EndpointResolver interface {
	// ResolveEndpoints returns the URL for each of the kinds (link relations)
	// found for resource. Kinds that are not found are absent from the map.
	ResolveEndpoints(ctx context.Context, resource string, kinds ...string) (map[string]*url.URL, error)
}

type Endpoints struct {
	Authorization *url.URL
	Token         *url.URL
	Ticket        *url.URL
}

// FindEndpoints retrieves the defined authorization, token and ticket
// endpoints for 'me'. As an authorization endpoint must exist to authenticate
// a user ErrAuthorizationEndpointMissing will be returned if one cannot be
// found.
func (c *Config) FindEndpoints(ctx context.Context, me string) (Endpoints, error) {
	var endpoints Endpoints

	found, err := c.ResolveEndpoints(ctx, me, RelAuthorization, RelToken, RelTicket)
	if err != nil {
		return endpoints, err
	}

	endpoints.Authorization = found[RelAuthorization]
	endpoints.Token = found[RelToken]
	endpoints.Ticket = found[RelTicket]

	if endpoints.Authorization == nil {
		return endpoints, ErrAuthorizationEndpointMissing
	}

	return endpoints, nil
}

// ResolveEndpoints fetches resource and looks for the kinds requested in its
// Link headers and, for HTML, its <link> elements. If an indieauth-metadata
// document is advertised the endpoints it lists are preferred.
//
// Only absolute http or https URLs are returned. Endpoints on localhost or a
// loopback address are dropped unless AllowLoopback is set.
func (c *Config) ResolveEndpoints(ctx context.Context, resource string, kinds ...string) (map[string]*url.URL, error) {
	client := c.client()

	resourceURL, err := url.Parse(resource)
	if err != nil {
		return nil, &Error{Kind: ErrRequestMalformed, Description: "resource is not a valid URL", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL.String(), nil)
	if err != nil {
		return nil, &Error{Kind: ErrRequestMalformed, Description: "resource is not a valid URL", Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, networkError(ctx, "fetching "+resourceURL.String(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Kind:        ErrEndpointNotFound,
			Description: "resource could not be fetched",
			Err:         &RequestError{StatusCode: resp.StatusCode},
		}
	}

	base := resp.Request.URL
	links := linkheader.ParseMultiple(resp.Header["Link"])

	mediatype, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediatype == "text/html" {
		links = append(links, parseHTMLLinks(resp.Body)...)
	}

	found := map[string]*url.URL{}

	if metadataLinks := links.FilterByRel(RelMetadata); len(metadataLinks) != 0 {
		linkURL, err := base.Parse(metadataLinks[0].URL)
		if err != nil {
			return nil, err
		}

		m, err := c.fetchMetadata(ctx, client, linkURL)
		if err != nil {
			return nil, err
		}

		fromMetadata := map[string]string{
			RelAuthorization:         m.AuthorizationEndpoint,
			RelToken:                 m.TokenEndpoint,
			RelTicket:                m.TicketEndpoint,
			"introspection_endpoint": m.IntrospectionEndpoint,
			"revocation_endpoint":    m.RevocationEndpoint,
			"userinfo_endpoint":      m.UserinfoEndpoint,
		}
		for _, kind := range kinds {
			if raw := fromMetadata[kind]; raw != "" {
				if u, ok := c.acceptable(linkURL, raw); ok {
					found[kind] = u
				}
			}
		}
	}

	for _, link := range links {
		if !containsString(kinds, link.Rel) || found[link.Rel] != nil {
			continue
		}

		if u, ok := c.acceptable(base, link.URL); ok {
			found[link.Rel] = u
		}
	}

	return found, nil
}

// FetchMetadata retrieves the metadata document at metadataURL.
func (c *Config) FetchMetadata(ctx context.Context, metadataURL string) (*Metadata, error) {
	u, err := url.Parse(metadataURL)
	if err != nil {
		return nil, &Error{Kind: ErrRequestMalformed, Description: "metadata URL is not valid", Err: err}
	}

	return c.fetchMetadata(ctx, c.client(), u)
}

func (c *Config) fetchMetadata(ctx context.Context, client *http.Client, metadataURL *url.URL) (*Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, networkError(ctx, "fetching metadata", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RequestError{
			StatusCode: resp.StatusCode,
		}
	}

	var v Metadata
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, err
	}

	return &v, nil
}

func (c *Config) acceptable(base *url.URL, raw string) (*url.URL, bool) {
	u, err := base.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, false
	}

	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, false
	}

	if !c.AllowLoopback && isLoopback(u.Hostname()) {
		return nil, false
	}

	return u, true
}

func isLoopback(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}

	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsUnspecified())
}
