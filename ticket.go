package indieauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// GrantTicket is the grant_type used to redeem tickets.
const GrantTicket = "ticket"

// Ticket is sent to a ticket endpoint to grant the subject access to the
// resource.
type Ticket struct {
	Subject  string
	Ticket   string
	Resource string
}

// TicketGrant is the outcome of a ticket received by TicketHandler.
type TicketGrant struct {
	Ticket Ticket
	Token  *Response
}

// CreateTicket sends a ticket to the ticket endpoint advertised by
// subjectResource, usually the subject's homepage. The endpoint must reply
// with 200 or 202.
func (c *Config) CreateTicket(ctx context.Context, subjectResource, ticket, subject, resource string) error {
	found, err := c.resolver().ResolveEndpoints(ctx, subjectResource, RelTicket)
	if err != nil {
		return err
	}

	endpoint, ok := found[RelTicket]
	if !ok {
		return newError(ErrEndpointNotFound, "no ticket endpoint was found")
	}

	resp, err := c.postForm(ctx, endpoint.String(), url.Values{
		"ticket":   {ticket},
		"resource": {resource},
		"subject":  {subject},
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return &Error{
			Kind:        ErrTicketCreation,
			Description: "the ticket endpoint did not return a successful status code",
			Err:         readRequestError(resp),
		}
	}

	zerolog.Ctx(ctx).Info().
		Str("ticket_endpoint", endpoint.String()).
		Str("subject", subject).
		Str("resource", resource).
		Msg("created ticket")

	return nil
}

// RedeemTicket exchanges a ticket at the token endpoint advertised by
// resource, and returns the access token issued.
func (c *Config) RedeemTicket(ctx context.Context, resource, ticket string) (*Response, error) {
	found, err := c.resolver().ResolveEndpoints(ctx, resource, RelToken)
	if err != nil {
		return nil, err
	}

	endpoint, ok := found[RelToken]
	if !ok {
		return nil, newError(ErrEndpointNotFound, "no token endpoint was found")
	}

	resp, err := c.postForm(ctx, endpoint.String(), url.Values{
		"grant_type": {GrantTicket},
		"ticket":     {ticket},
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Kind:        ErrTicketRedemption,
			Description: "the token endpoint returned a non-200 status code",
			Err:         readRequestError(resp),
		}
	}

	var data struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		Scope       string `json:"scope"`
		Me          string `json:"me"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, &Error{Kind: ErrTicketRedemption, Description: "the token endpoint returned an invalid body", Err: err}
	}

	if data.AccessToken == "" {
		return nil, newError(ErrTicketRedemption, "the token endpoint did not return an access token")
	}

	return &Response{
		AccessToken: data.AccessToken,
		TokenType:   data.TokenType,
		Scopes:      strings.Fields(data.Scope),
		Me:          data.Me,
	}, nil
}

// TicketHandler returns a handler for a ticket endpoint. Each ticket received
// is redeemed at the token endpoint of its resource, and the resulting grant
// passed to onGrant. If onGrant returns an error the request fails.
func (c *Config) TicketHandler(onGrant func(context.Context, TicketGrant) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := zerolog.Ctx(r.Context())

		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			http.Error(w, "", http.StatusMethodNotAllowed)
			return
		}

		ticket := Ticket{
			Subject:  r.PostFormValue("subject"),
			Ticket:   r.PostFormValue("ticket"),
			Resource: r.PostFormValue("resource"),
		}
		if ticket.Ticket == "" || ticket.Resource == "" || ticket.Subject == "" {
			writeError(w, http.StatusBadRequest, newError(ErrRequestMalformed, "ticket, resource and subject are required"))
			return
		}

		token, err := c.RedeemTicket(r.Context(), ticket.Resource, ticket.Ticket)
		if err != nil {
			log.Warn().Err(err).Str("resource", ticket.Resource).Msg("could not redeem ticket")

			status := http.StatusBadGateway
			if errors.Is(err, ErrRequestMalformed) || errors.Is(err, ErrEndpointNotFound) {
				status = http.StatusBadRequest
			}
			writeError(w, status, err)
			return
		}

		if err := onGrant(r.Context(), TicketGrant{Ticket: ticket, Token: token}); err != nil {
			log.Error().Err(err).Str("resource", ticket.Resource).Msg("could not accept ticket grant")
			http.Error(w, "", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
	})
}
