package indieauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// RequestError is returned when an endpoint replies with a status or media
// type that was not expected.
type RequestError struct {
	StatusCode int
	MediaType  string
	Body       []byte
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("recieved a %d (%s) response", e.StatusCode, e.MediaType)
}

// maxErrorBody bounds how much of an unexpected response is kept.
const maxErrorBody = 64 << 10

func readRequestError(resp *http.Response) *RequestError {
	mediatype, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	return &RequestError{
		StatusCode: resp.StatusCode,
		MediaType:  mediatype,
		Body:       data,
	}
}

type clientError int

func (e clientError) Error() string {
	switch e {
	case ErrCannotClaim:
		return "me returned with non-matching authorization endpoint"
	case ErrAuthorizationEndpointMissing:
		return "no authorization endpoint found"
	case ErrRequestMalformed:
		return "request malformed"
	case ErrChallengeInvalid:
		return "code challenge invalid"
	case ErrCodeInvalid:
		return "code invalid"
	case ErrCodeExpired:
		return "code expired"
	case ErrCodeMismatch:
		return "code mismatch"
	case ErrEndpointNotFound:
		return "endpoint not found"
	case ErrEndpointUnreachable:
		return "endpoint unreachable"
	case ErrScopeDenied:
		return "scope denied"
	case ErrCancelled:
		return "cancelled"
	case ErrTicketCreation:
		return "ticket could not be created"
	case ErrTicketRedemption:
		return "ticket could not be redeemed"
	default:
		panic("missing error definition")
	}
}

const (
	// ErrCannotClaim means the authorization endpoint of the returned 'me' did
	// not match that which was initially discovered.
	ErrCannotClaim clientError = iota

	// ErrAuthorizationEndpointMissing means an authorization endpoint could not
	// be found for the entered 'me'.
	ErrAuthorizationEndpointMissing

	// ErrRequestMalformed means a required parameter was missing or had an
	// unsupported value.
	ErrRequestMalformed

	// ErrChallengeInvalid means the PKCE method is not allowed, or the
	// challenge is not between 43 and 128 characters.
	ErrChallengeInvalid

	// ErrCodeInvalid means a code or token could not be decoded or its
	// signature did not verify. Replayed codes are also reported this way.
	ErrCodeInvalid

	// ErrCodeExpired means the expires claim of a code or token has passed.
	ErrCodeExpired

	// ErrCodeMismatch means the redirect_uri, client_id or code_verifier
	// presented did not match those the code was issued for.
	ErrCodeMismatch

	// ErrEndpointNotFound means a resource did not advertise the endpoint
	// needed.
	ErrEndpointNotFound

	// ErrEndpointUnreachable means a request to an endpoint failed at the
	// network level. It is worth retrying.
	ErrEndpointUnreachable

	// ErrScopeDenied means the scope granted does not cover the scope
	// required.
	ErrScopeDenied

	// ErrCancelled means the context of the operation was cancelled, or its
	// deadline passed, before the operation completed.
	ErrCancelled

	// ErrTicketCreation means a ticket endpoint refused the ticket sent to it.
	ErrTicketCreation

	// ErrTicketRedemption means a token endpoint refused to exchange a ticket.
	ErrTicketRedemption
)

// Error describes why an operation failed. Kind is one of the Err values
// defined in this package and can be tested for with errors.Is.
type Error struct {
	Kind        error
	Code        string
	Description string
	Err         error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// ErrorCode returns the OAuth 2.0 error code to report for err, as used in
// the "error" field of a JSON error response.
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}

	switch {
	case errors.Is(err, ErrRequestMalformed), errors.Is(err, ErrChallengeInvalid):
		return "invalid_request"
	case errors.Is(err, ErrCodeInvalid), errors.Is(err, ErrCodeExpired), errors.Is(err, ErrCodeMismatch):
		return "invalid_grant"
	case errors.Is(err, ErrScopeDenied):
		return "insufficient_scope"
	case errors.Is(err, ErrEndpointUnreachable), errors.Is(err, ErrCancelled):
		return "temporarily_unavailable"
	default:
		return "server_error"
	}
}

// ErrorDescription returns the human readable part of err, suitable for the
// "error_description" field of a JSON error response.
func ErrorDescription(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Description != "" {
		return e.Description
	}

	return err.Error()
}

func newError(kind clientError, description string) *Error {
	return &Error{Kind: kind, Description: description}
}

// networkError classifies a failed round trip; cancellation of ctx is kept
// apart from endpoints that could not be reached.
func networkError(ctx context.Context, description string, err error) *Error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &Error{Kind: ErrCancelled, Description: description, Err: ctxErr}
	}

	return &Error{Kind: ErrEndpointUnreachable, Description: description, Err: err}
}
