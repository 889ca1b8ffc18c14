package indieauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"hawx.me/code/assert"
)

func TestError(t *testing.T) {
	assert := assert.Wrap(t)

	cause := errors.New("boom")
	err := &Error{Kind: ErrEndpointUnreachable, Description: "posting", Err: cause}

	assert(err.Error()).Equal("endpoint unreachable: posting: boom")
	assert(errors.Is(err, ErrEndpointUnreachable)).True()
	assert(errors.Is(err, cause)).True()
	assert(errors.Is(err, ErrCancelled)).Equal(false)

	wrapped := fmt.Errorf("exchange: %w", err)
	assert(errors.Is(wrapped, ErrEndpointUnreachable)).True()
	assert(ErrorDescription(wrapped)).Equal("posting")
}

func TestErrorCode(t *testing.T) {
	assert := assert.Wrap(t)

	assert(ErrorCode(newError(ErrRequestMalformed, ""))).Equal("invalid_request")
	assert(ErrorCode(newError(ErrChallengeInvalid, ""))).Equal("invalid_request")
	assert(ErrorCode(newError(ErrCodeInvalid, ""))).Equal("invalid_grant")
	assert(ErrorCode(newError(ErrCodeExpired, ""))).Equal("invalid_grant")
	assert(ErrorCode(newError(ErrCodeMismatch, ""))).Equal("invalid_grant")
	assert(ErrorCode(newError(ErrScopeDenied, ""))).Equal("insufficient_scope")
	assert(ErrorCode(newError(ErrEndpointUnreachable, ""))).Equal("temporarily_unavailable")
	assert(ErrorCode(errors.New("other"))).Equal("server_error")
	assert(ErrorCode(&Error{Kind: ErrRequestMalformed, Code: "unsupported_grant_type"})).Equal("unsupported_grant_type")
}

func TestNetworkError(t *testing.T) {
	assert := assert.Wrap(t)

	cause := errors.New("dial tcp: connection refused")

	err := networkError(context.Background(), "fetching", cause)
	assert(errors.Is(err, ErrEndpointUnreachable)).True()
	assert(errors.Is(err, cause)).True()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = networkError(ctx, "fetching", cause)
	assert(errors.Is(err, ErrCancelled)).True()
	assert(errors.Is(err, context.Canceled)).True()
}

func TestReadRequestErrorLimitsBody(t *testing.T) {
	assert := assert.Wrap(t)

	resp := &http.Response{
		StatusCode: http.StatusBadGateway,
		Header:     http.Header{"Content-Type": {"text/plain; charset=utf-8"}},
		Body:       io.NopCloser(strings.NewReader(strings.Repeat("a", maxErrorBody+100))),
	}

	err := readRequestError(resp)
	assert(err.StatusCode).Equal(http.StatusBadGateway)
	assert(err.MediaType).Equal("text/plain")
	assert(len(err.Body)).Equal(maxErrorBody)
}
