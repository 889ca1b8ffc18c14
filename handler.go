package indieauth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// TokenEndpoint returns a handler for the token endpoint. A POST redeems an
// authorization code, a GET with an "Authorization: Bearer" header returns the
// claims of the access token.
func (s *Server) TokenEndpoint() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			s.redeem(w, r)
		case http.MethodGet:
			s.introspect(w, r)
		default:
			w.Header().Set("Allow", "GET, POST")
			writeError(w, http.StatusMethodNotAllowed, newError(ErrRequestMalformed, "method not allowed"))
		}
	})
}

func (s *Server) redeem(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, &Error{Kind: ErrRequestMalformed, Description: "could not parse form", Err: err})
		return
	}

	req := AuthorizationRequestFromForm(r)
	if err := req.Validate(s.challengeMethods()...); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	resp, err := s.RedeemCode(r.Context(), RedeemRequest{
		GrantType:    req.GrantType,
		Code:         req.Code,
		ClientID:     req.ClientID,
		RedirectURI:  req.RedirectURI,
		CodeVerifier: r.PostFormValue("code_verifier"),
	})
	if err != nil {
		if statusFor(err) >= 500 {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("redeeming authorization code")
		}
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type introspectionResponse struct {
	Me       string `json:"me"`
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
}

func (s *Server) introspect(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, &Error{
			Kind:        ErrRequestMalformed,
			Code:        "invalid_token",
			Description: "a bearer token is required",
		})
		return
	}

	decoded, err := s.ValidateAccessToken(token)
	if err != nil {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		writeError(w, http.StatusUnauthorized, &Error{
			Kind:        ErrCodeInvalid,
			Code:        "invalid_token",
			Description: ErrorDescription(err),
			Err:         err,
		})
		return
	}

	writeJSON(w, http.StatusOK, introspectionResponse{
		Me:       decoded.Me,
		ClientID: decoded.ClientID,
		Scope:    decoded.Scope,
	})
}

func bearerToken(header string) (string, bool) {
	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return "", false
	}

	return fields[1], true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrRequestMalformed),
		errors.Is(err, ErrChallengeInvalid),
		errors.Is(err, ErrCodeInvalid),
		errors.Is(err, ErrCodeExpired),
		errors.Is(err, ErrCodeMismatch):
		return http.StatusBadRequest
	case errors.Is(err, ErrCancelled), errors.Is(err, ErrEndpointUnreachable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	description := ErrorDescription(err)
	if status >= 500 {
		description = ""
	}

	writeJSON(w, status, errorResponse{
		Error:            ErrorCode(err),
		ErrorDescription: description,
	})
}
