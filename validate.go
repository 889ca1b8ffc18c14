package indieauth

import (
	"net/http"
)

// GrantAuthorizationCode is the grant_type used to redeem authorization codes.
const GrantAuthorizationCode = "authorization_code"

// AuthorizationRequest holds the parameters of a request to redeem an
// authorization code.
type AuthorizationRequest struct {
	GrantType           string
	Code                string
	ClientID            string
	RedirectURI         string
	CodeChallenge       string
	CodeChallengeMethod string
}

// AuthorizationRequestFromForm reads an AuthorizationRequest from the form
// values of r.
func AuthorizationRequestFromForm(r *http.Request) AuthorizationRequest {
	return AuthorizationRequest{
		GrantType:           r.PostFormValue("grant_type"),
		Code:                r.PostFormValue("code"),
		ClientID:            r.PostFormValue("client_id"),
		RedirectURI:         r.PostFormValue("redirect_uri"),
		CodeChallenge:       r.PostFormValue("code_challenge"),
		CodeChallengeMethod: r.PostFormValue("code_challenge_method"),
	}
}

// Validate checks the shape of the request, and returns an *Error describing
// the first check to fail. When allowedMethods is empty DefaultChallengeMethods
// is used.
func (req AuthorizationRequest) Validate(allowedMethods ...string) error {
	if req.GrantType != GrantAuthorizationCode {
		return &Error{
			Kind:        ErrRequestMalformed,
			Code:        "unsupported_grant_type",
			Description: "only authorization_code grant types are supported",
		}
	}

	if req.Code == "" || req.ClientID == "" || req.RedirectURI == "" {
		return newError(ErrRequestMalformed, "code, client_id and redirect_uri are required")
	}

	if req.CodeChallenge != "" && req.CodeChallengeMethod != "" {
		return validateChallenge(req.CodeChallenge, req.CodeChallengeMethod, allowedMethods)
	}

	return nil
}

func validateChallenge(challenge, method string, allowedMethods []string) error {
	if err := validateChallengeMethod(method, allowedMethods); err != nil {
		return err
	}

	if len(challenge) < minChallengeLength {
		return newError(ErrChallengeInvalid, "the challenge provided is too short")
	}

	if len(challenge) > maxChallengeLength {
		return newError(ErrChallengeInvalid, "the challenge provided is too long")
	}

	return nil
}

func validateChallengeMethod(method string, allowedMethods []string) error {
	if len(allowedMethods) == 0 {
		allowedMethods = DefaultChallengeMethods
	}

	if !containsString(allowedMethods, method) {
		return newError(ErrChallengeInvalid, "the challenge method provided is not supported")
	}

	return nil
}
