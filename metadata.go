package indieauth

import (
	"encoding/json"
	"net/http"
)

// Metadata describes an IndieAuth server, as published at the URL advertised
// with rel="indieauth-metadata".
type Metadata struct {
	Issuer                                     string   `json:"issuer,omitempty"`
	AuthorizationEndpoint                      string   `json:"authorization_endpoint,omitempty"`
	TokenEndpoint                              string   `json:"token_endpoint,omitempty"`
	TicketEndpoint                             string   `json:"ticket_endpoint,omitempty"`
	IntrospectionEndpoint                      string   `json:"introspection_endpoint,omitempty"`
	IntrospectionEndpointAuthMethodsSupported  []string `json:"introspection_endpoint_auth_methods_supported,omitempty"`
	RevocationEndpoint                         string   `json:"revocation_endpoint,omitempty"`
	RevocationEndpointAuthMethodsSupported     []string `json:"revocation_endpoint_auth_methods_supported,omitempty"`
	UserinfoEndpoint                           string   `json:"userinfo_endpoint,omitempty"`
	ServiceDocumentation                       string   `json:"service_documentation,omitempty"`
	ScopesSupported                            []string `json:"scopes_supported,omitempty"`
	ResponseTypesSupported                     []string `json:"response_types_supported,omitempty"`
	GrantTypesSupported                        []string `json:"grant_types_supported,omitempty"`
	CodeChallengeMethodsSupported              []string `json:"code_challenge_methods_supported,omitempty"`
	AuthorizationResponseIssParameterSupported bool     `json:"authorization_response_iss_parameter_supported,omitempty"`
}

// MetadataHandler serves the Server's Metadata as JSON. Supported response
// types, grant types and challenge methods are filled in if not set.
func (s *Server) MetadataHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "", http.StatusMethodNotAllowed)
			return
		}

		m := s.Metadata
		if len(m.ResponseTypesSupported) == 0 {
			m.ResponseTypesSupported = []string{"code", "id"}
		}
		if len(m.GrantTypesSupported) == 0 {
			m.GrantTypesSupported = []string{GrantAuthorizationCode}
		}
		if len(m.CodeChallengeMethodsSupported) == 0 {
			m.CodeChallengeMethodsSupported = s.challengeMethods()
		}

		writeJSON(w, http.StatusOK, m)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
