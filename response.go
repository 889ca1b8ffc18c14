package indieauth

// Response is what a client receives from a token endpoint, either by
// exchanging an authorization code or by redeeming a ticket.
type Response struct {
	AccessToken string
	TokenType   string
	Scopes      []string
	Me          string
	Profile     map[string]interface{}
}

// HasScope returns true if the Response was issued with the scope.
func (r Response) HasScope(scope string) bool {
	return containsString(r.Scopes, scope)
}
