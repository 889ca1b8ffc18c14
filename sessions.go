package indieauth

import (
	"encoding/base64"
	"encoding/gob"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/sessions"
)

type sessionData struct {
	State         string
	Verifier      string
	Authorization string
	Token         string
}

func (d sessionData) endpoints() (Endpoints, error) {
	var endpoints Endpoints

	authURL, err := url.Parse(d.Authorization)
	if err != nil {
		return endpoints, err
	}
	endpoints.Authorization = authURL

	if d.Token != "" {
		tokenURL, err := url.Parse(d.Token)
		if err != nil {
			return endpoints, err
		}
		endpoints.Token = tokenURL
	}

	return endpoints, nil
}

func init() {
	gob.Register(sessionData{})
	gob.Register(Response{})
	gob.Register(map[string]interface{}{})
	gob.Register([]interface{}{})
}

const sessionName = "session"

type Sessions struct {
	store  sessions.Store
	config *Config
}

// NewSessions creates a new session handler that uses cookies to store the
// current user. The secret should be 32 or 64 bytes base64 encoded.
func NewSessions(secret string, config *Config) (*Sessions, error) {
	byteSecret, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, err
	}

	return &Sessions{
		store:  sessions.NewCookieStore(byteSecret),
		config: config,
	}, nil
}

// RedirectToSignIn will issue a redirect to the authorization endpoint
// discovered for "me".
func (s *Sessions) RedirectToSignIn(w http.ResponseWriter, r *http.Request, me string) error {
	endpoints, err := s.config.FindEndpoints(r.Context(), me)
	if err != nil {
		return fmt.Errorf("could not find authorization endpoints: %w", err)
	}

	state, err := randomString()
	if err != nil {
		return err
	}

	verifier, err := GenerateVerifier()
	if err != nil {
		return err
	}

	data := sessionData{
		State:         state,
		Verifier:      verifier,
		Authorization: endpoints.Authorization.String(),
	}
	if endpoints.Token != nil {
		data.Token = endpoints.Token.String()
	}

	err = s.setData(w, r, data)
	if err != nil {
		return err
	}

	redirectURL := s.config.AuthCodeURL(endpoints, state, DeriveChallenge(verifier), me)

	http.Redirect(w, r, redirectURL, http.StatusFound)
	return nil
}

// HandleCallback will complete the authentication process and should be called
// in the route assigned to RedirectURL. After calling this, redirect to another
// page of your application.
func (s *Sessions) HandleCallback(w http.ResponseWriter, r *http.Request) error {
	data := s.getData(r)

	if data.State == "" || r.FormValue("state") != data.State {
		return fmt.Errorf("unexpected state")
	}

	endpoints, err := data.endpoints()
	if err != nil {
		return fmt.Errorf("session endpoints invalid: %w", err)
	}

	response, err := s.config.Exchange(r.Context(), endpoints, r.FormValue("code"), data.Verifier)
	if err != nil {
		return fmt.Errorf("code exchange failed: %w", err)
	}

	return s.set(w, r, response)
}

// SignOut will remove the session cookie for the user.
func (s *Sessions) SignOut(w http.ResponseWriter, r *http.Request) error {
	return s.set(w, r, &Response{})
}

// SignedIn will return the response for the current session, if signed in.
func (s *Sessions) SignedIn(r *http.Request) (*Response, bool) {
	response := s.get(r)
	return response, response != nil && response.Me != ""
}

// Choose switches between two handlers depending on whether a user is signed
// in.
func (s *Sessions) Choose(signedIn, signedOut http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.SignedIn(r); ok {
			signedIn.ServeHTTP(w, r)
		} else {
			signedOut.ServeHTTP(w, r)
		}
	})
}

// AuthContext returns the AuthContext for r, exposing the access token of the
// signed in user, if any, as the session's "access_token".
func (s *Sessions) AuthContext(r *http.Request) AuthContext {
	values := map[interface{}]interface{}{}
	if response, ok := s.SignedIn(r); ok && response.AccessToken != "" {
		values["access_token"] = response.AccessToken
		values["me"] = response.Me
	}

	return AuthContextFromRequest(r, values)
}

func (s *Sessions) get(r *http.Request) *Response {
	session, _ := s.store.Get(r, sessionName)
	response, _ := session.Values["response"].(Response)

	return &response
}

func (s *Sessions) set(w http.ResponseWriter, r *http.Request, response *Response) error {
	session, _ := s.store.Get(r, sessionName)
	session.Values = map[interface{}]interface{}{
		"response": *response,
	}

	return session.Save(r, w)
}

func (s *Sessions) setData(w http.ResponseWriter, r *http.Request, data sessionData) error {
	session, _ := s.store.Get(r, sessionName)
	session.Values = map[interface{}]interface{}{
		"data": data,
	}

	return session.Save(r, w)
}

func (s *Sessions) getData(r *http.Request) sessionData {
	session, _ := s.store.Get(r, sessionName)
	data, _ := session.Values["data"].(sessionData)

	return data
}
