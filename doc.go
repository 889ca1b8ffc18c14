/*
Package indieauth implements both sides of IndieAuth: a client signing users
in, and a server issuing the codes and tokens they are signed in with.

# Signing in

The simplest way to sign users in is with Sessions, which keeps the result in a
cookie. Start by redirecting to the authorization endpoint discovered for the
URL the user enters.

	config := &indieauth.Config{
	  ClientID:    "https://client.example.com/",
	  RedirectURL: "https://client.example.com/callback",
	}
	sessions, _ := indieauth.NewSessions(secret, config)

	func SignIn(w http.ResponseWriter, r *http.Request) {
	  if err := sessions.RedirectToSignIn(w, r, r.FormValue("me")); err != nil {
	    http.Error(w, "", http.StatusBadRequest)
	  }
	}

When the user returns to RedirectURL the state is checked, and the code is
exchanged using the PKCE verifier kept in the session.

	func Callback(w http.ResponseWriter, r *http.Request) {
	  if err := sessions.HandleCallback(w, r); err != nil {
	    http.Error(w, "", http.StatusForbidden)
	    return
	  }

	  http.Redirect(w, r, "/", http.StatusFound)
	}

To ask for an access token set Scopes; Exchange then goes to the token endpoint
rather than the authorization endpoint. RequiredScopes makes the exchange fail
with ErrScopeDenied if the user declined any of them.

# Issuing codes and tokens

A Server signs authorization codes and access tokens with a Codec. The
authorization endpoint calls IssueCode once the user has approved the client,
and redirects back with the code.

	codec, _ := indieauth.NewHMACCodec(key)
	server := indieauth.NewServer(codec)
	server.Ledger = ledger.NewMemory()

	code, err := server.IssueCode(ctx, indieauth.IssueRequest{
	  Me:                  "https://me.example.com/",
	  ClientID:            clientID,
	  RedirectURI:         redirectURI,
	  ResponseType:        "code",
	  CodeChallengeMethod: indieauth.MethodS256,
	  Scope:               "create",
	})

TokenEndpoint serves the token endpoint: a POST redeems a code, a GET with a
bearer token returns what the token was issued for. Without a Ledger a code
can be redeemed any number of times until it expires.

# Tickets

A ticket lets a resource owner grant someone else access without that person
signing in. CreateTicket sends a ticket to the ticket endpoint of the subject,
and TicketHandler receives one, redeeming it at the token endpoint of the
resource.

# Protecting resources

Authenticator asks a token endpoint about the bearer token of a request, from
its Authorization header or the session. Shield wraps a handler so that only
requests with an accepted token reach it.

# Further Reading

Spec: https://indieauth.spec.indieweb.org/
*/
package indieauth
