package indieauth_test

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"hawx.me/code/indieauth/v3"
)

func ExampleNewSessions() {
	sessions, _ := indieauth.NewSessions("7xZ+h4OnB0EkgSDspZila2fvn5c0ggE+xmBz9VpyfGU=", &indieauth.Config{
		ClientID:    "http://localhost:8080/",
		RedirectURL: "http://localhost:8080/callback",
	})

	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if response, ok := sessions.SignedIn(r); ok {
			fmt.Fprintf(w, `Signed in as: %s<br/><a href="/sign-out">Sign-out</a>`, response.Me)
		} else {
			fmt.Fprint(w, `<form action="/sign-in"><input name="me"><button type="submit">Sign-in</button>`)
		}
	})

	mux.HandleFunc("/sign-in", func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.RedirectToSignIn(w, r, r.FormValue("me")); err != nil {
			log.Println(err)
			http.Error(w, "", http.StatusInternalServerError)
		}
	})

	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.HandleCallback(w, r); err != nil {
			log.Println(err)
			http.Error(w, "", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, "/", http.StatusFound)
	})

	mux.HandleFunc("/sign-out", func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.SignOut(w, r); err != nil {
			log.Println(err)
			http.Error(w, "", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, "/", http.StatusFound)
	})

	log.Println("Listening at :8080")
	http.ListenAndServe(":8080", mux)
}

func ExampleServer() {
	codec, _ := indieauth.NewHMACCodec([]byte("a long and very secret key"))
	server := indieauth.NewServer(codec)

	ctx := context.Background()

	code, _ := server.IssueCode(ctx, indieauth.IssueRequest{
		Me:                  "https://me.example.com/",
		ClientID:            "https://client.example.com/",
		RedirectURI:         "https://client.example.com/callback",
		ResponseType:        "code",
		CodeChallengeMethod: indieauth.MethodS256,
		Scope:               "create",
	})

	token, _ := server.RedeemCode(ctx, indieauth.RedeemRequest{
		GrantType:    indieauth.GrantAuthorizationCode,
		Code:         code.Code,
		ClientID:     "https://client.example.com/",
		RedirectURI:  "https://client.example.com/callback",
		CodeVerifier: code.CodeVerifier,
	})

	decoded, _ := server.ValidateAccessToken(token.AccessToken)
	fmt.Println(decoded.Me, decoded.Scope)
	// Output: https://me.example.com/ create
}

func ExampleAuthenticator_Shield() {
	authenticator := &indieauth.Authenticator{
		TokenEndpoint: "https://tokens.example.com/token",
		ApprovedMe:    "https://me.example.com/",
	}

	http.Handle("/admin", authenticator.Shield(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "welcome back")
	})))
}
