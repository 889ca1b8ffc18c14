package indieauth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"
)

const (
	// MethodS256 is the only code challenge method supported.
	MethodS256 = "S256"

	minChallengeLength = 43
	maxChallengeLength = 128
)

// DefaultChallengeMethods lists the code challenge methods accepted when none
// are configured.
var DefaultChallengeMethods = []string{MethodS256}

// GenerateVerifier returns a new random code verifier, suitable for use with
// DeriveChallenge.
func GenerateVerifier() (string, error) {
	return randomString()
}

// DeriveChallenge returns the S256 code challenge for the verifier.
func DeriveChallenge(verifier string) string {
	data := sha256.Sum256([]byte(verifier))
	return base64URL(data[:])
}

// ChallengesMatch reports whether the verifier presented hashes to the
// expected challenge.
func ChallengesMatch(expectedChallenge, presentedVerifier string) bool {
	actual := DeriveChallenge(presentedVerifier)
	return subtle.ConstantTimeCompare([]byte(expectedChallenge), []byte(actual)) == 1
}

func randomString() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64URL(b[:]), nil
}

func base64URL(data []byte) string {
	s := base64.URLEncoding.EncodeToString(data[:])
	return strings.TrimRight(s, "=")
}

func containsString(list []string, s string) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}

	return false
}
