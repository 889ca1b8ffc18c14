package indieauth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// A Codec signs Claims into a compact token string and verifies them again.
// It is safe for concurrent use.
type Codec struct {
	method     jwt.SigningMethod
	signKey    interface{}
	verifyKey  interface{}
	algorithms []string
}

// NewCodec creates a Codec that signs with signKey using method, and verifies
// with verifyKey. For symmetric methods both keys are the same secret. Tokens
// are only accepted if they were signed with method, unless other algorithms
// are given.
func NewCodec(method jwt.SigningMethod, signKey, verifyKey interface{}, algorithms ...string) (*Codec, error) {
	if method == nil {
		return nil, errors.New("signing method must be provided")
	}
	if signKey == nil || verifyKey == nil {
		return nil, errors.New("signing and verification keys must be provided")
	}
	if len(algorithms) == 0 {
		algorithms = []string{method.Alg()}
	}

	return &Codec{
		method:     method,
		signKey:    signKey,
		verifyKey:  verifyKey,
		algorithms: algorithms,
	}, nil
}

// NewHMACCodec creates a Codec using HS256 with the secret.
func NewHMACCodec(secret []byte) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("secret must be non-empty")
	}

	return NewCodec(jwt.SigningMethodHS256, secret, secret)
}

// Algorithms returns the signing algorithms accepted by Decode.
func (c *Codec) Algorithms() []string {
	return append([]string(nil), c.algorithms...)
}

// Encode signs the claims.
func (c *Codec) Encode(claims Claims) (string, error) {
	return jwt.NewWithClaims(c.method, claims).SignedString(c.signKey)
}

// Decode verifies the token and returns its claims. Any failure to parse or
// verify is reported as ErrCodeInvalid. Decode does not check the expires
// claim.
func (c *Codec) Decode(token string) (Claims, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return c.verifyKey, nil
	}, jwt.WithValidMethods(c.algorithms))
	if err != nil {
		return Claims{}, &Error{Kind: ErrCodeInvalid, Description: "signature or format is invalid", Err: err}
	}

	return claims, nil
}
