package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// OpaqueTokenBytes is the amount of entropy behind every client id, secret,
// authorization code and token issued by the gateway.
const OpaqueTokenBytes = 32

// RandomString returns n random bytes from crypto/rand encoded as unpadded base64url.
func RandomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// MustRandomString is RandomString that panics when the system entropy source fails.
func MustRandomString(n int) string {
	s, err := RandomString(n)
	if err != nil {
		panic(err)
	}
	return s
}
