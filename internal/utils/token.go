package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// NewOpaqueToken returns a URL-safe random string carrying 256 bits of
// entropy, used for the emailed verification and password-reset links.
// Only the random string itself is persisted; it is never derivable from
// user data.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
