package token

import (
	"crypto/rand"
	"encoding/base64"
)

// DefaultLength is the entropy in bytes behind Generate.
const DefaultLength = 32

// Generate returns a random token with DefaultLength bytes of entropy,
// Base64 RawURL encoded so it is safe in headers and log fields.
func Generate() (string, error) {
	return GenerateWithLength(DefaultLength)
}

// GenerateWithLength returns a random token backed by length bytes of
// entropy. Request IDs use a short length; anything secret should use
// DefaultLength or more.
func GenerateWithLength(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
