package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// FingerprintLen is the number of hex characters kept by Fingerprint.
const FingerprintLen = 8

// Hash computes the hex-encoded SHA-256 hash of a token.
func Hash(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// HashBytes computes the hex-encoded SHA-256 hash of raw bytes.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Fingerprint returns a short, stable identifier for secret material.
// It is safe to log: the full hash is never exposed, only its first
// FingerprintLen hex characters.
func Fingerprint(data []byte) string {
	return HashBytes(data)[:FingerprintLen]
}

// Verify compares a token against an expected hash in constant time.
func Verify(token, expectedHash string) bool {
	actual := Hash(token)
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expectedHash)) == 1
}
