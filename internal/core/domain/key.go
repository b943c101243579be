// Package domain defines the core domain models for LexMesh.
package domain

import (
	"crypto/rand"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Key constraints.
const (
	// MinSecretLength is the minimum key material length in bytes.
	MinSecretLength = 16

	// MaxSecretLength is the maximum key material length in bytes.
	MaxSecretLength = 32

	// KeyIDPrefix is the prefix for key identifiers.
	// Format: lmk_{ulid_lowercase}, 30 characters total.
	KeyIDPrefix = "lmk_"
)

// EncryptionKey is one version of a core's encryption key.
//
// The secret itself never leaves the keystore in logs or API
// responses; only the key ID and its numeric reference do.
type EncryptionKey struct {
	// ID is the unique key identifier. Format: lmk_{ulid_lowercase}.
	ID string `json:"id"`

	// Ref is the numeric key reference stored in encrypted file
	// headers. Kept textual because commit metadata is a string map;
	// it must parse as a non-negative decimal integer.
	Ref string `json:"ref"`

	// Secret is the raw key material (not serialized).
	Secret []byte `json:"-"`

	// CreatedAt is the key creation timestamp (Unix milliseconds).
	CreatedAt int64 `json:"created_at"`
}

// NewEncryptionKey creates a key version with a generated ID.
func NewEncryptionKey(ref string, secret []byte) (*EncryptionKey, error) {
	if _, err := ParseKeyRef(ref); err != nil {
		return nil, err
	}
	if len(secret) < MinSecretLength || len(secret) > MaxSecretLength {
		return nil, ErrKeyValidation.WithDetails("secret must be 16 to 32 bytes")
	}

	id, err := GenerateKeyID()
	if err != nil {
		return nil, err
	}

	return &EncryptionKey{
		ID:        id,
		Ref:       ref,
		Secret:    secret,
		CreatedAt: time.Now().UnixMilli(),
	}, nil
}

// GenerateKeyID generates a new key ID using ULID.
// Format: lmk_{ulid_lowercase}, 30 characters total.
func GenerateKeyID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", ErrInternalServer.WithCause(err)
	}
	return KeyIDPrefix + strings.ToLower(id.String()), nil
}

// ValidateKeyID reports whether id has the lmk_{ulid} shape.
func ValidateKeyID(id string) bool {
	if !strings.HasPrefix(id, KeyIDPrefix) {
		return false
	}
	rest := strings.TrimPrefix(id, KeyIDPrefix)
	if len(rest) != ulid.EncodedSize {
		return false
	}
	_, err := ulid.ParseStrict(strings.ToUpper(rest))
	return err == nil
}

// ParseKeyRef parses a textual key reference into its numeric form.
// Key references are non-negative decimal integers small enough for
// the fixed-width file header field.
func ParseKeyRef(ref string) (uint32, error) {
	n, err := strconv.ParseUint(ref, 10, 32)
	if err != nil {
		return 0, ErrKeyRefMalformed.WithDetails(ref)
	}
	return uint32(n), nil
}

// FormatKeyRef renders a numeric key reference in its textual form.
func FormatKeyRef(n uint32) string {
	return strconv.FormatUint(uint64(n), 10)
}
