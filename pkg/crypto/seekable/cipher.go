package seekable

import (
	"errors"
	"runtime"
)

// IVLength is the fixed initialization vector length in bytes.
//
// Both supported ciphers consume exactly this many bytes; files written
// with one cipher keep a stable on-disk layout when read with the other
// factory configuration.
const IVLength = 16

// CipherType identifies the stream cipher algorithm.
type CipherType string

const (
	CipherAESCTR   CipherType = "aes-ctr"
	CipherChaCha20 CipherType = "chacha20"
)

// Stream is a keystream positioned within a logical cleartext stream.
//
// A Stream is bound to one secret and one IV. It is not safe for
// concurrent use.
type Stream interface {
	// XORKeyStream processes src into dst at the current stream offset
	// and advances the offset by len(src). dst and src may overlap
	// exactly or not at all.
	XORKeyStream(dst, src []byte)

	// Seek positions the keystream at the given cleartext offset.
	Seek(offset int64) error
}

// Factory creates Streams bound to a secret and IV.
//
// The factory is the only cipher knowledge the log layer carries; the
// concrete algorithm stays opaque to callers.
type Factory interface {
	// Type returns the cipher type produced by this factory.
	Type() CipherType

	// New creates a keystream for the given secret and IV,
	// positioned at offset zero.
	New(secret, iv []byte) (Stream, error)
}

// NewFactory creates a factory with the optimal algorithm for this
// hardware.
func NewFactory() Factory {
	if hasAESNI() {
		return AESCTRFactory{}
	}
	return ChaCha20Factory{}
}

// NewFactoryWithType creates a factory of the specified type.
func NewFactoryWithType(cipherType CipherType) (Factory, error) {
	switch cipherType {
	case CipherAESCTR:
		return AESCTRFactory{}, nil
	case CipherChaCha20:
		return ChaCha20Factory{}, nil
	default:
		return nil, errors.New("unknown cipher type: " + string(cipherType))
	}
}

// hasAESNI checks if AES hardware acceleration is available.
// On amd64 and arm64, Go's crypto/aes uses hardware acceleration when available.
func hasAESNI() bool {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return true
	default:
		return false
	}
}
