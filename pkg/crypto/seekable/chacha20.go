package seekable

import (
	"errors"

	"golang.org/x/crypto/chacha20"
)

// chachaBlockSize is the ChaCha20 keystream block size in bytes.
const chachaBlockSize = 64

// ChaCha20Factory creates ChaCha20 keystreams.
type ChaCha20Factory struct{}

// Type returns the cipher type.
func (ChaCha20Factory) Type() CipherType {
	return CipherChaCha20
}

// New creates a ChaCha20 keystream for the given secret and IV.
//
// Secret must be exactly 32 bytes. IV must be IVLength bytes; the first
// chacha20.NonceSize bytes seed the nonce.
func (ChaCha20Factory) New(secret, iv []byte) (Stream, error) {
	if len(secret) != chacha20.KeySize {
		return nil, errors.New("invalid key size for ChaCha20: must be 32 bytes")
	}
	if len(iv) != IVLength {
		return nil, errors.New("invalid IV size for ChaCha20: must be 16 bytes")
	}

	s := &chachaStream{
		secret: append([]byte(nil), secret...),
		nonce:  append([]byte(nil), iv[:chacha20.NonceSize]...),
	}
	if err := s.Seek(0); err != nil {
		return nil, err
	}
	return s, nil
}

// chachaStream positions a ChaCha20 keystream via SetCounter, then
// discards the intra-block remainder.
type chachaStream struct {
	secret []byte
	nonce  []byte
	cipher *chacha20.Cipher
}

// XORKeyStream processes src into dst at the current stream offset.
func (s *chachaStream) XORKeyStream(dst, src []byte) {
	s.cipher.XORKeyStream(dst, src)
}

// Seek positions the keystream at the given cleartext offset.
func (s *chachaStream) Seek(offset int64) error {
	if offset < 0 {
		return errors.New("negative stream offset")
	}

	c, err := chacha20.NewUnauthenticatedCipher(s.secret, s.nonce)
	if err != nil {
		return err
	}
	c.SetCounter(uint32(offset / chachaBlockSize))
	s.cipher = c

	if rem := offset % chachaBlockSize; rem > 0 {
		scratch := make([]byte, rem)
		s.cipher.XORKeyStream(scratch, scratch)
	}
	return nil
}
