package seekable

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
)

// AESCTRFactory creates AES-CTR keystreams.
type AESCTRFactory struct{}

// Type returns the cipher type.
func (AESCTRFactory) Type() CipherType {
	return CipherAESCTR
}

// New creates an AES-CTR keystream for the given secret and IV.
//
// Secret must be 16, 24, or 32 bytes for AES-128, AES-192, or AES-256.
// IV must be exactly IVLength bytes.
func (AESCTRFactory) New(secret, iv []byte) (Stream, error) {
	switch len(secret) {
	case 16, 24, 32:
		// Valid key sizes
	default:
		return nil, errors.New("invalid key size for AES-CTR: must be 16, 24, or 32 bytes")
	}
	if len(iv) != IVLength {
		return nil, errors.New("invalid IV size for AES-CTR: must be 16 bytes")
	}

	block, err := aes.NewCipher(secret)
	if err != nil {
		return nil, err
	}

	s := &aesCTRStream{
		block: block,
		iv:    append([]byte(nil), iv...),
	}
	if err := s.Seek(0); err != nil {
		return nil, err
	}
	return s, nil
}

// aesCTRStream positions an AES-CTR keystream by recomputing the counter
// block for the target offset and discarding the intra-block remainder.
type aesCTRStream struct {
	block cipher.Block
	iv    []byte
	ctr   cipher.Stream
}

// XORKeyStream processes src into dst at the current stream offset.
func (s *aesCTRStream) XORKeyStream(dst, src []byte) {
	s.ctr.XORKeyStream(dst, src)
}

// Seek positions the keystream at the given cleartext offset.
func (s *aesCTRStream) Seek(offset int64) error {
	if offset < 0 {
		return errors.New("negative stream offset")
	}

	blockSize := int64(s.block.BlockSize())
	counter := append([]byte(nil), s.iv...)
	addToCounter(counter, uint64(offset/blockSize))
	s.ctr = cipher.NewCTR(s.block, counter)

	// Burn the partial block preceding the offset.
	if rem := offset % blockSize; rem > 0 {
		scratch := make([]byte, rem)
		s.ctr.XORKeyStream(scratch, scratch)
	}
	return nil
}

// addToCounter adds n to a big-endian counter block in place.
func addToCounter(counter []byte, n uint64) {
	for i := len(counter) - 1; i >= 0 && n > 0; i-- {
		n += uint64(counter[i])
		counter[i] = byte(n)
		n >>= 8
	}
}
