package seekable

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// EncryptingWriter encrypts a logical cleartext stream onto an
// underlying writer.
//
// A writer created at cleartext offset zero establishes the IV: it uses
// the provided one, or generates a random IV when nil, and writes it to
// the underlying stream before any data. A writer created at a nonzero
// offset continues an existing stream and requires the IV that was
// established when the stream began.
type EncryptingWriter struct {
	out     io.Writer
	stream  Stream
	iv      []byte
	scratch []byte
}

// NewEncryptingWriter creates an EncryptingWriter positioned at the
// given cleartext offset.
func NewEncryptingWriter(out io.Writer, offset int64, iv, secret []byte, factory Factory) (*EncryptingWriter, error) {
	if offset < 0 {
		return nil, errors.New("seekable: negative cleartext offset")
	}

	if offset == 0 {
		if iv == nil {
			iv = make([]byte, IVLength)
			if _, err := rand.Read(iv); err != nil {
				return nil, fmt.Errorf("seekable: generate iv: %w", err)
			}
		}
		if _, err := out.Write(iv); err != nil {
			return nil, fmt.Errorf("seekable: write iv: %w", err)
		}
	} else if iv == nil {
		return nil, errors.New("seekable: appending requires the stream iv")
	}

	stream, err := factory.New(secret, iv)
	if err != nil {
		return nil, fmt.Errorf("seekable: create stream: %w", err)
	}
	if offset > 0 {
		if err := stream.Seek(offset); err != nil {
			return nil, fmt.Errorf("seekable: seek stream: %w", err)
		}
	}

	return &EncryptingWriter{
		out:    out,
		stream: stream,
		iv:     append([]byte(nil), iv...),
	}, nil
}

// IV returns the initialization vector in use by this writer.
func (w *EncryptingWriter) IV() []byte {
	return append([]byte(nil), w.iv...)
}

// Write encrypts p and writes the ciphertext to the underlying writer.
func (w *EncryptingWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if cap(w.scratch) < len(p) {
		w.scratch = make([]byte, len(p))
	}
	scratch := w.scratch[:len(p)]
	w.stream.XORKeyStream(scratch, p)

	n, err := w.out.Write(scratch)
	if err != nil {
		return n, fmt.Errorf("seekable: write: %w", err)
	}
	return n, nil
}
