package seekable

import (
	"errors"
	"fmt"
	"io"
)

// DecryptingReader decrypts a stream previously written by an
// EncryptingWriter.
//
// The IV is read from the underlying file at ivOffset; encrypted data
// begins immediately after it. Offsets exposed by the reader are
// cleartext offsets, independent of any file header.
type DecryptingReader struct {
	src       io.ReaderAt
	dataStart int64
	iv        []byte
	stream    Stream
	offset    int64
}

// NewDecryptingReader creates a DecryptingReader positioned at the
// given cleartext offset. ivOffset is the file offset where the IV was
// stored.
func NewDecryptingReader(src io.ReaderAt, ivOffset, offset int64, secret []byte, factory Factory) (*DecryptingReader, error) {
	if offset < 0 {
		return nil, errors.New("seekable: negative cleartext offset")
	}

	iv := make([]byte, IVLength)
	if n, err := src.ReadAt(iv, ivOffset); n != IVLength {
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("seekable: read iv: %w", err)
	}

	stream, err := factory.New(secret, iv)
	if err != nil {
		return nil, fmt.Errorf("seekable: create stream: %w", err)
	}

	r := &DecryptingReader{
		src:       src,
		dataStart: ivOffset + IVLength,
		iv:        iv,
	}
	r.stream = stream
	if err := r.Seek(offset); err != nil {
		return nil, err
	}
	return r, nil
}

// IV returns the initialization vector read from the stream.
func (r *DecryptingReader) IV() []byte {
	return append([]byte(nil), r.iv...)
}

// Offset returns the current cleartext offset.
func (r *DecryptingReader) Offset() int64 {
	return r.offset
}

// Seek positions the reader at the given cleartext offset.
func (r *DecryptingReader) Seek(offset int64) error {
	if offset < 0 {
		return errors.New("seekable: negative cleartext offset")
	}
	if err := r.stream.Seek(offset); err != nil {
		return fmt.Errorf("seekable: seek stream: %w", err)
	}
	r.offset = offset
	return nil
}

// Read reads and decrypts up to len(p) bytes at the current offset.
func (r *DecryptingReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n, err := r.src.ReadAt(p, r.dataStart+r.offset)
	if n > 0 {
		r.stream.XORKeyStream(p[:n], p[:n])
		r.offset += int64(n)
	}
	if err != nil && errors.Is(err, io.EOF) {
		if n > 0 {
			return n, nil
		}
		return 0, io.EOF
	}
	return n, err
}
