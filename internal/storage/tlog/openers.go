package tlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/yndnr/lexmesh-go/internal/index"
	"github.com/yndnr/lexmesh-go/pkg/crypto/seekable"
)

// DirectorySupplier lends out the owning core's directory for the
// duration of one open. Implemented by index.Supplier.
type DirectorySupplier interface {
	Get() (*index.Directory, error)
	Release(*index.Directory) error
}

// Output is an open log output stream. Encrypted reports whether bytes
// written to W are enciphered, which callers need for size accounting.
type Output struct {
	W         io.Writer
	Encrypted bool
}

// Input is an open log input stream positioned at a logical offset.
type Input struct {
	R         io.Reader
	Encrypted bool
}

// OutputOpener opens a log file for writing at a physical position.
type OutputOpener interface {
	OpenOutput(ctx context.Context, f *os.File, position int64) (*Output, error)
}

// InputOpener opens a log file for reading from a logical offset.
type InputOpener interface {
	OpenInput(ctx context.Context, f *os.File, offset int64) (*Input, error)
}

// RawOutputOpener opens cleartext output streams.
type RawOutputOpener struct{}

func (RawOutputOpener) OpenOutput(ctx context.Context, f *os.File, position int64) (*Output, error) {
	if _, err := f.Seek(position, io.SeekStart); err != nil {
		return nil, fmt.Errorf("tlog: seek output: %w", err)
	}
	return &Output{W: f}, nil
}

// RawInputOpener opens cleartext input streams.
type RawInputOpener struct{}

func (RawInputOpener) OpenInput(ctx context.Context, f *os.File, offset int64) (*Input, error) {
	return rawInput(f, offset)
}

func rawInput(f *os.File, offset int64) (*Input, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("tlog: stat input: %w", err)
	}
	return &Input{R: io.NewSectionReader(f, offset, stat.Size()-offset)}, nil
}

// EncryptionOutputOpener opens output streams that encrypt when the
// owning core's latest commit designates an active key, and fall back
// to cleartext otherwise.
type EncryptionOutputOpener struct {
	supplier DirectorySupplier
	iv       *ivHolder
}

// EncryptionInputOpener is the read-side counterpart: it probes files
// for the key header when the directory's read-probe flag is set.
type EncryptionInputOpener struct {
	supplier DirectorySupplier
	iv       *ivHolder
}

// NewEncryptionOpeners returns a linked opener pair sharing one IV
// cache. The pair is scoped to a single log instance; sharing it across
// logs would leak one file's IV into another.
func NewEncryptionOpeners(supplier DirectorySupplier) (*EncryptionOutputOpener, *EncryptionInputOpener) {
	holder := &ivHolder{}
	return &EncryptionOutputOpener{supplier: supplier, iv: holder},
		&EncryptionInputOpener{supplier: supplier, iv: holder}
}

func (o *EncryptionOutputOpener) OpenOutput(ctx context.Context, f *os.File, position int64) (_ *Output, err error) {
	if _, err := f.Seek(position, io.SeekStart); err != nil {
		return nil, fmt.Errorf("tlog: seek output: %w", err)
	}

	// Appending without a cached IV means the encryption decision that
	// created this file is not ours to continue; stay cleartext.
	if position != 0 && o.iv.get() == nil {
		return &Output{W: f}, nil
	}

	dir, err := o.supplier.Get()
	if err != nil {
		return nil, fmt.Errorf("tlog: acquire directory: %w", err)
	}
	defer func() {
		if rerr := o.supplier.Release(dir); rerr != nil {
			err = errors.Join(err, fmt.Errorf("tlog: release directory: %w", rerr))
		}
	}()

	keyRef := dir.ActiveKeyRef()
	if keyRef == "" {
		o.iv.set(nil)
		return &Output{W: f}, nil
	}

	// From the first encrypted write on, readers must probe for headers.
	dir.SetCheckEncryptionOnRead(true)

	var plainOffset int64
	if position == 0 {
		if err := writeHeader(keyRef, f); err != nil {
			return nil, err
		}
	} else {
		if position < fullHeaderLen {
			return nil, fmt.Errorf("tlog: append position %d inside header", position)
		}
		plainOffset = position - fullHeaderLen
	}

	secret, err := dir.KeySecret(ctx, keyRef)
	if err != nil {
		return nil, err
	}

	ew, err := seekable.NewEncryptingWriter(f, plainOffset, o.iv.get(), secret, dir.EncrypterFactory())
	if err != nil {
		return nil, fmt.Errorf("tlog: open encrypting writer: %w", err)
	}
	o.iv.set(ew.IV())

	return &Output{W: ew, Encrypted: true}, nil
}

func (o *EncryptionInputOpener) OpenInput(ctx context.Context, f *os.File, offset int64) (_ *Input, err error) {
	dir, err := o.supplier.Get()
	if err != nil {
		return nil, fmt.Errorf("tlog: acquire directory: %w", err)
	}
	defer func() {
		if rerr := o.supplier.Release(dir); rerr != nil {
			err = errors.Join(err, fmt.Errorf("tlog: release directory: %w", rerr))
		}
	}()

	if dir.CheckEncryptionOnRead() {
		keyRef, err := readHeader(f)
		if err != nil {
			return nil, err
		}
		if keyRef != "" {
			secret, err := dir.KeySecret(ctx, keyRef)
			if err != nil {
				return nil, err
			}
			dr, err := seekable.NewDecryptingReader(f, keyHeaderLen, offset, secret, dir.EncrypterFactory())
			if err != nil {
				return nil, fmt.Errorf("tlog: open decrypting reader: %w", err)
			}
			o.iv.set(dr.IV())
			return &Input{R: dr, Encrypted: true}, nil
		}
	}

	// Cleartext file: a cached IV from an earlier open must not survive
	// into the next writer decision.
	o.iv.set(nil)
	return rawInput(f, offset)
}
