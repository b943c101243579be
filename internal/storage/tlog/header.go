package tlog

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/yndnr/lexmesh-go/internal/core/domain"
	"github.com/yndnr/lexmesh-go/pkg/crypto/seekable"
)

// File format constants (DS-0102).
const (
	// EncryptionMagic marks a log file as encrypted ("LMEC").
	EncryptionMagic uint32 = 0x4C4D4543

	// keyHeaderLen is the encrypted-file key header: magic plus key
	// reference, 4 bytes each.
	keyHeaderLen = 8

	// fullHeaderLen is everything an encrypted file carries before its
	// first record: key header plus IV.
	fullHeaderLen = keyHeaderLen + seekable.IVLength

	DefaultFilePerm = 0600
	DefaultDirPerm  = 0750

	// LogFileExt is the file extension of transaction log files.
	LogFileExt = ".tlog"
)

// writeHeader writes the key header for keyRef to w.
func writeHeader(keyRef string, w io.Writer) error {
	ref, err := domain.ParseKeyRef(keyRef)
	if err != nil {
		return err
	}

	var buf [keyHeaderLen]byte
	binary.BigEndian.PutUint32(buf[:4], EncryptionMagic)
	binary.BigEndian.PutUint32(buf[4:], ref)

	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("tlog: write key header: %w", err)
	}
	return nil
}

// readHeader probes f for a key header and returns the key reference,
// or "" when the file does not start with the encryption magic. The
// file's write position is preserved across the probe. A non-empty file
// too short for a whole header fails the probe.
func readHeader(f *os.File) (keyRef string, err error) {
	pos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", fmt.Errorf("tlog: header probe position: %w", err)
	}
	if pos != 0 {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return "", fmt.Errorf("tlog: seek to header: %w", err)
		}
	}
	// The probe must leave the position untouched on every outcome,
	// including pos 0; the reads below advance it.
	defer func() {
		if _, serr := f.Seek(pos, io.SeekStart); serr != nil && err == nil {
			err = fmt.Errorf("tlog: restore position: %w", serr)
		}
	}()

	var buf [keyHeaderLen]byte
	if _, err := io.ReadFull(f, buf[:4]); err != nil {
		return "", fmt.Errorf("tlog: read magic: %w", err)
	}
	if binary.BigEndian.Uint32(buf[:4]) != EncryptionMagic {
		return "", nil
	}
	if _, err := io.ReadFull(f, buf[4:]); err != nil {
		return "", fmt.Errorf("tlog: read key ref: %w", err)
	}

	return domain.FormatKeyRef(binary.BigEndian.Uint32(buf[4:])), nil
}

// ivHolder caches the IV in use by one log instance so that reopening
// the same file for appends continues the cipher stream instead of
// restarting it. The zero value holds no IV.
type ivHolder struct {
	mu sync.Mutex
	iv []byte
}

func (h *ivHolder) get() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.iv == nil {
		return nil
	}
	return append([]byte(nil), h.iv...)
}

func (h *ivHolder) set(iv []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if iv == nil {
		h.iv = nil
		return
	}
	h.iv = append([]byte(nil), iv...)
}
