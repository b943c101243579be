package tlog

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	// ErrChecksumMismatch reports a record whose CRC does not match its
	// payload.
	ErrChecksumMismatch = errors.New("tlog: checksum mismatch")

	// ErrCorruptRecord reports a record frame that cannot be decoded.
	ErrCorruptRecord = errors.New("tlog: corrupted record")

	errClosed = errors.New("tlog: log is closed")
)

// Log is a single transaction log file. Writes are framed records;
// whether the file enciphers is decided by the opener pair at open
// time from the owning core's commit metadata.
//
// Record offsets returned by Append and accepted by Records are
// logical: offset zero is the first record regardless of any key
// header and IV preceding it on disk.
type Log struct {
	path   string
	logger *slog.Logger

	outOpener OutputOpener
	inOpener  InputOpener

	mu      sync.Mutex
	file    *os.File
	out     *Output
	written int64 // logical bytes written, excludes key header and IV
	closed  bool
}

// Open opens the log file at path, creating it when absent. An existing
// non-empty file is opened for appending at its end.
func Open(ctx context.Context, path string, outOpener OutputOpener, inOpener InputOpener, logger *slog.Logger) (*Log, error) {
	if logger == nil {
		logger = slog.Default()
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, DefaultFilePerm)
	if err != nil {
		return nil, fmt.Errorf("tlog: open %s: %w", path, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("tlog: stat %s: %w", path, err)
	}
	position := stat.Size()

	out, err := outOpener.OpenOutput(ctx, file, position)
	if err != nil {
		file.Close()
		return nil, err
	}

	l := &Log{
		path:      path,
		logger:    logger,
		outOpener: outOpener,
		inOpener:  inOpener,
		file:      file,
		out:       out,
	}
	l.setWrittenCount(position)

	logger.Debug("transaction log opened",
		"path", path, "position", position, "encrypted", out.Encrypted)
	return l, nil
}

// setWrittenCount derives the logical write count from the physical
// open position. Encrypted files carry the key header and IV before
// their first record.
func (l *Log) setWrittenCount(position int64) {
	if l.out.Encrypted && position > 0 {
		l.written = position - fullHeaderLen
		return
	}
	l.written = position
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Encrypted reports whether this log writes ciphertext.
func (l *Log) Encrypted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.Encrypted
}

// Written returns the logical bytes appended so far.
func (l *Log) Written() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written
}

// Size returns the logical size of the file on disk, excluding the key
// header and IV of an encrypted log.
func (l *Log) Size() (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, errClosed
	}
	stat, err := l.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("tlog: stat: %w", err)
	}

	size := stat.Size()
	if l.out.Encrypted && size >= fullHeaderLen {
		size -= fullHeaderLen
	}
	return size, nil
}

// Append frames payload as one record and writes it. It returns the
// logical offset the record starts at.
func (l *Log) Append(payload []byte) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, errClosed
	}

	frame := encodeRecordFrame(payload)
	offset := l.written

	if _, err := l.out.W.Write(frame); err != nil {
		return 0, fmt.Errorf("tlog: append: %w", err)
	}
	l.written += int64(len(frame))
	return offset, nil
}

// Sync flushes the file to stable storage.
func (l *Log) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return errClosed
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("tlog: sync: %w", err)
	}
	return nil
}

// Records opens a record iterator starting at the given logical offset.
// The iterator reads a stable snapshot and may be used while the log is
// still being appended to.
func (l *Log) Records(ctx context.Context, offset int64) (*Records, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, errClosed
	}

	in, err := l.inOpener.OpenInput(ctx, l.file, offset)
	if err != nil {
		return nil, err
	}
	return &Records{in: in, br: bufio.NewReader(in.R)}, nil
}

// Close closes the underlying file. It does not sync; callers that need
// durability call Sync first.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("tlog: close: %w", err)
	}
	return nil
}

// Remove deletes the log file. The log must be closed.
func (l *Log) Remove() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.closed {
		return fmt.Errorf("tlog: remove of open log %s", l.path)
	}
	if err := os.Remove(l.path); err != nil {
		return fmt.Errorf("tlog: remove: %w", err)
	}
	return nil
}

// Records iterates the records of a log from a starting offset.
type Records struct {
	in *Input
	br *bufio.Reader
}

// Encrypted reports whether the underlying stream is deciphering.
func (r *Records) Encrypted() bool {
	return r.in.Encrypted
}

// Next returns the next record payload, or io.EOF after the last whole
// record. A trailing partial record also ends iteration with io.EOF;
// it is the torn tail of an interrupted write.
func (r *Records) Next() ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r.br, lenBuf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}

	length := binary.BigEndian.Uint32(lenBuf[:])
	if length < 4 {
		return nil, ErrCorruptRecord
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r.br, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}

	wantCRC := binary.BigEndian.Uint32(body[:4])
	payload := body[4:]
	if crc32.ChecksumIEEE(payload) != wantCRC {
		return nil, ErrChecksumMismatch
	}
	return payload, nil
}

// Scan opens the log at path read-only and iterates every record,
// verifying checksums. It returns the record count and total payload
// bytes. Scanning never mutates the file; an empty file scans clean.
func Scan(ctx context.Context, path string, inOpener InputOpener) (records int, payloadBytes int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("tlog: open %s: %w", path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return 0, 0, fmt.Errorf("tlog: stat %s: %w", path, err)
	}
	if stat.Size() == 0 {
		return 0, 0, nil
	}

	in, err := inOpener.OpenInput(ctx, f, 0)
	if err != nil {
		return 0, 0, err
	}

	r := &Records{in: in, br: bufio.NewReader(in.R)}
	for {
		payload, err := r.Next()
		if errors.Is(err, io.EOF) {
			return records, payloadBytes, nil
		}
		if err != nil {
			return records, payloadBytes, err
		}
		records++
		payloadBytes += int64(len(payload))
	}
}

// encodeRecordFrame frames payload as [Length:4][CRC32:4][Payload].
// Length counts the CRC and payload.
func encodeRecordFrame(payload []byte) []byte {
	length := uint32(4 + len(payload))

	out := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint32(out[:4], length)
	binary.BigEndian.PutUint32(out[4:8], crc32.ChecksumIEEE(payload))
	copy(out[8:], payload)
	return out
}
