// Package seekable provides seekable stream encryption for LexMesh.
//
// This package implements position-addressable stream ciphers for
// encrypting append-only log files. Unlike AEAD ciphers, the keystream
// can be repositioned to any cleartext offset, which lets a log be
// reopened and appended to, or read from an arbitrary record offset,
// without reprocessing the whole file.
//
// Supported Algorithms:
//
//   - AES-CTR: Preferred when hardware AES support is available
//   - ChaCha20: Fallback for systems without AES-NI
//
// Both algorithms share a fixed 16-byte IV so that the on-disk layout
// of encrypted files does not depend on the selected cipher.
//
// Usage:
//
//	factory := seekable.NewFactory()
//	w, err := seekable.NewEncryptingWriter(out, 0, nil, secret, factory)
//	r, err := seekable.NewDecryptingReader(file, ivOffset, 0, secret, factory)
//
// @adr AD-0201
package seekable
