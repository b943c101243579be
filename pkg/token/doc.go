// Package token provides random token generation and hashing utilities.
//
// LexMesh uses it for request identifiers and for fingerprinting key
// material in logs.
//
// Security:
//
//   - Uses crypto/rand for CSPRNG
//   - SHA-256 hashing with constant-time comparison
//   - Secrets are never logged, only fingerprints
//
// @design DS-0101
package token
