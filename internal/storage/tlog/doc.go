// Package tlog provides the per-core transaction log with transparent
// stream encryption (DS-0102).
//
// File layout:
//
//	[Magic:4][KeyRef:4]   key header, present only when encrypted
//	[IV:16]               cipher stream IV, present only when encrypted
//	[Record]*             log records
//
// Record layout, identical for cleartext and encrypted logs (records of
// an encrypted log are enciphered as one continuous stream):
//
//	[Length:4][CRC32:4][Payload]
//
// Length counts the CRC and payload. All integers are big-endian.
//
// Whether a log encrypts is decided at open time from the owning core's
// latest commit metadata: a commit carrying an active key reference
// makes new logs start with the key header and IV, and every byte after
// the IV is ciphertext. Logs written before the core was marked for
// encryption stay cleartext and remain readable; the per-directory
// read-probe flag tells readers to check each file's leading magic.
//
// Record offsets and sizes reported by this package are logical: they
// count log records only and exclude the key header and IV.
package tlog
