// Package keystore provides Badger-based storage of encryption key versions.
//
// A node holds every key version ever activated for its cores, indexed
// by the numeric key reference written into encrypted file headers.
// Secrets are cached in a sharded map so that reopening a transaction
// log does not hit Badger on the hot path.
//
// The keystore is deliberately not a key-management service: it stores
// and resolves material, and mints lookup cookies, nothing more.
//
// @design DS-0203
package keystore
