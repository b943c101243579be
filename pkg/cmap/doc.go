// Package cmap provides a concurrent map implementation for LexMesh.
//
// The map is split into independently locked shards so that readers and
// writers touching different keys rarely contend. The keystore uses it
// as the read cache in front of Badger for decrypted key secrets.
//
// Usage:
//
//	m := cmap.NewWithShards[string, []byte](32)
//	m.Set("key", secret)
//	val, ok := m.Get("key")
//
// All operations are safe for concurrent use. Reads take a per-shard
// RLock; writes take the shard's write lock.
//
// @adr AD-0102
package cmap
