// Package domain defines the core domain models for LexMesh.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling. This package contains:
//
//   - EncryptionKey: One rotatable key version with its numeric reference
//   - EncryptionState: The closed per-node encryption lifecycle enumeration
//   - NodeStatus / DistributedStatus: Encryption status reporting shapes
//   - Errors: Domain-specific error definitions
//
// @req RQ-0101
// @design DS-0101
package domain
