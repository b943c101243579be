// Package main provides the entry point for lexmesh-server.
//
// The server is the core LexMesh node process that provides:
//
//   - Encrypted transaction log storage for search cores
//   - HTTP/HTTPS admin API for encryption status and key management
//   - Gossip cluster membership for distributed status collection
//
// Usage:
//
//	lexmesh-server [flags]
//	lexmesh-server --config /path/to/config.yaml
//
// The server loads configuration, initializes infrastructure components,
// opens the per-core index directories, and starts the admin listener.
//
// @design DS-0501
package main
