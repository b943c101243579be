// Package httpserver provides the HTTP/HTTPS admin server for LexMesh.
//
// This package implements the external admin API using stdlib net/http:
//
//   - Encryption endpoints: /admin/v1/encryption/{core}/status,
//     /admin/v1/encryption/{core}/keys/{key_ref}/activate
//   - Key endpoints: /admin/v1/keys/{key_id}/cookie
//   - Health endpoints: /health, /ready, /metrics
//
// Features:
//
//   - TLS support
//   - Middleware chain: RateLimit, NetworkACL, Audit, RequestID
//   - Graceful shutdown with configurable timeout
//   - Prometheus metrics integration
//
// @req RQ-0301
// @design DS-0301
package httpserver
