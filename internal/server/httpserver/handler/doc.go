// Package handler provides HTTP request handlers for LexMesh.
//
// This package contains handlers for all HTTP endpoints:
//
//   - encryption.go: Encryption status (local and distributed) and key activation
//   - cookie.go: Key cookie minting for index writers
//   - health.go: Health and readiness checks
//
// All handlers follow a consistent pattern:
//
//   - Parse and validate request
//   - Call domain service
//   - Format and return response
//   - Handle errors with appropriate HTTP status codes
//
// @req RQ-0301
// @design DS-0301
package handler
