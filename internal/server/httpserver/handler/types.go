// Package handler provides HTTP request handlers for LexMesh.
package handler

import (
	"time"

	"github.com/yndnr/lexmesh-go/internal/core/domain"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
//
// @design DS-0302 Section 2.1
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"` // Additional error details
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// ActivateKeyResponse is the response body for
// POST /admin/v1/encryption/{core}/keys/{key_ref}/activate.
//
// @design DS-0302
type ActivateKeyResponse struct {
	Core   string                 `json:"core"`
	KeyRef string                 `json:"key_ref"`
	State  domain.EncryptionState `json:"encryption_state"`
}

// KeyCookieRequest is the request body for POST /admin/v1/keys/{key_id}/cookie.
//
// @design DS-0302
type KeyCookieRequest struct {
	Params map[string]string `json:"params,omitempty"`
}

// KeyCookieResponse is the response body for POST /admin/v1/keys/{key_id}/cookie.
//
// @design DS-0302
type KeyCookieResponse struct {
	KeyID  string            `json:"key_id"`
	Cookie map[string]string `json:"cookie"`
}
