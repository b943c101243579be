// Package domain defines the core domain models for LexMesh.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
// Error codes follow the format defined in specs/governance/error-codes.md.
type DomainError struct {
	Code    string // Error code (e.g., "LM-KEY-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true // Only check if it's a DomainError
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Encryption Key Errors (KEY)
// ============================================================================

var (
	// ErrKeyNotFound indicates the requested key version was not found.
	ErrKeyNotFound = NewDomainError("LM-KEY-4040", "encryption key not found")

	// ErrKeyRefMalformed indicates a key reference that is not a decimal integer.
	ErrKeyRefMalformed = NewDomainError("LM-KEY-4000", "malformed key reference")

	// ErrKeyValidation indicates key material validation failed.
	ErrKeyValidation = NewDomainError("LM-KEY-4001", "key validation failed")
)

// ============================================================================
// Core / Index Errors (CORE)
// ============================================================================

var (
	// ErrCoreNotFound indicates the requested search core is not registered.
	ErrCoreNotFound = NewDomainError("LM-CORE-4040", "core not found")

	// ErrCorruptHeader indicates a log file header that cannot be decoded.
	ErrCorruptHeader = NewDomainError("LM-CORE-5001", "corrupt log file header")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternalServer indicates an unexpected internal failure.
	ErrInternalServer = NewDomainError("LM-SYS-5000", "internal server error")

	// ErrInvalidRequest indicates malformed request parameters.
	ErrInvalidRequest = NewDomainError("LM-SYS-4000", "invalid request")
)
