package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents internal error codes for celestial operations
type ErrorCode int

const (
	// Success
	ErrCodeOK ErrorCode = 0

	// Client errors
	ErrCodeInvalidArgument ErrorCode = 1000
	ErrCodeNotSupported    ErrorCode = 1001
	ErrCodeNotFound        ErrorCode = 1002

	// Server errors
	ErrCodeInternal           ErrorCode = 2000
	ErrCodeConfig             ErrorCode = 2001
	ErrCodeBackendUnavailable ErrorCode = 2002
	ErrCodePrerequisiteFetch  ErrorCode = 2003
	ErrCodeStoreUnavailable   ErrorCode = 2004
)

// String returns the stable name of an error code, used as a metric label
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeNotSupported:
		return "not_supported"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeConfig:
		return "config"
	case ErrCodeBackendUnavailable:
		return "backend_unavailable"
	case ErrCodePrerequisiteFetch:
		return "prerequisite_fetch"
	case ErrCodeStoreUnavailable:
		return "store_unavailable"
	default:
		return "internal"
	}
}

// CelestialError represents a structured error with code and context
type CelestialError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Cause   error
}

// Error implements the error interface
func (e *CelestialError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *CelestialError) Unwrap() error {
	return e.Cause
}

// NewCelestialError creates a new CelestialError
func NewCelestialError(code ErrorCode, message string, cause error) *CelestialError {
	return &CelestialError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Cause:   cause,
	}
}

// WithDetail adds a detail to the error
func (e *CelestialError) WithDetail(key string, value interface{}) *CelestialError {
	e.Details[key] = value
	return e
}

// Convenience constructors for common errors

func InvalidArgument(message string, cause error) *CelestialError {
	return NewCelestialError(ErrCodeInvalidArgument, message, cause)
}

func NotSupported(backend, operation string) *CelestialError {
	return NewCelestialError(ErrCodeNotSupported,
		fmt.Sprintf("backend %q does not support operation %q", backend, operation), nil).
		WithDetail("backend", backend).
		WithDetail("operation", operation)
}

func NotFound(key string) *CelestialError {
	return NewCelestialError(ErrCodeNotFound, fmt.Sprintf("not found: %s", key), nil).
		WithDetail("key", key)
}

func ConfigError(message string, cause error) *CelestialError {
	return NewCelestialError(ErrCodeConfig, message, cause)
}

func BackendUnavailable(backend string, cause error) *CelestialError {
	return NewCelestialError(ErrCodeBackendUnavailable,
		fmt.Sprintf("backend %q unavailable", backend), cause).
		WithDetail("backend", backend)
}

func PrerequisiteFetch(fileID string, cause error) *CelestialError {
	return NewCelestialError(ErrCodePrerequisiteFetch,
		fmt.Sprintf("prerequisite file %q could not be obtained", fileID), cause).
		WithDetail("file", fileID)
}

func StoreUnavailable(message string, cause error) *CelestialError {
	return NewCelestialError(ErrCodeStoreUnavailable, message, cause)
}

func InternalError(message string, cause error) *CelestialError {
	return NewCelestialError(ErrCodeInternal, message, cause)
}

// GetCode extracts the error code from an error chain
func GetCode(err error) ErrorCode {
	var ce *CelestialError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether any error in the chain carries the given code
func IsCode(err error, code ErrorCode) bool {
	var ce *CelestialError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}
