// Package traceerr defines the surface error taxonomy every engine returns,
// so the API layer can map a single error type to the right HTTP status
// without inspecting engine-specific error values.
package traceerr

import (
	"errors"
	"fmt"
)

// Kind is one of the closed set of surface error categories.
type Kind string

const (
	KindValidation       Kind = "validation_error"
	KindNotFound         Kind = "not_found"
	KindPermissionDenied Kind = "permission_denied"
	KindConflict         Kind = "conflict"
	KindStorage          Kind = "storage_error"
	KindConnection       Kind = "connection_error"
	KindWrite            Kind = "write_error"
	KindRead             Kind = "read_error"
	KindNotImplemented   Kind = "not_implemented"
	KindRateLimit        Kind = "rate_limit_exceeded"
)

// Error is the error type every engine operation returns on failure.
type Error struct {
	Kind    Kind
	Message string
	// RetryAfterSeconds is set only for KindRateLimit.
	RetryAfterSeconds int
	cause             error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func newErr(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation builds a KindValidation error.
func Validation(format string, args ...interface{}) *Error { return newErr(KindValidation, format, args...) }

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...interface{}) *Error { return newErr(KindNotFound, format, args...) }

// PermissionDenied builds a KindPermissionDenied error.
func PermissionDenied(format string, args ...interface{}) *Error {
	return newErr(KindPermissionDenied, format, args...)
}

// Conflict builds a KindConflict error.
func Conflict(format string, args ...interface{}) *Error { return newErr(KindConflict, format, args...) }

// Storage wraps cause as a KindStorage error.
func Storage(cause error, format string, args ...interface{}) *Error {
	e := newErr(KindStorage, format, args...)
	e.cause = cause
	return e
}

// Connection wraps cause as a KindConnection error.
func Connection(cause error, format string, args ...interface{}) *Error {
	e := newErr(KindConnection, format, args...)
	e.cause = cause
	return e
}

// Write wraps cause as a KindWrite error.
func Write(cause error, format string, args ...interface{}) *Error {
	e := newErr(KindWrite, format, args...)
	e.cause = cause
	return e
}

// Read wraps cause as a KindRead error.
func Read(cause error, format string, args ...interface{}) *Error {
	e := newErr(KindRead, format, args...)
	e.cause = cause
	return e
}

// NotImplemented builds a KindNotImplemented error.
func NotImplemented(format string, args ...interface{}) *Error {
	return newErr(KindNotImplemented, format, args...)
}

// RateLimit builds a KindRateLimit error carrying a retry-after hint.
func RateLimit(retryAfterSeconds int) *Error {
	e := newErr(KindRateLimit, "rate limit exceeded")
	e.RetryAfterSeconds = retryAfterSeconds
	return e
}

// Is reports whether err carries kind, unwrapping through wrapped causes.
func Is(err error, kind Kind) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind == kind
	}
	return false
}
