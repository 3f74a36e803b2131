// Package errors provides standardized domain errors with codes for the
// enrichment engine and its HTTP surface.
//
// Usage:
//
//	// In services - return typed errors
//	if quotaDone {
//	    return errors.QuotaExhausted("daily lookup quota reached")
//	}
//
//	// In handlers - check with errors.Is
//	if errors.Is(err, errors.ErrNotFound) {
//	    response.NotFound(w, err.Error(), logger)
//	    return
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound          Code = "NOT_FOUND"
	CodeValidation        Code = "VALIDATION"
	CodeInternal          Code = "INTERNAL"
	CodeLookupFailure     Code = "LOOKUP_FAILURE"
	CodeInvalidIdentifier Code = "INVALID_IDENTIFIER"
	CodeQuotaExhausted    Code = "QUOTA_EXHAUSTED"
	CodePersistence       Code = "PERSISTENCE"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation, CodeInvalidIdentifier:
		return http.StatusBadRequest
	case CodeQuotaExhausted:
		return http.StatusTooManyRequests
	case CodeLookupFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInternal          = &Error{Code: CodeInternal, Message: "internal error"}
	ErrLookupFailure     = &Error{Code: CodeLookupFailure, Message: "lookup failed"}
	ErrInvalidIdentifier = &Error{Code: CodeInvalidIdentifier, Message: "invalid identifier"}
	ErrQuotaExhausted    = &Error{Code: CodeQuotaExhausted, Message: "lookup quota exhausted"}
	ErrPersistence       = &Error{Code: CodePersistence, Message: "persistence failure"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// LookupFailure creates a lookup failure error. Lookup failures are
// recovered locally: the affected book falls through to the fallback
// genre and the batch continues.
func LookupFailure(msg string) *Error {
	return &Error{Code: CodeLookupFailure, Message: msg}
}

// InvalidIdentifier creates an invalid identifier error, used when an
// ISBN turns out to be a Calibre pseudo-ISBN or malformed. Recovered
// locally by switching to the title+author key.
func InvalidIdentifier(msg string) *Error {
	return &Error{Code: CodeInvalidIdentifier, Message: msg}
}

// QuotaExhausted creates a quota exhausted error. Once signaled, no
// further lookups are issued for the remainder of the run.
func QuotaExhausted(msg string) *Error {
	return &Error{Code: CodeQuotaExhausted, Message: msg}
}

// Persistence creates a persistence error. Unlike lookup failures these
// are fatal to the caller: silently losing learned mappings or cached
// classifications is unacceptable.
func Persistence(msg string) *Error {
	return &Error{Code: CodePersistence, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
