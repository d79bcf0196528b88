package errors

import (
	"errors"
	"fmt"
)

// Error codes used across the system. Adapters and services should prefer
// the typed constructors below over raw New calls with ad-hoc codes.
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeForbidden       = "FORBIDDEN"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeUnavailable     = "UNAVAILABLE"
	CodeInternal        = "INTERNAL"
)

// AppError is the structured error type used throughout the system. It
// carries a stable machine-readable Code alongside a human message and an
// optional wrapped cause.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause so that errors.Is/As traverse it.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New constructs an AppError with the given code, message and optional cause.
func New(code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// Wrap attaches a message to an existing error, preserving its code if it is
// already an AppError, or classifying it as internal otherwise.
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	var existing *AppError
	if As(err, &existing) {
		return New(existing.Code, message+": "+existing.Message, existing.Cause)
	}
	return New(CodeInternal, message, err)
}

// InvalidArgument creates an error for malformed caller input.
func InvalidArgument(message string, cause error) *AppError {
	return New(CodeInvalidArgument, message, cause)
}

// NotFound creates an error for a missing resource.
func NotFound(message string, cause error) *AppError {
	return New(CodeNotFound, message, cause)
}

// Conflict creates an error for a state conflict (e.g. a unique constraint
// violation or an invariant violation during a state transition).
func Conflict(message string, cause error) *AppError {
	return New(CodeConflict, message, cause)
}

// Forbidden creates an error for an authorization failure.
func Forbidden(message string, cause error) *AppError {
	return New(CodeForbidden, message, cause)
}

// Unauthenticated creates an error for a missing or invalid caller identity.
func Unauthenticated(message string, cause error) *AppError {
	return New(CodeUnauthenticated, message, cause)
}

// Unavailable creates an error for a transient dependency failure (network,
// timeout, throttling). Callers may retry.
func Unavailable(message string, cause error) *AppError {
	return New(CodeUnavailable, message, cause)
}

// Internal creates an error for an unexpected internal failure.
func Internal(message string, cause error) *AppError {
	return New(CodeInternal, message, cause)
}

// Code returns the code of err if it is (or wraps) an AppError, otherwise
// CodeInternal.
func Code(err error) string {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Is re-exports the standard library's errors.Is for callers that only
// import this package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As re-exports the standard library's errors.As for callers that only
// import this package.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
