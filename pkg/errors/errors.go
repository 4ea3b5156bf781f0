// Package errors defines the typed errors returned by the data-access core.
//
// Every failure crossing a package boundary is an *Error whose Type tells the
// caller what happened: an expected absence, an optimistic-concurrency
// conflict, an infrastructure fault, a malformed stored item, or an exhausted
// retry budget.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Expected outcomes
	ErrorTypeNotFound        ErrorType = "NOT_FOUND"
	ErrorTypeConditionFailed ErrorType = "CONDITION_FAILED"
	ErrorTypeAborted         ErrorType = "ABORTED"

	// Caller errors
	ErrorTypeInvalid          ErrorType = "INVALID"
	ErrorTypePermissionDenied ErrorType = "PERMISSION_DENIED"

	// Faults
	ErrorTypeBackendUnavailable ErrorType = "BACKEND_UNAVAILABLE"
	ErrorTypeDecode             ErrorType = "DECODE"
	ErrorTypeWriteExhausted     ErrorType = "WRITE_EXHAUSTED"
)

// Error is the error value returned by every package in this module.
type Error struct {
	Type     ErrorType
	Op       string
	Message  string
	Cause    error
	Attempts int
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := string(e.Type)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(t ErrorType, op, message string, cause error) *Error {
	return &Error{Type: t, Op: op, Message: message, Cause: cause}
}

// NotFound reports that no item exists under the requested key.
func NotFound(op, message string) *Error {
	return newError(ErrorTypeNotFound, op, message, nil)
}

// ConditionFailed reports that a conditional single-item write was rejected,
// typically because the item already exists.
func ConditionFailed(op, message string, cause error) *Error {
	return newError(ErrorTypeConditionFailed, op, message, cause)
}

// Aborted reports that a transactional write was cancelled as a whole.
func Aborted(op, message string, cause error) *Error {
	return newError(ErrorTypeAborted, op, message, cause)
}

// BackendUnavailable wraps an infrastructure fault. It is never retried.
func BackendUnavailable(op string, cause error) *Error {
	return newError(ErrorTypeBackendUnavailable, op, "backend request failed", cause)
}

// Decode reports a stored attribute bag that does not match the expected shape.
func Decode(op, message string, cause error) *Error {
	return newError(ErrorTypeDecode, op, message, cause)
}

// Invalid reports a request rejected before reaching the backend.
func Invalid(op, message string) *Error {
	return newError(ErrorTypeInvalid, op, message, nil)
}

// PermissionDenied reports that an authorization predicate was false.
func PermissionDenied(op, message string) *Error {
	if message == "" {
		message = "permission denied"
	}
	return newError(ErrorTypePermissionDenied, op, message, nil)
}

// WriteExhausted reports that every attempt of a retried write conflicted.
// cause is the conflict seen on the final attempt.
func WriteExhausted(op string, attempts int, cause error) *Error {
	e := newError(ErrorTypeWriteExhausted, op, fmt.Sprintf("gave up after %d conflicting attempts", attempts), cause)
	e.Attempts = attempts
	return e
}

// Get extracts an *Error from an error chain
func Get(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, t ErrorType) bool {
	e := Get(err)
	return e != nil && e.Type == t
}

func IsNotFound(err error) bool           { return IsType(err, ErrorTypeNotFound) }
func IsConditionFailed(err error) bool    { return IsType(err, ErrorTypeConditionFailed) }
func IsAborted(err error) bool            { return IsType(err, ErrorTypeAborted) }
func IsBackendUnavailable(err error) bool { return IsType(err, ErrorTypeBackendUnavailable) }
func IsDecode(err error) bool             { return IsType(err, ErrorTypeDecode) }
func IsInvalid(err error) bool            { return IsType(err, ErrorTypeInvalid) }
func IsPermissionDenied(err error) bool   { return IsType(err, ErrorTypePermissionDenied) }
func IsWriteExhausted(err error) bool     { return IsType(err, ErrorTypeWriteExhausted) }

// IsConflict reports an optimistic-concurrency conflict of either kind.
func IsConflict(err error) bool {
	return IsConditionFailed(err) || IsAborted(err)
}
