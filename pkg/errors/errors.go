// Package errors provides structured error types for modfetch.
//
// Codes come in two groups. The item-level codes (NOT_FOUND, UNREACHABLE,
// NO_COMPATIBLE_ARTIFACT, AMBIGUOUS_SOURCE, TIMEOUT, WRITE_FAILURE) describe
// why one project was skipped; they end up on the run's missed-item ledger
// and never abort a run. The remaining codes are returned from a workflow
// and stop it before any download starts.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "unknown loader: %s", loader)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeSeedUnreadable, origErr, "failed to read %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Item-level codes. Each converts to exactly one missed item.
const (
	ErrCodeNotFound             Code = "NOT_FOUND"
	ErrCodeUnreachable          Code = "UNREACHABLE"
	ErrCodeNoCompatibleArtifact Code = "NO_COMPATIBLE_ARTIFACT"
	ErrCodeAmbiguousSource      Code = "AMBIGUOUS_SOURCE"
	ErrCodeTimeout              Code = "TIMEOUT"
	ErrCodeWriteFailure         Code = "WRITE_FAILURE"
)

// Run-fatal codes.
const (
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeSeedUnreadable Code = "SEED_UNREADABLE"
	ErrCodeInternal       Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Fatal reports whether code aborts a run rather than skipping one item.
func (c Code) Fatal() bool {
	switch c {
	case ErrCodeInvalidInput, ErrCodeSeedUnreadable, ErrCodeInternal:
		return true
	}
	return false
}
