// Package errors provides structured error types for emergo.
//
// This package defines error codes and types that enable:
//   - Fail-fast propagation with the offending atom or condition preserved
//   - Machine-readable error codes for the CLI and HTTP API
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Resolution errors name the stage that failed:
//   - INVALID_ATOM_SYNTAX, LEX_ERROR: malformed input text
//   - AMBIGUOUS_SHORT_NAME, NO_MATCHING_EBUILD: repository lookup failures
//   - MISSING_EAPI, UNSUPPORTED_EAPI: unusable build metadata
//   - NODE_NOT_FOUND, CYCLE_DETECTED: dependency graph failures
//   - IO: passthrough for file read errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidAtom, "'%s' is not a valid package atom", text)
//	if errors.Is(err, errors.ErrCodeInvalidAtom) {
//	    // Handle syntax error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeIO, origErr, "read %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input errors
	ErrCodeInvalidAtom   Code = "INVALID_ATOM_SYNTAX"
	ErrCodeLex           Code = "LEX_ERROR"
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"

	// Repository lookup errors
	ErrCodeAmbiguousName Code = "AMBIGUOUS_SHORT_NAME"
	ErrCodeNoEbuild      Code = "NO_MATCHING_EBUILD"

	// Metadata errors
	ErrCodeMissingEAPI     Code = "MISSING_EAPI"
	ErrCodeUnsupportedEAPI Code = "UNSUPPORTED_EAPI"

	// Graph errors
	ErrCodeNodeNotFound Code = "NODE_NOT_FOUND"
	ErrCodeCycle        Code = "CYCLE_DETECTED"

	// I/O and internal errors
	ErrCodeIO       Code = "IO"
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface. A cause carrying the same code is
// printed without repeating it.
func (e *Error) Error() string {
	if e.Cause != nil {
		if GetCode(e.Cause) == e.Code {
			return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, UserMessage(e.Cause))
		}
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
	for errors.As(err, &e) {
		if e.Code == code {
			return true
		}
		err = e.Cause
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
// For *Error types, returns the message without the code prefix, followed by
// the cause when one is present. For other errors, returns the error string.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s", e.Message, UserMessage(e.Cause))
		}
		return e.Message
	}
	return err.Error()
}

// Annotate prefixes err's message with context while keeping its code, so
// callers can name the atom or file an error belongs to. Errors without a
// code are wrapped as INTERNAL_ERROR. Returns nil if err is nil.
func Annotate(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	code := GetCode(err)
	if code == "" {
		code = ErrCodeInternal
	}
	return Wrap(code, err, format, args...)
}
