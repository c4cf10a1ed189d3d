// Package errors provides structured error types for phpbuilder.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the pipeline and CLI
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//
// # Error Codes
//
// Codes map onto the failure classes of a build:
//   - VALIDATION_ERROR: malformed request (bad version, missing fields)
//   - CONFIGURATION_ERROR: unreadable or malformed config files
//   - DEPENDENCY_ERROR: unregistered or cyclic dependency references
//   - BUILD_ERROR: external tool failure or missing build artifact
//   - FILESYSTEM_ERROR: removal/copy failure after all fallbacks
//   - COMMAND_ERROR: a subprocess could not be started
//
// # Usage
//
//	err := errors.New(errors.ErrCodeValidation, "invalid PHP version format: %s", v)
//	if errors.Is(err, errors.ErrCodeValidation) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeFileSystem, origErr, "remove %s", dir)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	ErrCodeValidation    Code = "VALIDATION_ERROR"
	ErrCodeConfiguration Code = "CONFIGURATION_ERROR"
	ErrCodeDependency    Code = "DEPENDENCY_ERROR"
	ErrCodeBuild         Code = "BUILD_ERROR"
	ErrCodeFileSystem    Code = "FILESYSTEM_ERROR"
	ErrCodeCommand       Code = "COMMAND_ERROR"

	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeNotFound    Code = "NOT_FOUND"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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
// For *Error types, returns the message without the code prefix, followed by
// the cause when one is attached. For other errors, returns the error string.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + e.Cause.Error()
		}
		return e.Message
	}
	return err.Error()
}

// Dependency is shorthand for New(ErrCodeDependency, ...).
func Dependency(format string, args ...any) *Error {
	return New(ErrCodeDependency, format, args...)
}

// Build is shorthand for New(ErrCodeBuild, ...).
func Build(format string, args ...any) *Error {
	return New(ErrCodeBuild, format, args...)
}
