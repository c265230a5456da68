// Package errors defines the structured error taxonomy used across shtml.
//
// Every failure is classified by ErrorType. Only bind failures are fatal;
// toolchain, watch, connection and asset-copy errors are recovered where they
// happen and surfaced as build state or log records.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeToolchain  ErrorType = "toolchain"
	ErrorTypeWatch      ErrorType = "watch"
	ErrorTypeConnection ErrorType = "connection"
	ErrorTypeAssetCopy  ErrorType = "asset_copy"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeBind       ErrorType = "bind"
	ErrorTypeScaffold   ErrorType = "scaffold"
)

// ShtmlError is a structured error type with context.
type ShtmlError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Recoverable bool
}

// Error implements the error interface.
func (e *ShtmlError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *ShtmlError) Unwrap() error {
	return e.Cause
}

// Is matches on Type and Code.
func (e *ShtmlError) Is(target error) bool {
	var t *ShtmlError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *ShtmlError) WithContext(key string, value interface{}) *ShtmlError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// NewToolchainError creates an error for a failed compile or run step.
func NewToolchainError(code, message string, cause error) *ShtmlError {
	return &ShtmlError{
		Type:        ErrorTypeToolchain,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewWatchError creates an error for the notification subsystem.
func NewWatchError(code, message string, cause error) *ShtmlError {
	return &ShtmlError{
		Type:        ErrorTypeWatch,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewConnectionError creates an error scoped to a single client connection.
func NewConnectionError(code, message string, cause error) *ShtmlError {
	return &ShtmlError{
		Type:        ErrorTypeConnection,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewAssetCopyError creates an error for a failed static asset mirror.
func NewAssetCopyError(message string, cause error) *ShtmlError {
	return &ShtmlError{
		Type:        ErrorTypeAssetCopy,
		Code:        "ASSET_COPY",
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *ShtmlError {
	return &ShtmlError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewBindError creates the fatal error returned when the listener cannot bind.
func NewBindError(addr string, cause error) *ShtmlError {
	return &ShtmlError{
		Type:        ErrorTypeBind,
		Code:        "BIND",
		Message:     "failed to bind " + addr,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewScaffoldError creates a project scaffolding error.
func NewScaffoldError(code, message string, cause error) *ShtmlError {
	return &ShtmlError{
		Type:        ErrorTypeScaffold,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var se *ShtmlError
	if errors.As(err, &se) {
		return se.Recoverable
	}

	return false
}

// IsFatal reports whether err must stop the process. Only bind failures are.
func IsFatal(err error) bool {
	return HasErrorType(err, ErrorTypeBind)
}

// HasErrorType checks the first ShtmlError in the chain for errType.
func HasErrorType(err error, errType ErrorType) bool {
	var se *ShtmlError
	if errors.As(err, &se) {
		return se.Type == errType
	}

	return false
}
