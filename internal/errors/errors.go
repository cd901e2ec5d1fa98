package errors

import (
	"errors"
	"fmt"
)

// DSError is the structured error type for ds.
// It carries enough context for logging, JSON output and a user-facing hint.
type DSError struct {
	// Code is the unique error code (e.g., "ERR_304_PROVIDER_UNAVAILABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Platform, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *DSError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *DSError) Unwrap() error {
	return e.Cause
}

// Is matches another DSError by code, so errors.Is works against sentinels.
func (e *DSError) Is(target error) bool {
	if t, ok := target.(*DSError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *DSError) WithDetail(key, value string) *DSError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *DSError) WithSuggestion(suggestion string) *DSError {
	e.Suggestion = suggestion
	return e
}

// New creates a new DSError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *DSError {
	return &DSError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a DSError from an existing error.
// The error's message becomes the DSError message.
func Wrap(code string, err error) *DSError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *DSError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates an I/O-related error.
func IOError(message string, cause error) *DSError {
	return New(ErrCodeFileNotFound, message, cause)
}

// PlatformError creates an error for a failed call into the search service.
// HRESULT-style failures keep the raw code in Details["hresult"].
func PlatformError(code, message string, cause error) *DSError {
	return New(code, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *DSError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *DSError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error, or any error it wraps, is retryable.
func IsRetryable(err error) bool {
	var de *DSError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	var de *DSError
	if errors.As(err, &de) {
		return de.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a DSError.
// Returns empty string if not a DSError.
func GetCode(err error) string {
	var de *DSError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// GetCategory extracts the category from a DSError.
// Returns empty string if not a DSError.
func GetCategory(err error) Category {
	var de *DSError
	if errors.As(err, &de) {
		return de.Category
	}
	return ""
}
