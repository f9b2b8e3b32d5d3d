// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Data errors
	ErrSymbolInvalid      = &Error{Code: "SYMBOL_INVALID", Message: "invalid symbol"}
	ErrEmptySeries        = &Error{Code: "EMPTY_SERIES", Message: "provider returned no observations"}
	ErrInvalidObservation = &Error{Code: "INVALID_OBSERVATION", Message: "malformed observation"}

	// Provider errors
	ErrProviderUnavailable = &Error{Code: "PROVIDER_UNAVAILABLE", Message: "price provider unavailable"}

	// Analysis errors
	ErrInsufficientData = &Error{Code: "INSUFFICIENT_DATA", Message: "insufficient data for analysis"}
	ErrNotSegmented     = &Error{Code: "NOT_SEGMENTED", Message: "series has not been segmented"}

	// Output errors
	ErrCacheFailed  = &Error{Code: "CACHE_FAILED", Message: "episode cache failed"}
	ErrNotCached    = &Error{Code: "NOT_CACHED", Message: "no cached episodes"}
	ErrRenderFailed = &Error{Code: "RENDER_FAILED", Message: "chart rendering failed"}

	// Access errors
	ErrUnauthorized = &Error{Code: "UNAUTHORIZED", Message: "missing or invalid API key"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
