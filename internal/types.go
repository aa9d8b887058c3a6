// internal/types.go - Common types for internal packages
package internal

import "errors"

// SourceType represents the type of tile data source
type SourceType string

const (
	SourceTypeHTTP  SourceType = "http"
	SourceTypeLocal SourceType = "local"
)

// Error represents application-specific errors
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new application error
func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ErrorCodeOf returns the code of the first *Error in err's chain, or "" if there is none
func ErrorCodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ErrorCode constants for common error types
const (
	ErrorCodeNetwork    = "NETWORK_ERROR"
	ErrorCodeProcessing = "PROCESSING_ERROR"
	ErrorCodeRender     = "RENDER_ERROR"
	ErrorCodeValidation = "VALIDATION_ERROR"
	ErrorCodeConfig     = "CONFIG_ERROR"
	ErrorCodeNotFound   = "NOT_FOUND"
	ErrorCodeTimeout    = "TIMEOUT_ERROR"
	ErrorCodeFileSystem = "FILESYSTEM_ERROR"
	ErrorCodePermission = "PERMISSION_ERROR"
)
