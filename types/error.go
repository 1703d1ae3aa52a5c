package types

import "fmt"

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// 生成管线错误码
const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrAuthError        ErrorCode = "AUTH_ERROR"
	ErrRateLimited      ErrorCode = "RATE_LIMITED"
	ErrModelWarmingUp   ErrorCode = "MODEL_WARMING_UP"
	ErrNetworkError     ErrorCode = "NETWORK_ERROR"
	ErrFetchError       ErrorCode = "FETCH_ERROR"
	ErrParseError       ErrorCode = "PARSE_ERROR"
	ErrQuotaExceeded    ErrorCode = "QUOTA_EXCEEDED"
	ErrGenerationFailed ErrorCode = "GENERATION_FAILED"
	ErrInternalError    ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Strategy   string    `json:"strategy,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithStrategy sets the originating strategy name.
func (e *Error) WithStrategy(strategy string) *Error {
	e.Strategy = strategy
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
