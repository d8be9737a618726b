package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures seen while collecting followers
type ErrorType string

const (
	ErrorTypeNetwork   ErrorType = "network"
	ErrorTypeRateLimit ErrorType = "rate_limit"
	ErrorTypeAuth      ErrorType = "auth"
	ErrorTypeParsing   ErrorType = "parsing"
	ErrorTypeNotFound  ErrorType = "not_found"
	ErrorTypeFatal     ErrorType = "fatal"
	ErrorTypeUnknown   ErrorType = "unknown"
)

var (
	// ErrCredentialsNotFound is returned when no credential is configured for a run
	ErrCredentialsNotFound = errors.New("credentials not found")
	// ErrInvalidUserID is returned for target ids that are not numeric
	ErrInvalidUserID = errors.New("invalid user id")
	// ErrRunFinished is returned when a finished engine is asked to run again
	ErrRunFinished = errors.New("collection run already finished")
)

// Error carries a failure type alongside the HTTP status that produced it
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("%s error: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// New builds an *Error
func New(t ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{Type: t, Code: code, Message: fmt.Sprintf(format, args...)}
}

// TypeOf extracts the ErrorType from err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit:
		return true
	case ErrorTypeAuth, ErrorTypeNotFound, ErrorTypeParsing, ErrorTypeFatal:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // network error
		return true
	case 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
