package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies failures coming back from the backend or the network
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeBackend     ErrorType = "backend"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error is the typed error returned by the API client and the proxy
type Error struct {
	Type    ErrorType
	Message string
	// Code is the HTTP status or the envelope code, 0 for transport failures
	Code int
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error
func New(t ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{Type: t, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a typed error that keeps the underlying cause
func Wrap(t ErrorType, code int, err error, msg string) *Error {
	message := msg
	if err != nil {
		message = fmt.Sprintf("%s: %v", msg, err)
	}
	return &Error{Type: t, Code: code, Message: message, Err: err}
}

// TypeOf returns the type of err, or ErrorTypeUnknown when err is not a *Error
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err is a *Error of the given type
func IsType(err error, t ErrorType) bool {
	if err == nil {
		return false
	}
	return TypeOf(err) == t
}

// IsTransport reports whether err means the backend could not be reached
// or did not answer. Callers fall back to a default state for these.
func IsTransport(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeNetwork, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsBackend reports whether the backend answered and reported a failure
func IsBackend(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeBackend, ErrorTypeAuth, ErrorTypeNotFound:
		return true
	default:
		return false
	}
}

// TypeForStatus maps an HTTP status code to an error type
func TypeForStatus(statusCode int) ErrorType {
	switch {
	case statusCode == 0:
		return ErrorTypeNetwork
	case statusCode == 401 || statusCode == 403:
		return ErrorTypeAuth
	case statusCode == 404:
		return ErrorTypeNotFound
	case statusCode >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}
