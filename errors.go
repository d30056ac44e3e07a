package loom

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrStreamTruncated is returned when a stream closes without a terminal
	// event while its context is still live.
	ErrStreamTruncated = errors.New("stream ended without a terminal event")

	// ErrCancelled marks work stopped by cooperative cancellation.
	ErrCancelled = errors.New("cancelled")
)

// ErrorCategory classifies errors by how they should be handled.
type ErrorCategory string

const (
	// ErrorTransient indicates the error is temporary and the operation can be retried.
	// Examples: rate limits, temporary network issues, server overload.
	ErrorTransient ErrorCategory = "transient"

	// ErrorPermanent indicates the error is not recoverable through retry.
	// Examples: invalid API key, insufficient permissions, model not found.
	ErrorPermanent ErrorCategory = "permanent"

	// ErrorUserInput indicates the user provided invalid input that must be corrected.
	// Examples: malformed request, invalid parameters, content policy violation.
	ErrorUserInput ErrorCategory = "user_input"
)

// CategorizedError is an error that provides information about how it should be handled.
type CategorizedError interface {
	error
	Category() ErrorCategory
	Retryable() bool           // convenience: returns true if Category == ErrorTransient
	StatusCode() int           // HTTP status code if applicable, 0 otherwise
	RetryAfter() time.Duration // suggested retry delay from server, 0 if not available
}

// Error is a categorized error with metadata for error handling decisions.
type Error struct {
	Msg        string
	Cat        ErrorCategory
	Code       int           // HTTP status code, 0 if not applicable
	RetryDelay time.Duration // from Retry-After header, 0 if not available
	Cause      error         // underlying error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Msg {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Cause }

// Category returns the error category.
func (e *Error) Category() ErrorCategory { return e.Cat }

// Retryable returns true if the error is transient and can be retried.
func (e *Error) Retryable() bool { return e.Cat == ErrorTransient }

// StatusCode returns the HTTP status code, or 0 if not applicable.
func (e *Error) StatusCode() int { return e.Code }

// RetryAfter returns the suggested retry delay, or 0 if not available.
func (e *Error) RetryAfter() time.Duration { return e.RetryDelay }

// NewTransientError creates a transient error that can be retried.
func NewTransientError(msg string, statusCode int, cause error) *Error {
	return &Error{Msg: msg, Cat: ErrorTransient, Code: statusCode, Cause: cause}
}

// NewTransientErrorWithRetry creates a transient error with a suggested retry delay.
func NewTransientErrorWithRetry(msg string, statusCode int, retryAfter time.Duration, cause error) *Error {
	return &Error{Msg: msg, Cat: ErrorTransient, Code: statusCode, RetryDelay: retryAfter, Cause: cause}
}

// NewPermanentError creates a permanent error that should not be retried.
func NewPermanentError(msg string, statusCode int, cause error) *Error {
	return &Error{Msg: msg, Cat: ErrorPermanent, Code: statusCode, Cause: cause}
}

// NewUserInputError creates an error indicating invalid user input.
func NewUserInputError(msg string, statusCode int, cause error) *Error {
	return &Error{Msg: msg, Cat: ErrorUserInput, Code: statusCode, Cause: cause}
}

// IsTransient returns true if the error is categorized as transient.
// It checks if the error or any wrapped error implements CategorizedError.
func IsTransient(err error) bool {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == ErrorTransient
	}
	return false
}

// IsPermanent returns true if the error is categorized as permanent.
func IsPermanent(err error) bool {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == ErrorPermanent
	}
	return false
}

// IsUserInput returns true if the error is categorized as user input error.
func IsUserInput(err error) bool {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == ErrorUserInput
	}
	return false
}

// StatusCodeOf returns the HTTP status code from a categorized error, or 0.
func StatusCodeOf(err error) int {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.StatusCode()
	}
	return 0
}

// RetryAfterOf returns the retry delay from a categorized error, or 0.
func RetryAfterOf(err error) time.Duration {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.RetryAfter()
	}
	return 0
}

// ErrorKind is the canonical classification carried by stream error events.
type ErrorKind string

const (
	ErrorKindTransient      ErrorKind = "transient"
	ErrorKindAuth           ErrorKind = "auth"
	ErrorKindInvalidRequest ErrorKind = "invalid_request"
	ErrorKindProvider       ErrorKind = "provider"
	ErrorKindAborted        ErrorKind = "aborted"
)

// StreamError is the payload of a canonical error event.
type StreamError struct {
	Kind       ErrorKind     `json:"kind"`
	Message    string        `json:"message"`
	Transient  bool          `json:"retryable"`
	Code       int           `json:"statusCode,omitempty"`
	RetryDelay time.Duration `json:"retryAfter,omitempty"`
	Cause      error         `json:"-"`
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *StreamError) Unwrap() error { return e.Cause }

// Category maps the stream error kind onto the categorized error scheme.
func (e *StreamError) Category() ErrorCategory {
	switch {
	case e.Transient:
		return ErrorTransient
	case e.Kind == ErrorKindInvalidRequest:
		return ErrorUserInput
	default:
		return ErrorPermanent
	}
}

func (e *StreamError) Retryable() bool           { return e.Transient }
func (e *StreamError) StatusCode() int           { return e.Code }
func (e *StreamError) RetryAfter() time.Duration { return e.RetryDelay }

// StreamErrorFrom classifies err into a StreamError. Categorized errors keep
// their category and metadata; context cancellation maps to ErrorKindAborted.
func StreamErrorFrom(err error) *StreamError {
	if err == nil {
		return nil
	}
	var se *StreamError
	if errors.As(err, &se) {
		return se
	}
	out := &StreamError{Kind: ErrorKindProvider, Message: err.Error(), Cause: err}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		out.Kind = ErrorKindAborted
		return out
	}
	var ce CategorizedError
	if !errors.As(err, &ce) {
		return out
	}
	out.Code = ce.StatusCode()
	out.RetryDelay = ce.RetryAfter()
	switch ce.Category() {
	case ErrorTransient:
		out.Kind = ErrorKindTransient
		out.Transient = true
	case ErrorUserInput:
		out.Kind = ErrorKindInvalidRequest
	case ErrorPermanent:
		if out.Code == 401 || out.Code == 403 {
			out.Kind = ErrorKindAuth
		}
	}
	return out
}

// NewTransientStreamError builds a retryable stream error.
func NewTransientStreamError(msg string) *StreamError {
	return &StreamError{Kind: ErrorKindTransient, Message: msg, Transient: true}
}

// UnsupportedApiError is returned by the dispatcher when a model's Api has
// neither a built-in adapter nor a registry entry. It is never retried.
type UnsupportedApiError struct {
	Api Api
}

func (e *UnsupportedApiError) Error() string {
	return fmt.Sprintf("unsupported api: %q", e.Api)
}

// ApiConflictError is returned when a custom registration uses a reserved
// built-in API name.
type ApiConflictError struct {
	Api Api
}

func (e *ApiConflictError) Error() string {
	return fmt.Sprintf("api %q is reserved by a built-in adapter", e.Api)
}
