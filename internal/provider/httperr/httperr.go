// Package httperr categorizes vendor HTTP failures into loom errors.
package httperr

import (
	"net/http"
	"strconv"
	"time"

	ai "github.com/spetersoncode/loom"
)

// Category determines the error category from an HTTP status code.
func Category(code int) ai.ErrorCategory {
	switch {
	case code == 429 || code == 408:
		return ai.ErrorTransient // Rate limited or request timeout
	case code >= 500 && code < 600:
		return ai.ErrorTransient // Server error, including Anthropic's 529
	case code == 401 || code == 403:
		return ai.ErrorPermanent // Authentication/authorization
	case code == 400 || code == 404 || code == 413 || code == 422:
		return ai.ErrorUserInput // Bad request or not found
	default:
		return ai.ErrorPermanent
	}
}

// Categorize wraps cause as a categorized error for status code.
func Categorize(msg string, code int, retryAfter time.Duration, cause error) error {
	switch Category(code) {
	case ai.ErrorTransient:
		return ai.NewTransientErrorWithRetry(msg, code, retryAfter, cause)
	case ai.ErrorUserInput:
		return ai.NewUserInputError(msg, code, cause)
	default:
		return ai.NewPermanentError(msg, code, cause)
	}
}

// RetryAfter extracts the Retry-After duration from an HTTP response.
// Returns 0 if the header is not present or cannot be parsed.
func RetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	return ParseRetryAfter(resp.Header.Get("Retry-After"))
}

// ParseRetryAfter parses a Retry-After header value given in seconds or as
// an HTTP date.
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}
	return 0
}
