package retry

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"

	ai "github.com/spetersoncode/loom"
)

// statusCoder matches vendor SDK errors that expose an HTTP status code.
type statusCoder interface {
	StatusCode() int
}

var transientPatterns = []string{
	"connection reset",
	"connection refused",
	"timeout",
	"temporary failure",
	"service unavailable",
	"overloaded",
	"too many requests",
	"rate limit",
	"bad gateway",
	"gateway timeout",
	"unexpected eof",
}

// IsTransient determines if an error is transient and should be retried.
// Errors implementing loom.CategorizedError are trusted as categorized.
// Otherwise status codes (429, 5xx), network timeouts, connection resets
// and known message patterns are treated as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var ce ai.CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == ai.ErrorTransient
	}

	var sc statusCoder
	if errors.As(err, &sc) && IsTransientStatus(sc.StatusCode()) {
		return true
	}

	return isTransientNetworkError(err)
}

// IsTransientStatus reports whether an HTTP status code indicates a
// retryable condition.
func IsTransientStatus(code int) bool {
	return code == 429 || code == 408 || (code >= 500 && code < 600)
}

// Classify converts any error into a canonical stream error. Categorized
// errors keep their classification; uncategorized errors are classified
// with the IsTransient heuristics.
func Classify(err error) *ai.StreamError {
	se := ai.StreamErrorFrom(err)
	if se == nil || se.Kind != ai.ErrorKindProvider || se.Transient {
		return se
	}
	var ce ai.CategorizedError
	if !errors.As(err, &ce) && IsTransient(err) {
		se.Kind = ai.ErrorKindTransient
		se.Transient = true
	}
	return se
}

func isTransientNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsTemporary {
		return true
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ETIMEDOUT, syscall.EPIPE:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
