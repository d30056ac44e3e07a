package openai

import (
	"errors"

	"github.com/openai/openai-go"
	"github.com/spetersoncode/loom/internal/provider/httperr"
)

// wrapError categorizes OpenAI SDK errors by status code and keeps the
// Retry-After header for the retry policy.
func wrapError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		// Network failures are classified by the retry heuristics.
		return err
	}
	return httperr.Categorize(err.Error(), apiErr.StatusCode, httperr.RetryAfter(apiErr.Response), err)
}

// WrapError is wrapError for sibling adapters built on the same SDK.
func WrapError(err error) error { return wrapError(err) }
