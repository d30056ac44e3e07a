package anthropic

import (
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spetersoncode/loom/internal/provider/httperr"
)

// wrapError categorizes Anthropic SDK errors by status code, keeping the
// server's Retry-After. Anthropic reports overload as 529.
func wrapError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	return httperr.Categorize(err.Error(), apiErr.StatusCode, httperr.RetryAfter(apiErr.Response), err)
}
