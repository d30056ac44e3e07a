package google

import (
	"errors"

	"github.com/spetersoncode/loom/internal/provider/httperr"
	"google.golang.org/genai"
)

// wrapError categorizes genai API errors by status code. genai.APIError does
// not expose response headers, so no Retry-After is carried.
func wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return httperr.Categorize(err.Error(), apiErr.Code, 0, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return httperr.Categorize(err.Error(), apiErrPtr.Code, 0, err)
	}
	return err
}
