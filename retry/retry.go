package retry

import (
	"context"
	"time"

	ai "github.com/spetersoncode/loom"
)

// EffectiveDelay returns the backoff for attempt, honoring the server's
// Retry-After when it asks for longer.
func (c Config) EffectiveDelay(attempt int, err error) time.Duration {
	configured := c.Delay(attempt)
	if server := ai.RetryAfterOf(err); server > configured {
		return server
	}
	return configured
}

// Sleep waits for d or until ctx is done, returning ctx's error in the
// latter case.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do executes the given function with retry logic.
// It respects context cancellation during backoff waits.
// Returns the result on success, or the last error if all attempts fail.
func Do[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !IsTransient(err) {
			return zero, err
		}

		// Don't sleep after the last attempt
		if attempt < cfg.MaxAttempts-1 {
			if err := Sleep(ctx, cfg.EffectiveDelay(attempt, err)); err != nil {
				return zero, err
			}
		}
	}

	return zero, lastErr
}
