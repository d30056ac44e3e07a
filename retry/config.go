// Package retry provides exponential backoff for transient provider errors.
package retry

import (
	"errors"
	"math"
	"math/rand"
	"time"
)

// Config holds retry configuration parameters.
type Config struct {
	// MaxAttempts is the maximum number of attempts (default: 5).
	// The initial request counts as attempt 1.
	MaxAttempts int `yaml:"max_attempts"`

	// InitialDelay is the base delay before the first retry (default: 1s).
	InitialDelay time.Duration `yaml:"initial_delay"`

	// MaxDelay is the maximum delay between retries (default: 30s).
	MaxDelay time.Duration `yaml:"max_delay"`

	// Multiplier is the exponential backoff multiplier (default: 2.0).
	Multiplier float64 `yaml:"multiplier"`

	// Jitter adds randomness to prevent thundering herd (default: 0.1 = 10%).
	// Delay is multiplied by (1 + random(-jitter, +jitter)).
	Jitter float64 `yaml:"jitter"`
}

// DefaultConfig returns the default retry configuration.
// - 5 max attempts
// - 1 second initial delay
// - 30 second max delay
// - 2x exponential multiplier
// - 10% jitter
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// Disabled returns a configuration that disables retries (single attempt).
func Disabled() Config {
	return Config{MaxAttempts: 1}
}

// Validate rejects configurations that cannot produce a bounded backoff.
func (c Config) Validate() error {
	switch {
	case c.MaxAttempts < 1:
		return errors.New("retry: max_attempts must be >= 1")
	case c.MaxAttempts > 1 && c.Multiplier < 1:
		return errors.New("retry: multiplier must be >= 1")
	case c.Jitter < 0 || c.Jitter > 1:
		return errors.New("retry: jitter must be within [0, 1]")
	case c.MaxDelay < c.InitialDelay:
		return errors.New("retry: max_delay must be >= initial_delay")
	}
	return nil
}

// Delay calculates the delay for a given attempt number (0-indexed).
// Formula: min(maxDelay, initialDelay * multiplier^attempt) * (1 + jitter)
func (c Config) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt))
	if delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}

	// Apply jitter: random value in range [-jitter, +jitter]
	if c.Jitter > 0 {
		jitterFactor := 1.0 + (rand.Float64()*2-1)*c.Jitter
		delay *= jitterFactor
	}

	return time.Duration(delay)
}
