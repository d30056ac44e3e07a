package retry

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	ai "github.com/spetersoncode/loom"
	"github.com/stretchr/testify/assert"
)

// mockAPIError simulates an API error with a status code.
type mockAPIError struct {
	code int
	msg  string
}

func (e *mockAPIError) Error() string   { return e.msg }
func (e *mockAPIError) StatusCode() int { return e.code }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"categorized transient", ai.NewTransientError("busy", 503, nil), true},
		{"categorized permanent with 5xx", ai.NewPermanentError("no", 500, nil), false},
		{"status 429", &mockAPIError{code: 429, msg: "slow down"}, true},
		{"status 503", &mockAPIError{code: 503, msg: "unavailable"}, true},
		{"status 400", &mockAPIError{code: 400, msg: "bad"}, false},
		{"wrapped status", fmt.Errorf("call: %w", &mockAPIError{code: 502, msg: "x"}), true},
		{"econnreset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"message pattern", errors.New("upstream connection reset by peer"), true},
		{"plain", errors.New("invalid json"), false},
		{"cancelled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestClassify(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, Classify(nil))
	})

	t.Run("heuristic transient", func(t *testing.T) {
		se := Classify(fmt.Errorf("dial: %w", syscall.ECONNREFUSED))
		assert.Equal(t, ai.ErrorKindTransient, se.Kind)
		assert.True(t, se.Retryable())
	})

	t.Run("auth", func(t *testing.T) {
		se := Classify(ai.NewPermanentError("bad key", 401, nil))
		assert.Equal(t, ai.ErrorKindAuth, se.Kind)
		assert.False(t, se.Retryable())
		assert.Equal(t, 401, se.StatusCode())
	})

	t.Run("invalid request", func(t *testing.T) {
		se := Classify(ai.NewUserInputError("bad schema", 400, nil))
		assert.Equal(t, ai.ErrorKindInvalidRequest, se.Kind)
	})

	t.Run("aborted", func(t *testing.T) {
		se := Classify(fmt.Errorf("stream: %w", context.Canceled))
		assert.Equal(t, ai.ErrorKindAborted, se.Kind)
		assert.False(t, se.Retryable())
	})

	t.Run("unknown stays provider", func(t *testing.T) {
		se := Classify(errors.New("model refused"))
		assert.Equal(t, ai.ErrorKindProvider, se.Kind)
		assert.False(t, se.Retryable())
	})
}
