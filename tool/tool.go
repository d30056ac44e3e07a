package tool

import (
	"context"
	"encoding/json"

	ai "github.com/spetersoncode/loom"
)

// Update is a progress report from a running tool.
type Update struct {
	Message string `json:"message,omitempty"`
	// Details is an opaque payload forwarded to event consumers.
	Details any `json:"details,omitempty"`
}

// ProgressFunc receives progress updates. It must not block.
type ProgressFunc func(Update)

// Context is the session state visible to a tool while it executes.
type Context struct {
	SessionID string
	Turn      int
	// Messages is a snapshot of the conversation before the current turn's
	// results are applied. Tools must not modify it.
	Messages []ai.Message
	// Extra is host-supplied state, set via the agent's tool context hook.
	Extra any
}

// Result is the outcome of a successful execution.
type Result struct {
	Content []ai.ContentBlock `json:"content"`
	// Details is an opaque structured payload. It is never sent to the model.
	Details any `json:"details,omitempty"`
}

// Text returns a Result holding a single text block.
func Text(s string) Result {
	return Result{Content: []ai.ContentBlock{ai.NewTextBlock(s)}}
}

// Tool is a capability the model can invoke.
//
// Execute receives arguments already validated against Parameters. The ctx
// carries cancellation: it is done when the run is aborted or the per-call
// timeout expires. Returning an error produces an error result for this call
// only.
type Tool interface {
	Name() string
	Label() string
	Description() string
	Parameters() json.RawMessage
	Execute(ctx context.Context, callID string, args map[string]any, onProgress ProgressFunc, tc Context) (Result, error)
}

// Spec returns the declaration sent to the model for t.
func Spec(t Tool) ai.Tool {
	return ai.Tool{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.Parameters(),
	}
}
