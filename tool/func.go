package tool

import (
	"context"
	"encoding/json"
	"fmt"

	ai "github.com/spetersoncode/loom"
)

// Handler executes a tool call with typed arguments.
type Handler[T any] func(ctx context.Context, args T, onProgress ProgressFunc) (Result, error)

// RawHandler executes a tool call with the validated argument object.
type RawHandler func(ctx context.Context, callID string, args map[string]any, onProgress ProgressFunc, tc Context) (Result, error)

// Option configures a function-backed tool.
type Option func(*funcTool)

// WithLabel sets the human-readable label. It defaults to the name.
func WithLabel(label string) Option {
	return func(t *funcTool) {
		t.label = label
	}
}

type funcTool struct {
	name        string
	label       string
	description string
	schema      json.RawMessage
	run         RawHandler
}

func (t *funcTool) Name() string                { return t.name }
func (t *funcTool) Label() string               { return t.label }
func (t *funcTool) Description() string         { return t.description }
func (t *funcTool) Parameters() json.RawMessage { return t.schema }

func (t *funcTool) Execute(ctx context.Context, callID string, args map[string]any, onProgress ProgressFunc, tc Context) (Result, error) {
	if onProgress == nil {
		onProgress = func(Update) {}
	}
	return t.run(ctx, callID, args, onProgress, tc)
}

// New creates a tool from an explicit schema and a raw handler.
func New(name, description string, schema json.RawMessage, fn RawHandler, opts ...Option) Tool {
	t := &funcTool{name: name, label: name, description: description, schema: schema, run: fn}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Func creates a tool whose parameter schema is reflected from T.
// Panics if schema generation fails.
//
//	type GrepArgs struct {
//	    Pattern string `json:"pattern" jsonschema:"description=Regular expression"`
//	}
//
//	grep := tool.Func("grep", "Search file contents",
//	    func(ctx context.Context, args GrepArgs, _ tool.ProgressFunc) (tool.Result, error) {
//	        return tool.Text(run(args.Pattern)), nil
//	    })
func Func[T any](name, description string, fn Handler[T], opts ...Option) Tool {
	schema := ai.MustSchemaFor[T]()
	run := func(ctx context.Context, _ string, args map[string]any, onProgress ProgressFunc, _ Context) (Result, error) {
		typed, err := Decode[T](args)
		if err != nil {
			return Result{}, &ArgumentError{Name: name, Err: err}
		}
		return fn(ctx, typed, onProgress)
	}
	return New(name, description, schema, run, opts...)
}

// Decode converts a validated argument object into T.
func Decode[T any](args map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(args)
	if err != nil {
		return out, fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode arguments: %w", err)
	}
	return out, nil
}
