// Package toolcall reconstructs complete tool-call requests from the
// interleaved start, delta and end events of a canonical stream, and
// validates their arguments against the tool's parameter schema.
package toolcall

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/tool"
)

// SchemaSource returns the parameter schema declared for a tool name.
// *tool.Registry's Schema method satisfies it.
type SchemaSource func(name string) (json.RawMessage, bool)

// Request is a finalized tool call. When Err is non-nil the arguments could
// not be parsed or validated; the call must resolve to an error result
// without invoking the tool.
type Request struct {
	Call ai.ToolCall
	Args map[string]any
	Err  error
}

// ContractError reports an event sequence that violates the canonical
// stream ordering. It indicates a defective adapter, not bad model output.
type ContractError struct {
	Op     string
	ID     string
	Reason string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("toolcall: %s %q: %s", e.Op, e.ID, e.Reason)
}

type pending struct {
	name string
	args strings.Builder
}

type compiled struct {
	raw      string
	resolved *jsonschema.Resolved
	err      error
}

// Assembler accumulates pending tool calls for one stream at a time.
// It is not safe for concurrent use.
type Assembler struct {
	schemas SchemaSource
	pending map[string]*pending
	order   []string
	final   map[string]bool
	cache   map[string]compiled
}

// New creates an Assembler. A nil schemas source disables validation.
func New(schemas SchemaSource) *Assembler {
	a := &Assembler{
		schemas: schemas,
		cache:   make(map[string]compiled),
	}
	a.Reset()
	return a
}

// Reset forgets all pending and finalized calls, keeping compiled schemas.
func (a *Assembler) Reset() {
	a.pending = make(map[string]*pending)
	a.order = nil
	a.final = make(map[string]bool)
}

// Start opens a pending call.
func (a *Assembler) Start(id, name string) error {
	if id == "" {
		return &ContractError{Op: "start", ID: id, Reason: "empty id"}
	}
	if _, open := a.pending[id]; open || a.final[id] {
		return &ContractError{Op: "start", ID: id, Reason: "duplicate id"}
	}
	a.pending[id] = &pending{name: name}
	a.order = append(a.order, id)
	return nil
}

// Delta appends an argument fragment to an open call.
func (a *Assembler) Delta(id, fragment string) error {
	p, ok := a.pending[id]
	if !ok {
		return &ContractError{Op: "delta", ID: id, Reason: "no matching start"}
	}
	p.args.WriteString(fragment)
	return nil
}

// End finalizes a call. Argument problems are reported in Request.Err; the
// returned error is reserved for ordering violations.
func (a *Assembler) End(id string) (Request, error) {
	p, ok := a.pending[id]
	if !ok {
		reason := "no matching start"
		if a.final[id] {
			reason = "already finalized"
		}
		return Request{}, &ContractError{Op: "end", ID: id, Reason: reason}
	}
	delete(a.pending, id)
	a.removeOrder(id)
	a.final[id] = true

	req := Request{Call: ai.ToolCall{ID: id, Name: p.name, Arguments: p.args.String()}}
	args, err := parse(req.Call.Arguments)
	if err == nil {
		err = a.validate(p.name, args)
	}
	if err != nil {
		req.Err = &tool.ArgumentError{Name: p.name, CallID: id, Err: err}
		return req, nil
	}
	req.Args = args
	return req, nil
}

// Apply routes a tool-call event to Start, Delta or End. It returns a
// Request only for end events; other event types are ignored.
func (a *Assembler) Apply(ev ai.StreamEvent) (*Request, error) {
	switch ev.Type {
	case ai.EventToolCallStart:
		return nil, a.Start(ev.ToolCallID, ev.ToolName)
	case ai.EventToolCallDelta:
		return nil, a.Delta(ev.ToolCallID, ev.Delta)
	case ai.EventToolCallEnd:
		req, err := a.End(ev.ToolCallID)
		if err != nil {
			return nil, err
		}
		return &req, nil
	}
	return nil, nil
}

// Pending returns the ids of unfinished calls in start order.
func (a *Assembler) Pending() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// Discard drops every unfinished call and returns their ids. Used when the
// stream fails or is aborted.
func (a *Assembler) Discard() []string {
	ids := a.Pending()
	for _, id := range ids {
		delete(a.pending, id)
	}
	a.order = nil
	return ids
}

func (a *Assembler) removeOrder(id string) {
	for i, v := range a.order {
		if v == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			return
		}
	}
}

func parse(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}
	if dec.More() {
		return nil, errors.New("malformed JSON: trailing data after object")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("arguments must be a JSON object, got %T", v)
	}
	return obj, nil
}

func (a *Assembler) validate(name string, args map[string]any) error {
	if a.schemas == nil {
		return nil
	}
	raw, ok := a.schemas(name)
	if !ok || len(raw) == 0 {
		// Unknown tools are rejected when resolved by name.
		return nil
	}
	c, hit := a.cache[name]
	if !hit || c.raw != string(raw) {
		c = compile(raw)
		a.cache[name] = c
	}
	if c.err != nil {
		return fmt.Errorf("tool schema: %w", c.err)
	}
	return c.resolved.Validate(args)
}

func compile(raw json.RawMessage) compiled {
	c := compiled{raw: string(raw)}
	var s jsonschema.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		c.err = err
		return c
	}
	c.resolved, c.err = s.Resolve(nil)
	return c
}
