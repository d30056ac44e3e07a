package loom

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Tool declares a function the model can call.
type Tool struct {
	// Name is the unique identifier for the tool.
	Name string `json:"name"`
	// Description explains what the tool does (helps the model decide when to use it).
	Description string `json:"description"`
	// Parameters is a JSON Schema object defining the function parameters.
	Parameters json.RawMessage `json:"parameters"`
}

// ToolCall represents a request from the model to invoke a tool.
type ToolCall struct {
	// ID is a unique identifier for this tool call (used to match results).
	ID string `json:"id"`
	// Name is the name of the tool to invoke.
	Name string `json:"name"`
	// Arguments is the raw JSON argument payload as streamed by the model.
	Arguments string `json:"arguments"`
}

// ToolChoice controls how the model uses tools.
type ToolChoice string

const (
	// ToolChoiceAuto lets the model decide when to use tools (default).
	ToolChoiceAuto ToolChoice = "auto"
	// ToolChoiceNone disables tool use for the request.
	ToolChoiceNone ToolChoice = "none"
	// ToolChoiceRequired forces the model to use a tool.
	ToolChoiceRequired ToolChoice = "required"
)

// SchemaFor generates a JSON Schema for the struct type T.
//
// Field names follow json tags. Fields without omitempty are required.
// Descriptions come from `jsonschema:"description=..."` tags.
//
//	type ReadArgs struct {
//	    Path   string `json:"path" jsonschema:"description=File to read"`
//	    Offset int    `json:"offset,omitempty"`
//	}
//	schema, err := loom.SchemaFor[ReadArgs]()
func SchemaFor[T any]() (json.RawMessage, error) {
	r := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	var v T
	s := r.Reflect(&v)
	s.Version = ""
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("schema for %T: %w", v, err)
	}
	return raw, nil
}

// MustSchemaFor is like SchemaFor but panics on error.
func MustSchemaFor[T any]() json.RawMessage {
	s, err := SchemaFor[T]()
	if err != nil {
		panic(err)
	}
	return s
}
