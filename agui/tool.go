package agui

import (
	"encoding/json"

	ai "github.com/spetersoncode/loom"
)

// Tool is a tool declared by the frontend.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Spec converts the frontend tool to a model declaration.
func (t Tool) Spec() ai.Tool {
	params := t.Parameters
	if len(params) == 0 {
		params = json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return ai.Tool{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  params,
	}
}

// ParseTools parses the untyped Tools field of RunAgentInput.
func ParseTools(raw []any) ([]Tool, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	var tools []Tool
	if err := json.Unmarshal(data, &tools); err != nil {
		return nil, err
	}
	return tools, nil
}

// Specs converts frontend tools to model declarations.
func Specs(tools []Tool) []ai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]ai.Tool, len(tools))
	for i, t := range tools {
		out[i] = t.Spec()
	}
	return out
}
