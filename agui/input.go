package agui

import (
	"errors"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	ai "github.com/spetersoncode/loom"
)

// RunAgentInput is the AG-UI request for running an agent.
type RunAgentInput struct {
	ThreadID       string           `json:"thread_id"`
	RunID          string           `json:"run_id"`
	Messages       []events.Message `json:"messages"`
	Tools          []any            `json:"tools,omitempty"`
	Context        []any            `json:"context,omitempty"`
	State          any              `json:"state,omitempty"`
	ForwardedProps any              `json:"forwarded_props,omitempty"`
}

// ErrNoMessages is returned when the input contains no messages.
var ErrNoMessages = errors.New("agui: no messages provided")

// Prepare converts the input into a conversation Context. Frontend tools
// are declared in the Context so the model can call them; calls to them are
// not executable server-side.
func (r *RunAgentInput) Prepare() (ai.Context, error) {
	system, messages := ToMessages(r.Messages)
	if len(messages) == 0 {
		return ai.Context{}, ErrNoMessages
	}

	tools, err := ParseTools(r.Tools)
	if err != nil {
		return ai.Context{}, err
	}
	return ai.Context{
		SystemPrompt: system,
		Messages:     messages,
		Tools:        Specs(tools),
	}, nil
}

// Mapper returns a Mapper for the input's thread and run.
func (r *RunAgentInput) Mapper() *Mapper {
	return NewMapper(r.ThreadID, r.RunID)
}
