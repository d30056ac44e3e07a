package agui

import (
	"fmt"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	"github.com/spetersoncode/loom/agent"
)

// Mapper converts agent events to AG-UI events.
//
// AG-UI frames text as Start-Content-End, while the agent only reports
// deltas, so the Mapper tracks the open text message and closes it before
// any non-text event.
//
// Create a new Mapper for each run using NewMapper. The Mapper is not
// safe for concurrent use.
type Mapper struct {
	threadID string
	runID    string

	// messageID is the open text message, empty when none is open.
	messageID string
}

// NewMapper creates a new Mapper for a single run.
// Empty IDs are generated.
func NewMapper(threadID, runID string) *Mapper {
	if threadID == "" {
		threadID = events.GenerateThreadID()
	}
	if runID == "" {
		runID = events.GenerateRunID()
	}
	return &Mapper{
		threadID: threadID,
		runID:    runID,
	}
}

// ThreadID returns the thread ID for this mapper.
func (m *Mapper) ThreadID() string {
	return m.threadID
}

// RunID returns the run ID for this mapper.
func (m *Mapper) RunID() string {
	return m.runID
}

// RunStarted returns a RUN_STARTED event.
func (m *Mapper) RunStarted() events.Event {
	return events.NewRunStartedEvent(m.threadID, m.runID)
}

// RunFinished returns a RUN_FINISHED event.
func (m *Mapper) RunFinished() events.Event {
	return events.NewRunFinishedEvent(m.threadID, m.runID)
}

// RunError returns a RUN_ERROR event.
func (m *Mapper) RunError(err error) events.Event {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return events.NewRunErrorEvent(msg)
}

// Map converts one agent event into zero or more AG-UI events.
func (m *Mapper) Map(e agent.Event) []events.Event {
	if e.Type == agent.EventTextDelta {
		var out []events.Event
		if m.messageID == "" {
			m.messageID = events.GenerateMessageID()
			out = append(out, events.NewTextMessageStartEvent(m.messageID, events.WithRole(RoleAssistant)))
		}
		if e.Delta != "" {
			out = append(out, events.NewTextMessageContentEvent(m.messageID, e.Delta))
		}
		return out
	}

	out := m.closeText()
	switch e.Type {
	case agent.EventAgentStart:
		out = append(out, m.RunStarted())

	case agent.EventTurnStart:
		out = append(out, events.NewStepStartedEvent(stepName(e.Turn)))
	case agent.EventTurnCompleted:
		out = append(out, events.NewStepFinishedEvent(stepName(e.Turn)))

	case agent.EventToolCallIssued:
		if e.ToolCall == nil {
			break
		}
		out = append(out, events.NewToolCallStartEvent(e.ToolCall.ID, e.ToolCall.Name))
		if e.ToolCall.Arguments != "" {
			out = append(out, events.NewToolCallArgsEvent(e.ToolCall.ID, e.ToolCall.Arguments))
		}
		out = append(out, events.NewToolCallEndEvent(e.ToolCall.ID))

	case agent.EventToolResultApplied:
		if e.ToolResult == nil {
			break
		}
		out = append(out, events.NewToolCallResultEvent(
			events.GenerateMessageID(),
			e.ToolResult.ToolCallID,
			resultContent(*e.ToolResult),
		))

	case agent.EventLoopTerminal:
		switch e.Reason {
		case agent.StateCompleted, agent.StateMaxTurnsReached:
			out = append(out, m.RunFinished())
		default:
			err := e.Err
			if err == nil {
				err = fmt.Errorf("run %s", e.Reason)
			}
			out = append(out, m.RunError(err))
		}
	}
	return out
}

// MapStream maps every event from input until it is closed.
func (m *Mapper) MapStream(input <-chan agent.Event) <-chan events.Event {
	output := make(chan events.Event, 100)
	go func() {
		defer close(output)
		for e := range input {
			for _, ev := range m.Map(e) {
				output <- ev
			}
		}
	}()
	return output
}

func (m *Mapper) closeText() []events.Event {
	if m.messageID == "" {
		return nil
	}
	ev := events.NewTextMessageEndEvent(m.messageID)
	m.messageID = ""
	return []events.Event{ev}
}

func stepName(turn int) string {
	return fmt.Sprintf("turn-%d", turn)
}
