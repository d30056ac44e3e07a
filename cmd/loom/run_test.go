package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/agent"
)

func TestPrintEvent(t *testing.T) {
	var out, status bytes.Buffer
	call := ai.ToolCall{ID: "call_1", Name: "ls", Arguments: `{"path":"."}`}
	result := ai.NewToolResultMessage(call, []ai.ContentBlock{ai.NewTextBlock("a.go\nb.go")}, false)

	for _, ev := range []agent.Event{
		{Type: agent.EventTextDelta, Delta: "Listing"},
		{Type: agent.EventToolCallIssued, ToolCall: &call},
		{Type: agent.EventToolResultApplied, ToolResult: &result},
		{Type: agent.EventRetry, Attempt: 2, Err: errors.New("overloaded")},
		{Type: agent.EventTurnCompleted},
	} {
		printEvent(&out, &status, ev)
	}

	assert.Equal(t, "Listing\n", out.String())
	assert.Contains(t, status.String(), `-> ls {"path":"."}`)
	assert.Contains(t, status.String(), "<- ls (2 lines)")
	assert.Contains(t, status.String(), "retrying (attempt 2)")
}

func TestSummarize(t *testing.T) {
	call := ai.ToolCall{ID: "c", Name: "read"}
	assert.Equal(t, "(0 lines)", summarize(ai.NewToolResultMessage(call, nil, false)))

	failed := ai.NewToolResultMessage(call, []ai.ContentBlock{ai.NewTextBlock("no such file\ndetails")}, true)
	assert.Equal(t, "error: no such file", summarize(failed))

	cancelled := ai.NewToolResultMessage(call, nil, true)
	cancelled.Cancelled = true
	assert.Equal(t, "(cancelled)", summarize(cancelled))
}
