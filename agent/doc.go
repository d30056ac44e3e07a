// Package agent runs the tool-calling loop of a coding assistant.
//
// A Session sends its conversation to a model, streams the reply, executes
// the tool calls the model makes and feeds the results back, until the model
// answers without calling a tool.
//
// # Basic Usage
//
// Register tools, then create an agent and a session:
//
//	tools := tool.NewRegistry().Add(tool.FS(tool.WithBasePath("."))...)
//	a := agent.New(client.New(), tools, agent.WithMaxTurns(20))
//
//	s := a.NewSession(model, ai.Context{SystemPrompt: "You are a coding assistant."})
//	res, err := s.Run(ctx, ai.NewUserMessage("list the files in this folder"))
//	fmt.Println(res.Text())
//
// # Streaming Events
//
// Prompt returns a channel of events. It must be drained: lifecycle events
// block until received, while tool progress events are dropped when the
// buffer is full.
//
//	events, err := s.Prompt(ctx, ai.NewUserMessage("fix the failing test"))
//	for ev := range events {
//	    switch ev.Type {
//	    case agent.EventTextDelta:
//	        fmt.Print(ev.Delta)
//	    case agent.EventToolCallIssued:
//	        fmt.Printf("[%s]\n", ev.ToolCall.Name)
//	    case agent.EventLoopTerminal:
//	        fmt.Println(ev.Reason)
//	    }
//	}
//
// # Turns
//
// Each turn streams one assistant message, executes its tool calls with at
// most Config.MaxConcurrentTools in flight, then appends the assistant
// message, the tool results in request order and any queued messages.
// Transient stream errors are retried with backoff as long as no tool call
// has been finalized.
//
// # Termination
//
// A run ends in one of four states:
//
//   - StateCompleted: the model answered without tool calls
//   - StateMaxTurnsReached: the run completed Config.MaxTurns turns
//   - StateAborted: the context was cancelled or the session closed
//   - StateFailed: a non-retryable error, or retries were exhausted
//
// Continue resumes a session from its current conversation, for example
// after tool results were appended out of band.
package agent
