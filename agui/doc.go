// Package agui maps agent sessions onto the AG-UI protocol.
//
// AG-UI is an event-based protocol connecting agents to user-facing
// applications. This package converts agent events and conversation
// messages; transport is left to the caller, typically the AG-UI SDK's SSE
// writer.
//
//	input := &agui.RunAgentInput{}
//	json.NewDecoder(r.Body).Decode(input)
//
//	c, err := input.Prepare()
//	if err != nil {
//	    return err
//	}
//	sess := a.NewSession(model, c)
//	events, err := sess.Continue(ctx)
//	if err != nil {
//	    return err
//	}
//
//	mapper := input.Mapper()
//	for ev := range mapper.MapStream(events) {
//	    writer.WriteEvent(ctx, w, ev)
//	}
//
// Event mapping:
//
//   - agent_start → RUN_STARTED
//   - turn_start, turn_completed → STEP_STARTED, STEP_FINISHED
//   - text_delta → TEXT_MESSAGE_START (first delta), TEXT_MESSAGE_CONTENT
//   - any other event closes an open text message with TEXT_MESSAGE_END
//   - tool_call_issued → TOOL_CALL_START, TOOL_CALL_ARGS, TOOL_CALL_END
//   - tool_result_applied → TOOL_CALL_RESULT
//   - loop_terminal → RUN_FINISHED, or RUN_ERROR when failed or aborted
//
// The Mapper is not safe for concurrent use.
package agui
