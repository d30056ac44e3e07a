// Package loom is the core of a coding-assistant runtime: a vendor-neutral
// conversation model, a canonical stream event contract and the types every
// provider adapter, the dispatcher and the agent loop share.
//
// # Conversation
//
// A [Context] holds a system prompt, ordered [Message] values and the [Tool]
// declarations the model may call. Messages carry ordered [ContentBlock]
// values of text, thinking, image or tool-call kind. Tool results are
// separate messages with [RoleToolResult] that answer a call by id.
//
// # Models and APIs
//
// A [Model] names the [Provider] hosting it and the [Api], the wire
// protocol it is served through. Built-in APIs are listed by [BuiltinApis];
// any other Api must be registered with the registry package before use.
//
// # Streaming
//
// Every adapter produces a channel of [StreamEvent]:
//
//	events, err := c.Stream(ctx, model, conversation, loom.WithMaxTokens(4096))
//	if err != nil {
//	    return err
//	}
//	for ev := range events {
//	    switch ev.Type {
//	    case loom.EventTextDelta:
//	        fmt.Print(ev.Delta)
//	    case loom.EventError:
//	        return ev.Err
//	    }
//	}
//
// A sequence ends with exactly one [EventDone] or [EventError]. When ctx is
// cancelled the channel closes without a terminal event. [Collect] drains a
// stream into an assistant message.
//
// # Errors
//
// Errors implement [CategorizedError] so callers can decide on retries:
//
//	if loom.IsTransient(err) {
//	    delay := loom.RetryAfterOf(err)
//	    // retry after delay
//	}
package loom
