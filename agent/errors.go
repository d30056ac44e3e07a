package agent

import (
	"errors"
)

// Sentinel errors returned by Session operations.
var (
	// ErrSessionBusy is returned when a run is started while another is active.
	ErrSessionBusy = errors.New("agent: session is already running")

	// ErrSessionClosed is returned by every operation after Close.
	ErrSessionClosed = errors.New("agent: session is closed")

	// ErrUnresolvedToolCalls is returned by Continue when the last assistant
	// message has tool calls without matching results.
	ErrUnresolvedToolCalls = errors.New("agent: last assistant message has unresolved tool calls")

	// ErrNothingToContinue is returned by Continue when the context does not
	// end with a user or tool-result message and nothing is queued.
	ErrNothingToContinue = errors.New("agent: nothing to continue from")

	// ErrMaxTurnsReached is reported by Run when the turn limit ended the loop.
	ErrMaxTurnsReached = errors.New("agent: maximum turns reached")
)
