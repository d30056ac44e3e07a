package client

import (
	"time"

	ai "github.com/spetersoncode/loom"
)

// EventType identifies the kind of event occurring during client operations.
type EventType string

const (
	// EventRequestStart fires before an adapter is invoked.
	EventRequestStart EventType = "request_start"

	// EventRequestComplete fires when a stream ends with a done event.
	EventRequestComplete EventType = "request_complete"

	// EventRequestError fires when a stream ends with an error event.
	EventRequestError EventType = "request_error"
)

// Event represents an observable occurrence during client operations.
type Event struct {
	Type EventType

	// Operation is "stream" or "stream_simple". Set on start events.
	Operation string

	Provider ai.Provider
	Model    string

	// Duration is the elapsed time for finished requests.
	Duration time.Duration

	Usage      *ai.Usage
	StopReason ai.StopReason
	Error      error

	Timestamp time.Time
}

// emit sends an event with timestamp to the channel without blocking.
func emit(ch chan<- Event, event Event) {
	if ch == nil {
		return
	}
	event.Timestamp = time.Now()
	select {
	case ch <- event:
	default:
		// Channel full - don't block
	}
}
