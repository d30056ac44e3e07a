package agent

import "fmt"

// State is a phase of the agent loop.
type State string

const (
	StateIdle        State = "idle"
	StateStreaming   State = "streaming"
	StateDispatching State = "dispatching"
	StateApplying    State = "applying"

	// Terminal states.
	StateCompleted       State = "completed"
	StateAborted         State = "aborted"
	StateFailed          State = "failed"
	StateMaxTurnsReached State = "max_turns_reached"
)

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateAborted, StateFailed, StateMaxTurnsReached:
		return true
	}
	return false
}

// transitions lists the states reachable from each state. A terminal state
// only returns to Idle, when the next run begins.
var transitions = map[State][]State{
	StateIdle:            {StateStreaming, StateAborted, StateFailed},
	StateStreaming:       {StateStreaming, StateDispatching, StateApplying, StateCompleted, StateAborted, StateFailed},
	StateDispatching:     {StateApplying},
	StateApplying:        {StateStreaming, StateMaxTurnsReached, StateAborted},
	StateCompleted:       {StateIdle},
	StateAborted:         {StateIdle},
	StateFailed:          {StateIdle},
	StateMaxTurnsReached: {StateIdle},
}

// CanTransition reports whether the loop may move from one state to another.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionError reports a state change the loop does not allow.
type TransitionError struct {
	From, To State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("agent: invalid transition %s -> %s", e.From, e.To)
}
