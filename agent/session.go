package agent

import (
	"context"
	"log/slog"
	"sync"

	ai "github.com/spetersoncode/loom"
)

// Session is one conversation driven by the agent loop. Only one run may be
// active at a time; queued messages may be submitted from any goroutine.
type Session struct {
	agent  *Agent
	id     string
	model  ai.Model
	logger *slog.Logger

	mu      sync.Mutex
	ctx     ai.Context
	state   State
	turns   int
	usage   ai.Usage
	queue   []ai.Message
	running bool
	closed  bool
	cancel  context.CancelFunc
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Model returns the session model.
func (s *Session) Model() ai.Model {
	return s.model
}

// Context returns a copy of the conversation.
func (s *Session) Context() ai.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx.Clone()
}

// State returns the current loop state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Turns returns the number of completed turns.
func (s *Session) Turns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns
}

// Usage returns token usage accumulated across turns.
func (s *Session) Usage() ai.Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

// Prompt appends msgs to the conversation and runs the loop. Messages queued
// while the session was idle are applied first.
//
// The returned channel is closed after EventLoopTerminal. Consumers must
// drain it: lifecycle events block until received.
func (s *Session) Prompt(ctx context.Context, msgs ...ai.Message) (<-chan Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(); err != nil {
		return nil, err
	}
	return s.startLocked(ctx, msgs), nil
}

// Continue resumes the loop from the current conversation without adding
// a message. The conversation must end with a user or tool-result message,
// or messages must be queued. Tool calls that already have results are not
// issued again.
func (s *Session) Continue(ctx context.Context) (<-chan Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(); err != nil {
		return nil, err
	}
	if len(s.ctx.UnresolvedToolCalls()) > 0 {
		return nil, ErrUnresolvedToolCalls
	}
	if len(s.queue) == 0 && !continuable(s.ctx.Messages) {
		return nil, ErrNothingToContinue
	}
	return s.startLocked(ctx, nil), nil
}

// continuable reports whether msgs ends with a user or tool-result message,
// ignoring trailing assistant messages that are never replayed.
func continuable(msgs []ai.Message) bool {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Role == ai.RoleAssistant && !m.Replayable() {
			continue
		}
		return m.Role == ai.RoleUser || m.Role == ai.RoleToolResult
	}
	return false
}

// Enqueue submits a message for the conversation. During a run it is applied
// at the next turn boundary, after that turn's tool results; otherwise at
// the start of the next Prompt or Continue.
func (s *Session) Enqueue(msg ai.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.queue = append(s.queue, msg)
	return nil
}

// Close ends the session permanently and aborts an active run. Messages
// still queued are discarded and returned.
func (s *Session) Close() []ai.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	dropped := s.queue
	s.queue = nil
	if len(dropped) > 0 {
		s.logger.Warn("discarding queued messages on close", "count", len(dropped))
	}
	return dropped
}

// Run is a blocking Prompt that drains the events and reports the outcome.
// The returned error is the failure of a StateFailed run, the context error
// of an aborted run, or ErrMaxTurnsReached.
func (s *Session) Run(ctx context.Context, msgs ...ai.Message) (*Result, error) {
	events, err := s.Prompt(ctx, msgs...)
	if err != nil {
		return nil, err
	}
	res := &Result{}
	for ev := range events {
		switch ev.Type {
		case EventMessageApplied:
			if ev.Message != nil && ev.Message.Role == ai.RoleAssistant {
				res.Message = ev.Message
			}
		case EventLoopTerminal:
			res.Reason = ev.Reason
			res.Err = ev.Err
		}
	}

	s.mu.Lock()
	res.Messages = s.ctx.Clone().Messages
	res.Turns = s.turns
	res.Usage = s.usage
	s.mu.Unlock()
	res.Cost = s.model.CalculateCost(res.Usage)

	switch res.Reason {
	case StateFailed:
		return res, res.Err
	case StateAborted:
		if res.Err == nil {
			res.Err = context.Canceled
		}
		return res, res.Err
	case StateMaxTurnsReached:
		return res, ErrMaxTurnsReached
	}
	return res, nil
}

func (s *Session) checkLocked() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.running {
		return ErrSessionBusy
	}
	return nil
}

// startLocked launches a run. The caller holds s.mu.
func (s *Session) startLocked(ctx context.Context, msgs []ai.Message) <-chan Event {
	if s.state.Terminal() {
		s.state = StateIdle
	}
	ctx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel

	initial := append(s.takeQueueLocked(), msgs...)
	out := make(chan Event, eventBuffer)
	r := newRun(s, out)
	go r.loop(ctx, cancel, initial)
	return out
}

func (s *Session) takeQueueLocked() []ai.Message {
	q := s.queue
	s.queue = nil
	return q
}

func (s *Session) takeQueue() []ai.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.takeQueueLocked()
}

// transition moves the loop to next, rejecting moves the state table does
// not allow.
func (s *Session) transition(next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !CanTransition(s.state, next) {
		return &TransitionError{From: s.state, To: next}
	}
	s.state = next
	return nil
}

// append adds messages to the conversation.
func (s *Session) append(msgs ...ai.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx.Messages = append(s.ctx.Messages, msgs...)
}

func (s *Session) snapshot() ai.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx.Clone()
}

func (s *Session) addUsage(u ai.Usage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = s.usage.Add(u)
}

func (s *Session) completeTurn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns++
	return s.turns
}

// finish records the terminal state and releases the session for the next
// run. An invalid transition is forced to StateFailed.
func (s *Session) finish(state State) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if !CanTransition(s.state, state) {
		err = &TransitionError{From: s.state, To: state}
		state = StateFailed
	}
	s.state = state
	s.running = false
	s.cancel = nil
	return state, err
}
