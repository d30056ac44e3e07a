package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/internal/telemetry"
	"github.com/spetersoncode/loom/retry"
	"github.com/spetersoncode/loom/tool"
	"github.com/spetersoncode/loom/toolcall"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// run is one execution of the loop for a session, from agent_start to
// loop_terminal.
type run struct {
	s      *Session
	a      *Agent
	asm    *toolcall.Assembler
	exec   *executor
	logger *slog.Logger
	// start is the session's turn count when the run began. MaxTurns
	// bounds the turns of one run.
	start int

	mu     sync.RWMutex
	out    chan Event
	closed bool
}

// newRun is called with s.mu held.
func newRun(s *Session, out chan Event) *run {
	a := s.agent
	return &run{
		s:      s,
		a:      a,
		asm:    toolcall.New(a.tools.Schema),
		exec:   newExecutor(a.cfg, s.logger, a.metrics),
		logger: s.logger,
		start:  s.turns,
		out:    out,
	}
}

// send delivers a lifecycle event, blocking until the consumer receives it.
func (r *run) send(ev Event) {
	ev.Timestamp = time.Now()
	if ev.State == "" {
		ev.State = r.s.State()
	}
	r.out <- ev
}

// offer delivers a progress event if the buffer has room. Tools may report
// progress from their own goroutines, even after the run has ended.
func (r *run) offer(ev Event) {
	ev.Timestamp = time.Now()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.out <- ev:
	default:
	}
}

func (r *run) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	close(r.out)
}

func (r *run) loop(ctx context.Context, cancel context.CancelFunc, initial []ai.Message) {
	defer r.close()
	defer cancel()

	r.send(Event{Type: EventAgentStart})
	r.apply(0, initial...)

	state, err := r.turns(ctx)
	final, terr := r.s.finish(state)
	if terr != nil {
		r.logger.Error("invalid terminal transition", "error", terr)
		err = errors.Join(err, terr)
	}

	turns := r.s.Turns()
	switch final {
	case StateFailed:
		r.logger.Error("run failed", "turns", turns, "error", err)
	case StateAborted:
		r.logger.Info("run aborted", "turns", turns)
	default:
		r.logger.Info("run finished", "state", final, "turns", turns)
	}
	r.send(Event{Type: EventLoopTerminal, Turn: turns, State: final, Reason: final, Err: err})
}

// turns runs turns until the loop reaches a terminal state.
func (r *run) turns(ctx context.Context) (State, error) {
	for {
		if err := ctx.Err(); err != nil {
			return StateAborted, err
		}
		turn := r.s.Turns() + 1
		if err := r.s.transition(StateStreaming); err != nil {
			return StateFailed, err
		}
		r.logger.Debug("turn started", "turn", turn)
		r.send(Event{Type: EventTurnStart, Turn: turn})

		turnCtx, span := telemetry.StartSpan(ctx, "loom.turn", trace.WithAttributes(
			attribute.String("loom.session_id", r.s.id),
			attribute.Int("loom.turn", turn),
		))
		next, err := r.turn(turnCtx, turn)
		span.SetAttributes(attribute.String("loom.state", string(next)))
		telemetry.EndSpan(span, err)

		if next != StateStreaming {
			return next, err
		}
	}
}

// turn performs one request and applies its outcome. It returns
// StateStreaming when another turn should follow.
func (r *run) turn(ctx context.Context, turn int) (State, error) {
	msg, reqs, err := r.stream(ctx, turn)
	if err != nil {
		if ctx.Err() != nil {
			if len(msg.Content) > 0 {
				msg.StopReason = ai.StopReasonAborted
				r.applyAssistant(turn, msg)
			}
			return StateAborted, ctx.Err()
		}
		if msg.Role == ai.RoleAssistant {
			msg.StopReason = ai.StopReasonError
			if msg.ErrorMessage == "" {
				msg.ErrorMessage = err.Error()
			}
			r.applyAssistant(turn, msg)
		}
		return StateFailed, err
	}

	if len(reqs) == 0 {
		queued := r.s.takeQueue()
		if len(queued) == 0 {
			r.applyAssistant(turn, msg)
			r.s.completeTurn()
			r.a.metrics.Turn(string(StateCompleted))
			r.logger.Debug("turn completed", "turn", turn, "tool_calls", 0)
			r.send(Event{Type: EventTurnCompleted, Turn: turn})
			return StateCompleted, nil
		}
		if err := r.s.transition(StateApplying); err != nil {
			return StateFailed, err
		}
		r.applyAssistant(turn, msg)
		r.apply(turn, queued...)
		return r.endTurn(ctx, turn)
	}

	if err := r.s.transition(StateDispatching); err != nil {
		return StateFailed, err
	}
	results := r.dispatch(ctx, turn, reqs)
	if err := r.s.transition(StateApplying); err != nil {
		return StateFailed, err
	}
	r.applyAssistant(turn, msg)
	for i := range results {
		r.s.append(results[i])
		r.send(Event{Type: EventToolResultApplied, Turn: turn, ToolCall: &reqs[i].Call, ToolResult: &results[i]})
	}
	r.apply(turn, r.s.takeQueue()...)
	return r.endTurn(ctx, turn)
}

func (r *run) endTurn(ctx context.Context, turn int) (State, error) {
	n := r.s.completeTurn()
	next, err := StateStreaming, error(nil)
	switch {
	case ctx.Err() != nil:
		next, err = StateAborted, ctx.Err()
	case r.a.cfg.MaxTurns > 0 && n-r.start >= r.a.cfg.MaxTurns:
		next = StateMaxTurnsReached
	}
	reason := "continue"
	if next.Terminal() {
		reason = string(next)
	}
	r.a.metrics.Turn(reason)
	r.logger.Debug("turn completed", "turn", turn, "next", next)
	r.send(Event{Type: EventTurnCompleted, Turn: turn})
	return next, err
}

// apply appends non-tool messages and announces each one.
func (r *run) apply(turn int, msgs ...ai.Message) {
	for i := range msgs {
		m := msgs[i]
		r.s.append(m)
		r.send(Event{Type: EventMessageApplied, Turn: turn, Message: &m})
	}
}

func (r *run) applyAssistant(turn int, msg ai.Message) {
	r.s.addUsage(msg.Usage)
	u := msg.Usage
	r.a.metrics.Tokens(string(r.s.model.Provider), u.Input, u.Output, u.CacheRead, u.CacheWrite)
	r.apply(turn, msg)
}

// stream requests the turn's assistant message, retrying transient failures
// that happen before any tool call was finalized.
func (r *run) stream(ctx context.Context, turn int) (ai.Message, []toolcall.Request, error) {
	policy := r.a.cfg.Retry
	for attempt := 0; ; attempt++ {
		msg, reqs, err := r.streamOnce(ctx, turn)
		if err == nil || ctx.Err() != nil {
			return msg, reqs, err
		}
		var unsupported *ai.UnsupportedApiError
		if errors.As(err, &unsupported) || len(reqs) > 0 || !retry.IsTransient(err) || attempt+1 >= policy.MaxAttempts {
			return msg, reqs, err
		}

		delay := policy.EffectiveDelay(attempt, err)
		r.a.metrics.Retry(string(r.s.model.Provider))
		r.logger.Warn("retrying stream", "turn", turn, "attempt", attempt+1, "delay", delay, "error", err)
		r.send(Event{Type: EventRetry, Turn: turn, Attempt: attempt + 1, Delay: delay, Err: err})
		if err := retry.Sleep(ctx, delay); err != nil {
			return ai.Message{}, nil, err
		}
	}
}

// streamOnce performs a single request. On error it returns the partial
// message without tool calls, along with any requests finalized before the
// failure.
func (r *run) streamOnce(ctx context.Context, turn int) (ai.Message, []toolcall.Request, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := r.s.model
	msg := ai.Message{
		ID:       uuid.NewString(),
		Role:     ai.RoleAssistant,
		Api:      model.Api,
		Provider: model.Provider,
		Model:    model.ID,
	}
	events, err := r.a.streamer.Stream(ctx, model, r.request(), r.a.streamOpts...)
	if err != nil {
		return ai.Message{}, nil, err
	}

	r.asm.Reset()
	var (
		text  strings.Builder
		think strings.Builder
		sig   string
		reqs  []toolcall.Request
	)
	build := func(stop ai.StopReason) ai.Message {
		if think.Len() > 0 || sig != "" {
			msg.Content = append(msg.Content, ai.NewThinkingBlock(think.String(), sig))
		}
		if text.Len() > 0 {
			msg.Content = append(msg.Content, ai.NewTextBlock(text.String()))
		}
		if stop != ai.StopReasonError && stop != ai.StopReasonAborted {
			for _, rq := range reqs {
				msg.Content = append(msg.Content, ai.NewToolCallBlock(rq.Call))
			}
		}
		msg.StopReason = stop
		msg.Timestamp = time.Now()
		return msg
	}

	for ev := range events {
		switch ev.Type {
		case ai.EventTextDelta:
			text.WriteString(ev.Delta)
			r.send(Event{Type: EventTextDelta, Turn: turn, Delta: ev.Delta})
		case ai.EventThinkingDelta:
			think.WriteString(ev.Delta)
			if ev.Signature != "" {
				sig = ev.Signature
			}
			if ev.Delta != "" {
				r.send(Event{Type: EventThinkingDelta, Turn: turn, Delta: ev.Delta})
			}
		case ai.EventToolCallStart, ai.EventToolCallDelta, ai.EventToolCallEnd:
			rq, err := r.asm.Apply(ev)
			if err != nil {
				r.asm.Discard()
				return build(ai.StopReasonError), reqs, &ai.StreamError{Kind: ai.ErrorKindProvider, Message: err.Error(), Cause: err}
			}
			if rq != nil {
				reqs = append(reqs, *rq)
			}
		case ai.EventUsage:
			if ev.Usage != nil {
				msg.Usage = *ev.Usage
			}
		case ai.EventDone:
			if open := r.asm.Discard(); len(open) > 0 {
				r.logger.Warn("discarding unfinished tool calls", "turn", turn, "ids", open)
				r.send(Event{Type: EventWarning, Turn: turn, Err: &toolcall.ContractError{Op: "done", ID: strings.Join(open, ","), Reason: "tool call never ended"}})
			}
			stop := ev.StopReason
			if len(reqs) > 0 {
				stop = ai.StopReasonToolUse
			} else if stop == "" || stop == ai.StopReasonToolUse {
				stop = ai.StopReasonStop
			}
			return build(stop), reqs, nil
		case ai.EventError:
			r.asm.Discard()
			se := ev.Err
			if se == nil {
				se = &ai.StreamError{Kind: ai.ErrorKindProvider, Message: "stream failed"}
			}
			m := build(ai.StopReasonError)
			m.ErrorMessage = se.Message
			return m, reqs, se
		}
	}

	r.asm.Discard()
	if err := ctx.Err(); err != nil {
		return build(ai.StopReasonAborted), nil, err
	}
	return build(ai.StopReasonError), reqs, &ai.StreamError{
		Kind:      ai.ErrorKindTransient,
		Message:   ai.ErrStreamTruncated.Error(),
		Transient: true,
		Cause:     ai.ErrStreamTruncated,
	}
}

// request builds the outbound context: the conversation plus the declared
// tools. Registry tools replace same-named tools from the initial context.
func (r *run) request() ai.Context {
	c := r.s.snapshot()
	specs := r.a.tools.Specs()
	if len(specs) == 0 {
		return c
	}
	declared := make(map[string]bool, len(specs))
	for _, t := range specs {
		declared[t.Name] = true
	}
	for _, t := range c.Tools {
		if !declared[t.Name] {
			specs = append(specs, t)
		}
	}
	c.Tools = specs
	return c
}

// dispatch resolves each request and executes the known tools. Results are
// returned in request order regardless of completion order.
func (r *run) dispatch(ctx context.Context, turn int, reqs []toolcall.Request) []ai.Message {
	tc := tool.Context{
		SessionID: r.s.id,
		Turn:      turn,
		Messages:  r.s.snapshot().Messages,
	}
	if r.a.toolContext != nil {
		tc.Extra = r.a.toolContext()
	}

	results := make([]ai.Message, len(reqs))
	var wg sync.WaitGroup
	for i := range reqs {
		req := reqs[i]
		call := req.Call
		r.send(Event{Type: EventToolCallIssued, Turn: turn, ToolCall: &call})

		if req.Err != nil {
			r.logger.Debug("rejected tool call", "tool", call.Name, "call_id", call.ID, "error", req.Err)
			r.a.metrics.ToolRejected(call.Name)
			results[i] = errorResult(call, req.Err.Error())
			continue
		}
		t, ok := r.a.tools.Get(call.Name)
		if !ok {
			err := &tool.NotFoundError{Name: call.Name}
			r.logger.Debug("unknown tool", "tool", call.Name, "call_id", call.ID)
			r.a.metrics.ToolRejected(call.Name)
			results[i] = errorResult(call, err.Error())
			continue
		}

		r.logger.Debug("scheduling tool", "tool", call.Name, "call_id", call.ID)
		wg.Add(1)
		go func(i int, t tool.Tool, req toolcall.Request) {
			defer wg.Done()
			progress := func(u tool.Update) {
				r.offer(Event{Type: EventToolProgress, Turn: turn, ToolCall: &req.Call, Progress: &u, State: StateDispatching})
			}
			results[i] = r.exec.execute(ctx, t, req, tc, progress)
		}(i, t, req)
	}
	wg.Wait()
	return results
}
