package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/agent"
)

const transcriptPrefix = "transcript/"

// Transcript is the persisted state of a session.
type Transcript struct {
	ID        string     `json:"id"`
	Model     string     `json:"model"`
	Context   ai.Context `json:"context"`
	Usage     ai.Usage   `json:"usage"`
	Turns     int        `json:"turns"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// FromSession captures the current state of sess.
func FromSession(sess *agent.Session) Transcript {
	return Transcript{
		ID:      sess.ID(),
		Model:   sess.Model().String(),
		Context: sess.Context(),
		Usage:   sess.Usage(),
		Turns:   sess.Turns(),
	}
}

// Transcripts saves and loads transcripts through an Adapter.
type Transcripts struct {
	adapter Adapter
}

// NewTranscripts creates a transcript store. A nil adapter keeps
// transcripts in memory.
func NewTranscripts(adapter Adapter) *Transcripts {
	if adapter == nil {
		adapter = NewMemoryAdapter()
	}
	return &Transcripts{adapter: adapter}
}

// Save stores t under id.
func (s *Transcripts) Save(ctx context.Context, id string, t Transcript) error {
	t.ID = id
	t.UpdatedAt = time.Now()
	raw, err := json.Marshal(t)
	if err != nil {
		return &SerializationError{Key: id, Err: err}
	}
	return s.adapter.Set(ctx, transcriptPrefix+id, raw)
}

// Load returns the transcript stored under id. ok is false when none
// exists.
func (s *Transcripts) Load(ctx context.Context, id string) (t Transcript, ok bool, err error) {
	raw, ok, err := s.adapter.Get(ctx, transcriptPrefix+id)
	if err != nil || !ok {
		return Transcript{}, ok, err
	}
	if err := json.Unmarshal(raw, &t); err != nil {
		return Transcript{}, false, &SerializationError{Key: id, Err: err}
	}
	return t, true, nil
}

// Delete removes the transcript stored under id.
func (s *Transcripts) Delete(ctx context.Context, id string) error {
	return s.adapter.Delete(ctx, transcriptPrefix+id)
}

// IDs lists the stored transcript ids.
func (s *Transcripts) IDs(ctx context.Context) ([]string, error) {
	keys, err := s.adapter.Keys(ctx)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, k := range keys {
		if id, ok := strings.CutPrefix(k, transcriptPrefix); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Resume creates a session continuing the conversation stored under id,
// or starting from base when there is none. ok reports whether a
// transcript was found. The session starts its own turn and usage
// counters.
func (s *Transcripts) Resume(ctx context.Context, a *agent.Agent, model ai.Model, id string, base ai.Context) (sess *agent.Session, ok bool, err error) {
	t, ok, err := s.Load(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return a.NewSession(model, base), false, nil
	}
	return a.NewSession(model, t.Context), true, nil
}
