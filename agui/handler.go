package agui

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/agent"
	"github.com/spetersoncode/loom/internal/logging"
)

// Handler runs an agent for AG-UI requests and streams the events as SSE.
// Each request runs in its own session.
type Handler struct {
	agent  *agent.Agent
	model  ai.Model
	logger *slog.Logger
}

// NewHandler creates a Handler running model. A nil logger discards logs.
func NewHandler(a *agent.Agent, model ai.Model, logger *slog.Logger) *Handler {
	return &Handler{agent: a, model: model, logger: logging.OrDiscard(logger)}
}

// ServeHTTP accepts a POSTed RunAgentInput.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var input RunAgentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid request body", "error", err)
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	log := h.logger.With("run_id", input.RunID, "thread_id", input.ThreadID)

	c, err := input.Prepare()
	if err != nil {
		log.Warn("invalid input", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("streaming not supported")
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	sess := h.agent.NewSession(h.model, c)
	defer sess.Close()

	agentEvents, err := sess.Continue(r.Context())
	if err != nil {
		log.Warn("cannot start run", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	log.Info("request started", "message_count", len(c.Messages))

	var count int
	mapped := input.Mapper().MapStream(agentEvents)
	for ev := range mapped {
		count++
		if err := writeSSE(w, flusher, ev); err != nil {
			log.Error("failed to write SSE event", "error", err, "event_type", ev.Type())
			sess.Close()
			// Drain so the session's loop can finish.
			for range mapped {
			}
			return
		}
	}

	log.Info("request completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"events_sent", count,
	)
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev events.Event) error {
	data, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type(), data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	flusher.Flush()
	return nil
}
