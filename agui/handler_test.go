package agui

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	ai "github.com/spetersoncode/loom"
	"github.com/spetersoncode/loom/agent"
)

func TestHandler(t *testing.T) {
	h := NewHandler(agent.New(scriptedStreamer{}, nil), ai.Model{ID: "test", Provider: "test", Api: "test"}, nil)

	t.Run("streams events", func(t *testing.T) {
		body := `{"thread_id":"t1","run_id":"r1","messages":[{"id":"m1","role":"user","content":"hello"}]}`
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
		out := rec.Body.String()
		assert.Contains(t, out, "event: RUN_STARTED")
		assert.Contains(t, out, "event: TEXT_MESSAGE_CONTENT")
		assert.Contains(t, out, "event: RUN_FINISHED")
	})

	t.Run("rejects GET", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("rejects empty messages", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"messages":[]}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
