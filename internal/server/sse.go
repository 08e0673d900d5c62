package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/jonathan/linkedin-optimizer/internal/pipeline"
	"github.com/jonathan/linkedin-optimizer/internal/types"
)

// SSE event names
const (
	EventActivity = "activity"
	EventProgress = "progress"
	EventComplete = "complete"
	EventError    = "error"
)

// SSEWriter helps write Server-Sent Events. It is safe for concurrent use.
type SSEWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSE writer
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends an SSE event
func (s *SSEWriter) WriteEvent(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteActivity sends one activity log entry
func (s *SSEWriter) WriteActivity(entry types.ActivityEntry) {
	s.WriteEvent(EventActivity, entry) //nolint:errcheck
}

// WriteProgress sends a stage transition
func (s *SSEWriter) WriteProgress(event pipeline.ProgressEvent) {
	s.WriteEvent(EventProgress, event) //nolint:errcheck
}

// WriteError sends an error event
func (s *SSEWriter) WriteError(message, kind string) {
	payload := map[string]string{"error": message}
	if kind != "" {
		payload["kind"] = kind
	}
	s.WriteEvent(EventError, payload) //nolint:errcheck
}

// WriteComplete sends a completion event carrying the run response
func (s *SSEWriter) WriteComplete(resp runResponse) {
	s.WriteEvent(EventComplete, resp) //nolint:errcheck
}
