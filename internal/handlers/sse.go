package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// sseSink writes named server-sent events. Comparison slots send from
// several goroutines at once, so every write holds the mutex.
type sseSink struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

// startSSE sets the stream headers and wraps the writer. The middleware
// chain preserves http.Flusher, so a failure here means the server is
// running on a transport that cannot stream at all.
func startSSE(w http.ResponseWriter) (*sseSink, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &sseSink{w: w, flusher: flusher}, nil
}

// Send marshals data and emits one "event:/data:" frame, flushing so the
// client sees it immediately. A write error means the client is gone.
func (s *sseSink) Send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
