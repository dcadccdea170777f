// ABOUTME: NDJSON event sink over a streaming HTTP response.
// ABOUTME: First write failure latches; the session sees a gone client.

package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/2389/pve-gateway/internal/orchestrator"
)

type ndjsonSink struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	gone    bool
}

func newNDJSONSink(w http.ResponseWriter, flusher http.Flusher) *ndjsonSink {
	return &ndjsonSink{w: w, flusher: flusher}
}

// Emit writes one event as a JSON line and flushes it immediately so the
// frontend renders progress live. A write error marks the client gone;
// every later Emit fails without touching the connection again.
func (s *ndjsonSink) Emit(e orchestrator.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gone {
		return orchestrator.ErrClientGone
	}

	line, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(append(line, '\n')); err != nil {
		s.gone = true
		return orchestrator.ErrClientGone
	}
	s.flusher.Flush()
	return nil
}
