// ABOUTME: Request handlers: chat session streaming, direct execute, health.
// ABOUTME: Chat responses are NDJSON; everything else is plain JSON.

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/2389/pve-gateway/internal/orchestrator"
	"github.com/2389/pve-gateway/internal/provider"
	"github.com/2389/pve-gateway/internal/pve"
)

type chatRequest struct {
	Model    string             `json:"model"`
	APIKey   string             `json:"api_key"`
	Messages []provider.Message `json:"messages"`
}

type executeRequest struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "PVE Gateway is running",
	})
}

// handleExecute runs one action directly, for frontend controls (stop,
// delete) that do not involve the model.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if req.Action == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing action"})
		return
	}
	if !pve.Known(req.Action) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Unknown action: " + req.Action})
		return
	}

	result := s.gateway.Execute(r.Context(), req.Action, req.Params)
	writeJSON(w, http.StatusOK, result)
}

// handleChat runs a full orchestration session, streaming progress as NDJSON.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if req.APIKey == "" {
		req.APIKey = s.keys.For(req.Model)
	}
	if req.Model == "" || req.APIKey == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing model or api_key"})
		return
	}

	completer, err := s.newCompleter(req.Model, req.APIKey)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.logger.Error("streaming not supported")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	var recorder orchestrator.Recorder
	if s.ledger != nil {
		recorder = &ledgerRecorder{ledger: s.ledger, logger: s.logger}
	}

	sess := orchestrator.NewSession(s.gateway, completer, recorder, s.logger)
	sink := newNDJSONSink(w, flusher)

	if err := sess.Run(r.Context(), req.Messages, sink); err != nil {
		if errors.Is(err, orchestrator.ErrClientGone) {
			s.logger.Info("client disconnected", "session_id", sess.ID)
			return
		}
		// Provider errors were already emitted as error events.
		s.logger.Warn("session failed", "session_id", sess.ID, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
