// ABOUTME: Handler tests over httptest: routing, auth, NDJSON streaming.

package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/pve-gateway/internal/auth"
	"github.com/2389/pve-gateway/internal/config"
	"github.com/2389/pve-gateway/internal/orchestrator"
	"github.com/2389/pve-gateway/internal/provider"
	"github.com/2389/pve-gateway/internal/pve"
	"github.com/2389/pve-gateway/internal/store"
)

type stubAPI struct{}

func (stubAPI) Call(_ context.Context, _, path string, _ map[string]string, _ time.Duration) (any, error) {
	if path == "/nodes" {
		return []any{map[string]any{"node": "pve"}}, nil
	}
	return nil, nil
}

type stubRunner struct{}

func (stubRunner) Run(_ context.Context, _ time.Duration, _ string, _ ...string) (string, string, int, error) {
	return "", "", 0, nil
}

type scriptedCompleter struct {
	responses []string
	calls     int
}

func (s *scriptedCompleter) Name() string { return "scripted" }

func (s *scriptedCompleter) Complete(_ context.Context, _ []provider.Message) (string, error) {
	i := s.calls
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.calls++
	return s.responses[i], nil
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.Gateway == nil {
		api := stubAPI{}
		opts.Gateway = pve.NewGateway(api, stubRunner{}, pve.NewCache(api, pve.SnapshotTTL, nil), pve.DefaultBudgets(), nil)
	}
	if opts.Config.Addr == "" {
		opts.Config = config.ServerConfig{Addr: ":0"}
	}
	return New(opts)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Options{})
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, Options{})
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/chat", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestExecuteValidation(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/execute", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing action")

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/execute", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/execute", strings.NewReader(`{"action": "reboot_host"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unknown action")
}

func TestExecuteRunsAction(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := httptest.NewRecorder()
	body := `{"action": "list_vms", "params": {}}`
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/execute", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var result pve.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
}

func TestChatRequiresModelAndKey(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"messages": []}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing model or api_key")
}

func TestChatStreamsNDJSON(t *testing.T) {
	s := newTestServer(t, Options{})
	s.newCompleter = func(model, apiKey string) (provider.Completer, error) {
		return &scriptedCompleter{responses: []string{
			`<tool_call>{"action": "list_vms", "params": {}}</tool_call>`,
			`All done here.`,
		}}, nil
	}

	rec := httptest.NewRecorder()
	body := `{"model": "gpt-5.2", "api_key": "sk-test", "messages": [{"role": "user", "content": "list vms"}]}`
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))

	var events []orchestrator.Event
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		var e orchestrator.Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e), scanner.Text())
		events = append(events, e)
	}
	require.NotEmpty(t, events)

	assert.Equal(t, orchestrator.EventStatus, events[0].Type)
	assert.Equal(t, "Reading server state...", events[0].Message)

	last := events[len(events)-1]
	assert.Equal(t, orchestrator.EventDone, last.Type)
	assert.Equal(t, "All done here.", last.Response)
}

func TestChatRecordsToLedger(t *testing.T) {
	ledger, err := store.Open(filepath.Join(t.TempDir(), "actions.db"))
	require.NoError(t, err)
	defer ledger.Close()

	s := newTestServer(t, Options{Ledger: ledger})
	s.newCompleter = func(model, apiKey string) (provider.Completer, error) {
		return &scriptedCompleter{responses: []string{
			`<tool_call>{"action": "list_containers", "params": {}}</tool_call>`,
			`Done.`,
		}}, nil
	}

	rec := httptest.NewRecorder()
	body := `{"model": "gpt-5.2", "api_key": "sk-test", "messages": [{"role": "user", "content": "go"}]}`
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	entries, err := ledger.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "list_containers", entries[0].Action)
	assert.True(t, entries[0].Success)
}

func TestChatUnknownModelRejected(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := httptest.NewRecorder()
	body := `{"model": "llama-3", "api_key": "k", "messages": []}`
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown model")
}

func TestAuthGuardsAPIButNotHealth(t *testing.T) {
	verifier := auth.NewJWTVerifier([]byte("test-secret"))
	s := newTestServer(t, Options{Verifier: verifier})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	token, err := verifier.Generate("frontend", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/execute", strings.NewReader(`{"action": "list_vms"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChatFallsBackToConfiguredKey(t *testing.T) {
	s := newTestServer(t, Options{Keys: provider.Keys{OpenAI: "sk-configured"}})

	var gotKey string
	s.newCompleter = func(model, apiKey string) (provider.Completer, error) {
		gotKey = apiKey
		return &scriptedCompleter{responses: []string{`Done.`}}, nil
	}

	rec := httptest.NewRecorder()
	body := `{"model": "gpt-5.2", "messages": [{"role": "user", "content": "hi"}]}`
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sk-configured", gotKey)
}
