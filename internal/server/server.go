// ABOUTME: Server construction, route wiring, and lifecycle.
// ABOUTME: Auth and CORS wrap the API routes; health stays open.

package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/pve-gateway/internal/auth"
	"github.com/2389/pve-gateway/internal/config"
	"github.com/2389/pve-gateway/internal/provider"
	"github.com/2389/pve-gateway/internal/pve"
	"github.com/2389/pve-gateway/internal/store"
)

// Server is the HTTP front of the gateway.
type Server struct {
	cfg     config.ServerConfig
	gateway *pve.Gateway
	ledger  *store.Ledger
	keys    provider.Keys
	logger  *slog.Logger

	// newCompleter is provider.ForModel in production, replaceable in tests.
	newCompleter func(model, apiKey string) (provider.Completer, error)

	httpServer *http.Server
}

// Options carries the server's collaborators. Ledger and Verifier may be
// nil: no ledger means no audit trail, no verifier means open endpoints.
type Options struct {
	Config   config.ServerConfig
	Gateway  *pve.Gateway
	Ledger   *store.Ledger
	Verifier auth.TokenVerifier
	Keys     provider.Keys
	Logger   *slog.Logger
}

// New wires the server and its routes.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:          opts.Config,
		gateway:      opts.Gateway,
		ledger:       opts.Ledger,
		keys:         opts.Keys,
		logger:       logger.With("component", "server"),
		newCompleter: provider.ForModel,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)

	api := http.NewServeMux()
	api.HandleFunc("/chat", s.handleChat)
	api.HandleFunc("/execute", s.handleExecute)
	mux.Handle("/chat", auth.Middleware(opts.Verifier, logger, api))
	mux.Handle("/execute", auth.Middleware(opts.Verifier, logger, api))

	s.httpServer = &http.Server{
		Addr:              opts.Config.Addr,
		Handler:           withCORS(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the server's root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Shutdown or a listener error. TLS is used when the
// configuration carries a certificate pair.
func (s *Server) Start() error {
	if s.cfg.TLS() {
		s.logger.Info("listening", "addr", s.cfg.Addr, "tls", true)
		return s.httpServer.ListenAndServeTLS(s.cfg.CertFile, s.cfg.KeyFile)
	}
	s.logger.Info("listening", "addr", s.cfg.Addr, "tls", false)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// withCORS adds permissive CORS headers and answers preflight requests. The
// gateway serves browser frontends on other origins (the PVE web UI).
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
