// ABOUTME: HTTP middleware enforcing Bearer token authentication.
// ABOUTME: Preflight requests pass through so CORS keeps working.

package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// Middleware wraps a handler with Bearer token verification. A nil verifier
// disables authentication entirely.
func Middleware(verifier TokenVerifier, logger *slog.Logger, next http.Handler) http.Handler {
	if verifier == nil {
		return next
	}
	if logger == nil {
		logger = slog.Default()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			unauthorized(w, "missing bearer token")
			return
		}

		principal, err := verifier.Verify(token)
		if err != nil {
			logger.Warn("rejected request", "path", r.URL.Path, "error", err)
			unauthorized(w, "invalid token")
			return
		}

		r.Header.Set("X-Principal", principal)
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
