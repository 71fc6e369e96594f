package api

import (
	"log/slog"
	"net/http"
)

// workerTokenHeader is the header every /internal/* route requires, per
// spec §6: "All /internal/* require header x-home-inventory-worker-token".
const workerTokenHeader = "x-home-inventory-worker-token"

// AuthMiddleware gates /internal/* routes behind a shared worker token.
// There is no per-caller identity here — the worker fleet is trusted as a
// single principal, same as the token the extraction worker presents.
type AuthMiddleware struct {
	token  string
	logger *slog.Logger
}

// NewAuthMiddleware builds a middleware checking requests against token.
func NewAuthMiddleware(token string, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{token: token, logger: logger}
}

// RequireWorkerToken wraps next, rejecting requests whose worker-token
// header does not match the configured token with 401 unauthorized.
func (a *AuthMiddleware) RequireWorkerToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(workerTokenHeader)
		if a.token == "" || got == "" || got != a.token {
			a.logger.Warn("rejected internal request: bad worker token", "path", r.URL.Path, "remote", r.RemoteAddr)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}
