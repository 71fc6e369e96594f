// Package api provides the HTTP transport for the home-inventory core: JSON
// request binding, routing, and error-kind-to-status-code mapping. It holds
// no domain logic of its own — every handler delegates to internal/core.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/antigravity-dev/home-inventory/internal/config"
	"github.com/antigravity-dev/home-inventory/internal/core"
	"github.com/antigravity-dev/home-inventory/internal/coreerr"
)

// Server is the HTTP API server fronting a core.Core.
type Server struct {
	cfg        *config.Config
	core       *core.Core
	logger     *slog.Logger
	startTime  time.Time
	httpServer *http.Server
	auth       *AuthMiddleware
}

// NewServer creates a new API server bound to a core instance.
func NewServer(cfg *config.Config, c *core.Core, logger *slog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		core:      c,
		logger:    logger,
		startTime: time.Now(),
		auth:      NewAuthMiddleware(cfg.API.WorkerToken, logger),
	}
}

// handler builds the full route table. Split out from Start so tests can
// exercise routes via httptest without binding a real listener.
func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)

	mux.HandleFunc("/v1/receipts/upload-url", s.handleCreateUpload)
	mux.HandleFunc("/v1/receipts/batch/process", s.handleEnqueueBatch)
	mux.HandleFunc("/v1/receipts/", s.routeReceipts)

	mux.HandleFunc("/v1/jobs/", s.handleGetJob)

	mux.HandleFunc("/v1/inventory/", s.routeInventory)

	mux.HandleFunc("/v1/recommendations/", s.routeRecommendations)

	mux.HandleFunc("/v1/checkins/", s.routeCheckins)

	mux.HandleFunc("/v1/shopping-drafts/", s.routeShoppingDrafts)

	mux.HandleFunc("/v1/pantry-health/", s.routePantryHealth)

	mux.HandleFunc("/internal/jobs/claim", s.auth.RequireWorkerToken(s.handleClaimJob))
	mux.HandleFunc("/internal/jobs/", s.auth.RequireWorkerToken(s.routeInternalJobs))

	return mux
}

// Start begins listening on the configured port. Blocks until ctx is
// cancelled, then drains in-flight requests for up to 5s.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", s.cfg.API.Port),
		Handler:     s.handler(),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "port", s.cfg.API.Port)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return coreerr.Wrap(coreerr.InvalidRequest, "malformed JSON body", err)
	}
	return nil
}

// writeError maps a core error to its spec §7 status code and body. Errors
// that are not a *coreerr.Error are treated as unexpected internal failures.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var ce *coreerr.Error
	if !errors.As(err, &ce) {
		logger.Error("unhandled internal error", "error", err)
		writeJSON(w, http.StatusInternalServerError, core.ErrorResponse{Error: "internal_error"})
		return
	}

	var issues []core.ErrorIssue
	for _, i := range ce.Issues {
		issues = append(issues, core.ErrorIssue{Path: i.Path, Message: i.Message})
	}
	writeJSON(w, statusForKind(ce.Kind), core.ErrorResponse{Error: string(ce.Kind), Issues: issues})
}

func statusForKind(kind coreerr.Kind) int {
	switch kind {
	case coreerr.InvalidRequest:
		return http.StatusBadRequest
	case coreerr.Unauthorized:
		return http.StatusUnauthorized
	case coreerr.NotFound, coreerr.HouseholdMismatch:
		return http.StatusNotFound
	case coreerr.Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
