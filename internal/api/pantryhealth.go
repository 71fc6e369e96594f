package api

import (
	"net/http"

	"github.com/antigravity-dev/home-inventory/internal/core"
)

// routePantryHealth dispatches /v1/pantry-health/{householdId}[?refresh=1]
// and /v1/pantry-health/{householdId}/history.
func (s *Server) routePantryHealth(w http.ResponseWriter, r *http.Request) {
	parts := segments(r.URL.Path, "/v1/pantry-health/")
	if len(parts) == 0 || r.Method != http.MethodGet {
		writeJSON(w, http.StatusNotFound, core.ErrorResponse{Error: "not_found"})
		return
	}
	hhID := parts[0]

	switch {
	case len(parts) == 1:
		s.handlePantryHealth(w, r, hhID)
	case len(parts) == 2 && parts[1] == "history":
		s.handlePantryHealthHistory(w, r, hhID)
	default:
		writeJSON(w, http.StatusNotFound, core.ErrorResponse{Error: "not_found"})
	}
}

// handlePantryHealth returns the latest recorded score, computing a fresh
// one (and appending it to history) when ?refresh=1 is set or none exists
// yet.
func (s *Server) handlePantryHealth(w http.ResponseWriter, r *http.Request, hhID string) {
	refresh := r.URL.Query().Get("refresh") == "1"
	history := s.core.PantryHealthHistory(hhID)

	if !refresh && len(history) > 0 {
		writeJSON(w, http.StatusOK, history[len(history)-1])
		return
	}

	score, err := s.core.ComputePantryHealth(hhID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (s *Server) handlePantryHealthHistory(w http.ResponseWriter, r *http.Request, hhID string) {
	history := s.core.PantryHealthHistory(hhID)
	writeJSON(w, http.StatusOK, core.PantryHealthHistoryResponse{History: history})
}
