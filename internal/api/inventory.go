package api

import (
	"net/http"

	"github.com/antigravity-dev/home-inventory/internal/core"
	"github.com/antigravity-dev/home-inventory/internal/coreerr"
)

// routeInventory dispatches /v1/inventory/{householdId}[/manual-items |
// /lots/{lotId}/expiry | /expiry-risk].
func (s *Server) routeInventory(w http.ResponseWriter, r *http.Request) {
	parts := segments(r.URL.Path, "/v1/inventory/")
	if len(parts) == 0 {
		writeJSON(w, http.StatusNotFound, core.ErrorResponse{Error: "not_found"})
		return
	}
	hhID := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		s.handleInventorySnapshot(w, r, hhID)
	case len(parts) == 2 && parts[1] == "manual-items" && r.Method == http.MethodPost:
		s.handleAddManualItems(w, r, hhID)
	case len(parts) == 2 && parts[1] == "expiry-risk" && r.Method == http.MethodGet:
		s.handleExpiryRisk(w, r, hhID)
	case len(parts) == 4 && parts[1] == "lots" && parts[3] == "expiry" && r.Method == http.MethodPost:
		s.handleOverrideLotExpiry(w, r, hhID, parts[2])
	default:
		writeJSON(w, http.StatusNotFound, core.ErrorResponse{Error: "not_found"})
	}
}

func (s *Server) handleInventorySnapshot(w http.ResponseWriter, r *http.Request, hhID string) {
	lots := s.core.ListLots(hhID)
	events := s.core.ListEvents(hhID)
	writeJSON(w, http.StatusOK, core.InventorySnapshotResponse{Lots: lots, Events: events})
}

func (s *Server) handleAddManualItems(w http.ResponseWriter, r *http.Request, hhID string) {
	var req core.ManualInventoryEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	res, err := s.core.AddManualItems(hhID, req.Items)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, core.ManualInventoryEntryResponse{Lots: res.Lots, Events: res.Events})
}

func (s *Server) handleOverrideLotExpiry(w http.ResponseWriter, r *http.Request, hhID, lotID string) {
	var req core.LotExpiryOverrideRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if req.ExpiresAt.IsZero() {
		writeError(w, s.logger, coreerr.Invalid(coreerr.Issue{Path: "expiresAt", Message: "required"}))
		return
	}
	lot, err := s.core.OverrideLotExpiry(hhID, lotID, req.ExpiresAt)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, core.LotExpiryOverrideResponse{Lot: lot})
}

func (s *Server) handleExpiryRisk(w http.ResponseWriter, r *http.Request, hhID string) {
	items := s.core.ExpiryRiskSnapshot(hhID)
	writeJSON(w, http.StatusOK, core.ExpiryRiskResponse{Items: items})
}
