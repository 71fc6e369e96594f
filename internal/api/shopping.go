package api

import (
	"net/http"

	"github.com/antigravity-dev/home-inventory/internal/core"
	"github.com/antigravity-dev/home-inventory/internal/coreerr"
)

// routeShoppingDrafts dispatches /v1/shopping-drafts/{householdId}/generate,
// /v1/shopping-drafts/{householdId}/latest, and the draft-scoped
// /v1/shopping-drafts/{draftId}/items|finalize routes.
func (s *Server) routeShoppingDrafts(w http.ResponseWriter, r *http.Request) {
	parts := segments(r.URL.Path, "/v1/shopping-drafts/")
	if len(parts) != 2 {
		writeJSON(w, http.StatusNotFound, core.ErrorResponse{Error: "not_found"})
		return
	}
	id := parts[0]

	switch {
	case parts[1] == "generate" && r.Method == http.MethodPost:
		s.handleGenerateShoppingDraft(w, r, id)
	case parts[1] == "latest" && r.Method == http.MethodGet:
		s.handleLatestShoppingDraft(w, r, id)
	case parts[1] == "items" && r.Method == http.MethodPatch:
		s.handlePatchShoppingDraftItems(w, r, id)
	case parts[1] == "finalize" && r.Method == http.MethodPost:
		s.handleFinalizeShoppingDraft(w, r, id)
	default:
		writeJSON(w, http.StatusNotFound, core.ErrorResponse{Error: "not_found"})
	}
}

func (s *Server) handleGenerateShoppingDraft(w http.ResponseWriter, r *http.Request, hhID string) {
	var req core.ShoppingDraftGenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	draft, err := s.core.GenerateShoppingDraft(core.GenerateShoppingDraftInput{
		HouseholdID: hhID,
		WeekOf:      req.WeekOf,
		Regenerate:  req.Regenerate,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, core.ShoppingDraftResponse{Draft: draft})
}

func (s *Server) handleLatestShoppingDraft(w http.ResponseWriter, r *http.Request, hhID string) {
	draft, err := s.core.LatestShoppingDraft(hhID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, core.ShoppingDraftResponse{Draft: draft})
}

func (s *Server) handlePatchShoppingDraftItems(w http.ResponseWriter, r *http.Request, draftID string) {
	var req core.PatchShoppingDraftItemsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	items := make([]core.ShoppingDraftItemPatch, 0, len(req.Items))
	for _, p := range req.Items {
		items = append(items, core.ShoppingDraftItemPatch{DraftItemID: p.DraftItemID, Status: p.Status, Quantity: p.Quantity})
	}

	res, err := s.core.PatchShoppingDraftItems(core.PatchShoppingDraftItemsInput{
		DraftID:        draftID,
		HouseholdID:    req.HouseholdID,
		Items:          items,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, core.PatchShoppingDraftItemsResponse{Draft: res.Draft, Updated: res.Updated})
}

func (s *Server) handleFinalizeShoppingDraft(w http.ResponseWriter, r *http.Request, draftID string) {
	hhID := r.URL.Query().Get("householdId")
	if hhID == "" {
		writeError(w, s.logger, coreerr.Invalid(coreerr.Issue{Path: "householdId", Message: "required"}))
		return
	}
	draft, err := s.core.FinalizeShoppingDraft(draftID, hhID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, core.ShoppingDraftResponse{Draft: draft})
}
