package api

import (
	"net/http"

	"github.com/antigravity-dev/home-inventory/internal/core"
)

// routeCheckins dispatches /v1/checkins/{householdId}/pending and
// /v1/checkins/{checkinId}/submit.
func (s *Server) routeCheckins(w http.ResponseWriter, r *http.Request) {
	parts := segments(r.URL.Path, "/v1/checkins/")
	if len(parts) != 2 {
		writeJSON(w, http.StatusNotFound, core.ErrorResponse{Error: "not_found"})
		return
	}
	id := parts[0]

	switch {
	case parts[1] == "pending" && r.Method == http.MethodGet:
		s.handlePendingCheckins(w, r, id)
	case parts[1] == "submit" && r.Method == http.MethodPost:
		s.handleSubmitCheckin(w, r, id)
	default:
		writeJSON(w, http.StatusNotFound, core.ErrorResponse{Error: "not_found"})
	}
}

func (s *Server) handlePendingCheckins(w http.ResponseWriter, r *http.Request, hhID string) {
	checkins := s.core.ListPendingCheckins(hhID)
	writeJSON(w, http.StatusOK, core.MealCheckinPendingResponse{Checkins: checkins})
}

func (s *Server) handleSubmitCheckin(w http.ResponseWriter, r *http.Request, checkinID string) {
	var req core.MealCheckinSubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	res, err := s.core.SubmitMealCheckin(checkinID, core.SubmitMealCheckinInput{
		HouseholdID:    req.HouseholdID,
		Outcome:        req.Outcome,
		Lines:          req.Lines,
		Notes:          req.Notes,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, core.MealCheckinSubmitResponse{Checkin: res.Checkin, EventsCreated: res.EventsCreated})
}
