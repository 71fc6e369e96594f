package api

import (
	"net/http"

	"github.com/antigravity-dev/home-inventory/internal/core"
)

// routeRecommendations dispatches /v1/recommendations/{id}/... Two distinct
// id spaces share this prefix: {householdId}/daily[/generate],
// {householdId}/weekly[/generate], and {recommendationId}/feedback.
func (s *Server) routeRecommendations(w http.ResponseWriter, r *http.Request) {
	parts := segments(r.URL.Path, "/v1/recommendations/")
	if len(parts) < 2 {
		writeJSON(w, http.StatusNotFound, core.ErrorResponse{Error: "not_found"})
		return
	}
	id := parts[0]

	switch {
	case parts[1] == "daily" && len(parts) == 2 && r.Method == http.MethodGet:
		s.handleLatestDaily(w, r, id)
	case parts[1] == "daily" && len(parts) == 3 && parts[2] == "generate" && r.Method == http.MethodPost:
		s.handleGenerateDaily(w, r, id)
	case parts[1] == "weekly" && len(parts) == 2 && r.Method == http.MethodGet:
		s.handleLatestWeekly(w, r, id)
	case parts[1] == "weekly" && len(parts) == 3 && parts[2] == "generate" && r.Method == http.MethodPost:
		s.handleGenerateWeekly(w, r, id)
	case parts[1] == "feedback" && len(parts) == 2 && r.Method == http.MethodPost:
		s.handleSubmitFeedback(w, r, id)
	default:
		writeJSON(w, http.StatusNotFound, core.ErrorResponse{Error: "not_found"})
	}
}

func (s *Server) handleLatestDaily(w http.ResponseWriter, r *http.Request, hhID string) {
	run, recs, err := s.core.LatestDailyRecommendations(hhID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, core.DailyRecommendationsResponse{Run: run, Recommendations: recs})
}

func (s *Server) handleGenerateDaily(w http.ResponseWriter, r *http.Request, hhID string) {
	var req core.GenerateRunRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	target := s.core.Now()
	if req.TargetDate != nil {
		target = *req.TargetDate
	}
	run, recs, err := s.core.GenerateDailyRun(hhID, target)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, core.DailyRecommendationsResponse{Run: run, Recommendations: recs})
}

func (s *Server) handleLatestWeekly(w http.ResponseWriter, r *http.Request, hhID string) {
	run, recs, err := s.core.LatestWeeklyRecommendations(hhID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, core.WeeklyRecommendationsResponse{Run: run, Recommendations: recs})
}

func (s *Server) handleGenerateWeekly(w http.ResponseWriter, r *http.Request, hhID string) {
	var req core.GenerateRunRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	target := s.core.Now()
	if req.TargetDate != nil {
		target = *req.TargetDate
	}
	run, recs, err := s.core.GenerateWeeklyRun(hhID, target)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, core.WeeklyRecommendationsResponse{Run: run, Recommendations: recs})
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request, recID string) {
	var req core.RecommendationFeedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	fb, err := s.core.SubmitFeedback(core.SubmitFeedbackInput{
		RecommendationID: recID,
		HouseholdID:      req.HouseholdID,
		SignalType:       req.SignalType,
		SignalValue:      req.SignalValue,
		Context:          req.Context,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, core.RecommendationFeedbackResponse{Feedback: fb})
}
