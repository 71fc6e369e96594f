package api

import (
	"net/http"

	"github.com/antigravity-dev/home-inventory/internal/core"
)

func (s *Server) handleClaimJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, core.ErrorResponse{Error: "method_not_allowed"})
		return
	}
	job, ok := s.core.ClaimNextJob()
	writeJSON(w, http.StatusOK, core.ClaimJobResponse{Job: job, Available: ok})
}

// routeInternalJobs dispatches /internal/jobs/{jobId}/result|complete|fail.
func (s *Server) routeInternalJobs(w http.ResponseWriter, r *http.Request) {
	parts := segments(r.URL.Path, "/internal/jobs/")
	if len(parts) != 2 || r.Method != http.MethodPost {
		writeJSON(w, http.StatusNotFound, core.ErrorResponse{Error: "not_found"})
		return
	}
	jobID, action := parts[0], parts[1]

	switch action {
	case "result":
		s.handleJobResult(w, r, jobID)
	case "complete":
		s.handleJobComplete(w, r, jobID)
	case "fail":
		s.handleJobFail(w, r, jobID)
	default:
		writeJSON(w, http.StatusNotFound, core.ErrorResponse{Error: "not_found"})
	}
}

func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request, jobID string) {
	var req core.JobResultRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	job, err := s.core.SubmitJobResult(jobID, req.Items, req.OCRText, req.MerchantName, req.PurchasedAt, req.Notes)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, core.JobResultResponse{Job: job})
}

// handleJobComplete acknowledges a job already marked completed by
// handleJobResult; it never re-applies ledger mutations.
func (s *Server) handleJobComplete(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := s.core.GetJob(jobID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, core.JobResultResponse{Job: job})
}

func (s *Server) handleJobFail(w http.ResponseWriter, r *http.Request, jobID string) {
	var req core.JobFailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	job, err := s.core.FailJob(jobID, req.Error)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, core.JobResultResponse{Job: job})
}
