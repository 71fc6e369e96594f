package api

import (
	"net/http"

	"github.com/antigravity-dev/home-inventory/internal/core"
	"github.com/antigravity-dev/home-inventory/internal/coreerr"
)

func (s *Server) handleCreateUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, core.ErrorResponse{Error: "method_not_allowed"})
		return
	}
	var req core.ReceiptUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	res, err := s.core.CreateUpload(core.CreateUploadInput{
		HouseholdID: req.HouseholdID,
		Filename:    req.Filename,
		ContentType: req.ContentType,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, core.ReceiptUploadResponse{
		ReceiptUploadID: res.Upload.ReceiptUploadID,
		UploadURL:       res.UploadURL,
		ExpiresAt:       res.ExpiresAt,
	})
}

func (s *Server) handleEnqueueBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, core.ErrorResponse{Error: "method_not_allowed"})
		return
	}
	var req core.BatchReceiptProcessRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	in := core.EnqueueBatchInput{HouseholdID: req.HouseholdID}
	for _, entry := range req.Receipts {
		in.Receipts = append(in.Receipts, core.BatchReceiptInput{
			Filename:            entry.Filename,
			ContentType:         entry.ContentType,
			OCRText:             entry.OCRText,
			ReceiptImageDataURL: entry.ReceiptImageDataURL,
			MerchantName:        entry.MerchantName,
			PurchasedAt:         entry.PurchasedAt,
			IdempotencyKey:      entry.IdempotencyKey,
		})
	}

	res, err := s.core.EnqueueBatch(in)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	resp := core.BatchReceiptProcessResponse{Accepted: res.Accepted, Rejected: res.Rejected}
	for _, r := range res.Results {
		entry := core.BatchReceiptEntryResult{Accepted: r.Accepted, RejectReason: r.RejectReason, UploadURL: r.UploadURL}
		if r.Upload != nil {
			entry.Receipt = r.Upload
		}
		if r.Job != nil {
			entry.Job = r.Job
		}
		resp.Results = append(resp.Results, entry)
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// routeReceipts dispatches /v1/receipts/{id}[/process|/review].
func (s *Server) routeReceipts(w http.ResponseWriter, r *http.Request) {
	parts := segments(r.URL.Path, "/v1/receipts/")
	if len(parts) == 0 {
		writeJSON(w, http.StatusNotFound, core.ErrorResponse{Error: "not_found"})
		return
	}
	receiptID := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		s.handleGetReceipt(w, r, receiptID)
	case len(parts) == 2 && parts[1] == "process" && r.Method == http.MethodPost:
		s.handleProcessReceipt(w, r, receiptID)
	case len(parts) == 2 && parts[1] == "review" && r.Method == http.MethodPut:
		s.handleReviewReceipt(w, r, receiptID)
	default:
		writeJSON(w, http.StatusNotFound, core.ErrorResponse{Error: "not_found"})
	}
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request, receiptID string) {
	receipt, err := s.core.GetReceipt(receiptID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, core.ReceiptDetailsResponse{Receipt: receipt})
}

func (s *Server) handleProcessReceipt(w http.ResponseWriter, r *http.Request, receiptID string) {
	var req core.ProcessReceiptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	receipt, err := s.core.GetReceipt(receiptID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	job, err := s.core.EnqueueJob(core.EnqueueJobInput{
		HouseholdID:         receipt.HouseholdID,
		ReceiptUploadID:     receiptID,
		OCRText:             req.OCRText,
		MerchantName:        req.MerchantName,
		PurchasedAt:         req.PurchasedAt,
		ReceiptImageDataURL: req.ReceiptImageDataURL,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, core.EnqueueJobResponse{Job: job})
}

func (s *Server) handleReviewReceipt(w http.ResponseWriter, r *http.Request, receiptID string) {
	var req core.ReceiptReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	receipt, err := s.core.GetReceipt(receiptID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if req.Mode != "overwrite" && req.Mode != "append" {
		writeError(w, s.logger, coreerr.Invalid(coreerr.Issue{Path: "mode", Message: "must be overwrite or append"}))
		return
	}
	res, err := s.core.ReviewReceipt(core.ReviewReceiptInput{
		HouseholdID:     receipt.HouseholdID,
		ReceiptUploadID: receiptID,
		Mode:            req.Mode,
		Items:           req.Items,
		IdempotencyKey:  req.IdempotencyKey,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, core.ReceiptReviewResponse{Lots: res.Lots, Events: res.Events})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	parts := segments(r.URL.Path, "/v1/jobs/")
	if len(parts) != 1 {
		writeJSON(w, http.StatusNotFound, core.ErrorResponse{Error: "not_found"})
		return
	}
	job, err := s.core.GetJob(parts[0])
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, core.JobStatusResponse{Job: job})
}
