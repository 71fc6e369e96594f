package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/antigravity-dev/home-inventory/internal/config"
	"github.com/antigravity-dev/home-inventory/internal/core"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.API.WorkerToken = "test-token"
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	c := core.New(core.Options{Logger: logger})
	return NewServer(cfg, c, logger)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	srv := setupTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestHandleCreateUpload(t *testing.T) {
	srv := setupTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/v1/receipts/upload-url", core.ReceiptUploadRequest{
		HouseholdID: "hh-1",
		Filename:    "receipt.jpg",
		ContentType: "image/jpeg",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp core.ReceiptUploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ReceiptUploadID == "" || resp.UploadURL == "" {
		t.Errorf("expected a populated upload response, got %+v", resp)
	}
}

func TestHandleCreateUploadMissingHousehold(t *testing.T) {
	srv := setupTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/v1/receipts/upload-url", core.ReceiptUploadRequest{
		Filename: "receipt.jpg",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp core.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error != "invalid_request" {
		t.Errorf("expected invalid_request, got %s", resp.Error)
	}
}

func TestHandleCreateUploadWrongMethod(t *testing.T) {
	srv := setupTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/v1/receipts/upload-url", nil)
	if rec.Code != http.StatusMethodNotAllowed && rec.Code != http.StatusBadRequest {
		t.Fatalf("expected method-not-allowed style rejection, got %d", rec.Code)
	}
}

func TestHandleGetReceiptNotFound(t *testing.T) {
	srv := setupTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/v1/receipts/does-not-exist", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestInternalRouteRequiresWorkerToken(t *testing.T) {
	srv := setupTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/internal/jobs/claim", nil)
	rec := httptest.NewRecorder()
	srv.handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a worker token, got %d", rec.Code)
	}
}

func TestInternalRouteWithWorkerToken(t *testing.T) {
	srv := setupTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/internal/jobs/claim", nil)
	req.Header.Set("x-home-inventory-worker-token", "test-token")
	rec := httptest.NewRecorder()
	srv.handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with a valid worker token, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp core.ClaimJobResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Available {
		t.Errorf("expected no jobs available on an empty queue")
	}
}
