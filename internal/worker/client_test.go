package worker

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/antigravity-dev/home-inventory/internal/core"
)

func TestClientClaimJobNoneAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-home-inventory-worker-token") != "secret" {
			t.Errorf("expected worker token header on internal route")
		}
		json.NewEncoder(w).Encode(core.ClaimJobResponse{Available: false})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", 5*time.Second)
	job, ok, err := client.ClaimJob(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if ok || job != nil {
		t.Errorf("expected no job available, got ok=%v job=%+v", ok, job)
	}
}

func TestClientClaimJobAvailable(t *testing.T) {
	want := &core.ReceiptProcessJob{JobID: "job-1", HouseholdID: "hh-1", ReceiptUploadID: "ru-1"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(core.ClaimJobResponse{Job: want, Available: true})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", 5*time.Second)
	job, ok, err := client.ClaimJob(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if !ok || job == nil || job.JobID != "job-1" {
		t.Fatalf("expected job-1 to be claimable, got ok=%v job=%+v", ok, job)
	}
}

func TestClientDoesNotSendWorkerTokenOnPublicRoutes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-home-inventory-worker-token") != "" {
			t.Errorf("expected no worker token header on a /v1/ route")
		}
		json.NewEncoder(w).Encode(core.ReceiptDetailsResponse{Receipt: &core.ReceiptUpload{ReceiptUploadID: "ru-1"}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", 5*time.Second)
	upload, err := client.GetReceipt(t.Context(), "ru-1")
	if err != nil {
		t.Fatal(err)
	}
	if upload.ReceiptUploadID != "ru-1" {
		t.Errorf("expected receipt ru-1, got %+v", upload)
	}
}

func TestClientSubmitResultPropagatesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"conflict"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", 5*time.Second)
	err := client.SubmitResult(t.Context(), "job-1", core.JobResultRequest{})
	if err == nil {
		t.Fatal("expected an error on a non-2xx response")
	}
}
