package api

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRequireWorkerTokenRejectsMissingHeader(t *testing.T) {
	auth := NewAuthMiddleware("secret", testLogger())
	called := false
	handler := auth.RequireWorkerToken(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodPost, "/internal/jobs/claim", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if called {
		t.Errorf("expected the wrapped handler not to run")
	}
}

func TestRequireWorkerTokenRejectsWrongToken(t *testing.T) {
	auth := NewAuthMiddleware("secret", testLogger())
	handler := auth.RequireWorkerToken(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/internal/jobs/claim", nil)
	req.Header.Set("x-home-inventory-worker-token", "wrong")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireWorkerTokenRejectsUnconfiguredToken(t *testing.T) {
	auth := NewAuthMiddleware("", testLogger())
	handler := auth.RequireWorkerToken(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/internal/jobs/claim", nil)
	req.Header.Set("x-home-inventory-worker-token", "")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when no token is configured, got %d", rec.Code)
	}
}

func TestRequireWorkerTokenAcceptsMatchingToken(t *testing.T) {
	auth := NewAuthMiddleware("secret", testLogger())
	called := false
	handler := auth.RequireWorkerToken(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/internal/jobs/claim", nil)
	req.Header.Set("x-home-inventory-worker-token", "secret")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !called {
		t.Errorf("expected the wrapped handler to run")
	}
}
