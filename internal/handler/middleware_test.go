package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/scheduler"
)

func TestAPIKeyAuthDisabledWithoutKey(t *testing.T) {
	r := newTestRouter(handlerFakes{fetch: &fakeFetch{state: scheduler.StateIdle, queued: true}})
	w := doRequest(t, r, http.MethodPost, "/api/fetch")
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected open access without key, got %d", w.Code)
	}
}

func TestAPIKeyAuthMissingHeader(t *testing.T) {
	r := newTestRouter(handlerFakes{apiKey: "secret"})
	w := doRequest(t, r, http.MethodPost, "/api/fetch")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without header, got %d", w.Code)
	}
}

func TestAPIKeyAuthWrongKey(t *testing.T) {
	r := newTestRouter(handlerFakes{apiKey: "secret"})
	req := httptest.NewRequest(http.MethodPost, "/api/scheduler/stop", nil)
	req.Header.Set("X-API-Key", "guess")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with wrong key, got %d", w.Code)
	}
}

func TestAPIKeyAuthCorrectKey(t *testing.T) {
	fetch := &fakeFetch{state: scheduler.StateIdle, queued: true}
	r := newTestRouter(handlerFakes{fetch: fetch, apiKey: "secret"})
	req := httptest.NewRequest(http.MethodPost, "/api/fetch", nil)
	req.Header.Set("X-API-Key", "secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202 with valid key, got %d", w.Code)
	}
}

func TestAPIKeyAuthLeavesReadsOpen(t *testing.T) {
	r := newTestRouter(handlerFakes{apiKey: "secret"})
	w := doRequest(t, r, http.MethodGet, "/api/signals")
	if w.Code != http.StatusOK {
		t.Fatalf("read endpoints must stay open, got %d", w.Code)
	}
}
