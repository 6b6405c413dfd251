package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sajadtroy/lachu/internal/lachu/app"
)

type fakeStatus struct {
	pingErr error
	count   int
}

func (f *fakeStatus) Ping(context.Context) error { return f.pingErr }
func (f *fakeStatus) HistoryMessageCount(context.Context) (int, error) {
	return f.count, nil
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	if w.Body.Len() > 0 {
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return w, body
}

func TestHealthServer_Health(t *testing.T) {
	hs := app.NewHealthServer("127.0.0.1:0", &fakeStatus{}, app.StatusInfo{})

	w, body := get(t, hs, "/health")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestHealthServer_Status(t *testing.T) {
	hs := app.NewHealthServer("127.0.0.1:0", &fakeStatus{count: 6}, app.StatusInfo{
		Model:          "qwen-qwq-32b",
		HistoryEnabled: true,
		BotUserID:      "@lachu:example.org",
	})

	w, body := get(t, hs, "/status")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body["model"] != "qwen-qwq-32b" || body["history_enabled"] != true || body["bot_user_id"] != "@lachu:example.org" {
		t.Errorf("status body = %v", body)
	}
	if int(body["history_messages"].(float64)) != 6 {
		t.Errorf("history_messages = %v", body["history_messages"])
	}
}

func TestHealthServer_StatusDegradedWhenDatabaseDown(t *testing.T) {
	hs := app.NewHealthServer("127.0.0.1:0", &fakeStatus{pingErr: errors.New("database is locked")}, app.StatusInfo{})

	w, body := get(t, hs, "/status")

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if body["status"] != "degraded" || body["database"] != "database is locked" {
		t.Errorf("status body = %v", body)
	}
}

func TestHealthServer_UnknownRouteAndMethod(t *testing.T) {
	hs := app.NewHealthServer("127.0.0.1:0", nil, app.StatusInfo{})

	w := httptest.NewRecorder()
	hs.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("GET /nope = %d, want 404", w.Code)
	}

	w = httptest.NewRecorder()
	hs.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /health = %d, want 405", w.Code)
	}
}
