package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/medibook-dev/medibook/internal/api"
	"github.com/medibook-dev/medibook/internal/auth"
	"github.com/medibook-dev/medibook/internal/backup"
	"github.com/medibook-dev/medibook/internal/payment"
	"github.com/medibook-dev/medibook/internal/store"
	"github.com/medibook-dev/medibook/internal/undo"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	backups, err := backup.NewManager(t.TempDir(), st)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	h := &api.Handler{
		Store:    st,
		Engine:   undo.NewEngine(st, backups),
		Payments: payment.NewVerifier("secret"),
	}
	gate := &auth.Handler{Username: "admin", Password: "admin"}
	return New(h, gate, "session-secret")
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t)

	req, _ := http.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("Expected OK, got %q", w.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t)

	req, _ := http.NewRequest("OPTIONS", "/api/appointments", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != 204 {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS headers on preflight")
	}
}

func TestUnknownRoute(t *testing.T) {
	r := newTestRouter(t)

	req, _ := http.NewRequest("GET", "/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestAdminRoutesAreGated(t *testing.T) {
	r := newTestRouter(t)

	gated := []struct {
		method, path string
	}{
		{"GET", "/api/appointments"},
		{"GET", "/api/feedbacks"},
		{"GET", "/api/payments"},
		{"DELETE", "/api/appointments"},
		{"DELETE", "/api/feedbacks"},
		{"POST", "/api/appointments/undo"},
		{"POST", "/api/feedbacks/undo"},
		{"PATCH", "/api/appointments/some-id"},
		{"GET", "/api/admin/logout"},
	}
	for _, route := range gated {
		req, _ := http.NewRequest(route.method, route.path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s expected 401, got %d", route.method, route.path, w.Code)
		}
	}
}

func TestPublicRoutesAreOpen(t *testing.T) {
	r := newTestRouter(t)

	// No session required; a bad body is a 400, not a 401.
	req, _ := http.NewRequest("POST", "/api/appointment", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("Public submission should not require a session")
	}
}
