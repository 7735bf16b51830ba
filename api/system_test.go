package api_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/garnizeh/trailblazers/api"
)

type downDB struct{}

func (downDB) Ping(ctx context.Context) error { return errors.New("down") }

func TestSystemHandlers(t *testing.T) {
	h := &api.SystemHandler{}

	// HealthHandler
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.HealthHandler(w, req)
	res := w.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health: expected 200 got %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("health: expected json content-type, got %q", ct)
	}
	b, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(b), `"status":"ok"`) {
		t.Fatalf("health: unexpected body %s", string(b))
	}

	// VersionHandler
	w = httptest.NewRecorder()
	h.VersionHandler("1.2.3", "today")(w, httptest.NewRequest(http.MethodGet, "/version", nil))
	if body := w.Body.String(); !strings.Contains(body, `"version":"1.2.3"`) || !strings.Contains(body, `"buildTime":"today"`) {
		t.Fatalf("version: unexpected body %s", body)
	}
}

func TestHealthUnavailable(t *testing.T) {
	h := api.NewSystemHandler(downDB{})
	w := httptest.NewRecorder()
	h.HealthHandler(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}
