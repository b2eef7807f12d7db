package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/caseprep/interview-live/internal/handler/live"
	"github.com/caseprep/interview-live/internal/provider"
	"github.com/caseprep/interview-live/internal/script"
	"github.com/caseprep/interview-live/internal/service/dialogue"
	"github.com/caseprep/interview-live/internal/service/recording"
	"github.com/caseprep/interview-live/internal/service/registry"
	ttsService "github.com/caseprep/interview-live/internal/service/tts"
	"github.com/caseprep/interview-live/internal/store"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()

	resolver := script.NewResolver(script.NewMemoryStore(script.Seed()))
	orch := dialogue.New(resolver, provider.NewSelector(nil, nil), ttsService.Discard{}, store.NewMemoryStore())
	liveHandler := live.New(registry.New(), orch, resolver, nil, nil, recording.Discard{})

	return NewRouter(liveHandler, t.TempDir())
}

func TestPing(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected status %q", body["status"])
	}
}

func TestCORSPreflight(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS allow-origin header")
	}
}

func TestUnknownRoute(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestLiveRequiresToken(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/live", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
