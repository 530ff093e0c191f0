package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lazypower/caffeine/internal/catalog"
	"github.com/lazypower/caffeine/internal/engine"
	"github.com/lazypower/caffeine/internal/intake"
	"github.com/lazypower/caffeine/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

var t0 = time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)

func testServer(t *testing.T) *Server {
	t.Helper()
	clock := func() time.Time { return t0 }
	store := intake.NewStore(clock)
	store.SetLogger(logging.Discard())

	reg := prometheus.NewRegistry()
	tracker, err := engine.NewTracker(store, engine.Options{
		HalfLifeHours:  5,
		SampleInterval: time.Hour,
		Clock:          clock,
		Logger:         logging.Discard(),
		Registerer:     reg,
	})
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	t.Cleanup(tracker.Stop)
	return New(tracker, catalog.Default(), reg, "test-version")
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["version"] != "test-version" {
		t.Errorf("version = %v, want test-version", body["version"])
	}
	if body["half_life_hours"] != 5.0 {
		t.Errorf("half_life_hours = %v, want 5", body["half_life_hours"])
	}
	if body["intakes"] != 0.0 {
		t.Errorf("intakes = %v, want 0", body["intakes"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t)

	add := httptest.NewRequest("POST", "/api/intakes", strings.NewReader(`{"amount_mg":100}`))
	srv.ServeHTTP(httptest.NewRecorder(), add)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body, _ := io.ReadAll(w.Body)
	for _, want := range []string{
		"caffeine_intakes_added_total 1",
		"caffeine_level_mg 100",
		"caffeine_series_generation_seconds_count",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetricsUnmountedWithoutGatherer(t *testing.T) {
	tracker, err := engine.NewTracker(intake.NewStore(nil), engine.Options{Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	srv := New(tracker, nil, nil, "v")

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestDrinksEndpoint(t *testing.T) {
	srv := testServer(t)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/api/drinks", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body struct {
		Count  int             `json:"count"`
		Drinks []catalog.Drink `json:"drinks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Count == 0 || body.Count != len(body.Drinks) {
		t.Errorf("count = %d, drinks = %d", body.Count, len(body.Drinks))
	}
}
