package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lazypower/caffeine/internal/engine"
	"github.com/lazypower/caffeine/internal/intake"
)

func addIntake(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/intakes", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestAddIntakeCustomAmount(t *testing.T) {
	srv := testServer(t)

	w := addIntake(t, srv, `{"amount_mg":120}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var in intake.Intake
	if err := json.Unmarshal(w.Body.Bytes(), &in); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.ID == "" {
		t.Error("id missing")
	}
	if in.AmountMg != 120 {
		t.Errorf("amount_mg = %v, want 120", in.AmountMg)
	}
	if in.Label != "Custom" {
		t.Errorf("label = %q, want Custom", in.Label)
	}
}

func TestAddIntakeDrink(t *testing.T) {
	srv := testServer(t)

	w := addIntake(t, srv, `{"drink":"Starbucks - Cold Brew (Grande, 16oz)"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var in intake.Intake
	json.Unmarshal(w.Body.Bytes(), &in)
	if in.AmountMg != 205 {
		t.Errorf("amount_mg = %v, want 205", in.AmountMg)
	}
	if in.Label != "Cold Brew (Grande, 16oz)" {
		t.Errorf("label = %q, want short drink label", in.Label)
	}
}

func TestAddIntakeErrors(t *testing.T) {
	srv := testServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"empty", `{}`, http.StatusBadRequest},
		{"unknown drink", `{"drink":"Yerba Mate"}`, http.StatusBadRequest},
		{"zero", `{"amount_mg":0}`, http.StatusUnprocessableEntity},
		{"negative", `{"amount_mg":-50}`, http.StatusUnprocessableEntity},
		{"over cap", `{"amount_mg":1000001}`, http.StatusUnprocessableEntity},
		{"near float max", `{"amount_mg":1e308}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := addIntake(t, srv, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d; body: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/api/intakes", nil))
	var body struct {
		Count int `json:"count"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Count != 0 {
		t.Errorf("rejected requests stored %d intakes", body.Count)
	}
}

func TestSeriesStaysEncodableAtMaxDose(t *testing.T) {
	srv := testServer(t)

	for i := 0; i < 2; i++ {
		if w := addIntake(t, srv, `{"amount_mg":1000000}`); w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
		}
	}

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/api/series", nil))
	var body struct {
		Points []engine.Point `json:"points"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode series: %v; body: %q", err, w.Body.String())
	}
	if len(body.Points) == 0 {
		t.Fatal("series empty")
	}

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/api/level", nil))
	var rd engine.Reading
	if err := json.Unmarshal(w.Body.Bytes(), &rd); err != nil {
		t.Fatalf("decode level: %v; body: %q", err, w.Body.String())
	}
	if rd.LevelMg != 2000000 {
		t.Errorf("level_mg = %v, want 2000000", rd.LevelMg)
	}
}

func TestListIntakes(t *testing.T) {
	srv := testServer(t)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/api/intakes", nil))
	if !strings.Contains(w.Body.String(), `"intakes":[]`) {
		t.Errorf("empty list should encode as [], got %s", w.Body.String())
	}

	addIntake(t, srv, `{"amount_mg":100,"label":"first"}`)
	addIntake(t, srv, `{"amount_mg":50,"label":"second"}`)

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/api/intakes", nil))

	var body struct {
		Count   int             `json:"count"`
		Intakes []intake.Intake `json:"intakes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 2 || len(body.Intakes) != 2 {
		t.Fatalf("count = %d, intakes = %d, want 2", body.Count, len(body.Intakes))
	}
	if body.Intakes[0].Label != "first" || body.Intakes[1].Label != "second" {
		t.Errorf("order = %q, %q", body.Intakes[0].Label, body.Intakes[1].Label)
	}
}

func TestRemoveIntake(t *testing.T) {
	srv := testServer(t)

	var in intake.Intake
	json.Unmarshal(addIntake(t, srv, `{"amount_mg":100}`).Body.Bytes(), &in)

	for _, tc := range []struct {
		id      string
		removed bool
	}{
		{in.ID, true},
		{in.ID, false},
		{"unknown", false},
	} {
		req := httptest.NewRequest("DELETE", "/api/intakes/"+tc.id, nil)
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("DELETE %s: status = %d, want 200", tc.id, w.Code)
		}
		var body map[string]any
		json.Unmarshal(w.Body.Bytes(), &body)
		if body["removed"] != tc.removed {
			t.Errorf("DELETE %s: removed = %v, want %v", tc.id, body["removed"], tc.removed)
		}
	}
}

func TestLevelAndSeries(t *testing.T) {
	srv := testServer(t)

	getLevel := func() float64 {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest("GET", "/api/level", nil))
		var rd engine.Reading
		if err := json.Unmarshal(w.Body.Bytes(), &rd); err != nil {
			t.Fatalf("decode level: %v", err)
		}
		return rd.LevelMg
	}
	getSeries := func() []engine.Point {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest("GET", "/api/series", nil))
		var body struct {
			HalfLife float64        `json:"half_life_hours"`
			Points   []engine.Point `json:"points"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode series: %v", err)
		}
		if body.HalfLife != 5 {
			t.Errorf("half_life_hours = %v, want 5", body.HalfLife)
		}
		return body.Points
	}

	if getLevel() != 0 || len(getSeries()) != 0 {
		t.Fatal("expected empty state before any intake")
	}

	var in intake.Intake
	json.Unmarshal(addIntake(t, srv, `{"amount_mg":100}`).Body.Bytes(), &in)

	if got := getLevel(); got != 100 {
		t.Errorf("level = %v, want 100", got)
	}
	if got := getSeries(); len(got) != 301 {
		t.Errorf("series len = %d, want 301", len(got))
	}

	req := httptest.NewRequest("DELETE", "/api/intakes/"+in.ID, nil)
	srv.ServeHTTP(httptest.NewRecorder(), req)

	if got := getLevel(); got != 0 {
		t.Errorf("level after remove = %v, want 0", got)
	}
	if got := getSeries(); len(got) != 0 {
		t.Errorf("series after remove len = %d, want 0", len(got))
	}
}

func TestLevelStream(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", ts.URL+"/api/level/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	events := make(chan engine.Reading, 8)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			line := sc.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var rd engine.Reading
			if json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &rd) == nil {
				events <- rd
			}
		}
		close(events)
	}()

	next := func() engine.Reading {
		select {
		case rd, ok := <-events:
			if !ok {
				t.Fatal("stream closed")
			}
			return rd
		case <-ctx.Done():
			t.Fatal("timed out waiting for event")
		}
		return engine.Reading{}
	}

	if rd := next(); rd.LevelMg != 0 {
		t.Errorf("initial level = %v, want 0", rd.LevelMg)
	}

	// Wait until the handler has subscribed before mutating.
	deadline := time.Now().Add(2 * time.Second)
	for srv.tracker.Feed().Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	addIntake(t, srv, `{"amount_mg":80,"label":"Red Bull"}`)

	if rd := next(); rd.LevelMg != 80 {
		t.Errorf("streamed level = %v, want 80", rd.LevelMg)
	}
}
