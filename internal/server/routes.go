package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lazypower/caffeine/internal/catalog"
	"github.com/lazypower/caffeine/internal/engine"
	"github.com/lazypower/caffeine/internal/intake"
)

func (s *Server) handleListIntakes(w http.ResponseWriter, r *http.Request) {
	intakes := s.tracker.Intakes()
	if intakes == nil {
		intakes = []intake.Intake{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(intakes),
		"intakes": intakes,
	})
}

func (s *Server) handleAddIntake(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AmountMg *float64 `json:"amount_mg"`
		Label    string   `json:"label"`
		Drink    string   `json:"drink"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	// A custom amount wins over a drink selection.
	var amount float64
	label := strings.TrimSpace(req.Label)
	switch {
	case req.AmountMg != nil:
		amount = *req.AmountMg
		if label == "" {
			label = catalog.CustomLabel
		}
	case req.Drink != "":
		d, ok := s.drinks.Lookup(req.Drink)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown drink %q", req.Drink))
			return
		}
		amount = d.Mg
		if label == "" {
			label = d.Label()
		}
	default:
		writeError(w, http.StatusBadRequest, "amount_mg or drink required")
		return
	}

	in, ok := s.tracker.AddIntake(amount, label)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, intake.ErrInvalidAmount.Error())
		return
	}
	writeJSON(w, http.StatusCreated, in)
}

func (s *Server) handleRemoveIntake(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "intakeID")
	removed := s.tracker.RemoveIntake(id)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"removed": removed,
	})
}

func (s *Server) handleLevel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Reading())
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	points := s.tracker.Series()
	if points == nil {
		points = []engine.Point{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"half_life_hours": s.tracker.HalfLife(),
		"points":          points,
	})
}

// handleLevelStream pushes every live reading as a server-sent event until
// the client goes away.
func (s *Server) handleLevelStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	readings, cancel := s.tracker.Feed().Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(rd engine.Reading) error {
		data, err := json.Marshal(rd)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: level\ndata: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := send(s.tracker.Reading()); err != nil {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case rd, ok := <-readings:
			if !ok {
				return
			}
			if err := send(rd); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleDrinks(w http.ResponseWriter, r *http.Request) {
	drinks := s.drinks.Drinks()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(drinks),
		"drinks": drinks,
	})
}
