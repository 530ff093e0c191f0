package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lazypower/caffeine/internal/catalog"
	"github.com/lazypower/caffeine/internal/engine"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the caffeine HTTP API server.
type Server struct {
	tracker  *engine.Tracker
	drinks   *catalog.Catalog
	gatherer prometheus.Gatherer
	router   chi.Router
	version  string
	started  time.Time
}

// New creates a new Server. A nil gatherer leaves /metrics unmounted.
func New(tracker *engine.Tracker, drinks *catalog.Catalog, gatherer prometheus.Gatherer, version string) *Server {
	if drinks == nil {
		drinks = catalog.Default()
	}
	s := &Server{
		tracker:  tracker,
		drinks:   drinks,
		gatherer: gatherer,
		version:  version,
		started:  time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/intakes", s.handleListIntakes)
		r.Post("/intakes", s.handleAddIntake)
		r.Delete("/intakes/{intakeID}", s.handleRemoveIntake)

		r.Get("/level", s.handleLevel)
		r.Get("/level/stream", s.handleLevelStream)
		r.Get("/series", s.handleSeries)

		r.Get("/drinks", s.handleDrinks)
	})

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"version":         s.version,
		"uptime":          time.Since(s.started).Seconds(),
		"half_life_hours": s.tracker.HalfLife(),
		"intakes":         len(s.tracker.Intakes()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
