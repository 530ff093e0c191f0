package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the tracker's Prometheus instruments.
type Metrics struct {
	Level    prometheus.Gauge
	Intakes  prometheus.Gauge
	Added    prometheus.Counter
	Removed  prometheus.Counter
	Rejected prometheus.Counter

	SeriesDuration prometheus.Histogram
}

// NewMetrics registers the instruments on reg. A nil reg creates
// unregistered instruments.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Level: f.NewGauge(prometheus.GaugeOpts{
			Name: "caffeine_level_mg",
			Help: "Most recent live caffeine level in milligrams",
		}),
		Intakes: f.NewGauge(prometheus.GaugeOpts{
			Name: "caffeine_intakes",
			Help: "Number of intakes currently logged",
		}),
		Added: f.NewCounter(prometheus.CounterOpts{
			Name: "caffeine_intakes_added_total",
			Help: "Total intakes accepted",
		}),
		Removed: f.NewCounter(prometheus.CounterOpts{
			Name: "caffeine_intakes_removed_total",
			Help: "Total intakes removed",
		}),
		Rejected: f.NewCounter(prometheus.CounterOpts{
			Name: "caffeine_intakes_rejected_total",
			Help: "Total intakes rejected for a non-positive amount",
		}),
		SeriesDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "caffeine_series_generation_seconds",
			Help:    "Time spent regenerating the decay curve",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
	}
}

// gaugePublisher mirrors readings into the level gauge before handing them on.
type gaugePublisher struct {
	next  Publisher
	gauge prometheus.Gauge
}

func (p gaugePublisher) Publish(r Reading) {
	p.gauge.Set(r.LevelMg)
	p.next.Publish(r)
}
