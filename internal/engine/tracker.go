package engine

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/lazypower/caffeine/internal/intake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Options configures a Tracker. Zero values take the package defaults.
type Options struct {
	HalfLifeHours  float64
	SampleInterval time.Duration
	Clock          func() time.Time
	Logger         logrus.FieldLogger
	Registerer     prometheus.Registerer
}

// Tracker ties the intake log to the decay model. Mutations regenerate the
// series synchronously; the sampler keeps the live level fresh on its own
// cadence.
type Tracker struct {
	store    *intake.Store
	halfLife float64
	clock    func() time.Time
	log      logrus.FieldLogger

	sampler *Sampler
	feed    *LevelFeed
	metrics *Metrics

	mu     sync.RWMutex
	series []Point
}

// NewTracker wires a tracker onto store and computes the initial series.
// The sampler is not started; call Start.
func NewTracker(store *intake.Store, opts Options) (*Tracker, error) {
	hl := opts.HalfLifeHours
	if hl == 0 {
		hl = DefaultHalfLifeHours
	}
	if hl < 0 || math.IsNaN(hl) || math.IsInf(hl, 0) {
		return nil, fmt.Errorf("invalid half-life %v", hl)
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	t := &Tracker{
		store:    store,
		halfLife: hl,
		clock:    clock,
		log:      log,
		feed:     NewLevelFeed(),
		metrics:  NewMetrics(opts.Registerer),
	}

	t.sampler = NewSampler(store.List, hl, opts.SampleInterval, gaugePublisher{next: t.feed, gauge: t.metrics.Level})
	t.sampler.SetClock(clock)
	t.sampler.SetLogger(log)

	store.OnChange(t.recompute)
	t.recompute(store.List())
	return t, nil
}

// recompute runs on every store mutation, before the mutation returns.
func (t *Tracker) recompute(snap []intake.Intake) {
	now := t.clock()

	start := time.Now()
	series := GenerateSeries(snap, t.halfLife, now)
	t.metrics.SeriesDuration.Observe(time.Since(start).Seconds())

	t.mu.Lock()
	t.series = series
	t.mu.Unlock()

	t.metrics.Intakes.Set(float64(len(snap)))

	// Refresh the live level too so reads right after a mutation agree
	// with the new history instead of waiting for the next tick.
	t.sampler.Sample()

	t.log.WithFields(logrus.Fields{
		"intakes": len(snap),
		"points":  len(series),
	}).Debug("series regenerated")
}

// AddIntake logs a dose taken now. Non-positive amounts are ignored and
// reported with ok=false.
func (t *Tracker) AddIntake(amountMg float64, label string) (intake.Intake, bool) {
	in, ok := t.store.Add(amountMg, label)
	if !ok {
		t.metrics.Rejected.Inc()
		t.log.WithField("amount_mg", amountMg).Debug("intake rejected")
		return in, false
	}
	t.metrics.Added.Inc()
	t.log.WithFields(logrus.Fields{
		"intake_id": in.ID,
		"amount_mg": in.AmountMg,
		"label":     in.Label,
	}).Info("intake added")
	return in, true
}

// RemoveIntake deletes an intake. Unknown ids report false.
func (t *Tracker) RemoveIntake(id string) bool {
	if !t.store.Remove(id) {
		return false
	}
	t.metrics.Removed.Inc()
	t.log.WithField("intake_id", id).Info("intake removed")
	return true
}

// Intakes returns the log ordered by time taken.
func (t *Tracker) Intakes() []intake.Intake {
	return t.store.List()
}

// CurrentLevel returns the latest published live level in mg.
func (t *Tracker) CurrentLevel() float64 {
	return t.feed.Latest().LevelMg
}

// Reading returns the latest published live reading.
func (t *Tracker) Reading() Reading {
	return t.feed.Latest()
}

// Series returns the decay curve generated at the last mutation. The slice
// is a copy.
func (t *Tracker) Series() []Point {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Point(nil), t.series...)
}

// HalfLife returns the configured half-life in hours.
func (t *Tracker) HalfLife() float64 {
	return t.halfLife
}

// Feed exposes live readings for streaming consumers.
func (t *Tracker) Feed() *LevelFeed {
	return t.feed
}

// Start begins live sampling.
func (t *Tracker) Start() {
	t.sampler.Start()
}

// Stop shuts down the sampler.
func (t *Tracker) Stop() {
	t.sampler.Stop()
}
