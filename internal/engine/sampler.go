package engine

import (
	"sync"
	"time"

	"github.com/lazypower/caffeine/internal/intake"
	"github.com/sirupsen/logrus"
)

// DefaultSampleInterval is how often the live level is recomputed.
const DefaultSampleInterval = time.Second

// Sampler recomputes the level at wall-clock now on a fixed cadence and
// publishes it. It reads history through source on every tick and never
// looks at the series.
type Sampler struct {
	source   func() []intake.Intake
	halfLife float64
	interval time.Duration
	pub      Publisher
	clock    func() time.Time
	log      logrus.FieldLogger

	sampleMu sync.Mutex // orders read+publish so a tick never overwrites a newer reading

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewSampler creates a stopped sampler.
func NewSampler(source func() []intake.Intake, halfLife float64, interval time.Duration, pub Publisher) *Sampler {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Sampler{
		source:   source,
		halfLife: halfLife,
		interval: interval,
		pub:      pub,
		clock:    time.Now,
		log:      logrus.StandardLogger(),
	}
}

// SetClock replaces the time source. Call before Start.
func (s *Sampler) SetClock(clock func() time.Time) {
	s.clock = clock
}

// SetLogger replaces the logger. Call before Start.
func (s *Sampler) SetLogger(log logrus.FieldLogger) {
	s.log = log
}

// Sample computes and publishes one reading.
func (s *Sampler) Sample() Reading {
	s.sampleMu.Lock()
	defer s.sampleMu.Unlock()

	now := s.clock()
	r := Reading{At: now, LevelMg: LevelAt(now, s.source(), s.halfLife)}
	s.pub.Publish(r)
	return r
}

// Start publishes a reading immediately and then every interval until Stop.
// Calling Start on a running sampler does nothing.
func (s *Sampler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return
	}

	s.Sample()

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	s.stopCh, s.doneCh = stopCh, doneCh

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Sample()
			case <-stopCh:
				return
			}
		}
	}()
	s.log.WithField("interval", s.interval).Debug("sampler started")
}

// Stop halts the ticker and waits for the loop to exit. Safe to call more
// than once or on a sampler that was never started.
func (s *Sampler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	<-s.doneCh
	s.stopCh, s.doneCh = nil, nil
	s.log.Debug("sampler stopped")
}

// Running reports whether the loop is active.
func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCh != nil
}
