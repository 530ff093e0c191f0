package intake

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Listener receives a snapshot of the log after every mutation. The slice
// is owned by the listener. Listeners must not call Add or Remove.
type Listener func(snapshot []Intake)

// Store is the ordered, in-memory intake log. It is the only mutable state
// in the tracker; everything else reads snapshots.
type Store struct {
	writeMu sync.Mutex // serializes mutate+notify so listeners see snapshots in order
	mu      sync.RWMutex
	intakes []Intake // ascending TakenAt, ties in insertion order

	listeners []Listener
	clock     func() time.Time
	journal   Journal
	log       logrus.FieldLogger
}

// NewStore returns an empty store stamping new intakes with clock. A nil
// clock means time.Now.
func NewStore(clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		clock: clock,
		log:   logrus.StandardLogger(),
	}
}

// SetLogger replaces the logger used for journal failures.
func (s *Store) SetLogger(log logrus.FieldLogger) {
	s.log = log
}

// OnChange registers a listener invoked synchronously, before Add or Remove
// return, with the post-mutation snapshot.
func (s *Store) OnChange(l Listener) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Retain decides during journal replay whether an intake taken before now
// still belongs in the live log.
type Retain func(in Intake, now time.Time) bool

// AttachJournal replays j into the store and then writes every subsequent
// mutation through to it. Replayed intakes with invalid amounts are skipped,
// as are those retain rejects. A nil retain keeps everything valid.
func (s *Store) AttachJournal(j Journal, retain Retain) (int, error) {
	loaded, err := j.LoadIntakes()
	if err != nil {
		return 0, fmt.Errorf("load journal: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := s.clock()
	s.mu.Lock()
	restored, expired := 0, 0
	for _, in := range loaded {
		if !ValidAmount(in.AmountMg) || in.ID == "" {
			s.log.WithField("intake_id", in.ID).Warn("journal: skipping invalid intake")
			continue
		}
		if retain != nil && !retain(in, now) {
			expired++
			continue
		}
		s.insertLocked(in)
		restored++
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if expired > 0 {
		s.log.WithFields(logrus.Fields{
			"restored": restored,
			"expired":  expired,
		}).Info("journal: skipped fully decayed intakes")
	}

	s.journal = j
	if restored > 0 {
		s.notify(snap)
	}
	return restored, nil
}

// Add logs a dose taken now. It returns false, storing nothing, when amountMg
// is not a positive finite number.
func (s *Store) Add(amountMg float64, label string) (Intake, bool) {
	if !ValidAmount(amountMg) {
		return Intake{}, false
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	in := Intake{
		ID:       uuid.NewString(),
		TakenAt:  s.clock(),
		AmountMg: amountMg,
		Label:    label,
	}

	s.mu.Lock()
	s.insertLocked(in)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if s.journal != nil {
		if err := s.journal.SaveIntake(in); err != nil {
			s.log.WithError(err).WithField("intake_id", in.ID).Error("journal: save intake")
		}
	}
	s.notify(snap)
	return in, true
}

// Remove deletes the intake with the given id. Unknown ids are a no-op and
// do not notify listeners.
func (s *Store) Remove(id string) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	idx := -1
	for i := range s.intakes {
		if s.intakes[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.intakes = append(s.intakes[:idx], s.intakes[idx+1:]...)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if s.journal != nil {
		if err := s.journal.DeleteIntake(id); err != nil {
			s.log.WithError(err).WithField("intake_id", id).Error("journal: delete intake")
		}
	}
	s.notify(snap)
	return true
}

// List returns a copy of the log ordered by ascending TakenAt.
func (s *Store) List() []Intake {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Get returns the intake with the given id.
func (s *Store) Get(id string) (Intake, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, in := range s.intakes {
		if in.ID == id {
			return in, true
		}
	}
	return Intake{}, false
}

// Len returns the number of logged intakes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.intakes)
}

// insertLocked keeps the log sorted; an intake with an equal timestamp goes
// after the existing ones.
func (s *Store) insertLocked(in Intake) {
	i := sort.Search(len(s.intakes), func(i int) bool {
		return s.intakes[i].TakenAt.After(in.TakenAt)
	})
	s.intakes = append(s.intakes, Intake{})
	copy(s.intakes[i+1:], s.intakes[i:])
	s.intakes[i] = in
}

func (s *Store) snapshotLocked() []Intake {
	return append([]Intake(nil), s.intakes...)
}

// notify must be called with writeMu held.
func (s *Store) notify(snap []Intake) {
	for _, l := range s.listeners {
		l(append([]Intake(nil), snap...))
	}
}
