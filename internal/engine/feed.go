package engine

import (
	"sync"
	"time"
)

// Reading is a published live level.
type Reading struct {
	At      time.Time `json:"at"`
	LevelMg float64   `json:"level_mg"`
}

// Publisher receives live level readings. Publish must not block.
type Publisher interface {
	Publish(r Reading)
}

// LevelFeed keeps the latest reading and fans it out to subscribers. Each
// subscriber has a one-slot buffer; a slow subscriber only ever sees the
// newest value.
type LevelFeed struct {
	mu     sync.RWMutex
	latest Reading
	subs   map[chan Reading]struct{}
}

// NewLevelFeed returns a feed whose latest reading is zero.
func NewLevelFeed() *LevelFeed {
	return &LevelFeed{subs: make(map[chan Reading]struct{})}
}

// Publish implements Publisher.
func (f *LevelFeed) Publish(r Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.latest = r
	for ch := range f.subs {
		select {
		case ch <- r:
		default:
			// Replace the stale value.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- r:
			default:
			}
		}
	}
}

// Latest returns the most recent reading.
func (f *LevelFeed) Latest() Reading {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.latest
}

// Subscribe returns a channel of readings and a cancel func that closes it.
func (f *LevelFeed) Subscribe() (<-chan Reading, func()) {
	ch := make(chan Reading, 1)

	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			close(ch)
			f.mu.Unlock()
		})
	}
	return ch, cancel
}

// Subscribers returns the number of active subscriptions.
func (f *LevelFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}
