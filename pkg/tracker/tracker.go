// Package tracker counts delivered location outcomes for the stats endpoint.
package tracker

import (
	"sync"
	"sync/atomic"
	"time"
)

// Tracker counts outcomes by label. It satisfies location.Recorder.
type Tracker struct {
	mu      sync.RWMutex
	counts  map[string]*int64
	started time.Time
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Since  time.Time        `json:"since"`
	Counts map[string]int64 `json:"counts"`
	Total  int64            `json:"total"`
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		counts:  make(map[string]*int64),
		started: time.Now(),
	}
}

// counter returns the counter for an outcome, creating it if needed.
func (t *Tracker) counter(outcome string) *int64 {
	t.mu.RLock()
	c, ok := t.counts[outcome]
	t.mu.RUnlock()
	if ok {
		return c
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if c, ok = t.counts[outcome]; ok {
		return c
	}
	c = new(int64)
	t.counts[outcome] = c
	return c
}

// Record increments the counter for outcome.
func (t *Tracker) Record(outcome string) {
	atomic.AddInt64(t.counter(outcome), 1)
}

// Count returns the current value for one outcome.
func (t *Tracker) Count(outcome string) int64 {
	t.mu.RLock()
	c, ok := t.counts[outcome]
	t.mu.RUnlock()
	if !ok {
		return 0
	}
	return atomic.LoadInt64(c)
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Snapshot{Since: t.started, Counts: make(map[string]int64, len(t.counts))}
	for k, c := range t.counts {
		v := atomic.LoadInt64(c)
		s.Counts[k] = v
		s.Total += v
	}
	return s
}

// Reset zeroes every counter and restarts the window.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts = make(map[string]*int64)
	t.started = time.Now()
}
