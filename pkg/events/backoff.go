package events

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Backoff produces exponentially growing retry delays with 10% jitter.
type Backoff struct {
	mu       sync.Mutex
	base     time.Duration
	max      time.Duration
	failures int
}

// NewBackoff creates a Backoff starting at base and capped at max.
func NewBackoff(base, max time.Duration) *Backoff {
	if max < base {
		max = base
	}
	return &Backoff{base: base, max: max}
}

// Next records a failure and returns how long to wait before retrying.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	delay := time.Duration(float64(b.base) * math.Pow(2, float64(b.failures-1)))
	if delay > b.max || delay <= 0 {
		delay = b.max
	}
	return delay + time.Duration(rand.Float64()*0.1*float64(delay))
}

// Failures returns the number of failures since the last Reset.
func (b *Backoff) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset clears the failure count.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}
