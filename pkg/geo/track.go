package geo

import "sync"

// Track keeps the most recent fixes of a moving device and derives the
// course over ground from the oldest to the newest of them. Fixes closer than
// minStep to the previous one are ignored so that jitter around a stationary
// position does not produce a course.
type Track struct {
	mu      sync.Mutex
	window  int
	minStep float64
	samples []Point
}

// NewTrack creates a track over the last window fixes (at least 2).
func NewTrack(window int, minStep float64) *Track {
	if window < 2 {
		window = 2
	}
	return &Track{window: window, minStep: minStep}
}

// Push records p and reports whether it was kept.
func (t *Track) Push(p Point) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n := len(t.samples); n > 0 && Distance(t.samples[n-1], p) < t.minStep {
		return false
	}
	t.samples = append(t.samples, p)
	if len(t.samples) > t.window {
		t.samples = t.samples[1:]
	}
	return true
}

// Course returns the bearing from the oldest to the newest kept fix, in
// degrees [0, 360). ok is false until two fixes are kept.
func (t *Track) Course() (course float64, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.samples) < 2 {
		return 0, false
	}
	return Bearing(t.samples[0], t.samples[len(t.samples)-1]), true
}

// Length returns the distance in meters covered by the kept fixes.
func (t *Track) Length() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var total float64
	for i := 1; i < len(t.samples); i++ {
		total += Distance(t.samples[i-1], t.samples[i])
	}
	return total
}

// Reset forgets every fix.
func (t *Track) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples = nil
}
