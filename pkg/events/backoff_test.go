package events

import (
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	b := NewBackoff(100*time.Millisecond, time.Second)

	tests := []struct {
		base time.Duration
	}{
		{100 * time.Millisecond},
		{200 * time.Millisecond},
		{400 * time.Millisecond},
		{800 * time.Millisecond},
		{time.Second}, // capped
		{time.Second},
	}
	for i, tt := range tests {
		got := b.Next()
		if got < tt.base || got > tt.base+tt.base/10 {
			t.Errorf("attempt %d: Next() = %v, want within 10%% above %v", i+1, got, tt.base)
		}
	}
	if n := b.Failures(); n != len(tests) {
		t.Errorf("Failures() = %d, want %d", n, len(tests))
	}

	b.Reset()
	if got := b.Next(); got > 110*time.Millisecond {
		t.Errorf("after Reset expected base delay, got %v", got)
	}
}

func TestBackoff_MaxBelowBase(t *testing.T) {
	b := NewBackoff(time.Second, time.Millisecond)
	if got := b.Next(); got < time.Second {
		t.Errorf("max below base should clamp to base, got %v", got)
	}
}
