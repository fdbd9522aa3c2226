package tracker

import (
	"sync"
	"testing"
)

func TestTracker(t *testing.T) {
	tr := New()

	// Test Initial State
	s := tr.Snapshot()
	if len(s.Counts) != 0 || s.Total != 0 {
		t.Errorf("Expected empty stats, got %+v", s)
	}

	tr.Record("success")
	tr.Record("success")
	tr.Record("timeout")

	s = tr.Snapshot()
	if s.Counts["success"] != 2 {
		t.Errorf("Expected 2 successes, got %d", s.Counts["success"])
	}
	if s.Counts["timeout"] != 1 {
		t.Errorf("Expected 1 timeout, got %d", s.Counts["timeout"])
	}
	if s.Total != 3 {
		t.Errorf("Expected total 3, got %d", s.Total)
	}
	if tr.Count("failure") != 0 {
		t.Errorf("Expected unknown outcome to be 0")
	}

	// Snapshot is a copy.
	s.Counts["success"] = 100
	if tr.Count("success") != 2 {
		t.Error("Snapshot mutation leaked into tracker")
	}

	tr.Reset()
	if tr.Snapshot().Total != 0 {
		t.Error("Reset did not clear counters")
	}
}

func TestTracker_Concurrency(t *testing.T) {
	tr := New()
	outcomes := []string{"success", "failure", "update"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.Record(outcomes[(i+j)%len(outcomes)])
			}
		}(i)
	}
	wg.Wait()

	if got := tr.Snapshot().Total; got != 5000 {
		t.Errorf("Expected 5000 records, got %d", got)
	}
}
