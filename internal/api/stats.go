package api

import (
	"net/http"
	"runtime"

	"locbridge/pkg/tracker"
)

// StatsHandler serves outcome counters and process figures.
type StatsHandler struct {
	tracker *tracker.Tracker
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(t *tracker.Tracker) *StatsHandler {
	return &StatsHandler{tracker: t}
}

// StatsResponse is the /api/stats body.
type StatsResponse struct {
	Outcomes   tracker.Snapshot `json:"outcomes"`
	MemoryMB   uint64           `json:"memory_mb"`
	Goroutines int              `json:"goroutines"`
}

// ServeHTTP implements http.Handler. POST resets the counters.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		h.tracker.Reset()
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeJSON(w, http.StatusOK, StatsResponse{
		Outcomes:   h.tracker.Snapshot(),
		MemoryMB:   m.Alloc / 1024 / 1024,
		Goroutines: runtime.NumGoroutine(),
	})
}
