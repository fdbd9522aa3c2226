package api

import (
	"net/http"

	"locbridge/pkg/events"
	"locbridge/pkg/locator"
	"locbridge/pkg/logging"
)

// ListenerCounter reports live subscriptions per event name. events.Bus and
// events.RedisChannel implement it.
type ListenerCounter interface {
	ListenerCount(name string) int
}

// StatusHandler reports manager and facade state.
type StatusHandler struct {
	loc       *locator.Locator
	listeners ListenerCounter
	watches   *WatchHandler
	streams   *StreamHandler
}

// NewStatusHandler creates a new StatusHandler. listeners, watches and
// streams may be nil.
func NewStatusHandler(loc *locator.Locator, listeners ListenerCounter, watches *WatchHandler, streams *StreamHandler) *StatusHandler {
	return &StatusHandler{loc: loc, listeners: listeners, watches: watches, streams: streams}
}

// StatusResponse is the /api/status body.
type StatusResponse struct {
	InitState   string         `json:"init_state"`
	Started     bool           `json:"started"`
	Pending     int            `json:"pending"`
	Sessions    []string       `json:"sessions"`
	CurrentID   string         `json:"current_id,omitempty"`
	Locator     locator.State  `json:"locator"`
	Listeners   map[string]int `json:"listeners,omitempty"`
	HTTPWatches int            `json:"http_watches"`
	Streams     int            `json:"streams"`
	LastLog     string         `json:"last_log,omitempty"`
	LastEvent   string         `json:"last_event,omitempty"`
}

// ServeHTTP implements http.Handler.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m := h.loc.Manager()
	resp := StatusResponse{
		InitState: m.State().String(),
		Started:   m.IsStarted(),
		Pending:   m.Pending(),
		Sessions:  m.Registry().IDs(),
		CurrentID: m.CurrentWatch(),
		Locator:   h.loc.State(),
		LastLog:   formatLogLine(logging.GlobalLogCapture.GetLastLine()),
		LastEvent: logging.GlobalEventCapture.GetLastLine(),
	}
	if h.listeners != nil {
		resp.Listeners = make(map[string]int, len(events.Names))
		for _, name := range events.Names {
			resp.Listeners[name] = h.listeners.ListenerCount(name)
		}
	}
	if h.watches != nil {
		resp.HTTPWatches = h.watches.Len()
	}
	if h.streams != nil {
		resp.Streams = h.streams.Active()
	}
	writeJSON(w, http.StatusOK, resp)
}
