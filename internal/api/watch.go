package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"locbridge/pkg/apisession"
	"locbridge/pkg/locator"
	"locbridge/pkg/model"
)

// httpWatch is the polled state of a watch started over HTTP.
type httpWatch struct {
	mu        sync.Mutex
	started   time.Time
	latest    *model.Position
	lastError *model.Failure
	updates   int
	failures  int
}

// WatchView is the JSON form of an HTTP watch.
type WatchView struct {
	ID        string          `json:"id"`
	Started   time.Time       `json:"started"`
	Latest    *model.Position `json:"latest,omitempty"`
	LastError *model.Failure  `json:"lastError,omitempty"`
	Updates   int             `json:"updates"`
	Failures  int             `json:"failures"`
}

func (s *httpWatch) view(id string) WatchView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return WatchView{
		ID:        id,
		Started:   s.started,
		Latest:    s.latest,
		LastError: s.lastError,
		Updates:   s.updates,
		Failures:  s.failures,
	}
}

// WatchHandler exposes watches to clients that poll. A watch nobody polls
// for the TTL is cleared.
type WatchHandler struct {
	loc      *locator.Locator
	sessions *apisession.Store[httpWatch]
}

// NewWatchHandler creates a WatchHandler whose watches expire after ttl
// without a poll.
func NewWatchHandler(loc *locator.Locator, ttl time.Duration) *WatchHandler {
	h := &WatchHandler{loc: loc}
	h.sessions = apisession.New(ttl,
		func() *httpWatch { return &httpWatch{started: time.Now()} },
		apisession.WithEvict(func(id string, _ *httpWatch) {
			slog.Info("Clearing abandoned watch", "id", id)
			loc.ClearWatch(id)
		}),
	)
	return h
}

// RunSweeper clears expired watches every interval until ctx is done.
func (h *WatchHandler) RunSweeper(ctx context.Context, interval time.Duration) {
	h.sessions.Run(ctx, interval)
}

// Len returns the number of HTTP watches.
func (h *WatchHandler) Len() int {
	return h.sessions.Len()
}

// HandleStart starts a watch. The body is optional request options.
func (h *WatchHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var ro model.RequestOptions
	if err := json.NewDecoder(r.Body).Decode(&ro); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	st := &httpWatch{started: time.Now()}
	id, err := h.loc.Watch(
		func(p model.Position) {
			st.mu.Lock()
			st.latest = &p
			st.updates++
			st.mu.Unlock()
		},
		func(f model.Failure) {
			st.mu.Lock()
			st.lastError = &f
			st.failures++
			st.mu.Unlock()
		},
		ro.Apply()...,
	)
	if err != nil {
		writeErr(w, err)
		return
	}

	h.sessions.Put(id, st)
	writeJSON(w, http.StatusCreated, st.view(id))
}

// HandleGet returns the latest state of a watch and keeps it alive.
func (h *WatchHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	st, ok := h.sessions.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "watch not found")
		return
	}
	writeJSON(w, http.StatusOK, st.view(id))
}

// HandleClear stops a watch.
func (h *WatchHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.sessions.Delete(id) {
		writeError(w, http.StatusNotFound, "watch not found")
		return
	}
	h.loc.ClearWatch(id)
	w.WriteHeader(http.StatusNoContent)
}
