package location

import (
	"errors"
	"sort"
	"sync"
	"time"

	"locbridge/pkg/events"
	"locbridge/pkg/model"
)

// ErrDuplicateSession is returned when a session id is registered twice.
var ErrDuplicateSession = errors.New("watch session already registered")

// WatchSession is a continuous watch owned by a Registry.
type WatchSession struct {
	ID        string
	CreatedAt time.Time

	onUpdate  func(model.Position)
	onFailure func(model.Failure)

	mu      sync.Mutex
	subs    []events.Subscription
	live    bool
	release sync.Once
}

func newWatchSession(id string, onUpdate func(model.Position), onFailure func(model.Failure)) *WatchSession {
	return &WatchSession{
		ID:        id,
		CreatedAt: time.Now(),
		onUpdate:  onUpdate,
		onFailure: onFailure,
		live:      true,
	}
}

// Live reports whether the session still receives events.
func (s *WatchSession) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

func (s *WatchSession) attach(subs ...events.Subscription) {
	s.mu.Lock()
	if !s.live {
		s.mu.Unlock()
		for _, sub := range subs {
			sub.Remove()
		}
		return
	}
	s.subs = append(s.subs, subs...)
	s.mu.Unlock()
}

// Release removes the session's subscriptions and marks it destroyed.
// Only the first call has any effect.
func (s *WatchSession) Release() {
	s.release.Do(func() {
		s.mu.Lock()
		subs := s.subs
		s.subs = nil
		s.live = false
		s.mu.Unlock()

		for _, sub := range subs {
			sub.Remove()
		}
	})
}

// Registry tracks watch sessions and is the only place their subscriptions
// are released.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*WatchSession
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*WatchSession)}
}

// Add registers s under its id.
func (r *Registry) Add(s *WatchSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.ID]; exists {
		return ErrDuplicateSession
	}
	r.sessions[s.ID] = s
	return nil
}

// Get returns the session for id.
func (r *Registry) Get(id string) (*WatchSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove unregisters and releases the session for id.
// It reports false when no such session exists.
func (r *Registry) Remove(id string) (*WatchSession, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return nil, false
	}
	s.Release()
	return s, true
}

// Drain unregisters and releases every session.
func (r *Registry) Drain() []*WatchSession {
	r.mu.Lock()
	all := make([]*WatchSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.sessions = make(map[string]*WatchSession)
	r.mu.Unlock()

	for _, s := range all {
		s.Release()
	}
	return all
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// LiveCount returns the number of registered sessions that are still live.
func (r *Registry) LiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.sessions {
		if s.Live() {
			n++
		}
	}
	return n
}

// IDs returns the registered session ids in creation order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	all := make([]*WatchSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	ids := make([]string, len(all))
	for i, s := range all {
		ids[i] = s.ID
	}
	return ids
}
