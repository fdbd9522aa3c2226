// Package apisession is a thread-safe, TTL-evicted store for per-client state
// held by API handlers. The HTTP watch endpoints keep one entry per watch id
// and clear the watch when a client stops polling it.
package apisession

import (
	"context"
	"sync"
	"time"
)

// cleanupInterval is how often Get() triggers lazy eviction of expired entries.
const cleanupInterval = 100

type entry[T any] struct {
	value      *T
	lastAccess time.Time
}

// Store is a typed, thread-safe session store. Each unique session ID maps to
// one instance of T, created on first access via the newFn factory.
type Store[T any] struct {
	mu       sync.Mutex
	entries  map[string]*entry[T]
	ttl      time.Duration
	newFn    func() *T
	onEvict  func(id string, v *T)
	now      func() time.Time
	getCalls int
}

// Option configures a Store.
type Option[T any] func(*Store[T])

// WithEvict registers a callback for entries removed by expiry. It runs
// outside the store lock.
func WithEvict[T any](fn func(id string, v *T)) Option[T] {
	return func(s *Store[T]) { s.onEvict = fn }
}

// WithClock replaces time.Now.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(s *Store[T]) { s.now = now }
}

// New creates a Store that evicts sessions inactive longer than ttl.
// newFn is called to initialise state when a session ID is seen for the first time.
func New[T any](ttl time.Duration, newFn func() *T, opts ...Option[T]) *Store[T] {
	s := &Store[T]{
		entries: make(map[string]*entry[T]),
		ttl:     ttl,
		newFn:   newFn,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the state for the given session, creating it if needed.
// Each call refreshes the session's last-access timestamp.
func (s *Store[T]) Get(id string) *T {
	s.mu.Lock()
	s.getCalls++
	var expired map[string]*T
	if s.getCalls%cleanupInterval == 0 {
		expired = s.cleanupLocked()
	}

	e, ok := s.entries[id]
	if !ok {
		e = &entry[T]{value: s.newFn()}
		s.entries[id] = e
	}
	e.lastAccess = s.now()
	v := e.value
	s.mu.Unlock()

	s.evicted(expired)
	return v
}

// Put stores v under id, replacing any existing entry.
func (s *Store[T]) Put(id string, v *T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = &entry[T]{value: v, lastAccess: s.now()}
}

// Lookup returns the state for an existing session and refreshes it.
func (s *Store[T]) Lookup(id string) (*T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	e.lastAccess = s.now()
	return e.value, true
}

// Delete removes a session without calling the evict callback.
func (s *Store[T]) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	return ok
}

// Cleanup evicts all sessions that have been inactive longer than the TTL.
func (s *Store[T]) Cleanup() {
	s.mu.Lock()
	expired := s.cleanupLocked()
	s.mu.Unlock()
	s.evicted(expired)
}

func (s *Store[T]) cleanupLocked() map[string]*T {
	cutoff := s.now().Add(-s.ttl)
	var expired map[string]*T
	for id, e := range s.entries {
		if e.lastAccess.Before(cutoff) {
			if expired == nil {
				expired = make(map[string]*T)
			}
			expired[id] = e.value
			delete(s.entries, id)
		}
	}
	return expired
}

func (s *Store[T]) evicted(expired map[string]*T) {
	if s.onEvict == nil {
		return
	}
	for id, v := range expired {
		s.onEvict(id, v)
	}
}

// Run calls Cleanup every interval until ctx is done.
func (s *Store[T]) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}

// Len returns the number of active sessions.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
