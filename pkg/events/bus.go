package events

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Bus is an in-process Channel and Emitter.
// Emit decodes the payload once and invokes listeners synchronously on the
// emitting goroutine, in subscription order.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]*listener
	nextID    uint64
	logger    *slog.Logger
}

type listener struct {
	id      uint64
	name    string
	handler Handler
	bus     *Bus
	removed atomic.Bool
	once    sync.Once
}

// NewBus creates an empty bus. A nil logger uses slog.Default().
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		listeners: make(map[string][]*listener),
		logger:    logger,
	}
}

// Subscribe registers h for events named name.
func (b *Bus) Subscribe(name string, h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	l := &listener{id: b.nextID, name: name, handler: h, bus: b}
	b.listeners[name] = append(b.listeners[name], l)
	return l
}

// Emit delivers payload to every listener currently subscribed to name.
// Listeners removed while an emit is in progress are skipped.
func (b *Bus) Emit(name string, payload []byte) {
	out := Decode(payload)

	b.mu.RLock()
	targets := make([]*listener, len(b.listeners[name]))
	copy(targets, b.listeners[name])
	b.mu.RUnlock()

	b.logger.Debug("Event emitted", "name", name, "listeners", len(targets), "ok", out.OK())

	for _, l := range targets {
		if l.removed.Load() {
			continue
		}
		l.handler(out)
	}
}

// ListenerCount returns the number of live listeners for name.
func (b *Bus) ListenerCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[name])
}

func (b *Bus) remove(l *listener) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.listeners[l.name]
	for i, cand := range list {
		if cand.id == l.id {
			b.listeners[l.name] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(b.listeners[l.name]) == 0 {
		delete(b.listeners, l.name)
	}
}

// Remove unregisters the listener. Further calls are no-ops.
func (l *listener) Remove() {
	l.once.Do(func() {
		l.removed.Store(true)
		l.bus.remove(l)
	})
}
