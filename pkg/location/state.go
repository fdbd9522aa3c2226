package location

import (
	"context"
	"sync"
)

// InitState is the process-wide initialization state of a Manager.
type InitState int32

const (
	Uninitialized InitState = iota
	Initializing
	Ready
)

func (s InitState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// initGate serializes initialization. Concurrent callers share the
// in-flight attempt instead of issuing their own native call.
type initGate struct {
	mu     sync.Mutex
	state  InitState
	flight *initFlight
}

type initFlight struct {
	done chan struct{}
	err  error
}

func (g *initGate) State() InitState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Do runs fn unless the gate is already Ready. A failed attempt returns the
// gate to Uninitialized so a later call can retry.
// Waiters give up when ctx ends; the attempt itself always runs to completion.
func (g *initGate) Do(ctx context.Context, fn func() error) error {
	g.mu.Lock()
	if g.state == Ready {
		g.mu.Unlock()
		return nil
	}
	if f := g.flight; f != nil {
		g.mu.Unlock()
		select {
		case <-f.done:
			return f.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f := &initFlight{done: make(chan struct{})}
	g.flight = f
	g.state = Initializing
	g.mu.Unlock()

	err := fn()

	g.mu.Lock()
	if err != nil {
		g.state = Uninitialized
	} else {
		g.state = Ready
	}
	g.flight = nil
	f.err = err
	g.mu.Unlock()
	close(f.done)

	return err
}
