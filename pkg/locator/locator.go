// Package locator is the application-facing facade over the location
// manager: blocking one-shot requests, watches that keep a state snapshot,
// and automatic locating bound to a context.
package locator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"locbridge/pkg/geo"
	"locbridge/pkg/location"
	"locbridge/pkg/model"
)

// Defaults supplies request options applied before the caller's own.
// config.UnifiedProvider implements it.
type Defaults interface {
	RequestDefaults(ctx context.Context) []model.Option
}

// State is a snapshot of what the facade has observed.
type State struct {
	Initialized bool            `json:"initialized"`
	Locating    bool            `json:"locating"`
	Current     *model.Position `json:"current,omitempty"`
	LastError   *model.Failure  `json:"lastError,omitempty"`
	// Course is the course over ground derived from recent watch updates.
	Course  *float64 `json:"course,omitempty"`
	Watches []string `json:"watches"`
}

// Locator wraps a location.Manager.
type Locator struct {
	m        *location.Manager
	defaults Defaults
	logger   *slog.Logger

	mu        sync.Mutex
	current   *model.Position
	lastError *model.Failure
	locating  bool
	watches   map[string]struct{}
	track     *geo.Track
}

// Option configures a Locator.
type Option func(*Locator)

// WithDefaults sets the source of default request options.
func WithDefaults(d Defaults) Option {
	return func(l *Locator) { l.defaults = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Locator) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Track tuning: the course spans the last trackWindow updates that moved at
// least trackMinStep meters.
const (
	trackWindow  = 5
	trackMinStep = 3.0
)

// New creates a Locator over m.
func New(m *location.Manager, opts ...Option) *Locator {
	l := &Locator{
		m:       m,
		logger:  slog.Default(),
		watches: make(map[string]struct{}),
		track:   geo.NewTrack(trackWindow, trackMinStep),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Manager returns the wrapped manager.
func (l *Locator) Manager() *location.Manager {
	return l.m
}

// Init initializes the manager.
func (l *Locator) Init(ctx context.Context) error {
	return l.m.Init(ctx)
}

// State returns a copy of the current snapshot.
func (l *Locator) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := State{
		Initialized: l.m.Ready(),
		Locating:    l.locating,
		Watches:     make([]string, 0, len(l.watches)),
	}
	if l.current != nil {
		p := *l.current
		s.Current = &p
	}
	if l.lastError != nil {
		f := *l.lastError
		s.LastError = &f
	}
	if c, ok := l.track.Course(); ok {
		s.Course = &c
	}
	for _, id := range l.m.Registry().IDs() {
		if _, ok := l.watches[id]; ok {
			s.Watches = append(s.Watches, id)
		}
	}
	return s
}

func (l *Locator) options(ctx context.Context, opts []model.Option) []model.Option {
	if l.defaults == nil {
		return opts
	}
	return append(l.defaults.RequestDefaults(ctx), opts...)
}

type result struct {
	pos model.Position
	err *model.Failure
}

// CurrentPosition blocks for a single fix, initializing the manager first if
// needed. Positioning failures are returned as *model.Failure; cancellation
// of ctx returns ctx.Err().
func (l *Locator) CurrentPosition(ctx context.Context, opts ...model.Option) (model.Position, error) {
	if !l.m.Ready() {
		if err := l.m.Init(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return model.Position{}, ctxErr
			}
			f := model.NewFailure(model.PositionUnavailable, err.Error(), location.MsgNotInitialized)
			l.setError(f)
			return model.Position{}, &f
		}
	}

	done := make(chan result, 1)
	l.m.GetCurrentPosition(
		func(p model.Position) { done <- result{pos: p} },
		func(f model.Failure) { done <- result{err: &f} },
		l.options(ctx, opts)...,
	)

	select {
	case r := <-done:
		if r.err != nil {
			l.setError(*r.err)
			return model.Position{}, r.err
		}
		l.setCurrent(r.pos)
		return r.pos, nil
	case <-ctx.Done():
		return model.Position{}, ctx.Err()
	}
}

// Watch starts a watch. The snapshot follows its updates and failures; a
// failure marks the facade as not locating until the next update.
// A start failure is returned rather than passed to onFailure.
func (l *Locator) Watch(onUpdate func(model.Position), onFailure func(model.Failure), opts ...model.Option) (string, error) {
	var (
		startMu  sync.Mutex
		starting = true
		startErr *model.Failure
	)

	id := l.m.WatchPosition(
		func(p model.Position) {
			l.mu.Lock()
			l.current = &p
			l.lastError = nil
			l.locating = true
			l.mu.Unlock()
			l.track.Push(geo.Point{Lat: p.Coords.Latitude, Lon: p.Coords.Longitude})
			if onUpdate != nil {
				onUpdate(p)
			}
		},
		func(f model.Failure) {
			l.mu.Lock()
			l.lastError = &f
			l.locating = false
			l.mu.Unlock()

			startMu.Lock()
			if starting {
				startErr = &f
				startMu.Unlock()
				return
			}
			startMu.Unlock()
			if onFailure != nil {
				onFailure(f)
			}
		},
		l.options(context.Background(), opts)...,
	)

	startMu.Lock()
	starting = false
	early := startErr
	startMu.Unlock()

	if id == "" {
		if early == nil {
			early = &model.Failure{Code: model.PositionUnavailable, Message: "watch not started"}
		}
		return "", early
	}

	l.mu.Lock()
	l.watches[id] = struct{}{}
	l.locating = early == nil
	l.mu.Unlock()

	// A failure that raced the start belongs to the running watch.
	if early != nil && onFailure != nil {
		onFailure(*early)
	}

	l.logger.Debug("Locator watch started", "id", id)
	return id, nil
}

// ClearWatch stops the watch id, or the current one when id is "".
func (l *Locator) ClearWatch(id string) {
	if id == "" {
		id = l.m.CurrentWatch()
	}
	l.m.ClearWatch(id)

	l.mu.Lock()
	delete(l.watches, id)
	if len(l.watches) == 0 {
		l.locating = false
		l.track.Reset()
	}
	l.mu.Unlock()
}

// AutoLocate initializes the manager, starts a watch and clears it when ctx
// ends. It returns the watch id.
func (l *Locator) AutoLocate(ctx context.Context, interval time.Duration, distanceFilter float64) (string, error) {
	if err := l.m.Init(ctx); err != nil {
		f := model.NewFailure(model.PositionUnavailable, err.Error(), location.MsgNotInitialized)
		l.setError(f)
		return "", &f
	}

	opts := []model.Option{model.WithInterval(interval), model.WithDistanceFilter(distanceFilter)}
	id, err := l.Watch(nil, func(f model.Failure) {
		l.logger.Warn("Auto-locate failure", "code", f.Code, "message", f.Message)
	}, opts...)
	if err != nil {
		return "", err
	}

	go func() {
		<-ctx.Done()
		l.ClearWatch(id)
		l.logger.Info("Auto-locate stopped", "id", id)
	}()
	return id, nil
}

// Close clears every watch started through the facade.
func (l *Locator) Close() {
	l.mu.Lock()
	ids := make([]string, 0, len(l.watches))
	for id := range l.watches {
		ids = append(ids, id)
	}
	l.mu.Unlock()

	for _, id := range ids {
		l.ClearWatch(id)
	}
}

func (l *Locator) setCurrent(p model.Position) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = &p
	l.lastError = nil
}

func (l *Locator) setError(f model.Failure) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastError = &f
}

// AsFailure extracts a *model.Failure from err.
func AsFailure(err error) (*model.Failure, bool) {
	var f *model.Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
