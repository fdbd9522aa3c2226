// Package location turns the fire-and-forget native positioning SDK into
// one-shot requests and continuous watches with callback delivery.
//
// The SDK has no request ids. A request owns the listeners it registers, and
// listeners are always removed before a callback runs, so an event reaches
// whichever request or session is subscribed at the time it is emitted.
//
// The SDK reports continuous fixes on one global stream. Every live watch
// session receives every update, and clearing any session stops the native
// run for all of them.
package location

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"locbridge/pkg/events"
	"locbridge/pkg/logging"
	"locbridge/pkg/model"
	"locbridge/pkg/native"
)

// Messages used for failures the manager constructs itself.
const (
	MsgNotInitialized = "location manager not initialized, call Init first"
	MsgTimeout        = "Location request timed out"
	MsgClosed         = "location manager closed"

	msgOneShotStart  = "Failed to get current position"
	msgOneShotError  = "Location error occurred"
	msgWatchStart    = "Failed to start location watching"
	msgWatchError    = "Location watching error occurred"
	msgWatchDecoding = "Location update could not be decoded"
)

// Outcome labels passed to a Recorder.
const (
	OutcomeSuccess      = "success"
	OutcomeFailure      = "failure"
	OutcomeTimeout      = "timeout"
	OutcomeCached       = "cached"
	OutcomeUpdate       = "update"
	OutcomeWatchFailure = "watch_failure"
)

// Recorder receives one call per delivered outcome.
type Recorder interface {
	Record(outcome string)
}

// Manager is the location-session manager.
type Manager struct {
	sdk       native.SDK
	ch        events.Channel
	coordType string
	logger    *slog.Logger
	recorder  Recorder
	now       func() time.Time
	afterFunc func(time.Duration, func()) *time.Timer

	gate     initGate
	registry *Registry

	mu        sync.Mutex
	currentID string
	pending   map[*pendingRequest]struct{}
	lastFix   *cachedFix
}

type cachedFix struct {
	pos model.Position
	at  time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger for lifecycle events.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithCoordType overrides the coordinate system sent to the SDK.
func WithCoordType(coordType string) ManagerOption {
	return func(m *Manager) {
		if coordType != "" {
			m.coordType = coordType
		}
	}
}

// WithRecorder sets a Recorder for delivered outcomes.
func WithRecorder(r Recorder) ManagerOption {
	return func(m *Manager) { m.recorder = r }
}

// WithClock replaces time.Now for maximum-age checks.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a Manager in the Uninitialized state.
func NewManager(sdk native.SDK, ch events.Channel, opts ...ManagerOption) *Manager {
	m := &Manager{
		sdk:       sdk,
		ch:        ch,
		coordType: native.DefaultCoordType,
		logger:    slog.Default(),
		now:       time.Now,
		afterFunc: time.AfterFunc,
		registry:  NewRegistry(),
		pending:   make(map[*pendingRequest]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init performs the native privacy initialization once. Concurrent callers
// wait for the same attempt. A failed attempt can be retried.
func (m *Manager) Init(ctx context.Context) error {
	return m.gate.Do(ctx, func() error {
		if p, ok := m.sdk.(native.PrivacyInitializer); ok {
			if err := p.InitPrivacy(); err != nil {
				m.logger.Error("Location manager init failed", "error", err)
				return fmt.Errorf("init privacy: %w", err)
			}
		}
		m.logger.Info("Location manager initialized", "coord_type", m.coordType)
		return nil
	})
}

// State returns the initialization state.
func (m *Manager) State() InitState {
	return m.gate.State()
}

// Ready reports whether positioning operations are allowed.
func (m *Manager) Ready() bool {
	return m.gate.State() == Ready
}

// Registry exposes the watch session registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// GetCurrentPosition requests a single fix. Exactly one of onSuccess or
// onFailure is called exactly once; either may be nil.
// It never initializes implicitly: before Init succeeds it fails with
// PositionUnavailable without touching the SDK or the event channel.
func (m *Manager) GetCurrentPosition(onSuccess func(model.Position), onFailure func(model.Failure), opts ...model.Option) {
	if !m.Ready() {
		m.fail(onFailure, model.Failure{Code: model.PositionUnavailable, Message: MsgNotInitialized})
		return
	}

	o := model.ResolveOptions(opts...)

	if pos, ok := m.freshFix(o.MaximumAge); ok {
		m.record(OutcomeCached)
		if onSuccess != nil {
			onSuccess(pos)
		}
		return
	}

	req := &pendingRequest{
		m:         m,
		onSuccess: onSuccess,
		onFailure: onFailure,
		started:   time.Now(),
	}
	m.track(req)
	m.logger.Debug("One-shot request started", "timeout", o.Timeout)

	req.startTimer(o.Timeout)

	if err := m.sdk.GetCurrentPosition(m.coordType); err != nil {
		if req.settle() {
			m.record(OutcomeFailure)
			m.fail(onFailure, model.NewFailure(model.PositionUnavailable, err.Error(), msgOneShotStart))
		}
		return
	}

	resultSub := m.ch.Subscribe(events.CurrentPosition, req.handleResult)
	errorSub := m.ch.Subscribe(events.LocationError, req.handleError)
	req.attach(resultSub, errorSub)
}

// WatchPosition starts continuous updates and returns the new session id.
// On failure it calls onFailure synchronously and returns "".
func (m *Manager) WatchPosition(onUpdate func(model.Position), onFailure func(model.Failure), opts ...model.Option) string {
	if !m.Ready() {
		m.fail(onFailure, model.Failure{Code: model.PositionUnavailable, Message: MsgNotInitialized})
		return ""
	}

	o := model.ResolveOptions(opts...)
	id := newSessionID()
	intervalMs := int(o.Interval / time.Millisecond)
	distance := int(math.Round(o.DistanceFilter))

	if err := m.sdk.StartLocating(m.coordType, intervalMs, distance); err != nil {
		m.record(OutcomeWatchFailure)
		m.fail(onFailure, model.NewFailure(model.PositionUnavailable, err.Error(), msgWatchStart))
		return ""
	}

	s := newWatchSession(id, onUpdate, onFailure)
	updateSub := m.ch.Subscribe(events.LocationUpdate, func(out events.Outcome) { m.deliverUpdate(s, out) })
	errorSub := m.ch.Subscribe(events.LocationError, func(out events.Outcome) { m.deliverWatchError(s, out) })
	s.attach(updateSub, errorSub)

	if err := m.registry.Add(s); err != nil {
		s.Release()
		m.fail(onFailure, model.NewFailure(model.PositionUnavailable, err.Error(), msgWatchStart))
		return ""
	}

	m.mu.Lock()
	m.currentID = id
	m.mu.Unlock()

	m.logger.Info("Watch started", "id", id, "interval_ms", intervalMs, "distance_filter", distance, "sessions", m.registry.Len())
	return id
}

// CurrentWatch returns the id of the most recently started watch that has
// not been cleared, or "".
func (m *Manager) CurrentWatch() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentID
}

// ClearWatch stops the session id, or the current session when id is "".
// Unknown or already cleared ids are ignored. The native stop is
// best-effort; its failure is logged.
func (m *Manager) ClearWatch(id string) {
	if id == "" {
		id = m.CurrentWatch()
		if id == "" {
			return
		}
	}

	if _, ok := m.registry.Remove(id); !ok {
		return
	}

	m.stopNative()

	m.mu.Lock()
	if m.currentID == id {
		m.currentID = ""
	}
	m.mu.Unlock()

	m.logger.Info("Watch cleared", "id", id, "remaining", m.registry.Len())
	if remaining := m.registry.Len(); remaining > 0 {
		m.logger.Warn("Native locating stopped while other watches are registered", "remaining", remaining)
	}
}

// IsStarted reports whether locating is active: the SDK's own answer when it
// has one, otherwise whether any watch session is live.
func (m *Manager) IsStarted() bool {
	if lr, ok := m.sdk.(native.LivenessReporter); ok {
		return lr.IsStarted()
	}
	return m.registry.LiveCount() > 0
}

// Pending returns the number of one-shot requests in flight.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Close releases every subscription the manager holds. Pending one-shot
// requests fail with PositionUnavailable; watch sessions are destroyed and
// the native run is stopped once.
func (m *Manager) Close() {
	m.mu.Lock()
	reqs := make([]*pendingRequest, 0, len(m.pending))
	for r := range m.pending {
		reqs = append(reqs, r)
	}
	m.currentID = ""
	m.mu.Unlock()

	for _, r := range reqs {
		if r.settle() {
			m.fail(r.onFailure, model.Failure{Code: model.PositionUnavailable, Message: MsgClosed})
		}
	}

	if drained := m.registry.Drain(); len(drained) > 0 {
		m.stopNative()
		m.logger.Info("Location manager closed", "watches", len(drained))
	}
}

func (m *Manager) stopNative() {
	if err := m.sdk.StopLocating(); err != nil {
		m.logger.Error("Failed to stop location watching", "error", err)
	}
}

func (m *Manager) deliverUpdate(s *WatchSession, out events.Outcome) {
	if !s.Live() {
		return
	}
	if !out.OK() {
		m.record(OutcomeWatchFailure)
		f := out.FailureOr(msgWatchDecoding)
		logging.Trace(m.logger, "Watch update carried an error", "id", s.ID, "message", f.Message)
		m.fail(s.onFailure, f)
		return
	}
	m.remember(*out.Position)
	m.record(OutcomeUpdate)
	if s.onUpdate != nil {
		s.onUpdate(*out.Position)
	}
}

func (m *Manager) deliverWatchError(s *WatchSession, out events.Outcome) {
	if !s.Live() {
		return
	}
	m.record(OutcomeWatchFailure)
	m.fail(s.onFailure, out.FailureOr(msgWatchError))
}

func (m *Manager) fail(onFailure func(model.Failure), f model.Failure) {
	if onFailure != nil {
		onFailure(f)
	}
}

func (m *Manager) record(outcome string) {
	if m.recorder != nil {
		m.recorder.Record(outcome)
	}
}

func (m *Manager) remember(pos model.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFix = &cachedFix{pos: pos, at: m.now()}
}

// freshFix returns the last fix if it was received no longer than maxAge ago.
func (m *Manager) freshFix(maxAge time.Duration) (model.Position, bool) {
	if maxAge <= 0 {
		return model.Position{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastFix == nil || m.now().Sub(m.lastFix.at) > maxAge {
		return model.Position{}, false
	}
	return m.lastFix.pos, true
}

func (m *Manager) track(r *pendingRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[r] = struct{}{}
}

func (m *Manager) untrack(r *pendingRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, r)
}
