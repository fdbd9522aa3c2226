package location

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"locbridge/pkg/events"
	"locbridge/pkg/model"
	"locbridge/pkg/native"
)

type startCall struct {
	coordType  string
	intervalMs int
	distance   int
}

// fakeSDK records calls and never emits anything by itself.
type fakeSDK struct {
	mu         sync.Mutex
	getCalls   int
	startCalls []startCall
	stopCalls  int

	getErr   error
	startErr error
	stopErr  error
}

func (f *fakeSDK) GetCurrentPosition(coordType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	return f.getErr
}

func (f *fakeSDK) StartLocating(coordType string, intervalMs, distanceFilter int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls = append(f.startCalls, startCall{coordType, intervalMs, distanceFilter})
	return f.startErr
}

func (f *fakeSDK) StopLocating() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	return f.stopErr
}

func (f *fakeSDK) calls() (get, start, stop int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls, len(f.startCalls), f.stopCalls
}

// privacySDK adds a privacy init step that can fail or block.
type privacySDK struct {
	*fakeSDK
	mu        sync.Mutex
	initCalls int
	initErr   error
	release   chan struct{}
}

func (p *privacySDK) InitPrivacy() error {
	p.mu.Lock()
	p.initCalls++
	err := p.initErr
	release := p.release
	p.mu.Unlock()

	if release != nil {
		<-release
	}
	return err
}

func (p *privacySDK) setInitErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initErr = err
}

func (p *privacySDK) initCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initCalls
}

// liveSDK reports its own liveness.
type liveSDK struct {
	*fakeSDK
	started bool
}

func (l *liveSDK) IsStarted() bool { return l.started }

// outcomes collects callback invocations.
type outcomes struct {
	mu        sync.Mutex
	positions []model.Position
	failures  []model.Failure
}

func (o *outcomes) onSuccess(p model.Position) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.positions = append(o.positions, p)
}

func (o *outcomes) onFailure(f model.Failure) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, f)
}

func (o *outcomes) counts() (int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.positions), len(o.failures)
}

func (o *outcomes) total() int {
	s, f := o.counts()
	return s + f
}

func (o *outcomes) snapshot() ([]model.Position, []model.Failure) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]model.Position(nil), o.positions...), append([]model.Failure(nil), o.failures...)
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) Record(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[outcome]++
}

func (r *countingRecorder) get(outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[outcome]
}

var errNative = errors.New("native boom")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func totalListeners(b *events.Bus) int {
	n := 0
	for _, name := range events.Names {
		n += b.ListenerCount(name)
	}
	return n
}

// newReadyManager returns an initialized manager over a fake SDK and a bus.
func newReadyManager(t *testing.T, sdk native.SDK, opts ...ManagerOption) (*Manager, *events.Bus) {
	t.Helper()
	bus := events.NewBus(quietLogger())
	opts = append([]ManagerOption{WithLogger(quietLogger())}, opts...)
	m := NewManager(sdk, bus, opts...)
	require.NoError(t, m.Init(context.Background()))
	return m, bus
}

const samplePayload = `{"coords":{"latitude":39.9,"longitude":116.4,"altitude":50,"accuracy":10,"heading":0,"speed":0},"timestamp":"T1"}`

func samplePosition() model.Position {
	return model.Position{
		Coords: model.Coords{
			Latitude:  39.9,
			Longitude: 116.4,
			Altitude:  50,
			Accuracy:  10,
			Heading:   0,
			Speed:     0,
		},
		Timestamp: model.StringTimestamp("T1"),
	}
}
