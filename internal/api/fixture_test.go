package api

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"locbridge/pkg/config"
	"locbridge/pkg/events"
	"locbridge/pkg/location"
	"locbridge/pkg/locator"
	"locbridge/pkg/native/mocksdk"
	"locbridge/pkg/store"
	"locbridge/pkg/tracker"
)

type testEnv struct {
	srv      *httptest.Server
	sdk      *mocksdk.Client
	bus      *events.Bus
	mgr      *location.Manager
	loc      *locator.Locator
	prov     *config.UnifiedProvider
	tracker  *tracker.Tracker
	handlers Handlers
}

type envOptions struct {
	device     mocksdk.Config
	watchTTL   time.Duration
	maxStreams int
	noInit     bool
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func defaultDevice() mocksdk.Config {
	return mocksdk.Config{
		StartLat: 31.2304,
		StartLon: 121.4737,
		Accuracy: 8,
		Heading:  45,
		Speed:    3,
		FixDelay: 5 * time.Millisecond,
	}
}

func newTestEnv(t *testing.T, o envOptions) *testEnv {
	t.Helper()
	if o.watchTTL == 0 {
		o.watchTTL = time.Minute
	}

	bus := events.NewBus(quiet())
	sdk := mocksdk.NewClient(o.device, bus, mocksdk.WithLogger(quiet()))
	tr := tracker.New()
	mgr := location.NewManager(sdk, bus, location.WithLogger(quiet()), location.WithRecorder(tr))
	prov := config.NewProvider(config.DefaultConfig(), store.NewMemoryStore())
	loc := locator.New(mgr, locator.WithDefaults(prov), locator.WithLogger(quiet()))

	if !o.noInit {
		require.NoError(t, loc.Init(context.Background()))
	}

	watches := NewWatchHandler(loc, o.watchTTL)
	streams := NewStreamHandler(loc, o.maxStreams)
	h := Handlers{
		Position: NewPositionHandler(loc),
		Watch:    watches,
		Stream:   streams,
		Settings: NewSettingsHandler(prov),
		Stats:    NewStatsHandler(tr),
		Status:   NewStatusHandler(loc, bus, watches, streams),
	}

	srv := httptest.NewServer(NewMux(h, nil))
	t.Cleanup(func() {
		srv.Close()
		loc.Close()
		mgr.Close()
		_ = sdk.Close()
	})

	return &testEnv{srv: srv, sdk: sdk, bus: bus, mgr: mgr, loc: loc, prov: prov, tracker: tr, handlers: h}
}
