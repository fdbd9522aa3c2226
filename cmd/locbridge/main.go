package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"locbridge/internal/api"
	"locbridge/pkg/config"
	"locbridge/pkg/db"
	"locbridge/pkg/events"
	"locbridge/pkg/location"
	"locbridge/pkg/locator"
	"locbridge/pkg/logging"
	"locbridge/pkg/native/mocksdk"
	"locbridge/pkg/probe"
	"locbridge/pkg/store"
	"locbridge/pkg/tracker"
	"locbridge/pkg/version"
)

const defaultConfigPath = "configs/locbridge.yaml"

var (
	configPath = flag.String("config", defaultConfigPath, "Path to the config file")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	autoLocate = flag.Bool("auto-locate", false, "Keep a watch running for the lifetime of the process")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file generated: %s\n", *configPath)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, path string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	appCfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("locbridge started", "version", version.String())

	st, err := initStore(appCfg)
	if err != nil {
		return err
	}
	defer st.Close()

	prov := config.NewProvider(appCfg, st)
	go watchConfig(ctx, path, prov)

	ch, emitter, eventsProbe, err := initEvents(ctx, appCfg)
	if err != nil {
		return err
	}

	sdk := newSDK(appCfg, emitter)
	defer sdk.Close()

	tr := tracker.New()
	mgr := location.NewManager(sdk, ch,
		location.WithLogger(slog.With("component", "location")),
		location.WithCoordType(appCfg.Location.CoordType),
		location.WithRecorder(tr),
	)
	defer mgr.Close()

	loc := locator.New(mgr,
		locator.WithDefaults(prov),
		locator.WithLogger(slog.With("component", "locator")),
	)
	defer loc.Close()

	// Startup Verification
	initCtx, initCancel := context.WithTimeout(ctx, appCfg.Location.InitTimeout.Std())
	probes := []probe.Probe{probe.Native(mgr), probe.Store(st)}
	if eventsProbe != nil {
		probes = append(probes, probe.Events(eventsProbe))
	}
	err = probe.AnalyzeResults(slog.Default(), probe.Run(initCtx, probes))
	initCancel()
	if err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	if *autoLocate {
		id, err := loc.AutoLocate(ctx, prov.Interval(ctx), prov.DistanceFilter(ctx))
		if err != nil {
			slog.Error("Auto-locate failed to start", "error", err)
		} else {
			slog.Info("Auto-locate running", "id", id)
		}
	}

	return runServer(ctx, appCfg, loc, prov, tr, ch)
}

func initStore(appCfg *config.Config) (store.Store, error) {
	if appCfg.DB.Path == "" {
		slog.Warn("No database configured, settings will not survive a restart")
		return store.NewMemoryStore(), nil
	}
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store.NewSQLiteStore(dbConn), nil
}

// eventBackend is a channel that also counts its listeners.
type eventBackend interface {
	events.Channel
	events.Emitter
	ListenerCount(name string) int
}

// initEvents builds the event channel and the emitter handed to the SDK.
// The returned pinger is non-nil for remote backends.
func initEvents(ctx context.Context, appCfg *config.Config) (eventBackend, events.Emitter, probe.Pinger, error) {
	logger := slog.With("component", "events")

	switch appCfg.Events.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr: appCfg.Events.Redis.Address,
			DB:   appCfg.Events.Redis.DB,
		})
		relay := events.NewRedisChannel(client, appCfg.Events.Redis.Prefix, logger)
		go func() {
			if err := relay.Start(ctx); err != nil {
				slog.Error("Redis event relay stopped", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			_ = client.Close()
		}()
		return relay, logging.TapEmitter(relay), relay, nil

	case config.BackendMemory:
		bus := events.NewBus(logger)
		return bus, logging.TapEmitter(bus), nil, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown event backend %q", appCfg.Events.Backend)
	}
}

func newSDK(appCfg *config.Config, emitter events.Emitter) *mocksdk.Client {
	m := appCfg.SDK.Mock
	return mocksdk.NewClient(mocksdk.Config{
		StartLat:       m.StartLat,
		StartLon:       m.StartLon,
		Altitude:       m.Altitude,
		Accuracy:       m.Accuracy,
		Heading:        m.Heading,
		Speed:          m.Speed,
		FixDelay:       m.FixDelay.Std(),
		RequirePrivacy: m.RequirePrivacy,
		NoFix:          m.NoFix,
		FailStart:      m.FailStart,
	}, emitter, mocksdk.WithLogger(slog.With("component", "mocksdk")))
}

func watchConfig(ctx context.Context, path string, prov *config.UnifiedProvider) {
	err := config.Watch(ctx, path, slog.With("component", "config"), func(cfg *config.Config) {
		prov.SetBase(cfg)
	})
	if err != nil {
		slog.Warn("Config hot reload disabled", "error", err)
	}
}

func runServer(ctx context.Context, cfg *config.Config, loc *locator.Locator, prov *config.UnifiedProvider, tr *tracker.Tracker, listeners api.ListenerCounter) error {
	ctx, shutdown := context.WithCancel(ctx)
	defer shutdown()

	watchH := api.NewWatchHandler(loc, cfg.Server.WatchTTL.Std())
	go watchH.RunSweeper(ctx, time.Minute)

	streamH := api.NewStreamHandler(loc, cfg.Server.MaxConnections/2)

	srv := api.NewServer(cfg.Server.Address, api.Handlers{
		Position: api.NewPositionHandler(loc),
		Watch:    watchH,
		Stream:   streamH,
		Settings: api.NewSettingsHandler(prov),
		Stats:    api.NewStatsHandler(tr),
		Status:   api.NewStatusHandler(loc, listeners, watchH, streamH),
	}, shutdown)

	srv.Handler = loggingMiddleware(srv.Handler)
	return runServerLifecycle(ctx, srv, cfg.Server.MaxConnections)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, maxConns int) error {
	ln, err := api.Listen(srv.Addr, maxConns)
	if err != nil {
		return err
	}

	slog.Info("Starting server", "addr", ln.Addr().String())
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down server...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.TraceDefault("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
