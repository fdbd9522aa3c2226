package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"locbridge/pkg/config"
	"locbridge/pkg/events"
)

var (
	eventMu     sync.RWMutex
	eventLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// Init initializes the logging system based on configuration.
// It returns a cleanup function to close log files.
func Init(cfg *config.LogConfig) (func(), error) {
	// Rotate log files at startup
	rotatePaths(cfg.Server.Path, cfg.Events.Path)

	var closers []io.Closer

	// 1. Server logger (file + stdout + capture)
	serverHandler, file1, err := setupHandler(cfg.Server.Path, cfg.Server.Level, true)
	if err != nil {
		return nil, fmt.Errorf("failed to setup server logger: %w", err)
	}
	closers = append(closers, file1)
	slog.SetDefault(slog.New(serverHandler))

	// 2. Native event log (file only)
	if cfg.Events.Path != "" {
		eventHandler, file2, err := setupHandler(cfg.Events.Path, cfg.Events.Level, false)
		if err != nil {
			file1.Close()
			return nil, fmt.Errorf("failed to setup events logger: %w", err)
		}
		closers = append(closers, file2)
		SetEventLogger(slog.New(eventHandler))
	}

	return func() {
		for _, c := range closers {
			c.Close()
		}
	}, nil
}

// ParseLevel maps a config level name to a slog.Level. Unknown names are INFO.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG", "TRACE":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupHandler(path, levelStr string, stdout bool) (handler slog.Handler, file *os.File, err error) {
	level := ParseLevel(levelStr)
	if strings.EqualFold(strings.TrimSpace(levelStr), "TRACE") {
		EnableTrace = true
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}

	// Append mode, rotation handled in Init
	file, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}
	fileHandler := slog.NewTextHandler(file, opts)

	if !stdout {
		return fileHandler, file, nil
	}

	// Console only gets INFO and up
	consoleHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: max(level, slog.LevelInfo),
	})

	captureHandler := slog.NewTextHandler(GlobalLogCapture, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	return newMultiHandler(fileHandler, consoleHandler, captureHandler), file, nil
}

type multiHandler struct {
	handlers []slog.Handler
}

func newMultiHandler(handlers ...slog.Handler) *multiHandler {
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle implements slog.Handler
// nolint:gocritic // r must be passed by value to implement slog.Handler
func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}

// rotatePaths renames existing log files to .old so every run starts fresh
// while the previous run stays available.
func rotatePaths(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			oldPath := p + ".old"
			_ = os.Remove(oldPath)
			_ = os.Rename(p, oldPath)
		}
	}
}

// SetEventLogger replaces the logger that receives native event traffic.
func SetEventLogger(l *slog.Logger) {
	eventMu.Lock()
	defer eventMu.Unlock()
	eventLogger = l
}

// LogEvent records one native event.
func LogEvent(name string, payload []byte) {
	eventMu.RLock()
	l := eventLogger
	eventMu.RUnlock()

	out := events.Decode(payload)
	if out.OK() {
		p := out.Position
		l.Debug("native event", "event", name, "lat", p.Coords.Latitude, "lon", p.Coords.Longitude, "accuracy", p.Coords.Accuracy)
		_, _ = GlobalEventCapture.Write([]byte(fmt.Sprintf("%s %.6f,%.6f", name, p.Coords.Latitude, p.Coords.Longitude)))
		return
	}
	l.Info("native event", "event", name, "error", out.Failure.Message)
	_, _ = GlobalEventCapture.Write([]byte(fmt.Sprintf("%s error: %s", name, out.Failure.Message)))
}

// tapEmitter records every event before forwarding it.
type tapEmitter struct {
	next events.Emitter
}

// TapEmitter wraps next so every native event is written to the event log.
func TapEmitter(next events.Emitter) events.Emitter {
	return tapEmitter{next: next}
}

func (t tapEmitter) Emit(name string, payload []byte) {
	LogEvent(name, payload)
	t.next.Emit(name, payload)
}
