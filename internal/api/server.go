package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"

	"locbridge/pkg/version"
)

// Handlers groups the endpoint handlers. Nil handlers leave their routes out.
type Handlers struct {
	Position *PositionHandler
	Watch    *WatchHandler
	Stream   *StreamHandler
	Settings *SettingsHandler
	Stats    *StatsHandler
	Status   *StatusHandler
}

// NewServer creates and configures the HTTP server.
// shutdown is called from POST /api/shutdown.
func NewServer(addr string, h Handlers, shutdown func()) *http.Server {
	return &http.Server{
		Addr:        addr,
		Handler:     NewMux(h, shutdown),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: position requests block for up to their timeout
		// and streams stay open.
		IdleTimeout: 60 * time.Second,
	}
}

// NewMux registers every route.
func NewMux(h Handlers, shutdown func()) *http.ServeMux {
	mux := http.NewServeMux()

	// 1. Health and version
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)

	// 2. Positioning
	if h.Position != nil {
		mux.HandleFunc("GET /api/position", h.Position.HandlePosition)
	}
	if h.Watch != nil {
		mux.HandleFunc("POST /api/watch", h.Watch.HandleStart)
		mux.HandleFunc("GET /api/watch/{id}", h.Watch.HandleGet)
		mux.HandleFunc("DELETE /api/watch/{id}", h.Watch.HandleClear)
	}
	if h.Stream != nil {
		mux.HandleFunc("GET /api/watch/stream", h.Stream.HandleStream)
	}

	// 3. Settings, status and stats
	if h.Settings != nil {
		mux.HandleFunc("/api/settings", h.Settings.HandleSettings)
	}
	if h.Status != nil {
		mux.Handle("GET /api/status", h.Status)
	}
	if h.Stats != nil {
		mux.Handle("/api/stats", h.Stats)
	}

	// 4. Shutdown
	if shutdown != nil {
		mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
			slog.Info("Graceful shutdown initiated via API")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte("Shutting down...")); err != nil {
				slog.Error("Failed to write shutdown response", "error", err)
			}
			// Let the response flush first
			go func() {
				time.Sleep(100 * time.Millisecond)
				shutdown()
			}()
		})
	}

	return mux
}

// Listen opens the server socket. maxConns > 0 caps concurrent connections.
func Listen(addr string, maxConns int) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}
	return ln, nil
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": version.Version,
		"commit":  version.Commit,
	})
}
