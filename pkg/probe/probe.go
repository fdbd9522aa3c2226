// Package probe runs the startup checks for the location bridge: native SDK
// initialization, the settings store and the event backend.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultTimeout bounds a single check.
const DefaultTimeout = 5 * time.Second

// CheckFunc is a function that performs a health check.
// It returns nil if the check passes, or an error if it fails.
type CheckFunc func(ctx context.Context) error

// Probe represents a single startup check.
type Probe struct {
	Name     string
	Check    CheckFunc
	Critical bool // If true, a failure here should prevent application startup.
}

// Result holds the outcome of a single probe.
type Result struct {
	Probe    Probe
	Error    error
	Duration time.Duration
}

// Pinger is anything with a liveness check, such as store.Store or
// events.RedisChannel.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Initializer is the location manager's init step.
type Initializer interface {
	Init(ctx context.Context) error
}

// Native checks that the native SDK accepts initialization.
func Native(init Initializer) Probe {
	return Probe{Name: "Native SDK", Check: init.Init, Critical: true}
}

// Store checks the settings store.
func Store(p Pinger) Probe {
	return Probe{Name: "Settings Store", Check: p.Ping, Critical: true}
}

// Events checks a remote event backend. A broken relay degrades delivery
// but does not stop the process.
func Events(p Pinger) Probe {
	return Probe{Name: "Event Backend", Check: p.Ping, Critical: false}
}

// Run executes a list of probes and returns their results.
// Each check runs with DefaultTimeout unless ctx expires first.
func Run(ctx context.Context, probes []Probe) []Result {
	results := make([]Result, len(probes))

	for i, p := range probes {
		start := time.Now()

		checkCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
		err := p.Check(checkCtx)
		cancel()

		results[i] = Result{
			Probe:    p,
			Error:    err,
			Duration: time.Since(start),
		}
	}

	return results
}

// AnalyzeResults logs every result and returns the joined errors of the
// critical probes that failed.
func AnalyzeResults(logger *slog.Logger, results []Result) error {
	if logger == nil {
		logger = slog.Default()
	}
	var criticalErrors []error

	logger.Info("Startup Checks Summary")

	for _, r := range results {
		status := "PASS"
		if r.Error != nil {
			status = "FAIL"
		}

		msg := fmt.Sprintf("[%s] %-20s (%v)", status, r.Probe.Name, r.Duration.Round(time.Millisecond))

		if r.Error != nil {
			logger.Error(msg, "error", r.Error)
			if r.Probe.Critical {
				criticalErrors = append(criticalErrors, fmt.Errorf("%s: %w", r.Probe.Name, r.Error))
			}
		} else {
			logger.Info(msg)
		}
	}

	return errors.Join(criticalErrors...)
}
