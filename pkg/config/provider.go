package config

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"locbridge/pkg/model"
	"locbridge/pkg/store"
)

// Provider defines the interface for accessing unified configuration.
type Provider interface {
	CoordType(ctx context.Context) string
	Timeout(ctx context.Context) time.Duration
	MaximumAge(ctx context.Context) time.Duration
	HighAccuracy(ctx context.Context) bool
	Interval(ctx context.Context) time.Duration
	DistanceFilter(ctx context.Context) float64

	// RequestDefaults returns the effective defaults as request options.
	RequestDefaults(ctx context.Context) []model.Option

	// Raw access (for components that need deep access)
	AppConfig() *Config
}

// Settings is the runtime-tunable part of the location defaults.
type Settings struct {
	Timeout        time.Duration
	MaximumAge     time.Duration
	HighAccuracy   bool
	Interval       time.Duration
	DistanceFilter float64
}

// UnifiedProvider implements Provider by bridging static Config and persistent Store.
type UnifiedProvider struct {
	mu    sync.RWMutex
	base  *Config
	store store.StateStore
}

// NewProvider creates a new UnifiedProvider.
func NewProvider(base *Config, st store.StateStore) *UnifiedProvider {
	return &UnifiedProvider{
		base:  base,
		store: st,
	}
}

func (p *UnifiedProvider) AppConfig() *Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.base
}

// SetBase swaps the static configuration, e.g. after the file changed.
// Stored overrides keep precedence.
func (p *UnifiedProvider) SetBase(cfg *Config) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = cfg
}

// --- Implementations ---

// CoordType is fixed for the process lifetime; it is never read from the store.
func (p *UnifiedProvider) CoordType(ctx context.Context) string {
	return p.AppConfig().Location.CoordType
}

func (p *UnifiedProvider) Timeout(ctx context.Context) time.Duration {
	return p.getDuration(ctx, KeyTimeout, p.AppConfig().Location.Timeout.Std())
}

func (p *UnifiedProvider) MaximumAge(ctx context.Context) time.Duration {
	return p.getDuration(ctx, KeyMaximumAge, p.AppConfig().Location.MaximumAge.Std())
}

func (p *UnifiedProvider) HighAccuracy(ctx context.Context) bool {
	return p.getBool(ctx, KeyHighAccuracy, p.AppConfig().Location.HighAccuracy)
}

func (p *UnifiedProvider) Interval(ctx context.Context) time.Duration {
	return p.getDuration(ctx, KeyInterval, p.AppConfig().Location.Interval.Std())
}

func (p *UnifiedProvider) DistanceFilter(ctx context.Context) float64 {
	return p.getFloat64(ctx, KeyDistanceFilter, float64(p.AppConfig().Location.DistanceFilter))
}

func (p *UnifiedProvider) RequestDefaults(ctx context.Context) []model.Option {
	return []model.Option{
		model.WithTimeout(p.Timeout(ctx)),
		model.WithMaximumAge(p.MaximumAge(ctx)),
		model.WithHighAccuracy(p.HighAccuracy(ctx)),
		model.WithInterval(p.Interval(ctx)),
		model.WithDistanceFilter(p.DistanceFilter(ctx)),
	}
}

// Settings returns the effective runtime settings.
func (p *UnifiedProvider) Settings(ctx context.Context) Settings {
	return Settings{
		Timeout:        p.Timeout(ctx),
		MaximumAge:     p.MaximumAge(ctx),
		HighAccuracy:   p.HighAccuracy(ctx),
		Interval:       p.Interval(ctx),
		DistanceFilter: p.DistanceFilter(ctx),
	}
}

// UpdateSettings persists the fields of o that are set.
func (p *UnifiedProvider) UpdateSettings(ctx context.Context, o model.RequestOptions) error {
	if p.store == nil {
		return fmt.Errorf("settings are read-only without a state store")
	}

	updates := make(map[string]string)
	if o.Timeout != nil {
		if *o.Timeout <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
		updates[KeyTimeout] = (time.Duration(*o.Timeout) * time.Millisecond).String()
	}
	if o.MaximumAge != nil {
		if *o.MaximumAge < 0 {
			return fmt.Errorf("maximumAge must not be negative")
		}
		updates[KeyMaximumAge] = (time.Duration(*o.MaximumAge) * time.Millisecond).String()
	}
	if o.EnableHighAccuracy != nil {
		updates[KeyHighAccuracy] = strconv.FormatBool(*o.EnableHighAccuracy)
	}
	if o.Interval != nil {
		if *o.Interval < 0 {
			return fmt.Errorf("interval must not be negative")
		}
		updates[KeyInterval] = (time.Duration(*o.Interval) * time.Millisecond).String()
	}
	if o.DistanceFilter != nil {
		if *o.DistanceFilter < 0 {
			return fmt.Errorf("distanceFilter must not be negative")
		}
		updates[KeyDistanceFilter] = strconv.FormatFloat(*o.DistanceFilter, 'f', -1, 64)
	}

	for k, v := range updates {
		if err := p.store.SetState(ctx, k, v); err != nil {
			return fmt.Errorf("failed to save %s: %w", k, err)
		}
	}
	return nil
}

// ResetSettings removes every stored override.
func (p *UnifiedProvider) ResetSettings(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	for _, k := range []string{KeyTimeout, KeyMaximumAge, KeyHighAccuracy, KeyInterval, KeyDistanceFilter} {
		if err := p.store.DeleteState(ctx, k); err != nil {
			return fmt.Errorf("failed to reset %s: %w", k, err)
		}
	}
	return nil
}

// --- Helpers ---

func (p *UnifiedProvider) getFloat64(ctx context.Context, key string, fallback float64) float64 {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				return f
			}
		}
	}
	return fallback
}

func (p *UnifiedProvider) getBool(ctx context.Context, key string, fallback bool) bool {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val == "true"
		}
	}
	return fallback
}

func (p *UnifiedProvider) getDuration(ctx context.Context, key string, fallback time.Duration) time.Duration {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if dur, err := ParseDuration(val); err == nil {
				return dur
			}
		}
	}
	return fallback
}
