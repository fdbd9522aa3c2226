package model

import "time"

// Default request options.
const (
	DefaultTimeout        = 10 * time.Second
	DefaultMaximumAge     = 0
	DefaultInterval       = 10 * time.Second
	DefaultDistanceFilter = 0
)

// Options control a one-shot request or a watch.
type Options struct {
	Timeout            time.Duration
	MaximumAge         time.Duration
	EnableHighAccuracy bool
	Interval           time.Duration
	DistanceFilter     float64 // Meters
}

// Option overrides a single field of Options.
type Option func(*Options)

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:            DefaultTimeout,
		MaximumAge:         DefaultMaximumAge,
		EnableHighAccuracy: true,
		Interval:           DefaultInterval,
		DistanceFilter:     DefaultDistanceFilter,
	}
}

// ResolveOptions applies opts over the defaults.
func ResolveOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

func WithMaximumAge(d time.Duration) Option {
	return func(o *Options) { o.MaximumAge = d }
}

func WithHighAccuracy(enabled bool) Option {
	return func(o *Options) { o.EnableHighAccuracy = enabled }
}

func WithInterval(d time.Duration) Option {
	return func(o *Options) { o.Interval = d }
}

// WithDistanceFilter sets the minimum movement in meters between watch updates.
func WithDistanceFilter(meters float64) Option {
	return func(o *Options) { o.DistanceFilter = meters }
}

// RequestOptions is the wire form of Options. Nil fields keep their defaults.
// Durations are in milliseconds.
type RequestOptions struct {
	Timeout            *int64   `json:"timeout,omitempty"`
	MaximumAge         *int64   `json:"maximumAge,omitempty"`
	EnableHighAccuracy *bool    `json:"enableHighAccuracy,omitempty"`
	Interval           *int64   `json:"interval,omitempty"`
	DistanceFilter     *float64 `json:"distanceFilter,omitempty"`
}

// Apply converts the set fields into Options overrides.
func (r RequestOptions) Apply() []Option {
	var opts []Option
	if r.Timeout != nil {
		opts = append(opts, WithTimeout(time.Duration(*r.Timeout)*time.Millisecond))
	}
	if r.MaximumAge != nil {
		opts = append(opts, WithMaximumAge(time.Duration(*r.MaximumAge)*time.Millisecond))
	}
	if r.EnableHighAccuracy != nil {
		opts = append(opts, WithHighAccuracy(*r.EnableHighAccuracy))
	}
	if r.Interval != nil {
		opts = append(opts, WithInterval(time.Duration(*r.Interval)*time.Millisecond))
	}
	if r.DistanceFilter != nil {
		opts = append(opts, WithDistanceFilter(*r.DistanceFilter))
	}
	return opts
}
