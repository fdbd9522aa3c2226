// Package mocksdk is a simulated positioning device. It implements the
// native SDK surface and reports fixes through an events.Emitter, so the rest
// of the system runs unchanged without platform hardware.
package mocksdk

import (
	"log/slog"
	"sync"
	"time"

	"locbridge/pkg/events"
	"locbridge/pkg/geo"
	"locbridge/pkg/logging"
	"locbridge/pkg/model"
	"locbridge/pkg/native"
)

const (
	// Scan interval clamping applied by StartLocating.
	defaultScanSpan = 3000 * time.Millisecond
	maxScanSpan     = 30000 * time.Millisecond
	clampedScanSpan = 10000 * time.Millisecond

	// TimestampLayout is the capture time format of emitted fixes.
	TimestampLayout = "2006-01-02 15:04:05"

	MsgPrivacyNotInitialized = "privacy agreement not initialized, call InitPrivacy first"
	MsgNoFix                 = "location failed: no fix available"
)

// Config describes the simulated device.
type Config struct {
	StartLat float64
	StartLon float64
	Altitude float64 // Meters
	Accuracy float64 // Meters
	Heading  float64 // Degrees true
	Speed    float64 // Meters per second

	// FixDelay is the time between a request and its first event.
	FixDelay time.Duration

	// RequirePrivacy gates every positioning call behind InitPrivacy.
	RequirePrivacy bool
	// RejectPrivacy makes InitPrivacy fail.
	RejectPrivacy bool
	// NoFix reports error events instead of positions.
	NoFix bool
	// FailStart makes positioning calls fail synchronously.
	FailStart bool
}

// Client implements native.SDK, native.PrivacyInitializer and
// native.LivenessReporter.
type Client struct {
	mu       sync.Mutex
	cfg      Config
	emitter  events.Emitter
	logger   *slog.Logger
	now      func() time.Time
	privacy  bool
	locating bool

	pos       geo.Point
	lastMove  time.Time
	lastFixAt *geo.Point // last position emitted by a continuous run

	run *run
	wg  sync.WaitGroup
}

// run is one native request; closing stop ends it.
type run struct {
	stop chan struct{}
	once sync.Once
}

func (r *run) cancel() {
	r.once.Do(func() { close(r.stop) })
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock replaces time.Now for movement and timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient creates a simulated device at the configured start position.
func NewClient(cfg Config, emitter events.Emitter, opts ...Option) *Client {
	c := &Client{
		cfg:     cfg,
		emitter: emitter,
		logger:  slog.Default(),
		now:     time.Now,
		privacy: !cfg.RequirePrivacy,
		pos:     geo.Point{Lat: cfg.StartLat, Lon: cfg.StartLon},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lastMove = c.now()
	return c
}

// InitPrivacy accepts the privacy agreement. Repeated calls are no-ops.
func (c *Client) InitPrivacy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.privacy {
		return nil
	}
	if c.cfg.RejectPrivacy {
		return native.ErrPrivacyNotAccepted
	}
	c.privacy = true
	c.logger.Info("Mock SDK privacy agreement accepted")
	return nil
}

// GetCurrentPosition stops any active run and reports a single fix on
// events.CurrentPosition after the fix delay.
func (c *Client) GetCurrentPosition(coordType string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.privacy {
		c.deferError(MsgPrivacyNotInitialized)
		return nil
	}
	if c.cfg.FailStart {
		return native.ErrClientUnavailable
	}

	if c.locating {
		c.logger.Debug("Mock SDK already locating, stopping first")
		c.stopLocked()
	}

	r := c.startRunLocked()
	c.wg.Add(1)
	go c.oneShot(r)
	return nil
}

// StartLocating begins continuous fixes on events.LocationUpdate.
// intervalMs <= 0 becomes 3000ms and values above 30000ms become 10000ms.
// Fixes closer than distanceFilter meters to the last reported one are
// suppressed.
func (c *Client) StartLocating(coordType string, intervalMs, distanceFilter int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.privacy {
		c.deferError(MsgPrivacyNotInitialized)
		return nil
	}
	if c.cfg.FailStart {
		return native.ErrClientUnavailable
	}

	if c.locating {
		c.logger.Debug("Mock SDK already locating, stopping first")
		c.stopLocked()
	}

	interval := ClampInterval(time.Duration(intervalMs) * time.Millisecond)
	c.lastFixAt = nil

	r := c.startRunLocked()
	c.wg.Add(1)
	go c.continuous(r, interval, float64(distanceFilter))

	c.logger.Info("Mock SDK locating started", "coord_type", coordType, "interval", interval, "distance_filter", distanceFilter)
	return nil
}

// StopLocating ends any run. It does not wait for the run goroutine, so it
// is safe to call from inside an event handler.
func (c *Client) StopLocating() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	return nil
}

// IsStarted reports whether a request is running.
func (c *Client) IsStarted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locating
}

// SetNoFix toggles failure injection at runtime.
func (c *Client) SetNoFix(noFix bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.NoFix = noFix
}

// Teleport moves the device.
func (c *Client) Teleport(lat, lon float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = geo.Point{Lat: lat, Lon: lon}
	c.lastMove = c.now()
}

// Position returns the current simulated position.
func (c *Client) Position() geo.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advanceLocked()
	return c.pos
}

// Close stops any run and waits for its goroutine.
func (c *Client) Close() error {
	c.mu.Lock()
	c.stopLocked()
	c.mu.Unlock()
	c.wg.Wait()
	return nil
}

// ClampInterval applies the native scan interval limits.
func ClampInterval(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return defaultScanSpan
	case d > maxScanSpan:
		return clampedScanSpan
	default:
		return d
	}
}

func (c *Client) startRunLocked() *run {
	r := &run{stop: make(chan struct{})}
	c.run = r
	c.locating = true
	return r
}

func (c *Client) stopLocked() {
	if c.run != nil {
		c.run.cancel()
		c.run = nil
	}
	if c.locating {
		c.locating = false
		c.logger.Debug("Mock SDK locating stopped")
	}
}

// deferError reports msg on events.LocationError after the fix delay,
// like the platform bridge which delivers events asynchronously.
func (c *Client) deferError(msg string) {
	c.logger.Error("Mock SDK call rejected", "reason", msg)
	delay := c.cfg.FixDelay
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		time.Sleep(delay)
		c.emitter.Emit(events.LocationError, events.EncodeError(msg))
	}()
}

func (c *Client) oneShot(r *run) {
	defer c.wg.Done()

	select {
	case <-r.stop:
		return
	case <-time.After(c.cfg.FixDelay):
	}

	c.mu.Lock()
	if c.run != r {
		c.mu.Unlock()
		return
	}
	// A one-shot run ends with its fix.
	c.run = nil
	c.locating = false
	name, payload := c.fixLocked(events.CurrentPosition)
	c.mu.Unlock()

	c.emitter.Emit(name, payload)
}

func (c *Client) continuous(r *run, interval time.Duration, distanceFilter float64) {
	defer c.wg.Done()

	wait := c.cfg.FixDelay
	for {
		select {
		case <-r.stop:
			return
		case <-time.After(wait):
		}
		wait = interval

		c.mu.Lock()
		if c.run != r {
			c.mu.Unlock()
			return
		}
		name, payload := c.fixLocked(events.LocationUpdate)
		if name == events.LocationUpdate && c.suppressLocked(distanceFilter) {
			c.mu.Unlock()
			continue
		}
		c.mu.Unlock()

		c.emitter.Emit(name, payload)
	}
}

// fixLocked produces the next event: a position on name, or an error when
// no fix is available.
func (c *Client) fixLocked(name string) (string, []byte) {
	if c.cfg.NoFix {
		return events.LocationError, events.EncodeError(MsgNoFix)
	}
	c.advanceLocked()

	pos := &model.Position{
		Coords: model.Coords{
			Latitude:  c.pos.Lat,
			Longitude: c.pos.Lon,
			Altitude:  c.cfg.Altitude,
			Accuracy:  c.cfg.Accuracy,
			Heading:   c.cfg.Heading,
			Speed:     c.cfg.Speed,
		},
		Timestamp: model.StringTimestamp(c.now().Format(TimestampLayout)),
	}
	logging.Trace(c.logger, "Mock SDK fix", "event", name, "lat", c.pos.Lat, "lon", c.pos.Lon)
	return name, events.Encode(pos)
}

// suppressLocked applies the distance filter against the last emitted fix
// and records the current position when it passes.
func (c *Client) suppressLocked(distanceFilter float64) bool {
	if distanceFilter > 0 && c.lastFixAt != nil && !geo.Moved(*c.lastFixAt, c.pos, distanceFilter) {
		return true
	}
	p := c.pos
	c.lastFixAt = &p
	return false
}

// advanceLocked moves the device along its heading for the time elapsed
// since the last move.
func (c *Client) advanceLocked() {
	now := c.now()
	dt := now.Sub(c.lastMove).Seconds()
	c.lastMove = now
	if dt <= 0 || c.cfg.Speed <= 0 {
		return
	}
	c.pos = geo.DestinationPoint(c.pos, c.cfg.Speed*dt, c.cfg.Heading)
}
