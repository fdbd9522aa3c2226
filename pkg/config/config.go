package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Location LocationConfig `yaml:"location"`
	SDK      SDKConfig      `yaml:"sdk"`
	Log      LogConfig      `yaml:"log"`
	DB       DBConfig       `yaml:"db"`
	Server   ServerConfig   `yaml:"server"`
	Events   EventsConfig   `yaml:"events"`
}

// LocationConfig holds the request defaults applied when a caller leaves an
// option unset.
type LocationConfig struct {
	CoordType      string   `yaml:"coord_type"`
	Timeout        Duration `yaml:"timeout"`
	MaximumAge     Duration `yaml:"maximum_age"`
	HighAccuracy   bool     `yaml:"high_accuracy"`
	Interval       Duration `yaml:"interval"`
	DistanceFilter Distance `yaml:"distance_filter"`
	InitTimeout    Duration `yaml:"init_timeout"`
}

// SDKConfig selects the native SDK implementation.
type SDKConfig struct {
	Provider string        `yaml:"provider"` // "mock"
	Mock     MockSDKConfig `yaml:"mock"`
}

// MockSDKConfig holds settings for the simulated device.
type MockSDKConfig struct {
	StartLat       float64  `yaml:"start_lat"`
	StartLon       float64  `yaml:"start_lon"`
	Altitude       float64  `yaml:"altitude"`
	Accuracy       float64  `yaml:"accuracy"`
	Heading        float64  `yaml:"heading"`
	Speed          float64  `yaml:"speed"` // m/s
	FixDelay       Duration `yaml:"fix_delay"`
	RequirePrivacy bool     `yaml:"require_privacy"`
	NoFix          bool     `yaml:"no_fix"`
	FailStart      bool     `yaml:"fail_start"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server LogSettings `yaml:"server"`
	Events LogSettings `yaml:"events"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address        string   `yaml:"address"`
	MaxConnections int      `yaml:"max_connections"` // 0 = unlimited
	WatchTTL       Duration `yaml:"watch_ttl"`
}

// EventsConfig selects how native events reach the manager.
type EventsConfig struct {
	Backend string      `yaml:"backend"` // "memory", "redis"
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig holds the pub/sub relay settings.
type RedisConfig struct {
	Address string `yaml:"address"`
	DB      int    `yaml:"db"`
	Prefix  string `yaml:"prefix"`
}

// Supported enum values.
const (
	ProviderMock = "mock"

	BackendMemory = "memory"
	BackendRedis  = "redis"
)

var coordTypes = map[string]bool{
	"gcj02":  true,
	"bd09ll": true,
	"bd09":   true,
	"wgs84":  true,
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Location: LocationConfig{
			CoordType:      "gcj02",
			Timeout:        Duration(10 * time.Second),
			MaximumAge:     0,
			HighAccuracy:   true,
			Interval:       Duration(10 * time.Second),
			DistanceFilter: 0,
			InitTimeout:    Duration(5 * time.Second),
		},
		SDK: SDKConfig{
			Provider: ProviderMock,
			Mock: MockSDKConfig{
				StartLat:       39.9042,
				StartLon:       116.4074,
				Altitude:       44.0,
				Accuracy:       15.0,
				Heading:        90.0,
				Speed:          1.4, // walking
				FixDelay:       Duration(500 * time.Millisecond),
				RequirePrivacy: true,
			},
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Events: LogSettings{
				Path:  "./logs/events.log",
				Level: "DEBUG",
			},
		},
		DB: DBConfig{
			Path: "./data/locbridge.db",
		},
		Server: ServerConfig{
			Address:        "localhost:1921",
			MaxConnections: 64,
			WatchTTL:       Duration(10 * time.Minute),
		},
		Events: EventsConfig{
			Backend: BackendMemory,
			Redis: RedisConfig{
				Address: "localhost:6379",
				Prefix:  "locbridge:",
			},
		},
	}
}

// Load loads the configuration from the given path and applies LOCBRIDGE_*
// environment overrides.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT
// save back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enum fields and ranges.
func (c *Config) Validate() error {
	if !coordTypes[c.Location.CoordType] {
		return fmt.Errorf("invalid location.coord_type %q: must be one of gcj02, bd09ll, bd09, wgs84", c.Location.CoordType)
	}
	if c.Location.Timeout <= 0 {
		return fmt.Errorf("location.timeout must be positive, got %v", time.Duration(c.Location.Timeout))
	}
	if c.Location.DistanceFilter < 0 {
		return fmt.Errorf("location.distance_filter must not be negative")
	}
	if c.SDK.Provider != ProviderMock {
		return fmt.Errorf("invalid sdk.provider %q: only %q is available on this platform", c.SDK.Provider, ProviderMock)
	}
	switch c.Events.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("invalid events.backend %q: must be %q or %q", c.Events.Backend, BackendMemory, BackendRedis)
	}
	if c.Server.MaxConnections < 0 {
		return fmt.Errorf("server.max_connections must not be negative")
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# locbridge Configuration
# ---------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Distance: m (meters), km (kilometers), nm (nautical miles), ft (feet)
# Environment overrides: LOCBRIDGE_SERVER_ADDRESS, LOCBRIDGE_EVENTS_BACKEND,
#   LOCBRIDGE_REDIS_ADDRESS, LOCBRIDGE_LOG_LEVEL, LOCBRIDGE_DB_PATH

`)
	data = append(header, data...)

	reCoord := regexp.MustCompile(`(?m)^(\s+)coord_type:`)
	data = reCoord.ReplaceAll(data, []byte("${1}# Options: gcj02, bd09ll, bd09, wgs84\n${1}coord_type:"))

	reBackend := regexp.MustCompile(`(?m)^(\s+)backend:`)
	data = reBackend.ReplaceAll(data, []byte("${1}# Options: memory, redis\n${1}backend:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
