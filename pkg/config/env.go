package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// envOverrides lists the settings deployments commonly override without
// editing the YAML file.
type envOverrides struct {
	ServerAddress string `env:"LOCBRIDGE_SERVER_ADDRESS"`
	EventsBackend string `env:"LOCBRIDGE_EVENTS_BACKEND"`
	RedisAddress  string `env:"LOCBRIDGE_REDIS_ADDRESS"`
	LogLevel      string `env:"LOCBRIDGE_LOG_LEVEL"`
	DBPath        string `env:"LOCBRIDGE_DB_PATH"`
}

// LoadDotEnv reads KEY=VALUE pairs from the given files into the process
// environment. Missing files are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with the LOCBRIDGE_* environment variables that are set.
func ApplyEnv(cfg *Config) error {
	o, err := env.ParseAs[envOverrides]()
	if err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	if o.ServerAddress != "" {
		cfg.Server.Address = o.ServerAddress
	}
	if o.EventsBackend != "" {
		cfg.Events.Backend = o.EventsBackend
	}
	if o.RedisAddress != "" {
		cfg.Events.Redis.Address = o.RedisAddress
	}
	if o.LogLevel != "" {
		cfg.Log.Server.Level = o.LogLevel
	}
	if o.DBPath != "" {
		cfg.DB.Path = o.DBPath
	}
	return nil
}
