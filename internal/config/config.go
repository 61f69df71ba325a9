// Package config holds process-level configuration and derived filesystem
// paths. Runtime settings that may change while the daemon runs (hub URL,
// API key, sync interval) live in the database settings table instead.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	dbFilename  = "timely.db"
	pidFilename = "timely.pid"
)

// Config is loaded from the environment once at startup.
type Config struct {
	// DataDir is where the database and pid file live. Defaults to ~/.timely.
	DataDir string `envconfig:"TIMELY_DATA_DIR"`

	// PollInterval is the heartbeat cadence of the capture daemon.
	PollInterval time.Duration `envconfig:"TIMELY_POLL_INTERVAL" default:"5s"`

	// OTLPEndpoint enables metric export when set (host:port of a collector).
	OTLPEndpoint string `envconfig:"TIMELY_OTLP_ENDPOINT"`
	OTLPInsecure bool   `envconfig:"TIMELY_OTLP_INSECURE" default:"true"`
}

// Load reads configuration from the environment and ensures the data
// directory exists.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("determine home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".timely")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &cfg, nil
}

// DBPath is the path of the local database file.
func (c *Config) DBPath() string { return filepath.Join(c.DataDir, dbFilename) }

// PIDPath is the path of the daemon pid file.
func (c *Config) PIDPath() string { return filepath.Join(c.DataDir, pidFilename) }
