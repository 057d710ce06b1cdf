// Package config loads tabsync configuration from a TOML file with
// environment variable overrides. A missing file is not an error: the
// defaults are enough for local use.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	apperrors "github.com/barvenue/tabsync/internal/errors"
)

// Duration wraps time.Duration so TOML values can be written as "2s" or
// "5m" instead of nanosecond integers.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the underlying time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full tabsync configuration.
type Config struct {
	DataDir  string `toml:"data_dir"`
	LogLevel string `toml:"log_level"`

	Server ServerConfig `toml:"server"`
	Sync   SyncConfig   `toml:"sync"`
	Queue  QueueConfig  `toml:"queue"`
	Cache  CacheConfig  `toml:"cache"`
}

// ServerConfig holds the upstream endpoint and connectivity probing.
type ServerConfig struct {
	// BaseURL is the tab manager API root, e.g. "https://pos.example.com/api".
	BaseURL string `toml:"base_url"`

	// ProbeURL is probed to detect connectivity. Defaults to BaseURL.
	ProbeURL string `toml:"probe_url"`

	ProbeInterval  Duration `toml:"probe_interval"`
	RequestTimeout Duration `toml:"request_timeout"`
}

// SyncConfig holds sync pass timing and dependency policy.
type SyncConfig struct {
	StabilizationDelay Duration `toml:"stabilization_delay"`

	// SyncInterval re-runs a pass periodically while online. "0s" disables.
	SyncInterval Duration `toml:"sync_interval"`

	// ApplyTimeout bounds each individual remote apply during a pass.
	ApplyTimeout Duration `toml:"apply_timeout"`

	// DeferUnresolved skips entries whose tab placeholder has not been
	// resolved yet instead of sending them and letting the server reject.
	DeferUnresolved bool `toml:"defer_unresolved"`
}

// QueueConfig bounds the durable queues.
type QueueConfig struct {
	// MaxPending caps unsynced entries per queue. Zero means unbounded.
	MaxPending int `toml:"max_pending"`
}

// CacheConfig controls the read cache.
type CacheConfig struct {
	// TTL is how long cached tab data stays servable. "0s" never expires.
	TTL Duration `toml:"ttl"`
}

// Default returns the configuration used when no file or overrides are
// present.
func Default() *Config {
	return &Config{
		DataDir:  "./data",
		LogLevel: "info",
		Server: ServerConfig{
			ProbeInterval:  Duration(30 * time.Second),
			RequestTimeout: Duration(10 * time.Second),
		},
		Sync: SyncConfig{
			StabilizationDelay: Duration(2 * time.Second),
			SyncInterval:       Duration(5 * time.Minute),
			ApplyTimeout:       Duration(15 * time.Second),
		},
		Queue: QueueConfig{
			MaxPending: 0,
		},
		Cache: CacheConfig{
			TTL: Duration(24 * time.Hour),
		},
	}
}

// Load reads the TOML file at path, layers TABSYNC_* environment
// overrides on top and validates the result. A missing file yields the
// defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, apperrors.Wrap(apperrors.ErrConfigInvalid, "cannot read config file", err)
		}
	} else if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConfigInvalid, "cannot parse config file", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays TABSYNC_* environment variables onto cfg.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("TABSYNC_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("TABSYNC_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TABSYNC_SERVER_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("TABSYNC_PROBE_URL"); v != "" {
		cfg.Server.ProbeURL = v
	}
	if v := os.Getenv("TABSYNC_MAX_PENDING"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperrors.New(apperrors.ErrConfigInvalid,
				fmt.Sprintf("TABSYNC_MAX_PENDING: invalid integer %q", v))
		}
		cfg.Queue.MaxPending = n
	}

	durations := []struct {
		env string
		dst *Duration
	}{
		{"TABSYNC_PROBE_INTERVAL", &cfg.Server.ProbeInterval},
		{"TABSYNC_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout},
		{"TABSYNC_STABILIZATION_DELAY", &cfg.Sync.StabilizationDelay},
		{"TABSYNC_SYNC_INTERVAL", &cfg.Sync.SyncInterval},
		{"TABSYNC_APPLY_TIMEOUT", &cfg.Sync.ApplyTimeout},
		{"TABSYNC_CACHE_TTL", &cfg.Cache.TTL},
	}
	for _, d := range durations {
		v := os.Getenv(d.env)
		if v == "" {
			continue
		}
		if err := d.dst.UnmarshalText([]byte(v)); err != nil {
			return apperrors.New(apperrors.ErrConfigInvalid,
				fmt.Sprintf("%s: invalid duration %q", d.env, v))
		}
	}
	return nil
}

// Validate rejects configurations that cannot work.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return apperrors.New(apperrors.ErrConfigInvalid, "data_dir must not be empty")
	}
	if c.Server.ProbeInterval <= 0 {
		return apperrors.New(apperrors.ErrConfigInvalid, "server.probe_interval must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		return apperrors.New(apperrors.ErrConfigInvalid, "server.request_timeout must be positive")
	}
	if c.Sync.ApplyTimeout <= 0 {
		return apperrors.New(apperrors.ErrConfigInvalid, "sync.apply_timeout must be positive")
	}
	if c.Queue.MaxPending < 0 {
		return apperrors.New(apperrors.ErrConfigInvalid, "queue.max_pending must not be negative")
	}
	if c.Cache.TTL < 0 {
		return apperrors.New(apperrors.ErrConfigInvalid, "cache.ttl must not be negative")
	}
	return nil
}

// ProbeTarget returns the URL the connectivity monitor should probe.
func (c *Config) ProbeTarget() string {
	if c.Server.ProbeURL != "" {
		return c.Server.ProbeURL
	}
	return c.Server.BaseURL
}
