// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config carrying the defaults.
// - Load(ctx) layers defaults, an optional YAML file, and env overrides.
// - External errors are wrapped via this package's sentinels.
package config

import (
	"fmt"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the read API listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// MetricsAddr configures the Prometheus listener. Empty disables it.
	MetricsAddr string `koanf:"metrics_addr"`

	// APIClientID and APIClientSecret are the esologs OAuth credentials.
	// Without them the client falls back to unauthenticated requests.
	APIClientID     string `koanf:"api_client_id"`
	APIClientSecret string `koanf:"api_client_secret"`

	// Trials restricts scanning to the named trials. Empty scans every
	// trial the API lists.
	Trials []string `koanf:"trials"`

	// TopLogs caps how many ranked reports feed one trial's scan.
	TopLogs int `koanf:"top_logs"`

	// DamageThreshold and SupportThreshold set the sighting counts a
	// build needs before it is published, per role.
	DamageThreshold  int `koanf:"damage_threshold"`
	SupportThreshold int `koanf:"support_threshold"`

	// WorkerCount sets the number of scan workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory scan queue.
	QueueSize int `koanf:"queue_size"`

	// ScanIntervalMinutes re-runs the scan on a ticker. Zero scans once
	// at startup and then only serves.
	ScanIntervalMinutes int `koanf:"scan_interval_minutes"`

	// CacheDir holds the on-disk response cache. Empty keeps the cache
	// in memory only.
	CacheDir string `koanf:"cache_dir"`

	// CacheSize bounds the in-memory response cache entries.
	CacheSize int `koanf:"cache_size"`

	// RateRPS and RateBurst shape the API client rate limiter.
	RateRPS   float64 `koanf:"rate_rps"`
	RateBurst int     `koanf:"rate_burst"`

	// OutputPath is where consolidated builds persist.
	OutputPath string `koanf:"output_path"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		MetricsAddr:      ":9091",
		TopLogs:          12,
		DamageThreshold:  5,
		SupportThreshold: 3,
		WorkerCount:      4,
		QueueSize:        1024,
		CacheDir:         "cache",
		CacheSize:        512,
		RateRPS:          2,
		RateBurst:        5,
		OutputPath:       "data/builds.json",
	}
}

// Validate checks the invariants that would break the scan or the API.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.OutputPath == "":
		return fmt.Errorf("%w: output_path must not be empty", ErrInvalidConfig)
	case c.TopLogs < 1:
		return fmt.Errorf("%w: top_logs must be at least 1", ErrInvalidConfig)
	case c.DamageThreshold < 1:
		return fmt.Errorf("%w: damage_threshold must be at least 1", ErrInvalidConfig)
	case c.SupportThreshold < 1:
		return fmt.Errorf("%w: support_threshold must be at least 1", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be at least 1", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be at least 1", ErrInvalidConfig)
	case c.ScanIntervalMinutes < 0:
		return fmt.Errorf("%w: scan_interval_minutes must not be negative", ErrInvalidConfig)
	}
	return nil
}
