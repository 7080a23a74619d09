// Package config handles TOML configuration for rouse.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Provider  string          `toml:"provider"` // registered plugin name
	AWS       AWSConfig       `toml:"aws"`
	OTEL      OTELConfig      `toml:"otel"`
	Reconcile ReconcileConfig `toml:"reconcile"`
	Log       LogConfig       `toml:"log"`
}

// AWSConfig holds AWS provider settings.
type AWSConfig struct {
	Region  string `toml:"region"` // empty uses the SDK default chain
	Profile string `toml:"profile"`
}

// OTELConfig holds OpenTelemetry settings.
type OTELConfig struct {
	Endpoint    string        `toml:"endpoint"`
	Insecure    bool          `toml:"insecure"`
	ServiceName string        `toml:"service_name"`
	Traces      TracesConfig  `toml:"traces"`
	Metrics     MetricsConfig `toml:"metrics"`
}

// TracesConfig holds tracing settings.
type TracesConfig struct {
	Enabled    bool    `toml:"enabled"`
	SampleRate float64 `toml:"sample_rate"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// ReconcileConfig holds the polling loop settings.
type ReconcileConfig struct {
	TimeoutStr      string        `toml:"timeout"`
	PollIntervalStr string        `toml:"poll_interval"`
	Timeout         time.Duration `toml:"-"`
	PollInterval    time.Duration `toml:"-"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`

	// Timestamp adds a time field to every event. Off by default since
	// CloudWatch stamps ingestion time itself.
	Timestamp bool `toml:"timestamp"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg, toml.MetaData{})
	// defaults always parse
	_ = parseDurations(cfg)
	return cfg
}

// Load reads and parses a TOML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg, md)

	if err := parseDurations(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault loads path, or returns Default when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// applyDefaults fills unset fields. md tells an explicit zero apart from a
// missing key.
func applyDefaults(cfg *Config, md toml.MetaData) {
	if cfg.Provider == "" {
		cfg.Provider = "aws"
	}
	if cfg.OTEL.ServiceName == "" {
		cfg.OTEL.ServiceName = "rouse"
	}
	if !md.IsDefined("otel", "traces", "sample_rate") {
		cfg.OTEL.Traces.SampleRate = 1.0
	}
	if cfg.Reconcile.TimeoutStr == "" {
		cfg.Reconcile.TimeoutStr = "60s"
	}
	if cfg.Reconcile.PollIntervalStr == "" {
		cfg.Reconcile.PollIntervalStr = "1s"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func parseDurations(cfg *Config) error {
	timeout, err := time.ParseDuration(cfg.Reconcile.TimeoutStr)
	if err != nil {
		return fmt.Errorf("parse timeout %q: %w", cfg.Reconcile.TimeoutStr, err)
	}
	interval, err := time.ParseDuration(cfg.Reconcile.PollIntervalStr)
	if err != nil {
		return fmt.Errorf("parse poll_interval %q: %w", cfg.Reconcile.PollIntervalStr, err)
	}
	cfg.Reconcile.Timeout = timeout
	cfg.Reconcile.PollInterval = interval
	return nil
}

// Validate checks the configuration is valid.
func (c *Config) Validate() error {
	if c.Reconcile.Timeout <= 0 {
		return fmt.Errorf("reconcile: timeout must be positive (got %s)", c.Reconcile.Timeout)
	}
	if c.Reconcile.PollInterval <= 0 {
		return fmt.Errorf("reconcile: poll_interval must be positive (got %s)", c.Reconcile.PollInterval)
	}
	if c.Reconcile.PollInterval > c.Reconcile.Timeout {
		return fmt.Errorf("reconcile: poll_interval %s exceeds timeout %s", c.Reconcile.PollInterval, c.Reconcile.Timeout)
	}
	if c.OTEL.Traces.SampleRate < 0.0 || c.OTEL.Traces.SampleRate > 1.0 {
		return fmt.Errorf("otel: traces.sample_rate must be between 0.0 and 1.0 (got %v)", c.OTEL.Traces.SampleRate)
	}
	return nil
}
