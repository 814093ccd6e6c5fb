// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for smacctl. Settings follow a
// three-layer override chain: defaults -> config file -> environment ->
// CLI flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	ServerURL string        `toml:"server_url"`
	Logging   LoggingConfig `toml:"logging"`
	Network   NetworkConfig `toml:"network"`
	Export    ExportConfig  `toml:"export"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// NetworkConfig controls HTTP client behavior. request_timeout bounds each
// call end to end; there are no automatic retries, a failed call surfaces
// immediately.
type NetworkConfig struct {
	ConnectTimeout string `toml:"connect_timeout"`
	RequestTimeout string `toml:"request_timeout"`
	UserAgent      string `toml:"user_agent"`
}

// ExportConfig controls CSV export defaults.
type ExportConfig struct {
	Dir       string `toml:"dir"`
	Delimiter string `toml:"delimiter"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings.
type CLIOverrides struct {
	ConfigPath string // --config flag (empty = use default)
	ServerURL  string // --server flag
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
		Network: NetworkConfig{
			ConnectTimeout: "10s",
			RequestTimeout: "30s",
		},
		Export: ExportConfig{
			Delimiter: ",",
		},
	}
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"text": true, "json": true,
}

// Validate checks a Config for invalid values. The server URL may be empty
// at load time (it can come from the environment or --server) but must be
// well-formed when present.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.ServerURL != "" {
		if err := validateServerURL(cfg.ServerURL); err != nil {
			errs = append(errs, err)
		}
	}

	if !validLogLevels[cfg.Logging.LogLevel] {
		errs = append(errs, fmt.Errorf("invalid log_level %q (debug, info, warn, error)", cfg.Logging.LogLevel))
	}

	if !validLogFormats[cfg.Logging.LogFormat] {
		errs = append(errs, fmt.Errorf("invalid log_format %q (text, json)", cfg.Logging.LogFormat))
	}

	for _, d := range []struct{ key, val string }{
		{"connect_timeout", cfg.Network.ConnectTimeout},
		{"request_timeout", cfg.Network.RequestTimeout},
	} {
		if _, err := time.ParseDuration(d.val); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s %q: %w", d.key, d.val, err))
		}
	}

	if len(cfg.Export.Delimiter) != 1 {
		errs = append(errs, fmt.Errorf("invalid export delimiter %q: must be a single character", cfg.Export.Delimiter))
	}

	return errors.Join(errs...)
}

func validateServerURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid server_url %q: %w", raw, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid server_url %q: scheme must be http or https", raw)
	}

	if u.Host == "" {
		return fmt.Errorf("invalid server_url %q: missing host", raw)
	}

	return nil
}

// ConnectTimeout returns the parsed dial timeout. Validate guarantees the
// value parses, so errors are ignored here.
func (c *Config) ConnectTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Network.ConnectTimeout)

	return d
}

// RequestTimeout returns the parsed per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Network.RequestTimeout)

	return d
}
