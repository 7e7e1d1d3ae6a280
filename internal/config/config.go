// Package config loads the optional zebra configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config mirrors ~/.config/zebra/config.yaml. Pointer fields distinguish
// "not set" from zero values; command-line flags always win when set.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// OnError is "abort" or "resync".
	OnError    string `yaml:"on_error"`
	MaxResyncs *int   `yaml:"max_resyncs"`

	// Output is "text" or "json".
	Output string `yaml:"output"`
	Digest *bool  `yaml:"digest"`

	Jobs          *int   `yaml:"jobs"`
	MaxRecordSize *int64 `yaml:"max_record_size"`
}

// DefaultPath returns the per-user config file location, or "" when the
// user config directory is unknown.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "zebra", "config.yaml")
}

// Load reads the config file at path. With an empty path the default
// location is used, and a missing default file yields a zero Config. An
// explicitly named file must exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return Config{}, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates YAML config data. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.LogLevel {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level: unknown level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "", "pretty", "json", "text":
	default:
		return fmt.Errorf("log_format: unknown format %q", c.LogFormat)
	}
	switch c.OnError {
	case "", "abort", "resync":
	default:
		return fmt.Errorf("on_error: want abort or resync, got %q", c.OnError)
	}
	switch c.Output {
	case "", "text", "json":
	default:
		return fmt.Errorf("output: want text or json, got %q", c.Output)
	}
	if c.MaxResyncs != nil && *c.MaxResyncs < 0 {
		return fmt.Errorf("max_resyncs: must not be negative, got %d", *c.MaxResyncs)
	}
	if c.Jobs != nil && *c.Jobs < 1 {
		return fmt.Errorf("jobs: must be at least 1, got %d", *c.Jobs)
	}
	if c.MaxRecordSize != nil && *c.MaxRecordSize <= 0 {
		return fmt.Errorf("max_record_size: must be positive, got %d", *c.MaxRecordSize)
	}
	return nil
}
