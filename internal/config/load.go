package config

import (
	"bytes"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"

	yaml "go.yaml.in/yaml/v3"
)

// Parse reads and strictly decodes a YAML config file. Unknown keys are
// rejected so typos surface at load time rather than as silently ignored
// settings.
func Parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty file is a valid (default) config.
			return &Config{}, nil
		}
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	// Reject trailing documents (e.g. an accidental "---" paste).
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: trailing data", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return &cfg, nil
}

// DefaultPath returns the conventional config location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(dir, "pokem", "config.yaml")
}

// Validate checks cross-field constraints that YAML decoding can't express.
func (c *Config) Validate() error {
	if c.Matrix != nil {
		if c.Matrix.Homeserver == "" {
			return errors.New("matrix.homeserver is required")
		}
		if c.Matrix.Username == "" {
			return errors.New("matrix.username is required")
		}
		switch c.Matrix.Format {
		case "", "markdown", "plain":
		default:
			return fmt.Errorf("matrix.format: unknown format %q", c.Matrix.Format)
		}
	}
	if c.Server != nil && c.Server.URL == "" {
		return errors.New("server.url is required")
	}
	if c.Daemon != nil && (c.Daemon.Port < 0 || c.Daemon.Port > 65535) {
		return fmt.Errorf("daemon.port: invalid port %d", c.Daemon.Port)
	}
	for i, s := range c.Schedules {
		if s.Cron == "" {
			return fmt.Errorf("schedules[%d]: cron is required", i)
		}
		if s.Room == "" {
			return fmt.Errorf("schedules[%d]: room is required", i)
		}
	}
	return nil
}

func hashConfig(cfg *Config) uint64 {
	if cfg == nil {
		return 0
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
