// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Runtime configuration file: YAML or TOML, chosen by extension.

package control

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	yaml "go.yaml.in/yaml/v3"

	"github.com/momentics/hioload-rt/api"
)

// Config is the file representation of the runtime tunables.
type Config struct {
	LogLevel        string   `yaml:"log_level" toml:"log_level"`
	PollTimeout     Duration `yaml:"poll_timeout" toml:"poll_timeout"`
	ReadyQueueBound int      `yaml:"ready_queue_bound" toml:"ready_queue_bound"`
	EventBatch      int      `yaml:"event_batch" toml:"event_batch"`
}

// DefaultConfig returns the values used for keys missing from a file.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:        "info",
		PollTimeout:     Duration{time.Second},
		ReadyQueueBound: 0,
		EventBatch:      128,
	}
}

// Validate rejects values the runtime cannot use.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level %q: %w", c.LogLevel, api.ErrInvalidArgument)
	}
	if c.PollTimeout.Duration <= 0 {
		return fmt.Errorf("poll_timeout must be positive, got %v: %w", c.PollTimeout.Duration, api.ErrInvalidArgument)
	}
	if c.ReadyQueueBound < 0 {
		return fmt.Errorf("ready_queue_bound must not be negative: %w", api.ErrInvalidArgument)
	}
	if c.EventBatch <= 0 {
		return fmt.Errorf("event_batch must be positive: %w", api.ErrInvalidArgument)
	}
	return nil
}

// LoadConfig reads path on top of DefaultConfig. Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("yaml decode %s: %w", path, err)
		}
	case ".toml":
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("toml decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("toml decode %s: unknown keys %v: %w", path, undecoded, api.ErrInvalidArgument)
		}
	default:
		return nil, fmt.Errorf("config format %q: %w", ext, api.ErrNotSupported)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Duration is a time.Duration written as a Go duration string ("250ms").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
