// Package config loads mixer settings from YAML or TOML files.
//
// Priority is file > defaults. Paths accept a leading "~" for the home
// directory. Watch reloads the file whenever it changes on disk.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/phanxgames/vmix/store"
)

// OutputConfig is the session frame buffer format.
type OutputConfig struct {
	Width  int     `yaml:"width" toml:"width" validate:"min=16,max=8192"`
	Height int     `yaml:"height" toml:"height" validate:"min=16,max=8192"`
	FPS    float64 `yaml:"fps" toml:"fps" validate:"gt=0,lte=240"`
}

// MixingConfig tunes the compositing core.
type MixingConfig struct {
	// ActivationThreshold is the Mixing distance beyond which a source is
	// deactivated.
	ActivationThreshold float64 `yaml:"activation_threshold" toml:"activation_threshold" validate:"gt=0,lte=4"`
	// FadingSeconds is the default duration of a fade to/from black.
	FadingSeconds float64 `yaml:"fading_seconds" toml:"fading_seconds" validate:"gte=0,lte=60"`
}

// HistoryConfig controls undo/redo behaviour.
type HistoryConfig struct {
	// RestoreView switches to the view recorded with a history step when
	// the step is restored.
	RestoreView bool `yaml:"restore_view" toml:"restore_view"`
}

// JobsConfig controls background save/load/import jobs.
type JobsConfig struct {
	PollTimeoutMS      int  `yaml:"poll_timeout_ms" toml:"poll_timeout_ms" validate:"gte=0,lte=1000"`
	Thumbnails         bool `yaml:"thumbnails" toml:"thumbnails"`
	ThumbnailTimeoutMS int  `yaml:"thumbnail_timeout_ms" toml:"thumbnail_timeout_ms" validate:"gte=0,lte=60000"`
}

// LogConfig selects the slog handler built by the CLI.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" toml:"format" validate:"oneof=text json"`
}

// MetricsConfig exposes Prometheus metrics. An empty address disables the
// endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr" toml:"addr" validate:"omitempty,hostname_port"`
}

// StoreConfig selects the session document store.
type StoreConfig struct {
	Driver string         `yaml:"driver" toml:"driver" validate:"oneof=fs memory badger sqlite s3"`
	Path   string         `yaml:"path" toml:"path"`
	S3     store.S3Config `yaml:"s3" toml:"s3"`
}

// Config is the full application configuration.
type Config struct {
	Output  OutputConfig  `yaml:"output" toml:"output"`
	Mixing  MixingConfig  `yaml:"mixing" toml:"mixing"`
	History HistoryConfig `yaml:"history" toml:"history"`
	Jobs    JobsConfig    `yaml:"jobs" toml:"jobs"`
	Store   StoreConfig   `yaml:"store" toml:"store"`
	Log     LogConfig     `yaml:"log" toml:"log"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Output: OutputConfig{Width: 1280, Height: 720, FPS: 60},
		Mixing: MixingConfig{ActivationThreshold: 1.0, FadingSeconds: 0.5},
		History: HistoryConfig{
			RestoreView: true,
		},
		Jobs: JobsConfig{
			PollTimeoutMS:      1,
			Thumbnails:         true,
			ThumbnailTimeoutMS: 500,
		},
		Store: StoreConfig{Driver: "fs", Path: "~/.vmix/sessions"},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

var validate = validator.New()

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Store.Driver == "s3" && c.Store.S3.Bucket == "" {
		return errors.New("config: store.s3.bucket is required for the s3 driver")
	}
	return nil
}

// PollTimeout returns the job poll timeout as a duration.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Jobs.PollTimeoutMS) * time.Millisecond
}

// ThumbnailTimeout returns how long a save waits for its thumbnail.
func (c *Config) ThumbnailTimeout() time.Duration {
	return time.Duration(c.Jobs.ThumbnailTimeoutMS) * time.Millisecond
}

// StoreOptions converts the store section into store.Config, expanding "~".
func (c *Config) StoreOptions() (store.Config, error) {
	path, err := homedir.Expand(c.Store.Path)
	if err != nil {
		return store.Config{}, fmt.Errorf("config: expand store path: %w", err)
	}
	return store.Config{
		Driver: store.Driver(c.Store.Driver),
		Path:   path,
		S3:     c.Store.S3,
	}, nil
}

// Load reads path on top of the defaults and validates the result. The
// format is chosen by extension: .yaml, .yml or .toml.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("config: expand %s: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := decode(expanded, data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: parse yaml %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: parse toml %s: %w", path, err)
		}
	default:
		return fmt.Errorf("config: unsupported extension %q", ext)
	}
	return nil
}

// Encode renders cfg in the format implied by path's extension.
func Encode(path string, cfg *Config) ([]byte, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Marshal(cfg)
	case ".toml":
		return toml.Marshal(cfg)
	default:
		return nil, fmt.Errorf("config: unsupported extension %q", ext)
	}
}
