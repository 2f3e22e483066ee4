// Package config loads the batchrender settings from TOML or YAML files.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spaghettifunk/batchrender/engine/batch"
	"github.com/spaghettifunk/batchrender/engine/core"
	"github.com/spaghettifunk/batchrender/engine/renderer"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrUnknownKey    = errors.New("unknown configuration key")
)

const (
	DefaultInputDirName  = "stl_files_to_render"
	DefaultOutputDirName = "output"
	DefaultTargetObject  = "MainObject"
)

// Config is the full application configuration.
type Config struct {
	InputDir        string       `yaml:"input_dir"`
	OutputDir       string       `yaml:"output_dir"`
	Scene           string       `yaml:"scene"`
	TargetObject    string       `yaml:"target_object"`
	OnError         string       `yaml:"on_error"`
	LogLevel        string       `yaml:"log_level"`
	Watch           bool         `yaml:"watch"`
	WatchDebounceMS int          `yaml:"watch_debounce_ms"`
	Render          RenderConfig `yaml:"render"`
}

type RenderConfig struct {
	Format      string `yaml:"format"`
	ResolutionX int    `yaml:"resolution_x"`
	ResolutionY int    `yaml:"resolution_y"`
	Quality     int    `yaml:"quality"`
	Caption     bool   `yaml:"caption"`
}

// Default returns the built-in configuration with folders placed under baseDir.
func Default(baseDir string) *Config {
	return &Config{
		InputDir:        filepath.Join(baseDir, DefaultInputDirName),
		OutputDir:       filepath.Join(baseDir, DefaultOutputDirName),
		TargetObject:    DefaultTargetObject,
		OnError:         batch.PolicyAbort.String(),
		LogLevel:        "info",
		WatchDebounceMS: 500,
		Render: RenderConfig{
			Format:      string(renderer.FormatPNG),
			ResolutionX: 1920,
			ResolutionY: 1080,
			Quality:     90,
		},
	}
}

// Set assigns a single value addressed by its file key, e.g. "render.format".
// Used to layer command line flags on top of loaded files.
func (c *Config) Set(key, value string) error {
	var err error
	switch key {
	case "input_dir":
		c.InputDir = value
	case "output_dir":
		c.OutputDir = value
	case "scene":
		c.Scene = value
	case "target_object":
		c.TargetObject = value
	case "on_error":
		c.OnError = value
	case "log_level":
		c.LogLevel = value
	case "watch":
		c.Watch, err = strconv.ParseBool(value)
	case "watch_debounce_ms":
		c.WatchDebounceMS, err = strconv.Atoi(value)
	case "render.format":
		c.Render.Format = value
	case "render.resolution_x":
		c.Render.ResolutionX, err = strconv.Atoi(value)
	case "render.resolution_y":
		c.Render.ResolutionY, err = strconv.Atoi(value)
	case "render.quality":
		c.Render.Quality, err = strconv.Atoi(value)
	case "render.caption":
		c.Render.Caption, err = strconv.ParseBool(value)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if err != nil {
		return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, key, value, err)
	}
	return nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.InputDir == "" {
		errs = append(errs, errors.New("input_dir is required"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}
	if c.TargetObject == "" {
		errs = append(errs, errors.New("target_object is required"))
	}
	if _, err := batch.ParsePolicy(c.OnError); err != nil {
		errs = append(errs, err)
	}
	if _, err := core.ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if _, err := renderer.ParseFormat(c.Render.Format); err != nil {
		errs = append(errs, err)
	}
	if c.Render.ResolutionX <= 0 || c.Render.ResolutionY <= 0 {
		errs = append(errs, fmt.Errorf("resolution must be positive, got %dx%d", c.Render.ResolutionX, c.Render.ResolutionY))
	}
	if c.Render.Quality < 1 || c.Render.Quality > 100 {
		errs = append(errs, fmt.Errorf("render.quality must be within 1..100, got %d", c.Render.Quality))
	}
	if c.WatchDebounceMS < 0 {
		errs = append(errs, fmt.Errorf("watch_debounce_ms must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
