package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/spaghettifunk/batchrender/engine/batch"
	"github.com/spaghettifunk/batchrender/engine/config"
	"github.com/spaghettifunk/batchrender/engine/core"
	"github.com/spaghettifunk/batchrender/engine/renderer"
)

type ApplicationConfig struct {
	// The application name used in log lines.
	Name string
	// Folder scanned for *.stl inputs.
	InputDir string
	// Folder receiving the rendered images. Must already exist.
	OutputDir string
	// Scene description file. Empty means the built-in single cube scene.
	ScenePath    string
	TargetObject string
	Policy       batch.Policy
	LogLevel     core.LogLevel
	// Keep running and re-run the batch when inputs appear.
	Watch         bool
	WatchDebounce time.Duration
	Render        renderer.Settings
}

// NewApplicationConfig validates cfg and converts it into engine settings.
func NewApplicationConfig(cfg *config.Config) (*ApplicationConfig, error) {
	if cfg == nil {
		return nil, errors.New("nil configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Validate already checked these parse.
	policy, _ := batch.ParsePolicy(cfg.OnError)
	level, _ := core.ParseLogLevel(cfg.LogLevel)
	format, _ := renderer.ParseFormat(cfg.Render.Format)

	settings := renderer.DefaultSettings()
	settings.Format = format
	settings.ResolutionX = cfg.Render.ResolutionX
	settings.ResolutionY = cfg.Render.ResolutionY
	settings.Quality = cfg.Render.Quality
	settings.Caption = cfg.Render.Caption

	return &ApplicationConfig{
		Name:          "batchrender",
		InputDir:      cfg.InputDir,
		OutputDir:     cfg.OutputDir,
		ScenePath:     cfg.Scene,
		TargetObject:  cfg.TargetObject,
		Policy:        policy,
		LogLevel:      level,
		Watch:         cfg.Watch,
		WatchDebounce: time.Duration(cfg.WatchDebounceMS) * time.Millisecond,
		Render:        settings,
	}, nil
}

func (ac *ApplicationConfig) String() string {
	w, h := ac.Render.Size()
	return fmt.Sprintf("%s: %s -> %s, target %q, %s %dx%d, on error %s",
		ac.Name, ac.InputDir, ac.OutputDir, ac.TargetObject, ac.Render.Format, w, h, ac.Policy)
}
