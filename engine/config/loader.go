package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// LoadOptions configures how configuration is loaded.
type LoadOptions struct {
	// BaseDir anchors the default input and output folders.
	BaseDir string
	// ConfigPath is the main configuration file (.toml, .yaml or .yml). Optional.
	ConfigPath string
	// OverridesPath is merged on top of ConfigPath when it exists. Optional.
	OverridesPath string
}

// Loader handles loading configuration from files.
type Loader struct {
	opts LoadOptions
}

func NewLoader(opts LoadOptions) *Loader {
	return &Loader{opts: opts}
}

// Load starts from Default, overlays the config file and then the overrides file.
// Relative paths inside the files are resolved against the config file's directory.
func (l *Loader) Load() (*Config, error) {
	cfg := Default(l.opts.BaseDir)

	merged, err := l.loadFile(l.opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", l.opts.ConfigPath, err)
	}
	if l.opts.OverridesPath != "" {
		if _, err := os.Stat(l.opts.OverridesPath); err == nil {
			overrides, err := l.loadFile(l.opts.OverridesPath)
			if err != nil {
				return nil, fmt.Errorf("failed to load overrides from %s: %w", l.opts.OverridesPath, err)
			}
			merged = mergeConfigs(merged, overrides)
		}
	}
	if len(merged) == 0 {
		return cfg, nil
	}

	// Round-trip the merged tree through YAML so both file formats decode into the
	// same struct and unset keys keep their defaults.
	raw, err := yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to encode merged config: %w", err)
	}
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if l.opts.ConfigPath != "" {
		base := filepath.Dir(l.opts.ConfigPath)
		cfg.InputDir = resolve(base, cfg.InputDir)
		cfg.OutputDir = resolve(base, cfg.OutputDir)
		if cfg.Scene != "" {
			cfg.Scene = resolve(base, cfg.Scene)
		}
	}
	return cfg, nil
}

// loadFile reads a TOML or YAML file into a generic map, chosen by extension.
func (l *Loader) loadFile(path string) (map[string]interface{}, error) {
	if path == "" {
		return make(map[string]interface{}), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	data := make(map[string]interface{})
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(content, &data); err != nil {
			return nil, fmt.Errorf("failed to parse TOML from %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &data); err != nil {
			return nil, fmt.Errorf("failed to parse YAML from %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config file type %q", ErrInvalidConfig, filepath.Ext(path))
	}
	if data == nil {
		data = make(map[string]interface{})
	}
	return data, nil
}

// mergeConfigs recursively merges override config into base config.
// Arrays are replaced, tables are merged recursively.
func mergeConfigs(base, override map[string]interface{}) map[string]interface{} {
	for key, val := range override {
		if baseVal, exists := base[key]; exists {
			if baseMap, ok := baseVal.(map[string]interface{}); ok {
				if overrideMap, ok := val.(map[string]interface{}); ok {
					base[key] = mergeConfigs(baseMap, overrideMap)
					continue
				}
			}
		}
		// Replace for scalars, arrays, or type mismatches
		base[key] = val
	}
	return base
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
