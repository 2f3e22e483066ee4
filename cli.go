package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/batchrender/engine/config"
	"github.com/spaghettifunk/batchrender/testbed"
)

// DefaultConfigName is picked up from the base directory when -config is not given.
const DefaultConfigName = "batchrender.toml"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"input":     "input_dir",
	"output":    "output_dir",
	"scene":     "scene",
	"target":    "target_object",
	"on-error":  "on_error",
	"log-level": "log_level",
	"watch":     "watch",
	"format":    "render.format",
	"width":     "render.resolution_x",
	"height":    "render.resolution_y",
	"quality":   "render.quality",
	"caption":   "render.caption",
}

type options struct {
	configPath    string
	overridesPath string
	demoDir       string
	cfg           *config.Config
}

// parse processes command-line arguments. It returns the loaded configuration,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// Flags win over the overrides file, which wins over the config file.
func parse(args []string, output io.Writer, baseDir string) (*options, bool, error) {
	flagSet := flag.NewFlagSet("batchrender", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, `
batchrender - render every STL file in a folder onto a scene object.

Usage:
  batchrender [options]

Each <input>/*.stl is imported, grafted onto the target object, rendered to
<output>/<name>.<ext> and moved to <input>/done.

Options:
`)
		flagSet.PrintDefaults()
	}

	opts := &options{}
	flagSet.StringVar(&opts.configPath, "config", "", "Configuration file (.toml, .yaml or .yml). Defaults to "+DefaultConfigName+" next to the executable, if present.")
	flagSet.StringVar(&opts.overridesPath, "overrides", "", "Optional file merged on top of the configuration file.")
	flagSet.StringVar(&opts.demoDir, "demo", "", "Create a demo workspace in this folder and render it.")
	flagSet.String("input", "", "Folder with the *.stl files to render.")
	flagSet.String("output", "", "Existing folder receiving the rendered images.")
	flagSet.String("scene", "", "Scene description (.toml). Empty uses a single cube.")
	flagSet.String("target", "", "Name of the scene object that receives each mesh.")
	flagSet.String("on-error", "", "What a failing file does to the run: 'abort' or 'continue'.")
	flagSet.String("log-level", "", "Logging level: 'debug', 'info', 'warn' or 'error'.")
	flagSet.Bool("watch", false, "Keep running and render new files as they appear.")
	flagSet.String("format", "", "Image format: PNG, JPEG, BMP or TIFF.")
	flagSet.Int("width", 0, "Output width in pixels.")
	flagSet.Int("height", 0, "Output height in pixels.")
	flagSet.Int("quality", 0, "JPEG quality, 1-100.")
	flagSet.Bool("caption", false, "Draw the file name onto each image.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError(err)
	}
	if flagSet.NArg() > 0 {
		return nil, false, usageError(fmt.Errorf("unexpected arguments: %v", flagSet.Args()))
	}

	if opts.demoDir != "" {
		ws, err := createDemo(opts.demoDir)
		if err != nil {
			return nil, false, &ExitError{Code: 1, Message: err.Error()}
		}
		baseDir = ws.Root
		if opts.configPath == "" {
			opts.configPath = ws.ConfigPath
		}
	}
	if opts.configPath == "" {
		if candidate := filepath.Join(baseDir, DefaultConfigName); fileExists(candidate) {
			opts.configPath = candidate
		}
	}
	cfg, err := config.NewLoader(config.LoadOptions{
		BaseDir:       baseDir,
		ConfigPath:    opts.configPath,
		OverridesPath: opts.overridesPath,
	}).Load()
	if err != nil {
		return nil, false, usageError(err)
	}

	var setErr error
	flagSet.Visit(func(f *flag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || setErr != nil {
			return
		}
		setErr = cfg.Set(key, f.Value.String())
	})
	if setErr != nil {
		return nil, false, usageError(setErr)
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, usageError(err)
	}
	opts.cfg = cfg
	return opts, false, nil
}

func createDemo(dir string) (*testbed.Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	ws, err := testbed.Create(abs)
	if err != nil {
		return nil, fmt.Errorf("create demo workspace: %w", err)
	}
	return ws, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
