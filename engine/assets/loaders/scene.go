package loaders

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/batchrender/engine/resources"
)

const (
	PrimitiveCube  = "cube"
	PrimitivePlane = "plane"
)

var ErrInvalidScene = errors.New("invalid scene description")

// SceneLoader reads a TOML scene description. Relative mesh and material paths are
// resolved against the scene file's directory and materials are parsed eagerly.
type SceneLoader struct {
	Materials *MaterialLoader
}

func (sl *SceneLoader) Load(path string, assetType resources.ResourceType, params interface{}) (*resources.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := &resources.SceneConfig{}
	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w: %s: %s", ErrInvalidScene, path, strict.String())
		}
		return nil, fmt.Errorf("decode scene %s: %w", path, err)
	}

	base := filepath.Dir(path)
	applySceneDefaults(cfg)
	if err := validateScene(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	ml := sl.Materials
	if ml == nil {
		ml = &MaterialLoader{}
	}
	for i, m := range cfg.Materials {
		cfg.Materials[i] = resolve(base, m)
		res, err := ml.Load(cfg.Materials[i], resources.ResourceTypeMaterial, nil)
		if err != nil {
			return nil, err
		}
		cfg.LoadedMaterials = append(cfg.LoadedMaterials, res.Data.(*resources.MaterialConfig))
	}
	for i := range cfg.Objects {
		if cfg.Objects[i].Mesh != "" {
			cfg.Objects[i].Mesh = resolve(base, cfg.Objects[i].Mesh)
		}
	}

	return &resources.Resource{
		Type:     resources.ResourceTypeScene,
		Name:     cfg.Name,
		FullPath: path,
		DataSize: uint64(len(cfg.Objects)),
		Data:     cfg,
	}, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// DefaultSceneConfig is used when no scene file is configured: a single cube
// named target, framed automatically.
func DefaultSceneConfig(target string) *resources.SceneConfig {
	cfg := &resources.SceneConfig{
		Name: "default",
		Camera: resources.CameraConfig{
			Position:  [3]float32{4, 3, 6},
			AutoFrame: true,
		},
		Objects: []resources.ObjectConfig{
			{Name: target, Primitive: PrimitiveCube},
		},
	}
	applySceneDefaults(cfg)
	return cfg
}

func applySceneDefaults(cfg *resources.SceneConfig) {
	if cfg.Background == [4]float32{} {
		cfg.Background = [4]float32{0.08, 0.08, 0.1, 1}
	}
	c := &cfg.Camera
	if c.Up == [3]float32{} {
		c.Up = [3]float32{0, 1, 0}
	}
	if c.FOV == 0 {
		c.FOV = 40
	}
	if c.Near == 0 {
		c.Near = 0.1
	}
	if c.Far == 0 {
		c.Far = 1000
	}
	if c.Position == c.Target {
		c.Position = [3]float32{c.Target[0] + 4, c.Target[1] + 3, c.Target[2] + 6}
	}
	l := &cfg.Light
	if l.Direction == [3]float32{} {
		l.Direction = [3]float32{-0.4, -1, -0.6}
	}
	if l.Colour == [3]float32{} {
		l.Colour = [3]float32{1, 1, 1}
	}
	if l.Ambient == 0 {
		l.Ambient = 0.15
	}
	for i := range cfg.Objects {
		if cfg.Objects[i].Scale == [3]float32{} {
			cfg.Objects[i].Scale = [3]float32{1, 1, 1}
		}
	}
}

func validateScene(cfg *resources.SceneConfig) error {
	if cfg.Camera.FOV <= 0 || cfg.Camera.FOV >= 180 {
		return fmt.Errorf("%w: camera fov must be within (0, 180), got %g", ErrInvalidScene, cfg.Camera.FOV)
	}
	if cfg.Camera.Near >= cfg.Camera.Far {
		return fmt.Errorf("%w: camera near (%g) must be less than far (%g)", ErrInvalidScene, cfg.Camera.Near, cfg.Camera.Far)
	}
	seen := make(map[string]struct{}, len(cfg.Objects))
	for i, o := range cfg.Objects {
		if o.Name == "" {
			return fmt.Errorf("%w: object #%d has no name", ErrInvalidScene, i)
		}
		if _, dup := seen[o.Name]; dup {
			return fmt.Errorf("%w: duplicate object name %q", ErrInvalidScene, o.Name)
		}
		seen[o.Name] = struct{}{}
		switch {
		case o.Primitive != "" && o.Mesh != "":
			return fmt.Errorf("%w: object %q sets both primitive and mesh", ErrInvalidScene, o.Name)
		case o.Primitive == "" && o.Mesh == "":
			return fmt.Errorf("%w: object %q needs a primitive or a mesh", ErrInvalidScene, o.Name)
		case o.Primitive != "" && o.Primitive != PrimitiveCube && o.Primitive != PrimitivePlane:
			return fmt.Errorf("%w: object %q has unknown primitive %q", ErrInvalidScene, o.Name, o.Primitive)
		}
	}
	return nil
}

func (sl *SceneLoader) Unload(res *resources.Resource) error {
	res.Data = nil
	return nil
}
