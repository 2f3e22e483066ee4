// Package testbed lays out a demo workspace: a scene file, materials, a config file
// and a handful of generated STL parts ready to be batch rendered.
package testbed

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hschendel/stl"
	"github.com/spaghettifunk/batchrender/engine/config"
	"github.com/spaghettifunk/batchrender/engine/core"
)

const (
	SceneFileName  = "scene.toml"
	ConfigFileName = "batchrender.toml"
)

type Workspace struct {
	Root       string
	InputDir   string
	OutputDir  string
	ScenePath  string
	ConfigPath string
	// Inputs holds the generated STL files in render order.
	Inputs []string
}

const sceneTOML = `name = "studio"
background = [0.09, 0.1, 0.12, 1.0]
materials = ["materials/floor.amt", "materials/placeholder.amt"]

[camera]
position = [4.0, 3.0, 6.0]
auto_frame = true
fov = 35.0

[light]
direction = [-0.5, -1.0, -0.4]
ambient = 0.2

[[objects]]
name = "MainObject"
primitive = "cube"
material = "placeholder"

[[objects]]
name = "Floor"
primitive = "plane"
material = "floor"
location = [0.0, -1.0, 0.0]
scale = [20.0, 1.0, 20.0]
`

const floorAMT = `# studio floor
name=floor
diffuse_colour=0.35 0.36 0.4 1.0
shininess=4
autorelease=false
`

const placeholderAMT = `name=placeholder
diffuse_colour=0.8 0.8 0.8 1.0
shininess=16
autorelease=false
`

const redAMT = `name=anodised_red
diffuse_colour=0.75 0.12 0.1 1.0
shininess=48
`

const configTOML = `input_dir = "stl_files_to_render"
output_dir = "output"
scene = "scene.toml"
target_object = "MainObject"
on_error = "continue"

[render]
format = "PNG"
resolution_x = 640
resolution_y = 360
caption = true
`

type stlPart struct {
	name  string
	solid *stl.Solid
}

/**
 * @brief Creates the demo workspace under root, replacing generated files that
 * already exist. The output folder is created empty.
 */
func Create(root string) (*Workspace, error) {
	ws := &Workspace{
		Root:       root,
		InputDir:   filepath.Join(root, config.DefaultInputDirName),
		OutputDir:  filepath.Join(root, config.DefaultOutputDirName),
		ScenePath:  filepath.Join(root, SceneFileName),
		ConfigPath: filepath.Join(root, ConfigFileName),
	}
	for _, dir := range []string{ws.InputDir, ws.OutputDir, filepath.Join(root, "materials")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	files := map[string]string{
		ws.ScenePath:  sceneTOML,
		ws.ConfigPath: configTOML,
		filepath.Join(root, "materials", "floor.amt"):       floorAMT,
		filepath.Join(root, "materials", "placeholder.amt"): placeholderAMT,
		filepath.Join(ws.InputDir, "pyramid.amt"):           redAMT,
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, err
		}
	}

	parts := []stlPart{
		{name: "bracket", solid: Box("bracket", 2, 0.4, 1)},
		{name: "pyramid", solid: Pyramid("pyramid", 1.5, 1.2)},
		{name: "wedge", solid: Wedge("wedge", 1.6, 0.8, 1)},
	}
	for i, p := range parts {
		path := filepath.Join(ws.InputDir, p.name+".stl")
		// Mix both encodings.
		p.solid.IsAscii = i%2 == 1
		if err := p.solid.WriteFile(path); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		ws.Inputs = append(ws.Inputs, path)
	}
	core.LogInfo("demo workspace ready in %s with %d input(s)", root, len(ws.Inputs))
	return ws, nil
}

func v(x, y, z float32) stl.Vec3 {
	return stl.Vec3{x, y, z}
}

// quad splits a counter clockwise quad into two triangles. Normals are left zero
// so the importer derives them from the winding.
func quad(a, b, c, d stl.Vec3) []stl.Triangle {
	return []stl.Triangle{
		{Vertices: [3]stl.Vec3{a, b, c}},
		{Vertices: [3]stl.Vec3{a, c, d}},
	}
}

// Box is an axis aligned box centred on the origin.
func Box(name string, w, h, d float32) *stl.Solid {
	x, y, z := w/2, h/2, d/2
	var tris []stl.Triangle
	tris = append(tris, quad(v(-x, -y, z), v(x, -y, z), v(x, y, z), v(-x, y, z))...)     // front
	tris = append(tris, quad(v(x, -y, -z), v(-x, -y, -z), v(-x, y, -z), v(x, y, -z))...) // back
	tris = append(tris, quad(v(-x, y, z), v(x, y, z), v(x, y, -z), v(-x, y, -z))...)     // top
	tris = append(tris, quad(v(-x, -y, -z), v(x, -y, -z), v(x, -y, z), v(-x, -y, z))...) // bottom
	tris = append(tris, quad(v(x, -y, z), v(x, -y, -z), v(x, y, -z), v(x, y, z))...)     // right
	tris = append(tris, quad(v(-x, -y, -z), v(-x, -y, z), v(-x, y, z), v(-x, y, -z))...) // left
	return &stl.Solid{Name: name, Triangles: tris}
}

// Pyramid has a square base of side base on y=0 and its apex at height.
func Pyramid(name string, base, height float32) *stl.Solid {
	s := base / 2
	apex := v(0, height, 0)
	a, b, c, d := v(-s, 0, s), v(s, 0, s), v(s, 0, -s), v(-s, 0, -s)
	tris := quad(d, c, b, a)
	tris = append(tris,
		stl.Triangle{Vertices: [3]stl.Vec3{a, b, apex}},
		stl.Triangle{Vertices: [3]stl.Vec3{b, c, apex}},
		stl.Triangle{Vertices: [3]stl.Vec3{c, d, apex}},
		stl.Triangle{Vertices: [3]stl.Vec3{d, a, apex}},
	)
	return &stl.Solid{Name: name, Triangles: tris}
}

// Wedge is a right triangular prism extruded along z.
func Wedge(name string, w, h, d float32) *stl.Solid {
	x, z := w/2, d/2
	f0, f1, f2 := v(-x, 0, z), v(x, 0, z), v(-x, h, z)
	b0, b1, b2 := v(-x, 0, -z), v(x, 0, -z), v(-x, h, -z)
	tris := []stl.Triangle{
		{Vertices: [3]stl.Vec3{f0, f1, f2}},
		{Vertices: [3]stl.Vec3{b0, b2, b1}},
	}
	tris = append(tris, quad(b0, b1, f1, f0)...) // bottom
	tris = append(tris, quad(b0, f0, f2, b2)...) // back wall
	tris = append(tris, quad(f1, b1, b2, f2)...) // slope
	return &stl.Solid{Name: name, Triangles: tris}
}
