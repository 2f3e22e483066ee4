package scene

import (
	"github.com/spaghettifunk/batchrender/engine/core"
	"github.com/spaghettifunk/batchrender/engine/math"
	"github.com/spaghettifunk/batchrender/engine/resources"
)

/**
 * @brief Generates configuration for a box centred on the origin.
 *
 * @param width The size along x. Zero defaults to one.
 * @param height The size along y. Zero defaults to one.
 * @param depth The size along z. Zero defaults to one.
 * @param name The name of the generated geometry.
 * @return A geometry configuration which can then be fed into Scene.NewMesh.
 */
func GenerateCube(width, height, depth float32, name string) *resources.GeometryConfig {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if height == 0 {
		core.LogWarn("Height must be nonzero. Defaulting to one.")
		height = 1.0
	}
	if depth == 0 {
		core.LogWarn("Depth must be nonzero. Defaulting to one.")
		depth = 1.0
	}

	hx, hy, hz := width*0.5, height*0.5, depth*0.5
	// Each face: normal plus two in-plane axes chosen so that u x v == normal.
	faces := [6]struct{ n, u, v math.Vec3 }{
		{math.NewVec3(0, 0, 1), math.NewVec3(1, 0, 0), math.NewVec3(0, 1, 0)},   // front
		{math.NewVec3(0, 0, -1), math.NewVec3(-1, 0, 0), math.NewVec3(0, 1, 0)}, // back
		{math.NewVec3(-1, 0, 0), math.NewVec3(0, 0, 1), math.NewVec3(0, 1, 0)},  // left
		{math.NewVec3(1, 0, 0), math.NewVec3(0, 0, -1), math.NewVec3(0, 1, 0)},  // right
		{math.NewVec3(0, -1, 0), math.NewVec3(1, 0, 0), math.NewVec3(0, 0, 1)},  // bottom
		{math.NewVec3(0, 1, 0), math.NewVec3(1, 0, 0), math.NewVec3(0, 0, -1)},  // top
	}
	half := math.NewVec3(hx, hy, hz)

	cfg := &resources.GeometryConfig{
		Name:     name,
		Vertices: make([]math.Vertex3D, 0, 4*6),
		Indices:  make([]uint32, 0, 6*6),
	}
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for _, f := range faces {
		base := uint32(len(cfg.Vertices))
		for _, c := range corners {
			p := f.n.Add(f.u.MulScalar(c[0])).Add(f.v.MulScalar(c[1])).Mul(half)
			cfg.Vertices = append(cfg.Vertices, math.Vertex3D{Position: p, Normal: f.n})
		}
		cfg.Indices = append(cfg.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	cfg.Extents = math.Extents3D{Min: half.MulScalar(-1), Max: half}
	// Always 0 since min/max of each axis are -/+ half of the size.
	cfg.Center = math.NewVec3Zero()
	return cfg
}

// GeneratePlane builds a single-quad plane in XZ facing +Y.
func GeneratePlane(width, depth float32, name string) *resources.GeometryConfig {
	if width == 0 {
		width = 1.0
	}
	if depth == 0 {
		depth = 1.0
	}
	hx, hz := width*0.5, depth*0.5
	up := math.NewVec3Up()
	cfg := &resources.GeometryConfig{
		Name: name,
		Vertices: []math.Vertex3D{
			{Position: math.NewVec3(-hx, 0, hz), Normal: up},
			{Position: math.NewVec3(hx, 0, hz), Normal: up},
			{Position: math.NewVec3(hx, 0, -hz), Normal: up},
			{Position: math.NewVec3(-hx, 0, -hz), Normal: up},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
	cfg.Extents = math.ExtentsFromVertices(cfg.Vertices)
	cfg.Center = cfg.Extents.Center()
	return cfg
}
