package loaders

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hschendel/stl"
	"github.com/spaghettifunk/batchrender/engine/core"
	"github.com/spaghettifunk/batchrender/engine/math"
	"github.com/spaghettifunk/batchrender/engine/resources"
)

// STLLoader reads ASCII and binary STL files into an indexed GeometryConfig.
type STLLoader struct{}

func (sl *STLLoader) Load(path string, assetType resources.ResourceType, params interface{}) (*resources.Resource, error) {
	solid, err := stl.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stl %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	cfg := GeometryFromSolid(name, solid)
	core.LogDebug("stl %s: %d triangles, %d unique vertices (solid %q)", path, len(solid.Triangles), len(cfg.Vertices), solid.Name)

	return &resources.Resource{
		Type:     resources.ResourceTypeMesh,
		Name:     name,
		FullPath: path,
		DataSize: uint64(cfg.TriangleCount()),
		Data:     cfg,
	}, nil
}

// GeometryFromSolid welds the triangle soup of solid into indexed geometry. Facets whose
// stored normal is zero get a normal computed from their winding.
func GeometryFromSolid(name string, solid *stl.Solid) *resources.GeometryConfig {
	vertices := make([]math.Vertex3D, 0, len(solid.Triangles)*3)
	indices := make([]uint32, 0, len(solid.Triangles)*3)

	for _, tri := range solid.Triangles {
		var pos [3]math.Vec3
		for i, v := range tri.Vertices {
			pos[i] = math.NewVec3(v[0], v[1], v[2])
		}
		normal := math.NewVec3(tri.Normal[0], tri.Normal[1], tri.Normal[2])
		if normal.LengthSquared() == 0 {
			normal = math.FaceNormal(pos[0], pos[1], pos[2])
		} else {
			normal = normal.Normalized()
		}
		for _, p := range pos {
			indices = append(indices, uint32(len(vertices)))
			vertices = append(vertices, math.Vertex3D{Position: p, Normal: normal})
		}
	}

	vertices = math.GeometryDeduplicateVertices(vertices, indices)
	extents := math.ExtentsFromVertices(vertices)
	return &resources.GeometryConfig{
		Name:     name,
		Vertices: vertices,
		Indices:  indices,
		Center:   extents.Center(),
		Extents:  extents,
	}
}

func (sl *STLLoader) Unload(res *resources.Resource) error {
	res.Data = nil
	return nil
}
