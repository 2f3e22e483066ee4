package scene

import (
	"github.com/spaghettifunk/batchrender/engine/math"
	"github.com/spaghettifunk/batchrender/engine/resources"
)

// Mesh is a geometry datablock. Objects reference meshes; a mesh may be shared by
// several objects and carries its own ordered material slots.
type Mesh struct {
	ID         uint32
	Name       string
	Generation uint16
	Vertices   []math.Vertex3D
	Indices    []uint32
	Center     math.Vec3
	Extents    math.Extents3D

	materials []*Material
	users     int
	scene     *Scene
}

// NewMesh registers a mesh built from cfg. The vertex and index slices are copied.
func (s *Scene) NewMesh(cfg *resources.GeometryConfig) *Mesh {
	m := &Mesh{
		Name:     cfg.Name,
		Vertices: append([]math.Vertex3D(nil), cfg.Vertices...),
		Indices:  append([]uint32(nil), cfg.Indices...),
		Center:   cfg.Center,
		Extents:  cfg.Extents,
		scene:    s,
	}
	m.ID = s.meshIDs.Acquire(m)
	s.meshes[m.ID] = m
	return m
}

// Users reports how many objects reference the mesh.
func (m *Mesh) Users() int {
	return m.users
}

func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Materials returns a copy of the material slots in order.
func (m *Mesh) Materials() []*Material {
	return append([]*Material(nil), m.materials...)
}

// MaterialNames is a convenience for logging and tests.
func (m *Mesh) MaterialNames() []string {
	names := make([]string, len(m.materials))
	for i, mat := range m.materials {
		names[i] = mat.Name
	}
	return names
}

func (m *Mesh) AppendMaterial(mat *Material) {
	m.scene.referenceMaterial(mat)
	m.materials = append(m.materials, mat)
	m.Generation++
}

// ClearMaterials empties the material slots, releasing each material.
func (m *Mesh) ClearMaterials() {
	for _, mat := range m.materials {
		m.scene.releaseMaterial(mat)
	}
	m.materials = nil
	m.Generation++
}

// Copy registers an independent duplicate of the mesh, material slots included.
// The duplicate starts with no users and is named after the source with a
// ".001" style suffix.
func (m *Mesh) Copy() *Mesh {
	dup := &Mesh{
		Name:     m.scene.uniqueMeshName(m.Name),
		Vertices: append([]math.Vertex3D(nil), m.Vertices...),
		Indices:  append([]uint32(nil), m.Indices...),
		Center:   m.Center,
		Extents:  m.Extents,
		scene:    m.scene,
	}
	dup.ID = m.scene.meshIDs.Acquire(dup)
	m.scene.meshes[dup.ID] = dup
	for _, mat := range m.materials {
		dup.AppendMaterial(mat)
	}
	return dup
}
