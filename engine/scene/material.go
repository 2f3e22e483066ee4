package scene

import (
	"github.com/spaghettifunk/batchrender/engine/math"
	"github.com/spaghettifunk/batchrender/engine/resources"
)

const DefaultMaterialName = "default"

/**
 * @brief A material: the surface description used when shading a mesh.
 * Materials are shared by name within a scene and reference counted by
 * the meshes whose material slots point at them.
 */
type Material struct {
	/** @brief The material id. */
	ID uint32
	/** @brief The material name. Unique within a scene. */
	Name string
	/** @brief The diffuse colour. */
	DiffuseColour math.Vec4
	/** @brief The specular exponent. Zero disables highlights. */
	Shininess float32

	referenceCount uint32
	autoRelease    bool
}

// Users is the number of mesh material slots currently holding the material.
func (m *Material) Users() uint32 {
	return m.referenceCount
}

// AcquireMaterial returns the material named cfg.Name, registering it from cfg the
// first time the name is seen. The returned material is not referenced until it is
// appended to a mesh.
func (s *Scene) AcquireMaterial(cfg *resources.MaterialConfig) *Material {
	if m, ok := s.materials[cfg.Name]; ok {
		return m
	}
	m := &Material{
		Name:          cfg.Name,
		DiffuseColour: cfg.DiffuseColour,
		Shininess:     cfg.Shininess,
		autoRelease:   cfg.AutoRelease,
	}
	m.ID = s.materialIDs.Acquire(m)
	s.materials[m.Name] = m
	return m
}

// Material looks a registered material up by name.
func (s *Scene) Material(name string) (*Material, bool) {
	m, ok := s.materials[name]
	return m, ok
}

// DefaultMaterial is never released.
func (s *Scene) DefaultMaterial() *Material {
	return s.defaultMaterial
}

func (s *Scene) MaterialCount() int {
	return len(s.materials)
}

func (s *Scene) referenceMaterial(m *Material) {
	m.referenceCount++
}

func (s *Scene) releaseMaterial(m *Material) {
	if m.referenceCount > 0 {
		m.referenceCount--
	}
	if m.referenceCount == 0 && m.autoRelease && m != s.defaultMaterial {
		delete(s.materials, m.Name)
		_ = s.materialIDs.Release(m.ID)
	}
}
