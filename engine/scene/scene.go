// Package scene is the in-memory scene graph the batch driver mutates: named objects,
// shared mesh datablocks and materials.
//
// A Scene is not safe for concurrent use. The batch loop owns it for the duration of
// a run.
package scene

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/batchrender/engine/core"
	"github.com/spaghettifunk/batchrender/engine/math"
	"github.com/spaghettifunk/batchrender/engine/resources"
)

var (
	ErrObjectExists   = errors.New("object already exists")
	ErrObjectNotFound = errors.New("object not found")
	ErrMeshInUse      = errors.New("mesh still in use")
	ErrMeshNotFound   = errors.New("mesh not found")
)

type Scene struct {
	Name string

	objects map[string]*Object
	order   []*Object
	meshes  map[uint32]*Mesh

	materials       map[string]*Material
	defaultMaterial *Material

	objectIDs   core.Identifiers
	meshIDs     core.Identifiers
	materialIDs core.Identifiers
}

func NewScene(name string) *Scene {
	s := &Scene{
		Name:      name,
		objects:   make(map[string]*Object),
		meshes:    make(map[uint32]*Mesh),
		materials: make(map[string]*Material),
	}
	s.defaultMaterial = s.AcquireMaterial(&resources.MaterialConfig{
		Name:          DefaultMaterialName,
		DiffuseColour: math.NewVec4(0.8, 0.8, 0.8, 1),
		Shininess:     16,
	})
	return s
}

// NewObject adds an object called name that uses mesh (which may be nil).
func (s *Scene) NewObject(name string, mesh *Mesh) (*Object, error) {
	if _, exists := s.objects[name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrObjectExists, name)
	}
	o := &Object{
		Name:      name,
		Transform: math.TransformCreate(),
		scene:     s,
	}
	o.ID = s.objectIDs.Acquire(o)
	o.SetData(mesh)
	s.objects[name] = o
	s.order = append(s.order, o)
	return o, nil
}

func (s *Scene) Object(name string) (*Object, bool) {
	o, ok := s.objects[name]
	return o, ok
}

// Objects returns the objects in creation order.
func (s *Scene) Objects() []*Object {
	return append([]*Object(nil), s.order...)
}

// RemoveObject deletes o from the scene and drops its reference on its mesh. The mesh
// itself stays registered; see RemoveMesh.
func (s *Scene) RemoveObject(o *Object) error {
	if cur, ok := s.objects[o.Name]; !ok || cur != o {
		return fmt.Errorf("%w: %q", ErrObjectNotFound, o.Name)
	}
	o.SetData(nil)
	delete(s.objects, o.Name)
	for i, cur := range s.order {
		if cur == o {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if err := s.objectIDs.Release(o.ID); err != nil {
		return err
	}
	o.scene = nil
	return nil
}

// RemoveMesh unregisters m and releases its materials. It fails with ErrMeshInUse
// while any object still references m.
func (s *Scene) RemoveMesh(m *Mesh) error {
	if cur, ok := s.meshes[m.ID]; !ok || cur != m {
		return fmt.Errorf("%w: %q", ErrMeshNotFound, m.Name)
	}
	if m.users > 0 {
		return fmt.Errorf("%w: %q has %d users", ErrMeshInUse, m.Name, m.users)
	}
	m.ClearMaterials()
	delete(s.meshes, m.ID)
	if err := s.meshIDs.Release(m.ID); err != nil {
		return err
	}
	m.Vertices = nil
	m.Indices = nil
	return nil
}

// Meshes returns the registered meshes in id order.
func (s *Scene) Meshes() []*Mesh {
	out := make([]*Mesh, 0, len(s.meshes))
	for id := uint32(0); len(out) < len(s.meshes); id++ {
		if m, ok := s.meshes[id]; ok {
			out = append(out, m)
		}
	}
	return out
}

func (s *Scene) ObjectCount() int {
	return len(s.objects)
}

func (s *Scene) MeshCount() int {
	return len(s.meshes)
}

// UniqueObjectName returns base, or base with the first free ".NNN" suffix.
func (s *Scene) UniqueObjectName(base string) string {
	return uniqueName(base, func(n string) bool {
		_, taken := s.objects[n]
		return taken
	})
}

func (s *Scene) uniqueMeshName(base string) string {
	return uniqueName(base, func(n string) bool {
		for _, m := range s.meshes {
			if m.Name == n {
				return true
			}
		}
		return false
	})
}

func uniqueName(base string, taken func(string) bool) string {
	if !taken(base) {
		return base
	}
	for i := 1; ; i++ {
		n := fmt.Sprintf("%s.%03d", base, i)
		if !taken(n) {
			return n
		}
	}
}
