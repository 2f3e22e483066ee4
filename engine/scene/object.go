package scene

import (
	"github.com/spaghettifunk/batchrender/engine/math"
)

// Object places a mesh in the scene.
type Object struct {
	ID        uint32
	Name      string
	Transform *math.Transform
	// HideRender keeps the object in the scene but out of rendered images.
	HideRender bool

	data  *Mesh
	scene *Scene
}

func (o *Object) Data() *Mesh {
	return o.data
}

// SetData points the object at mesh, maintaining user counts, and returns the mesh
// previously referenced (possibly nil). The previous mesh is not removed.
func (o *Object) SetData(mesh *Mesh) *Mesh {
	prev := o.data
	if prev == mesh {
		return prev
	}
	if prev != nil {
		prev.users--
	}
	if mesh != nil {
		mesh.users++
	}
	o.data = mesh
	return prev
}

// WorldExtents returns the object's mesh bounds in world space. ok is false when
// the object has no geometry.
func (o *Object) WorldExtents() (ext math.Extents3D, ok bool) {
	if o.data == nil || len(o.data.Vertices) == 0 {
		return math.Extents3D{}, false
	}
	return o.data.Extents.Transform(o.Transform.GetWorld()), true
}
