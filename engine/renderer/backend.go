package renderer

import (
	"image"

	"github.com/spaghettifunk/batchrender/engine/math"
	"github.com/spaghettifunk/batchrender/engine/renderer/components"
)

// MaterialData is the part of a material the backend shades with.
type MaterialData struct {
	DiffuseColour math.Vec4
	Shininess     float32
}

// GeometryRenderData is one draw call.
type GeometryRenderData struct {
	Model    math.Mat4
	Vertices []math.Vertex3D
	Indices  []uint32
	Material MaterialData
}

// FrameData carries the per-frame globals.
type FrameData struct {
	Width, Height int
	Clear         math.Vec4
	View          math.Mat4
	Projection    math.Mat4
	Eye           math.Vec3
	Light         components.DirectionalLight
}

type RendererBackend interface {
	BeginFrame(frame FrameData) error
	DrawGeometry(data GeometryRenderData)
	EndFrame() (*image.RGBA, error)
}
