package renderer

import (
	"errors"
	"image"
	"image/color"
	stdmath "math"

	"github.com/spaghettifunk/batchrender/engine/math"
)

var errFrameNotStarted = errors.New("frame not started")

// SoftwareBackend rasterizes triangles on the CPU into an RGBA image with a
// depth buffer. Shading is flat per triangle: Lambert diffuse plus a Blinn-Phong
// highlight. Triangles are lit from both sides since STL winding is not reliable.
type SoftwareBackend struct {
	frame    FrameData
	viewProj math.Mat4
	lightDir math.Vec3
	colour   *image.RGBA
	depth    []float32
	inFrame  bool

	// Triangles counts the triangles that reached the rasterizer in the current frame.
	Triangles int
}

func NewSoftwareBackend() *SoftwareBackend {
	return &SoftwareBackend{}
}

func (b *SoftwareBackend) BeginFrame(frame FrameData) error {
	if frame.Width <= 0 || frame.Height <= 0 {
		return errors.New("frame size must be positive")
	}
	b.frame = frame
	b.viewProj = frame.View.Mul(frame.Projection)
	b.lightDir = frame.Light.Direction.MulScalar(-1).Normalized()
	b.colour = image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	b.depth = make([]float32, frame.Width*frame.Height)
	for i := range b.depth {
		b.depth[i] = stdmath.MaxFloat32
	}
	clear := toRGBA(frame.Clear)
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			b.colour.SetRGBA(x, y, clear)
		}
	}
	b.Triangles = 0
	b.inFrame = true
	return nil
}

func (b *SoftwareBackend) DrawGeometry(data GeometryRenderData) {
	if !b.inFrame {
		return
	}
	w, h := float32(b.frame.Width), float32(b.frame.Height)
	for i := 0; i+2 < len(data.Indices); i += 3 {
		var world [3]math.Vec3
		var screen [3]math.Vec3
		visible := true
		for k := 0; k < 3; k++ {
			world[k] = data.Vertices[data.Indices[i+k]].Position.Transform(data.Model)
			clip := world[k].ToVec4(1).Transform(b.viewProj)
			if clip.W <= 1e-6 {
				visible = false
				break
			}
			ndc := math.NewVec3(clip.X/clip.W, clip.Y/clip.W, clip.Z/clip.W)
			screen[k] = math.NewVec3((ndc.X*0.5+0.5)*w, (0.5-ndc.Y*0.5)*h, ndc.Z)
		}
		if !visible {
			continue
		}

		normal := math.FaceNormal(world[0], world[1], world[2])
		if normal.LengthSquared() == 0 {
			continue
		}
		centroid := world[0].Add(world[1]).Add(world[2]).MulScalar(1.0 / 3.0)
		toEye := b.frame.Eye.Sub(centroid).Normalized()
		if normal.Dot(toEye) < 0 {
			normal = normal.MulScalar(-1)
		}

		b.Triangles++
		b.rasterize(screen, toRGBA(b.shade(normal, toEye, data.Material)))
	}
}

func (b *SoftwareBackend) shade(normal, toEye math.Vec3, mat MaterialData) math.Vec4 {
	light := b.frame.Light
	base := mat.DiffuseColour.ToVec3()

	diffuse := max(normal.Dot(b.lightDir), 0)
	lit := base.MulScalar(light.Ambient).Add(base.Mul(light.Colour).MulScalar(diffuse))

	if mat.Shininess > 0 && diffuse > 0 {
		half := b.lightDir.Add(toEye).Normalized()
		spec := math.Pow(max(normal.Dot(half), 0), mat.Shininess) * 0.5
		lit = lit.Add(light.Colour.MulScalar(spec))
	}
	return lit.ToVec4(mat.DiffuseColour.W)
}

func edge(a, b math.Vec3, px, py float32) float32 {
	return (b.X-a.X)*(py-a.Y) - (b.Y-a.Y)*(px-a.X)
}

func (b *SoftwareBackend) rasterize(p [3]math.Vec3, c color.RGBA) {
	area := edge(p[0], p[1], p[2].X, p[2].Y)
	if area == 0 {
		return
	}
	minX := max(int(stdmath.Floor(float64(min(p[0].X, p[1].X, p[2].X)))), 0)
	maxX := min(int(stdmath.Ceil(float64(max(p[0].X, p[1].X, p[2].X)))), b.frame.Width-1)
	minY := max(int(stdmath.Floor(float64(min(p[0].Y, p[1].Y, p[2].Y)))), 0)
	maxY := min(int(stdmath.Ceil(float64(max(p[0].Y, p[1].Y, p[2].Y)))), b.frame.Height-1)

	inv := 1 / area
	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			w0 := edge(p[1], p[2], px, py) * inv
			w1 := edge(p[2], p[0], px, py) * inv
			w2 := edge(p[0], p[1], px, py) * inv
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*p[0].Z + w1*p[1].Z + w2*p[2].Z
			if z < -1 || z > 1 {
				continue
			}
			idx := y*b.frame.Width + x
			if z >= b.depth[idx] {
				continue
			}
			b.depth[idx] = z
			b.colour.SetRGBA(x, y, c)
		}
	}
}

func (b *SoftwareBackend) EndFrame() (*image.RGBA, error) {
	if !b.inFrame {
		return nil, errFrameNotStarted
	}
	b.inFrame = false
	img := b.colour
	b.colour = nil
	b.depth = nil
	return img, nil
}

func toRGBA(c math.Vec4) color.RGBA {
	conv := func(f float32) uint8 {
		return uint8(math.Clamp(f, 0, 1)*255 + 0.5)
	}
	return color.RGBA{R: conv(c.X), G: conv(c.Y), B: conv(c.Z), A: conv(c.W)}
}
