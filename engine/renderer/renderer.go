package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/batchrender/engine/core"
	"github.com/spaghettifunk/batchrender/engine/math"
	"github.com/spaghettifunk/batchrender/engine/renderer/components"
	"github.com/spaghettifunk/batchrender/engine/scene"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var ErrNoOutputPath = errors.New("render output path not set")

// Settings mirrors the output options of a still render.
type Settings struct {
	Format      Format
	ResolutionX int
	ResolutionY int
	// ResolutionPercentage scales both axes; batch renders keep it at 100.
	ResolutionPercentage int
	// Quality is the JPEG quality, 1..100.
	Quality    int
	Background math.Vec4
	// Caption draws the output's base name in the lower left corner.
	Caption bool
	// FilePath is the file the last still was written to. Set by RenderStill.
	FilePath string
}

func DefaultSettings() Settings {
	return Settings{
		Format:               FormatPNG,
		ResolutionX:          1920,
		ResolutionY:          1080,
		ResolutionPercentage: 100,
		Quality:              90,
		Background:           math.NewVec4(0.08, 0.08, 0.1, 1),
	}
}

// CaptionText is the base name of FilePath without its extension.
func (s Settings) CaptionText() string {
	base := filepath.Base(s.FilePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Size is the pixel size of the output after applying the percentage.
func (s Settings) Size() (int, int) {
	pct := s.ResolutionPercentage
	if pct <= 0 {
		pct = 100
	}
	return max(s.ResolutionX*pct/100, 1), max(s.ResolutionY*pct/100, 1)
}

// Renderer draws a scene through a backend and writes still images.
type Renderer struct {
	Settings Settings
	Camera   *components.Camera
	Light    components.DirectionalLight
	// AutoFrame points the camera at FrameTarget's bounds before every render.
	AutoFrame   bool
	FrameTarget *scene.Object

	scene   *scene.Scene
	backend RendererBackend
}

func New(sc *scene.Scene, settings Settings) *Renderer {
	return &Renderer{
		Settings: settings,
		Camera:   components.NewCamera(),
		Light:    components.NewDirectionalLight(),
		scene:    sc,
		backend:  NewSoftwareBackend(),
	}
}

// SetBackend swaps the rasterizer, mostly for tests.
func (r *Renderer) SetBackend(b RendererBackend) {
	r.backend = b
}

// Render draws every visible object with geometry and returns the frame.
func (r *Renderer) Render(ctx context.Context) (*image.RGBA, error) {
	width, height := r.Settings.Size()
	aspect := float32(width) / float32(height)

	if r.AutoFrame && r.FrameTarget != nil {
		if ext, ok := r.FrameTarget.WorldExtents(); ok {
			r.Camera.Frame(ext, aspect)
		}
	}

	frame := FrameData{
		Width:      width,
		Height:     height,
		Clear:      r.Settings.Background,
		View:       r.Camera.GetView(),
		Projection: r.Camera.GetProjection(aspect),
		Eye:        r.Camera.Position,
		Light:      r.Light,
	}
	if err := r.backend.BeginFrame(frame); err != nil {
		return nil, err
	}
	for _, o := range r.scene.Objects() {
		if err := ctx.Err(); err != nil {
			_, _ = r.backend.EndFrame()
			return nil, err
		}
		mesh := o.Data()
		if o.HideRender || mesh == nil || mesh.TriangleCount() == 0 {
			continue
		}
		r.backend.DrawGeometry(GeometryRenderData{
			Model:    o.Transform.GetWorld(),
			Vertices: mesh.Vertices,
			Indices:  mesh.Indices,
			Material: r.materialFor(mesh),
		})
	}
	return r.backend.EndFrame()
}

// materialFor shades with the mesh's first material slot, or the scene default.
func (r *Renderer) materialFor(mesh *scene.Mesh) MaterialData {
	mat := r.scene.DefaultMaterial()
	if mats := mesh.Materials(); len(mats) > 0 {
		mat = mats[0]
	}
	return MaterialData{DiffuseColour: mat.DiffuseColour, Shininess: mat.Shininess}
}

// RenderStill renders the scene to outPath and blocks until the file is written.
func (r *Renderer) RenderStill(ctx context.Context, outPath string) error {
	if outPath == "" {
		return ErrNoOutputPath
	}
	r.Settings.FilePath = outPath
	clock := core.NewClock()
	clock.Start()

	img, err := r.Render(ctx)
	if err != nil {
		return fmt.Errorf("render %s: %w", r.Settings.FilePath, err)
	}
	if r.Settings.Caption {
		drawCaption(img, r.Settings.CaptionText())
	}
	if err := WriteImage(r.Settings.FilePath, img, r.Settings.Format, r.Settings.Quality); err != nil {
		return err
	}

	clock.Stop()
	core.LogDebug("rendered %s (%dx%d) in %s", r.Settings.FilePath, img.Bounds().Dx(), img.Bounds().Dy(), clock.Elapsed())
	return nil
}

func drawCaption(img draw.Image, text string) {
	face := basicfont.Face7x13
	bounds := img.Bounds()
	pad := 6
	textWidth := font.MeasureString(face, text).Ceil()
	strip := image.Rect(bounds.Min.X, bounds.Max.Y-face.Height-2*pad, bounds.Min.X+textWidth+2*pad, bounds.Max.Y)
	draw.Draw(img, strip, image.NewUniform(color.RGBA{A: 160}), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(bounds.Min.X+pad, bounds.Max.Y-pad-face.Descent),
	}
	d.DrawString(text)
}
