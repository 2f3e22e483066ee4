package renderer

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/batchrender/engine/math"
	"github.com/spaghettifunk/batchrender/engine/resources"
	"github.com/spaghettifunk/batchrender/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallSettings() Settings {
	s := DefaultSettings()
	s.ResolutionX = 64
	s.ResolutionY = 48
	return s
}

func cubeScene(t *testing.T) (*scene.Scene, *scene.Object) {
	t.Helper()
	sc := scene.NewScene("test")
	obj, err := sc.NewObject("MainObject", sc.NewMesh(scene.GenerateCube(1, 1, 1, "cube")))
	require.NoError(t, err)
	return sc, obj
}

func TestParseFormat(t *testing.T) {
	cases := map[string]struct {
		want Format
		ext  string
	}{
		"png":  {FormatPNG, "png"},
		"JPG":  {FormatJPEG, "jpg"},
		"jpeg": {FormatJPEG, "jpg"},
		"bmp":  {FormatBMP, "bmp"},
		"tif":  {FormatTIFF, "tif"},
	}
	for in, tc := range cases {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, tc.ext, got.Extension())
	}

	_, err := ParseFormat("exr")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSettings_Size(t *testing.T) {
	s := DefaultSettings()
	w, h := s.Size()
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)

	s.ResolutionPercentage = 50
	w, h = s.Size()
	assert.Equal(t, 960, w)
	assert.Equal(t, 540, h)
}

func TestRenderer_DrawsFramedCube(t *testing.T) {
	// Arrange
	sc, obj := cubeScene(t)
	r := New(sc, smallSettings())
	r.Camera.SetPosition(math.NewVec3(3, 2, 5))
	r.AutoFrame = true
	r.FrameTarget = obj
	obj.Transform.SetPosition(math.NewVec3(20, 0, 0))

	// Act
	img, err := r.Render(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 48), img.Bounds())
	bg := toRGBA(r.Settings.Background)
	assert.Equal(t, bg, img.RGBAAt(0, 0), "corner should be background")
	assert.NotEqual(t, bg, img.RGBAAt(32, 24), "centre should be covered by the framed cube")
}

func TestRenderer_HiddenObjectsAreSkipped(t *testing.T) {
	sc, obj := cubeScene(t)
	r := New(sc, smallSettings())
	backend := NewSoftwareBackend()
	r.SetBackend(backend)
	obj.HideRender = true

	img, err := r.Render(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, backend.Triangles)
	assert.Equal(t, toRGBA(r.Settings.Background), img.RGBAAt(32, 24))
}

func TestRenderer_UsesFirstMaterialSlot(t *testing.T) {
	sc, obj := cubeScene(t)
	r := New(sc, smallSettings())
	assert.Equal(t, sc.DefaultMaterial().DiffuseColour, r.materialFor(obj.Data()).DiffuseColour)

	red := sc.AcquireMaterial(&resources.MaterialConfig{Name: "red", DiffuseColour: math.NewVec4(1, 0, 0, 1)})
	obj.Data().AppendMaterial(red)

	assert.Equal(t, math.NewVec4(1, 0, 0, 1), r.materialFor(obj.Data()).DiffuseColour)
}

func TestRenderStill_WritesImageAtomically(t *testing.T) {
	sc, obj := cubeScene(t)
	r := New(sc, smallSettings())
	r.AutoFrame = true
	r.FrameTarget = obj
	r.Settings.Caption = true
	dir := t.TempDir()
	out := filepath.Join(dir, "part.png")

	require.NoError(t, r.RenderStill(context.Background(), out))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, out, r.Settings.FilePath)
	assert.Equal(t, "part", r.Settings.CaptionText())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestRenderStill_MissingOutputDir(t *testing.T) {
	sc, _ := cubeScene(t)
	r := New(sc, smallSettings())

	err := r.RenderStill(context.Background(), filepath.Join(t.TempDir(), "missing", "a.png"))

	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRenderStill_Cancelled(t *testing.T) {
	sc, _ := cubeScene(t)
	r := New(sc, smallSettings())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.RenderStill(ctx, filepath.Join(t.TempDir(), "a.png"))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncode_AllFormats(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.SetRGBA(1, 1, color.RGBA{R: 255, A: 255})
	dir := t.TempDir()
	for _, f := range []Format{FormatPNG, FormatJPEG, FormatBMP, FormatTIFF} {
		path := filepath.Join(dir, "img."+f.Extension())
		require.NoError(t, WriteImage(path, img, f, 80), f)
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}
