package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spaghettifunk/batchrender/engine/core"
	"github.com/spaghettifunk/batchrender/engine/math"
	"github.com/spaghettifunk/batchrender/engine/resources"
	"github.com/spaghettifunk/batchrender/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const target = "MainObject"

var errBrokenFile = errors.New("broken file")

// fakeImporter creates one object per file. The file holds one material name per
// line, or one of the markers FAIL (import error), NONE (nothing created) and
// NOMESH (object without geometry).
type fakeImporter struct {
	scene    *scene.Scene
	calls    []string
	baseline int
	maxAlive int
	// shared, when set, is used as the mesh of every import.
	shared *scene.Mesh
}

func (fi *fakeImporter) Import(ctx context.Context, path string) ([]*scene.Object, error) {
	fi.calls = append(fi.calls, filepath.Base(path))
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	body := strings.TrimSpace(string(content))
	switch body {
	case "FAIL":
		return nil, errBrokenFile
	case "NONE":
		return nil, nil
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var mesh *scene.Mesh
	if body != "NOMESH" {
		mesh = fi.shared
		if mesh == nil {
			mesh = fi.scene.NewMesh(scene.GenerateCube(1, 1, 1, name))
			for _, line := range strings.Fields(body) {
				mesh.AppendMaterial(fi.scene.AcquireMaterial(&resources.MaterialConfig{
					Name:          line,
					DiffuseColour: math.NewVec4(1, 1, 1, 1),
					AutoRelease:   true,
				}))
			}
		}
	}
	obj, err := fi.scene.NewObject(fi.scene.UniqueObjectName(name), mesh)
	if err != nil {
		return nil, err
	}
	if alive := fi.scene.ObjectCount() - fi.baseline; alive > fi.maxAlive {
		fi.maxAlive = alive
	}
	return []*scene.Object{obj}, nil
}

type renderCall struct {
	Output    string
	Mesh      string
	Materials []string
	Objects   int
}

// fakeRenderer writes a placeholder file and records the target's state.
type fakeRenderer struct {
	scene *scene.Scene
	calls []renderCall
	err   error
}

func (fr *fakeRenderer) RenderStill(ctx context.Context, outPath string) error {
	if fr.err != nil {
		return fr.err
	}
	t, _ := fr.scene.Object(target)
	fr.calls = append(fr.calls, renderCall{
		Output:    filepath.Base(outPath),
		Mesh:      t.Data().Name,
		Materials: t.Data().MaterialNames(),
		Objects:   fr.scene.ObjectCount(),
	})
	return os.WriteFile(outPath, []byte("image"), 0o644)
}

type fixture struct {
	input, output string
	scene         *scene.Scene
	importer      *fakeImporter
	renderer      *fakeRenderer
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	core.SetLogOutput(&strings.Builder{})
	root := t.TempDir()
	f := &fixture{
		input:  filepath.Join(root, "stl_files_to_render"),
		output: filepath.Join(root, "output"),
		scene:  scene.NewScene("test"),
	}
	require.NoError(t, os.MkdirAll(f.input, 0o755))
	require.NoError(t, os.MkdirAll(f.output, 0o755))
	for name, content := range files {
		path := filepath.Join(f.input, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	_, err := f.scene.NewObject(target, f.scene.NewMesh(scene.GenerateCube(1, 1, 1, "Cube")))
	require.NoError(t, err)
	f.importer = &fakeImporter{scene: f.scene, baseline: f.scene.ObjectCount()}
	f.renderer = &fakeRenderer{scene: f.scene}
	return f
}

func (f *fixture) driver(t *testing.T, opts Options) *Driver {
	t.Helper()
	opts.InputDir = f.input
	opts.OutputDir = f.output
	d, err := NewDriver(f.scene, target, f.importer, f.renderer, opts)
	require.NoError(t, err)
	return d
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRun_RendersAndArchivesEveryInput(t *testing.T) {
	// Arrange
	f := newFixture(t, map[string]string{"b.stl": "red", "a.stl": "blue"})
	d := f.driver(t, Options{})

	// Act
	report, err := d.Run(context.Background())

	// Assert
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Len(t, report.Processed, 2)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, []string{"a.stl", "b.stl"}, f.importer.calls)
	assert.Equal(t, []string{"a.png", "b.png"}, listDir(t, f.output))
	assert.Equal(t, []string{"a.stl", "b.stl"}, listDir(t, filepath.Join(f.input, DoneDirName)))
	assert.Equal(t, []string{DoneDirName}, listDir(t, f.input))
	assert.Equal(t, filepath.Join(f.input, DoneDirName, "a.stl"), report.Processed[0].Archived)
}

func TestRun_TargetMaterialsMatchEachImport(t *testing.T) {
	f := newFixture(t, map[string]string{"a.stl": "red blue", "b.stl": "green", "c.stl": ""})
	d := f.driver(t, Options{})

	_, err := d.Run(context.Background())

	require.NoError(t, err)
	want := []renderCall{
		{Output: "a.png", Mesh: "MainObject_mesh_a", Materials: []string{"red", "blue"}, Objects: 2},
		{Output: "b.png", Mesh: "MainObject_mesh_b", Materials: []string{"green"}, Objects: 2},
		{Output: "c.png", Mesh: "MainObject_mesh_c", Materials: []string{}, Objects: 2},
	}
	if diff := cmp.Diff(want, f.renderer.calls); diff != "" {
		t.Errorf("render calls mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_AtMostOneImportedEntityAlive(t *testing.T) {
	f := newFixture(t, map[string]string{"a.stl": "red", "b.stl": "red", "c.stl": "blue"})
	d := f.driver(t, Options{})

	_, err := d.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, f.importer.maxAlive)
	assert.Equal(t, 1, f.scene.ObjectCount())
	// The target's original mesh plus the current graft; earlier grafts and the
	// imported meshes are released.
	assert.Equal(t, 2, f.scene.MeshCount())
	tgt, _ := f.scene.Object(target)
	assert.Equal(t, "MainObject_mesh_c", tgt.Data().Name)
	_, found := f.scene.Material("red")
	assert.False(t, found, "materials of released meshes are released too")
}

func TestNewDriver_MissingTargetTouchesNothing(t *testing.T) {
	f := newFixture(t, map[string]string{"a.stl": "red"})

	_, err := NewDriver(f.scene, "NoSuchObject", f.importer, f.renderer, Options{InputDir: f.input, OutputDir: f.output})

	assert.ErrorIs(t, err, ErrTargetNotFound)
	assert.Empty(t, f.importer.calls)
	assert.Empty(t, listDir(t, f.output))
	assert.Equal(t, []string{"a.stl"}, listDir(t, f.input))
}

func TestRun_AbortStopsAtFirstFailure(t *testing.T) {
	f := newFixture(t, map[string]string{"a.stl": "red", "b.stl": "FAIL", "c.stl": "blue"})
	d := f.driver(t, Options{})

	report, err := d.Run(context.Background())

	require.ErrorIs(t, err, errBrokenFile)
	assert.Equal(t, []string{"a.png"}, listDir(t, f.output))
	assert.Equal(t, []string{"a.stl"}, listDir(t, filepath.Join(f.input, DoneDirName)))
	assert.Equal(t, []string{"b.stl", "c.stl", DoneDirName}, listDir(t, f.input))
	assert.Equal(t, []string{"a.stl", "b.stl"}, f.importer.calls)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, filepath.Join(f.input, "b.stl"), report.Failed[0].Input)
	assert.Equal(t, []string{filepath.Join(f.input, "c.stl")}, report.Pending)
}

func TestRun_AbortOnEmptyImport(t *testing.T) {
	f := newFixture(t, map[string]string{"a.stl": "NONE", "b.stl": "red"})
	d := f.driver(t, Options{})

	_, err := d.Run(context.Background())

	assert.ErrorIs(t, err, ErrImportNoGeometry)
	assert.Empty(t, listDir(t, f.output))
	assert.Equal(t, []string{"a.stl", "b.stl"}, listDir(t, f.input))
}

func TestRun_ContinueIsolatesFailures(t *testing.T) {
	f := newFixture(t, map[string]string{"a.stl": "red", "b.stl": "NOMESH", "c.stl": "FAIL", "d.stl": "blue"})
	d := f.driver(t, Options{Policy: PolicyContinue})

	report, err := d.Run(context.Background())

	require.ErrorIs(t, err, ErrBatchIncomplete)
	assert.Equal(t, []string{"a.png", "d.png"}, listDir(t, f.output))
	assert.Equal(t, []string{"a.stl", "d.stl"}, listDir(t, filepath.Join(f.input, DoneDirName)))
	assert.Equal(t, []string{"b.stl", "c.stl", DoneDirName}, listDir(t, f.input))
	require.Len(t, report.Failed, 2)
	assert.ErrorIs(t, report.Failed[0].Err, ErrImportNoGeometry)
	assert.ErrorIs(t, report.Failed[1].Err, errBrokenFile)
	assert.Empty(t, report.Pending)
	assert.Equal(t, 1, f.scene.ObjectCount(), "failed imports are released")
	assert.Equal(t, 1, f.importer.maxAlive)
}

func TestRun_ContinueReleasesAfterRenderFailure(t *testing.T) {
	f := newFixture(t, map[string]string{"a.stl": "red"})
	f.renderer.err = errors.New("gpu on fire")
	d := f.driver(t, Options{Policy: PolicyContinue})

	_, err := d.Run(context.Background())

	assert.ErrorIs(t, err, ErrBatchIncomplete)
	assert.Equal(t, 1, f.scene.ObjectCount())
	assert.Equal(t, []string{"a.stl"}, listDir(t, f.input))
}

func TestRun_SharedMeshSurvivesRelease(t *testing.T) {
	f := newFixture(t, map[string]string{"a.stl": "red"})
	shared := f.scene.NewMesh(scene.GenerateCube(1, 1, 1, "Library"))
	_, err := f.scene.NewObject("LibraryObject", shared)
	require.NoError(t, err)
	f.importer.shared = shared
	f.importer.baseline = f.scene.ObjectCount()
	d := f.driver(t, Options{})

	_, err = d.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, shared.Users())
	assert.Contains(t, f.scene.Meshes(), shared)
}

func TestRun_IgnoresUppercaseAndNestedFiles(t *testing.T) {
	f := newFixture(t, map[string]string{"a.stl": "red", "B.STL": "red", "nested/c.stl": "red"})
	d := f.driver(t, Options{})

	_, err := d.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"a.stl"}, f.importer.calls)
	assert.Equal(t, []string{"B.STL", DoneDirName, "nested"}, listDir(t, f.input))
}

func TestRun_ExtensionFollowsFormat(t *testing.T) {
	f := newFixture(t, map[string]string{"a.stl": "red"})
	d := f.driver(t, Options{Extension: "jpg"})

	_, err := d.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg"}, listDir(t, f.output))
}

func TestRun_MissingOutputDir(t *testing.T) {
	f := newFixture(t, map[string]string{"a.stl": "red"})
	require.NoError(t, os.Remove(f.output))
	d := f.driver(t, Options{})

	_, err := d.Run(context.Background())

	assert.ErrorIs(t, err, ErrOutputDirMissing)
	assert.Empty(t, f.importer.calls)
}

func TestRun_CancelledBeforeFirstFile(t *testing.T) {
	f := newFixture(t, map[string]string{"a.stl": "red", "b.stl": "red"})
	d := f.driver(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := d.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, report.Pending, 2)
	assert.Empty(t, f.importer.calls)
}

func TestRun_FiresEvents(t *testing.T) {
	f := newFixture(t, map[string]string{"a.stl": "red", "b.stl": "FAIL"})
	bus := core.NewEventBus()
	var got []core.EventCode
	record := func(code core.EventCode, _, _ interface{}, _ core.EventContext) bool {
		got = append(got, code)
		return false
	}
	for code := core.EventRunStarted; code < core.MaxEventCode; code++ {
		bus.Register(code, "recorder", record)
	}
	d := f.driver(t, Options{Events: bus})

	_, err := d.Run(context.Background())

	require.Error(t, err)
	want := []core.EventCode{
		core.EventRunStarted,
		core.EventFileStarted, core.EventFileImported, core.EventFileRendered, core.EventFileArchived,
		core.EventFileStarted, core.EventFileFailed,
		core.EventRunFinished,
	}
	assert.Equal(t, want, got)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("Continue")
	require.NoError(t, err)
	assert.Equal(t, PolicyContinue, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyAbort, p)

	_, err = ParsePolicy("retry")
	assert.Error(t, err)
}
