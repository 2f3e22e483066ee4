package engine

import (
	"context"
	"image"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spaghettifunk/batchrender/engine/batch"
	"github.com/spaghettifunk/batchrender/engine/config"
	"github.com/spaghettifunk/batchrender/engine/core"
	"github.com/spaghettifunk/batchrender/testbed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDemoEngine(t *testing.T, overrides map[string]string) (*Engine, *testbed.Workspace) {
	t.Helper()
	core.SetLogOutput(io.Discard)
	ws, err := testbed.Create(t.TempDir())
	require.NoError(t, err)

	cfg, err := config.NewLoader(config.LoadOptions{BaseDir: ws.Root, ConfigPath: ws.ConfigPath}).Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Set("render.resolution_x", "64"))
	require.NoError(t, cfg.Set("render.resolution_y", "36"))
	for k, v := range overrides {
		require.NoError(t, cfg.Set(k, v))
	}
	ac, err := NewApplicationConfig(cfg)
	require.NoError(t, err)
	e, err := New(ac)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Shutdown() })
	return e, ws
}

func names(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

func TestEngine_RendersDemoWorkspace(t *testing.T) {
	// --- Arrange ---
	e, ws := newDemoEngine(t, nil)
	require.NoError(t, e.Initialize())

	rendered := map[string][]string{}
	e.Events().Register(core.EventFileRendered, t, func(code core.EventCode, sender, listener interface{}, data core.EventContext) bool {
		ev := data.Data.(batch.FileEvent)
		target, _ := e.Scene().Object("MainObject")
		rendered[filepath.Base(ev.Input)] = target.Data().MaterialNames()
		return false
	})

	// --- Act ---
	report, err := e.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Len(t, report.Processed, 3)
	assert.Equal(t, []string{"bracket.png", "pyramid.png", "wedge.png"}, names(t, ws.OutputDir))
	assert.Equal(t, []string{"bracket.stl", "pyramid.stl", "wedge.stl"}, names(t, filepath.Join(ws.InputDir, batch.DoneDirName)))
	assert.Equal(t, map[string][]string{
		"bracket.stl": {"default"},
		"pyramid.stl": {"anodised_red"},
		"wedge.stl":   {"default"},
	}, rendered)

	target, ok := e.Scene().Object("MainObject")
	require.True(t, ok)
	assert.Equal(t, "MainObject_mesh_wedge", target.Data().Name)
	assert.Equal(t, 2, e.Scene().ObjectCount(), "only the target and the floor remain")

	f, err := os.Open(filepath.Join(ws.OutputDir, "pyramid.png"))
	require.NoError(t, err)
	defer f.Close()
	imgCfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 64, imgCfg.Width)
	assert.Equal(t, 36, imgCfg.Height)
}

func TestEngine_FormatSetsExtension(t *testing.T) {
	e, ws := newDemoEngine(t, map[string]string{"render.format": "jpeg"})
	require.NoError(t, e.Initialize())

	_, err := e.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"bracket.jpg", "pyramid.jpg", "wedge.jpg"}, names(t, ws.OutputDir))
}

func TestEngine_MissingTargetTouchesNothing(t *testing.T) {
	e, ws := newDemoEngine(t, map[string]string{"target_object": "Nope"})

	err := e.Initialize()

	assert.ErrorIs(t, err, batch.ErrTargetNotFound)
	assert.Empty(t, names(t, ws.OutputDir))
	assert.NotContains(t, names(t, ws.InputDir), batch.DoneDirName)
}

func TestEngine_DefaultScene(t *testing.T) {
	e, _ := newDemoEngine(t, map[string]string{"scene": ""})

	require.NoError(t, e.Initialize())

	assert.Equal(t, 1, e.Scene().ObjectCount())
	_, ok := e.Scene().Object("MainObject")
	assert.True(t, ok)
	assert.True(t, e.Renderer().AutoFrame)
	assert.NotNil(t, e.Renderer().FrameTarget)
}

func TestEngine_ImportGarbageFails(t *testing.T) {
	e, ws := newDemoEngine(t, nil)
	require.NoError(t, e.Initialize())
	path := filepath.Join(ws.InputDir, "junk.stl")
	require.NoError(t, os.WriteFile(path, []byte("not an stl"), 0o644))

	objs, err := e.Import(context.Background(), path)

	assert.Error(t, err)
	assert.Empty(t, objs)
	assert.Equal(t, 2, e.Scene().ObjectCount())
}

func TestEngine_ImportNamesObjectAfterFile(t *testing.T) {
	e, ws := newDemoEngine(t, nil)
	require.NoError(t, e.Initialize())

	first, err := e.Import(context.Background(), ws.Inputs[0])
	require.NoError(t, err)
	second, err := e.Import(context.Background(), ws.Inputs[0])
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, "bracket", first[0].Name)
	assert.Equal(t, "bracket.001", second[0].Name)
	assert.Equal(t, 12, first[0].Data().TriangleCount())
}

func TestEngine_StageChecks(t *testing.T) {
	e, _ := newDemoEngine(t, nil)

	_, err := e.Run(context.Background())
	assert.ErrorIs(t, err, ErrWrongStage)

	require.NoError(t, e.Initialize())
	assert.ErrorIs(t, e.Initialize(), ErrWrongStage)
	assert.Equal(t, EngineStageInitialized, e.Stage())
}

func TestEngine_CancelledRun(t *testing.T) {
	e, ws := newDemoEngine(t, nil)
	require.NoError(t, e.Initialize())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := e.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, report.Pending, 3)
	assert.Len(t, names(t, ws.InputDir), 4, "three inputs and the pyramid material")
}

func TestNewApplicationConfig_RejectsInvalid(t *testing.T) {
	cfg := config.Default(t.TempDir())
	cfg.OnError = "retry"

	_, err := NewApplicationConfig(cfg)

	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestEngine_ReleasesAssetsAfterRun(t *testing.T) {
	// --- Arrange ---
	e, ws := newDemoEngine(t, nil)
	require.NoError(t, e.Initialize())
	require.Empty(t, e.assetManager.Loaded())

	// --- Act ---
	_, err := e.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Empty(t, e.assetManager.Loaded())
	assert.Len(t, names(t, ws.OutputDir), 3)
}

func TestEngine_WatchReturnsLastRunError(t *testing.T) {
	// --- Arrange ---
	e, ws := newDemoEngine(t, map[string]string{
		"watch":             "true",
		"watch_debounce_ms": "20",
		"on_error":          "continue",
	})
	require.NoError(t, e.Initialize())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Once the first run is done, keep writing a broken part until a watched run
	// has picked it up.
	var runs atomic.Int32
	var wg sync.WaitGroup
	broken := filepath.Join(ws.InputDir, "zz_broken.stl")
	e.Events().Register(core.EventRunFinished, "watch-test", func(code core.EventCode, sender, listener interface{}, data core.EventContext) bool {
		switch runs.Add(1) {
		case 1:
			wg.Add(1)
			go func() {
				defer wg.Done()
				tick := time.NewTicker(25 * time.Millisecond)
				defer tick.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-tick.C:
						_ = os.WriteFile(broken, []byte("not an stl"), 0o644)
					}
				}
			}()
		default:
			cancel()
		}
		return false
	})

	// --- Act ---
	report, err := e.Run(ctx)
	wg.Wait()

	// --- Assert ---
	require.GreaterOrEqual(t, runs.Load(), int32(2))
	require.ErrorIs(t, err, batch.ErrBatchIncomplete)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, broken, report.Failed[0].Input)
	assert.Equal(t, []string{"bracket.png", "pyramid.png", "wedge.png"}, names(t, ws.OutputDir))
}
