package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spaghettifunk/batchrender/engine/assets"
	"github.com/spaghettifunk/batchrender/engine/assets/loaders"
	"github.com/spaghettifunk/batchrender/engine/batch"
	"github.com/spaghettifunk/batchrender/engine/core"
	"github.com/spaghettifunk/batchrender/engine/math"
	"github.com/spaghettifunk/batchrender/engine/renderer"
	"github.com/spaghettifunk/batchrender/engine/renderer/components"
	"github.com/spaghettifunk/batchrender/engine/resources"
	"github.com/spaghettifunk/batchrender/engine/scene"
	"github.com/spaghettifunk/batchrender/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

var ErrWrongStage = errors.New("engine is not in the required stage")

// MaterialExtension is the sidecar material file looked up next to each input.
const MaterialExtension = ".amt"

var (
	_ batch.Importer = (*Engine)(nil)
	_ batch.Renderer = (*Engine)(nil)
)

type Engine struct {
	currentStage Stage
	appConfig    *ApplicationConfig
	assetManager *assets.AssetManager
	events       *core.EventBus
	scene        *scene.Scene
	renderer     *renderer.Renderer
	driver       *batch.Driver
	clock        *core.Clock

	jobsMutex sync.Mutex
	jobs      *systems.JobSystem
}

func New(ac *ApplicationConfig) (*Engine, error) {
	if ac == nil {
		return nil, errors.New("nil application config")
	}
	e := &Engine{
		currentStage: EngineStageBooting,
		appConfig:    ac,
		assetManager: assets.NewAssetManager(),
		events:       core.NewEventBus(),
		clock:        core.NewClock(),
	}
	core.SetLogLevel(ac.LogLevel)
	if ac.WatchDebounce > 0 {
		e.assetManager.Debounce = ac.WatchDebounce
	}
	e.currentStage = EngineStageBootComplete
	return e, nil
}

// Events is the bus the batch driver fires run and per-file events on.
func (e *Engine) Events() *core.EventBus {
	return e.events
}

func (e *Engine) Scene() *scene.Scene {
	return e.scene
}

func (e *Engine) Renderer() *renderer.Renderer {
	return e.renderer
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

/**
 * @brief Builds the scene, the renderer and the batch driver. Fails when the
 * target object is not part of the scene, before any input is touched.
 */
func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageBootComplete {
		return fmt.Errorf("%w: initialize needs boot complete, got %d", ErrWrongStage, e.currentStage)
	}
	e.currentStage = EngineStageInitializing

	sceneCfg, err := e.loadSceneConfig()
	if err != nil {
		return err
	}
	e.scene = scene.NewScene(sceneCfg.Name)
	for _, m := range sceneCfg.LoadedMaterials {
		e.scene.AcquireMaterial(m)
	}
	for i := range sceneCfg.Objects {
		if err := e.buildObject(&sceneCfg.Objects[i]); err != nil {
			return err
		}
	}

	settings := e.appConfig.Render
	bg := sceneCfg.Background
	settings.Background = math.NewVec4(bg[0], bg[1], bg[2], bg[3])
	e.renderer = renderer.New(e.scene, settings)
	e.configureView(sceneCfg)

	e.driver, err = batch.NewDriver(e.scene, e.appConfig.TargetObject, e, e, batch.Options{
		InputDir:  e.appConfig.InputDir,
		OutputDir: e.appConfig.OutputDir,
		Extension: settings.Format.Extension(),
		Policy:    e.appConfig.Policy,
		Events:    e.events,
	})
	if err != nil {
		return err
	}
	if e.renderer.AutoFrame {
		e.renderer.FrameTarget = e.driver.Target()
	}

	core.LogInfo("scene %q ready: %d object(s), %d material(s)", e.scene.Name, e.scene.ObjectCount(), e.scene.MaterialCount())
	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) loadSceneConfig() (*resources.SceneConfig, error) {
	if e.appConfig.ScenePath == "" {
		return loaders.DefaultSceneConfig(e.appConfig.TargetObject), nil
	}
	res, err := e.assetManager.LoadAsset(e.appConfig.ScenePath, nil)
	if err != nil {
		return nil, fmt.Errorf("load scene: %w", err)
	}
	cfg, ok := res.Data.(*resources.SceneConfig)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a scene description", loaders.ErrInvalidScene, e.appConfig.ScenePath)
	}
	_ = e.assetManager.UnloadAsset(res)
	return cfg, nil
}

func (e *Engine) buildObject(oc *resources.ObjectConfig) error {
	var geometry *resources.GeometryConfig
	switch {
	case oc.Primitive == loaders.PrimitiveCube:
		geometry = scene.GenerateCube(1, 1, 1, oc.Name)
	case oc.Primitive == loaders.PrimitivePlane:
		geometry = scene.GeneratePlane(1, 1, oc.Name)
	default:
		res, err := e.assetManager.LoadAsset(oc.Mesh, nil)
		if err != nil {
			return fmt.Errorf("object %q: %w", oc.Name, err)
		}
		geometry = res.Data.(*resources.GeometryConfig)
		defer e.assetManager.UnloadAsset(res)
	}

	material := e.scene.DefaultMaterial()
	if oc.Material != "" {
		m, ok := e.scene.Material(oc.Material)
		if !ok {
			return fmt.Errorf("%w: object %q uses unknown material %q", loaders.ErrInvalidScene, oc.Name, oc.Material)
		}
		material = m
	}

	mesh := e.scene.NewMesh(geometry)
	mesh.AppendMaterial(material)
	obj, err := e.scene.NewObject(oc.Name, mesh)
	if err != nil {
		_ = e.scene.RemoveMesh(mesh)
		return err
	}
	rot := vec3(oc.Rotation)
	obj.Transform.SetPositionRotationScale(
		vec3(oc.Location),
		math.NewVec3(math.DegToRad(rot.X), math.DegToRad(rot.Y), math.DegToRad(rot.Z)),
		vec3(oc.Scale),
	)
	obj.HideRender = oc.Hidden
	return nil
}

func (e *Engine) configureView(cfg *resources.SceneConfig) {
	cam := e.renderer.Camera
	cam.Up = vec3(cfg.Camera.Up)
	cam.FOV = math.DegToRad(cfg.Camera.FOV)
	cam.Near = cfg.Camera.Near
	cam.Far = cfg.Camera.Far
	cam.SetPosition(vec3(cfg.Camera.Position))
	cam.LookAt(vec3(cfg.Camera.Target))
	e.renderer.AutoFrame = cfg.Camera.AutoFrame

	e.renderer.Light = components.DirectionalLight{
		Direction: vec3(cfg.Light.Direction).Normalized(),
		Colour:    vec3(cfg.Light.Colour),
		Ambient:   cfg.Light.Ambient,
	}
}

/**
 * @brief Imports an STL file as a new scene object. The object takes the
 * material of a sibling .amt file with the same base name when there is one,
 * otherwise the scene's default material. A file without triangles yields no
 * objects.
 */
func (e *Engine) Import(ctx context.Context, path string) ([]*scene.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := e.assetManager.LoadAsset(path, nil)
	if err != nil {
		return nil, err
	}
	defer e.assetManager.UnloadAsset(res)

	geometry, ok := res.Data.(*resources.GeometryConfig)
	if !ok || geometry.TriangleCount() == 0 {
		core.LogWarn("%s contains no triangles", path)
		return nil, nil
	}
	material, err := e.importMaterial(path)
	if err != nil {
		return nil, err
	}

	mesh := e.scene.NewMesh(geometry)
	mesh.AppendMaterial(material)
	obj, err := e.scene.NewObject(e.scene.UniqueObjectName(res.Name), mesh)
	if err != nil {
		_ = e.scene.RemoveMesh(mesh)
		return nil, err
	}
	core.LogDebug("imported %s as %q (%d triangles, material %q)", path, obj.Name, mesh.TriangleCount(), material.Name)
	return []*scene.Object{obj}, nil
}

func (e *Engine) importMaterial(path string) (*scene.Material, error) {
	sidecar := strings.TrimSuffix(path, filepath.Ext(path)) + MaterialExtension
	if _, err := os.Stat(sidecar); errors.Is(err, os.ErrNotExist) {
		return e.scene.DefaultMaterial(), nil
	}
	res, err := e.assetManager.LoadAsset(sidecar, nil)
	if err != nil {
		return nil, fmt.Errorf("material for %s: %w", path, err)
	}
	defer e.assetManager.UnloadAsset(res)
	return e.scene.AcquireMaterial(res.Data.(*resources.MaterialConfig)), nil
}

// RenderStill renders the current scene to outPath.
func (e *Engine) RenderStill(ctx context.Context, outPath string) error {
	return e.renderer.RenderStill(ctx, outPath)
}

/**
 * @brief Runs the batch once. In watch mode it then keeps watching the input
 * folder and re-runs the batch on one worker until ctx is cancelled. The report
 * and error of the most recent run are returned, joined with any watch error.
 */
func (e *Engine) Run(ctx context.Context) (*batch.Report, error) {
	if e.currentStage != EngineStageInitialized {
		return nil, fmt.Errorf("%w: run needs initialized, got %d", ErrWrongStage, e.currentStage)
	}
	e.currentStage = EngineStageRunning
	defer func() {
		if e.currentStage == EngineStageRunning {
			e.currentStage = EngineStageInitialized
		}
	}()

	e.clock.Start()
	report, err := e.driver.Run(ctx)
	if !e.appConfig.Watch || ctx.Err() != nil {
		e.clock.Stop()
		return report, err
	}
	if err != nil {
		core.LogError("batch run failed: %s", err)
	}

	jobs, jerr := systems.NewJobSystem(ctx, 1, 1)
	if jerr != nil {
		return report, jerr
	}
	e.jobsMutex.Lock()
	e.jobs = jobs
	e.jobsMutex.Unlock()

	// report and lastErr always describe the same run.
	var mu sync.Mutex
	lastErr := err
	job := systems.JobTask{
		Name: "batch",
		OnStart: func(ctx context.Context) error {
			r, err := e.driver.Run(ctx)
			mu.Lock()
			report, lastErr = r, err
			mu.Unlock()
			return err
		},
	}
	werr := e.assetManager.Watch(ctx, e.appConfig.InputDir, func() {
		if err := jobs.TrySubmit(job); errors.Is(err, systems.ErrQueueFull) {
			core.LogDebug("batch already queued")
		} else if err != nil {
			core.LogWarn("cannot queue batch: %s", err)
		}
	})
	_ = jobs.Shutdown()
	e.jobsMutex.Lock()
	e.jobs = nil
	e.jobsMutex.Unlock()
	e.clock.Stop()

	mu.Lock()
	defer mu.Unlock()
	return report, errors.Join(werr, lastErr)
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.jobsMutex.Lock()
	jobs := e.jobs
	e.jobsMutex.Unlock()
	if jobs != nil {
		if err := jobs.Shutdown(); err != nil {
			return err
		}
	}
	e.events.Shutdown()
	if leaked := e.assetManager.Loaded(); len(leaked) > 0 {
		core.LogWarn("%d asset(s) still loaded at shutdown", len(leaked))
	}
	core.LogDebug("engine up for %s", e.clock.Elapsed())
	e.currentStage = EngineStageUninitialized
	return nil
}

func vec3(a [3]float32) math.Vec3 {
	return math.NewVec3FromArray(a)
}
