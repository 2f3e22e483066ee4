// Package batch drives the import, graft, render, archive and release loop over a
// folder of STL files.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spaghettifunk/batchrender/engine/assets"
	"github.com/spaghettifunk/batchrender/engine/core"
	"github.com/spaghettifunk/batchrender/engine/scene"
)

var (
	ErrTargetNotFound   = errors.New("target object not found in scene")
	ErrImportNoGeometry = errors.New("import produced no geometry")
	ErrOutputDirMissing = errors.New("output directory does not exist")
	ErrBatchIncomplete  = errors.New("batch finished with failures")
)

const (
	// DoneDirName is the archive folder created inside the input folder.
	DoneDirName = "done"
	// MeshSeparator joins the target name and the input base name in grafted mesh names.
	MeshSeparator = "_mesh_"
)

// Importer loads a mesh file into the scene and returns the objects it created.
type Importer interface {
	Import(ctx context.Context, path string) ([]*scene.Object, error)
}

// Renderer renders the current scene to outPath, returning once the file is written.
type Renderer interface {
	RenderStill(ctx context.Context, outPath string) error
}

type Options struct {
	InputDir  string
	OutputDir string
	// Extension of the rendered files, without the dot. Defaults to png.
	Extension string
	Policy    Policy
	// Events receives the run and per-file events. Optional.
	Events *core.EventBus
}

// Driver owns the target object for the lifetime of its runs. It is not safe for
// concurrent use; runs must not overlap.
type Driver struct {
	opts     Options
	scene    *scene.Scene
	target   *scene.Object
	importer Importer
	renderer Renderer

	// lastGraft is the mesh created by the previous graft, released once unused.
	lastGraft *scene.Mesh
}

// NewDriver resolves the target object once. A missing target is reported here,
// before any input is touched.
func NewDriver(sc *scene.Scene, targetName string, importer Importer, renderer Renderer, opts Options) (*Driver, error) {
	target, ok := sc.Object(targetName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTargetNotFound, targetName)
	}
	if opts.Extension == "" {
		opts.Extension = "png"
	}
	return &Driver{
		opts:     opts,
		scene:    sc,
		target:   target,
		importer: importer,
		renderer: renderer,
	}, nil
}

func (d *Driver) Target() *scene.Object {
	return d.target
}

// Run processes every input currently in the input folder, in file name order.
// Under PolicyAbort the first failure is returned as is; under PolicyContinue the
// run completes and returns ErrBatchIncomplete if anything failed. The report is
// always returned, even on error.
func (d *Driver) Run(ctx context.Context) (*Report, error) {
	clock := core.NewClock()
	clock.Start()
	metrics := core.NewMetrics()
	report := &Report{RunID: uuid.NewString()}
	core.SetLogFields("run", report.RunID[:8])
	defer core.SetLogFields()

	finish := func() {
		clock.Stop()
		report.Duration = clock.Elapsed()
		report.AvgRender = metrics.Average()
		d.opts.Events.Fire(core.EventRunFinished, d, report)
	}

	if err := checkDir(d.opts.OutputDir); err != nil {
		finish()
		return report, err
	}
	files, err := assets.Discover(d.opts.InputDir)
	if err != nil {
		finish()
		return report, err
	}
	d.opts.Events.Fire(core.EventRunStarted, d, report.RunID)
	core.LogInfo("found %d input file(s) in %s", len(files), d.opts.InputDir)

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			report.Pending = append(report.Pending, files[i:]...)
			finish()
			return report, err
		}

		ev := FileEvent{RunID: report.RunID, Index: i + 1, Total: len(files), Input: path}
		d.opts.Events.Fire(core.EventFileStarted, d, ev)
		core.LogInfo("processing %s (%d/%d)", path, ev.Index, ev.Total)

		res, err := d.processFile(ctx, &ev, metrics)
		if err != nil {
			res.Err = err
			ev.Err = err
			report.Failed = append(report.Failed, res)
			d.opts.Events.Fire(core.EventFileFailed, d, ev)
			if d.opts.Policy == PolicyAbort {
				report.Pending = append(report.Pending, files[i+1:]...)
				finish()
				return report, err
			}
			core.LogWarn("skipping %s: %s", path, err)
			continue
		}
		report.Processed = append(report.Processed, res)
	}

	finish()
	if len(report.Failed) > 0 {
		return report, fmt.Errorf("%w: %d of %d input(s) failed", ErrBatchIncomplete, len(report.Failed), len(files))
	}
	return report, nil
}

func (d *Driver) processFile(ctx context.Context, ev *FileEvent, metrics *core.Metrics) (FileResult, error) {
	start := time.Now()
	path := ev.Input
	res := FileResult{Input: path}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	objs, err := d.importer.Import(ctx, path)
	if err != nil {
		d.releaseFailed(objs)
		return res, fmt.Errorf("import %s: %w", path, err)
	}
	imported := d.pickImported(objs)
	if imported == nil {
		d.releaseFailed(objs)
		return res, fmt.Errorf("%w: %s", ErrImportNoGeometry, path)
	}
	d.graft(imported, base)
	d.opts.Events.Fire(core.EventFileImported, d, *ev)

	out := filepath.Join(d.opts.OutputDir, base+"."+d.opts.Extension)
	renderStart := time.Now()
	if err := d.renderer.RenderStill(ctx, out); err != nil {
		d.releaseFailed(objs)
		return res, fmt.Errorf("render %s: %w", path, err)
	}
	metrics.Update(time.Since(renderStart))
	res.Output = out
	ev.Output = out
	d.opts.Events.Fire(core.EventFileRendered, d, *ev)
	core.LogInfo("saved render to %s", out)

	archived, err := d.archive(path)
	if err != nil {
		d.releaseFailed(objs)
		return res, err
	}
	res.Archived = archived
	d.opts.Events.Fire(core.EventFileArchived, d, *ev)

	if err := d.release(objs); err != nil {
		return res, err
	}
	res.Duration = time.Since(start)
	return res, nil
}

// pickImported returns the first imported object that is not the target and
// carries geometry.
func (d *Driver) pickImported(objs []*scene.Object) *scene.Object {
	for _, o := range objs {
		if o == nil || o == d.target || o.Data() == nil {
			continue
		}
		return o
	}
	return nil
}

// graft gives the target an independent copy of the imported mesh and replaces
// its material list with the imported materials, in order.
func (d *Driver) graft(imported *scene.Object, base string) {
	src := imported.Data()
	dup := src.Copy()
	dup.Name = d.target.Name + MeshSeparator + base

	prev := d.target.SetData(dup)
	dup.ClearMaterials()
	for _, m := range src.Materials() {
		dup.AppendMaterial(m)
	}
	imported.HideRender = true

	if prev != nil && prev == d.lastGraft && prev.Users() == 0 {
		if err := d.scene.RemoveMesh(prev); err != nil {
			core.LogWarn("release previous mesh %q: %s", prev.Name, err)
		}
	}
	d.lastGraft = dup
	core.LogDebug("grafted %q onto %q with materials %v", dup.Name, d.target.Name, dup.MaterialNames())
}

func (d *Driver) archive(path string) (string, error) {
	doneDir := filepath.Join(d.opts.InputDir, DoneDirName)
	if err := os.MkdirAll(doneDir, 0o755); err != nil {
		return "", fmt.Errorf("create archive folder: %w", err)
	}
	dst := filepath.Join(doneDir, filepath.Base(path))
	if err := os.Rename(path, dst); err != nil {
		return "", fmt.Errorf("archive %s: %w", path, err)
	}
	return dst, nil
}

// release removes the imported objects, and each one's mesh once nothing else uses it.
func (d *Driver) release(objs []*scene.Object) error {
	var errs []error
	for _, o := range objs {
		if o == nil || o == d.target {
			continue
		}
		mesh := o.Data()
		if err := d.scene.RemoveObject(o); err != nil {
			errs = append(errs, err)
			continue
		}
		if mesh != nil && mesh.Users() == 0 {
			if err := d.scene.RemoveMesh(mesh); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// releaseFailed cleans up after a failed input when the run is going to continue.
// An aborting run leaves the scene as the failure found it.
func (d *Driver) releaseFailed(objs []*scene.Object) {
	if d.opts.Policy != PolicyContinue {
		return
	}
	if err := d.release(objs); err != nil {
		core.LogWarn("release after failure: %s", err)
	}
}

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrOutputDirMissing, dir)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrOutputDirMissing, dir)
	}
	return nil
}
