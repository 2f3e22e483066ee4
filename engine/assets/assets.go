package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/batchrender/engine/assets/loaders"
	"github.com/spaghettifunk/batchrender/engine/core"
	"github.com/spaghettifunk/batchrender/engine/resources"
)

// InputPattern selects the files a batch run picks up. Matching is case-sensitive.
const InputPattern = "*.stl"

// DefaultDebounce is how long Watch waits for a burst of file events to settle.
const DefaultDebounce = 500 * time.Millisecond

var ErrNoLoader = errors.New("no loader registered for asset type")

type AssetInfo struct {
	Path       string
	Type       resources.ResourceType
	LastLoaded time.Time
}

type AssetManager struct {
	assets  map[string]AssetInfo
	loaders map[resources.ResourceType]Loader

	mutex sync.RWMutex

	Debounce time.Duration
}

func NewAssetManager() *AssetManager {
	am := &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[resources.ResourceType]Loader),
		Debounce: DefaultDebounce,
	}

	// Register loaders
	materials := &loaders.MaterialLoader{}
	am.registerLoader(resources.ResourceTypeMesh, &loaders.STLLoader{})
	am.registerLoader(resources.ResourceTypeMaterial, materials)
	am.registerLoader(resources.ResourceTypeScene, &loaders.SceneLoader{Materials: materials})
	return am
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType resources.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset loads path with the loader registered for its extension.
func (am *AssetManager) LoadAsset(path string, params interface{}) (*resources.Resource, error) {
	assetType := determineAssetType(path)
	am.mutex.RLock()
	loader, ok := am.loaders[assetType]
	am.mutex.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNoLoader, assetType, path)
	}

	res, err := loader.Load(path, assetType, params)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	am.assets[path] = AssetInfo{Path: path, Type: assetType, LastLoaded: time.Now()}
	am.mutex.Unlock()
	return res, nil
}

func (am *AssetManager) UnloadAsset(res *resources.Resource) error {
	if res == nil {
		return nil
	}
	am.mutex.Lock()
	delete(am.assets, res.FullPath)
	loader, ok := am.loaders[res.Type]
	am.mutex.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoLoader, res.Type)
	}
	return loader.Unload(res)
}

// Loaded returns the assets currently held, keyed by path.
func (am *AssetManager) Loaded() map[string]AssetInfo {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	out := make(map[string]AssetInfo, len(am.assets))
	for k, v := range am.assets {
		out[k] = v
	}
	return out
}

// Discover lists the visible files directly inside dir whose name matches InputPattern,
// sorted by file name. Subdirectories (including the archive folder) are not scanned.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("discover inputs in %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if isInput(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Slice(files, func(i, j int) bool {
		return filepath.Base(files[i]) < filepath.Base(files[j])
	})
	return files, nil
}

// Watch blocks until ctx is done, calling onChange once a burst of Create or Write
// events on input files in dir has been quiet for am.Debounce.
func (am *AssetManager) Watch(ctx context.Context, dir string, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	core.LogInfo("watching %s for new input files", dir)

	timer := time.NewTimer(am.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) == 0 || !isInput(e.Name) {
				continue
			}
			core.LogDebug("watch: %s %s", e.Op, e.Name)
			timer.Reset(am.Debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			core.LogError("watch %s: %s", dir, err)

		case <-timer.C:
			onChange()

		case <-ctx.Done():
			return nil
		}
	}
}

// isInput matches InputPattern against the base name. Hidden files, such as the
// "._name.stl" companions left by macOS copies, never match.
func isInput(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	ok, _ := filepath.Match(InputPattern, name)
	return ok
}

func determineAssetType(path string) resources.ResourceType {
	switch filepath.Ext(path) {
	case ".stl":
		return resources.ResourceTypeMesh
	case ".amt":
		return resources.ResourceTypeMaterial
	case ".toml":
		return resources.ResourceTypeScene
	default:
		return resources.ResourceTypeNone
	}
}
