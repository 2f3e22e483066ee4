package assets

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spaghettifunk/batchrender/engine/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triangleSTL = `solid tri
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
endsolid tri
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscover_SortedCaseSensitiveNonRecursive(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	for _, name := range []string{"c.stl", "a.stl", "B.stl", "upper.STL", "notes.txt", "done/old.stl", "nested/x.stl", ".hidden.stl", "._a.stl"} {
		writeFile(t, filepath.Join(dir, name), triangleSTL)
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.stl"), 0o755))

	// Act
	files, err := Discover(dir)

	// Assert
	require.NoError(t, err)
	want := []string{
		filepath.Join(dir, "B.stl"),
		filepath.Join(dir, "a.stl"),
		filepath.Join(dir, "c.stl"),
	}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Errorf("Discover() mismatch (-want +got):\n%s", diff)
	}
}

func TestIsInput(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{path: "/in/part.stl", want: true},
		{path: "part.STL", want: false},
		{path: "/in/.part.stl", want: false},
		{path: "/in/._part.stl", want: false},
		{path: "/in/part.stl.tmp", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, isInput(tt.path))
		})
	}
}

func TestDiscover_MissingDir(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAssetManager_LoadAssetByExtension(t *testing.T) {
	dir := t.TempDir()
	stlPath := filepath.Join(dir, "tri.stl")
	writeFile(t, stlPath, triangleSTL)
	am := NewAssetManager()

	res, err := am.LoadAsset(stlPath, nil)
	require.NoError(t, err)
	assert.Equal(t, resources.ResourceTypeMesh, res.Type)
	assert.Equal(t, "tri", res.Name)
	assert.Contains(t, am.Loaded(), stlPath)

	require.NoError(t, am.UnloadAsset(res))
	assert.NotContains(t, am.Loaded(), stlPath)

	_, err = am.LoadAsset(filepath.Join(dir, "image.png"), nil)
	assert.ErrorIs(t, err, ErrNoLoader)
}

func TestAssetManager_WatchDebouncesInputEvents(t *testing.T) {
	dir := t.TempDir()
	am := NewAssetManager()
	am.Debounce = 50 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() { done <- am.Watch(ctx, dir, func() { calls.Add(1) }) }()
	time.Sleep(100 * time.Millisecond)

	writeFile(t, filepath.Join(dir, "ignored.txt"), "x")
	writeFile(t, filepath.Join(dir, "a.stl"), triangleSTL)
	writeFile(t, filepath.Join(dir, "b.stl"), triangleSTL)

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
