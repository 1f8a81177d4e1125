package assets

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"shaders/basic.vert.glsl":       {Data: []byte("void main() {}")},
		"shaders/basic.frag.glsl":       {Data: []byte("void main() {}")},
		"shaders/basic.vert.spv":        {Data: []byte{0x03, 0x02, 0x23, 0x07}},
		"materials/basic.material.yaml": {Data: []byte("name: basic\ntechniques:\n  - name: t\n    queue: opaque\n    passes:\n      - {name: main, pass: opaques, shader: basic}\n")},
		"readme.txt":                    {Data: []byte("hello")},
		"blob.bin":                      {Data: []byte{1, 2, 3}},
	}
}

func TestDetermineAssetType(t *testing.T) {
	cases := map[string]metadata.ResourceType{
		"textures/wood.PNG":           metadata.ResourceTypeImage,
		"textures/wood.tga":           metadata.ResourceTypeImage,
		"textures/wood.tiff":          metadata.ResourceTypeImage,
		"shaders/basic.vert.es3.glsl": metadata.ResourceTypeShader,
		"shaders/basic.frag.spv":      metadata.ResourceTypeShader,
		"materials/dof.material.yaml": metadata.ResourceTypeMaterial,
		"scene.yaml":                  metadata.ResourceTypeText,
		"mesh.bin":                    metadata.ResourceTypeBinary,
	}
	for p, want := range cases {
		assert.Equal(t, want, DetermineAssetType(p), p)
	}
}

func TestAssetManagerIndexAndLoad(t *testing.T) {
	am, err := NewAssetManagerFS(testFS(), nil)
	require.NoError(t, err)
	defer am.Close()

	assert.True(t, am.Exists("shaders/basic.vert.glsl"))
	assert.False(t, am.Exists("shaders/missing.vert.glsl"))
	assert.Equal(t, []string{"shaders/basic.frag.glsl", "shaders/basic.vert.glsl", "shaders/basic.vert.spv"},
		am.List(metadata.ResourceTypeShader))

	res, err := am.Load("materials/basic.material.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, metadata.ResourceTypeMaterial, res.Type)
	assert.NotEmpty(t, res.Handle)
	cfg := res.Data.(*metadata.MaterialConfig)
	assert.Equal(t, "basic", cfg.Name)
	info, ok := am.Info("materials/basic.material.yaml")
	require.True(t, ok)
	assert.False(t, info.LastLoaded.IsZero())

	other, err := am.Load("materials/basic.material.yaml", nil)
	require.NoError(t, err)
	assert.NotEqual(t, res.Handle, other.Handle)

	text, err := am.Load("readme.txt", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), text.Data)
	require.NoError(t, am.Unload(text))
	assert.Nil(t, text.Data)

	_, err = am.Load("nope.txt", nil)
	assert.ErrorIs(t, err, ErrAssetNotFound)
	_, err = am.ReadFile("nope.txt")
	assert.ErrorIs(t, err, ErrAssetNotFound)
	_, err = am.LoadAs("blob.bin", metadata.ResourceType(42), nil)
	assert.ErrorIs(t, err, ErrNoLoader)
	assert.Error(t, am.Watch())
}

func TestAssetManagerPreload(t *testing.T) {
	am, err := NewAssetManagerFS(testFS(), nil)
	require.NoError(t, err)
	defer am.Close()

	paths := []string{"readme.txt", "shaders/basic.vert.glsl", "blob.bin", "shaders/basic.frag.glsl"}
	out, err := am.Preload(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, out, len(paths))
	for i, res := range out {
		assert.Equal(t, paths[i], res.FullPath)
	}

	_, err = am.Preload(context.Background(), []string{"readme.txt", "missing.bin"})
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestAssetManagerWatchFiresOnUpdate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "shaders"), 0o755))
	file := filepath.Join(dir, "shaders", "basic.vert.glsl")
	require.NoError(t, os.WriteFile(file, []byte("void main() {}"), 0o644))

	bus := core.NewEventBus()
	var changed []string
	listener := "test"
	bus.Register(core.EVENT_CODE_ASSET_CHANGED, listener, func(code core.SystemEventCode, sender, l interface{}, data core.EventContext) bool {
		changed = append(changed, data.Data.S)
		return false
	})

	am, err := NewAssetManager(dir, bus)
	require.NoError(t, err)
	defer am.Close()
	require.NoError(t, am.Watch())

	require.NoError(t, os.WriteFile(file, []byte("void main() { }"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shaders", "basic.frag.glsl"), []byte("void main() {}"), 0o644))

	// events only reach listeners from Update
	assert.Empty(t, changed)
	require.Eventually(t, func() bool {
		am.Update()
		return len(changed) >= 2
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, changed, "shaders/basic.vert.glsl")
	assert.Contains(t, changed, "shaders/basic.frag.glsl")
	assert.True(t, am.Exists("shaders/basic.frag.glsl"))

	require.NoError(t, am.Close())
	assert.ErrorIs(t, am.Watch(), ErrClosed)
}
