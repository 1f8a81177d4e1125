package systems

import (
	"image/color"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

func TestTextureSystemDefaults(t *testing.T) {
	env := newTestEnv(t, testAssets(t), nil)
	ts := env.textures

	require.NotNil(t, ts.Default())
	require.NotNil(t, ts.White())
	assert.Equal(t, uint32(defaultTextureSize), ts.Default().Desc().Width)
	assert.Equal(t, uint32(1), ts.White().Desc().Width)

	tex, err := ts.Acquire(metadata.DefaultTextureName, false)
	require.NoError(t, err)
	assert.Same(t, ts.Default(), tex)
	tex, err = ts.Acquire(metadata.WhiteTextureName, false)
	require.NoError(t, err)
	assert.Same(t, ts.White(), tex)
}

func TestTextureSystemAcquireSync(t *testing.T) {
	env := newTestEnv(t, testAssets(t), nil)
	ts := env.textures

	var loaded []string
	ts.OnLoaded(func(name string, _ graphics.Texture) { loaded = append(loaded, name) })

	tex, err := ts.Acquire("bricks", true)
	require.NoError(t, err)
	assert.NotSame(t, ts.Default(), tex)
	assert.Equal(t, uint32(4), tex.Desc().Width)
	assert.False(t, ts.IsLoading("bricks"))
	assert.Equal(t, []string{"bricks"}, loaded)

	again, err := ts.Acquire("bricks", true)
	require.NoError(t, err)
	assert.Same(t, tex, again)

	ts.Release("bricks")
	assert.Same(t, tex, ts.Get("bricks"))
	ts.Release("bricks")
	assert.Same(t, ts.Default(), ts.Get("bricks"))
	assert.Empty(t, ts.textures)
}

func TestTextureSystemMissing(t *testing.T) {
	env := newTestEnv(t, testAssets(t), nil)
	tex, err := env.textures.Acquire("nope", true)
	assert.ErrorIs(t, err, ErrTextureNotFound)
	assert.Same(t, env.textures.Default(), tex)
	assert.Empty(t, env.textures.textures)
}

func TestTextureSystemAsync(t *testing.T) {
	js, err := NewJobSystem(JobSystemConfig{WorkerCount: 1, QueueSize: 4})
	require.NoError(t, err)
	env := newTestEnv(t, testAssets(t), js)
	defer js.Shutdown()
	ts := env.textures

	var loaded graphics.Texture
	ts.OnLoaded(func(name string, tex graphics.Texture) {
		if name == "bricks" {
			loaded = tex
		}
	})

	tex, err := ts.Acquire("bricks", false)
	require.NoError(t, err)
	assert.Same(t, ts.Default(), tex)

	deadline := time.Now().Add(2 * time.Second)
	for ts.IsLoading("bricks") && time.Now().Before(deadline) {
		js.Update()
		time.Sleep(time.Millisecond)
	}
	require.False(t, ts.IsLoading("bricks"))
	require.NotNil(t, loaded)
	assert.Same(t, loaded, ts.Get("bricks"))
	assert.NotSame(t, ts.Default(), loaded)
}

func TestTextureSystemReloadOnAssetChange(t *testing.T) {
	fsys := testAssets(t)
	env := newTestEnv(t, fsys, nil)
	ts := env.textures

	first, err := ts.Acquire("bricks", false)
	require.NoError(t, err)

	fsys["textures/bricks.png"] = &fstest.MapFile{Data: pngBytes(t, 8, 8, color.NRGBA{G: 255, A: 255})}
	env.changed("textures/bricks.png")

	second := ts.Get("bricks")
	assert.NotSame(t, first, second)
	assert.Equal(t, uint32(8), second.Desc().Width)
}

func TestExpandRGBA(t *testing.T) {
	gray := &metadata.Image{ChannelCount: 2, Width: 2, Height: 1, Pixels: []uint8{10, 20, 30, 40}}
	assert.Equal(t, []uint8{10, 10, 10, 20, 30, 30, 30, 40}, expandRGBA(gray))

	rgb := &metadata.Image{ChannelCount: 3, Width: 1, Height: 1, Pixels: []uint8{1, 2, 3}}
	assert.Equal(t, []uint8{1, 2, 3, 255}, expandRGBA(rgb))
}
