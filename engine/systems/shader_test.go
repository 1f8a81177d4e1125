package systems

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

func sourcesContaining(env *testEnv, text string) int {
	n := 0
	for _, c := range env.h.Recorder.Find("ShaderSource") {
		if src, ok := c.Args[1].(string); ok && strings.Contains(src, text) {
			n++
		}
	}
	return n
}

func TestShaderSystemAcquire(t *testing.T) {
	env := newTestEnv(t, testAssets(t), nil)

	s, err := env.shaders.Acquire("basic")
	require.NoError(t, err)
	assert.NotZero(t, s.ID)
	assert.NotNil(t, s.Program)
	assert.Equal(t, "basic", s.Name)

	again, err := env.shaders.Acquire("basic")
	require.NoError(t, err)
	assert.Same(t, s, again)
	assert.Equal(t, 1, env.h.Recorder.Count("LinkProgram"))

	_, err = env.shaders.Acquire("missing")
	assert.Error(t, err)
	_, ok := env.shaders.Get("missing")
	assert.False(t, ok)
}

func TestShaderSystemLimit(t *testing.T) {
	fsys := testAssets(t)
	env := newTestEnv(t, fsys, nil)
	ss, err := NewShaderSystem(ShaderSystemConfig{MaxShaderCount: 1}, env.h.Device, env.assets, nil)
	require.NoError(t, err)
	defer ss.Shutdown()

	_, err = ss.Acquire("basic")
	require.NoError(t, err)
	_, err = ss.Acquire("light")
	assert.ErrorIs(t, err, ErrTooManyShaders)

	_, err = NewShaderSystem(ShaderSystemConfig{}, env.h.Device, env.assets, nil)
	assert.Error(t, err)
}

func TestShaderSystemReloadOnAssetChange(t *testing.T) {
	fsys := testAssets(t)
	env := newTestEnv(t, fsys, nil)
	s, err := env.shaders.Acquire("basic")
	require.NoError(t, err)
	old := s.Program

	var reloaded []string
	env.shaders.OnReload(func(s *metadata.Shader) { reloaded = append(reloaded, s.Name) })

	fsys["shaders/basic.frag.es3.glsl"] = &fstest.MapFile{Data: []byte("out vec4 color;\nvoid main() { color = vec4(0.5); } // reloaded")}
	env.changed("shaders/basic.frag.es3.glsl")

	assert.Equal(t, []string{"basic"}, reloaded)
	assert.Equal(t, uint32(1), s.Generation)
	assert.NotSame(t, old, s.Program)
	assert.Equal(t, 1, sourcesContaining(env, "reloaded"))

	// files of other variants and other programs are ignored
	env.changed("shaders/basic.frag.glsl")
	env.changed("shaders/other.frag.es3.glsl")
	env.changed("textures/bricks.png")
	assert.Len(t, reloaded, 1)
}

func TestShaderSystemReloadKeepsProgramOnFailure(t *testing.T) {
	env := newTestEnv(t, testAssets(t), nil)
	s, err := env.shaders.Acquire("basic")
	require.NoError(t, err)
	old := s.Program

	env.h.Recorder.FailLink = true
	assert.Error(t, env.shaders.Reload("basic"))
	assert.Same(t, old, s.Program)
	assert.Zero(t, s.Generation)

	assert.ErrorIs(t, env.shaders.Reload("unknown"), ErrShaderNotFound)
}

func TestShaderForFile(t *testing.T) {
	env := newTestEnv(t, testAssets(t), nil)
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"shaders/basic.vert.es3.glsl", "basic", true},
		{"shaders/dof_sample4.frag.es3.glsl", "dof_sample4", true},
		{"shaders/basic.vert.glsl", "", false},
		{"shaders/basic.wat.es3.glsl", "", false},
		{"materials/basic.vert.es3.glsl", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := env.shaders.shaderForFile(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
