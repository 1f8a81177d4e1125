package systems

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

func flatConfig(name string, pc metadata.PassConfig) metadata.MaterialConfig {
	if pc.Name == "" {
		pc.Name = "main"
	}
	if pc.Shader == "" {
		pc.Shader = "basic"
	}
	return metadata.MaterialConfig{
		Name: name,
		Techniques: []metadata.TechniqueConfig{{
			Name:   "default",
			Queue:  metadata.RenderQueueOpaque,
			Passes: []metadata.PassConfig{pc},
		}},
	}
}

func TestMaterialSystemAcquire(t *testing.T) {
	env := newTestEnv(t, testAssets(t), nil)
	ms := env.materials

	m, err := ms.Acquire("brick")
	require.NoError(t, err)
	assert.NotZero(t, m.ID)
	assert.Equal(t, "brick", m.Name)
	require.Len(t, m.Techniques, 1)
	assert.Equal(t, metadata.RenderQueueOpaque, m.Techniques[0].Queue)

	pass := m.Pass("main")
	require.NotNil(t, pass)
	assert.Equal(t, metadata.RenderPassOpaques, pass.Pass)
	require.NotNil(t, pass.Pipeline)
	require.NotNil(t, pass.Set)
	for _, param := range []string{"model", "view", "project", "tint", "diffuse"} {
		assert.True(t, pass.Set.Has(param), param)
	}
	assert.Equal(t, "brick/main", pass.Pipeline.Desc().Name)

	// the diffuse texture is loaded and tracked for rebinding
	e := ms.materials["brick"]
	assert.Equal(t, []textureBinding{{pass: pass, param: "diffuse", texture: "bricks"}}, e.bindings)
	assert.NotSame(t, env.textures.Default(), env.textures.Get("bricks"))

	again, err := ms.Acquire("brick")
	require.NoError(t, err)
	assert.Same(t, m, again)
	assert.Equal(t, uint32(2), e.refs)

	got, ok := ms.Get("brick")
	assert.True(t, ok)
	assert.Same(t, m, got)

	_, err = ms.Acquire("nope")
	assert.ErrorIs(t, err, ErrMaterialNotFound)
}

func TestMaterialSystemSharesStates(t *testing.T) {
	env := newTestEnv(t, testAssets(t), nil)
	ms := env.materials

	_, err := ms.AcquireFromConfig(flatConfig("a", metadata.PassConfig{}), true)
	require.NoError(t, err)
	_, err = ms.AcquireFromConfig(flatConfig("b", metadata.PassConfig{}), true)
	require.NoError(t, err)
	assert.Len(t, ms.states, 1)

	_, err = ms.AcquireFromConfig(flatConfig("c", metadata.PassConfig{State: metadata.StateConfig{Blend: "alpha"}}), true)
	require.NoError(t, err)
	assert.Len(t, ms.states, 2)
}

func TestMaterialSystemConfigErrors(t *testing.T) {
	env := newTestEnv(t, testAssets(t), nil)
	ms := env.materials

	tests := []struct {
		name string
		pc   metadata.PassConfig
		err  error
	}{
		{
			name: "texture for undeclared param",
			pc:   metadata.PassConfig{Textures: map[string]string{"diffuse": "bricks"}},
			err:  graphics.ErrUnknownParam,
		},
		{
			name: "value of wrong size",
			pc: metadata.PassConfig{
				Params: []metadata.ParamConfig{{Name: "tint", Type: "vec4"}},
				Values: map[string][]float32{"tint": {1, 2, 3, 4, 5}},
			},
			err: graphics.ErrParamType,
		},
		{
			name: "value for undeclared param",
			pc:   metadata.PassConfig{Values: map[string][]float32{"tint": {1}}},
			err:  graphics.ErrUnknownParam,
		},
		{
			name: "unknown param type",
			pc:   metadata.PassConfig{Params: []metadata.ParamConfig{{Name: "tint", Type: "colour"}}},
			err:  graphics.ErrInvalidDesc,
		},
		{
			name: "unknown blend",
			pc:   metadata.PassConfig{State: metadata.StateConfig{Blend: "add"}},
			err:  graphics.ErrInvalidDesc,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ms.AcquireFromConfig(flatConfig("broken", tt.pc), true)
			assert.ErrorIs(t, err, tt.err)
			_, ok := ms.Get("broken")
			assert.False(t, ok)
		})
	}
	// failed builds give their texture references back
	assert.Empty(t, env.textures.textures)
}

func TestMaterialSystemMissingShader(t *testing.T) {
	env := newTestEnv(t, testAssets(t), nil)
	_, err := env.materials.AcquireFromConfig(flatConfig("m", metadata.PassConfig{Shader: "missing"}), true)
	assert.Error(t, err)
}

func TestMaterialSystemAutoRelease(t *testing.T) {
	env := newTestEnv(t, testAssets(t), nil)
	ms := env.materials

	cfg := flatConfig("textured", metadata.PassConfig{
		Params:   []metadata.ParamConfig{{Name: "diffuse", Type: "texture"}},
		Textures: map[string]string{"diffuse": "bricks"},
	})
	m, err := ms.AcquireFromConfig(cfg, true)
	require.NoError(t, err)
	id := m.ID

	ms.Release("textured")
	_, ok := ms.Get("textured")
	assert.False(t, ok)
	assert.Nil(t, m.Techniques[0].Passes[0].Pipeline)
	// the material held the only reference to its texture
	assert.Empty(t, env.textures.textures)

	again, err := ms.AcquireFromConfig(cfg, true)
	require.NoError(t, err)
	assert.Equal(t, id, again.ID, "released ids are recycled")
}

func TestMaterialSystemReloadKeepsIdentity(t *testing.T) {
	fsys := testAssets(t)
	env := newTestEnv(t, fsys, nil)
	ms := env.materials

	m, err := ms.Acquire("brick")
	require.NoError(t, err)
	id := m.ID
	oldPass := m.Pass("main")

	require.NoError(t, ms.Reload("brick"))
	assert.Same(t, m, ms.materials["brick"].material)
	assert.Equal(t, id, m.ID)
	assert.Equal(t, uint32(1), m.Generation)
	assert.NotSame(t, oldPass, m.Pass("main"))
	assert.Nil(t, oldPass.Pipeline)
	// the texture survived the swap of references
	assert.NotSame(t, env.textures.Default(), env.textures.Get("bricks"))

	assert.ErrorIs(t, ms.Reload("nope"), ErrMaterialNotFound)
}

func TestMaterialSystemReloadOnAssetChange(t *testing.T) {
	fsys := testAssets(t)
	env := newTestEnv(t, fsys, nil)
	ms := env.materials

	m, err := ms.Acquire("brick")
	require.NoError(t, err)

	// a broken file keeps the previous passes
	fsys["materials/brick.material.yaml"] = &fstest.MapFile{Data: []byte("name: brick\ntechniques: []\n")}
	env.changed("materials/brick.material.yaml")
	assert.Zero(t, m.Generation)
	require.NotNil(t, m.Pass("main"))
	assert.NotNil(t, m.Pass("main").Pipeline)

	fsys["materials/brick.material.yaml"] = &fstest.MapFile{Data: []byte(lightMaterial)}
	env.changed("materials/brick.material.yaml")
	assert.Equal(t, uint32(1), m.Generation)
	assert.Equal(t, "brick", m.Name)
	assert.Equal(t, metadata.RenderQueueLighting, m.Techniques[0].Queue)
	assert.Equal(t, metadata.RenderPassLights, m.Pass("main").Pass)
}

func TestMaterialSystemReloadOnShaderChange(t *testing.T) {
	env := newTestEnv(t, testAssets(t), nil)
	ms := env.materials

	brick, err := ms.Acquire("brick")
	require.NoError(t, err)
	light, err := ms.Acquire("light")
	require.NoError(t, err)

	env.changed("shaders/basic.vert.es3.glsl")
	assert.Equal(t, uint32(1), brick.Generation)
	assert.Zero(t, light.Generation)
	s, ok := env.shaders.Get("basic")
	require.True(t, ok)
	assert.Same(t, s.Program, brick.Pass("main").Pipeline.Desc().Program)
}
