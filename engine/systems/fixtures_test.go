package systems

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/assets"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/opengl/gltest"
)

const (
	testVertexSource   = "in vec3 position;\nuniform mat4 model;\nvoid main() { gl_Position = model * vec4(position, 1.0); }"
	testFragmentSource = "out vec4 color;\nvoid main() { color = vec4(1.0); }"
)

// brickMaterial is an opaque material with one pass taking the usual
// transforms, a tint and a diffuse texture.
const brickMaterial = `
name: brick
techniques:
  - name: default
    queue: opaque
    passes:
      - name: main
        pass: opaques
        shader: basic
        params:
          - {name: model, type: mat4}
          - {name: view, type: mat4}
          - {name: project, type: mat4}
          - {name: tint, type: vec4}
          - {name: diffuse, type: texture}
        values:
          tint: [1, 0.5, 0.25, 1]
        textures:
          diffuse: bricks
`

const lightMaterial = `
name: light
techniques:
  - name: default
    queue: lighting
    passes:
      - name: main
        pass: lights
        shader: light
        state: {blend: alpha, depth_test: false}
        params:
          - {name: lightColour, type: vec4}
          - {name: lightPosition, type: vec3}
          - {name: lightRange, type: float}
          - {name: lightType, type: int}
`

func addShader(fsys fstest.MapFS, name string) {
	fsys["shaders/"+name+".vert.es3.glsl"] = &fstest.MapFile{Data: []byte(testVertexSource)}
	fsys["shaders/"+name+".frag.es3.glsl"] = &fstest.MapFile{Data: []byte(testFragmentSource)}
}

func pngBytes(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// testAssets is the asset tree most tests share: the basic and light
// shaders, the brick and light materials and the bricks texture.
func testAssets(t *testing.T) fstest.MapFS {
	fsys := fstest.MapFS{
		"materials/brick.material.yaml": &fstest.MapFile{Data: []byte(brickMaterial)},
		"materials/light.material.yaml": &fstest.MapFile{Data: []byte(lightMaterial)},
		"textures/bricks.png":           &fstest.MapFile{Data: pngBytes(t, 4, 4, color.NRGBA{R: 200, G: 80, B: 40, A: 255})},
	}
	addShader(fsys, "basic")
	addShader(fsys, "light")
	return fsys
}

type testEnv struct {
	h      *gltest.Harness
	fsys   fstest.MapFS
	events *core.EventBus
	assets *assets.AssetManager

	shaders   *ShaderSystem
	textures  *TextureSystem
	materials *MaterialSystem
	geometry  *GeometrySystem
}

// newTestEnv sets up every resource system over an ES3 recorder. A nil job
// system loads textures synchronously.
func newTestEnv(t *testing.T, fsys fstest.MapFS, js *JobSystem) *testEnv {
	t.Helper()
	h, err := gltest.NewHarness(320, 200, false)
	require.NoError(t, err)
	env := &testEnv{h: h, fsys: fsys, events: core.NewEventBus()}
	t.Cleanup(func() {
		if env.geometry != nil {
			env.geometry.Shutdown()
		}
		if env.materials != nil {
			env.materials.Shutdown()
		}
		if env.textures != nil {
			env.textures.Shutdown()
		}
		if env.shaders != nil {
			env.shaders.Shutdown()
		}
		h.Close()
	})

	env.assets, err = assets.NewAssetManagerFS(fsys, env.events)
	require.NoError(t, err)
	env.shaders, err = NewShaderSystem(ShaderSystemConfig{MaxShaderCount: 16}, h.Device, env.assets, env.events)
	require.NoError(t, err)
	env.textures, err = NewTextureSystem(TextureSystemConfig{MaxTextureCount: 16}, h.Device, env.assets, js, env.events)
	require.NoError(t, err)
	target := h.Swapchain.Framebuffer().Desc().Layout
	env.materials, err = NewMaterialSystem(MaterialSystemConfig{MaxMaterialCount: 16}, h.Device, target, env.shaders, env.textures, env.assets, env.events)
	require.NoError(t, err)
	env.geometry, err = NewGeometrySystem(GeometrySystemConfig{MaxGeometryCount: 16}, h.Device)
	require.NoError(t, err)
	return env
}

// changed fires the event the asset manager sends for a modified file.
func (env *testEnv) changed(p string) {
	ctx := core.EventContext{}
	ctx.Data.S = p
	env.events.Fire(core.EVENT_CODE_ASSET_CHANGED, env.assets, ctx)
}
