package systems

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/postprocess"
)

type recordingStage struct {
	setups int
	closed bool
	src    []graphics.Framebuffer
	dst    []graphics.Framebuffer
}

func (s *recordingStage) Name() string { return "recording" }

func (s *recordingStage) Setup(p postprocess.Pipeline) error {
	s.setups++
	return nil
}

func (s *recordingStage) Render(p postprocess.Pipeline, src, dst graphics.Framebuffer) error {
	s.src = append(s.src, src)
	s.dst = append(s.dst, dst)
	return nil
}

func (s *recordingStage) Close() { s.closed = true }

func newTestPipelineEnv(t *testing.T) (*testEnv, *RenderPipeline) {
	t.Helper()
	env := newTestEnv(t, testAssets(t), nil)
	rp, err := NewRenderPipeline(env.h.Device, env.h.Context, env.h.Swapchain, env.materials, env.geometry, "light")
	require.NoError(t, err)
	t.Cleanup(func() { rp.Shutdown() })
	return env, rp
}

// litScene is two cubes with the brick material and a point light.
func litScene(t *testing.T, env *testEnv) *fixedVisibility {
	t.Helper()
	brick, err := env.materials.Acquire("brick")
	require.NoError(t, err)
	near := metadata.NewMeshObject("near", env.geometry.Default(), brick)
	far := metadata.NewMeshObject("far", env.geometry.Default(), brick)
	far.World = mgl32.Translate3D(0, 0, -10)
	light := metadata.NewLightObject("lamp", &metadata.Light{
		Type:      metadata.LightPoint,
		Colour:    mgl32.Vec4{1, 1, 1, 1},
		Intensity: 2,
		Range:     5,
	}, nil)
	return &fixedVisibility{nodes: []metadata.OcclusionCullNode{
		{Object: far, Distance: 10},
		{Object: light, Distance: 3},
		{Object: near, Distance: 5},
	}}
}

func TestNewRenderPipelineRequiresSystems(t *testing.T) {
	env := newTestEnv(t, testAssets(t), nil)
	_, err := NewRenderPipeline(env.h.Device, env.h.Context, nil, env.materials, env.geometry, "")
	assert.ErrorIs(t, err, ErrNoSwapchain)
	_, err = NewRenderPipeline(env.h.Device, env.h.Context, env.h.Swapchain, nil, env.geometry, "")
	assert.Error(t, err)
}

func TestRenderPipelineFrame(t *testing.T) {
	env, rp := newTestPipelineEnv(t)
	camera := cameraWith(litScene(t, env))
	camera.Resize(320, 200)

	require.NoError(t, rp.Render([]*components.Camera{camera}))

	assert.False(t, env.h.Context.IsRecording())
	assert.Equal(t, 1, env.h.Surface.Swaps)
	// two cubes and one light quad
	assert.Equal(t, uint32(3), env.h.Context.Stats().DrawCalls)
	assert.Len(t, rp.RenderData().Draws(metadata.RenderQueueOpaque, metadata.RenderPassOpaques), 2)
	assert.Len(t, rp.RenderData().Draws(metadata.RenderQueueLighting, metadata.RenderPassLights), 1)

	// the light material is loaded on the first light
	_, ok := env.materials.Get("light")
	assert.True(t, ok)
	assert.Equal(t, 1, env.h.Recorder.Count("Clear"))
}

func TestRenderPipelineSkipsLightsWithoutMaterial(t *testing.T) {
	env := newTestEnv(t, testAssets(t), nil)
	rp, err := NewRenderPipeline(env.h.Device, env.h.Context, env.h.Swapchain, env.materials, env.geometry, "")
	require.NoError(t, err)
	defer rp.Shutdown()

	require.NoError(t, rp.Render([]*components.Camera{cameraWith(litScene(t, env))}))
	assert.Equal(t, uint32(2), env.h.Context.Stats().DrawCalls)
	_, ok := env.materials.Get("light")
	assert.False(t, ok)
}

func TestRenderPipelineMissingLightMaterial(t *testing.T) {
	env := newTestEnv(t, testAssets(t), nil)
	rp, err := NewRenderPipeline(env.h.Device, env.h.Context, env.h.Swapchain, env.materials, env.geometry, "nope")
	require.NoError(t, err)
	defer rp.Shutdown()

	camera := cameraWith(litScene(t, env))
	require.NoError(t, rp.Render([]*components.Camera{camera}))
	require.NoError(t, rp.Render([]*components.Camera{camera}))
	assert.Equal(t, uint32(2), env.h.Context.Stats().DrawCalls)
	assert.Equal(t, 2, env.h.Surface.Swaps)
}

func TestRenderPipelineCameraErrorStillPresents(t *testing.T) {
	env, rp := newTestPipelineEnv(t)
	lonely := components.NewCamera("lonely")
	good := cameraWith(litScene(t, env))

	err := rp.Render([]*components.Camera{lonely, good})
	assert.ErrorIs(t, err, ErrCameraWithoutScene)
	assert.False(t, env.h.Context.IsRecording())
	assert.Equal(t, 1, env.h.Surface.Swaps)
	assert.Equal(t, uint32(3), env.h.Context.Stats().DrawCalls)
}

func TestRenderPipelinePostProcess(t *testing.T) {
	env, rp := newTestPipelineEnv(t)
	stage := &recordingStage{}
	require.NoError(t, rp.AddStage(stage))
	assert.Equal(t, 1, stage.setups)
	assert.Equal(t, 1, rp.Chain().Len())

	camera := cameraWith(litScene(t, env))
	require.NoError(t, rp.Render([]*components.Camera{camera}))

	require.Len(t, stage.src, 1)
	scene := stage.src[0]
	require.NotNil(t, scene)
	assert.Equal(t, "scene", scene.Desc().Name)
	assert.Equal(t, uint32(320), scene.Desc().Width)
	assert.Same(t, env.h.Swapchain.Framebuffer(), stage.dst[0])
	require.NotNil(t, rp.SceneDepth())
	assert.Same(t, postprocess.DepthTexture(scene), rp.SceneDepth())

	// the scene target is kept between frames of the same size
	require.NoError(t, rp.Render([]*components.Camera{camera}))
	assert.Same(t, scene, stage.src[1])

	require.NoError(t, rp.Resize(640, 400))
	require.NoError(t, rp.Render([]*components.Camera{camera}))
	assert.Equal(t, uint32(640), stage.src[2].Desc().Width)

	require.NoError(t, rp.Shutdown())
	assert.True(t, stage.closed)
}

func TestRenderPipelineMaterialLookup(t *testing.T) {
	env, rp := newTestPipelineEnv(t)
	m, err := rp.Material("brick")
	require.NoError(t, err)
	again, err := rp.Material("brick")
	require.NoError(t, err)
	assert.Same(t, m, again)
	assert.Equal(t, uint32(1), env.materials.materials["brick"].refs)

	_, err = rp.Material("nope")
	assert.ErrorIs(t, err, ErrMaterialNotFound)
	assert.Same(t, env.h.Swapchain.Framebuffer().Desc().Layout, rp.TargetLayout())
}
