package postprocess_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/opengl/gltest"
	"github.com/spaghettifunk/prism/engine/renderer/postprocess"
)

type draw struct {
	pass    string
	target  graphics.Framebuffer
	sampled map[string]graphics.Texture
}

// sampledSet remembers the textures bound to a descriptor set.
type sampledSet struct {
	graphics.DescriptorSet
	textures map[string]graphics.Texture
}

func (s *sampledSet) SetTexture(name string, tex graphics.Texture, smp graphics.Sampler) error {
	s.textures[name] = tex
	return s.DescriptorSet.SetTexture(name, tex, smp)
}

type testPipeline struct {
	h         *gltest.Harness
	layout    graphics.FramebufferLayout
	quad      graphics.Data
	materials map[string]*metadata.Material
	scene     graphics.Framebuffer
	draws     []draw
}

func newTestPipeline(t *testing.T) *testPipeline {
	t.Helper()
	h, err := gltest.NewHarness(256, 128, false)
	require.NoError(t, err)
	layout, err := h.Device.CreateFramebufferLayout(graphics.FramebufferLayoutDesc{Attachments: []graphics.AttachmentLayout{
		{Type: graphics.AttachmentColor, Format: graphics.FormatR8G8B8A8Unorm},
		{Type: graphics.AttachmentDepthStencil, Format: graphics.FormatD24UnormS8UInt},
	}})
	require.NoError(t, err)
	quad, err := h.Device.CreateData(graphics.DataDesc{Type: graphics.DataTypeVertex, Size: 6 * 12})
	require.NoError(t, err)
	p := &testPipeline{h: h, layout: layout, quad: quad, materials: make(map[string]*metadata.Material)}
	t.Cleanup(func() {
		quad.Release()
		layout.Release()
		h.Close()
	})
	return p
}

func (p *testPipeline) Device() graphics.Device                  { return p.h.Device }
func (p *testPipeline) Context() graphics.Context                { return p.h.Context }
func (p *testPipeline) TargetLayout() graphics.FramebufferLayout { return p.layout }

func (p *testPipeline) SceneDepth() graphics.Texture {
	if p.scene == nil {
		return nil
	}
	return postprocess.DepthTexture(p.scene)
}

func (p *testPipeline) Material(name string) (*metadata.Material, error) {
	m, ok := p.materials[name]
	if !ok {
		return nil, fmt.Errorf("material %s not found", name)
	}
	return m, nil
}

func (p *testPipeline) DrawScreenQuad(pass *metadata.MaterialPass) {
	ctx := p.h.Context
	d := draw{pass: pass.Name, target: ctx.Framebuffer(), sampled: make(map[string]graphics.Texture)}
	set := pass.Set
	if s, ok := set.(*sampledSet); ok {
		for name, tex := range s.textures {
			d.sampled[name] = tex
		}
		set = s.DescriptorSet
	}
	p.draws = append(p.draws, d)
	ctx.SetPipeline(pass.Pipeline)
	ctx.SetDescriptorSet(set)
	ctx.SetVertexBufferData(0, p.quad, 0)
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 6})
}

// addMaterial builds a single technique material whose passes declare the
// given texture params plus focus and range.
func (p *testPipeline) addMaterial(t *testing.T, name string, passes map[string][]string) {
	t.Helper()
	dev := p.h.Device
	vs, err := dev.CreateShader(graphics.ShaderDesc{Name: "vs", Stage: graphics.ShaderStageVertex, Bytecode: []byte("in vec3 position;\nvoid main() { gl_Position = vec4(position, 1.0); }")})
	require.NoError(t, err)
	fs, err := dev.CreateShader(graphics.ShaderDesc{Name: "fs", Stage: graphics.ShaderStageFragment, Bytecode: []byte("out vec4 color;\nvoid main() { color = vec4(1.0); }")})
	require.NoError(t, err)
	prog, err := dev.CreateProgram(graphics.ProgramDesc{Name: name, Shaders: []graphics.Shader{vs, fs}})
	require.NoError(t, err)
	vs.Release()
	fs.Release()
	input, err := dev.CreateInputLayout(graphics.InputLayoutDesc{Components: []graphics.VertexComponent{
		{Semantic: "position", Format: graphics.FormatR32G32B32SFloat},
	}})
	require.NoError(t, err)
	state, err := dev.CreateState(graphics.DefaultStateDesc())
	require.NoError(t, err)

	tech := &metadata.Technique{Name: "default", Queue: metadata.RenderQueueOpaque}
	for passName, params := range passes {
		uniforms := []graphics.UniformDesc{
			{Name: "focus", Type: graphics.UniformFloat, Binding: 0},
			{Name: "range", Type: graphics.UniformFloat, Binding: 1},
		}
		for i, param := range params {
			uniforms = append(uniforms, graphics.UniformDesc{Name: param, Type: graphics.UniformTexture, Binding: uint32(i + 2)})
		}
		setLayout, err := dev.CreateDescriptorSetLayout(graphics.DescriptorSetLayoutDesc{Uniforms: uniforms})
		require.NoError(t, err)
		pipeline, err := dev.CreatePipeline(graphics.PipelineDesc{
			Name:                passName,
			Program:             prog,
			InputLayout:         input,
			State:               state,
			DescriptorSetLayout: setLayout,
			FramebufferLayout:   p.layout,
		})
		require.NoError(t, err)
		set, err := dev.CreateDescriptorSet(graphics.DescriptorSetDesc{Layout: setLayout})
		require.NoError(t, err)
		setLayout.Release()
		tech.Passes = append(tech.Passes, &metadata.MaterialPass{
			Name:     passName,
			Pass:     metadata.RenderPassSpecific,
			Pipeline: pipeline,
			Set:      &sampledSet{DescriptorSet: set, textures: make(map[string]graphics.Texture)},
		})
	}
	prog.Release()
	input.Release()
	state.Release()

	m := &metadata.Material{ID: uint32(len(p.materials) + 1), Name: name, Techniques: []*metadata.Technique{tech}}
	p.materials[name] = m
	t.Cleanup(m.Release)
}

func dofPasses() map[string][]string {
	return map[string][]string{
		"sample4":     {"texColor", "texDepth"},
		"blurh":       {"texColor"},
		"blurv":       {"texColor"},
		"computeNear": {"texShrunk", "texBlured"},
		"final":       {"texColor", "texDepth", "texSmall", "texLarge"},
	}
}

func (p *testPipeline) sceneTarget(t *testing.T) graphics.Framebuffer {
	t.Helper()
	fb, err := postprocess.NewRenderTarget(p.h.Device, postprocess.TargetDesc{Name: "scene", Layout: p.layout, Width: 256, Height: 128})
	require.NoError(t, err)
	t.Cleanup(fb.Release)
	p.scene = fb
	return fb
}

func TestRenderTargetOwnsAttachments(t *testing.T) {
	p := newTestPipeline(t)
	fb := p.sceneTarget(t)
	color := postprocess.ColorTexture(fb)
	depth := postprocess.DepthTexture(fb)
	require.NotNil(t, color)
	require.NotNil(t, depth)
	assert.Equal(t, int32(1), color.Refs())
	assert.Equal(t, graphics.FormatD24UnormS8UInt, depth.Desc().Format)

	shared, err := postprocess.NewRenderTarget(p.h.Device, postprocess.TargetDesc{Layout: p.layout, Width: 256, Height: 128, SharedDepth: depth})
	require.NoError(t, err)
	assert.True(t, shared.Desc().SharedDepthStencil)
	assert.Same(t, depth, postprocess.DepthTexture(shared))
	assert.NotEmpty(t, shared.Desc().Name)
	shared.Release()
	assert.Equal(t, int32(1), depth.Refs())
}

func TestDepthOfFieldSetupResolvesParams(t *testing.T) {
	p := newTestPipeline(t)
	dof := postprocess.NewDepthOfField("dof", 0.5, 0.1)
	assert.Error(t, dof.Setup(p))

	passes := dofPasses()
	passes["final"] = []string{"texColor", "texDepth", "texSmall"}
	p.addMaterial(t, "dof", passes)
	assert.ErrorIs(t, dof.Setup(p), graphics.ErrUnknownParam)

	delete(passes, "blurv")
	p.addMaterial(t, "dof-short", passes)
	assert.ErrorIs(t, postprocess.NewDepthOfField("dof-short", 0.5, 0.1).Setup(p), postprocess.ErrMissingPass)
}

func TestDepthOfFieldRender(t *testing.T) {
	p := newTestPipeline(t)
	p.addMaterial(t, "dof", dofPasses())
	dof := postprocess.NewDepthOfField("dof", 0.5, 0.1)
	require.NoError(t, dof.Setup(p))
	defer dof.Close()

	src := p.sceneTarget(t)
	dst := p.h.Swapchain.Framebuffer()

	p.h.Context.RenderBegin()
	require.NoError(t, dof.Render(p, src, dst))
	p.h.Context.RenderEnd()
	require.NoError(t, p.h.Context.Err())

	var names []string
	for _, d := range p.draws {
		names = append(names, d.pass)
		assert.NotSame(t, src, d.target, "source bound as target by %s", d.pass)
	}
	assert.Equal(t, []string{"sample4", "blurh", "blurv", "computeNear", "final"}, names)
	assert.Same(t, dst, p.draws[4].target)
	assert.Equal(t, uint32(64), p.draws[0].target.Desc().Width)
	assert.Equal(t, uint32(32), p.draws[0].target.Desc().Height)
	assert.Equal(t, uint32(5), p.h.Context.Stats().DrawCalls)
	assertNoFeedback(t, p.draws)
}

type copyStage struct {
	name string
	log  *[]string
	seen []graphics.Framebuffer
}

func (s *copyStage) Name() string                       { return s.name }
func (s *copyStage) Setup(p postprocess.Pipeline) error { return nil }
func (s *copyStage) Close()                             { *s.log = append(*s.log, "close "+s.name) }
func (s *copyStage) Render(p postprocess.Pipeline, src, dst graphics.Framebuffer) error {
	*s.log = append(*s.log, s.name)
	s.seen = append(s.seen, src, dst)
	return nil
}

func TestChainPingPongs(t *testing.T) {
	p := newTestPipeline(t)
	var log []string
	a := &copyStage{name: "a", log: &log}
	b := &copyStage{name: "b", log: &log}
	c := &copyStage{name: "c", log: &log}

	chain := postprocess.NewChain()
	src := p.sceneTarget(t)
	dst := p.h.Swapchain.Framebuffer()
	require.NoError(t, chain.Render(p, src, dst))
	assert.Empty(t, log)

	for _, s := range []*copyStage{a, b, c} {
		require.NoError(t, chain.Add(p, s))
	}
	assert.Equal(t, 3, chain.Len())
	require.NoError(t, chain.Render(p, src, dst))
	assert.Equal(t, []string{"a", "b", "c"}, log)

	assert.Same(t, src, a.seen[0])
	assert.Same(t, a.seen[1], b.seen[0])
	assert.Same(t, b.seen[1], c.seen[0])
	assert.Same(t, dst, c.seen[1])
	for _, s := range []*copyStage{a, b, c} {
		assert.NotSame(t, s.seen[0], s.seen[1])
	}
	// intermediates own their depth
	require.NotNil(t, postprocess.DepthTexture(b.seen[0]))
	assert.False(t, b.seen[0].Desc().SharedDepthStencil)
	assert.NotSame(t, postprocess.DepthTexture(src), postprocess.DepthTexture(b.seen[0]))

	chain.Close()
	assert.Equal(t, []string{"a", "b", "c", "close a", "close b", "close c"}, log)
	assert.Equal(t, 0, chain.Len())
}

// assertNoFeedback fails when a draw samples a texture attached to the
// framebuffer it renders into.
func assertNoFeedback(t *testing.T, draws []draw) {
	t.Helper()
	for _, d := range draws {
		for name, tex := range d.sampled {
			assert.False(t, postprocess.Attached(d.target, tex), "%s samples %s from its own target %s", d.pass, name, d.target.Desc().Name)
		}
	}
}

func TestChainDepthOfFieldBeforeAnotherStage(t *testing.T) {
	p := newTestPipeline(t)
	p.addMaterial(t, "dof", dofPasses())
	var log []string
	after := &copyStage{name: "after", log: &log}

	chain := postprocess.NewChain()
	require.NoError(t, chain.Add(p, postprocess.NewDepthOfField("dof", 0.5, 0.1)))
	require.NoError(t, chain.Add(p, after))
	defer chain.Close()

	src := p.sceneTarget(t)
	dst := p.h.Swapchain.Framebuffer()
	p.h.Context.RenderBegin()
	require.NoError(t, chain.Render(p, src, dst))
	p.h.Context.RenderEnd()
	require.NoError(t, p.h.Context.Err())

	require.Len(t, p.draws, 5)
	final := p.draws[4]
	assert.Equal(t, "final", final.pass)
	assert.Same(t, after.seen[0], final.target)
	assert.Same(t, postprocess.DepthTexture(src), final.sampled["texDepth"])
	assert.Same(t, postprocess.ColorTexture(src), final.sampled["texColor"])
	assertNoFeedback(t, p.draws)
}

func TestDepthOfFieldRejectsSampledDestination(t *testing.T) {
	p := newTestPipeline(t)
	p.addMaterial(t, "dof", dofPasses())
	dof := postprocess.NewDepthOfField("dof", 0.5, 0.1)
	require.NoError(t, dof.Setup(p))
	defer dof.Close()

	src := p.sceneTarget(t)
	dst, err := postprocess.NewRenderTarget(p.h.Device, postprocess.TargetDesc{
		Name:        "borrowing",
		Layout:      p.layout,
		Width:       256,
		Height:      128,
		SharedDepth: postprocess.DepthTexture(src),
	})
	require.NoError(t, err)
	defer dst.Release()

	p.h.Context.RenderBegin()
	assert.ErrorIs(t, dof.Render(p, src, dst), graphics.ErrInvalidDesc)
	p.h.Context.RenderEnd()
	assert.Empty(t, p.draws)
}
