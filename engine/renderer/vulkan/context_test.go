package vulkan

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

type call struct {
	name string
	args []any
}

// fakeEncoder records commands instead of writing a command buffer.
type fakeEncoder struct {
	calls []call
	pixel [4]byte
}

func (e *fakeEncoder) record(name string, args ...any) {
	e.calls = append(e.calls, call{name: name, args: args})
}

func (e *fakeEncoder) count(name string) int {
	n := 0
	for _, c := range e.calls {
		if c.name == name {
			n++
		}
	}
	return n
}

func (e *fakeEncoder) find(name string) []call {
	var out []call
	for _, c := range e.calls {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func (e *fakeEncoder) names() []string {
	out := make([]string, len(e.calls))
	for i, c := range e.calls {
		out[i] = c.name
	}
	return out
}

func (e *fakeEncoder) reset() {
	e.calls = nil
}

func (e *fakeEncoder) beginPass(fb *framebuffer) error {
	e.record("beginPass", fb)
	return nil
}

func (e *fakeEncoder) endPass() {
	e.record("endPass")
}

func (e *fakeEncoder) bindPipeline(p *pipeline) {
	e.record("bindPipeline", p)
}

func (e *fakeEncoder) bindDescriptorSet(p *pipeline, s *descriptorSet, dynamicOffsets []uint32) error {
	e.record("bindDescriptorSet", s, dynamicOffsets)
	return nil
}

func (e *fakeEncoder) bindVertexBuffer(slot uint8, b *data, offset uint32) {
	e.record("bindVertexBuffer", slot, b, offset)
}

func (e *fakeEncoder) bindIndexBuffer(b *data, offset uint32, t graphics.IndexType) {
	e.record("bindIndexBuffer", b, offset, t)
}

func (e *fakeEncoder) setViewport(v graphics.Viewport, height uint32) {
	e.record("setViewport", v, height)
}

func (e *fakeEncoder) setScissor(s graphics.Scissor, height uint32) {
	e.record("setScissor", s, height)
}

func (e *fakeEncoder) setStencilCompareMask(face graphics.StencilFaceFlags, v uint32) {
	e.record("setStencilCompareMask", face, v)
}

func (e *fakeEncoder) setStencilWriteMask(face graphics.StencilFaceFlags, v uint32) {
	e.record("setStencilWriteMask", face, v)
}

func (e *fakeEncoder) setStencilReference(face graphics.StencilFaceFlags, v uint32) {
	e.record("setStencilReference", face, v)
}

func (e *fakeEncoder) draw(d graphics.Indirect) {
	e.record("draw", d)
}

func (e *fakeEncoder) clear(fb *framebuffer, clears []attachmentClear) {
	e.record("clear", fb, clears)
}

func (e *fakeEncoder) blit(src *framebuffer, srcRect graphics.Rect, dst *framebuffer, dstRect graphics.Rect, depth bool, linear bool) {
	e.record("blit", src, srcRect, dst, dstRect, depth, linear)
}

func (e *fakeEncoder) readPixels(src *framebuffer, width, height uint32, out []byte) error {
	e.record("readPixels", src, width, height)
	for i := 0; i+3 < int(width*height*4); i += 4 {
		copy(out[i:], e.pixel[:])
	}
	return nil
}

// fakeFrames stands in for the swapchain.
type fakeFrames struct {
	fb         *framebuffer
	enc        *fakeEncoder
	acquireErr error
	acquires   int
	submits    int
	presents   int
}

func (f *fakeFrames) acquire() (encoder, error) {
	f.acquires++
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	return f.enc, nil
}

func (f *fakeFrames) submit() error {
	f.submits++
	return nil
}

func (f *fakeFrames) present() error {
	f.presents++
	return nil
}

func (f *fakeFrames) target() *framebuffer {
	return f.fb
}

type contextFixture struct {
	dev    *Device
	enc    *fakeEncoder
	frames *fakeFrames
	ctx    *context
}

var windowLayout = graphics.FramebufferLayoutDesc{Attachments: []graphics.AttachmentLayout{
	{Type: graphics.AttachmentColor, Format: graphics.FormatR8G8B8A8Unorm},
	{Type: graphics.AttachmentDepthStencil, Format: graphics.FormatD24UnormS8UInt},
}}

func newContextFixture(t *testing.T, debug bool) *contextFixture {
	t.Helper()
	d := newTestDevice()
	d.desc.Debug = debug
	d.uniforms = newTestArena(1024, 256)
	enc := &fakeEncoder{pixel: [4]byte{1, 2, 3, 4}}
	frames := &fakeFrames{fb: testFramebuffer(d, "window", 640, 480, windowLayout), enc: enc}
	c := newContext(d, frames)
	c.InitRefs(c.unbindAll)
	return &contextFixture{dev: d, enc: enc, frames: frames, ctx: c}
}

func testFramebuffer(d *Device, name string, w, h uint32, desc graphics.FramebufferLayoutDesc) *framebuffer {
	layout := d.newFramebufferLayout(desc)
	layout.InitRefs(nil)
	fb := &framebuffer{dev: d, desc: graphics.FramebufferDesc{Name: name, Width: w, Height: h}, layout: layout}
	fb.InitRefs(nil)
	return fb
}

func (f *contextFixture) pipeline(state graphics.StateDesc, slots ...uint8) *pipeline {
	p := &pipeline{dev: f.dev, state: state, slots: slots}
	p.InitRefs(nil)
	return p
}

func (f *contextFixture) buffer(t graphics.DataType) *data {
	b := &data{dev: f.dev, desc: graphics.DataDesc{Type: t, Size: 64}}
	b.InitRefs(nil)
	return b
}

func TestContextFrameLifecycle(t *testing.T) {
	f := newContextFixture(t, false)
	ctx := f.ctx
	assert.False(t, ctx.IsRecording())

	ctx.SetViewport(graphics.FullViewport(10, 10))
	assert.ErrorIs(t, ctx.Err(), graphics.ErrNotRecording)

	ctx.RenderBegin()
	assert.True(t, ctx.IsRecording())
	assert.NoError(t, ctx.Err())
	assert.Equal(t, graphics.FullViewport(640, 480), ctx.Viewport())
	assert.Equal(t, graphics.Scissor{Width: 640, Height: 480}, ctx.Scissor())

	ctx.RenderBegin()
	assert.ErrorIs(t, ctx.Err(), graphics.ErrAlreadyRecording)
	ctx.RenderEnd()
	assert.False(t, ctx.IsRecording())
	assert.Equal(t, 1, f.frames.submits)

	ctx.Present()
	ctx.Present()
	assert.Equal(t, 1, f.frames.presents)

	// a frame left unpresented is shown before the next one starts
	ctx.RenderBegin()
	ctx.RenderEnd()
	ctx.RenderBegin()
	assert.Equal(t, 2, f.frames.presents)
	ctx.RenderEnd()
}

func TestContextDropsFrames(t *testing.T) {
	for _, acquireErr := range []error{errZeroArea, core.ErrSwapchainBooting} {
		t.Run(acquireErr.Error(), func(t *testing.T) {
			testDroppedFrame(t, acquireErr)
		})
	}
}

func testDroppedFrame(t *testing.T, acquireErr error) {
	f := newContextFixture(t, false)
	ctx := f.ctx
	p := f.pipeline(graphics.DefaultStateDesc(), 0)
	f.frames.acquireErr = acquireErr

	ctx.RenderBegin()
	require.NoError(t, ctx.Err())
	ctx.SetPipeline(p)
	ctx.SetVertexBufferData(0, f.buffer(graphics.DataTypeVertex), 0)
	ctx.ClearFramebuffer(graphics.ClearAll, mgl32.Vec4{}, 1, 0)
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	require.NoError(t, ctx.Err())
	ctx.RenderEnd()
	assert.Empty(t, f.enc.calls)

	f.frames.acquireErr = nil
	ctx.RenderBegin()
	ctx.SetPipeline(p)
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	assert.Equal(t, 1, f.enc.count("draw"))
	ctx.RenderEnd()
}

func TestDebugContextPanics(t *testing.T) {
	f := newContextFixture(t, true)
	assert.Panics(t, func() { f.ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3}) })
	f.ctx.RenderBegin()
	assert.Panics(t, func() { f.ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3}) })
	assert.NotPanics(t, func() { f.ctx.RenderEnd() })
}

func TestContextDrawPreconditions(t *testing.T) {
	f := newContextFixture(t, false)
	ctx := f.ctx
	p := f.pipeline(graphics.DefaultStateDesc(), 0)
	vb := f.buffer(graphics.DataTypeVertex)
	ib := f.buffer(graphics.DataTypeIndex)

	ctx.RenderBegin()
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	assert.ErrorIs(t, ctx.Err(), graphics.ErrNoPipeline)
	ctx.RenderEnd()

	ctx.RenderBegin()
	ctx.SetPipeline(p)
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	assert.ErrorIs(t, ctx.Err(), graphics.ErrNoVertexBuffer)
	ctx.RenderEnd()

	ctx.RenderBegin()
	ctx.SetVertexBufferData(0, vb, 0)
	ctx.DrawRenderMesh(graphics.Indirect{IndexCount: 3})
	assert.ErrorIs(t, ctx.Err(), graphics.ErrNoIndexBuffer)
	ctx.RenderEnd()

	ctx.RenderBegin()
	ctx.SetIndexBufferData(vb, 0, graphics.IndexTypeUInt16)
	assert.ErrorIs(t, ctx.Err(), graphics.ErrInvalidDesc)
	ctx.SetVertexBufferData(maxVertexBuffers, vb, 0)
	assert.ErrorIs(t, ctx.Err(), graphics.ErrInvalidDesc)
	ctx.RenderEnd()
	assert.Zero(t, f.enc.count("draw"))

	// base vertex and base instance are native here
	ctx.RenderBegin()
	ctx.SetIndexBufferData(ib, 0, graphics.IndexTypeNone)
	assert.Equal(t, graphics.IndexTypeUInt16, ctx.indexType)
	ctx.DrawRenderMeshes([]graphics.Indirect{
		{IndexCount: 3, VertexOffset: 2},
		{VertexCount: 6, InstanceCount: 2, FirstInstance: 1},
	})
	require.NoError(t, ctx.Err())
	assert.Equal(t, 2, f.enc.count("draw"))
	assert.Equal(t, uint32(2), ctx.Stats().DrawCalls)
	ctx.RenderEnd()
}

func TestContextSkipsEncodedState(t *testing.T) {
	f := newContextFixture(t, false)
	ctx := f.ctx
	first := f.pipeline(graphics.DefaultStateDesc(), 0)
	second := f.pipeline(graphics.DefaultStateDesc(), 0)
	vb := f.buffer(graphics.DataTypeVertex)

	ctx.RenderBegin()
	ctx.SetPipeline(first)
	ctx.SetVertexBufferData(0, vb, 0)
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	require.NoError(t, ctx.Err())
	assert.Equal(t, []string{
		"beginPass", "bindPipeline",
		"setStencilCompareMask", "setStencilWriteMask", "setStencilReference",
		"setViewport", "setScissor", "bindVertexBuffer", "draw",
	}, f.enc.names())

	f.enc.reset()
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	assert.Equal(t, []string{"draw"}, f.enc.names())

	f.enc.reset()
	ctx.SetPipeline(second)
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	assert.Equal(t, []string{"bindPipeline", "draw"}, f.enc.names())
	assert.Positive(t, ctx.Stats().SkippedStateChanges)
	ctx.RenderEnd()
	assert.Equal(t, "endPass", f.enc.calls[len(f.enc.calls)-1].name)

	// a new command buffer starts empty
	f.enc.reset()
	ctx.RenderBegin()
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	assert.Equal(t, 1, f.enc.count("bindPipeline"))
	assert.Equal(t, 1, f.enc.count("bindVertexBuffer"))
	ctx.RenderEnd()
}

func TestContextStencilAndCapturedState(t *testing.T) {
	f := newContextFixture(t, false)
	ctx := f.ctx
	desc := graphics.AlphaBlendStateDesc()
	desc.StencilTest = true
	desc.StencilFront.Ref = 3
	desc.StencilBack.Ref = 3
	p := f.pipeline(desc, 0)
	assert.Equal(t, graphics.DefaultStateDesc(), ctx.CapturedState())

	ctx.RenderBegin()
	ctx.SetPipeline(p)
	ctx.SetVertexBufferData(0, f.buffer(graphics.DataTypeVertex), 0)
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	assert.Equal(t, desc, ctx.CapturedState())
	refs := f.enc.find("setStencilReference")
	require.Len(t, refs, 1)
	assert.Equal(t, []any{graphics.StencilFaceAll, uint32(3)}, refs[0].args)

	f.enc.reset()
	ctx.SetStencilReference(graphics.StencilFaceFront, 7)
	assert.Equal(t, uint32(7), ctx.StencilReference(graphics.StencilFaceFront))
	assert.Equal(t, uint32(3), ctx.StencilReference(graphics.StencilFaceBack))
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	refs = f.enc.find("setStencilReference")
	require.Len(t, refs, 2)
	assert.Equal(t, []any{graphics.StencilFaceFront, uint32(7)}, refs[0].args)
	assert.Equal(t, []any{graphics.StencilFaceBack, uint32(3)}, refs[1].args)
	assert.Zero(t, f.enc.count("setStencilWriteMask"))

	want := desc
	want.StencilFront.Ref = 7
	assert.Equal(t, want, ctx.CapturedState())

	// binding the pipeline again restores its values
	ctx.SetPipeline(nil)
	ctx.SetPipeline(p)
	assert.Equal(t, uint32(3), ctx.StencilReference(graphics.StencilFaceFront))
	ctx.RenderEnd()
}

func TestContextScissorFollowsPipeline(t *testing.T) {
	f := newContextFixture(t, false)
	ctx := f.ctx
	scissored := graphics.DefaultStateDesc()
	scissored.ScissorTest = true
	open := f.pipeline(graphics.DefaultStateDesc(), 0)
	clipped := f.pipeline(scissored, 0)
	rect := graphics.Scissor{X: 10, Y: 20, Width: 100, Height: 50}

	ctx.RenderBegin()
	ctx.SetVertexBufferData(0, f.buffer(graphics.DataTypeVertex), 0)
	ctx.SetScissor(rect)
	ctx.SetPipeline(open)
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	scissors := f.enc.find("setScissor")
	require.Len(t, scissors, 1)
	assert.Equal(t, graphics.Scissor{Width: 640, Height: 480}, scissors[0].args[0])

	ctx.SetPipeline(clipped)
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	scissors = f.enc.find("setScissor")
	require.Len(t, scissors, 2)
	assert.Equal(t, rect, scissors[1].args[0])
	assert.Equal(t, uint32(480), scissors[1].args[1])
	ctx.RenderEnd()
}

func TestContextUniformsPushedOnChange(t *testing.T) {
	f := newContextFixture(t, false)
	ctx := f.ctx
	layout, err := f.dev.CreateDescriptorSetLayout(graphics.DescriptorSetLayoutDesc{Uniforms: []graphics.UniformDesc{
		{Name: "u_mvp", Type: graphics.UniformMat4, Binding: 0},
		{Name: "u_albedo", Type: graphics.UniformTexture, Binding: 1},
	}})
	require.NoError(t, err)
	set, err := f.dev.CreateDescriptorSet(graphics.DescriptorSetDesc{Layout: layout})
	require.NoError(t, err)
	require.NoError(t, set.SetMat4("u_mvp", mgl32.Ident4()))
	assert.True(t, set.Has("u_albedo"))
	assert.ErrorIs(t, set.SetFloat("u_mvp", 1), graphics.ErrParamType)
	assert.ErrorIs(t, set.SetFloat("u_missing", 1), graphics.ErrUnknownParam)

	p := f.pipeline(graphics.DefaultStateDesc(), 0)
	ctx.RenderBegin()
	ctx.SetPipeline(p)
	ctx.SetVertexBufferData(0, f.buffer(graphics.DataTypeVertex), 0)
	ctx.SetDescriptorSet(set)
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	binds := f.enc.find("bindDescriptorSet")
	require.Len(t, binds, 1)
	assert.Equal(t, []uint32{0}, binds[0].args[1])

	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	assert.Len(t, f.enc.find("bindDescriptorSet"), 1)

	require.NoError(t, set.SetMat4("u_mvp", mgl32.Translate3D(2, 0, 0)))
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	binds = f.enc.find("bindDescriptorSet")
	require.Len(t, binds, 2)
	assert.Equal(t, []uint32{256}, binds[1].args[1])

	// the pushed copy is what the draw reads
	got := make([]byte, 4)
	f.dev.uniforms.buf.alloc.read(256+48, got)
	assert.Equal(t, []byte{0, 0, 0, 0x40}, got)

	// the frame region holds two blocks at this alignment
	require.NoError(t, set.SetMat4("u_mvp", mgl32.Ident4()))
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	assert.ErrorIs(t, ctx.Err(), graphics.ErrNative)
	ctx.RenderEnd()

	set.Release()
	assert.Equal(t, int32(1), set.(*descriptorSet).Refs())
}

func TestContextRenderPasses(t *testing.T) {
	f := newContextFixture(t, false)
	ctx := f.ctx
	p := f.pipeline(graphics.DefaultStateDesc(), 0)
	offscreen := testFramebuffer(f.dev, "offscreen", 256, 128, graphics.FramebufferLayoutDesc{Attachments: []graphics.AttachmentLayout{
		{Type: graphics.AttachmentColor, Format: graphics.FormatR16G16B16A16SFloat},
	}})

	ctx.RenderBegin()
	ctx.SetPipeline(p)
	ctx.SetVertexBufferData(0, f.buffer(graphics.DataTypeVertex), 0)
	ctx.SetFramebuffer(offscreen)
	assert.Zero(t, f.enc.count("beginPass"))
	assert.Equal(t, graphics.FullViewport(256, 128), ctx.Viewport())

	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	passes := f.enc.find("beginPass")
	require.Len(t, passes, 1)
	assert.Same(t, offscreen, passes[0].args[0])
	viewports := f.enc.find("setViewport")
	require.Len(t, viewports, 1)
	assert.Equal(t, uint32(128), viewports[0].args[1])

	ctx.SetFramebuffer(nil)
	assert.Equal(t, 1, f.enc.count("endPass"))
	ctx.ClearFramebuffer(0, mgl32.Vec4{}, 1, 0)
	assert.Equal(t, 1, f.enc.count("beginPass"))

	ctx.ClearFramebuffer(graphics.ClearAll, mgl32.Vec4{0.1, 0.2, 0.3, 1}, 1, 0)
	clears := f.enc.find("clear")
	require.Len(t, clears, 1)
	assert.Same(t, f.frames.fb, clears[0].args[0])
	entries := clears[0].args[1].([]attachmentClear)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].color)
	assert.Equal(t, mgl32.Vec4{0.1, 0.2, 0.3, 1}, entries[0].value)
	assert.False(t, entries[1].color)
	assert.Equal(t, float32(1), entries[1].depth)

	ctx.ClearFramebufferIndexed(0, graphics.ClearColor, mgl32.Vec4{}, 1, 0)
	clears = f.enc.find("clear")
	require.Len(t, clears, 2)
	assert.Len(t, clears[1].args[1], 1)
	ctx.ClearFramebufferIndexed(3, graphics.ClearColor, mgl32.Vec4{}, 1, 0)
	assert.ErrorIs(t, ctx.Err(), graphics.ErrInvalidDesc)

	ctx.DiscardFramebuffer(graphics.ClearDepthStencil)
	ctx.RenderEnd()
	assert.Equal(t, 2, f.enc.count("beginPass"))
	assert.Equal(t, 2, f.enc.count("endPass"))
}

func TestContextBlit(t *testing.T) {
	f := newContextFixture(t, false)
	ctx := f.ctx

	ctx.RenderBegin()
	ctx.ClearFramebuffer(graphics.ClearColor, mgl32.Vec4{}, 1, 0)
	ctx.BlitFramebuffer(nil, graphics.Rect{Width: 640, Height: 480}, nil, graphics.Rect{Width: 320, Height: 240})
	assert.Equal(t, []string{"beginPass", "clear", "endPass", "blit"}, f.enc.names())
	blit := f.enc.find("blit")[0]
	assert.Equal(t, false, blit.args[4])
	assert.Equal(t, true, blit.args[5])

	ctx.BlitFramebuffer(nil, graphics.Rect{Width: 64, Height: 64}, nil, graphics.Rect{X: 64, Width: 64, Height: 64})
	blit = f.enc.find("blit")[1]
	assert.Equal(t, true, blit.args[4])
	assert.Equal(t, false, blit.args[5])
	require.NoError(t, ctx.Err())
	ctx.RenderEnd()
}

func TestContextReadFramebuffer(t *testing.T) {
	f := newContextFixture(t, false)
	ctx := f.ctx
	p := f.pipeline(graphics.DefaultStateDesc(), 0)
	out := make([]byte, 2*2*4)

	assert.ErrorIs(t, ctx.ReadFramebuffer(nil, graphics.FormatR8G8B8A8Unorm, 2, 2, out), graphics.ErrNotRecording)

	ctx.RenderBegin()
	ctx.SetPipeline(p)
	ctx.SetVertexBufferData(0, f.buffer(graphics.DataTypeVertex), 0)
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})

	require.NoError(t, ctx.ReadFramebuffer(nil, graphics.FormatR8G8B8A8Unorm, 2, 2, out))
	assert.Equal(t, []byte{1, 2, 3, 4}, out[:4])
	require.NoError(t, ctx.ReadFramebuffer(nil, graphics.FormatB8G8R8A8Unorm, 2, 2, out))
	assert.Equal(t, []byte{3, 2, 1, 4}, out[12:])

	assert.ErrorIs(t, ctx.ReadFramebuffer(nil, graphics.FormatR8G8B8A8Unorm, 4, 4, out), graphics.ErrInvalidDesc)
	assert.ErrorIs(t, ctx.ReadFramebuffer(nil, graphics.FormatR8G8B8A8Unorm, 1024, 1, make([]byte, 4096)), graphics.ErrInvalidDesc)
	assert.ErrorIs(t, ctx.ReadFramebuffer(nil, graphics.FormatBC1RGBUnormBlock, 2, 2, out), graphics.ErrUnsupportedFormat)
	assert.ErrorIs(t, ctx.ReadFramebuffer(nil, graphics.FormatR32SFloat, 2, 2, out), graphics.ErrUnsupportedFormat)

	// the read restarted the command buffer, bindings are encoded again
	f.enc.reset()
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	assert.Equal(t, 1, f.enc.count("beginPass"))
	assert.Equal(t, 1, f.enc.count("bindPipeline"))
	assert.Equal(t, 1, f.enc.count("bindVertexBuffer"))
	ctx.RenderEnd()
}

func TestReadConversion(t *testing.T) {
	swizzle, ok := readConversion(graphics.FormatB8G8R8A8SRGB, graphics.FormatR8G8B8A8SRGB)
	assert.True(t, ok)
	assert.True(t, swizzle)
	swizzle, ok = readConversion(graphics.FormatR8G8B8A8Unorm, graphics.FormatR8G8B8A8Unorm)
	assert.True(t, ok)
	assert.False(t, swizzle)
	_, ok = readConversion(graphics.FormatB8G8R8A8Unorm, graphics.FormatR8G8B8A8SRGB)
	assert.False(t, ok)
}

func TestContextReleasesBindings(t *testing.T) {
	f := newContextFixture(t, false)
	ctx := f.ctx
	p := f.pipeline(graphics.DefaultStateDesc(), 0)
	vb := f.buffer(graphics.DataTypeVertex)

	ctx.RenderBegin()
	ctx.SetPipeline(p)
	ctx.SetVertexBufferData(0, vb, 0)
	ctx.RenderEnd()
	assert.Equal(t, int32(2), p.Refs())
	assert.Equal(t, int32(2), vb.Refs())

	ctx.Release()
	assert.Equal(t, int32(1), p.Refs())
	assert.Equal(t, int32(1), vb.Refs())
	assert.Equal(t, int32(1), f.frames.fb.Refs())
}
