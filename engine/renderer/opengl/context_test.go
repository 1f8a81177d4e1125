package opengl_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/opengl"
)

var fixedFunctionCalls = []string{
	"Enable", "Disable", "BlendFuncSeparate", "BlendEquationSeparate", "ColorMask",
	"DepthMask", "DepthFunc", "CullFace", "FrontFace", "StencilFuncSeparate",
	"StencilOpSeparate", "StencilMaskSeparate", "PolygonOffset",
}

func TestContextStateMachine(t *testing.T) {
	f := newES3(t, false)
	ctx := f.ctx
	assert.False(t, ctx.IsRecording())

	ctx.SetViewport(graphics.FullViewport(10, 10))
	assert.ErrorIs(t, ctx.Err(), graphics.ErrNotRecording)
	assert.Equal(t, 0, f.rec.Count("Viewport"))

	ctx.RenderBegin()
	assert.True(t, ctx.IsRecording())
	assert.NoError(t, ctx.Err())
	assert.Equal(t, graphics.FullViewport(640, 480), ctx.Viewport())
	assert.Equal(t, graphics.Scissor{Width: 640, Height: 480}, ctx.Scissor())

	ctx.RenderBegin()
	assert.ErrorIs(t, ctx.Err(), graphics.ErrAlreadyRecording)
	ctx.RenderEnd()
	assert.False(t, ctx.IsRecording())

	// getters and present stay usable outside a frame
	assert.Nil(t, ctx.Pipeline())
	ctx.Present()
	assert.Equal(t, 1, f.surface.Swaps)
	assert.Equal(t, 1, f.surface.Interval)
}

func TestDebugContextPanics(t *testing.T) {
	f := newES3(t, true)
	assert.Panics(t, func() { f.ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3}) })
	f.ctx.RenderBegin()
	assert.Panics(t, func() { f.ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3}) })
	assert.NotPanics(t, func() { f.ctx.RenderEnd() })
}

func TestDrawPreconditions(t *testing.T) {
	f := newES3(t, false)
	ctx := f.ctx
	parts := f.parts(t)
	p := f.pipeline(t, parts, graphics.DefaultStateDesc())
	vb := f.vertices(t)

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
	ctx.RenderEnd()

	ctx.RenderBegin()
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3, VertexOffset: 2})
	assert.ErrorIs(t, ctx.Err(), graphics.ErrUnsupportedFeature)
	ctx.RenderEnd()

	assert.Equal(t, 0, f.rec.Count("DrawArrays")+f.rec.Count("DrawElements"))

	ctx.RenderBegin()
	ctx.DrawRenderMeshes([]graphics.Indirect{{VertexCount: 3}, {VertexCount: 6, InstanceCount: 2}})
	require.NoError(t, ctx.Err())
	assert.Equal(t, 1, f.rec.Count("DrawArrays"))
	assert.Equal(t, 1, f.rec.Count("DrawArraysInstanced"))
	assert.Equal(t, uint32(2), ctx.Stats().DrawCalls)
	ctx.RenderEnd()
}

func TestContextSkipsRedundantState(t *testing.T) {
	f := newES3(t, false)
	ctx := f.ctx
	parts := f.parts(t)
	first := f.pipeline(t, parts, graphics.DefaultStateDesc())
	second := f.pipeline(t, parts, graphics.DefaultStateDesc())
	vb := f.vertices(t)

	ctx.RenderBegin()
	ctx.SetPipeline(first)
	ctx.SetVertexBufferData(0, vb, 0)
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	require.NoError(t, ctx.Err())

	f.rec.Reset()
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	assert.Equal(t, []string{"DrawArrays"}, f.rec.Names())

	f.rec.Reset()
	ctx.SetPipeline(second)
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	for _, name := range fixedFunctionCalls {
		assert.Zero(t, f.rec.Count(name), name)
	}
	assert.Zero(t, f.rec.Count("UseProgram"))
	assert.Equal(t, 1, f.rec.Count("BindVertexArray"))
	assert.Positive(t, ctx.Stats().SkippedStateChanges)
	ctx.RenderEnd()

	// a new frame re-validates without emitting anything that already matches
	f.rec.Reset()
	ctx.RenderBegin()
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	for _, name := range fixedFunctionCalls {
		assert.Zero(t, f.rec.Count(name), name)
	}
	ctx.RenderEnd()
}

func TestCapturedStateRoundTrip(t *testing.T) {
	f := newES3(t, false)
	ctx := f.ctx
	assert.Equal(t, graphics.DefaultStateDesc(), ctx.CapturedState())

	parts := f.parts(t)
	desc := graphics.AlphaBlendStateDesc()
	desc.Cull = graphics.CullModeNone
	desc.StencilTest = true
	desc.StencilFront.Func = graphics.CompareEqual
	desc.StencilFront.Ref = 3
	desc.StencilFront.Pass = graphics.StencilOpReplace
	p := f.pipeline(t, parts, desc)
	vb := f.vertices(t)

	ctx.RenderBegin()
	ctx.SetPipeline(p)
	ctx.SetVertexBufferData(0, vb, 0)
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	require.NoError(t, ctx.Err())
	assert.Equal(t, desc, ctx.CapturedState())

	ctx.SetStencilReference(graphics.StencilFaceFront, 7)
	ctx.SetStencilWriteMask(graphics.StencilFaceAll, 0x0F)
	assert.Equal(t, uint32(7), ctx.StencilReference(graphics.StencilFaceFront))
	assert.Equal(t, uint32(0), ctx.StencilReference(graphics.StencilFaceBack))
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})

	want := desc
	want.StencilFront.Ref = 7
	want.StencilFront.WriteMask = 0x0F
	want.StencilBack.WriteMask = 0x0F
	assert.Equal(t, want, ctx.CapturedState())
	ctx.RenderEnd()

	// binding the pipeline again resets the dynamic values
	ctx.RenderBegin()
	ctx.SetPipeline(nil)
	ctx.SetPipeline(p)
	assert.Equal(t, uint32(3), ctx.StencilReference(graphics.StencilFaceFront))
	ctx.RenderEnd()
}

func TestClearKeepsViewportAndMasks(t *testing.T) {
	f := newES3(t, false)
	ctx := f.ctx
	parts := f.parts(t)
	p := f.pipeline(t, parts, graphics.AlphaBlendStateDesc())
	vb := f.vertices(t)

	ctx.RenderBegin()
	ctx.SetPipeline(p)
	ctx.SetVertexBufferData(0, vb, 0)
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	vp := graphics.Viewport{X: 10, Y: 20, Width: 100, Height: 50, MaxDepth: 1}
	ctx.SetViewport(vp)
	ctx.SetScissor(graphics.Scissor{X: 10, Y: 20, Width: 100, Height: 50})

	f.rec.Reset()
	ctx.ClearFramebuffer(graphics.ClearAll, mgl32.Vec4{0.1, 0.2, 0.3, 1}, 1, 0)
	require.NoError(t, ctx.Err())
	assert.Equal(t, vp, ctx.Viewport())
	assert.Zero(t, f.rec.Count("Viewport"))
	assert.Zero(t, f.rec.Count("Scissor"))

	clears := f.rec.Find("Clear")
	require.Len(t, clears, 1)
	assert.Equal(t, opengl.Enum(opengl.COLOR_BUFFER_BIT|opengl.DEPTH_BUFFER_BIT|opengl.STENCIL_BUFFER_BIT), clears[0].Args[0])

	masks := f.rec.Find("DepthMask")
	require.Len(t, masks, 2)
	assert.Equal(t, true, masks[0].Args[0])
	assert.Equal(t, false, masks[1].Args[0])
	assert.Equal(t, graphics.AlphaBlendStateDesc(), ctx.CapturedState())

	f.rec.Reset()
	ctx.ClearFramebufferIndexed(0, graphics.ClearColor, mgl32.Vec4{}, 1, 0)
	assert.Equal(t, 1, f.rec.Count("ClearBufferfv"))
	ctx.ClearFramebufferIndexed(3, graphics.ClearColor, mgl32.Vec4{}, 1, 0)
	assert.ErrorIs(t, ctx.Err(), graphics.ErrInvalidDesc)
	ctx.RenderEnd()
}

func TestDescriptorsUploadOnChange(t *testing.T) {
	f := newES3(t, false)
	ctx := f.ctx
	parts := f.parts(t)
	p := f.pipeline(t, parts, graphics.DefaultStateDesc())
	vb := f.vertices(t)
	set, err := f.dev.CreateDescriptorSet(graphics.DescriptorSetDesc{Layout: parts.setupSet})
	require.NoError(t, err)
	require.NoError(t, set.SetMat4("u_mvp", mgl32.Ident4()))
	tex, err := f.dev.CreateTexture(graphics.TextureDesc{Width: 2, Height: 2, MipNums: 1, Format: graphics.FormatR8G8B8A8Unorm})
	require.NoError(t, err)
	require.NoError(t, set.SetTexture("u_albedo", tex, nil))

	ctx.RenderBegin()
	ctx.SetPipeline(p)
	ctx.SetVertexBufferData(0, vb, 0)
	ctx.SetDescriptorSet(set)
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	assert.Equal(t, 1, f.rec.Count("UniformMatrix4fv"))

	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	assert.Equal(t, 1, f.rec.Count("UniformMatrix4fv"))

	require.NoError(t, set.SetMat4("u_mvp", mgl32.Translate3D(1, 0, 0)))
	ctx.DrawRenderMesh(graphics.Indirect{VertexCount: 3})
	assert.Equal(t, 2, f.rec.Count("UniformMatrix4fv"))
	ctx.RenderEnd()

	// the context keeps the set and its texture alive while bound
	set.Release()
	tex.Release()
	assert.Equal(t, int32(1), tex.Refs())
	assert.Zero(t, f.rec.Count("DeleteTexture"))
}

func TestFramebufferOperations(t *testing.T) {
	f := newES3(t, false)
	ctx := f.ctx
	out := make([]byte, 4*4*4)

	ctx.RenderBegin()
	require.NoError(t, ctx.ReadFramebuffer(nil, graphics.FormatR8G8B8A8Unorm, 4, 4, out))
	assert.Equal(t, 1, f.rec.Count("ReadPixels"))
	assert.ErrorIs(t, ctx.ReadFramebuffer(nil, graphics.FormatR8G8B8A8Unorm, 8, 8, out), graphics.ErrInvalidDesc)
	assert.ErrorIs(t, ctx.ReadFramebuffer(nil, graphics.FormatBC1RGBUnormBlock, 4, 4, out), graphics.ErrUnsupportedFormat)

	ctx.DiscardFramebuffer(graphics.ClearDepthStencil)
	inv := f.rec.Find("InvalidateFramebuffer")
	require.Len(t, inv, 1)
	assert.Equal(t, []opengl.Enum{opengl.DEPTH, opengl.STENCIL}, inv[0].Args[1])

	ctx.BlitFramebuffer(nil, graphics.Rect{Width: 640, Height: 480}, nil, graphics.Rect{Width: 320, Height: 240})
	blits := f.rec.Find("BlitFramebuffer")
	require.Len(t, blits, 1)
	assert.Equal(t, opengl.Enum(opengl.LINEAR), blits[0].Args[9])
	ctx.RenderEnd()
}

func TestES2FallbackPaths(t *testing.T) {
	f := newES2(t)
	ctx := f.ctx

	ctx.RenderBegin()
	ctx.ClearFramebufferIndexed(0, graphics.ClearColor, mgl32.Vec4{1, 0, 0, 1}, 1, 0)
	require.NoError(t, ctx.Err())
	assert.Equal(t, 1, f.rec.Count("Clear"))
	assert.Zero(t, f.rec.Count("ClearBufferfv"))

	ctx.DiscardFramebuffer(graphics.ClearAll)
	assert.Zero(t, f.rec.Count("InvalidateFramebuffer"))

	ctx.BlitFramebuffer(nil, graphics.Rect{Width: 1, Height: 1}, nil, graphics.Rect{Width: 1, Height: 1})
	assert.ErrorIs(t, ctx.Err(), graphics.ErrUnsupportedFeature)
	ctx.RenderEnd()
}
