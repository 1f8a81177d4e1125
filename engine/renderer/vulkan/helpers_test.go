package vulkan

import (
	"encoding/binary"
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

func TestBuildCaps(t *testing.T) {
	limits := vk.PhysicalDeviceLimits{
		MaxImageDimension2D:           8192,
		MaxImageDimensionCube:         4096,
		MaxColorAttachments:           8,
		MaxSamplerAnisotropy:          16,
		MaxPerStageDescriptorSamplers: 32,
	}
	features := vk.PhysicalDeviceFeatures{SamplerAnisotropy: vk.True}
	props := func(f vk.Format) vk.FormatProperties {
		switch f {
		case vk.FormatR8g8b8a8Unorm:
			return vk.FormatProperties{
				OptimalTilingFeatures: vk.FormatFeatureFlags(vk.FormatFeatureSampledImageBit | vk.FormatFeatureColorAttachmentBit),
			}
		case vk.FormatD24UnormS8Uint:
			return vk.FormatProperties{OptimalTilingFeatures: vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)}
		case vk.FormatR32g32b32Sfloat:
			return vk.FormatProperties{BufferFeatures: vk.FormatFeatureFlags(vk.FormatFeatureVertexBufferBit)}
		}
		return vk.FormatProperties{}
	}

	caps := buildCaps(limits, features, props)
	assert.True(t, caps.IsTextureSupport(graphics.FormatR8G8B8A8Unorm))
	assert.True(t, caps.IsAttachmentSupport(graphics.FormatR8G8B8A8Unorm))
	assert.True(t, caps.IsAttachmentSupport(graphics.FormatD24UnormS8UInt))
	assert.False(t, caps.IsTextureSupport(graphics.FormatD24UnormS8UInt))
	assert.True(t, caps.IsVertexSupport(graphics.FormatR32G32B32SFloat))
	assert.False(t, caps.IsTextureSupport(graphics.FormatBC1RGBUnormBlock))

	assert.True(t, caps.Has(graphics.FeatureBlit))
	assert.True(t, caps.Has(graphics.FeatureAnisotropy))
	assert.False(t, caps.Has(graphics.FeatureDepthClamp))
	assert.False(t, caps.IsShaderSupport(graphics.ShaderStageGeometry))
	assert.False(t, caps.IsTextureDimSupport(graphics.TextureDimCubeArray))
	assert.Equal(t, uint32(8192), caps.MaxTextureSize)
	assert.Equal(t, float32(16), caps.MaxAnisotropy)
}

func TestFindMemoryType(t *testing.T) {
	var props vk.PhysicalDeviceMemoryProperties
	props.MemoryTypeCount = 3
	props.MemoryTypes[0].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	props.MemoryTypes[1].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
	props.MemoryTypes[2].PropertyFlags = memoryHostVisible

	i, ok := findMemoryType(props, 0b111, memoryHostVisible)
	require.True(t, ok)
	assert.Equal(t, uint32(2), i)

	i, ok = findMemoryType(props, 0b111, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	require.True(t, ok)
	assert.Equal(t, uint32(0), i)

	_, ok = findMemoryType(props, 0b010, memoryHostVisible)
	assert.False(t, ok)
}

func TestPickQueueFamilies(t *testing.T) {
	q := pickQueueFamilies([]queueFamilyInfo{
		{Flags: vk.QueueGraphicsBit | vk.QueueComputeBit | vk.QueueTransferBit},
		{Flags: vk.QueueGraphicsBit | vk.QueueComputeBit | vk.QueueTransferBit, Present: true},
		{Flags: vk.QueueTransferBit},
	})
	assert.Equal(t, queueFamilies{Graphics: 1, Present: 1, Transfer: 2}, q)

	q = pickQueueFamilies([]queueFamilyInfo{
		{Flags: vk.QueueGraphicsBit | vk.QueueTransferBit},
		{Present: true},
	})
	assert.Equal(t, queueFamilies{Graphics: 0, Present: 1, Transfer: 0}, q)

	q = pickQueueFamilies([]queueFamilyInfo{{Flags: vk.QueueComputeBit}})
	assert.Equal(t, int32(-1), q.Graphics)
	assert.Equal(t, int32(-1), q.Present)
}

func TestDestroyQueueRunsCompletedFrames(t *testing.T) {
	q := newDestroyQueue(4)
	var ran []int
	q.push(1, func() { ran = append(ran, 1) })
	q.push(2, func() { ran = append(ran, 2) })
	q.push(3, func() { ran = append(ran, 3) })

	q.collect(0)
	assert.Empty(t, ran)
	q.collect(2)
	assert.Equal(t, []int{1, 2}, ran)
	assert.Equal(t, 1, q.len())

	q.drain()
	assert.Equal(t, []int{1, 2, 3}, ran)
	assert.Zero(t, q.len())
}

func TestReleaseWaitsForNextFrame(t *testing.T) {
	d := newTestDevice()
	d.destroys = newDestroyQueue(8)
	d.frame = 5
	done := false
	d.release(func() { done = true })

	d.frameCompleted(5)
	d.destroys.collect(d.completed)
	assert.False(t, done)
	d.frameCompleted(6)
	d.destroys.collect(d.completed)
	assert.True(t, done)
}

func TestSpirvWords(t *testing.T) {
	code := make([]byte, 8)
	binary.LittleEndian.PutUint32(code, spirvMagic)
	binary.LittleEndian.PutUint32(code[4:], 0x00010000)
	words, err := spirvWords(code)
	require.NoError(t, err)
	assert.Equal(t, []uint32{spirvMagic, 0x00010000}, words)

	_, err = spirvWords(code[:6])
	assert.ErrorIs(t, err, graphics.ErrInvalidDesc)
	_, err = spirvWords([]byte("#version 330"))
	assert.ErrorIs(t, err, graphics.ErrInvalidDesc)
	_, err = spirvWords(nil)
	assert.ErrorIs(t, err, graphics.ErrInvalidDesc)
}

func TestTranslate(t *testing.T) {
	assert.Equal(t, vk.FormatR8g8b8a8Srgb, nativeFormat(graphics.FormatR8G8B8A8SRGB))
	assert.Equal(t, vk.FormatUndefined, nativeFormat(graphics.FormatUndefined))
	assert.Equal(t, graphics.FormatB8G8R8A8Unorm, engineFormat(vk.FormatB8g8r8a8Unorm))
	assert.Equal(t, graphics.FormatUndefined, engineFormat(vk.FormatUndefined))

	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectColorBit), aspectMask(graphics.FormatR8G8B8A8Unorm))
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectDepthBit|vk.ImageAspectStencilBit), aspectMask(graphics.FormatD24UnormS8UInt))
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectDepthBit), aspectMask(graphics.FormatD32SFloat))

	assert.Equal(t, vk.StencilOpIncrementAndWrap, stencilOp(graphics.StencilOpIncrWrap))
	assert.Equal(t, vk.CullModeFlags(vk.CullModeBackBit), cullMode(graphics.CullModeBack))
	assert.Equal(t, vk.FrontFaceClockwise, frontFace(graphics.FrontFaceCW))
	assert.Equal(t, vk.ColorComponentFlags(vk.ColorComponentRBit|vk.ColorComponentABit), colorWriteMask(graphics.ColorMaskR|graphics.ColorMaskA))

	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, descriptorType(graphics.UniformTexture))
	assert.Equal(t, vk.DescriptorTypeUniformBuffer, descriptorType(graphics.UniformBuffer))
	assert.Equal(t, vk.DescriptorTypeUniformBufferDynamic, descriptorType(graphics.UniformMat4))
}

func TestStd140Block(t *testing.T) {
	uniforms := []graphics.UniformDesc{
		{Name: "u_albedo", Type: graphics.UniformTexture, Binding: 0},
		{Name: "u_alpha", Type: graphics.UniformFloat, Binding: 1},
		{Name: "u_tint", Type: graphics.UniformVec3, Binding: 2},
		{Name: "u_offset", Type: graphics.UniformVec2, Binding: 3},
		{Name: "u_mvp", Type: graphics.UniformMat4, Binding: 4},
		{Name: "u_weights", Type: graphics.UniformFloat, Binding: 5, Count: 3},
	}
	b, ok := newUniformBlock(uniforms)
	require.True(t, ok)
	assert.Equal(t, uint32(1), b.binding)
	// vec3 aligns to 16, array elements stride 16
	assert.Equal(t, []int32{-1, 0, 16, 32, 48, 112}, b.offsets)
	assert.Equal(t, uint32(160), b.size)

	_, ok = newUniformBlock(uniforms[:1])
	assert.False(t, ok)
}

func TestUniformArenaRegions(t *testing.T) {
	a := newTestArena(256, 64)
	a.begin(0)
	off, ok := a.push([]byte{1, 2, 3})
	require.True(t, ok)
	assert.Equal(t, uint32(0), off)
	off, ok = a.push([]byte{4})
	require.True(t, ok)
	assert.Equal(t, uint32(64), off)
	_, ok = a.push(make([]byte, 100))
	assert.False(t, ok)

	a.begin(1)
	off, ok = a.push([]byte{9})
	require.True(t, ok)
	assert.Equal(t, uint32(128), off)

	got := make([]byte, 1)
	a.buf.alloc.read(128, got)
	assert.Equal(t, []byte{9}, got)
}

func TestLayoutBindings(t *testing.T) {
	uniforms := []graphics.UniformDesc{
		{Name: "u_mvp", Type: graphics.UniformMat4, Binding: 0},
		{Name: "u_albedo", Type: graphics.UniformTexture, Binding: 1},
		{Name: "u_color", Type: graphics.UniformVec4, Binding: 2},
	}
	block, ok := newUniformBlock(uniforms)
	require.True(t, ok)
	bindings, err := layoutBindings(uniforms, block, ok)
	require.NoError(t, err)
	require.Len(t, bindings, 2)
	assert.Equal(t, uint32(1), bindings[0].Binding)
	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, bindings[0].DescriptorType)
	assert.Equal(t, uint32(0), bindings[1].Binding)
	assert.Equal(t, vk.DescriptorTypeUniformBufferDynamic, bindings[1].DescriptorType)

	clash := []graphics.UniformDesc{
		{Name: "u_mvp", Type: graphics.UniformMat4, Binding: 0},
		{Name: "u_albedo", Type: graphics.UniformTexture, Binding: 0},
	}
	block, ok = newUniformBlock(clash)
	_, err = layoutBindings(clash, block, ok)
	assert.ErrorIs(t, err, graphics.ErrInvalidDesc)
}

func TestPoolSizes(t *testing.T) {
	sizes := poolSizes(graphics.DescriptorPoolDesc{}, 4)
	assert.Equal(t, []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 32},
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 8},
		{Type: vk.DescriptorTypeUniformBufferDynamic, DescriptorCount: 4},
	}, sizes)

	sizes = poolSizes(graphics.DescriptorPoolDesc{Sizes: map[graphics.UniformType]uint32{
		graphics.UniformTexture: 5,
		graphics.UniformMat4:    100,
	}}, 2)
	assert.Equal(t, []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 5},
		{Type: vk.DescriptorTypeUniformBufferDynamic, DescriptorCount: 2},
	}, sizes)
}

func TestRenderPassLayouts(t *testing.T) {
	outside, inside := attachmentLayouts(false, passSwapchain)
	assert.Equal(t, vk.ImageLayoutPresentSrc, outside)
	assert.Equal(t, vk.ImageLayoutColorAttachmentOptimal, inside)
	outside, inside = attachmentLayouts(true, passOffscreen)
	assert.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, outside)
	assert.Equal(t, vk.ImageLayoutDepthStencilAttachmentOptimal, inside)

	desc := graphics.FramebufferLayoutDesc{Attachments: []graphics.AttachmentLayout{
		{Type: graphics.AttachmentDepthStencil, Format: graphics.FormatD24UnormS8UInt},
		{Type: graphics.AttachmentColor, Slot: 0, Format: graphics.FormatR8G8B8A8Unorm},
		{Type: graphics.AttachmentColor, Slot: 1, Format: graphics.FormatR16G16B16A16SFloat},
	}}
	info := renderPassInfo(desc, passOffscreen)
	require.Len(t, info.attachments, 3)
	assert.Equal(t, vk.FormatR8g8b8a8Unorm, info.attachments[0].Format)
	assert.Equal(t, vk.FormatD24UnormS8Uint, info.attachments[2].Format)
	assert.Equal(t, vk.AttachmentLoadOpLoad, info.attachments[0].LoadOp)
	require.Len(t, info.colors, 2)
	require.NotNil(t, info.depth)
	assert.Equal(t, uint32(2), info.depth.Attachment)
	assert.Len(t, colorAttachments(desc), 2)
}

func TestMipChain(t *testing.T) {
	assert.Equal(t, uint32(1), fullMipCount(1, 1))
	assert.Equal(t, uint32(9), fullMipCount(256, 64))
	assert.Equal(t, uint32(10), fullMipCount(1000, 3))

	desc := graphics.TextureDesc{
		Width:     4,
		Height:    4,
		MipNums:   1,
		Format:    graphics.FormatR8G8B8A8Unorm,
		MinFilter: graphics.FilterLinearMipmapLinear,
		Stream:    make([]byte, 64),
	}
	assert.True(t, wantsMipChain(desc))
	desc.MinFilter = graphics.FilterLinear
	assert.False(t, wantsMipChain(desc))
	desc.MinFilter = graphics.FilterLinearMipmapLinear
	desc.Stream = nil
	assert.False(t, wantsMipChain(desc))
}

func TestWindowSpaceConversions(t *testing.T) {
	vp := viewportRect(graphics.Viewport{X: 10, Y: 20, Width: 100, Height: 50, MaxDepth: 1}, 480)
	assert.Equal(t, float32(460), vp.Y)
	assert.Equal(t, float32(-50), vp.Height)
	assert.Equal(t, float32(1), vp.MaxDepth)

	r := scissorRect(graphics.Rect{X: 10, Y: 20, Width: 100, Height: 50}, 480)
	assert.Equal(t, vk.Offset2D{X: 10, Y: 410}, r.Offset)
	assert.Equal(t, vk.Extent2D{Width: 100, Height: 50}, r.Extent)

	r = scissorRect(graphics.Rect{X: -5, Y: 470, Width: 20, Height: 20}, 480)
	assert.Equal(t, vk.Offset2D{X: 0, Y: 0}, r.Offset)
	assert.Equal(t, vk.Extent2D{Width: 15, Height: 10}, r.Extent)

	o := blitOffsets(graphics.Rect{X: 0, Y: 0, Width: 640, Height: 240}, 480)
	assert.Equal(t, vk.Offset3D{X: 0, Y: 240, Z: 0}, o[0])
	assert.Equal(t, vk.Offset3D{X: 640, Y: 480, Z: 1}, o[1])

	p := []byte{1, 1, 2, 2, 3, 3}
	flipRows(p, 2, 3)
	assert.Equal(t, []byte{3, 3, 2, 2, 1, 1}, p)
}

func TestSwapchainChoices(t *testing.T) {
	srgb := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	rgba := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	assert.Equal(t, rgba, chooseSurfaceFormat([]vk.SurfaceFormat{srgb, rgba}, vk.FormatR8g8b8a8Unorm))
	assert.Equal(t, srgb, chooseSurfaceFormat([]vk.SurfaceFormat{rgba, srgb}, vk.FormatR16g16b16a16Sfloat))
	anything := chooseSurfaceFormat([]vk.SurfaceFormat{{Format: vk.FormatUndefined}}, vk.FormatUndefined)
	assert.Equal(t, vk.FormatB8g8r8a8Unorm, anything.Format)

	modes := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate, vk.PresentModeMailbox}
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode(modes, true))
	assert.Equal(t, vk.PresentModeMailbox, choosePresentMode(modes, false))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode([]vk.PresentMode{vk.PresentModeFifo}, false))

	caps := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: vk.MaxUint32, Height: vk.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: 1024, Height: 768},
		MinImageCount:  2,
		MaxImageCount:  3,
	}
	assert.Equal(t, vk.Extent2D{Width: 1024, Height: 600}, chooseExtent(caps, 4096, 600))
	caps.CurrentExtent = vk.Extent2D{Width: 800, Height: 600}
	assert.Equal(t, caps.CurrentExtent, chooseExtent(caps, 4096, 4096))

	assert.Equal(t, uint32(3), chooseImageCount(caps, 4))
	assert.Equal(t, uint32(2), chooseImageCount(caps, 1))
	caps.MaxImageCount = 0
	assert.Equal(t, uint32(5), chooseImageCount(caps, 5))
}

func TestVertexInput(t *testing.T) {
	input := graphics.InputLayoutDesc{Components: []graphics.VertexComponent{
		{Slot: 0, Format: graphics.FormatR32G32B32SFloat},
		{Slot: 0, Format: graphics.FormatR32G32SFloat},
		{Slot: 1, Format: graphics.FormatR32G32B32A32SFloat, Divisor: 1},
	}}
	bindings, attributes := vertexInput(input)
	require.Len(t, bindings, 2)
	assert.Equal(t, uint32(20), bindings[0].Stride)
	assert.Equal(t, vk.VertexInputRateVertex, bindings[0].InputRate)
	assert.Equal(t, vk.VertexInputRateInstance, bindings[1].InputRate)
	require.Len(t, attributes, 3)
	assert.Equal(t, uint32(12), attributes[1].Offset)
	assert.Equal(t, uint32(2), attributes[2].Location)
	assert.Equal(t, uint32(1), attributes[2].Binding)

	info := pipelineInfo(graphics.AlphaBlendStateDesc(), input, nil, 2, false)
	assert.Len(t, info.blend, 2)
	assert.Equal(t, vk.Bool32(vk.True), info.blend[0].BlendEnable)
	assert.Equal(t, vk.Bool32(vk.False), info.create.PDepthStencilState.DepthTestEnable)
	assert.Equal(t, uint32(len(dynamicStates)), info.create.PDynamicState.DynamicStateCount)
}

func newTestDevice() *Device {
	d := NewDevice()
	d.caps = buildCaps(vk.PhysicalDeviceLimits{MaxColorAttachments: 4}, vk.PhysicalDeviceFeatures{},
		func(vk.Format) vk.FormatProperties { return vk.FormatProperties{} })
	return d
}

// newTestArena backs an arena with Go memory instead of a mapped buffer.
func newTestArena(size, align uint32) *uniformArena {
	mem := make([]byte, size)
	return &uniformArena{
		buf:        rawBuffer{alloc: allocation{size: vk.DeviceSize(size), mapped: unsafe.Pointer(&mem[0])}},
		regionSize: size / maxFramesInFlight,
		align:      align,
	}
}
