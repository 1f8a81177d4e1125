package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

var formats = map[graphics.Format]vk.Format{
	graphics.FormatR8Unorm:                vk.FormatR8Unorm,
	graphics.FormatR8G8Unorm:              vk.FormatR8g8Unorm,
	graphics.FormatR8G8B8Unorm:            vk.FormatR8g8b8Unorm,
	graphics.FormatR8G8B8A8Unorm:          vk.FormatR8g8b8a8Unorm,
	graphics.FormatR8G8B8A8SRGB:           vk.FormatR8g8b8a8Srgb,
	graphics.FormatB8G8R8A8Unorm:          vk.FormatB8g8r8a8Unorm,
	graphics.FormatB8G8R8A8SRGB:           vk.FormatB8g8r8a8Srgb,
	graphics.FormatR5G6B5Unorm:            vk.FormatR5g6b5UnormPack16,
	graphics.FormatR8G8B8A8UInt:           vk.FormatR8g8b8a8Uint,
	graphics.FormatR16SFloat:              vk.FormatR16Sfloat,
	graphics.FormatR16G16SFloat:           vk.FormatR16g16Sfloat,
	graphics.FormatR16G16B16A16SFloat:     vk.FormatR16g16b16a16Sfloat,
	graphics.FormatR32SFloat:              vk.FormatR32Sfloat,
	graphics.FormatR32G32SFloat:           vk.FormatR32g32Sfloat,
	graphics.FormatR32G32B32SFloat:        vk.FormatR32g32b32Sfloat,
	graphics.FormatR32G32B32A32SFloat:     vk.FormatR32g32b32a32Sfloat,
	graphics.FormatR32UInt:                vk.FormatR32Uint,
	graphics.FormatR11G11B10UFloat:        vk.FormatB10g11r11UfloatPack32,
	graphics.FormatD16Unorm:               vk.FormatD16Unorm,
	graphics.FormatX8D24Unorm:             vk.FormatX8D24UnormPack32,
	graphics.FormatD32SFloat:              vk.FormatD32Sfloat,
	graphics.FormatS8UInt:                 vk.FormatS8Uint,
	graphics.FormatD24UnormS8UInt:         vk.FormatD24UnormS8Uint,
	graphics.FormatD32SFloatS8UInt:        vk.FormatD32SfloatS8Uint,
	graphics.FormatBC1RGBUnormBlock:       vk.FormatBc1RgbUnormBlock,
	graphics.FormatBC1RGBAUnormBlock:      vk.FormatBc1RgbaUnormBlock,
	graphics.FormatBC3UnormBlock:          vk.FormatBc3UnormBlock,
	graphics.FormatBC5UnormBlock:          vk.FormatBc5UnormBlock,
	graphics.FormatETC2R8G8B8UnormBlock:   vk.FormatEtc2R8g8b8UnormBlock,
	graphics.FormatETC2R8G8B8A8UnormBlock: vk.FormatEtc2R8g8b8a8UnormBlock,
}

// nativeFormat returns the Vulkan format of f, FormatUndefined when there is none.
func nativeFormat(f graphics.Format) vk.Format {
	if nf, ok := formats[f]; ok {
		return nf
	}
	return vk.FormatUndefined
}

// engineFormat is the reverse of nativeFormat, used for surface formats.
func engineFormat(f vk.Format) graphics.Format {
	for gf, nf := range formats {
		if nf == f {
			return gf
		}
	}
	return graphics.FormatUndefined
}

func aspectMask(f graphics.Format) vk.ImageAspectFlags {
	var mask vk.ImageAspectFlagBits
	if f.IsDepth() {
		mask |= vk.ImageAspectDepthBit
	}
	if f.IsStencil() {
		mask |= vk.ImageAspectStencilBit
	}
	if mask == 0 {
		mask = vk.ImageAspectColorBit
	}
	return vk.ImageAspectFlags(mask)
}

func compareOp(f graphics.CompareFunc) vk.CompareOp {
	switch f {
	case graphics.CompareNever:
		return vk.CompareOpNever
	case graphics.CompareLess:
		return vk.CompareOpLess
	case graphics.CompareEqual:
		return vk.CompareOpEqual
	case graphics.CompareLessEqual:
		return vk.CompareOpLessOrEqual
	case graphics.CompareGreater:
		return vk.CompareOpGreater
	case graphics.CompareNotEqual:
		return vk.CompareOpNotEqual
	case graphics.CompareGreaterEqual:
		return vk.CompareOpGreaterOrEqual
	}
	return vk.CompareOpAlways
}

func blendFactor(f graphics.BlendFactor) vk.BlendFactor {
	switch f {
	case graphics.BlendZero:
		return vk.BlendFactorZero
	case graphics.BlendSrcColor:
		return vk.BlendFactorSrcColor
	case graphics.BlendOneMinusSrcColor:
		return vk.BlendFactorOneMinusSrcColor
	case graphics.BlendDstColor:
		return vk.BlendFactorDstColor
	case graphics.BlendOneMinusDstColor:
		return vk.BlendFactorOneMinusDstColor
	case graphics.BlendSrcAlpha:
		return vk.BlendFactorSrcAlpha
	case graphics.BlendOneMinusSrcAlpha:
		return vk.BlendFactorOneMinusSrcAlpha
	case graphics.BlendDstAlpha:
		return vk.BlendFactorDstAlpha
	case graphics.BlendOneMinusDstAlpha:
		return vk.BlendFactorOneMinusDstAlpha
	case graphics.BlendSrcAlphaSaturate:
		return vk.BlendFactorSrcAlphaSaturate
	}
	return vk.BlendFactorOne
}

func blendOp(op graphics.BlendOp) vk.BlendOp {
	switch op {
	case graphics.BlendOpSubtract:
		return vk.BlendOpSubtract
	case graphics.BlendOpReverseSubtract:
		return vk.BlendOpReverseSubtract
	}
	return vk.BlendOpAdd
}

func colorWriteMask(m graphics.ColorMask) vk.ColorComponentFlags {
	var flags vk.ColorComponentFlagBits
	if m&graphics.ColorMaskR != 0 {
		flags |= vk.ColorComponentRBit
	}
	if m&graphics.ColorMaskG != 0 {
		flags |= vk.ColorComponentGBit
	}
	if m&graphics.ColorMaskB != 0 {
		flags |= vk.ColorComponentBBit
	}
	if m&graphics.ColorMaskA != 0 {
		flags |= vk.ColorComponentABit
	}
	return vk.ColorComponentFlags(flags)
}

func stencilOp(op graphics.StencilOp) vk.StencilOp {
	switch op {
	case graphics.StencilOpZero:
		return vk.StencilOpZero
	case graphics.StencilOpReplace:
		return vk.StencilOpReplace
	case graphics.StencilOpIncrClamp:
		return vk.StencilOpIncrementAndClamp
	case graphics.StencilOpDecrClamp:
		return vk.StencilOpDecrementAndClamp
	case graphics.StencilOpInvert:
		return vk.StencilOpInvert
	case graphics.StencilOpIncrWrap:
		return vk.StencilOpIncrementAndWrap
	case graphics.StencilOpDecrWrap:
		return vk.StencilOpDecrementAndWrap
	}
	return vk.StencilOpKeep
}

func cullMode(m graphics.CullMode) vk.CullModeFlags {
	switch m {
	case graphics.CullModeFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case graphics.CullModeBack:
		return vk.CullModeFlags(vk.CullModeBackBit)
	case graphics.CullModeFrontBack:
		return vk.CullModeFlags(vk.CullModeFrontAndBack)
	}
	return vk.CullModeFlags(vk.CullModeNone)
}

func frontFace(f graphics.FrontFace) vk.FrontFace {
	if f == graphics.FrontFaceCW {
		return vk.FrontFaceClockwise
	}
	return vk.FrontFaceCounterClockwise
}

func polygonMode(m graphics.PolygonMode) vk.PolygonMode {
	switch m {
	case graphics.PolygonModeLine:
		return vk.PolygonModeLine
	case graphics.PolygonModePoint:
		return vk.PolygonModePoint
	}
	return vk.PolygonModeFill
}

func topology(t graphics.PrimitiveTopology) vk.PrimitiveTopology {
	switch t {
	case graphics.TopologyTriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip
	case graphics.TopologyTriangleFan:
		return vk.PrimitiveTopologyTriangleFan
	case graphics.TopologyLineList:
		return vk.PrimitiveTopologyLineList
	case graphics.TopologyLineStrip:
		return vk.PrimitiveTopologyLineStrip
	case graphics.TopologyPointList:
		return vk.PrimitiveTopologyPointList
	}
	return vk.PrimitiveTopologyTriangleList
}

// filter splits an engine filter into the texel filter and the mipmap mode.
func filter(f graphics.Filter) (vk.Filter, vk.SamplerMipmapMode) {
	switch f {
	case graphics.FilterLinear:
		return vk.FilterLinear, vk.SamplerMipmapModeNearest
	case graphics.FilterNearestMipmapNearest:
		return vk.FilterNearest, vk.SamplerMipmapModeNearest
	case graphics.FilterLinearMipmapNearest:
		return vk.FilterLinear, vk.SamplerMipmapModeNearest
	case graphics.FilterNearestMipmapLinear:
		return vk.FilterNearest, vk.SamplerMipmapModeLinear
	case graphics.FilterLinearMipmapLinear:
		return vk.FilterLinear, vk.SamplerMipmapModeLinear
	}
	return vk.FilterNearest, vk.SamplerMipmapModeNearest
}

func addressMode(w graphics.Wrap) vk.SamplerAddressMode {
	switch w {
	case graphics.WrapMirrorRepeat:
		return vk.SamplerAddressModeMirroredRepeat
	case graphics.WrapClampToEdge:
		return vk.SamplerAddressModeClampToEdge
	case graphics.WrapClampToBorder:
		return vk.SamplerAddressModeClampToBorder
	}
	return vk.SamplerAddressModeRepeat
}

func indexType(t graphics.IndexType) vk.IndexType {
	if t == graphics.IndexTypeUInt32 {
		return vk.IndexTypeUint32
	}
	return vk.IndexTypeUint16
}

func shaderStage(s graphics.ShaderStage) vk.ShaderStageFlagBits {
	switch s {
	case graphics.ShaderStageFragment:
		return vk.ShaderStageFragmentBit
	case graphics.ShaderStageGeometry:
		return vk.ShaderStageGeometryBit
	case graphics.ShaderStageTessControl:
		return vk.ShaderStageTessellationControlBit
	case graphics.ShaderStageTessEvaluation:
		return vk.ShaderStageTessellationEvaluationBit
	case graphics.ShaderStageCompute:
		return vk.ShaderStageComputeBit
	}
	return vk.ShaderStageVertexBit
}

func shaderStageFlags(flags graphics.ShaderStageFlags) vk.ShaderStageFlags {
	if flags == 0 {
		flags = graphics.ShaderStageFlagsGraphics
	}
	var out vk.ShaderStageFlagBits
	for s := graphics.ShaderStageVertex; s <= graphics.ShaderStageCompute; s++ {
		if flags&graphics.StageFlag(s) != 0 {
			out |= shaderStage(s)
		}
	}
	return vk.ShaderStageFlags(out)
}

// descriptorType maps a uniform to its binding type. Plain values share one
// dynamic uniform buffer per set.
func descriptorType(t graphics.UniformType) vk.DescriptorType {
	switch t {
	case graphics.UniformTexture:
		return vk.DescriptorTypeCombinedImageSampler
	case graphics.UniformBuffer:
		return vk.DescriptorTypeUniformBuffer
	}
	return vk.DescriptorTypeUniformBufferDynamic
}

func loadOp(op graphics.AttachmentLoadOp) vk.AttachmentLoadOp {
	switch op {
	case graphics.LoadOpClear:
		return vk.AttachmentLoadOpClear
	case graphics.LoadOpDontCare:
		return vk.AttachmentLoadOpDontCare
	}
	return vk.AttachmentLoadOpLoad
}

func storeOp(op graphics.AttachmentStoreOp) vk.AttachmentStoreOp {
	if op == graphics.StoreOpDontCare {
		return vk.AttachmentStoreOpDontCare
	}
	return vk.AttachmentStoreOpStore
}

func imageViewType(d graphics.TextureDim) vk.ImageViewType {
	switch d {
	case graphics.TextureDim2DArray:
		return vk.ImageViewType2dArray
	case graphics.TextureDim3D:
		return vk.ImageViewType3d
	case graphics.TextureDimCube:
		return vk.ImageViewTypeCube
	case graphics.TextureDimCubeArray:
		return vk.ImageViewTypeCubeArray
	}
	return vk.ImageViewType2d
}

func toBool32(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}
