package opengl

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

func compareFunc(f graphics.CompareFunc) Enum {
	switch f {
	case graphics.CompareNever:
		return NEVER
	case graphics.CompareLess:
		return LESS
	case graphics.CompareEqual:
		return EQUAL
	case graphics.CompareLessEqual:
		return LEQUAL
	case graphics.CompareGreater:
		return GREATER
	case graphics.CompareNotEqual:
		return NOTEQUAL
	case graphics.CompareGreaterEqual:
		return GEQUAL
	}
	return ALWAYS
}

func blendFactor(f graphics.BlendFactor) Enum {
	switch f {
	case graphics.BlendZero:
		return ZERO
	case graphics.BlendOne:
		return ONE
	case graphics.BlendSrcColor:
		return SRC_COLOR
	case graphics.BlendOneMinusSrcColor:
		return ONE_MINUS_SRC_COLOR
	case graphics.BlendDstColor:
		return DST_COLOR
	case graphics.BlendOneMinusDstColor:
		return ONE_MINUS_DST_COLOR
	case graphics.BlendSrcAlpha:
		return SRC_ALPHA
	case graphics.BlendOneMinusSrcAlpha:
		return ONE_MINUS_SRC_ALPHA
	case graphics.BlendDstAlpha:
		return DST_ALPHA
	case graphics.BlendOneMinusDstAlpha:
		return ONE_MINUS_DST_ALPHA
	case graphics.BlendSrcAlphaSaturate:
		return SRC_ALPHA_SATURATE
	}
	panic(fmt.Sprintf("unknown blend factor %d", f))
}

func blendOp(op graphics.BlendOp) Enum {
	switch op {
	case graphics.BlendOpSubtract:
		return FUNC_SUBTRACT
	case graphics.BlendOpReverseSubtract:
		return FUNC_REVERSE_SUBTRACT
	}
	return FUNC_ADD
}

func stencilOp(op graphics.StencilOp) Enum {
	switch op {
	case graphics.StencilOpZero:
		return ZERO
	case graphics.StencilOpReplace:
		return REPLACE
	case graphics.StencilOpIncrClamp:
		return INCR
	case graphics.StencilOpDecrClamp:
		return DECR
	case graphics.StencilOpInvert:
		return INVERT
	case graphics.StencilOpIncrWrap:
		return INCR_WRAP
	case graphics.StencilOpDecrWrap:
		return DECR_WRAP
	}
	return KEEP
}

func cullFace(m graphics.CullMode) Enum {
	switch m {
	case graphics.CullModeFront:
		return FRONT
	case graphics.CullModeFrontBack:
		return FRONT_AND_BACK
	}
	return BACK
}

func frontFace(f graphics.FrontFace) Enum {
	if f == graphics.FrontFaceCW {
		return CW
	}
	return CCW
}

func polygonMode(m graphics.PolygonMode) Enum {
	switch m {
	case graphics.PolygonModeLine:
		return LINE
	case graphics.PolygonModePoint:
		return POINT
	}
	return FILL
}

func primitive(t graphics.PrimitiveTopology) Enum {
	switch t {
	case graphics.TopologyTriangleStrip:
		return TRIANGLE_STRIP
	case graphics.TopologyTriangleFan:
		return TRIANGLE_FAN
	case graphics.TopologyLineList:
		return LINES
	case graphics.TopologyLineStrip:
		return LINE_STRIP
	case graphics.TopologyPointList:
		return POINTS
	}
	return TRIANGLES
}

func indexType(t graphics.IndexType) Enum {
	if t == graphics.IndexTypeUInt32 {
		return UNSIGNED_INT
	}
	return UNSIGNED_SHORT
}

func wrapMode(w graphics.Wrap) int32 {
	switch w {
	case graphics.WrapMirrorRepeat:
		return MIRRORED_REPEAT
	case graphics.WrapClampToEdge:
		return CLAMP_TO_EDGE
	case graphics.WrapClampToBorder:
		return CLAMP_TO_BORDER
	}
	return REPEAT
}

func filterMode(f graphics.Filter) int32 {
	switch f {
	case graphics.FilterNearest:
		return NEAREST
	case graphics.FilterNearestMipmapNearest:
		return NEAREST_MIPMAP_NEAREST
	case graphics.FilterLinearMipmapNearest:
		return LINEAR_MIPMAP_NEAREST
	case graphics.FilterNearestMipmapLinear:
		return NEAREST_MIPMAP_LINEAR
	case graphics.FilterLinearMipmapLinear:
		return LINEAR_MIPMAP_LINEAR
	}
	return LINEAR
}

func textureTarget(d graphics.TextureDim) Enum {
	switch d {
	case graphics.TextureDim2DArray:
		return TEXTURE_2D_ARRAY
	case graphics.TextureDim3D:
		return TEXTURE_3D
	case graphics.TextureDimCube:
		return TEXTURE_CUBE_MAP
	case graphics.TextureDimCubeArray:
		return TEXTURE_CUBE_MAP_ARRAY
	}
	return TEXTURE_2D
}

func shaderType(s graphics.ShaderStage) Enum {
	switch s {
	case graphics.ShaderStageFragment:
		return FRAGMENT_SHADER
	case graphics.ShaderStageGeometry:
		return GEOMETRY_SHADER
	case graphics.ShaderStageTessControl:
		return TESS_CONTROL_SHADER
	case graphics.ShaderStageTessEvaluation:
		return TESS_EVALUATION_SHADER
	case graphics.ShaderStageCompute:
		return COMPUTE_SHADER
	}
	return VERTEX_SHADER
}

func clearMask(flags graphics.ClearFlags) Enum {
	var mask Enum
	if flags&graphics.ClearColor != 0 {
		mask |= COLOR_BUFFER_BIT
	}
	if flags&graphics.ClearDepth != 0 {
		mask |= DEPTH_BUFFER_BIT
	}
	if flags&graphics.ClearStencil != 0 {
		mask |= STENCIL_BUFFER_BIT
	}
	return mask
}

func depthAttachment(f graphics.Format) Enum {
	switch {
	case f.IsDepth() && f.IsStencil():
		return DEPTH_STENCIL_ATTACHMENT
	case f.IsStencil():
		return STENCIL_ATTACHMENT
	}
	return DEPTH_ATTACHMENT
}

// uniformType maps an active uniform type to the parameter kind it accepts.
func uniformType(ty Enum) (graphics.UniformType, bool) {
	switch ty {
	case FLOAT:
		return graphics.UniformFloat, true
	case INT:
		return graphics.UniformInt, true
	case FLOAT_VEC2:
		return graphics.UniformVec2, true
	case FLOAT_VEC3:
		return graphics.UniformVec3, true
	case FLOAT_VEC4:
		return graphics.UniformVec4, true
	case FLOAT_MAT4:
		return graphics.UniformMat4, true
	case SAMPLER_2D, SAMPLER_3D, SAMPLER_CUBE, SAMPLER_2D_SHADOW, SAMPLER_2D_ARRAY, SAMPLER_CUBE_MAP_ARRAY:
		return graphics.UniformTexture, true
	}
	return 0, false
}
