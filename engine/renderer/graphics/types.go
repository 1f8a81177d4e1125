package graphics

import (
	"fmt"
	"strings"
)

// DeviceType selects the native API a Device is built on.
type DeviceType uint8

const (
	DeviceTypeNone DeviceType = iota
	DeviceTypeOpenGLES2
	DeviceTypeOpenGLES3
	DeviceTypeOpenGLCore
	DeviceTypeVulkan
)

var deviceTypeNames = map[DeviceType]string{
	DeviceTypeNone:       "none",
	DeviceTypeOpenGLES2:  "opengl-es2",
	DeviceTypeOpenGLES3:  "opengl-es3",
	DeviceTypeOpenGLCore: "opengl-core",
	DeviceTypeVulkan:     "vulkan",
}

func (t DeviceType) String() string {
	if name, ok := deviceTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DeviceType(%d)", uint8(t))
}

// IsOpenGL reports whether the device type is one of the GL variants.
func (t DeviceType) IsOpenGL() bool {
	return t == DeviceTypeOpenGLES2 || t == DeviceTypeOpenGLES3 || t == DeviceTypeOpenGLCore
}

func (t DeviceType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *DeviceType) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for k, v := range deviceTypeNames {
		if v == s {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("%w: unknown device type %q", ErrUnsupportedDevice, s)
}

type TextureDim uint8

const (
	TextureDim2D TextureDim = iota
	TextureDim2DArray
	TextureDim3D
	TextureDimCube
	TextureDimCubeArray
	textureDimCount
)

func (d TextureDim) String() string {
	switch d {
	case TextureDim2D:
		return "2d"
	case TextureDim2DArray:
		return "2d-array"
	case TextureDim3D:
		return "3d"
	case TextureDimCube:
		return "cube"
	case TextureDimCubeArray:
		return "cube-array"
	}
	return fmt.Sprintf("TextureDim(%d)", uint8(d))
}

type ShaderStage uint8

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageFragment
	ShaderStageGeometry
	ShaderStageTessControl
	ShaderStageTessEvaluation
	ShaderStageCompute
	shaderStageCount
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageFragment:
		return "fragment"
	case ShaderStageGeometry:
		return "geometry"
	case ShaderStageTessControl:
		return "tess-control"
	case ShaderStageTessEvaluation:
		return "tess-evaluation"
	case ShaderStageCompute:
		return "compute"
	}
	return fmt.Sprintf("ShaderStage(%d)", uint8(s))
}

// ShaderStageFlags is a set of stages a descriptor is visible to.
type ShaderStageFlags uint8

func StageFlag(s ShaderStage) ShaderStageFlags { return 1 << s }

const (
	ShaderStageFlagsGraphics = ShaderStageFlags(1<<ShaderStageVertex | 1<<ShaderStageFragment)
	ShaderStageFlagsAll      = ShaderStageFlags(1<<shaderStageCount - 1)
)

type DataType uint8

const (
	DataTypeVertex DataType = iota
	DataTypeIndex
	DataTypeUniform
	DataTypeStorage
)

type UsageFlags uint8

const (
	UsageMapRead UsageFlags = 1 << iota
	UsageMapWrite
	UsageDynamic
	UsageImmutable
)

type IndexType uint8

const (
	IndexTypeNone IndexType = iota
	IndexTypeUInt16
	IndexTypeUInt32
)

// Size returns the byte size of one index.
func (t IndexType) Size() uint32 {
	switch t {
	case IndexTypeUInt16:
		return 2
	case IndexTypeUInt32:
		return 4
	}
	return 0
}

type TextureUsage uint8

const (
	TextureUsageSampled TextureUsage = 1 << iota
	TextureUsageColorAttachment
	TextureUsageDepthStencilAttachment
	TextureUsageStorage
)

type Filter uint8

const (
	FilterNearest Filter = iota
	FilterLinear
	FilterNearestMipmapNearest
	FilterLinearMipmapNearest
	FilterNearestMipmapLinear
	FilterLinearMipmapLinear
)

// UsesMipmaps reports whether a minification filter samples the mip chain.
func (f Filter) UsesMipmaps() bool {
	return f >= FilterNearestMipmapNearest
}

type Wrap uint8

const (
	WrapRepeat Wrap = iota
	WrapMirrorRepeat
	WrapClampToEdge
	WrapClampToBorder
)

// Anisotropy is the maximum sampler anisotropy; only 0, 1, 2, 4, 8 and 16
// are valid.
type Anisotropy uint8

const (
	Anisotropy0  Anisotropy = 0
	Anisotropy1  Anisotropy = 1
	Anisotropy2  Anisotropy = 2
	Anisotropy4  Anisotropy = 4
	Anisotropy8  Anisotropy = 8
	Anisotropy16 Anisotropy = 16
)

func (a Anisotropy) IsValid() bool {
	switch a {
	case Anisotropy0, Anisotropy1, Anisotropy2, Anisotropy4, Anisotropy8, Anisotropy16:
		return true
	}
	return false
}

type CompareFunc uint8

const (
	CompareNever CompareFunc = iota
	CompareLess
	CompareEqual
	CompareLessEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterEqual
	CompareAlways
)

type BlendFactor uint8

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcColor
	BlendOneMinusSrcColor
	BlendDstColor
	BlendOneMinusDstColor
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstAlpha
	BlendOneMinusDstAlpha
	BlendSrcAlphaSaturate
)

type BlendOp uint8

const (
	BlendOpAdd BlendOp = iota
	BlendOpSubtract
	BlendOpReverseSubtract
)

type ColorMask uint8

const (
	ColorMaskR ColorMask = 1 << iota
	ColorMaskG
	ColorMaskB
	ColorMaskA
	ColorMaskRGBA = ColorMaskR | ColorMaskG | ColorMaskB | ColorMaskA
)

type CullMode uint8

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
	CullModeFrontBack
)

type FrontFace uint8

const (
	FrontFaceCCW FrontFace = iota
	FrontFaceCW
)

type PolygonMode uint8

const (
	PolygonModeFill PolygonMode = iota
	PolygonModeLine
	PolygonModePoint
)

type PrimitiveTopology uint8

const (
	TopologyTriangleList PrimitiveTopology = iota
	TopologyTriangleStrip
	TopologyTriangleFan
	TopologyLineList
	TopologyLineStrip
	TopologyPointList
)

type StencilOp uint8

const (
	StencilOpKeep StencilOp = iota
	StencilOpZero
	StencilOpReplace
	StencilOpIncrClamp
	StencilOpDecrClamp
	StencilOpInvert
	StencilOpIncrWrap
	StencilOpDecrWrap
)

type StencilFaceFlags uint8

const (
	StencilFaceFront StencilFaceFlags = 1 << iota
	StencilFaceBack
	StencilFaceAll = StencilFaceFront | StencilFaceBack
)

type ClearFlags uint8

const (
	ClearColor ClearFlags = 1 << iota
	ClearDepth
	ClearStencil
	ClearDepthStencil = ClearDepth | ClearStencil
	ClearAll          = ClearColor | ClearDepthStencil
)

type AttachmentType uint8

const (
	AttachmentColor AttachmentType = iota
	AttachmentDepthStencil
)

type AttachmentLoadOp uint8

const (
	LoadOpLoad AttachmentLoadOp = iota
	LoadOpClear
	LoadOpDontCare
)

type AttachmentStoreOp uint8

const (
	StoreOpStore AttachmentStoreOp = iota
	StoreOpDontCare
)

// UniformType is the kind of value bound to a named descriptor slot.
type UniformType uint8

const (
	UniformFloat UniformType = iota
	UniformInt
	UniformVec2
	UniformVec3
	UniformVec4
	UniformMat4
	UniformTexture
	UniformBuffer
)

// Feature is an optional backend capability.
type Feature uint8

const (
	FeatureVertexArray Feature = iota
	FeatureBlit
	FeatureInstancing
	FeatureMultipleRenderTargets
	FeatureTexture3D
	FeaturePolygonMode
	FeatureClearBuffer
	FeatureAnisotropy
	FeatureCompute
	FeatureIndirectDraw
	FeatureDepthClamp
	FeatureUInt32Index
	FeatureReadFramebuffer
	FeatureUniformBuffer
	FeatureSamplerObject
	featureCount
)

func (f Feature) String() string {
	switch f {
	case FeatureVertexArray:
		return "vertex-array"
	case FeatureBlit:
		return "blit"
	case FeatureInstancing:
		return "instancing"
	case FeatureMultipleRenderTargets:
		return "mrt"
	case FeatureTexture3D:
		return "texture-3d"
	case FeaturePolygonMode:
		return "polygon-mode"
	case FeatureClearBuffer:
		return "clear-buffer"
	case FeatureAnisotropy:
		return "anisotropy"
	case FeatureCompute:
		return "compute"
	case FeatureIndirectDraw:
		return "indirect-draw"
	case FeatureDepthClamp:
		return "depth-clamp"
	case FeatureUInt32Index:
		return "uint32-index"
	case FeatureReadFramebuffer:
		return "read-framebuffer"
	case FeatureUniformBuffer:
		return "uniform-buffer"
	case FeatureSamplerObject:
		return "sampler-object"
	}
	return fmt.Sprintf("Feature(%d)", uint8(f))
}
