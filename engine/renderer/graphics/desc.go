package graphics

import (
	"fmt"
	"unsafe"
)

/** @brief Creation parameters of a Device. */
type DeviceDesc struct {
	/** @brief The native API to run on. */
	Type DeviceType
	/** @brief Debug devices panic on context precondition failures and check native errors after every call. */
	Debug bool
	/** @brief The window the device presents to. */
	Surface Surface
}

/** @brief Creation parameters of a Context. */
type ContextDesc struct {
	Swapchain Swapchain
}

/** @brief Creation parameters of a Swapchain. */
type SwapchainDesc struct {
	Surface            Surface
	Width              uint32
	Height             uint32
	VSync              bool
	ColorFormat        Format
	DepthStencilFormat Format
	/** @brief Number of frames that may be in flight at once. */
	ImageCount uint32
}

/** @brief Shape, format and sampling of a texture. Immutable once set up. */
type TextureDesc struct {
	Name      string
	Width     uint32
	Height    uint32
	Depth     uint32
	MipBase   uint32
	MipNums   uint32
	LayerBase uint32
	LayerNums uint32
	Format    Format
	Dim       TextureDim
	Usage     TextureUsage

	Wrap       Wrap
	MinFilter  Filter
	MagFilter  Filter
	Anisotropy Anisotropy

	/** @brief Optional pixel data, mip levels packed one after another. */
	Stream []byte
}

func (d TextureDesc) Validate() error {
	if d.Format == FormatUndefined {
		return invalid("texture format is undefined")
	}
	if d.Width == 0 || d.Height == 0 {
		return invalid("texture size is zero")
	}
	if d.MipNums == 0 {
		return invalid("texture has no mip levels")
	}
	if d.Dim == TextureDim3D && d.Depth == 0 {
		return invalid("3d texture depth is zero")
	}
	if (d.Dim == TextureDim2DArray || d.Dim == TextureDimCubeArray) && d.LayerNums == 0 {
		return invalid("array texture has no layers")
	}
	if d.Dim == TextureDimCube && d.Width != d.Height {
		return invalid("cube texture faces are not square")
	}
	if !d.Anisotropy.IsValid() {
		return invalid(fmt.Sprintf("anisotropy %d", d.Anisotropy))
	}
	return nil
}

// Layers returns how many 2D images one mip level holds.
func (d TextureDesc) Layers() uint32 {
	layers := max(d.LayerNums, 1)
	switch d.Dim {
	case TextureDimCube:
		return 6
	case TextureDimCubeArray:
		return layers * 6
	case TextureDim3D:
		return max(d.Depth, 1)
	}
	return layers
}

// MipSize returns the byte size of one level including all its layers.
func (d TextureDesc) MipSize(level uint32) uint32 {
	w := max(d.Width>>level, 1)
	h := max(d.Height>>level, 1)
	if d.Dim == TextureDim3D {
		return d.Format.ImageSize(w, h, max(d.Depth>>level, 1))
	}
	return d.Format.ImageSize(w, h, 1) * d.Layers()
}

/** @brief Buffer creation contract. */
type DataDesc struct {
	Type   DataType
	Usage  UsageFlags
	Size   uint32
	Stream []byte
}

func (d DataDesc) Validate() error {
	if d.Size == 0 {
		return invalid("buffer size is zero")
	}
	if uint32(len(d.Stream)) > d.Size {
		return invalid("buffer stream larger than size")
	}
	if d.Usage&UsageImmutable != 0 && d.Usage&(UsageMapWrite|UsageDynamic) != 0 {
		return invalid("immutable buffer cannot be written")
	}
	return nil
}

type SamplerDesc struct {
	Wrap       Wrap
	MinFilter  Filter
	MagFilter  Filter
	Anisotropy Anisotropy
}

func (d SamplerDesc) Validate() error {
	if !d.Anisotropy.IsValid() {
		return invalid(fmt.Sprintf("anisotropy %d", d.Anisotropy))
	}
	if d.MagFilter > FilterLinear {
		return invalid("magnification filter cannot use mipmaps")
	}
	return nil
}

/** @brief One attribute of a vertex stream. */
type VertexComponent struct {
	/** @brief Attribute name, lower case ascii letters only. */
	Semantic string
	/** @brief Index appended to the semantic when more than one attribute shares it. */
	SemanticIndex uint8
	Format        Format
	/** @brief Vertex buffer binding the attribute is read from. */
	Slot uint8
	/** @brief Zero for per vertex data, otherwise the instance step rate. */
	Divisor uint8
}

// AttributeName is the shader attribute the component binds to.
func (vc VertexComponent) AttributeName() string {
	if vc.SemanticIndex == 0 {
		return vc.Semantic
	}
	return fmt.Sprintf("%s%d", vc.Semantic, vc.SemanticIndex)
}

// IsValidSemantic reports whether s is a non empty run of a-z.
func IsValidSemantic(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}

type InputLayoutDesc struct {
	Components []VertexComponent
	IndexType  IndexType
}

func (d InputLayoutDesc) Validate() error {
	if len(d.Components) == 0 {
		return invalid("input layout has no components")
	}
	seen := make(map[string]struct{}, len(d.Components))
	for _, vc := range d.Components {
		if !IsValidSemantic(vc.Semantic) {
			return fmt.Errorf("%w: %q", ErrInvalidSemantic, vc.Semantic)
		}
		name := vc.AttributeName()
		if _, ok := seen[name]; ok {
			return invalid("duplicate vertex component " + name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Offset returns the byte offset of component i inside its slot.
func (d InputLayoutDesc) Offset(i int) uint32 {
	offset := uint32(0)
	slot := d.Components[i].Slot
	for j := 0; j < i; j++ {
		if d.Components[j].Slot == slot {
			offset += d.Components[j].Format.Info().Size
		}
	}
	return offset
}

// Stride returns the byte size of one vertex in the given slot.
func (d InputLayoutDesc) Stride(slot uint8) uint32 {
	stride := uint32(0)
	for _, vc := range d.Components {
		if vc.Slot == slot {
			stride += vc.Format.Info().Size
		}
	}
	return stride
}

// Slots returns the distinct vertex buffer slots in first use order.
func (d InputLayoutDesc) Slots() []uint8 {
	var slots []uint8
	for _, vc := range d.Components {
		found := false
		for _, s := range slots {
			if s == vc.Slot {
				found = true
				break
			}
		}
		if !found {
			slots = append(slots, vc.Slot)
		}
	}
	return slots
}

type BlendDesc struct {
	Enable    bool
	SrcColor  BlendFactor
	DstColor  BlendFactor
	ColorOp   BlendOp
	SrcAlpha  BlendFactor
	DstAlpha  BlendFactor
	AlphaOp   BlendOp
	WriteMask ColorMask
}

type StencilFaceDesc struct {
	Func      CompareFunc
	Fail      StencilOp
	DepthFail StencilOp
	Pass      StencilOp
	Ref       uint32
	ReadMask  uint32
	WriteMask uint32
}

/**
 * @brief Fixed function state of a pipeline. The struct is comparable and two
 * equal values produce identical native state.
 */
type StateDesc struct {
	Blend BlendDesc

	Cull      CullMode
	FrontFace FrontFace
	Polygon   PolygonMode
	Topology  PrimitiveTopology

	ScissorTest bool

	DepthTest       bool
	DepthWrite      bool
	DepthFunc       CompareFunc
	DepthBiasEnable bool
	DepthBias       float32
	DepthSlopeScale float32
	DepthClamp      bool

	StencilTest  bool
	StencilFront StencilFaceDesc
	StencilBack  StencilFaceDesc
}

// DefaultStateDesc is opaque geometry: back face culling and depth testing
// with less-than, no blending, no stencil.
func DefaultStateDesc() StateDesc {
	stencil := StencilFaceDesc{
		Func:      CompareAlways,
		Fail:      StencilOpKeep,
		DepthFail: StencilOpKeep,
		Pass:      StencilOpKeep,
		ReadMask:  0xFFFFFFFF,
		WriteMask: 0xFFFFFFFF,
	}
	return StateDesc{
		Blend: BlendDesc{
			SrcColor:  BlendOne,
			DstColor:  BlendZero,
			ColorOp:   BlendOpAdd,
			SrcAlpha:  BlendOne,
			DstAlpha:  BlendZero,
			AlphaOp:   BlendOpAdd,
			WriteMask: ColorMaskRGBA,
		},
		Cull:         CullModeBack,
		FrontFace:    FrontFaceCCW,
		Polygon:      PolygonModeFill,
		Topology:     TopologyTriangleList,
		DepthTest:    true,
		DepthWrite:   true,
		DepthFunc:    CompareLess,
		StencilFront: stencil,
		StencilBack:  stencil,
	}
}

// AlphaBlendStateDesc is DefaultStateDesc with straight alpha blending and no depth writes.
func AlphaBlendStateDesc() StateDesc {
	s := DefaultStateDesc()
	s.Blend.Enable = true
	s.Blend.SrcColor = BlendSrcAlpha
	s.Blend.DstColor = BlendOneMinusSrcAlpha
	s.Blend.SrcAlpha = BlendOne
	s.Blend.DstAlpha = BlendOneMinusSrcAlpha
	s.DepthWrite = false
	return s
}

type ShaderDesc struct {
	Name  string
	Stage ShaderStage
	/** @brief Entry point, "main" when empty. */
	Entry string
	/** @brief GLSL source for OpenGL devices, SPIR-V for Vulkan. */
	Bytecode []byte
}

func (d ShaderDesc) Validate() error {
	if len(d.Bytecode) == 0 {
		return invalid("shader " + d.Name + " has no code")
	}
	return nil
}

func (d ShaderDesc) EntryPoint() string {
	if d.Entry == "" {
		return "main"
	}
	return d.Entry
}

type ProgramDesc struct {
	Name    string
	Shaders []Shader
}

func (d ProgramDesc) Validate() error {
	if len(d.Shaders) == 0 {
		return invalid("program has no shaders")
	}
	var stages ShaderStageFlags
	for _, s := range d.Shaders {
		if s == nil {
			return invalid("program has a nil shader")
		}
		flag := StageFlag(s.Desc().Stage)
		if stages&flag != 0 {
			return invalid("program has two " + s.Desc().Stage.String() + " shaders")
		}
		stages |= flag
	}
	if stages&StageFlag(ShaderStageCompute) != 0 && stages != StageFlag(ShaderStageCompute) {
		return invalid("compute shader mixed with graphics stages")
	}
	if stages&StageFlag(ShaderStageCompute) == 0 && stages&ShaderStageFlagsGraphics != ShaderStageFlagsGraphics {
		return invalid("graphics program needs vertex and fragment shaders")
	}
	return nil
}

/** @brief A named slot of a descriptor set. */
type UniformDesc struct {
	Name    string
	Type    UniformType
	Binding uint32
	/** @brief Array length, 0 and 1 both mean a single value. */
	Count  uint32
	Stages ShaderStageFlags
}

type DescriptorSetLayoutDesc struct {
	Uniforms []UniformDesc
}

func (d DescriptorSetLayoutDesc) Validate() error {
	names := make(map[string]struct{}, len(d.Uniforms))
	for _, u := range d.Uniforms {
		if u.Name == "" {
			return invalid("uniform without name")
		}
		if _, ok := names[u.Name]; ok {
			return invalid("duplicate uniform " + u.Name)
		}
		names[u.Name] = struct{}{}
	}
	return nil
}

type DescriptorPoolDesc struct {
	MaxSets uint32
	/** @brief Number of descriptors of each type the pool can hand out. */
	Sizes map[UniformType]uint32
}

type DescriptorSetDesc struct {
	Layout DescriptorSetLayout
	Pool   DescriptorPool
}

type AttachmentLayout struct {
	Type    AttachmentType
	Slot    uint8
	Format  Format
	LoadOp  AttachmentLoadOp
	StoreOp AttachmentStoreOp
}

type FramebufferLayoutDesc struct {
	Attachments []AttachmentLayout
}

func (d FramebufferLayoutDesc) Validate() error {
	if len(d.Attachments) == 0 {
		return invalid("framebuffer layout has no attachments")
	}
	depth := 0
	for _, a := range d.Attachments {
		switch a.Type {
		case AttachmentDepthStencil:
			depth++
			if !a.Format.IsDepthStencil() {
				return invalid("depth attachment with color format " + a.Format.String())
			}
		case AttachmentColor:
			if a.Format.IsDepthStencil() {
				return invalid("color attachment with depth format " + a.Format.String())
			}
		}
	}
	if depth > 1 {
		return invalid("more than one depth attachment")
	}
	return nil
}

// ColorCount returns the number of color attachments.
func (d FramebufferLayoutDesc) ColorCount() int {
	n := 0
	for _, a := range d.Attachments {
		if a.Type == AttachmentColor {
			n++
		}
	}
	return n
}

type Attachment struct {
	Texture Texture
	Level   uint32
	Layer   uint32
}

/**
 * @brief Render target creation contract. The framebuffer retains its color
 * attachments and its depth/stencil attachment unless SharedDepthStencil is
 * set, in which case the depth texture is borrowed from another owner.
 */
type FramebufferDesc struct {
	Name               string
	Layout             FramebufferLayout
	Width              uint32
	Height             uint32
	Layers             uint32
	ColorAttachments   []Attachment
	DepthStencil       Attachment
	SharedDepthStencil bool
}

func (d FramebufferDesc) Validate() error {
	if d.Layout == nil {
		return invalid("framebuffer without layout")
	}
	if d.Width == 0 || d.Height == 0 {
		return invalid("framebuffer size is zero")
	}
	if len(d.ColorAttachments) != d.Layout.Desc().ColorCount() {
		return invalid("framebuffer attachments do not match layout")
	}
	for _, a := range d.ColorAttachments {
		if a.Texture == nil {
			return invalid("nil color attachment")
		}
	}
	if d.SharedDepthStencil && d.DepthStencil.Texture == nil {
		return invalid("shared depth stencil without texture")
	}
	return nil
}

type PipelineDesc struct {
	Name                string
	Program             Program
	InputLayout         InputLayout
	State               State
	DescriptorSetLayout DescriptorSetLayout
	FramebufferLayout   FramebufferLayout
}

func (d PipelineDesc) Validate() error {
	if d.Program == nil {
		return invalid("pipeline without program")
	}
	if d.State == nil {
		return invalid("pipeline without state")
	}
	if d.FramebufferLayout == nil {
		return invalid("pipeline without framebuffer layout")
	}
	return nil
}

type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// FullViewport covers a width x height target with depth range 0..1.
func FullViewport(width, height uint32) Viewport {
	return Viewport{Width: float32(width), Height: float32(height), MaxDepth: 1}
}

type Rect struct {
	X, Y          int32
	Width, Height uint32
}

type Scissor = Rect

// Indirect describes one draw call. An indexed draw has IndexCount > 0.
type Indirect struct {
	VertexCount   uint32
	IndexCount    uint32
	InstanceCount uint32
	FirstVertex   uint32
	FirstIndex    uint32
	FirstInstance uint32
	VertexOffset  int32
}

func (i Indirect) Instances() uint32 {
	return max(i.InstanceCount, 1)
}

// Bytes reinterprets a slice of plain values as raw bytes for upload.
func Bytes[T any](values []T) []byte {
	if len(values) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&values[0])), len(values)*int(unsafe.Sizeof(zero)))
}
