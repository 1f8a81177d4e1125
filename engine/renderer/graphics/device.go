package graphics

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// Surface is the window a swapchain presents into.
type Surface interface {
	FramebufferSize() (width, height int)
}

// GLSurface is a Surface owning an OpenGL or OpenGL ES context.
type GLSurface interface {
	Surface
	MakeContextCurrent()
	SwapBuffers()
	SwapInterval(interval int)
	GetProcAddress(name string) unsafe.Pointer
}

// VulkanSurface is a Surface that can create a VkSurfaceKHR.
type VulkanSurface interface {
	Surface
	RequiredInstanceExtensions() []string
	InstanceProcAddr() unsafe.Pointer
	CreateWindowSurface(instance interface{}) (uintptr, error)
}

// Resource is a shared reference to a device object. The native object is
// destroyed when the last reference is released.
type Resource interface {
	Retain()
	Release()
	Refs() int32
}

type Texture interface {
	Resource
	Desc() TextureDesc
}

type Data interface {
	Resource
	Desc() DataDesc
	// Update copies p into the buffer starting at offset.
	Update(offset uint32, p []byte) error
}

type Sampler interface {
	Resource
	Desc() SamplerDesc
}

type InputLayout interface {
	Resource
	Desc() InputLayoutDesc
}

type State interface {
	Resource
	Desc() StateDesc
}

type Shader interface {
	Resource
	Desc() ShaderDesc
}

type Program interface {
	Resource
	Desc() ProgramDesc
}

type Pipeline interface {
	Resource
	Desc() PipelineDesc
}

type DescriptorPool interface {
	Resource
	Desc() DescriptorPoolDesc
}

type DescriptorSetLayout interface {
	Resource
	Desc() DescriptorSetLayoutDesc
}

// DescriptorSet binds values to named shader parameters. Setting a name the
// layout does not declare returns an error wrapping ErrUnknownParam.
type DescriptorSet interface {
	Resource
	Desc() DescriptorSetDesc
	Has(name string) bool
	SetFloat(name string, v float32) error
	SetInt(name string, v int32) error
	SetVec2(name string, v mgl32.Vec2) error
	SetVec3(name string, v mgl32.Vec3) error
	SetVec4(name string, v mgl32.Vec4) error
	SetMat4(name string, v mgl32.Mat4) error
	SetTexture(name string, texture Texture, sampler Sampler) error
	SetBuffer(name string, data Data) error
}

type FramebufferLayout interface {
	Resource
	Desc() FramebufferLayoutDesc
}

type Framebuffer interface {
	Resource
	Desc() FramebufferDesc
}

type Swapchain interface {
	Resource
	Desc() SwapchainDesc
	// Framebuffer is the target for the image being recorded this frame.
	Framebuffer() Framebuffer
	Resize(width, height uint32) error
}

// Stats counts the work a context did since the last RenderBegin.
type Stats struct {
	DrawCalls    uint32
	StateChanges uint32
	// SkippedStateChanges counts native calls avoided by state diffing.
	SkippedStateChanges uint32
}

/**
 * @brief Records work for one swapchain. A context is Unbound until RenderBegin
 * and Recording until RenderEnd; setters, draws and framebuffer operations
 * require Recording. Getters and Present may be called at any time.
 * Precondition failures panic on debug devices, otherwise they are logged,
 * remembered in Err and the call is ignored.
 */
type Context interface {
	Resource

	RenderBegin()
	RenderEnd()
	IsRecording() bool

	SetViewport(v Viewport)
	Viewport() Viewport
	SetScissor(s Scissor)
	Scissor() Scissor

	SetStencilCompareMask(face StencilFaceFlags, mask uint32)
	StencilCompareMask(face StencilFaceFlags) uint32
	SetStencilReference(face StencilFaceFlags, reference uint32)
	StencilReference(face StencilFaceFlags) uint32
	SetStencilWriteMask(face StencilFaceFlags, mask uint32)
	StencilWriteMask(face StencilFaceFlags) uint32

	SetPipeline(p Pipeline)
	Pipeline() Pipeline
	SetDescriptorSet(set DescriptorSet)
	DescriptorSet() DescriptorSet

	SetVertexBufferData(slot uint8, data Data, offset uint32)
	VertexBufferData(slot uint8) Data
	SetIndexBufferData(data Data, offset uint32, indexType IndexType)
	IndexBufferData() Data

	DrawRenderMesh(draw Indirect)
	DrawRenderMeshes(draws []Indirect)

	// SetFramebuffer replaces the whole target and resets viewport and
	// scissor to its size. Nil selects the swapchain target.
	SetFramebuffer(fb Framebuffer)
	Framebuffer() Framebuffer
	// ClearFramebuffer clears the bound target, viewport and scissor persist.
	ClearFramebuffer(flags ClearFlags, color mgl32.Vec4, depth float32, stencil uint32)
	ClearFramebufferIndexed(attachment uint32, flags ClearFlags, color mgl32.Vec4, depth float32, stencil uint32)
	DiscardFramebuffer(flags ClearFlags)
	// BlitFramebuffer copies between targets without touching bound state.
	BlitFramebuffer(src Framebuffer, srcRect Rect, dst Framebuffer, dstRect Rect)
	ReadFramebuffer(src Framebuffer, format Format, width, height uint32, out []byte) error

	Present()

	// CapturedState is the fixed function state last applied natively.
	CapturedState() StateDesc
	Stats() Stats
	Err() error
}

/**
 * @brief Resource factory for one native API. Setup queries the capability
 * tables once; every Create call validates against them and returns nil and
 * an error instead of creating an unsupported object.
 */
type Device interface {
	Setup(desc DeviceDesc) error
	Close()

	Type() DeviceType
	Desc() DeviceDesc
	Caps() Caps

	CreateSwapchain(desc SwapchainDesc) (Swapchain, error)
	CreateContext(desc ContextDesc) (Context, error)
	CreateInputLayout(desc InputLayoutDesc) (InputLayout, error)
	CreateData(desc DataDesc) (Data, error)
	CreateTexture(desc TextureDesc) (Texture, error)
	CreateSampler(desc SamplerDesc) (Sampler, error)
	CreateFramebufferLayout(desc FramebufferLayoutDesc) (FramebufferLayout, error)
	CreateFramebuffer(desc FramebufferDesc) (Framebuffer, error)
	CreateState(desc StateDesc) (State, error)
	CreateShader(desc ShaderDesc) (Shader, error)
	CreateProgram(desc ProgramDesc) (Program, error)
	CreatePipeline(desc PipelineDesc) (Pipeline, error)
	CreateDescriptorPool(desc DescriptorPoolDesc) (DescriptorPool, error)
	CreateDescriptorSetLayout(desc DescriptorSetLayoutDesc) (DescriptorSetLayout, error)
	CreateDescriptorSet(desc DescriptorSetDesc) (DescriptorSet, error)
}
