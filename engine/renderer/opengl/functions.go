package opengl

// Enum is a GLenum or GLbitfield value.
type Enum uint32

// Object names. Zero is the default object (or none).
type (
	Buffer      uint32
	Texture     uint32
	Sampler     uint32
	Framebuffer uint32
	Shader      uint32
	Program     uint32
	VertexArray uint32
)

// Attrib is a vertex attribute location, -1 when the program does not use it.
type Attrib int32

// Uniform is a uniform location, -1 when the program does not use it.
type Uniform int32

func (a Attrib) Valid() bool  { return a >= 0 }
func (u Uniform) Valid() bool { return u >= 0 }

// Functions is the subset of OpenGL and OpenGL ES entry points the backends
// use. glnative implements it on top of the cgo bindings; gltest records the
// calls for tests. Entry points missing from a profile are never called when
// the profile lacks the matching feature.
type Functions interface {
	GetError() Enum
	GetString(name Enum) string
	GetStringi(name Enum, index uint32) string
	GetInteger(pname Enum) int32
	GetFloat(pname Enum) float32
	Flush()

	Enable(cap Enum)
	Disable(cap Enum)
	Viewport(x, y, width, height int32)
	DepthRangef(near, far float32)
	Scissor(x, y, width, height int32)
	BlendFuncSeparate(srcRGB, dstRGB, srcA, dstA Enum)
	BlendEquationSeparate(modeRGB, modeA Enum)
	ColorMask(r, g, b, a bool)
	DepthMask(flag bool)
	DepthFunc(fn Enum)
	CullFace(mode Enum)
	FrontFace(mode Enum)
	PolygonMode(face, mode Enum)
	PolygonOffset(factor, units float32)
	StencilFuncSeparate(face, fn Enum, ref int32, mask uint32)
	StencilOpSeparate(face, sfail, dpfail, dppass Enum)
	StencilMaskSeparate(face Enum, mask uint32)

	ClearColor(r, g, b, a float32)
	ClearDepthf(d float32)
	ClearStencil(s int32)
	Clear(mask Enum)
	ClearBufferfv(buffer Enum, drawbuffer int32, value []float32)
	ClearBufferfi(buffer Enum, drawbuffer int32, depth float32, stencil int32)

	CreateBuffer() Buffer
	DeleteBuffer(b Buffer)
	BindBuffer(target Enum, b Buffer)
	BindBufferBase(target Enum, index uint32, b Buffer)
	BufferData(target Enum, size int, data []byte, usage Enum)
	BufferSubData(target Enum, offset int, data []byte)

	CreateTexture() Texture
	DeleteTexture(t Texture)
	ActiveTexture(unit Enum)
	BindTexture(target Enum, t Texture)
	TexParameteri(target, pname Enum, param int32)
	TexParameterf(target, pname Enum, param float32)
	TexImage2D(target Enum, level int32, internalFormat Enum, width, height int32, format, ty Enum, data []byte)
	TexImage3D(target Enum, level int32, internalFormat Enum, width, height, depth int32, format, ty Enum, data []byte)
	CompressedTexImage2D(target Enum, level int32, internalFormat Enum, width, height int32, data []byte)
	CompressedTexImage3D(target Enum, level int32, internalFormat Enum, width, height, depth int32, data []byte)
	GenerateMipmap(target Enum)

	CreateSampler() Sampler
	DeleteSampler(s Sampler)
	BindSampler(unit uint32, s Sampler)
	SamplerParameteri(s Sampler, pname Enum, param int32)
	SamplerParameterf(s Sampler, pname Enum, param float32)

	CreateFramebuffer() Framebuffer
	DeleteFramebuffer(fb Framebuffer)
	BindFramebuffer(target Enum, fb Framebuffer)
	FramebufferTexture2D(target, attachment, texTarget Enum, t Texture, level int32)
	FramebufferTextureLayer(target, attachment Enum, t Texture, level, layer int32)
	CheckFramebufferStatus(target Enum) Enum
	DrawBuffers(bufs []Enum)
	ReadBuffer(src Enum)
	BlitFramebuffer(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1 int32, mask, filter Enum)
	InvalidateFramebuffer(target Enum, attachments []Enum)
	ReadPixels(x, y, width, height int32, format, ty Enum, data []byte)

	CreateShader(ty Enum) Shader
	DeleteShader(s Shader)
	ShaderSource(s Shader, src string)
	CompileShader(s Shader)
	GetShaderi(s Shader, pname Enum) int32
	GetShaderInfoLog(s Shader) string
	CreateProgram() Program
	DeleteProgram(p Program)
	AttachShader(p Program, s Shader)
	LinkProgram(p Program)
	GetProgrami(p Program, pname Enum) int32
	GetProgramInfoLog(p Program) string
	UseProgram(p Program)
	GetAttribLocation(p Program, name string) Attrib
	GetUniformLocation(p Program, name string) Uniform
	GetActiveUniform(p Program, index uint32) (name string, size int32, ty Enum)
	GetUniformBlockIndex(p Program, name string) uint32
	UniformBlockBinding(p Program, blockIndex, binding uint32)
	Uniform1i(u Uniform, v int32)
	Uniform1f(u Uniform, v float32)
	Uniform2f(u Uniform, x, y float32)
	Uniform3f(u Uniform, x, y, z float32)
	Uniform4f(u Uniform, x, y, z, w float32)
	UniformMatrix4fv(u Uniform, m []float32)

	CreateVertexArray() VertexArray
	DeleteVertexArray(v VertexArray)
	BindVertexArray(v VertexArray)
	EnableVertexAttribArray(a Attrib)
	DisableVertexAttribArray(a Attrib)
	VertexAttribPointer(a Attrib, size int32, ty Enum, normalized bool, stride int32, offset int)
	VertexAttribDivisor(a Attrib, divisor uint32)

	DrawArrays(mode Enum, first, count int32)
	DrawElements(mode Enum, count int32, ty Enum, offset int)
	DrawArraysInstanced(mode Enum, first, count, instances int32)
	DrawElementsInstanced(mode Enum, count int32, ty Enum, offset int, instances int32)
}
