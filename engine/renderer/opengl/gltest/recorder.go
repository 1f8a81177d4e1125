// Package gltest provides a recording implementation of opengl.Functions
// for tests that run without a GL context.
package gltest

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/opengl"
)

// Call is one recorded entry point invocation.
type Call struct {
	Name string
	Args []interface{}
}

func (c Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = fmt.Sprint(a)
	}
	return c.Name + "(" + strings.Join(args, ", ") + ")"
}

// ActiveUniform describes a uniform the fake linker reports.
type ActiveUniform struct {
	Name string
	Size int32
	Type opengl.Enum
}

/**
 * @brief Records every call and answers queries from its configuration.
 * Object names are allocated sequentially from 1; compile, link and
 * framebuffer completeness succeed unless configured otherwise.
 */
type Recorder struct {
	Calls []Call

	Version    string
	Renderer   string
	Extensions []string
	Integers   map[opengl.Enum]int32
	Floats     map[opengl.Enum]float32

	// Attribs lists the attribute names linked programs expose, located by
	// their index.
	Attribs  []string
	Uniforms []ActiveUniform
	Blocks   []string

	// Errors is drained by GetError, one code per call.
	Errors         []opengl.Enum
	FailCompile    bool
	FailLink       bool
	IncompleteFBOs bool

	next uint32
}

var _ opengl.Functions = (*Recorder)(nil)

// New returns a recorder reporting the given GL_VERSION string.
func New(version string, extensions ...string) *Recorder {
	return &Recorder{
		Version:    version,
		Renderer:   "gltest",
		Extensions: extensions,
		Integers: map[opengl.Enum]int32{
			opengl.MAX_TEXTURE_SIZE:                 4096,
			opengl.MAX_CUBE_MAP_TEXTURE_SIZE:        4096,
			opengl.MAX_3D_TEXTURE_SIZE:              2048,
			opengl.MAX_ARRAY_TEXTURE_LAYERS:         256,
			opengl.MAX_VERTEX_ATTRIBS:               16,
			opengl.MAX_COLOR_ATTACHMENTS:            8,
			opengl.MAX_DRAW_BUFFERS:                 8,
			opengl.MAX_COMBINED_TEXTURE_IMAGE_UNITS: 32,
		},
		Floats: map[opengl.Enum]float32{
			opengl.MAX_TEXTURE_MAX_ANISOTROPY: 16,
		},
	}
}

func (r *Recorder) record(name string, args ...interface{}) {
	r.Calls = append(r.Calls, Call{Name: name, Args: args})
}

func (r *Recorder) alloc() uint32 {
	r.next++
	return r.next
}

// Reset forgets the recorded calls, allocated names stay unique.
func (r *Recorder) Reset() {
	r.Calls = nil
}

// Count returns how many times the entry point was called.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, c := range r.Calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// Names returns the recorded entry point names in order.
func (r *Recorder) Names() []string {
	names := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		names[i] = c.Name
	}
	return names
}

// Find returns the recorded calls of one entry point.
func (r *Recorder) Find(name string) []Call {
	var out []Call
	for _, c := range r.Calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func (r *Recorder) GetError() opengl.Enum {
	if len(r.Errors) == 0 {
		return opengl.NO_ERROR
	}
	code := r.Errors[0]
	r.Errors = r.Errors[1:]
	return code
}

func (r *Recorder) GetString(name opengl.Enum) string {
	switch name {
	case opengl.VERSION:
		return r.Version
	case opengl.RENDERER:
		return r.Renderer
	case opengl.EXTENSIONS:
		return strings.Join(r.Extensions, " ")
	}
	return ""
}

func (r *Recorder) GetStringi(name opengl.Enum, index uint32) string {
	if name == opengl.EXTENSIONS && int(index) < len(r.Extensions) {
		return r.Extensions[index]
	}
	return ""
}

func (r *Recorder) GetInteger(pname opengl.Enum) int32 {
	if pname == opengl.NUM_EXTENSIONS {
		return int32(len(r.Extensions))
	}
	return r.Integers[pname]
}

func (r *Recorder) GetFloat(pname opengl.Enum) float32 {
	return r.Floats[pname]
}

func (r *Recorder) Flush() { r.record("Flush") }

func (r *Recorder) Enable(c opengl.Enum)  { r.record("Enable", c) }
func (r *Recorder) Disable(c opengl.Enum) { r.record("Disable", c) }

func (r *Recorder) Viewport(x, y, width, height int32) {
	r.record("Viewport", x, y, width, height)
}

func (r *Recorder) DepthRangef(near, far float32) { r.record("DepthRangef", near, far) }

func (r *Recorder) Scissor(x, y, width, height int32) {
	r.record("Scissor", x, y, width, height)
}

func (r *Recorder) BlendFuncSeparate(srcRGB, dstRGB, srcA, dstA opengl.Enum) {
	r.record("BlendFuncSeparate", srcRGB, dstRGB, srcA, dstA)
}

func (r *Recorder) BlendEquationSeparate(modeRGB, modeA opengl.Enum) {
	r.record("BlendEquationSeparate", modeRGB, modeA)
}

func (r *Recorder) ColorMask(red, green, blue, alpha bool) {
	r.record("ColorMask", red, green, blue, alpha)
}

func (r *Recorder) DepthMask(flag bool)                { r.record("DepthMask", flag) }
func (r *Recorder) DepthFunc(fn opengl.Enum)           { r.record("DepthFunc", fn) }
func (r *Recorder) CullFace(mode opengl.Enum)          { r.record("CullFace", mode) }
func (r *Recorder) FrontFace(mode opengl.Enum)         { r.record("FrontFace", mode) }
func (r *Recorder) PolygonMode(face, mode opengl.Enum) { r.record("PolygonMode", face, mode) }

func (r *Recorder) PolygonOffset(factor, units float32) {
	r.record("PolygonOffset", factor, units)
}

func (r *Recorder) StencilFuncSeparate(face, fn opengl.Enum, ref int32, mask uint32) {
	r.record("StencilFuncSeparate", face, fn, ref, mask)
}

func (r *Recorder) StencilOpSeparate(face, sfail, dpfail, dppass opengl.Enum) {
	r.record("StencilOpSeparate", face, sfail, dpfail, dppass)
}

func (r *Recorder) StencilMaskSeparate(face opengl.Enum, mask uint32) {
	r.record("StencilMaskSeparate", face, mask)
}

func (r *Recorder) ClearColor(red, green, blue, alpha float32) {
	r.record("ClearColor", red, green, blue, alpha)
}

func (r *Recorder) ClearDepthf(d float32)  { r.record("ClearDepthf", d) }
func (r *Recorder) ClearStencil(s int32)   { r.record("ClearStencil", s) }
func (r *Recorder) Clear(mask opengl.Enum) { r.record("Clear", mask) }

func (r *Recorder) ClearBufferfv(buffer opengl.Enum, drawbuffer int32, value []float32) {
	r.record("ClearBufferfv", buffer, drawbuffer, append([]float32(nil), value...))
}

func (r *Recorder) ClearBufferfi(buffer opengl.Enum, drawbuffer int32, depth float32, stencil int32) {
	r.record("ClearBufferfi", buffer, drawbuffer, depth, stencil)
}

func (r *Recorder) CreateBuffer() opengl.Buffer {
	b := opengl.Buffer(r.alloc())
	r.record("CreateBuffer", b)
	return b
}

func (r *Recorder) DeleteBuffer(b opengl.Buffer) { r.record("DeleteBuffer", b) }

func (r *Recorder) BindBuffer(target opengl.Enum, b opengl.Buffer) {
	r.record("BindBuffer", target, b)
}

func (r *Recorder) BindBufferBase(target opengl.Enum, index uint32, b opengl.Buffer) {
	r.record("BindBufferBase", target, index, b)
}

func (r *Recorder) BufferData(target opengl.Enum, size int, data []byte, usage opengl.Enum) {
	r.record("BufferData", target, size, len(data), usage)
}

func (r *Recorder) BufferSubData(target opengl.Enum, offset int, data []byte) {
	r.record("BufferSubData", target, offset, len(data))
}

func (r *Recorder) CreateTexture() opengl.Texture {
	t := opengl.Texture(r.alloc())
	r.record("CreateTexture", t)
	return t
}

func (r *Recorder) DeleteTexture(t opengl.Texture) { r.record("DeleteTexture", t) }
func (r *Recorder) ActiveTexture(unit opengl.Enum) { r.record("ActiveTexture", unit) }

func (r *Recorder) BindTexture(target opengl.Enum, t opengl.Texture) {
	r.record("BindTexture", target, t)
}

func (r *Recorder) TexParameteri(target, pname opengl.Enum, param int32) {
	r.record("TexParameteri", target, pname, param)
}

func (r *Recorder) TexParameterf(target, pname opengl.Enum, param float32) {
	r.record("TexParameterf", target, pname, param)
}

func (r *Recorder) TexImage2D(target opengl.Enum, level int32, internalFormat opengl.Enum, width, height int32, format, ty opengl.Enum, data []byte) {
	r.record("TexImage2D", target, level, internalFormat, width, height, format, ty, len(data))
}

func (r *Recorder) TexImage3D(target opengl.Enum, level int32, internalFormat opengl.Enum, width, height, depth int32, format, ty opengl.Enum, data []byte) {
	r.record("TexImage3D", target, level, internalFormat, width, height, depth, format, ty, len(data))
}

func (r *Recorder) CompressedTexImage2D(target opengl.Enum, level int32, internalFormat opengl.Enum, width, height int32, data []byte) {
	r.record("CompressedTexImage2D", target, level, internalFormat, width, height, len(data))
}

func (r *Recorder) CompressedTexImage3D(target opengl.Enum, level int32, internalFormat opengl.Enum, width, height, depth int32, data []byte) {
	r.record("CompressedTexImage3D", target, level, internalFormat, width, height, depth, len(data))
}

func (r *Recorder) GenerateMipmap(target opengl.Enum) { r.record("GenerateMipmap", target) }

func (r *Recorder) CreateSampler() opengl.Sampler {
	s := opengl.Sampler(r.alloc())
	r.record("CreateSampler", s)
	return s
}

func (r *Recorder) DeleteSampler(s opengl.Sampler) { r.record("DeleteSampler", s) }

func (r *Recorder) BindSampler(unit uint32, s opengl.Sampler) {
	r.record("BindSampler", unit, s)
}

func (r *Recorder) SamplerParameteri(s opengl.Sampler, pname opengl.Enum, param int32) {
	r.record("SamplerParameteri", s, pname, param)
}

func (r *Recorder) SamplerParameterf(s opengl.Sampler, pname opengl.Enum, param float32) {
	r.record("SamplerParameterf", s, pname, param)
}

func (r *Recorder) CreateFramebuffer() opengl.Framebuffer {
	fb := opengl.Framebuffer(r.alloc())
	r.record("CreateFramebuffer", fb)
	return fb
}

func (r *Recorder) DeleteFramebuffer(fb opengl.Framebuffer) { r.record("DeleteFramebuffer", fb) }

func (r *Recorder) BindFramebuffer(target opengl.Enum, fb opengl.Framebuffer) {
	r.record("BindFramebuffer", target, fb)
}

func (r *Recorder) FramebufferTexture2D(target, attachment, texTarget opengl.Enum, t opengl.Texture, level int32) {
	r.record("FramebufferTexture2D", target, attachment, texTarget, t, level)
}

func (r *Recorder) FramebufferTextureLayer(target, attachment opengl.Enum, t opengl.Texture, level, layer int32) {
	r.record("FramebufferTextureLayer", target, attachment, t, level, layer)
}

func (r *Recorder) CheckFramebufferStatus(target opengl.Enum) opengl.Enum {
	r.record("CheckFramebufferStatus", target)
	if r.IncompleteFBOs {
		return 0x8CD6 // GL_FRAMEBUFFER_INCOMPLETE_ATTACHMENT
	}
	return opengl.FRAMEBUFFER_COMPLETE
}

func (r *Recorder) DrawBuffers(bufs []opengl.Enum) {
	r.record("DrawBuffers", append([]opengl.Enum(nil), bufs...))
}

func (r *Recorder) ReadBuffer(src opengl.Enum) { r.record("ReadBuffer", src) }

func (r *Recorder) BlitFramebuffer(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1 int32, mask, filter opengl.Enum) {
	r.record("BlitFramebuffer", srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1, mask, filter)
}

func (r *Recorder) InvalidateFramebuffer(target opengl.Enum, attachments []opengl.Enum) {
	r.record("InvalidateFramebuffer", target, append([]opengl.Enum(nil), attachments...))
}

func (r *Recorder) ReadPixels(x, y, width, height int32, format, ty opengl.Enum, data []byte) {
	r.record("ReadPixels", x, y, width, height, format, ty, len(data))
}

func (r *Recorder) CreateShader(ty opengl.Enum) opengl.Shader {
	s := opengl.Shader(r.alloc())
	r.record("CreateShader", ty, s)
	return s
}

func (r *Recorder) DeleteShader(s opengl.Shader)             { r.record("DeleteShader", s) }
func (r *Recorder) ShaderSource(s opengl.Shader, src string) { r.record("ShaderSource", s, src) }
func (r *Recorder) CompileShader(s opengl.Shader)            { r.record("CompileShader", s) }

func (r *Recorder) GetShaderi(s opengl.Shader, pname opengl.Enum) int32 {
	if pname == opengl.COMPILE_STATUS && r.FailCompile {
		return opengl.FALSE
	}
	return opengl.TRUE
}

func (r *Recorder) GetShaderInfoLog(s opengl.Shader) string {
	if r.FailCompile {
		return "0:1: syntax error"
	}
	return ""
}

func (r *Recorder) CreateProgram() opengl.Program {
	p := opengl.Program(r.alloc())
	r.record("CreateProgram", p)
	return p
}

func (r *Recorder) DeleteProgram(p opengl.Program) { r.record("DeleteProgram", p) }

func (r *Recorder) AttachShader(p opengl.Program, s opengl.Shader) {
	r.record("AttachShader", p, s)
}

func (r *Recorder) LinkProgram(p opengl.Program) { r.record("LinkProgram", p) }

func (r *Recorder) GetProgrami(p opengl.Program, pname opengl.Enum) int32 {
	switch pname {
	case opengl.LINK_STATUS:
		if r.FailLink {
			return opengl.FALSE
		}
		return opengl.TRUE
	case opengl.ACTIVE_UNIFORMS:
		return int32(len(r.Uniforms))
	}
	return 0
}

func (r *Recorder) GetProgramInfoLog(p opengl.Program) string {
	if r.FailLink {
		return "link error"
	}
	return ""
}

func (r *Recorder) UseProgram(p opengl.Program) { r.record("UseProgram", p) }

func (r *Recorder) GetAttribLocation(p opengl.Program, name string) opengl.Attrib {
	for i, a := range r.Attribs {
		if a == name {
			return opengl.Attrib(i)
		}
	}
	return -1
}

func (r *Recorder) GetUniformLocation(p opengl.Program, name string) opengl.Uniform {
	for i, u := range r.Uniforms {
		if u.Name == name || u.Name == name+"[0]" {
			return opengl.Uniform(i)
		}
	}
	return -1
}

func (r *Recorder) GetActiveUniform(p opengl.Program, index uint32) (string, int32, opengl.Enum) {
	u := r.Uniforms[index]
	return u.Name, u.Size, u.Type
}

func (r *Recorder) GetUniformBlockIndex(p opengl.Program, name string) uint32 {
	for i, b := range r.Blocks {
		if b == name {
			return uint32(i)
		}
	}
	return opengl.INVALID_INDEX
}

func (r *Recorder) UniformBlockBinding(p opengl.Program, blockIndex, binding uint32) {
	r.record("UniformBlockBinding", p, blockIndex, binding)
}

func (r *Recorder) Uniform1i(u opengl.Uniform, v int32)   { r.record("Uniform1i", u, v) }
func (r *Recorder) Uniform1f(u opengl.Uniform, v float32) { r.record("Uniform1f", u, v) }

func (r *Recorder) Uniform2f(u opengl.Uniform, x, y float32) { r.record("Uniform2f", u, x, y) }

func (r *Recorder) Uniform3f(u opengl.Uniform, x, y, z float32) {
	r.record("Uniform3f", u, x, y, z)
}

func (r *Recorder) Uniform4f(u opengl.Uniform, x, y, z, w float32) {
	r.record("Uniform4f", u, x, y, z, w)
}

func (r *Recorder) UniformMatrix4fv(u opengl.Uniform, m []float32) {
	r.record("UniformMatrix4fv", u, append([]float32(nil), m...))
}

func (r *Recorder) CreateVertexArray() opengl.VertexArray {
	a := opengl.VertexArray(r.alloc())
	r.record("CreateVertexArray", a)
	return a
}

func (r *Recorder) DeleteVertexArray(a opengl.VertexArray) { r.record("DeleteVertexArray", a) }
func (r *Recorder) BindVertexArray(a opengl.VertexArray)   { r.record("BindVertexArray", a) }

func (r *Recorder) EnableVertexAttribArray(a opengl.Attrib) {
	r.record("EnableVertexAttribArray", a)
}

func (r *Recorder) DisableVertexAttribArray(a opengl.Attrib) {
	r.record("DisableVertexAttribArray", a)
}

func (r *Recorder) VertexAttribPointer(a opengl.Attrib, size int32, ty opengl.Enum, normalized bool, stride int32, offset int) {
	r.record("VertexAttribPointer", a, size, ty, normalized, stride, offset)
}

func (r *Recorder) VertexAttribDivisor(a opengl.Attrib, divisor uint32) {
	r.record("VertexAttribDivisor", a, divisor)
}

func (r *Recorder) DrawArrays(mode opengl.Enum, first, count int32) {
	r.record("DrawArrays", mode, first, count)
}

func (r *Recorder) DrawElements(mode opengl.Enum, count int32, ty opengl.Enum, offset int) {
	r.record("DrawElements", mode, count, ty, offset)
}

func (r *Recorder) DrawArraysInstanced(mode opengl.Enum, first, count, instances int32) {
	r.record("DrawArraysInstanced", mode, first, count, instances)
}

func (r *Recorder) DrawElementsInstanced(mode opengl.Enum, count int32, ty opengl.Enum, offset int, instances int32) {
	r.record("DrawElementsInstanced", mode, count, ty, offset, instances)
}

// Surface is a GL surface for tests; it counts swaps and interval changes.
type Surface struct {
	Width, Height int
	Swaps         int
	Interval      int
	Current       bool
}

func (s *Surface) FramebufferSize() (int, int) { return s.Width, s.Height }
func (s *Surface) MakeContextCurrent()         { s.Current = true }
func (s *Surface) SwapBuffers()                { s.Swaps++ }
func (s *Surface) SwapInterval(interval int)   { s.Interval = interval }

func (s *Surface) GetProcAddress(name string) unsafe.Pointer { return nil }

// Loader returns an opengl.Loader handing out r.
func (r *Recorder) Loader() opengl.Loader {
	return func(graphics.GLSurface) (opengl.Functions, error) {
		return r, nil
	}
}
