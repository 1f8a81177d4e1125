package glnative

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/opengl"
)

// Core calls the desktop OpenGL entry points loaded from the current context.
type Core struct{}

var _ opengl.Functions = Core{}

// LoadCore is an opengl.Loader for desktop core profile contexts.
func LoadCore(surface graphics.GLSurface) (opengl.Functions, error) {
	if err := gl.InitWithProcAddrFunc(surface.GetProcAddress); err != nil {
		return nil, fmt.Errorf("missing entry point %s", err)
	}
	return Core{}, nil
}

func (Core) GetError() opengl.Enum { return opengl.Enum(gl.GetError()) }

func (Core) GetString(name opengl.Enum) string {
	s := gl.GetString(uint32(name))
	if s == nil {
		return ""
	}
	return gl.GoStr(s)
}

func (Core) GetStringi(name opengl.Enum, index uint32) string {
	s := gl.GetStringi(uint32(name), index)
	if s == nil {
		return ""
	}
	return gl.GoStr(s)
}

func (Core) GetInteger(pname opengl.Enum) int32 {
	var v int32
	gl.GetIntegerv(uint32(pname), &v)
	return v
}

func (Core) GetFloat(pname opengl.Enum) float32 {
	var v float32
	gl.GetFloatv(uint32(pname), &v)
	return v
}

func (Core) Flush() { gl.Flush() }

func (Core) Enable(cap opengl.Enum)              { gl.Enable(uint32(cap)) }
func (Core) Disable(cap opengl.Enum)             { gl.Disable(uint32(cap)) }
func (Core) Viewport(x, y, width, height int32)  { gl.Viewport(x, y, width, height) }
func (Core) DepthRangef(near, far float32)       { gl.DepthRangef(near, far) }
func (Core) Scissor(x, y, width, height int32)   { gl.Scissor(x, y, width, height) }
func (Core) ColorMask(r, g, b, a bool)           { gl.ColorMask(r, g, b, a) }
func (Core) DepthMask(flag bool)                 { gl.DepthMask(flag) }
func (Core) DepthFunc(fn opengl.Enum)            { gl.DepthFunc(uint32(fn)) }
func (Core) CullFace(mode opengl.Enum)           { gl.CullFace(uint32(mode)) }
func (Core) FrontFace(mode opengl.Enum)          { gl.FrontFace(uint32(mode)) }
func (Core) PolygonOffset(factor, units float32) { gl.PolygonOffset(factor, units) }
func (Core) StencilMaskSeparate(face opengl.Enum, mask uint32) {
	gl.StencilMaskSeparate(uint32(face), mask)
}

func (Core) PolygonMode(face, mode opengl.Enum) { gl.PolygonMode(uint32(face), uint32(mode)) }

func (Core) BlendFuncSeparate(srcRGB, dstRGB, srcA, dstA opengl.Enum) {
	gl.BlendFuncSeparate(uint32(srcRGB), uint32(dstRGB), uint32(srcA), uint32(dstA))
}

func (Core) BlendEquationSeparate(modeRGB, modeA opengl.Enum) {
	gl.BlendEquationSeparate(uint32(modeRGB), uint32(modeA))
}

func (Core) StencilFuncSeparate(face, fn opengl.Enum, ref int32, mask uint32) {
	gl.StencilFuncSeparate(uint32(face), uint32(fn), ref, mask)
}

func (Core) StencilOpSeparate(face, sfail, dpfail, dppass opengl.Enum) {
	gl.StencilOpSeparate(uint32(face), uint32(sfail), uint32(dpfail), uint32(dppass))
}

func (Core) ClearColor(r, g, b, a float32) { gl.ClearColor(r, g, b, a) }
func (Core) ClearDepthf(d float32)         { gl.ClearDepthf(d) }
func (Core) ClearStencil(s int32)          { gl.ClearStencil(s) }
func (Core) Clear(mask opengl.Enum)        { gl.Clear(uint32(mask)) }

func (Core) ClearBufferfv(buffer opengl.Enum, drawbuffer int32, value []float32) {
	gl.ClearBufferfv(uint32(buffer), drawbuffer, &value[0])
}

func (Core) ClearBufferfi(buffer opengl.Enum, drawbuffer int32, depth float32, stencil int32) {
	gl.ClearBufferfi(uint32(buffer), drawbuffer, depth, stencil)
}

func (Core) CreateBuffer() opengl.Buffer {
	var b uint32
	gl.GenBuffers(1, &b)
	return opengl.Buffer(b)
}

func (Core) DeleteBuffer(b opengl.Buffer) {
	id := uint32(b)
	gl.DeleteBuffers(1, &id)
}

func (Core) BindBuffer(target opengl.Enum, b opengl.Buffer) { gl.BindBuffer(uint32(target), uint32(b)) }

func (Core) BindBufferBase(target opengl.Enum, index uint32, b opengl.Buffer) {
	gl.BindBufferBase(uint32(target), index, uint32(b))
}

func (Core) BufferData(target opengl.Enum, size int, data []byte, usage opengl.Enum) {
	gl.BufferData(uint32(target), size, bytesPtr(data), uint32(usage))
}

func (Core) BufferSubData(target opengl.Enum, offset int, data []byte) {
	gl.BufferSubData(uint32(target), offset, len(data), bytesPtr(data))
}

func (Core) CreateTexture() opengl.Texture {
	var t uint32
	gl.GenTextures(1, &t)
	return opengl.Texture(t)
}

func (Core) DeleteTexture(t opengl.Texture) {
	id := uint32(t)
	gl.DeleteTextures(1, &id)
}

func (Core) ActiveTexture(unit opengl.Enum)                   { gl.ActiveTexture(uint32(unit)) }
func (Core) BindTexture(target opengl.Enum, t opengl.Texture) { gl.BindTexture(uint32(target), uint32(t)) }
func (Core) GenerateMipmap(target opengl.Enum)                { gl.GenerateMipmap(uint32(target)) }

func (Core) TexParameteri(target, pname opengl.Enum, param int32) {
	gl.TexParameteri(uint32(target), uint32(pname), param)
}

func (Core) TexParameterf(target, pname opengl.Enum, param float32) {
	gl.TexParameterf(uint32(target), uint32(pname), param)
}

func (Core) TexImage2D(target opengl.Enum, level int32, internalFormat opengl.Enum, width, height int32, format, ty opengl.Enum, data []byte) {
	gl.TexImage2D(uint32(target), level, int32(internalFormat), width, height, 0, uint32(format), uint32(ty), bytesPtr(data))
}

func (Core) TexImage3D(target opengl.Enum, level int32, internalFormat opengl.Enum, width, height, depth int32, format, ty opengl.Enum, data []byte) {
	gl.TexImage3D(uint32(target), level, int32(internalFormat), width, height, depth, 0, uint32(format), uint32(ty), bytesPtr(data))
}

func (Core) CompressedTexImage2D(target opengl.Enum, level int32, internalFormat opengl.Enum, width, height int32, data []byte) {
	gl.CompressedTexImage2D(uint32(target), level, uint32(internalFormat), width, height, 0, int32(len(data)), bytesPtr(data))
}

func (Core) CompressedTexImage3D(target opengl.Enum, level int32, internalFormat opengl.Enum, width, height, depth int32, data []byte) {
	gl.CompressedTexImage3D(uint32(target), level, uint32(internalFormat), width, height, depth, 0, int32(len(data)), bytesPtr(data))
}

func (Core) CreateSampler() opengl.Sampler {
	var s uint32
	gl.GenSamplers(1, &s)
	return opengl.Sampler(s)
}

func (Core) DeleteSampler(s opengl.Sampler) {
	id := uint32(s)
	gl.DeleteSamplers(1, &id)
}

func (Core) BindSampler(unit uint32, s opengl.Sampler) { gl.BindSampler(unit, uint32(s)) }

func (Core) SamplerParameteri(s opengl.Sampler, pname opengl.Enum, param int32) {
	gl.SamplerParameteri(uint32(s), uint32(pname), param)
}

func (Core) SamplerParameterf(s opengl.Sampler, pname opengl.Enum, param float32) {
	gl.SamplerParameterf(uint32(s), uint32(pname), param)
}

func (Core) CreateFramebuffer() opengl.Framebuffer {
	var fb uint32
	gl.GenFramebuffers(1, &fb)
	return opengl.Framebuffer(fb)
}

func (Core) DeleteFramebuffer(fb opengl.Framebuffer) {
	id := uint32(fb)
	gl.DeleteFramebuffers(1, &id)
}

func (Core) BindFramebuffer(target opengl.Enum, fb opengl.Framebuffer) {
	gl.BindFramebuffer(uint32(target), uint32(fb))
}

func (Core) FramebufferTexture2D(target, attachment, texTarget opengl.Enum, t opengl.Texture, level int32) {
	gl.FramebufferTexture2D(uint32(target), uint32(attachment), uint32(texTarget), uint32(t), level)
}

func (Core) FramebufferTextureLayer(target, attachment opengl.Enum, t opengl.Texture, level, layer int32) {
	gl.FramebufferTextureLayer(uint32(target), uint32(attachment), uint32(t), level, layer)
}

func (Core) CheckFramebufferStatus(target opengl.Enum) opengl.Enum {
	return opengl.Enum(gl.CheckFramebufferStatus(uint32(target)))
}

func (Core) DrawBuffers(bufs []opengl.Enum) {
	gl.DrawBuffers(int32(len(bufs)), (*uint32)(unsafe.Pointer(&bufs[0])))
}

func (Core) ReadBuffer(src opengl.Enum) { gl.ReadBuffer(uint32(src)) }

func (Core) BlitFramebuffer(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1 int32, mask, filter opengl.Enum) {
	gl.BlitFramebuffer(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1, uint32(mask), uint32(filter))
}

func (Core) InvalidateFramebuffer(target opengl.Enum, attachments []opengl.Enum) {
	if len(attachments) == 0 {
		return
	}
	gl.InvalidateFramebuffer(uint32(target), int32(len(attachments)), (*uint32)(unsafe.Pointer(&attachments[0])))
}

func (Core) ReadPixels(x, y, width, height int32, format, ty opengl.Enum, data []byte) {
	gl.ReadPixels(x, y, width, height, uint32(format), uint32(ty), bytesPtr(data))
}

func (Core) CreateShader(ty opengl.Enum) opengl.Shader { return opengl.Shader(gl.CreateShader(uint32(ty))) }
func (Core) DeleteShader(s opengl.Shader)              { gl.DeleteShader(uint32(s)) }
func (Core) CompileShader(s opengl.Shader)             { gl.CompileShader(uint32(s)) }

func (Core) ShaderSource(s opengl.Shader, src string) {
	csrc, free := gl.Strs(cstr(src))
	defer free()
	gl.ShaderSource(uint32(s), 1, csrc, nil)
}

func (Core) GetShaderi(s opengl.Shader, pname opengl.Enum) int32 {
	var v int32
	gl.GetShaderiv(uint32(s), uint32(pname), &v)
	return v
}

func (f Core) GetShaderInfoLog(s opengl.Shader) string {
	n := min(f.GetShaderi(s, opengl.INFO_LOG_LENGTH), infoLogMax)
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n)
	var length int32
	gl.GetShaderInfoLog(uint32(s), n, &length, &buf[0])
	return trimLog(buf, length)
}

func (Core) CreateProgram() opengl.Program                  { return opengl.Program(gl.CreateProgram()) }
func (Core) DeleteProgram(p opengl.Program)                 { gl.DeleteProgram(uint32(p)) }
func (Core) AttachShader(p opengl.Program, s opengl.Shader) { gl.AttachShader(uint32(p), uint32(s)) }
func (Core) LinkProgram(p opengl.Program)                   { gl.LinkProgram(uint32(p)) }
func (Core) UseProgram(p opengl.Program)                    { gl.UseProgram(uint32(p)) }

func (Core) GetProgrami(p opengl.Program, pname opengl.Enum) int32 {
	var v int32
	gl.GetProgramiv(uint32(p), uint32(pname), &v)
	return v
}

func (f Core) GetProgramInfoLog(p opengl.Program) string {
	n := min(f.GetProgrami(p, opengl.INFO_LOG_LENGTH), infoLogMax)
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n)
	var length int32
	gl.GetProgramInfoLog(uint32(p), n, &length, &buf[0])
	return trimLog(buf, length)
}

func (Core) GetAttribLocation(p opengl.Program, name string) opengl.Attrib {
	return opengl.Attrib(gl.GetAttribLocation(uint32(p), gl.Str(cstr(name))))
}

func (Core) GetUniformLocation(p opengl.Program, name string) opengl.Uniform {
	return opengl.Uniform(gl.GetUniformLocation(uint32(p), gl.Str(cstr(name))))
}

func (Core) GetActiveUniform(p opengl.Program, index uint32) (string, int32, opengl.Enum) {
	buf := make([]byte, uniformNameMax)
	var length, size int32
	var ty uint32
	gl.GetActiveUniform(uint32(p), index, uniformNameMax, &length, &size, &ty, &buf[0])
	return trimLog(buf, length), size, opengl.Enum(ty)
}

func (Core) GetUniformBlockIndex(p opengl.Program, name string) uint32 {
	return gl.GetUniformBlockIndex(uint32(p), gl.Str(cstr(name)))
}

func (Core) UniformBlockBinding(p opengl.Program, blockIndex, binding uint32) {
	gl.UniformBlockBinding(uint32(p), blockIndex, binding)
}

func (Core) Uniform1i(u opengl.Uniform, v int32)            { gl.Uniform1i(int32(u), v) }
func (Core) Uniform1f(u opengl.Uniform, v float32)          { gl.Uniform1f(int32(u), v) }
func (Core) Uniform2f(u opengl.Uniform, x, y float32)       { gl.Uniform2f(int32(u), x, y) }
func (Core) Uniform3f(u opengl.Uniform, x, y, z float32)    { gl.Uniform3f(int32(u), x, y, z) }
func (Core) Uniform4f(u opengl.Uniform, x, y, z, w float32) { gl.Uniform4f(int32(u), x, y, z, w) }
func (Core) UniformMatrix4fv(u opengl.Uniform, m []float32) { gl.UniformMatrix4fv(int32(u), 1, false, &m[0]) }

func (Core) CreateVertexArray() opengl.VertexArray {
	var v uint32
	gl.GenVertexArrays(1, &v)
	return opengl.VertexArray(v)
}

func (Core) DeleteVertexArray(v opengl.VertexArray) {
	id := uint32(v)
	gl.DeleteVertexArrays(1, &id)
}

func (Core) BindVertexArray(v opengl.VertexArray)     { gl.BindVertexArray(uint32(v)) }
func (Core) EnableVertexAttribArray(a opengl.Attrib)  { gl.EnableVertexAttribArray(uint32(a)) }
func (Core) DisableVertexAttribArray(a opengl.Attrib) { gl.DisableVertexAttribArray(uint32(a)) }
func (Core) VertexAttribDivisor(a opengl.Attrib, divisor uint32) {
	gl.VertexAttribDivisor(uint32(a), divisor)
}

func (Core) VertexAttribPointer(a opengl.Attrib, size int32, ty opengl.Enum, normalized bool, stride int32, offset int) {
	gl.VertexAttribPointerWithOffset(uint32(a), size, uint32(ty), normalized, stride, uintptr(offset))
}

func (Core) DrawArrays(mode opengl.Enum, first, count int32) { gl.DrawArrays(uint32(mode), first, count) }

func (Core) DrawElements(mode opengl.Enum, count int32, ty opengl.Enum, offset int) {
	gl.DrawElementsWithOffset(uint32(mode), count, uint32(ty), uintptr(offset))
}

func (Core) DrawArraysInstanced(mode opengl.Enum, first, count, instances int32) {
	gl.DrawArraysInstanced(uint32(mode), first, count, instances)
}

func (Core) DrawElementsInstanced(mode opengl.Enum, count int32, ty opengl.Enum, offset int, instances int32) {
	gl.DrawElementsInstanced(uint32(mode), count, uint32(ty), gl.PtrOffset(offset), instances)
}
