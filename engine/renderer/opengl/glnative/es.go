package glnative

import (
	"fmt"
	"unsafe"

	gles "github.com/go-gl/gl/v3.1/gles2"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/opengl"
)

// ES calls the OpenGL ES entry points loaded from the current context.
type ES struct{}

var _ opengl.Functions = ES{}

// LoadES is an opengl.Loader for OpenGL ES contexts.
func LoadES(surface graphics.GLSurface) (opengl.Functions, error) {
	if err := gles.InitWithProcAddrFunc(surface.GetProcAddress); err != nil {
		return nil, fmt.Errorf("missing entry point %s", err)
	}
	return ES{}, nil
}

func (ES) GetError() opengl.Enum { return opengl.Enum(gles.GetError()) }

func (ES) GetString(name opengl.Enum) string {
	s := gles.GetString(uint32(name))
	if s == nil {
		return ""
	}
	return gles.GoStr(s)
}

func (ES) GetStringi(name opengl.Enum, index uint32) string {
	s := gles.GetStringi(uint32(name), index)
	if s == nil {
		return ""
	}
	return gles.GoStr(s)
}

func (ES) GetInteger(pname opengl.Enum) int32 {
	var v int32
	gles.GetIntegerv(uint32(pname), &v)
	return v
}

func (ES) GetFloat(pname opengl.Enum) float32 {
	var v float32
	gles.GetFloatv(uint32(pname), &v)
	return v
}

func (ES) Flush() { gles.Flush() }

func (ES) Enable(cap opengl.Enum)              { gles.Enable(uint32(cap)) }
func (ES) Disable(cap opengl.Enum)             { gles.Disable(uint32(cap)) }
func (ES) Viewport(x, y, width, height int32)  { gles.Viewport(x, y, width, height) }
func (ES) DepthRangef(near, far float32)       { gles.DepthRangef(near, far) }
func (ES) Scissor(x, y, width, height int32)   { gles.Scissor(x, y, width, height) }
func (ES) ColorMask(r, g, b, a bool)           { gles.ColorMask(r, g, b, a) }
func (ES) DepthMask(flag bool)                 { gles.DepthMask(flag) }
func (ES) DepthFunc(fn opengl.Enum)            { gles.DepthFunc(uint32(fn)) }
func (ES) CullFace(mode opengl.Enum)           { gles.CullFace(uint32(mode)) }
func (ES) FrontFace(mode opengl.Enum)          { gles.FrontFace(uint32(mode)) }
func (ES) PolygonOffset(factor, units float32) { gles.PolygonOffset(factor, units) }
func (ES) StencilMaskSeparate(face opengl.Enum, mask uint32) {
	gles.StencilMaskSeparate(uint32(face), mask)
}

// PolygonMode does not exist on OpenGL ES, profiles never report the feature.
func (ES) PolygonMode(face, mode opengl.Enum) {}

func (ES) BlendFuncSeparate(srcRGB, dstRGB, srcA, dstA opengl.Enum) {
	gles.BlendFuncSeparate(uint32(srcRGB), uint32(dstRGB), uint32(srcA), uint32(dstA))
}

func (ES) BlendEquationSeparate(modeRGB, modeA opengl.Enum) {
	gles.BlendEquationSeparate(uint32(modeRGB), uint32(modeA))
}

func (ES) StencilFuncSeparate(face, fn opengl.Enum, ref int32, mask uint32) {
	gles.StencilFuncSeparate(uint32(face), uint32(fn), ref, mask)
}

func (ES) StencilOpSeparate(face, sfail, dpfail, dppass opengl.Enum) {
	gles.StencilOpSeparate(uint32(face), uint32(sfail), uint32(dpfail), uint32(dppass))
}

func (ES) ClearColor(r, g, b, a float32) { gles.ClearColor(r, g, b, a) }
func (ES) ClearDepthf(d float32)         { gles.ClearDepthf(d) }
func (ES) ClearStencil(s int32)          { gles.ClearStencil(s) }
func (ES) Clear(mask opengl.Enum)        { gles.Clear(uint32(mask)) }

func (ES) ClearBufferfv(buffer opengl.Enum, drawbuffer int32, value []float32) {
	gles.ClearBufferfv(uint32(buffer), drawbuffer, &value[0])
}

func (ES) ClearBufferfi(buffer opengl.Enum, drawbuffer int32, depth float32, stencil int32) {
	gles.ClearBufferfi(uint32(buffer), drawbuffer, depth, stencil)
}

func (ES) CreateBuffer() opengl.Buffer {
	var b uint32
	gles.GenBuffers(1, &b)
	return opengl.Buffer(b)
}

func (ES) DeleteBuffer(b opengl.Buffer) {
	id := uint32(b)
	gles.DeleteBuffers(1, &id)
}

func (ES) BindBuffer(target opengl.Enum, b opengl.Buffer) { gles.BindBuffer(uint32(target), uint32(b)) }

func (ES) BindBufferBase(target opengl.Enum, index uint32, b opengl.Buffer) {
	gles.BindBufferBase(uint32(target), index, uint32(b))
}

func (ES) BufferData(target opengl.Enum, size int, data []byte, usage opengl.Enum) {
	gles.BufferData(uint32(target), size, bytesPtr(data), uint32(usage))
}

func (ES) BufferSubData(target opengl.Enum, offset int, data []byte) {
	gles.BufferSubData(uint32(target), offset, len(data), bytesPtr(data))
}

func (ES) CreateTexture() opengl.Texture {
	var t uint32
	gles.GenTextures(1, &t)
	return opengl.Texture(t)
}

func (ES) DeleteTexture(t opengl.Texture) {
	id := uint32(t)
	gles.DeleteTextures(1, &id)
}

func (ES) ActiveTexture(unit opengl.Enum)                   { gles.ActiveTexture(uint32(unit)) }
func (ES) BindTexture(target opengl.Enum, t opengl.Texture) { gles.BindTexture(uint32(target), uint32(t)) }
func (ES) GenerateMipmap(target opengl.Enum)                { gles.GenerateMipmap(uint32(target)) }

func (ES) TexParameteri(target, pname opengl.Enum, param int32) {
	gles.TexParameteri(uint32(target), uint32(pname), param)
}

func (ES) TexParameterf(target, pname opengl.Enum, param float32) {
	gles.TexParameterf(uint32(target), uint32(pname), param)
}

func (ES) TexImage2D(target opengl.Enum, level int32, internalFormat opengl.Enum, width, height int32, format, ty opengl.Enum, data []byte) {
	gles.TexImage2D(uint32(target), level, int32(internalFormat), width, height, 0, uint32(format), uint32(ty), bytesPtr(data))
}

func (ES) TexImage3D(target opengl.Enum, level int32, internalFormat opengl.Enum, width, height, depth int32, format, ty opengl.Enum, data []byte) {
	gles.TexImage3D(uint32(target), level, int32(internalFormat), width, height, depth, 0, uint32(format), uint32(ty), bytesPtr(data))
}

func (ES) CompressedTexImage2D(target opengl.Enum, level int32, internalFormat opengl.Enum, width, height int32, data []byte) {
	gles.CompressedTexImage2D(uint32(target), level, uint32(internalFormat), width, height, 0, int32(len(data)), bytesPtr(data))
}

func (ES) CompressedTexImage3D(target opengl.Enum, level int32, internalFormat opengl.Enum, width, height, depth int32, data []byte) {
	gles.CompressedTexImage3D(uint32(target), level, uint32(internalFormat), width, height, depth, 0, int32(len(data)), bytesPtr(data))
}

func (ES) CreateSampler() opengl.Sampler {
	var s uint32
	gles.GenSamplers(1, &s)
	return opengl.Sampler(s)
}

func (ES) DeleteSampler(s opengl.Sampler) {
	id := uint32(s)
	gles.DeleteSamplers(1, &id)
}

func (ES) BindSampler(unit uint32, s opengl.Sampler) { gles.BindSampler(unit, uint32(s)) }

func (ES) SamplerParameteri(s opengl.Sampler, pname opengl.Enum, param int32) {
	gles.SamplerParameteri(uint32(s), uint32(pname), param)
}

func (ES) SamplerParameterf(s opengl.Sampler, pname opengl.Enum, param float32) {
	gles.SamplerParameterf(uint32(s), uint32(pname), param)
}

func (ES) CreateFramebuffer() opengl.Framebuffer {
	var fb uint32
	gles.GenFramebuffers(1, &fb)
	return opengl.Framebuffer(fb)
}

func (ES) DeleteFramebuffer(fb opengl.Framebuffer) {
	id := uint32(fb)
	gles.DeleteFramebuffers(1, &id)
}

func (ES) BindFramebuffer(target opengl.Enum, fb opengl.Framebuffer) {
	gles.BindFramebuffer(uint32(target), uint32(fb))
}

func (ES) FramebufferTexture2D(target, attachment, texTarget opengl.Enum, t opengl.Texture, level int32) {
	gles.FramebufferTexture2D(uint32(target), uint32(attachment), uint32(texTarget), uint32(t), level)
}

func (ES) FramebufferTextureLayer(target, attachment opengl.Enum, t opengl.Texture, level, layer int32) {
	gles.FramebufferTextureLayer(uint32(target), uint32(attachment), uint32(t), level, layer)
}

func (ES) CheckFramebufferStatus(target opengl.Enum) opengl.Enum {
	return opengl.Enum(gles.CheckFramebufferStatus(uint32(target)))
}

func (ES) DrawBuffers(bufs []opengl.Enum) {
	gles.DrawBuffers(int32(len(bufs)), (*uint32)(unsafe.Pointer(&bufs[0])))
}

func (ES) ReadBuffer(src opengl.Enum) { gles.ReadBuffer(uint32(src)) }

func (ES) BlitFramebuffer(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1 int32, mask, filter opengl.Enum) {
	gles.BlitFramebuffer(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1, uint32(mask), uint32(filter))
}

func (ES) InvalidateFramebuffer(target opengl.Enum, attachments []opengl.Enum) {
	if len(attachments) == 0 {
		return
	}
	gles.InvalidateFramebuffer(uint32(target), int32(len(attachments)), (*uint32)(unsafe.Pointer(&attachments[0])))
}

func (ES) ReadPixels(x, y, width, height int32, format, ty opengl.Enum, data []byte) {
	gles.ReadPixels(x, y, width, height, uint32(format), uint32(ty), bytesPtr(data))
}

func (ES) CreateShader(ty opengl.Enum) opengl.Shader { return opengl.Shader(gles.CreateShader(uint32(ty))) }
func (ES) DeleteShader(s opengl.Shader)              { gles.DeleteShader(uint32(s)) }
func (ES) CompileShader(s opengl.Shader)             { gles.CompileShader(uint32(s)) }

func (ES) ShaderSource(s opengl.Shader, src string) {
	csrc, free := gles.Strs(cstr(src))
	defer free()
	gles.ShaderSource(uint32(s), 1, csrc, nil)
}

func (ES) GetShaderi(s opengl.Shader, pname opengl.Enum) int32 {
	var v int32
	gles.GetShaderiv(uint32(s), uint32(pname), &v)
	return v
}

func (f ES) GetShaderInfoLog(s opengl.Shader) string {
	n := min(f.GetShaderi(s, opengl.INFO_LOG_LENGTH), infoLogMax)
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n)
	var length int32
	gles.GetShaderInfoLog(uint32(s), n, &length, &buf[0])
	return trimLog(buf, length)
}

func (ES) CreateProgram() opengl.Program                  { return opengl.Program(gles.CreateProgram()) }
func (ES) DeleteProgram(p opengl.Program)                 { gles.DeleteProgram(uint32(p)) }
func (ES) AttachShader(p opengl.Program, s opengl.Shader) { gles.AttachShader(uint32(p), uint32(s)) }
func (ES) LinkProgram(p opengl.Program)                   { gles.LinkProgram(uint32(p)) }
func (ES) UseProgram(p opengl.Program)                    { gles.UseProgram(uint32(p)) }

func (ES) GetProgrami(p opengl.Program, pname opengl.Enum) int32 {
	var v int32
	gles.GetProgramiv(uint32(p), uint32(pname), &v)
	return v
}

func (f ES) GetProgramInfoLog(p opengl.Program) string {
	n := min(f.GetProgrami(p, opengl.INFO_LOG_LENGTH), infoLogMax)
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n)
	var length int32
	gles.GetProgramInfoLog(uint32(p), n, &length, &buf[0])
	return trimLog(buf, length)
}

func (ES) GetAttribLocation(p opengl.Program, name string) opengl.Attrib {
	return opengl.Attrib(gles.GetAttribLocation(uint32(p), gles.Str(cstr(name))))
}

func (ES) GetUniformLocation(p opengl.Program, name string) opengl.Uniform {
	return opengl.Uniform(gles.GetUniformLocation(uint32(p), gles.Str(cstr(name))))
}

func (ES) GetActiveUniform(p opengl.Program, index uint32) (string, int32, opengl.Enum) {
	buf := make([]byte, uniformNameMax)
	var length, size int32
	var ty uint32
	gles.GetActiveUniform(uint32(p), index, uniformNameMax, &length, &size, &ty, &buf[0])
	return trimLog(buf, length), size, opengl.Enum(ty)
}

func (ES) GetUniformBlockIndex(p opengl.Program, name string) uint32 {
	return gles.GetUniformBlockIndex(uint32(p), gles.Str(cstr(name)))
}

func (ES) UniformBlockBinding(p opengl.Program, blockIndex, binding uint32) {
	gles.UniformBlockBinding(uint32(p), blockIndex, binding)
}

func (ES) Uniform1i(u opengl.Uniform, v int32)            { gles.Uniform1i(int32(u), v) }
func (ES) Uniform1f(u opengl.Uniform, v float32)          { gles.Uniform1f(int32(u), v) }
func (ES) Uniform2f(u opengl.Uniform, x, y float32)       { gles.Uniform2f(int32(u), x, y) }
func (ES) Uniform3f(u opengl.Uniform, x, y, z float32)    { gles.Uniform3f(int32(u), x, y, z) }
func (ES) Uniform4f(u opengl.Uniform, x, y, z, w float32) { gles.Uniform4f(int32(u), x, y, z, w) }
func (ES) UniformMatrix4fv(u opengl.Uniform, m []float32) { gles.UniformMatrix4fv(int32(u), 1, false, &m[0]) }

func (ES) CreateVertexArray() opengl.VertexArray {
	var v uint32
	gles.GenVertexArrays(1, &v)
	return opengl.VertexArray(v)
}

func (ES) DeleteVertexArray(v opengl.VertexArray) {
	id := uint32(v)
	gles.DeleteVertexArrays(1, &id)
}

func (ES) BindVertexArray(v opengl.VertexArray)     { gles.BindVertexArray(uint32(v)) }
func (ES) EnableVertexAttribArray(a opengl.Attrib)  { gles.EnableVertexAttribArray(uint32(a)) }
func (ES) DisableVertexAttribArray(a opengl.Attrib) { gles.DisableVertexAttribArray(uint32(a)) }
func (ES) VertexAttribDivisor(a opengl.Attrib, divisor uint32) {
	gles.VertexAttribDivisor(uint32(a), divisor)
}

func (ES) VertexAttribPointer(a opengl.Attrib, size int32, ty opengl.Enum, normalized bool, stride int32, offset int) {
	gles.VertexAttribPointerWithOffset(uint32(a), size, uint32(ty), normalized, stride, uintptr(offset))
}

func (ES) DrawArrays(mode opengl.Enum, first, count int32) { gles.DrawArrays(uint32(mode), first, count) }

func (ES) DrawElements(mode opengl.Enum, count int32, ty opengl.Enum, offset int) {
	gles.DrawElementsWithOffset(uint32(mode), count, uint32(ty), uintptr(offset))
}

func (ES) DrawArraysInstanced(mode opengl.Enum, first, count, instances int32) {
	gles.DrawArraysInstanced(uint32(mode), first, count, instances)
}

func (ES) DrawElementsInstanced(mode opengl.Enum, count int32, ty opengl.Enum, offset int, instances int32) {
	gles.DrawElementsInstanced(uint32(mode), count, uint32(ty), gles.PtrOffset(offset), instances)
}
