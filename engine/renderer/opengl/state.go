package opengl

import (
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

const (
	maxVertexAttribs    = 16
	maxTextureUnits     = 16
	maxColorAttachments = 8
	maxUniformBindings  = 16
)

type attribState struct {
	enabled    bool
	buf        Buffer
	size       int32
	ty         Enum
	normalized bool
	stride     int32
	offset     int
	divisor    uint32
}

// vertexArrayState is the state a vertex array object captures. Vertex
// array 0 stands for the default (or emulated) array.
type vertexArrayState struct {
	elemBuf Buffer
	attribs [maxVertexAttribs]attribState
}

type unitState struct {
	binds   map[Enum]Texture
	sampler Sampler
}

type stencilFaceState struct {
	fn        Enum
	ref       int32
	readMask  uint32
	fail      Enum
	depthFail Enum
	pass      Enum
	writeMask uint32
}

// glState mirrors the native state of one GL context. Every setter skips the
// native call when the cached value already matches and counts the outcome.
type glState struct {
	f     Functions
	stats *graphics.Stats

	hasPolygonMode bool
	hasDepthClamp  bool
	hasSamplers    bool

	prog      Program
	vertArray VertexArray
	vaos      map[VertexArray]*vertexArrayState
	arrayBuf  Buffer
	uniBuf    Buffer
	uniBufs   [maxUniformBindings]Buffer
	drawFBO   Framebuffer
	readFBO   Framebuffer

	activeUnit Enum
	units      [maxTextureUnits]unitState

	// viewport and scissor start unknown, the first set always emits.
	viewport     [4]int32
	viewportSet  bool
	depthRange   [2]float32
	scissor      [4]int32
	scissorSet   bool
	clearColor   [4]float32
	clearDepth   float32
	clearStencil int32

	enabled        map[Enum]bool
	blendFunc      [4]Enum
	blendEquation  [2]Enum
	colorMask      [4]bool
	depthMask      bool
	depthFunc      Enum
	cullFace       Enum
	frontFace      Enum
	polygonMode    Enum
	polygonOffset  [2]float32
	stencil        [2]stencilFaceState
	lastStateValid bool
	last           graphics.StateDesc
}

// newGLState returns the cache of a fresh context, which starts in the GL
// default state.
func newGLState(f Functions, caps graphics.Caps) *glState {
	s := &glState{
		f:              f,
		stats:          &graphics.Stats{},
		hasPolygonMode: caps.Has(graphics.FeaturePolygonMode),
		hasDepthClamp:  caps.Has(graphics.FeatureDepthClamp),
		hasSamplers:    caps.Has(graphics.FeatureSamplerObject),
		vaos:           map[VertexArray]*vertexArrayState{0: {}},
		activeUnit:     TEXTURE0,
		depthRange:     [2]float32{0, 1},
		clearDepth:     1,
		enabled:        make(map[Enum]bool),
		blendFunc:      [4]Enum{ONE, ZERO, ONE, ZERO},
		blendEquation:  [2]Enum{FUNC_ADD, FUNC_ADD},
		colorMask:      [4]bool{true, true, true, true},
		depthMask:      true,
		depthFunc:      LESS,
		cullFace:       BACK,
		frontFace:      CCW,
		polygonMode:    FILL,
	}
	for i := range s.stencil {
		s.stencil[i] = stencilFaceState{
			fn:        ALWAYS,
			readMask:  0xFFFFFFFF,
			fail:      KEEP,
			depthFail: KEEP,
			pass:      KEEP,
			writeMask: 0xFFFFFFFF,
		}
	}
	for i := range s.units {
		s.units[i].binds = make(map[Enum]Texture)
	}
	return s
}

// changed counts a state transition and reports whether it must be emitted.
func (s *glState) changed(differs bool) bool {
	if differs {
		s.stats.StateChanges++
	} else {
		s.stats.SkippedStateChanges++
	}
	return differs
}

func (s *glState) useProgram(p Program) {
	if s.changed(p != s.prog) {
		s.f.UseProgram(p)
		s.prog = p
	}
}

func (s *glState) bindVertexArray(a VertexArray) {
	if s.changed(a != s.vertArray) {
		s.f.BindVertexArray(a)
		s.vertArray = a
	}
	if _, ok := s.vaos[a]; !ok {
		s.vaos[a] = &vertexArrayState{}
	}
}

func (s *glState) currentVertexArray() *vertexArrayState {
	return s.vaos[s.vertArray]
}

func (s *glState) bindBuffer(target Enum, buf Buffer) {
	switch target {
	case ARRAY_BUFFER:
		if !s.changed(buf != s.arrayBuf) {
			return
		}
		s.arrayBuf = buf
	case ELEMENT_ARRAY_BUFFER:
		va := s.currentVertexArray()
		if !s.changed(buf != va.elemBuf) {
			return
		}
		va.elemBuf = buf
	case UNIFORM_BUFFER:
		if !s.changed(buf != s.uniBuf) {
			return
		}
		s.uniBuf = buf
	default:
		panic("unknown buffer target")
	}
	s.f.BindBuffer(target, buf)
}

func (s *glState) bindBufferBase(target Enum, index uint32, buf Buffer) {
	if target != UNIFORM_BUFFER {
		panic("unknown buffer base target")
	}
	if !s.changed(buf != s.uniBuf || buf != s.uniBufs[index]) {
		return
	}
	s.uniBuf = buf
	s.uniBufs[index] = buf
	s.f.BindBufferBase(target, index, buf)
}

func (s *glState) bindFramebuffer(target Enum, fbo Framebuffer) {
	switch target {
	case FRAMEBUFFER:
		if !s.changed(fbo != s.drawFBO || fbo != s.readFBO) {
			return
		}
		s.drawFBO = fbo
		s.readFBO = fbo
	case READ_FRAMEBUFFER:
		if !s.changed(fbo != s.readFBO) {
			return
		}
		s.readFBO = fbo
	case DRAW_FRAMEBUFFER:
		if !s.changed(fbo != s.drawFBO) {
			return
		}
		s.drawFBO = fbo
	default:
		panic("unknown framebuffer target")
	}
	s.f.BindFramebuffer(target, fbo)
}

func (s *glState) activeTexture(unit Enum) {
	if s.changed(unit != s.activeUnit) {
		s.f.ActiveTexture(unit)
		s.activeUnit = unit
	}
}

func (s *glState) bindTexture(unit int, target Enum, t Texture) {
	if s.units[unit].binds[target] == t {
		s.stats.SkippedStateChanges++
		return
	}
	s.activeTexture(TEXTURE0 + Enum(unit))
	s.stats.StateChanges++
	s.f.BindTexture(target, t)
	s.units[unit].binds[target] = t
}

func (s *glState) bindSampler(unit int, smp Sampler) {
	if s.changed(smp != s.units[unit].sampler) {
		s.f.BindSampler(uint32(unit), smp)
		s.units[unit].sampler = smp
	}
}

func (s *glState) setVertexAttribArray(a Attrib, enabled bool) {
	attr := &s.currentVertexArray().attribs[a]
	if !s.changed(enabled != attr.enabled) {
		return
	}
	if enabled {
		s.f.EnableVertexAttribArray(a)
	} else {
		s.f.DisableVertexAttribArray(a)
	}
	attr.enabled = enabled
}

func (s *glState) vertexAttribPointer(buf Buffer, a Attrib, size int32, ty Enum, normalized bool, stride int32, offset int) {
	attr := &s.currentVertexArray().attribs[a]
	next := attribState{
		enabled:    attr.enabled,
		buf:        buf,
		size:       size,
		ty:         ty,
		normalized: normalized,
		stride:     stride,
		offset:     offset,
		divisor:    attr.divisor,
	}
	if !s.changed(next != *attr) {
		return
	}
	s.bindBuffer(ARRAY_BUFFER, buf)
	s.f.VertexAttribPointer(a, size, ty, normalized, stride, offset)
	*attr = next
}

func (s *glState) vertexAttribDivisor(a Attrib, divisor uint32) {
	attr := &s.currentVertexArray().attribs[a]
	if s.changed(divisor != attr.divisor) {
		s.f.VertexAttribDivisor(a, divisor)
		attr.divisor = divisor
	}
}

func (s *glState) setViewport(x, y, width, height int32) {
	view := [4]int32{x, y, width, height}
	if s.changed(!s.viewportSet || view != s.viewport) {
		s.f.Viewport(x, y, width, height)
		s.viewport = view
		s.viewportSet = true
	}
}

func (s *glState) setDepthRange(near, far float32) {
	r := [2]float32{near, far}
	if s.changed(r != s.depthRange) {
		s.f.DepthRangef(near, far)
		s.depthRange = r
	}
}

func (s *glState) setScissor(x, y, width, height int32) {
	box := [4]int32{x, y, width, height}
	if s.changed(!s.scissorSet || box != s.scissor) {
		s.f.Scissor(x, y, width, height)
		s.scissor = box
		s.scissorSet = true
	}
}

func (s *glState) setClearColor(r, g, b, a float32) {
	col := [4]float32{r, g, b, a}
	if s.changed(col != s.clearColor) {
		s.f.ClearColor(r, g, b, a)
		s.clearColor = col
	}
}

func (s *glState) setClearDepth(d float32) {
	if s.changed(d != s.clearDepth) {
		s.f.ClearDepthf(d)
		s.clearDepth = d
	}
}

func (s *glState) setClearStencil(v int32) {
	if s.changed(v != s.clearStencil) {
		s.f.ClearStencil(v)
		s.clearStencil = v
	}
}

func (s *glState) set(target Enum, enable bool) {
	if !s.changed(enable != s.enabled[target]) {
		return
	}
	if enable {
		s.f.Enable(target)
	} else {
		s.f.Disable(target)
	}
	s.enabled[target] = enable
}

func (s *glState) isEnabled(target Enum) bool {
	return s.enabled[target]
}

func (s *glState) setBlendFunc(srcRGB, dstRGB, srcA, dstA Enum) {
	fn := [4]Enum{srcRGB, dstRGB, srcA, dstA}
	if s.changed(fn != s.blendFunc) {
		s.f.BlendFuncSeparate(srcRGB, dstRGB, srcA, dstA)
		s.blendFunc = fn
	}
}

func (s *glState) setBlendEquation(modeRGB, modeA Enum) {
	eq := [2]Enum{modeRGB, modeA}
	if s.changed(eq != s.blendEquation) {
		s.f.BlendEquationSeparate(modeRGB, modeA)
		s.blendEquation = eq
	}
}

func (s *glState) setColorMask(r, g, b, a bool) {
	m := [4]bool{r, g, b, a}
	if s.changed(m != s.colorMask) {
		s.f.ColorMask(r, g, b, a)
		s.colorMask = m
	}
}

func (s *glState) setDepthMask(enable bool) {
	if s.changed(enable != s.depthMask) {
		s.f.DepthMask(enable)
		s.depthMask = enable
	}
}

func (s *glState) setDepthFunc(fn Enum) {
	if s.changed(fn != s.depthFunc) {
		s.f.DepthFunc(fn)
		s.depthFunc = fn
	}
}

func (s *glState) setCullFace(mode Enum) {
	if s.changed(mode != s.cullFace) {
		s.f.CullFace(mode)
		s.cullFace = mode
	}
}

func (s *glState) setFrontFace(mode Enum) {
	if s.changed(mode != s.frontFace) {
		s.f.FrontFace(mode)
		s.frontFace = mode
	}
}

func (s *glState) setPolygonMode(mode Enum) {
	if s.changed(mode != s.polygonMode) {
		s.f.PolygonMode(FRONT_AND_BACK, mode)
		s.polygonMode = mode
	}
}

func (s *glState) setPolygonOffset(factor, units float32) {
	o := [2]float32{factor, units}
	if s.changed(o != s.polygonOffset) {
		s.f.PolygonOffset(factor, units)
		s.polygonOffset = o
	}
}

var stencilFaces = [2]Enum{FRONT, BACK}

func (s *glState) setStencilFunc(face int, fn Enum, ref int32, mask uint32) {
	st := &s.stencil[face]
	if s.changed(fn != st.fn || ref != st.ref || mask != st.readMask) {
		s.f.StencilFuncSeparate(stencilFaces[face], fn, ref, mask)
		st.fn, st.ref, st.readMask = fn, ref, mask
	}
}

func (s *glState) setStencilOp(face int, fail, depthFail, pass Enum) {
	st := &s.stencil[face]
	if s.changed(fail != st.fail || depthFail != st.depthFail || pass != st.pass) {
		s.f.StencilOpSeparate(stencilFaces[face], fail, depthFail, pass)
		st.fail, st.depthFail, st.pass = fail, depthFail, pass
	}
}

func (s *glState) setStencilMask(face int, mask uint32) {
	st := &s.stencil[face]
	if s.changed(mask != st.writeMask) {
		s.f.StencilMaskSeparate(stencilFaces[face], mask)
		st.writeMask = mask
	}
}

// apply diffs d against the cached native state field by field.
func (s *glState) apply(d graphics.StateDesc) {
	s.set(BLEND, d.Blend.Enable)
	if d.Blend.Enable {
		s.setBlendFunc(blendFactor(d.Blend.SrcColor), blendFactor(d.Blend.DstColor),
			blendFactor(d.Blend.SrcAlpha), blendFactor(d.Blend.DstAlpha))
		s.setBlendEquation(blendOp(d.Blend.ColorOp), blendOp(d.Blend.AlphaOp))
	}
	m := d.Blend.WriteMask
	s.setColorMask(m&graphics.ColorMaskR != 0, m&graphics.ColorMaskG != 0, m&graphics.ColorMaskB != 0, m&graphics.ColorMaskA != 0)

	s.set(CULL_FACE, d.Cull != graphics.CullModeNone)
	if d.Cull != graphics.CullModeNone {
		s.setCullFace(cullFace(d.Cull))
	}
	s.setFrontFace(frontFace(d.FrontFace))
	if s.hasPolygonMode {
		s.setPolygonMode(polygonMode(d.Polygon))
	}
	s.set(SCISSOR_TEST, d.ScissorTest)

	s.set(DEPTH_TEST, d.DepthTest)
	s.setDepthMask(d.DepthWrite)
	if d.DepthTest {
		s.setDepthFunc(compareFunc(d.DepthFunc))
	}
	s.set(POLYGON_OFFSET_FILL, d.DepthBiasEnable)
	if d.DepthBiasEnable {
		s.setPolygonOffset(d.DepthSlopeScale, d.DepthBias)
	}
	if s.hasDepthClamp {
		s.set(DEPTH_CLAMP, d.DepthClamp)
	}

	s.set(STENCIL_TEST, d.StencilTest)
	for i, face := range [2]graphics.StencilFaceDesc{d.StencilFront, d.StencilBack} {
		if d.StencilTest {
			s.setStencilFunc(i, compareFunc(face.Func), int32(face.Ref), face.ReadMask)
			s.setStencilOp(i, stencilOp(face.Fail), stencilOp(face.DepthFail), stencilOp(face.Pass))
		}
		s.setStencilMask(i, face.WriteMask)
	}
	s.last = d
	s.lastStateValid = true
}

func (s *glState) deleteBuffer(b Buffer) {
	s.f.DeleteBuffer(b)
	if b == s.arrayBuf {
		s.arrayBuf = 0
	}
	if b == s.uniBuf {
		s.uniBuf = 0
	}
	for i, b2 := range s.uniBufs {
		if b == b2 {
			s.uniBufs[i] = 0
		}
	}
	for _, va := range s.vaos {
		if b == va.elemBuf {
			va.elemBuf = 0
		}
		for i := range va.attribs {
			if b == va.attribs[i].buf {
				va.attribs[i].buf = 0
			}
		}
	}
}

func (s *glState) deleteTexture(t Texture) {
	s.f.DeleteTexture(t)
	for i := range s.units {
		for target, bound := range s.units[i].binds {
			if bound == t {
				s.units[i].binds[target] = 0
			}
		}
	}
}

func (s *glState) deleteSampler(smp Sampler) {
	s.f.DeleteSampler(smp)
	for i := range s.units {
		if s.units[i].sampler == smp {
			s.units[i].sampler = 0
		}
	}
}

func (s *glState) deleteFramebuffer(fbo Framebuffer) {
	s.f.DeleteFramebuffer(fbo)
	if fbo == s.drawFBO {
		s.drawFBO = 0
	}
	if fbo == s.readFBO {
		s.readFBO = 0
	}
}

func (s *glState) deleteProgram(p Program) {
	s.f.DeleteProgram(p)
	if p == s.prog {
		s.prog = 0
	}
}

func (s *glState) deleteVertexArray(a VertexArray) {
	s.f.DeleteVertexArray(a)
	delete(s.vaos, a)
	if a == s.vertArray {
		s.vertArray = 0
	}
}
