package opengl

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

const maxVertexBuffers = 16

type vertexBinding struct {
	data   *data
	offset uint32
}

/**
 * @brief Records into the single GL context of the device. Bindings are
 * remembered here and applied lazily before the next draw, through the
 * device state cache.
 */
type context struct {
	graphics.RefCount
	dev       *Device
	swapchain *swapchain
	guard     graphics.Guard
	recording bool
	stats     graphics.Stats

	viewport       graphics.Viewport
	scissor        graphics.Scissor
	stencilCompare [2]uint32
	stencilRef     [2]uint32
	stencilWrite   [2]uint32

	pipeline      *pipeline
	set           *descriptorSet
	setVersion    uint64
	vertexBuffers [maxVertexBuffers]vertexBinding
	indexBuffer   *data
	indexOffset   uint32
	indexType     graphics.IndexType
	framebuffer   *framebuffer

	needUpdateState      bool
	needUpdateLayout     bool
	needUpdateDescriptor bool
	captured             graphics.StateDesc
}

var _ graphics.Context = (*context)(nil)

func (d *Device) CreateContext(desc graphics.ContextDesc) (graphics.Context, error) {
	sc, ok := desc.Swapchain.(*swapchain)
	if !ok || sc.dev != d {
		return nil, fmt.Errorf("%w: context needs a swapchain of this device", graphics.ErrInvalidDesc)
	}
	sc.Retain()
	c := &context{
		dev:       d,
		swapchain: sc,
		guard:     graphics.Guard{Debug: d.desc.Debug},
		captured:  graphics.DefaultStateDesc(),
	}
	c.InitRefs(func() {
		c.unbindAll()
		sc.Release()
	})
	return c, nil
}

func (c *context) unbindAll() {
	c.bindPipeline(nil)
	c.bindSet(nil)
	for i := range c.vertexBuffers {
		c.bindVertexBuffer(uint8(i), nil, 0)
	}
	c.bindIndexBuffer(nil, 0, graphics.IndexTypeNone)
	c.bindFramebuffer(nil)
}

func (c *context) recordingCheck(op string) bool {
	return c.guard.Check(c.recording, op, graphics.ErrNotRecording)
}

func (c *context) RenderBegin() {
	if c.recording {
		c.guard.Fail("RenderBegin", graphics.ErrAlreadyRecording)
		return
	}
	c.guard.Reset()
	c.stats = graphics.Stats{}
	c.dev.state.stats = &c.stats
	c.recording = true
	// another context, or resource creation, may have moved the native
	// state since this context last flushed
	c.needUpdateState = true
	c.needUpdateLayout = true
	c.needUpdateDescriptor = true
	c.SetFramebuffer(nil)
}

func (c *context) RenderEnd() {
	if !c.guard.Check(c.recording, "RenderEnd", graphics.ErrNotRecording) {
		return
	}
	c.recording = false
	if c.dev.desc.Debug {
		_ = c.dev.checkError("frame")
	}
}

func (c *context) IsRecording() bool {
	return c.recording
}

func (c *context) SetViewport(v graphics.Viewport) {
	if !c.recordingCheck("SetViewport") {
		return
	}
	c.viewport = v
	st := c.dev.state
	st.setViewport(int32(v.X), int32(v.Y), int32(v.Width), int32(v.Height))
	st.setDepthRange(v.MinDepth, v.MaxDepth)
}

func (c *context) Viewport() graphics.Viewport {
	return c.viewport
}

func (c *context) SetScissor(s graphics.Scissor) {
	if !c.recordingCheck("SetScissor") {
		return
	}
	c.scissor = s
	c.dev.state.setScissor(s.X, s.Y, int32(s.Width), int32(s.Height))
}

func (c *context) Scissor() graphics.Scissor {
	return c.scissor
}

func faceIndex(face graphics.StencilFaceFlags) int {
	if face&graphics.StencilFaceFront != 0 {
		return 0
	}
	return 1
}

func (c *context) setStencil(op string, values *[2]uint32, face graphics.StencilFaceFlags, v uint32) {
	if !c.recordingCheck(op) {
		return
	}
	if face&graphics.StencilFaceFront != 0 {
		values[0] = v
	}
	if face&graphics.StencilFaceBack != 0 {
		values[1] = v
	}
	c.needUpdateState = true
}

func (c *context) SetStencilCompareMask(face graphics.StencilFaceFlags, mask uint32) {
	c.setStencil("SetStencilCompareMask", &c.stencilCompare, face, mask)
}

func (c *context) StencilCompareMask(face graphics.StencilFaceFlags) uint32 {
	return c.stencilCompare[faceIndex(face)]
}

func (c *context) SetStencilReference(face graphics.StencilFaceFlags, reference uint32) {
	c.setStencil("SetStencilReference", &c.stencilRef, face, reference)
}

func (c *context) StencilReference(face graphics.StencilFaceFlags) uint32 {
	return c.stencilRef[faceIndex(face)]
}

func (c *context) SetStencilWriteMask(face graphics.StencilFaceFlags, mask uint32) {
	c.setStencil("SetStencilWriteMask", &c.stencilWrite, face, mask)
}

func (c *context) StencilWriteMask(face graphics.StencilFaceFlags) uint32 {
	return c.stencilWrite[faceIndex(face)]
}

func (c *context) bindPipeline(p *pipeline) {
	if p != nil {
		p.Retain()
	}
	if c.pipeline != nil {
		c.pipeline.Release()
	}
	c.pipeline = p
}

func (c *context) SetPipeline(p graphics.Pipeline) {
	if !c.recordingCheck("SetPipeline") {
		return
	}
	var pl *pipeline
	if p != nil {
		var ok bool
		if pl, ok = p.(*pipeline); !ok || pl.dev != c.dev {
			c.guard.Fail("SetPipeline", graphics.ErrWrongDevice)
			return
		}
	}
	if pl == c.pipeline {
		return
	}
	c.bindPipeline(pl)
	if pl != nil {
		// dynamic stencil values start from the pipeline state
		front, back := pl.state.StencilFront, pl.state.StencilBack
		c.stencilCompare = [2]uint32{front.ReadMask, back.ReadMask}
		c.stencilRef = [2]uint32{front.Ref, back.Ref}
		c.stencilWrite = [2]uint32{front.WriteMask, back.WriteMask}
	}
	c.needUpdateState = true
	c.needUpdateLayout = true
	c.needUpdateDescriptor = true
}

func (c *context) Pipeline() graphics.Pipeline {
	if c.pipeline == nil {
		return nil
	}
	return c.pipeline
}

func (c *context) bindSet(s *descriptorSet) {
	if s != nil {
		s.Retain()
	}
	if c.set != nil {
		c.set.Release()
	}
	c.set = s
}

func (c *context) SetDescriptorSet(set graphics.DescriptorSet) {
	if !c.recordingCheck("SetDescriptorSet") {
		return
	}
	var s *descriptorSet
	if set != nil {
		var ok bool
		if s, ok = set.(*descriptorSet); !ok {
			c.guard.Fail("SetDescriptorSet", graphics.ErrWrongDevice)
			return
		}
	}
	if s == c.set {
		return
	}
	c.bindSet(s)
	c.needUpdateDescriptor = true
}

func (c *context) DescriptorSet() graphics.DescriptorSet {
	if c.set == nil {
		return nil
	}
	return c.set
}

func (c *context) bindVertexBuffer(slot uint8, b *data, offset uint32) {
	vb := &c.vertexBuffers[slot]
	if b != nil {
		b.Retain()
	}
	if vb.data != nil {
		vb.data.Release()
	}
	vb.data, vb.offset = b, offset
}

func (c *context) SetVertexBufferData(slot uint8, d graphics.Data, offset uint32) {
	if !c.recordingCheck("SetVertexBufferData") {
		return
	}
	if int(slot) >= maxVertexBuffers {
		c.guard.Fail("SetVertexBufferData", fmt.Errorf("%w: vertex buffer slot %d", graphics.ErrInvalidDesc, slot))
		return
	}
	var b *data
	if d != nil {
		var ok bool
		if b, ok = d.(*data); !ok || b.dev != c.dev {
			c.guard.Fail("SetVertexBufferData", graphics.ErrWrongDevice)
			return
		}
		if b.desc.Type != graphics.DataTypeVertex {
			c.guard.Fail("SetVertexBufferData", fmt.Errorf("%w: buffer is not vertex data", graphics.ErrInvalidDesc))
			return
		}
	}
	vb := c.vertexBuffers[slot]
	if vb.data == b && vb.offset == offset {
		return
	}
	c.bindVertexBuffer(slot, b, offset)
	c.needUpdateLayout = true
}

func (c *context) VertexBufferData(slot uint8) graphics.Data {
	if int(slot) >= maxVertexBuffers || c.vertexBuffers[slot].data == nil {
		return nil
	}
	return c.vertexBuffers[slot].data
}

func (c *context) bindIndexBuffer(b *data, offset uint32, t graphics.IndexType) {
	if b != nil {
		b.Retain()
	}
	if c.indexBuffer != nil {
		c.indexBuffer.Release()
	}
	c.indexBuffer, c.indexOffset, c.indexType = b, offset, t
}

func (c *context) SetIndexBufferData(d graphics.Data, offset uint32, t graphics.IndexType) {
	if !c.recordingCheck("SetIndexBufferData") {
		return
	}
	var b *data
	if d != nil {
		var ok bool
		if b, ok = d.(*data); !ok || b.dev != c.dev {
			c.guard.Fail("SetIndexBufferData", graphics.ErrWrongDevice)
			return
		}
		if b.desc.Type != graphics.DataTypeIndex {
			c.guard.Fail("SetIndexBufferData", fmt.Errorf("%w: buffer is not index data", graphics.ErrInvalidDesc))
			return
		}
		if t == graphics.IndexTypeNone {
			t = graphics.IndexTypeUInt16
		}
		if t == graphics.IndexTypeUInt32 && !c.dev.profile.Caps.Has(graphics.FeatureUInt32Index) {
			c.guard.Fail("SetIndexBufferData", fmt.Errorf("%w: %s", graphics.ErrUnsupportedFeature, graphics.FeatureUInt32Index))
			return
		}
	}
	if b == c.indexBuffer && offset == c.indexOffset && t == c.indexType {
		return
	}
	c.bindIndexBuffer(b, offset, t)
	c.needUpdateLayout = true
}

func (c *context) IndexBufferData() graphics.Data {
	if c.indexBuffer == nil {
		return nil
	}
	return c.indexBuffer
}

func (c *context) checkDraw(draw graphics.Indirect) bool {
	const op = "DrawRenderMesh"
	if !c.recordingCheck(op) {
		return false
	}
	p := c.pipeline
	if !c.guard.Check(p != nil, op, graphics.ErrNoPipeline) {
		return false
	}
	for _, slot := range p.slots {
		if c.vertexBuffers[slot].data == nil {
			c.guard.Fail(op, fmt.Errorf("%w: slot %d", graphics.ErrNoVertexBuffer, slot))
			return false
		}
	}
	if draw.IndexCount > 0 && !c.guard.Check(c.indexBuffer != nil, op, graphics.ErrNoIndexBuffer) {
		return false
	}
	caps := c.dev.profile.Caps
	if draw.Instances() > 1 && !caps.Has(graphics.FeatureInstancing) {
		c.guard.Fail(op, fmt.Errorf("%w: %s", graphics.ErrUnsupportedFeature, graphics.FeatureInstancing))
		return false
	}
	if draw.FirstInstance > 0 || draw.VertexOffset != 0 {
		c.guard.Fail(op, fmt.Errorf("%w: base instance and base vertex", graphics.ErrUnsupportedFeature))
		return false
	}
	return true
}

func (c *context) DrawRenderMesh(draw graphics.Indirect) {
	if !c.checkDraw(draw) {
		return
	}
	c.flush()
	c.draw(draw)
	if c.dev.desc.Debug {
		_ = c.dev.checkError("draw")
	}
}

func (c *context) DrawRenderMeshes(draws []graphics.Indirect) {
	for _, draw := range draws {
		c.DrawRenderMesh(draw)
	}
}

func (c *context) draw(draw graphics.Indirect) {
	f := c.dev.f
	mode := primitive(c.pipeline.state.Topology)
	instances := int32(draw.Instances())
	if draw.IndexCount > 0 {
		offset := int(c.indexOffset + draw.FirstIndex*c.indexType.Size())
		ty := indexType(c.indexType)
		if instances > 1 {
			f.DrawElementsInstanced(mode, int32(draw.IndexCount), ty, offset, instances)
		} else {
			f.DrawElements(mode, int32(draw.IndexCount), ty, offset)
		}
	} else {
		if instances > 1 {
			f.DrawArraysInstanced(mode, int32(draw.FirstVertex), int32(draw.VertexCount), instances)
		} else {
			f.DrawArrays(mode, int32(draw.FirstVertex), int32(draw.VertexCount))
		}
	}
	c.stats.DrawCalls++
}

// flush applies whatever changed since the last draw.
func (c *context) flush() {
	p := c.pipeline
	st := c.dev.state
	if c.needUpdateState {
		st.useProgram(p.program.id)
		d := p.state
		d.StencilFront.ReadMask, d.StencilBack.ReadMask = c.stencilCompare[0], c.stencilCompare[1]
		d.StencilFront.Ref, d.StencilBack.Ref = c.stencilRef[0], c.stencilRef[1]
		d.StencilFront.WriteMask, d.StencilBack.WriteMask = c.stencilWrite[0], c.stencilWrite[1]
		st.apply(d)
		c.captured = d
		c.needUpdateState = false
	}
	if c.needUpdateLayout {
		c.flushLayout()
		c.needUpdateLayout = false
	}
	if c.set != nil && (c.needUpdateDescriptor || c.set.version != c.setVersion) {
		c.flushDescriptors()
		c.setVersion = c.set.version
	}
	c.needUpdateDescriptor = false
}

func (c *context) flushLayout() {
	p := c.pipeline
	st := c.dev.state
	switch {
	case p.vao != 0:
		st.bindVertexArray(p.vao)
	case c.dev.emptyVAO != 0:
		st.bindVertexArray(c.dev.emptyVAO)
	}
	instancing := c.dev.profile.Caps.Has(graphics.FeatureInstancing)
	var used [maxVertexAttribs]bool
	for _, a := range p.attribs {
		vb := c.vertexBuffers[a.slot]
		st.vertexAttribPointer(vb.data.id, a.loc, a.format.Size, a.format.Type, a.format.Normalized, a.stride, int(vb.offset+a.offset))
		st.setVertexAttribArray(a.loc, true)
		if instancing {
			st.vertexAttribDivisor(a.loc, a.divisor)
		}
		used[a.loc] = true
	}
	va := st.currentVertexArray()
	for i := range used {
		if !used[i] && va.attribs[i].enabled {
			st.setVertexAttribArray(Attrib(i), false)
		}
	}
	if c.indexBuffer != nil {
		st.bindBuffer(ELEMENT_ARRAY_BUFFER, c.indexBuffer.id)
	}
}

func (c *context) flushDescriptors() {
	f := c.dev.f
	st := c.dev.state
	prog := c.pipeline.program
	uniforms := c.set.layout.desc.Uniforms
	for i, u := range uniforms {
		v := &c.set.values[i]
		if !v.set {
			continue
		}
		if u.Type == graphics.UniformBuffer {
			st.bindBufferBase(UNIFORM_BUFFER, u.Binding, v.buffer.id)
			continue
		}
		pu, ok := prog.uniforms[u.Name]
		if !ok {
			continue
		}
		switch u.Type {
		case graphics.UniformFloat:
			f.Uniform1f(pu.loc, v.scalar[0])
		case graphics.UniformInt:
			f.Uniform1i(pu.loc, v.integer)
		case graphics.UniformVec2:
			f.Uniform2f(pu.loc, v.scalar[0], v.scalar[1])
		case graphics.UniformVec3:
			f.Uniform3f(pu.loc, v.scalar[0], v.scalar[1], v.scalar[2])
		case graphics.UniformVec4:
			f.Uniform4f(pu.loc, v.scalar[0], v.scalar[1], v.scalar[2], v.scalar[3])
		case graphics.UniformMat4:
			f.UniformMatrix4fv(pu.loc, v.scalar[:])
		case graphics.UniformTexture:
			if pu.unit >= 0 {
				c.bindTexture(pu.unit, v.texture, v.sampler)
			}
		}
	}
}

func (c *context) bindTexture(unit int, tex *texture, smp *sampler) {
	st := c.dev.state
	st.bindTexture(unit, tex.target, tex.id)
	if st.hasSamplers {
		var id Sampler
		if smp != nil {
			id = smp.id
		}
		st.bindSampler(unit, id)
		return
	}
	if smp != nil {
		// no sampler objects, the texture carries the sampling state
		st.activeTexture(TEXTURE0 + Enum(unit))
		d := smp.desc
		c.dev.setTextureParams(tex.target, d.Wrap, d.MinFilter, d.MagFilter, d.Anisotropy, tex.desc.Dim)
	}
}

func (c *context) bindFramebuffer(fb *framebuffer) {
	if fb != nil {
		fb.Retain()
	}
	if c.framebuffer != nil {
		c.framebuffer.Release()
	}
	c.framebuffer = fb
}

func (c *context) SetFramebuffer(target graphics.Framebuffer) {
	if !c.recordingCheck("SetFramebuffer") {
		return
	}
	fb := c.swapchain.target
	if target != nil {
		var ok bool
		if fb, ok = target.(*framebuffer); !ok || fb.dev != c.dev {
			c.guard.Fail("SetFramebuffer", graphics.ErrWrongDevice)
			return
		}
	}
	c.bindFramebuffer(fb)
	c.dev.state.bindFramebuffer(FRAMEBUFFER, fb.id)
	w, h := fb.desc.Width, fb.desc.Height
	c.SetViewport(graphics.FullViewport(w, h))
	c.SetScissor(graphics.Scissor{Width: w, Height: h})
}

func (c *context) Framebuffer() graphics.Framebuffer {
	if c.framebuffer == nil {
		return nil
	}
	return c.framebuffer
}

// writeMasks is the native write mask state a clear overrides.
type writeMasks struct {
	color   [4]bool
	depth   bool
	stencil [2]uint32
	scissor bool
}

func (c *context) openMasks(flags graphics.ClearFlags) writeMasks {
	st := c.dev.state
	saved := writeMasks{
		color:   st.colorMask,
		depth:   st.depthMask,
		stencil: [2]uint32{st.stencil[0].writeMask, st.stencil[1].writeMask},
		scissor: st.isEnabled(SCISSOR_TEST),
	}
	if flags&graphics.ClearColor != 0 {
		st.setColorMask(true, true, true, true)
	}
	if flags&graphics.ClearDepth != 0 {
		st.setDepthMask(true)
	}
	if flags&graphics.ClearStencil != 0 {
		st.setStencilMask(0, 0xFFFFFFFF)
		st.setStencilMask(1, 0xFFFFFFFF)
	}
	st.set(SCISSOR_TEST, false)
	return saved
}

func (c *context) restoreMasks(m writeMasks) {
	st := c.dev.state
	st.setColorMask(m.color[0], m.color[1], m.color[2], m.color[3])
	st.setDepthMask(m.depth)
	st.setStencilMask(0, m.stencil[0])
	st.setStencilMask(1, m.stencil[1])
	st.set(SCISSOR_TEST, m.scissor)
}

func (c *context) ClearFramebuffer(flags graphics.ClearFlags, color mgl32.Vec4, depth float32, stencil uint32) {
	if !c.recordingCheck("ClearFramebuffer") || flags == 0 {
		return
	}
	st := c.dev.state
	if flags&graphics.ClearColor != 0 {
		st.setClearColor(color[0], color[1], color[2], color[3])
	}
	if flags&graphics.ClearDepth != 0 {
		st.setClearDepth(depth)
	}
	if flags&graphics.ClearStencil != 0 {
		st.setClearStencil(int32(stencil))
	}
	saved := c.openMasks(flags)
	c.dev.f.Clear(clearMask(flags))
	c.restoreMasks(saved)
}

func (c *context) ClearFramebufferIndexed(attachment uint32, flags graphics.ClearFlags, color mgl32.Vec4, depth float32, stencil uint32) {
	const op = "ClearFramebufferIndexed"
	if !c.recordingCheck(op) || flags == 0 {
		return
	}
	if !c.dev.profile.Caps.Has(graphics.FeatureClearBuffer) {
		if attachment != 0 {
			c.guard.Fail(op, fmt.Errorf("%w: %s", graphics.ErrUnsupportedFeature, graphics.FeatureClearBuffer))
			return
		}
		c.ClearFramebuffer(flags, color, depth, stencil)
		return
	}
	if int(attachment) >= max(c.framebuffer.colors, 1) {
		c.guard.Fail(op, fmt.Errorf("%w: attachment %d", graphics.ErrInvalidDesc, attachment))
		return
	}
	f := c.dev.f
	saved := c.openMasks(flags)
	if flags&graphics.ClearColor != 0 {
		f.ClearBufferfv(COLOR, int32(attachment), color[:])
	}
	switch flags & graphics.ClearDepthStencil {
	case graphics.ClearDepthStencil:
		f.ClearBufferfi(DEPTH_STENCIL, 0, depth, int32(stencil))
	case graphics.ClearDepth:
		f.ClearBufferfv(DEPTH, 0, []float32{depth})
	case graphics.ClearStencil:
		c.dev.state.setClearStencil(int32(stencil))
		f.Clear(STENCIL_BUFFER_BIT)
	}
	c.restoreMasks(saved)
}

func (c *context) DiscardFramebuffer(flags graphics.ClearFlags) {
	if !c.recordingCheck("DiscardFramebuffer") || flags == 0 || !c.dev.profile.Invalidate {
		return
	}
	fb := c.framebuffer
	var attachments []Enum
	if fb.id == 0 {
		if flags&graphics.ClearColor != 0 {
			attachments = append(attachments, COLOR)
		}
		if flags&graphics.ClearDepth != 0 {
			attachments = append(attachments, DEPTH)
		}
		if flags&graphics.ClearStencil != 0 {
			attachments = append(attachments, STENCIL)
		}
	} else {
		if flags&graphics.ClearColor != 0 {
			for i := 0; i < fb.colors; i++ {
				attachments = append(attachments, COLOR_ATTACHMENT0+Enum(i))
			}
		}
		if fb.depth != graphics.FormatUndefined && flags&graphics.ClearDepthStencil != 0 {
			attachments = append(attachments, depthAttachment(fb.depth))
		}
	}
	if len(attachments) > 0 {
		c.dev.f.InvalidateFramebuffer(FRAMEBUFFER, attachments)
	}
}

func (c *context) resolveFramebuffer(op string, target graphics.Framebuffer) (*framebuffer, bool) {
	if target == nil {
		return c.swapchain.target, true
	}
	fb, ok := target.(*framebuffer)
	if !ok || fb.dev != c.dev {
		c.guard.Fail(op, graphics.ErrWrongDevice)
		return nil, false
	}
	return fb, true
}

func (c *context) BlitFramebuffer(src graphics.Framebuffer, srcRect graphics.Rect, dst graphics.Framebuffer, dstRect graphics.Rect) {
	const op = "BlitFramebuffer"
	if !c.recordingCheck(op) {
		return
	}
	if !c.dev.profile.Caps.Has(graphics.FeatureBlit) {
		c.guard.Fail(op, fmt.Errorf("%w: %s", graphics.ErrUnsupportedFeature, graphics.FeatureBlit))
		return
	}
	from, ok := c.resolveFramebuffer(op, src)
	if !ok {
		return
	}
	to, ok := c.resolveFramebuffer(op, dst)
	if !ok {
		return
	}

	var mask Enum
	if from.colors > 0 && to.colors > 0 {
		mask |= COLOR_BUFFER_BIT
	}
	sameSize := srcRect.Width == dstRect.Width && srcRect.Height == dstRect.Height
	if from.depth != graphics.FormatUndefined && from.depth == to.depth && sameSize {
		if from.depth.IsDepth() {
			mask |= DEPTH_BUFFER_BIT
		}
		if from.depth.IsStencil() {
			mask |= STENCIL_BUFFER_BIT
		}
	}
	if mask == 0 {
		return
	}
	filter := Enum(NEAREST)
	if !sameSize && mask == COLOR_BUFFER_BIT {
		filter = LINEAR
	}

	st := c.dev.state
	prevDraw, prevRead := st.drawFBO, st.readFBO
	scissor := st.isEnabled(SCISSOR_TEST)
	st.set(SCISSOR_TEST, false)
	st.bindFramebuffer(READ_FRAMEBUFFER, from.id)
	st.bindFramebuffer(DRAW_FRAMEBUFFER, to.id)
	c.dev.f.BlitFramebuffer(
		srcRect.X, srcRect.Y, srcRect.X+int32(srcRect.Width), srcRect.Y+int32(srcRect.Height),
		dstRect.X, dstRect.Y, dstRect.X+int32(dstRect.Width), dstRect.Y+int32(dstRect.Height),
		mask, filter)
	st.bindFramebuffer(READ_FRAMEBUFFER, prevRead)
	st.bindFramebuffer(DRAW_FRAMEBUFFER, prevDraw)
	st.set(SCISSOR_TEST, scissor)
}

func (c *context) ReadFramebuffer(src graphics.Framebuffer, format graphics.Format, width, height uint32, out []byte) error {
	const op = "ReadFramebuffer"
	if !c.recordingCheck(op) {
		return graphics.ErrNotRecording
	}
	if !c.dev.profile.Caps.Has(graphics.FeatureReadFramebuffer) {
		return fmt.Errorf("%w: %s", graphics.ErrUnsupportedFeature, graphics.FeatureReadFramebuffer)
	}
	fb, ok := c.resolveFramebuffer(op, src)
	if !ok {
		return graphics.ErrWrongDevice
	}
	tf, ok := c.dev.profile.Formats[format]
	if !ok || format.IsCompressed() {
		return fmt.Errorf("%w: read back as %s", graphics.ErrUnsupportedFormat, format)
	}
	if need := format.ImageSize(width, height, 1); uint32(len(out)) < need {
		return fmt.Errorf("%w: read back needs %d bytes, got %d", graphics.ErrInvalidDesc, need, len(out))
	}
	if width > fb.desc.Width || height > fb.desc.Height {
		return fmt.Errorf("%w: read back %dx%d from %dx%d target", graphics.ErrInvalidDesc, width, height, fb.desc.Width, fb.desc.Height)
	}
	st := c.dev.state
	// OpenGL ES 2 has a single framebuffer binding
	target := Enum(READ_FRAMEBUFFER)
	prev := st.readFBO
	if !c.dev.profile.Caps.Has(graphics.FeatureBlit) {
		target = FRAMEBUFFER
	}
	st.bindFramebuffer(target, fb.id)
	c.dev.f.ReadPixels(0, 0, int32(width), int32(height), tf.Format, tf.Type, out)
	st.bindFramebuffer(target, prev)
	return c.dev.checkError(op)
}

func (c *context) Present() {
	c.swapchain.present()
}

func (c *context) CapturedState() graphics.StateDesc {
	return c.captured
}

func (c *context) Stats() graphics.Stats {
	return c.stats
}

func (c *context) Err() error {
	return c.guard.Err()
}
