package vulkan

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

const maxVertexBuffers = 16

type vertexBinding struct {
	data   *data
	offset uint32
}

// encodedState is what the current command buffer has recorded. It is lost
// whenever a new command buffer begins.
type encodedState struct {
	pipeline *pipeline

	height      uint32
	viewport    graphics.Viewport
	viewportSet bool
	scissor     graphics.Scissor
	scissorSet  bool

	stencilCompare [2]uint32
	stencilRef     [2]uint32
	stencilWrite   [2]uint32
	stencilSet     bool

	vertexBuffers [maxVertexBuffers]vertexBinding
	indexBuffer   *data
	indexOffset   uint32
	indexType     graphics.IndexType
}

/**
 * @brief Records one frame at a time into the command buffer of its
 * swapchain. Bindings are remembered here and encoded lazily before the next
 * draw, skipping whatever the command buffer already holds. Render passes
 * open at the first draw or clear on a target and close when the target
 * changes or the frame ends.
 */
type context struct {
	graphics.RefCount
	dev       *Device
	frames    frameTarget
	enc       encoder
	guard     graphics.Guard
	recording bool
	pending   bool
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

	// pass is the resolved target of the open render pass.
	pass    *framebuffer
	encoded encodedState

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
	c := newContext(d, sc)
	c.InitRefs(func() {
		c.unbindAll()
		sc.Release()
	})
	return c, nil
}

func newContext(d *Device, frames frameTarget) *context {
	return &context{
		dev:      d,
		frames:   frames,
		enc:      discardEncoder{},
		guard:    graphics.Guard{Debug: d.desc.Debug},
		captured: graphics.DefaultStateDesc(),
	}
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

func (c *context) invalidateEncoded() {
	c.encoded = encodedState{}
	c.needUpdateState = true
	c.needUpdateLayout = true
	c.needUpdateDescriptor = true
}

func (c *context) RenderBegin() {
	if c.recording {
		c.guard.Fail("RenderBegin", graphics.ErrAlreadyRecording)
		return
	}
	if c.pending {
		c.Present()
	}
	c.guard.Reset()
	c.stats = graphics.Stats{}
	enc, err := c.frames.acquire()
	switch {
	case errors.Is(err, errZeroArea), errors.Is(err, core.ErrSwapchainBooting):
		c.dev.log.Debug("frame dropped", "reason", err)
		enc = discardEncoder{}
	case err != nil:
		c.guard.Fail("RenderBegin", err)
		return
	}
	c.enc = enc
	c.recording = true
	c.invalidateEncoded()
	c.SetFramebuffer(nil)
}

func (c *context) RenderEnd() {
	if !c.guard.Check(c.recording, "RenderEnd", graphics.ErrNotRecording) {
		return
	}
	c.endPass()
	c.recording = false
	if err := c.frames.submit(); err != nil {
		c.guard.Fail("RenderEnd", err)
		return
	}
	c.pending = true
}

func (c *context) IsRecording() bool {
	return c.recording
}

// emitted counts a native command that was recorded, or skipped because the
// command buffer already had the value, and reports which.
func (c *context) emitted(changed bool) bool {
	if changed {
		c.stats.StateChanges++
	} else {
		c.stats.SkippedStateChanges++
	}
	return changed
}

func (c *context) SetViewport(v graphics.Viewport) {
	if !c.recordingCheck("SetViewport") {
		return
	}
	c.viewport = v
}

func (c *context) Viewport() graphics.Viewport {
	return c.viewport
}

func (c *context) SetScissor(s graphics.Scissor) {
	if !c.recordingCheck("SetScissor") {
		return
	}
	c.scissor = s
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
		if s, ok = set.(*descriptorSet); !ok || s.dev != c.dev {
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
		if t == graphics.IndexTypeUInt32 && !c.dev.caps.Has(graphics.FeatureUInt32Index) {
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
	if draw.Instances() > 1 && !c.dev.caps.Has(graphics.FeatureInstancing) {
		c.guard.Fail(op, fmt.Errorf("%w: %s", graphics.ErrUnsupportedFeature, graphics.FeatureInstancing))
		return false
	}
	return true
}

func (c *context) DrawRenderMesh(draw graphics.Indirect) {
	if !c.checkDraw(draw) || !c.flush("DrawRenderMesh") {
		return
	}
	c.enc.draw(draw)
	c.stats.DrawCalls++
}

func (c *context) DrawRenderMeshes(draws []graphics.Indirect) {
	for _, draw := range draws {
		c.DrawRenderMesh(draw)
	}
}

func (c *context) openPass(op string) bool {
	if c.pass != nil {
		return true
	}
	fb := c.framebuffer.resolve()
	if err := c.enc.beginPass(fb); err != nil {
		c.guard.Fail(op, err)
		return false
	}
	c.pass = fb
	return true
}

func (c *context) endPass() {
	if c.pass == nil {
		return
	}
	c.enc.endPass()
	c.pass = nil
}

// flush encodes whatever changed since the last draw.
func (c *context) flush(op string) bool {
	if !c.openPass(op) {
		return false
	}
	p := c.pipeline
	e := &c.encoded
	if c.emitted(e.pipeline != p) {
		c.enc.bindPipeline(p)
		e.pipeline = p
	}
	if c.needUpdateState {
		d := p.state
		d.StencilFront.ReadMask, d.StencilBack.ReadMask = c.stencilCompare[0], c.stencilCompare[1]
		d.StencilFront.Ref, d.StencilBack.Ref = c.stencilRef[0], c.stencilRef[1]
		d.StencilFront.WriteMask, d.StencilBack.WriteMask = c.stencilWrite[0], c.stencilWrite[1]
		c.flushStencil(e)
		c.captured = d
		c.needUpdateState = false
	}

	height := c.pass.desc.Height
	if c.emitted(!e.viewportSet || e.viewport != c.viewport || e.height != height) {
		c.enc.setViewport(c.viewport, height)
		e.viewport, e.viewportSet = c.viewport, true
	}
	scissor := graphics.Scissor{Width: c.pass.desc.Width, Height: height}
	if p.state.ScissorTest {
		scissor = c.scissor
	}
	if c.emitted(!e.scissorSet || e.scissor != scissor || e.height != height) {
		c.enc.setScissor(scissor, height)
		e.scissor, e.scissorSet = scissor, true
	}
	e.height = height

	if c.needUpdateLayout {
		for _, slot := range p.slots {
			vb := c.vertexBuffers[slot]
			if c.emitted(e.vertexBuffers[slot] != vb) {
				c.enc.bindVertexBuffer(slot, vb.data, vb.offset)
				e.vertexBuffers[slot] = vb
			}
		}
		if c.indexBuffer != nil {
			changed := e.indexBuffer != c.indexBuffer || e.indexOffset != c.indexOffset || e.indexType != c.indexType
			if c.emitted(changed) {
				c.enc.bindIndexBuffer(c.indexBuffer, c.indexOffset, c.indexType)
				e.indexBuffer, e.indexOffset, e.indexType = c.indexBuffer, c.indexOffset, c.indexType
			}
		}
		c.needUpdateLayout = false
	}

	if c.set != nil && (c.needUpdateDescriptor || c.set.version != c.setVersion) {
		var offsets []uint32
		if c.set.layout.hasBlock {
			offset, ok := c.dev.uniforms.push(c.set.block)
			if !ok {
				c.guard.Fail(op, fmt.Errorf("%w: uniform arena exhausted", graphics.ErrNative))
				return false
			}
			offsets = []uint32{offset}
		}
		if err := c.enc.bindDescriptorSet(p, c.set, offsets); err != nil {
			c.guard.Fail(op, err)
			return false
		}
		c.stats.StateChanges++
		c.setVersion = c.set.version
	}
	c.needUpdateDescriptor = false
	return true
}

func (c *context) flushStencil(e *encodedState) {
	emit := func(encoded *[2]uint32, want [2]uint32, set func(graphics.StencilFaceFlags, uint32)) {
		switch {
		case e.stencilSet && *encoded == want:
			c.emitted(false)
		case want[0] == want[1]:
			c.emitted(true)
			set(graphics.StencilFaceAll, want[0])
		default:
			c.emitted(true)
			set(graphics.StencilFaceFront, want[0])
			set(graphics.StencilFaceBack, want[1])
		}
		*encoded = want
	}
	emit(&e.stencilCompare, c.stencilCompare, c.enc.setStencilCompareMask)
	emit(&e.stencilWrite, c.stencilWrite, c.enc.setStencilWriteMask)
	emit(&e.stencilRef, c.stencilRef, c.enc.setStencilReference)
	e.stencilSet = true
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
	fb := c.frames.target()
	if target != nil {
		var ok bool
		if fb, ok = target.(*framebuffer); !ok || fb.dev != c.dev {
			c.guard.Fail("SetFramebuffer", graphics.ErrWrongDevice)
			return
		}
	}
	c.endPass()
	c.bindFramebuffer(fb)
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

func (c *context) ClearFramebuffer(flags graphics.ClearFlags, color mgl32.Vec4, depth float32, stencil uint32) {
	const op = "ClearFramebuffer"
	if !c.recordingCheck(op) || flags == 0 || !c.openPass(op) {
		return
	}
	var clears []attachmentClear
	if flags&graphics.ClearColor != 0 {
		for i := 0; i < c.pass.colorCount(); i++ {
			clears = append(clears, attachmentClear{color: true, attachment: uint32(i), value: color})
		}
	}
	if flags&graphics.ClearDepthStencil != 0 && c.pass.depthFormat() != graphics.FormatUndefined {
		clears = append(clears, attachmentClear{flags: flags, depth: depth, stencil: stencil})
	}
	c.enc.clear(c.pass, clears)
}

func (c *context) ClearFramebufferIndexed(attachment uint32, flags graphics.ClearFlags, color mgl32.Vec4, depth float32, stencil uint32) {
	const op = "ClearFramebufferIndexed"
	if !c.recordingCheck(op) || flags == 0 || !c.openPass(op) {
		return
	}
	colors := c.pass.colorCount()
	if int(attachment) >= max(colors, 1) {
		c.guard.Fail(op, fmt.Errorf("%w: attachment %d", graphics.ErrInvalidDesc, attachment))
		return
	}
	var clears []attachmentClear
	if flags&graphics.ClearColor != 0 && colors > 0 {
		clears = append(clears, attachmentClear{color: true, attachment: attachment, value: color})
	}
	if flags&graphics.ClearDepthStencil != 0 && c.pass.depthFormat() != graphics.FormatUndefined {
		clears = append(clears, attachmentClear{flags: flags, depth: depth, stencil: stencil})
	}
	c.enc.clear(c.pass, clears)
}

// DiscardFramebuffer is a hint, render passes always store their attachments.
func (c *context) DiscardFramebuffer(flags graphics.ClearFlags) {
	c.recordingCheck("DiscardFramebuffer")
}

func (c *context) resolveFramebuffer(op string, target graphics.Framebuffer) (*framebuffer, bool) {
	if target == nil {
		return c.frames.target().resolve(), true
	}
	fb, ok := target.(*framebuffer)
	if !ok || fb.dev != c.dev {
		c.guard.Fail(op, graphics.ErrWrongDevice)
		return nil, false
	}
	return fb.resolve(), true
}

func (c *context) BlitFramebuffer(src graphics.Framebuffer, srcRect graphics.Rect, dst graphics.Framebuffer, dstRect graphics.Rect) {
	const op = "BlitFramebuffer"
	if !c.recordingCheck(op) {
		return
	}
	if !c.dev.caps.Has(graphics.FeatureBlit) {
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
	color := from.colorCount() > 0 && to.colorCount() > 0
	sameSize := srcRect.Width == dstRect.Width && srcRect.Height == dstRect.Height
	depth := from.depthFormat() != graphics.FormatUndefined && from.depthFormat() == to.depthFormat() && sameSize
	if !color && !depth {
		return
	}
	// transfers cannot run inside a render pass, the next draw reopens it
	c.endPass()
	c.enc.blit(from, srcRect, to, dstRect, depth, color && !sameSize)
}

// readConversion reports whether pixels of format have can be returned as
// want, and whether the red and blue channels must be swapped to do so.
func readConversion(have, want graphics.Format) (swizzle, ok bool) {
	if have == want {
		return false, true
	}
	pairs := [][2]graphics.Format{
		{graphics.FormatB8G8R8A8Unorm, graphics.FormatR8G8B8A8Unorm},
		{graphics.FormatB8G8R8A8SRGB, graphics.FormatR8G8B8A8SRGB},
	}
	for _, p := range pairs {
		if (have == p[0] && want == p[1]) || (have == p[1] && want == p[0]) {
			return true, true
		}
	}
	return false, false
}

func swizzleRB(p []byte) {
	for i := 0; i+3 < len(p); i += 4 {
		p[i], p[i+2] = p[i+2], p[i]
	}
}

func (c *context) ReadFramebuffer(src graphics.Framebuffer, format graphics.Format, width, height uint32, out []byte) error {
	const op = "ReadFramebuffer"
	if !c.recordingCheck(op) {
		return graphics.ErrNotRecording
	}
	if !c.dev.caps.Has(graphics.FeatureReadFramebuffer) {
		return fmt.Errorf("%w: %s", graphics.ErrUnsupportedFeature, graphics.FeatureReadFramebuffer)
	}
	fb, ok := c.resolveFramebuffer(op, src)
	if !ok {
		return graphics.ErrWrongDevice
	}
	colors := colorAttachments(fb.layout.desc)
	if len(colors) == 0 {
		return fmt.Errorf("%w: %s has no color attachment", graphics.ErrInvalidDesc, fb.desc.Name)
	}
	swizzle, ok := readConversion(colors[0].Format, format)
	if !ok || format.IsCompressed() {
		return fmt.Errorf("%w: read back %s as %s", graphics.ErrUnsupportedFormat, colors[0].Format, format)
	}
	if need := format.ImageSize(width, height, 1); uint32(len(out)) < need {
		return fmt.Errorf("%w: read back needs %d bytes, got %d", graphics.ErrInvalidDesc, need, len(out))
	}
	if width > fb.desc.Width || height > fb.desc.Height {
		return fmt.Errorf("%w: read back %dx%d from %dx%d target", graphics.ErrInvalidDesc, width, height, fb.desc.Width, fb.desc.Height)
	}
	c.endPass()
	err := c.enc.readPixels(fb, width, height, out)
	// the command buffer was submitted and restarted
	c.invalidateEncoded()
	if err != nil {
		return err
	}
	if swizzle {
		swizzleRB(out[:format.ImageSize(width, height, 1)])
	}
	return nil
}

// Present shows the last submitted frame. It is a no-op when nothing was
// submitted since the previous Present.
func (c *context) Present() {
	if !c.pending {
		return
	}
	c.pending = false
	if err := c.frames.present(); err != nil {
		c.dev.log.Error("present failed", "err", err)
	}
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
