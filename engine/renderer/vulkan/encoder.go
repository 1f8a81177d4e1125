package vulkan

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

// encoder records the native commands of one frame. Rectangles are given in
// the bottom-left origin window space shared with the OpenGL backends, the
// encoder converts them using the height of the target.
type encoder interface {
	beginPass(fb *framebuffer) error
	endPass()

	bindPipeline(p *pipeline)
	bindDescriptorSet(p *pipeline, s *descriptorSet, dynamicOffsets []uint32) error
	bindVertexBuffer(slot uint8, b *data, offset uint32)
	bindIndexBuffer(b *data, offset uint32, t graphics.IndexType)

	setViewport(v graphics.Viewport, height uint32)
	setScissor(s graphics.Scissor, height uint32)
	setStencilCompareMask(face graphics.StencilFaceFlags, v uint32)
	setStencilWriteMask(face graphics.StencilFaceFlags, v uint32)
	setStencilReference(face graphics.StencilFaceFlags, v uint32)

	draw(d graphics.Indirect)
	// clear runs inside a pass over the whole target.
	clear(fb *framebuffer, clears []attachmentClear)
	// blit and readPixels run outside a pass.
	blit(src *framebuffer, srcRect graphics.Rect, dst *framebuffer, dstRect graphics.Rect, depth bool, linear bool)
	readPixels(src *framebuffer, width, height uint32, out []byte) error
}

// attachmentClear is one attachment of a ClearFramebuffer call.
type attachmentClear struct {
	color      bool
	attachment uint32
	flags      graphics.ClearFlags
	value      mgl32.Vec4
	depth      float32
	stencil    uint32
}

// viewportRect flips a bottom-left origin viewport with a negative height so
// that clip space keeps its OpenGL orientation.
func viewportRect(v graphics.Viewport, height uint32) vk.Viewport {
	return vk.Viewport{
		X:        v.X,
		Y:        float32(height) - v.Y,
		Width:    v.Width,
		Height:   -v.Height,
		MinDepth: v.MinDepth,
		MaxDepth: v.MaxDepth,
	}
}

// scissorRect converts a bottom-left origin rectangle to a top-left one,
// clipped to the non negative quadrant.
func scissorRect(s graphics.Rect, height uint32) vk.Rect2D {
	x, y := s.X, int32(height)-s.Y-int32(s.Height)
	w, h := int64(s.Width), int64(s.Height)
	if x < 0 {
		w += int64(x)
		x = 0
	}
	if y < 0 {
		h += int64(y)
		y = 0
	}
	return vk.Rect2D{
		Offset: vk.Offset2D{X: x, Y: y},
		Extent: vk.Extent2D{Width: uint32(max(w, 0)), Height: uint32(max(h, 0))},
	}
}

// blitOffsets returns the corners of a bottom-left origin rectangle in image
// space.
func blitOffsets(r graphics.Rect, height uint32) [2]vk.Offset3D {
	top := int32(height) - r.Y - int32(r.Height)
	return [2]vk.Offset3D{
		{X: r.X, Y: top, Z: 0},
		{X: r.X + int32(r.Width), Y: top + int32(r.Height), Z: 1},
	}
}

// flipRows reverses the row order of a tightly packed image in place, read
// backs return the bottom row first.
func flipRows(p []byte, rowSize, rows int) {
	tmp := make([]byte, rowSize)
	for top, bottom := 0, rows-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := p[top*rowSize : (top+1)*rowSize]
		b := p[bottom*rowSize : (bottom+1)*rowSize]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}

// commandEncoder records into the command buffer of the current frame.
type commandEncoder struct {
	dev  *Device
	sc   *swapchain
	cmd  vk.CommandBuffer
	pass *framebuffer
}

var _ encoder = (*commandEncoder)(nil)

func (e *commandEncoder) beginPass(fb *framebuffer) error {
	rp, h, err := fb.native()
	if err != nil {
		return err
	}
	info := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp,
		Framebuffer: h,
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{Width: fb.desc.Width, Height: fb.desc.Height},
		},
	}
	vk.CmdBeginRenderPass(e.cmd, &info, vk.SubpassContentsInline)
	e.pass = fb
	return nil
}

func (e *commandEncoder) endPass() {
	if e.pass == nil {
		return
	}
	vk.CmdEndRenderPass(e.cmd)
	e.pass = nil
}

func (e *commandEncoder) bindPipeline(p *pipeline) {
	vk.CmdBindPipeline(e.cmd, vk.PipelineBindPointGraphics, p.handle)
}

func (e *commandEncoder) bindDescriptorSet(p *pipeline, s *descriptorSet, dynamicOffsets []uint32) error {
	if err := s.prepare(e.dev.uniforms); err != nil {
		return err
	}
	vk.CmdBindDescriptorSets(e.cmd, vk.PipelineBindPointGraphics, p.layout, 0,
		1, []vk.DescriptorSet{s.handle}, uint32(len(dynamicOffsets)), dynamicOffsets)
	return nil
}

func (e *commandEncoder) bindVertexBuffer(slot uint8, b *data, offset uint32) {
	vk.CmdBindVertexBuffers(e.cmd, uint32(slot), 1, []vk.Buffer{b.buf.handle}, []vk.DeviceSize{vk.DeviceSize(offset)})
}

func (e *commandEncoder) bindIndexBuffer(b *data, offset uint32, t graphics.IndexType) {
	vk.CmdBindIndexBuffer(e.cmd, b.buf.handle, vk.DeviceSize(offset), indexType(t))
}

func (e *commandEncoder) setViewport(v graphics.Viewport, height uint32) {
	vk.CmdSetViewport(e.cmd, 0, 1, []vk.Viewport{viewportRect(v, height)})
}

func (e *commandEncoder) setScissor(s graphics.Scissor, height uint32) {
	vk.CmdSetScissor(e.cmd, 0, 1, []vk.Rect2D{scissorRect(s, height)})
}

func stencilFaces(face graphics.StencilFaceFlags) vk.StencilFaceFlags {
	var flags vk.StencilFaceFlagBits
	if face&graphics.StencilFaceFront != 0 {
		flags |= vk.StencilFaceFrontBit
	}
	if face&graphics.StencilFaceBack != 0 {
		flags |= vk.StencilFaceBackBit
	}
	return vk.StencilFaceFlags(flags)
}

func (e *commandEncoder) setStencilCompareMask(face graphics.StencilFaceFlags, v uint32) {
	vk.CmdSetStencilCompareMask(e.cmd, stencilFaces(face), v)
}

func (e *commandEncoder) setStencilWriteMask(face graphics.StencilFaceFlags, v uint32) {
	vk.CmdSetStencilWriteMask(e.cmd, stencilFaces(face), v)
}

func (e *commandEncoder) setStencilReference(face graphics.StencilFaceFlags, v uint32) {
	vk.CmdSetStencilReference(e.cmd, stencilFaces(face), v)
}

func (e *commandEncoder) draw(d graphics.Indirect) {
	if d.IndexCount > 0 {
		vk.CmdDrawIndexed(e.cmd, d.IndexCount, d.Instances(), d.FirstIndex, d.VertexOffset, d.FirstInstance)
		return
	}
	vk.CmdDraw(e.cmd, d.VertexCount, d.Instances(), d.FirstVertex, d.FirstInstance)
}

func (e *commandEncoder) clear(fb *framebuffer, clears []attachmentClear) {
	attachments := make([]vk.ClearAttachment, 0, len(clears))
	for _, c := range clears {
		if c.color {
			attachments = append(attachments, vk.ClearAttachment{
				AspectMask:      vk.ImageAspectFlags(vk.ImageAspectColorBit),
				ColorAttachment: c.attachment,
				ClearValue:      vk.NewClearValue(c.value[:]),
			})
			continue
		}
		var aspect vk.ImageAspectFlagBits
		format := fb.depthFormat()
		if c.flags&graphics.ClearDepth != 0 && format.IsDepth() {
			aspect |= vk.ImageAspectDepthBit
		}
		if c.flags&graphics.ClearStencil != 0 && format.IsStencil() {
			aspect |= vk.ImageAspectStencilBit
		}
		if aspect == 0 {
			continue
		}
		attachments = append(attachments, vk.ClearAttachment{
			AspectMask: vk.ImageAspectFlags(aspect),
			ClearValue: vk.NewClearDepthStencil(c.depth, c.stencil),
		})
	}
	if len(attachments) == 0 {
		return
	}
	rect := vk.ClearRect{
		Rect:       vk.Rect2D{Extent: vk.Extent2D{Width: fb.desc.Width, Height: fb.desc.Height}},
		LayerCount: 1,
	}
	vk.CmdClearAttachments(e.cmd, uint32(len(attachments)), attachments, 1, []vk.ClearRect{rect})
}

// attachmentImage is the image and level a framebuffer renders into.
type attachmentImage struct {
	tex     *texture
	level   uint32
	layer   uint32
	resting vk.ImageLayout
}

func (e *commandEncoder) colorImage(fb *framebuffer) (attachmentImage, bool) {
	if len(fb.colors) == 0 {
		return attachmentImage{}, false
	}
	a := fb.desc.ColorAttachments[0]
	resting, _ := attachmentLayouts(false, fb.kind)
	return attachmentImage{tex: fb.colors[0], level: a.Level, layer: a.Layer, resting: resting}, true
}

func (e *commandEncoder) depthImage(fb *framebuffer) (attachmentImage, bool) {
	if fb.depth == nil {
		return attachmentImage{}, false
	}
	resting, _ := attachmentLayouts(true, fb.kind)
	return attachmentImage{tex: fb.depth, level: fb.desc.DepthStencil.Level, layer: fb.desc.DepthStencil.Layer, resting: resting}, true
}

func (a attachmentImage) layers() vk.ImageSubresourceLayers {
	return vk.ImageSubresourceLayers{
		AspectMask:     a.tex.aspect(),
		MipLevel:       a.level,
		BaseArrayLayer: a.layer,
		LayerCount:     1,
	}
}

func (a attachmentImage) rng() vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     a.tex.aspect(),
		BaseMipLevel:   a.level,
		LevelCount:     1,
		BaseArrayLayer: a.layer,
		LayerCount:     1,
	}
}

func (e *commandEncoder) blitImage(src attachmentImage, srcRect graphics.Rect, srcHeight uint32, dst attachmentImage, dstRect graphics.Rect, dstHeight uint32, filter vk.Filter) {
	transitionImage(e.cmd, src.tex.image, src.rng(), src.resting, vk.ImageLayoutTransferSrcOptimal)
	transitionImage(e.cmd, dst.tex.image, dst.rng(), dst.resting, vk.ImageLayoutTransferDstOptimal)
	region := vk.ImageBlit{
		SrcSubresource: src.layers(),
		SrcOffsets:     blitOffsets(srcRect, srcHeight),
		DstSubresource: dst.layers(),
		DstOffsets:     blitOffsets(dstRect, dstHeight),
	}
	vk.CmdBlitImage(e.cmd, src.tex.image, vk.ImageLayoutTransferSrcOptimal,
		dst.tex.image, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageBlit{region}, filter)
	transitionImage(e.cmd, src.tex.image, src.rng(), vk.ImageLayoutTransferSrcOptimal, src.resting)
	transitionImage(e.cmd, dst.tex.image, dst.rng(), vk.ImageLayoutTransferDstOptimal, dst.resting)
}

func (e *commandEncoder) blit(src *framebuffer, srcRect graphics.Rect, dst *framebuffer, dstRect graphics.Rect, depth bool, linear bool) {
	filter := vk.FilterNearest
	if linear {
		filter = vk.FilterLinear
	}
	from, okFrom := e.colorImage(src)
	to, okTo := e.colorImage(dst)
	if okFrom && okTo {
		e.blitImage(from, srcRect, src.desc.Height, to, dstRect, dst.desc.Height, filter)
	}
	if !depth {
		return
	}
	from, okFrom = e.depthImage(src)
	to, okTo = e.depthImage(dst)
	if okFrom && okTo {
		e.blitImage(from, srcRect, src.desc.Height, to, dstRect, dst.desc.Height, vk.FilterNearest)
	}
}

func (e *commandEncoder) readPixels(src *framebuffer, width, height uint32, out []byte) error {
	img, ok := e.colorImage(src)
	if !ok {
		return fmt.Errorf("%w: %s has no color attachment", graphics.ErrInvalidDesc, src.desc.Name)
	}
	size := img.tex.desc.Format.ImageSize(width, height, 1)
	staging, err := e.dev.createRawBuffer(size, vk.BufferUsageTransferDstBit, memoryHostVisible)
	if err != nil {
		return err
	}
	defer e.dev.destroyRawBuffer(&staging)

	region := vk.BufferImageCopy{
		ImageSubresource: img.layers(),
		// the bottom rows of the target, top-left origin
		ImageOffset: vk.Offset3D{X: 0, Y: int32(src.desc.Height - height), Z: 0},
		ImageExtent: vk.Extent3D{Width: width, Height: height, Depth: 1},
	}
	transitionImage(e.cmd, img.tex.image, img.rng(), img.resting, vk.ImageLayoutTransferSrcOptimal)
	vk.CmdCopyImageToBuffer(e.cmd, img.tex.image, vk.ImageLayoutTransferSrcOptimal, staging.handle, 1, []vk.BufferImageCopy{region})
	transitionImage(e.cmd, img.tex.image, img.rng(), vk.ImageLayoutTransferSrcOptimal, img.resting)
	if err := e.sc.flush(); err != nil {
		return err
	}
	staging.alloc.read(0, out[:size])
	flipRows(out[:size], int(size/height), int(height))
	return nil
}

// discardEncoder drops a frame that has nowhere to go, such as one recorded
// while the window is minimized.
type discardEncoder struct{}

func (discardEncoder) beginPass(*framebuffer) error { return nil }
func (discardEncoder) endPass() {}
func (discardEncoder) bindPipeline(*pipeline) {}
func (discardEncoder) bindDescriptorSet(*pipeline, *descriptorSet, []uint32) error { return nil }
func (discardEncoder) bindVertexBuffer(uint8, *data, uint32) {}
func (discardEncoder) bindIndexBuffer(*data, uint32, graphics.IndexType) {}
func (discardEncoder) setViewport(graphics.Viewport, uint32) {}
func (discardEncoder) setScissor(graphics.Scissor, uint32) {}
func (discardEncoder) setStencilCompareMask(graphics.StencilFaceFlags, uint32) {}
func (discardEncoder) setStencilWriteMask(graphics.StencilFaceFlags, uint32) {}
func (discardEncoder) setStencilReference(graphics.StencilFaceFlags, uint32) {}
func (discardEncoder) draw(graphics.Indirect) {}
func (discardEncoder) clear(*framebuffer, []attachmentClear) {}
func (discardEncoder) blit(*framebuffer, graphics.Rect, *framebuffer, graphics.Rect, bool, bool) {}

func (discardEncoder) readPixels(*framebuffer, uint32, uint32, []byte) error {
	return fmt.Errorf("%w: frame is discarded", graphics.ErrIncomplete)
}
