package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

// maxFramesInFlight is how many frames the CPU may record ahead of the GPU.
const maxFramesInFlight = 2

// errZeroArea is returned by acquire while the window is minimized.
var errZeroArea = errors.New("surface has zero area")

// frameTarget hands out one encoder per frame and takes the recorded work
// to the GPU and the screen.
type frameTarget interface {
	acquire() (encoder, error)
	submit() error
	present() error
	// target is the framebuffer that stands for the presentable image.
	target() *framebuffer
}

/** @brief Per frame in flight synchronization and command recording. */
type frameSlot struct {
	cb             *commandBuffer
	inFlight       *fence
	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore
	// frame is the device frame number of the last submission.
	frame uint64
	// waited means the acquire semaphore was consumed by a mid frame flush.
	waited bool
}

/**
 * @brief Presentable images of the device surface. Framebuffer returns a
 * stable proxy that resolves to the image acquired for the frame, so that
 * contexts and callers never see the per image framebuffers.
 */
type swapchain struct {
	graphics.RefCount
	dev     *Device
	desc    graphics.SwapchainDesc
	surface graphics.VulkanSurface

	handle vk.Swapchain
	format vk.SurfaceFormat
	mode   vk.PresentMode
	layout *framebufferLayout
	proxy  *framebuffer
	depth  *texture
	images []*texture
	frames []*framebuffer

	slots    [maxFramesInFlight]frameSlot
	slot     int
	image    uint32
	acquired bool
	pending  bool
	outdated bool
	enc      commandEncoder
}

var _ frameTarget = (*swapchain)(nil)

func (s *swapchain) Desc() graphics.SwapchainDesc {
	return s.desc
}

func (s *swapchain) Framebuffer() graphics.Framebuffer {
	return s.proxy
}

// Resize records the new size, the images are rebuilt before the next frame.
func (s *swapchain) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: swapchain size %dx%d", graphics.ErrInvalidDesc, width, height)
	}
	if width == s.desc.Width && height == s.desc.Height {
		return nil
	}
	s.desc.Width, s.desc.Height = width, height
	s.outdated = true
	return nil
}

func (s *swapchain) target() *framebuffer {
	return s.proxy
}

// currentFramebuffer returns the framebuffer of the acquired image, nil
// outside a frame.
func (s *swapchain) currentFramebuffer() *framebuffer {
	if !s.acquired || int(s.image) >= len(s.frames) {
		return nil
	}
	return s.frames[s.image]
}

func (d *Device) CreateSwapchain(desc graphics.SwapchainDesc) (graphics.Swapchain, error) {
	if desc.Surface == nil {
		desc.Surface = d.desc.Surface
	}
	surface, ok := desc.Surface.(graphics.VulkanSurface)
	if !ok || desc.Surface != d.desc.Surface {
		return nil, fmt.Errorf("%w: swapchain needs the Vulkan surface of the device", graphics.ErrInvalidDesc)
	}
	if desc.Width == 0 || desc.Height == 0 {
		w, h := surface.FramebufferSize()
		desc.Width, desc.Height = uint32(w), uint32(h)
	}
	if desc.ImageCount == 0 {
		desc.ImageCount = maxFramesInFlight + 1
	}
	support, err := querySwapchainSupport(d.physical.handle, d.inst.surface)
	if err != nil {
		return nil, err
	}
	if len(support.Formats) == 0 {
		return nil, fmt.Errorf("%w: surface has no formats", graphics.ErrUnsupportedFormat)
	}
	if desc.DepthStencilFormat != graphics.FormatUndefined && !d.caps.Attachments.Has(desc.DepthStencilFormat) {
		return nil, fmt.Errorf("%w: swapchain depth %s", graphics.ErrUnsupportedFormat, desc.DepthStencilFormat)
	}

	s := &swapchain{
		dev:     d,
		surface: surface,
		format:  chooseSurfaceFormat(support.Formats, nativeFormat(desc.ColorFormat)),
		mode:    choosePresentMode(support.PresentModes, desc.VSync),
	}
	desc.ColorFormat = engineFormat(s.format.Format)
	if desc.ColorFormat == graphics.FormatUndefined {
		return nil, fmt.Errorf("%w: surface format %d", graphics.ErrUnsupportedFormat, s.format.Format)
	}
	s.desc = desc

	attachments := []graphics.AttachmentLayout{{Type: graphics.AttachmentColor, Format: desc.ColorFormat}}
	if desc.DepthStencilFormat != graphics.FormatUndefined {
		attachments = append(attachments, graphics.AttachmentLayout{Type: graphics.AttachmentDepthStencil, Format: desc.DepthStencilFormat})
	}
	s.layout = d.newFramebufferLayout(graphics.FramebufferLayoutDesc{Attachments: attachments})
	s.layout.InitRefs(func() {
		d.release(s.layout.destroyNative)
	})
	s.proxy = &framebuffer{
		dev:       d,
		layout:    s.layout,
		kind:      passSwapchain,
		swapchain: s,
	}
	s.proxy.InitRefs(nil)
	s.syncProxy()

	if err := s.createSlots(); err != nil {
		s.destroySlots()
		s.layout.Release()
		return nil, err
	}
	if err := s.build(support); err != nil {
		s.destroyImages()
		s.destroySlots()
		s.layout.Release()
		return nil, err
	}
	d.log.Info("swapchain created",
		"width", s.desc.Width, "height", s.desc.Height,
		"format", s.desc.ColorFormat, "images", len(s.images), "present_mode", s.mode)

	s.InitRefs(func() {
		d.waitIdle()
		s.destroyImages()
		if s.handle != vk.NullSwapchain {
			vk.DestroySwapchain(d.handle, s.handle, nil)
			s.handle = vk.NullSwapchain
		}
		s.destroySlots()
		s.proxy.Release()
		s.layout.Release()
	})
	return s, nil
}

// syncProxy keeps the proxy description in step with the swapchain size.
func (s *swapchain) syncProxy() {
	s.proxy.desc = graphics.FramebufferDesc{
		Name:   "swapchain",
		Layout: s.layout,
		Width:  s.desc.Width,
		Height: s.desc.Height,
		Layers: 1,
	}
}

// chooseSurfaceFormat takes the wanted format when the surface offers it,
// then B8G8R8A8 in the sRGB non linear color space, then whatever comes first.
func chooseSurfaceFormat(available []vk.SurfaceFormat, want vk.Format) vk.SurfaceFormat {
	if len(available) == 1 && available[0].Format == vk.FormatUndefined {
		f := available[0]
		f.Format = want
		if want == vk.FormatUndefined {
			f.Format = vk.FormatB8g8r8a8Unorm
		}
		return f
	}
	for _, f := range available {
		if want != vk.FormatUndefined && f.Format == want {
			return f
		}
	}
	for _, f := range available {
		if f.Format == vk.FormatB8g8r8a8Unorm && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return available[0]
}

// choosePresentMode uses FIFO for vsync, which every device supports, and
// otherwise the lowest latency mode available.
func choosePresentMode(available []vk.PresentMode, vsync bool) vk.PresentMode {
	if vsync {
		return vk.PresentModeFifo
	}
	for _, want := range []vk.PresentMode{vk.PresentModeMailbox, vk.PresentModeImmediate} {
		for _, m := range available {
			if m == want {
				return m
			}
		}
	}
	return vk.PresentModeFifo
}

// chooseExtent honours the extent the surface dictates, if any, and clamps
// the requested one otherwise.
func chooseExtent(caps vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clamp(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func chooseImageCount(caps vk.SurfaceCapabilities, want uint32) uint32 {
	count := max(want, caps.MinImageCount)
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

func (s *swapchain) createSlots() error {
	d := s.dev
	for i := range s.slots {
		slot := &s.slots[i]
		var err error
		if slot.cb, err = d.allocateCommandBuffer(true); err != nil {
			return err
		}
		if slot.inFlight, err = d.newFence(true); err != nil {
			return err
		}
		info := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
		if err := check(vk.CreateSemaphore(d.handle, &info, nil, &slot.imageAvailable), "vkCreateSemaphore"); err != nil {
			return err
		}
		if err := check(vk.CreateSemaphore(d.handle, &info, nil, &slot.renderFinished), "vkCreateSemaphore"); err != nil {
			return err
		}
	}
	return nil
}

func (s *swapchain) destroySlots() {
	d := s.dev
	for i := range s.slots {
		slot := &s.slots[i]
		if slot.cb != nil {
			d.freeCommandBuffer(slot.cb)
			slot.cb = nil
		}
		if slot.inFlight != nil {
			slot.inFlight.destroy(d)
			slot.inFlight = nil
		}
		if slot.imageAvailable != vk.NullSemaphore {
			vk.DestroySemaphore(d.handle, slot.imageAvailable, nil)
			slot.imageAvailable = vk.NullSemaphore
		}
		if slot.renderFinished != vk.NullSemaphore {
			vk.DestroySemaphore(d.handle, slot.renderFinished, nil)
			slot.renderFinished = vk.NullSemaphore
		}
	}
}

// build creates the native swapchain, replacing the current one, and wraps
// its images as attachments.
func (s *swapchain) build(support swapchainSupport) error {
	d := s.dev
	caps := support.Capabilities
	extent := chooseExtent(caps, s.desc.Width, s.desc.Height)
	if extent.Width == 0 || extent.Height == 0 {
		// minimized, keep the old images until the window comes back
		s.outdated = true
		return nil
	}
	usage := vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	for _, extra := range []vk.ImageUsageFlagBits{vk.ImageUsageTransferSrcBit, vk.ImageUsageTransferDstBit} {
		if caps.SupportedUsageFlags&vk.ImageUsageFlags(extra) != 0 {
			usage |= vk.ImageUsageFlags(extra)
		}
	}
	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          d.inst.surface,
		MinImageCount:    chooseImageCount(caps, s.desc.ImageCount),
		ImageFormat:      s.format.Format,
		ImageColorSpace:  s.format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       usage,
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      s.mode,
		Clipped:          vk.True,
		OldSwapchain:     s.handle,
	}
	q := d.physical.queues
	if q.Graphics != q.Present {
		info.ImageSharingMode = vk.SharingModeConcurrent
		info.QueueFamilyIndexCount = 2
		info.PQueueFamilyIndices = []uint32{uint32(q.Graphics), uint32(q.Present)}
	}
	var handle vk.Swapchain
	if err := check(vk.CreateSwapchain(d.handle, &info, nil, &handle), "vkCreateSwapchain"); err != nil {
		return err
	}
	if s.handle != vk.NullSwapchain {
		vk.DestroySwapchain(d.handle, s.handle, nil)
	}
	s.handle = handle
	s.desc.Width, s.desc.Height = extent.Width, extent.Height
	s.syncProxy()
	s.outdated = false

	var count uint32
	if err := check(vk.GetSwapchainImages(d.handle, handle, &count, nil), "vkGetSwapchainImages"); err != nil {
		return err
	}
	images := make([]vk.Image, count)
	if err := check(vk.GetSwapchainImages(d.handle, handle, &count, images), "vkGetSwapchainImages"); err != nil {
		return err
	}
	for i, img := range images {
		tex, err := s.wrapImage(i, img)
		if err != nil {
			return err
		}
		s.images = append(s.images, tex)
	}
	if s.desc.DepthStencilFormat != graphics.FormatUndefined {
		depth, err := d.newTexture(graphics.TextureDesc{
			Name:    "swapchain depth",
			Width:   extent.Width,
			Height:  extent.Height,
			MipNums: 1,
			Format:  s.desc.DepthStencilFormat,
			Dim:     graphics.TextureDim2D,
			Usage:   graphics.TextureUsageDepthStencilAttachment,
		}, vk.ImageLayoutDepthStencilAttachmentOptimal)
		if err != nil {
			return err
		}
		s.depth = depth
	}
	err := d.immediate(func(cmd vk.CommandBuffer) {
		for _, tex := range s.images {
			transitionImage(cmd, tex.image, tex.subresource(), vk.ImageLayoutUndefined, vk.ImageLayoutPresentSrc)
		}
		if s.depth != nil {
			transitionImage(cmd, s.depth.image, s.depth.subresource(), vk.ImageLayoutUndefined, s.depth.resting)
		}
	})
	if err != nil {
		return err
	}

	for i, tex := range s.images {
		fb := &framebuffer{
			dev: d,
			desc: graphics.FramebufferDesc{
				Name:             fmt.Sprintf("swapchain image %d", i),
				Layout:           s.layout,
				Width:            extent.Width,
				Height:           extent.Height,
				Layers:           1,
				ColorAttachments: []graphics.Attachment{{Texture: tex}},
			},
			layout: s.layout,
			colors: []*texture{tex},
			depth:  s.depth,
			kind:   passSwapchain,
		}
		if s.depth != nil {
			fb.desc.DepthStencil = graphics.Attachment{Texture: s.depth}
		}
		s.frames = append(s.frames, fb)
	}
	return nil
}

// wrapImage describes an image owned by the swapchain as a texture.
func (s *swapchain) wrapImage(index int, image vk.Image) (*texture, error) {
	d := s.dev
	tex := &texture{
		dev: d,
		desc: graphics.TextureDesc{
			Name:    fmt.Sprintf("swapchain image %d", index),
			Width:   s.desc.Width,
			Height:  s.desc.Height,
			MipNums: 1,
			Format:  s.desc.ColorFormat,
			Dim:     graphics.TextureDim2D,
			Usage:   graphics.TextureUsageColorAttachment,
		},
		image:   image,
		format:  s.format.Format,
		levels:  1,
		layers:  1,
		resting: vk.ImageLayoutPresentSrc,
	}
	info := vk.ImageViewCreateInfo{
		SType:            vk.StructureTypeImageViewCreateInfo,
		Image:            image,
		ViewType:         vk.ImageViewType2d,
		Format:           s.format.Format,
		SubresourceRange: tex.subresource(),
	}
	if err := check(vk.CreateImageView(d.handle, &info, nil, &tex.view), "vkCreateImageView"); err != nil {
		return nil, err
	}
	return tex, nil
}

func (s *swapchain) destroyImages() {
	for _, fb := range s.frames {
		fb.destroyNative()
	}
	s.frames = nil
	for _, tex := range s.images {
		tex.destroyNative()
	}
	s.images = nil
	if s.depth != nil {
		s.depth.destroyNative()
		s.depth = nil
	}
}

// recreate rebuilds the images for the current surface size.
func (s *swapchain) recreate() error {
	d := s.dev
	d.waitIdle()
	support, err := querySwapchainSupport(d.physical.handle, d.inst.surface)
	if err != nil {
		return err
	}
	if w, h := s.surface.FramebufferSize(); w > 0 && h > 0 {
		s.desc.Width, s.desc.Height = uint32(w), uint32(h)
	}
	s.destroyImages()
	if err := s.build(support); err != nil {
		return err
	}
	d.log.Debug("swapchain recreated", "width", s.desc.Width, "height", s.desc.Height)
	return nil
}

func (s *swapchain) acquire() (encoder, error) {
	d := s.dev
	if s.outdated {
		if err := s.recreate(); err != nil {
			return nil, err
		}
		if s.outdated {
			return nil, errZeroArea
		}
	}
	slot := &s.slots[s.slot]
	if !slot.inFlight.wait(d, fenceTimeout) {
		return nil, fmt.Errorf("%w: frame fence", graphics.ErrNative)
	}
	d.frameCompleted(slot.frame)

	res := vk.AcquireNextImage(d.handle, s.handle, fenceTimeout, slot.imageAvailable, vk.NullFence, &s.image)
	switch res {
	case vk.Success:
	case vk.Suboptimal:
		// still presentable, rebuild after this frame
		s.outdated = true
	case vk.ErrorOutOfDate:
		// the frame is dropped, the next one uses the new images
		if err := s.recreate(); err != nil {
			return nil, err
		}
		return nil, core.ErrSwapchainBooting
	default:
		return nil, check(res, "vkAcquireNextImage")
	}

	if err := slot.inFlight.reset(d); err != nil {
		return nil, err
	}
	if err := slot.cb.reset(); err != nil {
		return nil, err
	}
	if err := slot.cb.begin(true, false, false); err != nil {
		return nil, err
	}
	slot.waited = false
	d.uniforms.begin(s.slot)
	s.acquired = true
	s.enc = commandEncoder{dev: d, sc: s, cmd: slot.cb.handle}
	return &s.enc, nil
}

func (s *swapchain) submitSlot(slot *frameSlot, signal bool) error {
	d := s.dev
	s.enc.endPass()
	if err := slot.cb.end(); err != nil {
		return err
	}
	info := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{slot.cb.handle},
	}
	if !slot.waited {
		info.WaitSemaphoreCount = 1
		info.PWaitSemaphores = []vk.Semaphore{slot.imageAvailable}
		info.PWaitDstStageMask = []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageTransferBit)}
		slot.waited = true
	}
	if signal {
		info.SignalSemaphoreCount = 1
		info.PSignalSemaphores = []vk.Semaphore{slot.renderFinished}
	}
	if err := check(vk.QueueSubmit(d.graphicsQueue, 1, []vk.SubmitInfo{info}, slot.inFlight.handle), "vkQueueSubmit"); err != nil {
		return err
	}
	slot.cb.submitted()
	d.frame++
	slot.frame = d.frame
	return nil
}

func (s *swapchain) submit() error {
	if !s.acquired {
		return nil
	}
	if err := s.submitSlot(&s.slots[s.slot], true); err != nil {
		return err
	}
	s.pending = true
	return nil
}

// flush submits what was recorded so far and waits for it, then reopens the
// command buffer so the frame can continue.
func (s *swapchain) flush() error {
	d := s.dev
	slot := &s.slots[s.slot]
	if err := s.submitSlot(slot, false); err != nil {
		return err
	}
	if !slot.inFlight.wait(d, fenceTimeout) {
		return fmt.Errorf("%w: flush fence", graphics.ErrNative)
	}
	d.frameCompleted(slot.frame)
	if err := slot.inFlight.reset(d); err != nil {
		return err
	}
	if err := slot.cb.reset(); err != nil {
		return err
	}
	return slot.cb.begin(true, false, false)
}

func (s *swapchain) present() error {
	if !s.pending {
		return nil
	}
	d := s.dev
	slot := &s.slots[s.slot]
	s.pending = false
	s.acquired = false
	s.slot = (s.slot + 1) % maxFramesInFlight

	info := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{slot.renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.handle},
		PImageIndices:      []uint32{s.image},
	}
	switch res := vk.QueuePresent(d.presentQueue, &info); res {
	case vk.Success:
	case vk.Suboptimal, vk.ErrorOutOfDate:
		s.outdated = true
	default:
		return check(res, "vkQueuePresent")
	}
	return nil
}
