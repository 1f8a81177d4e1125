package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

/**
 * @brief Render target. Native framebuffers are built per render pass kind
 * on first use. The swapchain target has no attachments of its own and
 * resolves to the image acquired for the frame.
 */
type framebuffer struct {
	graphics.RefCount
	dev     *Device
	desc    graphics.FramebufferDesc
	layout  *framebufferLayout
	colors  []*texture
	depth   *texture
	kind    passKind
	handles map[passKind]vk.Framebuffer

	// swapchain is set on the proxy returned by Swapchain.Framebuffer.
	swapchain *swapchain
}

func (fb *framebuffer) Desc() graphics.FramebufferDesc {
	return fb.desc
}

// resolve returns the framebuffer holding the attachments this frame.
func (fb *framebuffer) resolve() *framebuffer {
	if fb.swapchain != nil {
		if img := fb.swapchain.currentFramebuffer(); img != nil {
			return img
		}
	}
	return fb
}

func (fb *framebuffer) colorCount() int {
	return len(fb.layout.desc.Attachments) - btoi(fb.depthFormat() != graphics.FormatUndefined)
}

func (fb *framebuffer) depthFormat() graphics.Format {
	for _, a := range fb.layout.desc.Attachments {
		if a.Type == graphics.AttachmentDepthStencil {
			return a.Format
		}
	}
	return graphics.FormatUndefined
}

// native returns the render pass and framebuffer handles to begin a pass with.
func (fb *framebuffer) native() (vk.RenderPass, vk.Framebuffer, error) {
	rp, err := fb.layout.renderPass(fb.kind)
	if err != nil {
		return vk.NullRenderPass, vk.NullFramebuffer, err
	}
	if h, ok := fb.handles[fb.kind]; ok {
		return rp, h, nil
	}
	views := make([]vk.ImageView, 0, len(fb.colors)+1)
	for i, tex := range fb.colors {
		a := fb.desc.ColorAttachments[i]
		v, err := tex.attachmentView(a.Level, a.Layer)
		if err != nil {
			return rp, vk.NullFramebuffer, err
		}
		views = append(views, v)
	}
	if fb.depth != nil {
		v, err := fb.depth.attachmentView(fb.desc.DepthStencil.Level, fb.desc.DepthStencil.Layer)
		if err != nil {
			return rp, vk.NullFramebuffer, err
		}
		views = append(views, v)
	}
	info := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           fb.desc.Width,
		Height:          fb.desc.Height,
		Layers:          1,
	}
	var h vk.Framebuffer
	if err := check(vk.CreateFramebuffer(fb.dev.handle, &info, nil, &h), "vkCreateFramebuffer"); err != nil {
		return rp, vk.NullFramebuffer, fmt.Errorf("%w: %s", graphics.ErrIncomplete, fb.desc.Name)
	}
	if fb.handles == nil {
		fb.handles = make(map[passKind]vk.Framebuffer)
	}
	fb.handles[fb.kind] = h
	return rp, h, nil
}

func (fb *framebuffer) destroyNative() {
	for kind, h := range fb.handles {
		vk.DestroyFramebuffer(fb.dev.handle, h, nil)
		delete(fb.handles, kind)
	}
}

func (d *Device) CreateFramebuffer(desc graphics.FramebufferDesc) (graphics.Framebuffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	layout, ok := desc.Layout.(*framebufferLayout)
	if !ok || layout.dev != d {
		return nil, fmt.Errorf("%w: framebuffer layout", graphics.ErrWrongDevice)
	}
	colors := colorAttachments(layout.desc)
	fb := &framebuffer{dev: d, desc: desc, layout: layout, kind: passOffscreen}
	for i, a := range desc.ColorAttachments {
		tex, err := d.texture(a.Texture)
		if err != nil {
			return nil, err
		}
		if want := colors[i].Format; tex.desc.Format != want {
			return nil, fmt.Errorf("%w: color attachment %d is %s, layout wants %s", graphics.ErrInvalidDesc, i, tex.desc.Format, want)
		}
		if err := checkAttachment(tex, a, desc, graphics.TextureUsageColorAttachment); err != nil {
			return nil, err
		}
		fb.colors = append(fb.colors, tex)
	}
	if desc.DepthStencil.Texture != nil {
		tex, err := d.texture(desc.DepthStencil.Texture)
		if err != nil {
			return nil, err
		}
		if want := fb.depthFormat(); tex.desc.Format != want {
			return nil, fmt.Errorf("%w: depth attachment is %s, layout wants %s", graphics.ErrInvalidDesc, tex.desc.Format, want)
		}
		if err := checkAttachment(tex, desc.DepthStencil, desc, graphics.TextureUsageDepthStencilAttachment); err != nil {
			return nil, err
		}
		fb.depth = tex
	} else if fb.depthFormat() != graphics.FormatUndefined {
		return nil, fmt.Errorf("%w: layout has a depth attachment, %s has none", graphics.ErrIncomplete, desc.Name)
	}
	if _, _, err := fb.native(); err != nil {
		fb.destroyNative()
		return nil, err
	}

	owned := make([]*texture, 0, len(fb.colors)+1)
	owned = append(owned, fb.colors...)
	if fb.depth != nil && !desc.SharedDepthStencil {
		owned = append(owned, fb.depth)
	}
	for _, tex := range owned {
		tex.Retain()
	}
	layout.Retain()
	fb.InitRefs(func() {
		d.release(fb.destroyNative)
		for _, tex := range owned {
			tex.Release()
		}
		layout.Release()
	})
	return fb, nil
}

func checkAttachment(tex *texture, a graphics.Attachment, desc graphics.FramebufferDesc, usage graphics.TextureUsage) error {
	if tex.desc.Usage&usage == 0 {
		return fmt.Errorf("%w: texture %s was not created as an attachment", graphics.ErrInvalidDesc, tex.desc.Name)
	}
	if a.Level >= tex.levels || a.Layer >= tex.layers {
		return fmt.Errorf("%w: attachment level %d layer %d outside texture %s", graphics.ErrInvalidDesc, a.Level, a.Layer, tex.desc.Name)
	}
	if max(tex.desc.Width>>a.Level, 1) < desc.Width || max(tex.desc.Height>>a.Level, 1) < desc.Height {
		return fmt.Errorf("%w: texture %s smaller than framebuffer %s", graphics.ErrIncomplete, tex.desc.Name, desc.Name)
	}
	return nil
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
