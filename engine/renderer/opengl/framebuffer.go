package opengl

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

// framebuffer is a framebuffer object, or the window system framebuffer
// when id is 0.
type framebuffer struct {
	graphics.RefCount
	dev    *Device
	desc   graphics.FramebufferDesc
	id     Framebuffer
	colors int
	depth  graphics.Format
}

func (fb *framebuffer) Desc() graphics.FramebufferDesc {
	return fb.desc
}

func (d *Device) texture(t graphics.Texture) (*texture, error) {
	tex, ok := t.(*texture)
	if !ok || tex.dev != d {
		return nil, fmt.Errorf("%w: texture %s", graphics.ErrWrongDevice, t.Desc().Name)
	}
	return tex, nil
}

func (d *Device) CreateFramebuffer(desc graphics.FramebufferDesc) (graphics.Framebuffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	layout := desc.Layout.Desc()
	if err := d.profile.Caps.CheckFramebufferLayout(layout); err != nil {
		return nil, err
	}

	var colors []*texture
	for i, a := range desc.ColorAttachments {
		tex, err := d.texture(a.Texture)
		if err != nil {
			return nil, err
		}
		if want := colorFormat(layout, i); tex.desc.Format != want {
			return nil, fmt.Errorf("%w: color attachment %d is %s, layout wants %s", graphics.ErrInvalidDesc, i, tex.desc.Format, want)
		}
		colors = append(colors, tex)
	}
	var depth *texture
	if desc.DepthStencil.Texture != nil {
		tex, err := d.texture(desc.DepthStencil.Texture)
		if err != nil {
			return nil, err
		}
		if !tex.desc.Format.IsDepthStencil() {
			return nil, fmt.Errorf("%w: depth attachment has color format %s", graphics.ErrInvalidDesc, tex.desc.Format)
		}
		depth = tex
	}

	fb := &framebuffer{dev: d, desc: desc, colors: len(colors), id: d.f.CreateFramebuffer()}
	prevDraw, prevRead := d.state.drawFBO, d.state.readFBO
	d.state.bindFramebuffer(FRAMEBUFFER, fb.id)
	for i, tex := range colors {
		d.attach(COLOR_ATTACHMENT0+Enum(i), tex, desc.ColorAttachments[i])
	}
	if depth != nil {
		fb.depth = depth.desc.Format
		d.attach(depthAttachment(depth.desc.Format), depth, desc.DepthStencil)
	}
	if d.profile.Caps.Has(graphics.FeatureMultipleRenderTargets) {
		if len(colors) == 0 {
			d.f.DrawBuffers([]Enum{NONE})
			d.f.ReadBuffer(NONE)
		} else {
			bufs := make([]Enum, len(colors))
			for i := range bufs {
				bufs[i] = COLOR_ATTACHMENT0 + Enum(i)
			}
			d.f.DrawBuffers(bufs)
		}
	}
	status := d.f.CheckFramebufferStatus(FRAMEBUFFER)
	d.restoreFramebuffers(prevDraw, prevRead)
	if status != FRAMEBUFFER_COMPLETE {
		d.state.deleteFramebuffer(fb.id)
		return nil, fmt.Errorf("%w: %s status 0x%04x", graphics.ErrIncomplete, desc.Name, uint32(status))
	}
	if err := d.checkError("create framebuffer " + desc.Name); err != nil {
		d.state.deleteFramebuffer(fb.id)
		return nil, err
	}

	owned := make([]*texture, 0, len(colors)+1)
	owned = append(owned, colors...)
	if depth != nil && !desc.SharedDepthStencil {
		owned = append(owned, depth)
	}
	for _, tex := range owned {
		tex.Retain()
	}
	desc.Layout.Retain()
	fb.InitRefs(func() {
		d.state.deleteFramebuffer(fb.id)
		for _, tex := range owned {
			tex.Release()
		}
		desc.Layout.Release()
	})
	return fb, nil
}

func (d *Device) restoreFramebuffers(draw, read Framebuffer) {
	if draw == read {
		d.state.bindFramebuffer(FRAMEBUFFER, draw)
		return
	}
	d.state.bindFramebuffer(DRAW_FRAMEBUFFER, draw)
	d.state.bindFramebuffer(READ_FRAMEBUFFER, read)
}

func (d *Device) attach(attachment Enum, tex *texture, a graphics.Attachment) {
	level := int32(tex.desc.MipBase + a.Level)
	switch tex.desc.Dim {
	case graphics.TextureDim2D:
		d.f.FramebufferTexture2D(FRAMEBUFFER, attachment, TEXTURE_2D, tex.id, level)
	case graphics.TextureDimCube:
		d.f.FramebufferTexture2D(FRAMEBUFFER, attachment, TEXTURE_CUBE_MAP_POSITIVE_X+Enum(a.Layer%6), tex.id, level)
	default:
		d.f.FramebufferTextureLayer(FRAMEBUFFER, attachment, tex.id, level, int32(a.Layer))
	}
}

func colorFormat(layout graphics.FramebufferLayoutDesc, index int) graphics.Format {
	n := 0
	for _, a := range layout.Attachments {
		if a.Type != graphics.AttachmentColor {
			continue
		}
		if n == index {
			return a.Format
		}
		n++
	}
	return graphics.FormatUndefined
}

type swapchain struct {
	graphics.RefCount
	dev     *Device
	desc    graphics.SwapchainDesc
	surface graphics.GLSurface
	layout  *framebufferLayout
	target  *framebuffer
}

func (s *swapchain) Desc() graphics.SwapchainDesc {
	return s.desc
}

func (s *swapchain) Framebuffer() graphics.Framebuffer {
	return s.target
}

func (s *swapchain) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: swapchain size %dx%d", graphics.ErrInvalidDesc, width, height)
	}
	s.desc.Width, s.desc.Height = width, height
	s.target.desc.Width, s.target.desc.Height = width, height
	return nil
}

func (s *swapchain) present() {
	s.surface.SwapBuffers()
}

func (d *Device) CreateSwapchain(desc graphics.SwapchainDesc) (graphics.Swapchain, error) {
	if desc.Surface == nil {
		desc.Surface = d.surface
	}
	surface, ok := desc.Surface.(graphics.GLSurface)
	if !ok {
		return nil, fmt.Errorf("%w: swapchain needs an OpenGL surface", graphics.ErrInvalidDesc)
	}
	if desc.Width == 0 || desc.Height == 0 {
		w, h := surface.FramebufferSize()
		desc.Width, desc.Height = uint32(w), uint32(h)
	}
	if desc.ColorFormat == graphics.FormatUndefined {
		desc.ColorFormat = graphics.FormatR8G8B8A8Unorm
	}
	if desc.ImageCount == 0 {
		desc.ImageCount = 2
	}

	attachments := []graphics.AttachmentLayout{{Type: graphics.AttachmentColor, Format: desc.ColorFormat}}
	if desc.DepthStencilFormat != graphics.FormatUndefined {
		attachments = append(attachments, graphics.AttachmentLayout{Type: graphics.AttachmentDepthStencil, Format: desc.DepthStencilFormat})
	}
	layout := &framebufferLayout{desc: graphics.FramebufferLayoutDesc{Attachments: attachments}}
	layout.InitRefs(nil)
	target := &framebuffer{
		dev: d,
		desc: graphics.FramebufferDesc{
			Name:   "swapchain",
			Layout: layout,
			Width:  desc.Width,
			Height: desc.Height,
			Layers: 1,
		},
		colors: 1,
		depth:  desc.DepthStencilFormat,
	}
	target.InitRefs(nil)

	interval := 0
	if desc.VSync {
		interval = 1
	}
	surface.SwapInterval(interval)

	s := &swapchain{dev: d, desc: desc, surface: surface, layout: layout, target: target}
	s.InitRefs(func() {
		target.Release()
		layout.Release()
	})
	return s, nil
}
