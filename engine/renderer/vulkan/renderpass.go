package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

// passKind selects the layouts a render pass expects its attachments in.
type passKind uint8

const (
	// passOffscreen targets textures resting in ShaderReadOnlyOptimal.
	passOffscreen passKind = iota
	// passSwapchain targets a presentable image and the swapchain depth buffer.
	passSwapchain
)

/**
 * @brief The attachment formats of a family of framebuffers, with the render
 * passes built for them. Every pass loads and stores its attachments, clears
 * are explicit context commands on every backend.
 */
type framebufferLayout struct {
	graphics.RefCount
	dev    *Device
	desc   graphics.FramebufferLayoutDesc
	passes map[passKind]vk.RenderPass
}

func (l *framebufferLayout) Desc() graphics.FramebufferLayoutDesc {
	return l.desc
}

func (d *Device) CreateFramebufferLayout(desc graphics.FramebufferLayoutDesc) (graphics.FramebufferLayout, error) {
	if err := d.caps.CheckFramebufferLayout(desc); err != nil {
		return nil, err
	}
	l := d.newFramebufferLayout(desc)
	// pipelines are built against the offscreen pass, create it eagerly
	if _, err := l.renderPass(passOffscreen); err != nil {
		return nil, err
	}
	l.InitRefs(func() {
		d.release(l.destroyNative)
	})
	return l, nil
}

func (d *Device) newFramebufferLayout(desc graphics.FramebufferLayoutDesc) *framebufferLayout {
	return &framebufferLayout{dev: d, desc: desc, passes: make(map[passKind]vk.RenderPass)}
}

func (l *framebufferLayout) destroyNative() {
	for kind, rp := range l.passes {
		vk.DestroyRenderPass(l.dev.handle, rp, nil)
		delete(l.passes, kind)
	}
}

// renderPass returns the pass of the given kind, creating it on first use.
func (l *framebufferLayout) renderPass(kind passKind) (vk.RenderPass, error) {
	if rp, ok := l.passes[kind]; ok {
		return rp, nil
	}
	info := renderPassInfo(l.desc, kind)
	var rp vk.RenderPass
	if err := check(vk.CreateRenderPass(l.dev.handle, &info.create, nil, &rp), "vkCreateRenderPass"); err != nil {
		return vk.NullRenderPass, err
	}
	l.passes[kind] = rp
	return rp, nil
}

// attachmentLayouts returns the layout an attachment rests in outside the
// pass and the one it is used in inside the pass.
func attachmentLayouts(depth bool, kind passKind) (outside, inside vk.ImageLayout) {
	switch {
	case depth && kind == passSwapchain:
		return vk.ImageLayoutDepthStencilAttachmentOptimal, vk.ImageLayoutDepthStencilAttachmentOptimal
	case depth:
		return vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutDepthStencilAttachmentOptimal
	case kind == passSwapchain:
		return vk.ImageLayoutPresentSrc, vk.ImageLayoutColorAttachmentOptimal
	}
	return vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutColorAttachmentOptimal
}

type passInfo struct {
	create      vk.RenderPassCreateInfo
	attachments []vk.AttachmentDescription
	colors      []vk.AttachmentReference
	depth       *vk.AttachmentReference
}

// renderPassInfo describes one subpass writing every attachment of the
// layout. Color attachments come first, depth last.
func renderPassInfo(desc graphics.FramebufferLayoutDesc, kind passKind) *passInfo {
	info := &passInfo{}
	add := func(a graphics.AttachmentLayout) uint32 {
		depth := a.Type == graphics.AttachmentDepthStencil
		outside, inside := attachmentLayouts(depth, kind)
		info.attachments = append(info.attachments, vk.AttachmentDescription{
			Format:         nativeFormat(a.Format),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpLoad,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpLoad,
			StencilStoreOp: vk.AttachmentStoreOpStore,
			InitialLayout:  outside,
			FinalLayout:    outside,
		})
		index := uint32(len(info.attachments) - 1)
		if depth {
			info.depth = &vk.AttachmentReference{Attachment: index, Layout: inside}
		} else {
			info.colors = append(info.colors, vk.AttachmentReference{Attachment: index, Layout: inside})
		}
		return index
	}
	for _, a := range colorAttachments(desc) {
		add(a)
	}
	for _, a := range desc.Attachments {
		if a.Type == graphics.AttachmentDepthStencil {
			add(a)
		}
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    uint32(len(info.colors)),
		PColorAttachments:       info.colors,
		PDepthStencilAttachment: info.depth,
	}
	stages := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit |
		vk.PipelineStageLateFragmentTestsBit | vk.PipelineStageFragmentShaderBit | vk.PipelineStageTransferBit)
	access := vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit |
		vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit)
	dependencies := []vk.SubpassDependency{
		{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  stages,
			SrcAccessMask: access | vk.AccessFlags(vk.AccessTransferWriteBit),
			DstStageMask:  stages,
			DstAccessMask: access,
		},
		{
			SrcSubpass:    0,
			DstSubpass:    vk.SubpassExternal,
			SrcStageMask:  stages,
			SrcAccessMask: access,
			DstStageMask:  stages,
			DstAccessMask: vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessTransferReadBit),
		},
	}
	info.create = vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(info.attachments)),
		PAttachments:    info.attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}
	return info
}

// colorAttachments returns the color entries of a layout in declaration order.
func colorAttachments(desc graphics.FramebufferLayoutDesc) []graphics.AttachmentLayout {
	colors := make([]graphics.AttachmentLayout, 0, len(desc.Attachments))
	for _, a := range desc.Attachments {
		if a.Type == graphics.AttachmentColor {
			colors = append(colors, a)
		}
	}
	return colors
}
