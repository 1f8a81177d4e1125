package postprocess

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

/**
 * @brief Creation parameters of an offscreen render target matching a
 * framebuffer layout.
 */
type TargetDesc struct {
	/** @brief Debug name; a random one is generated when empty. */
	Name   string
	Layout graphics.FramebufferLayout
	Width  uint32
	Height uint32
	/**
	 * @brief Depth texture borrowed from another target. When nil and the
	 * layout has a depth attachment, the target creates its own.
	 */
	SharedDepth graphics.Texture
}

// NewRenderTarget creates sampled attachments for every slot of the layout
// and a framebuffer holding them. The framebuffer owns what it created.
func NewRenderTarget(dev graphics.Device, desc TargetDesc) (graphics.Framebuffer, error) {
	if desc.Name == "" {
		desc.Name = "target-" + uuid.NewString()
	}
	fbDesc := graphics.FramebufferDesc{
		Name:   desc.Name,
		Layout: desc.Layout,
		Width:  desc.Width,
		Height: desc.Height,
		Layers: 1,
	}
	var owned []graphics.Texture
	defer func() {
		// the framebuffer holds its own references
		for _, t := range owned {
			t.Release()
		}
	}()

	for i, a := range desc.Layout.Desc().Attachments {
		switch a.Type {
		case graphics.AttachmentColor:
			tex, err := dev.CreateTexture(targetTexture(fmt.Sprintf("%s.color%d", desc.Name, i), a.Format, desc.Width, desc.Height, graphics.TextureUsageColorAttachment))
			if err != nil {
				return nil, fmt.Errorf("render target %s: %w", desc.Name, err)
			}
			owned = append(owned, tex)
			fbDesc.ColorAttachments = append(fbDesc.ColorAttachments, graphics.Attachment{Texture: tex})
		case graphics.AttachmentDepthStencil:
			if desc.SharedDepth != nil {
				fbDesc.DepthStencil = graphics.Attachment{Texture: desc.SharedDepth}
				fbDesc.SharedDepthStencil = true
				continue
			}
			tex, err := dev.CreateTexture(targetTexture(desc.Name+".depth", a.Format, desc.Width, desc.Height, graphics.TextureUsageDepthStencilAttachment))
			if err != nil {
				return nil, fmt.Errorf("render target %s: %w", desc.Name, err)
			}
			owned = append(owned, tex)
			fbDesc.DepthStencil = graphics.Attachment{Texture: tex}
		}
	}
	fb, err := dev.CreateFramebuffer(fbDesc)
	if err != nil {
		return nil, fmt.Errorf("render target %s: %w", desc.Name, err)
	}
	return fb, nil
}

func targetTexture(name string, format graphics.Format, width, height uint32, usage graphics.TextureUsage) graphics.TextureDesc {
	filter := graphics.FilterLinear
	if format.IsDepthStencil() {
		filter = graphics.FilterNearest
	}
	return graphics.TextureDesc{
		Name:      name,
		Width:     width,
		Height:    height,
		MipNums:   1,
		LayerNums: 1,
		Format:    format,
		Dim:       graphics.TextureDim2D,
		Usage:     usage | graphics.TextureUsageSampled,
		Wrap:      graphics.WrapClampToEdge,
		MinFilter: filter,
		MagFilter: filter,
	}
}

// sizeOf returns the size of a framebuffer.
func sizeOf(fb graphics.Framebuffer) (uint32, uint32) {
	d := fb.Desc()
	return d.Width, d.Height
}
