package postprocess

import (
	"errors"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

var ErrMissingPass = errors.New("post-process material pass missing")

// Pipeline is what a stage needs from the render pipeline driving it.
type Pipeline interface {
	Device() graphics.Device
	Context() graphics.Context
	// TargetLayout is the framebuffer layout material pipelines are built for.
	TargetLayout() graphics.FramebufferLayout
	Material(name string) (*metadata.Material, error)
	// SceneDepth is the depth texture of the target the cameras drew into,
	// or nil when there is none.
	SceneDepth() graphics.Texture
	// DrawScreenQuad draws a full screen quad with pass into the bound framebuffer.
	DrawScreenQuad(pass *metadata.MaterialPass)
}

// Stage is one full screen effect. A stage reads src and writes dst, never
// binds src as a render target and never samples a texture attached to dst.
type Stage interface {
	Name() string
	Setup(p Pipeline) error
	Render(p Pipeline, src, dst graphics.Framebuffer) error
	Close()
}

// ColorTexture returns the first color attachment of fb, or nil.
func ColorTexture(fb graphics.Framebuffer) graphics.Texture {
	attachments := fb.Desc().ColorAttachments
	if len(attachments) == 0 {
		return nil
	}
	return attachments[0].Texture
}

// DepthTexture returns the depth/stencil attachment of fb, or nil.
func DepthTexture(fb graphics.Framebuffer) graphics.Texture {
	return fb.Desc().DepthStencil.Texture
}

// Attached reports whether tex is one of the attachments of fb.
func Attached(fb graphics.Framebuffer, tex graphics.Texture) bool {
	if fb == nil || tex == nil {
		return false
	}
	desc := fb.Desc()
	if desc.DepthStencil.Texture == tex {
		return true
	}
	for _, a := range desc.ColorAttachments {
		if a.Texture == tex {
			return true
		}
	}
	return false
}
