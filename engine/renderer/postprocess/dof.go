package postprocess

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

const (
	dofSample4 = iota
	dofBlurH
	dofBlurV
	dofComputeNear
	dofFinal
	dofPassCount
)

var dofPassNames = [dofPassCount]string{"sample4", "blurh", "blurv", "computeNear", "final"}

// texture params every sub-pass must declare
var dofPassParams = [dofPassCount][]string{
	dofSample4:     {"texColor", "texDepth"},
	dofBlurH:       {"texColor"},
	dofBlurV:       {"texColor"},
	dofComputeNear: {"texShrunk", "texBlured"},
	dofFinal:       {"texColor", "texDepth", "texSmall", "texLarge"},
}

/**
 * @brief Depth of field. The source is shrunk to a quarter, blurred in two
 * separable passes, combined into a near field blur and finally mixed with
 * the sharp source by depth.
 */
type DepthOfField struct {
	/** @brief The material holding the five sub-passes. */
	MaterialName string
	/** @brief Depth in focus, in the 0..1 range of the depth buffer. */
	Focus float32
	/** @brief How far from Focus the image is fully blurred. */
	Range float32

	passes [dofPassCount]*metadata.MaterialPass

	temp graphics.Framebuffer
	blur graphics.Framebuffer
	near graphics.Framebuffer

	width  uint32
	height uint32
}

func NewDepthOfField(material string, focus, rng float32) *DepthOfField {
	return &DepthOfField{MaterialName: material, Focus: focus, Range: rng}
}

func (d *DepthOfField) Name() string { return "dof" }

// Setup resolves the sub-passes and their parameters by name.
func (d *DepthOfField) Setup(p Pipeline) error {
	mat, err := p.Material(d.MaterialName)
	if err != nil {
		return err
	}
	for i, name := range dofPassNames {
		pass := mat.Pass(name)
		if pass == nil {
			return fmt.Errorf("%w: %s in %s", ErrMissingPass, name, mat.Name)
		}
		for _, param := range dofPassParams[i] {
			if pass.Set == nil || !pass.Set.Has(param) {
				return fmt.Errorf("dof pass %s: %w: %s", name, graphics.ErrUnknownParam, param)
			}
		}
		d.passes[i] = pass
	}
	return nil
}

func (d *DepthOfField) ensureTargets(p Pipeline, src graphics.Framebuffer) error {
	width, height := sizeOf(src)
	width, height = max(width/4, 1), max(height/4, 1)
	if d.temp != nil && d.width == width && d.height == height {
		return nil
	}
	d.releaseTargets()
	targets := []*graphics.Framebuffer{&d.temp, &d.blur, &d.near}
	names := []string{"dof.temp", "dof.blur", "dof.near"}
	for i, target := range targets {
		fb, err := NewRenderTarget(p.Device(), TargetDesc{
			Name:   names[i],
			Layout: p.TargetLayout(),
			Width:  width,
			Height: height,
		})
		if err != nil {
			d.releaseTargets()
			return err
		}
		*target = fb
	}
	d.width, d.height = width, height
	return nil
}

func (d *DepthOfField) draw(p Pipeline, pass int, dst graphics.Framebuffer, textures map[string]graphics.Texture) error {
	mp := d.passes[pass]
	for name, tex := range textures {
		if err := mp.SetTexture(name, tex); err != nil {
			return err
		}
	}
	if pass == dofSample4 || pass == dofFinal {
		// optional scalars
		if mp.Set.Has("focus") {
			if err := mp.Set.SetFloat("focus", d.Focus); err != nil {
				return err
			}
		}
		if mp.Set.Has("range") {
			if err := mp.Set.SetFloat("range", d.Range); err != nil {
				return err
			}
		}
	}
	p.Context().SetFramebuffer(dst)
	p.DrawScreenQuad(mp)
	return nil
}

// Render blurs src into dst. Depth comes from the scene, falling back to
// the depth attachment of src.
func (d *DepthOfField) Render(p Pipeline, src, dst graphics.Framebuffer) error {
	if d.passes[dofSample4] == nil {
		return fmt.Errorf("%w: dof used before setup", ErrMissingPass)
	}
	color, depth := ColorTexture(src), p.SceneDepth()
	if depth == nil {
		depth = DepthTexture(src)
	}
	if color == nil || depth == nil {
		return fmt.Errorf("%w: dof source needs color and depth", graphics.ErrInvalidDesc)
	}
	if Attached(dst, color) || Attached(dst, depth) {
		return fmt.Errorf("%w: dof destination holds a sampled texture", graphics.ErrInvalidDesc)
	}
	if err := d.ensureTargets(p, src); err != nil {
		return err
	}
	temp, blur, near := ColorTexture(d.temp), ColorTexture(d.blur), ColorTexture(d.near)

	steps := []struct {
		pass     int
		dst      graphics.Framebuffer
		textures map[string]graphics.Texture
	}{
		{dofSample4, d.temp, map[string]graphics.Texture{"texColor": color, "texDepth": depth}},
		{dofBlurH, d.blur, map[string]graphics.Texture{"texColor": temp}},
		{dofBlurV, d.near, map[string]graphics.Texture{"texColor": blur}},
		{dofComputeNear, d.blur, map[string]graphics.Texture{"texShrunk": temp, "texBlured": near}},
		{dofFinal, dst, map[string]graphics.Texture{"texColor": color, "texDepth": depth, "texSmall": temp, "texLarge": blur}},
	}
	for _, s := range steps {
		if err := d.draw(p, s.pass, s.dst, s.textures); err != nil {
			return fmt.Errorf("dof %s: %w", dofPassNames[s.pass], err)
		}
	}
	return nil
}

func (d *DepthOfField) releaseTargets() {
	for _, fb := range []*graphics.Framebuffer{&d.temp, &d.blur, &d.near} {
		graphics.Release(*fb)
		*fb = nil
	}
}

func (d *DepthOfField) Close() {
	d.releaseTargets()
	d.passes = [dofPassCount]*metadata.MaterialPass{}
}
