package metadata

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

/** @brief The name of the default material. */
const DefaultMaterialName string = "default"

/**
 * @brief One draw of a material: the pipeline built from a shader and state,
 * and the descriptor set holding the parameters bound by name.
 */
type MaterialPass struct {
	/** @brief The pass name, unique inside its material. */
	Name string
	/** @brief The render pass the material pass is bucketed under. */
	Pass     RenderPass
	Pipeline graphics.Pipeline
	Set      graphics.DescriptorSet
}

// SetTexture binds a texture to the named parameter.
func (p *MaterialPass) SetTexture(name string, texture graphics.Texture) error {
	if p.Set == nil {
		return fmt.Errorf("pass %s: %w: %s", p.Name, graphics.ErrUnknownParam, name)
	}
	return p.Set.SetTexture(name, texture, nil)
}

// SetParam binds a plain value to the named parameter. Supported values are
// float32, int32, mgl32.Vec2, mgl32.Vec3, mgl32.Vec4 and mgl32.Mat4.
func (p *MaterialPass) SetParam(name string, value interface{}) error {
	if p.Set == nil {
		return fmt.Errorf("pass %s: %w: %s", p.Name, graphics.ErrUnknownParam, name)
	}
	switch v := value.(type) {
	case float32:
		return p.Set.SetFloat(name, v)
	case int32:
		return p.Set.SetInt(name, v)
	case mgl32.Vec2:
		return p.Set.SetVec2(name, v)
	case mgl32.Vec3:
		return p.Set.SetVec3(name, v)
	case mgl32.Vec4:
		return p.Set.SetVec4(name, v)
	case mgl32.Mat4:
		return p.Set.SetMat4(name, v)
	}
	return fmt.Errorf("pass %s param %s: %w: %T", p.Name, name, graphics.ErrParamType, value)
}

// Release drops the pass references to its pipeline and descriptor set.
func (p *MaterialPass) Release() {
	graphics.Release(p.Pipeline)
	graphics.Release(p.Set)
	p.Pipeline = nil
	p.Set = nil
}

/** @brief A way of drawing a material, submitted to one render queue. */
type Technique struct {
	Name   string
	Queue  RenderQueue
	Passes []*MaterialPass
}

/**
 * @brief A material, a list of techniques each drawing the surface in one or
 * more passes.
 */
type Material struct {
	/** @brief The material id, never 0 for a registered material. */
	ID uint32
	/** @brief Incremented every time the material is reloaded. */
	Generation uint32
	Name       string
	Techniques []*Technique
}

// Key is the value render lists are sorted by. Objects without a material use 0.
func (m *Material) Key() uint32 {
	if m == nil {
		return 0
	}
	return m.ID
}

// Technique returns the technique with the given name, or nil.
func (m *Material) Technique(name string) *Technique {
	for _, t := range m.Techniques {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Pass returns the first pass with the given name across all techniques, or nil.
func (m *Material) Pass(name string) *MaterialPass {
	for _, t := range m.Techniques {
		for _, p := range t.Passes {
			if p.Name == name {
				return p
			}
		}
	}
	return nil
}

// Release releases the GPU objects of every pass.
func (m *Material) Release() {
	for _, t := range m.Techniques {
		for _, p := range t.Passes {
			p.Release()
		}
	}
}
