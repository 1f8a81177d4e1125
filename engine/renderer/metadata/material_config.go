package metadata

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

/**
 * @brief Material configuration, loaded from a *.material.yaml file.
 *
 *	name: dof
 *	techniques:
 *	  - name: default
 *	    queue: opaque
 *	    passes:
 *	      - name: sample4
 *	        pass: specific
 *	        shader: dof_sample4
 *	        state: {blend: none, depth_test: false, cull: none}
 *	        params:
 *	          - {name: texColor, type: texture}
 */
type MaterialConfig struct {
	Name       string            `yaml:"name"`
	Techniques []TechniqueConfig `yaml:"techniques"`
}

type TechniqueConfig struct {
	Name   string       `yaml:"name"`
	Queue  RenderQueue  `yaml:"queue"`
	Passes []PassConfig `yaml:"passes"`
}

type PassConfig struct {
	Name string     `yaml:"name"`
	Pass RenderPass `yaml:"pass"`
	/** @brief The shader program name, resolved by the shader system. */
	Shader string        `yaml:"shader"`
	State  StateConfig   `yaml:"state"`
	Params []ParamConfig `yaml:"params"`
	/** @brief Initial values of plain params, one to sixteen floats each. */
	Values map[string][]float32 `yaml:"values"`
	/** @brief Textures bound at load time, param name to texture name. */
	Textures map[string]string `yaml:"textures"`
}

type ParamConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

/** @brief The fixed function state of a pass. Unset fields keep the opaque defaults. */
type StateConfig struct {
	/** @brief "none" or "alpha". */
	Blend      string `yaml:"blend"`
	Cull       string `yaml:"cull"`
	DepthTest  *bool  `yaml:"depth_test"`
	DepthWrite *bool  `yaml:"depth_write"`
	DepthFunc  string `yaml:"depth_func"`
	Wireframe  bool   `yaml:"wireframe"`
}

var uniformTypes = map[string]graphics.UniformType{
	"float":   graphics.UniformFloat,
	"int":     graphics.UniformInt,
	"vec2":    graphics.UniformVec2,
	"vec3":    graphics.UniformVec3,
	"vec4":    graphics.UniformVec4,
	"mat4":    graphics.UniformMat4,
	"texture": graphics.UniformTexture,
	"buffer":  graphics.UniformBuffer,
}

var cullModes = map[string]graphics.CullMode{
	"none":  graphics.CullModeNone,
	"front": graphics.CullModeFront,
	"back":  graphics.CullModeBack,
	"both":  graphics.CullModeFrontBack,
}

var compareFuncs = map[string]graphics.CompareFunc{
	"never":    graphics.CompareNever,
	"less":     graphics.CompareLess,
	"equal":    graphics.CompareEqual,
	"lequal":   graphics.CompareLessEqual,
	"greater":  graphics.CompareGreater,
	"notequal": graphics.CompareNotEqual,
	"gequal":   graphics.CompareGreaterEqual,
	"always":   graphics.CompareAlways,
}

// Desc converts the config into a state description.
func (c StateConfig) Desc() (graphics.StateDesc, error) {
	var desc graphics.StateDesc
	switch strings.ToLower(c.Blend) {
	case "", "none":
		desc = graphics.DefaultStateDesc()
	case "alpha":
		desc = graphics.AlphaBlendStateDesc()
	default:
		return desc, fmt.Errorf("%w: blend mode %q", graphics.ErrInvalidDesc, c.Blend)
	}
	if c.Cull != "" {
		cull, ok := cullModes[strings.ToLower(c.Cull)]
		if !ok {
			return desc, fmt.Errorf("%w: cull mode %q", graphics.ErrInvalidDesc, c.Cull)
		}
		desc.Cull = cull
	}
	if c.DepthFunc != "" {
		fn, ok := compareFuncs[strings.ToLower(c.DepthFunc)]
		if !ok {
			return desc, fmt.Errorf("%w: depth func %q", graphics.ErrInvalidDesc, c.DepthFunc)
		}
		desc.DepthFunc = fn
	}
	if c.DepthTest != nil {
		desc.DepthTest = *c.DepthTest
	}
	if c.DepthWrite != nil {
		desc.DepthWrite = *c.DepthWrite
	}
	if c.Wireframe {
		desc.Polygon = graphics.PolygonModeLine
	}
	return desc, nil
}

// LayoutDesc builds the descriptor set layout of the pass. Bindings follow
// declaration order.
func (c PassConfig) LayoutDesc() (graphics.DescriptorSetLayoutDesc, error) {
	var desc graphics.DescriptorSetLayoutDesc
	for i, p := range c.Params {
		t, ok := uniformTypes[strings.ToLower(p.Type)]
		if !ok {
			return desc, fmt.Errorf("%w: param %s has type %q", graphics.ErrInvalidDesc, p.Name, p.Type)
		}
		desc.Uniforms = append(desc.Uniforms, graphics.UniformDesc{
			Name:    p.Name,
			Type:    t,
			Binding: uint32(i),
			Stages:  graphics.ShaderStageFlagsGraphics,
		})
	}
	return desc, desc.Validate()
}

// Validate checks the config is complete enough to build a material from.
func (c MaterialConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: material without name", graphics.ErrInvalidDesc)
	}
	if len(c.Techniques) == 0 {
		return fmt.Errorf("%w: material %s has no techniques", graphics.ErrInvalidDesc, c.Name)
	}
	names := make(map[string]struct{})
	for _, t := range c.Techniques {
		if len(t.Passes) == 0 {
			return fmt.Errorf("%w: technique %s of %s has no passes", graphics.ErrInvalidDesc, t.Name, c.Name)
		}
		for _, p := range t.Passes {
			if p.Name == "" || p.Shader == "" {
				return fmt.Errorf("%w: pass of %s needs a name and a shader", graphics.ErrInvalidDesc, c.Name)
			}
			if _, ok := names[p.Name]; ok {
				return fmt.Errorf("%w: duplicate pass %s in %s", graphics.ErrInvalidDesc, p.Name, c.Name)
			}
			names[p.Name] = struct{}{}
		}
	}
	return nil
}
