package opengl

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

type inputLayout struct {
	graphics.RefCount
	desc graphics.InputLayoutDesc
}

func (l *inputLayout) Desc() graphics.InputLayoutDesc {
	return l.desc
}

func (d *Device) CreateInputLayout(desc graphics.InputLayoutDesc) (graphics.InputLayout, error) {
	if err := d.profile.Caps.CheckInputLayout(desc); err != nil {
		return nil, err
	}
	l := &inputLayout{desc: desc}
	l.InitRefs(nil)
	return l, nil
}

type state struct {
	graphics.RefCount
	desc graphics.StateDesc
}

func (s *state) Desc() graphics.StateDesc {
	return s.desc
}

func (d *Device) CreateState(desc graphics.StateDesc) (graphics.State, error) {
	if err := d.profile.Caps.CheckState(desc); err != nil {
		return nil, err
	}
	s := &state{desc: desc}
	s.InitRefs(nil)
	return s, nil
}

type framebufferLayout struct {
	graphics.RefCount
	desc graphics.FramebufferLayoutDesc
}

func (l *framebufferLayout) Desc() graphics.FramebufferLayoutDesc {
	return l.desc
}

func (d *Device) CreateFramebufferLayout(desc graphics.FramebufferLayoutDesc) (graphics.FramebufferLayout, error) {
	if err := d.profile.Caps.CheckFramebufferLayout(desc); err != nil {
		return nil, err
	}
	l := &framebufferLayout{desc: desc}
	l.InitRefs(nil)
	return l, nil
}

// pipelineAttrib is one vertex component resolved against the program.
type pipelineAttrib struct {
	loc     Attrib
	format  VertexFormat
	slot    uint8
	offset  uint32
	stride  int32
	divisor uint32
}

type pipeline struct {
	graphics.RefCount
	dev     *Device
	desc    graphics.PipelineDesc
	program *program
	state   graphics.StateDesc
	attribs []pipelineAttrib
	slots   []uint8
	indexed graphics.IndexType
	// vao is 0 on profiles without vertex array objects, the context then
	// specifies the attributes on every layout change.
	vao VertexArray
}

func (p *pipeline) Desc() graphics.PipelineDesc {
	return p.desc
}

func (d *Device) CreatePipeline(desc graphics.PipelineDesc) (graphics.Pipeline, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	prog, ok := desc.Program.(*program)
	if !ok || prog.dev != d {
		return nil, fmt.Errorf("%w: program %s", graphics.ErrWrongDevice, desc.Program.Desc().Name)
	}

	p := &pipeline{
		dev:     d,
		desc:    desc,
		program: prog,
		state:   desc.State.Desc(),
	}
	if desc.InputLayout != nil {
		layout := desc.InputLayout.Desc()
		p.slots = layout.Slots()
		p.indexed = layout.IndexType
		for i, vc := range layout.Components {
			loc := d.f.GetAttribLocation(prog.id, vc.AttributeName())
			if !loc.Valid() {
				d.log.Debug("vertex component unused by program", "pipeline", desc.Name, "attribute", vc.AttributeName())
				continue
			}
			p.attribs = append(p.attribs, pipelineAttrib{
				loc:     loc,
				format:  vertexFormats[vc.Format],
				slot:    vc.Slot,
				offset:  layout.Offset(i),
				stride:  int32(layout.Stride(vc.Slot)),
				divisor: uint32(vc.Divisor),
			})
		}
	}
	if desc.DescriptorSetLayout != nil {
		d.bindUniformBlocks(prog, desc.DescriptorSetLayout.Desc())
	}
	if d.profile.Caps.Has(graphics.FeatureVertexArray) {
		p.vao = d.f.CreateVertexArray()
	}
	if err := d.checkError("create pipeline " + desc.Name); err != nil {
		if p.vao != 0 {
			d.state.deleteVertexArray(p.vao)
		}
		return nil, err
	}

	retained := []graphics.Resource{desc.Program, desc.State, desc.FramebufferLayout}
	if desc.InputLayout != nil {
		retained = append(retained, desc.InputLayout)
	}
	if desc.DescriptorSetLayout != nil {
		retained = append(retained, desc.DescriptorSetLayout)
	}
	for _, r := range retained {
		r.Retain()
	}
	p.InitRefs(func() {
		if p.vao != 0 {
			d.state.deleteVertexArray(p.vao)
		}
		for _, r := range retained {
			r.Release()
		}
	})
	return p, nil
}

// bindUniformBlocks points every uniform block of the program at the binding
// its descriptor declares. Declared plain uniforms the program lacks are
// reported, the compiler may have optimized them out.
func (d *Device) bindUniformBlocks(prog *program, layout graphics.DescriptorSetLayoutDesc) {
	for _, u := range layout.Uniforms {
		if u.Type != graphics.UniformBuffer {
			if _, ok := prog.uniforms[u.Name]; !ok {
				core.LogDebug("program %s has no active uniform %s", prog.desc.Name, u.Name)
			}
			continue
		}
		if !d.profile.Caps.Has(graphics.FeatureUniformBuffer) {
			continue
		}
		index := d.f.GetUniformBlockIndex(prog.id, u.Name)
		if index == INVALID_INDEX {
			core.LogDebug("program %s has no uniform block %s", prog.desc.Name, u.Name)
			continue
		}
		d.f.UniformBlockBinding(prog.id, index, u.Binding)
	}
}
