package opengl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

type shader struct {
	graphics.RefCount
	dev  *Device
	desc graphics.ShaderDesc
	id   Shader
}

func (s *shader) Desc() graphics.ShaderDesc {
	return s.desc
}

func (d *Device) CreateShader(desc graphics.ShaderDesc) (graphics.Shader, error) {
	if err := d.profile.Caps.CheckShader(desc); err != nil {
		return nil, err
	}
	src := string(desc.Bytecode)
	if d.profile.ShaderHeader != "" && !strings.Contains(src, "#version") {
		src = d.profile.ShaderHeader + "\n" + src
	}

	id := d.f.CreateShader(shaderType(desc.Stage))
	d.f.ShaderSource(id, src)
	d.f.CompileShader(id)
	if d.f.GetShaderi(id, COMPILE_STATUS) == FALSE {
		msg := strings.TrimSpace(d.f.GetShaderInfoLog(id))
		d.f.DeleteShader(id)
		core.LogError("%s shader %s failed to compile: %s", desc.Stage, desc.Name, msg)
		return nil, fmt.Errorf("%w: %s %s: %s", graphics.ErrShaderCompile, desc.Stage, desc.Name, msg)
	}
	if err := d.checkError("create shader " + desc.Name); err != nil {
		d.f.DeleteShader(id)
		return nil, err
	}

	s := &shader{dev: d, desc: desc, id: id}
	s.desc.Bytecode = nil
	s.InitRefs(func() {
		d.f.DeleteShader(id)
	})
	return s, nil
}

type programUniform struct {
	loc  Uniform
	ty   graphics.UniformType
	size int32
	// unit is the texture unit of a sampler uniform, -1 when it has none.
	unit int
}

type program struct {
	graphics.RefCount
	dev      *Device
	desc     graphics.ProgramDesc
	id       Program
	uniforms map[string]programUniform
}

func (p *program) Desc() graphics.ProgramDesc {
	return p.desc
}

func (d *Device) CreateProgram(desc graphics.ProgramDesc) (graphics.Program, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	shaders := make([]*shader, 0, len(desc.Shaders))
	for _, s := range desc.Shaders {
		gs, ok := s.(*shader)
		if !ok || gs.dev != d {
			return nil, fmt.Errorf("%w: shader %s", graphics.ErrWrongDevice, s.Desc().Name)
		}
		shaders = append(shaders, gs)
	}

	id := d.f.CreateProgram()
	for _, s := range shaders {
		d.f.AttachShader(id, s.id)
	}
	d.f.LinkProgram(id)
	if d.f.GetProgrami(id, LINK_STATUS) == FALSE {
		msg := strings.TrimSpace(d.f.GetProgramInfoLog(id))
		d.f.DeleteProgram(id)
		core.LogError("program %s failed to link: %s", desc.Name, msg)
		return nil, fmt.Errorf("%w: link %s: %s", graphics.ErrShaderCompile, desc.Name, msg)
	}

	p := &program{dev: d, desc: desc, id: id, uniforms: make(map[string]programUniform)}
	p.reflect()
	if err := d.checkError("create program " + desc.Name); err != nil {
		d.state.deleteProgram(id)
		return nil, err
	}

	for _, s := range shaders {
		s.Retain()
	}
	p.InitRefs(func() {
		d.state.deleteProgram(id)
		for _, s := range shaders {
			s.Release()
		}
	})
	return p, nil
}

// reflect records the active uniforms and gives every sampler a fixed
// texture unit, in name order.
func (p *program) reflect() {
	f := p.dev.f
	n := f.GetProgrami(p.id, ACTIVE_UNIFORMS)
	var samplers []string
	for i := int32(0); i < n; i++ {
		name, size, glType := f.GetActiveUniform(p.id, uint32(i))
		name = strings.TrimSuffix(name, "[0]")
		ty, ok := uniformType(glType)
		if !ok {
			p.dev.log.Debug("unsupported uniform type", "program", p.desc.Name, "uniform", name, "type", glType)
			continue
		}
		p.uniforms[name] = programUniform{loc: f.GetUniformLocation(p.id, name), ty: ty, size: size, unit: -1}
		if ty == graphics.UniformTexture {
			samplers = append(samplers, name)
		}
	}
	if len(samplers) == 0 {
		return
	}
	sort.Strings(samplers)
	p.dev.state.useProgram(p.id)
	for unit, name := range samplers {
		if unit >= int(p.dev.profile.Caps.MaxTextureUnits) {
			core.LogWarn("program %s: sampler %s exceeds the texture unit limit", p.desc.Name, name)
			break
		}
		u := p.uniforms[name]
		u.unit = unit
		p.uniforms[name] = u
		f.Uniform1i(u.loc, int32(unit))
	}
}
