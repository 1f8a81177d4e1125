package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

/**
 * @brief Represents a single shader stage compiled to a SPIR-V module.
 */
type shader struct {
	graphics.RefCount
	dev    *Device
	desc   graphics.ShaderDesc
	module vk.ShaderModule
}

func (s *shader) Desc() graphics.ShaderDesc {
	return s.desc
}

func (d *Device) CreateShader(desc graphics.ShaderDesc) (graphics.Shader, error) {
	if err := d.caps.CheckShader(desc); err != nil {
		return nil, err
	}
	code, err := spirvWords(desc.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("%w: %s shader %s", err, desc.Stage, desc.Name)
	}
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(desc.Bytecode)),
		PCode:    code,
	}
	s := &shader{dev: d, desc: desc}
	if err := check(vk.CreateShaderModule(d.handle, &info, nil, &s.module), "vkCreateShaderModule"); err != nil {
		return nil, fmt.Errorf("%w: %s %s", graphics.ErrShaderCompile, desc.Stage, desc.Name)
	}
	s.desc.Bytecode = nil
	module := s.module
	s.InitRefs(func() {
		d.release(func() { vk.DestroyShaderModule(d.handle, module, nil) })
	})
	return s, nil
}

// program groups the stage infos a pipeline is built from. It holds no
// native object of its own.
type program struct {
	graphics.RefCount
	dev    *Device
	desc   graphics.ProgramDesc
	stages []vk.PipelineShaderStageCreateInfo
	mask   graphics.ShaderStageFlags
}

func (p *program) Desc() graphics.ProgramDesc {
	return p.desc
}

func (d *Device) CreateProgram(desc graphics.ProgramDesc) (graphics.Program, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	p := &program{dev: d, desc: desc}
	for _, s := range desc.Shaders {
		vs, ok := s.(*shader)
		if !ok || vs.dev != d {
			return nil, fmt.Errorf("%w: shader %s", graphics.ErrWrongDevice, s.Desc().Name)
		}
		p.stages = append(p.stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  shaderStage(vs.desc.Stage),
			Module: vs.module,
			PName:  VulkanSafeString(vs.desc.EntryPoint()),
		})
		p.mask |= graphics.StageFlag(vs.desc.Stage)
	}
	for _, s := range desc.Shaders {
		s.Retain()
	}
	p.InitRefs(func() {
		for _, s := range desc.Shaders {
			s.Release()
		}
	})
	return p, nil
}
