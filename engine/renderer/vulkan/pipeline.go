package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

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
	if err := d.caps.CheckInputLayout(desc); err != nil {
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
	if err := d.caps.CheckState(desc); err != nil {
		return nil, err
	}
	s := &state{desc: desc}
	s.InitRefs(nil)
	return s, nil
}

/**
 * @brief A baked graphics pipeline. Viewport, scissor and the stencil masks
 * and reference are dynamic so that contexts can diff them like on OpenGL.
 */
type pipeline struct {
	graphics.RefCount
	dev     *Device
	desc    graphics.PipelineDesc
	program *program
	state   graphics.StateDesc
	slots   []uint8
	indexed graphics.IndexType
	set     *descriptorSetLayout

	handle vk.Pipeline
	layout vk.PipelineLayout
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
	fbLayout, ok := desc.FramebufferLayout.(*framebufferLayout)
	if !ok || fbLayout.dev != d {
		return nil, fmt.Errorf("%w: framebuffer layout", graphics.ErrWrongDevice)
	}
	p := &pipeline{
		dev:     d,
		desc:    desc,
		program: prog,
		state:   desc.State.Desc(),
	}
	var setLayouts []vk.DescriptorSetLayout
	if desc.DescriptorSetLayout != nil {
		if p.set, ok = desc.DescriptorSetLayout.(*descriptorSetLayout); !ok || p.set.dev != d {
			return nil, fmt.Errorf("%w: descriptor set layout", graphics.ErrWrongDevice)
		}
		setLayouts = append(setLayouts, p.set.handle)
	}
	var input graphics.InputLayoutDesc
	if desc.InputLayout != nil {
		input = desc.InputLayout.Desc()
		p.slots = input.Slots()
		p.indexed = input.IndexType
	}

	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}
	if err := check(vk.CreatePipelineLayout(d.handle, &layoutInfo, nil, &p.layout), "vkCreatePipelineLayout"); err != nil {
		return nil, err
	}
	rp, err := fbLayout.renderPass(passOffscreen)
	if err != nil {
		vk.DestroyPipelineLayout(d.handle, p.layout, nil)
		return nil, err
	}
	info := pipelineInfo(p.state, input, prog.stages, fbLayout.desc.ColorCount(), fbLayout.desc.ColorCount() < len(fbLayout.desc.Attachments))
	info.create.Layout = p.layout
	info.create.RenderPass = rp
	pipelines := make([]vk.Pipeline, 1)
	if err := check(vk.CreateGraphicsPipelines(d.handle, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{info.create}, nil, pipelines), "vkCreateGraphicsPipelines"); err != nil {
		vk.DestroyPipelineLayout(d.handle, p.layout, nil)
		return nil, err
	}
	p.handle = pipelines[0]
	d.log.Debug("pipeline created", "name", desc.Name, "slots", len(p.slots), "stages", len(prog.stages))

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
	handle, layout := p.handle, p.layout
	p.InitRefs(func() {
		d.release(func() {
			vk.DestroyPipeline(d.handle, handle, nil)
			vk.DestroyPipelineLayout(d.handle, layout, nil)
		})
		for _, r := range retained {
			r.Release()
		}
	})
	return p, nil
}

// pipelineCreate keeps the slices a GraphicsPipelineCreateInfo points into.
type pipelineCreate struct {
	create     vk.GraphicsPipelineCreateInfo
	bindings   []vk.VertexInputBindingDescription
	attributes []vk.VertexInputAttributeDescription
	blend      []vk.PipelineColorBlendAttachmentState
}

var dynamicStates = []vk.DynamicState{
	vk.DynamicStateViewport,
	vk.DynamicStateScissor,
	vk.DynamicStateStencilCompareMask,
	vk.DynamicStateStencilWriteMask,
	vk.DynamicStateStencilReference,
}

// vertexInput turns an input layout into one binding per slot and one
// attribute per component, located at the component index. A slot reading
// any component with a divisor steps per instance.
func vertexInput(input graphics.InputLayoutDesc) ([]vk.VertexInputBindingDescription, []vk.VertexInputAttributeDescription) {
	var bindings []vk.VertexInputBindingDescription
	for _, slot := range input.Slots() {
		rate := vk.VertexInputRateVertex
		for _, vc := range input.Components {
			if vc.Slot == slot && vc.Divisor > 0 {
				rate = vk.VertexInputRateInstance
			}
		}
		bindings = append(bindings, vk.VertexInputBindingDescription{
			Binding:   uint32(slot),
			Stride:    input.Stride(slot),
			InputRate: rate,
		})
	}
	attributes := make([]vk.VertexInputAttributeDescription, 0, len(input.Components))
	for i, vc := range input.Components {
		attributes = append(attributes, vk.VertexInputAttributeDescription{
			Location: uint32(i),
			Binding:  uint32(vc.Slot),
			Format:   nativeFormat(vc.Format),
			Offset:   input.Offset(i),
		})
	}
	return bindings, attributes
}

func stencilFace(f graphics.StencilFaceDesc) vk.StencilOpState {
	return vk.StencilOpState{
		FailOp:      stencilOp(f.Fail),
		PassOp:      stencilOp(f.Pass),
		DepthFailOp: stencilOp(f.DepthFail),
		CompareOp:   compareOp(f.Func),
		CompareMask: f.ReadMask,
		WriteMask:   f.WriteMask,
		Reference:   f.Ref,
	}
}

func pipelineInfo(s graphics.StateDesc, input graphics.InputLayoutDesc, stages []vk.PipelineShaderStageCreateInfo, colors int, depth bool) *pipelineCreate {
	info := &pipelineCreate{}
	if len(input.Components) > 0 {
		info.bindings, info.attributes = vertexInput(input)
	}
	vertexState := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(info.bindings)),
		PVertexBindingDescriptions:      info.bindings,
		VertexAttributeDescriptionCount: uint32(len(info.attributes)),
		PVertexAttributeDescriptions:    info.attributes,
	}
	assembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: topology(s.Topology),
	}
	viewport := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	raster := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        toBool32(s.DepthClamp),
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             polygonMode(s.Polygon),
		CullMode:                cullMode(s.Cull),
		FrontFace:               frontFace(s.FrontFace),
		DepthBiasEnable:         toBool32(s.DepthBiasEnable),
		DepthBiasConstantFactor: s.DepthBias,
		DepthBiasSlopeFactor:    s.DepthSlopeScale,
		LineWidth:               1,
	}
	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1,
	}
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   toBool32(depth && s.DepthTest),
		DepthWriteEnable:  toBool32(depth && s.DepthWrite),
		DepthCompareOp:    compareOp(s.DepthFunc),
		StencilTestEnable: toBool32(depth && s.StencilTest),
		Front:             stencilFace(s.StencilFront),
		Back:              stencilFace(s.StencilBack),
		MaxDepthBounds:    1,
	}
	attachment := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         toBool32(s.Blend.Enable),
		SrcColorBlendFactor: blendFactor(s.Blend.SrcColor),
		DstColorBlendFactor: blendFactor(s.Blend.DstColor),
		ColorBlendOp:        blendOp(s.Blend.ColorOp),
		SrcAlphaBlendFactor: blendFactor(s.Blend.SrcAlpha),
		DstAlphaBlendFactor: blendFactor(s.Blend.DstAlpha),
		AlphaBlendOp:        blendOp(s.Blend.AlphaOp),
		ColorWriteMask:      colorWriteMask(s.Blend.WriteMask),
	}
	for i := 0; i < colors; i++ {
		info.blend = append(info.blend, attachment)
	}
	blend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(info.blend)),
		PAttachments:    info.blend,
	}
	dynamic := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}
	info.create = vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexState,
		PInputAssemblyState: &assembly,
		PViewportState:      &viewport,
		PRasterizationState: &raster,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &blend,
		PDynamicState:       &dynamic,
		BasePipelineIndex:   -1,
	}
	return info
}
