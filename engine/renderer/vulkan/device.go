package vulkan

import (
	"fmt"

	"github.com/charmbracelet/log"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

/**
 * @brief Vulkan implementation of graphics.Device. One logical device with a
 * graphics queue and a present queue, a resettable command pool and a queue
 * of deferred destructions that run once the GPU is done with a frame.
 */
type Device struct {
	desc     graphics.DeviceDesc
	inst     *instance
	physical *physicalDevice
	handle   vk.Device
	caps     graphics.Caps
	log      *log.Logger

	graphicsQueue vk.Queue
	presentQueue  vk.Queue
	transferQueue vk.Queue
	pool          vk.CommandPool

	// frame counts submissions, completed is the last one known finished.
	frame     uint64
	completed uint64
	destroys  *destroyQueue

	depthFormat  vk.Format
	uniformAlign uint32
	uniforms     *uniformArena
	defaultPool  *descriptorPool
}

var _ graphics.Device = (*Device)(nil)

func NewDevice() *Device {
	return &Device{
		log: core.Logger().With("backend", graphics.DeviceTypeVulkan.String()),
	}
}

func (d *Device) Setup(desc graphics.DeviceDesc) error {
	if d.handle != nil {
		return graphics.ErrAlreadySetup
	}
	if desc.Type != graphics.DeviceTypeVulkan {
		return fmt.Errorf("%w: vulkan device cannot run %s", graphics.ErrUnsupportedDevice, desc.Type)
	}
	surface, ok := desc.Surface.(graphics.VulkanSurface)
	if !ok {
		return fmt.Errorf("%w: vulkan needs a Vulkan surface", graphics.ErrUnsupportedDevice)
	}

	inst, err := newInstance("prism", surface, desc.Debug)
	if err != nil {
		return err
	}
	pd, err := selectPhysicalDevice(inst)
	if err != nil {
		inst.destroy()
		return err
	}
	d.desc = desc
	d.inst = inst
	d.physical = pd
	if err := d.createLogicalDevice(); err != nil {
		d.Close()
		return err
	}

	d.caps = buildCaps(pd.limits, pd.features, pd.formatProperties)
	d.depthFormat = pd.depthFormat(vk.FormatD32SfloatS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD32Sfloat, vk.FormatD16Unorm)
	d.uniformAlign = uint32(max(pd.limits.MinUniformBufferOffsetAlignment, 16))
	d.destroys = newDestroyQueue(destroyQueueSize)
	if d.uniforms, err = d.newUniformArena(uniformArenaSize); err != nil {
		d.Close()
		return err
	}

	d.log.Debug("capabilities",
		"device", pd.name,
		"max_texture_size", d.caps.MaxTextureSize,
		"max_vertex_attributes", d.caps.MaxVertexAttributes,
		"max_color_attachments", d.caps.MaxColorAttachments,
		"uniform_alignment", d.uniformAlign,
	)
	return nil
}

func (d *Device) createLogicalDevice() error {
	priorities := []float32{1}
	families := d.physical.queues.unique()
	queueInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, f := range families {
		queueInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: f,
			QueueCount:       1,
			PQueuePriorities: priorities,
		}
	}

	// only request what the device has, the caps report the rest
	have := d.physical.features
	features := vk.PhysicalDeviceFeatures{
		SamplerAnisotropy:  have.SamplerAnisotropy,
		FillModeNonSolid:   have.FillModeNonSolid,
		DepthClamp:         have.DepthClamp,
		GeometryShader:     have.GeometryShader,
		TessellationShader: have.TessellationShader,
		ImageCubeArray:     have.ImageCubeArray,
	}
	extensions := []string{vk.KhrSwapchainExtensionName}
	if d.physical.portability() {
		extensions = append(extensions, "VK_KHR_portability_subset")
	}
	info := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{features},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
	}
	var handle vk.Device
	if err := check(vk.CreateDevice(d.physical.handle, &info, nil, &handle), "vkCreateDevice"); err != nil {
		return err
	}
	d.handle = handle

	q := d.physical.queues
	vk.GetDeviceQueue(handle, uint32(q.Graphics), 0, &d.graphicsQueue)
	vk.GetDeviceQueue(handle, uint32(q.Present), 0, &d.presentQueue)
	vk.GetDeviceQueue(handle, uint32(q.Transfer), 0, &d.transferQueue)

	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(q.Graphics),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	return check(vk.CreateCommandPool(handle, &poolInfo, nil, &d.pool), "vkCreateCommandPool")
}

// Close waits for the GPU, runs every pending destruction and tears the
// device down. Resources still referenced by the caller are leaked.
func (d *Device) Close() {
	if d.inst == nil {
		return
	}
	if d.handle != nil {
		d.waitIdle()
		if d.defaultPool != nil {
			d.defaultPool.Release()
			d.defaultPool = nil
		}
		if d.destroys != nil {
			d.destroys.drain()
		}
		if d.uniforms != nil {
			d.destroyRawBuffer(&d.uniforms.buf)
			d.uniforms = nil
		}
		if d.pool != vk.NullCommandPool {
			vk.DestroyCommandPool(d.handle, d.pool, nil)
			d.pool = vk.NullCommandPool
		}
		vk.DestroyDevice(d.handle, nil)
		d.handle = nil
	}
	d.inst.destroy()
	d.inst = nil
	d.physical = nil
	d.graphicsQueue, d.presentQueue, d.transferQueue = nil, nil, nil
}

func (d *Device) Type() graphics.DeviceType {
	return graphics.DeviceTypeVulkan
}

func (d *Device) Desc() graphics.DeviceDesc {
	return d.desc
}

func (d *Device) Caps() graphics.Caps {
	return d.caps
}

func (d *Device) waitIdle() {
	if res := vk.DeviceWaitIdle(d.handle); res != vk.Success {
		core.LogError("vkDeviceWaitIdle failed with %s", VulkanResultString(res))
		return
	}
	d.completed = d.frame
	d.destroys.collect(d.completed)
}

// release schedules fn for when the GPU has finished the submissions made so
// far and the one being recorded. A full queue forces a wait.
func (d *Device) release(fn func()) {
	if d.destroys == nil {
		fn()
		return
	}
	if d.destroys.isFull() {
		d.waitIdle()
	}
	d.destroys.push(d.frame+1, fn)
}

// frameCompleted records that every submission up to frame has finished.
func (d *Device) frameCompleted(frame uint64) {
	if frame > d.completed {
		d.completed = frame
	}
	d.destroys.collect(d.completed)
}

// buildCaps derives the capability tables from what the physical device reports.
func buildCaps(limits vk.PhysicalDeviceLimits, features vk.PhysicalDeviceFeatures, formatProps func(vk.Format) vk.FormatProperties) graphics.Caps {
	var caps graphics.Caps
	caps.AddDims(graphics.TextureDim2D, graphics.TextureDim2DArray, graphics.TextureDim3D, graphics.TextureDimCube)
	if features.ImageCubeArray == vk.True {
		caps.AddDims(graphics.TextureDimCubeArray)
	}
	caps.AddStages(graphics.ShaderStageVertex, graphics.ShaderStageFragment, graphics.ShaderStageCompute)
	if features.GeometryShader == vk.True {
		caps.AddStages(graphics.ShaderStageGeometry)
	}
	if features.TessellationShader == vk.True {
		caps.AddStages(graphics.ShaderStageTessControl, graphics.ShaderStageTessEvaluation)
	}
	caps.AddFeatures(
		graphics.FeatureVertexArray,
		graphics.FeatureBlit,
		graphics.FeatureInstancing,
		graphics.FeatureMultipleRenderTargets,
		graphics.FeatureTexture3D,
		graphics.FeatureClearBuffer,
		graphics.FeatureCompute,
		graphics.FeatureIndirectDraw,
		graphics.FeatureUInt32Index,
		graphics.FeatureReadFramebuffer,
		graphics.FeatureUniformBuffer,
		graphics.FeatureSamplerObject,
	)
	if features.FillModeNonSolid == vk.True {
		caps.AddFeatures(graphics.FeaturePolygonMode)
	}
	if features.SamplerAnisotropy == vk.True {
		caps.AddFeatures(graphics.FeatureAnisotropy)
		caps.MaxAnisotropy = limits.MaxSamplerAnisotropy
	}
	if features.DepthClamp == vk.True {
		caps.AddFeatures(graphics.FeatureDepthClamp)
	}

	sampled := vk.FormatFeatureFlags(vk.FormatFeatureSampledImageBit)
	color := vk.FormatFeatureFlags(vk.FormatFeatureColorAttachmentBit)
	depth := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	vertex := vk.FormatFeatureFlags(vk.FormatFeatureVertexBufferBit)
	for f, nf := range formats {
		props := formatProps(nf)
		if props.OptimalTilingFeatures&sampled != 0 {
			caps.Textures.Add(f)
		}
		if props.OptimalTilingFeatures&(color|depth) != 0 {
			caps.Attachments.Add(f)
		}
		if props.BufferFeatures&vertex != 0 {
			caps.Vertex.Add(f)
		}
	}

	caps.MaxTextureSize = limits.MaxImageDimension2D
	caps.MaxCubeSize = limits.MaxImageDimensionCube
	caps.Max3DTextureSize = limits.MaxImageDimension3D
	caps.MaxArrayLayers = limits.MaxImageArrayLayers
	caps.MaxVertexAttributes = limits.MaxVertexInputAttributes
	caps.MaxColorAttachments = limits.MaxColorAttachments
	caps.MaxTextureUnits = limits.MaxPerStageDescriptorSamplers
	return caps
}

// resource helpers shared by the Create functions

func (d *Device) texture(t graphics.Texture) (*texture, error) {
	tex, ok := t.(*texture)
	if !ok || tex.dev != d {
		return nil, fmt.Errorf("%w: texture %s", graphics.ErrWrongDevice, t.Desc().Name)
	}
	return tex, nil
}

func (d *Device) data(b graphics.Data) (*data, error) {
	buf, ok := b.(*data)
	if !ok || buf.dev != d {
		return nil, fmt.Errorf("%w: buffer", graphics.ErrWrongDevice)
	}
	return buf, nil
}
