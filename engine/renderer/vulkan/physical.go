package vulkan

import (
	"fmt"
	"runtime"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

/** @brief Queue family indices of a physical device, -1 when absent. */
type queueFamilies struct {
	Graphics int32
	Present  int32
	Transfer int32
}

func (q queueFamilies) complete() bool {
	return q.Graphics >= 0 && q.Present >= 0 && q.Transfer >= 0
}

// unique returns the distinct family indices, graphics first.
func (q queueFamilies) unique() []uint32 {
	out := []uint32{uint32(q.Graphics)}
	for _, f := range []int32{q.Present, q.Transfer} {
		dup := false
		for _, o := range out {
			if o == uint32(f) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, uint32(f))
		}
	}
	return out
}

/** @brief What a queue family can do, decoupled from the driver structs. */
type queueFamilyInfo struct {
	Flags   vk.QueueFlagBits
	Present bool
}

// pickQueueFamilies prefers a family doing graphics and present together,
// and the transfer family with the fewest other capabilities.
func pickQueueFamilies(families []queueFamilyInfo) queueFamilies {
	q := queueFamilies{Graphics: -1, Present: -1, Transfer: -1}
	minTransferScore := 255
	for i, f := range families {
		idx := int32(i)
		graphics := f.Flags&vk.QueueGraphicsBit != 0
		if graphics && f.Present && (q.Graphics < 0 || q.Graphics != q.Present) {
			q.Graphics, q.Present = idx, idx
		}
		if graphics && q.Graphics < 0 {
			q.Graphics = idx
		}
		if f.Present && q.Present < 0 {
			q.Present = idx
		}
		score := 0
		if graphics {
			score++
		}
		if f.Flags&vk.QueueComputeBit != 0 {
			score++
		}
		if f.Flags&vk.QueueTransferBit != 0 && score < minTransferScore {
			minTransferScore = score
			q.Transfer = idx
		}
	}
	// graphics queues implicitly support transfer
	if q.Transfer < 0 {
		q.Transfer = q.Graphics
	}
	return q
}

type swapchainSupport struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

func querySwapchainSupport(pd vk.PhysicalDevice, surface vk.Surface) (swapchainSupport, error) {
	var s swapchainSupport
	if err := check(vk.GetPhysicalDeviceSurfaceCapabilities(pd, surface, &s.Capabilities), "vkGetPhysicalDeviceSurfaceCapabilities"); err != nil {
		return s, err
	}
	s.Capabilities.Deref()
	s.Capabilities.CurrentExtent.Deref()
	s.Capabilities.MinImageExtent.Deref()
	s.Capabilities.MaxImageExtent.Deref()

	var count uint32
	if err := check(vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &count, nil), "vkGetPhysicalDeviceSurfaceFormats"); err != nil {
		return s, err
	}
	if count > 0 {
		s.Formats = make([]vk.SurfaceFormat, count)
		if err := check(vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &count, s.Formats), "vkGetPhysicalDeviceSurfaceFormats"); err != nil {
			return s, err
		}
		for i := range s.Formats {
			s.Formats[i].Deref()
		}
	}

	count = 0
	if err := check(vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &count, nil), "vkGetPhysicalDeviceSurfacePresentModes"); err != nil {
		return s, err
	}
	if count > 0 {
		s.PresentModes = make([]vk.PresentMode, count)
		if err := check(vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &count, s.PresentModes), "vkGetPhysicalDeviceSurfacePresentModes"); err != nil {
			return s, err
		}
	}
	return s, nil
}

func hasDeviceExtension(pd vk.PhysicalDevice, name string) (bool, error) {
	var count uint32
	if err := check(vk.EnumerateDeviceExtensionProperties(pd, "", &count, nil), "vkEnumerateDeviceExtensionProperties"); err != nil {
		return false, err
	}
	exts := make([]vk.ExtensionProperties, count)
	if err := check(vk.EnumerateDeviceExtensionProperties(pd, "", &count, exts), "vkEnumerateDeviceExtensionProperties"); err != nil {
		return false, err
	}
	for i := range exts {
		exts[i].Deref()
		if cString(exts[i].ExtensionName[:]) == name {
			return true, nil
		}
	}
	return false, nil
}

/** @brief A physical device that can render and present to the surface. */
type physicalDevice struct {
	handle     vk.PhysicalDevice
	name       string
	queues     queueFamilies
	properties vk.PhysicalDeviceProperties
	limits     vk.PhysicalDeviceLimits
	features   vk.PhysicalDeviceFeatures
	memory     vk.PhysicalDeviceMemoryProperties
	support    swapchainSupport
}

func (pd *physicalDevice) formatProperties(f vk.Format) vk.FormatProperties {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(pd.handle, f, &props)
	props.Deref()
	return props
}

func deviceTypeScore(t vk.PhysicalDeviceType) int {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 3
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 2
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 1
	}
	return 0
}

func inspectPhysicalDevice(handle vk.PhysicalDevice, surface vk.Surface) (*physicalDevice, error) {
	pd := &physicalDevice{handle: handle}
	vk.GetPhysicalDeviceProperties(handle, &pd.properties)
	pd.properties.Deref()
	pd.limits = pd.properties.Limits
	pd.limits.Deref()
	pd.name = cString(pd.properties.DeviceName[:])
	vk.GetPhysicalDeviceFeatures(handle, &pd.features)
	pd.features.Deref()
	vk.GetPhysicalDeviceMemoryProperties(handle, &pd.memory)
	pd.memory.Deref()

	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(handle, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(handle, &count, props)
	families := make([]queueFamilyInfo, count)
	for i := range props {
		props[i].Deref()
		var present vk.Bool32
		if err := check(vk.GetPhysicalDeviceSurfaceSupport(handle, uint32(i), surface, &present), "vkGetPhysicalDeviceSurfaceSupport"); err != nil {
			return nil, err
		}
		families[i] = queueFamilyInfo{Flags: vk.QueueFlagBits(props[i].QueueFlags), Present: present == vk.True}
	}
	pd.queues = pickQueueFamilies(families)
	if !pd.queues.complete() {
		return nil, fmt.Errorf("%s: missing graphics or present queue", pd.name)
	}
	ok, err := hasDeviceExtension(handle, vk.KhrSwapchainExtensionName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: no %s", pd.name, vk.KhrSwapchainExtensionName)
	}
	if pd.support, err = querySwapchainSupport(handle, surface); err != nil {
		return nil, err
	}
	if len(pd.support.Formats) == 0 || len(pd.support.PresentModes) == 0 {
		return nil, fmt.Errorf("%s: surface has no formats or present modes", pd.name)
	}
	return pd, nil
}

// selectPhysicalDevice returns the best suitable device, discrete GPUs first.
func selectPhysicalDevice(inst *instance) (*physicalDevice, error) {
	var count uint32
	if err := check(vk.EnumeratePhysicalDevices(inst.handle, &count, nil), "vkEnumeratePhysicalDevices"); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: no Vulkan capable device", graphics.ErrUnsupportedDevice)
	}
	handles := make([]vk.PhysicalDevice, count)
	if err := check(vk.EnumeratePhysicalDevices(inst.handle, &count, handles), "vkEnumeratePhysicalDevices"); err != nil {
		return nil, err
	}

	var best *physicalDevice
	for _, h := range handles {
		pd, err := inspectPhysicalDevice(h, inst.surface)
		if err != nil {
			core.LogDebug("skipping physical device: %s", err)
			continue
		}
		if best == nil || deviceTypeScore(pd.properties.DeviceType) > deviceTypeScore(best.properties.DeviceType) {
			best = pd
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: no physical device meets the requirements", graphics.ErrUnsupportedDevice)
	}

	api := vk.Version(best.properties.ApiVersion)
	core.LogInfo("selected device %s, Vulkan %d.%d.%d", best.name, api.Major(), api.Minor(), api.Patch())
	for i := uint32(0); i < best.memory.MemoryHeapCount; i++ {
		heap := best.memory.MemoryHeaps[i]
		heap.Deref()
		kind := "shared"
		if vk.MemoryHeapFlagBits(heap.Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			kind = "local"
		}
		core.LogDebug("%s memory heap: %d MiB", kind, uint64(heap.Size)/1024/1024)
	}
	return best, nil
}

// depthFormat picks the first candidate usable as an optimal tiling depth attachment.
func (pd *physicalDevice) depthFormat(candidates ...vk.Format) vk.Format {
	want := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, f := range candidates {
		if pd.formatProperties(f).OptimalTilingFeatures&want == want {
			return f
		}
	}
	return vk.FormatUndefined
}

// portability reports whether the device requires VK_KHR_portability_subset.
func (pd *physicalDevice) portability() bool {
	if runtime.GOOS != "darwin" {
		return false
	}
	ok, _ := hasDeviceExtension(pd.handle, "VK_KHR_portability_subset")
	return ok
}
