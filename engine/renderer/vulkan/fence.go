package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/core"
)

// fenceTimeout bounds every CPU wait on the GPU.
const fenceTimeout = uint64(5_000_000_000)

type fence struct {
	handle   vk.Fence
	signaled bool
}

func (d *Device) newFence(signaled bool) (*fence, error) {
	info := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	f := &fence{signaled: signaled}
	if err := check(vk.CreateFence(d.handle, &info, nil, &f.handle), "vkCreateFence"); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *fence) destroy(d *Device) {
	if f.handle != vk.NullFence {
		vk.DestroyFence(d.handle, f.handle, nil)
		f.handle = vk.NullFence
	}
	f.signaled = false
}

// wait blocks until the fence is signaled and reports whether it was.
func (f *fence) wait(d *Device, timeoutNs uint64) bool {
	if f.signaled {
		return true
	}
	res := vk.WaitForFences(d.handle, 1, []vk.Fence{f.handle}, vk.True, timeoutNs)
	switch res {
	case vk.Success:
		f.signaled = true
		return true
	case vk.Timeout:
		core.LogWarn("fence wait timed out")
	default:
		core.LogError("fence wait failed with %s", VulkanResultString(res))
	}
	return false
}

func (f *fence) reset(d *Device) error {
	if !f.signaled {
		return nil
	}
	if err := check(vk.ResetFences(d.handle, 1, []vk.Fence{f.handle}), "vkResetFences"); err != nil {
		return err
	}
	f.signaled = false
	return nil
}
