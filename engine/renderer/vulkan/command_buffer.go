package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

type commandBufferState int

const (
	commandBufferNotAllocated commandBufferState = iota
	commandBufferReady
	commandBufferRecording
	commandBufferInRenderPass
	commandBufferRecordingEnded
	commandBufferSubmitted
)

type commandBuffer struct {
	handle vk.CommandBuffer
	state  commandBufferState
}

func (d *Device) allocateCommandBuffer(primary bool) (*commandBuffer, error) {
	level := vk.CommandBufferLevelPrimary
	if !primary {
		level = vk.CommandBufferLevelSecondary
	}
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.pool,
		CommandBufferCount: 1,
		Level:              level,
	}
	handles := make([]vk.CommandBuffer, 1)
	if err := check(vk.AllocateCommandBuffers(d.handle, &info, handles), "vkAllocateCommandBuffers"); err != nil {
		return nil, err
	}
	return &commandBuffer{handle: handles[0], state: commandBufferReady}, nil
}

func (d *Device) freeCommandBuffer(cb *commandBuffer) {
	if cb.handle == nil {
		return
	}
	vk.FreeCommandBuffers(d.handle, d.pool, 1, []vk.CommandBuffer{cb.handle})
	cb.handle = nil
	cb.state = commandBufferNotAllocated
}

func (cb *commandBuffer) begin(singleUse, renderPassContinue, simultaneousUse bool) error {
	var flags vk.CommandBufferUsageFlagBits
	if singleUse {
		flags |= vk.CommandBufferUsageOneTimeSubmitBit
	}
	if renderPassContinue {
		flags |= vk.CommandBufferUsageRenderPassContinueBit
	}
	if simultaneousUse {
		flags |= vk.CommandBufferUsageSimultaneousUseBit
	}
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(flags),
	}
	if err := check(vk.BeginCommandBuffer(cb.handle, &info), "vkBeginCommandBuffer"); err != nil {
		return err
	}
	cb.state = commandBufferRecording
	return nil
}

func (cb *commandBuffer) end() error {
	if err := check(vk.EndCommandBuffer(cb.handle), "vkEndCommandBuffer"); err != nil {
		return err
	}
	cb.state = commandBufferRecordingEnded
	return nil
}

func (cb *commandBuffer) reset() error {
	if err := check(vk.ResetCommandBuffer(cb.handle, 0), "vkResetCommandBuffer"); err != nil {
		return err
	}
	cb.state = commandBufferReady
	return nil
}

// submitted marks the buffer as handed to a queue.
func (cb *commandBuffer) submitted() {
	cb.state = commandBufferSubmitted
}

// immediate records work through fn into a one time command buffer, submits
// it to the graphics queue and waits for it to finish.
func (d *Device) immediate(fn func(cmd vk.CommandBuffer)) error {
	cb, err := d.allocateCommandBuffer(true)
	if err != nil {
		return err
	}
	defer d.freeCommandBuffer(cb)
	if err := cb.begin(true, false, false); err != nil {
		return err
	}
	fn(cb.handle)
	if err := cb.end(); err != nil {
		return err
	}

	f, err := d.newFence(false)
	if err != nil {
		return err
	}
	defer f.destroy(d)
	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.handle},
	}
	if err := check(vk.QueueSubmit(d.graphicsQueue, 1, []vk.SubmitInfo{submit}, f.handle), "vkQueueSubmit"); err != nil {
		return err
	}
	cb.submitted()
	if !f.wait(d, fenceTimeout) {
		return fmt.Errorf("immediate submission did not finish")
	}
	return nil
}
