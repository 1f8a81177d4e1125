package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

const (
	memoryDeviceLocal = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	memoryHostVisible = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
)

// findMemoryType returns the first memory type allowed by typeBits that has
// every flag in want.
func findMemoryType(props vk.PhysicalDeviceMemoryProperties, typeBits uint32, want vk.MemoryPropertyFlags) (uint32, bool) {
	for i := uint32(0); i < props.MemoryTypeCount && i < vk.MaxMemoryTypes; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		mt := props.MemoryTypes[i]
		mt.Deref()
		if mt.PropertyFlags&want == want {
			return i, true
		}
	}
	return 0, false
}

/** @brief A block of device memory bound to a single buffer or image. */
type allocation struct {
	memory vk.DeviceMemory
	size   vk.DeviceSize
	mapped unsafe.Pointer
}

func (d *Device) allocate(reqs vk.MemoryRequirements, want vk.MemoryPropertyFlags) (allocation, error) {
	index, ok := findMemoryType(d.physical.memory, reqs.MemoryTypeBits, want)
	if !ok && want == memoryDeviceLocal {
		// unified memory devices may only expose host visible heaps
		index, ok = findMemoryType(d.physical.memory, reqs.MemoryTypeBits, 0)
	}
	if !ok {
		return allocation{}, fmt.Errorf("%w: no memory type for flags 0x%x", graphics.ErrNative, uint32(want))
	}
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: index,
	}
	var mem vk.DeviceMemory
	if err := check(vk.AllocateMemory(d.handle, &info, nil, &mem), "vkAllocateMemory"); err != nil {
		return allocation{}, err
	}
	return allocation{memory: mem, size: reqs.Size}, nil
}

func (d *Device) mapAllocation(a *allocation) error {
	if a.mapped != nil {
		return nil
	}
	var p unsafe.Pointer
	if err := check(vk.MapMemory(d.handle, a.memory, 0, a.size, 0, &p), "vkMapMemory"); err != nil {
		return err
	}
	a.mapped = p
	return nil
}

func (d *Device) free(a *allocation) {
	if a.memory == vk.NullDeviceMemory {
		return
	}
	if a.mapped != nil {
		vk.UnmapMemory(d.handle, a.memory)
		a.mapped = nil
	}
	vk.FreeMemory(d.handle, a.memory, nil)
	a.memory = vk.NullDeviceMemory
}

// write copies p into mapped memory at offset.
func (a *allocation) write(offset uint32, p []byte) {
	dst := unsafe.Slice((*byte)(a.mapped), int(a.size))
	copy(dst[offset:], p)
}

func (a *allocation) read(offset uint32, p []byte) {
	src := unsafe.Slice((*byte)(a.mapped), int(a.size))
	copy(p, src[offset:])
}

/** @brief A buffer with its own memory, used for vertex, index, uniform and staging data. */
type rawBuffer struct {
	handle vk.Buffer
	alloc  allocation
}

func (d *Device) createRawBuffer(size uint32, usage vk.BufferUsageFlagBits, flags vk.MemoryPropertyFlags) (rawBuffer, error) {
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var b rawBuffer
	if err := check(vk.CreateBuffer(d.handle, &info, nil, &b.handle), "vkCreateBuffer"); err != nil {
		return b, err
	}
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.handle, b.handle, &reqs)
	reqs.Deref()
	alloc, err := d.allocate(reqs, flags)
	if err != nil {
		vk.DestroyBuffer(d.handle, b.handle, nil)
		return rawBuffer{}, err
	}
	b.alloc = alloc
	if err := check(vk.BindBufferMemory(d.handle, b.handle, alloc.memory, 0), "vkBindBufferMemory"); err != nil {
		d.destroyRawBuffer(&b)
		return rawBuffer{}, err
	}
	if flags&memoryHostVisible == memoryHostVisible {
		if err := d.mapAllocation(&b.alloc); err != nil {
			d.destroyRawBuffer(&b)
			return rawBuffer{}, err
		}
	}
	return b, nil
}

func (d *Device) destroyRawBuffer(b *rawBuffer) {
	if b.handle != vk.NullBuffer {
		vk.DestroyBuffer(d.handle, b.handle, nil)
		b.handle = vk.NullBuffer
	}
	d.free(&b.alloc)
}

func alignUp(v, align uint32) uint32 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) / align * align
}
