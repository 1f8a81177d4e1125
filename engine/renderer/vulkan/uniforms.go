package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

// uniformArenaSize is split evenly between the frames in flight.
const uniformArenaSize = 4 << 20

/**
 * @brief Linear allocator for per draw uniform data. Each frame in flight
 * owns a region that is rewound when the frame's fence has been waited on,
 * so values written for one draw are never seen by another.
 */
type uniformArena struct {
	buf        rawBuffer
	regionSize uint32
	align      uint32
	region     uint32
	cursor     uint32
}

func (d *Device) newUniformArena(size uint32) (*uniformArena, error) {
	buf, err := d.createRawBuffer(size, vk.BufferUsageUniformBufferBit, memoryHostVisible)
	if err != nil {
		return nil, err
	}
	return &uniformArena{
		buf:        buf,
		regionSize: size / maxFramesInFlight,
		align:      d.uniformAlign,
	}, nil
}

// begin rewinds the region of a frame slot whose previous use has completed.
func (a *uniformArena) begin(slot int) {
	a.region = uint32(slot) * a.regionSize
	a.cursor = 0
}

// push copies p into the current region and returns its buffer offset.
func (a *uniformArena) push(p []byte) (uint32, bool) {
	offset := alignUp(a.cursor, a.align)
	if offset+uint32(len(p)) > a.regionSize {
		return 0, false
	}
	a.buf.alloc.write(a.region+offset, p)
	a.cursor = offset + uint32(len(p))
	return a.region + offset, true
}

// std140 returns the base alignment and size of one uniform inside a block.
// Array elements are padded to 16 bytes.
func std140(u graphics.UniformDesc) (align, size uint32) {
	count := max(u.Count, 1)
	switch u.Type {
	case graphics.UniformFloat, graphics.UniformInt:
		align, size = 4, 4
	case graphics.UniformVec2:
		align, size = 8, 8
	case graphics.UniformVec3:
		align, size = 16, 12
	case graphics.UniformVec4:
		align, size = 16, 16
	case graphics.UniformMat4:
		align, size = 16, 64
	default:
		return 0, 0
	}
	if count > 1 {
		align = 16
		size = alignUp(size, 16) * count
	}
	return align, size
}

func isBlockMember(t graphics.UniformType) bool {
	return t != graphics.UniformTexture && t != graphics.UniformBuffer
}

// uniformBlock is where the plain values of a descriptor set layout live.
// They form one std140 block in declaration order, bound at the binding of
// the first plain value.
type uniformBlock struct {
	binding uint32
	size    uint32
	// offsets has one entry per uniform, -1 for textures and buffers.
	offsets []int32
}

func newUniformBlock(uniforms []graphics.UniformDesc) (uniformBlock, bool) {
	b := uniformBlock{offsets: make([]int32, len(uniforms))}
	found := false
	offset := uint32(0)
	for i, u := range uniforms {
		if !isBlockMember(u.Type) {
			b.offsets[i] = -1
			continue
		}
		if !found {
			b.binding = u.Binding
			found = true
		}
		align, size := std140(u)
		offset = alignUp(offset, align)
		b.offsets[i] = int32(offset)
		offset += size
	}
	b.size = alignUp(offset, 16)
	return b, found
}
