package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

type data struct {
	graphics.RefCount
	dev  *Device
	desc graphics.DataDesc
	buf  rawBuffer
}

func (b *data) Desc() graphics.DataDesc {
	return b.desc
}

// Update writes through the persistent mapping. Buffers are host visible,
// keeping a copy in flight is up to the caller.
func (b *data) Update(offset uint32, p []byte) error {
	if !b.Alive() {
		return fmt.Errorf("%w: update of a released buffer", graphics.ErrInvalidDesc)
	}
	if b.desc.Usage&graphics.UsageImmutable != 0 {
		return fmt.Errorf("%w: buffer is immutable", graphics.ErrInvalidDesc)
	}
	if uint64(offset)+uint64(len(p)) > uint64(b.desc.Size) {
		return fmt.Errorf("%w: update of %d bytes at %d overflows %d byte buffer", graphics.ErrInvalidDesc, len(p), offset, b.desc.Size)
	}
	if len(p) == 0 {
		return nil
	}
	b.buf.alloc.write(offset, p)
	return nil
}

func bufferUsage(t graphics.DataType) vk.BufferUsageFlagBits {
	usage := vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit
	switch t {
	case graphics.DataTypeVertex:
		usage |= vk.BufferUsageVertexBufferBit
	case graphics.DataTypeIndex:
		usage |= vk.BufferUsageIndexBufferBit
	case graphics.DataTypeUniform:
		usage |= vk.BufferUsageUniformBufferBit
	case graphics.DataTypeStorage:
		usage |= vk.BufferUsageStorageBufferBit
	}
	return usage
}

func (d *Device) CreateData(desc graphics.DataDesc) (graphics.Data, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	raw, err := d.createRawBuffer(desc.Size, bufferUsage(desc.Type), memoryHostVisible)
	if err != nil {
		return nil, err
	}
	b := &data{dev: d, desc: desc, buf: raw}
	b.desc.Stream = nil
	if len(desc.Stream) > 0 {
		b.buf.alloc.write(0, desc.Stream)
	}
	b.InitRefs(func() {
		buf := b.buf
		d.release(func() { d.destroyRawBuffer(&buf) })
	})
	return b, nil
}
