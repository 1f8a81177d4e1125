package opengl

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

type data struct {
	graphics.RefCount
	dev    *Device
	desc   graphics.DataDesc
	id     Buffer
	target Enum
}

func (b *data) Desc() graphics.DataDesc {
	return b.desc
}

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
	b.dev.state.bindBuffer(b.target, b.id)
	b.dev.f.BufferSubData(b.target, int(offset), p)
	return b.dev.checkError("update buffer")
}

func (d *Device) CreateData(desc graphics.DataDesc) (graphics.Data, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	target := Enum(ARRAY_BUFFER)
	switch desc.Type {
	case graphics.DataTypeVertex, graphics.DataTypeIndex:
		// index data is uploaded through ARRAY_BUFFER so that creating it
		// never touches the element binding of the bound vertex array.
	case graphics.DataTypeUniform:
		if !d.profile.Caps.Has(graphics.FeatureUniformBuffer) {
			return nil, fmt.Errorf("%w: %s", graphics.ErrUnsupportedFeature, graphics.FeatureUniformBuffer)
		}
		target = UNIFORM_BUFFER
	default:
		return nil, fmt.Errorf("%w: storage buffers", graphics.ErrUnsupportedFeature)
	}

	usage := Enum(STATIC_DRAW)
	if desc.Usage&(graphics.UsageDynamic|graphics.UsageMapWrite) != 0 {
		usage = DYNAMIC_DRAW
	}

	b := &data{dev: d, desc: desc, id: d.f.CreateBuffer(), target: target}
	b.desc.Stream = nil
	d.state.bindBuffer(target, b.id)
	if uint32(len(desc.Stream)) == desc.Size {
		d.f.BufferData(target, int(desc.Size), desc.Stream, usage)
	} else {
		d.f.BufferData(target, int(desc.Size), nil, usage)
		if len(desc.Stream) > 0 {
			d.f.BufferSubData(target, 0, desc.Stream)
		}
	}
	if err := d.checkError("create buffer"); err != nil {
		d.state.deleteBuffer(b.id)
		return nil, err
	}
	b.InitRefs(func() {
		d.state.deleteBuffer(b.id)
	})
	return b, nil
}
