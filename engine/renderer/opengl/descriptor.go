package opengl

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

type descriptorSetLayout struct {
	graphics.RefCount
	desc  graphics.DescriptorSetLayoutDesc
	index map[string]int
}

func (l *descriptorSetLayout) Desc() graphics.DescriptorSetLayoutDesc {
	return l.desc
}

func (d *Device) CreateDescriptorSetLayout(desc graphics.DescriptorSetLayoutDesc) (graphics.DescriptorSetLayout, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	l := &descriptorSetLayout{desc: desc, index: make(map[string]int, len(desc.Uniforms))}
	for i, u := range desc.Uniforms {
		if u.Type == graphics.UniformBuffer && !d.profile.Caps.Has(graphics.FeatureUniformBuffer) {
			return nil, fmt.Errorf("%w: %s for %s", graphics.ErrUnsupportedFeature, graphics.FeatureUniformBuffer, u.Name)
		}
		l.index[u.Name] = i
	}
	l.InitRefs(nil)
	return l, nil
}

// descriptorPool only accounts for the sets handed out, GL has no native
// descriptor storage.
type descriptorPool struct {
	graphics.RefCount
	desc graphics.DescriptorPoolDesc
	sets uint32
}

func (p *descriptorPool) Desc() graphics.DescriptorPoolDesc {
	return p.desc
}

func (d *Device) CreateDescriptorPool(desc graphics.DescriptorPoolDesc) (graphics.DescriptorPool, error) {
	p := &descriptorPool{desc: desc}
	p.InitRefs(nil)
	return p, nil
}

// descriptorValue holds one bound parameter. Exactly one field matching the
// uniform type is set.
type descriptorValue struct {
	set     bool
	scalar  [16]float32
	integer int32
	texture *texture
	sampler *sampler
	buffer  *data
}

type descriptorSet struct {
	graphics.RefCount
	desc   graphics.DescriptorSetDesc
	layout *descriptorSetLayout
	values []descriptorValue
	// version increases on every write so contexts can skip re-binding.
	version uint64
}

func (s *descriptorSet) Desc() graphics.DescriptorSetDesc {
	return s.desc
}

func (d *Device) CreateDescriptorSet(desc graphics.DescriptorSetDesc) (graphics.DescriptorSet, error) {
	layout, ok := desc.Layout.(*descriptorSetLayout)
	if !ok {
		return nil, fmt.Errorf("%w: descriptor set without a layout of this device", graphics.ErrInvalidDesc)
	}
	var pool *descriptorPool
	if desc.Pool != nil {
		if pool, ok = desc.Pool.(*descriptorPool); !ok {
			return nil, fmt.Errorf("%w: descriptor pool", graphics.ErrWrongDevice)
		}
		if pool.desc.MaxSets > 0 && pool.sets >= pool.desc.MaxSets {
			return nil, fmt.Errorf("%w: descriptor pool exhausted after %d sets", graphics.ErrInvalidDesc, pool.desc.MaxSets)
		}
		pool.sets++
		pool.Retain()
	}
	layout.Retain()

	s := &descriptorSet{
		desc:    desc,
		layout:  layout,
		values:  make([]descriptorValue, len(layout.desc.Uniforms)),
		version: 1,
	}
	s.InitRefs(func() {
		for i := range s.values {
			s.values[i].releaseResources()
		}
		layout.Release()
		if pool != nil {
			pool.sets--
			pool.Release()
		}
	})
	return s, nil
}

func (v *descriptorValue) releaseResources() {
	if v.texture != nil {
		v.texture.Release()
		v.texture = nil
	}
	if v.sampler != nil {
		v.sampler.Release()
		v.sampler = nil
	}
	if v.buffer != nil {
		v.buffer.Release()
		v.buffer = nil
	}
}

func (s *descriptorSet) Has(name string) bool {
	_, ok := s.layout.index[name]
	return ok
}

func (s *descriptorSet) slot(name string, ty graphics.UniformType) (*descriptorValue, error) {
	i, ok := s.layout.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", graphics.ErrUnknownParam, name)
	}
	if got := s.layout.desc.Uniforms[i].Type; got != ty {
		return nil, fmt.Errorf("%w: %s is %d, not %d", graphics.ErrParamType, name, got, ty)
	}
	s.version++
	v := &s.values[i]
	v.set = true
	return v, nil
}

func (s *descriptorSet) setScalars(name string, ty graphics.UniformType, values ...float32) error {
	v, err := s.slot(name, ty)
	if err != nil {
		return err
	}
	copy(v.scalar[:], values)
	return nil
}

func (s *descriptorSet) SetFloat(name string, f float32) error {
	return s.setScalars(name, graphics.UniformFloat, f)
}

func (s *descriptorSet) SetInt(name string, i int32) error {
	v, err := s.slot(name, graphics.UniformInt)
	if err != nil {
		return err
	}
	v.integer = i
	return nil
}

func (s *descriptorSet) SetVec2(name string, vec mgl32.Vec2) error {
	return s.setScalars(name, graphics.UniformVec2, vec[:]...)
}

func (s *descriptorSet) SetVec3(name string, vec mgl32.Vec3) error {
	return s.setScalars(name, graphics.UniformVec3, vec[:]...)
}

func (s *descriptorSet) SetVec4(name string, vec mgl32.Vec4) error {
	return s.setScalars(name, graphics.UniformVec4, vec[:]...)
}

func (s *descriptorSet) SetMat4(name string, m mgl32.Mat4) error {
	return s.setScalars(name, graphics.UniformMat4, m[:]...)
}

func (s *descriptorSet) SetTexture(name string, t graphics.Texture, smp graphics.Sampler) error {
	tex, ok := t.(*texture)
	if !ok {
		return fmt.Errorf("%w: texture for %s", graphics.ErrWrongDevice, name)
	}
	var gs *sampler
	if smp != nil {
		if gs, ok = smp.(*sampler); !ok {
			return fmt.Errorf("%w: sampler for %s", graphics.ErrWrongDevice, name)
		}
	}
	v, err := s.slot(name, graphics.UniformTexture)
	if err != nil {
		return err
	}
	tex.Retain()
	if gs != nil {
		gs.Retain()
	}
	v.releaseResources()
	v.texture, v.sampler = tex, gs
	return nil
}

func (s *descriptorSet) SetBuffer(name string, b graphics.Data) error {
	buf, ok := b.(*data)
	if !ok {
		return fmt.Errorf("%w: buffer for %s", graphics.ErrWrongDevice, name)
	}
	v, err := s.slot(name, graphics.UniformBuffer)
	if err != nil {
		return err
	}
	buf.Retain()
	v.releaseResources()
	v.buffer = buf
	return nil
}
