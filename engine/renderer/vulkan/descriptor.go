package vulkan

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

const defaultPoolSets = 256

type descriptorSetLayout struct {
	graphics.RefCount
	dev      *Device
	desc     graphics.DescriptorSetLayoutDesc
	index    map[string]int
	block    uniformBlock
	hasBlock bool
	handle   vk.DescriptorSetLayout
}

func (l *descriptorSetLayout) Desc() graphics.DescriptorSetLayoutDesc {
	return l.desc
}

func (d *Device) CreateDescriptorSetLayout(desc graphics.DescriptorSetLayoutDesc) (graphics.DescriptorSetLayout, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	l := &descriptorSetLayout{dev: d, desc: desc, index: make(map[string]int, len(desc.Uniforms))}
	l.block, l.hasBlock = newUniformBlock(desc.Uniforms)
	bindings, err := layoutBindings(desc.Uniforms, l.block, l.hasBlock)
	if err != nil {
		return nil, err
	}
	for i, u := range desc.Uniforms {
		l.index[u.Name] = i
	}
	if d.handle != nil {
		info := vk.DescriptorSetLayoutCreateInfo{
			SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
			BindingCount: uint32(len(bindings)),
			PBindings:    bindings,
		}
		if err := check(vk.CreateDescriptorSetLayout(d.handle, &info, nil, &l.handle), "vkCreateDescriptorSetLayout"); err != nil {
			return nil, err
		}
	}
	handle := l.handle
	l.InitRefs(func() {
		if handle != vk.NullDescriptorSetLayout {
			d.release(func() { vk.DestroyDescriptorSetLayout(d.handle, handle, nil) })
		}
	})
	return l, nil
}

// layoutBindings turns the uniforms into native bindings: one dynamic
// uniform buffer for the plain values, one binding per texture or buffer.
func layoutBindings(uniforms []graphics.UniformDesc, block uniformBlock, hasBlock bool) ([]vk.DescriptorSetLayoutBinding, error) {
	var bindings []vk.DescriptorSetLayoutBinding
	used := make(map[uint32]string)
	var blockStages graphics.ShaderStageFlags
	for _, u := range uniforms {
		if isBlockMember(u.Type) {
			blockStages |= u.Stages
			continue
		}
		if name, ok := used[u.Binding]; ok {
			return nil, fmt.Errorf("%w: %s and %s share binding %d", graphics.ErrInvalidDesc, name, u.Name, u.Binding)
		}
		used[u.Binding] = u.Name
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         u.Binding,
			DescriptorType:  descriptorType(u.Type),
			DescriptorCount: max(u.Count, 1),
			StageFlags:      shaderStageFlags(u.Stages),
		})
	}
	if hasBlock {
		if name, ok := used[block.binding]; ok {
			return nil, fmt.Errorf("%w: %s uses the uniform block binding %d", graphics.ErrInvalidDesc, name, block.binding)
		}
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         block.binding,
			DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
			DescriptorCount: 1,
			StageFlags:      shaderStageFlags(blockStages),
		})
	}
	return bindings, nil
}

// descriptorPool counts the sets handed out and owns the native pool they
// are allocated from.
type descriptorPool struct {
	graphics.RefCount
	dev    *Device
	desc   graphics.DescriptorPoolDesc
	sets   uint32
	handle vk.DescriptorPool
}

func (p *descriptorPool) Desc() graphics.DescriptorPoolDesc {
	return p.desc
}

// poolSizes maps the engine sizes onto native descriptor types. A pool
// without sizes gets room for a few of each per set.
func poolSizes(desc graphics.DescriptorPoolDesc, maxSets uint32) []vk.DescriptorPoolSize {
	totals := map[vk.DescriptorType]uint32{}
	for t, n := range desc.Sizes {
		if !isBlockMember(t) {
			totals[descriptorType(t)] += n
		}
	}
	if len(totals) == 0 {
		totals[vk.DescriptorTypeCombinedImageSampler] = maxSets * 8
		totals[vk.DescriptorTypeUniformBuffer] = maxSets * 2
	}
	totals[vk.DescriptorTypeUniformBufferDynamic] = maxSets

	sizes := make([]vk.DescriptorPoolSize, 0, len(totals))
	for _, t := range []vk.DescriptorType{vk.DescriptorTypeCombinedImageSampler, vk.DescriptorTypeUniformBuffer, vk.DescriptorTypeUniformBufferDynamic} {
		if n := totals[t]; n > 0 {
			sizes = append(sizes, vk.DescriptorPoolSize{Type: t, DescriptorCount: n})
		}
	}
	return sizes
}

func (d *Device) CreateDescriptorPool(desc graphics.DescriptorPoolDesc) (graphics.DescriptorPool, error) {
	p := &descriptorPool{dev: d, desc: desc}
	maxSets := desc.MaxSets
	if maxSets == 0 {
		maxSets = defaultPoolSets
	}
	sizes := poolSizes(desc, maxSets)
	if d.handle != nil {
		info := vk.DescriptorPoolCreateInfo{
			SType:         vk.StructureTypeDescriptorPoolCreateInfo,
			Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
			MaxSets:       maxSets,
			PoolSizeCount: uint32(len(sizes)),
			PPoolSizes:    sizes,
		}
		if err := check(vk.CreateDescriptorPool(d.handle, &info, nil, &p.handle), "vkCreateDescriptorPool"); err != nil {
			return nil, err
		}
	}
	handle := p.handle
	p.InitRefs(func() {
		if handle != vk.NullDescriptorPool {
			d.release(func() { vk.DestroyDescriptorPool(d.handle, handle, nil) })
		}
	})
	return p, nil
}

// sharedPool serves descriptor sets created without a pool.
func (d *Device) sharedPool() (*descriptorPool, error) {
	if d.defaultPool == nil {
		p, err := d.CreateDescriptorPool(graphics.DescriptorPoolDesc{})
		if err != nil {
			return nil, err
		}
		d.defaultPool = p.(*descriptorPool)
	}
	return d.defaultPool, nil
}

type descriptorValue struct {
	set     bool
	texture *texture
	sampler *sampler
	buffer  *data
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

/**
 * @brief Named parameters of a draw. Plain values are kept on the CPU and
 * copied into the uniform arena when the set is bound; textures and buffers
 * are written to the native set, which is replaced instead of rewritten once
 * a command buffer has referenced it.
 */
type descriptorSet struct {
	graphics.RefCount
	dev    *Device
	desc   graphics.DescriptorSetDesc
	layout *descriptorSetLayout
	pool   *descriptorPool
	values []descriptorValue
	block  []byte
	// version increases on every write so contexts can skip re-binding.
	version uint64

	handle vk.DescriptorSet
	// dirty means textures or buffers changed since the native set was written.
	dirty bool
	// used means a command buffer references the native set.
	used bool
}

func (s *descriptorSet) Desc() graphics.DescriptorSetDesc {
	return s.desc
}

func (d *Device) CreateDescriptorSet(desc graphics.DescriptorSetDesc) (graphics.DescriptorSet, error) {
	layout, ok := desc.Layout.(*descriptorSetLayout)
	if !ok || layout.dev != d {
		return nil, fmt.Errorf("%w: descriptor set without a layout of this device", graphics.ErrInvalidDesc)
	}
	var pool *descriptorPool
	if desc.Pool == nil {
		var err error
		if pool, err = d.sharedPool(); err != nil {
			return nil, err
		}
	} else if pool, ok = desc.Pool.(*descriptorPool); !ok || pool.dev != d {
		return nil, fmt.Errorf("%w: descriptor pool", graphics.ErrWrongDevice)
	}
	if pool.desc.MaxSets > 0 && pool.sets >= pool.desc.MaxSets {
		return nil, fmt.Errorf("%w: descriptor pool exhausted after %d sets", graphics.ErrInvalidDesc, pool.desc.MaxSets)
	}

	s := &descriptorSet{
		dev:     d,
		desc:    desc,
		layout:  layout,
		pool:    pool,
		values:  make([]descriptorValue, len(layout.desc.Uniforms)),
		version: 1,
		dirty:   true,
	}
	if layout.hasBlock {
		s.block = make([]byte, layout.block.size)
	}
	pool.sets++
	pool.Retain()
	layout.Retain()
	s.InitRefs(func() {
		for i := range s.values {
			s.values[i].releaseResources()
		}
		s.freeNative()
		layout.Release()
		pool.sets--
		pool.Release()
	})
	return s, nil
}

func (s *descriptorSet) freeNative() {
	if s.handle == vk.NullDescriptorSet {
		return
	}
	d, pool, handle := s.dev, s.pool.handle, s.handle
	s.handle = vk.NullDescriptorSet
	d.release(func() {
		vk.FreeDescriptorSets(d.handle, pool, 1, &handle)
	})
}

// prepare makes the native set reflect the bound textures and buffers
// before it is recorded into a command buffer.
func (s *descriptorSet) prepare(arena *uniformArena) error {
	if !s.dirty && s.handle != vk.NullDescriptorSet {
		s.used = true
		return nil
	}
	if s.used || s.handle == vk.NullDescriptorSet {
		s.freeNative()
		info := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     s.pool.handle,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{s.layout.handle},
		}
		if err := check(vk.AllocateDescriptorSets(s.dev.handle, &info, &s.handle), "vkAllocateDescriptorSets"); err != nil {
			return err
		}
	}
	writes := s.writes(arena)
	if len(writes) > 0 {
		vk.UpdateDescriptorSets(s.dev.handle, uint32(len(writes)), writes, 0, nil)
	}
	s.dirty = false
	s.used = true
	return nil
}

func (s *descriptorSet) writes(arena *uniformArena) []vk.WriteDescriptorSet {
	var writes []vk.WriteDescriptorSet
	for i, u := range s.layout.desc.Uniforms {
		v := &s.values[i]
		switch {
		case u.Type == graphics.UniformTexture && v.texture != nil:
			smp, err := v.texture.samplerFor(v.sampler)
			if err != nil {
				continue
			}
			writes = append(writes, vk.WriteDescriptorSet{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          s.handle,
				DstBinding:      u.Binding,
				DescriptorCount: 1,
				DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
				PImageInfo: []vk.DescriptorImageInfo{{
					Sampler:     smp,
					ImageView:   v.texture.view,
					ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
				}},
			})
		case u.Type == graphics.UniformBuffer && v.buffer != nil:
			writes = append(writes, vk.WriteDescriptorSet{
				SType:           vk.StructureTypeWriteDescriptorSet,
				DstSet:          s.handle,
				DstBinding:      u.Binding,
				DescriptorCount: 1,
				DescriptorType:  vk.DescriptorTypeUniformBuffer,
				PBufferInfo: []vk.DescriptorBufferInfo{{
					Buffer: v.buffer.buf.handle,
					Range:  vk.DeviceSize(v.buffer.desc.Size),
				}},
			})
		}
	}
	if s.layout.hasBlock {
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          s.handle,
			DstBinding:      s.layout.block.binding,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: arena.buf.handle,
				Range:  vk.DeviceSize(s.layout.block.size),
			}},
		})
	}
	return writes
}

func (s *descriptorSet) Has(name string) bool {
	_, ok := s.layout.index[name]
	return ok
}

func (s *descriptorSet) slot(name string, ty graphics.UniformType) (int, *descriptorValue, error) {
	i, ok := s.layout.index[name]
	if !ok {
		return 0, nil, fmt.Errorf("%w: %s", graphics.ErrUnknownParam, name)
	}
	if got := s.layout.desc.Uniforms[i].Type; got != ty {
		return 0, nil, fmt.Errorf("%w: %s is %d, not %d", graphics.ErrParamType, name, got, ty)
	}
	s.version++
	v := &s.values[i]
	v.set = true
	return i, v, nil
}

func (s *descriptorSet) setScalars(name string, ty graphics.UniformType, values ...float32) error {
	i, _, err := s.slot(name, ty)
	if err != nil {
		return err
	}
	offset := int(s.layout.block.offsets[i])
	for j, f := range values {
		binary.LittleEndian.PutUint32(s.block[offset+4*j:], math.Float32bits(f))
	}
	return nil
}

func (s *descriptorSet) SetFloat(name string, f float32) error {
	return s.setScalars(name, graphics.UniformFloat, f)
}

func (s *descriptorSet) SetInt(name string, v int32) error {
	i, _, err := s.slot(name, graphics.UniformInt)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(s.block[s.layout.block.offsets[i]:], uint32(v))
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
	if !ok || tex.dev != s.dev {
		return fmt.Errorf("%w: texture for %s", graphics.ErrWrongDevice, name)
	}
	var vs *sampler
	if smp != nil {
		if vs, ok = smp.(*sampler); !ok || vs.dev != s.dev {
			return fmt.Errorf("%w: sampler for %s", graphics.ErrWrongDevice, name)
		}
	}
	_, v, err := s.slot(name, graphics.UniformTexture)
	if err != nil {
		return err
	}
	tex.Retain()
	if vs != nil {
		vs.Retain()
	}
	v.releaseResources()
	v.texture, v.sampler = tex, vs
	s.dirty = true
	return nil
}

func (s *descriptorSet) SetBuffer(name string, b graphics.Data) error {
	buf, ok := b.(*data)
	if !ok || buf.dev != s.dev {
		return fmt.Errorf("%w: buffer for %s", graphics.ErrWrongDevice, name)
	}
	_, v, err := s.slot(name, graphics.UniformBuffer)
	if err != nil {
		return err
	}
	buf.Retain()
	v.releaseResources()
	v.buffer = buf
	s.dirty = true
	return nil
}
