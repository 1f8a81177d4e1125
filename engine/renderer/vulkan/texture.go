package vulkan

import (
	"fmt"
	"math/bits"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

type viewKey struct {
	level, layer uint32
}

/**
 * @brief An image with a view over every level and layer. Offscreen textures
 * rest in ShaderReadOnlyOptimal between passes so that any of them can be
 * sampled; render passes move them to attachment layouts and back.
 */
type texture struct {
	graphics.RefCount
	dev    *Device
	desc   graphics.TextureDesc
	image  vk.Image
	view   vk.ImageView
	alloc  allocation
	format vk.Format
	levels uint32
	layers uint32
	// resting is the layout the image is in outside of a render pass.
	resting vk.ImageLayout
	// owned is false for swapchain images.
	owned bool
	views map[viewKey]vk.ImageView
	// sampler is built from the texture's own filtering on first use.
	sampler vk.Sampler
}

func (t *texture) Desc() graphics.TextureDesc {
	return t.desc
}

func (t *texture) aspect() vk.ImageAspectFlags {
	return aspectMask(t.desc.Format)
}

func (t *texture) subresource() vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask: t.aspect(),
		LevelCount: t.levels,
		LayerCount: t.layers,
	}
}

// attachmentView returns a single level, single layer view for render
// targets. Views are cached on the texture.
func (t *texture) attachmentView(level, layer uint32) (vk.ImageView, error) {
	if level == 0 && layer == 0 && t.levels == 1 && t.layers == 1 && !t.desc.Format.IsStencil() {
		return t.view, nil
	}
	key := viewKey{level, layer}
	if v, ok := t.views[key]; ok {
		return v, nil
	}
	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    t.image,
		ViewType: vk.ImageViewType2d,
		Format:   t.format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     t.aspect(),
			BaseMipLevel:   level,
			LevelCount:     1,
			BaseArrayLayer: layer,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if err := check(vk.CreateImageView(t.dev.handle, &info, nil, &view), "vkCreateImageView"); err != nil {
		return vk.NullImageView, err
	}
	if t.views == nil {
		t.views = make(map[viewKey]vk.ImageView)
	}
	t.views[key] = view
	return view, nil
}

// samplerFor returns the native sampler to pair with the texture, its own
// default sampler when none was bound.
func (t *texture) samplerFor(s *sampler) (vk.Sampler, error) {
	if s != nil {
		return s.handle, nil
	}
	if t.sampler == vk.NullSampler {
		h, err := t.dev.createSampler(t.desc.Wrap, t.desc.MinFilter, t.desc.MagFilter, t.desc.Anisotropy)
		if err != nil {
			return vk.NullSampler, err
		}
		t.sampler = h
	}
	return t.sampler, nil
}

func (t *texture) destroyNative() {
	h := t.dev.handle
	if t.sampler != vk.NullSampler {
		vk.DestroySampler(h, t.sampler, nil)
		t.sampler = vk.NullSampler
	}
	for _, v := range t.views {
		vk.DestroyImageView(h, v, nil)
	}
	t.views = nil
	if t.view != vk.NullImageView {
		vk.DestroyImageView(h, t.view, nil)
		t.view = vk.NullImageView
	}
	if t.owned && t.image != vk.NullImage {
		vk.DestroyImage(h, t.image, nil)
		t.dev.free(&t.alloc)
	}
	t.image = vk.NullImage
}

func imageUsage(u graphics.TextureUsage, format graphics.Format) vk.ImageUsageFlags {
	usage := vk.ImageUsageSampledBit | vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit
	if u&graphics.TextureUsageColorAttachment != 0 && !format.IsDepthStencil() {
		usage |= vk.ImageUsageColorAttachmentBit
	}
	if u&graphics.TextureUsageDepthStencilAttachment != 0 && format.IsDepthStencil() {
		usage |= vk.ImageUsageDepthStencilAttachmentBit
	}
	if u&graphics.TextureUsageStorage != 0 {
		usage |= vk.ImageUsageStorageBit
	}
	return vk.ImageUsageFlags(usage)
}

// fullMipCount is the length of the mip chain down to 1x1.
func fullMipCount(width, height uint32) uint32 {
	return uint32(bits.Len32(max(width, height, 1)))
}

func (d *Device) CreateTexture(desc graphics.TextureDesc) (graphics.Texture, error) {
	if err := d.caps.CheckTexture(desc); err != nil {
		return nil, err
	}
	if len(desc.Stream) > 0 {
		need := uint32(0)
		for level := uint32(0); level < desc.MipNums; level++ {
			need += desc.MipSize(level)
		}
		if uint32(len(desc.Stream)) < need {
			return nil, fmt.Errorf("%w: texture %s stream has %d bytes, %d needed", graphics.ErrInvalidDesc, desc.Name, len(desc.Stream), need)
		}
	}
	t, err := d.newTexture(desc, vk.ImageLayoutShaderReadOnlyOptimal)
	if err != nil {
		return nil, err
	}
	t.desc.Stream = nil
	if err := t.upload(desc); err != nil {
		t.destroyNative()
		return nil, err
	}
	t.InitRefs(func() {
		d.release(t.destroyNative)
	})
	return t, nil
}

func (d *Device) newTexture(desc graphics.TextureDesc, resting vk.ImageLayout) (*texture, error) {
	format := nativeFormat(desc.Format)
	if format == vk.FormatUndefined {
		return nil, fmt.Errorf("%w: %s", graphics.ErrUnsupportedFormat, desc.Format)
	}
	t := &texture{
		dev:     d,
		desc:    desc,
		format:  format,
		levels:  desc.MipNums,
		layers:  desc.Layers(),
		resting: resting,
		owned:   true,
	}
	if wantsMipChain(desc) {
		t.levels = fullMipCount(desc.Width, desc.Height)
		t.desc.MipNums = t.levels
	}

	info := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        format,
		Extent:        vk.Extent3D{Width: desc.Width, Height: desc.Height, Depth: 1},
		MipLevels:     t.levels,
		ArrayLayers:   t.layers,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         imageUsage(desc.Usage, desc.Format),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	switch desc.Dim {
	case graphics.TextureDim3D:
		info.ImageType = vk.ImageType3d
		info.Extent.Depth = desc.Depth
		info.ArrayLayers = 1
		t.layers = 1
	case graphics.TextureDimCube, graphics.TextureDimCubeArray:
		info.Flags = vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	}
	if err := check(vk.CreateImage(d.handle, &info, nil, &t.image), "vkCreateImage"); err != nil {
		return nil, err
	}

	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.handle, t.image, &reqs)
	reqs.Deref()
	alloc, err := d.allocate(reqs, memoryDeviceLocal)
	if err != nil {
		vk.DestroyImage(d.handle, t.image, nil)
		return nil, err
	}
	t.alloc = alloc
	if err := check(vk.BindImageMemory(d.handle, t.image, alloc.memory, 0), "vkBindImageMemory"); err != nil {
		t.destroyNative()
		return nil, err
	}

	rng := t.subresource()
	if desc.Format.IsDepth() {
		// sampled depth views read the depth aspect only
		rng.AspectMask = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	viewInfo := vk.ImageViewCreateInfo{
		SType:            vk.StructureTypeImageViewCreateInfo,
		Image:            t.image,
		ViewType:         imageViewType(desc.Dim),
		Format:           format,
		SubresourceRange: rng,
	}
	if err := check(vk.CreateImageView(d.handle, &viewInfo, nil, &t.view), "vkCreateImageView"); err != nil {
		t.destroyNative()
		return nil, err
	}
	return t, nil
}

// wantsMipChain mirrors the GL behaviour of building the chain for a single
// level texture whose filter samples mipmaps.
func wantsMipChain(desc graphics.TextureDesc) bool {
	return desc.MinFilter.UsesMipmaps() && desc.MipNums == 1 && len(desc.Stream) > 0 &&
		!desc.Format.IsCompressed() && !desc.Format.IsDepthStencil() && desc.Dim != graphics.TextureDim3D
}

// upload copies the stream through a staging buffer, or just moves the
// image to its resting layout.
func (t *texture) upload(desc graphics.TextureDesc) error {
	d := t.dev
	if len(desc.Stream) == 0 {
		return d.immediate(func(cmd vk.CommandBuffer) {
			transitionImage(cmd, t.image, t.subresource(), vk.ImageLayoutUndefined, t.resting)
		})
	}

	staging, err := d.createRawBuffer(uint32(len(desc.Stream)), vk.BufferUsageTransferSrcBit, memoryHostVisible)
	if err != nil {
		return err
	}
	defer d.destroyRawBuffer(&staging)
	staging.alloc.write(0, desc.Stream)

	regions := make([]vk.BufferImageCopy, 0, desc.MipNums)
	offset := uint32(0)
	for i := uint32(0); i < desc.MipNums; i++ {
		depth := uint32(1)
		if desc.Dim == graphics.TextureDim3D {
			depth = max(desc.Depth>>i, 1)
		}
		regions = append(regions, vk.BufferImageCopy{
			BufferOffset: vk.DeviceSize(offset),
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask: t.aspect(),
				MipLevel:   i,
				LayerCount: t.layers,
			},
			ImageExtent: vk.Extent3D{
				Width:  max(desc.Width>>i, 1),
				Height: max(desc.Height>>i, 1),
				Depth:  depth,
			},
		})
		offset += desc.MipSize(i)
	}

	return d.immediate(func(cmd vk.CommandBuffer) {
		all := t.subresource()
		transitionImage(cmd, t.image, all, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
		vk.CmdCopyBufferToImage(cmd, staging.handle, t.image, vk.ImageLayoutTransferDstOptimal, uint32(len(regions)), regions)
		if t.levels > desc.MipNums {
			t.blitMips(cmd)
			return
		}
		transitionImage(cmd, t.image, all, vk.ImageLayoutTransferDstOptimal, t.resting)
	})
}

// blitMips fills levels 1..n from level 0 and leaves every level in the
// resting layout.
func (t *texture) blitMips(cmd vk.CommandBuffer) {
	aspect := t.aspect()
	level := func(i uint32) vk.ImageSubresourceRange {
		return vk.ImageSubresourceRange{AspectMask: aspect, BaseMipLevel: i, LevelCount: 1, LayerCount: t.layers}
	}
	w, h := int32(t.desc.Width), int32(t.desc.Height)
	for i := uint32(1); i < t.levels; i++ {
		transitionImage(cmd, t.image, level(i-1), vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal)
		nw, nh := max(w/2, 1), max(h/2, 1)
		blit := vk.ImageBlit{
			SrcSubresource: vk.ImageSubresourceLayers{AspectMask: aspect, MipLevel: i - 1, LayerCount: t.layers},
			SrcOffsets:     [2]vk.Offset3D{{}, {X: w, Y: h, Z: 1}},
			DstSubresource: vk.ImageSubresourceLayers{AspectMask: aspect, MipLevel: i, LayerCount: t.layers},
			DstOffsets:     [2]vk.Offset3D{{}, {X: nw, Y: nh, Z: 1}},
		}
		vk.CmdBlitImage(cmd, t.image, vk.ImageLayoutTransferSrcOptimal, t.image, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageBlit{blit}, vk.FilterLinear)
		transitionImage(cmd, t.image, level(i-1), vk.ImageLayoutTransferSrcOptimal, t.resting)
		w, h = nw, nh
	}
	transitionImage(cmd, t.image, level(t.levels-1), vk.ImageLayoutTransferDstOptimal, t.resting)
}

// layoutAccess returns the access and stage masks that go with a layout on
// either side of a barrier.
func layoutAccess(layout vk.ImageLayout) (vk.AccessFlagBits, vk.PipelineStageFlagBits) {
	switch layout {
	case vk.ImageLayoutTransferDstOptimal:
		return vk.AccessTransferWriteBit, vk.PipelineStageTransferBit
	case vk.ImageLayoutTransferSrcOptimal:
		return vk.AccessTransferReadBit, vk.PipelineStageTransferBit
	case vk.ImageLayoutShaderReadOnlyOptimal:
		return vk.AccessShaderReadBit, vk.PipelineStageFragmentShaderBit
	case vk.ImageLayoutColorAttachmentOptimal:
		return vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit, vk.PipelineStageColorAttachmentOutputBit
	case vk.ImageLayoutDepthStencilAttachmentOptimal:
		return vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit,
			vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit
	case vk.ImageLayoutPresentSrc:
		return vk.AccessMemoryReadBit, vk.PipelineStageBottomOfPipeBit
	}
	return 0, vk.PipelineStageTopOfPipeBit
}

func transitionImage(cmd vk.CommandBuffer, image vk.Image, rng vk.ImageSubresourceRange, from, to vk.ImageLayout) {
	if from == to {
		return
	}
	srcAccess, srcStage := layoutAccess(from)
	dstAccess, dstStage := layoutAccess(to)
	if from == vk.ImageLayoutPresentSrc {
		srcAccess, srcStage = 0, vk.PipelineStageTopOfPipeBit
	}
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(srcAccess),
		DstAccessMask:       vk.AccessFlags(dstAccess),
		OldLayout:           from,
		NewLayout:           to,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange:    rng,
	}
	vk.CmdPipelineBarrier(cmd, vk.PipelineStageFlags(srcStage), vk.PipelineStageFlags(dstStage), 0,
		0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

type sampler struct {
	graphics.RefCount
	dev    *Device
	desc   graphics.SamplerDesc
	handle vk.Sampler
}

func (s *sampler) Desc() graphics.SamplerDesc {
	return s.desc
}

func (d *Device) CreateSampler(desc graphics.SamplerDesc) (graphics.Sampler, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if desc.Anisotropy > 1 && !d.caps.Has(graphics.FeatureAnisotropy) {
		return nil, fmt.Errorf("%w: %s", graphics.ErrUnsupportedFeature, graphics.FeatureAnisotropy)
	}
	s := &sampler{dev: d, desc: desc}
	handle, err := d.createSampler(desc.Wrap, desc.MinFilter, desc.MagFilter, desc.Anisotropy)
	if err != nil {
		return nil, err
	}
	s.handle = handle
	s.InitRefs(func() {
		d.release(func() { vk.DestroySampler(d.handle, handle, nil) })
	})
	return s, nil
}

func (d *Device) createSampler(wrap graphics.Wrap, minFilter, magFilter graphics.Filter, aniso graphics.Anisotropy) (vk.Sampler, error) {
	minF, mipmap := filter(minFilter)
	magF, _ := filter(magFilter)
	address := addressMode(wrap)
	maxLod := float32(0.25)
	if minFilter.UsesMipmaps() {
		maxLod = vk.LodClampNone
	}
	info := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               magF,
		MinFilter:               minF,
		MipmapMode:              mipmap,
		AddressModeU:            address,
		AddressModeV:            address,
		AddressModeW:            address,
		MaxLod:                  maxLod,
		BorderColor:             vk.BorderColorFloatOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
	}
	if aniso > 1 && d.caps.Has(graphics.FeatureAnisotropy) {
		info.AnisotropyEnable = vk.True
		info.MaxAnisotropy = clamp(float32(aniso), 1, d.caps.MaxAnisotropy)
	}
	var handle vk.Sampler
	if err := check(vk.CreateSampler(d.handle, &info, nil, &handle), "vkCreateSampler"); err != nil {
		return vk.NullSampler, err
	}
	return handle, nil
}
