package opengl

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

type texture struct {
	graphics.RefCount
	dev    *Device
	desc   graphics.TextureDesc
	id     Texture
	target Enum
	format TextureFormat
}

func (t *texture) Desc() graphics.TextureDesc {
	return t.desc
}

func (d *Device) CreateTexture(desc graphics.TextureDesc) (graphics.Texture, error) {
	if err := d.profile.Caps.CheckTexture(desc); err != nil {
		return nil, err
	}
	tf, ok := d.profile.Formats[desc.Format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", graphics.ErrUnsupportedFormat, desc.Format)
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

	t := &texture{
		dev:    d,
		desc:   desc,
		id:     d.f.CreateTexture(),
		target: textureTarget(desc.Dim),
		format: tf,
	}
	// stream bytes belong to the caller
	t.desc.Stream = nil

	d.state.bindTexture(0, t.target, t.id)
	d.setTextureParams(t.target, desc.Wrap, desc.MinFilter, desc.MagFilter, desc.Anisotropy, desc.Dim)

	generate := desc.MinFilter.UsesMipmaps() && desc.MipNums == 1 && len(desc.Stream) > 0 && !desc.Format.IsCompressed()
	if !d.isES2() {
		d.f.TexParameteri(t.target, TEXTURE_BASE_LEVEL, int32(desc.MipBase))
		if !generate {
			d.f.TexParameteri(t.target, TEXTURE_MAX_LEVEL, int32(desc.MipBase+desc.MipNums-1))
		}
	}
	t.upload(desc)
	if generate {
		d.f.GenerateMipmap(t.target)
	}

	if err := d.checkError("create texture " + desc.Name); err != nil {
		d.state.deleteTexture(t.id)
		return nil, err
	}
	t.InitRefs(func() {
		d.state.deleteTexture(t.id)
	})
	return t, nil
}

func (d *Device) setTextureParams(target Enum, wrap graphics.Wrap, minFilter, magFilter graphics.Filter, aniso graphics.Anisotropy, dim graphics.TextureDim) {
	w := wrapMode(wrap)
	d.f.TexParameteri(target, TEXTURE_WRAP_S, w)
	d.f.TexParameteri(target, TEXTURE_WRAP_T, w)
	if dim == graphics.TextureDim3D || dim == graphics.TextureDimCube || dim == graphics.TextureDimCubeArray {
		if !d.isES2() {
			d.f.TexParameteri(target, TEXTURE_WRAP_R, w)
		}
	}
	d.f.TexParameteri(target, TEXTURE_MIN_FILTER, filterMode(minFilter))
	d.f.TexParameteri(target, TEXTURE_MAG_FILTER, filterMode(magFilter))
	if aniso > 1 && d.profile.Caps.Has(graphics.FeatureAnisotropy) {
		d.f.TexParameterf(target, TEXTURE_MAX_ANISOTROPY, minf(float32(aniso), d.profile.Caps.MaxAnisotropy))
	}
}

// upload specifies every mip level, from the stream when present.
func (t *texture) upload(desc graphics.TextureDesc) {
	offset := uint32(0)
	for i := uint32(0); i < desc.MipNums; i++ {
		level := int32(desc.MipBase + i)
		w := int32(max(desc.Width>>i, 1))
		h := int32(max(desc.Height>>i, 1))
		size := desc.MipSize(i)
		var data []byte
		if len(desc.Stream) > 0 {
			data = desc.Stream[offset : offset+size]
		} else if desc.Format.IsCompressed() {
			data = make([]byte, size)
		}
		offset += size

		switch desc.Dim {
		case graphics.TextureDim2D:
			t.image2D(TEXTURE_2D, level, w, h, data)
		case graphics.TextureDimCube:
			face := size / 6
			for j := uint32(0); j < 6; j++ {
				var faceData []byte
				if data != nil {
					faceData = data[j*face : (j+1)*face]
				}
				t.image2D(TEXTURE_CUBE_MAP_POSITIVE_X+Enum(j), level, w, h, faceData)
			}
		case graphics.TextureDim3D:
			t.image3D(level, w, h, int32(max(desc.Depth>>i, 1)), data)
		default:
			t.image3D(level, w, h, int32(desc.Layers()), data)
		}
	}
}

func (t *texture) image2D(target Enum, level, w, h int32, data []byte) {
	if t.desc.Format.IsCompressed() {
		t.dev.f.CompressedTexImage2D(target, level, t.format.Internal, w, h, data)
		return
	}
	t.dev.f.TexImage2D(target, level, t.format.Internal, w, h, t.format.Format, t.format.Type, data)
}

func (t *texture) image3D(level, w, h, depth int32, data []byte) {
	if t.desc.Format.IsCompressed() {
		t.dev.f.CompressedTexImage3D(t.target, level, t.format.Internal, w, h, depth, data)
		return
	}
	t.dev.f.TexImage3D(t.target, level, t.format.Internal, w, h, depth, t.format.Format, t.format.Type, data)
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

type sampler struct {
	graphics.RefCount
	dev  *Device
	desc graphics.SamplerDesc
	// id is 0 on profiles without sampler objects, the context then
	// applies desc to the texture itself.
	id Sampler
}

func (s *sampler) Desc() graphics.SamplerDesc {
	return s.desc
}

func (d *Device) CreateSampler(desc graphics.SamplerDesc) (graphics.Sampler, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if desc.Anisotropy > 1 && !d.profile.Caps.Has(graphics.FeatureAnisotropy) {
		return nil, fmt.Errorf("%w: %s", graphics.ErrUnsupportedFeature, graphics.FeatureAnisotropy)
	}
	s := &sampler{dev: d, desc: desc}
	if !d.profile.Caps.Has(graphics.FeatureSamplerObject) {
		s.InitRefs(nil)
		return s, nil
	}
	s.id = d.f.CreateSampler()
	w := wrapMode(desc.Wrap)
	d.f.SamplerParameteri(s.id, TEXTURE_WRAP_S, w)
	d.f.SamplerParameteri(s.id, TEXTURE_WRAP_T, w)
	d.f.SamplerParameteri(s.id, TEXTURE_WRAP_R, w)
	d.f.SamplerParameteri(s.id, TEXTURE_MIN_FILTER, filterMode(desc.MinFilter))
	d.f.SamplerParameteri(s.id, TEXTURE_MAG_FILTER, filterMode(desc.MagFilter))
	if desc.Anisotropy > 1 {
		d.f.SamplerParameterf(s.id, TEXTURE_MAX_ANISOTROPY, minf(float32(desc.Anisotropy), d.profile.Caps.MaxAnisotropy))
	}
	if err := d.checkError("create sampler"); err != nil {
		d.state.deleteSampler(s.id)
		return nil, err
	}
	s.InitRefs(func() {
		d.state.deleteSampler(s.id)
	})
	return s, nil
}
