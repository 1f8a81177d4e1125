package graphics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allLowercaseAlpha(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

func TestIsValidSemantic(t *testing.T) {
	inputs := []string{
		"", "position", "normal", "texcoord", "Position", "tex_coord", "uv0",
		"a", "z", "`", "{", "posiTion", "colour", " normal", "ü", "normal\x00",
	}
	for _, s := range inputs {
		assert.Equal(t, allLowercaseAlpha(s), IsValidSemantic(s), "semantic %q", s)
	}
}

func TestInputLayoutValidate(t *testing.T) {
	layout := InputLayoutDesc{
		Components: []VertexComponent{
			{Semantic: "position", Format: FormatR32G32B32SFloat},
			{Semantic: "normal", Format: FormatR32G32B32SFloat},
			{Semantic: "texcoord", Format: FormatR32G32SFloat},
			{Semantic: "texcoord", SemanticIndex: 1, Format: FormatR32G32SFloat},
			{Semantic: "transform", Format: FormatR32G32B32A32SFloat, Slot: 1, Divisor: 1},
		},
		IndexType: IndexTypeUInt32,
	}
	require.NoError(t, layout.Validate())
	assert.Equal(t, uint32(40), layout.Stride(0))
	assert.Equal(t, uint32(16), layout.Stride(1))
	assert.Equal(t, uint32(24), layout.Offset(2))
	assert.Equal(t, uint32(0), layout.Offset(4))
	assert.Equal(t, []uint8{0, 1}, layout.Slots())
	assert.Equal(t, "texcoord1", layout.Components[3].AttributeName())

	bad := layout
	bad.Components = append([]VertexComponent{}, layout.Components...)
	bad.Components[1].Semantic = "Normal"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidSemantic)

	bad.Components[1].Semantic = ""
	assert.ErrorIs(t, bad.Validate(), ErrInvalidSemantic)

	dup := InputLayoutDesc{Components: []VertexComponent{
		{Semantic: "position", Format: FormatR32G32B32SFloat},
		{Semantic: "position", Format: FormatR32G32B32SFloat},
	}}
	assert.ErrorIs(t, dup.Validate(), ErrInvalidDesc)
}

func TestCaps(t *testing.T) {
	var caps Caps
	caps.Textures.Add(FormatR8G8B8A8Unorm, FormatD24UnormS8UInt)
	caps.Attachments.Add(FormatR8G8B8A8Unorm)
	caps.Vertex.Add(FormatR32G32B32SFloat)
	caps.AddDims(TextureDim2D, TextureDimCube)
	caps.AddStages(ShaderStageVertex, ShaderStageFragment)
	caps.AddFeatures(FeatureVertexArray)

	assert.True(t, caps.IsTextureSupport(FormatR8G8B8A8Unorm))
	assert.False(t, caps.IsTextureSupport(FormatBC3UnormBlock))
	assert.False(t, caps.IsTextureSupport(FormatUndefined))
	assert.True(t, caps.IsAttachmentSupport(FormatR8G8B8A8Unorm))
	assert.False(t, caps.IsAttachmentSupport(FormatD24UnormS8UInt))
	assert.True(t, caps.IsVertexSupport(FormatR32G32B32SFloat))
	assert.True(t, caps.IsTextureDimSupport(TextureDimCube))
	assert.False(t, caps.IsTextureDimSupport(TextureDim3D))
	assert.True(t, caps.IsShaderSupport(ShaderStageFragment))
	assert.False(t, caps.IsShaderSupport(ShaderStageCompute))
	assert.True(t, caps.Has(FeatureVertexArray))
	assert.False(t, caps.Has(FeatureBlit))

	tex := TextureDesc{Width: 4, Height: 4, MipNums: 1, Format: FormatR8G8B8A8Unorm, Dim: TextureDim2D}
	assert.NoError(t, caps.CheckTexture(tex))

	tex.Dim = TextureDim3D
	tex.Depth = 4
	assert.ErrorIs(t, caps.CheckTexture(tex), ErrUnsupportedDimension)

	tex.Dim = TextureDim2D
	tex.Format = FormatBC3UnormBlock
	assert.ErrorIs(t, caps.CheckTexture(tex), ErrUnsupportedFormat)

	assert.ErrorIs(t, caps.CheckShader(ShaderDesc{Stage: ShaderStageGeometry, Bytecode: []byte("x")}), ErrUnsupportedShaderStage)
	assert.Equal(t, FormatR8G8B8A8Unorm, FindCompatibleFormat(caps, FormatBC3UnormBlock, FormatR8G8B8A8Unorm))
	assert.Equal(t, FormatUndefined, FindCompatibleFormat(caps, FormatBC3UnormBlock))
}

func TestTextureDesc(t *testing.T) {
	desc := TextureDesc{Width: 256, Height: 128, MipNums: 1, Format: FormatR8G8B8A8Unorm}
	assert.NoError(t, desc.Validate())
	assert.Equal(t, uint32(256*128*4), desc.MipSize(0))
	assert.Equal(t, uint32(128*64*4), desc.MipSize(1))

	cube := TextureDesc{Width: 16, Height: 16, MipNums: 1, Format: FormatR8G8B8A8Unorm, Dim: TextureDimCube}
	assert.Equal(t, uint32(16*16*4*6), cube.MipSize(0))

	bc := TextureDesc{Width: 6, Height: 6, MipNums: 1, Format: FormatBC1RGBUnormBlock}
	assert.Equal(t, uint32(2*2*8), bc.MipSize(0))

	tests := []struct {
		name string
		desc TextureDesc
	}{
		{"undefined format", TextureDesc{Width: 1, Height: 1, MipNums: 1}},
		{"zero size", TextureDesc{Height: 1, MipNums: 1, Format: FormatR8Unorm}},
		{"no mips", TextureDesc{Width: 1, Height: 1, Format: FormatR8Unorm}},
		{"non square cube", TextureDesc{Width: 2, Height: 1, MipNums: 1, Format: FormatR8Unorm, Dim: TextureDimCube}},
		{"bad anisotropy", TextureDesc{Width: 1, Height: 1, MipNums: 1, Format: FormatR8Unorm, Anisotropy: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.desc.Validate(), ErrInvalidDesc)
		})
	}
}

func TestStateDescComparable(t *testing.T) {
	a := DefaultStateDesc()
	b := DefaultStateDesc()
	assert.True(t, a == b)
	b.Blend.Enable = true
	assert.False(t, a == b)
	assert.NotEqual(t, DefaultStateDesc(), AlphaBlendStateDesc())
}

func TestRefCount(t *testing.T) {
	destroyed := 0
	var r RefCount
	r.InitRefs(func() { destroyed++ })
	r.Retain()
	r.Release()
	assert.Equal(t, 0, destroyed)
	assert.True(t, r.Alive())
	r.Release()
	assert.Equal(t, 1, destroyed)
	r.Release()
	assert.Equal(t, 1, destroyed)
	assert.False(t, r.Alive())
}

type fakeDevice struct {
	Device
	setupErr error
}

func (d *fakeDevice) Setup(DeviceDesc) error { return d.setupErr }

func TestRegistry(t *testing.T) {
	t.Cleanup(func() {
		Register(DeviceTypeNone, nil)
		Register(DeviceTypeOpenGLES2, nil)
	})

	_, err := NewDevice(DeviceDesc{Type: DeviceTypeNone})
	assert.ErrorIs(t, err, ErrUnsupportedDevice)

	Register(DeviceTypeNone, func() Device { return &fakeDevice{} })
	d, err := NewDevice(DeviceDesc{Type: DeviceTypeNone})
	require.NoError(t, err)
	assert.NotNil(t, d)

	failure := errors.New("no context")
	Register(DeviceTypeOpenGLES2, func() Device { return &fakeDevice{setupErr: failure} })
	d, err = NewDevice(DeviceDesc{Type: DeviceTypeOpenGLES2})
	assert.ErrorIs(t, err, failure)
	assert.Nil(t, d)
	assert.Contains(t, Registered(), DeviceTypeNone)
}

func TestDeviceTypeText(t *testing.T) {
	var dt DeviceType
	require.NoError(t, dt.UnmarshalText([]byte("OpenGL-Core")))
	assert.Equal(t, DeviceTypeOpenGLCore, dt)
	assert.True(t, dt.IsOpenGL())
	assert.ErrorIs(t, dt.UnmarshalText([]byte("metal")), ErrUnsupportedDevice)

	text, err := DeviceTypeVulkan.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "vulkan", string(text))
}

func TestGuard(t *testing.T) {
	g := Guard{Debug: true}
	assert.Panics(t, func() { g.Fail("draw", ErrNotRecording) })

	g = Guard{}
	assert.False(t, g.Check(false, "draw", ErrNoVertexBuffer))
	g.Fail("draw", ErrNoPipeline)
	assert.ErrorIs(t, g.Err(), ErrNoVertexBuffer)
	g.Reset()
	assert.NoError(t, g.Err())
}
