package graphics

import "fmt"

// Format is a pixel or vertex element format. The names follow the Vulkan
// component order.
type Format uint8

const (
	FormatUndefined Format = iota

	FormatR8Unorm
	FormatR8G8Unorm
	FormatR8G8B8Unorm
	FormatR8G8B8A8Unorm
	FormatR8G8B8A8SRGB
	FormatB8G8R8A8Unorm
	FormatB8G8R8A8SRGB
	FormatR5G6B5Unorm
	FormatR8G8B8A8UInt
	FormatR16SFloat
	FormatR16G16SFloat
	FormatR16G16B16A16SFloat
	FormatR32SFloat
	FormatR32G32SFloat
	FormatR32G32B32SFloat
	FormatR32G32B32A32SFloat
	FormatR32UInt
	FormatR11G11B10UFloat

	FormatD16Unorm
	FormatX8D24Unorm
	FormatD32SFloat
	FormatS8UInt
	FormatD24UnormS8UInt
	FormatD32SFloatS8UInt

	FormatBC1RGBUnormBlock
	FormatBC1RGBAUnormBlock
	FormatBC3UnormBlock
	FormatBC5UnormBlock
	FormatETC2R8G8B8UnormBlock
	FormatETC2R8G8B8A8UnormBlock

	formatCount
)

// ComponentKind is the numeric interpretation of a format's components.
type ComponentKind uint8

const (
	ComponentUnorm ComponentKind = iota
	ComponentUInt
	ComponentFloat
	ComponentHalf
	ComponentPacked
)

// FormatInfo describes the memory layout of a Format. For block compressed
// formats Size is the byte size of one 4x4 block.
type FormatInfo struct {
	Name       string
	Size       uint32
	Components uint8
	Kind       ComponentKind
	Depth      bool
	Stencil    bool
	Compressed bool
	SRGB       bool
}

var formatInfos = [formatCount]FormatInfo{
	FormatUndefined:              {Name: "undefined"},
	FormatR8Unorm:                {Name: "r8-unorm", Size: 1, Components: 1, Kind: ComponentUnorm},
	FormatR8G8Unorm:              {Name: "rg8-unorm", Size: 2, Components: 2, Kind: ComponentUnorm},
	FormatR8G8B8Unorm:            {Name: "rgb8-unorm", Size: 3, Components: 3, Kind: ComponentUnorm},
	FormatR8G8B8A8Unorm:          {Name: "rgba8-unorm", Size: 4, Components: 4, Kind: ComponentUnorm},
	FormatR8G8B8A8SRGB:           {Name: "rgba8-srgb", Size: 4, Components: 4, Kind: ComponentUnorm, SRGB: true},
	FormatB8G8R8A8Unorm:          {Name: "bgra8-unorm", Size: 4, Components: 4, Kind: ComponentUnorm},
	FormatB8G8R8A8SRGB:           {Name: "bgra8-srgb", Size: 4, Components: 4, Kind: ComponentUnorm, SRGB: true},
	FormatR5G6B5Unorm:            {Name: "r5g6b5-unorm", Size: 2, Components: 3, Kind: ComponentPacked},
	FormatR8G8B8A8UInt:           {Name: "rgba8-uint", Size: 4, Components: 4, Kind: ComponentUInt},
	FormatR16SFloat:              {Name: "r16-float", Size: 2, Components: 1, Kind: ComponentHalf},
	FormatR16G16SFloat:           {Name: "rg16-float", Size: 4, Components: 2, Kind: ComponentHalf},
	FormatR16G16B16A16SFloat:     {Name: "rgba16-float", Size: 8, Components: 4, Kind: ComponentHalf},
	FormatR32SFloat:              {Name: "r32-float", Size: 4, Components: 1, Kind: ComponentFloat},
	FormatR32G32SFloat:           {Name: "rg32-float", Size: 8, Components: 2, Kind: ComponentFloat},
	FormatR32G32B32SFloat:        {Name: "rgb32-float", Size: 12, Components: 3, Kind: ComponentFloat},
	FormatR32G32B32A32SFloat:     {Name: "rgba32-float", Size: 16, Components: 4, Kind: ComponentFloat},
	FormatR32UInt:                {Name: "r32-uint", Size: 4, Components: 1, Kind: ComponentUInt},
	FormatR11G11B10UFloat:        {Name: "r11g11b10-float", Size: 4, Components: 3, Kind: ComponentPacked},
	FormatD16Unorm:               {Name: "d16-unorm", Size: 2, Components: 1, Kind: ComponentUnorm, Depth: true},
	FormatX8D24Unorm:             {Name: "x8d24-unorm", Size: 4, Components: 1, Kind: ComponentPacked, Depth: true},
	FormatD32SFloat:              {Name: "d32-float", Size: 4, Components: 1, Kind: ComponentFloat, Depth: true},
	FormatS8UInt:                 {Name: "s8-uint", Size: 1, Components: 1, Kind: ComponentUInt, Stencil: true},
	FormatD24UnormS8UInt:         {Name: "d24s8", Size: 4, Components: 2, Kind: ComponentPacked, Depth: true, Stencil: true},
	FormatD32SFloatS8UInt:        {Name: "d32s8", Size: 8, Components: 2, Kind: ComponentPacked, Depth: true, Stencil: true},
	FormatBC1RGBUnormBlock:       {Name: "bc1-rgb", Size: 8, Components: 3, Compressed: true},
	FormatBC1RGBAUnormBlock:      {Name: "bc1-rgba", Size: 8, Components: 4, Compressed: true},
	FormatBC3UnormBlock:          {Name: "bc3", Size: 16, Components: 4, Compressed: true},
	FormatBC5UnormBlock:          {Name: "bc5", Size: 16, Components: 2, Compressed: true},
	FormatETC2R8G8B8UnormBlock:   {Name: "etc2-rgb8", Size: 8, Components: 3, Compressed: true},
	FormatETC2R8G8B8A8UnormBlock: {Name: "etc2-rgba8", Size: 16, Components: 4, Compressed: true},
}

func (f Format) Info() FormatInfo {
	if f >= formatCount {
		return FormatInfo{Name: "invalid"}
	}
	return formatInfos[f]
}

func (f Format) String() string {
	if f >= formatCount {
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
	return formatInfos[f].Name
}

func (f Format) IsDepth() bool      { return f.Info().Depth }
func (f Format) IsStencil() bool    { return f.Info().Stencil }
func (f Format) IsCompressed() bool { return f.Info().Compressed }

// IsDepthStencil reports whether the format can only back a depth/stencil
// attachment.
func (f Format) IsDepthStencil() bool {
	info := f.Info()
	return info.Depth || info.Stencil
}

// ImageSize returns the byte size of one width x height x depth image of the
// format.
func (f Format) ImageSize(width, height, depth uint32) uint32 {
	info := f.Info()
	if depth == 0 {
		depth = 1
	}
	if info.Compressed {
		bw := (width + 3) / 4
		bh := (height + 3) / 4
		return bw * bh * depth * info.Size
	}
	return width * height * depth * info.Size
}

// FindCompatibleFormat returns the first candidate the capability set can
// sample, or FormatUndefined.
func FindCompatibleFormat(caps Caps, candidates ...Format) Format {
	for _, f := range candidates {
		if caps.IsTextureSupport(f) {
			return f
		}
	}
	return FormatUndefined
}
