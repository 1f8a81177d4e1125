package opengl

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

// Version is a parsed GL_VERSION string.
type Version struct {
	Major, Minor int
	ES           bool
}

// AtLeast reports whether v is major.minor or newer.
func (v Version) AtLeast(major, minor int) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

func (v Version) String() string {
	if v.ES {
		return fmt.Sprintf("OpenGL ES %d.%d", v.Major, v.Minor)
	}
	return fmt.Sprintf("OpenGL %d.%d", v.Major, v.Minor)
}

// ParseVersion understands desktop ("4.1 Metal - 88"), ES ("OpenGL ES 3.2
// build 1.13") and WebGL style strings.
func ParseVersion(s string) (Version, error) {
	var v Version
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"OpenGL ES-CM ", "OpenGL ES-CL ", "OpenGL ES "} {
		if strings.HasPrefix(s, prefix) {
			v.ES = true
			s = s[len(prefix):]
			break
		}
	}
	webgl := strings.HasPrefix(s, "WebGL ")
	if webgl {
		v.ES = true
		s = s[len("WebGL "):]
	}
	if _, err := fmt.Sscanf(s, "%d.%d", &v.Major, &v.Minor); err != nil {
		return Version{}, fmt.Errorf("%w: cannot parse version %q", graphics.ErrUnsupportedDevice, s)
	}
	if webgl {
		// WebGL 1.0 is ES 2.0, WebGL 2.0 is ES 3.0.
		v.Major, v.Minor = v.Major+1, 0
	}
	return v, nil
}

// Extensions is the set of GL_EXTENSIONS names.
type Extensions map[string]struct{}

func ParseExtensions(s string) Extensions {
	exts := make(Extensions)
	for _, e := range strings.Fields(s) {
		exts[e] = struct{}{}
	}
	return exts
}

// QueryExtensions reads the extension list the way the profile supports it.
func QueryExtensions(f Functions, v Version) Extensions {
	if v.AtLeast(3, 0) {
		exts := make(Extensions)
		n := f.GetInteger(NUM_EXTENSIONS)
		for i := int32(0); i < n; i++ {
			exts[f.GetStringi(EXTENSIONS, uint32(i))] = struct{}{}
		}
		return exts
	}
	return ParseExtensions(f.GetString(EXTENSIONS))
}

// Has reports whether any of the names is present.
func (e Extensions) Has(names ...string) bool {
	for _, n := range names {
		if _, ok := e[n]; ok {
			return true
		}
	}
	return false
}

// TextureFormat is the (internal format, format, type) triple of a
// TexImage call. Compressed formats only use Internal.
type TextureFormat struct {
	Internal Enum
	Format   Enum
	Type     Enum
}

/** @brief What a backend variant supports on the live context. */
type Profile struct {
	Type       graphics.DeviceType
	Version    Version
	Extensions Extensions
	Caps       graphics.Caps
	/** @brief Texture upload triples of every supported texture format. */
	Formats map[graphics.Format]TextureFormat
	/** @brief Prepended to shader sources that do not declare a #version. */
	ShaderHeader string
	/** @brief glInvalidateFramebuffer is available. */
	Invalidate bool
}

// Probe builds the profile of a backend variant from the current context.
// It fails with graphics.ErrUnsupportedDevice when the context is too old.
type Probe func(f Functions) (*Profile, error)

// Loader returns the native entry points of the context current on surface.
type Loader func(surface graphics.GLSurface) (Functions, error)

// SizedFormats returns the sized internal formats shared by OpenGL ES 3 and
// desktop OpenGL 3+.
func SizedFormats() map[graphics.Format]TextureFormat {
	return map[graphics.Format]TextureFormat{
		graphics.FormatR8Unorm:            {R8, RED, UNSIGNED_BYTE},
		graphics.FormatR8G8Unorm:          {RG8, RG, UNSIGNED_BYTE},
		graphics.FormatR8G8B8Unorm:        {RGB8, RGB, UNSIGNED_BYTE},
		graphics.FormatR8G8B8A8Unorm:      {RGBA8, RGBA, UNSIGNED_BYTE},
		graphics.FormatR8G8B8A8SRGB:       {SRGB8_ALPHA8, RGBA, UNSIGNED_BYTE},
		graphics.FormatR5G6B5Unorm:        {RGB565, RGB, UNSIGNED_SHORT_5_6_5},
		graphics.FormatR8G8B8A8UInt:       {RGBA8UI, RGBA_INTEGER, UNSIGNED_BYTE},
		graphics.FormatR16SFloat:          {R16F, RED, HALF_FLOAT},
		graphics.FormatR16G16SFloat:       {RG16F, RG, HALF_FLOAT},
		graphics.FormatR16G16B16A16SFloat: {RGBA16F, RGBA, HALF_FLOAT},
		graphics.FormatR32SFloat:          {R32F, RED, FLOAT},
		graphics.FormatR32G32SFloat:       {RG32F, RG, FLOAT},
		graphics.FormatR32G32B32SFloat:    {RGB32F, RGB, FLOAT},
		graphics.FormatR32G32B32A32SFloat: {RGBA32F, RGBA, FLOAT},
		graphics.FormatR32UInt:            {R32UI, RED_INTEGER, UNSIGNED_INT},
		graphics.FormatR11G11B10UFloat:    {R11F_G11F_B10F, RGB, UNSIGNED_INT_10F_11F_11F_REV},
		graphics.FormatD16Unorm:           {DEPTH_COMPONENT16, DEPTH_COMPONENT, UNSIGNED_SHORT},
		graphics.FormatX8D24Unorm:         {DEPTH_COMPONENT24, DEPTH_COMPONENT, UNSIGNED_INT},
		graphics.FormatD32SFloat:          {DEPTH_COMPONENT32F, DEPTH_COMPONENT, FLOAT},
		graphics.FormatD24UnormS8UInt:     {DEPTH24_STENCIL8, DEPTH_STENCIL, UNSIGNED_INT_24_8},
		graphics.FormatD32SFloatS8UInt:    {DEPTH32F_STENCIL8, DEPTH_STENCIL, FLOAT_32_UNSIGNED_INT_24_8_REV},
	}
}

// CompressedFormats returns the compressed formats whose extension or core
// version is present.
func CompressedFormats(v Version, exts Extensions) map[graphics.Format]TextureFormat {
	out := make(map[graphics.Format]TextureFormat)
	if exts.Has("GL_EXT_texture_compression_s3tc", "GL_EXT_texture_compression_dxt1", "GL_WEBGL_compressed_texture_s3tc") {
		out[graphics.FormatBC1RGBUnormBlock] = TextureFormat{Internal: COMPRESSED_RGB_S3TC_DXT1_EXT}
		out[graphics.FormatBC1RGBAUnormBlock] = TextureFormat{Internal: COMPRESSED_RGBA_S3TC_DXT1_EXT}
	}
	if exts.Has("GL_EXT_texture_compression_s3tc", "GL_WEBGL_compressed_texture_s3tc") {
		out[graphics.FormatBC3UnormBlock] = TextureFormat{Internal: COMPRESSED_RGBA_S3TC_DXT5_EXT}
	}
	if !v.ES && v.AtLeast(3, 0) || exts.Has("GL_ARB_texture_compression_rgtc", "GL_EXT_texture_compression_rgtc") {
		out[graphics.FormatBC5UnormBlock] = TextureFormat{Internal: COMPRESSED_RG_RGTC2}
	}
	if v.ES && v.AtLeast(3, 0) || !v.ES && v.AtLeast(4, 3) || exts.Has("GL_ARB_ES3_compatibility") {
		out[graphics.FormatETC2R8G8B8UnormBlock] = TextureFormat{Internal: COMPRESSED_RGB8_ETC2}
		out[graphics.FormatETC2R8G8B8A8UnormBlock] = TextureFormat{Internal: COMPRESSED_RGBA8_ETC2_EAC}
	}
	return out
}

// VertexFormat is the VertexAttribPointer description of a format.
type VertexFormat struct {
	Size       int32
	Type       Enum
	Normalized bool
}

var vertexFormats = map[graphics.Format]VertexFormat{
	graphics.FormatR8Unorm:            {1, UNSIGNED_BYTE, true},
	graphics.FormatR8G8Unorm:          {2, UNSIGNED_BYTE, true},
	graphics.FormatR8G8B8Unorm:        {3, UNSIGNED_BYTE, true},
	graphics.FormatR8G8B8A8Unorm:      {4, UNSIGNED_BYTE, true},
	graphics.FormatR8G8B8A8UInt:       {4, UNSIGNED_BYTE, false},
	graphics.FormatR16SFloat:          {1, HALF_FLOAT, false},
	graphics.FormatR16G16SFloat:       {2, HALF_FLOAT, false},
	graphics.FormatR16G16B16A16SFloat: {4, HALF_FLOAT, false},
	graphics.FormatR32SFloat:          {1, FLOAT, false},
	graphics.FormatR32G32SFloat:       {2, FLOAT, false},
	graphics.FormatR32G32B32SFloat:    {3, FLOAT, false},
	graphics.FormatR32G32B32A32SFloat: {4, FLOAT, false},
}

// BasicVertexFormats are the attribute formats every profile reads.
func BasicVertexFormats() []graphics.Format {
	return []graphics.Format{
		graphics.FormatR8Unorm,
		graphics.FormatR8G8Unorm,
		graphics.FormatR8G8B8Unorm,
		graphics.FormatR8G8B8A8Unorm,
		graphics.FormatR8G8B8A8UInt,
		graphics.FormatR32SFloat,
		graphics.FormatR32G32SFloat,
		graphics.FormatR32G32B32SFloat,
		graphics.FormatR32G32B32A32SFloat,
	}
}

// HalfVertexFormats need OpenGL ES 3 or desktop OpenGL 3.
func HalfVertexFormats() []graphics.Format {
	return []graphics.Format{
		graphics.FormatR16SFloat,
		graphics.FormatR16G16SFloat,
		graphics.FormatR16G16B16A16SFloat,
	}
}

// FormatKeys returns the formats of a translation table.
func FormatKeys(m map[graphics.Format]TextureFormat) []graphics.Format {
	out := make([]graphics.Format, 0, len(m))
	for f := range m {
		out = append(out, f)
	}
	return out
}

// ProbeLimits fills the size limits shared by every profile.
func ProbeLimits(f Functions, caps *graphics.Caps) {
	caps.MaxTextureSize = uint32(f.GetInteger(MAX_TEXTURE_SIZE))
	caps.MaxCubeSize = uint32(f.GetInteger(MAX_CUBE_MAP_TEXTURE_SIZE))
	caps.MaxVertexAttributes = min(uint32(f.GetInteger(MAX_VERTEX_ATTRIBS)), maxVertexAttribs)
	caps.MaxTextureUnits = min(uint32(f.GetInteger(MAX_COMBINED_TEXTURE_IMAGE_UNITS)), maxTextureUnits)
	caps.MaxColorAttachments = 1
	if caps.Has(graphics.FeatureMultipleRenderTargets) {
		caps.MaxColorAttachments = min(uint32(f.GetInteger(MAX_COLOR_ATTACHMENTS)), uint32(f.GetInteger(MAX_DRAW_BUFFERS)), maxColorAttachments)
	}
	if caps.Has(graphics.FeatureTexture3D) {
		caps.Max3DTextureSize = uint32(f.GetInteger(MAX_3D_TEXTURE_SIZE))
		caps.MaxArrayLayers = uint32(f.GetInteger(MAX_ARRAY_TEXTURE_LAYERS))
	}
	if caps.Has(graphics.FeatureAnisotropy) {
		caps.MaxAnisotropy = f.GetFloat(MAX_TEXTURE_MAX_ANISOTROPY)
	}
}
