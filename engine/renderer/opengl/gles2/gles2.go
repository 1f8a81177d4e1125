// Package gles2 is the OpenGL ES 2.0 variant of the OpenGL device. Everything
// beyond the core ES 2.0 feature set comes from extensions.
package gles2

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/opengl"
)

const shaderHeader = "#version 100\nprecision highp float;"

func NewDevice(load opengl.Loader) *opengl.Device {
	return opengl.NewDevice(graphics.DeviceTypeOpenGLES2, load, Probe)
}

// Probe accepts any ES 2.0 or newer context but only reports what ES 2.0 and
// its extensions guarantee.
func Probe(f opengl.Functions) (*opengl.Profile, error) {
	v, err := opengl.ParseVersion(f.GetString(opengl.VERSION))
	if err != nil {
		return nil, err
	}
	if !v.ES || !v.AtLeast(2, 0) {
		return nil, fmt.Errorf("%w: %s is not OpenGL ES 2", graphics.ErrUnsupportedDevice, v)
	}
	exts := opengl.ParseExtensions(f.GetString(opengl.EXTENSIONS))

	p := &opengl.Profile{
		Type:         graphics.DeviceTypeOpenGLES2,
		Version:      v,
		Extensions:   exts,
		Formats:      Formats(exts),
		ShaderHeader: shaderHeader,
	}
	caps := &p.Caps
	caps.AddDims(graphics.TextureDim2D, graphics.TextureDimCube)
	caps.AddStages(graphics.ShaderStageVertex, graphics.ShaderStageFragment)
	caps.AddFeatures(graphics.FeatureReadFramebuffer)
	if exts.Has("GL_OES_vertex_array_object") {
		caps.AddFeatures(graphics.FeatureVertexArray)
	}
	if exts.Has("GL_OES_element_index_uint") {
		caps.AddFeatures(graphics.FeatureUInt32Index)
	}
	if exts.Has("GL_EXT_texture_filter_anisotropic") {
		caps.AddFeatures(graphics.FeatureAnisotropy)
	}
	caps.Textures.Add(opengl.FormatKeys(p.Formats)...)
	caps.Attachments.Add(graphics.FormatR8G8B8A8Unorm, graphics.FormatR5G6B5Unorm, graphics.FormatD16Unorm)
	if exts.Has("GL_OES_depth24") {
		caps.Attachments.Add(graphics.FormatX8D24Unorm)
	}
	if exts.Has("GL_OES_packed_depth_stencil") {
		caps.Attachments.Add(graphics.FormatD24UnormS8UInt)
	}
	caps.Vertex.Add(opengl.BasicVertexFormats()...)
	opengl.ProbeLimits(f, caps)
	return p, nil
}

// Formats lists the unsized formats of ES 2.0 plus the ones unlocked by the
// extensions in exts.
func Formats(exts opengl.Extensions) map[graphics.Format]opengl.TextureFormat {
	out := map[graphics.Format]opengl.TextureFormat{
		graphics.FormatR8Unorm:       {Internal: opengl.LUMINANCE, Format: opengl.LUMINANCE, Type: opengl.UNSIGNED_BYTE},
		graphics.FormatR8G8Unorm:     {Internal: opengl.LUMINANCE_ALPHA, Format: opengl.LUMINANCE_ALPHA, Type: opengl.UNSIGNED_BYTE},
		graphics.FormatR8G8B8Unorm:   {Internal: opengl.RGB, Format: opengl.RGB, Type: opengl.UNSIGNED_BYTE},
		graphics.FormatR8G8B8A8Unorm: {Internal: opengl.RGBA, Format: opengl.RGBA, Type: opengl.UNSIGNED_BYTE},
		graphics.FormatR5G6B5Unorm:   {Internal: opengl.RGB, Format: opengl.RGB, Type: opengl.UNSIGNED_SHORT_5_6_5},
	}
	if exts.Has("GL_OES_depth_texture", "GL_ANGLE_depth_texture") {
		out[graphics.FormatD16Unorm] = opengl.TextureFormat{Internal: opengl.DEPTH_COMPONENT, Format: opengl.DEPTH_COMPONENT, Type: opengl.UNSIGNED_SHORT}
		out[graphics.FormatX8D24Unorm] = opengl.TextureFormat{Internal: opengl.DEPTH_COMPONENT, Format: opengl.DEPTH_COMPONENT, Type: opengl.UNSIGNED_INT}
	}
	if exts.Has("GL_OES_packed_depth_stencil") {
		out[graphics.FormatD24UnormS8UInt] = opengl.TextureFormat{Internal: opengl.DEPTH_STENCIL, Format: opengl.DEPTH_STENCIL, Type: opengl.UNSIGNED_INT_24_8}
	}
	if exts.Has("GL_OES_texture_half_float") {
		out[graphics.FormatR16G16B16A16SFloat] = opengl.TextureFormat{Internal: opengl.RGBA, Format: opengl.RGBA, Type: opengl.HALF_FLOAT_OES}
	}
	if exts.Has("GL_OES_texture_float") {
		out[graphics.FormatR32G32B32A32SFloat] = opengl.TextureFormat{Internal: opengl.RGBA, Format: opengl.RGBA, Type: opengl.FLOAT}
	}
	for f, tf := range opengl.CompressedFormats(opengl.Version{Major: 2, ES: true}, exts) {
		out[f] = tf
	}
	return out
}
