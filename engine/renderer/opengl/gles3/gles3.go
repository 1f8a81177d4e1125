// Package gles3 is the OpenGL ES 3.x variant of the OpenGL device.
package gles3

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/opengl"
)

const shaderHeader = "#version 300 es\nprecision highp float;"

func NewDevice(load opengl.Loader) *opengl.Device {
	return opengl.NewDevice(graphics.DeviceTypeOpenGLES3, load, Probe)
}

func Probe(f opengl.Functions) (*opengl.Profile, error) {
	v, err := opengl.ParseVersion(f.GetString(opengl.VERSION))
	if err != nil {
		return nil, err
	}
	if !v.ES || !v.AtLeast(3, 0) {
		return nil, fmt.Errorf("%w: %s is not OpenGL ES 3", graphics.ErrUnsupportedDevice, v)
	}
	exts := opengl.QueryExtensions(f, v)

	p := &opengl.Profile{
		Type:         graphics.DeviceTypeOpenGLES3,
		Version:      v,
		Extensions:   exts,
		Formats:      opengl.SizedFormats(),
		ShaderHeader: shaderHeader,
		Invalidate:   true,
	}
	p.Formats[graphics.FormatS8UInt] = opengl.TextureFormat{Internal: opengl.STENCIL_INDEX8, Format: opengl.STENCIL_INDEX, Type: opengl.UNSIGNED_BYTE}
	if !v.AtLeast(3, 2) && !exts.Has("GL_OES_texture_stencil8") {
		delete(p.Formats, graphics.FormatS8UInt)
	}
	for format, tf := range opengl.CompressedFormats(v, exts) {
		p.Formats[format] = tf
	}

	caps := &p.Caps
	caps.AddDims(graphics.TextureDim2D, graphics.TextureDim2DArray, graphics.TextureDim3D, graphics.TextureDimCube)
	caps.AddStages(graphics.ShaderStageVertex, graphics.ShaderStageFragment)
	caps.AddFeatures(
		graphics.FeatureVertexArray,
		graphics.FeatureBlit,
		graphics.FeatureInstancing,
		graphics.FeatureMultipleRenderTargets,
		graphics.FeatureTexture3D,
		graphics.FeatureClearBuffer,
		graphics.FeatureUInt32Index,
		graphics.FeatureReadFramebuffer,
		graphics.FeatureUniformBuffer,
		graphics.FeatureSamplerObject,
	)
	if v.AtLeast(3, 1) {
		caps.AddStages(graphics.ShaderStageCompute)
		caps.AddFeatures(graphics.FeatureCompute, graphics.FeatureIndirectDraw)
	}
	if v.AtLeast(3, 2) || exts.Has("GL_EXT_geometry_shader") {
		caps.AddStages(graphics.ShaderStageGeometry)
	}
	if v.AtLeast(3, 2) || exts.Has("GL_EXT_tessellation_shader") {
		caps.AddStages(graphics.ShaderStageTessControl, graphics.ShaderStageTessEvaluation)
	}
	if v.AtLeast(3, 2) || exts.Has("GL_EXT_texture_cube_map_array") {
		caps.AddDims(graphics.TextureDimCubeArray)
	}
	if exts.Has("GL_EXT_texture_filter_anisotropic") {
		caps.AddFeatures(graphics.FeatureAnisotropy)
	}
	if exts.Has("GL_EXT_depth_clamp") {
		caps.AddFeatures(graphics.FeatureDepthClamp)
	}

	caps.Textures.Add(opengl.FormatKeys(p.Formats)...)
	caps.Attachments.Add(
		graphics.FormatR8Unorm,
		graphics.FormatR8G8Unorm,
		graphics.FormatR8G8B8Unorm,
		graphics.FormatR8G8B8A8Unorm,
		graphics.FormatR8G8B8A8SRGB,
		graphics.FormatR5G6B5Unorm,
		graphics.FormatR8G8B8A8UInt,
		graphics.FormatR32UInt,
		graphics.FormatD16Unorm,
		graphics.FormatX8D24Unorm,
		graphics.FormatD32SFloat,
		graphics.FormatD24UnormS8UInt,
		graphics.FormatD32SFloatS8UInt,
	)
	if p.Caps.Textures.Has(graphics.FormatS8UInt) {
		caps.Attachments.Add(graphics.FormatS8UInt)
	}
	if v.AtLeast(3, 2) || exts.Has("GL_EXT_color_buffer_float") {
		caps.Attachments.Add(
			graphics.FormatR16SFloat,
			graphics.FormatR16G16SFloat,
			graphics.FormatR16G16B16A16SFloat,
			graphics.FormatR32SFloat,
			graphics.FormatR32G32SFloat,
			graphics.FormatR32G32B32A32SFloat,
			graphics.FormatR11G11B10UFloat,
		)
	}
	caps.Vertex.Add(opengl.BasicVertexFormats()...)
	caps.Vertex.Add(opengl.HalfVertexFormats()...)
	opengl.ProbeLimits(f, caps)
	return p, nil
}
