// Package glcore is the desktop OpenGL core profile variant of the OpenGL
// device. It needs OpenGL 4.1, the newest version macOS provides.
package glcore

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/renderer/graphics"
	"github.com/spaghettifunk/prism/engine/renderer/opengl"
)

const shaderHeader = "#version 410 core"

func NewDevice(load opengl.Loader) *opengl.Device {
	return opengl.NewDevice(graphics.DeviceTypeOpenGLCore, load, Probe)
}

func Probe(f opengl.Functions) (*opengl.Profile, error) {
	v, err := opengl.ParseVersion(f.GetString(opengl.VERSION))
	if err != nil {
		return nil, err
	}
	if v.ES || !v.AtLeast(4, 1) {
		return nil, fmt.Errorf("%w: %s is older than OpenGL 4.1", graphics.ErrUnsupportedDevice, v)
	}
	exts := opengl.QueryExtensions(f, v)

	p := &opengl.Profile{
		Type:         graphics.DeviceTypeOpenGLCore,
		Version:      v,
		Extensions:   exts,
		Formats:      opengl.SizedFormats(),
		ShaderHeader: shaderHeader,
		Invalidate:   v.AtLeast(4, 3) || exts.Has("GL_ARB_invalidate_subdata"),
	}
	p.Formats[graphics.FormatB8G8R8A8Unorm] = opengl.TextureFormat{Internal: opengl.RGBA8, Format: opengl.BGRA, Type: opengl.UNSIGNED_BYTE}
	p.Formats[graphics.FormatB8G8R8A8SRGB] = opengl.TextureFormat{Internal: opengl.SRGB8_ALPHA8, Format: opengl.BGRA, Type: opengl.UNSIGNED_BYTE}
	if v.AtLeast(4, 4) || exts.Has("GL_ARB_texture_stencil8") {
		p.Formats[graphics.FormatS8UInt] = opengl.TextureFormat{Internal: opengl.STENCIL_INDEX8, Format: opengl.STENCIL_INDEX, Type: opengl.UNSIGNED_BYTE}
	}
	for format, tf := range opengl.CompressedFormats(v, exts) {
		p.Formats[format] = tf
	}

	caps := &p.Caps
	caps.AddDims(
		graphics.TextureDim2D,
		graphics.TextureDim2DArray,
		graphics.TextureDim3D,
		graphics.TextureDimCube,
		graphics.TextureDimCubeArray,
	)
	caps.AddStages(
		graphics.ShaderStageVertex,
		graphics.ShaderStageFragment,
		graphics.ShaderStageGeometry,
		graphics.ShaderStageTessControl,
		graphics.ShaderStageTessEvaluation,
	)
	caps.AddFeatures(
		graphics.FeatureVertexArray,
		graphics.FeatureBlit,
		graphics.FeatureInstancing,
		graphics.FeatureMultipleRenderTargets,
		graphics.FeatureTexture3D,
		graphics.FeaturePolygonMode,
		graphics.FeatureClearBuffer,
		graphics.FeatureDepthClamp,
		graphics.FeatureUInt32Index,
		graphics.FeatureReadFramebuffer,
		graphics.FeatureUniformBuffer,
		graphics.FeatureSamplerObject,
		graphics.FeatureIndirectDraw,
	)
	if v.AtLeast(4, 3) || exts.Has("GL_ARB_compute_shader") {
		caps.AddStages(graphics.ShaderStageCompute)
		caps.AddFeatures(graphics.FeatureCompute)
	}
	if v.AtLeast(4, 6) || exts.Has("GL_ARB_texture_filter_anisotropic", "GL_EXT_texture_filter_anisotropic") {
		caps.AddFeatures(graphics.FeatureAnisotropy)
	}

	caps.Textures.Add(opengl.FormatKeys(p.Formats)...)
	for format := range p.Formats {
		if !format.IsCompressed() {
			caps.Attachments.Add(format)
		}
	}
	caps.Vertex.Add(opengl.BasicVertexFormats()...)
	caps.Vertex.Add(opengl.HalfVertexFormats()...)
	opengl.ProbeLimits(f, caps)
	return p, nil
}
