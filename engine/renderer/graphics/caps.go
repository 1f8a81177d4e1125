package graphics

// FormatSet is a bitset over Format.
type FormatSet uint64

func (s FormatSet) Has(f Format) bool {
	return f != FormatUndefined && f < formatCount && s&(1<<f) != 0
}

func (s *FormatSet) Add(formats ...Format) {
	for _, f := range formats {
		if f != FormatUndefined && f < formatCount {
			*s |= 1 << f
		}
	}
}

func (s *FormatSet) Remove(formats ...Format) {
	for _, f := range formats {
		*s &^= 1 << f
	}
}

/** @brief Capabilities of a device, built once during setup. All lookups are constant time. */
type Caps struct {
	/** @brief Formats usable for textures. */
	Textures FormatSet
	/** @brief Formats usable as render target attachments. */
	Attachments FormatSet
	/** @brief Formats usable as vertex attributes. */
	Vertex FormatSet
	/** @brief Supported texture dimensions, one bit per TextureDim. */
	Dims uint8
	/** @brief Supported shader stages, one bit per ShaderStage. */
	Stages ShaderStageFlags
	/** @brief Optional features, one bit per Feature. */
	Features uint32

	MaxTextureSize      uint32
	MaxCubeSize         uint32
	Max3DTextureSize    uint32
	MaxArrayLayers      uint32
	MaxVertexAttributes uint32
	MaxColorAttachments uint32
	MaxTextureUnits     uint32
	MaxAnisotropy       float32
}

func (c Caps) IsTextureSupport(f Format) bool {
	return c.Textures.Has(f)
}

func (c Caps) IsAttachmentSupport(f Format) bool {
	return c.Attachments.Has(f)
}

func (c Caps) IsTextureDimSupport(d TextureDim) bool {
	return d < textureDimCount && c.Dims&(1<<d) != 0
}

func (c Caps) IsVertexSupport(f Format) bool {
	return c.Vertex.Has(f)
}

func (c Caps) IsShaderSupport(s ShaderStage) bool {
	return s < shaderStageCount && c.Stages&StageFlag(s) != 0
}

func (c Caps) Has(f Feature) bool {
	return f < featureCount && c.Features&(1<<f) != 0
}

func (c *Caps) AddDims(dims ...TextureDim) {
	for _, d := range dims {
		c.Dims |= 1 << d
	}
}

func (c *Caps) AddStages(stages ...ShaderStage) {
	for _, s := range stages {
		c.Stages |= StageFlag(s)
	}
}

func (c *Caps) AddFeatures(features ...Feature) {
	for _, f := range features {
		c.Features |= 1 << f
	}
}

// CheckTexture validates a texture description against the capability
// sets. The returned error wraps one of the ErrUnsupported sentinels.
func (c Caps) CheckTexture(desc TextureDesc) error {
	if err := desc.Validate(); err != nil {
		return err
	}
	if !c.IsTextureDimSupport(desc.Dim) {
		return unsupported(ErrUnsupportedDimension, desc.Dim.String())
	}
	if !c.IsTextureSupport(desc.Format) {
		return unsupported(ErrUnsupportedFormat, desc.Format.String())
	}
	if desc.Usage&(TextureUsageColorAttachment|TextureUsageDepthStencilAttachment) != 0 && !c.IsAttachmentSupport(desc.Format) {
		return unsupported(ErrUnsupportedFormat, desc.Format.String()+" as attachment")
	}
	if desc.Anisotropy > 1 && !c.Has(FeatureAnisotropy) {
		return unsupported(ErrUnsupportedFeature, FeatureAnisotropy.String())
	}
	if c.MaxTextureSize > 0 && (desc.Width > c.MaxTextureSize || desc.Height > c.MaxTextureSize) {
		return unsupported(ErrInvalidDesc, "texture larger than device maximum")
	}
	return nil
}

// CheckInputLayout validates every vertex component format.
func (c Caps) CheckInputLayout(desc InputLayoutDesc) error {
	if err := desc.Validate(); err != nil {
		return err
	}
	if c.MaxVertexAttributes > 0 && uint32(len(desc.Components)) > c.MaxVertexAttributes {
		return unsupported(ErrInvalidDesc, "too many vertex components")
	}
	for _, vc := range desc.Components {
		if !c.IsVertexSupport(vc.Format) {
			return unsupported(ErrUnsupportedFormat, vc.Semantic+" "+vc.Format.String())
		}
		if vc.Divisor > 0 && !c.Has(FeatureInstancing) {
			return unsupported(ErrUnsupportedFeature, FeatureInstancing.String())
		}
	}
	if desc.IndexType == IndexTypeUInt32 && !c.Has(FeatureUInt32Index) {
		return unsupported(ErrUnsupportedFeature, FeatureUInt32Index.String())
	}
	return nil
}

func (c Caps) CheckShader(desc ShaderDesc) error {
	if err := desc.Validate(); err != nil {
		return err
	}
	if !c.IsShaderSupport(desc.Stage) {
		return unsupported(ErrUnsupportedShaderStage, desc.Stage.String())
	}
	return nil
}

func (c Caps) CheckFramebufferLayout(desc FramebufferLayoutDesc) error {
	if err := desc.Validate(); err != nil {
		return err
	}
	colors := uint32(0)
	for _, a := range desc.Attachments {
		if !c.IsAttachmentSupport(a.Format) {
			return unsupported(ErrUnsupportedFormat, a.Format.String()+" as attachment")
		}
		if a.Type == AttachmentColor {
			colors++
		}
	}
	if colors > 1 && !c.Has(FeatureMultipleRenderTargets) {
		return unsupported(ErrUnsupportedFeature, FeatureMultipleRenderTargets.String())
	}
	if c.MaxColorAttachments > 0 && colors > c.MaxColorAttachments {
		return unsupported(ErrUnsupportedFeature, "color attachment count")
	}
	return nil
}

func (c Caps) CheckState(desc StateDesc) error {
	if desc.Polygon != PolygonModeFill && !c.Has(FeaturePolygonMode) {
		return unsupported(ErrUnsupportedFeature, FeaturePolygonMode.String())
	}
	if desc.DepthClamp && !c.Has(FeatureDepthClamp) {
		return unsupported(ErrUnsupportedFeature, FeatureDepthClamp.String())
	}
	return nil
}
