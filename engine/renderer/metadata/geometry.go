package metadata

import (
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

/**
 * @brief Represents the configuration for a mesh.
 */
type GeometryConfig struct {
	/** @brief The Name of the geometry. */
	Name string
	/** @brief An array of Vertices. */
	Vertices []math.Vertex3D
	/** @brief An array of Indices. Empty for non indexed geometry. */
	Indices []uint32
	/** @brief The name of the material used by the geometry. */
	MaterialName string
}

// Bounds computes the local bounds of the vertices.
func (c *GeometryConfig) Bounds() math.AABB {
	return math.GeometryBounds(c.Vertices)
}

// Vertex3DLayout describes math.Vertex3D buffers indexed with uint32.
func Vertex3DLayout() graphics.InputLayoutDesc {
	return graphics.InputLayoutDesc{
		Components: []graphics.VertexComponent{
			{Semantic: "position", Format: graphics.FormatR32G32B32SFloat},
			{Semantic: "normal", Format: graphics.FormatR32G32B32SFloat},
			{Semantic: "texcoord", Format: graphics.FormatR32G32SFloat},
			{Semantic: "colour", Format: graphics.FormatR32G32B32A32SFloat},
			{Semantic: "tangent", Format: graphics.FormatR32G32B32A32SFloat},
		},
		IndexType: graphics.IndexTypeUInt32,
	}
}
