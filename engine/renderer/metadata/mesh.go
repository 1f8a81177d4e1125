package metadata

import (
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/graphics"
)

/** @brief The name of the default mesh, a unit cube. */
const DefaultMeshName string = "default"

/** @brief The full screen quad used by light and post-process passes. */
const ScreenQuadMeshName string = "screen_quad"

/** @brief Geometry uploaded to the GPU, ready to draw in one call. */
type Mesh struct {
	ID   uint32
	Name string

	Vertices  graphics.Data
	Indices   graphics.Data
	IndexType graphics.IndexType
	Draw      graphics.Indirect

	/** @brief Bounds in local coordinates. */
	Bounds math.AABB
}

// Bind sets the mesh buffers on the context.
func (m *Mesh) Bind(ctx graphics.Context) {
	ctx.SetVertexBufferData(0, m.Vertices, 0)
	if m.Indices != nil {
		ctx.SetIndexBufferData(m.Indices, 0, m.IndexType)
	}
}

func (m *Mesh) Release() {
	graphics.Release(m.Vertices)
	graphics.Release(m.Indices)
	m.Vertices = nil
	m.Indices = nil
}
