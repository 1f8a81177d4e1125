package metadata

import "github.com/go-gl/mathgl/mgl32"

/** @brief A visible object and its depth from the camera. */
type OcclusionCullNode struct {
	Object   *RenderObject
	Distance float32
}

// OcclusionCullList is the visible set of one camera for one frame. The
// backing array is reused across frames.
type OcclusionCullList struct {
	nodes []OcclusionCullNode
}

func (l *OcclusionCullList) Clear() {
	clear(l.nodes)
	l.nodes = l.nodes[:0]
}

func (l *OcclusionCullList) Insert(object *RenderObject, distance float32) {
	l.nodes = append(l.nodes, OcclusionCullNode{Object: object, Distance: distance})
}

func (l *OcclusionCullList) Len() int {
	return len(l.nodes)
}

// Nodes returns the list contents. The slice is only valid until the next Clear.
func (l *OcclusionCullList) Nodes() []OcclusionCullNode {
	return l.nodes
}

/** @brief Something that can report which of its objects a camera sees. */
type VisibilityQuery interface {
	ComputeVisible(viewProject mgl32.Mat4, out *OcclusionCullList)
}
