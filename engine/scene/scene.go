package scene

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

var ErrInvalidNode = errors.New("invalid scene node")

// NodeID indexes a node in its scene. IDs of removed nodes are reused.
type NodeID int32

// Root is the parent of top level nodes.
const Root NodeID = -1

type node struct {
	name      string
	alive     bool
	parent    NodeID
	children  []NodeID
	transform math.Transform
	world     mgl32.Mat4
	object    *metadata.RenderObject
}

/**
 * @brief A scene graph stored in a flat arena. Nodes refer to their parent
 * and children by index, and each node may carry one render object.
 */
type Scene struct {
	name  string
	nodes []node
	free  []NodeID
	roots []NodeID
	dirty bool
}

func New(name string) *Scene {
	return &Scene{name: name}
}

func (s *Scene) Name() string { return s.name }

func (s *Scene) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(s.nodes) && s.nodes[id].alive
}

// Add inserts a node under parent, or at the top level when parent is Root.
func (s *Scene) Add(name string, parent NodeID, transform math.Transform, object *metadata.RenderObject) (NodeID, error) {
	if parent != Root && !s.valid(parent) {
		return Root, fmt.Errorf("add %s under %d: %w", name, parent, ErrInvalidNode)
	}
	n := node{
		name:      name,
		alive:     true,
		parent:    parent,
		transform: transform,
		world:     mgl32.Ident4(),
		object:    object,
	}
	var id NodeID
	if len(s.free) > 0 {
		id = s.free[len(s.free)-1]
		s.free = s.free[:len(s.free)-1]
		s.nodes[id] = n
	} else {
		id = NodeID(len(s.nodes))
		s.nodes = append(s.nodes, n)
	}
	if parent == Root {
		s.roots = append(s.roots, id)
	} else {
		s.nodes[parent].children = append(s.nodes[parent].children, id)
	}
	s.dirty = true
	return id, nil
}

// Remove deletes a node and its whole subtree.
func (s *Scene) Remove(id NodeID) error {
	if !s.valid(id) {
		return fmt.Errorf("remove %d: %w", id, ErrInvalidNode)
	}
	parent := s.nodes[id].parent
	if parent == Root {
		s.roots = removeID(s.roots, id)
	} else {
		s.nodes[parent].children = removeID(s.nodes[parent].children, id)
	}
	s.release(id)
	s.dirty = true
	return nil
}

func (s *Scene) release(id NodeID) {
	for _, child := range s.nodes[id].children {
		s.release(child)
	}
	s.nodes[id] = node{parent: Root}
	s.free = append(s.free, id)
}

func removeID(ids []NodeID, id NodeID) []NodeID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// Len returns the number of live nodes.
func (s *Scene) Len() int {
	return len(s.nodes) - len(s.free)
}

func (s *Scene) Parent(id NodeID) NodeID {
	if !s.valid(id) {
		return Root
	}
	return s.nodes[id].parent
}

func (s *Scene) Children(id NodeID) []NodeID {
	if id == Root {
		return s.roots
	}
	if !s.valid(id) {
		return nil
	}
	return s.nodes[id].children
}

func (s *Scene) Object(id NodeID) *metadata.RenderObject {
	if !s.valid(id) {
		return nil
	}
	return s.nodes[id].object
}

func (s *Scene) SetObject(id NodeID, object *metadata.RenderObject) error {
	if !s.valid(id) {
		return fmt.Errorf("set object on %d: %w", id, ErrInvalidNode)
	}
	s.nodes[id].object = object
	s.dirty = true
	return nil
}

// Find returns the first live node with the given name in depth first order.
func (s *Scene) Find(name string) (NodeID, bool) {
	found := Root
	s.walk(func(id NodeID, n *node) bool {
		if n.name == name {
			found = id
			return false
		}
		return true
	})
	return found, found != Root
}

// Transform returns the local transform of a node for editing. Call
// MarkDirty after changing it.
func (s *Scene) Transform(id NodeID) *math.Transform {
	if !s.valid(id) {
		return nil
	}
	return &s.nodes[id].transform
}

func (s *Scene) SetTransform(id NodeID, transform math.Transform) error {
	if !s.valid(id) {
		return fmt.Errorf("set transform on %d: %w", id, ErrInvalidNode)
	}
	s.nodes[id].transform = transform
	s.dirty = true
	return nil
}

func (s *Scene) MarkDirty() {
	s.dirty = true
}

// World returns the world matrix of a node as of the last Update.
func (s *Scene) World(id NodeID) mgl32.Mat4 {
	if !s.valid(id) {
		return mgl32.Ident4()
	}
	return s.nodes[id].world
}

// walk visits live nodes depth first, parents before children, in insertion
// order. Returning false stops the walk.
func (s *Scene) walk(visit func(id NodeID, n *node) bool) {
	var rec func(ids []NodeID) bool
	rec = func(ids []NodeID) bool {
		for _, id := range ids {
			if !visit(id, &s.nodes[id]) {
				return false
			}
			if !rec(s.nodes[id].children) {
				return false
			}
		}
		return true
	}
	rec(s.roots)
}

// Update recomputes world matrices and the world bounds of attached objects.
func (s *Scene) Update() {
	if !s.dirty {
		return
	}
	s.walk(func(id NodeID, n *node) bool {
		local := n.transform.Local()
		if n.parent == Root {
			n.world = local
		} else {
			n.world = s.nodes[n.parent].world.Mul4(local)
		}
		if n.object != nil {
			n.object.World = n.world
			n.object.Bounds = n.object.LocalBounds().Transform(n.world)
		}
		return true
	})
	s.dirty = false
}

// ComputeVisible appends every object whose bounds intersect the view
// frustum to out, in depth first order, with its depth from the camera.
func (s *Scene) ComputeVisible(viewProject mgl32.Mat4, out *metadata.OcclusionCullList) {
	s.Update()
	frustum := math.FrustumFromMatrix(viewProject)
	affine := viewProject.Row(3).ApproxEqual(mgl32.Vec4{0, 0, 0, 1})
	s.walk(func(id NodeID, n *node) bool {
		if n.object == nil {
			return true
		}
		if !frustum.IntersectsAABB(n.object.Bounds) {
			return true
		}
		out.Insert(n.object, depth(viewProject, n.object.Bounds.Center(), affine))
		return true
	})
	core.LogDebug("scene %s: %d visible of %d nodes", s.name, out.Len(), s.Len())
}

// depth is clip space w for perspective projections and clip space z for
// orthographic ones. Both grow with the distance along the view direction.
func depth(viewProject mgl32.Mat4, p mgl32.Vec3, affine bool) float32 {
	clip := viewProject.Mul4x1(p.Vec4(1))
	if affine {
		return clip.Z()
	}
	return clip.W()
}
