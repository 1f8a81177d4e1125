package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitMesh() *metadata.Mesh {
	return &metadata.Mesh{Name: "cube", Bounds: math.AABBFromCenter(mgl32.Vec3{}, mgl32.Vec3{0.5, 0.5, 0.5})}
}

func perspective() mgl32.Mat4 {
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1, 0.1, 100)
	return proj.Mul4(mgl32.Ident4())
}

func TestSceneHierarchy(t *testing.T) {
	s := New("test")
	parent, err := s.Add("parent", Root, math.TransformFromPosition(mgl32.Vec3{1, 0, 0}), nil)
	require.NoError(t, err)
	child, err := s.Add("child", parent, math.TransformFromPosition(mgl32.Vec3{0, 2, 0}), nil)
	require.NoError(t, err)

	assert.Equal(t, parent, s.Parent(child))
	assert.Equal(t, []NodeID{child}, s.Children(parent))
	assert.Equal(t, []NodeID{parent}, s.Children(Root))
	assert.Equal(t, 2, s.Len())

	s.Update()
	world := s.World(child).Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.True(t, world.Vec3().ApproxEqual(mgl32.Vec3{1, 2, 0}))

	id, ok := s.Find("child")
	assert.True(t, ok)
	assert.Equal(t, child, id)

	_, err = s.Add("orphan", NodeID(42), math.TransformCreate(), nil)
	assert.ErrorIs(t, err, ErrInvalidNode)
}

func TestSceneRemoveSubtreeReusesSlots(t *testing.T) {
	s := New("test")
	a, _ := s.Add("a", Root, math.TransformCreate(), nil)
	b, _ := s.Add("b", a, math.TransformCreate(), nil)
	_, _ = s.Add("c", b, math.TransformCreate(), nil)
	keep, _ := s.Add("keep", Root, math.TransformCreate(), nil)

	require.NoError(t, s.Remove(a))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, []NodeID{keep}, s.Children(Root))
	assert.ErrorIs(t, s.Remove(b), ErrInvalidNode)

	reused, err := s.Add("d", keep, math.TransformCreate(), nil)
	require.NoError(t, err)
	assert.Less(t, int(reused), 4)
	assert.Equal(t, keep, s.Parent(reused))
}

func TestComputeVisibleCullsAndMeasuresDepth(t *testing.T) {
	s := New("test")
	far := metadata.NewMeshObject("far", unitMesh(), nil)
	near := metadata.NewMeshObject("near", unitMesh(), nil)
	behind := metadata.NewMeshObject("behind", unitMesh(), nil)
	_, _ = s.Add("far", Root, math.TransformFromPosition(mgl32.Vec3{0, 0, -10}), far)
	_, _ = s.Add("behind", Root, math.TransformFromPosition(mgl32.Vec3{0, 0, 10}), behind)
	_, _ = s.Add("near", Root, math.TransformFromPosition(mgl32.Vec3{0, 0, -5}), near)

	var list metadata.OcclusionCullList
	s.ComputeVisible(perspective(), &list)

	require.Equal(t, 2, list.Len())
	nodes := list.Nodes()
	assert.Same(t, far, nodes[0].Object)
	assert.InDelta(t, 10, nodes[0].Distance, 1e-4)
	assert.Same(t, near, nodes[1].Object)
	assert.InDelta(t, 5, nodes[1].Distance, 1e-4)

	assert.True(t, near.Bounds.Center().ApproxEqual(mgl32.Vec3{0, 0, -5}))
}

func TestComputeVisibleFollowsMovedNodes(t *testing.T) {
	s := New("test")
	obj := metadata.NewMeshObject("obj", unitMesh(), nil)
	id, _ := s.Add("obj", Root, math.TransformFromPosition(mgl32.Vec3{0, 0, 10}), obj)

	var list metadata.OcclusionCullList
	s.ComputeVisible(perspective(), &list)
	assert.Equal(t, 0, list.Len())

	require.NoError(t, s.SetTransform(id, math.TransformFromPosition(mgl32.Vec3{0, 0, -3})))
	list.Clear()
	s.ComputeVisible(perspective(), &list)
	require.Equal(t, 1, list.Len())
	assert.InDelta(t, 3, list.Nodes()[0].Distance, 1e-4)
}

func TestComputeVisibleOrthographicDepth(t *testing.T) {
	s := New("test")
	a := metadata.NewMeshObject("a", unitMesh(), nil)
	b := metadata.NewMeshObject("b", unitMesh(), nil)
	_, _ = s.Add("a", Root, math.TransformFromPosition(mgl32.Vec3{0, 0, -20}), a)
	_, _ = s.Add("b", Root, math.TransformFromPosition(mgl32.Vec3{0, 0, -4}), b)

	var list metadata.OcclusionCullList
	s.ComputeVisible(mgl32.Ortho(-5, 5, -5, 5, 0.1, 100), &list)
	require.Equal(t, 2, list.Len())
	assert.Greater(t, list.Nodes()[0].Distance, list.Nodes()[1].Distance)
}

func TestDirectionalLightAlwaysVisible(t *testing.T) {
	s := New("test")
	sun := metadata.NewLightObject("sun", &metadata.Light{Type: metadata.LightDirectional}, nil)
	_, _ = s.Add("sun", Root, math.TransformFromPosition(mgl32.Vec3{0, 0, 50}), sun)

	var list metadata.OcclusionCullList
	s.ComputeVisible(perspective(), &list)
	require.Equal(t, 1, list.Len())
	assert.Same(t, sun, list.Nodes()[0].Object)
}
