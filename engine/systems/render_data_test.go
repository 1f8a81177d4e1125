package systems

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedVisibility struct {
	nodes []metadata.OcclusionCullNode
	calls int
}

func (v *fixedVisibility) ComputeVisible(_ mgl32.Mat4, out *metadata.OcclusionCullList) {
	v.calls++
	for _, n := range v.nodes {
		out.Insert(n.Object, n.Distance)
	}
}

type countingListener struct {
	calls  int
	orders []metadata.CameraOrder
}

func (l *countingListener) OnWillRenderObject(camera metadata.RenderCamera) {
	l.calls++
	l.orders = append(l.orders, camera.Order())
}

func testMaterial(id uint32, techniques ...*metadata.Technique) *metadata.Material {
	return &metadata.Material{ID: id, Name: "m", Techniques: techniques}
}

func opaqueMaterial(id uint32) *metadata.Material {
	return testMaterial(id, &metadata.Technique{
		Name:   "default",
		Queue:  metadata.RenderQueueOpaque,
		Passes: []*metadata.MaterialPass{{Name: "main", Pass: metadata.RenderPassOpaques}},
	})
}

func cameraWith(scene metadata.VisibilityQuery) *components.Camera {
	c := components.NewCamera("test")
	c.SetScene(scene)
	return c
}

func TestAssignVisibleErrors(t *testing.T) {
	m := NewRenderDataManager()
	assert.ErrorIs(t, m.AssignVisible(nil), ErrNilCamera)
	assert.ErrorIs(t, m.AssignVisible(components.NewCamera("lonely")), ErrCameraWithoutScene)
	assert.Empty(t, m.Visible())
}

func TestAssignVisibleSortsByMaterialThenDistance(t *testing.T) {
	matA := opaqueMaterial(1)
	matB := opaqueMaterial(2)
	obj := func(name string, mat *metadata.Material) *metadata.RenderObject {
		return metadata.NewMeshObject(name, nil, mat)
	}
	b10 := obj("b10", matB)
	a7 := obj("a7", matA)
	none3 := obj("none3", nil)
	a2 := obj("a2", matA)
	a7bis := obj("a7bis", matA)
	b1 := obj("b1", matB)

	vis := &fixedVisibility{nodes: []metadata.OcclusionCullNode{
		{Object: b10, Distance: 10},
		{Object: a7, Distance: 7},
		{Object: none3, Distance: 3},
		{Object: a2, Distance: 2},
		{Object: a7bis, Distance: 7},
		{Object: b1, Distance: 1},
	}}
	m := NewRenderDataManager()
	require.NoError(t, m.AssignVisible(cameraWith(vis)))

	var names []string
	for _, n := range m.Visible() {
		names = append(names, n.Object.Name)
	}
	assert.Equal(t, []string{"none3", "a2", "a7", "a7bis", "b1", "b10"}, names)

	// objects without a material are dropped from the buckets
	bucket := m.Bucket(metadata.RenderQueueOpaque, metadata.RenderPassOpaques)
	assert.Equal(t, []*metadata.RenderObject{a2, a7, a7bis, b1, b10}, bucket)
}

func TestAssignVisibleIsIdempotent(t *testing.T) {
	mat := opaqueMaterial(1)
	vis := &fixedVisibility{nodes: []metadata.OcclusionCullNode{
		{Object: metadata.NewMeshObject("x", nil, mat), Distance: 4},
		{Object: metadata.NewMeshObject("y", nil, mat), Distance: 2},
		{Object: metadata.NewLightObject("l", &metadata.Light{}, nil), Distance: 1},
	}}
	camera := cameraWith(vis)
	m := NewRenderDataManager()

	require.NoError(t, m.AssignVisible(camera))
	first := append([]*metadata.RenderObject(nil), m.Bucket(metadata.RenderQueueOpaque, metadata.RenderPassOpaques)...)
	lights := append([]*metadata.RenderObject(nil), m.Bucket(metadata.RenderQueueLighting, metadata.RenderPassLights)...)

	require.NoError(t, m.AssignVisible(camera))
	assert.Equal(t, first, m.Bucket(metadata.RenderQueueOpaque, metadata.RenderPassOpaques))
	assert.Equal(t, lights, m.Bucket(metadata.RenderQueueLighting, metadata.RenderPassLights))
	assert.Len(t, m.Visible(), 3)
	assert.Equal(t, 2, vis.calls)
}

func TestAssignVisibleShadowCameraSkipsNonCasters(t *testing.T) {
	mat := opaqueMaterial(1)
	caster := metadata.NewMeshObject("caster", nil, mat)
	receiver := metadata.NewMeshObject("receiver", nil, mat)
	receiver.CastShadow = false
	late := metadata.NewMeshObject("late", nil, mat)
	listener := &countingListener{}
	receiver.Listener = listener
	late.Listener = listener

	vis := &fixedVisibility{nodes: []metadata.OcclusionCullNode{
		{Object: caster, Distance: 1},
		{Object: receiver, Distance: 2},
		{Object: late, Distance: 3},
	}}
	camera := cameraWith(vis)
	camera.SetOrder(metadata.CameraOrderShadow)

	m := NewRenderDataManager()
	require.NoError(t, m.AssignVisible(camera))
	assert.Equal(t, []*metadata.RenderObject{caster, late},
		m.Bucket(metadata.RenderQueueOpaque, metadata.RenderPassOpaques))
	assert.Equal(t, 1, listener.calls)

	camera.SetOrder(metadata.CameraOrderMain)
	require.NoError(t, m.AssignVisible(camera))
	assert.Equal(t, []*metadata.RenderObject{caster, receiver, late},
		m.Bucket(metadata.RenderQueueOpaque, metadata.RenderPassOpaques))
	assert.Equal(t, 3, listener.calls)
	assert.Equal(t, metadata.CameraOrderMain, listener.orders[2])
}

func TestAssignVisibleRoutesTechniquePasses(t *testing.T) {
	mat := testMaterial(3,
		&metadata.Technique{
			Name:  "opaque",
			Queue: metadata.RenderQueueOpaque,
			Passes: []*metadata.MaterialPass{
				{Name: "main", Pass: metadata.RenderPassOpaques},
				{Name: "outline", Pass: metadata.RenderPassSpecific},
			},
		},
		&metadata.Technique{
			Name:   "glass",
			Queue:  metadata.RenderQueueTransparent,
			Passes: []*metadata.MaterialPass{{Name: "blend", Pass: metadata.RenderPassTransparent}},
		},
	)
	mesh := metadata.NewMeshObject("mesh", nil, mat)
	light := metadata.NewLightObject("light", &metadata.Light{Type: metadata.LightPoint, Range: 3}, opaqueMaterial(9))

	vis := &fixedVisibility{nodes: []metadata.OcclusionCullNode{
		{Object: mesh, Distance: 2},
		{Object: light, Distance: 1},
	}}
	m := NewRenderDataManager()
	require.NoError(t, m.AssignVisible(cameraWith(vis)))

	assert.Equal(t, []*metadata.RenderObject{mesh}, m.Bucket(metadata.RenderQueueOpaque, metadata.RenderPassOpaques))
	assert.Equal(t, []*metadata.RenderObject{mesh}, m.Bucket(metadata.RenderQueueOpaque, metadata.RenderPassSpecific))
	assert.Equal(t, []*metadata.RenderObject{mesh}, m.Bucket(metadata.RenderQueueTransparent, metadata.RenderPassTransparent))
	assert.Equal(t, []*metadata.RenderObject{light}, m.Bucket(metadata.RenderQueueLighting, metadata.RenderPassLights))
	assert.Empty(t, m.Bucket(metadata.RenderQueueTransparent, metadata.RenderPassSpecific))

	draws := m.Draws(metadata.RenderQueueOpaque, metadata.RenderPassSpecific)
	require.Len(t, draws, 1)
	assert.Equal(t, "outline", draws[0].Pass.Name)
	assert.Nil(t, m.Draws(metadata.RenderQueueLighting, metadata.RenderPassLights)[0].Pass)

	assert.Nil(t, m.Bucket(metadata.RenderQueue(7), metadata.RenderPassOpaques))
}

func TestAssignVisibleDropsUnknownQueuesAndPasses(t *testing.T) {
	mat := testMaterial(4,
		&metadata.Technique{
			Name:   "stray",
			Queue:  metadata.RenderQueue(metadata.RenderQueueCount),
			Passes: []*metadata.MaterialPass{{Name: "main", Pass: metadata.RenderPassOpaques}},
		},
		&metadata.Technique{
			Name:  "opaque",
			Queue: metadata.RenderQueueOpaque,
			Passes: []*metadata.MaterialPass{
				{Name: "odd", Pass: metadata.RenderPass(metadata.RenderPassCount + 2)},
				{Name: "main", Pass: metadata.RenderPassOpaques},
			},
		},
	)
	mesh := metadata.NewMeshObject("mesh", nil, mat)
	vis := &fixedVisibility{nodes: []metadata.OcclusionCullNode{{Object: mesh, Distance: 1}}}

	m := NewRenderDataManager()
	require.NotPanics(t, func() { require.NoError(t, m.AssignVisible(cameraWith(vis))) })

	draws := m.Draws(metadata.RenderQueueOpaque, metadata.RenderPassOpaques)
	require.Len(t, draws, 1)
	assert.Equal(t, "main", draws[0].Pass.Name)
	assert.Same(t, mat.Techniques[1].Passes[1], draws[0].Pass)
}

func TestAssignVisibleOverScene(t *testing.T) {
	mat := opaqueMaterial(1)
	cube := &metadata.Mesh{Name: "cube", Bounds: math.AABBFromCenter(mgl32.Vec3{}, mgl32.Vec3{0.5, 0.5, 0.5})}
	far := metadata.NewMeshObject("far", cube, mat)
	near := metadata.NewMeshObject("near", cube, mat)
	sun := metadata.NewLightObject("sun", &metadata.Light{Type: metadata.LightDirectional}, nil)

	s := scene.New("world")
	_, err := s.Add("far", scene.Root, math.TransformFromPosition(mgl32.Vec3{0, 0, -10}), far)
	require.NoError(t, err)
	_, err = s.Add("near", scene.Root, math.TransformFromPosition(mgl32.Vec3{0, 0, -5}), near)
	require.NoError(t, err)
	_, err = s.Add("sun", scene.Root, math.TransformCreate(), sun)
	require.NoError(t, err)

	camera := cameraWith(s)
	camera.SetPerspective(90, 1, 0.1, 100)

	m := NewRenderDataManager()
	require.NoError(t, m.AssignVisible(camera))
	assert.Equal(t, []*metadata.RenderObject{near, far}, m.Bucket(metadata.RenderQueueOpaque, metadata.RenderPassOpaques))
	assert.Equal(t, []*metadata.RenderObject{sun}, m.Bucket(metadata.RenderQueueLighting, metadata.RenderPassLights))
	for _, b := range metadata.DrawOrder {
		for _, o := range m.Bucket(b.Queue, b.Pass) {
			if o.Kind == metadata.RenderObjectLight {
				assert.Equal(t, metadata.RenderQueueLighting, b.Queue)
			} else {
				assert.NotEqual(t, metadata.RenderQueueLighting, b.Queue)
			}
		}
	}
}
