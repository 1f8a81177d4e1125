package math

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestClampAndMipCount(t *testing.T) {
	assert.Equal(t, 5, Clamp(9, 0, 5))
	assert.Equal(t, float32(-1), Clamp(float32(-3), -1, 1))
	assert.Equal(t, uint32(1), MipCount[uint32](1, 1))
	assert.Equal(t, uint32(9), MipCount[uint32](256, 16))
}

func TestAABBTransformAndUnion(t *testing.T) {
	b := AABBFromCenter(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})
	moved := b.Transform(mgl32.Translate3D(0, 0, -5))
	assert.True(t, moved.Center().ApproxEqual(mgl32.Vec3{0, 0, -5}))
	assert.True(t, moved.HalfExtents().ApproxEqual(mgl32.Vec3{1, 1, 1}))

	u := b.Union(moved)
	assert.True(t, u.Min.ApproxEqual(mgl32.Vec3{-1, -1, -6}))
	assert.True(t, u.Max.ApproxEqual(mgl32.Vec3{1, 1, 1}))

	assert.True(t, EmptyAABB().IsEmpty())
	assert.Equal(t, b, b.Union(EmptyAABB()))
}

func TestFrustumIntersection(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	f := FrustumFromMatrix(proj.Mul4(view))

	tests := []struct {
		name   string
		center mgl32.Vec3
		want   bool
	}{
		{"in front", mgl32.Vec3{0, 0, -5}, true},
		{"behind", mgl32.Vec3{0, 0, 5}, false},
		{"beyond far", mgl32.Vec3{0, 0, -150}, false},
		{"straddling near", mgl32.Vec3{0, 0, 0}, true},
		{"far left", mgl32.Vec3{-50, 0, -5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			box := AABBFromCenter(tt.center, mgl32.Vec3{0.5, 0.5, 0.5})
			assert.Equal(t, tt.want, f.IntersectsAABB(box))
		})
	}
	assert.True(t, f.ContainsPoint(mgl32.Vec3{0, 0, -10}))
	assert.False(t, f.IntersectsAABB(EmptyAABB()))
}

func TestGenerateCube(t *testing.T) {
	vertices, indices := GenerateCube(2, 2, 2, 1, 1)
	assert.Len(t, vertices, 24)
	assert.Len(t, indices, 36)

	b := GeometryBounds(vertices)
	assert.True(t, b.Min.ApproxEqual(mgl32.Vec3{-1, -1, -1}))
	assert.True(t, b.Max.ApproxEqual(mgl32.Vec3{1, 1, 1}))

	// front face normal points at +z
	assert.True(t, vertices[0].Normal.ApproxEqual(mgl32.Vec3{0, 0, 1}))
	assert.Len(t, VertexBytes(vertices), 24*int(Vertex3DSize))
	assert.Len(t, IndexBytes(indices), 36*4)
}

func TestTransformLocal(t *testing.T) {
	tr := TransformFromPosition(mgl32.Vec3{1, 2, 3})
	tr.SetScale(mgl32.Vec3{2, 2, 2})
	assert.True(t, tr.IsDirty())

	p := mgl32.TransformCoordinate(mgl32.Vec3{1, 0, 0}, tr.Local())
	assert.True(t, p.ApproxEqual(mgl32.Vec3{3, 2, 3}))
	assert.False(t, tr.IsDirty())
}
