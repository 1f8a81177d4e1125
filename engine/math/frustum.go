package math

import "github.com/go-gl/mathgl/mgl32"

// Plane is stored as Normal·p + D = 0, with the normal pointing inside.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

func (p Plane) Distance(point mgl32.Vec3) float32 {
	return p.Normal.Dot(point) + p.D
}

func planeFromRow(r mgl32.Vec4) Plane {
	n := r.Vec3()
	l := n.Len()
	if l == 0 {
		return Plane{Normal: n, D: r.W()}
	}
	return Plane{Normal: n.Mul(1 / l), D: r.W() / l}
}

const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// Frustum holds the six clip planes of a view-projection volume.
type Frustum [6]Plane

// FrustumFromMatrix extracts the planes of an OpenGL style (-w..w depth)
// view-projection matrix.
func FrustumFromMatrix(m mgl32.Mat4) Frustum {
	r0, r1, r2, r3 := m.Row(0), m.Row(1), m.Row(2), m.Row(3)
	var f Frustum
	f[FrustumLeft] = planeFromRow(r3.Add(r0))
	f[FrustumRight] = planeFromRow(r3.Sub(r0))
	f[FrustumBottom] = planeFromRow(r3.Add(r1))
	f[FrustumTop] = planeFromRow(r3.Sub(r1))
	f[FrustumNear] = planeFromRow(r3.Add(r2))
	f[FrustumFar] = planeFromRow(r3.Sub(r2))
	return f
}

func (f Frustum) ContainsPoint(p mgl32.Vec3) bool {
	for _, plane := range f {
		if plane.Distance(p) < 0 {
			return false
		}
	}
	return true
}

// IntersectsAABB reports whether any part of b lies inside the frustum.
// It is conservative: boxes near a frustum corner may pass.
func (f Frustum) IntersectsAABB(b AABB) bool {
	if b.IsEmpty() {
		return false
	}
	for _, plane := range f {
		// farthest corner along the plane normal
		positive := b.Min
		if plane.Normal.X() >= 0 {
			positive[0] = b.Max.X()
		}
		if plane.Normal.Y() >= 0 {
			positive[1] = b.Max.Y()
		}
		if plane.Normal.Z() >= 0 {
			positive[2] = b.Max.Z()
		}
		if plane.Distance(positive) < 0 {
			return false
		}
	}
	return true
}
