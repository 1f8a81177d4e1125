package math

import (
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis aligned bounding box.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func NewAABB(min, max mgl32.Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// EmptyAABB returns an inverted box that any Encapsulate call will replace.
func EmptyAABB() AABB {
	inf := float32(stdmath.Inf(1))
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// AABBFromCenter builds a box around center with the given half extents.
func AABBFromCenter(center, halfExtents mgl32.Vec3) AABB {
	return AABB{Min: center.Sub(halfExtents), Max: center.Add(halfExtents)}
}

func (b AABB) IsEmpty() bool {
	return b.Min.X() > b.Max.X() || b.Min.Y() > b.Max.Y() || b.Min.Z() > b.Max.Z()
}

func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// HalfExtents returns half the size of the box on each axis.
func (b AABB) HalfExtents() mgl32.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

func (b *AABB) Encapsulate(p mgl32.Vec3) {
	b.Min = mgl32.Vec3{Min(b.Min.X(), p.X()), Min(b.Min.Y(), p.Y()), Min(b.Min.Z(), p.Z())}
	b.Max = mgl32.Vec3{Max(b.Max.X(), p.X()), Max(b.Max.Y(), p.Y()), Max(b.Max.Z(), p.Z())}
}

func (b AABB) Union(o AABB) AABB {
	if o.IsEmpty() {
		return b
	}
	out := b
	out.Encapsulate(o.Min)
	out.Encapsulate(o.Max)
	return out
}

func (b AABB) Contains(p mgl32.Vec3) bool {
	return p.X() >= b.Min.X() && p.X() <= b.Max.X() &&
		p.Y() >= b.Min.Y() && p.Y() <= b.Max.Y() &&
		p.Z() >= b.Min.Z() && p.Z() <= b.Max.Z()
}

// Transform returns the box enclosing b after applying m.
func (b AABB) Transform(m mgl32.Mat4) AABB {
	if b.IsEmpty() {
		return b
	}
	out := EmptyAABB()
	for i := 0; i < 8; i++ {
		corner := mgl32.Vec3{b.Min.X(), b.Min.Y(), b.Min.Z()}
		if i&1 != 0 {
			corner[0] = b.Max.X()
		}
		if i&2 != 0 {
			corner[1] = b.Max.Y()
		}
		if i&4 != 0 {
			corner[2] = b.Max.Z()
		}
		out.Encapsulate(mgl32.TransformCoordinate(corner, m))
	}
	return out
}
