package math

import (
	stdmath "math"

	"golang.org/x/exp/constraints"
)

const (
	K_FLOAT_EPSILON float32 = 1.192092896e-07
	K_DEG2RAD       float32 = stdmath.Pi / 180.0
	K_RAD2DEG       float32 = 180.0 / stdmath.Pi
)

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// Max returns the larger of a and b.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Min returns the smaller of a and b.
func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// MipCount returns the number of levels in a full mip chain for the given size.
func MipCount[T constraints.Unsigned](width, height T) T {
	size := Max(width, height)
	var levels T = 1
	for size > 1 {
		size >>= 1
		levels++
	}
	return levels
}

func DegToRad(degrees float32) float32 {
	return degrees * K_DEG2RAD
}

func RadToDeg(radians float32) float32 {
	return radians * K_RAD2DEG
}
