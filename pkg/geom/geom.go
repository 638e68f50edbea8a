// Package geom holds the closed-form geometry used to manipulate a
// structure: rays, plane and sphere intersections, axis-constrained
// rotations, the transforms of connector and muscle visuals, and cameras
// that map between the world and the viewport.
//
// Everything is float32 on github.com/go-gl/mathgl/mgl32. Degenerate inputs
// (parallel rays, zero-length vectors) are reported through ok results and
// never panic.
package geom

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Epsilon is the tolerance used for degeneracy checks.
const Epsilon float32 = 1e-6

// Up is the world up axis. Connector and muscle visuals are authored along it.
var Up = mgl32.Vec3{0, 1, 0}

// Axis is a world axis used to constrain manipulation.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Vec returns the unit vector of a.
func (a Axis) Vec() mgl32.Vec3 {
	switch a {
	case AxisX:
		return mgl32.Vec3{1, 0, 0}
	case AxisY:
		return mgl32.Vec3{0, 1, 0}
	default:
		return mgl32.Vec3{0, 0, 1}
	}
}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return "?"
}

// ParseAxis maps "x", "y" or "z" to an Axis.
func ParseAxis(s string) (Axis, bool) {
	switch s {
	case "x", "X":
		return AxisX, true
	case "y", "Y":
		return AxisY, true
	case "z", "Z":
		return AxisZ, true
	}
	return 0, false
}

// Ray is a half line. Dir is expected to be normalized.
type Ray struct {
	Origin mgl32.Vec3
	Dir    mgl32.Vec3
}

// At returns the point at parameter t.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// Normalize returns v scaled to unit length, or false when v is too short to
// have a direction.
func Normalize(v mgl32.Vec3) (mgl32.Vec3, bool) {
	l := v.Len()
	if l < Epsilon {
		return mgl32.Vec3{}, false
	}
	return v.Mul(1 / l), true
}

// NormalizeOrZero is Normalize without the flag.
func NormalizeOrZero(v mgl32.Vec3) mgl32.Vec3 {
	n, _ := Normalize(v)
	return n
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, x))
}
