package geom

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// AngleBetween returns the unsigned angle between a and b in [0, π]. It is 0
// when either vector has no length.
func AngleBetween(a, b mgl32.Vec3) float32 {
	la, lb := a.Len(), b.Len()
	if la < Epsilon || lb < Epsilon {
		return 0
	}
	return math32.Acos(Clamp(a.Dot(b)/(la*lb), -1, 1))
}

// AxisRotation returns the rotation about axis that carries src onto dst,
// both assumed perpendicular to axis. The angle is measured counterclockwise
// around axis, so it is 2π minus the unsigned angle when src×dst points
// against axis.
func AxisRotation(src, dst, axis mgl32.Vec3) mgl32.Quat {
	n, ok := Normalize(axis)
	if !ok {
		return mgl32.QuatIdent()
	}
	angle := AngleBetween(src, dst)
	if src.Cross(dst).Dot(n) < 0 {
		angle = 2*math32.Pi - angle
	}
	return mgl32.QuatRotate(angle, n)
}

// ShortestArc returns the smallest rotation taking direction from onto
// direction to. Antiparallel inputs rotate half a turn about a perpendicular
// axis; zero-length inputs yield the identity.
func ShortestArc(from, to mgl32.Vec3) mgl32.Quat {
	f, ok1 := Normalize(from)
	t, ok2 := Normalize(to)
	if !ok1 || !ok2 {
		return mgl32.QuatIdent()
	}
	d := Clamp(f.Dot(t), -1, 1)
	if d >= 1-Epsilon {
		return mgl32.QuatIdent()
	}
	if d <= -1+Epsilon {
		// Any axis perpendicular to f will do; prefer one off world X.
		axis := mgl32.Vec3{1, 0, 0}.Cross(f)
		if axis.Len() < 1e-3 {
			axis = mgl32.Vec3{0, 0, 1}.Cross(f)
		}
		return mgl32.QuatRotate(math32.Pi, axis.Normalize())
	}
	c := f.Cross(t)
	return mgl32.QuatRotate(math32.Atan2(c.Len(), d), c.Normalize()).Normalize()
}

// EulerZYX decomposes q into angles (radians) such that the rotation equals
// Rz(z)·Ry(y)·Rx(x).
func EulerZYX(q mgl32.Quat) (x, y, z float32) {
	m := q.Normalize().Mat4()
	r20 := m.At(2, 0)
	y = math32.Asin(Clamp(-r20, -1, 1))
	if math32.Abs(r20) < 1-Epsilon {
		x = math32.Atan2(m.At(2, 1), m.At(2, 2))
		z = math32.Atan2(m.At(1, 0), m.At(0, 0))
		return x, y, z
	}
	// Gimbal lock: fold the x rotation into z.
	z = math32.Atan2(-m.At(0, 1), m.At(1, 1))
	return 0, y, z
}
