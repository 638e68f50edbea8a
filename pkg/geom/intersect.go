package geom

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// IntersectPlane returns where r meets the plane through point with the given
// normal. ok is false when the ray is parallel to the plane.
func IntersectPlane(r Ray, point, normal mgl32.Vec3) (mgl32.Vec3, bool) {
	denom := r.Dir.Dot(normal)
	if math32.Abs(denom) < Epsilon {
		return mgl32.Vec3{}, false
	}
	t := point.Sub(r.Origin).Dot(normal) / denom
	return r.At(t), true
}

// SphereRoots solves |origin + t*dir - center| = radius for t, with
// b = dir·(origin-center) and c = |origin-center|² - radius². near <= far.
// ok is false when the discriminant b²-c is negative.
func SphereRoots(r Ray, center mgl32.Vec3, radius float32) (near, far float32, ok bool) {
	oc := r.Origin.Sub(center)
	b := r.Dir.Dot(oc)
	c := oc.LenSqr() - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, 0, false
	}
	root := math32.Sqrt(disc)
	return -b - root, -b + root, true
}

// RaySphere returns the first non-negative hit of r on the sphere and the
// outward surface normal there.
func RaySphere(r Ray, center mgl32.Vec3, radius float32) (t float32, normal mgl32.Vec3, ok bool) {
	near, far, ok := SphereRoots(r, center, radius)
	if !ok || far < 0 {
		return 0, mgl32.Vec3{}, false
	}
	t = near
	if t < 0 {
		t = far
	}
	n, ok := Normalize(r.At(t).Sub(center))
	if !ok {
		n = r.Dir.Mul(-1)
	}
	return t, n, true
}

// CameraPlaneDistance returns the ray parameter at which r crosses the plane
// through point facing along forward. The projection of point onto forward
// and of the ray onto forward are both normalized by the vector lengths.
func CameraPlaneDistance(forward, point mgl32.Vec3, r Ray) (float32, bool) {
	fl := forward.Len()
	dl := r.Dir.Len()
	if fl < Epsilon || dl < Epsilon {
		return 0, false
	}
	cos := forward.Dot(r.Dir) / (fl * dl)
	if math32.Abs(cos) < Epsilon {
		return 0, false
	}
	depth := forward.Dot(point.Sub(r.Origin)) / fl
	return depth / cos, true
}

// RaySegment returns the ray parameter of the closest approach between r and
// segment ab, and the distance between the two closest points.
func RaySegment(r Ray, a, b mgl32.Vec3) (t, dist float32) {
	d1 := r.Dir
	d2 := b.Sub(a)
	w := r.Origin.Sub(a)
	aa := d1.Dot(d1)
	e := d2.Dot(d2)
	f := d2.Dot(w)
	if aa < Epsilon {
		return 0, r.Origin.Sub(a).Len()
	}
	c := d1.Dot(w)
	if e < Epsilon {
		t = math32.Max(-c/aa, 0)
		return t, r.At(t).Sub(a).Len()
	}
	bb := d1.Dot(d2)
	denom := aa*e - bb*bb
	if denom > Epsilon {
		t = math32.Max((bb*f-c*e)/denom, 0)
	}
	u := (bb*t + f) / e
	switch {
	case u < 0:
		u = 0
		t = math32.Max(-c/aa, 0)
	case u > 1:
		u = 1
		t = math32.Max((bb-c)/aa, 0)
	}
	q := a.Add(d2.Mul(u))
	return t, r.At(t).Sub(q).Len()
}
