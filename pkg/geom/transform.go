package geom

import "github.com/go-gl/mathgl/mgl32"

// Transform places a visual: scale, then rotate, then translate.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
}

// Identity returns the transform that leaves points unchanged.
func Identity() Transform {
	return Transform{Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}}
}

// At returns an unrotated, unscaled transform at p.
func At(p mgl32.Vec3) Transform {
	t := Identity()
	t.Translation = p
	return t
}

// Mat4 returns the affine matrix of t.
func (t Transform) Mat4() mgl32.Mat4 {
	return mgl32.Translate3D(t.Translation[0], t.Translation[1], t.Translation[2]).
		Mul4(t.Rotation.Mat4()).
		Mul4(mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

// Apply maps a point from the visual's local space to the world.
func (t Transform) Apply(p mgl32.Vec3) mgl32.Vec3 {
	scaled := mgl32.Vec3{p[0] * t.Scale[0], p[1] * t.Scale[1], p[2] * t.Scale[2]}
	return t.Translation.Add(t.Rotation.Rotate(scaled))
}

// Axis returns the local up axis in world space.
func (t Transform) Axis() mgl32.Vec3 {
	return t.Rotation.Rotate(Up)
}

// ConnectorTransform places a connector visual, authored as a unit-radius
// cylinder spanning y in [-1, 1], between a parent joint and its child. The
// visual is rotated from Up onto parent→joint, stretched to half the span
// along y and centered between the two joints.
func ConnectorTransform(parent, joint mgl32.Vec3) Transform {
	d := joint.Sub(parent)
	return Transform{
		Translation: parent.Add(d.Mul(0.5)),
		Rotation:    ShortestArc(Up, d),
		Scale:       mgl32.Vec3{1, d.Len() / 2, 1},
	}
}

// MuscleTransform places a muscle visual between the centers of its two
// anchor connectors.
func MuscleTransform(c1, c2 mgl32.Vec3) Transform {
	mid := c1.Add(c2).Mul(0.5)
	return Transform{
		Translation: mid,
		Rotation:    ShortestArc(Up, c1.Sub(mid)),
		Scale:       mgl32.Vec3{0.5, c1.Sub(c2).Len() / 2, 0.5},
	}
}
