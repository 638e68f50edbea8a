package editor

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/chazu/armature/pkg/geom"
	"github.com/chazu/armature/pkg/structure"
)

// Hit is the result of a pick.
type Hit struct {
	Target Selected
	Handle structure.Handle
	// T is the ray parameter of the hit.
	T      float32
	Point  mgl32.Vec3
	Normal mgl32.Vec3
}

// Pick returns the nearest joint, connector or muscle under r. Joints are
// spheres of the joint radius; connectors and muscles are capsules around
// the segments they span.
func (e *Editor) Pick(r geom.Ray) (Hit, bool) {
	var best Hit
	found := false
	consider := func(h Hit) {
		if !found || h.T < best.T {
			best, found = h, true
		}
	}

	for _, n := range e.st.NodeIDs() {
		j, _ := e.st.Joint(n)
		t, normal, ok := geom.RaySphere(r, j.Pos, e.cfg.JointRadius)
		if !ok {
			continue
		}
		consider(Hit{Target: JointSelection(n), Handle: j.Handle, T: t, Point: r.At(t), Normal: normal})
	}

	for _, ed := range e.st.EdgeIDs() {
		from, to, ok := e.st.Span(ed)
		if !ok {
			continue
		}
		if h, ok := capsule(r, from, to, e.cfg.ConnectorRadius); ok {
			h.Target = ConnectorSelection(ed)
			h.Handle, _ = e.st.EdgeHandle(ed)
			consider(h)
		}
	}

	for _, m := range e.st.MuscleIDs() {
		mu, _ := e.st.Muscle(m)
		c1, ok1 := e.st.Center(mu.Anchor1)
		c2, ok2 := e.st.Center(mu.Anchor2)
		if !ok1 || !ok2 {
			continue
		}
		if h, ok := capsule(r, c1, c2, e.cfg.MuscleRadius); ok {
			h.Target = MuscleSelection(m)
			h.Handle = mu.Handle
			consider(h)
		}
	}
	return best, found
}

// capsule hits r against the segment ab thickened by radius. The hit is
// reported at the closest approach.
func capsule(r geom.Ray, a, b mgl32.Vec3, radius float32) (Hit, bool) {
	t, dist := geom.RaySegment(r, a, b)
	if dist > radius {
		return Hit{}, false
	}
	return Hit{T: t, Point: r.At(t), Normal: r.Dir.Mul(-1)}, true
}
