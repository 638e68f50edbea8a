package editor

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/chazu/armature/pkg/geom"
	"github.com/chazu/armature/pkg/structure"
)

// adjust moves the joint under manipulation for this frame.
func (e *Editor) adjust(f Frame) {
	m := e.mode
	if !e.st.HasNode(m.Joint) {
		e.exitAdjust()
		return
	}
	switch m.Kind {
	case ModeAdjustExtend, ModeAdjustRotateAxis:
		if _, ok := e.st.NodeParent(m.Joint); !ok {
			e.failover()
			return
		}
	}
	if f.Camera == nil {
		return
	}
	switch m.Kind {
	case ModeAdjustExtend:
		e.extend(f.Camera, m.Joint, f.MouseDelta)
	case ModeAdjustAxis:
		e.translateAxis(f.Camera, m.Joint, m.Axis.Vec(), f.MouseDelta)
	case ModeAdjustGrab, ModeAdjustRotate:
		if e.hasCursor {
			e.swing(f.Camera, m.Joint, e.cursorPos, m.Kind == ModeAdjustRotate)
		}
	case ModeAdjustRotateAxis:
		if e.hasCursor {
			e.rotateAxis(f.Camera, m.Joint, m.Axis.Vec(), e.cursorPos)
		}
	}
}

// failover leaves a mode that needs a parent and grabs the joint instead on
// the next tick.
func (e *Editor) failover() {
	e.pending = append(e.pending, Act(ActionCancel), Act(ActionAdjustGrab))
}

// extend slides the joint along its arm by the mouse motion projected onto
// the arm's screen direction. The joint never comes closer to its parent
// than two joint radii.
func (e *Editor) extend(cam geom.Camera, n structure.NodeID, delta mgl32.Vec2) {
	p, ok := e.st.NodeParent(n)
	if !ok {
		return
	}
	jp, _ := e.st.Position(n)
	pp, ok := e.st.Position(p)
	if !ok {
		return
	}
	rel := jp.Sub(pp)
	dir, ok := geom.Normalize(rel)
	if !ok {
		return
	}

	mv := float32(0)
	sj, ok1 := cam.WorldToViewport(jp)
	sp, ok2 := cam.WorldToViewport(pp)
	if ok1 && ok2 {
		if screen, ok := normalize2(sj.Sub(sp)); ok {
			mv = delta.Dot(screen)
		}
	}

	pos := rel.Add(dir.Mul(mv * e.cfg.ExtendSpeed))
	floor := dir.Mul(2 * e.cfg.JointRadius)
	if dir.Dot(pos.Sub(floor)) < 0 {
		pos = floor
	}
	if pos == rel {
		return
	}
	np := pp.Add(pos)
	e.st.SetPosition(n, np)
	if s, ok := cam.WorldToViewport(np); ok {
		e.moveCursor(s)
	}
}

// swing places the joint under the cursor. Grab moves it freely on the
// camera-facing plane through the joint. Rotate keeps it on the sphere
// around its parent, preferring the hemisphere the joint is already on.
func (e *Editor) swing(cam geom.Camera, n structure.NodeID, cursor mgl32.Vec2, rotate bool) {
	ray, ok := cam.ViewportToRay(cursor)
	if !ok {
		return
	}
	jp, _ := e.st.Position(n)
	pp := jp
	if p, ok := e.st.NodeParent(n); ok {
		pp, _ = e.st.Position(p)
	}
	radius := jp.Sub(pp).Len()

	var hit mgl32.Vec3
	resolved := false
	if rotate {
		if near, far, ok := geom.SphereRoots(ray, pp, radius); ok {
			rotToRay := ray.Origin.Sub(pp)
			jointToRay := ray.Origin.Sub(jp)
			t := far
			if jointToRay.Dot(geom.NormalizeOrZero(rotToRay)) < rotToRay.Len() {
				t = near
			}
			hit, resolved = ray.At(t), true
		}
	}
	if !resolved {
		t, ok := geom.CameraPlaneDistance(cam.Forward(), jp, ray)
		if !ok {
			return
		}
		hit = ray.At(t)
	}

	np := hit
	if rotate {
		d, ok := geom.Normalize(hit.Sub(pp))
		if !ok {
			return
		}
		np = pp.Add(d.Mul(radius))
	}
	if np != jp {
		e.st.SetPosition(n, np)
	}
}

// translateAxis moves the joint along a world axis by the mouse motion
// projected onto the axis' screen direction.
func (e *Editor) translateAxis(cam geom.Camera, n structure.NodeID, axis mgl32.Vec3, delta mgl32.Vec2) {
	jp, _ := e.st.Position(n)
	s0, ok0 := cam.WorldToViewport(jp)
	s1, ok1 := cam.WorldToViewport(jp.Add(axis))
	if !ok0 || !ok1 {
		return
	}
	dir, ok := normalize2(s0.Sub(s1))
	if !ok {
		return
	}
	mv := delta.Mul(-1).Dot(dir)
	if mv == 0 {
		return
	}
	np := jp.Add(axis.Mul(mv * e.cfg.AxisSpeed))
	e.st.SetPosition(n, np)
	if s, ok := cam.WorldToViewport(np); ok {
		e.moveCursor(s)
	}
}

// rotateAxis swings the joint around the line through its parent along
// axis, following the point where the cursor ray meets the plane of the
// joint's circle.
func (e *Editor) rotateAxis(cam geom.Camera, n structure.NodeID, axis mgl32.Vec3, cursor mgl32.Vec2) {
	p, ok := e.st.NodeParent(n)
	if !ok {
		return
	}
	jp, _ := e.st.Position(n)
	pp, ok := e.st.Position(p)
	if !ok {
		return
	}
	rel := jp.Sub(pp)
	if rel.Cross(axis).Len() < geom.Epsilon {
		return
	}
	ray, ok := cam.ViewportToRay(cursor)
	if !ok {
		return
	}
	center := pp.Add(axis.Mul(rel.Dot(axis)))
	hit, ok := geom.IntersectPlane(ray, center, axis)
	if !ok {
		return
	}
	dst := hit.Sub(center)
	if dst.Len() < geom.Epsilon {
		return
	}
	q := geom.AxisRotation(jp.Sub(center), dst, axis)
	np := pp.Add(q.Rotate(rel))
	if np != jp {
		e.st.SetPosition(n, np)
	}
}

func normalize2(v mgl32.Vec2) (mgl32.Vec2, bool) {
	l := v.Len()
	if l < geom.Epsilon {
		return mgl32.Vec2{}, false
	}
	return v.Mul(1 / l), true
}
