package editor

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/chazu/armature/pkg/geom"
	"github.com/chazu/armature/pkg/structure"
)

// construct performs the graph mutations requested by this tick's
// transitions.
func (e *Editor) construct() {
	events := e.events
	e.events = nil
	for _, ev := range events {
		switch ev.kind {
		case eventJointAdd:
			e.addJoint(ev.joint)
		case eventJointLink:
			e.linkJoint(ev.joint, ev.target)
		case eventMuscle:
			e.commitMuscle(ev.anchor, ev.other)
		}
	}
}

// addJoint extrudes a new joint out of parent, away from the clicked point
// on its surface, then starts extending it.
func (e *Editor) addJoint(parent structure.NodeID) {
	pp, ok := e.st.Position(parent)
	if !ok {
		return
	}
	point, normal := jointSurface(pp, e.cfg.JointRadius)
	if e.hasHit && e.hit.Target == JointSelection(parent) {
		point, normal = e.hit.Point, e.hit.Normal
	}
	pos := point.Add(normal.Mul(e.cfg.DefaultExtension))

	n, ed, err := e.st.Extrude(parent, pos)
	if err != nil {
		e.log.Debug("joint add", zap.Stringer("parent", parent), zap.Error(err))
		return
	}
	v := visuals{e}
	e.st.SetNodeHandle(n, v.SpawnJoint(n, pos))
	from, to, _ := e.st.Span(ed)
	e.st.SetEdgeHandle(ed, v.SpawnConnector(ed, from, to))
	e.log.Info("joint added", zap.Stringer("node", n), zap.Stringer("parent", parent))

	e.Select(JointSelection(n))
	e.enterAdjust(EditMode{Kind: ModeAdjustExtend, Joint: n})
}

// linkJoint parents child to parent, adding the connector when they were
// not already joined. A link that would close a parent loop is dropped.
func (e *Editor) linkJoint(child, parent structure.NodeID) {
	ed, created, err := e.st.Link(child, parent)
	if err != nil {
		lvl := zap.DebugLevel
		if !errors.Is(err, structure.ErrParentCycle) && !errors.Is(err, structure.ErrSelfLoop) {
			lvl = zap.WarnLevel
		}
		e.log.Check(lvl, "joint link").Write(zap.Stringer("child", child), zap.Stringer("parent", parent), zap.Error(err))
		return
	}
	if created {
		from, to, _ := e.st.Span(ed)
		e.st.SetEdgeHandle(ed, visuals{e}.SpawnConnector(ed, from, to))
	}
	// The connector may now point the other way.
	e.st.MarkDirty(child)
	e.log.Info("joint linked", zap.Stringer("child", child), zap.Stringer("parent", parent), zap.Bool("created", created))
}

// jointSurface is the fallback click point when no pick hit is known.
func jointSurface(center mgl32.Vec3, radius float32) (point, normal mgl32.Vec3) {
	return center.Add(geom.Up.Mul(radius)), geom.Up
}
