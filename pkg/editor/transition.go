package editor

import (
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/chazu/armature/pkg/geom"
	"github.com/chazu/armature/pkg/structure"
)

type eventKind int

const (
	eventJointAdd eventKind = iota
	eventJointLink
	eventMuscle
)

// event is a construction request raised by a confirmed transition.
type event struct {
	kind   eventKind
	joint  structure.NodeID
	target structure.NodeID
	anchor structure.EdgeID
	other  structure.EdgeID
}

// transition applies one action to the edit mode.
func (e *Editor) transition(a Action) {
	m := e.mode
	switch m.Kind {
	case ModeDefault:
		e.fromDefault(a)
	case ModeJointAdd, ModeJointLink:
		e.fromJoint(m, a)
	case ModeMuscleAdd:
		e.fromMuscle(m, a)
	case ModeAdjustGrab, ModeAdjustExtend, ModeAdjustAxis, ModeAdjustRotate, ModeAdjustRotateAxis:
		e.fromAdjust(m, a)
	}
	if e.mode != m {
		e.log.Debug("edit mode", zap.Stringer("action", a), zap.Stringer("from", m), zap.Stringer("to", e.mode))
	}
}

func (e *Editor) ignore(a Action) {
	e.log.Debug("action ignored", zap.Stringer("action", a), zap.Stringer("mode", e.mode), zap.Stringer("selection", e.sel))
}

func (e *Editor) fromDefault(a Action) {
	switch a.Kind {
	case ActionSave:
		e.saveStructure()
		return
	case ActionDelete:
		e.deleteSelection()
		return
	}

	switch e.sel.Kind {
	case SelectJoint:
		n := e.sel.Joint
		if !e.st.HasNode(n) {
			e.ignore(a)
			return
		}
		switch a.Kind {
		case ActionAdjustGrab, ActionAdjustExtend, ActionAdjustRotate:
			e.enterAdjust(adjustMode(a.Kind, n))
		case ActionJointAdd:
			e.mode = EditMode{Kind: ModeJointAdd, Joint: n}
		case ActionJointLink:
			e.mode = EditMode{Kind: ModeJointLink, Joint: n}
		default:
			e.ignore(a)
		}
	case SelectConnector:
		if a.Kind != ActionMuscleAdd || !e.st.HasEdge(e.sel.Connector) {
			e.ignore(a)
			return
		}
		e.beginMuscle(e.sel.Connector)
	default:
		e.ignore(a)
	}
}

func (e *Editor) fromJoint(m EditMode, a Action) {
	switch a.Kind {
	case ActionCancel:
		e.mode = EditMode{}
	case ActionConfirm:
		e.mode = EditMode{}
		if e.sel.Kind != SelectJoint {
			e.ignore(a)
			return
		}
		if m.Kind == ModeJointAdd && e.sel.Joint == m.Joint {
			e.events = append(e.events, event{kind: eventJointAdd, joint: m.Joint})
			return
		}
		if m.Kind == ModeJointLink && e.sel.Joint != m.Joint {
			e.events = append(e.events, event{kind: eventJointLink, joint: m.Joint, target: e.sel.Joint})
			return
		}
		e.ignore(a)
	case ActionJointAdd, ActionJointLink:
		// Pressing the mode key again backs out.
		e.mode = EditMode{}
	default:
		e.ignore(a)
	}
}

func (e *Editor) fromMuscle(m EditMode, a Action) {
	switch a.Kind {
	case ActionConfirm:
		switch {
		case e.sel.Kind != SelectConnector:
			e.endMuscle()
		case e.sel.Connector == m.Connector:
			// Same anchor clicked again: keep waiting.
		default:
			e.events = append(e.events, event{kind: eventMuscle, anchor: m.Connector, other: e.sel.Connector})
		}
	case ActionCancel, ActionMuscleAdd:
		e.endMuscle()
	default:
		e.ignore(a)
	}
}

func (e *Editor) fromAdjust(m EditMode, a Action) {
	switch a.Kind {
	case ActionCancel:
		e.restore(m.Joint)
		e.exitAdjust()
	case ActionConfirm:
		e.exitAdjust()
	case ActionAdjustGrab, ActionAdjustExtend, ActionAdjustRotate:
		if a.Kind == m.family() {
			e.restore(m.Joint)
			e.exitAdjust()
			return
		}
		e.switchAdjust(adjustMode(a.Kind, m.Joint))
	case ActionAxisChange:
		e.changeAxis(m, a.Axis)
	default:
		e.ignore(a)
	}
}

func (e *Editor) changeAxis(m EditMode, ax geom.Axis) {
	var next EditMode
	switch m.Kind {
	case ModeAdjustGrab:
		next = EditMode{Kind: ModeAdjustAxis, Joint: m.Joint, Axis: ax}
	case ModeAdjustRotate:
		next = EditMode{Kind: ModeAdjustRotateAxis, Joint: m.Joint, Axis: ax}
	case ModeAdjustAxis:
		next = EditMode{Kind: ModeAdjustAxis, Joint: m.Joint, Axis: ax}
		if m.Axis == ax {
			next = EditMode{Kind: ModeAdjustGrab, Joint: m.Joint}
		}
	case ModeAdjustRotateAxis:
		next = EditMode{Kind: ModeAdjustRotateAxis, Joint: m.Joint, Axis: ax}
		if m.Axis == ax {
			next = EditMode{Kind: ModeAdjustRotate, Joint: m.Joint}
		}
	default:
		e.ignore(AxisChange(ax))
		return
	}
	if p, ok := e.st.Position(m.Joint); ok {
		e.undo = p
	}
	e.mode = next
}

func (e *Editor) enterAdjust(m EditMode) {
	p, ok := e.st.Position(m.Joint)
	if !ok {
		return
	}
	e.undo = p
	e.mode = m
	e.confine(m.Kind == ModeAdjustExtend)
}

// switchAdjust changes manipulation without touching the undo position.
func (e *Editor) switchAdjust(m EditMode) {
	e.mode = m
	e.confine(m.Kind == ModeAdjustExtend)
}

func (e *Editor) exitAdjust() {
	e.release()
	e.mode = EditMode{}
}

func (e *Editor) restore(n structure.NodeID) {
	if p, ok := e.st.Position(n); ok && p != e.undo {
		e.st.SetPosition(n, e.undo)
	}
}

func (e *Editor) confine(on bool) {
	if on == e.confined {
		return
	}
	e.confined = on
	if e.cursor != nil {
		e.cursor.SetConfined(on)
	}
}

func (e *Editor) release() { e.confine(false) }

func (e *Editor) moveCursor(p mgl32.Vec2) {
	e.cursorPos = p
	if e.cursor != nil {
		e.cursor.SetPosition(p)
	}
}

func (e *Editor) saveStructure() {
	if e.save == nil {
		e.log.Debug("save requested without a saver")
		return
	}
	if err := e.save(e.st); err != nil {
		e.log.Error("save structure", zap.Error(err))
		return
	}
	e.log.Info("structure saved",
		zap.Int("joints", e.st.NodeCount()),
		zap.Int("connectors", e.st.EdgeCount()),
		zap.Int("muscles", e.st.MuscleCount()))
}

func (e *Editor) deleteSelection() {
	var err error
	v := visuals{e}
	switch e.sel.Kind {
	case SelectJoint:
		err = e.st.DeleteJoint(e.sel.Joint, v)
	case SelectConnector:
		err = e.st.DeleteConnector(e.sel.Connector, v)
	case SelectMuscle:
		err = e.st.DeleteMuscle(e.sel.Muscle, v)
	default:
		e.ignore(Act(ActionDelete))
		return
	}
	if err != nil {
		e.log.Debug("delete selection", zap.Stringer("selection", e.sel), zap.Error(err))
	}
	e.hasHit = false
	e.Select(Selected{})
}
