package editor

import (
	"fmt"

	"github.com/chazu/armature/pkg/geom"
	"github.com/chazu/armature/pkg/structure"
)

// ModeKind discriminates EditMode.
type ModeKind int

const (
	ModeDefault ModeKind = iota
	ModeJointAdd
	ModeJointLink
	ModeMuscleAdd
	ModeAdjustGrab
	ModeAdjustExtend
	ModeAdjustAxis
	ModeAdjustRotate
	ModeAdjustRotateAxis
)

var modeNames = [...]string{
	ModeDefault:          "default",
	ModeJointAdd:         "joint_add",
	ModeJointLink:        "joint_link",
	ModeMuscleAdd:        "muscle_add",
	ModeAdjustGrab:       "adjust_grab",
	ModeAdjustExtend:     "adjust_extend",
	ModeAdjustAxis:       "adjust_axis",
	ModeAdjustRotate:     "adjust_rotate",
	ModeAdjustRotateAxis: "adjust_rotate_axis",
}

func (k ModeKind) String() string {
	if k >= 0 && int(k) < len(modeNames) {
		return modeNames[k]
	}
	return fmt.Sprintf("ModeKind(%d)", int(k))
}

// EditMode is the interaction state carried between ticks.
//
//	Default
//	JointAdd(Joint), JointLink(Joint)
//	MuscleAdd(Connector)
//	AdjustGrab(Joint), AdjustExtend(Joint), AdjustRotate(Joint)
//	AdjustAxis(Joint, Axis), AdjustRotateAxis(Joint, Axis)
type EditMode struct {
	Kind      ModeKind
	Joint     structure.NodeID
	Connector structure.EdgeID
	Axis      geom.Axis
}

// IsAdjust reports whether m moves a joint every frame.
func (m EditMode) IsAdjust() bool {
	switch m.Kind {
	case ModeAdjustGrab, ModeAdjustExtend, ModeAdjustAxis, ModeAdjustRotate, ModeAdjustRotateAxis:
		return true
	}
	return false
}

// family is the key that entered m: axis variants belong to the mode they
// were derived from.
func (m EditMode) family() ActionKind {
	switch m.Kind {
	case ModeAdjustGrab, ModeAdjustAxis:
		return ActionAdjustGrab
	case ModeAdjustRotate, ModeAdjustRotateAxis:
		return ActionAdjustRotate
	case ModeAdjustExtend:
		return ActionAdjustExtend
	}
	return -1
}

func (m EditMode) String() string {
	switch m.Kind {
	case ModeDefault:
		return "default"
	case ModeMuscleAdd:
		return fmt.Sprintf("muscle_add(%s)", m.Connector)
	case ModeAdjustAxis, ModeAdjustRotateAxis:
		return fmt.Sprintf("%s(%s, %s)", m.Kind, m.Joint, m.Axis)
	}
	return fmt.Sprintf("%s(%s)", m.Kind, m.Joint)
}

func adjustMode(a ActionKind, n structure.NodeID) EditMode {
	switch a {
	case ActionAdjustExtend:
		return EditMode{Kind: ModeAdjustExtend, Joint: n}
	case ActionAdjustRotate:
		return EditMode{Kind: ModeAdjustRotate, Joint: n}
	}
	return EditMode{Kind: ModeAdjustGrab, Joint: n}
}
