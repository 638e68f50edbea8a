package editor

import (
	"fmt"

	"github.com/chazu/armature/pkg/config"
	"github.com/chazu/armature/pkg/geom"
)

// ActionKind is a discrete editor command.
type ActionKind int

const (
	ActionConfirm ActionKind = iota
	ActionCancel
	ActionDelete
	ActionSave
	ActionJointAdd
	ActionJointLink
	ActionMuscleAdd
	ActionAdjustGrab
	ActionAdjustExtend
	ActionAdjustRotate
	ActionAxisChange
)

var actionNames = [...]string{
	ActionConfirm:      "confirm",
	ActionCancel:       "cancel",
	ActionDelete:       "delete",
	ActionSave:         "save",
	ActionJointAdd:     "joint_add",
	ActionJointLink:    "joint_link",
	ActionMuscleAdd:    "muscle_add",
	ActionAdjustGrab:   "grab",
	ActionAdjustExtend: "extend",
	ActionAdjustRotate: "rotate",
	ActionAxisChange:   "axis",
}

func (k ActionKind) String() string {
	if k >= 0 && int(k) < len(actionNames) {
		return actionNames[k]
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// Action is one command. Axis is only meaningful for ActionAxisChange.
type Action struct {
	Kind ActionKind
	Axis geom.Axis
}

func (a Action) String() string {
	if a.Kind == ActionAxisChange {
		return "axis_" + a.Axis.String()
	}
	return a.Kind.String()
}

// Act returns the action of kind k.
func Act(k ActionKind) Action { return Action{Kind: k} }

// AxisChange returns the action that constrains manipulation to ax.
func AxisChange(ax geom.Axis) Action { return Action{Kind: ActionAxisChange, Axis: ax} }

// Controls maps key and mouse button names to actions.
type Controls struct {
	keys    map[string]Action
	confirm string
}

// NewControls builds controls from configured bindings.
func NewControls(k config.KeyConfig) Controls {
	return Controls{
		keys: map[string]Action{
			k.Confirm:   Act(ActionConfirm),
			k.Cancel:    Act(ActionCancel),
			k.Delete:    Act(ActionDelete),
			k.Save:      Act(ActionSave),
			k.JointAdd:  Act(ActionJointAdd),
			k.JointLink: Act(ActionJointLink),
			k.MuscleAdd: Act(ActionMuscleAdd),
			k.Grab:      Act(ActionAdjustGrab),
			k.Extend:    Act(ActionAdjustExtend),
			k.Rotate:    Act(ActionAdjustRotate),
			k.AxisX:     AxisChange(geom.AxisX),
			k.AxisY:     AxisChange(geom.AxisY),
			k.AxisZ:     AxisChange(geom.AxisZ),
		},
		confirm: k.Confirm,
	}
}

// DefaultControls returns the stock bindings.
func DefaultControls() Controls {
	return NewControls(config.Default().Keys)
}

// Actions maps the keys pressed this frame to actions, in press order.
// Unbound keys and repeats are dropped.
func (c Controls) Actions(pressed []string) []Action {
	var out []Action
	seen := make(map[string]bool, len(pressed))
	for _, k := range pressed {
		if seen[k] {
			continue
		}
		seen[k] = true
		if a, ok := c.keys[k]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Key returns the name bound to a.
func (c Controls) Key(a Action) (string, bool) {
	for k, b := range c.keys {
		if b == a {
			return k, true
		}
	}
	return "", false
}

// picks reports whether the frame pressed the button that also picks.
func (c Controls) picks(pressed []string) bool {
	for _, k := range pressed {
		if k == c.confirm {
			return true
		}
	}
	return false
}
