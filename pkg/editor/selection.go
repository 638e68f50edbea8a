package editor

import (
	"github.com/chazu/armature/pkg/scene"
	"github.com/chazu/armature/pkg/structure"
)

// SelectKind tags what a selection refers to.
type SelectKind int

const (
	SelectNone SelectKind = iota
	SelectJoint
	SelectConnector
	SelectMuscle
)

func (k SelectKind) String() string {
	switch k {
	case SelectJoint:
		return "joint"
	case SelectConnector:
		return "connector"
	case SelectMuscle:
		return "muscle"
	}
	return "none"
}

// Selected is the single selected entity. Only the ID matching Kind is set.
type Selected struct {
	Kind      SelectKind
	Joint     structure.NodeID
	Connector structure.EdgeID
	Muscle    structure.MuscleID
}

func JointSelection(n structure.NodeID) Selected {
	return Selected{Kind: SelectJoint, Joint: n}
}

func ConnectorSelection(e structure.EdgeID) Selected {
	return Selected{Kind: SelectConnector, Connector: e}
}

func MuscleSelection(m structure.MuscleID) Selected {
	return Selected{Kind: SelectMuscle, Muscle: m}
}

// IsZero reports whether nothing is selected.
func (s Selected) IsZero() bool { return s.Kind == SelectNone }

func (s Selected) String() string {
	switch s.Kind {
	case SelectJoint:
		return "joint " + s.Joint.String()
	case SelectConnector:
		return "connector " + s.Connector.String()
	case SelectMuscle:
		return "muscle " + s.Muscle.String()
	}
	return "none"
}

// Selection returns the current selection.
func (e *Editor) Selection() Selected { return e.sel }

// Select replaces the selection. Highlights follow on the next tick.
func (e *Editor) Select(s Selected) {
	if s == e.sel {
		return
	}
	e.sel = s
	e.selChanged = true
}

// SelectHandle selects the entity owning visual h, as reported by host-side
// picking. An unknown handle clears the selection. The last ray hit no longer
// describes the selection, so it is forgotten.
func (e *Editor) SelectHandle(h structure.Handle) bool {
	s, ok := e.targets[h]
	e.hasHit = false
	e.Select(s)
	return ok
}

// Target returns the entity owning visual h.
func (e *Editor) Target(h structure.Handle) (Selected, bool) {
	s, ok := e.targets[h]
	return s, ok
}

// handleOf resolves a selection to its visual.
func (e *Editor) handleOf(s Selected) (structure.Handle, bool) {
	switch s.Kind {
	case SelectJoint:
		return e.st.NodeHandle(s.Joint)
	case SelectConnector:
		return e.st.EdgeHandle(s.Connector)
	case SelectMuscle:
		m, ok := e.st.Muscle(s.Muscle)
		return m.Handle, ok
	}
	return 0, false
}

// propagateHighlight recomputes every highlight from the selection: all
// visuals are cleared, the selected one is marked, and a selected joint
// also marks the connector to its parent.
func (e *Editor) propagateHighlight() {
	for h := range e.targets {
		e.sc.SetHighlight(h, scene.HighlightNone)
	}
	if h, ok := e.handleOf(e.sel); ok && !h.IsZero() {
		e.sc.SetHighlight(h, scene.HighlightSelected)
	}
	if e.sel.Kind != SelectJoint {
		return
	}
	pe, ok := e.st.ParentEdge(e.sel.Joint)
	if !ok {
		return
	}
	if h, ok := e.st.EdgeHandle(pe); ok && !h.IsZero() {
		e.sc.SetHighlight(h, scene.HighlightParent)
	}
}
