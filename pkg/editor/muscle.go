package editor

import (
	"go.uber.org/zap"

	"github.com/chazu/armature/pkg/geom"
	"github.com/chazu/armature/pkg/scene"
	"github.com/chazu/armature/pkg/structure"
)

// beginMuscle enters MuscleAdd anchored at ed and shows a provisional
// muscle on it until the second anchor is chosen.
func (e *Editor) beginMuscle(ed structure.EdgeID) {
	c, ok := e.st.Center(ed)
	if !ok {
		return
	}
	e.dropProvisional()
	e.provisional = e.sc.Spawn(scene.KindMuscle, geom.MuscleTransform(c, c))
	e.mode = EditMode{Kind: ModeMuscleAdd, Connector: ed}
}

// endMuscle leaves MuscleAdd without linking anything.
func (e *Editor) endMuscle() {
	e.dropProvisional()
	e.mode = EditMode{}
}

func (e *Editor) dropProvisional() {
	if e.provisional.IsZero() {
		return
	}
	e.sc.Despawn(e.provisional)
	e.provisional = 0
}

// commitMuscle links anchor and other with the provisional muscle. A pair
// that already shares a muscle is left untouched.
func (e *Editor) commitMuscle(anchor, other structure.EdgeID) {
	defer func() { e.mode = EditMode{} }()
	if m, ok := e.st.MuscleBetween(anchor, other); ok {
		e.log.Debug("muscle exists", zap.Stringer("muscle", m), zap.Stringer("a1", anchor), zap.Stringer("a2", other))
		e.dropProvisional()
		return
	}
	if e.provisional.IsZero() {
		e.provisional = e.sc.Spawn(scene.KindMuscle, geom.Identity())
	}
	h := e.provisional
	m, err := e.st.AddMuscle(anchor, other, h)
	if err != nil {
		e.log.Debug("muscle add", zap.Error(err))
		e.dropProvisional()
		return
	}
	e.provisional = 0
	e.targets[h] = MuscleSelection(m)
	e.placeMuscle(m)
	e.log.Info("muscle added", zap.Stringer("muscle", m), zap.Stringer("a1", anchor), zap.Stringer("a2", other))
}
