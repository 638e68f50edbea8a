package structure

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Spawner materializes structure elements as visuals and returns their
// handles.
type Spawner interface {
	SpawnJoint(n NodeID, pos mgl32.Vec3) Handle
	SpawnConnector(e EdgeID, from, to mgl32.Vec3) Handle
	SpawnMuscle(m MuscleID, c1, c2 mgl32.Vec3) Handle
}

// Despawner destroys visuals.
type Despawner interface {
	Despawn(h Handle)
}

// Create materializes a freshly loaded structure: one visual per joint and
// connector, and one muscle per distinct connector pair in MuscleData.
func (s *Structure) Create(sp Spawner) {
	for _, n := range s.NodeIDs() {
		ne, _ := s.node(n)
		h := sp.SpawnJoint(n, ne.joint.Pos)
		s.SetNodeHandle(n, h)
	}
	for _, e := range s.EdgeIDs() {
		from, to, _ := s.Span(e)
		h := sp.SpawnConnector(e, from, to)
		s.SetEdgeHandle(e, h)
	}
	s.RebuildMuscles()
	for _, m := range s.MuscleIDs() {
		mu, _ := s.muscle(m)
		c1, _ := s.Center(mu.Anchor1)
		c2, _ := s.Center(mu.Anchor2)
		h := sp.SpawnMuscle(m, c1, c2)
		s.SetMuscleHandle(m, h)
	}
	s.log.Info("structure created",
		zap.Int("joints", s.NodeCount()),
		zap.Int("connectors", s.EdgeCount()),
		zap.Int("muscles", s.MuscleCount()))
}

// Link makes parent the parent of child, adding the connector between them
// when missing. created reports whether a new connector was added.
func (s *Structure) Link(child, parent NodeID) (e EdgeID, created bool, err error) {
	if child == parent {
		return EdgeID{}, false, fmt.Errorf("link %s: %w", child, ErrSelfLoop)
	}
	if !s.HasNode(child) {
		return EdgeID{}, false, s.missingNode("link", child)
	}
	if !s.HasNode(parent) {
		return EdgeID{}, false, s.missingNode("link", parent)
	}
	if s.isAncestor(child, parent) {
		return EdgeID{}, false, fmt.Errorf("link %s -> %s: %w", child, parent, ErrParentCycle)
	}
	e, ok := s.FindEdge(child, parent)
	if !ok {
		e, err = s.AddEdge(child, parent, Connector{})
		if err != nil {
			return EdgeID{}, false, err
		}
		created = true
	}
	if err := s.SetParent(child, parent); err != nil {
		return e, created, err
	}
	s.log.Debug("joints linked", zap.Stringer("child", child), zap.Stringer("parent", parent), zap.Bool("created", created))
	return e, created, nil
}

// Extrude adds a joint at pos parented to parent, joined by a new connector.
func (s *Structure) Extrude(parent NodeID, pos mgl32.Vec3) (NodeID, EdgeID, error) {
	if !s.HasNode(parent) {
		return NodeID{}, EdgeID{}, s.missingNode("extrude", parent)
	}
	n := s.AddJoint(Joint{Pos: pos, Parent: parent})
	e, err := s.AddEdge(n, parent, Connector{})
	if err != nil {
		s.RemoveNode(n)
		return NodeID{}, EdgeID{}, err
	}
	return n, e, nil
}

// ---------------------------------------------------------------------------
// Deletion
// ---------------------------------------------------------------------------

type muscleFixup struct {
	partner EdgeID
	edge    EdgeID
}

// DeleteJoint removes n together with its connectors and every muscle on
// them, despawning each visual exactly once. Joints whose parent was n become
// roots.
func (s *Structure) DeleteJoint(n NodeID, d Despawner) error {
	ne, ok := s.node(n)
	if !ok {
		return s.missingNode("delete joint", n)
	}
	incident := append([]EdgeID(nil), ne.edges...)
	jointHandle := ne.joint.Handle

	harvested := make(map[MuscleID]bool)
	var fixups []muscleFixup
	var orphans []NodeID

	for _, e := range incident {
		ee, ok := s.edge(e)
		if !ok {
			continue
		}
		for partner, m := range ee.conn.Muscles {
			fixups = append(fixups, muscleFixup{partner: partner, edge: e})
			if harvested[m] {
				continue
			}
			harvested[m] = true
		}
		despawn(d, ee.conn.Handle)
		if other, ok := s.Opposite(e, n); ok {
			orphans = append(orphans, other)
		}
	}

	ms := make([]MuscleID, 0, len(harvested))
	for m := range harvested {
		ms = append(ms, m)
	}
	sortMuscles(ms)
	for _, m := range ms {
		if mu, ok := s.muscle(m); ok {
			despawn(d, mu.Handle)
		}
		s.muscles.remove(m.index, m.gen)
	}

	for _, f := range fixups {
		if pe, ok := s.edge(f.partner); ok {
			delete(pe.conn.Muscles, f.edge)
		}
	}

	despawn(d, jointHandle)
	s.RemoveNode(n)

	for _, o := range orphans {
		if on, ok := s.node(o); ok && on.joint.Parent == n {
			on.joint.Parent = NodeID{}
		}
	}
	s.log.Info("joint deleted", zap.Stringer("node", n), zap.Int("connectors", len(incident)), zap.Int("muscles", len(ms)))
	return nil
}

// DeleteConnector removes e and its muscles, despawning their visuals. An
// endpoint parented through e becomes a root.
func (s *Structure) DeleteConnector(e EdgeID, d Despawner) error {
	ee, ok := s.edge(e)
	if !ok {
		return s.missingEdge("delete connector", e)
	}
	a, b := ee.a, ee.b
	h := ee.conn.Handle
	for _, m := range s.EdgeMuscles(e) {
		if mu, ok := s.muscle(m); ok {
			despawn(d, mu.Handle)
		}
		s.RemoveMuscle(m)
	}
	despawn(d, h)
	s.RemoveEdge(e)

	if na, ok := s.node(a); ok && na.joint.Parent == b {
		na.joint.Parent = NodeID{}
	}
	if nb, ok := s.node(b); ok && nb.joint.Parent == a {
		nb.joint.Parent = NodeID{}
	}
	s.log.Info("connector deleted", zap.Stringer("edge", e))
	return nil
}

// DeleteMuscle unlinks m from both anchors and despawns its visual. Parent
// links are never affected.
func (s *Structure) DeleteMuscle(m MuscleID, d Despawner) error {
	mu, ok := s.muscle(m)
	if !ok {
		s.log.Warn("muscle missing", zap.String("op", "delete muscle"), zap.Stringer("muscle", m))
		return fmt.Errorf("delete muscle %s: %w", m, ErrMuscleMissing)
	}
	despawn(d, mu.Handle)
	s.RemoveMuscle(m)
	s.log.Info("muscle deleted", zap.Stringer("muscle", m))
	return nil
}

func despawn(d Despawner, h Handle) {
	if d != nil && !h.IsZero() {
		d.Despawn(h)
	}
}
