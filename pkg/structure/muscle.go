package structure

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Muscle is a cross-link between two connectors.
type Muscle struct {
	Handle  Handle
	Anchor1 EdgeID
	Anchor2 EdgeID
}

// Other returns the anchor of m that is not e.
func (m Muscle) Other(e EdgeID) EdgeID {
	if m.Anchor1 == e {
		return m.Anchor2
	}
	return m.Anchor1
}

func (s *Structure) muscle(m MuscleID) (*Muscle, bool) {
	return s.muscles.get(m.index, m.gen)
}

// HasMuscle reports whether m refers to a live muscle.
func (s *Structure) HasMuscle(m MuscleID) bool {
	_, ok := s.muscle(m)
	return ok
}

// Muscle returns a copy of the muscle record.
func (s *Structure) Muscle(m MuscleID) (Muscle, bool) {
	mu, ok := s.muscle(m)
	if !ok {
		s.log.Warn("muscle missing", zap.Stringer("muscle", m))
		return Muscle{}, false
	}
	return *mu, true
}

// SetMuscleHandle records the visual handle of m.
func (s *Structure) SetMuscleHandle(m MuscleID, h Handle) bool {
	mu, ok := s.muscle(m)
	if !ok {
		s.log.Warn("muscle missing", zap.String("op", "set muscle handle"), zap.Stringer("muscle", m))
		return false
	}
	mu.Handle = h
	return true
}

// MuscleBetween returns the muscle shared by connectors a and b.
func (s *Structure) MuscleBetween(a, b EdgeID) (MuscleID, bool) {
	ea, ok := s.edge(a)
	if !ok {
		return MuscleID{}, false
	}
	m, ok := ea.conn.Muscles[b]
	return m, ok
}

// AddMuscle links connectors a1 and a2 with a new muscle whose visual is h.
// Both anchors' muscle maps are updated together.
func (s *Structure) AddMuscle(a1, a2 EdgeID, h Handle) (MuscleID, error) {
	if a1 == a2 {
		return MuscleID{}, fmt.Errorf("add muscle %s: %w", a1, ErrSelfMuscle)
	}
	if !s.HasEdge(a1) {
		return MuscleID{}, s.missingEdge("add muscle", a1)
	}
	if !s.HasEdge(a2) {
		return MuscleID{}, s.missingEdge("add muscle", a2)
	}
	if _, ok := s.MuscleBetween(a1, a2); ok {
		return MuscleID{}, fmt.Errorf("add muscle %s-%s: %w", a1, a2, ErrDuplicateMuscle)
	}
	return s.linkMuscle(a1, a2, h), nil
}

func (s *Structure) linkMuscle(a1, a2 EdgeID, h Handle) MuscleID {
	idx, gen := s.muscles.insert(Muscle{Handle: h, Anchor1: a1, Anchor2: a2})
	m := MuscleID{index: idx, gen: gen}
	e1, _ := s.edge(a1)
	e1.conn.Muscles[a2] = m
	e2, _ := s.edge(a2)
	e2.conn.Muscles[a1] = m
	s.log.Debug("muscle added", zap.Stringer("muscle", m), zap.Stringer("a1", a1), zap.Stringer("a2", a2))
	return m
}

// RemoveMuscle unlinks m from both anchors and frees it. The visual is not
// touched; use DeleteMuscle for the full workflow.
func (s *Structure) RemoveMuscle(m MuscleID) bool {
	mu, ok := s.muscle(m)
	if !ok {
		s.log.Warn("muscle missing", zap.String("op", "remove muscle"), zap.Stringer("muscle", m))
		return false
	}
	a1, a2 := mu.Anchor1, mu.Anchor2
	if e, ok := s.edge(a1); ok && e.conn.Muscles[a2] == m {
		delete(e.conn.Muscles, a2)
	}
	if e, ok := s.edge(a2); ok && e.conn.Muscles[a1] == m {
		delete(e.conn.Muscles, a1)
	}
	s.muscles.remove(m.index, m.gen)
	s.log.Debug("muscle removed", zap.Stringer("muscle", m))
	return true
}

// MuscleIDs returns every live muscle in ID order.
func (s *Structure) MuscleIDs() []MuscleID {
	out := make([]MuscleID, 0, s.muscles.live)
	s.muscles.each(func(idx, gen uint32, _ *Muscle) {
		out = append(out, MuscleID{index: idx, gen: gen})
	})
	return out
}

// EdgeMuscles returns the muscles anchored on e, ordered by partner.
func (s *Structure) EdgeMuscles(e EdgeID) []MuscleID {
	ee, ok := s.edge(e)
	if !ok {
		s.missingEdge("edge muscles", e)
		return nil
	}
	partners := ee.conn.Partners()
	out := make([]MuscleID, 0, len(partners))
	for _, p := range partners {
		out = append(out, ee.conn.Muscles[p])
	}
	return out
}

// FlattenMuscles copies every connector's muscle partners into MuscleData so
// the structure can be persisted.
func (s *Structure) FlattenMuscles() {
	s.edges.each(func(_, _ uint32, ee *edgeEntry) {
		ee.conn.MuscleData = ee.conn.Partners()
	})
}

// RebuildMuscles discards the muscle arena and rebuilds it from the union of
// each connector's MuscleData and runtime muscle map. Exactly one muscle is
// created per distinct connector pair. A pair listed by only one side is
// linked on both sides. Handles are reset to zero.
func (s *Structure) RebuildMuscles() {
	partners := make(map[EdgeID][]EdgeID)
	order := s.EdgeIDs()
	for _, e := range order {
		ee, _ := s.edge(e)
		list := append([]EdgeID(nil), ee.conn.MuscleData...)
		list = append(list, ee.conn.Partners()...)
		partners[e] = list
		ee.conn.Muscles = make(map[EdgeID]MuscleID)
	}
	s.muscles.clear()

	completed := make(map[EdgeID]map[EdgeID]MuscleID)
	for _, e := range order {
		for _, p := range partners[e] {
			if p == e {
				s.log.Warn("dropping self muscle", zap.Stringer("edge", e))
				continue
			}
			if !s.HasEdge(p) {
				s.log.Warn("dropping muscle to missing connector", zap.Stringer("edge", e), zap.Stringer("partner", p))
				continue
			}
			if _, ok := completed[p][e]; ok {
				continue
			}
			if _, ok := completed[e][p]; ok {
				continue
			}
			m := s.linkMuscle(e, p, 0)
			if completed[e] == nil {
				completed[e] = make(map[EdgeID]MuscleID)
			}
			completed[e][p] = m
		}
	}
	s.FlattenMuscles()
}

func sortMuscles(ms []MuscleID) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].index != ms[j].index {
			return ms[i].index < ms[j].index
		}
		return ms[i].gen < ms[j].gen
	})
}
