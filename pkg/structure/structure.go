package structure

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Joint is the payload of a structure node.
type Joint struct {
	Handle Handle
	Pos    mgl32.Vec3
	Parent NodeID // zero when the joint is a root
}

// HasParent reports whether the joint names a parent.
func (j Joint) HasParent() bool { return !j.Parent.IsZero() }

// Connector is the payload of a structure edge.
//
// Muscles maps the opposite anchor connector to the muscle they share. It is
// runtime state and is only changed through the muscle operations so both
// anchors stay symmetric. MuscleData is the persisted flattening of the
// Muscles keys.
type Connector struct {
	Handle     Handle
	Muscles    map[EdgeID]MuscleID
	MuscleData []EdgeID
}

// Partners returns the connectors sharing a muscle with c, in edge order.
func (c Connector) Partners() []EdgeID {
	out := make([]EdgeID, 0, len(c.Muscles))
	for p := range c.Muscles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

type nodeEntry struct {
	joint Joint
	edges []EdgeID
}

type edgeEntry struct {
	conn Connector
	a, b NodeID
}

// Structure is the creature graph. It is not safe for concurrent use; the
// editor drives it from a single goroutine.
type Structure struct {
	nodes   arena[nodeEntry]
	edges   arena[edgeEntry]
	muscles arena[Muscle]
	dirty   map[NodeID]struct{}
	log     *zap.Logger
}

// Option configures a Structure.
type Option func(*Structure)

// WithLogger sets the logger used for soft failures and mutations.
func WithLogger(l *zap.Logger) Option {
	return func(s *Structure) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns an empty structure.
func New(opts ...Option) *Structure {
	s := &Structure{
		dirty: make(map[NodeID]struct{}),
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Logger returns the structure's logger.
func (s *Structure) Logger() *zap.Logger { return s.log }

// NodeCount returns the number of live joints.
func (s *Structure) NodeCount() int { return s.nodes.live }

// EdgeCount returns the number of live connectors.
func (s *Structure) EdgeCount() int { return s.edges.live }

// MuscleCount returns the number of live muscles.
func (s *Structure) MuscleCount() int { return s.muscles.live }

func (s *Structure) node(n NodeID) (*nodeEntry, bool) {
	return s.nodes.get(n.index, n.gen)
}

func (s *Structure) edge(e EdgeID) (*edgeEntry, bool) {
	return s.edges.get(e.index, e.gen)
}

// missingNode logs a stale joint lookup and returns the wrapped error.
func (s *Structure) missingNode(op string, n NodeID) error {
	s.log.Warn("joint missing", zap.String("op", op), zap.Stringer("node", n))
	return fmt.Errorf("%s %s: %w", op, n, ErrNodeMissing)
}

func (s *Structure) missingEdge(op string, e EdgeID) error {
	s.log.Warn("connector missing", zap.String("op", op), zap.Stringer("edge", e))
	return fmt.Errorf("%s %s: %w", op, e, ErrEdgeMissing)
}

// ---------------------------------------------------------------------------
// Nodes
// ---------------------------------------------------------------------------

// AddNode inserts a joint at pos with no parent and no handle.
func (s *Structure) AddNode(pos mgl32.Vec3) NodeID {
	return s.AddJoint(Joint{Pos: pos})
}

// AddJoint inserts a joint payload as is. The parent is not checked; use
// SetParent when the parent edge must already exist.
func (s *Structure) AddJoint(j Joint) NodeID {
	idx, gen := s.nodes.insert(nodeEntry{joint: j})
	id := NodeID{index: idx, gen: gen}
	s.log.Debug("joint added", zap.Stringer("node", id))
	return id
}

// HasNode reports whether n refers to a live joint.
func (s *Structure) HasNode(n NodeID) bool {
	_, ok := s.node(n)
	return ok
}

// Joint returns a copy of the joint payload.
func (s *Structure) Joint(n NodeID) (Joint, bool) {
	ne, ok := s.node(n)
	if !ok {
		s.missingNode("joint", n)
		return Joint{}, false
	}
	return ne.joint, true
}

// Position returns the world position of n.
func (s *Structure) Position(n NodeID) (mgl32.Vec3, bool) {
	ne, ok := s.node(n)
	if !ok {
		s.missingNode("position", n)
		return mgl32.Vec3{}, false
	}
	return ne.joint.Pos, true
}

// SetPosition moves n and marks it dirty for transform propagation.
func (s *Structure) SetPosition(n NodeID, pos mgl32.Vec3) bool {
	ne, ok := s.node(n)
	if !ok {
		s.missingNode("set position", n)
		return false
	}
	ne.joint.Pos = pos
	s.dirty[n] = struct{}{}
	return true
}

// NodeHandle returns the visual handle of n.
func (s *Structure) NodeHandle(n NodeID) (Handle, bool) {
	ne, ok := s.node(n)
	if !ok {
		s.missingNode("node handle", n)
		return 0, false
	}
	return ne.joint.Handle, true
}

// SetNodeHandle records the visual handle of n.
func (s *Structure) SetNodeHandle(n NodeID, h Handle) bool {
	ne, ok := s.node(n)
	if !ok {
		s.missingNode("set node handle", n)
		return false
	}
	ne.joint.Handle = h
	return true
}

// NodeParent returns the parent of n. ok is false when n is missing or is a
// root.
func (s *Structure) NodeParent(n NodeID) (NodeID, bool) {
	ne, ok := s.node(n)
	if !ok {
		s.missingNode("node parent", n)
		return NodeID{}, false
	}
	if ne.joint.Parent.IsZero() {
		return NodeID{}, false
	}
	return ne.joint.Parent, true
}

// NodeParentHandle resolves the parent of n to the parent's visual handle.
func (s *Structure) NodeParentHandle(n NodeID) (Handle, bool) {
	p, ok := s.NodeParent(n)
	if !ok {
		return 0, false
	}
	return s.NodeHandle(p)
}

// SetParent makes p the parent of n. An edge between them must exist and the
// parent chain of p must not contain n.
func (s *Structure) SetParent(n, p NodeID) error {
	ne, ok := s.node(n)
	if !ok {
		return s.missingNode("set parent", n)
	}
	if !s.HasNode(p) {
		return s.missingNode("set parent", p)
	}
	if _, ok := s.FindEdge(n, p); !ok {
		return fmt.Errorf("set parent %s -> %s: %w", n, p, ErrNoEdge)
	}
	if s.isAncestor(n, p) {
		return fmt.Errorf("set parent %s -> %s: %w", n, p, ErrParentCycle)
	}
	ne.joint.Parent = p
	return nil
}

// ClearParent turns n into a root.
func (s *Structure) ClearParent(n NodeID) bool {
	ne, ok := s.node(n)
	if !ok {
		s.missingNode("clear parent", n)
		return false
	}
	ne.joint.Parent = NodeID{}
	return true
}

// isAncestor reports whether anc is n itself or appears on n's parent chain.
func (s *Structure) isAncestor(anc, n NodeID) bool {
	seen := make(map[NodeID]bool)
	for cur := n; !cur.IsZero(); {
		if cur == anc {
			return true
		}
		if seen[cur] {
			return false
		}
		seen[cur] = true
		ne, ok := s.node(cur)
		if !ok {
			return false
		}
		cur = ne.joint.Parent
	}
	return false
}

// Roots returns every joint without a parent, in ID order.
func (s *Structure) Roots() []NodeID {
	var out []NodeID
	s.nodes.each(func(idx, gen uint32, ne *nodeEntry) {
		if ne.joint.Parent.IsZero() {
			out = append(out, NodeID{index: idx, gen: gen})
		}
	})
	return out
}

// Children returns the joints whose parent is n.
func (s *Structure) Children(n NodeID) []NodeID {
	var out []NodeID
	s.nodes.each(func(idx, gen uint32, ne *nodeEntry) {
		if ne.joint.Parent == n {
			out = append(out, NodeID{index: idx, gen: gen})
		}
	})
	return out
}

// NodeIDs returns every live joint in ID order.
func (s *Structure) NodeIDs() []NodeID {
	out := make([]NodeID, 0, s.nodes.live)
	s.nodes.each(func(idx, gen uint32, _ *nodeEntry) {
		out = append(out, NodeID{index: idx, gen: gen})
	})
	return out
}

// RemoveNode deletes n and every connector touching it. It performs no muscle
// or parent bookkeeping; use DeleteJoint for the full workflow.
func (s *Structure) RemoveNode(n NodeID) bool {
	ne, ok := s.node(n)
	if !ok {
		s.missingNode("remove node", n)
		return false
	}
	for _, e := range append([]EdgeID(nil), ne.edges...) {
		s.RemoveEdge(e)
	}
	delete(s.dirty, n)
	s.nodes.remove(n.index, n.gen)
	s.log.Debug("joint removed", zap.Stringer("node", n))
	return true
}

// ---------------------------------------------------------------------------
// Edges
// ---------------------------------------------------------------------------

// AddEdge connects n1 and n2 with connector c. The Muscles map of c is
// ignored; muscles are added with AddMuscle or rebuilt from MuscleData.
func (s *Structure) AddEdge(n1, n2 NodeID, c Connector) (EdgeID, error) {
	if n1 == n2 {
		return EdgeID{}, fmt.Errorf("add edge %s: %w", n1, ErrSelfLoop)
	}
	if !s.HasNode(n1) {
		return EdgeID{}, s.missingNode("add edge", n1)
	}
	if !s.HasNode(n2) {
		return EdgeID{}, s.missingNode("add edge", n2)
	}
	if _, ok := s.FindEdge(n1, n2); ok {
		return EdgeID{}, fmt.Errorf("add edge %s-%s: %w", n1, n2, ErrDuplicateEdge)
	}
	c.Muscles = make(map[EdgeID]MuscleID)
	c.MuscleData = append([]EdgeID(nil), c.MuscleData...)
	idx, gen := s.edges.insert(edgeEntry{conn: c, a: n1, b: n2})
	e := EdgeID{index: idx, gen: gen}

	ne1, _ := s.node(n1)
	ne1.edges = append(ne1.edges, e)
	ne2, _ := s.node(n2)
	ne2.edges = append(ne2.edges, e)

	s.log.Debug("connector added", zap.Stringer("edge", e), zap.Stringer("a", n1), zap.Stringer("b", n2))
	return e, nil
}

// HasEdge reports whether e refers to a live connector.
func (s *Structure) HasEdge(e EdgeID) bool {
	_, ok := s.edge(e)
	return ok
}

// Connector returns a copy of the connector payload, including a copy of its
// muscle map.
func (s *Structure) Connector(e EdgeID) (Connector, bool) {
	ee, ok := s.edge(e)
	if !ok {
		s.missingEdge("connector", e)
		return Connector{}, false
	}
	c := ee.conn
	c.Muscles = make(map[EdgeID]MuscleID, len(ee.conn.Muscles))
	for k, v := range ee.conn.Muscles {
		c.Muscles[k] = v
	}
	c.MuscleData = append([]EdgeID(nil), ee.conn.MuscleData...)
	return c, true
}

// EdgeHandle returns the visual handle of e.
func (s *Structure) EdgeHandle(e EdgeID) (Handle, bool) {
	ee, ok := s.edge(e)
	if !ok {
		s.missingEdge("edge handle", e)
		return 0, false
	}
	return ee.conn.Handle, true
}

// SetEdgeHandle records the visual handle of e.
func (s *Structure) SetEdgeHandle(e EdgeID, h Handle) bool {
	ee, ok := s.edge(e)
	if !ok {
		s.missingEdge("set edge handle", e)
		return false
	}
	ee.conn.Handle = h
	return true
}

// SetMuscleData replaces the persisted muscle partners of e.
func (s *Structure) SetMuscleData(e EdgeID, partners []EdgeID) bool {
	ee, ok := s.edge(e)
	if !ok {
		s.missingEdge("set muscle data", e)
		return false
	}
	ee.conn.MuscleData = append([]EdgeID(nil), partners...)
	return true
}

// Endpoints returns the two joints of e in insertion order.
func (s *Structure) Endpoints(e EdgeID) (NodeID, NodeID, bool) {
	ee, ok := s.edge(e)
	if !ok {
		s.missingEdge("endpoints", e)
		return NodeID{}, NodeID{}, false
	}
	return ee.a, ee.b, true
}

// Opposite returns the endpoint of e that is not n.
func (s *Structure) Opposite(e EdgeID, n NodeID) (NodeID, bool) {
	a, b, ok := s.Endpoints(e)
	switch {
	case !ok:
		return NodeID{}, false
	case a == n:
		return b, true
	case b == n:
		return a, true
	}
	return NodeID{}, false
}

// Span returns the endpoints of e oriented parent to child. When neither
// endpoint parents the other the insertion order is kept.
func (s *Structure) Span(e EdgeID) (from, to mgl32.Vec3, ok bool) {
	a, b, ok := s.Endpoints(e)
	if !ok {
		return from, to, false
	}
	na, _ := s.node(a)
	nb, _ := s.node(b)
	if na.joint.Parent == b {
		return nb.joint.Pos, na.joint.Pos, true
	}
	return na.joint.Pos, nb.joint.Pos, true
}

// Center returns the midpoint of e, which is where its visual sits.
func (s *Structure) Center(e EdgeID) (mgl32.Vec3, bool) {
	from, to, ok := s.Span(e)
	if !ok {
		return mgl32.Vec3{}, false
	}
	return from.Add(to).Mul(0.5), true
}

// FindEdge returns the connector joining a and b, if any.
func (s *Structure) FindEdge(a, b NodeID) (EdgeID, bool) {
	na, ok := s.node(a)
	if !ok {
		return EdgeID{}, false
	}
	for _, e := range na.edges {
		ee, ok := s.edge(e)
		if !ok {
			continue
		}
		if (ee.a == a && ee.b == b) || (ee.a == b && ee.b == a) {
			return e, true
		}
	}
	return EdgeID{}, false
}

// Edges returns the connectors incident to n.
func (s *Structure) Edges(n NodeID) []EdgeID {
	ne, ok := s.node(n)
	if !ok {
		s.missingNode("edges", n)
		return nil
	}
	return append([]EdgeID(nil), ne.edges...)
}

// Neighbors returns the joints adjacent to n, one per incident connector.
func (s *Structure) Neighbors(n NodeID) []NodeID {
	var out []NodeID
	for _, e := range s.Edges(n) {
		if o, ok := s.Opposite(e, n); ok {
			out = append(out, o)
		}
	}
	return out
}

// ParentEdge returns the connector between n and its parent.
func (s *Structure) ParentEdge(n NodeID) (EdgeID, bool) {
	p, ok := s.NodeParent(n)
	if !ok {
		return EdgeID{}, false
	}
	return s.FindEdge(n, p)
}

// EdgeIDs returns every live connector in ID order.
func (s *Structure) EdgeIDs() []EdgeID {
	out := make([]EdgeID, 0, s.edges.live)
	s.edges.each(func(idx, gen uint32, _ *edgeEntry) {
		out = append(out, EdgeID{index: idx, gen: gen})
	})
	return out
}

// RemoveEdge deletes e. Muscles and parent links are left untouched; use
// DeleteConnector for the full workflow.
func (s *Structure) RemoveEdge(e EdgeID) bool {
	ee, ok := s.edge(e)
	if !ok {
		s.missingEdge("remove edge", e)
		return false
	}
	for _, n := range [2]NodeID{ee.a, ee.b} {
		if ne, ok := s.node(n); ok {
			ne.edges = removeEdgeID(ne.edges, e)
		}
	}
	s.edges.remove(e.index, e.gen)
	s.log.Debug("connector removed", zap.Stringer("edge", e))
	return true
}

func removeEdgeID(list []EdgeID, e EdgeID) []EdgeID {
	out := list[:0]
	for _, x := range list {
		if x != e {
			out = append(out, x)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Dirty tracking
// ---------------------------------------------------------------------------

// MarkDirty flags n for transform propagation.
func (s *Structure) MarkDirty(n NodeID) {
	if s.HasNode(n) {
		s.dirty[n] = struct{}{}
	}
}

// TakeDirty returns the joints moved since the last call, in ID order, and
// resets the set.
func (s *Structure) TakeDirty() []NodeID {
	out := make([]NodeID, 0, len(s.dirty))
	for n := range s.dirty {
		if s.HasNode(n) {
			out = append(out, n)
		}
	}
	s.dirty = make(map[NodeID]struct{})
	sort.Slice(out, func(i, j int) bool {
		if out[i].index != out[j].index {
			return out[i].index < out[j].index
		}
		return out[i].gen < out[j].gen
	})
	return out
}
