package structure

import "fmt"

// ValidationSeverity indicates whether a finding breaks a structure
// invariant or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // invariant broken
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// Finding codes.
const (
	CodeDanglingEndpoint = "DANGLING_ENDPOINT"
	CodeDuplicateEdge    = "DUPLICATE_EDGE"
	CodeMuscleMap        = "MUSCLE_MAP"
	CodeDanglingMuscle   = "DANGLING_MUSCLE"
	CodeDanglingParent   = "DANGLING_PARENT"
	CodeParentNoEdge     = "PARENT_NO_EDGE"
	CodeParentCycle      = "PARENT_CYCLE"
	CodeIsolatedJoint    = "ISOLATED_JOINT"
	CodeMultipleRoots    = "MULTIPLE_ROOTS"
	CodeUnmaterialized   = "UNMATERIALIZED"
)

// ValidationError describes a single validation finding. Node or Edge is set
// when the finding concerns a specific element.
type ValidationError struct {
	Code     string
	Node     NodeID
	Edge     EdgeID
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	switch {
	case !e.Node.IsZero():
		return fmt.Sprintf("[%s] joint %s: %s", e.Severity, e.Node, e.Message)
	case !e.Edge.IsZero():
		return fmt.Sprintf("[%s] connector %s: %s", e.Severity, e.Edge, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
}

// ValidationResult separates blocking findings from advisory ones.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether no errors were found.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Validate runs the invariant checks and returns every finding. An empty
// slice means the structure is consistent. It never mutates s.
func (s *Structure) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, s.validateEdges()...)
	errs = append(errs, s.validateMuscleMaps()...)
	errs = append(errs, s.validateMuscleRecords()...)
	errs = append(errs, s.validateParents()...)
	errs = append(errs, s.validateParentCycles()...)
	errs = append(errs, s.validateLayout()...)
	errs = append(errs, s.validateHandles()...)
	return errs
}

// ValidateAll runs Validate and splits the findings by severity.
func (s *Structure) ValidateAll() ValidationResult {
	var r ValidationResult
	for _, e := range s.Validate() {
		if e.Severity == SeverityWarning {
			r.Warnings = append(r.Warnings, e)
		} else {
			r.Errors = append(r.Errors, e)
		}
	}
	return r
}

// validateEdges checks endpoint liveness and that no two connectors join the
// same pair of joints.
func (s *Structure) validateEdges() []ValidationError {
	var errs []ValidationError
	type pair struct{ a, b NodeID }
	seen := make(map[pair]EdgeID)
	for _, e := range s.EdgeIDs() {
		ee, _ := s.edge(e)
		if !s.HasNode(ee.a) || !s.HasNode(ee.b) {
			errs = append(errs, ValidationError{Edge: e, Code: CodeDanglingEndpoint, Message: "endpoint joint does not exist", Severity: SeverityError})
			continue
		}
		p := pair{ee.a, ee.b}
		if ee.b.index < ee.a.index {
			p = pair{ee.b, ee.a}
		}
		if prev, dup := seen[p]; dup {
			errs = append(errs, ValidationError{
				Code:     CodeDuplicateEdge,
				Edge:     e,
				Message:  fmt.Sprintf("duplicates connector %s", prev),
				Severity: SeverityError,
			})
			continue
		}
		seen[p] = e
	}
	return errs
}

// validateMuscleMaps checks that every map entry is mirrored by the partner
// and points at a live muscle anchored on both connectors.
func (s *Structure) validateMuscleMaps() []ValidationError {
	var errs []ValidationError
	for _, e := range s.EdgeIDs() {
		ee, _ := s.edge(e)
		for _, p := range ee.conn.Partners() {
			m := ee.conn.Muscles[p]
			if p == e {
				errs = append(errs, ValidationError{Edge: e, Code: CodeMuscleMap, Message: "muscle anchored twice on the same connector", Severity: SeverityError})
				continue
			}
			pe, ok := s.edge(p)
			if !ok {
				errs = append(errs, ValidationError{Edge: e, Code: CodeDanglingMuscle, Message: fmt.Sprintf("muscle partner %s does not exist", p), Severity: SeverityError})
				continue
			}
			if back, ok := pe.conn.Muscles[e]; !ok || back != m {
				errs = append(errs, ValidationError{Edge: e, Code: CodeMuscleMap, Message: fmt.Sprintf("muscle to %s is not mirrored", p), Severity: SeverityError})
			}
			mu, ok := s.muscle(m)
			if !ok {
				errs = append(errs, ValidationError{Edge: e, Code: CodeDanglingMuscle, Message: fmt.Sprintf("muscle %s does not exist", m), Severity: SeverityError})
				continue
			}
			if !((mu.Anchor1 == e && mu.Anchor2 == p) || (mu.Anchor1 == p && mu.Anchor2 == e)) {
				errs = append(errs, ValidationError{Edge: e, Code: CodeMuscleMap, Message: fmt.Sprintf("muscle %s is anchored elsewhere", m), Severity: SeverityError})
			}
		}
	}
	return errs
}

// validateMuscleRecords checks that every muscle is reachable from both of
// its anchors.
func (s *Structure) validateMuscleRecords() []ValidationError {
	var errs []ValidationError
	for _, m := range s.MuscleIDs() {
		mu, _ := s.muscle(m)
		for _, pair := range [2][2]EdgeID{{mu.Anchor1, mu.Anchor2}, {mu.Anchor2, mu.Anchor1}} {
			ee, ok := s.edge(pair[0])
			if !ok {
				errs = append(errs, ValidationError{
					Code:     CodeDanglingMuscle,
					Message:  fmt.Sprintf("muscle %s anchor %s does not exist", m, pair[0]),
					Severity: SeverityError,
				})
				continue
			}
			if ee.conn.Muscles[pair[1]] != m {
				errs = append(errs, ValidationError{
					Code:     CodeMuscleMap,
					Edge:     pair[0],
					Message:  fmt.Sprintf("muscle %s is not registered on its anchor", m),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateParents checks that each parent is live and joined by a connector.
func (s *Structure) validateParents() []ValidationError {
	var errs []ValidationError
	for _, n := range s.NodeIDs() {
		ne, _ := s.node(n)
		p := ne.joint.Parent
		if p.IsZero() {
			continue
		}
		if !s.HasNode(p) {
			errs = append(errs, ValidationError{Node: n, Code: CodeDanglingParent, Message: fmt.Sprintf("parent %s does not exist", p), Severity: SeverityError})
			continue
		}
		if _, ok := s.FindEdge(n, p); !ok {
			errs = append(errs, ValidationError{Node: n, Code: CodeParentNoEdge, Message: fmt.Sprintf("no connector to parent %s", p), Severity: SeverityError})
		}
	}
	return errs
}

// validateParentCycles walks parent links with 3-color marking.
// White (0) = unvisited, gray (1) = on the current chain, black (2) = done.
func (s *Structure) validateParentCycles() []ValidationError {
	const (
		white = iota
		gray
		black
	)
	color := make(map[NodeID]int)
	var errs []ValidationError

	for _, start := range s.NodeIDs() {
		if color[start] != white {
			continue
		}
		var chain []NodeID
		cur := start
		for !cur.IsZero() && color[cur] == white {
			color[cur] = gray
			chain = append(chain, cur)
			ne, ok := s.node(cur)
			if !ok {
				break
			}
			cur = ne.joint.Parent
		}
		if !cur.IsZero() && color[cur] == gray {
			errs = append(errs, ValidationError{
				Code:     CodeParentCycle,
				Node:     cur,
				Message:  "parent links form a cycle",
				Severity: SeverityError,
			})
		}
		for _, n := range chain {
			color[n] = black
		}
	}
	return errs
}

// validateLayout reports advisory findings about the structure's shape.
func (s *Structure) validateLayout() []ValidationError {
	var errs []ValidationError
	for _, n := range s.NodeIDs() {
		ne, _ := s.node(n)
		if len(ne.edges) == 0 && s.NodeCount() > 1 {
			errs = append(errs, ValidationError{Node: n, Code: CodeIsolatedJoint, Message: "joint has no connectors", Severity: SeverityWarning})
		}
	}
	if roots := s.Roots(); len(roots) > 1 {
		errs = append(errs, ValidationError{
			Code:     CodeMultipleRoots,
			Message:  fmt.Sprintf("structure has %d root joints", len(roots)),
			Severity: SeverityWarning,
		})
	}
	return errs
}

// validateHandles warns about elements that have no visual. A structure
// fresh from a decoder or a script reports every element until Create runs.
func (s *Structure) validateHandles() []ValidationError {
	var errs []ValidationError
	for _, n := range s.NodeIDs() {
		if ne, _ := s.node(n); ne.joint.Handle.IsZero() {
			errs = append(errs, ValidationError{Code: CodeUnmaterialized, Node: n, Message: "joint has no visual", Severity: SeverityWarning})
		}
	}
	for _, e := range s.EdgeIDs() {
		if ee, _ := s.edge(e); ee.conn.Handle.IsZero() {
			errs = append(errs, ValidationError{Code: CodeUnmaterialized, Edge: e, Message: "connector has no visual", Severity: SeverityWarning})
		}
	}
	for _, m := range s.MuscleIDs() {
		if mu, _ := s.muscle(m); mu.Handle.IsZero() {
			errs = append(errs, ValidationError{
				Code:     CodeUnmaterialized,
				Message:  fmt.Sprintf("muscle %s has no visual", m),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}
