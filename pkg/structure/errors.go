package structure

import "errors"

// Sentinel errors returned by structure operations. Callers match them with
// errors.Is; messages are wrapped with the offending IDs.
var (
	ErrNodeMissing     = errors.New("structure: joint missing")
	ErrEdgeMissing     = errors.New("structure: connector missing")
	ErrMuscleMissing   = errors.New("structure: muscle missing")
	ErrSelfLoop        = errors.New("structure: connector endpoints must differ")
	ErrDuplicateEdge   = errors.New("structure: joints already connected")
	ErrNoEdge          = errors.New("structure: joints are not connected")
	ErrParentCycle     = errors.New("structure: parent link would form a cycle")
	ErrSelfMuscle      = errors.New("structure: muscle anchors must differ")
	ErrDuplicateMuscle = errors.New("structure: connectors already share a muscle")
)
