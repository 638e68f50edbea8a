// Package scene is the presentation layer between a structure and whatever
// draws it. The editor spawns, moves and highlights visuals through the Scene
// interface and keeps only the returned handles; the graph never depends on
// renderer state.
package scene

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/chazu/armature/pkg/geom"
	"github.com/chazu/armature/pkg/structure"
)

// Kind identifies what a visual depicts.
type Kind int

const (
	KindJoint Kind = iota
	KindConnector
	KindMuscle
)

func (k Kind) String() string {
	switch k {
	case KindJoint:
		return "joint"
	case KindConnector:
		return "connector"
	case KindMuscle:
		return "muscle"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Highlight is the selection state of a visual.
type Highlight int

const (
	HighlightNone     Highlight = iota
	HighlightSelected           // the selected entity
	HighlightParent             // connector to the selected joint's parent
)

func (h Highlight) String() string {
	switch h {
	case HighlightNone:
		return "none"
	case HighlightSelected:
		return "selected"
	case HighlightParent:
		return "parent"
	}
	return fmt.Sprintf("Highlight(%d)", int(h))
}

// Color returns the RGBA color a visual of kind k is drawn with.
func Color(k Kind, h Highlight) [4]float32 {
	switch h {
	case HighlightSelected:
		return [4]float32{1.0, 0.85, 0.2, 1}
	case HighlightParent:
		return [4]float32{0.2, 0.6, 1.0, 1}
	}
	switch k {
	case KindJoint:
		return [4]float32{0.05, 0.05, 0.05, 1}
	case KindMuscle:
		return [4]float32{0.75, 0.2, 0.2, 1}
	}
	return [4]float32{0.8, 0.8, 0.8, 1}
}

// Scene owns visuals on behalf of the editor.
type Scene interface {
	Spawn(kind Kind, t geom.Transform) structure.Handle
	Despawn(h structure.Handle)
	SetTransform(h structure.Handle, t geom.Transform)
	SetHighlight(h structure.Handle, hl Highlight)
}

// Object is one visual held by Memory.
type Object struct {
	Handle    structure.Handle
	Kind      Kind
	Transform geom.Transform
	Highlight Highlight
}

// Memory is an in-process Scene. The desktop shell tessellates its objects
// for the frontend and the tests inspect it directly. It is safe for
// concurrent use.
type Memory struct {
	mu      sync.RWMutex
	next    structure.Handle
	objects map[structure.Handle]*Object
	version uint64
	log     *zap.Logger
}

var _ Scene = (*Memory)(nil)

// NewMemory returns an empty scene. A nil logger disables logging.
func NewMemory(log *zap.Logger) *Memory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Memory{objects: make(map[structure.Handle]*Object), log: log}
}

// Spawn adds a visual and returns its handle. Handles are never reused.
func (m *Memory) Spawn(kind Kind, t geom.Transform) structure.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	h := m.next
	m.objects[h] = &Object{Handle: h, Kind: kind, Transform: t}
	m.version++
	return h
}

// Despawn removes a visual. Unknown handles are logged and ignored.
func (m *Memory) Despawn(h structure.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[h]; !ok {
		m.log.Warn("despawn of unknown visual", zap.Stringer("handle", h))
		return
	}
	delete(m.objects, h)
	m.version++
}

// SetTransform moves a visual.
func (m *Memory) SetTransform(h structure.Handle, t geom.Transform) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[h]
	if !ok {
		m.log.Warn("transform of unknown visual", zap.Stringer("handle", h))
		return
	}
	o.Transform = t
	m.version++
}

// SetHighlight changes the selection state of a visual.
func (m *Memory) SetHighlight(h structure.Handle, hl Highlight) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[h]
	if !ok {
		m.log.Warn("highlight of unknown visual", zap.Stringer("handle", h))
		return
	}
	if o.Highlight != hl {
		o.Highlight = hl
		m.version++
	}
}

// Object returns a copy of the visual with handle h.
func (m *Memory) Object(h structure.Handle) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[h]
	if !ok {
		return Object{}, false
	}
	return *o, true
}

// Objects returns copies of every visual ordered by handle.
func (m *Memory) Objects() []Object {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Object, 0, len(m.objects))
	for _, o := range m.objects {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// Count returns the number of visuals of kind k.
func (m *Memory) Count(k Kind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, o := range m.objects {
		if o.Kind == k {
			n++
		}
	}
	return n
}

// Len returns the number of visuals.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// Version increases on every change, so callers can skip redundant work.
func (m *Memory) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Reset removes every visual.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects = make(map[structure.Handle]*Object)
	m.version++
}
