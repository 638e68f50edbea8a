// Package editor drives interactive editing of a structure: the edit mode
// state machine, the per-frame joint manipulation, selection with highlight
// propagation, and joint and muscle construction.
//
// The editor is advanced one frame at a time through Tick. Multi-step
// interactions such as linking two joints or anchoring a muscle are encoded
// in the EditMode carried between ticks, never in blocked calls. All state
// lives on the Editor so transitions can be exercised without a renderer.
package editor

import (
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/chazu/armature/pkg/config"
	"github.com/chazu/armature/pkg/geom"
	"github.com/chazu/armature/pkg/scene"
	"github.com/chazu/armature/pkg/structure"
)

// Frame is the input gathered for one tick.
type Frame struct {
	// Pressed lists keys and mouse buttons that went down this frame.
	Pressed []string
	// MouseDelta is the mouse motion accumulated over the frame, in
	// viewport pixels.
	MouseDelta mgl32.Vec2
	// Cursor is the viewport cursor position; valid when HasCursor is set.
	Cursor    mgl32.Vec2
	HasCursor bool
	Camera    geom.Camera
}

// Cursor lets the editor move and confine the host's mouse cursor.
type Cursor interface {
	SetPosition(p mgl32.Vec2)
	SetConfined(confined bool)
}

// Saver persists the structure when the save action fires.
type Saver func(st *structure.Structure) error

// Option configures an Editor.
type Option func(*Editor)

func WithLogger(l *zap.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.log = l
		}
	}
}

// WithConfig sets the manipulation constants.
func WithConfig(c config.EditorConfig) Option {
	return func(e *Editor) { e.cfg = c }
}

func WithControls(c Controls) Option {
	return func(e *Editor) { e.controls = c }
}

func WithCursor(c Cursor) Option {
	return func(e *Editor) { e.cursor = c }
}

func WithSaver(s Saver) Option {
	return func(e *Editor) { e.save = s }
}

// Editor owns the editing session for one structure.
type Editor struct {
	st       *structure.Structure
	sc       scene.Scene
	cfg      config.EditorConfig
	controls Controls
	cursor   Cursor
	save     Saver
	log      *zap.Logger

	mode       EditMode
	sel        Selected
	selChanged bool
	// targets maps every pickable visual to the entity it depicts.
	targets map[structure.Handle]Selected
	pending []Action
	events  []event

	undo      mgl32.Vec3
	confined  bool
	hit       Hit
	hasHit    bool
	cursorPos mgl32.Vec2
	hasCursor bool

	// provisional is the half-formed muscle shown while in MuscleAdd.
	provisional structure.Handle
}

// New returns an editor for st that materializes it into sc.
func New(st *structure.Structure, sc scene.Scene, opts ...Option) *Editor {
	e := &Editor{
		sc:       sc,
		cfg:      config.Default().Editor,
		controls: DefaultControls(),
		log:      zap.NewNop(),
		targets:  make(map[structure.Handle]Selected),
	}
	for _, o := range opts {
		o(e)
	}
	e.attach(st)
	return e
}

// Structure returns the structure being edited.
func (e *Editor) Structure() *structure.Structure { return e.st }

// Mode returns the current edit mode.
func (e *Editor) Mode() EditMode { return e.mode }

// Pending returns the actions queued for the next tick.
func (e *Editor) Pending() []Action { return append([]Action(nil), e.pending...) }

// Replace discards the current session and starts editing st.
func (e *Editor) Replace(st *structure.Structure) {
	if e.mode.IsAdjust() {
		e.release()
	}
	e.dropProvisional()
	for h := range e.targets {
		e.sc.Despawn(h)
	}
	e.targets = make(map[structure.Handle]Selected)
	e.mode = EditMode{}
	e.pending = nil
	e.events = nil
	e.hasHit = false
	e.attach(st)
}

func (e *Editor) attach(st *structure.Structure) {
	if st == nil {
		st = structure.New(structure.WithLogger(e.log))
	}
	e.st = st
	st.Create(visuals{e})
	st.TakeDirty()
	e.sel = Selected{}
	e.selChanged = true
	e.propagateHighlight()
	e.selChanged = false
}

// Tick advances the editor by one frame.
func (e *Editor) Tick(f Frame) {
	if f.HasCursor {
		e.cursorPos = f.Cursor
		e.hasCursor = true
	}

	actions := append(e.pending, e.controls.Actions(f.Pressed)...)
	e.pending = nil

	if e.controls.picks(f.Pressed) && !e.mode.IsAdjust() && f.HasCursor && f.Camera != nil {
		e.pickAt(f.Camera, f.Cursor)
	}

	for _, a := range actions {
		e.transition(a)
	}
	e.construct()

	if e.mode.IsAdjust() {
		e.adjust(f)
	}

	e.refresh()
	if e.selChanged {
		e.selChanged = false
		e.propagateHighlight()
	}
}

func (e *Editor) pickAt(cam geom.Camera, cursor mgl32.Vec2) {
	ray, ok := cam.ViewportToRay(cursor)
	if !ok {
		return
	}
	hit, ok := e.Pick(ray)
	e.hit, e.hasHit = hit, ok
	e.Select(hit.Target)
}

// refresh recomputes the visuals of every joint moved since the last tick,
// the connectors on them, and the muscles on those connectors.
func (e *Editor) refresh() {
	dirty := e.st.TakeDirty()
	if len(dirty) == 0 {
		return
	}
	edges := make(map[structure.EdgeID]bool)
	var order []structure.EdgeID
	for _, n := range dirty {
		j, ok := e.st.Joint(n)
		if !ok {
			continue
		}
		if !j.Handle.IsZero() {
			e.sc.SetTransform(j.Handle, geom.At(j.Pos))
		}
		for _, ed := range e.st.Edges(n) {
			if !edges[ed] {
				edges[ed] = true
				order = append(order, ed)
			}
		}
	}

	muscles := make(map[structure.MuscleID]bool)
	for _, ed := range order {
		if h, ok := e.st.EdgeHandle(ed); ok && !h.IsZero() {
			from, to, _ := e.st.Span(ed)
			e.sc.SetTransform(h, geom.ConnectorTransform(from, to))
		}
		for _, m := range e.st.EdgeMuscles(ed) {
			if muscles[m] {
				continue
			}
			muscles[m] = true
			e.placeMuscle(m)
		}
	}
}

func (e *Editor) placeMuscle(m structure.MuscleID) {
	mu, ok := e.st.Muscle(m)
	if !ok || mu.Handle.IsZero() {
		return
	}
	c1, ok1 := e.st.Center(mu.Anchor1)
	c2, ok2 := e.st.Center(mu.Anchor2)
	if ok1 && ok2 {
		e.sc.SetTransform(mu.Handle, geom.MuscleTransform(c1, c2))
	}
}

// visuals adapts the scene to the structure's Spawner and Despawner and
// keeps the pick target registry in step.
type visuals struct{ e *Editor }

func (v visuals) SpawnJoint(n structure.NodeID, pos mgl32.Vec3) structure.Handle {
	h := v.e.sc.Spawn(scene.KindJoint, geom.At(pos))
	v.e.targets[h] = JointSelection(n)
	return h
}

func (v visuals) SpawnConnector(ed structure.EdgeID, from, to mgl32.Vec3) structure.Handle {
	h := v.e.sc.Spawn(scene.KindConnector, geom.ConnectorTransform(from, to))
	v.e.targets[h] = ConnectorSelection(ed)
	return h
}

func (v visuals) SpawnMuscle(m structure.MuscleID, c1, c2 mgl32.Vec3) structure.Handle {
	h := v.e.sc.Spawn(scene.KindMuscle, geom.MuscleTransform(c1, c2))
	v.e.targets[h] = MuscleSelection(m)
	return h
}

func (v visuals) Despawn(h structure.Handle) {
	delete(v.e.targets, h)
	v.e.sc.Despawn(h)
}
