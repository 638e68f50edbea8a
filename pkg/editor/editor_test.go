package editor_test

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chazu/armature/pkg/config"
	"github.com/chazu/armature/pkg/editor"
	"github.com/chazu/armature/pkg/geom"
	"github.com/chazu/armature/pkg/scene"
	"github.com/chazu/armature/pkg/structure"
)

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

type fakeCursor struct {
	moves    []mgl32.Vec2
	confined bool
}

func (c *fakeCursor) SetPosition(p mgl32.Vec2) { c.moves = append(c.moves, p) }
func (c *fakeCursor) SetConfined(on bool)      { c.confined = on }

type harness struct {
	t   *testing.T
	ed  *editor.Editor
	st  *structure.Structure
	mem *scene.Memory
	cur *fakeCursor
	cam geom.PerspectiveCamera
}

func newHarness(t *testing.T, st *structure.Structure, opts ...editor.Option) *harness {
	t.Helper()
	h := &harness{
		t:   t,
		st:  st,
		mem: scene.NewMemory(nil),
		cur: &fakeCursor{},
		cam: geom.NewPerspectiveCamera(mgl32.Vec3{0, 0, 20}, mgl32.Vec3{}, 800, 600),
	}
	opts = append([]editor.Option{editor.WithCursor(h.cur)}, opts...)
	h.ed = editor.New(st, h.mem, opts...)
	return h
}

// press ticks with keys pressed and no cursor.
func (h *harness) press(keys ...string) {
	h.ed.Tick(editor.Frame{Pressed: keys, Camera: h.cam})
}

// drag ticks with mouse motion only.
func (h *harness) drag(dx, dy float32) {
	h.ed.Tick(editor.Frame{MouseDelta: mgl32.Vec2{dx, dy}, Camera: h.cam})
}

// pointAt ticks with the cursor over the world point p.
func (h *harness) pointAt(p mgl32.Vec3, keys ...string) {
	h.ed.Tick(editor.Frame{Pressed: keys, Cursor: h.project(p), HasCursor: true, Camera: h.cam})
}

func (h *harness) project(p mgl32.Vec3) mgl32.Vec2 {
	h.t.Helper()
	s, ok := h.cam.WorldToViewport(p)
	require.True(h.t, ok, "%v is behind the camera", p)
	return s
}

func (h *harness) pos(n structure.NodeID) mgl32.Vec3 {
	h.t.Helper()
	p, ok := h.st.Position(n)
	require.True(h.t, ok)
	return p
}

func (h *harness) object(hd structure.Handle) scene.Object {
	h.t.Helper()
	o, ok := h.mem.Object(hd)
	require.True(h.t, ok, "no visual %s", hd)
	return o
}

func assertNear(t *testing.T, want, got mgl32.Vec3, tol float32) {
	t.Helper()
	assert.True(t, want.ApproxEqualThreshold(got, tol), "want %v, got %v", want, got)
}

// arm is a root at the origin with one child four units above it.
func arm(t *testing.T) (*structure.Structure, structure.NodeID, structure.NodeID, structure.EdgeID) {
	t.Helper()
	st := structure.New()
	root := st.AddNode(mgl32.Vec3{})
	child, e, err := st.Extrude(root, mgl32.Vec3{0, 4, 0})
	require.NoError(t, err)
	return st, root, child, e
}

func lone(t *testing.T) (*structure.Structure, structure.NodeID) {
	t.Helper()
	st := structure.New()
	return st, st.AddNode(mgl32.Vec3{})
}

// ---------------------------------------------------------------------------
// Materialization
// ---------------------------------------------------------------------------

func TestNewMaterializesStructure(t *testing.T) {
	st, root, child, e := arm(t)
	h := newHarness(t, st)

	assert.Equal(t, 2, h.mem.Count(scene.KindJoint))
	assert.Equal(t, 1, h.mem.Count(scene.KindConnector))

	ch, _ := st.NodeHandle(child)
	assertNear(t, mgl32.Vec3{0, 4, 0}, h.object(ch).Transform.Translation, 1e-6)

	eh, _ := st.EdgeHandle(e)
	sel, ok := h.ed.Target(eh)
	require.True(t, ok)
	assert.Equal(t, editor.ConnectorSelection(e), sel)

	rh, _ := st.NodeHandle(root)
	sel, _ = h.ed.Target(rh)
	assert.Equal(t, editor.JointSelection(root), sel)
	assert.Equal(t, editor.EditMode{}, h.ed.Mode())
}

func TestReplaceSwapsSession(t *testing.T) {
	st, _, child, _ := arm(t)
	h := newHarness(t, st)
	h.ed.Select(editor.JointSelection(child))
	h.press("G")
	require.True(t, h.ed.Mode().IsAdjust())

	next, _ := lone(t)
	h.ed.Replace(next)
	assert.Same(t, next, h.ed.Structure())
	assert.Equal(t, 1, h.mem.Len())
	assert.Equal(t, editor.EditMode{}, h.ed.Mode())
	assert.True(t, h.ed.Selection().IsZero())
	assert.False(t, h.cur.confined)
}

// ---------------------------------------------------------------------------
// Transitions
// ---------------------------------------------------------------------------

func TestActionsWithoutTargetStayDefault(t *testing.T) {
	st, _, _, e := arm(t)
	core, logs := observer.New(zapcore.DebugLevel)
	h := newHarness(t, st, editor.WithLogger(zap.New(core)))

	for _, k := range []string{"G", "E", "R", "Tab", "L", "M", "X", "MouseLeft", "Escape", "Delete"} {
		h.press(k)
		assert.Equal(t, editor.EditMode{}, h.ed.Mode(), "key %s", k)
	}

	h.ed.Select(editor.ConnectorSelection(e))
	h.press("G")
	assert.Equal(t, editor.EditMode{}, h.ed.Mode(), "connectors cannot be grabbed")
	assert.NotZero(t, logs.FilterMessage("action ignored").Len())
}

func TestEnterAndCommitAdjust(t *testing.T) {
	st, _, child, _ := arm(t)
	h := newHarness(t, st)
	h.ed.Select(editor.JointSelection(child))

	tests := []struct {
		key  string
		want editor.ModeKind
	}{
		{"G", editor.ModeAdjustGrab},
		{"E", editor.ModeAdjustExtend},
		{"R", editor.ModeAdjustRotate},
	}
	for _, tt := range tests {
		h.press(tt.key)
		assert.Equal(t, editor.EditMode{Kind: tt.want, Joint: child}, h.ed.Mode())
		h.press("MouseLeft")
		assert.Equal(t, editor.EditMode{}, h.ed.Mode())
		assert.Equal(t, editor.JointSelection(child), h.ed.Selection(), "confirming does not pick")
	}
}

func TestCancelRestoresPosition(t *testing.T) {
	st, _, child, _ := arm(t)
	h := newHarness(t, st)
	h.ed.Select(editor.JointSelection(child))

	h.pointAt(mgl32.Vec3{3, 4, 0}, "G")
	require.False(t, h.pos(child).ApproxEqualThreshold(mgl32.Vec3{0, 4, 0}, 0.5))

	h.press("Escape")
	assert.Equal(t, mgl32.Vec3{0, 4, 0}, h.pos(child))
	assert.Equal(t, editor.EditMode{}, h.ed.Mode())
}

func TestSameModeKeyUndoes(t *testing.T) {
	st, _, child, e := arm(t)
	h := newHarness(t, st)
	h.ed.Select(editor.JointSelection(child))

	h.pointAt(mgl32.Vec3{3, 4, 0}, "G")
	h.press("G")
	assert.Equal(t, mgl32.Vec3{0, 4, 0}, h.pos(child))
	assert.Equal(t, editor.EditMode{}, h.ed.Mode())

	eh, _ := st.EdgeHandle(e)
	assertNear(t, mgl32.Vec3{0, 2, 0}, h.object(eh).Transform.Translation, 1e-5)
}

func TestSwitchingAdjustKeepsUndo(t *testing.T) {
	st, _, child, _ := arm(t)
	h := newHarness(t, st)
	h.ed.Select(editor.JointSelection(child))

	h.press("E")
	assert.True(t, h.cur.confined)
	h.pointAt(mgl32.Vec3{3, 4, 0}, "G")
	assert.Equal(t, editor.ModeAdjustGrab, h.ed.Mode().Kind)
	assert.False(t, h.cur.confined, "leaving extend releases the cursor")

	h.press("Escape")
	assert.Equal(t, mgl32.Vec3{0, 4, 0}, h.pos(child))
}

func TestAxisChange(t *testing.T) {
	st, root := lone(t)
	h := newHarness(t, st)
	h.ed.Select(editor.JointSelection(root))

	steps := []struct {
		key  string
		want editor.EditMode
	}{
		{"G", editor.EditMode{Kind: editor.ModeAdjustGrab, Joint: root}},
		{"X", editor.EditMode{Kind: editor.ModeAdjustAxis, Joint: root, Axis: geom.AxisX}},
		{"Y", editor.EditMode{Kind: editor.ModeAdjustAxis, Joint: root, Axis: geom.AxisY}},
		{"Y", editor.EditMode{Kind: editor.ModeAdjustGrab, Joint: root}},
		{"Z", editor.EditMode{Kind: editor.ModeAdjustAxis, Joint: root, Axis: geom.AxisZ}},
		{"G", editor.EditMode{}},
	}
	for i, s := range steps {
		h.press(s.key)
		assert.Equal(t, s.want, h.ed.Mode(), "step %d (%s)", i, s.key)
	}
}

func TestRotateAxisChange(t *testing.T) {
	st, _, child, _ := arm(t)
	h := newHarness(t, st)
	h.ed.Select(editor.JointSelection(child))

	h.press("R", "Z")
	assert.Equal(t, editor.EditMode{Kind: editor.ModeAdjustRotateAxis, Joint: child, Axis: geom.AxisZ}, h.ed.Mode())
	h.press("Z")
	assert.Equal(t, editor.EditMode{Kind: editor.ModeAdjustRotate, Joint: child}, h.ed.Mode())
	h.press("R")
	assert.Equal(t, editor.EditMode{}, h.ed.Mode())
}

func TestExtendIgnoresAxisChange(t *testing.T) {
	st, _, child, _ := arm(t)
	h := newHarness(t, st)
	h.ed.Select(editor.JointSelection(child))
	h.press("E", "X")
	assert.Equal(t, editor.EditMode{Kind: editor.ModeAdjustExtend, Joint: child}, h.ed.Mode())
}

func TestAxisChangeCachesPosition(t *testing.T) {
	st, root := lone(t)
	h := newHarness(t, st)
	h.ed.Select(editor.JointSelection(root))

	h.press("G", "X")
	h.drag(100, 0)
	moved := h.pos(root)
	require.InDelta(t, 2, moved.X(), 1e-3)

	h.press("Y")
	h.drag(0, -50)
	h.press("Escape")
	assert.Equal(t, moved, h.pos(root), "cancel returns to where the axis changed")
}

// ---------------------------------------------------------------------------
// Save
// ---------------------------------------------------------------------------

func TestSaveAction(t *testing.T) {
	st, _ := lone(t)
	var saved []*structure.Structure
	h := newHarness(t, st, editor.WithSaver(func(s *structure.Structure) error {
		saved = append(saved, s)
		return nil
	}))
	h.press("S")
	require.Len(t, saved, 1)
	assert.Same(t, st, saved[0])
}

func TestSaveFailureIsLogged(t *testing.T) {
	st, _ := lone(t)
	core, logs := observer.New(zapcore.InfoLevel)
	h := newHarness(t, st,
		editor.WithLogger(zap.New(core)),
		editor.WithSaver(func(*structure.Structure) error { return errors.New("disk full") }))
	h.press("S")
	entries := logs.FilterMessage("save structure").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

// ---------------------------------------------------------------------------
// Controls
// ---------------------------------------------------------------------------

func TestControls(t *testing.T) {
	keys := config.Default().Keys
	keys.Grab = "T"
	c := editor.NewControls(keys)

	got := c.Actions([]string{"T", "Q", "X", "T", "MouseLeft"})
	assert.Equal(t, []editor.Action{
		editor.Act(editor.ActionAdjustGrab),
		editor.AxisChange(geom.AxisX),
		editor.Act(editor.ActionConfirm),
	}, got)

	k, ok := c.Key(editor.Act(editor.ActionAdjustGrab))
	assert.True(t, ok)
	assert.Equal(t, "T", k)
	assert.Equal(t, "axis_z", editor.AxisChange(geom.AxisZ).String())
}

func TestCustomControlsDriveEditor(t *testing.T) {
	st, root := lone(t)
	keys := config.Default().Keys
	keys.Grab = "T"
	h := newHarness(t, st, editor.WithControls(editor.NewControls(keys)))
	h.ed.Select(editor.JointSelection(root))

	h.press("G")
	assert.Equal(t, editor.EditMode{}, h.ed.Mode())
	h.press("T")
	assert.Equal(t, editor.ModeAdjustGrab, h.ed.Mode().Kind)
}
