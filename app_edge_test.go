package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chazu/armature/pkg/editor"
	"github.com/chazu/armature/pkg/engine"
	"github.com/chazu/armature/pkg/persist"
	"github.com/chazu/armature/pkg/scene"
)

// ---------------------------------------------------------------------------
// 1. Empty editor: empty string -> 0 meshes, 0 errors.
//    (TestE2EEmptySource already exists; this verifies additional invariants.)
// ---------------------------------------------------------------------------

func TestE2EEmptySourceExtended(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate("")

	if len(result.Errors) != 0 {
		t.Errorf("expected 0 errors for empty source, got %d", len(result.Errors))
	}
	if len(result.Warnings) != 0 {
		t.Errorf("expected 0 warnings for empty source, got %d", len(result.Warnings))
	}
	// Ensure slices are non-nil (JSON should serialize as [] not null).
	if result.Meshes == nil {
		t.Error("Meshes should be non-nil empty slice, got nil")
	}
	if result.Errors == nil {
		t.Error("Errors should be non-nil empty slice, got nil")
	}
	if result.Warnings == nil {
		t.Error("Warnings should be non-nil empty slice, got nil")
	}
	if m := app.Meshes(); m == nil || len(m) != 0 {
		t.Errorf("Meshes() on an empty session = %v, want empty non-nil", m)
	}
}

// ---------------------------------------------------------------------------
// 2. Syntax error on a later line carries line info.
// ---------------------------------------------------------------------------

func TestE2ESyntaxErrorWithLineInfo(t *testing.T) {
	app := newTestApp(t)

	// Put valid code on line 1, broken code on line 2 so line info is meaningful.
	result := app.Evaluate("(+ 1 2)\n(joint 0 1 0")

	if len(result.Errors) == 0 {
		t.Fatal("expected at least one eval error for unmatched parens")
	}
	if result.Errors[0].Message == "" {
		t.Error("syntax error should have a non-empty message")
	}
}

// ---------------------------------------------------------------------------
// 3. Builtin misuse surfaces as an eval error, not a panic.
// ---------------------------------------------------------------------------

func TestE2EBuiltinMisuse(t *testing.T) {
	app := newTestApp(t)
	for _, src := range []string{
		`(joint 1 2)`,
		`(def a (joint 0 0 0)) (link a a)`,
		`(parent-connector (joint 0 0 0))`,
		`(undefined-builtin 1)`,
	} {
		result := app.Evaluate(src)
		if len(result.Errors) == 0 {
			t.Errorf("%s: expected an eval error", src)
		}
		if len(result.Meshes) != 0 {
			t.Errorf("%s: expected 0 meshes, got %d", src, len(result.Meshes))
		}
	}
}

// ---------------------------------------------------------------------------
// 4. Loading: missing file starts empty, corrupt file keeps the session.
// ---------------------------------------------------------------------------

func TestE2ELoadMissingFile(t *testing.T) {
	app := newTestApp(t)
	res := app.Load()

	if res.Loaded {
		t.Error("missing file should not report loaded")
	}
	if res.Message == "" {
		t.Error("missing file should explain itself")
	}
	if res.Joints != 0 {
		t.Errorf("expected an empty session, got %d joints", res.Joints)
	}
}

func TestE2ELoadCorruptKeepsSession(t *testing.T) {
	app := newTestApp(t)
	if res := app.Evaluate(`(joint 0 0 0)`); len(res.Errors) > 0 {
		t.Fatalf("setup failed: %v", res.Errors)
	}
	if err := os.WriteFile(app.path, []byte("nodes:\n  - pos: [1, 2]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := app.Load()
	if res.Loaded {
		t.Error("corrupt file should not report loaded")
	}
	if !strings.Contains(res.Message, app.path) {
		t.Errorf("error should name the file, got %q", res.Message)
	}
	if got := app.ed.Structure().NodeCount(); got != 1 {
		t.Errorf("session should survive a corrupt load, got %d joints", got)
	}
}

// ---------------------------------------------------------------------------
// 5. Selection through the frontend: pick by handle and by cursor.
// ---------------------------------------------------------------------------

func firstHandle(t *testing.T, app *App, kind string) uint64 {
	t.Helper()
	for _, m := range app.Meshes() {
		if m.Kind != kind {
			continue
		}
		var h uint64
		if _, err := fmt.Sscanf(m.Label, kind+"#%d", &h); err != nil {
			t.Fatalf("cannot parse handle from %q: %v", m.Label, err)
		}
		return h
	}
	t.Fatalf("no %s mesh", kind)
	return 0
}

func TestE2ESelectHandle(t *testing.T) {
	app := newTestApp(t)
	if res := app.Evaluate(`(def a (joint 0 0 0)) (joint 0 3 0 :parent a)`); len(res.Errors) > 0 {
		t.Fatalf("eval errors: %v", res.Errors)
	}

	if !app.SelectHandle(firstHandle(t, app, "connector")) {
		t.Fatal("connector handle not selectable")
	}
	if sel := app.Selection(); !strings.HasPrefix(sel, "connector ") {
		t.Errorf("selection = %q, want a connector", sel)
	}
	if app.SelectHandle(9999) {
		t.Error("unknown handle should not select")
	}

	// Only the connector is drawn highlighted.
	for _, m := range app.Meshes() {
		lit := m.Color != scene.Color(scene.KindConnector, scene.HighlightNone) &&
			m.Color != scene.Color(scene.KindJoint, scene.HighlightNone)
		if lit != (m.Kind == "connector") {
			t.Errorf("mesh %q highlighted = %v", m.Label, lit)
		}
	}
}

func TestE2ETickPicksUnderCursor(t *testing.T) {
	app := newTestApp(t)
	if res := app.Evaluate(`(joint 0 4 0)`); len(res.Errors) > 0 {
		t.Fatalf("eval errors: %v", res.Errors)
	}
	app.Resize(800, 600)

	app.mu.Lock()
	st := app.ed.Structure()
	pos, _ := st.Position(st.NodeIDs()[0])
	at, ok := app.cam.Perspective().WorldToViewport(pos)
	app.mu.Unlock()
	if !ok {
		t.Fatal("joint is off screen")
	}

	res := app.Tick(FrameInput{Pressed: []string{"MouseLeft"}, X: at.X(), Y: at.Y(), HasCursor: true})
	if !strings.HasPrefix(res.Selection, "joint ") {
		t.Errorf("selection after click = %q, want a joint", res.Selection)
	}

	// Clicking empty space clears it.
	res = app.Tick(FrameInput{Pressed: []string{"MouseLeft"}, X: 1, Y: 1, HasCursor: true})
	if res.Selection != "none" {
		t.Errorf("selection after clicking empty space = %q, want none", res.Selection)
	}
}

// ---------------------------------------------------------------------------
// 6. Adjust modes report cursor confinement to the frontend.
// ---------------------------------------------------------------------------

func TestE2EExtendConfinesCursor(t *testing.T) {
	app := newTestApp(t)
	if res := app.Evaluate(`(def a (joint 0 0 0)) (joint 0 3 0 :parent a)`); len(res.Errors) > 0 {
		t.Fatalf("eval errors: %v", res.Errors)
	}
	// Extend needs a parent, so take the child.
	app.ed.Select(editor.JointSelection(app.ed.Structure().NodeIDs()[1]))

	res := app.Tick(FrameInput{Pressed: []string{app.cfg.Keys.Extend}})
	if !strings.HasPrefix(res.Mode, "adjust_extend") {
		t.Fatalf("mode = %q, want adjust_extend", res.Mode)
	}
	if !res.Confined {
		t.Error("extend should confine the cursor")
	}

	res = app.Tick(FrameInput{Pressed: []string{app.cfg.Keys.Cancel}})
	if res.Mode != "default" {
		t.Errorf("mode after cancel = %q, want default", res.Mode)
	}
	if res.Confined {
		t.Error("cancel should release the cursor")
	}
}

// ---------------------------------------------------------------------------
// 7. Camera bindings clamp and ignore nonsense.
// ---------------------------------------------------------------------------

func TestE2ECameraBindings(t *testing.T) {
	app := newTestApp(t)
	app.Zoom(0)
	app.Zoom(-3)
	if app.cam.Radius != 20 {
		t.Errorf("non-positive zoom changed radius to %v", app.cam.Radius)
	}
	app.Zoom(0.5)
	if app.cam.Radius != 10 {
		t.Errorf("radius = %v, want 10", app.cam.Radius)
	}
	app.Orbit(0, 100)
	if app.cam.Pitch >= 1.571 {
		t.Errorf("pitch %v reached the pole", app.cam.Pitch)
	}
}

// ---------------------------------------------------------------------------
// 8. File watching: own saves are quiet, external edits reload.
// ---------------------------------------------------------------------------

func TestE2EWatchReloadsExternalEdits(t *testing.T) {
	app := newTestApp(t)
	events := make(chan LoadResult, 4)
	app.emit = func(event string, data ...interface{}) {
		if event != EventReloaded || len(data) != 1 {
			t.Errorf("unexpected event %q %v", event, data)
			return
		}
		events <- data[0].(LoadResult)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := app.watch(ctx); err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer app.shutdown(ctx)

	if res := app.Evaluate(`(joint 0 0 0)`); len(res.Errors) > 0 {
		t.Fatalf("eval errors: %v", res.Errors)
	}
	if msg := app.Save(); msg != "" {
		t.Fatalf("save failed: %s", msg)
	}
	select {
	case res := <-events:
		t.Fatalf("own save triggered a reload: %+v", res)
	case <-time.After(4 * persist.DefaultDebounce):
	}

	st, errs, err := engine.NewEngine().Evaluate(`(def a (joint 0 0 0)) (def b (joint 0 2 0 :parent a)) (joint 2 2 0 :parent b)`)
	if err != nil || len(errs) > 0 {
		t.Fatalf("build external structure: %v %v", err, errs)
	}
	if err := persist.SaveFile(app.path, st); err != nil {
		t.Fatal(err)
	}

	select {
	case res := <-events:
		if !res.Loaded || res.Joints != 3 {
			t.Errorf("reload result = %+v, want 3 joints loaded", res)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("external edit was not reloaded")
	}
	if got := len(app.Meshes()); got != 5 {
		t.Errorf("reloaded session draws %d meshes, want 5", got)
	}
}

func TestE2EFailedSaveDoesNotHideExternalEdits(t *testing.T) {
	app := newTestApp(t)
	events := make(chan LoadResult, 4)
	app.emit = func(event string, data ...interface{}) {
		if event == EventReloaded && len(data) == 1 {
			events <- data[0].(LoadResult)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := app.watch(ctx); err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer app.shutdown(ctx)

	if res := app.Evaluate(`(joint 0 0 0)`); len(res.Errors) > 0 {
		t.Fatalf("eval errors: %v", res.Errors)
	}

	good := app.path
	app.mu.Lock()
	app.path = filepath.Join(t.TempDir(), "missing", "pgraph.yaml")
	app.mu.Unlock()
	if msg := app.Save(); msg == "" {
		t.Fatal("save into a missing directory succeeded")
	}
	app.mu.Lock()
	app.path = good
	app.mu.Unlock()

	if msg := app.Save(); msg != "" {
		t.Fatalf("save failed: %s", msg)
	}
	select {
	case res := <-events:
		t.Fatalf("own save triggered a reload: %+v", res)
	case <-time.After(4 * persist.DefaultDebounce):
	}

	st, errs, err := engine.NewEngine().Evaluate(`(def a (joint 0 0 0)) (joint 0 2 0 :parent a)`)
	if err != nil || len(errs) > 0 {
		t.Fatalf("build external structure: %v %v", err, errs)
	}
	if err := persist.SaveFile(good, st); err != nil {
		t.Fatal(err)
	}
	select {
	case res := <-events:
		if !res.Loaded || res.Joints != 2 {
			t.Errorf("reload result = %+v, want 2 joints loaded", res)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("external edit after a failed save was not reloaded")
	}
}
