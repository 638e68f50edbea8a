package persist_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chazu/armature/pkg/persist"
	"github.com/chazu/armature/pkg/structure"
)

// bent builds root -> a -> b with one muscle across the two connectors.
func bent(t *testing.T) (*structure.Structure, structure.EdgeID, structure.EdgeID) {
	t.Helper()
	st := structure.New()
	root := st.AddNode(mgl32.Vec3{})
	a, e1, err := st.Extrude(root, mgl32.Vec3{0, 2, 0})
	require.NoError(t, err)
	_, e2, err := st.Extrude(a, mgl32.Vec3{2, 2, 0})
	require.NoError(t, err)
	_, err = st.AddMuscle(e1, e2, 0)
	require.NoError(t, err)
	return st, e1, e2
}

func intp(i int) *int { return &i }

func TestEncodeRenumbersDensely(t *testing.T) {
	st, _, _ := bent(t)
	spare := st.AddNode(mgl32.Vec3{9, 9, 9})
	require.True(t, st.RemoveNode(spare))

	want := persist.Document{
		Nodes: []persist.NodeRecord{
			{Pos: [3]float32{0, 0, 0}},
			{Pos: [3]float32{0, 2, 0}, Parent: intp(0)},
			{Pos: [3]float32{2, 2, 0}, Parent: intp(1)},
		},
		Edges: []persist.EdgeRecord{
			{Endpoints: [2]int{1, 0}, MuscleData: []int{1}},
			{Endpoints: [2]int{2, 1}, MuscleData: []int{0}},
		},
	}
	if diff := cmp.Diff(want, persist.Encode(st)); diff != "" {
		t.Errorf("Encode mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveFormat(t *testing.T) {
	st, _, _ := bent(t)
	var buf bytes.Buffer
	require.NoError(t, persist.Save(&buf, st))
	out := buf.String()

	assert.Contains(t, out, "pos: [0, 2, 0]")
	assert.Contains(t, out, "parent: 1")
	assert.Contains(t, out, "endpoints: [1, 0]")
	assert.Contains(t, out, "muscle_data: [1]")
	assert.NotContains(t, out, "handle")
	assert.NotContains(t, out, "muscles:")
}

func TestRoundTrip(t *testing.T) {
	st, _, _ := bent(t)
	var buf bytes.Buffer
	require.NoError(t, persist.Save(&buf, st))

	loaded, err := persist.Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.NodeCount())
	assert.Equal(t, 2, loaded.EdgeCount())
	assert.Equal(t, 1, loaded.MuscleCount())
	assert.True(t, loaded.ValidateAll().OK())

	edges := loaded.EdgeIDs()
	require.Len(t, edges, 2)
	m, ok := loaded.MuscleBetween(edges[0], edges[1])
	require.True(t, ok)
	back, ok := loaded.MuscleBetween(edges[1], edges[0])
	require.True(t, ok)
	assert.Equal(t, m, back, "both anchors share one muscle")

	if diff := cmp.Diff(persist.Encode(st), persist.Encode(loaded)); diff != "" {
		t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestLoadPairsOneSidedMuscle(t *testing.T) {
	src := `
nodes:
  - pos: [0, 0, 0]
  - pos: [0, 2, 0]
    parent: 0
  - pos: [2, 2, 0]
    parent: 1
edges:
  - endpoints: [1, 0]
    muscle_data: [1]
  - endpoints: [2, 1]
`
	st, err := persist.Load(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, 1, st.MuscleCount())
	assert.True(t, st.ValidateAll().OK())
}

func TestLoadEmpty(t *testing.T) {
	st, err := persist.Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, st.NodeCount())
}

func TestLoadCorrupt(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		cause error
	}{
		{"short position", "nodes:\n  - pos: [0, 0]\n", nil},
		{"unknown field", "nodes:\n  - pos: [0, 0, 0]\n    handle: 4\n", nil},
		{"parent out of range", "nodes:\n  - pos: [0, 0, 0]\n    parent: 3\n", nil},
		{"endpoint out of range", "nodes:\n  - pos: [0, 0, 0]\nedges:\n  - endpoints: [0, 1]\n", nil},
		{"muscle partner out of range",
			"nodes:\n  - pos: [0, 0, 0]\n  - pos: [0, 2, 0]\nedges:\n  - endpoints: [1, 0]\n    muscle_data: [5]\n", nil},
		{"self loop", "nodes:\n  - pos: [0, 0, 0]\nedges:\n  - endpoints: [0, 0]\n", structure.ErrSelfLoop},
		{"duplicate edge",
			"nodes:\n  - pos: [0, 0, 0]\n  - pos: [0, 2, 0]\nedges:\n  - endpoints: [1, 0]\n  - endpoints: [0, 1]\n",
			structure.ErrDuplicateEdge},
		{"parent without connector",
			"nodes:\n  - pos: [0, 0, 0]\n  - pos: [0, 2, 0]\n    parent: 0\n", structure.ErrNoEdge},
		{"parent cycle",
			"nodes:\n  - pos: [0, 0, 0]\n    parent: 1\n  - pos: [0, 2, 0]\n    parent: 0\nedges:\n  - endpoints: [1, 0]\n",
			structure.ErrParentCycle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := persist.Load(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.ErrorIs(t, err, persist.ErrCorrupt)
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
		})
	}
}

func TestFileRoundTrip(t *testing.T) {
	st, _, _ := bent(t)
	path := filepath.Join(t.TempDir(), "creature.yaml")
	require.NoError(t, persist.SaveFile(path, st))

	loaded, err := persist.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.MuscleCount())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLoadFileMissing(t *testing.T) {
	_, err := persist.LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, persist.ErrNoStructure)
	assert.False(t, errors.Is(err, persist.ErrCorrupt))
}

func TestLoadFileCorruptNamesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nodes: 7\n"), 0o644))
	_, err := persist.LoadFile(path)
	assert.ErrorIs(t, err, persist.ErrCorrupt)
	assert.Contains(t, err.Error(), path)
}

func TestWatcher(t *testing.T) {
	st, _, _ := bent(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "creature.yaml")
	require.NoError(t, persist.SaveFile(path, st))

	w, err := persist.Watch(context.Background(), path,
		persist.WithDebounce(50*time.Millisecond),
		persist.WithWatchLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer w.Close()

	quiet := func(msg string) {
		t.Helper()
		select {
		case <-w.Changes():
			t.Fatal(msg)
		case <-time.After(300 * time.Millisecond):
		}
	}

	w.Expect()
	require.NoError(t, persist.SaveFile(path, st))
	quiet("own write reported")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("nodes: []\n"), 0o644))
	quiet("unrelated file reported")

	require.NoError(t, os.WriteFile(path, []byte("nodes: []\n"), 0o644))
	select {
	case <-w.Changes():
	case <-time.After(5 * time.Second):
		t.Fatal("external write not reported")
	}

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestWatcherUnexpect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "creature.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nodes: []\n"), 0o644))

	w, err := persist.Watch(context.Background(), path,
		persist.WithDebounce(50*time.Millisecond),
		persist.WithWatchLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer w.Close()

	// A save into a missing directory fails before touching the file.
	w.Expect()
	require.Error(t, persist.SaveFile(filepath.Join(dir, "missing", "creature.yaml"), structure.New()))
	w.Unexpect()
	w.Unexpect()

	require.NoError(t, os.WriteFile(path, []byte("nodes: []\n"), 0o644))
	select {
	case <-w.Changes():
	case <-time.After(5 * time.Second):
		t.Fatal("external write after a failed save not reported")
	}
}

func TestWatcherStopsWithContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creature.yaml")
	ctx, cancel := context.WithCancel(context.Background())
	w, err := persist.Watch(ctx, path)
	require.NoError(t, err)
	cancel()

	done := make(chan struct{})
	go func() {
		w.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
