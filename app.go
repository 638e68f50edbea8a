package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	wruntime "github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"github.com/chazu/armature/pkg/config"
	"github.com/chazu/armature/pkg/editor"
	"github.com/chazu/armature/pkg/engine"
	"github.com/chazu/armature/pkg/geom"
	"github.com/chazu/armature/pkg/kernel/sdfx"
	"github.com/chazu/armature/pkg/persist"
	"github.com/chazu/armature/pkg/scene"
	"github.com/chazu/armature/pkg/structure"
	"github.com/chazu/armature/pkg/tessellate"
)

// EventReloaded is emitted to the frontend after the structure file changed
// on disk and was loaded again.
const EventReloaded = "structure:reloaded"

// App is the Wails backend. It exposes methods to the frontend via bindings.
// Bindings run on arbitrary goroutines, so every method takes the lock.
type App struct {
	ctx  context.Context
	cfg  config.Config
	log  *zap.Logger
	path string

	engine *engine.Engine
	tess   *tessellate.Tessellator

	mu      sync.Mutex
	mem     *scene.Memory
	ed      *editor.Editor
	cam     geom.OrbitCamera
	cursor  hostCursor
	watcher *persist.Watcher
	emit    func(event string, data ...interface{})
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices []float32  `json:"vertices"`
	Normals  []float32  `json:"normals"`
	Indices  []uint32   `json:"indices"`
	Label    string     `json:"label"`
	Kind     string     `json:"kind"`
	Color    [4]float32 `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result returned to the frontend.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// FrameInput is one frame of frontend input.
type FrameInput struct {
	Pressed   []string `json:"pressed"`
	DX        float32  `json:"dx"`
	DY        float32  `json:"dy"`
	X         float32  `json:"x"`
	Y         float32  `json:"y"`
	HasCursor bool     `json:"hasCursor"`
}

// TickResult reports the editor state after a frame.
type TickResult struct {
	Mode      string      `json:"mode"`
	Selection string      `json:"selection"`
	Version   uint64      `json:"version"`
	Confined  bool        `json:"confined"`
	WarpTo    *[2]float32 `json:"warpTo,omitempty"`
}

// LoadResult reports the outcome of loading the structure file.
type LoadResult struct {
	Path    string `json:"path"`
	Loaded  bool   `json:"loaded"`
	Joints  int    `json:"joints"`
	Message string `json:"message,omitempty"`
}

// hostCursor records what the editor asked of the mouse cursor; the
// frontend applies it after each tick.
type hostCursor struct {
	warp     *mgl32.Vec2
	confined bool
}

func (c *hostCursor) SetPosition(p mgl32.Vec2) { c.warp = &p }
func (c *hostCursor) SetConfined(on bool) { c.confined = on }

// NewApp creates an App editing cfg.Files.Structure with an empty session.
// Call Load to read the file.
func NewApp(cfg config.Config, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{
		cfg:    cfg,
		log:    log,
		path:   cfg.Files.Structure,
		engine: engine.NewEngine(engine.WithLogger(log.Named("engine"))),
		tess:   tessellate.New(sdfx.New(), cfg.Editor, log.Named("tessellate")),
		mem:    scene.NewMemory(log.Named("scene")),
		cam:    geom.OrbitCamera{Radius: 20, Pitch: 0.3, Width: 1024, Height: 768},
		emit:   func(string, ...interface{}) {},
	}
	a.ed = editor.New(nil, a.mem,
		editor.WithLogger(log.Named("editor")),
		editor.WithConfig(cfg.Editor),
		editor.WithControls(editor.NewControls(cfg.Keys)),
		editor.WithCursor(&a.cursor),
		editor.WithSaver(a.save),
	)
	return a
}

// startup is called by Wails on app startup. It loads the structure file and
// starts watching it when configured to.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.mu.Lock()
	a.emit = func(event string, data ...interface{}) { wruntime.EventsEmit(ctx, event, data...) }
	a.mu.Unlock()

	res := a.Load()
	a.log.Info("startup", zap.String("path", res.Path), zap.Bool("loaded", res.Loaded))
	if a.cfg.Files.Watch {
		if err := a.watch(ctx); err != nil {
			a.log.Error("cannot watch structure file", zap.Error(err))
		}
	}
}

// shutdown is called by Wails when the window closes.
func (a *App) shutdown(ctx context.Context) {
	a.mu.Lock()
	w := a.watcher
	a.watcher = nil
	a.mu.Unlock()
	if w != nil {
		w.Close()
	}
}

// watch reloads the structure whenever the file changes outside the app.
func (a *App) watch(ctx context.Context) error {
	w, err := persist.Watch(ctx, a.path, persist.WithWatchLogger(a.log.Named("watch")))
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.watcher = w
	a.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-w.Changes():
				if !ok {
					return
				}
				res := a.Load()
				a.mu.Lock()
				emit := a.emit
				a.mu.Unlock()
				emit(EventReloaded, res)
			}
		}
	}()
	return nil
}

// save is the editor's Saver. The watcher is told to expect the write so it
// does not trigger a reload. Callers hold a.mu, which guards a.watcher.
func (a *App) save(st *structure.Structure) error {
	w := a.watcher
	if w != nil {
		w.Expect()
	}
	if err := persist.SaveFile(a.path, st); err != nil {
		// Nothing reached the file, so the next change is not ours.
		if w != nil {
			w.Unexpect()
		}
		return err
	}
	return nil
}

// Load reads the structure file into a fresh session. A missing file is a
// normal empty session; a corrupt one leaves the current session untouched.
func (a *App) Load() LoadResult {
	res := LoadResult{Path: a.path}
	st, err := persist.LoadFile(a.path, structure.WithLogger(a.log.Named("structure")))
	switch {
	case errors.Is(err, persist.ErrNoStructure):
		res.Message = "no structure loaded"
		st = nil
	case err != nil:
		a.log.Error("load failed", zap.String("path", a.path), zap.Error(err))
		res.Message = err.Error()
		return res
	default:
		res.Loaded = true
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.ed.Replace(st)
	res.Joints = a.ed.Structure().NodeCount()
	return res
}

// Save writes the current structure. It returns an empty string on success
// and the error message otherwise.
func (a *App) Save() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.save(a.ed.Structure()); err != nil {
		a.log.Error("save failed", zap.String("path", a.path), zap.Error(err))
		return err.Error()
	}
	return ""
}

// Tick feeds one frame of input to the editor.
func (a *App) Tick(in FrameInput) TickResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cursor.warp = nil
	a.ed.Tick(editor.Frame{
		Pressed:    in.Pressed,
		MouseDelta: mgl32.Vec2{in.DX, in.DY},
		Cursor:     mgl32.Vec2{in.X, in.Y},
		HasCursor:  in.HasCursor,
		Camera:     a.cam.Perspective(),
	})

	res := TickResult{
		Mode:      a.ed.Mode().String(),
		Selection: a.ed.Selection().String(),
		Version:   a.mem.Version(),
		Confined:  a.cursor.confined,
	}
	if w := a.cursor.warp; w != nil {
		res.WarpTo = &[2]float32{w.X(), w.Y()}
	}
	return res
}

// Orbit turns the camera around its focus by the given angles in radians.
func (a *App) Orbit(dyaw, dpitch float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cam.Orbit(dyaw, dpitch)
}

// Zoom scales the camera distance.
func (a *App) Zoom(factor float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cam.Zoom(factor)
}

// Resize tells the camera the viewport size in pixels.
func (a *App) Resize(width, height int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cam.Width, a.cam.Height = width, height
}

// SelectHandle selects the visual the frontend picked itself.
func (a *App) SelectHandle(h uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ed.SelectHandle(structure.Handle(h))
}

// Selection describes the current selection.
func (a *App) Selection() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ed.Selection().String()
}

// Meshes tessellates every visual for the frontend.
func (a *App) Meshes() []MeshData {
	a.mu.Lock()
	objs := a.mem.Objects()
	a.mu.Unlock()

	out, err := a.meshes(objs)
	if err != nil {
		a.log.Error("tessellation failed", zap.Error(err))
		return []MeshData{}
	}
	return out
}

func (a *App) meshes(objs []scene.Object) ([]MeshData, error) {
	parts, err := a.tess.Objects(objs)
	if err != nil {
		return nil, err
	}
	out := make([]MeshData, 0, len(parts))
	for _, p := range parts {
		out = append(out, MeshData{
			Vertices: p.Mesh.Vertices,
			Normals:  p.Mesh.Normals,
			Indices:  p.Mesh.Indices,
			Label:    p.Mesh.Label,
			Kind:     p.Kind.String(),
			Color:    scene.Color(p.Kind, p.Highlight),
		})
	}
	return out, nil
}

// Evaluate runs a structure script. On success the script's structure
// replaces the current session and its meshes are returned.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	res := a.engine.Run(source)
	for _, e := range res.Errors {
		result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
	}
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.Message})
	}
	if !res.OK() {
		return result
	}

	a.mu.Lock()
	a.ed.Replace(res.Structure)
	objs := a.mem.Objects()
	a.mu.Unlock()

	meshes, err := a.meshes(objs)
	if err != nil {
		a.log.Error("tessellation failed", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{
			Message: fmt.Sprintf("tessellation failed: %v", err),
		})
		return result
	}
	result.Meshes = meshes
	return result
}
