package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chazu/armature/pkg/editor"
	"github.com/chazu/armature/pkg/engine"
	"github.com/chazu/armature/pkg/kernel"
	"github.com/chazu/armature/pkg/kernel/sdfx"
	"github.com/chazu/armature/pkg/persist"
	"github.com/chazu/armature/pkg/scene"
	"github.com/chazu/armature/pkg/structure"
	"github.com/chazu/armature/pkg/tessellate"
)

// ScriptExt marks skeleton scripts; anything else is read as a saved file.
const ScriptExt = ".armature"

var errInvalid = errors.New("structure is invalid")

// =============================================================================
// BUILD COMMAND - script to skeleton file
// =============================================================================

var buildOut string

var buildCmd = &cobra.Command{
	Use:   "build <script>",
	Short: "Evaluate a script and save the skeleton it builds",
	Args:  cobra.ExactArgs(1),
	RunE:  runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	st, err := evalScript(cmd, args[0])
	if err != nil {
		return err
	}
	out := buildOut
	if out == "" {
		out = cfg.Files.Structure
	}
	if err := persist.SaveFile(out, st); err != nil {
		return err
	}
	logger.Info("skeleton built", zap.String("script", args[0]), zap.String("output", out))
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %s\n", out, summary(st))
	return nil
}

// =============================================================================
// VALIDATE COMMAND - check invariants of saved skeletons
// =============================================================================

var validateCmd = &cobra.Command{
	Use:   "validate <file...>",
	Short: "Check skeleton files and scripts for broken invariants",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		st, err := open(cmd, path)
		if err != nil {
			fmt.Fprintf(w, "ERROR in %s: %v\n", path, err)
			failed++
			continue
		}
		// Materialize first so a file whose elements cannot all be drawn
		// is reported.
		editor.New(st, scene.NewMemory(logger.Named("scene")), editor.WithLogger(logger.Named("editor")))
		res := st.ValidateAll()
		for _, e := range res.Errors {
			fmt.Fprintf(w, "%s: %v\n", path, e)
		}
		for _, e := range res.Warnings {
			fmt.Fprintf(w, "%s: %v\n", path, e)
		}
		if !res.OK() {
			failed++
			continue
		}
		fmt.Fprintf(w, "OK: %s\n", path)
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d files", errInvalid, failed, len(args))
	}
	return nil
}

// =============================================================================
// MESH COMMAND - tessellate for other tools
// =============================================================================

var (
	meshOut    string
	meshMerged bool
)

var meshCmd = &cobra.Command{
	Use:   "mesh <file>",
	Short: "Tessellate a skeleton and write its meshes as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runMesh,
}

// meshJSON is one exported mesh.
type meshJSON struct {
	Label    string     `json:"label"`
	Kind     string     `json:"kind,omitempty"`
	Color    [4]float32 `json:"color"`
	Vertices []float32  `json:"vertices"`
	Normals  []float32  `json:"normals"`
	Indices  []uint32   `json:"indices"`
}

func runMesh(cmd *cobra.Command, args []string) error {
	st, err := open(cmd, args[0])
	if err != nil {
		return err
	}
	mem := scene.NewMemory(logger.Named("scene"))
	editor.New(st, mem, editor.WithLogger(logger.Named("editor")), editor.WithConfig(cfg.Editor))
	tess := tessellate.New(sdfx.New(), cfg.Editor, logger.Named("tessellate"))

	var out []meshJSON
	if meshMerged {
		m, err := tess.Merged(mem.Objects())
		if err != nil {
			return err
		}
		out = append(out, toJSON(m, "", scene.Color(scene.KindConnector, scene.HighlightNone)))
	} else {
		parts, err := tess.Scene(mem)
		if err != nil {
			return err
		}
		out = make([]meshJSON, 0, len(parts))
		for _, p := range parts {
			out = append(out, toJSON(p.Mesh, p.Kind.String(), scene.Color(p.Kind, p.Highlight)))
		}
	}

	var w io.Writer = cmd.OutOrStdout()
	if meshOut != "" {
		f, err := os.Create(meshOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("write meshes: %w", err)
	}
	logger.Info("meshes exported", zap.Int("meshes", len(out)), zap.Bool("merged", meshMerged))
	return nil
}

func toJSON(m *kernel.Mesh, kind string, color [4]float32) meshJSON {
	j := meshJSON{
		Label:    m.Label,
		Kind:     kind,
		Color:    color,
		Vertices: m.Vertices,
		Normals:  m.Normals,
		Indices:  m.Indices,
	}
	if j.Vertices == nil {
		j.Vertices = []float32{}
	}
	if j.Normals == nil {
		j.Normals = []float32{}
	}
	if j.Indices == nil {
		j.Indices = []uint32{}
	}
	return j
}

// =============================================================================
// INFO COMMAND - summarize a skeleton
// =============================================================================

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Print the joints, connectors and muscles of a skeleton",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	st, err := open(cmd, args[0])
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s: %s\n", args[0], summary(st))
	for _, n := range st.NodeIDs() {
		pos, _ := st.Position(n)
		if p, ok := st.NodeParent(n); ok {
			fmt.Fprintf(w, "  joint %s at (%g, %g, %g) parent %s\n", n, pos.X(), pos.Y(), pos.Z(), p)
		} else {
			fmt.Fprintf(w, "  joint %s at (%g, %g, %g) root\n", n, pos.X(), pos.Y(), pos.Z())
		}
	}
	for _, m := range st.MuscleIDs() {
		mu, _ := st.Muscle(m)
		fmt.Fprintf(w, "  muscle %s between %s and %s\n", m, mu.Anchor1, mu.Anchor2)
	}
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

func summary(st *structure.Structure) string {
	return fmt.Sprintf("%d joints, %d connectors, %d muscles, %d roots",
		st.NodeCount(), st.EdgeCount(), st.MuscleCount(), len(st.Roots()))
}

// open reads a skeleton file or evaluates a script, by extension.
func open(cmd *cobra.Command, path string) (*structure.Structure, error) {
	if strings.EqualFold(filepath.Ext(path), ScriptExt) {
		return evalScript(cmd, path)
	}
	return persist.LoadFile(path, structure.WithLogger(logger.Named("structure")))
}

func evalScript(cmd *cobra.Command, path string) (*structure.Structure, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	res := engine.NewEngine(engine.WithLogger(logger.Named("engine"))).Run(string(src))
	for _, w := range res.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: warning: %s\n", path, w.Message)
	}
	if !res.OK() {
		for _, e := range res.Errors {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s:%d:%d: %s\n", path, e.Line, e.Col, e.Message)
		}
		return nil, fmt.Errorf("%s: %d script errors", path, len(res.Errors))
	}
	return res.Structure, nil
}
