package engine

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/armature/pkg/structure"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites script source into something zygomys accepts:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords never
//     collide with user variables.
//  2. kebab-case identifiers become snake_case (joint-at -> joint_at), since
//     zygomys reads a hyphen as subtraction.
//  3. ; line comments become // comments.
//
// String literals and comment bodies are left alone.
func preprocessSource(source string) string {
	out := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		switch c := b[i]; {
		case c == '"':
			j := i + 1
			for j < len(b) && b[j] != '"' {
				if b[j] == '\\' && j+1 < len(b) {
					j++
				}
				j++
			}
			if j < len(b) {
				j++
			}
			out = append(out, b[i:j]...)
			i = j
		case c == '`':
			j := i + 1
			for j < len(b) && b[j] != '`' {
				j++
			}
			if j < len(b) {
				j++
			}
			out = append(out, b[i:j]...)
			i = j
		case c == ';':
			out = append(out, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				out = append(out, b[i])
				i++
			}
		case c == ':' && i+1 < len(b) && b[i+1] == '=':
			out = append(out, ':', '=')
			i += 2
		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out = append(out, '"')
			out = append(out, kwPrefix...)
			out = append(out, b[i+1:j]...)
			out = append(out, '"')
			i = j
		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out = append(out, '_')
			i++
		default:
			out = append(out, c)
			i++
		}
	}
	return string(out)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Sexp wrappers for structure values
// ---------------------------------------------------------------------------

type sexpJoint struct {
	id structure.NodeID
}

func (j *sexpJoint) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(joint %s)", j.id)
}
func (j *sexpJoint) Type() *zygo.RegisteredType { return nil }

type sexpConnector struct {
	id structure.EdgeID
}

func (c *sexpConnector) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(connector %s)", c.id)
}
func (c *sexpConnector) Type() *zygo.RegisteredType { return nil }

type sexpMuscle struct {
	id structure.MuscleID
}

func (m *sexpMuscle) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(muscle %s)", m.id)
}
func (m *sexpMuscle) Type() *zygo.RegisteredType { return nil }

type sexpVec3 struct {
	vec mgl32.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X(), v.vec.Y(), v.vec.Z())
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW reports whether s is a preprocessed keyword and returns its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates keyword arguments from positional ones. A trailing
// keyword without a value maps to SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	res := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			res.positional = append(res.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			res.kw[name] = args[i+1]
			i++
		} else {
			res.kw[name] = zygo.SexpNull
		}
	}
	return res
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat32(s zygo.Sexp) (float32, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float32(v.Val), nil
	case *zygo.SexpFloat:
		return float32(v.Val), nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (mgl32.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return mgl32.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toJoint(s zygo.Sexp) (structure.NodeID, error) {
	if j, ok := s.(*sexpJoint); ok {
		return j.id, nil
	}
	return structure.NodeID{}, fmt.Errorf("expected joint, got %T (%s)", s, s.SexpString(nil))
}

func toConnector(s zygo.Sexp) (structure.EdgeID, error) {
	if c, ok := s.(*sexpConnector); ok {
		return c.id, nil
	}
	return structure.EdgeID{}, fmt.Errorf("expected connector, got %T (%s)", s, s.SexpString(nil))
}

// numbers3 reads three numeric arguments as a vector.
func numbers3(args []zygo.Sexp) (mgl32.Vec3, error) {
	if len(args) != 3 {
		return mgl32.Vec3{}, fmt.Errorf("requires exactly 3 numbers, got %d arguments", len(args))
	}
	var v mgl32.Vec3
	for i, a := range args {
		f, err := toFloat32(a)
		if err != nil {
			return mgl32.Vec3{}, fmt.Errorf("%c: %w", "xyz"[i], err)
		}
		v[i] = f
	}
	return v, nil
}

// pair reads exactly two arguments with conv.
func pair[T any](fn string, args []zygo.Sexp, conv func(zygo.Sexp) (T, error)) (T, T, error) {
	var zero T
	if len(args) != 2 {
		return zero, zero, fmt.Errorf("%s requires exactly 2 arguments, got %d", fn, len(args))
	}
	a, err := conv(args[0])
	if err != nil {
		return zero, zero, fmt.Errorf("%s: first: %w", fn, err)
	}
	b, err := conv(args[1])
	if err != nil {
		return zero, zero, fmt.Errorf("%s: second: %w", fn, err)
	}
	return a, b, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the structure DSL into env. Every builtin
// mutates st directly; a structure error aborts the script with the
// builtin's name in the message.
//
// Source must go through preprocessSource first so :keywords and kebab-case
// names match the registered forms.
func registerBuiltins(env *zygo.Zlisp, st *structure.Structure) {

	// addJoint places a joint at pos, extruding it from the :parent joint
	// when one is given.
	addJoint := func(fn string, pos mgl32.Vec3, kw map[string]zygo.Sexp) (zygo.Sexp, error) {
		v, ok := kw["parent"]
		if !ok {
			return &sexpJoint{id: st.AddNode(pos)}, nil
		}
		parent, err := toJoint(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: parent: %w", fn, err)
		}
		n, _, err := st.Extrude(parent, pos)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
		}
		return &sexpJoint{id: n}, nil
	}

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := numbers3(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: %w", err)
		}
		return &sexpVec3{vec: v}, nil
	})

	// -----------------------------------------------------------------------
	// (offset v (vec3 0 2 0))
	// -----------------------------------------------------------------------
	env.AddFunction("offset", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		a, b, err := pair("offset", args, toVec3)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpVec3{vec: a.Add(b)}, nil
	})

	// -----------------------------------------------------------------------
	// (joint 0 2 0 :parent root)
	// -----------------------------------------------------------------------
	env.AddFunction("joint", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		pos, err := numbers3(pa.positional)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("joint: %w", err)
		}
		return addJoint("joint", pos, pa.kw)
	})

	// -----------------------------------------------------------------------
	// (joint-at (vec3 0 2 0) :parent root)
	// -----------------------------------------------------------------------
	env.AddFunction("joint_at", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("joint-at requires a position, got %d arguments", len(pa.positional))
		}
		pos, err := toVec3(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("joint-at: %w", err)
		}
		return addJoint("joint-at", pos, pa.kw)
	})

	// -----------------------------------------------------------------------
	// (position j)
	// -----------------------------------------------------------------------
	env.AddFunction("position", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("position requires a joint")
		}
		n, err := toJoint(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("position: %w", err)
		}
		pos, ok := st.Position(n)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("position: %w", structure.ErrNodeMissing)
		}
		return &sexpVec3{vec: pos}, nil
	})

	// -----------------------------------------------------------------------
	// (connector a b): the connector joining a and b, added when missing.
	// -----------------------------------------------------------------------
	env.AddFunction("connector", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		a, b, err := pair("connector", args, toJoint)
		if err != nil {
			return zygo.SexpNull, err
		}
		if e, ok := st.FindEdge(a, b); ok {
			return &sexpConnector{id: e}, nil
		}
		e, err := st.AddEdge(a, b, structure.Connector{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("connector: %w", err)
		}
		return &sexpConnector{id: e}, nil
	})

	// -----------------------------------------------------------------------
	// (parent-connector j)
	// -----------------------------------------------------------------------
	env.AddFunction("parent_connector", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("parent-connector requires a joint")
		}
		n, err := toJoint(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("parent-connector: %w", err)
		}
		e, ok := st.ParentEdge(n)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("parent-connector: joint %s is a root", n)
		}
		return &sexpConnector{id: e}, nil
	})

	// -----------------------------------------------------------------------
	// (link child parent)
	// -----------------------------------------------------------------------
	env.AddFunction("link", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		child, parent, err := pair("link", args, toJoint)
		if err != nil {
			return zygo.SexpNull, err
		}
		e, _, err := st.Link(child, parent)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("link: %w", err)
		}
		return &sexpConnector{id: e}, nil
	})

	// -----------------------------------------------------------------------
	// (muscle c1 c2)
	// -----------------------------------------------------------------------
	env.AddFunction("muscle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		c1, c2, err := pair("muscle", args, toConnector)
		if err != nil {
			return zygo.SexpNull, err
		}
		m, err := st.AddMuscle(c1, c2, 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("muscle: %w", err)
		}
		return &sexpMuscle{id: m}, nil
	})
}
