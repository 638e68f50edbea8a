// Package tessellate turns scene visuals into triangle meshes using a
// geometry kernel. One mesh is produced per visual.
//
// Every visual of a kind shares one primitive: a sphere of the joint radius,
// or a cylinder spanning y in [-1, 1] with the connector or muscle radius.
// The primitive is tessellated once and then placed with the visual's
// transform, so dragging a joint never re-runs the kernel.
package tessellate

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/chazu/armature/pkg/config"
	"github.com/chazu/armature/pkg/geom"
	"github.com/chazu/armature/pkg/kernel"
	"github.com/chazu/armature/pkg/scene"
	"github.com/chazu/armature/pkg/structure"
)

// Part is the mesh of one visual, already placed in world space.
type Part struct {
	Handle    structure.Handle
	Kind      scene.Kind
	Highlight scene.Highlight
	Mesh      *kernel.Mesh
}

// Tessellator caches primitive meshes per visual kind. It is safe for
// concurrent use.
type Tessellator struct {
	k   kernel.Kernel
	cfg config.EditorConfig
	log *zap.Logger

	mu    sync.Mutex
	cache map[scene.Kind]*kernel.Mesh
}

// New returns a Tessellator drawing visuals with the radii in cfg. A nil
// logger disables logging.
func New(k kernel.Kernel, cfg config.EditorConfig, log *zap.Logger) *Tessellator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tessellator{k: k, cfg: cfg, log: log, cache: make(map[scene.Kind]*kernel.Mesh)}
}

// primitive returns the unplaced solid for kind.
func (t *Tessellator) primitive(kind scene.Kind) (kernel.Solid, error) {
	switch kind {
	case scene.KindJoint:
		return t.k.Sphere(float64(t.cfg.JointRadius)), nil
	case scene.KindConnector:
		return t.k.Cylinder(2, float64(t.cfg.ConnectorRadius)), nil
	case scene.KindMuscle:
		return t.k.Cylinder(2, float64(t.cfg.MuscleRadius)), nil
	}
	return nil, fmt.Errorf("tessellate: unknown visual kind %s", kind)
}

func (t *Tessellator) unit(kind scene.Kind) (*kernel.Mesh, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m, ok := t.cache[kind]; ok {
		return m, nil
	}
	s, err := t.primitive(kind)
	if err != nil {
		return nil, err
	}
	m, err := t.k.ToMesh(s)
	if err != nil {
		return nil, fmt.Errorf("tessellate: %s primitive: %w", kind, err)
	}
	t.cache[kind] = m
	t.log.Debug("primitive tessellated", zap.Stringer("kind", kind), zap.Int("triangles", m.TriangleCount()))
	return m, nil
}

// Objects returns one placed mesh per object, in the given order.
func (t *Tessellator) Objects(objs []scene.Object) ([]Part, error) {
	parts := make([]Part, 0, len(objs))
	for _, o := range objs {
		u, err := t.unit(o.Kind)
		if err != nil {
			return nil, err
		}
		m := place(u, o.Transform)
		m.Label = fmt.Sprintf("%s#%d", o.Kind, uint64(o.Handle))
		parts = append(parts, Part{Handle: o.Handle, Kind: o.Kind, Highlight: o.Highlight, Mesh: m})
	}
	return parts, nil
}

// Scene tessellates every visual in mem.
func (t *Tessellator) Scene(mem *scene.Memory) ([]Part, error) {
	return t.Objects(mem.Objects())
}

// place copies u into world space. Normals use the inverse transpose of the
// scale so stretched cylinders keep perpendicular side normals.
func place(u *kernel.Mesh, tr geom.Transform) *kernel.Mesh {
	m := &kernel.Mesh{
		Vertices: make([]float32, len(u.Vertices)),
		Normals:  make([]float32, len(u.Normals)),
		Indices:  append([]uint32(nil), u.Indices...),
	}
	inv := mgl32.Vec3{}
	for i := 0; i < 3; i++ {
		if tr.Scale[i] != 0 {
			inv[i] = 1 / tr.Scale[i]
		}
	}
	for i := 0; i+2 < len(u.Vertices); i += 3 {
		p := tr.Apply(mgl32.Vec3{u.Vertices[i], u.Vertices[i+1], u.Vertices[i+2]})
		copy(m.Vertices[i:i+3], p[:])
	}
	for i := 0; i+2 < len(u.Normals); i += 3 {
		n := mgl32.Vec3{u.Normals[i] * inv[0], u.Normals[i+1] * inv[1], u.Normals[i+2] * inv[2]}
		n = geom.NormalizeOrZero(tr.Rotation.Rotate(n))
		copy(m.Normals[i:i+3], n[:])
	}
	return m
}

// Merged builds every object into one solid and tessellates it as a single
// watertight mesh, for export. Unlike Objects it runs the kernel on the
// whole skeleton.
func (t *Tessellator) Merged(objs []scene.Object) (*kernel.Mesh, error) {
	var whole kernel.Solid
	for _, o := range objs {
		s, err := t.solid(o)
		if err != nil {
			return nil, err
		}
		if s == nil {
			continue
		}
		if whole == nil {
			whole = s
		} else {
			whole = t.k.Union(whole, s)
		}
	}
	if whole == nil {
		return &kernel.Mesh{Label: "skeleton"}, nil
	}
	m, err := t.k.ToMesh(whole)
	if err != nil {
		return nil, fmt.Errorf("tessellate: merged: %w", err)
	}
	m.Label = "skeleton"
	return m, nil
}

// solid places o's primitive with kernel operations. Degenerate visuals
// yield nil.
func (t *Tessellator) solid(o scene.Object) (kernel.Solid, error) {
	tr := o.Transform
	at := tr.Translation
	var s kernel.Solid
	switch o.Kind {
	case scene.KindJoint:
		r := t.cfg.JointRadius * tr.Scale.X()
		if r <= 0 {
			return nil, nil
		}
		s = t.k.Sphere(float64(r))
	case scene.KindConnector, scene.KindMuscle:
		r := t.cfg.ConnectorRadius
		if o.Kind == scene.KindMuscle {
			r = t.cfg.MuscleRadius
		}
		h := 2 * tr.Scale.Y()
		if h <= 0 || r*tr.Scale.X() <= 0 {
			return nil, nil
		}
		axis := tr.Axis()
		s = t.k.Orient(t.k.Cylinder(float64(h), float64(r*tr.Scale.X())),
			[3]float64{float64(axis.X()), float64(axis.Y()), float64(axis.Z())})
	default:
		return nil, fmt.Errorf("tessellate: unknown visual kind %s", o.Kind)
	}
	return t.k.Translate(s, float64(at.X()), float64(at.Y()), float64(at.Z())), nil
}
