// Package persist reads and writes structure files.
//
// A structure file is YAML holding the joint list and the connector list.
// Joints and connectors are referred to by their position in those lists;
// runtime handles and muscle maps are never written. Muscles are stored on
// each connector as the indices of its partner connectors and are paired up
// again on load.
//
//	nodes:
//	  - pos: [0, 0, 0]
//	  - pos: [0, 4, 0]
//	    parent: 0
//	edges:
//	  - endpoints: [1, 0]
package persist

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/chazu/armature/pkg/structure"
)

var (
	// ErrNoStructure means there is no structure file to load. Callers
	// treat it as an empty session rather than a failure.
	ErrNoStructure = errors.New("persist: no structure file")
	// ErrCorrupt means the file does not describe a consistent structure.
	ErrCorrupt = errors.New("persist: corrupt structure file")
)

// Document is the on-disk shape of a structure.
type Document struct {
	Nodes []NodeRecord `yaml:"nodes"`
	Edges []EdgeRecord `yaml:"edges"`
}

// NodeRecord is one joint.
type NodeRecord struct {
	Pos    [3]float32 `yaml:"pos,flow"`
	Parent *int       `yaml:"parent,omitempty"`
}

// EdgeRecord is one connector.
type EdgeRecord struct {
	Endpoints  [2]int `yaml:"endpoints,flow"`
	MuscleData []int  `yaml:"muscle_data,flow,omitempty"`
}

// Encode flattens the muscles of st and converts it to a Document. IDs are
// renumbered densely in ID order.
func Encode(st *structure.Structure) Document {
	st.FlattenMuscles()

	nodes := st.NodeIDs()
	nodeIdx := make(map[structure.NodeID]int, len(nodes))
	for i, n := range nodes {
		nodeIdx[n] = i
	}
	edges := st.EdgeIDs()
	edgeIdx := make(map[structure.EdgeID]int, len(edges))
	for i, e := range edges {
		edgeIdx[e] = i
	}

	doc := Document{
		Nodes: make([]NodeRecord, 0, len(nodes)),
		Edges: make([]EdgeRecord, 0, len(edges)),
	}
	for _, n := range nodes {
		j, _ := st.Joint(n)
		rec := NodeRecord{Pos: j.Pos}
		if i, ok := nodeIdx[j.Parent]; ok && j.HasParent() {
			rec.Parent = &i
		}
		doc.Nodes = append(doc.Nodes, rec)
	}
	for _, e := range edges {
		a, b, _ := st.Endpoints(e)
		c, _ := st.Connector(e)
		rec := EdgeRecord{Endpoints: [2]int{nodeIdx[a], nodeIdx[b]}}
		for _, p := range c.MuscleData {
			if i, ok := edgeIdx[p]; ok {
				rec.MuscleData = append(rec.MuscleData, i)
			}
		}
		doc.Edges = append(doc.Edges, rec)
	}
	return doc
}

// Decode rebuilds a structure from doc. Muscles are paired up from the
// partner lists. The result has no handles; run Create on it to spawn
// visuals.
func Decode(doc Document, opts ...structure.Option) (*structure.Structure, error) {
	if err := doc.check(); err != nil {
		return nil, err
	}
	st := structure.New(opts...)

	nodes := make([]structure.NodeID, len(doc.Nodes))
	for i, rec := range doc.Nodes {
		nodes[i] = st.AddNode(mgl32.Vec3(rec.Pos))
	}
	edges := make([]structure.EdgeID, len(doc.Edges))
	for i, rec := range doc.Edges {
		e, err := st.AddEdge(nodes[rec.Endpoints[0]], nodes[rec.Endpoints[1]], structure.Connector{})
		if err != nil {
			return nil, fmt.Errorf("%w: edge %d: %w", ErrCorrupt, i, err)
		}
		edges[i] = e
	}
	for i, rec := range doc.Edges {
		partners := make([]structure.EdgeID, 0, len(rec.MuscleData))
		for _, p := range rec.MuscleData {
			partners = append(partners, edges[p])
		}
		st.SetMuscleData(edges[i], partners)
	}
	for i, rec := range doc.Nodes {
		if rec.Parent == nil {
			continue
		}
		if err := st.SetParent(nodes[i], nodes[*rec.Parent]); err != nil {
			return nil, fmt.Errorf("%w: node %d: %w", ErrCorrupt, i, err)
		}
	}
	st.RebuildMuscles()
	return st, nil
}

// check validates every index in doc.
func (d Document) check() error {
	nn, ne := len(d.Nodes), len(d.Edges)
	for i, rec := range d.Nodes {
		if rec.Parent != nil && (*rec.Parent < 0 || *rec.Parent >= nn) {
			return fmt.Errorf("%w: node %d: parent %d out of range", ErrCorrupt, i, *rec.Parent)
		}
	}
	for i, rec := range d.Edges {
		for _, n := range rec.Endpoints {
			if n < 0 || n >= nn {
				return fmt.Errorf("%w: edge %d: endpoint %d out of range", ErrCorrupt, i, n)
			}
		}
		for _, p := range rec.MuscleData {
			if p < 0 || p >= ne {
				return fmt.Errorf("%w: edge %d: muscle partner %d out of range", ErrCorrupt, i, p)
			}
		}
	}
	return nil
}

// Save writes st to w.
func Save(w io.Writer, st *structure.Structure) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Encode(st)); err != nil {
		return fmt.Errorf("persist: encode: %w", err)
	}
	return enc.Close()
}

// Load reads a structure from r. An empty input is an empty structure.
func Load(r io.Reader, opts ...structure.Option) (*structure.Structure, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return Decode(doc, opts...)
}

// SaveFile writes st to path, replacing the file atomically.
func SaveFile(path string, st *structure.Structure) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("persist: save %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if err = Save(tmp, st); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("persist: save %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("persist: save %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("persist: save %s: %w", path, err)
	}
	return nil
}

// LoadFile reads the structure at path. A missing file is ErrNoStructure.
func LoadFile(path string, opts ...structure.Option) (*structure.Structure, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoStructure, path)
	}
	if err != nil {
		return nil, fmt.Errorf("persist: load %s: %w", path, err)
	}
	defer f.Close()
	st, err := Load(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return st, nil
}
