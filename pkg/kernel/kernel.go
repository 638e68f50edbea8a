// Package kernel defines the solid modeling interface used to turn scene
// visuals into triangle meshes. The sdfx subpackage implements it.
package kernel

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel builds the few solids a skeleton is drawn with. Every primitive is
// centered on the origin; cylinders run along Y.
type Kernel interface {
	// Primitives
	Sphere(radius float64) Solid
	Cylinder(height, radius float64) Solid

	Union(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	// Orient rotates s so that its local +Y axis points along axis. A zero
	// axis leaves s unchanged.
	Orient(s Solid, axis [3]float64) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
