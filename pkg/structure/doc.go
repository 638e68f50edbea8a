// Package structure defines the creature structure graph for Armature.
//
// A structure is an undirected graph of joints (nodes) joined by rigid
// connectors (edges). Each joint optionally names a parent joint; parent
// links form a forest and are never cyclic. Muscles are cross-links between
// two connectors. They live in their own arena and are referenced from both
// anchor connectors, so the muscle maps of the two anchors always agree.
//
// The graph never owns renderer state. Every joint, connector and muscle
// carries an opaque Handle that the presentation layer assigns when the
// element is materialized.
package structure
