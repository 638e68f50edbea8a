package structure

import "fmt"

// Handle is an opaque reference to a visual owned by the presentation layer.
// The zero Handle means the element has not been materialized.
type Handle uint64

// IsZero reports whether h refers to no visual.
func (h Handle) IsZero() bool { return h == 0 }

func (h Handle) String() string {
	if h == 0 {
		return "handle(none)"
	}
	return fmt.Sprintf("handle(%d)", uint64(h))
}

// NodeID is a generation-checked reference to a joint. A NodeID whose slot has
// been freed or reused never resolves again. The zero value means "no node".
type NodeID struct {
	index uint32
	gen   uint32
}

// IsZero reports whether id is the "no node" value.
func (id NodeID) IsZero() bool { return id.gen == 0 }

// Index returns the arena slot of id.
func (id NodeID) Index() int { return int(id.index) }

func (id NodeID) String() string {
	if id.IsZero() {
		return "node(none)"
	}
	return fmt.Sprintf("n%d.%d", id.index, id.gen)
}

// EdgeID is a generation-checked reference to a connector.
type EdgeID struct {
	index uint32
	gen   uint32
}

// IsZero reports whether id is the "no edge" value.
func (id EdgeID) IsZero() bool { return id.gen == 0 }

// Index returns the arena slot of id.
func (id EdgeID) Index() int { return int(id.index) }

func (id EdgeID) String() string {
	if id.IsZero() {
		return "edge(none)"
	}
	return fmt.Sprintf("e%d.%d", id.index, id.gen)
}

// Less orders edges by slot, then generation.
func (id EdgeID) Less(o EdgeID) bool {
	if id.index != o.index {
		return id.index < o.index
	}
	return id.gen < o.gen
}

// MuscleID is a generation-checked reference to a muscle.
type MuscleID struct {
	index uint32
	gen   uint32
}

// IsZero reports whether id is the "no muscle" value.
func (id MuscleID) IsZero() bool { return id.gen == 0 }

func (id MuscleID) String() string {
	if id.IsZero() {
		return "muscle(none)"
	}
	return fmt.Sprintf("m%d.%d", id.index, id.gen)
}

// arena is a slot map. Generations start at 1 so the zero ID never resolves.
type arena[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

type slot[T any] struct {
	gen  uint32
	used bool
	val  T
}

func (a *arena[T]) insert(v T) (index, gen uint32) {
	a.live++
	if n := len(a.free); n > 0 {
		index = a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[index]
		s.used = true
		s.val = v
		return index, s.gen
	}
	a.slots = append(a.slots, slot[T]{gen: 1, used: true, val: v})
	return uint32(len(a.slots) - 1), 1
}

func (a *arena[T]) get(index, gen uint32) (*T, bool) {
	if gen == 0 || int(index) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[index]
	if !s.used || s.gen != gen {
		return nil, false
	}
	return &s.val, true
}

func (a *arena[T]) remove(index, gen uint32) bool {
	if _, ok := a.get(index, gen); !ok {
		return false
	}
	s := &a.slots[index]
	var zero T
	s.val = zero
	s.used = false
	s.gen++
	a.free = append(a.free, index)
	a.live--
	return true
}

func (a *arena[T]) clear() {
	for i := range a.slots {
		if a.slots[i].used {
			a.remove(uint32(i), a.slots[i].gen)
		}
	}
}

// each visits live slots in index order.
func (a *arena[T]) each(fn func(index, gen uint32, v *T)) {
	for i := range a.slots {
		s := &a.slots[i]
		if s.used {
			fn(uint32(i), s.gen, &s.val)
		}
	}
}
