package reactive

import (
	"errors"
	"fmt"

	"github.com/petermattis/goid"
)

// Derived is a handle to a cached computation over other signals and
// derived values.
//
// Derived values are lazy: a write to a dependency only marks them dirty,
// and the computation runs on the next Get. Each run records a fresh
// dependency set, so branches not taken stop being tracked.
type Derived[T any] struct {
	g  *Graph
	id NodeID
}

// NewDerived creates a derived value owned by the current scope. compute
// does not run until the first read.
func NewDerived[T any](g *Graph, compute func() T) Derived[T] {
	return NewDerivedIn(g, nil, compute)
}

// NewDerivedIn creates a derived value owned by scope.
func NewDerivedIn[T any](g *Graph, scope *Scope, compute func() T) Derived[T] {
	n := &node{
		kind:    kindDerived,
		compute: func() any { return compute() },
	}
	id := g.addNode(n, scope)
	return Derived[T]{g: g, id: id}
}

// ID returns the node id.
func (d Derived[T]) ID() NodeID {
	return d.id
}

// Get returns the value, recomputing it first if it is dirty or was never
// computed, and subscribes the running computation.
func (d Derived[T]) Get() (T, error) {
	v, err := d.g.readDerived(d.id, true)
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](d.id, v)
}

// MustGet is like Get but panics on error.
func (d Derived[T]) MustGet() T {
	v, err := d.Get()
	if err != nil {
		panic(err)
	}
	return v
}

// Peek returns the value without subscribing. It still recomputes a dirty
// value.
func (d Derived[T]) Peek() (T, error) {
	v, err := d.g.readDerived(d.id, false)
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](d.id, v)
}

// Dirty reports whether the next read will recompute.
func (d Derived[T]) Dirty() (bool, error) {
	d.g.mu.Lock()
	defer d.g.mu.Unlock()
	n, ok := d.g.nodes[d.id]
	if !ok {
		return false, staleErr(d.id)
	}
	return n.dirty || !n.computed, nil
}

// Version returns how many times the value has been computed.
func (d Derived[T]) Version() (uint64, error) {
	return d.g.Version(d.id)
}

// Dispose removes the derived node from the graph.
func (d Derived[T]) Dispose() {
	d.g.Dispose(d.id)
}

// String returns a debug representation.
func (d Derived[T]) String() string {
	return fmt.Sprintf("Derived(%d)", d.id)
}

func (g *Graph) readDerived(id NodeID, track bool) (any, error) {
	gid := goid.Get()

	g.mu.Lock()
	n, ok := g.nodes[id]
	if !ok || n.kind != kindDerived {
		g.mu.Unlock()
		return nil, staleErr(id)
	}
	if n.computingBy == gid {
		g.mu.Unlock()
		return nil, ErrCycle.WithSubject("node %d", id)
	}
	for n.computingBy != 0 {
		g.cond.Wait()
	}
	if _, ok := g.nodes[id]; !ok {
		g.mu.Unlock()
		return nil, staleErr(id)
	}

	var err error
	if n.dirty || !n.computed {
		err = g.recomputeLocked(n, gid)
	}

	// A failed read still subscribes, so fixing an input re-runs the reader.
	if track && !errors.Is(err, ErrStaleHandle) {
		if tc := g.currentTC(); tc != nil {
			g.linkLocked(tc.frame, n)
		}
	}
	v := n.value
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return v, nil
}

// recomputeLocked runs the computation of n with g.mu released and
// reacquires it before returning.
func (g *Graph) recomputeLocked(n *node, gid int64) error {
	n.computingBy = gid
	n.dirty = false
	g.unlinkSourcesLocked(n)
	compute := n.compute
	g.mu.Unlock()

	var value any
	deps, err := g.track(n.id, func() {
		value = compute()
	})

	g.mu.Lock()
	n.computingBy = 0
	g.cond.Broadcast()

	if _, alive := g.nodes[n.id]; !alive {
		g.dropLinksLocked(n.id, deps)
		return staleErr(n.id)
	}
	n.sources = deps
	n.depth = g.depthLocked(deps)
	if err != nil {
		n.dirty = true
		n.failed = true
		return err
	}
	n.failed = false
	n.value = value
	n.computed = true
	n.version++
	return nil
}

// dropLinksLocked removes id from the subscriber lists of deps. Used when a
// node was disposed while running.
func (g *Graph) dropLinksLocked(id NodeID, deps []NodeID) {
	for _, sid := range deps {
		if src, ok := g.nodes[sid]; ok {
			src.subs = removeID(src.subs, id)
		}
	}
}
