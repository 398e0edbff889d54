package reactive

import (
	"fmt"
	"reflect"
)

// Signal is a handle to a reactive value stored in a Graph.
//
// Reading a Signal inside an effect or derived computation subscribes that
// computation to it. Every Set bumps the version and marks subscribers dirty,
// even when the new value equals the old one.
//
// Handles are small values and safe to copy. Once the node is disposed every
// method returns ErrStaleHandle (or panics, for the Must variants).
type Signal[T any] struct {
	g  *Graph
	id NodeID
}

// NewSignal creates a signal with the given initial value, owned by the
// scope active on the calling goroutine (if any).
func NewSignal[T any](g *Graph, initial T) Signal[T] {
	return NewSignalIn(g, nil, initial)
}

// NewSignalIn creates a signal owned by scope.
func NewSignalIn[T any](g *Graph, scope *Scope, initial T) Signal[T] {
	id := g.addNode(&node{kind: kindSignal, value: initial}, scope)
	return Signal[T]{g: g, id: id}
}

// SignalOf wraps an existing node id in a typed handle. The type is checked
// on each access.
func SignalOf[T any](g *Graph, id NodeID) Signal[T] {
	return Signal[T]{g: g, id: id}
}

// ID returns the node id.
func (s Signal[T]) ID() NodeID {
	return s.id
}

// Graph returns the graph the signal belongs to.
func (s Signal[T]) Graph() *Graph {
	return s.g
}

// Get returns the current value and subscribes the running computation.
func (s Signal[T]) Get() (T, error) {
	v, err := s.g.readSignal(s.id, true)
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](s.id, v)
}

// MustGet is like Get but panics on error.
func (s Signal[T]) MustGet() T {
	v, err := s.Get()
	if err != nil {
		panic(err)
	}
	return v
}

// Peek returns the current value without subscribing.
func (s Signal[T]) Peek() (T, error) {
	v, err := s.g.readSignal(s.id, false)
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](s.id, v)
}

// Set stores v, increments the version and marks subscribers dirty.
// With auto flush enabled and no open batch, effects run before Set returns
// and their errors are returned.
func (s Signal[T]) Set(v T) error {
	return s.g.write(s.id, nil, func(any) (any, error) {
		return v, nil
	})
}

// Update applies fn to the current value and stores the result atomically
// with respect to other writers. fn must not access the graph.
func (s Signal[T]) Update(fn func(T) T) error {
	return s.g.write(s.id, nil, func(old any) (any, error) {
		cur, err := cast[T](s.id, old)
		if err != nil {
			return nil, err
		}
		return fn(cur), nil
	})
}

// Version returns the number of writes since creation.
func (s Signal[T]) Version() (uint64, error) {
	return s.g.Version(s.id)
}

// Dispose removes the signal from the graph.
func (s Signal[T]) Dispose() {
	s.g.Dispose(s.id)
}

// String returns a debug representation.
func (s Signal[T]) String() string {
	v, err := s.Peek()
	if err != nil {
		return fmt.Sprintf("Signal(%d, stale)", s.id)
	}
	return fmt.Sprintf("Signal(%d, %v)", s.id, v)
}

// Value returns the value of a signal or derived node without tracking.
// Dirty derived nodes are recomputed.
func (g *Graph) Value(id NodeID) (any, error) {
	g.mu.Lock()
	n, ok := g.nodes[id]
	if !ok {
		g.mu.Unlock()
		return nil, staleErr(id)
	}
	kind := n.kind
	g.mu.Unlock()

	if kind == kindDerived {
		return g.readDerived(id, false)
	}
	return g.readSignal(id, false)
}

// SetValue writes an untyped value into a signal. The value must have the
// same dynamic type as the signal's current value.
func (g *Graph) SetValue(id NodeID, v any) error {
	return g.write(id, v, nil)
}

// Version returns the write count of a signal or the recompute count of a
// derived node.
func (g *Graph) Version(id NodeID) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	if !ok {
		return 0, staleErr(id)
	}
	return n.version, nil
}

func (g *Graph) readSignal(id NodeID, track bool) (any, error) {
	var tc *trackingContext
	if track {
		tc = g.currentTC()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[id]
	if !ok || n.kind != kindSignal {
		return nil, staleErr(id)
	}
	if tc != nil {
		g.linkLocked(tc.frame, n)
	}
	return n.value, nil
}

// write stores v (or the result of update) into signal id and marks its
// subscribers. Unbatched writes hold the batch lock for their duration so
// they never interleave with a running flush on another goroutine.
func (g *Graph) write(id NodeID, v any, update func(any) (any, error)) error {
	tc := g.acquireTC()
	inTx := tc.batchDepth > 0 || tc.flushing
	if !inTx {
		g.txMu.RLock()
	}

	err := g.store(id, v, update)

	if !inTx {
		g.txMu.RUnlock()
	}
	g.releaseTC(tc)

	if err != nil {
		return err
	}
	if g.autoFlush && !inTx {
		_, err = g.Flush()
	}
	return err
}

func (g *Graph) store(id NodeID, v any, update func(any) (any, error)) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[id]
	if !ok || n.kind != kindSignal {
		return staleErr(id)
	}
	if update != nil {
		nv, err := update(n.value)
		if err != nil {
			return err
		}
		v = nv
	} else if !sameType(n.value, v) {
		return ErrTypeMismatch.WithSubject("node %d: have %T, got %T", id, n.value, v)
	}

	n.value = v
	n.version++
	g.markSubscribersLocked(n)
	return nil
}

func sameType(a, b any) bool {
	if a == nil || b == nil {
		return true
	}
	return reflect.TypeOf(a) == reflect.TypeOf(b)
}

func cast[T any](id NodeID, v any) (T, error) {
	if v == nil {
		var zero T
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, ErrTypeMismatch.WithSubject("node %d: have %T, want %T", id, v, zero)
	}
	return t, nil
}
