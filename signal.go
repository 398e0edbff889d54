package kinetic

import (
	"github.com/vango-dev/kinetic/pkg/reactive"
)

// SignalCreate allocates a signal holding initial. The handle's Get
// subscribes the running effect or derived value; Set always writes and
// marks subscribers dirty, and their effects run on the next Tick.
func SignalCreate[T any](rt *Runtime, initial T, opts ...CreateOption) (reactive.Signal[T], error) {
	if err := rt.check(); err != nil {
		return reactive.Signal[T]{}, err
	}
	scope, err := rt.scopeFor(collect(opts))
	if err != nil {
		return reactive.Signal[T]{}, err
	}
	return reactive.NewSignalIn(rt.graph, scope, initial), nil
}

// SignalGet reads the signal with the given id as T.
func SignalGet[T any](rt *Runtime, id reactive.NodeID) (T, error) {
	if err := rt.check(); err != nil {
		var zero T
		return zero, err
	}
	return reactive.SignalOf[T](rt.graph, id).Get()
}

// SignalSet writes v into the signal with the given id.
func SignalSet[T any](rt *Runtime, id reactive.NodeID, v T) error {
	if err := rt.check(); err != nil {
		return err
	}
	return reactive.SignalOf[T](rt.graph, id).Set(v)
}

// DerivedCreate registers a lazily computed value. compute runs on the
// first read and again on reads after a dependency changed.
func DerivedCreate[T any](rt *Runtime, compute func() T, opts ...CreateOption) (reactive.Derived[T], error) {
	if err := rt.check(); err != nil {
		return reactive.Derived[T]{}, err
	}
	scope, err := rt.scopeFor(collect(opts))
	if err != nil {
		return reactive.Derived[T]{}, err
	}
	return reactive.NewDerivedIn(rt.graph, scope, compute), nil
}

// EffectCreate registers an effect and runs it once immediately to record
// its dependencies. It re-runs during the flush of the next Tick after any
// of them changes. The returned error is the panic of the first run, if
// any; the effect stays registered.
func (rt *Runtime) EffectCreate(fn func() reactive.Cleanup, opts ...CreateOption) (reactive.NodeID, error) {
	if err := rt.check(); err != nil {
		return 0, err
	}
	scope, err := rt.scopeFor(collect(opts))
	if err != nil {
		return 0, err
	}
	return rt.graph.NewEffectIn(scope, fn)
}

// Batch runs fn as one transaction: effects only see the state after fn
// returns.
func (rt *Runtime) Batch(fn func()) error {
	if err := rt.check(); err != nil {
		return err
	}
	return rt.graph.Batch(fn)
}

// Dispose removes a signal, derived value or effect.
func (rt *Runtime) Dispose(id reactive.NodeID) {
	rt.graph.Dispose(id)
}
