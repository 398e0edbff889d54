package reactive

import (
	"github.com/petermattis/goid"
)

// trackingContext holds the reactive state of one goroutine within one
// Graph. Contexts are created on demand and dropped again once idle, so
// goroutines that come and go do not leak entries.
type trackingContext struct {
	// frame is the computation currently recording dependencies.
	// nil means reads do not subscribe anything.
	frame *frame

	// scope owns nodes created on this goroutine.
	scope *Scope

	// batchDepth tracks nested Batch calls.
	batchDepth int

	// flushing is set while this goroutine runs a flush.
	flushing bool

	// flushRequested records a Flush call made inside a batch.
	flushRequested bool
}

func (tc *trackingContext) idle() bool {
	return tc.frame == nil && tc.scope == nil && tc.batchDepth == 0 &&
		!tc.flushing && !tc.flushRequested
}

// frame collects the dependencies read by one run of a derived node or
// effect.
type frame struct {
	id   NodeID
	deps []NodeID
	seen map[NodeID]struct{}
}

func newFrame(id NodeID) *frame {
	return &frame{id: id, seen: make(map[NodeID]struct{})}
}

// currentTC returns the calling goroutine's context without creating one.
func (g *Graph) currentTC() *trackingContext {
	if v, ok := g.tracking.Load(goid.Get()); ok {
		return v.(*trackingContext)
	}
	return nil
}

// acquireTC returns the calling goroutine's context, creating it if needed.
// Every acquire must be paired with releaseTC.
func (g *Graph) acquireTC() *trackingContext {
	gid := goid.Get()
	if v, ok := g.tracking.Load(gid); ok {
		return v.(*trackingContext)
	}
	tc := &trackingContext{}
	g.tracking.Store(gid, tc)
	return tc
}

// releaseTC drops the context once nothing on the goroutine uses it.
func (g *Graph) releaseTC(tc *trackingContext) {
	if tc.idle() {
		g.tracking.Delete(goid.Get())
	}
}

// track runs fn with a fresh frame for id and returns what it read. A panic
// in fn is recovered and returned as ErrEffectPanic.
func (g *Graph) track(id NodeID, fn func()) (deps []NodeID, err error) {
	tc := g.acquireTC()
	f := newFrame(id)
	prev := tc.frame
	tc.frame = f

	defer func() {
		tc.frame = prev
		g.releaseTC(tc)
		deps = f.deps
		if r := recover(); r != nil {
			err = panicError(id, r)
		}
	}()

	fn()
	return nil, nil
}

// Untracked runs fn without recording dependencies, even when called from
// inside an effect or derived computation.
func (g *Graph) Untracked(fn func()) {
	tc := g.acquireTC()
	prev := tc.frame
	tc.frame = nil
	defer func() {
		tc.frame = prev
		g.releaseTC(tc)
	}()
	fn()
}

// Tracking reports whether the calling goroutine is inside a tracked
// computation of g.
func (g *Graph) Tracking() bool {
	tc := g.currentTC()
	return tc != nil && tc.frame != nil
}
