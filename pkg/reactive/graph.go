package reactive

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
)

// DefaultMaxFlushPasses is the number of flush passes allowed before a flush
// is abandoned with ErrFlushLimit.
const DefaultMaxFlushPasses = 32

// NodeID identifies a signal, derived value or effect within a Graph.
// IDs are never reused, so an id that outlives its node stays stale.
type NodeID uint64

type nodeKind uint8

const (
	kindSignal nodeKind = iota + 1
	kindDerived
	kindEffect
)

// String returns a human-readable name for the node kind.
func (k nodeKind) String() string {
	switch k {
	case kindSignal:
		return "signal"
	case kindDerived:
		return "derived"
	case kindEffect:
		return "effect"
	default:
		return "unknown"
	}
}

// node is the type-erased record behind every handle.
type node struct {
	id    NodeID
	kind  nodeKind
	scope *Scope

	value   any
	version uint64

	// subs are the derived nodes and effects that read this node during
	// their last run, in subscription order.
	subs []NodeID

	// sources are the nodes read during the last run (derived and effect).
	sources []NodeID

	dirty    bool
	computed bool

	// failed is set when the last run of a derived node returned an error.
	// It stays dirty but still forwards invalidation to its readers.
	failed bool

	// computingBy is the goroutine recomputing a derived node, 0 when idle.
	computingBy int64

	depth    uint32
	depthSet bool

	compute func() any
	effect  func() Cleanup
	cleanup Cleanup
}

// Graph is an explicit reactive runtime. Every signal, derived value and
// effect belongs to exactly one Graph, and nothing in this package keeps
// ambient global state.
//
// The graph structure is guarded by a single mutex that is never held while
// user code runs. Dependency tracking state is kept per goroutine.
type Graph struct {
	mu     sync.Mutex
	cond   *sync.Cond
	nodes  map[NodeID]*node
	nextID NodeID

	// pending holds effects marked dirty since the last flush.
	pending map[NodeID]struct{}

	// txMu is held for reading by every open batch and for writing by a
	// flush, so a flush never observes half of a batch.
	txMu sync.RWMutex

	// tracking maps goroutine ids to *trackingContext.
	tracking sync.Map

	autoFlush bool
	maxPasses int
	logger    *slog.Logger

	observers []FlushObserver

	effectsRun    atomic.Uint64
	flushes       atomic.Uint64
	limitExceeded atomic.Uint64
}

// FlushStats describes a completed flush.
type FlushStats struct {
	// Passes is the number of passes that ran at least one effect.
	Passes int

	// EffectsRun counts effect executions across all passes.
	EffectsRun int

	// Panics counts effect runs that panicked.
	Panics int
}

// Ran reports whether any effect executed.
func (s FlushStats) Ran() bool {
	return s.EffectsRun > 0
}

// FlushObserver is called after every flush that found pending effects.
type FlushObserver func(stats FlushStats, err error)

// Option configures a Graph.
type Option func(*Graph)

// WithAutoFlush controls whether unbatched writes flush effects right away.
// When disabled, effects only run when Flush is called.
func WithAutoFlush(enabled bool) Option {
	return func(g *Graph) {
		g.autoFlush = enabled
	}
}

// WithMaxFlushPasses sets the pass cap of a single flush.
// Non-positive values keep the default.
func WithMaxFlushPasses(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.maxPasses = n
		}
	}
}

// WithLogger sets the logger used for flush diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithFlushObserver registers a callback invoked after each flush.
func WithFlushObserver(fn FlushObserver) Option {
	return func(g *Graph) {
		if fn != nil {
			g.observers = append(g.observers, fn)
		}
	}
}

// NewGraph creates an empty graph. Auto flush is on unless disabled.
func NewGraph(opts ...Option) *Graph {
	g := &Graph{
		nodes:     make(map[NodeID]*node),
		pending:   make(map[NodeID]struct{}),
		autoFlush: true,
		maxPasses: DefaultMaxFlushPasses,
		logger:    slog.Default().With("component", "reactive"),
	}
	g.cond = sync.NewCond(&g.mu)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AutoFlush reports whether the graph flushes after unbatched writes.
func (g *Graph) AutoFlush() bool {
	return g.autoFlush
}

// MaxFlushPasses returns the configured pass cap.
func (g *Graph) MaxFlushPasses() int {
	return g.maxPasses
}

// Stats is a point-in-time view of the graph.
type Stats struct {
	Signals    int
	Derived    int
	Effects    int
	Pending    int
	EffectsRun uint64
	Flushes    uint64

	// LimitExceeded counts flushes abandoned with ErrFlushLimit.
	LimitExceeded uint64
}

// Stats returns node counts and lifetime counters.
func (g *Graph) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Stats{
		Pending:       len(g.pending),
		EffectsRun:    g.effectsRun.Load(),
		Flushes:       g.flushes.Load(),
		LimitExceeded: g.limitExceeded.Load(),
	}
	for _, n := range g.nodes {
		switch n.kind {
		case kindSignal:
			s.Signals++
		case kindDerived:
			s.Derived++
		case kindEffect:
			s.Effects++
		}
	}
	return s
}

// HasPending reports whether any effect is waiting for a flush.
func (g *Graph) HasPending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending) > 0
}

// Alive reports whether id refers to a live node.
func (g *Graph) Alive(id NodeID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.nodes[id]
	return ok
}

// Depth returns the scheduling depth of a node. Signals are 0; derived
// nodes and effects are one more than their deepest dependency.
func (g *Graph) Depth(id NodeID) (uint32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	if !ok {
		return 0, staleErr(id)
	}
	return n.depth, nil
}

// addNode registers a node under the current (or given) scope. A node
// created inside a disposed scope is never inserted, so its handle is stale
// from the start.
func (g *Graph) addNode(n *node, scope *Scope) NodeID {
	if scope == nil {
		if tc := g.currentTC(); tc != nil {
			scope = tc.scope
		}
	}

	g.mu.Lock()
	g.nextID++
	n.id = g.nextID
	n.scope = scope
	if scope != nil && scope.IsDisposed() {
		g.mu.Unlock()
		return n.id
	}
	g.nodes[n.id] = n
	g.mu.Unlock()

	if scope != nil {
		scope.adopt(n.id)
	}
	return n.id
}

// link records that the computation tracked by f read src. Callers hold g.mu.
func (g *Graph) linkLocked(f *frame, src *node) {
	if f == nil || f.id == src.id {
		return
	}
	if _, seen := f.seen[src.id]; seen {
		return
	}
	f.seen[src.id] = struct{}{}
	f.deps = append(f.deps, src.id)
	src.subs = append(src.subs, f.id)
}

// unlinkSourcesLocked removes n from the subscriber lists of its sources.
func (g *Graph) unlinkSourcesLocked(n *node) {
	for _, sid := range n.sources {
		if src, ok := g.nodes[sid]; ok {
			src.subs = removeID(src.subs, n.id)
		}
	}
	n.sources = nil
}

// markSubscribersLocked marks everything downstream of n dirty. Derived
// nodes are only flagged; effects are queued for the next flush.
func (g *Graph) markSubscribersLocked(n *node) {
	stack := append([]NodeID(nil), n.subs...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		sub, ok := g.nodes[id]
		if !ok {
			continue
		}
		switch sub.kind {
		case kindDerived:
			if sub.failed {
				sub.failed = false
			} else if sub.dirty || !sub.computed {
				continue
			}
			sub.dirty = true
			stack = append(stack, sub.subs...)
		case kindEffect:
			if sub.dirty {
				continue
			}
			sub.dirty = true
			g.pending[id] = struct{}{}
		}
	}
}

// depthLocked computes max(depth of deps) + 1.
func (g *Graph) depthLocked(deps []NodeID) uint32 {
	var d uint32
	for _, id := range deps {
		if n, ok := g.nodes[id]; ok && n.depth > d {
			d = n.depth
		}
	}
	return d + 1
}

// takePending removes and returns the dirty effects ordered by
// (depth, id) ascending.
func (g *Graph) takePending() []NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.pending) == 0 {
		return nil
	}
	ids := make([]NodeID, 0, len(g.pending))
	for id := range g.pending {
		if n, ok := g.nodes[id]; ok && n.dirty {
			ids = append(ids, id)
		}
	}
	clear(g.pending)

	sort.Slice(ids, func(i, j int) bool {
		a, b := g.nodes[ids[i]], g.nodes[ids[j]]
		if a.depth != b.depth {
			return a.depth < b.depth
		}
		return a.id < b.id
	})
	return ids
}

// discardPending drops every queued effect and clears its dirty flag.
func (g *Graph) discardPending() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := len(g.pending)
	for id := range g.pending {
		if e, ok := g.nodes[id]; ok {
			e.dirty = false
		}
	}
	clear(g.pending)
	return n
}

// dispose removes a node and returns the cleanup the caller must run.
func (g *Graph) dispose(id NodeID) Cleanup {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	g.unlinkSourcesLocked(n)
	delete(g.nodes, id)
	delete(g.pending, id)
	n.dirty = false
	n.subs = nil

	c := n.cleanup
	n.cleanup = nil
	return c
}

// Dispose removes the node behind id. Later reads or writes through any
// handle for it return ErrStaleHandle. Disposing an effect runs its cleanup.
func (g *Graph) Dispose(id NodeID) {
	if c := g.dispose(id); c != nil {
		g.runCleanup(id, c)
	}
}

func (g *Graph) runCleanup(id NodeID, c Cleanup) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Warn("effect cleanup panicked", "effect", id, "panic", r)
		}
	}()
	c()
}

func removeID(ids []NodeID, id NodeID) []NodeID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
