package reactive

import (
	"sync"
	"sync/atomic"
)

// Scope owns reactive nodes. When a Scope is disposed, every signal,
// derived value, effect and child scope it contains is disposed as well,
// and registered cleanups run.
//
// Scopes form a hierarchy that mirrors the widget tree: a widget's scope is
// a child of its parent's scope.
type Scope struct {
	g      *Graph
	parent *Scope

	children   []*Scope
	childrenMu sync.Mutex

	// nodes owned by this scope, in creation order.
	nodes   []NodeID
	nodesMu sync.Mutex

	cleanups   []func()
	cleanupsMu sync.Mutex

	disposed atomic.Bool
}

// NewScope creates a scope. A nil parent makes a root scope.
func (g *Graph) NewScope(parent *Scope) *Scope {
	s := &Scope{g: g, parent: parent}
	if parent != nil {
		parent.addChild(s)
	}
	return s
}

// Parent returns the parent scope, nil for a root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// IsDisposed reports whether Dispose has been called.
func (s *Scope) IsDisposed() bool {
	return s.disposed.Load()
}

// Len returns the number of nodes owned directly by the scope.
func (s *Scope) Len() int {
	s.nodesMu.Lock()
	defer s.nodesMu.Unlock()
	return len(s.nodes)
}

// Run calls fn with s as the current scope, so nodes created by fn on this
// goroutine belong to s.
func (s *Scope) Run(fn func()) {
	tc := s.g.acquireTC()
	prev := tc.scope
	tc.scope = s
	defer func() {
		tc.scope = prev
		s.g.releaseTC(tc)
	}()
	fn()
}

// OnCleanup registers fn to run when the scope is disposed. Cleanups run in
// reverse registration order. Registering on a disposed scope runs fn
// immediately.
func (s *Scope) OnCleanup(fn func()) {
	if fn == nil {
		return
	}
	if s.disposed.Load() {
		fn()
		return
	}
	s.cleanupsMu.Lock()
	s.cleanups = append(s.cleanups, fn)
	s.cleanupsMu.Unlock()
}

func (s *Scope) adopt(id NodeID) {
	s.nodesMu.Lock()
	s.nodes = append(s.nodes, id)
	s.nodesMu.Unlock()
}

func (s *Scope) addChild(child *Scope) {
	s.childrenMu.Lock()
	s.children = append(s.children, child)
	s.childrenMu.Unlock()
}

func (s *Scope) removeChild(child *Scope) {
	s.childrenMu.Lock()
	defer s.childrenMu.Unlock()
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

// Dispose tears down child scopes (last created first), then owned nodes
// in reverse creation order, then cleanups. Disposing twice is a no-op.
func (s *Scope) Dispose() {
	if s.disposed.Swap(true) {
		return
	}

	if s.parent != nil {
		s.parent.removeChild(s)
	}

	s.childrenMu.Lock()
	children := s.children
	s.children = nil
	s.childrenMu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	s.nodesMu.Lock()
	nodes := s.nodes
	s.nodes = nil
	s.nodesMu.Unlock()

	for i := len(nodes) - 1; i >= 0; i-- {
		s.g.Dispose(nodes[i])
	}

	s.cleanupsMu.Lock()
	cleanups := s.cleanups
	s.cleanups = nil
	s.cleanupsMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}
