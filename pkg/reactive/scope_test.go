package reactive

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestScopeDisposeTearsDownNodes(t *testing.T) {
	g := NewGraph()
	scope := g.NewScope(nil)

	var s Signal[int]
	var d Derived[int]
	var e NodeID
	cleaned := false
	scope.Run(func() {
		s = NewSignal(g, 1)
		d = NewDerived(g, func() int { return s.MustGet() })
		e, _ = g.NewEffect(func() Cleanup {
			_ = d.MustGet()
			return func() { cleaned = true }
		})
	})

	if scope.Len() != 3 {
		t.Fatalf("expected 3 owned nodes, got %d", scope.Len())
	}
	scope.Dispose()

	if !cleaned {
		t.Error("effect cleanup should run on dispose")
	}
	if _, err := s.Get(); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("signal: expected ErrStaleHandle, got %v", err)
	}
	if _, err := d.Get(); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("derived: expected ErrStaleHandle, got %v", err)
	}
	if g.Alive(e) {
		t.Error("effect should be disposed")
	}
	if st := g.Stats(); st.Signals+st.Derived+st.Effects != 0 {
		t.Errorf("expected empty graph, got %+v", st)
	}
}

func TestScopeChildrenAndCleanupOrder(t *testing.T) {
	g := NewGraph()
	root := g.NewScope(nil)
	var log []string

	a := g.NewScope(root)
	b := g.NewScope(root)
	root.OnCleanup(func() { log = append(log, "root") })
	a.OnCleanup(func() { log = append(log, "a") })
	b.OnCleanup(func() { log = append(log, "b-1") })
	b.OnCleanup(func() { log = append(log, "b-2") })

	root.Dispose()
	root.Dispose()

	want := []string{"b-2", "b-1", "a", "root"}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Errorf("cleanup order mismatch (-want +got):\n%s", diff)
	}
	if !a.IsDisposed() || !b.IsDisposed() {
		t.Error("children should be disposed")
	}
}

func TestScopeChildDisposeDetaches(t *testing.T) {
	g := NewGraph()
	root := g.NewScope(nil)
	child := g.NewScope(root)
	child.Dispose()

	root.childrenMu.Lock()
	n := len(root.children)
	root.childrenMu.Unlock()
	if n != 0 {
		t.Errorf("disposed child should leave parent, %d children left", n)
	}
}

func TestCreateInDisposedScopeIsStale(t *testing.T) {
	g := NewGraph()
	scope := g.NewScope(nil)
	scope.Dispose()

	s := NewSignalIn(g, scope, 1)
	if _, err := s.Get(); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("expected ErrStaleHandle, got %v", err)
	}
	ran := false
	if _, err := g.NewEffectIn(scope, func() Cleanup { ran = true; return nil }); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("expected ErrStaleHandle, got %v", err)
	}
	if ran {
		t.Error("effect in disposed scope must not run")
	}
}

func TestOnCleanupAfterDisposeRunsImmediately(t *testing.T) {
	g := NewGraph()
	scope := g.NewScope(nil)
	scope.Dispose()

	ran := false
	scope.OnCleanup(func() { ran = true })
	if !ran {
		t.Error("expected cleanup to run immediately")
	}
}

func TestEffectInScopeStopsAfterDispose(t *testing.T) {
	g := NewGraph()
	s := NewSignal(g, 0)
	scope := g.NewScope(nil)
	runs := 0

	scope.Run(func() {
		_, _ = g.NewEffect(func() Cleanup {
			_ = s.MustGet()
			runs++
			return nil
		})
	})
	scope.Dispose()

	_ = s.Set(1)
	if runs != 1 {
		t.Errorf("disposed effect must not rerun, got %d runs", runs)
	}
	g.mu.Lock()
	subs := len(g.nodes[s.ID()].subs)
	g.mu.Unlock()
	if subs != 0 {
		t.Errorf("disposed effect should unsubscribe, %d subs left", subs)
	}
}
