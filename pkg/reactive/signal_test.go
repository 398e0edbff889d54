package reactive

import (
	"errors"
	"sync"
	"testing"
)

func TestSignalGetSet(t *testing.T) {
	g := NewGraph()
	s := NewSignal(g, 1)

	if v := s.MustGet(); v != 1 {
		t.Fatalf("expected 1, got %d", v)
	}
	if err := s.Set(2); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, _ := s.Peek(); v != 2 {
		t.Errorf("expected 2, got %d", v)
	}
}

func TestSignalVersionCountsEveryWrite(t *testing.T) {
	g := NewGraph()
	s := NewSignal(g, "a")

	for i := 0; i < 5; i++ {
		// Same value each time: writes still count.
		if err := s.Set("a"); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	v, err := s.Version()
	if err != nil {
		t.Fatal(err)
	}
	if v != 5 {
		t.Errorf("expected version 5, got %d", v)
	}
}

func TestSignalSetSameValueRunsEffect(t *testing.T) {
	g := NewGraph()
	s := NewSignal(g, 7)
	runs := 0
	if _, err := g.NewEffect(func() Cleanup {
		_ = s.MustGet()
		runs++
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	_ = s.Set(7)
	if runs != 2 {
		t.Errorf("expected 2 runs, got %d", runs)
	}
}

func TestSignalUpdate(t *testing.T) {
	g := NewGraph()
	s := NewSignal(g, 10)

	if err := s.Update(func(n int) int { return n + 5 }); err != nil {
		t.Fatal(err)
	}
	if v := s.MustGet(); v != 15 {
		t.Errorf("expected 15, got %d", v)
	}
}

func TestSignalUpdateConcurrent(t *testing.T) {
	g := NewGraph()
	s := NewSignal(g, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = s.Update(func(n int) int { return n + 1 })
			}
		}()
	}
	wg.Wait()

	if v := s.MustGet(); v != 1000 {
		t.Errorf("expected 1000, got %d", v)
	}
}

func TestSignalStaleAfterDispose(t *testing.T) {
	g := NewGraph()
	s := NewSignal(g, 1)
	s.Dispose()

	if _, err := s.Get(); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("Get: expected ErrStaleHandle, got %v", err)
	}
	if err := s.Set(3); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("Set: expected ErrStaleHandle, got %v", err)
	}
	if _, err := s.Version(); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("Version: expected ErrStaleHandle, got %v", err)
	}
}

func TestSignalMustGetPanicsWhenStale(t *testing.T) {
	g := NewGraph()
	s := NewSignal(g, 1)
	s.Dispose()

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrStaleHandle) {
			t.Errorf("expected stale handle panic, got %v", r)
		}
	}()
	s.MustGet()
}

func TestSetValueTypeMismatch(t *testing.T) {
	g := NewGraph()
	s := NewSignal(g, float32(1))

	if err := g.SetValue(s.ID(), 2.0); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
	if err := g.SetValue(s.ID(), float32(2)); err != nil {
		t.Errorf("SetValue: %v", err)
	}
	if v := s.MustGet(); v != 2 {
		t.Errorf("expected 2, got %v", v)
	}
}

func TestSignalOfWrongType(t *testing.T) {
	g := NewGraph()
	s := NewSignal(g, 1)

	wrong := SignalOf[string](g, s.ID())
	if _, err := wrong.Get(); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestReadOutsideTrackingCreatesNoSubscription(t *testing.T) {
	g := NewGraph()
	s := NewSignal(g, 0)
	_ = s.MustGet()

	g.mu.Lock()
	subs := len(g.nodes[s.ID()].subs)
	g.mu.Unlock()
	if subs != 0 {
		t.Errorf("expected no subscribers, got %d", subs)
	}
	if g.Tracking() {
		t.Error("Tracking should be false outside computations")
	}
}

func TestTrackingContextReleased(t *testing.T) {
	g := NewGraph()
	s := NewSignal(g, 0)
	_, _ = g.NewEffect(func() Cleanup {
		_ = s.MustGet()
		return nil
	})
	_ = g.Batch(func() { _ = s.Set(1) })

	count := 0
	g.tracking.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count != 0 {
		t.Errorf("expected no tracking contexts left, got %d", count)
	}
}
