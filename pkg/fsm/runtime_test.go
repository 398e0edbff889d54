package fsm

import (
	"errors"
	"testing"
)

func TestRuntimeArena(t *testing.T) {
	var log []string
	table := buttonTable(t, &log)

	var transitions int
	r := NewRuntime(OnTransition(func(Step) { transitions++ }))
	a := r.Create(table)
	b := r.Create(table)
	if a == b {
		t.Fatal("ids must be distinct")
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 machines, got %d", r.Len())
	}

	if s, err := r.Send(a, PointerEnter); err != nil || s != Hovered {
		t.Fatalf("Send: %d, %v", s, err)
	}
	if s, _ := r.Current(b); s != Idle {
		t.Errorf("machines must be independent, b is %d", s)
	}
	if transitions != 1 {
		t.Errorf("default options should apply, got %d transitions", transitions)
	}

	r.Remove(a)
	if _, err := r.Send(a, PointerLeave); !errors.Is(err, ErrStaleMachine) {
		t.Errorf("expected ErrStaleMachine, got %v", err)
	}
	if _, err := r.Current(a); !errors.Is(err, ErrStaleMachine) {
		t.Errorf("expected ErrStaleMachine, got %v", err)
	}

	c := r.Create(table)
	if c == a {
		t.Error("ids must not be reused")
	}
	ids := r.IDs()
	if len(ids) != 2 || ids[0] != b || ids[1] != c {
		t.Errorf("unexpected ids %v", ids)
	}
}
