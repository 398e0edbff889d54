package anim

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStaggerOffsets(t *testing.T) {
	tests := []struct {
		name  string
		s     Stagger
		total int
		want  []int32
	}{
		{"forward", Stagger{DelayMs: 50}, 4, []int32{0, 50, 100, 150}},
		{"reverse", Stagger{DelayMs: 50, Direction: StaggerReverse}, 4, []int32{150, 100, 50, 0}},
		{"center odd", Stagger{DelayMs: 50, Direction: StaggerFromCenter}, 5, []int32{100, 50, 0, 50, 100}},
		{"center even", Stagger{DelayMs: 50, Direction: StaggerFromCenter}, 4, []int32{50, 0, 0, 50}},
		{"edges", Stagger{DelayMs: 50, Direction: StaggerFromEdges}, 5, []int32{0, 50, 100, 50, 0}},
		{"limit", Stagger{DelayMs: 50, Limit: 2}, 5, []int32{0, 50, 100, 100, 100}},
		{"max spread", Stagger{DelayMs: 50, MaxSpreadMs: 100}, 5, []int32{0, 25, 50, 75, 100}},
		{"spread not reached", Stagger{DelayMs: 10, MaxSpreadMs: 100}, 3, []int32{0, 10, 20}},
		{"single", Stagger{DelayMs: 50}, 1, []int32{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make([]int32, tt.total)
			for i := range got {
				got[i] = tt.s.Offset(i, tt.total)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("offsets mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStaggerOutOfRange(t *testing.T) {
	s := Stagger{DelayMs: 50}
	for _, idx := range []int{-1, 3, 10} {
		if o := s.Offset(idx, 3); o != 0 {
			t.Errorf("Offset(%d, 3) = %d, want 0", idx, o)
		}
	}
	if o := s.Offset(0, 0); o != 0 {
		t.Errorf("empty group offset = %d", o)
	}
}

func TestStaggerSpan(t *testing.T) {
	if s := (Stagger{DelayMs: 50}).Span(4); s != 150 {
		t.Errorf("span = %d, want 150", s)
	}
	if s := (Stagger{DelayMs: 50, MaxSpreadMs: 90}).Span(4); s != 90 {
		t.Errorf("capped span = %d, want 90", s)
	}
	if s := (Stagger{DelayMs: 50, Direction: StaggerFromCenter}).Span(5); s != 100 {
		t.Errorf("center span = %d, want 100", s)
	}
}
