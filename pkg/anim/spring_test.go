package anim

import (
	"errors"
	"math"
	"testing"
)

const frameMs = float32(1000.0 / 60.0)

func TestSpringConfigValidate(t *testing.T) {
	nan := float32(math.NaN())
	tests := []struct {
		name string
		cfg  SpringConfig
		ok   bool
	}{
		{"default", SpringDefault, true},
		{"zero damping", SpringConfig{Stiffness: 100, Mass: 1}, true},
		{"zero stiffness", SpringConfig{Stiffness: 0, Damping: 10, Mass: 1}, false},
		{"negative mass", SpringConfig{Stiffness: 100, Damping: 10, Mass: -1}, false},
		{"negative damping", SpringConfig{Stiffness: 100, Damping: -1, Mass: 1}, false},
		{"nan stiffness", SpringConfig{Stiffness: nan, Damping: 10, Mass: 1}, false},
		{"negative epsilon", SpringConfig{Stiffness: 100, Damping: 10, Mass: 1, Epsilon: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidSpring) {
				t.Errorf("expected ErrInvalidSpring, got %v", err)
			}
		})
	}
}

func TestSpringClass(t *testing.T) {
	tests := []struct {
		cfg  SpringConfig
		want DampingClass
	}{
		{SpringConfig{Stiffness: 400, Damping: 25, Mass: 1}, Underdamped},
		{SpringConfig{Stiffness: 100, Damping: 20, Mass: 1}, Critical},
		{SpringMolasses, Overdamped},
	}
	for _, tt := range tests {
		if got := tt.cfg.Class(); got != tt.want {
			t.Errorf("%+v: class = %s, want %s", tt.cfg, got, tt.want)
		}
	}
	if r := (SpringConfig{Stiffness: 400, Damping: 25, Mass: 1}).DampingRatio(); math.Abs(float64(r)-0.625) > 1e-6 {
		t.Errorf("damping ratio = %g, want 0.625", r)
	}
}

func TestSpringOvershootAndSettle(t *testing.T) {
	s, err := NewSpring(SpringConfig{Stiffness: 400, Damping: 25, Mass: 1}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetTarget(1); err != nil {
		t.Fatal(err)
	}

	// zeta = 0.625 gives an overshoot of exp(-zeta*pi/sqrt(1-zeta^2)) ~ 8.1%.
	peak := float32(0)
	settledAt := -1
	for i := 0; i < 120; i++ {
		s.Step(frameMs)
		if v := s.Value(); v > peak {
			peak = v
		}
		if s.Settled() {
			settledAt = i
			break
		}
	}
	if peak < 1.06 || peak > 1.10 {
		t.Errorf("peak = %g, want about 1.081", peak)
	}
	if settledAt < 0 {
		t.Fatalf("spring not settled after 2s: value=%g velocity=%g", s.Value(), s.Velocity())
	}
	if s.Value() != 1 || s.Velocity() != 0 {
		t.Errorf("settled spring should snap: value=%g velocity=%g", s.Value(), s.Velocity())
	}
}

func TestSpringCriticalDoesNotOvershoot(t *testing.T) {
	s, _ := NewSpring(SpringConfig{Stiffness: 100, Damping: 20, Mass: 1}, 0)
	_ = s.SetTarget(1)
	for i := 0; i < 300 && !s.Settled(); i++ {
		s.Step(frameMs)
		if v := s.Value(); v > 1+DefaultEpsilon {
			t.Fatalf("critically damped spring overshot: %g", v)
		}
	}
	if !s.Settled() {
		t.Error("spring never settled")
	}
}

func TestSpringLargeStepStable(t *testing.T) {
	s, _ := NewSpring(SpringStiff, 0)
	_ = s.SetTarget(1)
	s.Step(1000)
	v := s.Value()
	if math.IsNaN(float64(v)) || math.Abs(float64(v-1)) > 0.01 {
		t.Errorf("after one 1s step value = %g", v)
	}
}

func TestSpringRetargetKeepsVelocity(t *testing.T) {
	s, _ := NewSpring(SpringDefault, 0)
	_ = s.SetTarget(100)
	for i := 0; i < 5; i++ {
		s.Step(frameMs)
	}
	v, x := s.Velocity(), s.Value()
	if v <= 0 {
		t.Fatalf("velocity = %g, want positive", v)
	}
	_ = s.SetTarget(-100)
	if s.Velocity() != v || s.Value() != x {
		t.Errorf("retarget changed state: value %g->%g velocity %g->%g", x, s.Value(), v, s.Velocity())
	}
	if s.Settled() {
		t.Error("retargeted spring should be active")
	}
}

func TestSpringSettledDoesNotMove(t *testing.T) {
	s, _ := NewSpring(SpringDefault, 5)
	if !s.Settled() {
		t.Fatal("new spring should be settled")
	}
	if s.Step(frameMs) {
		t.Error("settled spring should not move")
	}
	_ = s.SetTarget(5)
	if !s.Settled() {
		t.Error("retarget to the current value should stay settled")
	}
}

func TestSpringRetargetWithinEpsilonKeepsValue(t *testing.T) {
	s, _ := NewSpring(SpringDefault, 0)
	_ = s.SetTarget(0.0009)
	if s.Value() != 0 || s.Velocity() != 0 {
		t.Fatalf("retarget moved the spring: value=%g velocity=%g", s.Value(), s.Velocity())
	}
	if s.Settled() {
		t.Fatal("spring off its target should not be settled")
	}
	for i := 0; i < 120 && !s.Settled(); i++ {
		s.Step(frameMs)
	}
	if s.Value() != 0.0009 || !s.Settled() {
		t.Errorf("after step: value=%g settled=%v", s.Value(), s.Settled())
	}
}

func TestSpringSnapAndImpulse(t *testing.T) {
	s, _ := NewSpring(SpringDefault, 0)
	_ = s.SetTarget(10)
	s.Step(frameMs)
	if err := s.Snap(3); err != nil {
		t.Fatal(err)
	}
	if s.Value() != 3 || s.Target() != 3 || !s.Settled() {
		t.Errorf("after snap: value=%g target=%g settled=%v", s.Value(), s.Target(), s.Settled())
	}
	s.Impulse(50)
	if s.Settled() {
		t.Error("impulse should wake the spring")
	}
	if !s.Step(frameMs) || s.Value() <= 3 {
		t.Errorf("impulse should push the value up, got %g", s.Value())
	}
}

func TestSpringRejectsNonFinite(t *testing.T) {
	inf := float32(math.Inf(1))
	if _, err := NewSpring(SpringDefault, inf); !errors.Is(err, ErrInvalidSpring) {
		t.Errorf("NewSpring(inf): %v", err)
	}
	s, _ := NewSpring(SpringDefault, 0)
	if err := s.SetTarget(inf); !errors.Is(err, ErrInvalidSpring) {
		t.Errorf("SetTarget(inf): %v", err)
	}
}
