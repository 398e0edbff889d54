package anim

import (
	"math"
)

// DefaultEpsilon is the settle threshold for position and velocity.
const DefaultEpsilon = 1e-3

// maxSubsteps caps the RK4 sub-steps taken for one Step. Frame gaps that
// would need more are shortened.
const maxSubsteps = 1000

// SpringConfig holds the physical parameters of a spring.
type SpringConfig struct {
	Stiffness float32 `yaml:"stiffness" json:"stiffness"`
	Damping   float32 `yaml:"damping" json:"damping"`
	Mass      float32 `yaml:"mass" json:"mass"`

	// Epsilon is the settle threshold. Zero means DefaultEpsilon.
	Epsilon float32 `yaml:"epsilon,omitempty" json:"epsilon,omitempty"`
}

// Spring presets. Stiffness/damping pairs chosen for UI motion at mass 1.
var (
	SpringDefault  = SpringConfig{Stiffness: 170, Damping: 26, Mass: 1}
	SpringGentle   = SpringConfig{Stiffness: 120, Damping: 14, Mass: 1}
	SpringWobbly   = SpringConfig{Stiffness: 180, Damping: 12, Mass: 1}
	SpringStiff    = SpringConfig{Stiffness: 400, Damping: 30, Mass: 1}
	SpringSnappy   = SpringConfig{Stiffness: 300, Damping: 25, Mass: 1}
	SpringSlow     = SpringConfig{Stiffness: 280, Damping: 60, Mass: 1}
	SpringMolasses = SpringConfig{Stiffness: 280, Damping: 120, Mass: 1}
)

// SpringPresets maps preset names to configs.
var SpringPresets = map[string]SpringConfig{
	"default":  SpringDefault,
	"gentle":   SpringGentle,
	"wobbly":   SpringWobbly,
	"stiff":    SpringStiff,
	"snappy":   SpringSnappy,
	"slow":     SpringSlow,
	"molasses": SpringMolasses,
}

// Validate rejects non-finite or non-positive stiffness and mass, negative
// or non-finite damping, and a negative epsilon.
func (c SpringConfig) Validate() error {
	switch {
	case !finite32(c.Stiffness) || c.Stiffness <= 0:
		return ErrInvalidSpring.WithSubject("stiffness %g", c.Stiffness)
	case !finite32(c.Mass) || c.Mass <= 0:
		return ErrInvalidSpring.WithSubject("mass %g", c.Mass)
	case !finite32(c.Damping) || c.Damping < 0:
		return ErrInvalidSpring.WithSubject("damping %g", c.Damping)
	case !finite32(c.Epsilon) || c.Epsilon < 0:
		return ErrInvalidSpring.WithSubject("epsilon %g", c.Epsilon)
	}
	return nil
}

// CriticalDamping returns 2*sqrt(k*m), the damping at which the spring
// stops overshooting.
func (c SpringConfig) CriticalDamping() float32 {
	return float32(2 * math.Sqrt(float64(c.Stiffness)*float64(c.Mass)))
}

// DampingRatio returns c / (2*sqrt(k*m)).
func (c SpringConfig) DampingRatio() float32 {
	cd := c.CriticalDamping()
	if cd == 0 {
		return 0
	}
	return c.Damping / cd
}

// DampingClass classifies a spring by its damping ratio.
type DampingClass uint8

const (
	Underdamped DampingClass = iota + 1
	Critical
	Overdamped
)

// String returns the class name.
func (d DampingClass) String() string {
	switch d {
	case Underdamped:
		return "underdamped"
	case Critical:
		return "critical"
	case Overdamped:
		return "overdamped"
	}
	return "unknown"
}

// criticalTolerance is how close to 1 the damping ratio must be to count
// as critically damped.
const criticalTolerance = 1e-3

// Class returns the damping class.
func (c SpringConfig) Class() DampingClass {
	r := c.DampingRatio()
	switch {
	case math.Abs(float64(r)-1) <= criticalTolerance:
		return Critical
	case r < 1:
		return Underdamped
	}
	return Overdamped
}

func (c SpringConfig) epsilon() float64 {
	if c.Epsilon > 0 {
		return float64(c.Epsilon)
	}
	return DefaultEpsilon
}

// Spring is a damped harmonic oscillator integrated with RK4:
//
//	a = (-k*(x - target) - c*v) / m
//
// A Spring is not safe for concurrent use; the Scheduler serializes access.
type Spring struct {
	cfg      SpringConfig
	value    float32
	velocity float32
	target   float32
	settled  bool
}

// NewSpring creates a spring at rest at initial.
func NewSpring(cfg SpringConfig, initial float32) (*Spring, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !finite32(initial) {
		return nil, ErrInvalidSpring.WithSubject("initial value %g", initial)
	}
	return &Spring{
		cfg:     cfg,
		value:   initial,
		target:  initial,
		settled: true,
	}, nil
}

// Config returns the spring parameters.
func (s *Spring) Config() SpringConfig { return s.cfg }

// Value returns the current position.
func (s *Spring) Value() float32 { return s.value }

// Velocity returns the current velocity in units per second.
func (s *Spring) Velocity() float32 { return s.velocity }

// Target returns the rest position.
func (s *Spring) Target() float32 { return s.target }

// Settled reports whether the spring is at rest on its target.
func (s *Spring) Settled() bool { return s.settled }

// SetTarget moves the rest position. Value and velocity are kept, so an
// interrupted animation continues smoothly from where it was.
func (s *Spring) SetTarget(target float32) error {
	if !finite32(target) {
		return ErrInvalidSpring.WithSubject("target %g", target)
	}
	s.target = target
	// Only an exact hit stays settled; anything else, however close, is
	// left for Step to finish.
	s.settled = s.value == target && s.velocity == 0
	return nil
}

// Snap jumps to value with zero velocity and makes it the target.
func (s *Spring) Snap(value float32) error {
	if !finite32(value) {
		return ErrInvalidSpring.WithSubject("value %g", value)
	}
	s.value, s.velocity, s.target = value, 0, value
	s.settled = true
	return nil
}

// Impulse adds to the velocity, for flings.
func (s *Spring) Impulse(dv float32) {
	if !finite32(dv) || dv == 0 {
		return
	}
	s.velocity += dv
	s.settled = false
}

// SetConfig swaps the physical parameters, keeping position and velocity.
func (s *Spring) SetConfig(cfg SpringConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}

func (s *Spring) atRest() bool {
	eps := s.cfg.epsilon()
	return math.Abs(float64(s.value-s.target)) < eps && math.Abs(float64(s.velocity)) < eps
}

// Step advances the spring by dtMs milliseconds and reports whether it
// moved. A settled spring does not move. The step is split into sub-steps
// of length h with h*max(sqrt(k/m), c/m) <= 1, which keeps RK4 stable for
// large frame gaps and stiff springs.
func (s *Spring) Step(dtMs float32) bool {
	if s.settled || !(dtMs > 0) || !finite32(dtMs) {
		return false
	}

	k := float64(s.cfg.Stiffness)
	c := float64(s.cfg.Damping)
	m := float64(s.cfg.Mass)
	target := float64(s.target)

	dt := float64(dtMs) / 1000
	rate := math.Max(math.Sqrt(k/m), c/m)
	n := 1
	if rate*dt > 1 {
		n = int(math.Ceil(rate * dt))
	}
	if n > maxSubsteps {
		n = maxSubsteps
		dt = float64(maxSubsteps) / rate
	}
	h := dt / float64(n)

	accel := func(x, v float64) float64 {
		return (-k*(x-target) - c*v) / m
	}

	x, v := float64(s.value), float64(s.velocity)
	for i := 0; i < n; i++ {
		k1x, k1v := v, accel(x, v)
		k2x, k2v := v+h/2*k1v, accel(x+h/2*k1x, v+h/2*k1v)
		k3x, k3v := v+h/2*k2v, accel(x+h/2*k2x, v+h/2*k2v)
		k4x, k4v := v+h*k3v, accel(x+h*k3x, v+h*k3v)
		x += h / 6 * (k1x + 2*k2x + 2*k3x + k4x)
		v += h / 6 * (k1v + 2*k2v + 2*k3v + k4v)
	}

	fx, fv := float32(x), float32(v)
	if !finite32(fx) || !finite32(fv) {
		fx, fv = s.target, 0
	}
	s.value, s.velocity = fx, fv

	if s.atRest() {
		s.value, s.velocity = s.target, 0
		s.settled = true
	}
	return true
}

func finite32(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}
