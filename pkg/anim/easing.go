package anim

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type easingKind uint8

const (
	easeInherit easingKind = iota
	easeLinear
	easeIn
	easeOut
	easeInOut
	easeInQuad
	easeOutQuad
	easeInOutQuad
	easeInCubic
	easeOutCubic
	easeInOutCubic
	easeInQuart
	easeOutQuart
	easeInOutQuart
	easeBezier
)

// Easing maps linear progress in [0,1] to eased progress. The zero value
// means "inherit": a keyframe without its own easing uses the animation's.
type Easing struct {
	kind           easingKind
	x1, y1, x2, y2 float32
}

// Named curves. EaseIn/EaseOut/EaseInOut are cubic.
var (
	Linear         = Easing{kind: easeLinear}
	EaseIn         = Easing{kind: easeIn}
	EaseOut        = Easing{kind: easeOut}
	EaseInOut      = Easing{kind: easeInOut}
	EaseInQuad     = Easing{kind: easeInQuad}
	EaseOutQuad    = Easing{kind: easeOutQuad}
	EaseInOutQuad  = Easing{kind: easeInOutQuad}
	EaseInCubic    = Easing{kind: easeInCubic}
	EaseOutCubic   = Easing{kind: easeOutCubic}
	EaseInOutCubic = Easing{kind: easeInOutCubic}
	EaseInQuart    = Easing{kind: easeInQuart}
	EaseOutQuart   = Easing{kind: easeOutQuart}
	EaseInOutQuart = Easing{kind: easeInOutQuart}

	// CSS named timing functions.
	CSSEase      = CubicBezier(0.25, 0.1, 0.25, 1)
	CSSEaseIn    = CubicBezier(0.42, 0, 1, 1)
	CSSEaseOut   = CubicBezier(0, 0, 0.58, 1)
	CSSEaseInOut = CubicBezier(0.42, 0, 0.58, 1)
)

var easingNames = []struct {
	name string
	e    Easing
}{
	{"linear", Linear},
	{"ease-in", EaseIn},
	{"ease-out", EaseOut},
	{"ease-in-out", EaseInOut},
	{"ease-in-quad", EaseInQuad},
	{"ease-out-quad", EaseOutQuad},
	{"ease-in-out-quad", EaseInOutQuad},
	{"ease-in-cubic", EaseInCubic},
	{"ease-out-cubic", EaseOutCubic},
	{"ease-in-out-cubic", EaseInOutCubic},
	{"ease-in-quart", EaseInQuart},
	{"ease-out-quart", EaseOutQuart},
	{"ease-in-out-quart", EaseInOutQuart},
	{"css-ease", CSSEase},
	{"css-ease-in", CSSEaseIn},
	{"css-ease-out", CSSEaseOut},
	{"css-ease-in-out", CSSEaseInOut},
}

// CubicBezier returns a CSS-style cubic-bezier(x1, y1, x2, y2) curve with
// endpoints (0,0) and (1,1). x1 and x2 are clamped to [0,1] so the curve is
// a function of x.
func CubicBezier(x1, y1, x2, y2 float32) Easing {
	return Easing{
		kind: easeBezier,
		x1:   clamp01(x1),
		y1:   y1,
		x2:   clamp01(x2),
		y2:   y2,
	}
}

// IsZero reports whether e is the inherit marker.
func (e Easing) IsZero() bool {
	return e.kind == easeInherit
}

// Or returns e, or fallback when e is the inherit marker.
func (e Easing) Or(fallback Easing) Easing {
	if e.kind == easeInherit {
		return fallback
	}
	return e
}

// Apply maps t (clamped to [0,1]) through the curve.
func (e Easing) Apply(t float32) float32 {
	t = clamp01(t)
	switch e.kind {
	case easeInherit, easeLinear:
		return t
	case easeIn, easeInCubic:
		return t * t * t
	case easeOut, easeOutCubic:
		u := 1 - t
		return 1 - u*u*u
	case easeInOut, easeInOutCubic:
		if t < 0.5 {
			return 4 * t * t * t
		}
		u := -2*t + 2
		return 1 - u*u*u/2
	case easeInQuad:
		return t * t
	case easeOutQuad:
		return 1 - (1-t)*(1-t)
	case easeInOutQuad:
		if t < 0.5 {
			return 2 * t * t
		}
		u := -2*t + 2
		return 1 - u*u/2
	case easeInQuart:
		return t * t * t * t
	case easeOutQuart:
		u := 1 - t
		return 1 - u*u*u*u
	case easeInOutQuart:
		if t < 0.5 {
			return 8 * t * t * t * t
		}
		u := -2*t + 2
		return 1 - u*u*u*u/2
	case easeBezier:
		return bezierEase(t, e.x1, e.y1, e.x2, e.y2)
	}
	return t
}

// String returns the name accepted by ParseEasing.
func (e Easing) String() string {
	if e.kind == easeInherit {
		return "inherit"
	}
	for _, n := range easingNames {
		if n.e == e {
			return n.name
		}
	}
	if e.kind == easeBezier {
		return fmt.Sprintf("cubic-bezier(%g, %g, %g, %g)", e.x1, e.y1, e.x2, e.y2)
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (e Easing) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Easing) UnmarshalText(b []byte) error {
	v, err := ParseEasing(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// ParseEasing parses a curve name or "cubic-bezier(x1, y1, x2, y2)".
func ParseEasing(s string) (Easing, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "inherit" {
		return Easing{}, nil
	}
	for _, n := range easingNames {
		if n.name == s {
			return n.e, nil
		}
	}
	if args, ok := strings.CutPrefix(s, "cubic-bezier("); ok {
		args, ok = strings.CutSuffix(args, ")")
		if !ok {
			return Easing{}, fmt.Errorf("anim: malformed easing %q", s)
		}
		parts := strings.Split(args, ",")
		if len(parts) != 4 {
			return Easing{}, fmt.Errorf("anim: cubic-bezier needs 4 numbers, got %d", len(parts))
		}
		var p [4]float32
		for i, part := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
			if err != nil {
				return Easing{}, fmt.Errorf("anim: easing %q: %w", s, err)
			}
			p[i] = float32(f)
		}
		return CubicBezier(p[0], p[1], p[2], p[3]), nil
	}
	return Easing{}, fmt.Errorf("anim: unknown easing %q", s)
}

// EasingNames lists the named curves in a stable order.
func EasingNames() []string {
	out := make([]string, len(easingNames))
	for i, n := range easingNames {
		out[i] = n.name
	}
	return out
}

const (
	newtonIterations = 8
	newtonMinSlope   = 1e-6
	bisectIterations = 32
	bezierPrecision  = 1e-7
)

// bezierEase solves x(u) = t for the curve parameter u, then returns y(u).
// Newton's method converges quickly on most curves; when the slope gets too
// flat it falls back to bisection, which always converges on [0,1].
func bezierEase(t, x1, y1, x2, y2 float32) float32 {
	if t == 0 || t == 1 {
		return t
	}
	ax, ay := float64(x1), float64(y1)
	bx, by := float64(x2), float64(y2)
	x := float64(t)

	u := x
	for i := 0; i < newtonIterations; i++ {
		dx := bezierSample(u, ax, bx) - x
		if math.Abs(dx) < bezierPrecision {
			return float32(bezierSample(u, ay, by))
		}
		slope := bezierSlope(u, ax, bx)
		if math.Abs(slope) < newtonMinSlope {
			break
		}
		u -= dx / slope
	}

	if u < 0 || u > 1 || math.Abs(bezierSample(u, ax, bx)-x) >= bezierPrecision {
		lo, hi := 0.0, 1.0
		u = x
		for i := 0; i < bisectIterations; i++ {
			v := bezierSample(u, ax, bx)
			if math.Abs(v-x) < bezierPrecision {
				break
			}
			if v < x {
				lo = u
			} else {
				hi = u
			}
			u = (lo + hi) / 2
		}
	}
	return float32(bezierSample(u, ay, by))
}

// bezierSample evaluates one coordinate of the curve with endpoints 0 and 1.
func bezierSample(u, p1, p2 float64) float64 {
	a := 1 - 3*p2 + 3*p1
	b := 3*p2 - 6*p1
	c := 3 * p1
	return ((a*u+b)*u + c) * u
}

func bezierSlope(u, p1, p2 float64) float64 {
	a := 1 - 3*p2 + 3*p1
	b := 3*p2 - 6*p1
	c := 3 * p1
	return (3*a*u+2*b)*u + c
}

func clamp01(t float32) float32 {
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	}
	return t
}
