package anim

import (
	"fmt"
	"sort"
	"strings"
)

// Property names a visual property a preset animates.
type Property uint8

const (
	Opacity Property = iota + 1
	Scale
	TranslateX
	TranslateY
	Rotation
)

// String returns the property name.
func (p Property) String() string {
	switch p {
	case Opacity:
		return "opacity"
	case Scale:
		return "scale"
	case TranslateX:
		return "translateX"
	case TranslateY:
		return "translateY"
	case Rotation:
		return "rotation"
	}
	return "unknown"
}

// Track is the keyframe list of one property.
type Track struct {
	Property Property
	Frames   []Keyframe
}

// Preset is a named multi-property animation. Each track becomes one
// KeyframeAnimation of the same duration.
type Preset struct {
	Name       string
	DurationMs float32
	Tracks     []Track
}

// Build creates one stopped animation per track.
func (p Preset) Build(opts ...KeyframeOption) (map[Property]*KeyframeAnimation, error) {
	out := make(map[Property]*KeyframeAnimation, len(p.Tracks))
	for _, tr := range p.Tracks {
		a, err := NewKeyframes(p.DurationMs, tr.Frames, opts...)
		if err != nil {
			return nil, fmt.Errorf("preset %s %s: %w", p.Name, tr.Property, err)
		}
		out[tr.Property] = a
	}
	return out, nil
}

// Track returns the frames animating prop.
func (p Preset) Track(prop Property) ([]Keyframe, bool) {
	for _, tr := range p.Tracks {
		if tr.Property == prop {
			return tr.Frames, true
		}
	}
	return nil, false
}

// step is one row of a preset: values for several properties at one t.
type step struct {
	t      float32
	values map[Property]float32
	easing Easing
}

func preset(name string, durationMs float32, steps ...step) Preset {
	var props []Property
	seen := map[Property]bool{}
	for _, s := range steps {
		for prop := range s.values {
			if !seen[prop] {
				seen[prop] = true
				props = append(props, prop)
			}
		}
	}
	sort.Slice(props, func(i, j int) bool { return props[i] < props[j] })

	p := Preset{Name: name, DurationMs: durationMs}
	for _, prop := range props {
		tr := Track{Property: prop}
		for _, s := range steps {
			if v, ok := s.values[prop]; ok {
				tr.Frames = append(tr.Frames, Keyframe{T: s.t, Value: v, Easing: s.easing})
			}
		}
		p.Tracks = append(p.Tracks, tr)
	}
	return p
}

func at(t float32, e Easing, values map[Property]float32) step {
	return step{t: t, values: values, easing: e}
}

// FadeIn animates opacity 0 to 1.
func FadeIn(durationMs float32) Preset {
	return preset("fade-in", durationMs,
		at(0, Linear, map[Property]float32{Opacity: 0}),
		at(1, EaseOut, map[Property]float32{Opacity: 1}),
	)
}

// FadeOut animates opacity 1 to 0.
func FadeOut(durationMs float32) Preset {
	return preset("fade-out", durationMs,
		at(0, Linear, map[Property]float32{Opacity: 1}),
		at(1, EaseIn, map[Property]float32{Opacity: 0}),
	)
}

// ScaleIn grows from nothing while fading in.
func ScaleIn(durationMs float32) Preset {
	return preset("scale-in", durationMs,
		at(0, Linear, map[Property]float32{Scale: 0, Opacity: 0}),
		at(1, EaseOutCubic, map[Property]float32{Scale: 1, Opacity: 1}),
	)
}

// ScaleOut shrinks to nothing while fading out.
func ScaleOut(durationMs float32) Preset {
	return preset("scale-out", durationMs,
		at(0, Linear, map[Property]float32{Scale: 1, Opacity: 1}),
		at(1, EaseInCubic, map[Property]float32{Scale: 0, Opacity: 0}),
	)
}

// PopIn scales in past full size and settles back.
func PopIn(durationMs float32) Preset {
	return preset("pop-in", durationMs,
		at(0, Linear, map[Property]float32{Scale: 0, Opacity: 0}),
		at(0.7, EaseOut, map[Property]float32{Scale: 1.1, Opacity: 1}),
		at(1, EaseInOut, map[Property]float32{Scale: 1, Opacity: 1}),
	)
}

// Edge is the side a slide enters from or leaves to.
type Edge uint8

const (
	Left Edge = iota
	Right
	Top
	Bottom
)

// String returns the edge name.
func (e Edge) String() string {
	switch e {
	case Left:
		return "left"
	case Right:
		return "right"
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	}
	return "unknown"
}

// offset returns the property and signed distance for an edge.
func (e Edge) offset(distance float32) (Property, float32) {
	switch e {
	case Left:
		return TranslateX, -distance
	case Right:
		return TranslateX, distance
	case Top:
		return TranslateY, -distance
	}
	return TranslateY, distance
}

// SlideIn moves in from edge by distance while fading in.
func SlideIn(edge Edge, durationMs, distance float32) Preset {
	prop, d := edge.offset(distance)
	return preset("slide-in-"+edge.String(), durationMs,
		at(0, Linear, map[Property]float32{prop: d, Opacity: 0}),
		at(1, EaseOutCubic, map[Property]float32{prop: 0, Opacity: 1}),
	)
}

// SlideOut moves out to edge by distance while fading out.
func SlideOut(edge Edge, durationMs, distance float32) Preset {
	prop, d := edge.offset(distance)
	return preset("slide-out-"+edge.String(), durationMs,
		at(0, Linear, map[Property]float32{prop: 0, Opacity: 1}),
		at(1, EaseInCubic, map[Property]float32{prop: d, Opacity: 0}),
	)
}

// BounceIn overshoots twice before settling at full size.
func BounceIn(durationMs float32) Preset {
	return preset("bounce-in", durationMs,
		at(0, Linear, map[Property]float32{Scale: 0, Opacity: 0}),
		at(0.5, EaseOut, map[Property]float32{Scale: 1.15, Opacity: 1}),
		at(0.75, EaseInOut, map[Property]float32{Scale: 0.95, Opacity: 1}),
		at(1, EaseOut, map[Property]float32{Scale: 1, Opacity: 1}),
	)
}

// BounceOut swells briefly, then shrinks away.
func BounceOut(durationMs float32) Preset {
	return preset("bounce-out", durationMs,
		at(0, Linear, map[Property]float32{Scale: 1, Opacity: 1}),
		at(0.25, EaseOut, map[Property]float32{Scale: 1.1, Opacity: 1}),
		at(1, EaseIn, map[Property]float32{Scale: 0, Opacity: 0}),
	)
}

// Shake oscillates horizontally with decaying amplitude.
func Shake(durationMs, intensity float32) Preset {
	x := func(v float32) map[Property]float32 { return map[Property]float32{TranslateX: v} }
	return preset("shake", durationMs,
		at(0, Linear, x(0)),
		at(0.1, EaseOut, x(-intensity)),
		at(0.3, EaseInOut, x(intensity)),
		at(0.5, EaseInOut, x(-0.8*intensity)),
		at(0.7, EaseInOut, x(0.6*intensity)),
		at(0.9, EaseInOut, x(-0.3*intensity)),
		at(1, EaseOut, x(0)),
	)
}

// Pulse swells and returns to full size.
func Pulse(durationMs float32) Preset {
	return preset("pulse", durationMs,
		at(0, Linear, map[Property]float32{Scale: 1}),
		at(0.5, EaseInOut, map[Property]float32{Scale: 1.1}),
		at(1, EaseInOut, map[Property]float32{Scale: 1}),
	)
}

// Spin rotates one full turn.
func Spin(durationMs float32) Preset {
	return preset("spin", durationMs,
		at(0, Linear, map[Property]float32{Rotation: 0}),
		at(1, Linear, map[Property]float32{Rotation: 360}),
	)
}

// Default parameters for PresetByName.
const (
	DefaultSlideDistance  = 20
	DefaultShakeIntensity = 10
)

var presetNames = map[string]func(durationMs float32) Preset{
	"fade-in":          FadeIn,
	"fade-out":         FadeOut,
	"scale-in":         ScaleIn,
	"scale-out":        ScaleOut,
	"pop-in":           PopIn,
	"bounce-in":        BounceIn,
	"bounce-out":       BounceOut,
	"pulse":            Pulse,
	"spin":             Spin,
	"shake":            func(d float32) Preset { return Shake(d, DefaultShakeIntensity) },
	"slide-in-left":    slideInDefault(Left),
	"slide-in-right":   slideInDefault(Right),
	"slide-in-top":     slideInDefault(Top),
	"slide-in-bottom":  slideInDefault(Bottom),
	"slide-out-left":   slideOutDefault(Left),
	"slide-out-right":  slideOutDefault(Right),
	"slide-out-top":    slideOutDefault(Top),
	"slide-out-bottom": slideOutDefault(Bottom),
}

func slideInDefault(e Edge) func(float32) Preset {
	return func(d float32) Preset { return SlideIn(e, d, DefaultSlideDistance) }
}

func slideOutDefault(e Edge) func(float32) Preset {
	return func(d float32) Preset { return SlideOut(e, d, DefaultSlideDistance) }
}

// PresetByName returns a preset by its kebab-case name, using default slide
// distance and shake intensity.
func PresetByName(name string, durationMs float32) (Preset, bool) {
	f, ok := presetNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Preset{}, false
	}
	return f(durationMs), true
}

// PresetNames lists the names PresetByName accepts, sorted.
func PresetNames() []string {
	out := make([]string, 0, len(presetNames))
	for n := range presetNames {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
