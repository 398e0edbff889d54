package anim

import (
	"math"
)

// Infinite makes an animation or timeline repeat forever.
const Infinite = -1

// Keyframe is one point of a keyframe animation.
type Keyframe struct {
	// T is the position in the animation, in [0,1].
	T float32 `json:"t" yaml:"t"`

	// Value is the value at T. Ignored for wildcards.
	Value float32 `json:"value" yaml:"value"`

	// Wildcard marks a keyframe whose value is taken from the value the
	// animation starts from.
	Wildcard bool `json:"wildcard,omitempty" yaml:"wildcard,omitempty"`

	// Easing shapes the segment ending at this keyframe. The zero value
	// uses the animation's easing.
	Easing Easing `json:"easing,omitempty" yaml:"easing,omitempty"`
}

// At returns a keyframe with a fixed value.
func At(t, value float32) Keyframe {
	return Keyframe{T: t, Value: value}
}

// FromStart returns a wildcard keyframe.
func FromStart(t float32) Keyframe {
	return Keyframe{T: t, Wildcard: true}
}

// Ease returns k with its own easing.
func (k Keyframe) Ease(e Easing) Keyframe {
	k.Easing = e
	return k
}

// Direction controls the order in which iterations play.
type Direction uint8

const (
	Normal Direction = iota
	Reverse
	Alternate
	AlternateReverse
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Normal:
		return "normal"
	case Reverse:
		return "reverse"
	case Alternate:
		return "alternate"
	case AlternateReverse:
		return "alternate-reverse"
	}
	return "unknown"
}

// KeyframeAnimation plays a keyframe sequence over a fixed duration.
//
// Time only moves when Tick is called. The value is found by locating the
// keyframes bracketing the current progress, easing the local progress
// between them and interpolating linearly. Before the first keyframe the
// first value holds; after the last the last value holds.
type KeyframeAnimation struct {
	durationMs float32
	frames     []Keyframe
	resolved   []Keyframe
	easing     Easing
	iterations int
	direction  Direction

	elapsed float32
	playing bool
	paused  bool
	started bool

	timeline *Timeline
}

// KeyframeOption configures a KeyframeAnimation.
type KeyframeOption func(*KeyframeAnimation)

// WithEasing sets the easing used by keyframes without their own.
func WithEasing(e Easing) KeyframeOption {
	return func(a *KeyframeAnimation) {
		a.easing = e
	}
}

// WithIterations sets the play count. Infinite repeats forever; values
// below 1 otherwise mean 1.
func WithIterations(n int) KeyframeOption {
	return func(a *KeyframeAnimation) {
		switch {
		case n == Infinite:
			a.iterations = Infinite
		case n < 1:
			a.iterations = 1
		default:
			a.iterations = n
		}
	}
}

// WithDirection sets the playback direction.
func WithDirection(d Direction) KeyframeOption {
	return func(a *KeyframeAnimation) {
		a.direction = d
	}
}

// NewKeyframes validates frames and returns a stopped animation.
// Frames need T in [0,1], non-decreasing, and finite values.
func NewKeyframes(durationMs float32, frames []Keyframe, opts ...KeyframeOption) (*KeyframeAnimation, error) {
	if len(frames) == 0 {
		return nil, ErrEmptyKeyframes
	}
	if !finite32(durationMs) || durationMs < 0 {
		return nil, ErrInvalidKeyframe.WithSubject("duration %gms", durationMs)
	}
	prev := float32(0)
	for i, f := range frames {
		if !finite32(f.T) || f.T < 0 || f.T > 1 {
			return nil, ErrInvalidKeyframe.WithSubject("keyframe %d: t=%g outside [0,1]", i, f.T)
		}
		if f.T < prev {
			return nil, ErrInvalidKeyframe.WithSubject("keyframe %d: t=%g before %g", i, f.T, prev)
		}
		if !f.Wildcard && !finite32(f.Value) {
			return nil, ErrInvalidKeyframe.WithSubject("keyframe %d: value %g", i, f.Value)
		}
		prev = f.T
	}

	a := &KeyframeAnimation{
		durationMs: durationMs,
		frames:     append([]Keyframe(nil), frames...),
		easing:     Linear,
		iterations: 1,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.resolve(0)
	return a, nil
}

// resolve replaces wildcards with from.
func (a *KeyframeAnimation) resolve(from float32) {
	a.resolved = append(a.resolved[:0], a.frames...)
	for i := range a.resolved {
		if a.resolved[i].Wildcard {
			a.resolved[i].Value = from
		}
	}
}

// Start plays from the beginning. Wildcard keyframes take the value from.
func (a *KeyframeAnimation) Start(from float32) {
	if !finite32(from) {
		from = 0
	}
	a.resolve(from)
	a.elapsed = 0
	a.playing = true
	a.paused = false
	a.started = true
}

// Stop halts playback, keeping the current value.
func (a *KeyframeAnimation) Stop() {
	a.playing = false
	a.paused = false
}

// Pause suspends a playing animation.
func (a *KeyframeAnimation) Pause() {
	if a.playing {
		a.paused = true
	}
}

// Resume continues a paused animation.
func (a *KeyframeAnimation) Resume() {
	a.paused = false
}

// Seek moves to ms from the start of the first iteration. Seeking to or past
// the end finishes the animation.
func (a *KeyframeAnimation) Seek(ms float32) {
	if !finite32(ms) || ms < 0 {
		ms = 0
	}
	total := a.TotalDuration()
	if ms >= total {
		a.elapsed = total
		a.playing = false
		a.paused = false
		return
	}
	a.elapsed = ms
}

// Tick advances a playing animation by dtMs and reports whether it was
// playing. Reaching the end stops it with the value on the final keyframe.
func (a *KeyframeAnimation) Tick(dtMs float32) bool {
	if !a.playing || a.paused {
		return false
	}
	if finite32(dtMs) && dtMs > 0 {
		a.elapsed += dtMs
	}
	if total := a.TotalDuration(); a.elapsed >= total {
		a.elapsed = total
		a.playing = false
	}
	return true
}

// Playing reports whether the animation advances on Tick.
func (a *KeyframeAnimation) Playing() bool {
	return a.playing && !a.paused
}

// Paused reports whether the animation is paused.
func (a *KeyframeAnimation) Paused() bool {
	return a.paused
}

// Finished reports whether the animation was started and ran to its end.
func (a *KeyframeAnimation) Finished() bool {
	return a.started && !a.playing && a.elapsed >= a.TotalDuration()
}

// Duration returns the length of one iteration in milliseconds.
func (a *KeyframeAnimation) Duration() float32 {
	return a.durationMs
}

// TotalDuration returns the length of all iterations, +Inf when infinite.
func (a *KeyframeAnimation) TotalDuration() float32 {
	if a.iterations == Infinite {
		return float32(math.Inf(1))
	}
	return a.durationMs * float32(a.iterations)
}

// Elapsed returns the milliseconds played since Start.
func (a *KeyframeAnimation) Elapsed() float32 {
	return a.elapsed
}

// Iteration returns the zero-based iteration being played.
func (a *KeyframeAnimation) Iteration() int {
	it, _ := a.position()
	return it
}

// Progress returns the progress through the whole animation in [0,1]. For
// infinite animations it is the progress through the current iteration.
// A zero duration counts as complete.
func (a *KeyframeAnimation) Progress() float32 {
	if a.durationMs == 0 {
		return 1
	}
	if a.iterations == Infinite {
		_, local := a.position()
		return local / a.durationMs
	}
	return clamp01(a.elapsed / a.TotalDuration())
}

// position splits elapsed into an iteration index and the time within it.
// The end of the last iteration maps to (last, duration), not (n, 0).
func (a *KeyframeAnimation) position() (int, float32) {
	if a.durationMs == 0 {
		last := 0
		if a.iterations > 1 {
			last = a.iterations - 1
		}
		return last, 0
	}
	it := int(a.elapsed / a.durationMs)
	local := a.elapsed - float32(it)*a.durationMs
	if a.iterations != Infinite && it >= a.iterations {
		return a.iterations - 1, a.durationMs
	}
	if it > 0 && local == 0 && !a.playing {
		return it - 1, a.durationMs
	}
	return it, local
}

func (a *KeyframeAnimation) reversed(iteration int) bool {
	switch a.direction {
	case Reverse:
		return true
	case Alternate:
		return iteration%2 == 1
	case AlternateReverse:
		return iteration%2 == 0
	}
	return false
}

// Value returns the animated value at the current time.
func (a *KeyframeAnimation) Value() float32 {
	it, local := a.position()
	p := float32(1)
	if a.durationMs > 0 {
		p = clamp01(local / a.durationMs)
	}
	if a.reversed(it) {
		p = 1 - p
	}
	return sample(a.resolved, p, a.easing)
}

// ValueAt returns the value at progress p of a single forward iteration.
func (a *KeyframeAnimation) ValueAt(p float32) float32 {
	return sample(a.resolved, clamp01(p), a.easing)
}

// Keyframes returns a copy of the declared keyframes.
func (a *KeyframeAnimation) Keyframes() []Keyframe {
	return append([]Keyframe(nil), a.frames...)
}

// sample interpolates frames at progress p. It assumes frames are
// non-empty and sorted by T.
func sample(frames []Keyframe, p float32, fallback Easing) float32 {
	first, last := frames[0], frames[len(frames)-1]
	if p <= first.T {
		return first.Value
	}
	if p >= last.T {
		return last.Value
	}

	i := 1
	for frames[i].T < p {
		i++
	}
	next := frames[i]
	if next.T == p {
		return next.Value
	}
	prev := frames[i-1]
	local := (p - prev.T) / (next.T - prev.T)
	eased := next.Easing.Or(fallback).Apply(local)
	return prev.Value + (next.Value-prev.Value)*eased
}
