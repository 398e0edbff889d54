package anim

import (
	"math"
)

// maxLoopsPerTick bounds how many timeline loops one Tick may wrap through.
const maxLoopsPerTick = 64

type timelineEntry struct {
	anim    *KeyframeAnimation
	offset  int32
	started bool
}

// Timeline plays keyframe animations at millisecond offsets from a common
// start. Negative offsets start a child part-way through. A keyframe
// animation belongs to at most one timeline, which then owns its clock.
type Timeline struct {
	entries []*timelineEntry
	elapsed float32
	playing bool
	loops   int
	loop    int
}

// NewTimeline returns an empty timeline that plays once.
func NewTimeline() *Timeline {
	return &Timeline{loops: 1}
}

// Add schedules a at offsetMs.
func (t *Timeline) Add(a *KeyframeAnimation, offsetMs int32) error {
	if a == nil {
		return ErrInvalidTimeline.WithSubject("nil animation")
	}
	if a.timeline != nil {
		return ErrInvalidTimeline.WithSubject("animation already belongs to a timeline")
	}
	a.timeline = t
	t.entries = append(t.entries, &timelineEntry{anim: a, offset: offsetMs})
	return nil
}

// AddStaggered schedules anims at base plus the stagger offset of each.
func (t *Timeline) AddStaggered(anims []*KeyframeAnimation, baseMs int32, s Stagger) error {
	for i, a := range anims {
		if err := t.Add(a, baseMs+s.Offset(i, len(anims))); err != nil {
			return err
		}
	}
	return nil
}

// Remove detaches a. It reports whether a was on the timeline.
func (t *Timeline) Remove(a *KeyframeAnimation) bool {
	for i, e := range t.entries {
		if e.anim == a {
			a.timeline = nil
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of scheduled animations.
func (t *Timeline) Len() int {
	return len(t.entries)
}

// Offset returns the offset of a and whether a is on the timeline.
func (t *Timeline) Offset(a *KeyframeAnimation) (int32, bool) {
	for _, e := range t.entries {
		if e.anim == a {
			return e.offset, true
		}
	}
	return 0, false
}

// SetLoops sets how many times the timeline plays. Infinite repeats forever;
// values below 1 otherwise mean 1.
func (t *Timeline) SetLoops(n int) {
	switch {
	case n == Infinite:
		t.loops = Infinite
	case n < 1:
		t.loops = 1
	default:
		t.loops = n
	}
}

// Loops returns the configured loop count.
func (t *Timeline) Loops() int {
	return t.loops
}

// Loop returns the zero-based loop being played.
func (t *Timeline) Loop() int {
	return t.loop
}

// Duration returns the end of the latest child, offset included.
func (t *Timeline) Duration() float32 {
	var d float32
	for _, e := range t.entries {
		end := float32(e.offset) + e.anim.TotalDuration()
		if end > d {
			d = end
		}
	}
	return d
}

// Elapsed returns the time played in the current loop.
func (t *Timeline) Elapsed() float32 {
	return t.elapsed
}

// Playing reports whether the timeline advances on Tick.
func (t *Timeline) Playing() bool {
	return t.playing
}

// Progress returns the progress through the current loop in [0,1].
func (t *Timeline) Progress() float32 {
	d := t.Duration()
	if d == 0 || math.IsInf(float64(d), 1) {
		if t.playing {
			return 0
		}
		return 1
	}
	return clamp01(t.elapsed / d)
}

// Start plays from the beginning. Children with offsets at or before zero
// start at once, advanced by how far before zero they begin.
func (t *Timeline) Start() {
	t.loop = 0
	t.playing = true
	t.restart()
}

// Stop halts the timeline and all its children.
func (t *Timeline) Stop() {
	t.playing = false
	for _, e := range t.entries {
		e.anim.Stop()
	}
}

func (t *Timeline) restart() {
	t.elapsed = 0
	for _, e := range t.entries {
		e.started = false
		if e.offset <= 0 {
			t.begin(e)
			e.anim.Tick(-float32(e.offset))
		}
	}
}

func (t *Timeline) begin(e *timelineEntry) {
	e.started = true
	e.anim.Start(e.anim.Value())
}

// Tick advances the timeline by dtMs and reports whether it was playing.
// Each child advances by the overlap of its own span with the tick window
// and starts when the window reaches its offset.
func (t *Timeline) Tick(dtMs float32) bool {
	if !t.playing {
		return false
	}
	if !finite32(dtMs) || dtMs < 0 {
		dtMs = 0
	}
	total := t.Duration()
	remaining := dtMs
	for wraps := 0; t.playing && wraps < maxLoopsPerTick; {
		step := remaining
		if t.elapsed+step > total {
			step = total - t.elapsed
		}
		t.advance(t.elapsed, t.elapsed+step)
		t.elapsed += step
		remaining -= step

		if t.elapsed < total {
			break
		}
		if t.loops != Infinite && t.loop >= t.loops-1 {
			t.playing = false
			break
		}
		t.loop++
		wraps++
		t.restart()
		if total <= 0 || remaining <= 0 {
			break
		}
	}
	return true
}

func (t *Timeline) advance(from, to float32) {
	for _, e := range t.entries {
		start := float32(e.offset)
		if to < start {
			continue
		}
		if !e.started {
			t.begin(e)
		}
		if !e.anim.Playing() {
			continue
		}
		lo := from
		if start > lo {
			lo = start
		}
		hi := to
		if end := start + e.anim.TotalDuration(); end < hi {
			hi = end
		}
		d := hi - lo
		if d < 0 {
			d = 0
		}
		e.anim.Tick(d)
	}
}
