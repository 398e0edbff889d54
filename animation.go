package kinetic

import (
	"github.com/vango-dev/kinetic/pkg/anim"
)

// =============================================================================
// Springs
// =============================================================================

// SpringCreate adds a spring resting at initial. The config is validated
// here: non-positive stiffness or mass is rejected with a configuration
// error. A zero epsilon takes the configured default.
func (rt *Runtime) SpringCreate(cfg anim.SpringConfig, initial float32, opts ...CreateOption) (anim.SpringID, error) {
	if err := rt.check(); err != nil {
		return 0, err
	}
	id, err := rt.anims.AddSpring(cfg, initial)
	if err != nil {
		return 0, err
	}
	err = rt.adopt(collect(opts),
		func(w *widget) { w.springs = append(w.springs, id) },
		func() { _ = rt.anims.RemoveSpring(id) },
	)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SpringCreatePreset adds a spring using a named preset. Presets from the
// configuration take precedence over the built-in ones.
func (rt *Runtime) SpringCreatePreset(preset string, initial float32, opts ...CreateOption) (anim.SpringID, error) {
	cfg, ok := rt.cfg.SpringPreset(preset)
	if !ok {
		return 0, ErrUnknownName.WithSubject("spring preset %q", preset)
	}
	return rt.SpringCreate(cfg, initial, opts...)
}

// SpringSetTarget retargets a spring. Value and velocity are kept, so an
// animation in flight bends toward the new target.
func (rt *Runtime) SpringSetTarget(id anim.SpringID, target float32) error {
	if err := rt.check(); err != nil {
		return err
	}
	if err := rt.anims.SetSpringTarget(id, target); err != nil {
		return err
	}
	rt.clock.RequestFrame()
	return nil
}

// SpringValue returns the current value of a spring.
func (rt *Runtime) SpringValue(id anim.SpringID) (float32, error) {
	if err := rt.check(); err != nil {
		return 0, err
	}
	return rt.anims.SpringValue(id)
}

// SpringVelocity returns the current velocity of a spring in units per
// second.
func (rt *Runtime) SpringVelocity(id anim.SpringID) (float32, error) {
	if err := rt.check(); err != nil {
		return 0, err
	}
	return rt.anims.SpringVelocity(id)
}

// SpringSettled reports whether a spring is at rest on its target.
func (rt *Runtime) SpringSettled(id anim.SpringID) (bool, error) {
	if err := rt.check(); err != nil {
		return false, err
	}
	return rt.anims.SpringSettled(id)
}

// SpringRemove drops a spring. Later calls with id report a stale handle.
func (rt *Runtime) SpringRemove(id anim.SpringID) error {
	if err := rt.check(); err != nil {
		return err
	}
	return rt.anims.RemoveSpring(id)
}

// =============================================================================
// Keyframes
// =============================================================================

// KeyframeCreate adds a keyframe animation of durationMs over frames with
// easing between keyframes. An empty frame list or malformed frame is
// rejected. The animation is idle until KeyframeStart.
func (rt *Runtime) KeyframeCreate(durationMs float32, easing anim.Easing, frames []anim.Keyframe, opts ...CreateOption) (anim.KeyframeID, error) {
	if err := rt.check(); err != nil {
		return 0, err
	}
	a, err := anim.NewKeyframes(durationMs, frames, anim.WithEasing(easing))
	if err != nil {
		return 0, err
	}
	return rt.KeyframeAdd(a, opts...)
}

// KeyframeAdd adds a keyframe animation built elsewhere, such as one track
// of a preset.
func (rt *Runtime) KeyframeAdd(a *anim.KeyframeAnimation, opts ...CreateOption) (anim.KeyframeID, error) {
	if err := rt.check(); err != nil {
		return 0, err
	}
	id := rt.anims.AddKeyframes(a)
	err := rt.adopt(collect(opts),
		func(w *widget) { w.keyframes = append(w.keyframes, id) },
		func() { _ = rt.anims.RemoveKeyframes(id) },
	)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// KeyframeStart plays an animation from the beginning. Wildcard keyframes
// resolve to the animation's value at the moment of the call.
func (rt *Runtime) KeyframeStart(id anim.KeyframeID) error {
	if err := rt.check(); err != nil {
		return err
	}
	from, err := rt.anims.KeyframeValue(id)
	if err != nil {
		return err
	}
	return rt.KeyframeStartFrom(id, from)
}

// KeyframeStartFrom plays an animation with wildcard keyframes resolved to
// from.
func (rt *Runtime) KeyframeStartFrom(id anim.KeyframeID, from float32) error {
	if err := rt.check(); err != nil {
		return err
	}
	if err := rt.anims.StartKeyframes(id, from); err != nil {
		return err
	}
	rt.clock.RequestFrame()
	return nil
}

// KeyframeStop stops an animation where it is.
func (rt *Runtime) KeyframeStop(id anim.KeyframeID) error {
	if err := rt.check(); err != nil {
		return err
	}
	return rt.anims.StopKeyframes(id)
}

// KeyframeValue returns the current value of an animation.
func (rt *Runtime) KeyframeValue(id anim.KeyframeID) (float32, error) {
	if err := rt.check(); err != nil {
		return 0, err
	}
	return rt.anims.KeyframeValue(id)
}

// KeyframePlaying reports whether an animation is playing. Owners delaying
// a teardown for an exit animation wait for this to turn false.
func (rt *Runtime) KeyframePlaying(id anim.KeyframeID) (bool, error) {
	if err := rt.check(); err != nil {
		return false, err
	}
	var playing bool
	err := rt.anims.WithKeyframes(id, func(a *anim.KeyframeAnimation) error {
		playing = a.Playing()
		return nil
	})
	return playing, err
}

// KeyframeRemove drops an animation, detaching it from its timeline.
func (rt *Runtime) KeyframeRemove(id anim.KeyframeID) error {
	if err := rt.check(); err != nil {
		return err
	}
	return rt.anims.RemoveKeyframes(id)
}

// =============================================================================
// Timelines
// =============================================================================

// TimelineCreate adds an empty timeline.
func (rt *Runtime) TimelineCreate(opts ...CreateOption) (anim.TimelineID, error) {
	if err := rt.check(); err != nil {
		return 0, err
	}
	id := rt.anims.AddTimeline(anim.NewTimeline())
	err := rt.adopt(collect(opts),
		func(w *widget) { w.timelines = append(w.timelines, id) },
		func() { _ = rt.anims.RemoveTimeline(id) },
	)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// TimelineAdd places a keyframe animation on a timeline at offsetMs from
// the timeline start. Offsets may be negative. From then on the timeline
// alone advances the animation.
func (rt *Runtime) TimelineAdd(tid anim.TimelineID, kid anim.KeyframeID, offsetMs int32) error {
	if err := rt.check(); err != nil {
		return err
	}
	return rt.anims.TimelineAdd(tid, kid, offsetMs)
}

// TimelineStart plays a timeline from its beginning.
func (rt *Runtime) TimelineStart(id anim.TimelineID) error {
	if err := rt.check(); err != nil {
		return err
	}
	if err := rt.anims.StartTimeline(id); err != nil {
		return err
	}
	rt.clock.RequestFrame()
	return nil
}

// TimelineStop stops a timeline and its animations.
func (rt *Runtime) TimelineStop(id anim.TimelineID) error {
	if err := rt.check(); err != nil {
		return err
	}
	return rt.anims.StopTimeline(id)
}

// TimelineSetLoops sets how many times a timeline plays; anim.Infinite
// repeats until stopped.
func (rt *Runtime) TimelineSetLoops(id anim.TimelineID, loops int) error {
	if err := rt.check(); err != nil {
		return err
	}
	return rt.anims.WithTimeline(id, func(t *anim.Timeline) error {
		t.SetLoops(loops)
		return nil
	})
}

// TimelineRemove drops a timeline. Its animations stay and become free
// standing.
func (rt *Runtime) TimelineRemove(id anim.TimelineID) error {
	if err := rt.check(); err != nil {
		return err
	}
	return rt.anims.RemoveTimeline(id)
}
