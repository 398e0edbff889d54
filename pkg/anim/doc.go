// Package anim provides the animation primitives driven by the frame clock:
// RK4 springs, keyframe animations with easing, timelines, stagger offsets
// and multi-property presets.
//
// Nothing in this package reads the wall clock. Every primitive advances
// only when stepped with an explicit dt in milliseconds, so a run is fully
// determined by its sequence of dt values.
//
// The Scheduler is the arena the runtime uses: it hands out integer handles,
// keeps non-settled springs in an active set and steps everything with one
// dt per frame.
package anim
