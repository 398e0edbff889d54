package anim

import (
	"log/slog"
	"sort"
	"sync"
)

// SpringID, KeyframeID and TimelineID are scheduler handles. All three draw
// from one counter, so a handle is never reused across kinds.
type (
	SpringID   uint64
	KeyframeID uint64
	TimelineID uint64
)

// StepStats describes one Scheduler.Step.
type StepStats struct {
	// Springs is the number of springs that moved.
	Springs int
	// Settled is the number of springs that came to rest this step.
	Settled int
	// Keyframes is the number of free-standing keyframe animations advanced.
	Keyframes int
	// Finished is the number of keyframe animations that ended this step.
	Finished int
	// Timelines is the number of timelines advanced.
	Timelines int
	// Pending reports whether anything is still in motion after the step.
	Pending bool
}

// Advanced reports whether any animation moved.
func (s StepStats) Advanced() bool {
	return s.Springs > 0 || s.Keyframes > 0 || s.Timelines > 0
}

// Scheduler owns every spring, keyframe animation and timeline of a runtime
// and advances them with one dt per step. Non-settled springs live in an
// active set, so idle springs cost nothing per frame. Keyframe animations
// attached to a timeline are advanced by the timeline only.
//
// Scheduler is safe for concurrent use.
type Scheduler struct {
	mu        sync.Mutex
	nextID    uint64
	springs   map[SpringID]*Spring
	active    map[SpringID]struct{}
	keyframes map[KeyframeID]*KeyframeAnimation
	timelines map[TimelineID]*Timeline
	epsilon   float32
	logger    *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithDefaultEpsilon sets the settle threshold for springs created without
// one.
func WithDefaultEpsilon(eps float32) SchedulerOption {
	return func(s *Scheduler) {
		if eps > 0 {
			s.epsilon = eps
		}
	}
}

// WithSchedulerLogger sets the logger.
func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScheduler returns an empty scheduler.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		springs:   make(map[SpringID]*Spring),
		active:    make(map[SpringID]struct{}),
		keyframes: make(map[KeyframeID]*KeyframeAnimation),
		timelines: make(map[TimelineID]*Timeline),
		epsilon:   DefaultEpsilon,
		logger:    slog.Default().With("component", "anim"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) id() uint64 {
	s.nextID++
	return s.nextID
}

// =============================================================================
// Springs
// =============================================================================

// AddSpring creates a spring at rest at initial.
func (s *Scheduler) AddSpring(cfg SpringConfig, initial float32) (SpringID, error) {
	if cfg.Epsilon == 0 {
		cfg.Epsilon = s.epsilon
	}
	sp, err := NewSpring(cfg, initial)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := SpringID(s.id())
	s.springs[id] = sp
	return id, nil
}

func (s *Scheduler) spring(id SpringID) (*Spring, error) {
	sp, ok := s.springs[id]
	if !ok {
		return nil, ErrStaleHandle.WithSubject("spring %d", id)
	}
	return sp, nil
}

// touch moves a spring into or out of the active set.
func (s *Scheduler) touch(id SpringID, sp *Spring) {
	if sp.Settled() {
		delete(s.active, id)
	} else {
		s.active[id] = struct{}{}
	}
}

// SetSpringTarget retargets a spring, keeping its value and velocity.
func (s *Scheduler) SetSpringTarget(id SpringID, target float32) error {
	return s.WithSpring(id, func(sp *Spring) error {
		return sp.SetTarget(target)
	})
}

// SnapSpring moves a spring to value at rest.
func (s *Scheduler) SnapSpring(id SpringID, value float32) error {
	return s.WithSpring(id, func(sp *Spring) error {
		return sp.Snap(value)
	})
}

// ImpulseSpring adds dv to a spring's velocity.
func (s *Scheduler) ImpulseSpring(id SpringID, dv float32) error {
	return s.WithSpring(id, func(sp *Spring) error {
		sp.Impulse(dv)
		return nil
	})
}

// WithSpring runs fn on a spring under the scheduler lock and updates the
// active set afterwards. fn must not call back into the scheduler.
func (s *Scheduler) WithSpring(id SpringID, fn func(*Spring) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, err := s.spring(id)
	if err != nil {
		return err
	}
	err = fn(sp)
	s.touch(id, sp)
	return err
}

// SpringValue returns a spring's position.
func (s *Scheduler) SpringValue(id SpringID) (float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, err := s.spring(id)
	if err != nil {
		return 0, err
	}
	return sp.Value(), nil
}

// SpringVelocity returns a spring's velocity.
func (s *Scheduler) SpringVelocity(id SpringID) (float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, err := s.spring(id)
	if err != nil {
		return 0, err
	}
	return sp.Velocity(), nil
}

// SpringSettled reports whether a spring is at rest.
func (s *Scheduler) SpringSettled(id SpringID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, err := s.spring(id)
	if err != nil {
		return false, err
	}
	return sp.Settled(), nil
}

// RemoveSpring deletes a spring. Its handle becomes stale.
func (s *Scheduler) RemoveSpring(id SpringID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.spring(id); err != nil {
		return err
	}
	delete(s.springs, id)
	delete(s.active, id)
	return nil
}

// =============================================================================
// Keyframes
// =============================================================================

// AddKeyframes registers a keyframe animation.
func (s *Scheduler) AddKeyframes(a *KeyframeAnimation) KeyframeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := KeyframeID(s.id())
	s.keyframes[id] = a
	return id
}

func (s *Scheduler) keyframe(id KeyframeID) (*KeyframeAnimation, error) {
	a, ok := s.keyframes[id]
	if !ok {
		return nil, ErrStaleHandle.WithSubject("keyframes %d", id)
	}
	return a, nil
}

// WithKeyframes runs fn on a keyframe animation under the scheduler lock.
func (s *Scheduler) WithKeyframes(id KeyframeID, fn func(*KeyframeAnimation) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.keyframe(id)
	if err != nil {
		return err
	}
	return fn(a)
}

// StartKeyframes plays an animation from the beginning. Wildcards take from.
func (s *Scheduler) StartKeyframes(id KeyframeID, from float32) error {
	return s.WithKeyframes(id, func(a *KeyframeAnimation) error {
		a.Start(from)
		return nil
	})
}

// StopKeyframes halts an animation, keeping its value.
func (s *Scheduler) StopKeyframes(id KeyframeID) error {
	return s.WithKeyframes(id, func(a *KeyframeAnimation) error {
		a.Stop()
		return nil
	})
}

// KeyframeValue returns an animation's current value.
func (s *Scheduler) KeyframeValue(id KeyframeID) (float32, error) {
	var v float32
	err := s.WithKeyframes(id, func(a *KeyframeAnimation) error {
		v = a.Value()
		return nil
	})
	return v, err
}

// RemoveKeyframes deletes an animation and detaches it from its timeline.
func (s *Scheduler) RemoveKeyframes(id KeyframeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.keyframe(id)
	if err != nil {
		return err
	}
	if a.timeline != nil {
		a.timeline.Remove(a)
	}
	delete(s.keyframes, id)
	return nil
}

// =============================================================================
// Timelines
// =============================================================================

// AddTimeline registers a timeline.
func (s *Scheduler) AddTimeline(t *Timeline) TimelineID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := TimelineID(s.id())
	s.timelines[id] = t
	return id
}

func (s *Scheduler) timeline(id TimelineID) (*Timeline, error) {
	t, ok := s.timelines[id]
	if !ok {
		return nil, ErrStaleHandle.WithSubject("timeline %d", id)
	}
	return t, nil
}

// TimelineAdd schedules keyframe animation kid on timeline tid at offsetMs.
func (s *Scheduler) TimelineAdd(tid TimelineID, kid KeyframeID, offsetMs int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.timeline(tid)
	if err != nil {
		return err
	}
	a, err := s.keyframe(kid)
	if err != nil {
		return err
	}
	return t.Add(a, offsetMs)
}

// WithTimeline runs fn on a timeline under the scheduler lock.
func (s *Scheduler) WithTimeline(id TimelineID, fn func(*Timeline) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.timeline(id)
	if err != nil {
		return err
	}
	return fn(t)
}

// StartTimeline plays a timeline from the beginning.
func (s *Scheduler) StartTimeline(id TimelineID) error {
	return s.WithTimeline(id, func(t *Timeline) error {
		t.Start()
		return nil
	})
}

// StopTimeline halts a timeline and its children.
func (s *Scheduler) StopTimeline(id TimelineID) error {
	return s.WithTimeline(id, func(t *Timeline) error {
		t.Stop()
		return nil
	})
}

// RemoveTimeline deletes a timeline. Its children stay registered as
// free-standing animations.
func (s *Scheduler) RemoveTimeline(id TimelineID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.timeline(id)
	if err != nil {
		return err
	}
	for _, e := range append([]*timelineEntry(nil), t.entries...) {
		t.Remove(e.anim)
	}
	delete(s.timelines, id)
	return nil
}

// =============================================================================
// Stepping
// =============================================================================

// Step advances every active spring, free-standing keyframe animation and
// playing timeline by dtMs.
func (s *Scheduler) Step(dtMs float32) StepStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st StepStats
	for id := range s.active {
		sp := s.springs[id]
		if sp.Step(dtMs) {
			st.Springs++
		}
		if sp.Settled() {
			delete(s.active, id)
			st.Settled++
		}
	}
	for _, a := range s.keyframes {
		if a.timeline != nil {
			continue
		}
		if a.Tick(dtMs) {
			st.Keyframes++
			if !a.playing {
				st.Finished++
			}
		}
	}
	for _, t := range s.timelines {
		if t.Tick(dtMs) {
			st.Timelines++
		}
	}
	st.Pending = s.pendingLocked()

	if st.Advanced() {
		s.logger.Debug("animation step",
			"dt_ms", dtMs,
			"springs", st.Springs,
			"settled", st.Settled,
			"keyframes", st.Keyframes,
			"timelines", st.Timelines)
	}
	return st
}

func (s *Scheduler) pendingLocked() bool {
	if len(s.active) > 0 {
		return true
	}
	for _, a := range s.keyframes {
		if a.timeline == nil && a.Playing() {
			return true
		}
	}
	for _, t := range s.timelines {
		if t.Playing() {
			return true
		}
	}
	return false
}

// Pending reports whether anything would move on the next Step.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked()
}

// Counts is a snapshot of scheduler sizes.
type Counts struct {
	Springs          int
	ActiveSprings    int
	Keyframes        int
	PlayingKeyframes int
	Timelines        int
	PlayingTimelines int
}

// Counts returns the current sizes.
func (s *Scheduler) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := Counts{
		Springs:       len(s.springs),
		ActiveSprings: len(s.active),
		Keyframes:     len(s.keyframes),
		Timelines:     len(s.timelines),
	}
	for _, a := range s.keyframes {
		if a.Playing() {
			c.PlayingKeyframes++
		}
	}
	for _, t := range s.timelines {
		if t.Playing() {
			c.PlayingTimelines++
		}
	}
	return c
}

// SpringState is a point-in-time view of one spring.
type SpringState struct {
	ID       SpringID `json:"id"`
	Value    float32  `json:"value"`
	Velocity float32  `json:"velocity"`
	Target   float32  `json:"target"`
	Settled  bool     `json:"settled"`
}

// Springs returns the state of every spring ordered by handle.
func (s *Scheduler) Springs() []SpringState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SpringState, 0, len(s.springs))
	for id, sp := range s.springs {
		out = append(out, SpringState{
			ID:       id,
			Value:    sp.Value(),
			Velocity: sp.Velocity(),
			Target:   sp.Target(),
			Settled:  sp.Settled(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// KeyframeState is a point-in-time view of one keyframe animation.
type KeyframeState struct {
	ID       KeyframeID `json:"id"`
	Value    float32    `json:"value"`
	Progress float32    `json:"progress"`
	Playing  bool       `json:"playing"`
}

// Keyframes returns the state of every keyframe animation ordered by handle.
func (s *Scheduler) Keyframes() []KeyframeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]KeyframeState, 0, len(s.keyframes))
	for id, a := range s.keyframes {
		out = append(out, KeyframeState{
			ID:       id,
			Value:    a.Value(),
			Progress: a.Progress(),
			Playing:  a.Playing(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
