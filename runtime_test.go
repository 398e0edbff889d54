package kinetic

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/kinetic/internal/config"
	"github.com/vango-dev/kinetic/pkg/anim"
	"github.com/vango-dev/kinetic/pkg/fsm"
	"github.com/vango-dev/kinetic/pkg/reactive"
)

const frameMs = float32(1000.0 / 60)

func newRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	rt, err := New(nil, opts...)
	require.NoError(t, err)
	require.NoError(t, rt.Init())
	t.Cleanup(func() { _ = rt.Shutdown() })
	return rt
}

// =============================================================================
// Lifecycle
// =============================================================================

func TestLifecycle(t *testing.T) {
	rt, err := New(nil)
	require.NoError(t, err)
	assert.False(t, rt.Running())

	_, err = rt.Tick(16)
	assert.ErrorIs(t, err, ErrShutdown, "tick before Init")
	_, err = rt.SpringCreate(anim.SpringDefault, 0)
	assert.ErrorIs(t, err, ErrShutdown)

	require.NoError(t, rt.Init())
	require.NoError(t, rt.Init(), "Init is idempotent")
	assert.True(t, rt.Running())

	id, err := rt.SpringCreate(anim.SpringDefault, 0)
	require.NoError(t, err)

	require.NoError(t, rt.Shutdown())
	require.NoError(t, rt.Shutdown(), "Shutdown is idempotent")
	assert.False(t, rt.Running())

	_, err = rt.SpringValue(id)
	assert.ErrorIs(t, err, ErrShutdown)
	_, err = rt.Tick(16)
	assert.ErrorIs(t, err, ErrShutdown)
	assert.ErrorIs(t, rt.Init(), ErrShutdown, "no restart after Shutdown")
	assert.Equal(t, "shutdown", rt.Snapshot().State)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.New()
	cfg.Scheduler.MaxFlushPasses = 0
	_, err := New(cfg)
	require.Error(t, err)
}

func TestRuntimesAreIndependent(t *testing.T) {
	a := newRuntime(t)
	b := newRuntime(t)

	sa, err := SignalCreate(a, 1)
	require.NoError(t, err)
	_, err = SignalCreate(b, "other")
	require.NoError(t, err)

	assert.Equal(t, 1, a.Snapshot().Graph.Signals)
	assert.Equal(t, 1, b.Snapshot().Graph.Signals)
	assert.Equal(t, 1, sa.MustGet())
}

// =============================================================================
// Signals and effects
// =============================================================================

func TestEffectsRunOnTick(t *testing.T) {
	rt := newRuntime(t)

	count, err := SignalCreate(rt, 0)
	require.NoError(t, err)
	doubled, err := DerivedCreate(rt, func() int { return count.MustGet() * 2 })
	require.NoError(t, err)

	var seen []int
	_, err = rt.EffectCreate(func() reactive.Cleanup {
		seen = append(seen, doubled.MustGet())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, seen, "effects run once at creation")

	require.NoError(t, count.Set(1))
	require.NoError(t, count.Set(2))
	assert.Equal(t, []int{0}, seen, "writes wait for the tick")

	redraw, err := rt.Tick(frameMs)
	require.NoError(t, err)
	assert.True(t, redraw)
	assert.Equal(t, []int{0, 4}, seen, "one run per flush")

	redraw, err = rt.Tick(frameMs)
	require.NoError(t, err)
	assert.False(t, redraw, "idle frames need no redraw")
}

func TestSignalByID(t *testing.T) {
	rt := newRuntime(t)
	s, err := SignalCreate(rt, float32(1))
	require.NoError(t, err)

	require.NoError(t, SignalSet(rt, s.ID(), float32(3)))
	v, err := SignalGet[float32](rt, s.ID())
	require.NoError(t, err)
	assert.Equal(t, float32(3), v)

	_, err = SignalGet[string](rt, s.ID())
	assert.ErrorIs(t, err, reactive.ErrTypeMismatch)

	rt.Dispose(s.ID())
	_, err = SignalGet[float32](rt, s.ID())
	assert.ErrorIs(t, err, ErrStaleHandle)
}

func TestBatch(t *testing.T) {
	rt := newRuntime(t)
	x, _ := SignalCreate(rt, 0)
	y, _ := SignalCreate(rt, 0)

	var sums []int
	_, err := rt.EffectCreate(func() reactive.Cleanup {
		sums = append(sums, x.MustGet()+y.MustGet())
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, rt.Batch(func() {
		_ = x.Set(1)
		_ = y.Set(2)
	}))
	_, err = rt.Tick(frameMs)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, sums)
}

func TestFlushLimitIsReported(t *testing.T) {
	rt := newRuntime(t)
	a, _ := SignalCreate(rt, 0)
	b, _ := SignalCreate(rt, 0)

	_, err := rt.EffectCreate(func() reactive.Cleanup {
		_ = b.Set(a.MustGet() + 1)
		return nil
	})
	require.NoError(t, err)
	_, err = rt.EffectCreate(func() reactive.Cleanup {
		_ = a.Set(b.MustGet() + 1)
		return nil
	})
	require.NoError(t, err)

	spring, err := rt.SpringCreate(anim.SpringDefault, 0)
	require.NoError(t, err)
	require.NoError(t, rt.SpringSetTarget(spring, 1))

	f, err := rt.TickFrame(frameMs)
	require.ErrorIs(t, err, ErrFlushLimit)
	assert.Equal(t, 1, f.Anim.Springs, "animations step even when the flush fails")
	assert.Equal(t, config.DefaultMaxFlushPasses, f.Flush.Passes)
}

func TestTickInsideTick(t *testing.T) {
	rt := newRuntime(t)
	trigger, _ := SignalCreate(rt, false)

	var nested error
	_, err := rt.EffectCreate(func() reactive.Cleanup {
		if trigger.MustGet() {
			_, nested = rt.Tick(frameMs)
		}
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, trigger.Set(true))
	_, err = rt.Tick(frameMs)
	require.NoError(t, err)
	assert.ErrorIs(t, nested, ErrTickInFlight)
}

// =============================================================================
// Machines
// =============================================================================

const (
	idle fsm.StateID = iota
	hovered
	pressed
)

const (
	pointerEnter fsm.EventID = iota
	pointerLeave
	pointerDown
	pointerUp
)

func buttonTable(t *testing.T, opts ...func(*fsm.Builder)) *fsm.Table {
	t.Helper()
	b := fsm.NewBuilder(idle).
		NameState(idle, "idle").
		NameState(hovered, "hovered").
		NameState(pressed, "pressed").
		NameEvent(pointerEnter, "pointer-enter").
		NameEvent(pointerLeave, "pointer-leave").
		NameEvent(pointerDown, "pointer-down").
		NameEvent(pointerUp, "pointer-up").
		On(idle, pointerEnter, hovered).
		On(hovered, pointerLeave, idle).
		On(hovered, pointerDown, pressed).
		On(pressed, pointerUp, hovered)
	for _, opt := range opts {
		opt(b)
	}
	table, err := b.Build()
	require.NoError(t, err)
	return table
}

func TestButtonScenario(t *testing.T) {
	rt := newRuntime(t)
	id, err := rt.FSMCreate(buttonTable(t))
	require.NoError(t, err)

	for _, ev := range []fsm.EventID{pointerEnter, pointerDown, pointerUp} {
		_, err := rt.FSMSend(id, ev)
		require.NoError(t, err)
	}
	state, err := rt.FSMState(id)
	require.NoError(t, err)
	assert.Equal(t, hovered, state)

	state, err = rt.FSMSend(id, pointerUp)
	require.NoError(t, err, "unmatched events are not errors")
	assert.Equal(t, hovered, state)

	name, err := rt.FSMStateName(id)
	require.NoError(t, err)
	assert.Equal(t, "hovered", name)

	_, err = rt.FSMSendName(id, "pointer-leave")
	require.NoError(t, err)
	_, err = rt.FSMSendName(id, "double-click")
	assert.ErrorIs(t, err, ErrUnknownName)

	st, err := rt.Machine(id)
	require.NoError(t, err)
	assert.Equal(t, "idle", st.State)
	require.Len(t, st.History, 4)
	assert.Equal(t, StepRecord{Seq: 4, From: "hovered", Event: "pointer-leave", To: "idle"}, st.History[3])

	rt.FSMRemove(id)
	_, err = rt.FSMState(id)
	assert.ErrorIs(t, err, ErrStaleHandle)
}

func TestMachineDrivesAnimations(t *testing.T) {
	rt := newRuntime(t)
	scale, err := rt.SpringCreate(anim.SpringStiff, 1)
	require.NoError(t, err)
	enabled, err := SignalCreate(rt, true)
	require.NoError(t, err)
	pressCount, err := SignalCreate(rt, 0)
	require.NoError(t, err)

	table := buttonTable(t, func(b *fsm.Builder) {
		b.OnEntry(pressed,
			fsm.Action{Kind: fsm.ActionSetSpringTarget, Target: uint64(scale), Value: 0.95},
			fsm.Action{Kind: fsm.ActionSetSignal, Target: uint64(pressCount.ID()), Value: 1},
		)
		b.OnExit(pressed, fsm.Action{Kind: fsm.ActionSetSpringTarget, Target: uint64(scale), Value: 1})
		b.On(idle, pointerDown, pressed, fsm.WithGuard(fsm.Guard{
			Kind:   fsm.GuardSignalTruthy,
			Target: uint64(enabled.ID()),
		}))
	})
	id, err := rt.FSMCreate(table)
	require.NoError(t, err)

	require.NoError(t, enabled.Set(false))
	state, err := rt.FSMSend(id, pointerDown)
	require.NoError(t, err)
	assert.Equal(t, idle, state, "guard blocks while disabled")

	require.NoError(t, enabled.Set(true))
	state, err = rt.FSMSend(id, pointerDown)
	require.NoError(t, err)
	assert.Equal(t, pressed, state)
	assert.Equal(t, 1, pressCount.MustGet(), "set-signal keeps the signal type")

	redraw, err := rt.Tick(frameMs)
	require.NoError(t, err)
	assert.True(t, redraw)
	v, err := rt.SpringValue(scale)
	require.NoError(t, err)
	assert.Less(t, v, float32(1))
}

type recordingTracer struct {
	noop.Tracer
	mu     sync.Mutex
	events []string
	errs   []error
}

type recordingSpan struct {
	noop.Span
	tr *recordingTracer
}

func (t *recordingTracer) Start(ctx context.Context, _ string, _ ...trace.SpanStartOption) (context.Context, trace.Span) {
	return ctx, &recordingSpan{tr: t}
}

func (s *recordingSpan) AddEvent(name string, _ ...trace.EventOption) {
	s.tr.mu.Lock()
	s.tr.events = append(s.tr.events, name)
	s.tr.mu.Unlock()
}

func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) {
	s.tr.mu.Lock()
	s.tr.errs = append(s.tr.errs, err)
	s.tr.mu.Unlock()
}

func TestGuardFailureIsObservable(t *testing.T) {
	tracer := &recordingTracer{}
	reg := prometheus.NewRegistry()
	rt := newRuntime(t, WithTracer(tracer), WithRegistry(reg))

	label, err := SignalCreate(rt, "not a number")
	require.NoError(t, err)
	boom := errors.New("boom")

	table := buttonTable(t, func(b *fsm.Builder) {
		b.On(idle, pointerDown, pressed, fsm.WithGuard(fsm.Guard{
			Kind: fsm.GuardFunc,
			Name: "explodes",
			Fn:   func() (bool, error) { return false, boom },
		}))
		b.On(idle, pointerDown, hovered, fsm.WithGuard(fsm.Guard{
			Kind:   fsm.GuardSignalTruthy,
			Target: uint64(label.ID()),
		}))
		b.On(idle, pointerDown, idle)
	})
	id, err := rt.FSMCreate(table, Named("button"))
	require.NoError(t, err)

	state, err := rt.FSMSend(id, pointerDown)
	require.NoError(t, err, "failing guards count as false")
	assert.Equal(t, idle, state, "falls through to the unguarded row")

	tracer.mu.Lock()
	assert.Equal(t, []string{"guard_failed", "guard_failed"}, tracer.events)
	require.Len(t, tracer.errs, 2)
	assert.ErrorIs(t, tracer.errs[0], boom)
	assert.ErrorIs(t, tracer.errs[1], reactive.ErrTypeMismatch)
	tracer.mu.Unlock()

	families, err := reg.Gather()
	require.NoError(t, err)
	var failures float64
	for _, fam := range families {
		if fam.GetName() != "kinetic_fsm_guard_failures_total" {
			continue
		}
		for _, m := range fam.GetMetric() {
			failures += m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(2), failures)
}

func TestFSMCreateFromConfig(t *testing.T) {
	cfg, err := config.Parse([]byte(`machines:
  - name: toggle
    initial: "off"
    states: ["off", "on"]
    events: [flip]
    transitions:
      - {from: "off", event: flip, to: "on"}
      - {from: "on", event: flip, to: "off"}
    entry:
      "on":
        - {kind: spring-target, target: knob, value: 1}
`), "kinetic.yaml")
	require.NoError(t, err)
	rt, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, rt.Init())
	defer rt.Shutdown()

	knob, err := rt.SpringCreate(anim.SpringSnappy, 0)
	require.NoError(t, err)

	id, err := rt.FSMCreateFromConfig("toggle", fsm.Bindings{
		Targets: map[string]uint64{"knob": uint64(knob)},
	})
	require.NoError(t, err)

	_, err = rt.FSMSendName(id, "flip")
	require.NoError(t, err)
	name, err := rt.FSMStateName(id)
	require.NoError(t, err)
	assert.Equal(t, "on", name)

	for i := 0; i < 120; i++ {
		_, err := rt.Tick(frameMs)
		require.NoError(t, err)
	}
	v, err := rt.SpringValue(knob)
	require.NoError(t, err)
	assert.InDelta(t, 1, v, 0.01)

	_, err = rt.FSMCreateFromConfig("missing", fsm.Bindings{})
	assert.ErrorIs(t, err, ErrUnknownName)
}

func TestFSMCreateStartIn(t *testing.T) {
	rt := newRuntime(t)
	table := buttonTable(t)

	a, err := rt.FSMCreate(table)
	require.NoError(t, err)
	b, err := rt.FSMCreate(table, StartIn(pressed))
	require.NoError(t, err)
	c, err := rt.FSMCreate(table, StartInState("hovered"))
	require.NoError(t, err)

	for id, want := range map[fsm.InstanceID]string{a: "idle", b: "pressed", c: "hovered"} {
		name, err := rt.FSMStateName(id)
		require.NoError(t, err)
		assert.Equal(t, want, name)
	}

	_, err = rt.FSMSendName(b, "pointer-up")
	require.NoError(t, err)
	name, err := rt.FSMStateName(b)
	require.NoError(t, err)
	assert.Equal(t, "hovered", name)

	_, err = rt.FSMCreate(table, StartInState("gone"))
	assert.ErrorIs(t, err, ErrUnknownName)

	_, err = rt.FSMCreate(table, StartIn(fsm.StateID(99)))
	assert.ErrorIs(t, err, ErrUnknownName)
}

func TestFSMCreateFromConfigStartIn(t *testing.T) {
	cfg, err := config.Parse([]byte(`machines:
  - name: toggle
    initial: "off"
    states: ["off", "on"]
    events: [flip]
    transitions:
      - {from: "off", event: flip, to: "on"}
      - {from: "on", event: flip, to: "off"}
`), "kinetic.yaml")
	require.NoError(t, err)
	rt, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, rt.Init())
	defer rt.Shutdown()

	w, err := rt.Mount("switch")
	require.NoError(t, err)
	id, err := rt.FSMCreateFromConfig("toggle", fsm.Bindings{}, InWidget(w), StartInState("on"))
	require.NoError(t, err)
	name, err := rt.FSMStateName(id)
	require.NoError(t, err)
	assert.Equal(t, "on", name)

	plain, err := rt.FSMCreateFromConfig("toggle", fsm.Bindings{})
	require.NoError(t, err)
	name, err = rt.FSMStateName(plain)
	require.NoError(t, err)
	assert.Equal(t, "off", name)
}

// =============================================================================
// Animations
// =============================================================================

func TestSpringScenario(t *testing.T) {
	rt := newRuntime(t)
	id, err := rt.SpringCreate(anim.SpringConfig{Stiffness: 400, Damping: 25, Mass: 1}, 0)
	require.NoError(t, err)
	require.NoError(t, rt.SpringSetTarget(id, 100))

	// Damping ratio 0.625 overshoots by about 8%.
	var peak float32
	for i := 0; i < 120; i++ {
		_, err := rt.Tick(frameMs)
		require.NoError(t, err)
		v, err := rt.SpringValue(id)
		require.NoError(t, err)
		if v > peak {
			peak = v
		}
	}
	v, err := rt.SpringValue(id)
	require.NoError(t, err)
	assert.InDelta(t, 100, v, 1)
	assert.Greater(t, peak, float32(100))
	assert.Less(t, peak, float32(110))
}

func TestSpringRetargetKeepsValue(t *testing.T) {
	rt := newRuntime(t)
	id, err := rt.SpringCreate(anim.SpringDefault, 0)
	require.NoError(t, err)
	require.NoError(t, rt.SpringSetTarget(id, 100))
	for i := 0; i < 5; i++ {
		_, err := rt.Tick(frameMs)
		require.NoError(t, err)
	}

	before, _ := rt.SpringValue(id)
	vel, _ := rt.SpringVelocity(id)
	require.NoError(t, rt.SpringSetTarget(id, -50))
	after, _ := rt.SpringValue(id)
	velAfter, _ := rt.SpringVelocity(id)

	assert.Equal(t, before, after)
	assert.Equal(t, vel, velAfter)
	assert.Greater(t, vel, float32(0))
}

func TestSpringRejectsInvalidConfig(t *testing.T) {
	rt := newRuntime(t)
	_, err := rt.SpringCreate(anim.SpringConfig{Stiffness: 0, Damping: 1, Mass: 1}, 0)
	assert.ErrorIs(t, err, anim.ErrInvalidSpring)
	_, err = rt.SpringCreate(anim.SpringConfig{Stiffness: 100, Damping: 1, Mass: -1}, 0)
	assert.ErrorIs(t, err, anim.ErrInvalidSpring)

	_, err = rt.SpringCreatePreset("nope", 0)
	assert.ErrorIs(t, err, ErrUnknownName)
	_, err = rt.SpringCreatePreset("wobbly", 0)
	assert.NoError(t, err)
}

func TestKeyframeScenario(t *testing.T) {
	rt := newRuntime(t)
	id, err := rt.KeyframeCreate(500, anim.Linear, []anim.Keyframe{
		anim.At(0, 0),
		anim.At(0.5, 1.2),
		anim.At(1, 1),
	})
	require.NoError(t, err)
	require.NoError(t, rt.KeyframeStart(id))

	v, err := rt.KeyframeValue(id)
	require.NoError(t, err)
	assert.Equal(t, float32(0), v)

	// The default dt clamp is 100ms.
	for _, dt := range []float32{100, 100, 50} {
		_, err := rt.Tick(dt)
		require.NoError(t, err)
	}
	v, err = rt.KeyframeValue(id)
	require.NoError(t, err)
	assert.Equal(t, float32(1.2), v)

	for i := 0; i < 3; i++ {
		_, err := rt.Tick(100)
		require.NoError(t, err)
	}
	v, err = rt.KeyframeValue(id)
	require.NoError(t, err)
	assert.Equal(t, float32(1), v)
	playing, err := rt.KeyframePlaying(id)
	require.NoError(t, err)
	assert.False(t, playing)

	_, err = rt.KeyframeCreate(500, anim.Linear, nil)
	assert.ErrorIs(t, err, anim.ErrEmptyKeyframes)
}

func TestTimeline(t *testing.T) {
	rt := newRuntime(t)
	tl, err := rt.TimelineCreate()
	require.NoError(t, err)

	first, err := rt.KeyframeCreate(100, anim.Linear, []anim.Keyframe{anim.At(0, 0), anim.At(1, 10)})
	require.NoError(t, err)
	second, err := rt.KeyframeCreate(100, anim.Linear, []anim.Keyframe{anim.At(0, 0), anim.At(1, 10)})
	require.NoError(t, err)
	require.NoError(t, rt.TimelineAdd(tl, first, 0))
	require.NoError(t, rt.TimelineAdd(tl, second, 50))
	require.Error(t, rt.TimelineAdd(tl, second, 0), "an animation belongs to one timeline")

	require.NoError(t, rt.TimelineStart(tl))
	_, err = rt.Tick(75)
	require.NoError(t, err)

	a, _ := rt.KeyframeValue(first)
	b, _ := rt.KeyframeValue(second)
	assert.InDelta(t, 7.5, a, 1e-4)
	assert.InDelta(t, 2.5, b, 1e-4)

	for i := 0; i < 2; i++ {
		_, err = rt.Tick(50)
		require.NoError(t, err)
	}
	b, _ = rt.KeyframeValue(second)
	assert.Equal(t, float32(10), b)
	assert.False(t, rt.NeedsFrame())
}

// =============================================================================
// Widgets
// =============================================================================

func TestWidgetArena(t *testing.T) {
	rt := newRuntime(t)

	w, err := rt.Mount("list/item-1")
	require.NoError(t, err)
	again, err := rt.Mount("list/item-1")
	require.NoError(t, err)
	assert.Equal(t, w, again, "mounting a key twice returns the same widget")

	table := buttonTable(t)
	m, err := rt.FSMCreate(table, InWidget(w), Named("button"))
	require.NoError(t, err)
	_, err = rt.FSMSend(m, pointerEnter)
	require.NoError(t, err)

	// A rebuild creates the machine again and finds it in its state.
	rebuilt, err := rt.FSMCreate(table, InWidget(w), Named("button"))
	require.NoError(t, err)
	assert.Equal(t, m, rebuilt)
	state, _ := rt.FSMState(rebuilt)
	assert.Equal(t, hovered, state)
	found, ok := rt.WidgetMachine(w, "button")
	assert.True(t, ok)
	assert.Equal(t, m, found)

	sig, err := SignalCreate(rt, 1, InWidget(w))
	require.NoError(t, err)
	spring, err := rt.SpringCreate(anim.SpringDefault, 0, InWidget(w))
	require.NoError(t, err)
	kf, err := rt.KeyframeCreate(100, anim.Linear, []anim.Keyframe{anim.At(0, 0)}, InWidget(w))
	require.NoError(t, err)
	tl, err := rt.TimelineCreate(InWidget(w))
	require.NoError(t, err)

	snap := rt.Snapshot()
	require.Len(t, snap.Widgets, 1)
	assert.Equal(t, WidgetState{ID: w, Key: "list/item-1", Nodes: 1, Machines: 1, Springs: 1, Keyframes: 1, Timelines: 1}, snap.Widgets[0])

	ok, err = rt.Unmount("list/item-1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = sig.Get()
	assert.ErrorIs(t, err, ErrStaleHandle)
	_, err = rt.SpringValue(spring)
	assert.ErrorIs(t, err, ErrStaleHandle)
	_, err = rt.KeyframeValue(kf)
	assert.ErrorIs(t, err, ErrStaleHandle)
	assert.ErrorIs(t, rt.TimelineStart(tl), ErrStaleHandle)
	_, err = rt.FSMState(m)
	assert.ErrorIs(t, err, ErrStaleHandle)

	_, err = rt.SpringCreate(anim.SpringDefault, 0, InWidget(w))
	assert.ErrorIs(t, err, ErrStaleHandle, "unmounted widgets cannot own new state")

	ok, err = rt.Unmount("list/item-1")
	require.NoError(t, err)
	assert.False(t, ok)

	fresh, err := rt.Mount("list/item-1")
	require.NoError(t, err)
	assert.NotEqual(t, w, fresh, "widget ids are not reused")
}

func TestSnapshot(t *testing.T) {
	rt := newRuntime(t)
	_, err := rt.SpringCreate(anim.SpringDefault, 0)
	require.NoError(t, err)
	_, err = rt.FSMCreate(buttonTable(t), Named("button"))
	require.NoError(t, err)
	_, err = rt.Tick(frameMs)
	require.NoError(t, err)

	snap := rt.Snapshot()
	assert.Equal(t, uint64(1), snap.Seq)
	assert.Equal(t, "running", snap.State)
	assert.Len(t, snap.Springs, 1)
	require.Len(t, snap.Machines, 1)
	assert.Equal(t, "button", snap.Machines[0].Name)
	assert.Equal(t, "idle", snap.Machines[0].State)
}

func TestOnFrame(t *testing.T) {
	var frames []Frame
	rt := newRuntime(t, WithFrameObserver(func(f Frame, _ error) { frames = append(frames, f) }))
	var late int
	rt.OnFrame(func(Frame, error) { late++ })

	for i := 0; i < 3; i++ {
		_, err := rt.Tick(frameMs)
		require.NoError(t, err)
	}
	require.Len(t, frames, 3)
	assert.Equal(t, uint64(3), frames[2].Seq)
	assert.Equal(t, 3, late)
}

func TestSetSignalConversion(t *testing.T) {
	tests := []struct {
		cur  any
		in   float64
		want any
	}{
		{cur: true, in: 0, want: false},
		{cur: int(0), in: 3, want: int(3)},
		{cur: float32(0), in: 0.5, want: float32(0.5)},
		{cur: uint8(0), in: 7, want: uint8(7)},
	}
	for _, tt := range tests {
		got, err := convertLike(tt.cur, tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	_, err := convertLike("text", 1)
	assert.Error(t, err)
	_, err = convertLike(1.0, math.NaN())
	assert.Error(t, err)
}
