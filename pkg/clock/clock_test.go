package clock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/kinetic/pkg/anim"
	"github.com/vango-dev/kinetic/pkg/metrics"
	"github.com/vango-dev/kinetic/pkg/reactive"
)

// =============================================================================
// Test doubles
// =============================================================================

type recordedSpan struct {
	noop.Span
	name   string
	attrs  map[attribute.Key]attribute.Value
	status codes.Code
	errs   []error
	ended  bool
}

func (s *recordedSpan) SetAttributes(kv ...attribute.KeyValue) {
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}

func (s *recordedSpan) RecordError(err error, _ ...trace.EventOption) {
	s.errs = append(s.errs, err)
}

func (s *recordedSpan) SetStatus(code codes.Code, _ string) {
	s.status = code
}

func (s *recordedSpan) End(...trace.SpanEndOption) {
	s.ended = true
}

type recordingTracer struct {
	noop.Tracer
	mu    sync.Mutex
	spans []*recordedSpan
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	s := &recordedSpan{name: name, attrs: map[attribute.Key]attribute.Value{}}
	s.SetAttributes(cfg.Attributes()...)
	t.mu.Lock()
	t.spans = append(t.spans, s)
	t.mu.Unlock()
	return ctx, s
}

func (t *recordingTracer) last() *recordedSpan {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spans[len(t.spans)-1]
}

type failingFlusher struct {
	err     error
	pending bool
}

func (f *failingFlusher) Flush() (reactive.FlushStats, error) {
	return reactive.FlushStats{Passes: 1, EffectsRun: 1}, f.err
}

func (f *failingFlusher) HasPending() bool { return f.pending }

type blockingFlusher struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

// Flush blocks until release is closed. Only the first call signals entered.
func (f *blockingFlusher) Flush() (reactive.FlushStats, error) {
	f.once.Do(func() { close(f.entered) })
	<-f.release
	return reactive.FlushStats{}, nil
}

func (f *blockingFlusher) HasPending() bool { return false }

// =============================================================================
// Tick
// =============================================================================

func TestTickIdle(t *testing.T) {
	c := New(reactive.NewGraph(reactive.WithAutoFlush(false)), anim.NewScheduler())

	f, err := c.Tick(16)
	require.NoError(t, err)
	assert.False(t, f.Redraw)
	assert.False(t, f.Pending)
	assert.Equal(t, uint64(1), f.Seq)
	assert.False(t, c.NeedsFrame())
}

func TestTickFlushesEffectsBeforeAnimations(t *testing.T) {
	g := reactive.NewGraph(reactive.WithAutoFlush(false))
	s := anim.NewScheduler()
	c := New(g, s)

	sig := reactive.NewSignal(g, 0)
	springID, err := s.AddSpring(anim.SpringDefault, 0)
	require.NoError(t, err)

	// The effect retargets the spring; the same tick must already move it.
	_, err = g.NewEffect(func() reactive.Cleanup {
		v := sig.MustGet()
		_ = s.SetSpringTarget(springID, float32(v))
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, sig.Set(100))
	require.True(t, c.NeedsFrame())

	f, err := c.Tick(16)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Flush.EffectsRun)
	assert.Equal(t, 1, f.Anim.Springs)
	assert.True(t, f.Redraw)
	assert.True(t, f.Pending)

	v, err := s.SpringValue(springID)
	require.NoError(t, err)
	assert.Greater(t, v, float32(0))
}

func TestTickSettlesSpring(t *testing.T) {
	s := anim.NewScheduler()
	c := New(nil, s)
	id, err := s.AddSpring(anim.SpringStiff, 0)
	require.NoError(t, err)
	require.NoError(t, s.SetSpringTarget(id, 1))

	var frames int
	for frames = 1; frames < 600; frames++ {
		f, err := c.Tick(1000.0 / 60)
		require.NoError(t, err)
		if !f.Pending {
			break
		}
	}
	assert.Less(t, frames, 600)
	assert.False(t, c.NeedsFrame())

	f, err := c.Tick(16)
	require.NoError(t, err)
	assert.False(t, f.Redraw, "settled springs do not redraw")
}

func TestTickClampsDt(t *testing.T) {
	tests := []struct {
		name  string
		maxDt float32
		dt    float32
		want  float32
	}{
		{"under", 100, 16, 16},
		{"over", 100, 5000, 100},
		{"unclamped", 0, 5000, 5000},
		{"negative", 100, -5, 0},
		{"nan", 100, float32NaN(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(nil, nil, WithMaxDt(tt.maxDt))
			f, err := c.Tick(tt.dt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.DtMs)
		})
	}
}

func float32NaN() float32 {
	zero := float32(0)
	return zero / zero
}

func TestTickInFlight(t *testing.T) {
	fl := &blockingFlusher{entered: make(chan struct{}), release: make(chan struct{})}
	c := New(fl, nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.Tick(16)
		done <- err
	}()
	<-fl.entered

	_, err := c.Tick(16)
	assert.ErrorIs(t, err, ErrTickInFlight)
	_, err = c.TickNow()
	assert.ErrorIs(t, err, ErrTickInFlight)

	close(fl.release)
	require.NoError(t, <-done)
	assert.Equal(t, uint64(1), c.Seq())

	_, err = c.Tick(16)
	assert.NoError(t, err, "the clock is free again")
	assert.Equal(t, uint64(2), c.Seq())
}

func TestTickReportsFlushErrors(t *testing.T) {
	tracer := &recordingTracer{}
	reg := prometheus.NewRegistry()
	boom := errors.New("boom")
	s := anim.NewScheduler()
	id, err := s.AddSpring(anim.SpringDefault, 0)
	require.NoError(t, err)
	require.NoError(t, s.SetSpringTarget(id, 1))

	var observed []error
	c := New(&failingFlusher{err: boom}, s,
		WithTracer(tracer),
		WithMetrics(metrics.New(metrics.WithRegistry(reg))),
		WithObserver(func(_ Frame, err error) { observed = append(observed, err) }),
	)

	f, err := c.Tick(16)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, f.Anim.Springs, "animations still step after a flush error")

	span := tracer.last()
	assert.Equal(t, SpanName, span.name)
	assert.Equal(t, codes.Error, span.status)
	assert.Equal(t, []error{boom}, span.errs)
	assert.True(t, span.ended)
	assert.Equal(t, []error{boom}, observed)

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, fam := range families {
		if fam.GetName() == "kinetic_ticks_total" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestTickSpanAttributes(t *testing.T) {
	tracer := &recordingTracer{}
	c := New(nil, nil, WithTracer(tracer), WithMaxDt(50))

	_, err := c.Tick(80)
	require.NoError(t, err)

	span := tracer.last()
	assert.Equal(t, codes.Ok, span.status)
	assert.Equal(t, int64(1), span.attrs["kinetic.seq"].AsInt64())
	assert.Equal(t, float64(50), span.attrs["kinetic.dt_ms"].AsFloat64())
	assert.False(t, span.attrs["kinetic.redraw"].AsBool())
}

// =============================================================================
// TickNow and frame requests
// =============================================================================

func TestTickNow(t *testing.T) {
	now := time.Unix(100, 0)
	c := New(nil, nil, WithNow(func() time.Time { return now }))

	f, err := c.TickNow()
	require.NoError(t, err)
	assert.Equal(t, float32(0), f.DtMs, "first TickNow has no previous timestamp")

	now = now.Add(20 * time.Millisecond)
	f, err = c.TickNow()
	require.NoError(t, err)
	assert.InDelta(t, 20, f.DtMs, 1e-3)

	c.ResetTimestamp()
	now = now.Add(time.Hour)
	f, err = c.TickNow()
	require.NoError(t, err)
	assert.Equal(t, float32(0), f.DtMs)
}

func TestRequestFrame(t *testing.T) {
	c := New(nil, nil)
	assert.False(t, c.NeedsFrame())

	c.RequestFrame()
	assert.True(t, c.NeedsFrame())

	_, err := c.Tick(16)
	require.NoError(t, err)
	assert.False(t, c.NeedsFrame(), "a tick consumes the request")
}

func TestNeedsFrameSeesPendingEffects(t *testing.T) {
	fl := &failingFlusher{pending: true}
	c := New(fl, nil)
	assert.True(t, c.NeedsFrame())
	fl.pending = false
	assert.False(t, c.NeedsFrame())
}

// =============================================================================
// Driver
// =============================================================================

func TestDriverRunsUntilCancelled(t *testing.T) {
	s := anim.NewScheduler()
	id, err := s.AddSpring(anim.SpringStiff, 0)
	require.NoError(t, err)
	require.NoError(t, s.SetSpringTarget(id, 1))

	ticked := make(chan struct{}, 1)
	c := New(nil, s, WithObserver(func(Frame, error) {
		select {
		case ticked <- struct{}{}:
		default:
		}
	}))
	d := NewDriver(c, time.Millisecond)
	assert.Equal(t, time.Millisecond, d.Interval())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	select {
	case <-ticked:
	case <-time.After(5 * time.Second):
		t.Fatal("driver never ticked")
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Greater(t, c.Seq(), uint64(0))
}

func TestDriverSkipsIdleFrames(t *testing.T) {
	c := New(nil, nil)
	d := NewDriver(c, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, uint64(0), c.Seq())
}

func TestNewDriverDefaultInterval(t *testing.T) {
	d := NewDriver(New(nil, nil), 0)
	assert.Equal(t, time.Second/60, d.Interval())
}
