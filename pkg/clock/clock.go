package clock

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	kerrors "github.com/vango-dev/kinetic/internal/errors"
	"github.com/vango-dev/kinetic/pkg/anim"
	"github.com/vango-dev/kinetic/pkg/metrics"
	"github.com/vango-dev/kinetic/pkg/reactive"
)

// ErrTickInFlight is returned by a Tick that overlaps another one.
var ErrTickInFlight = kerrors.New(kerrors.CodeTickInFlight)

// SpanName is the name of the span recorded for every tick.
const SpanName = "kinetic.tick"

const defaultTracerName = "github.com/vango-dev/kinetic/pkg/clock"

// Flusher runs pending effects. *reactive.Graph implements it.
type Flusher interface {
	Flush() (reactive.FlushStats, error)
	HasPending() bool
}

// Stepper advances animations. *anim.Scheduler implements it.
type Stepper interface {
	Step(dtMs float32) anim.StepStats
	Pending() bool
}

// Frame describes one completed tick.
type Frame struct {
	// Seq numbers ticks from 1.
	Seq uint64 `json:"seq"`

	// DtMs is the dt actually applied, after clamping.
	DtMs float32 `json:"dtMs"`

	// Redraw is set when effects ran or any animation moved.
	Redraw bool `json:"redraw"`

	// Pending is set when animations or effects still want frames.
	Pending bool `json:"pending"`

	Flush reactive.FlushStats `json:"flush"`
	Anim  anim.StepStats      `json:"anim"`

	// Took is the wall time spent in the tick.
	Took time.Duration `json:"took"`
}

// Observer is called after every tick with its frame and error.
type Observer func(Frame, error)

// Clock sequences a frame: flush effects, then step animations with one dt.
// Ticks never overlap; a concurrent Tick fails with ErrTickInFlight instead
// of blocking.
type Clock struct {
	flusher   Flusher
	stepper   Stepper
	maxDt     float32
	tracer    trace.Tracer
	logger    *slog.Logger
	metrics   *metrics.Collector
	observers []Observer
	now       func() time.Time

	busy      atomic.Bool
	requested atomic.Bool
	pending   atomic.Bool
	seq       atomic.Uint64

	// last is the wall time of the previous TickNow. Guarded by busy.
	last time.Time
}

// Option configures a Clock.
type Option func(*Clock)

// WithMaxDt clamps every dt to ms. Zero disables clamping.
func WithMaxDt(ms float32) Option {
	return func(c *Clock) {
		if ms >= 0 && finite(ms) {
			c.maxDt = ms
		}
	}
}

// WithTracer sets the tracer used for tick spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Clock) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithTracerName resolves the tracer from the global provider.
func WithTracerName(name string) Option {
	return func(c *Clock) {
		c.tracer = otel.Tracer(name)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Clock) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records tick and flush metrics.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Clock) {
		c.metrics = m
	}
}

// WithObserver adds a per-tick observer.
func WithObserver(o Observer) Option {
	return func(c *Clock) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithNow replaces the wall clock used by TickNow.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) {
		if now != nil {
			c.now = now
		}
	}
}

// New returns a clock over f and s. Either may be nil.
func New(f Flusher, s Stepper, opts ...Option) *Clock {
	c := &Clock{
		flusher: f,
		stepper: s,
		tracer:  otel.Tracer(defaultTracerName),
		logger:  slog.Default().With("component", "clock"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tick runs one frame with dtMs. Non-finite or negative dt counts as zero.
func (c *Clock) Tick(dtMs float32) (Frame, error) {
	if !c.busy.CompareAndSwap(false, true) {
		c.metrics.RecordTick(0, ErrTickInFlight)
		return Frame{}, ErrTickInFlight
	}
	defer c.busy.Store(false)
	return c.tick(dtMs)
}

// TickNow runs one frame with dt measured from the previous TickNow. The
// first call, and the first after ResetTimestamp, uses dt zero.
func (c *Clock) TickNow() (Frame, error) {
	if !c.busy.CompareAndSwap(false, true) {
		c.metrics.RecordTick(0, ErrTickInFlight)
		return Frame{}, ErrTickInFlight
	}
	defer c.busy.Store(false)

	now := c.now()
	var dt float32
	if !c.last.IsZero() {
		dt = float32(now.Sub(c.last).Seconds() * 1000)
	}
	c.last = now
	return c.tick(dt)
}

// ResetTimestamp forgets the previous TickNow time, so an idle gap is not
// applied as one large dt.
func (c *Clock) ResetTimestamp() {
	if !c.busy.CompareAndSwap(false, true) {
		return
	}
	c.last = time.Time{}
	c.busy.Store(false)
}

// RequestFrame asks the host for a frame. Safe from any goroutine.
func (c *Clock) RequestFrame() {
	c.requested.Store(true)
}

// NeedsFrame reports whether a tick would do work: a frame was requested,
// the last frame was still pending, or effects or animations are waiting.
func (c *Clock) NeedsFrame() bool {
	if c.requested.Load() || c.pending.Load() {
		return true
	}
	if c.flusher != nil && c.flusher.HasPending() {
		return true
	}
	return c.stepper != nil && c.stepper.Pending()
}

// Seq returns the number of completed ticks.
func (c *Clock) Seq() uint64 {
	return c.seq.Load()
}

// MaxDt returns the dt clamp in milliseconds.
func (c *Clock) MaxDt() float32 {
	return c.maxDt
}

func (c *Clock) clamp(dt float32) float32 {
	if !finite(dt) || dt < 0 {
		return 0
	}
	if c.maxDt > 0 && dt > c.maxDt {
		return c.maxDt
	}
	return dt
}

func (c *Clock) tick(raw float32) (Frame, error) {
	start := time.Now()
	c.requested.Store(false)

	f := Frame{
		Seq:  c.seq.Add(1),
		DtMs: c.clamp(raw),
	}
	_, span := c.tracer.Start(context.Background(), SpanName,
		trace.WithAttributes(
			attribute.Int64("kinetic.seq", int64(f.Seq)),
			attribute.Float64("kinetic.dt_ms", float64(f.DtMs)),
		),
	)
	defer span.End()

	var err error
	if c.flusher != nil {
		f.Flush, err = c.flusher.Flush()
	}
	if c.stepper != nil {
		f.Anim = c.stepper.Step(f.DtMs)
	}
	f.Redraw = f.Flush.Ran() || f.Anim.Advanced()
	f.Pending = f.Anim.Pending || (c.flusher != nil && c.flusher.HasPending())
	f.Took = time.Since(start)
	c.pending.Store(f.Pending)

	span.SetAttributes(
		attribute.Bool("kinetic.redraw", f.Redraw),
		attribute.Bool("kinetic.pending", f.Pending),
		attribute.Int("kinetic.effects_run", f.Flush.EffectsRun),
		attribute.Int("kinetic.springs", f.Anim.Springs),
		attribute.Int("kinetic.keyframes", f.Anim.Keyframes),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("tick finished with errors", "seq", f.Seq, "error", err)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	c.metrics.RecordTick(f.Took, err)
	c.metrics.RecordFlush(f.Flush.Passes, f.Flush.EffectsRun, errors.Is(err, reactive.ErrFlushLimit))
	for _, obs := range c.observers {
		obs(f, err)
	}
	return f, err
}

func finite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}
