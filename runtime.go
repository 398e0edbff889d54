package kinetic

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/kinetic/internal/config"
	kerrors "github.com/vango-dev/kinetic/internal/errors"
	"github.com/vango-dev/kinetic/pkg/anim"
	"github.com/vango-dev/kinetic/pkg/clock"
	"github.com/vango-dev/kinetic/pkg/fsm"
	"github.com/vango-dev/kinetic/pkg/metrics"
	"github.com/vango-dev/kinetic/pkg/reactive"
)

// Frame describes one completed tick.
type Frame = clock.Frame

// FrameObserver is called after every tick.
type FrameObserver = clock.Observer

// Sentinel errors, usable with errors.Is.
var (
	// ErrShutdown is returned by every operation on a runtime that is not
	// running: before Init and after Shutdown.
	ErrShutdown = kerrors.New(kerrors.CodeShutdown)

	// ErrUnknownName is returned for machine, state or event names that
	// are not declared.
	ErrUnknownName = kerrors.New(kerrors.CodeUnknownName)

	// ErrStaleHandle is returned for ids of disposed or unknown state.
	ErrStaleHandle = reactive.ErrStaleHandle

	// ErrTickInFlight is returned by a Tick that overlaps another one.
	ErrTickInFlight = clock.ErrTickInFlight

	// ErrFlushLimit is returned by Tick when effects keep re-triggering
	// each other past the configured pass limit.
	ErrFlushLimit = reactive.ErrFlushLimit
)

type lifecycle int32

const (
	stateNew lifecycle = iota
	stateRunning
	stateShutdown
)

func (l lifecycle) String() string {
	switch l {
	case stateNew:
		return "new"
	case stateRunning:
		return "running"
	default:
		return "shutdown"
	}
}

// Runtime is the interactive-state engine: one signal graph, one animation
// scheduler, one machine arena and the frame clock that drives them. There
// is no package-level state; every call goes through a Runtime.
//
// A Runtime must be initialized with Init before use and released with
// Shutdown. All methods are safe for concurrent use, but only one Tick runs
// at a time.
type Runtime struct {
	cfg      *config.Config
	graph    *reactive.Graph
	anims    *anim.Scheduler
	machines *fsm.Runtime
	clock    *clock.Clock
	metrics  *metrics.Collector
	tracer   trace.Tracer
	logger   *slog.Logger

	state atomic.Int32

	mu         sync.Mutex
	names      map[fsm.InstanceID]string
	owners     map[fsm.InstanceID]WidgetID
	widgets    map[WidgetID]*widget
	widgetKeys map[string]WidgetID
	nextWidget WidgetID
	observers  []FrameObserver
}

// Option configures a Runtime.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	metrics   *metrics.Collector
	registry  prometheus.Registerer
	tracer    trace.Tracer
	observers []FrameObserver
}

// WithLogger sets the logger. Components log under it with a "component"
// attribute.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics records runtime metrics into c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) {
		o.metrics = c
	}
}

// WithRegistry registers a metrics collector, named after the configured
// namespace, in reg. It is ignored when WithMetrics is also given.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithTracer sets the tracer for tick spans and machine events. The
// default resolves the configured tracer name from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithFrameObserver adds an observer called after every tick.
func WithFrameObserver(obs FrameObserver) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// New builds a runtime from cfg. A nil cfg uses the defaults. The runtime
// is not usable until Init is called.
func New(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		cfg = config.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := o.metrics
	if collector == nil && o.registry != nil {
		collector = metrics.New(
			metrics.WithRegistry(o.registry),
			metrics.WithNamespace(cfg.Metrics.Namespace),
		)
	}
	tracer := o.tracer
	if tracer == nil {
		tracer = otel.Tracer(cfg.Tracing.TracerName)
	}

	rt := &Runtime{
		cfg:     cfg,
		metrics: collector,
		tracer:  tracer,
		logger:  logger.With("component", "runtime"),
		graph: reactive.NewGraph(
			reactive.WithAutoFlush(false),
			reactive.WithMaxFlushPasses(cfg.Scheduler.MaxFlushPasses),
			reactive.WithLogger(logger.With("component", "reactive")),
		),
		anims: anim.NewScheduler(
			anim.WithDefaultEpsilon(cfg.Spring.Epsilon),
			anim.WithSchedulerLogger(logger.With("component", "anim")),
		),
		names:      make(map[fsm.InstanceID]string),
		owners:     make(map[fsm.InstanceID]WidgetID),
		widgets:    make(map[WidgetID]*widget),
		widgetKeys: make(map[string]WidgetID),
		observers:  o.observers,
	}
	rt.machines = fsm.NewRuntime(
		fsm.WithHost(rt),
		fsm.WithMachineLogger(logger.With("component", "fsm")),
	)
	rt.clock = clock.New(rt.graph, rt.anims,
		clock.WithMaxDt(cfg.Scheduler.MaxDtMs),
		clock.WithTracer(tracer),
		clock.WithLogger(logger.With("component", "clock")),
		clock.WithMetrics(collector),
		clock.WithObserver(rt.notify),
	)
	return rt, nil
}

// Init starts the runtime. Calling Init on a running runtime is a no-op;
// a runtime cannot be restarted after Shutdown.
func (rt *Runtime) Init() error {
	if rt.state.CompareAndSwap(int32(stateNew), int32(stateRunning)) {
		rt.logger.Info("runtime initialized",
			"max_flush_passes", rt.cfg.Scheduler.MaxFlushPasses,
			"max_dt_ms", rt.cfg.Scheduler.MaxDtMs,
			"machines", len(rt.cfg.Machines),
		)
		return nil
	}
	if lifecycle(rt.state.Load()) == stateRunning {
		return nil
	}
	return ErrShutdown.WithDetail("Init called after Shutdown")
}

// Shutdown unmounts every widget, removes every machine and stops the
// runtime. Handles held by callers become stale. Calling it twice is a
// no-op.
func (rt *Runtime) Shutdown() error {
	prev := lifecycle(rt.state.Swap(int32(stateShutdown)))
	if prev == stateShutdown {
		return nil
	}

	rt.mu.Lock()
	keys := make([]string, 0, len(rt.widgetKeys))
	for k := range rt.widgetKeys {
		keys = append(keys, k)
	}
	rt.mu.Unlock()
	for _, k := range keys {
		rt.unmount(k)
	}
	for _, id := range rt.machines.IDs() {
		rt.machines.Remove(id)
	}

	rt.mu.Lock()
	rt.names = make(map[fsm.InstanceID]string)
	rt.owners = make(map[fsm.InstanceID]WidgetID)
	rt.mu.Unlock()

	rt.logger.Info("runtime shut down", "was", prev.String())
	return nil
}

// Running reports whether Init was called and Shutdown was not.
func (rt *Runtime) Running() bool {
	return lifecycle(rt.state.Load()) == stateRunning
}

func (rt *Runtime) check() error {
	switch lifecycle(rt.state.Load()) {
	case stateRunning:
		return nil
	case stateNew:
		return ErrShutdown.WithDetail("The runtime has not been initialized; call Init first.")
	default:
		return ErrShutdown
	}
}

// Config returns the configuration the runtime was built with.
func (rt *Runtime) Config() *config.Config {
	return rt.cfg
}

// Graph returns the signal graph, for callers that need batches or scopes.
func (rt *Runtime) Graph() *reactive.Graph {
	return rt.graph
}

// Animations returns the animation scheduler.
func (rt *Runtime) Animations() *anim.Scheduler {
	return rt.anims
}

// Clock returns the frame clock.
func (rt *Runtime) Clock() *clock.Clock {
	return rt.clock
}

// =============================================================================
// Frames
// =============================================================================

// Tick advances the runtime by one frame of dtMs milliseconds: pending
// effects are flushed, then every animation is stepped with the same dt.
// It reports whether the frame needs a redraw.
//
// A flush limit error is returned after the animation step has run; it
// means the effect graph is misconfigured and should be treated as fatal.
func (rt *Runtime) Tick(dtMs float32) (bool, error) {
	f, err := rt.TickFrame(dtMs)
	return f.Redraw, err
}

// TickFrame is Tick returning the full frame description.
func (rt *Runtime) TickFrame(dtMs float32) (Frame, error) {
	if err := rt.check(); err != nil {
		return Frame{}, err
	}
	return rt.clock.Tick(dtMs)
}

// RequestFrame asks the host for another frame. Safe from any goroutine.
func (rt *Runtime) RequestFrame() {
	rt.clock.RequestFrame()
}

// NeedsFrame reports whether the next tick would do any work.
func (rt *Runtime) NeedsFrame() bool {
	return rt.clock.NeedsFrame()
}

// Run drives the runtime from a ticker at the configured frame rate until
// ctx is done. Idle frames are skipped.
func (rt *Runtime) Run(ctx context.Context) error {
	if err := rt.check(); err != nil {
		return err
	}
	return clock.NewDriver(rt.clock, rt.cfg.FrameInterval()).Run(ctx)
}

// OnFrame adds an observer called after every tick.
func (rt *Runtime) OnFrame(obs FrameObserver) {
	if obs == nil {
		return
	}
	rt.mu.Lock()
	rt.observers = append(rt.observers, obs)
	rt.mu.Unlock()
}

func (rt *Runtime) notify(f Frame, err error) {
	if rt.metrics != nil {
		c := rt.anims.Counts()
		rt.metrics.SetAnimations(c.ActiveSprings, c.PlayingKeyframes)
	}
	rt.mu.Lock()
	observers := append([]FrameObserver(nil), rt.observers...)
	rt.mu.Unlock()
	for _, obs := range observers {
		obs(f, err)
	}
}
