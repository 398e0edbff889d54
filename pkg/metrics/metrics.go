package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	kerrors "github.com/vango-dev/kinetic/internal/errors"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "kinetic").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for tick duration.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the tick duration buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// tickBuckets span 50us to 50ms; a 60 FPS frame budget is 16.7ms.
var tickBuckets = []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.0167, 0.025, 0.05}

func defaultConfig() Config {
	return Config{
		Namespace: "kinetic",
		Buckets:   tickBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector holds the runtime metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	ticks              *prometheus.CounterVec
	tickDuration       prometheus.Histogram
	effectsRun         prometheus.Counter
	flushPasses        prometheus.Histogram
	flushLimitExceeded prometheus.Counter
	transitions        *prometheus.CounterVec
	guardFailures      *prometheus.CounterVec
	activeSprings      prometheus.Gauge
	playingKeyframes   prometheus.Gauge
}

// New registers the collectors.
//
// Metrics collected:
//   - kinetic_ticks_total: Counter of frame ticks by result
//   - kinetic_tick_duration_seconds: Histogram of tick processing time
//   - kinetic_effects_run_total: Counter of effect executions
//   - kinetic_flush_passes: Histogram of passes per flush
//   - kinetic_flush_limit_exceeded_total: Counter of flushes cut off by the pass cap
//   - kinetic_fsm_transitions_total: Counter of transitions by machine
//   - kinetic_fsm_guard_failures_total: Counter of failed guard evaluations by machine
//   - kinetic_active_springs: Gauge of springs in motion
//   - kinetic_playing_keyframes: Gauge of keyframe animations playing
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		ticks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "ticks_total",
			Help:        "Total number of frame ticks",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "tick_duration_seconds",
			Help:        "Frame tick processing time in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		effectsRun: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effects_run_total",
			Help:        "Total number of effect executions",
			ConstLabels: config.ConstLabels,
		}),

		flushPasses: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_passes",
			Help:        "Effect passes needed per flush",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{1, 2, 3, 4, 8, 16, 32},
		}),

		flushLimitExceeded: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_limit_exceeded_total",
			Help:        "Total number of flushes stopped by the pass limit",
			ConstLabels: config.ConstLabels,
		}),

		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fsm_transitions_total",
			Help:        "Total number of state machine transitions",
			ConstLabels: config.ConstLabels,
		}, []string{"machine"}),

		guardFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fsm_guard_failures_total",
			Help:        "Total number of guards that failed to evaluate",
			ConstLabels: config.ConstLabels,
		}, []string{"machine"}),

		activeSprings: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_springs",
			Help:        "Number of springs not yet settled",
			ConstLabels: config.ConstLabels,
		}),

		playingKeyframes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "playing_keyframes",
			Help:        "Number of keyframe animations playing",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// =============================================================================
// Recording Functions
// =============================================================================

// RecordTick records one frame tick.
func (c *Collector) RecordTick(d time.Duration, err error) {
	if c == nil {
		return
	}
	c.tickDuration.Observe(d.Seconds())
	c.ticks.WithLabelValues(tickResult(err)).Inc()
}

// RecordFlush records one effect flush.
func (c *Collector) RecordFlush(passes, effectsRun int, limitExceeded bool) {
	if c == nil {
		return
	}
	c.effectsRun.Add(float64(effectsRun))
	if passes > 0 {
		c.flushPasses.Observe(float64(passes))
	}
	if limitExceeded {
		c.flushLimitExceeded.Inc()
	}
}

// RecordTransition records a state machine transition.
func (c *Collector) RecordTransition(machine string) {
	if c == nil {
		return
	}
	c.transitions.WithLabelValues(machine).Inc()
}

// RecordGuardFailure records a guard that errored or panicked.
func (c *Collector) RecordGuardFailure(machine string) {
	if c == nil {
		return
	}
	c.guardFailures.WithLabelValues(machine).Inc()
}

// SetAnimations records the current animation counts.
func (c *Collector) SetAnimations(activeSprings, playingKeyframes int) {
	if c == nil {
		return
	}
	c.activeSprings.Set(float64(activeSprings))
	c.playingKeyframes.Set(float64(playingKeyframes))
}

// tickResult returns a low-cardinality label for a tick outcome.
func tickResult(err error) string {
	if err == nil {
		return "ok"
	}
	var ke *kerrors.Error
	if errors.As(err, &ke) {
		switch ke.Code {
		case kerrors.CodeTickInFlight:
			return "busy"
		case kerrors.CodeFlushLimit:
			return "flush_limit"
		case kerrors.CodeEffectPanic:
			return "panic"
		case kerrors.CodeShutdown:
			return "shutdown"
		}
	}
	return "error"
}
