package recorder

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/vango-dev/kinetic"
	"github.com/vango-dev/kinetic/pkg/clock"
)

// DefaultBatchSize is how many frames are buffered before a write.
const DefaultBatchSize = 120

// Source provides the state sampled after every frame. *kinetic.Runtime
// implements it.
type Source interface {
	Snapshot() kinetic.Snapshot
}

// Recorder captures frames of one session and writes them to a Store in
// batches.
type Recorder struct {
	store   Store
	session string
	batch   int
	logger  *slog.Logger

	mu     sync.Mutex
	buf    []Record
	frames int
	err    error
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithSession records under a fixed session name instead of a random one.
func WithSession(name string) Option {
	return func(r *Recorder) {
		r.session = name
	}
}

// WithBatchSize sets how many frames are buffered between writes.
func WithBatchSize(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.batch = n
		}
	}
}

// WithLogger sets the recorder logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = l
	}
}

// New creates a recorder writing to store.
func New(store Store, opts ...Option) *Recorder {
	r := &Recorder{
		store:  store,
		batch:  DefaultBatchSize,
		logger: slog.Default().With("component", "recorder"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.session == "" {
		r.session = uuid.NewString()
	}
	return r
}

// Session returns the session name.
func (r *Recorder) Session() string {
	return r.session
}

// Frames returns how many frames were recorded so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Observer returns a frame observer that samples src after every tick.
// Register it with Runtime.OnFrame.
func (r *Recorder) Observer(src Source) clock.Observer {
	return func(f clock.Frame, err error) {
		rec := Sample(f, err, src.Snapshot())
		if werr := r.Add(context.Background(), rec); werr != nil {
			r.logger.Warn("recording failed", "session", r.session, "seq", f.Seq, "error", werr)
		}
	}
}

// Sample builds the record of frame f from a snapshot taken right after it.
func Sample(f clock.Frame, err error, snap kinetic.Snapshot) Record {
	rec := Record{
		Seq:     f.Seq,
		DtMs:    f.DtMs,
		Redraw:  f.Redraw,
		Pending: f.Pending,
		Effects: f.Flush.EffectsRun,
		Springs: snap.Springs,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	for _, m := range snap.Machines {
		rec.Machines = append(rec.Machines, MachineSample{ID: m.ID, Name: m.Name, State: m.State})
	}
	return rec
}

// Add buffers rec and writes the buffer once it is full. After a failed
// write the recorder stops writing and keeps returning the first error.
func (r *Recorder) Add(ctx context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	r.buf = append(r.buf, rec)
	r.frames++
	if len(r.buf) < r.batch {
		return nil
	}
	return r.flushLocked(ctx)
}

// Flush writes buffered frames.
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	return r.flushLocked(ctx)
}

func (r *Recorder) flushLocked(ctx context.Context) error {
	if len(r.buf) == 0 {
		return nil
	}
	if err := r.store.Append(ctx, r.session, r.buf); err != nil {
		r.err = err
		return err
	}
	r.logger.Debug("frames written", "session", r.session, "count", len(r.buf))
	r.buf = nil
	return nil
}

// Close flushes the remaining frames. The store stays open.
func (r *Recorder) Close(ctx context.Context) error {
	return r.Flush(ctx)
}
