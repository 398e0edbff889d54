package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/kinetic"
	kerrors "github.com/vango-dev/kinetic/internal/errors"
	"github.com/vango-dev/kinetic/pkg/clock"
	"github.com/vango-dev/kinetic/pkg/fsm"
)

// Source is what the inspector reads. *kinetic.Runtime implements it.
type Source interface {
	Snapshot() kinetic.Snapshot
	Machine(id fsm.InstanceID) (kinetic.MachineState, error)
}

// Server serves a read-only view of a runtime over HTTP.
//
//	GET /snapshot        full runtime snapshot
//	GET /machines/{id}   one machine with its recent transitions
//	GET /metrics         prometheus exposition
//	GET /ws              live frame stream
type Server struct {
	src      Source
	hub      *Hub
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithGatherer exposes metrics from g on /metrics. Without it the route
// is not mounted.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithHub replaces the default frame hub.
func WithHub(h *Hub) Option {
	return func(s *Server) {
		s.hub = h
	}
}

// NewServer builds the inspector for src.
func NewServer(src Source, opts ...Option) *Server {
	s := &Server{
		src:    src,
		logger: slog.Default().With("component", "inspect"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub == nil {
		s.hub = NewHub(1, s.logger)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)

	r.Get("/snapshot", s.handleSnapshot)
	r.Get("/machines/{id}", s.handleMachine)
	r.Handle("/ws", s.hub)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Handler returns the HTTP handler of the inspector.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the frame hub behind /ws.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Observe forwards a frame to stream clients. It has the signature of
// clock.Observer so it can be registered with Runtime.OnFrame.
func (s *Server) Observe(f clock.Frame, err error) {
	s.hub.Observe(f, err)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	s.logger.Info("inspector listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.src.Snapshot())
}

func (s *Server) handleMachine(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid machine id " + strconv.Quote(raw)})
		return
	}
	st, err := s.src.Machine(fsm.InstanceID(id))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, fsm.ErrStaleMachine) {
			status = http.StatusNotFound
		}
		s.writeError(w, status, err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	body := errorBody{Error: err.Error()}
	var kerr *kerrors.Error
	if errors.As(err, &kerr) {
		body.Code = kerr.Code
	}
	s.writeJSON(w, status, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.logger.Debug("write response", "error", err)
	}
}
