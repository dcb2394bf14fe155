// Package server is the HTTP surface over the metric store and registry.
//
//	GET    /live-metrics          full projection, or ?start=K[&end=M] per series
//	GET    /live-metrics/stream   server-sent events, deltas since the previous push
//	GET    /targets               registry snapshot
//	DELETE /targets?service=S&pid=N   stop tracking a target
//	GET    /metrics               Prometheus exposition
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Deeksh1tha/Energy-Audit/pkg/registry"
	"github.com/Deeksh1tha/Energy-Audit/pkg/store"
)

// DefaultAddr is where the collector serves HTTP.
const DefaultAddr = "127.0.0.1:5000"

// Untracker is implemented by *consumption.Engine.
type Untracker interface {
	Untrack(t registry.Target) bool
}

// Options configures the HTTP surface.
type Options struct {
	Addr           string
	StreamInterval time.Duration       // default 1s
	Gatherer       prometheus.Gatherer // nil: /metrics not served
	Untracker      Untracker           // nil: DELETE /targets not served
	Logger         *slog.Logger
}

// Server serves the JSON read API over a store and registry.
type Server struct {
	store *store.Store
	reg   *registry.Registry
	opts  Options
	log   *slog.Logger
	mux   *http.ServeMux
}

// New wires the routes. Zero-valued options fall back to defaults.
func New(st *store.Store, reg *registry.Registry, o Options) *Server {
	if o.Addr == "" {
		o.Addr = DefaultAddr
	}
	if o.StreamInterval <= 0 {
		o.StreamInterval = time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	s := &Server{store: st, reg: reg, opts: o, log: o.Logger.With("component", "server"), mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /live-metrics", s.handleLiveMetrics)
	s.mux.HandleFunc("GET /live-metrics/stream", s.handleStream)
	s.mux.HandleFunc("GET /targets", s.handleTargets)
	if o.Untracker != nil {
		s.mux.HandleFunc("DELETE /targets", s.handleUntrack)
	}
	if o.Gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(o.Gatherer, promhttp.HandlerOpts{}))
	}
	return s
}

// Handler returns the routed handler, for mounting or tests.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe binds opts.Addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully. Open
// streams end with ctx since request contexts derive from it.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.log.Info("serving http", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("shutdown", "err", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func (s *Server) handleLiveMetrics(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	d := store.Delta{
		Full:   rng == store.Full(),
		Series: s.store.ReadAll(rng),
	}
	d.Efficiency, d.EfficiencyStart = s.store.Efficiency(rng)
	writeJSON(w, d)
}

// handleStream pushes the cursor's delta every StreamInterval. The first
// event is the full snapshot; later events carry only new points and are
// skipped when nothing changed.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	cur := s.store.NewCursor()
	t := time.NewTicker(s.opts.StreamInterval)
	defer t.Stop()

	for {
		if d := cur.Next(); !d.Empty() {
			b, err := json.Marshal(d)
			if err != nil {
				s.log.Error("stream encode", "err", err)
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
				return
			}
			flusher.Flush()
		}
		select {
		case <-r.Context().Done():
			return
		case <-t.C:
		}
	}
}

func (s *Server) handleTargets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.reg.Snapshot())
}

func (s *Server) handleUntrack(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pid, err := strconv.Atoi(q.Get("pid"))
	if err != nil || pid <= 0 || q.Get("service") == "" {
		http.Error(w, "service and a positive pid are required", http.StatusBadRequest)
		return
	}
	t := registry.Target{Service: q.Get("service"), PID: pid}
	if !s.opts.Untracker.Untrack(t) {
		http.Error(w, "target not tracked", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseRange reads ?start and ?end. Absent start means 0, absent end means
// the current length.
func parseRange(r *http.Request) (store.Range, error) {
	rng := store.Full()
	q := r.URL.Query()
	if v := q.Get("start"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return rng, errors.New("start must be a non-negative integer")
		}
		rng.Start = n
	}
	if v := q.Get("end"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return rng, errors.New("end must be a non-negative integer")
		}
		rng.End = n
	}
	return rng, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response", "err", err)
	}
}
