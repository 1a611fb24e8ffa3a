package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"entropy-ci/internal/core"
)

// Server renders the pipeline on request. Every request runs the generator
// from scratch; only the immutable settings and default matrix are shared.
type Server struct {
	runner    *core.Runner
	scheduler *core.Scheduler
	matrix    core.Matrix
	l         *slog.Logger
}

func New(g *core.Generator, matrix core.Matrix, l *slog.Logger) *Server {
	return &Server{
		runner:    core.NewRunner(g, nil),
		scheduler: core.NewScheduler(),
		matrix:    matrix,
		l:         l,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.Healthz)
	r.Get("/pipeline", s.Pipeline)
	r.Get("/pipeline.{format}", s.Pipeline)
	r.Get("/plan", s.Plan)

	return r
}

func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// GET /pipeline, /pipeline.json, /pipeline.yaml
//
// ?format= selects the encoding when the path has no extension;
// repeated ?instance= and ?kernel= replace the configured matrix.
func (s *Server) Pipeline(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "format")
	if name == "" {
		name = r.URL.Query().Get("format")
	}
	if name == "" {
		name = string(core.FormatJSON)
	}
	format, err := core.ParseFormat(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m, err := s.matrixFor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := s.runner.Render(m, format)
	if err != nil {
		s.l.Warn("failed to render pipeline", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	etag := `"` + res.Digest + `"`
	w.Header().Set("ETag", etag)
	if etagMatch(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Write(res.Body)
}

// GET /plan
func (s *Server) Plan(w http.ResponseWriter, r *http.Request) {
	m, err := s.matrixFor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := s.runner.Render(m, core.FormatJSON)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	plan, err := s.scheduler.Plan(res.Pipeline)
	if err != nil {
		s.l.Error("failed to plan pipeline", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(plan); err != nil {
		s.l.Error("failed to write plan", "error", err)
	}
}

// maxMatrixValues bounds the repeated ?instance= and ?kernel= values.
const maxMatrixValues = 32

func (s *Server) matrixFor(r *http.Request) (core.Matrix, error) {
	q := r.URL.Query()
	m := s.matrix
	if instances := q["instance"]; len(instances) > 0 {
		if len(instances) > maxMatrixValues {
			return m, fmt.Errorf("too many instance values: %d > %d", len(instances), maxMatrixValues)
		}
		m.Instances = core.NewMatrix(instances, nil).Instances
	}
	if kernels := q["kernel"]; len(kernels) > 0 {
		if len(kernels) > maxMatrixValues {
			return m, fmt.Errorf("too many kernel values: %d > %d", len(kernels), maxMatrixValues)
		}
		m.Kernels = core.NewMatrix(nil, kernels).Kernels
	}
	return m, nil
}

// etagMatch reports whether an If-None-Match header matches etag, using
// weak comparison over a comma-separated list or "*".
func etagMatch(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.l.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Run serves h on addr until ctx is cancelled.
func Run(ctx context.Context, addr string, h http.Handler, l *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("starting server", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	l.Info("server stopped")
	return nil
}
