// Package server exposes build orders over HTTP.
//
// Routes:
//
//	GET /healthz                          liveness check
//	GET /v1/order?atom=a&atom=b[&policy=newest][&arch=arm64]
//
// A successful order request returns
//
//	{"run_id": "...", "order": [...], "nodes": [...], "edges": [...]}
//
// Failures return {"code": "...", "message": "..."} with a status derived
// from the error code.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/emergo/pkg/dag"
	"github.com/matzehuels/emergo/pkg/errors"
	"github.com/matzehuels/emergo/pkg/observability"
	"github.com/matzehuels/emergo/pkg/pipeline"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

const shutdownTimeout = 10 * time.Second

// Resolver computes build orders. pipeline.Runner implements it.
type Resolver interface {
	Resolve(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error)
}

// Server serves the HTTP API.
type Server struct {
	resolver Resolver
	logger   *log.Logger
	router   chi.Router
}

// New creates a server backed by resolver.
func New(resolver Resolver, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{resolver: resolver, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.observe)
	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/order", s.handleOrder)
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// observe reports requests to the server hooks and the log.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.Server()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, status, elapsed)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", status, "duration", elapsed)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type orderResponse struct {
	RunID string     `json:"run_id"`
	Order []string   `json:"order"`
	Nodes []string   `json:"nodes"`
	Edges []dag.Edge `json:"edges"`
}

type errorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := pipeline.Options{
		Atoms:  q["atom"],
		Policy: q.Get("policy"),
		Arch:   q.Get("arch"),
	}

	res, err := s.resolver.Resolve(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, orderResponse{
		RunID: res.RunID.String(),
		Order: res.Order,
		Nodes: res.Graph.Names(),
		Edges: res.Graph.Edges(),
	})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := StatusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("order failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: errors.UserMessage(err)})
}

// StatusFor maps an error code to an HTTP status.
func StatusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidAtom, errors.ErrCodeLex, errors.ErrCodeInvalidInput, errors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errors.ErrCodeNoEbuild:
		return http.StatusNotFound
	case errors.ErrCodeAmbiguousName, errors.ErrCodeCycle:
		return http.StatusConflict
	case errors.ErrCodeMissingEAPI, errors.ErrCodeUnsupportedEAPI:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
