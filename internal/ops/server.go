// Package ops serves the operational endpoints (metrics, health, pprof) on a
// listener separate from the public API.
package ops

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"insightforge/internal"
	"insightforge/internal/metrics"
)

// Check reports the health of one dependency
type Check func(ctx context.Context) error

// HealthResponse is the body of /healthz
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Server is the ops HTTP server
type Server struct {
	router *chi.Mux
	checks map[string]Check
	logger *internal.Logger
	srv    *http.Server
}

// NewServer builds the router. checks are run on every /healthz request;
// corsOrigins, when set, lets dashboards on those origins read the endpoints.
func NewServer(m *metrics.Metrics, checks map[string]Check, corsOrigins []string, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	s := &Server{
		router: chi.NewRouter(),
		checks: checks,
		logger: logger.With("ops"),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	if len(corsOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	s.router.Get("/healthz", s.handleHealth)
	if m != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	}
	s.router.Mount("/debug", middleware.Profiler())
	return s
}

// Handler exposes the router for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr until Shutdown
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Info("ops server listening on %s", addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the listener
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Timestamp: time.Now().UTC()}

	if len(s.checks) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp.Checks = make(map[string]string, len(s.checks))
		for name, check := range s.checks {
			if err := check(ctx); err != nil {
				s.logger.Warn("health check %s failed: %v", name, err)
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	if resp.Status != "ok" {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, resp)
}
