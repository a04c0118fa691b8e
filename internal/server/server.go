// Package server exposes the engine over an authenticated HTTP API.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/petrijr/disparo/internal/auth"
	"github.com/petrijr/disparo/pkg/api"
	"github.com/petrijr/disparo/pkg/dispatch"
)

// Config configures the HTTP server.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// Registry, when set, is exposed at /metrics.
	Registry *prometheus.Registry
}

// Server wires the engine, dispatcher, and auth service behind a gin
// router.
type Server struct {
	cfg        Config
	engine     api.Engine
	dispatcher *dispatch.Dispatcher
	auth       *auth.Service
	log        *slog.Logger

	httpSrv *http.Server
}

// New creates a Server. logger may be nil, in which case slog.Default()
// is used.
func New(cfg Config, eng api.Engine, d *dispatch.Dispatcher, authSvc *auth.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	return &Server{
		cfg:        cfg,
		engine:     eng,
		dispatcher: d,
		auth:       authSvc,
		log:        logger,
	}
}

// Router builds the gin engine with all routes registered. It is
// exported so tests can drive the API through httptest without binding
// a socket.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/api/v1/health", s.handleHealth)

	if s.cfg.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.cfg.Registry, promhttp.HandlerOpts{})))
	}

	guest := r.Group("/api/v1/auth", auth.RequireGuest(s.auth))
	{
		guest.POST("/register", s.handleRegister)
		guest.POST("/login", s.handleLogin)
	}

	authed := r.Group("/api/v1", auth.RequireAuth(s.auth))
	{
		authed.GET("/workflows", s.handleListWorkflows)
		authed.POST("/workflows", s.handleCreateWorkflow)
		authed.GET("/workflows/:id", s.handleGetWorkflow)
		authed.GET("/workflows/:id/events", s.handleWorkflowEvents)
		authed.POST("/ai", s.handleExecuteAI)
	}

	return r
}

// Start begins serving. It blocks until the listener fails or Shutdown
// is called.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info("http server listening", "addr", s.cfg.Addr)
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// requestLogger logs one line per request with method, path, status,
// and latency.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
