package server

import (
	"context"
	"net/http"
	"path"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"edgerelay/internal/relay"
)

// Server wraps the Echo server.
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server configuration options.
type Config struct {
	AllowedOrigin   string // CORS origin written on relayed responses
	MetricsEnabled  bool   // Whether to expose the Prometheus metrics endpoint
	MetricsEndpoint string // HTTP path for the metrics endpoint (default: /metrics)
	BodySizeLimit   string // Max request body size (echo format, e.g. "10M")
}

// New creates a new HTTP server.
func New(orch *relay.Orchestrator, cfg *Config) *Server {
	e := echo.New()
	e.HideBanner = true

	allowedOrigin := ""
	if cfg != nil {
		allowedOrigin = cfg.AllowedOrigin
	}
	handler := NewHandler(orch, allowedOrigin)

	e.Use(middleware.Recover())
	if cfg != nil && cfg.BodySizeLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodySizeLimit))
	}

	e.GET("/health", handler.Health)

	if cfg != nil && cfg.MetricsEnabled {
		metricsPath := "/metrics"
		if cfg.MetricsEndpoint != "" {
			// Normalize path to prevent traversal tricks.
			metricsPath = path.Clean(cfg.MetricsEndpoint)
		}
		e.GET(metricsPath, echo.WrapHandler(promhttp.Handler()))
	}

	// Relay routes. Only GET enters the pipeline; echo answers other
	// methods with 405 before any relay work happens.
	e.GET("/relay", handler.Relay)
	e.GET("/relay/*", handler.Relay)

	return &Server{
		echo:    e,
		handler: handler,
	}
}

// Start starts the HTTP server on the given address.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements http.Handler, allowing Server to be used with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
