// Package core provides the API chassis for the Kynex platform. It builds a
// chi router and enforces the cross-cutting concerns, panic recovery,
// timeouts, request correlation, logging, before requests reach the domain
// handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kynex/internal/config"
)

// HealthProbe is a subsystem health check. Each probe represents a critical
// dependency (database, weather upstream) that must be operational.
type HealthProbe interface {
	Name() string
	Check(ctx context.Context) error
}

// RouteRegistrar mounts one handler group on the /v1 router. Handlers
// register through this indirection so core never imports handler packages.
type RouteRegistrar func(r chi.Router)

// Server encapsulates the API dependencies, allowing injection during
// testing and distinct configuration per environment.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator

	V1RouteRegistrars []RouteRegistrar
	HealthProbes      []HealthProbe

	router *chi.Mux
}

// NewServer initializes the router and prepares the server for route
// mounting. The caller mounts routes via MountRoutes after registering
// handlers.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration in tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// MountRoutes registers the global middleware chain, the /v1 handler groups,
// and the health endpoint. Middleware order matters: the recoverer is
// outermost so every panic is caught, and the request ID runs before the
// logger so log lines carry the correlation ID.
func (s *Server) MountRoutes() {
	s.router.Use(s.Recoverer)
	s.router.Use(ContextTimeoutMiddleware(s.requestTimeout()))
	s.router.Use(RequestIDMiddleware)
	s.router.Use(RequestLogger(s.Logger))

	s.router.Route("/v1", func(r chi.Router) {
		for _, registrar := range s.V1RouteRegistrars {
			registrar(r)
		}
	})

	s.router.Get("/health", s.HandleHealth)
}

func (s *Server) requestTimeout() time.Duration {
	if s.Config.Server.RequestTimeout > 0 {
		return s.Config.Server.RequestTimeout
	}
	return 30 * time.Second
}
