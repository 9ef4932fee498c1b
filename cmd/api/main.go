// Package main is the entry point for the Kynex API server.
//
// It loads configuration, connects the database pool, wires the repositories
// and domain services, builds the HTTP server with the core chassis
// (middleware, routing, health checks), and starts listening for requests.
// The daily retraining loop and, when enabled, the synthetic telemetry
// generator run as background goroutines alongside the server.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kynex/internal/api/handlers"
	"kynex/internal/config"
	"kynex/internal/core"
	"kynex/internal/db"
	"kynex/internal/forecast"
	"kynex/internal/power"
	"kynex/internal/scheduler"
	"kynex/internal/simulate"
	"kynex/internal/training"
	"kynex/internal/weather"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("kynex API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer pool.Close()

	customerRepo := db.NewCustomerRepo(pool)
	telemetryRepo := db.NewTelemetryRepo(pool)
	modelRepo := db.NewModelRepo(pool)

	policy := weather.DefaultRetryPolicy()
	policy.MaxRetries = cfg.Weather.MaxRetries
	weatherClient := weather.NewClient(
		cfg.Weather.BaseURL,
		&http.Client{Timeout: cfg.Weather.Timeout},
		policy,
	)

	encoder := forecast.NewEncoder(forecast.StandardProfileDefaults())
	forecastSvc := forecast.NewService(modelRepo, telemetryRepo, weatherClient, logger, nil)
	trainer := training.NewService(customerRepo, telemetryRepo, modelRepo, encoder, training.Config{
		DaysBack:   cfg.Training.DaysBack,
		L2:         cfg.Training.L2,
		Seed:       cfg.Training.Seed,
		MinSamples: cfg.Training.MinSamples,
	}, logger, nil)
	advisor := power.NewAdvisor(customerRepo, telemetryRepo, modelRepo, forecast.StandardProfileDefaults(), logger, nil)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.HealthProbes = append(srv.HealthProbes, db.NewPingProbe(pool))

	forecastHandler := handlers.NewForecastHandler(forecastSvc, customerRepo, logger)
	customerHandler := handlers.NewCustomerHandler(customerRepo, advisor, logger)
	adminHandler := handlers.NewAdminHandler(trainer, advisor, modelRepo, srv.Validator, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		forecastHandler.RegisterRoutes,
		customerHandler.RegisterRoutes,
		adminHandler.RegisterRoutes,
	)
	srv.MountRoutes()

	retraining := scheduler.NewRetrainingService(trainer, cfg.Training.Interval, cfg.Training.DaysBack, logger)
	go retraining.Start(ctx)

	if cfg.Simulation.Enabled {
		generator := simulate.NewGenerator(cfg.Simulation.Seed, logger)
		generation := scheduler.NewGenerationService(generator, customerRepo, telemetryRepo, logger)
		go generation.Start(ctx)
		logger.Info("synthetic telemetry generator enabled", "seed", cfg.Simulation.Seed)
	}

	return runHTTPServer(srv, cfg, logger, cancel)
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger, stopBackground context.CancelFunc) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	stopBackground()

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}
