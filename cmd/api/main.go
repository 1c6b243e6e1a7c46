// Package main is the entry point for the heatwatch API server.
//
// It loads configuration, connects the database pool, wires the geo,
// weather, heat, and report services, builds the HTTP server with the
// chassis middleware, and listens until SIGINT/SIGTERM triggers a graceful
// shutdown.
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

	"heatwatch/internal/api"
	"heatwatch/internal/config"
	"heatwatch/internal/db"
	"heatwatch/internal/geo"
	"heatwatch/internal/heat"
	"heatwatch/internal/observability"
	"heatwatch/internal/report"
	"heatwatch/internal/weather"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("heatwatch API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()

	unitRepo := db.NewUnitRepository(pool)
	facilityRepo := db.NewFacilityRepository(pool)
	observationRepo := db.NewObservationRepository(pool)
	reportRepo := db.NewReportRepository(pool)

	geoProvider := geo.NewCachedProvider(geo.NewRepositoryProvider(unitRepo))

	source, err := weather.NewHTTPSource("meteosource", &http.Client{}, cfg.Weather)
	if err != nil {
		return fmt.Errorf("creating weather source: %w", err)
	}
	cache := weather.NewTemperatureCache(cfg.Weather.CacheTTL, nil)
	fetcher := weather.NewFetcher(weather.FetcherConfig{
		Source:         weather.NewChain(logger, source),
		Cache:          cache,
		Metrics:        metrics,
		Logger:         logger,
		Concurrency:    cfg.Weather.FetchConcurrency,
		CoordPrecision: cfg.Weather.CoordPrecision,
	})

	assessments := heat.NewService(heat.ServiceConfig{
		Geo:     geoProvider,
		Fetcher: fetcher,
		Config:  cfg.Heat,
		Metrics: metrics,
		Logger:  logger,
	})

	reports := report.NewService(report.ServiceConfig{
		Observations: observationRepo,
		Facilities:   facilityRepo,
		Units:        geoProvider,
		Persister:    reportRepo,
		Store:        report.NewStore(),
		Config:       cfg.Report,
		Metrics:      metrics,
		Logger:       logger,
	})

	srv, err := api.NewServer(cfg, logger, assessments, reports)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.MountRoutes()

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

	logger.Info("initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
