// Package main is a one-shot runner for the batch prioritization pipeline.
//
// It loads configuration, runs Generate for each scope given on the command
// line, and exits non-zero if any scope fails. Intended for cron or manual
// invocation alongside the API server, which serves whatever the runner
// committed last.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"heatwatch/internal/config"
	"heatwatch/internal/db"
	"heatwatch/internal/geo"
	"heatwatch/internal/observability"
	"heatwatch/internal/report"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(scopes []string) error {
	if len(scopes) == 0 {
		return fmt.Errorf("usage: report-runner <scope> [scope...]")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	logger.Info("report runner starting", "scopes", scopes)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer pool.Close()

	unitRepo := db.NewUnitRepository(pool)
	geoProvider := geo.NewCachedProvider(geo.NewRepositoryProvider(unitRepo))

	reports := report.NewService(report.ServiceConfig{
		Observations: db.NewObservationRepository(pool),
		Facilities:   db.NewFacilityRepository(pool),
		Units:        geoProvider,
		Persister:    db.NewReportRepository(pool),
		Store:        report.NewStore(),
		Config:       cfg.Report,
		Metrics:      observability.NewMetrics(),
		Logger:       logger,
	})

	failed := 0
	for _, scope := range scopes {
		generated, err := reports.Generate(ctx, scope)
		if err != nil {
			logger.Error("scope failed", "scope", scope, "error", err)
			failed++
			continue
		}
		logger.Info("scope complete",
			"scope", scope,
			"units", len(generated.Rows),
		)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scopes failed", failed, len(scopes))
	}
	return nil
}
