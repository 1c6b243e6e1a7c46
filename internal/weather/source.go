// Package weather implements temperature acquisition for the real-time path:
// an upstream source abstraction with ordered fallback, a TTL-keyed
// deduplicating cache, and a bounded-concurrency fetch orchestrator.
package weather

import (
	"context"
	"log/slog"

	"heatwatch/internal/types"
)

// Source returns the current reading for a coordinate. Implementations may
// fail; the orchestrator treats any error as "no data for this key" and moves
// on. No retries are performed inside this package.
type Source interface {
	// Name identifies the source in logs and metrics.
	Name() string
	// Current returns the current temperature and optional humidity.
	Current(ctx context.Context, lat, lng float64) (*types.WeatherReading, error)
}

// Chain is an ordered list of sources tried in sequence; the first success
// wins. It only returns an error when every source fails.
type Chain struct {
	sources []Source
	logger  *slog.Logger
}

// NewChain creates a source chain. The order of the sources is the order of
// preference.
func NewChain(logger *slog.Logger, sources ...Source) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{sources: sources, logger: logger}
}

// Name identifies the chain in logs.
func (c *Chain) Name() string { return "chain" }

// Current tries each source in order and returns the first successful
// reading. Failures short of the last source are logged and skipped.
func (c *Chain) Current(ctx context.Context, lat, lng float64) (*types.WeatherReading, error) {
	var lastErr error

	for _, src := range c.sources {
		reading, err := src.Current(ctx, lat, lng)
		if err != nil {
			c.logger.WarnContext(ctx, "weather source failed, trying next",
				"source", src.Name(),
				"error", err,
			)
			lastErr = err
			continue
		}
		return reading, nil
	}

	if lastErr != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather,
			"all weather sources failed", lastErr)
	}
	return nil, types.NewAppError(types.ErrCodeUpstreamWeather,
		"no weather sources configured", nil)
}
