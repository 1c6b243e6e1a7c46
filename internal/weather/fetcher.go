package weather

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"heatwatch/internal/observability"
	"heatwatch/internal/types"
)

// defaultFetchConcurrency bounds upstream calls when no limit is configured.
const defaultFetchConcurrency = 5

// FetcherConfig wires a Fetcher's collaborators.
type FetcherConfig struct {
	Source         Source
	Cache          *TemperatureCache
	Metrics        *observability.Metrics
	Logger         *slog.Logger
	Concurrency    int
	CoordPrecision int
}

// Fetcher resolves current temperatures for a set of spatial units in one
// deduplicated, bounded-concurrency cycle. Units sharing a dedup key are
// fetched once and all receive the same reading. A unit whose key cannot be
// resolved is omitted from the result; only a cycle that resolves nothing is
// an error.
type Fetcher struct {
	source      Source
	cache       *TemperatureCache
	metrics     *observability.Metrics
	logger      *slog.Logger
	concurrency int
	precision   int
}

// NewFetcher creates a Fetcher. Nil logger and metrics fall back to defaults
// so tests and tools can construct one with only a source and cache.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultFetchConcurrency
	}
	return &Fetcher{
		source:      cfg.Source,
		cache:       cfg.Cache,
		metrics:     metrics,
		logger:      logger,
		concurrency: concurrency,
		precision:   cfg.CoordPrecision,
	}
}

// Fetch returns a reading per unit ID for every unit whose dedup key
// resolved, from cache or upstream. The error is non-nil only when units
// were requested and none resolved.
func (f *Fetcher) Fetch(ctx context.Context, units []types.SpatialUnit, mode DedupMode) (map[string]types.WeatherReading, error) {
	start := time.Now()
	defer func() {
		f.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}()

	f.cache.Sweep()

	// Group units by dedup key; the first unit seen supplies the coordinate
	// used for the upstream call.
	keyUnits := make(map[string][]string)
	keyCoord := make(map[string]types.Coordinate)
	var keyOrder []string
	for _, unit := range units {
		key := KeyFor(unit, mode, f.precision)
		if _, seen := keyUnits[key]; !seen {
			keyOrder = append(keyOrder, key)
			keyCoord[key] = unit.Centroid
		}
		keyUnits[key] = append(keyUnits[key], unit.ID)
	}

	readings := make(map[string]types.WeatherReading, len(keyOrder))
	var missing []string
	for _, key := range keyOrder {
		if reading, ok := f.cache.Get(key); ok {
			f.metrics.CacheLookups.WithLabelValues("hit").Inc()
			readings[key] = *reading
			continue
		}
		f.metrics.CacheLookups.WithLabelValues("miss").Inc()
		missing = append(missing, key)
	}

	if len(missing) > 0 {
		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(f.concurrency)

		for _, key := range missing {
			g.Go(func() error {
				coord := keyCoord[key]
				reading, err := f.source.Current(gctx, coord.Lat, coord.Lng)
				if err != nil {
					f.metrics.WeatherRequests.WithLabelValues("error").Inc()
					f.logger.WarnContext(gctx, "temperature fetch failed, omitting key",
						"key", key,
						"units", len(keyUnits[key]),
						"error", err,
					)
					return nil
				}
				f.metrics.WeatherRequests.WithLabelValues("success").Inc()
				f.cache.Put(key, *reading)

				mu.Lock()
				readings[key] = *reading
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	result := make(map[string]types.WeatherReading, len(units))
	for key, reading := range readings {
		for _, unitID := range keyUnits[key] {
			result[unitID] = reading
		}
	}

	if len(result) == 0 && len(units) > 0 {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather,
			"no temperature data available for any requested unit", nil)
	}
	return result, nil
}
