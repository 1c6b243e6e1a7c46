package heat

import (
	"context"
	"fmt"
	"log/slog"

	"heatwatch/internal/config"
	"heatwatch/internal/geo"
	"heatwatch/internal/observability"
	"heatwatch/internal/types"
	"heatwatch/internal/weather"
)

// TemperatureFetcher resolves current readings for a set of units.
type TemperatureFetcher interface {
	Fetch(ctx context.Context, units []types.SpatialUnit, mode weather.DedupMode) (map[string]types.WeatherReading, error)
}

// AssessmentOptions are the per-request knobs of the real-time path.
type AssessmentOptions struct {
	// Limit caps how many units are assessed; 0 means all.
	Limit int
	// Mode selects the fetch dedup strategy.
	Mode weather.DedupMode
	// MaxSpreadC overrides the configured spread cap when > 0.
	MaxSpreadC float64
}

// AssessmentResult is the full output of one assessment cycle. Units whose
// temperature did not resolve appear in none of the maps.
type AssessmentResult struct {
	Temperatures  map[string]float64
	Assessments   map[string]types.RiskAssessment
	LevelCounts   map[types.RiskLevel]int
	HeatIndexUsed bool
}

// ServiceConfig wires an assessment Service.
type ServiceConfig struct {
	Geo     geo.Provider
	Fetcher TemperatureFetcher
	Config  config.HeatConfig
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Service runs the real-time assessment flow: units from geo, temperatures
// from the fetch orchestrator, then spread, heat index, and classification.
// Nothing it produces is persisted.
type Service struct {
	geo     geo.Provider
	fetcher TemperatureFetcher
	cfg     config.HeatConfig
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewService creates an assessment Service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	return &Service{
		geo:     cfg.Geo,
		fetcher: cfg.Fetcher,
		cfg:     cfg.Config,
		metrics: metrics,
		logger:  logger,
	}
}

// Assess produces per-unit risk assessments for a city. Partial coverage is
// normal: units without a resolved temperature are omitted, and the call
// fails only when no unit resolved at all.
func (s *Service) Assess(ctx context.Context, cityKey string, opts AssessmentOptions) (*AssessmentResult, error) {
	if opts.Limit < 0 || opts.Limit > s.cfg.MaxUnits {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidLimit,
			fmt.Sprintf("limit must be between 0 and %d", s.cfg.MaxUnits), nil)
	}
	if opts.MaxSpreadC < 0 {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidSpread,
			"spread must not be negative", nil)
	}
	if opts.Mode == "" {
		opts.Mode = weather.ModeExact
	}

	units, err := s.geo.UnitsByCity(ctx, cityKey)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, types.NewAppError(types.ErrCodeNotFoundCity,
			fmt.Sprintf("no spatial units known for city %q", cityKey), nil)
	}
	if opts.Limit > 0 && len(units) > opts.Limit {
		units = units[:opts.Limit]
	}

	readings, err := s.fetcher.Fetch(ctx, units, opts.Mode)
	if err != nil {
		return nil, err
	}

	if omitted := len(units) - len(readings); omitted > 0 {
		s.logger.WarnContext(ctx, "assessment running on partial coverage",
			"city", cityKey,
			"requested", len(units),
			"resolved", len(readings),
		)
	}

	spreadCap := s.cfg.MaxSpreadC
	if opts.MaxSpreadC > 0 {
		spreadCap = opts.MaxSpreadC
	}

	temps := make(map[string]float64, len(readings))
	for unitID, reading := range readings {
		temps[unitID] = reading.TempC
	}
	temps = ApplySpread(units, temps, spreadCap)

	result := &AssessmentResult{
		Temperatures: temps,
		Assessments:  make(map[string]types.RiskAssessment, len(temps)),
		LevelCounts:  make(map[types.RiskLevel]int),
	}

	for unitID, tempC := range temps {
		humidity := readings[unitID].Humidity

		classifyTemp := tempC
		var heatIndex *float64
		if humidity != nil {
			hi := HeatIndexC(tempC, humidity)
			classifyTemp = hi
			heatIndex = &hi
			result.HeatIndexUsed = true
		}

		level := Classify(classifyTemp)
		result.Assessments[unitID] = types.RiskAssessment{
			UnitID:     unitID,
			TempC:      tempC,
			HeatIndexC: heatIndex,
			Level:      level,
			Label:      level.Label(),
			Score:      level.Score(),
		}
		result.LevelCounts[level]++
	}

	s.metrics.AssessmentsServed.Add(float64(len(result.Assessments)))
	return result, nil
}
