package report

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"heatwatch/internal/config"
	"heatwatch/internal/observability"
	"heatwatch/internal/types"
)

// ObservationLister supplies the pipeline's historical input.
type ObservationLister interface {
	ListSince(ctx context.Context, cityKey string, since time.Time) ([]types.Observation, error)
}

// FacilityCounter supplies per-unit facility counts.
type FacilityCounter interface {
	CountsByCity(ctx context.Context, cityKey string) (map[string]int, error)
}

// UnitLister supplies unit metadata, used here for densities.
type UnitLister interface {
	UnitsByCity(ctx context.Context, cityKey string) ([]types.SpatialUnit, error)
}

// ReportPersister stores and loads the durable copy of each scope's report.
type ReportPersister interface {
	Replace(ctx context.Context, report *types.Report) error
	Latest(ctx context.Context, scope string) (*types.Report, error)
	Meta(ctx context.Context, scope string) (*types.ReportMeta, error)
}

// ServiceConfig wires a report Service.
type ServiceConfig struct {
	Observations ObservationLister
	Facilities   FacilityCounter
	Units        UnitLister
	Persister    ReportPersister
	Store        *Store
	Config       config.ReportConfig
	Clock        types.Clock
	Metrics      *observability.Metrics
	Logger       *slog.Logger
}

// Service runs the batch prioritization pipeline and serves its output. The
// in-memory store is the read path; the persister is the durable copy that
// survives restarts.
type Service struct {
	observations ObservationLister
	facilities   FacilityCounter
	units        UnitLister
	persister    ReportPersister
	store        *Store
	cfg          config.ReportConfig
	clock        types.Clock
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// NewService creates a report Service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	store := cfg.Store
	if store == nil {
		store = NewStore()
	}
	return &Service{
		observations: cfg.Observations,
		facilities:   cfg.Facilities,
		units:        cfg.Units,
		persister:    cfg.Persister,
		store:        store,
		cfg:          cfg.Config,
		clock:        clock,
		metrics:      metrics,
		logger:       logger,
	}
}

// Generate runs the full pipeline for a scope and installs the result as the
// scope's current report. The work is detached from the caller's
// cancellation: once started, a generate runs to completion and commits even
// if the requesting client disconnects. Two concurrent generates may both
// complete; whichever commits later wins.
func (s *Service) Generate(ctx context.Context, scope string) (*types.Report, error) {
	ctx = context.WithoutCancel(ctx)

	start := time.Now()
	report, outcome, err := s.generate(ctx, scope)
	s.metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	s.metrics.ReportRuns.WithLabelValues(outcome).Inc()

	if err != nil {
		s.logger.ErrorContext(ctx, "report generation failed",
			"scope", scope,
			"error", err,
		)
		return nil, err
	}

	s.logger.InfoContext(ctx, "report generated",
		"scope", scope,
		"units", len(report.Rows),
		"report_date", report.ReportDate.Format(time.DateOnly),
		"outcome", outcome,
	)
	return report, nil
}

func (s *Service) generate(ctx context.Context, scope string) (*types.Report, string, error) {
	since := s.clock.Now().AddDate(0, 0, -s.cfg.RollingWindowDays)
	observations, err := s.observations.ListSince(ctx, scope, since)
	if err != nil {
		return nil, "error", err
	}
	if len(observations) == 0 {
		return nil, "error", types.NewAppError(types.ErrCodeComputationDegenerate,
			"no observations in the rolling window, nothing to cluster", nil)
	}

	facilityCounts, err := s.facilities.CountsByCity(ctx, scope)
	if err != nil {
		return nil, "error", err
	}

	// Densities enrich the feature set but are not required; a geo failure
	// degrades to the two base features.
	densities := make(map[string]float64)
	if units, err := s.units.UnitsByCity(ctx, scope); err == nil {
		for _, unit := range units {
			if unit.Density != nil {
				densities[unit.ID] = *unit.Density
			}
		}
	} else {
		s.logger.WarnContext(ctx, "unit metadata unavailable, building features without density",
			"scope", scope,
			"error", err,
		)
	}

	matrix := BuildFeatures(observations, facilityCounts, densities)
	scaled := Scale(matrix)
	if len(scaled.Degenerate) > 0 {
		s.logger.WarnContext(ctx, "constant feature columns zeroed before clustering",
			"scope", scope,
			"columns", scaled.Degenerate,
		)
	}

	var rows map[string]types.ReportRow
	outcome := "success"
	if len(scaled.UnitIDs) < s.cfg.Clusters {
		// Too few units to cluster: each unit stands alone and its severity
		// rank is its level.
		rows = RankUnits(scaled)
		outcome = "degenerate"
	} else {
		clusterer := NewClusterer(s.cfg.Clusters, s.cfg.Seed)
		assignment, _ := clusterer.Cluster(scaled.Rows)
		levels := RankClusters(scaled, assignment, s.cfg.Clusters)

		rows = make(map[string]types.ReportRow, len(scaled.UnitIDs))
		for i, unitID := range scaled.UnitIDs {
			rows[unitID] = types.ReportRow{
				RiskLevel: levels[assignment[i]],
				ClusterID: assignment[i],
			}
		}
	}

	report := &types.Report{
		ID:          uuid.NewString(),
		Scope:       scope,
		ReportDate:  latestDate(observations),
		GeneratedAt: s.clock.Now(),
		Rows:        rows,
	}

	if err := s.persister.Replace(ctx, report); err != nil {
		return nil, "error", err
	}
	s.store.Replace(report)
	return report, outcome, nil
}

// Latest returns the scope's current report, falling back to the durable
// copy after a restart. No report at all is a not-found condition.
func (s *Service) Latest(ctx context.Context, scope string) (*types.Report, error) {
	if report := s.store.Latest(scope); report != nil {
		return report, nil
	}

	report, err := s.persister.Latest(ctx, scope)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, types.NewAppError(types.ErrCodeNotFoundReport,
			"no report has been generated for this scope", nil)
	}
	s.store.Replace(report)
	return report, nil
}

// Meta reports availability without loading rows.
func (s *Service) Meta(ctx context.Context, scope string) (*types.ReportMeta, error) {
	if report := s.store.Latest(scope); report != nil {
		return &types.ReportMeta{
			Available:   true,
			ReportDate:  report.ReportDate,
			GeneratedAt: report.GeneratedAt,
		}, nil
	}
	return s.persister.Meta(ctx, scope)
}

// Upload accepts an externally computed report and installs it wholesale.
// When an upload secret is configured the caller must present it; the
// comparison is constant time.
func (s *Service) Upload(ctx context.Context, scope string, report *types.Report, secret string) error {
	if configured := s.cfg.UploadSecret.Unmask(); configured != "" {
		if subtle.ConstantTimeCompare([]byte(configured), []byte(secret)) != 1 {
			return types.NewAppError(types.ErrCodeAuthReportSecret,
				"report upload secret mismatch", nil)
		}
	}

	if report == nil || len(report.Rows) == 0 {
		return types.NewAppError(types.ErrCodeValidationInvalidReport,
			"uploaded report has no rows", nil)
	}
	for unitID, row := range report.Rows {
		if !row.RiskLevel.Valid() {
			return types.NewAppError(types.ErrCodeValidationInvalidReport,
				"uploaded report has an out-of-range risk level for unit "+unitID, nil)
		}
	}

	report.Scope = scope
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = s.clock.Now()
	}

	if err := s.persister.Replace(ctx, report); err != nil {
		return err
	}
	s.store.Replace(report)

	s.logger.InfoContext(ctx, "externally computed report installed",
		"scope", scope,
		"units", len(report.Rows),
	)
	return nil
}

func latestDate(observations []types.Observation) time.Time {
	latest := observations[0].Date
	for _, obs := range observations[1:] {
		if obs.Date.After(latest) {
			latest = obs.Date
		}
	}
	return latest
}
