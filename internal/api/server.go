package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"heatwatch/internal/config"
	"heatwatch/internal/heat"
	"heatwatch/internal/types"
)

// AssessmentService is the real-time risk path consumed by the handlers.
type AssessmentService interface {
	Assess(ctx context.Context, cityKey string, opts heat.AssessmentOptions) (*heat.AssessmentResult, error)
}

// ReportService is the batch report path consumed by the handlers.
type ReportService interface {
	Generate(ctx context.Context, scope string) (*types.Report, error)
	Latest(ctx context.Context, scope string) (*types.Report, error)
	Meta(ctx context.Context, scope string) (*types.ReportMeta, error)
	Upload(ctx context.Context, scope string, report *types.Report, secret string) error
}

// Server wires configuration, services, and the router. Dependencies are
// injected so tests can swap the services for fakes.
type Server struct {
	cfg         *config.Config
	logger      *slog.Logger
	assessments AssessmentService
	reports     ReportService

	router *chi.Mux
}

// NewServer creates a Server with the chassis middleware registered but no
// routes mounted; callers mount routes after construction.
func NewServer(cfg *config.Config, logger *slog.Logger, assessments AssessmentService, reports ReportService) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		cfg:         cfg,
		logger:      logger,
		assessments: assessments,
		reports:     reports,
		router:      chi.NewRouter(),
	}, nil
}

// MountRoutes registers the middleware chain and all endpoints. Middleware
// order matters: the recoverer is outermost so the logger and handlers are
// both covered, and the request ID is assigned before anything logs.
func (s *Server) MountRoutes() {
	s.router.Use(s.Recoverer)
	s.router.Use(RequestIDMiddleware)
	s.router.Use(RequestLogger(s.logger))

	s.router.Get("/health", s.HandleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/heat/{city}/assessments", s.HandleAssessments)

		r.Route("/reports/{city}", func(r chi.Router) {
			r.Post("/generate", s.HandleGenerateReport)
			r.Get("/", s.HandleGetReport)
			r.Get("/meta", s.HandleReportMeta)
			r.Put("/", s.HandleUploadReport)
		})
	})
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}
