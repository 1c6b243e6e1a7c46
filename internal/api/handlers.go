package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"heatwatch/internal/heat"
	"heatwatch/internal/types"
	"heatwatch/internal/weather"
)

// reportSecretHeader carries the shared secret on report uploads.
const reportSecretHeader = "X-Report-Secret"

// HandleHealth reports process liveness.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, APIResponse{Data: map[string]string{"status": "ok"}})
}

// assessmentsResponse is the real-time endpoint payload.
type assessmentsResponse struct {
	Temperatures  map[string]float64              `json:"temperatures"`
	Assessments   map[string]types.RiskAssessment `json:"assessments"`
	LevelCounts   map[types.RiskLevel]int         `json:"level_counts"`
	HeatIndexUsed bool                            `json:"heat_index_used"`
}

// HandleAssessments serves GET /v1/heat/{city}/assessments.
func (s *Server) HandleAssessments(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")

	opts, err := parseAssessmentOptions(r)
	if err != nil {
		Error(w, r, err)
		return
	}

	result, err := s.assessments.Assess(r.Context(), city, opts)
	if err != nil {
		Error(w, r, err)
		return
	}

	JSON(w, r, http.StatusOK, APIResponse{Data: assessmentsResponse{
		Temperatures:  result.Temperatures,
		Assessments:   result.Assessments,
		LevelCounts:   result.LevelCounts,
		HeatIndexUsed: result.HeatIndexUsed,
	}})
}

// parseAssessmentOptions validates the limit, mode, and spread query
// parameters. Absent parameters keep their zero defaults; the service
// applies its own range checks on top.
func parseAssessmentOptions(r *http.Request) (heat.AssessmentOptions, error) {
	var opts heat.AssessmentOptions
	query := r.URL.Query()

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return opts, types.NewAppError(types.ErrCodeValidationInvalidLimit,
				"limit must be an integer", err)
		}
		opts.Limit = limit
	}

	if raw := query.Get("mode"); raw != "" {
		mode, err := weather.ParseDedupMode(raw)
		if err != nil {
			return opts, err
		}
		opts.Mode = mode
	}

	if raw := query.Get("spread"); raw != "" {
		spread, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return opts, types.NewAppError(types.ErrCodeValidationInvalidSpread,
				"spread must be a number", err)
		}
		opts.MaxSpreadC = spread
	}

	return opts, nil
}

// reportResponse is the report read payload.
type reportResponse struct {
	Scope       string                     `json:"scope"`
	ReportDate  string                     `json:"report_date"`
	GeneratedAt time.Time                  `json:"generated_at"`
	Rows        map[string]types.ReportRow `json:"rows"`
}

func toReportResponse(report *types.Report) reportResponse {
	return reportResponse{
		Scope:       report.Scope,
		ReportDate:  report.ReportDate.Format(time.DateOnly),
		GeneratedAt: report.GeneratedAt,
		Rows:        report.Rows,
	}
}

// HandleGenerateReport serves POST /v1/reports/{city}/generate. The pipeline
// runs synchronously and keeps running even if the client goes away.
func (s *Server) HandleGenerateReport(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")

	report, err := s.reports.Generate(r.Context(), city)
	if err != nil {
		Error(w, r, err)
		return
	}

	JSON(w, r, http.StatusOK, APIResponse{Data: toReportResponse(report)})
}

// HandleGetReport serves GET /v1/reports/{city}.
func (s *Server) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")

	report, err := s.reports.Latest(r.Context(), city)
	if err != nil {
		Error(w, r, err)
		return
	}

	JSON(w, r, http.StatusOK, APIResponse{Data: toReportResponse(report)})
}

// HandleReportMeta serves GET /v1/reports/{city}/meta.
func (s *Server) HandleReportMeta(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")

	meta, err := s.reports.Meta(r.Context(), city)
	if err != nil {
		Error(w, r, err)
		return
	}

	JSON(w, r, http.StatusOK, APIResponse{Data: meta})
}

// uploadReportRequest is the body of a report upload.
type uploadReportRequest struct {
	ReportDate string                     `json:"report_date"`
	Rows       map[string]types.ReportRow `json:"rows"`
}

// HandleUploadReport serves PUT /v1/reports/{city}: installing an externally
// computed report, gated by the shared secret header when configured.
func (s *Server) HandleUploadReport(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")

	var req uploadReportRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}

	report := &types.Report{Scope: city, Rows: req.Rows}
	if req.ReportDate != "" {
		reportDate, err := time.Parse(time.DateOnly, req.ReportDate)
		if err != nil {
			Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidReport,
				"report_date must be YYYY-MM-DD", err))
			return
		}
		report.ReportDate = reportDate
	}

	secret := r.Header.Get(reportSecretHeader)
	if err := s.reports.Upload(r.Context(), city, report, secret); err != nil {
		Error(w, r, err)
		return
	}

	JSON(w, r, http.StatusOK, APIResponse{Data: map[string]string{"status": "installed"}})
}
