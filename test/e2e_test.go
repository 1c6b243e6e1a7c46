// Package test exercises the assembled stack end to end: real services and
// repositories at every layer except the database (in-memory persister and
// unit directory) and the weather upstream (a local httptest server speaking
// the provider's JSON).
package test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heatwatch/internal/api"
	"heatwatch/internal/config"
	"heatwatch/internal/geo"
	"heatwatch/internal/heat"
	"heatwatch/internal/report"
	"heatwatch/internal/types"
	"heatwatch/internal/weather"
)

// memUnits is an in-memory unit directory.
type memUnits struct {
	units map[string][]types.SpatialUnit
}

func (m *memUnits) ListByCity(_ context.Context, cityKey string) ([]types.SpatialUnit, error) {
	return m.units[cityKey], nil
}

// memObservations is an in-memory observation log.
type memObservations struct {
	observations []types.Observation
}

func (m *memObservations) ListSince(context.Context, string, time.Time) ([]types.Observation, error) {
	return m.observations, nil
}

type memFacilities struct {
	counts map[string]int
}

func (m *memFacilities) CountsByCity(context.Context, string) (map[string]int, error) {
	return m.counts, nil
}

// memPersister is an in-memory durable report store.
type memPersister struct {
	mu      sync.Mutex
	reports map[string]*types.Report
}

func (p *memPersister) Replace(_ context.Context, r *types.Report) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports[r.Scope] = r
	return nil
}

func (p *memPersister) Latest(_ context.Context, scope string) (*types.Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reports[scope], nil
}

func (p *memPersister) Meta(_ context.Context, scope string) (*types.ReportMeta, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.reports[scope]; ok {
		return &types.ReportMeta{Available: true, ReportDate: r.ReportDate, GeneratedAt: r.GeneratedAt}, nil
	}
	return &types.ReportMeta{}, nil
}

// stack bundles the assembled application for a test.
type stack struct {
	server        *api.Server
	upstreamCalls *atomic.Int64
}

func testUnits() []types.SpatialUnit {
	d := func(v float64) *float64 { return &v }
	return []types.SpatialUnit{
		{ID: "b-001", Name: "Riverside", Centroid: types.Coordinate{Lat: 14.60, Lng: 120.98}, Density: d(4000)},
		{ID: "b-002", Name: "Hillcrest", Centroid: types.Coordinate{Lat: 14.61, Lng: 120.99}, Density: d(12000)},
		{ID: "b-003", Name: "Lakeview", Centroid: types.Coordinate{Lat: 14.62, Lng: 121.00}, Density: d(800)},
	}
}

// newStack wires the full application over an httptest weather upstream that
// answers every coordinate with the same temperature and humidity.
func newStack(t *testing.T, tempC float64, humidity float64) *stack {
	t.Helper()

	var calls atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprintf(w, `{"current":{"temperature":%g,"humidity":%g}}`, tempC, humidity)
	}))
	t.Cleanup(upstream.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	weatherCfg := config.WeatherConfig{
		APIKey:           "test-key",
		BaseURL:          upstream.URL,
		CallTimeout:      2 * time.Second,
		CacheTTL:         10 * time.Minute,
		FetchConcurrency: 4,
		CoordPrecision:   2,
	}

	source, err := weather.NewHTTPSource("test", upstream.Client(), weatherCfg)
	require.NoError(t, err)

	fetcher := weather.NewFetcher(weather.FetcherConfig{
		Source:         weather.NewChain(logger, source),
		Cache:          weather.NewTemperatureCache(weatherCfg.CacheTTL, nil),
		Logger:         logger,
		Concurrency:    weatherCfg.FetchConcurrency,
		CoordPrecision: weatherCfg.CoordPrecision,
	})

	units := &memUnits{units: map[string][]types.SpatialUnit{"metro": testUnits()}}
	geoProvider := geo.NewCachedProvider(geo.NewRepositoryProvider(units))

	assessments := heat.NewService(heat.ServiceConfig{
		Geo:     geoProvider,
		Fetcher: fetcher,
		Config:  config.HeatConfig{MaxUnits: 500},
		Logger:  logger,
	})

	observations := []types.Observation{
		{UnitID: "b-001", Date: time.Now().UTC().AddDate(0, 0, -1), TempC: 31},
		{UnitID: "b-002", Date: time.Now().UTC().AddDate(0, 0, -1), TempC: 39},
		{UnitID: "b-003", Date: time.Now().UTC().AddDate(0, 0, -1), TempC: 35},
	}

	reports := report.NewService(report.ServiceConfig{
		Observations: &memObservations{observations: observations},
		Facilities:   &memFacilities{counts: map[string]int{"b-001": 2}},
		Units:        geoProvider,
		Persister:    &memPersister{reports: make(map[string]*types.Report)},
		Store:        report.NewStore(),
		Config:       config.ReportConfig{Clusters: 5, Seed: 42, RollingWindowDays: 7, UploadSecret: "e2e-secret"},
		Logger:       logger,
	})

	srv, err := api.NewServer(&config.Config{}, logger, assessments, reports)
	require.NoError(t, err)
	srv.MountRoutes()

	return &stack{server: srv, upstreamCalls: &calls}
}

func (s *stack) do(method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	rec := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, req)
	return rec
}

func dataOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var envelope struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestAssessmentsEndToEnd(t *testing.T) {
	s := newStack(t, 33.0, 75.0)

	rec := s.do(http.MethodGet, "/v1/heat/metro/assessments", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data := dataOf(t, rec)

	var assessments map[string]types.RiskAssessment
	require.NoError(t, json.Unmarshal(data["assessments"], &assessments))
	require.Len(t, assessments, 3)

	// Identical upstream temps trigger the automatic 1C spread, so the
	// densest unit ends warmest.
	var temps map[string]float64
	require.NoError(t, json.Unmarshal(data["temperatures"], &temps))
	assert.Equal(t, 33.0, temps["b-003"])
	assert.Equal(t, 33.5, temps["b-001"])
	assert.Equal(t, 34.0, temps["b-002"])

	for unitID, a := range assessments {
		assert.True(t, a.Level.Valid(), "unit %s", unitID)
		assert.NotNil(t, a.HeatIndexC, "unit %s", unitID)
	}
}

func TestAssessmentsCacheWarmPath(t *testing.T) {
	s := newStack(t, 30.0, 60.0)

	first := s.do(http.MethodGet, "/v1/heat/metro/assessments", "", nil)
	require.Equal(t, http.StatusOK, first.Code)
	callsAfterFirst := s.upstreamCalls.Load()
	require.Greater(t, callsAfterFirst, int64(0))

	// Warm cache: no further upstream traffic, identical temperatures (the
	// spread is recomputed from raw values, never stacked).
	second := s.do(http.MethodGet, "/v1/heat/metro/assessments", "", nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, callsAfterFirst, s.upstreamCalls.Load())
	assert.JSONEq(t, string(dataOf(t, first)["temperatures"]), string(dataOf(t, second)["temperatures"]))
}

func TestReportLifecycleEndToEnd(t *testing.T) {
	s := newStack(t, 33.0, 75.0)

	// No report yet.
	rec := s.do(http.MethodGet, "/v1/reports/metro", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	meta := s.do(http.MethodGet, "/v1/reports/metro/meta", "", nil)
	require.Equal(t, http.StatusOK, meta.Code)
	assert.Contains(t, meta.Body.String(), `"available":false`)

	// Generate, then read back.
	generated := s.do(http.MethodPost, "/v1/reports/metro/generate", "", nil)
	require.Equal(t, http.StatusOK, generated.Code, generated.Body.String())

	read := s.do(http.MethodGet, "/v1/reports/metro", "", nil)
	require.Equal(t, http.StatusOK, read.Code)

	var rows map[string]types.ReportRow
	require.NoError(t, json.Unmarshal(dataOf(t, read)["rows"], &rows))
	require.Len(t, rows, 3)
	for unitID, row := range rows {
		assert.True(t, row.RiskLevel.Valid(), "unit %s", unitID)
	}

	// Three units is below k=5: the degenerate per-unit ranking applies and
	// the hottest recent unit outranks the coolest.
	assert.Less(t, rows["b-001"].RiskLevel, rows["b-002"].RiskLevel)

	meta = s.do(http.MethodGet, "/v1/reports/metro/meta", "", nil)
	assert.Contains(t, meta.Body.String(), `"available":true`)
}

func TestReportUploadEndToEnd(t *testing.T) {
	s := newStack(t, 33.0, 75.0)
	body := `{"report_date":"2026-04-18","rows":{"b-001":{"risk_level":5,"cluster_id":0}}}`

	// Wrong secret is rejected and installs nothing.
	rec := s.do(http.MethodPut, "/v1/reports/metro", body, map[string]string{"X-Report-Secret": "nope"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(http.MethodGet, "/v1/reports/metro", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Correct secret installs the report wholesale.
	rec = s.do(http.MethodPut, "/v1/reports/metro", body, map[string]string{"X-Report-Secret": "e2e-secret"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	read := s.do(http.MethodGet, "/v1/reports/metro", "", nil)
	require.Equal(t, http.StatusOK, read.Code)
	assert.Contains(t, read.Body.String(), `"risk_level":5`)
}
