package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"

	"heatwatch/internal/config"
	"heatwatch/internal/types"
)

// maxResponseBytes bounds upstream response bodies (64 KiB is generous for a
// current-conditions payload).
const maxResponseBytes = 64 << 10

// HTTPSource is a Source backed by a Meteosource-style current-conditions
// HTTP API. Calls go through a circuit breaker so a failing upstream stops
// consuming the request budget quickly; there are no retries, and each call
// carries its own timeout.
type HTTPSource struct {
	name    string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*types.WeatherReading]
	baseURL string
	apiKey  types.SecretString
	timeout time.Duration
}

// currentResponse is the upstream payload shape for current conditions.
type currentResponse struct {
	Current struct {
		Temperature *float64 `json:"temperature"`
		Humidity    *float64 `json:"humidity"`
	} `json:"current"`
}

// NewHTTPSource creates an HTTPSource from the weather configuration. The
// credential is checked here so a misconfigured process fails before its
// first fetch, with a condition distinguishable from data unavailability.
func NewHTTPSource(name string, httpClient *http.Client, cfg config.WeatherConfig) (*HTTPSource, error) {
	if cfg.APIKey.Unmask() == "" {
		return nil, types.NewAppError(types.ErrCodeConfigMissingCredential,
			"weather API key is not configured", nil)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	cb := gobreaker.NewCircuitBreaker[*types.WeatherReading](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &HTTPSource{
		name:    name,
		client:  httpClient,
		breaker: cb,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		timeout: cfg.CallTimeout,
	}, nil
}

// Name identifies the source in logs and metrics.
func (s *HTTPSource) Name() string { return s.name }

// Current fetches the current reading for a coordinate. A non-2xx status, a
// malformed payload, or a missing temperature field are all upstream errors;
// the caller decides whether to fall back or omit the unit.
func (s *HTTPSource) Current(ctx context.Context, lat, lng float64) (*types.WeatherReading, error) {
	return s.breaker.Execute(func() (*types.WeatherReading, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		reqURL := fmt.Sprintf("%s/point?sections=current&lat=%s&lon=%s&key=%s",
			s.baseURL,
			url.QueryEscape(fmt.Sprintf("%.6f", lat)),
			url.QueryEscape(fmt.Sprintf("%.6f", lng)),
			url.QueryEscape(s.apiKey.Unmask()),
		)

		req, err := http.NewRequestWithContext(callCtx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("building weather request: %w", err)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("calling weather upstream: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("weather upstream returned %d", resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("reading weather response: %w", err)
		}

		var payload currentResponse
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("decoding weather response: %w", err)
		}
		if payload.Current.Temperature == nil {
			return nil, fmt.Errorf("weather response missing temperature")
		}

		reading := &types.WeatherReading{
			TempC:    *payload.Current.Temperature,
			Humidity: payload.Current.Humidity,
		}
		if reading.Humidity != nil {
			if h := *reading.Humidity; h < 0 || h > 100 {
				// Out-of-domain humidity is dropped, not propagated.
				reading.Humidity = nil
			}
		}
		return reading, nil
	})
}
