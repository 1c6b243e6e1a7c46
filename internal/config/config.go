// Package config defines the global configuration structure for the heatwatch
// service. Configuration is loaded once at process initialization and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any missing required value or invalid format causes the application to fail
// immediately on startup. In particular, a missing weather API credential is
// surfaced as a ConfigError before any fetch is attempted, keeping it
// distinguishable from runtime data unavailability.
package config

import (
	"time"

	"heatwatch/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the heatwatch service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"heatwatch"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server   ServerConfig
	Database DatabaseConfig
	Weather  WeatherConfig
	Heat     HeatConfig
	Report   ReportConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	// Tuning Parameters
	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout  time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
}

// WeatherConfig holds upstream weather source credentials and fetch tuning.
type WeatherConfig struct {
	// APIKey authenticates against the primary weather provider. Required:
	// its absence fails startup (config_missing_credential), before any
	// fetch attempt is made.
	APIKey  SecretString `envconfig:"WEATHER_API_KEY" validate:"required"`
	BaseURL string       `envconfig:"WEATHER_BASE_URL" default:"https://api.meteosource.com/v1" validate:"url"`

	// CallTimeout bounds each upstream call; no retries are performed.
	CallTimeout time.Duration `envconfig:"WEATHER_CALL_TIMEOUT" default:"5s"`

	// CacheTTL is the validity window of a cached temperature sample.
	CacheTTL time.Duration `envconfig:"WEATHER_CACHE_TTL" default:"10m"`

	// FetchConcurrency bounds the worker pool driving upstream calls.
	FetchConcurrency int `envconfig:"WEATHER_FETCH_CONCURRENCY" default:"5" validate:"min=1,max=64"`

	// CoordPrecision is the number of decimals used to round coordinates in
	// grouped dedup mode (2 decimals groups units within roughly 1.1 km).
	CoordPrecision int `envconfig:"WEATHER_COORD_PRECISION" default:"2" validate:"min=0,max=6"`
}

// HeatConfig holds real-time assessment tuning.
type HeatConfig struct {
	// MaxSpreadC is the configured maximum synthetic spread in degrees C.
	// Zero disables the configured trigger; the automatic degenerate-data
	// trigger still applies with a 1.0 C cap.
	MaxSpreadC float64 `envconfig:"HEAT_MAX_SPREAD_C" default:"0" validate:"min=0,max=10"`

	// MaxUnits caps the number of units assessed per request.
	MaxUnits int `envconfig:"HEAT_MAX_UNITS" default:"500" validate:"min=1,max=500"`
}

// ReportConfig holds batch report pipeline tuning.
type ReportConfig struct {
	// Clusters is the number of K-Means groups; 5 aligns the cluster ranks
	// with the five ordinal risk levels.
	Clusters int `envconfig:"REPORT_CLUSTERS" default:"5" validate:"min=2,max=10"`

	// Seed fixes the K-Means initialization so identical input always yields
	// identical assignments.
	Seed int64 `envconfig:"REPORT_SEED" default:"42"`

	// RollingWindowDays is the trailing window for the temperature feature.
	RollingWindowDays int `envconfig:"REPORT_ROLLING_WINDOW_DAYS" default:"7" validate:"min=1,max=30"`

	// UploadSecret gates externally computed report uploads. Empty disables
	// the check.
	UploadSecret SecretString `envconfig:"REPORT_UPLOAD_SECRET"`
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
