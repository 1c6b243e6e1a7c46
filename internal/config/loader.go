// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone to prevent drift bugs.
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Validate the struct using go-playground/validator.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"heatwatch/internal/types"
)

// ConfigError is a diagnostic error type returned by LoadConfig to aid debugging.
// It wraps a ConfigErrorType and an underlying error message.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LoadConfig loads and validates the heatwatch configuration.
//
// It performs the following steps in order:
//  1. Sets the process timezone to UTC.
//  2. Loads a .env file if present (non-fatal if missing).
//  3. Processes envconfig tags to populate the Config struct.
//  4. Validates the Config struct.
//
// Validation failures on credential fields (WEATHER_API_KEY) are mapped to
// ErrCodeConfigMissingCredential so callers can fail fast with a condition
// distinguishable from runtime data unavailability.
func LoadConfig() (*Config, error) {
	// Step 1: Enforce UTC timezone to prevent drift bugs.
	time.Local = time.UTC

	// Step 2: Load .env file (non-fatal if absent). godotenv does NOT
	// override existing environment variables.
	_ = godotenv.Load()

	// Step 3: Process envconfig tags to populate the Config struct.
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	// Step 4: Validate the populated struct.
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		if missing := missingCredential(err); missing != "" {
			return nil, &ConfigError{
				Type:    ErrMissingEnv,
				Message: fmt.Sprintf("missing upstream credential %s", missing),
				Err: types.NewAppError(
					types.ErrCodeConfigMissingCredential,
					fmt.Sprintf("configuration value %s is required", missing),
					err,
				),
			}
		}
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	return &cfg, nil
}

// credentialFields maps validator struct namespaces to the environment
// variables operators need to set.
var credentialFields = map[string]string{
	"Config.Weather.APIKey": "WEATHER_API_KEY",
	"Config.Database.URL":   "DATABASE_URL",
}

// missingCredential inspects a validator error chain and returns the env var
// name of the first failed required credential field, or "" when the failure
// is unrelated to credentials.
func missingCredential(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ""
	}
	for _, fe := range verrs {
		if fe.Tag() != "required" {
			continue
		}
		if env, ok := credentialFields[fe.StructNamespace()]; ok {
			return env
		}
	}
	return ""
}
