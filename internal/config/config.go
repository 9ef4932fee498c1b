// Package config defines the global configuration structure for the Kynex
// platform. Configuration is loaded once at process startup and is immutable
// thereafter, following 12-Factor principles: OS environment takes priority,
// then a .env file for local development. Any missing required value or
// invalid format fails the process immediately.
package config

import (
	"time"

	"kynex/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used for sensitive configuration values.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the specific subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"kynex-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server     ServerConfig
	Database   DatabaseConfig
	Weather    WeatherConfig
	Training   TrainingConfig
	Simulation SimulationConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// WeatherConfig holds the forecast data source settings.
type WeatherConfig struct {
	BaseURL    string        `envconfig:"WEATHER_BASE_URL" default:"https://api.ipma.pt/open-data"`
	Timeout    time.Duration `envconfig:"WEATHER_TIMEOUT" default:"10s"`
	MaxRetries int           `envconfig:"WEATHER_MAX_RETRIES" default:"3"`
}

// TrainingConfig holds the retraining schedule and trainer hyperparameters.
type TrainingConfig struct {
	Interval   time.Duration `envconfig:"TRAINING_INTERVAL" default:"24h"`
	DaysBack   int           `envconfig:"TRAINING_DAYS_BACK" default:"14"`
	L2         float64       `envconfig:"TRAINING_L2" default:"2.0"`
	Seed       uint32        `envconfig:"TRAINING_SEED" default:"42"`
	MinSamples int           `envconfig:"TRAINING_MIN_SAMPLES" default:"250"`
}

// SimulationConfig holds the synthetic telemetry generator settings. The
// generator only runs when Enabled is true; production meters feed telemetry
// through ingestion instead.
type SimulationConfig struct {
	Enabled   bool   `envconfig:"SIM_ENABLED" default:"false"`
	Seed      uint64 `envconfig:"SIM_SEED" default:"1"`
	FleetSize int    `envconfig:"SIM_FLEET_SIZE" default:"25"`
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
