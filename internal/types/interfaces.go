package types

import (
	"context"
	"time"
)

// CustomerRepository provides read access to the customer store.
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*CustomerProfile, error)
	List(ctx context.Context) ([]CustomerProfile, error)
}

// TelemetryRepository provides access to the 15-minute telemetry store.
type TelemetryRepository interface {
	// InsertBatch appends readings; readings are never mutated after insert.
	InsertBatch(ctx context.Context, readings []TelemetryReading) error
	// ReadRange returns readings for one customer ordered by timestamp ascending.
	ReadRange(ctx context.Context, customerID string, start, end time.Time) ([]TelemetryReading, error)
	// LatestByCustomer returns the most recent reading per customer.
	LatestByCustomer(ctx context.Context) (map[string]TelemetryReading, error)
	// Latest returns the most recent reading for one customer, or nil.
	Latest(ctx context.Context, customerID string) (*TelemetryReading, error)
	// ReadDailyKWh aggregates watts into kWh per UTC calendar day,
	// ordered by day ascending. End is exclusive.
	ReadDailyKWh(ctx context.Context, customerID string, start, end time.Time) ([]DailyConsumption, error)
	// Stats30d returns the trailing-30-day peak and average watts ending at
	// the customer's latest reading.
	Stats30d(ctx context.Context, customerID string) (*CustomerStats30d, error)
}

// ModelRepository persists trained model artifacts. Artifacts are written
// wholesale and swapped atomically: a new row is inserted and activated in a
// single transaction so readers never observe a partially written model.
type ModelRepository interface {
	SaveAndActivate(ctx context.Context, artifact *ModelArtifact) error
	GetActive(ctx context.Context, kind ModelKind) (*ModelArtifact, error)
}

// DailyHistoryProvider feeds the monthly forecaster with actual daily
// consumption. Implemented by the telemetry repository in production and by
// fixtures in tests.
type DailyHistoryProvider interface {
	ReadDailyKWh(ctx context.Context, customerID string, start, end time.Time) ([]DailyConsumption, error)
}

// WeatherProvider resolves a city to its forecast station and returns daily
// min/max temperature forecasts for that station.
type WeatherProvider interface {
	ResolveStation(ctx context.Context, city string) (string, error)
	DailyForecast(ctx context.Context, stationID string) ([]DailyTemperature, error)
}
