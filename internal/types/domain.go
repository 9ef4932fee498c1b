// Package types defines the shared domain model for the Kynex platform:
// customers, telemetry, trained model artifacts, forecast results, and the
// application error taxonomy. It has no dependencies on other internal
// packages so every layer can import it freely.
package types

import "time"

// CustomerProfile is the immutable customer record consumed by feature
// encoding and billing projections. Optional fields use pointers; the
// forecast encoder substitutes auditable defaults when they are nil.
type CustomerProfile struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Segment            Segment   `json:"segment"`
	City               string    `json:"city"`
	ContractedPowerKVA float64   `json:"contracted_power_kva"`
	Tariff             Tariff    `json:"tariff"`
	Utility            string    `json:"utility"`
	PriceEURPerKWh     *float64  `json:"price_eur_per_kwh,omitempty"`
	FixedDailyFeeEUR   float64   `json:"fixed_daily_fee_eur"`
	HomeAreaM2         *float64  `json:"home_area_m2,omitempty"`
	HouseholdSize      *int      `json:"household_size,omitempty"`
	HasSolar           *bool     `json:"has_solar,omitempty"`
	EVCount            *int      `json:"ev_count,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// TelemetryReading is one 15-minute smart-meter sample.
type TelemetryReading struct {
	CustomerID  string    `json:"customer_id"`
	Timestamp   time.Time `json:"ts"`
	Watts       float64   `json:"watts"`
	Euros       float64   `json:"euros"`
	TempC       *float64  `json:"temp_c,omitempty"`
	IsEstimated bool      `json:"is_estimated"`
}

// DailyConsumption is one UTC calendar day's actual consumption.
// Day is formatted "YYYY-MM-DD".
type DailyConsumption struct {
	Day string  `json:"day"`
	KWh float64 `json:"kwh"`
}

// DailyTemperature is a weather provider's forecast for one calendar day.
type DailyTemperature struct {
	Date time.Time `json:"forecast_date"`
	TMin float64   `json:"t_min"`
	TMax float64   `json:"t_max"`
}

// Avg returns the single representative temperature for the day.
func (d DailyTemperature) Avg() float64 {
	return (d.TMin + d.TMax) / 2
}

// ForecastPoint is one step of an interval rollout.
type ForecastPoint struct {
	Timestamp time.Time `json:"ts"`
	Watts     float64   `json:"watts"`
}

// MonthlyForecast is the result of projecting a customer's consumption to the
// end of the current calendar month. Low/High are the empirical residual
// band; ForecastKWh is never below MonthToDateKWh.
type MonthlyForecast struct {
	Method         ForecastMethod `json:"method"`
	ForecastKWh    float64        `json:"forecast_kwh"`
	ForecastEuros  float64        `json:"forecast_euros"`
	LowKWh         float64        `json:"low_kwh"`
	HighKWh        float64        `json:"high_kwh"`
	MonthToDateKWh float64        `json:"month_to_date_kwh"`
}

// CustomerStats30d summarizes a customer's trailing 30 days of telemetry.
// Used as model input by the contracted-power advisor.
type CustomerStats30d struct {
	CustomerID string
	PeakWatts  float64
	AvgWatts   float64
}

// PowerRecommendation is the contracted-power advisor's output for a customer.
type PowerRecommendation struct {
	CustomerID     string  `json:"customer_id"`
	CurrentKVA     float64 `json:"current_kva"`
	RecommendedKVA float64 `json:"recommended_kva"`
}
