package forecast

import (
	"context"
	"log/slog"
	"time"

	"kynex/internal/types"
)

// DefaultPriceEURPerKWh prices forecasts for customers without a contracted
// rate on file.
const DefaultPriceEURPerKWh = 0.20

// IntervalForecast is the interval rollout endpoint's response body.
type IntervalForecast struct {
	CustomerID  string                `json:"customer_id"`
	Horizon     types.ForecastHorizon `json:"horizon"`
	ModelID     string                `json:"model_id"`
	Variant     string                `json:"variant"`
	GeneratedAt time.Time             `json:"generated_at"`
	Points      []types.ForecastPoint `json:"points"`
}

// Service orchestrates forecasts over the active model, the customer's
// latest telemetry, and weather temperatures. It owns no state beyond its
// collaborators; every call is independent.
type Service struct {
	encoder   *Encoder
	models    types.ModelRepository
	telemetry types.TelemetryRepository
	monthly   *MonthlyForecaster
	weather   types.WeatherProvider
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the forecast service. The now function exists for
// deterministic tests; pass nil for time.Now.
func NewService(
	models types.ModelRepository,
	telemetry types.TelemetryRepository,
	weather types.WeatherProvider,
	logger *slog.Logger,
	now func() time.Time,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		encoder:   NewEncoder(StandardProfileDefaults()),
		models:    models,
		telemetry: telemetry,
		monthly:   NewMonthlyForecaster(telemetry, weather, logger),
		weather:   weather,
		logger:    logger,
		now:       now,
	}
}

// Interval rolls the active model forward from the customer's latest reading.
// Returns training_insufficient_data when the customer has no telemetry to
// seed the rollout.
func (s *Service) Interval(ctx context.Context, customer *types.CustomerProfile, horizon types.ForecastHorizon) (*IntervalForecast, error) {
	artifact, err := s.models.GetActive(ctx, types.ModelKindInterval)
	if err != nil {
		return nil, err
	}

	latest, err := s.telemetry.Latest(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, types.NewAppError(types.ErrCodeTrainingInsufficientData,
			"customer has no telemetry to seed the forecast", nil)
	}

	points, err := s.encoder.Rollout(
		artifact,
		customer,
		latest.Watts,
		latest.Timestamp,
		horizon.Steps(),
		time.Duration(IntervalMinutes)*time.Minute,
		s.tempFunc(ctx, customer.City),
	)
	if err != nil {
		return nil, err
	}

	return &IntervalForecast{
		CustomerID:  customer.ID,
		Horizon:     horizon,
		ModelID:     artifact.ID,
		Variant:     artifact.Variant(),
		GeneratedAt: s.now().UTC(),
		Points:      points,
	}, nil
}

// Month projects consumption and cost to the end of the current month.
func (s *Service) Month(ctx context.Context, customer *types.CustomerProfile) (*types.MonthlyForecast, error) {
	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	days, err := s.telemetry.ReadDailyKWh(ctx, customer.ID, monthStart, now)
	if err != nil {
		return nil, err
	}
	var monthToDate float64
	for _, d := range days {
		monthToDate += d.KWh
	}

	price := DefaultPriceEURPerKWh
	if customer.PriceEURPerKWh != nil {
		price = *customer.PriceEURPerKWh
	}

	return s.monthly.ForecastMonth(ctx, MonthRequest{
		CustomerID:       customer.ID,
		EndTime:          now,
		City:             customer.City,
		MonthToDateKWh:   monthToDate,
		PriceEURPerKWh:   price,
		FixedDailyFeeEUR: customer.FixedDailyFeeEUR,
	})
}

// tempFunc builds a per-step temperature lookup from forecast daily averages.
// Weather failures degrade to nil so the encoder falls back to its seasonal
// approximation.
func (s *Service) tempFunc(ctx context.Context, city string) TempFunc {
	stationID, err := s.weather.ResolveStation(ctx, city)
	if err != nil {
		s.logger.Warn("weather station lookup failed, using seasonal temperatures",
			"city", city, "error", err)
		return nil
	}
	daily, err := s.weather.DailyForecast(ctx, stationID)
	if err != nil {
		s.logger.Warn("weather forecast unavailable, using seasonal temperatures",
			"city", city, "error", err)
		return nil
	}

	byDay := make(map[string]float64, len(daily))
	for _, d := range daily {
		byDay[d.Date.UTC().Format(dayKey)] = d.Avg()
	}
	return func(ts time.Time) *float64 {
		if avg, ok := byDay[ts.UTC().Format(dayKey)]; ok {
			return &avg
		}
		return nil
	}
}
