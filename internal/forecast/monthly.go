package forecast

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"kynex/internal/types"
)

// Monthly forecaster tuning.
const (
	// DailyHistoryDays is the maximum history window fed to the daily model.
	DailyHistoryDays = 180

	// MinTrainingDays is the minimum number of complete (prev day -> day)
	// training pairs required for the ridge path. Below this the forecaster
	// falls back to recent-average extrapolation.
	MinTrainingDays = 10

	// DailyL2 is the fixed regularization strength of the daily model.
	// Deliberately strong: daily-resolution datasets are small and the
	// overfitting risk correspondingly high.
	DailyL2 = 2.0

	// FallbackBandRatio widens the fallback extrapolation into a +-10% band.
	FallbackBandRatio = 0.10

	// Residual quantiles used for the uncertainty band.
	residualLowQuantile  = 0.10
	residualHighQuantile = 0.90

	// Per-day clamp ratios bounding the band around each point forecast.
	lowBandCapRatio  = 1.6
	highBandCapRatio = 1.8
)

// MonthRequest carries the inputs for one monthly forecast.
type MonthRequest struct {
	CustomerID       string
	EndTime          time.Time // "now"; the month being forecast is EndTime's month
	City             string
	MonthToDateKWh   float64
	PriceEURPerKWh   float64
	FixedDailyFeeEUR float64
}

// MonthlyForecaster projects a customer's consumption to the end of the
// calendar month, blending a daily ridge model with weather temperatures and
// producing empirical low/high bands from training-residual quantiles.
type MonthlyForecaster struct {
	history types.DailyHistoryProvider
	weather types.WeatherProvider
	logger  *slog.Logger
}

// NewMonthlyForecaster wires the forecaster to its collaborators.
func NewMonthlyForecaster(history types.DailyHistoryProvider, weather types.WeatherProvider, logger *slog.Logger) *MonthlyForecaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &MonthlyForecaster{history: history, weather: weather, logger: logger}
}

// dayKey formats a UTC day the way the history provider does.
const dayKey = "2006-01-02"

// trainingDay is one joined (consumption, temperature) history row.
type trainingDay struct {
	day   time.Time
	kwh   float64
	tempC float64
}

// ForecastMonth runs the forecast. The returned ForecastKWh is always floored
// at MonthToDateKWh: a forecast can never retroactively imply negative
// remaining consumption. In the ridge path LowKWh <= ForecastKWh <= HighKWh.
func (f *MonthlyForecaster) ForecastMonth(ctx context.Context, req MonthRequest) (*types.MonthlyForecast, error) {
	end := req.EndTime.UTC()
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	daysInMonth := time.Date(end.Year(), end.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	remainingDays := daysInMonth - end.Day()

	if remainingDays <= 0 {
		// Month already complete; nothing left to project.
		return &types.MonthlyForecast{
			Method:         types.MethodFallbackRecentAvg,
			ForecastKWh:    req.MonthToDateKWh,
			ForecastEuros:  f.euros(req, req.MonthToDateKWh, daysInMonth),
			LowKWh:         req.MonthToDateKWh,
			HighKWh:        req.MonthToDateKWh,
			MonthToDateKWh: req.MonthToDateKWh,
		}, nil
	}

	start := endDay.AddDate(0, 0, -DailyHistoryDays)
	history, err := f.history.ReadDailyKWh(ctx, req.CustomerID, start, endDay)
	if err != nil {
		return nil, err
	}

	tempByDay := f.forecastTemps(ctx, req.City)

	days := f.joinHistory(history, tempByDay, req.City)
	pairs := completePairs(days)

	if len(pairs) < MinTrainingDays {
		return f.fallbackForecast(req, days, remainingDays, daysInMonth), nil
	}
	return f.ridgeForecast(req, days, pairs, tempByDay, endDay, remainingDays, daysInMonth)
}

// forecastTemps fetches the weather provider's daily forecast for the city.
// Weather unavailability degrades the forecast (seasonal/last-known
// temperatures are used instead) but never fails it.
func (f *MonthlyForecaster) forecastTemps(ctx context.Context, city string) map[string]float64 {
	station, err := f.weather.ResolveStation(ctx, city)
	if err != nil {
		f.logger.Warn("weather station resolution failed, using seasonal temperatures",
			"city", city, "error", err)
		return nil
	}
	forecast, err := f.weather.DailyForecast(ctx, station)
	if err != nil {
		f.logger.Warn("weather forecast fetch failed, using seasonal temperatures",
			"city", city, "station", station, "error", err)
		return nil
	}

	temps := make(map[string]float64, len(forecast))
	for _, d := range forecast {
		temps[d.Date.UTC().Format(dayKey)] = d.Avg()
	}
	return temps
}

// joinHistory attaches a temperature to each history day: the weather
// forecast when it covers the day, the seasonal approximation otherwise.
func (f *MonthlyForecaster) joinHistory(history []types.DailyConsumption, tempByDay map[string]float64, city string) []trainingDay {
	days := make([]trainingDay, 0, len(history))
	for _, h := range history {
		day, err := time.ParseInLocation(dayKey, h.Day, time.UTC)
		if err != nil {
			f.logger.Warn("skipping malformed history day", "day", h.Day, "error", err)
			continue
		}
		temp, ok := tempByDay[h.Day]
		if !ok {
			temp = SeasonalTemp(day.Add(12*time.Hour), city)
		}
		days = append(days, trainingDay{day: day, kwh: h.KWh, tempC: temp})
	}
	return days
}

// dailyPair is one (features, target) training row built from two adjacent
// calendar days.
type dailyPair struct {
	features []float64
	target   float64
}

// completePairs builds training rows from temporally adjacent days. Gaps in
// the history break the lag chain, so only exact next-day successors qualify.
func completePairs(days []trainingDay) []dailyPair {
	var pairs []dailyPair
	for i := 1; i < len(days); i++ {
		prev, cur := days[i-1], days[i]
		if !cur.day.Equal(prev.day.AddDate(0, 0, 1)) {
			continue
		}
		pairs = append(pairs, dailyPair{
			features: EncodeDaily(cur.day, prev.kwh, cur.tempC, i),
			target:   cur.kwh,
		})
	}
	return pairs
}

// fallbackForecast extrapolates the recent daily average over the remaining
// days of the month, widened into a +-10% band.
func (f *MonthlyForecaster) fallbackForecast(req MonthRequest, days []trainingDay, remainingDays, daysInMonth int) *types.MonthlyForecast {
	var avgDaily float64
	if len(days) > 0 {
		var sum float64
		for _, d := range days {
			sum += d.kwh
		}
		avgDaily = sum / float64(len(days))
	} else if elapsed := daysInMonth - remainingDays; elapsed > 0 {
		avgDaily = req.MonthToDateKWh / float64(elapsed)
	}

	remaining := float64(remainingDays) * avgDaily
	forecast := req.MonthToDateKWh + remaining
	if forecast < req.MonthToDateKWh {
		forecast = req.MonthToDateKWh
	}

	return &types.MonthlyForecast{
		Method:         types.MethodFallbackRecentAvg,
		ForecastKWh:    forecast,
		ForecastEuros:  f.euros(req, forecast, daysInMonth),
		LowKWh:         req.MonthToDateKWh + remaining*(1-FallbackBandRatio),
		HighKWh:        req.MonthToDateKWh + remaining*(1+FallbackBandRatio),
		MonthToDateKWh: req.MonthToDateKWh,
	}
}

// ridgeForecast fits the daily model, rolls it out to month end, and derives
// the band from training-residual quantiles.
func (f *MonthlyForecaster) ridgeForecast(
	req MonthRequest,
	days []trainingDay,
	pairs []dailyPair,
	tempByDay map[string]float64,
	endDay time.Time,
	remainingDays, daysInMonth int,
) (*types.MonthlyForecast, error) {
	x := make([][]float64, len(pairs))
	y := make([]float64, len(pairs))
	for i, p := range pairs {
		x[i] = p.features
		y[i] = p.target
	}

	fit, err := RidgeFit(x, y, DailyL2)
	if err != nil {
		return nil, err
	}

	// Residuals over the training rows themselves: the band always reflects
	// the freshest fit rather than a persisted snapshot.
	residuals := make([]float64, len(pairs))
	for i, p := range pairs {
		residuals[i] = p.target - fit.PredictRow(p.features)
	}
	sort.Float64s(residuals)
	r10 := quantileByIndex(residuals, residualLowQuantile)
	r90 := quantileByIndex(residuals, residualHighQuantile)

	last := days[len(days)-1]
	lastKWh := last.kwh
	lastTemp := last.tempC
	trend := len(days)

	var sumPoint, sumLow, sumHigh float64
	for i := 1; i <= remainingDays; i++ {
		day := endDay.AddDate(0, 0, i)
		temp, ok := tempByDay[day.Format(dayKey)]
		if !ok {
			temp = lastTemp
		}

		raw := fit.PredictRow(EncodeDaily(day, lastKWh, temp, trend+i))
		point := math.Max(0, raw)

		low := clampTo(point+r10, 0, lowBandCapRatio*point)
		high := clampTo(point+r90, 0, highBandCapRatio*point)

		sumPoint += point
		sumLow += low
		sumHigh += high
		lastKWh = point
	}

	forecast := req.MonthToDateKWh + sumPoint
	if forecast < req.MonthToDateKWh {
		forecast = req.MonthToDateKWh
	}
	low := math.Min(req.MonthToDateKWh+sumLow, forecast)
	high := math.Max(req.MonthToDateKWh+sumHigh, forecast)

	return &types.MonthlyForecast{
		Method:         types.MethodRidgeDaily,
		ForecastKWh:    forecast,
		ForecastEuros:  f.euros(req, forecast, daysInMonth),
		LowKWh:         low,
		HighKWh:        high,
		MonthToDateKWh: req.MonthToDateKWh,
	}, nil
}

// euros converts a monthly kWh figure to a billing estimate.
func (f *MonthlyForecaster) euros(req MonthRequest, kwh float64, daysInMonth int) float64 {
	return kwh*req.PriceEURPerKWh + req.FixedDailyFeeEUR*float64(daysInMonth)
}

// quantileByIndex picks the sorted-slice element at floor((n-1)*q), the
// empirical quantile convention used throughout the trainer.
func quantileByIndex(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Floor(float64(len(sorted)-1) * q))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func clampTo(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
