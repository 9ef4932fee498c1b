// Package forecast implements the Kynex consumption forecasting core: feature
// encoding, a ridge regression trainer with its dense linear algebra kernel,
// single-step prediction over trained artifacts, multi-step autoregressive
// rollouts, deterministic train/test sampling, and the monthly forecaster.
//
// Everything in this package is synchronous, pure computation over in-memory
// slices. The only I/O happens at the boundary, behind the provider
// interfaces consumed by the monthly forecaster. Concurrent calls are safe
// because all working state is local to each call.
package forecast

import (
	"math"
	"time"

	"kynex/internal/types"
)

// IntervalMinutes is the sampling interval of the primary consumption model.
const IntervalMinutes = 15

// Feature vector layout of the interval model. Encode emits values in exactly
// this order; a trained artifact records the same names so stale models are
// detected by length comparison before prediction.
var intervalFeatureNames = []string{
	"last_watts",
	"hour_sin",
	"hour_cos",
	"dow_sin",
	"dow_cos",
	"is_weekend",
	"temp_c",
	"contracted_power_kva",
	"tariff_simples",
	"tariff_bihorario",
	"segment_residential",
	"segment_sme",
	"segment_industrial",
	"home_area_m2",
	"household_size",
	"has_solar",
	"ev_count",
}

// Daily feature vector layout used by the monthly forecaster.
var dailyFeatureNames = []string{
	"prev_day_kwh",
	"dow_sin",
	"dow_cos",
	"doy_sin",
	"doy_cos",
	"is_weekend",
	"temp_c",
	"trend_index",
}

// FeatureNames returns a copy of the interval model's feature layout.
func FeatureNames() []string {
	out := make([]string, len(intervalFeatureNames))
	copy(out, intervalFeatureNames)
	return out
}

// DailyFeatureNames returns a copy of the daily model's feature layout.
func DailyFeatureNames() []string {
	out := make([]string, len(dailyFeatureNames))
	copy(out, dailyFeatureNames)
	return out
}

// ProfileDefaults centralizes the fallback values substituted when optional
// customer profile fields are missing. Keeping them in one struct makes the
// defaulting policy auditable and overridable from configuration.
type ProfileDefaults struct {
	HomeAreaM2    float64
	HouseholdSize int
	HasSolar      bool
	EVCount       int
}

// StandardProfileDefaults returns the production defaulting policy.
func StandardProfileDefaults() ProfileDefaults {
	return ProfileDefaults{
		HomeAreaM2:    90,
		HouseholdSize: 2,
		HasSolar:      false,
		EVCount:       0,
	}
}

// coastalCities receive a fixed -1C bias in the seasonal temperature
// approximation. Atlantic-facing localities run cooler than the inland mean.
var coastalCities = map[string]bool{
	"Porto":             true,
	"Matosinhos":        true,
	"Vila Nova de Gaia": true,
	"Aveiro":            true,
}

// SeasonalTemp returns a deterministic approximation of the ambient
// temperature for the given instant and city. It keeps training and inference
// reproducible when no live weather feed is available.
func SeasonalTemp(ts time.Time, city string) float64 {
	day := float64(ts.UTC().YearDay())
	base := 16.0 + 7.0*math.Sin(2*math.Pi*(day-170)/365.0)
	if coastalCities[city] {
		base -= 1.0
	}
	return base
}

// Encoder turns a (timestamp, profile, previous reading, optional temperature)
// tuple into the fixed-length numeric vector consumed by training and
// inference. The encoder never fails on missing optional profile data; only
// non-finite numeric inputs are rejected.
type Encoder struct {
	defaults ProfileDefaults
}

// NewEncoder creates an Encoder with the given defaulting policy.
func NewEncoder(defaults ProfileDefaults) *Encoder {
	return &Encoder{defaults: defaults}
}

// mondayIndexed remaps Go's Sunday=0 week numbering to Monday=0..Sunday=6,
// the convention recorded in every trained artifact.
func mondayIndexed(w time.Weekday) int {
	return (int(w) + 6) % 7
}

// Encode produces the 17-field interval feature vector.
//
// Hour of day and day of week are encoded as sin/cos pairs so midnight and
// Monday wrap-arounds introduce no discontinuity for the linear model. When
// tempC is nil the seasonal approximation is substituted. Unrecognized tariff
// or segment values collapse to an all-zero one-hot group.
func (e *Encoder) Encode(ts time.Time, profile *types.CustomerProfile, lastWatts float64, tempC *float64) ([]float64, error) {
	if !isFinite(lastWatts) {
		return nil, types.NewAppError(types.ErrCodeForecastMalformedInput, "last reading is not finite", nil)
	}
	temp := SeasonalTemp(ts, profile.City)
	if tempC != nil {
		if !isFinite(*tempC) {
			return nil, types.NewAppError(types.ErrCodeForecastMalformedInput, "temperature is not finite", nil)
		}
		temp = *tempC
	}

	ts = ts.UTC()
	hour := float64(ts.Hour()) + float64(ts.Minute())/60.0
	dow := mondayIndexed(ts.Weekday())
	isWeekend := 0.0
	if dow >= 5 {
		isWeekend = 1.0
	}

	hourRad := 2 * math.Pi * hour / 24.0
	dowRad := 2 * math.Pi * float64(dow) / 7.0

	tariffSimples, tariffBihorario := 0.0, 0.0
	switch profile.Tariff {
	case types.TariffSimples:
		tariffSimples = 1.0
	case types.TariffBihorario:
		tariffBihorario = 1.0
	}

	segRes, segSME, segInd := 0.0, 0.0, 0.0
	switch profile.Segment {
	case types.SegmentResidential:
		segRes = 1.0
	case types.SegmentSME:
		segSME = 1.0
	case types.SegmentIndustrial:
		segInd = 1.0
	}

	area := e.defaults.HomeAreaM2
	if profile.HomeAreaM2 != nil {
		area = *profile.HomeAreaM2
	}
	household := e.defaults.HouseholdSize
	if profile.HouseholdSize != nil {
		household = *profile.HouseholdSize
	}
	solar := boolToFloat(e.defaults.HasSolar)
	if profile.HasSolar != nil {
		solar = boolToFloat(*profile.HasSolar)
	}
	evCount := e.defaults.EVCount
	if profile.EVCount != nil {
		evCount = *profile.EVCount
	}

	return []float64{
		lastWatts,
		math.Sin(hourRad),
		math.Cos(hourRad),
		math.Sin(dowRad),
		math.Cos(dowRad),
		isWeekend,
		temp,
		profile.ContractedPowerKVA,
		tariffSimples,
		tariffBihorario,
		segRes,
		segSME,
		segInd,
		area,
		float64(household),
		solar,
		float64(evCount),
	}, nil
}

// EncodeDaily produces the 8-field daily feature vector used by the monthly
// forecaster. trendIndex is a linear day counter within the training window.
func EncodeDaily(day time.Time, prevDayKWh, tempC float64, trendIndex int) []float64 {
	day = day.UTC()
	dow := mondayIndexed(day.Weekday())
	isWeekend := 0.0
	if dow >= 5 {
		isWeekend = 1.0
	}

	dowRad := 2 * math.Pi * float64(dow) / 7.0
	doyRad := 2 * math.Pi * float64(day.YearDay()) / 365.0

	return []float64{
		prevDayKWh,
		math.Sin(dowRad),
		math.Cos(dowRad),
		math.Sin(doyRad),
		math.Cos(doyRad),
		isWeekend,
		tempC,
		float64(trendIndex),
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
