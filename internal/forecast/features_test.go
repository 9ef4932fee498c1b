package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kynex/internal/types"
)

func testProfile() *types.CustomerProfile {
	area := 120.0
	household := 3
	solar := true
	ev := 1
	return &types.CustomerProfile{
		ID:                 "C_TEST0001",
		Segment:            types.SegmentResidential,
		City:               "Braga",
		ContractedPowerKVA: 6.9,
		Tariff:             types.TariffSimples,
		HomeAreaM2:         &area,
		HouseholdSize:      &household,
		HasSolar:           &solar,
		EVCount:            &ev,
	}
}

func TestEncodeMatchesFeatureNames(t *testing.T) {
	enc := NewEncoder(StandardProfileDefaults())
	ts := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	vec, err := enc.Encode(ts, testProfile(), 450, nil)
	require.NoError(t, err)
	assert.Len(t, vec, len(FeatureNames()))
}

func TestEncodeFieldValues(t *testing.T) {
	enc := NewEncoder(StandardProfileDefaults())
	// Tuesday 12:00 UTC.
	ts := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	vec, err := enc.Encode(ts, testProfile(), 450, nil)
	require.NoError(t, err)

	assert.Equal(t, 450.0, vec[0], "last_watts")
	// Noon: hour angle is pi, so sin ~ 0 and cos = -1.
	assert.InDelta(t, 0.0, vec[1], 1e-9, "hour_sin")
	assert.InDelta(t, -1.0, vec[2], 1e-9, "hour_cos")
	assert.Equal(t, 0.0, vec[5], "is_weekend")
	assert.Equal(t, 6.9, vec[7], "contracted_power_kva")
	assert.Equal(t, 1.0, vec[8], "tariff_simples")
	assert.Equal(t, 0.0, vec[9], "tariff_bihorario")
	assert.Equal(t, 1.0, vec[10], "segment_residential")
	assert.Equal(t, 120.0, vec[13], "home_area_m2")
	assert.Equal(t, 3.0, vec[14], "household_size")
	assert.Equal(t, 1.0, vec[15], "has_solar")
	assert.Equal(t, 1.0, vec[16], "ev_count")
}

func TestEncodeWeekendFlagMondayIndexed(t *testing.T) {
	enc := NewEncoder(StandardProfileDefaults())

	// 2026-03-14 is a Saturday, 2026-03-16 a Monday.
	sat := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	mon := time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC)

	vSat, err := enc.Encode(sat, testProfile(), 100, nil)
	require.NoError(t, err)
	vMon, err := enc.Encode(mon, testProfile(), 100, nil)
	require.NoError(t, err)

	assert.Equal(t, 1.0, vSat[5])
	assert.Equal(t, 0.0, vMon[5])
	// Monday=0: dow angle is 0, so dow_sin=0, dow_cos=1.
	assert.InDelta(t, 0.0, vMon[3], 1e-9)
	assert.InDelta(t, 1.0, vMon[4], 1e-9)
}

func TestEncodeDefaultsForMissingProfileFields(t *testing.T) {
	enc := NewEncoder(StandardProfileDefaults())
	profile := &types.CustomerProfile{
		ID:                 "C_SPARSE01",
		Segment:            types.SegmentSME,
		City:               "Lisboa",
		ContractedPowerKVA: 13.8,
		Tariff:             types.TariffBihorario,
	}

	vec, err := enc.Encode(time.Now().UTC(), profile, 800, nil)
	require.NoError(t, err)

	assert.Equal(t, 90.0, vec[13], "default area")
	assert.Equal(t, 2.0, vec[14], "default household")
	assert.Equal(t, 0.0, vec[15], "default solar")
	assert.Equal(t, 0.0, vec[16], "default ev count")
}

func TestEncodeUnknownCategoricalsCollapseToZero(t *testing.T) {
	enc := NewEncoder(StandardProfileDefaults())
	profile := &types.CustomerProfile{
		ID:                 "C_ODD00001",
		Segment:            "municipal",
		City:               "Porto",
		ContractedPowerKVA: 20.7,
		Tariff:             "Tri-horário",
	}

	vec, err := enc.Encode(time.Now().UTC(), profile, 2000, nil)
	require.NoError(t, err)

	for _, idx := range []int{8, 9, 10, 11, 12} {
		assert.Equal(t, 0.0, vec[idx], "one-hot slot %d", idx)
	}
}

func TestEncodeRejectsNonFiniteInputs(t *testing.T) {
	enc := NewEncoder(StandardProfileDefaults())
	profile := testProfile()
	now := time.Now().UTC()

	_, err := enc.Encode(now, profile, math.NaN(), nil)
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeForecastMalformedInput, appErr.Code)

	inf := math.Inf(1)
	_, err = enc.Encode(now, profile, 100, &inf)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeForecastMalformedInput, appErr.Code)
}

func TestCyclicalContinuityAtMidnight(t *testing.T) {
	enc := NewEncoder(StandardProfileDefaults())
	profile := testProfile()

	before := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	after := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)

	v1, err := enc.Encode(before, profile, 300, nil)
	require.NoError(t, err)
	v2, err := enc.Encode(after, profile, 300, nil)
	require.NoError(t, err)

	var dist float64
	for i := range v1 {
		d := v1[i] - v2[i]
		dist += d * d
	}
	dist = math.Sqrt(dist)

	// One minute across midnight must not produce a jump; raw hour encoding
	// would move the hour field by ~24.
	assert.Less(t, dist, 1.0)
}

func TestSeasonalTempCoastalBias(t *testing.T) {
	ts := time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC)

	inland := SeasonalTemp(ts, "Braga")
	coastal := SeasonalTemp(ts, "Porto")

	assert.InDelta(t, inland-1.0, coastal, 1e-9)
	// Mid-July sits near the warm peak of the approximation.
	assert.Greater(t, inland, 20.0)
}

func TestSeasonalTempWinterSummerSpread(t *testing.T) {
	winter := SeasonalTemp(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), "Lisboa")
	summer := SeasonalTemp(time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC), "Lisboa")
	assert.Greater(t, summer, winter)
}

func TestEncodeDailyLayout(t *testing.T) {
	// Sunday.
	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	vec := EncodeDaily(day, 12.5, 17.0, 42)

	require.Len(t, vec, len(DailyFeatureNames()))
	assert.Equal(t, 12.5, vec[0], "prev_day_kwh")
	assert.Equal(t, 1.0, vec[5], "is_weekend")
	assert.Equal(t, 17.0, vec[6], "temp_c")
	assert.Equal(t, 42.0, vec[7], "trend_index")
}
