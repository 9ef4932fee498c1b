package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kynex/internal/types"
)

func ridgeArtifact(names []string, weights []float64, bias float64) *types.ModelArtifact {
	n := len(names)
	mean := make([]float64, n)
	std := make([]float64, n)
	for i := range std {
		std[i] = 1
	}
	return &types.ModelArtifact{
		ID:   "m-test",
		Kind: types.ModelKindInterval,
		Ridge: &types.RidgeModel{
			Version:         1,
			TrainedAt:       time.Now().UTC(),
			IntervalMinutes: IntervalMinutes,
			FeatureNames:    names,
			Mean:            mean,
			Std:             std,
			Weights:         weights,
			Bias:            bias,
		},
	}
}

func TestPredictRidge(t *testing.T) {
	artifact := ridgeArtifact([]string{"a", "b"}, []float64{2, -1}, 10)

	got, err := Predict(artifact, []float64{3, 4})
	require.NoError(t, err)
	// 10 + 2*3 + (-1)*4 with identity standardization.
	assert.Equal(t, 12.0, got)
}

func TestPredictRidgeFeatureMismatch(t *testing.T) {
	artifact := ridgeArtifact([]string{"a", "b"}, []float64{1, 1}, 0)

	_, err := Predict(artifact, []float64{1, 2, 3})
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeForecastFeatureMismatch, appErr.Code)
	assert.Equal(t, 3, appErr.Details["got"])
	assert.Equal(t, 2, appErr.Details["want"])
}

func TestEncodeThenPredictNeverMismatches(t *testing.T) {
	enc := NewEncoder(StandardProfileDefaults())
	names := FeatureNames()
	weights := make([]float64, len(names))
	artifact := ridgeArtifact(names, weights, 500)

	vec, err := enc.Encode(time.Now().UTC(), testProfile(), 450, nil)
	require.NoError(t, err)

	_, err = Predict(artifact, vec)
	assert.NoError(t, err, "encode output must match model schema by construction")
}

func TestPredictHourlyProfile(t *testing.T) {
	buckets := make([]float64, types.HourOfWeekBuckets)
	for i := range buckets {
		buckets[i] = math.NaN()
	}
	// Tuesday (dow=1) at 14:00 -> bucket 1*24+14.
	buckets[1*24+14] = 777

	artifact := &types.ModelArtifact{
		ID:   "m-profile",
		Kind: types.ModelKindInterval,
		HourlyProfile: &types.HourlyProfileModel{
			Version:         1,
			IntervalMinutes: IntervalMinutes,
			Buckets:         buckets,
			GlobalMean:      321,
		},
	}

	enc := NewEncoder(StandardProfileDefaults())
	tue := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	vec, err := enc.Encode(tue, testProfile(), 100, nil)
	require.NoError(t, err)

	got, err := Predict(artifact, vec)
	require.NoError(t, err)
	assert.Equal(t, 777.0, got)

	// An hour with no observations falls back to the global mean.
	wed := time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC)
	vec, err = enc.Encode(wed, testProfile(), 100, nil)
	require.NoError(t, err)

	got, err = Predict(artifact, vec)
	require.NoError(t, err)
	assert.Equal(t, 321.0, got)
}

func TestPredictEmptyArtifact(t *testing.T) {
	artifact := &types.ModelArtifact{ID: "m-empty", Kind: types.ModelKindInterval}

	_, err := Predict(artifact, []float64{1})
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalModelCorrupt, appErr.Code)
}

func TestAngleToUnitsRoundTrip(t *testing.T) {
	for hour := 0; hour < 24; hour++ {
		rad := 2 * math.Pi * float64(hour) / 24.0
		got := angleToUnits(math.Sin(rad), math.Cos(rad), 24)
		assert.Equal(t, hour, got, "hour %d", hour)
	}
	for dow := 0; dow < 7; dow++ {
		rad := 2 * math.Pi * float64(dow) / 7.0
		got := angleToUnits(math.Sin(rad), math.Cos(rad), 7)
		assert.Equal(t, dow, got, "dow %d", dow)
	}
}

// Fractional hours must truncate to the hour that trained the bucket:
// a reading at 13:45 was accumulated under ts.Hour() == 13, so inference
// from the 13.75 encoding has to read bucket 13, not 14.
func TestAngleToUnitsTruncatesFractionalHours(t *testing.T) {
	cases := []struct {
		fractional float64
		want       int
	}{
		{13.25, 13},
		{13.5, 13},
		{13.75, 13},
		{23.75, 23},
		{0.75, 0},
	}
	for _, tc := range cases {
		rad := 2 * math.Pi * tc.fractional / 24.0
		got := angleToUnits(math.Sin(rad), math.Cos(rad), 24)
		assert.Equal(t, tc.want, got, "fractional hour %.2f", tc.fractional)
	}
}

func TestClampWatts(t *testing.T) {
	// 6.9 kVA -> cap at 0.95 * 6900 = 6555 W.
	assert.Equal(t, 20.0, ClampWatts(-500, 6.9))
	assert.Equal(t, 20.0, ClampWatts(5, 6.9))
	assert.Equal(t, 450.0, ClampWatts(450, 6.9))
	assert.Equal(t, 6555.0, ClampWatts(99999, 6.9))
}
