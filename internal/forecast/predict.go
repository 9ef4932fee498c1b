package forecast

import (
	"math"

	"kynex/internal/types"
)

// Clamp bounds applied to raw predictions by callers. A reading below
// MinPredictionWatts is physically implausible for a connected meter; the
// upper bound is the customer's contracted limit with headroom.
const (
	MinPredictionWatts = 20.0
	// ContractedCapRatio is the share of contracted power a prediction may
	// reach, mirroring the margin utilities enforce before tripping.
	ContractedCapRatio = 0.95
)

// Predict applies a trained artifact to a single feature vector and returns
// raw (unclamped) watts. It dispatches on the artifact variant.
//
// The ridge path fails with forecast_feature_mismatch when the vector length
// does not match the model's recorded feature names; that signals a stale
// model relative to the current encoder schema and the caller is expected to
// retrain, not to patch the vector.
func Predict(artifact *types.ModelArtifact, features []float64) (float64, error) {
	switch {
	case artifact.Ridge != nil:
		return predictRidge(artifact.Ridge, features)
	case artifact.HourlyProfile != nil:
		return predictHourlyProfile(artifact.HourlyProfile, features)
	default:
		return 0, types.NewAppError(types.ErrCodeInternalModelCorrupt, "model artifact has no variant", nil)
	}
}

func predictRidge(m *types.RidgeModel, features []float64) (float64, error) {
	if len(features) != len(m.FeatureNames) {
		return 0, types.NewAppErrorWithDetails(types.ErrCodeForecastFeatureMismatch,
			"feature vector length does not match model schema", nil,
			map[string]any{"got": len(features), "want": len(m.FeatureNames)})
	}
	sum := m.Bias
	for j, v := range features {
		std := m.Std[j]
		if std == 0 {
			std = 1
		}
		sum += (v - m.Mean[j]) / std * m.Weights[j]
	}
	return sum, nil
}

// predictHourlyProfile recovers hour of day and day of week from the
// sin/cos pairs in the interval feature vector and looks up the matching
// hour-of-week bucket. Non-finite buckets fall back to the global mean.
func predictHourlyProfile(m *types.HourlyProfileModel, features []float64) (float64, error) {
	if len(features) != len(intervalFeatureNames) {
		return 0, types.NewAppErrorWithDetails(types.ErrCodeForecastFeatureMismatch,
			"feature vector length does not match encoder schema", nil,
			map[string]any{"got": len(features), "want": len(intervalFeatureNames)})
	}

	hour := angleToUnits(features[1], features[2], 24)
	dow := angleToUnits(features[3], features[4], 7)

	bucket := dow*24 + hour
	v := m.Buckets[bucket]
	if !isFinite(v) {
		return m.GlobalMean, nil
	}
	return v, nil
}

// angleToUnits inverts a (sin, cos) cyclical encoding back to an integer in
// [0, period) by normalizing atan2 to [0, 2*pi) and rescaling. Truncation,
// not rounding: training buckets readings by ts.Hour(), so 13:45 must land
// in bucket 13. The epsilon absorbs float error on exact integer angles.
func angleToUnits(sin, cos float64, period int) int {
	angle := math.Atan2(sin, cos)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	u := int(angle/(2*math.Pi)*float64(period) + 1e-9)
	if u >= period {
		u = 0
	}
	return u
}

// ClampWatts bounds a raw prediction to the plausible range for the
// customer's contract: never negative or below the idle floor, never above
// 95% of contracted power.
func ClampWatts(raw, contractedKVA float64) float64 {
	cap := ContractedCapRatio * contractedKVA * 1000.0
	if raw < MinPredictionWatts {
		return MinPredictionWatts
	}
	if raw > cap {
		return cap
	}
	return raw
}
