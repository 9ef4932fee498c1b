package forecast

import (
	"time"

	"kynex/internal/types"
)

// MaxRolloutSteps caps any rollout at 31 days of 15-minute intervals. The cap
// is a silent truncation, not an error: bounded compute is a safety valve for
// malformed or non-advancing horizons, and the caller asked for an open-ended
// simulation in the first place.
const MaxRolloutSteps = 31 * 96

// TempFunc resolves the ambient temperature for a simulated instant. A nil
// return defers to the encoder's seasonal approximation.
type TempFunc func(ts time.Time) *float64

// Rollout runs an open-loop autoregressive simulation: each step advances the
// clock by interval, re-encodes features from the previous (predicted)
// reading, predicts, clamps, and feeds the clamped value back as the next lag
// feature.
//
// Prediction errors compound across steps because the model consumes its own
// output; the post-predict clamp is the only bound on divergence. Every call
// starts a fresh simulation; no state survives between calls, so concurrent
// rollouts for different customers are safe.
func (e *Encoder) Rollout(
	artifact *types.ModelArtifact,
	profile *types.CustomerProfile,
	startWatts float64,
	startTime time.Time,
	steps int,
	interval time.Duration,
	tempAt TempFunc,
) ([]types.ForecastPoint, error) {
	if steps > MaxRolloutSteps {
		steps = MaxRolloutSteps
	}

	points := make([]types.ForecastPoint, 0, steps)
	current := startTime.UTC()
	lastWatts := startWatts

	for i := 0; i < steps; i++ {
		current = current.Add(interval)

		var temp *float64
		if tempAt != nil {
			temp = tempAt(current)
		}

		features, err := e.Encode(current, profile, lastWatts, temp)
		if err != nil {
			return nil, err
		}
		raw, err := Predict(artifact, features)
		if err != nil {
			return nil, err
		}

		clamped := ClampWatts(raw, profile.ContractedPowerKVA)
		points = append(points, types.ForecastPoint{Timestamp: current, Watts: clamped})
		lastWatts = clamped
	}

	return points, nil
}
