package types

import (
	"fmt"
	"time"
)

// Metrics holds held-out evaluation metrics for a trained model.
type Metrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
}

// RidgeModel is a trained L2-regularized linear regression artifact. It is
// immutable after creation and replaced wholesale on retraining.
//
// Invariant: len(FeatureNames) == len(Mean) == len(Std) == len(Weights).
type RidgeModel struct {
	Version         int       `json:"version"`
	TrainedAt       time.Time `json:"trained_at"`
	IntervalMinutes int       `json:"interval_minutes"`
	L2              float64   `json:"l2"`
	FeatureNames    []string  `json:"feature_names"`
	Mean            []float64 `json:"mean"`
	Std             []float64 `json:"std"`
	Weights         []float64 `json:"weights"`
	Bias            float64   `json:"bias"`
	Metrics         Metrics   `json:"metrics"`
}

// Validate checks the internal length invariant.
func (m *RidgeModel) Validate() error {
	n := len(m.FeatureNames)
	if len(m.Mean) != n || len(m.Std) != n || len(m.Weights) != n {
		return fmt.Errorf("ridge model shape mismatch: features=%d mean=%d std=%d weights=%d",
			n, len(m.Mean), len(m.Std), len(m.Weights))
	}
	return nil
}

// HourOfWeekBuckets is the bucket count of the hourly profile model:
// 7 days x 24 hours, indexed by day_of_week*24 + hour with Monday=0.
const HourOfWeekBuckets = 168

// HourlyProfileModel is the non-parametric fallback artifact: a mean watts
// value per hour of week, used when history is too sparse for a ridge fit.
type HourlyProfileModel struct {
	Version         int       `json:"version"`
	TrainedAt       time.Time `json:"trained_at"`
	IntervalMinutes int       `json:"interval_minutes"`
	Buckets         []float64 `json:"buckets_168"`
	GlobalMean      float64   `json:"global_mean"`
	Metrics         *Metrics  `json:"metrics,omitempty"`
}

// Validate checks the bucket count.
func (m *HourlyProfileModel) Validate() error {
	if len(m.Buckets) != HourOfWeekBuckets {
		return fmt.Errorf("hourly profile model has %d buckets, want %d", len(m.Buckets), HourOfWeekBuckets)
	}
	return nil
}

// ModelArtifact is the persisted, versioned model record. Exactly one of
// Ridge or HourlyProfile is set; Variant selection replaces the string-tag
// dispatch used by earlier iterations of the trainer.
type ModelArtifact struct {
	ID        string    `json:"id"`
	Kind      ModelKind `json:"kind"`
	CreatedAt time.Time `json:"created_at"`

	Ridge         *RidgeModel         `json:"ridge,omitempty"`
	HourlyProfile *HourlyProfileModel `json:"hourly_profile,omitempty"`
}

// Validate ensures the artifact carries exactly one model variant and that
// the variant itself is well formed.
func (a *ModelArtifact) Validate() error {
	switch {
	case a.Ridge != nil && a.HourlyProfile != nil:
		return fmt.Errorf("model artifact %s has both variants set", a.ID)
	case a.Ridge != nil:
		return a.Ridge.Validate()
	case a.HourlyProfile != nil:
		return a.HourlyProfile.Validate()
	default:
		return fmt.Errorf("model artifact %s has no variant set", a.ID)
	}
}

// Variant returns a short label for logging.
func (a *ModelArtifact) Variant() string {
	if a.Ridge != nil {
		return "ridge"
	}
	if a.HourlyProfile != nil {
		return "hourly_profile"
	}
	return "empty"
}
