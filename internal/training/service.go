// Package training implements the model training entry point: it turns raw
// telemetry history into (previous -> next) sample pairs, runs the
// deterministic split and ridge fit from the forecast package, evaluates the
// held-out metrics, and persists the resulting artifact wholesale.
//
// Training runs are serialized by an explicit mutex inside the service. A
// second concurrent caller is rejected with training_busy instead of queueing;
// the platform retrains on a schedule, so a collision means someone is
// already doing the work.
package training

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"kynex/internal/forecast"
	"kynex/internal/types"
)

// Defaults for the training entry point. All are overridable per request or
// from configuration.
const (
	DefaultDaysBack   = 14
	DefaultL2         = 2.0
	DefaultSeed       = 42
	DefaultMinSamples = 250

	// MinProfileReadings is the minimum raw reading count for the
	// hour-of-week profile fallback trainer.
	MinProfileReadings = 96

	// pairLoadConcurrency bounds the per-customer history reads.
	pairLoadConcurrency = 4
)

// Config carries the environment-level training defaults.
type Config struct {
	DaysBack   int
	L2         float64
	Seed       uint32
	MinSamples int
}

// DefaultConfig returns the production training defaults.
func DefaultConfig() Config {
	return Config{
		DaysBack:   DefaultDaysBack,
		L2:         DefaultL2,
		Seed:       DefaultSeed,
		MinSamples: DefaultMinSamples,
	}
}

// TrainRequest optionally overrides the configured defaults for one run.
type TrainRequest struct {
	DaysBack   *int     `json:"days_back,omitempty" validate:"omitempty,min=1,max=365"`
	L2         *float64 `json:"l2,omitempty" validate:"omitempty,gt=0"`
	Seed       *uint32  `json:"seed,omitempty"`
	MinSamples *int     `json:"min_samples,omitempty" validate:"omitempty,min=2"`
}

// TrainResult summarizes a completed training run.
type TrainResult struct {
	Artifact    *types.ModelArtifact `json:"artifact"`
	SampleCount int                  `json:"sample_count"`
	TrainCount  int                  `json:"train_count"`
	TestCount   int                  `json:"test_count"`
}

// Service is the training entry point.
type Service struct {
	customers types.CustomerRepository
	telemetry types.TelemetryRepository
	models    types.ModelRepository
	encoder   *forecast.Encoder
	logger    *slog.Logger
	cfg       Config

	now func() time.Time

	// mu serializes training runs. TryLock keeps the second caller from
	// blocking behind a long fit.
	mu sync.Mutex
}

// NewService wires a training service. now may be nil (wall clock).
func NewService(
	customers types.CustomerRepository,
	telemetry types.TelemetryRepository,
	models types.ModelRepository,
	encoder *forecast.Encoder,
	cfg Config,
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
		customers: customers,
		telemetry: telemetry,
		models:    models,
		encoder:   encoder,
		logger:    logger,
		cfg:       cfg,
		now:       now,
	}
}

// customerPairs holds one customer's training rows plus the raw series used
// by the profile fallback trainer.
type customerPairs struct {
	features [][]float64
	targets  []float64
	times    []time.Time
	watts    []float64
}

// Train runs a full ridge training pass over the interval telemetry and
// persists the artifact via append-then-swap. It fails with
// training_insufficient_data (citing the observed pair count) when fewer
// usable sample pairs exist than the configured minimum, and with
// training_busy when another run is already in flight. On any failure the
// previously active artifact remains authoritative.
func (s *Service) Train(ctx context.Context, req TrainRequest) (*TrainResult, error) {
	if !s.mu.TryLock() {
		return nil, types.NewAppError(types.ErrCodeTrainingBusy, "a training run is already in progress", nil)
	}
	defer s.mu.Unlock()

	daysBack := s.cfg.DaysBack
	if req.DaysBack != nil {
		daysBack = *req.DaysBack
	}
	l2 := s.cfg.L2
	if req.L2 != nil {
		l2 = *req.L2
	}
	seed := s.cfg.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}
	minSamples := s.cfg.MinSamples
	if req.MinSamples != nil {
		minSamples = *req.MinSamples
	}

	now := s.now().UTC()
	since := now.AddDate(0, 0, -daysBack)

	x, y, err := s.loadPairs(ctx, since, now)
	if err != nil {
		return nil, err
	}
	if len(x) < minSamples {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeTrainingInsufficientData,
			"not enough sample pairs to train", nil,
			map[string]any{"sample_count": len(x), "min_samples": minSamples})
	}

	trainIdx, testIdx := forecast.TrainTestSplit(len(x), forecast.DefaultTrainFraction, seed)

	xTr := make([][]float64, len(trainIdx))
	yTr := make([]float64, len(trainIdx))
	for i, idx := range trainIdx {
		xTr[i] = x[idx]
		yTr[i] = y[idx]
	}

	fit, err := forecast.RidgeFit(xTr, yTr, l2)
	if err != nil {
		return nil, err
	}

	yTrue := make([]float64, len(testIdx))
	yPred := make([]float64, len(testIdx))
	for i, idx := range testIdx {
		yTrue[i] = y[idx]
		yPred[i] = fit.PredictRow(x[idx])
	}
	metrics := forecast.RoundMetrics(forecast.EvalMetrics(yTrue, yPred))

	artifact := &types.ModelArtifact{
		ID:        uuid.NewString(),
		Kind:      types.ModelKindInterval,
		CreatedAt: now,
		Ridge:     fit.ToModel(forecast.FeatureNames(), forecast.IntervalMinutes, l2, metrics, now),
	}
	if err := artifact.Validate(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalModelCorrupt, "trained artifact failed validation", err)
	}
	if err := s.models.SaveAndActivate(ctx, artifact); err != nil {
		return nil, err
	}

	s.logger.Info("ridge model trained",
		"artifact_id", artifact.ID,
		"samples", len(x),
		"train", len(trainIdx),
		"test", len(testIdx),
		"mae", metrics.MAE,
		"rmse", metrics.RMSE,
		"r2", metrics.R2)

	return &TrainResult{
		Artifact:    artifact,
		SampleCount: len(x),
		TrainCount:  len(trainIdx),
		TestCount:   len(testIdx),
	}, nil
}

// TrainHourlyProfile builds and persists the non-parametric hour-of-week
// fallback model from raw readings over the configured window. It is the
// explicit alternative when ridge training keeps failing on sparse history.
func (s *Service) TrainHourlyProfile(ctx context.Context, daysBack int) (*TrainResult, error) {
	if !s.mu.TryLock() {
		return nil, types.NewAppError(types.ErrCodeTrainingBusy, "a training run is already in progress", nil)
	}
	defer s.mu.Unlock()

	if daysBack <= 0 {
		daysBack = s.cfg.DaysBack
	}
	now := s.now().UTC()
	since := now.AddDate(0, 0, -daysBack)

	perCustomer, err := s.loadSeries(ctx, since, now)
	if err != nil {
		return nil, err
	}

	var times []time.Time
	var watts []float64
	for _, cp := range perCustomer {
		times = append(times, cp.times...)
		watts = append(watts, cp.watts...)
	}
	if len(watts) < MinProfileReadings {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeTrainingInsufficientData,
			"not enough readings for an hourly profile", nil,
			map[string]any{"sample_count": len(watts), "min_samples": MinProfileReadings})
	}

	artifact := &types.ModelArtifact{
		ID:            uuid.NewString(),
		Kind:          types.ModelKindInterval,
		CreatedAt:     now,
		HourlyProfile: forecast.FitHourlyProfile(times, watts, now),
	}
	if err := s.models.SaveAndActivate(ctx, artifact); err != nil {
		return nil, err
	}

	s.logger.Info("hourly profile model trained",
		"artifact_id", artifact.ID, "readings", len(watts))

	return &TrainResult{Artifact: artifact, SampleCount: len(watts)}, nil
}

// loadPairs builds the flattened (features, target) training set. Customers
// are processed concurrently but results are flattened in customer list
// order so the sample ordering, and therefore the seeded shuffle, stays
// deterministic across runs.
func (s *Service) loadPairs(ctx context.Context, since, until time.Time) ([][]float64, []float64, error) {
	perCustomer, err := s.loadSeries(ctx, since, until)
	if err != nil {
		return nil, nil, err
	}

	var x [][]float64
	var y []float64
	for _, cp := range perCustomer {
		x = append(x, cp.features...)
		y = append(y, cp.targets...)
	}
	return x, y, nil
}

// loadSeries reads each customer's ordered history and encodes pair rows.
// A customer needs at least 3 readings to contribute; shorter histories are
// skipped rather than failing the run.
func (s *Service) loadSeries(ctx context.Context, since, until time.Time) ([]customerPairs, error) {
	customers, err := s.customers.List(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]customerPairs, len(customers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pairLoadConcurrency)
	for i, c := range customers {
		g.Go(func() error {
			readings, err := s.telemetry.ReadRange(gctx, c.ID, since, until)
			if err != nil {
				return err
			}
			if len(readings) < 3 {
				return nil
			}

			cp := customerPairs{
				features: make([][]float64, 0, len(readings)-1),
				targets:  make([]float64, 0, len(readings)-1),
				times:    make([]time.Time, 0, len(readings)),
				watts:    make([]float64, 0, len(readings)),
			}
			for _, r := range readings {
				cp.times = append(cp.times, r.Timestamp)
				cp.watts = append(cp.watts, r.Watts)
			}
			for j := 0; j < len(readings)-1; j++ {
				prev := readings[j]
				feats, err := s.encoder.Encode(prev.Timestamp, &c, prev.Watts, prev.TempC)
				if err != nil {
					return err
				}
				cp.features = append(cp.features, feats)
				cp.targets = append(cp.targets, readings[j+1].Watts)
			}
			results[i] = cp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
