// Package power implements the contracted-power advisor: a second, much
// smaller ridge model that maps a customer's trailing 30-day consumption
// statistics and profile onto the contracted power (kVA) they should be
// paying for. Utilities bill fixed fees by contracted power, so customers
// sitting far above their real peak are overpaying every month.
package power

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"kynex/internal/forecast"
	"kynex/internal/types"
)

// Advisor tuning.
const (
	// DefaultL2 regularizes the advisor fit. The dataset is one row per
	// customer, so it is always small.
	DefaultL2 = 1.0

	// MinCustomers is the minimum number of customers with telemetry
	// required before a fit is attempted.
	MinCustomers = 10

	// Contracted power bounds and granularity of the synthetic target.
	minKVA     = 1.0
	maxKVA     = 60.0
	kvaStep    = 0.1
	peakMargin = 0.85
	avgFactor  = 2.2
)

// advisorFeatureNames is the advisor model's feature layout.
var advisorFeatureNames = []string{
	"contracted_power_kva",
	"peak_watts_30d",
	"avg_watts_30d",
	"home_area_m2",
	"household_size",
	"has_solar",
	"ev_count",
	"segment_residential",
	"segment_sme",
	"segment_industrial",
}

// Advisor trains and applies the contracted-power model.
type Advisor struct {
	customers types.CustomerRepository
	telemetry types.TelemetryRepository
	models    types.ModelRepository
	defaults  forecast.ProfileDefaults
	logger    *slog.Logger
	now       func() time.Time
}

// NewAdvisor wires an Advisor. now may be nil (wall clock).
func NewAdvisor(
	customers types.CustomerRepository,
	telemetry types.TelemetryRepository,
	models types.ModelRepository,
	defaults forecast.ProfileDefaults,
	logger *slog.Logger,
	now func() time.Time,
) *Advisor {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Advisor{
		customers: customers,
		telemetry: telemetry,
		models:    models,
		defaults:  defaults,
		logger:    logger,
		now:       now,
	}
}

// idealKVA is the synthetic ground truth: headroom over the observed peak,
// with a floor proportional to the average draw, widened by a per-segment
// margin and discretized to the 0.1 kVA contract steps retailers sell.
func idealKVA(segment types.Segment, peakWatts, avgWatts float64) float64 {
	peakKVA := 1.0
	if peakWatts > 0 {
		peakKVA = (peakWatts / 1000.0) / peakMargin
	}
	avgKVA := 1.0
	if avgWatts > 0 {
		avgKVA = (avgWatts / 1000.0) * avgFactor
	}

	margin := 0.08
	switch segment {
	case types.SegmentIndustrial:
		margin = 0.15
	case types.SegmentSME:
		margin = 0.10
	}

	base := math.Max(peakKVA, avgKVA) * (1.0 + margin)
	kva := math.Ceil(base/kvaStep) * kvaStep
	return math.Min(maxKVA, math.Max(minKVA, kva))
}

// encodeCustomer builds the advisor feature row for one customer.
func (a *Advisor) encodeCustomer(c *types.CustomerProfile, stats *types.CustomerStats30d) []float64 {
	area := a.defaults.HomeAreaM2
	if c.HomeAreaM2 != nil {
		area = *c.HomeAreaM2
	}
	household := a.defaults.HouseholdSize
	if c.HouseholdSize != nil {
		household = *c.HouseholdSize
	}
	solar := 0.0
	if c.HasSolar != nil && *c.HasSolar {
		solar = 1.0
	}
	ev := a.defaults.EVCount
	if c.EVCount != nil {
		ev = *c.EVCount
	}

	segRes, segSME, segInd := 0.0, 0.0, 0.0
	switch c.Segment {
	case types.SegmentResidential:
		segRes = 1.0
	case types.SegmentSME:
		segSME = 1.0
	case types.SegmentIndustrial:
		segInd = 1.0
	}

	return []float64{
		c.ContractedPowerKVA,
		stats.PeakWatts,
		stats.AvgWatts,
		area,
		float64(household),
		solar,
		float64(ev),
		segRes,
		segSME,
		segInd,
	}
}

// TrainResult summarizes an advisor training pass.
type TrainResult struct {
	Artifact        *types.ModelArtifact        `json:"artifact"`
	CustomerCount   int                         `json:"customer_count"`
	Recommendations []types.PowerRecommendation `json:"recommendations"`
}

// Train fits the advisor over every customer with telemetry, persists the
// artifact, and returns per-customer recommendations from the fresh fit.
// Customers with no readings are skipped. Fails with
// training_insufficient_data below MinCustomers usable rows.
func (a *Advisor) Train(ctx context.Context, l2 float64) (*TrainResult, error) {
	if l2 <= 0 {
		l2 = DefaultL2
	}

	customers, err := a.customers.List(ctx)
	if err != nil {
		return nil, err
	}

	var rows [][]float64
	var targets []float64
	var included []types.CustomerProfile
	for i := range customers {
		c := &customers[i]
		stats, err := a.telemetry.Stats30d(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		if stats == nil || stats.PeakWatts <= 0 {
			continue
		}
		rows = append(rows, a.encodeCustomer(c, stats))
		targets = append(targets, idealKVA(c.Segment, stats.PeakWatts, stats.AvgWatts))
		included = append(included, *c)
	}

	if len(rows) < MinCustomers {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeTrainingInsufficientData,
			"not enough customers with telemetry for the power advisor", nil,
			map[string]any{"sample_count": len(rows), "min_samples": MinCustomers})
	}

	fit, err := forecast.RidgeFit(rows, targets, l2)
	if err != nil {
		return nil, err
	}

	// The advisor evaluates in-sample: there is one row per customer and the
	// target is synthetic, so a held-out split would only add noise.
	preds := make([]float64, len(rows))
	for i, row := range rows {
		preds[i] = fit.PredictRow(row)
	}
	metrics := forecast.RoundMetrics(forecast.EvalMetrics(targets, preds))

	now := a.now().UTC()
	artifact := &types.ModelArtifact{
		ID:        uuid.NewString(),
		Kind:      types.ModelKindPowerAdvisor,
		CreatedAt: now,
		Ridge:     fit.ToModel(advisorFeatureNames, 0, l2, metrics, now),
	}
	if err := a.models.SaveAndActivate(ctx, artifact); err != nil {
		return nil, err
	}

	recs := make([]types.PowerRecommendation, len(included))
	for i, c := range included {
		recs[i] = types.PowerRecommendation{
			CustomerID:     c.ID,
			CurrentKVA:     c.ContractedPowerKVA,
			RecommendedKVA: clampKVA(preds[i]),
		}
	}

	a.logger.Info("power advisor trained",
		"artifact_id", artifact.ID,
		"customers", len(included),
		"mae", metrics.MAE,
		"r2", metrics.R2)

	return &TrainResult{
		Artifact:        artifact,
		CustomerCount:   len(included),
		Recommendations: recs,
	}, nil
}

// Recommend applies the active advisor model to one customer.
func (a *Advisor) Recommend(ctx context.Context, customerID string) (*types.PowerRecommendation, error) {
	customer, err := a.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	stats, err := a.telemetry.Stats30d(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if stats == nil || stats.PeakWatts <= 0 {
		return nil, types.NewAppError(types.ErrCodeTrainingInsufficientData,
			"customer has no telemetry to recommend from", nil)
	}

	artifact, err := a.models.GetActive(ctx, types.ModelKindPowerAdvisor)
	if err != nil {
		return nil, err
	}

	pred, err := forecast.Predict(artifact, a.encodeCustomer(customer, stats))
	if err != nil {
		return nil, err
	}

	return &types.PowerRecommendation{
		CustomerID:     customerID,
		CurrentKVA:     customer.ContractedPowerKVA,
		RecommendedKVA: clampKVA(pred),
	}, nil
}

// clampKVA discretizes a raw prediction to valid contract steps.
func clampKVA(v float64) float64 {
	kva := math.Round(v/kvaStep) * kvaStep
	return math.Min(maxKVA, math.Max(minKVA, kva))
}
