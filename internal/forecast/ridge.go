package forecast

import (
	"math"
	"time"

	"kynex/internal/types"
)

// stdEpsilon is the variance floor below which a feature is treated as
// constant. Its std is pinned to 1 so the column contributes zero signal
// after standardization instead of dividing by a vanishing number.
const stdEpsilon = 1e-9

// ssTotEpsilon is the total-sum-of-squares floor below which R-squared is
// reported as zero instead of dividing by a numerically negligible value.
const ssTotEpsilon = 1e-12

// RidgeFitResult holds the output of a ridge fit: weights over standardized
// features, the bias (mean of the raw targets), and the per-feature
// standardization parameters needed at inference time.
type RidgeFitResult struct {
	Weights []float64
	Bias    float64
	Mean    []float64
	Std     []float64
}

// Standardize computes per-feature mean and sample standard deviation over
// the rows of x and returns the standardized copy alongside both vectors.
// Features with near-zero variance get std pinned to 1.
func Standardize(x [][]float64) (xz [][]float64, mean, std []float64) {
	n := len(x)
	d := len(x[0])

	mean = make([]float64, d)
	for _, row := range x {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(n)
	}

	std = make([]float64, d)
	for _, row := range x {
		for j, v := range row {
			delta := v - mean[j]
			std[j] += delta * delta
		}
	}
	denom := float64(n - 1)
	if denom < 1 {
		denom = 1
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / denom)
		if std[j] < stdEpsilon {
			std[j] = 1.0
		}
	}

	xz = make([][]float64, n)
	for i, row := range x {
		zrow := make([]float64, d)
		for j, v := range row {
			zrow[j] = (v - mean[j]) / std[j]
		}
		xz[i] = zrow
	}
	return xz, mean, std
}

// RidgeFit fits an L2-regularized linear regression on x, y.
//
// The design matrix is standardized, the targets mean-centered (the bias is
// simply mean(y) because standardized columns average to zero), and the
// regularized normal equations (XtX + l2*I) w = Xty are solved by inverting
// with the Gauss-Jordan kernel. The l2 term guarantees invertibility even
// when XtX alone is singular from collinear cyclical and one-hot features.
//
// Fails with forecast_singular_matrix when inversion cannot proceed; the
// caller must treat that as fatal to this fit attempt.
func RidgeFit(x [][]float64, y []float64, l2 float64) (*RidgeFitResult, error) {
	if len(x) == 0 {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeTrainingInsufficientData,
			"cannot fit on an empty design matrix", nil,
			map[string]any{"sample_count": 0})
	}
	xz, mean, std := Standardize(x)
	n := len(xz)
	d := len(xz[0])

	var yMean float64
	for _, v := range y {
		yMean += v
	}
	yMean /= float64(n)

	// Accumulate XtX and Xty in a single pass over the standardized rows.
	xtx := make([][]float64, d)
	for j := range xtx {
		xtx[j] = make([]float64, d)
	}
	xty := make([]float64, d)
	for i, row := range xz {
		yc := y[i] - yMean
		for j, vj := range row {
			xty[j] += vj * yc
			for k, vk := range row {
				xtx[j][k] += vj * vk
			}
		}
	}
	for j := 0; j < d; j++ {
		xtx[j][j] += l2
	}

	inv, err := invertMatrix(xtx)
	if err != nil {
		return nil, err
	}

	weights := make([]float64, d)
	for j := range weights {
		weights[j] = dot(inv[j], xty)
	}

	return &RidgeFitResult{
		Weights: weights,
		Bias:    yMean,
		Mean:    mean,
		Std:     std,
	}, nil
}

// PredictRow applies a fit result to a single raw (unstandardized) row.
func (r *RidgeFitResult) PredictRow(row []float64) float64 {
	sum := r.Bias
	for j, v := range row {
		sum += (v - r.Mean[j]) / r.Std[j] * r.Weights[j]
	}
	return sum
}

// ToModel packages the fit as a versioned RidgeModel artifact.
func (r *RidgeFitResult) ToModel(featureNames []string, intervalMinutes int, l2 float64, metrics types.Metrics, now time.Time) *types.RidgeModel {
	return &types.RidgeModel{
		Version:         1,
		TrainedAt:       now.UTC(),
		IntervalMinutes: intervalMinutes,
		L2:              l2,
		FeatureNames:    featureNames,
		Mean:            r.Mean,
		Std:             r.Std,
		Weights:         r.Weights,
		Bias:            r.Bias,
		Metrics:         metrics,
	}
}

// EvalMetrics computes MAE, RMSE, and R-squared for predictions against
// ground truth. R-squared is clamped to zero when the total sum of squares is
// numerically negligible.
func EvalMetrics(yTrue, yPred []float64) types.Metrics {
	n := float64(len(yTrue))

	var absSum, sqSum, yMean float64
	for i, yt := range yTrue {
		e := yPred[i] - yt
		absSum += math.Abs(e)
		sqSum += e * e
		yMean += yt
	}
	yMean /= n

	var ssTot float64
	for _, yt := range yTrue {
		d := yt - yMean
		ssTot += d * d
	}

	r2 := 0.0
	if ssTot > ssTotEpsilon {
		r2 = 1.0 - sqSum/ssTot
	}

	return types.Metrics{
		MAE:  absSum / n,
		RMSE: math.Sqrt(sqSum / n),
		R2:   r2,
	}
}

// RoundMetrics rounds metrics to fixed decimal precision for reporting.
func RoundMetrics(m types.Metrics) types.Metrics {
	round := func(v float64, places int) float64 {
		p := math.Pow(10, float64(places))
		return math.Round(v*p) / p
	}
	return types.Metrics{
		MAE:  round(m.MAE, 3),
		RMSE: round(m.RMSE, 3),
		R2:   round(m.R2, 4),
	}
}
