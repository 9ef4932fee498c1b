package forecast

import (
	"math"

	"kynex/internal/types"
)

// pivotEpsilon is the magnitude below which a pivot is treated as zero and
// the matrix as singular. Standardized design matrices put every column near
// zero mean, so elimination without pivoting would be numerically fragile.
const pivotEpsilon = 1e-12

// dot returns the inner product of two equal-length vectors.
func dot(a, b []float64) float64 {
	var sum float64
	for i, v := range a {
		sum += v * b[i]
	}
	return sum
}

// invertMatrix inverts a dense n x n matrix via Gauss-Jordan elimination with
// partial pivoting on an augmented [M | I] block. The input is not modified.
//
// When the chosen pivot's magnitude falls below pivotEpsilon the matrix is
// singular (or too ill-conditioned to trust) and a forecast_singular_matrix
// error is returned with no partial result. At the core level that failure is
// fatal to the fit attempt; only a stronger regularization changes the outcome.
func invertMatrix(a [][]float64) ([][]float64, error) {
	n := len(a)
	aug := make([][]float64, n)
	for i := range aug {
		aug[i] = make([]float64, 2*n)
		copy(aug[i], a[i])
		aug[i][n+i] = 1.0
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(aug[r][col]) > math.Abs(aug[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(aug[pivot][col]) < pivotEpsilon {
			return nil, types.NewAppError(types.ErrCodeForecastSingularMatrix,
				"matrix is singular or ill-conditioned", nil)
		}
		if pivot != col {
			aug[col], aug[pivot] = aug[pivot], aug[col]
		}

		invPv := 1.0 / aug[col][col]
		for j := range aug[col] {
			aug[col][j] *= invPv
		}

		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := aug[r][col]
			if math.Abs(factor) < pivotEpsilon {
				continue
			}
			for j := range aug[r] {
				aug[r][j] -= factor * aug[col][j]
			}
		}
	}

	inv := make([][]float64, n)
	for i := range inv {
		inv[i] = aug[i][n:]
	}
	return inv, nil
}
