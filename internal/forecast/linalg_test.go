package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kynex/internal/types"
)

func TestInvertDiagonal(t *testing.T) {
	inv, err := invertMatrix([][]float64{
		{2, 0},
		{0, 2},
	})
	require.NoError(t, err)

	assert.Equal(t, 0.5, inv[0][0])
	assert.Equal(t, 0.0, inv[0][1])
	assert.Equal(t, 0.0, inv[1][0])
	assert.Equal(t, 0.5, inv[1][1])
}

func TestInvertRequiresPivoting(t *testing.T) {
	// Zero on the diagonal forces a row swap before elimination.
	inv, err := invertMatrix([][]float64{
		{0, 1},
		{1, 0},
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.0, inv[0][0], 1e-12)
	assert.InDelta(t, 1.0, inv[0][1], 1e-12)
	assert.InDelta(t, 1.0, inv[1][0], 1e-12)
	assert.InDelta(t, 0.0, inv[1][1], 1e-12)
}

func TestInvertRoundTrip(t *testing.T) {
	m := [][]float64{
		{4, 7, 2},
		{3, 6, 1},
		{2, 5, 3},
	}
	inv, err := invertMatrix(m)
	require.NoError(t, err)

	// M * M^-1 must be the identity.
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += m[i][k] * inv[k][j]
			}
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.InDelta(t, want, sum, 1e-9)
		}
	}
}

func TestInvertSingularMatrix(t *testing.T) {
	_, err := invertMatrix([][]float64{
		{1, 2},
		{2, 4},
	})

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeForecastSingularMatrix, appErr.Code)
}

func TestInvertDoesNotMutateInput(t *testing.T) {
	m := [][]float64{
		{3, 1},
		{1, 3},
	}
	_, err := invertMatrix(m)
	require.NoError(t, err)

	assert.Equal(t, [][]float64{{3, 1}, {1, 3}}, m)
}

func TestDot(t *testing.T) {
	assert.Equal(t, 32.0, dot([]float64{1, 2, 3}, []float64{4, 5, 6}))
	assert.Equal(t, 0.0, dot(nil, nil))
}
