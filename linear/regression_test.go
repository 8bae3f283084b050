package linear

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/biascorrect/pkg/errors"
)

func TestLinearRegression_Fit(t *testing.T) {
	tests := []struct {
		name          string
		X             *mat.Dense
		y             []float64
		wantCoef      []float64
		wantIntercept float64
	}{
		{
			name:          "simple line",
			X:             mat.NewDense(4, 1, []float64{1, 2, 3, 4}),
			y:             []float64{3, 5, 7, 9},
			wantCoef:      []float64{2},
			wantIntercept: 1,
		},
		{
			name: "two features",
			X: mat.NewDense(5, 2, []float64{
				1, 0,
				0, 1,
				1, 1,
				2, 1,
				3, 5,
			}),
			y:             []float64{2.5, 0, 1.5, 3, 0.5},
			wantCoef:      []float64{1.5, -1},
			wantIntercept: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLinearRegression()
			require.NoError(t, lr.Fit(tt.X, tt.y))

			assert.InDeltaSlice(t, tt.wantCoef, lr.Coefficients(), 1e-9)
			assert.InDelta(t, tt.wantIntercept, lr.Intercept(), 1e-9)

			pred, err := lr.Predict(tt.X)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.y, pred, 1e-9)

			score, err := lr.Score(tt.X, tt.y)
			require.NoError(t, err)
			assert.InDelta(t, 1.0, score, 1e-9)
		})
	}
}

func TestLinearRegression_RankDeficient(t *testing.T) {
	// 2列目は1列目の複製。最小ノルム解では係数が等分される
	X := mat.NewDense(4, 2, []float64{
		1, 1,
		2, 2,
		3, 3,
		4, 4,
	})
	y := []float64{2, 4, 6, 8}

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))
	assert.Equal(t, 1, lr.Rank)
	assert.InDeltaSlice(t, []float64{1, 1}, lr.Coefficients(), 1e-9)
	assert.InDelta(t, 0, lr.Intercept(), 1e-9)
}

func TestLinearRegression_ConstantFeature(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{5, 5, 5})
	y := []float64{1, 2, 3}

	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))
	assert.Equal(t, 0, lr.Rank)
	assert.Equal(t, []float64{0}, lr.Coefficients())
	assert.InDelta(t, 2.0, lr.Intercept(), 1e-12)
}

func TestLinearRegression_NoIntercept(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := []float64{2, 4, 6}

	lr := NewLinearRegression(WithFitIntercept(false))
	require.NoError(t, lr.Fit(X, y))
	assert.InDeltaSlice(t, []float64{2}, lr.Coefficients(), 1e-9)
	assert.Equal(t, 0.0, lr.Intercept())
}

func TestLinearRegression_Errors(t *testing.T) {
	lr := NewLinearRegression()

	_, err := lr.Predict(mat.NewDense(1, 1, nil))
	var nfErr *errors.NotFittedError
	assert.True(t, errors.As(err, &nfErr))

	err = lr.Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), []float64{1, 2})
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))

	require.NoError(t, lr.Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), []float64{1, 2, 4}))
	_, err = lr.Predict(mat.NewDense(1, 2, nil))
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 1, dimErr.Axis)

	_, err = lr.Score(mat.NewDense(2, 1, []float64{1, 2}), []float64{3, 3})
	var valErr *errors.ValueError
	assert.True(t, errors.As(err, &valErr))
}
