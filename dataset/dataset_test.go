package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/biascorrect/pkg/errors"
)

func TestCombine(t *testing.T) {
	tests := []struct {
		name      string
		covs      Covariates
		fcst      []float64
		wantNames []string
	}{
		{
			name:      "forecast only",
			fcst:      []float64{1, 2, 3},
			wantNames: []string{"fcst"},
		},
		{
			name: "covariates then forecast",
			covs: Covariates{
				{Name: "var2", Values: []float64{7, 8, 9}},
				{Name: "var1", Values: []float64{4, 5, 6}},
			},
			fcst:      []float64{1, 2, 3},
			wantNames: []string{"var2", "var1", "fcst"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Combine(tt.covs, tt.fcst)
			require.NoError(t, err)

			r, c := m.Dims()
			assert.Equal(t, len(tt.fcst), r)
			assert.Equal(t, len(tt.covs)+1, c)
			assert.Equal(t, tt.wantNames, m.Names())

			col, err := m.Column(ForecastColumn)
			require.NoError(t, err)
			assert.Equal(t, tt.fcst, col)
			assert.Equal(t, c-1, m.Index(ForecastColumn))
		})
	}
}

func TestCombine_CopiesInput(t *testing.T) {
	fcst := []float64{1, 2}
	m, err := Combine(nil, fcst)
	require.NoError(t, err)

	fcst[0] = 100
	assert.Equal(t, 1.0, m.Raw().At(0, 0))
}

func TestCombine_LengthMismatch(t *testing.T) {
	covs := Covariates{{Name: "var1", Values: []float64{1, 2}}}
	_, err := Combine(covs, []float64{1, 2, 3})

	var dimErr *errors.DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Got)
	assert.Equal(t, 0, dimErr.Axis)
	assert.Contains(t, dimErr.Op, "var1")
}

func TestCombine_Invalid(t *testing.T) {
	_, err := Combine(nil, nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	_, err = Combine(Covariates{{Name: "fcst", Values: []float64{1}}}, []float64{1})
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))

	_, err = Combine(Covariates{
		{Name: "a", Values: []float64{1}},
		{Name: "a", Values: []float64{2}},
	}, []float64{1})
	assert.True(t, errors.As(err, &valErr))
}

func TestCovariatesFromMap_SortsNames(t *testing.T) {
	covs := CovariatesFromMap(map[string][]float64{
		"var3": {3},
		"var1": {1},
		"var2": {2},
	})
	assert.Equal(t, []string{"var1", "var2", "var3"}, covs.Names())
	assert.Equal(t, []float64{2}, covs[1].Values)
}

func TestFeatureMatrix_Rows(t *testing.T) {
	m, err := Combine(Covariates{{Name: "x", Values: []float64{10, 20, 30}}}, []float64{1, 2, 3})
	require.NoError(t, err)

	sub, err := m.Rows([]int{2, 0})
	require.NoError(t, err)
	assert.Equal(t, m.Names(), sub.Names())
	x, _ := sub.Column("x")
	assert.Equal(t, []float64{30, 10}, x)

	_, err = m.Rows([]int{3})
	assert.Error(t, err)
	_, err = m.Rows(nil)
	assert.Error(t, err)
}

func TestFeatureMatrix_UnknownColumn(t *testing.T) {
	m, err := Combine(nil, []float64{1})
	require.NoError(t, err)

	_, err = m.Column("var9")
	var schemaErr *errors.SchemaMismatchError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestNewFeatureMatrix(t *testing.T) {
	_, err := NewFeatureMatrix([]string{"a"}, mat.NewDense(1, 2, nil))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))

	_, err = NewFeatureMatrix([]string{"a", "a"}, mat.NewDense(1, 2, nil))
	assert.Error(t, err)

	m, err := NewFeatureMatrix([]string{"a", "b"}, mat.NewDense(1, 2, []float64{1, 2}))
	require.NoError(t, err)
	b, _ := m.Column("b")
	assert.Equal(t, []float64{2}, b)
}

func TestInput_Validate(t *testing.T) {
	valid := Input{
		Obs:        []float64{1, 2, 3},
		Fcst:       []float64{1.1, 2.1, 2.9},
		Covariates: Covariates{{Name: "var1", Values: []float64{0, 1, 0}}},
	}
	require.NoError(t, valid.Validate())

	m, err := valid.Features()
	require.NoError(t, err)
	assert.Equal(t, []string{"var1", "fcst"}, m.Names())

	tests := []struct {
		name  string
		input Input
	}{
		{"empty", Input{}},
		{"length mismatch", Input{Obs: []float64{1, 2}, Fcst: []float64{1}}},
		{"nan obs", Input{Obs: []float64{1, math.NaN()}, Fcst: []float64{1, 2}}},
		{"inf fcst", Input{Obs: []float64{1, 2}, Fcst: []float64{math.Inf(1), 2}}},
		{"short covariate", Input{
			Obs:        []float64{1, 2},
			Fcst:       []float64{1, 2},
			Covariates: Covariates{{Name: "var1", Values: []float64{1}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.input.Validate())
		})
	}
}
