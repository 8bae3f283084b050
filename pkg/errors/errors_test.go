package errors

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Train",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "biascorrect: Train: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			err:     nil,
			wantMsg: "biascorrect: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			assert.Equal(t, tt.wantMsg, err.Error())

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			assert.Contains(t, formatted, "errors_test.go")

			var modelErr *ModelError
			assert.True(t, As(err, &modelErr))
		})
	}
}

func TestModelError_UnwrapsCause(t *testing.T) {
	err := NewModelError("dataset.Combine", "empty forecast", ErrEmptyData)
	assert.True(t, Is(err, ErrEmptyData))
}

func TestNewDimensionError(t *testing.T) {
	tests := []struct {
		axis int
		want string
	}{
		{0, "biascorrect: Combine: dimension mismatch on axis 0 (rows). Expected 10, got 9"},
		{1, "biascorrect: Combine: dimension mismatch on axis 1 (features). Expected 10, got 9"},
	}
	for _, tt := range tests {
		err := NewDimensionError("Combine", 10, 9, tt.axis)
		assert.Equal(t, tt.want, err.Error())

		var dimErr *DimensionError
		require.True(t, As(err, &dimErr))
		assert.Equal(t, 10, dimErr.Expected)
		assert.Equal(t, 9, dimErr.Got)
	}
}

func TestNewSchemaMismatchError(t *testing.T) {
	expected := []string{"var1", "fcst"}
	got := []string{"fcst", "var1"}

	err := NewSchemaMismatchError("ScalerState.Transform", expected, got)
	assert.Equal(t, "biascorrect: ScalerState.Transform: column schema mismatch. Expected [var1, fcst], got [fcst, var1]", err.Error())

	// 呼び出し元のスライスを変更してもエラーに影響しない
	expected[0] = "changed"

	var schemaErr *SchemaMismatchError
	require.True(t, As(err, &schemaErr))
	assert.Equal(t, []string{"var1", "fcst"}, schemaErr.Expected)
	assert.Equal(t, []string{"fcst", "var1"}, schemaErr.Got)
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("xgboost", "max_depth", "missing required key")
	assert.Equal(t, `biascorrect: config for "xgboost": max_depth: missing required key`, err.Error())

	var cfgErr *ConfigError
	require.True(t, As(err, &cfgErr))
	assert.Equal(t, "max_depth", cfgErr.Key)
}

func TestNewUnknownMethodError(t *testing.T) {
	err := NewUnknownMethodError("random_forest", []string{"xgboost", "linear_regression"})
	assert.Equal(t, `biascorrect: unknown method "random_forest" (supported: xgboost, linear_regression)`, err.Error())

	var unknownErr *UnknownMethodError
	require.True(t, As(err, &unknownErr))
	assert.Equal(t, "random_forest", unknownErr.Method)
}

func TestNewInvalidFractionError(t *testing.T) {
	err := NewInvalidFractionError(1.5, 0)
	assert.Contains(t, err.Error(), "open interval (0, 1)")

	err = NewInvalidFractionError(0.9, 2)
	assert.Contains(t, err.Error(), "with 2 rows")

	var fracErr *InvalidFractionError
	require.True(t, As(err, &fracErr))
	assert.Equal(t, 0.9, fracErr.Fraction)
	assert.Equal(t, 2, fracErr.NRows)
}

func TestNotFittedError(t *testing.T) {
	err := NewNotFittedError("LinearRegression", "Predict")
	assert.Equal(t, "biascorrect: LinearRegression: this model is not fitted yet. Call Fit() before using Predict()", err.Error())
}

func TestMarshalZerologObject(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	logger.Error().EmbedObject(&SchemaMismatchError{
		Op:       "Transform",
		Expected: []string{"a"},
		Got:      []string{"b"},
	}).Msg("schema")

	out := buf.String()
	assert.Contains(t, out, `"type":"SchemaMismatchError"`)
	assert.Contains(t, out, `"expected":["a"]`)
}

func TestWarn_UsesConfiguredHandler(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	t.Cleanup(func() { SetWarningHandler(func(error) {}) })

	Warn(NewUndefinedMetricWarning("r2", "constant y_true", 0))

	require.Len(t, got, 1)
	assert.True(t, strings.HasPrefix(got[0].Error(), "'r2' is ill-defined"))
}

func TestWarn_PrefersZerologFunc(t *testing.T) {
	var handled, zerologged int
	SetWarningHandler(func(error) { handled++ })
	SetZerologWarnFunc(func(error) { zerologged++ })
	t.Cleanup(func() {
		SetZerologWarnFunc(nil)
		SetWarningHandler(func(error) {})
	})

	Warn(New("w"))

	assert.Equal(t, 0, handled)
	assert.Equal(t, 1, zerologged)
}

func TestCheckNumericalStability(t *testing.T) {
	assert.NoError(t, CheckNumericalStability("ok", []float64{1, 2, 3}, 0))

	err := CheckNumericalStability("obs", []float64{1, math.NaN(), 3}, -1)
	var numErr *NumericalInstabilityError
	require.True(t, As(err, &numErr))
	assert.Equal(t, 1, numErr.Iteration)
	assert.Equal(t, "obs", numErr.Operation)
}

func TestCheckMatrix(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 2, 3, math.Inf(-1)})
	err := CheckMatrix("X", m)

	var numErr *NumericalInstabilityError
	require.True(t, As(err, &numErr))
	assert.Equal(t, 1, numErr.Iteration)

	assert.NoError(t, CheckMatrix("X", mat.NewDense(1, 2, []float64{0, 1})))
}
