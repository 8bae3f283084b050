package errors

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// CheckNumericalStability checks if values contain NaN or Inf
// and returns an error if numerical instability is detected.
// The iteration argument is reported as the index of the first offending value
// when the caller passes -1.
func CheckNumericalStability(operation string, values []float64, iteration int) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			if iteration < 0 {
				iteration = i
			}
			return NewNumericalInstabilityError(operation, []float64{v}, iteration)
		}
	}
	return nil
}

// CheckMatrix checks all values in a matrix for numerical instability.
// Iteration is set to the row of the first offending value.
func CheckMatrix(operation string, m mat.Matrix) error {
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		var unstable []float64
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				unstable = append(unstable, v)
			}
		}
		if len(unstable) > 0 {
			return NewNumericalInstabilityError(operation, unstable, i)
		}
	}
	return nil
}
