// Package metrics は回帰モデルの評価指標を提供します。
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/biascorrect/pkg/errors"
)

func checkPair(op string, yTrue, yPred *mat.VecDense) error {
	n := yTrue.Len()
	if yPred.Len() != n {
		return errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	if n == 0 {
		return errors.NewDimensionError(op, 1, 0, 0)
	}
	return nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	if err := checkPair("MSE", yTrue, yPred); err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var diff mat.VecDense
	diff.SubVec(yTrue, yPred)
	return mat.Dot(&diff, &diff) / float64(yTrue.Len()), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	if err := checkPair("MAE", yTrue, yPred); err != nil {
		return 0, err
	}

	// MAE = (1/n) * Σ|yTrue - yPred|
	var diff mat.VecDense
	diff.SubVec(yTrue, yPred)
	return mat.Norm(&diff, 1) / float64(yTrue.Len()), nil
}

// R2Score は決定係数（R²）を計算する。
// yTrue の分散が0の場合は定義できないため ValueError を返す。
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	if err := checkPair("R2Score", yTrue, yPred); err != nil {
		return 0, err
	}

	n := yTrue.Len()
	yMean := mat.Sum(yTrue) / float64(n)

	// 全変動（TSS）と残差変動（RSS）
	var tss, rss float64
	for i := 0; i < n; i++ {
		t, p := yTrue.AtVec(i), yPred.AtVec(i)
		tss += (t - yMean) * (t - yMean)
		rss += (t - p) * (t - p)
	}
	if tss == 0 {
		return 0, errors.NewValueError("R2Score", "total sum of squares is zero (no variance in yTrue)")
	}
	return 1 - rss/tss, nil
}

// Metrics は評価指標の組
type Metrics struct {
	RMSE     float64
	RSquared float64
	MAE      float64

	// RSquaredDefined は yTrue に分散があり R² が定義できたかどうか。
	// false の場合 RSquared は代替値（完全一致なら1、それ以外は0）
	RSquaredDefined bool
}

// Evaluate は予測値と観測値から RMSE, R², MAE を計算する
//
// パラメータ:
//   - yPred: 予測値
//   - yTrue: 観測値
//
// 戻り値:
//   - Metrics: 評価指標
//   - error: 長さが異なる、または空の場合 DimensionError
//
// yTrue が定数の場合、R² は未定義のため UndefinedMetricWarning を発行し、
// 代替値を返します。
func Evaluate(yPred, yTrue []float64) (Metrics, error) {
	if len(yPred) != len(yTrue) {
		return Metrics{}, errors.NewDimensionError("metrics.Evaluate", len(yTrue), len(yPred), 0)
	}
	if len(yTrue) == 0 {
		return Metrics{}, errors.NewDimensionError("metrics.Evaluate", 1, 0, 0)
	}

	t := mat.NewVecDense(len(yTrue), append([]float64(nil), yTrue...))
	p := mat.NewVecDense(len(yPred), append([]float64(nil), yPred...))

	rmse, err := RMSE(t, p)
	if err != nil {
		return Metrics{}, err
	}
	mae, err := MAE(t, p)
	if err != nil {
		return Metrics{}, err
	}

	m := Metrics{RMSE: rmse, MAE: mae, RSquaredDefined: true}
	if len(yTrue) > 1 && stat.Variance(yTrue, nil) > 0 {
		m.RSquared, err = R2Score(t, p)
		if err != nil {
			return Metrics{}, err
		}
		return m, nil
	}

	m.RSquaredDefined = false
	if rmse == 0 {
		m.RSquared = 1
	}
	reason := "constant y_true"
	if len(yTrue) < 2 {
		reason = "fewer than two samples"
	}
	errors.Warn(errors.NewUndefinedMetricWarning("r2", reason, m.RSquared))
	return m, nil
}
