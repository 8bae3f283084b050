// Package linear は最小二乗法による線形回帰を提供します。
package linear

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/biascorrect/core/model"
	"github.com/YuminosukeSato/biascorrect/core/parallel"
	"github.com/YuminosukeSato/biascorrect/pkg/errors"
)

const (
	// 並列処理の閾値（この値以下の行数では逐次処理を使用）
	parallelThreshold = 1000

	machineEpsilon = 0x1p-52
)

// LinearRegression は切片付きの通常最小二乗法による線形回帰モデル
//
// 中心化したデータに対して特異値分解で最小二乗解を求めるため、
// ランク落ちした入力でも最小ノルム解が得られます（scikit-learn と同じ挙動）。
type LinearRegression struct {
	model.StateManager

	FitIntercept bool
	// RCond は有効とみなす特異値の最大特異値に対する比。0 以下なら eps*max(n, p)
	RCond float64

	Coef []float64 // 重み（係数）
	Bias float64   // 切片
	Rank int       // 中心化した計画行列の実効ランク
}

// Option は LinearRegression の設定オプション
type Option func(*LinearRegression)

// WithFitIntercept は切片を推定するかどうかを設定する
func WithFitIntercept(fit bool) Option {
	return func(lr *LinearRegression) {
		lr.FitIntercept = fit
	}
}

// WithRCond は特異値の打ち切り比を設定する
func WithRCond(rcond float64) Option {
	return func(lr *LinearRegression) {
		lr.RCond = rcond
	}
}

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{FitIntercept: true}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// Fit はモデルを訓練データで学習させる
//
// パラメータ:
//   - X: 学習データ (n_samples × n_features)
//   - y: 目的変数 (長さ n_samples)
//
// 戻り値:
//   - error: 空データ・次元不一致・分解失敗の場合
func (lr *LinearRegression) Fit(X mat.Matrix, y []float64) (err error) {
	defer errors.Recover(&err, "LinearRegression.Fit")

	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if len(y) != r {
		return errors.NewDimensionError("LinearRegression.Fit", r, len(y), 0)
	}

	// 列平均と目的変数の平均
	xMean := make([]float64, c)
	yMean := 0.0
	if lr.FitIntercept {
		col := make([]float64, r)
		for j := 0; j < c; j++ {
			xMean[j] = stat.Mean(mat.Col(col, j, X), nil)
		}
		yMean = stat.Mean(y, nil)
	}

	// 中心化
	Xc := mat.NewDense(r, c, nil)
	yc := mat.NewVecDense(r, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < c; j++ {
				Xc.Set(i, j, X.At(i, j)-xMean[j])
			}
			yc.SetVec(i, y[i]-yMean)
		}
	})

	var svd mat.SVD
	if ok := svd.Factorize(Xc, mat.SVDThin); !ok {
		return errors.NewModelError("LinearRegression.Fit", "SVD did not converge", errors.ErrSingularMatrix)
	}

	rcond := lr.RCond
	if rcond <= 0 {
		rcond = machineEpsilon * float64(max(r, c))
	}

	coef := make([]float64, c)
	rank := svd.Rank(rcond)
	if rank > 0 {
		w := mat.NewVecDense(c, nil)
		svd.SolveVecTo(w, yc, rank)
		copy(coef, w.RawVector().Data)
	}

	lr.Coef = coef
	lr.Rank = rank
	lr.Bias = yMean - mat.Dot(mat.NewVecDense(c, xMean), mat.NewVecDense(c, coef))
	if err := errors.CheckNumericalStability("LinearRegression.Fit", append(coef, lr.Bias), -1); err != nil {
		return err
	}

	lr.SetFitted(c, r)
	return nil
}

// Predict は入力データに対する予測を行う: y = X * weights + intercept
func (lr *LinearRegression) Predict(X mat.Matrix) ([]float64, error) {
	if err := lr.RequireFitted("LinearRegression", "Predict"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := lr.RequireFeatures("LinearRegression.Predict", c); err != nil {
		return nil, err
	}

	out := mat.NewVecDense(r, nil)
	out.MulVec(X, mat.NewVecDense(c, lr.Coef))
	pred := make([]float64, r)
	for i := range pred {
		pred[i] = out.AtVec(i) + lr.Bias
	}
	return pred, nil
}

// Coefficients は学習された重み（係数）のコピーを返す
func (lr *LinearRegression) Coefficients() []float64 {
	if lr.Coef == nil {
		return nil
	}
	return append([]float64(nil), lr.Coef...)
}

// Intercept は学習された切片を返す
func (lr *LinearRegression) Intercept() float64 {
	if !lr.IsFitted() {
		return 0
	}
	return lr.Bias
}

// Score はモデルの決定係数（R²）を計算する
func (lr *LinearRegression) Score(X mat.Matrix, y []float64) (float64, error) {
	pred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	if len(y) != len(pred) {
		return 0, errors.NewDimensionError("LinearRegression.Score", len(pred), len(y), 0)
	}
	if len(y) < 2 || stat.Variance(y, nil) == 0 {
		return 0, errors.NewValueError("LinearRegression.Score", "total sum of squares is zero")
	}
	return stat.RSquaredFrom(pred, y, nil), nil
}

// GetParams はハイパーパラメータを返す
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"fit_intercept": lr.FitIntercept,
		"rcond":         lr.RCond,
	}
}

// String はモデルの文字列表現を返す
func (lr *LinearRegression) String() string {
	return fmt.Sprintf("LinearRegression(fit_intercept=%t)", lr.FitIntercept)
}
