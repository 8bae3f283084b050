// Package ensemble provides tree ensembles for regression: second-order
// gradient boosting used as the "xgboost" backend and a bootstrap random
// forest used to rank feature importance.
package ensemble

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/biascorrect/core/model"
	"github.com/YuminosukeSato/biascorrect/pkg/errors"
	"github.com/YuminosukeSato/biascorrect/pkg/log"
	"github.com/YuminosukeSato/biascorrect/tree"
)

// lossLogInterval is how often (in boosting rounds) training loss is logged.
const lossLogInterval = 10

// GradientBoostingRegressor はXGBoost方式の二次勾配ブースティング回帰モデル
//
// 損失は二乗誤差（勾配 = 予測 - 観測, ヘシアン = 1）。初期値は目的変数の平均、
// 各ラウンドの木の葉の値には学習率を掛けて加算します。
type GradientBoostingRegressor struct {
	model.StateManager

	NEstimators    int
	LearningRate   float64
	MaxDepth       int
	Lambda         float64 // 葉の重みに対するL2正則化
	MinChildWeight float64
	Subsample      float64 // 各ラウンドで使う行の割合 (0, 1]
	Seed           *uint64 // Subsample < 1 のときの乱数シード。nil なら毎回異なる

	BaseScore float64
	Trees     []*tree.Tree
	Gains     []float64 // 特徴量ごとの分割利得の合計

	logger log.Logger
}

// GBOption は GradientBoostingRegressor の設定オプション
type GBOption func(*GradientBoostingRegressor)

// WithNEstimators はブースティングのラウンド数を設定する
func WithNEstimators(n int) GBOption {
	return func(gb *GradientBoostingRegressor) { gb.NEstimators = n }
}

// WithLearningRate は学習率（縮小率）を設定する
func WithLearningRate(lr float64) GBOption {
	return func(gb *GradientBoostingRegressor) { gb.LearningRate = lr }
}

// WithMaxDepth は各木の最大深さを設定する
func WithMaxDepth(depth int) GBOption {
	return func(gb *GradientBoostingRegressor) { gb.MaxDepth = depth }
}

// WithLambda はL2正則化の強さを設定する
func WithLambda(lambda float64) GBOption {
	return func(gb *GradientBoostingRegressor) { gb.Lambda = lambda }
}

// WithMinChildWeight は子ノードに必要なヘシアン合計の最小値を設定する
func WithMinChildWeight(w float64) GBOption {
	return func(gb *GradientBoostingRegressor) { gb.MinChildWeight = w }
}

// WithSubsample は行サンプリングの割合を設定する
func WithSubsample(ratio float64) GBOption {
	return func(gb *GradientBoostingRegressor) { gb.Subsample = ratio }
}

// WithRandomState は乱数シードを設定する
func WithRandomState(seed uint64) GBOption {
	return func(gb *GradientBoostingRegressor) { gb.Seed = &seed }
}

// WithLogger はロガーを設定する
func WithLogger(logger log.Logger) GBOption {
	return func(gb *GradientBoostingRegressor) { gb.logger = logger }
}

// NewGradientBoostingRegressor は新しいモデルを作成する。
// デフォルトは XGBoost と同じ 100 ラウンド, 学習率 0.1, 深さ 3, λ=1, min_child_weight=1。
//
// 使用例:
//
//	gb := ensemble.NewGradientBoostingRegressor(
//	    ensemble.WithNEstimators(200),
//	    ensemble.WithMaxDepth(4),
//	)
//	err := gb.Fit(X, y)
//	pred, err := gb.Predict(X)
func NewGradientBoostingRegressor(opts ...GBOption) *GradientBoostingRegressor {
	gb := &GradientBoostingRegressor{
		NEstimators:    100,
		LearningRate:   0.1,
		MaxDepth:       3,
		Lambda:         1,
		MinChildWeight: 1,
		Subsample:      1,
	}
	for _, opt := range opts {
		opt(gb)
	}
	return gb
}

func (gb *GradientBoostingRegressor) getLogger() log.Logger {
	if gb.logger == nil {
		gb.logger = log.GetLoggerWithName("ensemble.GradientBoostingRegressor")
	}
	return gb.logger
}

func (gb *GradientBoostingRegressor) validate() error {
	switch {
	case gb.NEstimators < 1:
		return errors.NewValidationError("n_estimators", "must be >= 1", gb.NEstimators)
	case gb.LearningRate <= 0:
		return errors.NewValidationError("learning_rate", "must be > 0", gb.LearningRate)
	case gb.MaxDepth < 1:
		return errors.NewValidationError("max_depth", "must be >= 1", gb.MaxDepth)
	case gb.Lambda < 0:
		return errors.NewValidationError("lambda", "must be >= 0", gb.Lambda)
	case gb.Subsample <= 0 || gb.Subsample > 1:
		return errors.NewValidationError("subsample", "must be in (0, 1]", gb.Subsample)
	}
	return nil
}

// Fit はモデルを学習する
//
// パラメータ:
//   - X: 学習データ (n_samples × n_features)
//   - y: 目的変数 (長さ n_samples)
func (gb *GradientBoostingRegressor) Fit(X mat.Matrix, y []float64) (err error) {
	defer errors.Recover(&err, "GradientBoostingRegressor.Fit")

	if err := gb.validate(); err != nil {
		return err
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("GradientBoostingRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if len(y) != r {
		return errors.NewDimensionError("GradientBoostingRegressor.Fit", r, len(y), 0)
	}

	grower := tree.NewGrower(X, tree.Params{
		MaxDepth:       gb.MaxDepth,
		Lambda:         gb.Lambda,
		MinChildWeight: gb.MinChildWeight,
	})

	gb.BaseScore = stat.Mean(y, nil)
	gb.Trees = make([]*tree.Tree, 0, gb.NEstimators)
	gb.Gains = make([]float64, c)

	pred := make([]float64, r)
	for i := range pred {
		pred[i] = gb.BaseScore
	}
	grad := make([]float64, r)
	hess := make([]float64, r)
	for i := range hess {
		hess[i] = 1
	}

	var rng *rand.Rand
	if gb.Subsample < 1 {
		rng = newRand(gb.Seed)
	}
	all := make([]int, r)
	for i := range all {
		all[i] = i
	}

	rowBuf := make([]float64, c)
	for iter := 0; iter < gb.NEstimators; iter++ {
		for i := range grad {
			grad[i] = pred[i] - y[i]
		}

		rows := all
		if rng != nil {
			rows = subsample(rng, r, gb.Subsample)
		}

		t := grower.Grow(grad, hess, rows)
		for k := range t.Nodes {
			t.Nodes[k].LeafValue *= gb.LearningRate
		}
		for j, g := range t.GainImportance() {
			gb.Gains[j] += g
		}
		gb.Trees = append(gb.Trees, t)

		for i := range pred {
			mat.Row(rowBuf, i, X)
			pred[i] += t.Predict(rowBuf)
		}

		if (iter+1)%lossLogInterval == 0 {
			gb.getLogger().Debug("Boosting progress",
				log.IterationKey, iter+1,
				log.LossKey, meanSquaredError(pred, y),
			)
		}
	}

	gb.SetFitted(c, r)
	gb.getLogger().Debug("Gradient boosting fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, r,
		log.FeaturesKey, c,
		log.EstimatorsKey, gb.NEstimators,
	)
	return nil
}

// Predict は各行の予測値を返す
func (gb *GradientBoostingRegressor) Predict(X mat.Matrix) ([]float64, error) {
	if err := gb.RequireFitted("GradientBoostingRegressor", "Predict"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := gb.RequireFeatures("GradientBoostingRegressor.Predict", c); err != nil {
		return nil, err
	}

	out := make([]float64, r)
	row := make([]float64, c)
	for i := range out {
		mat.Row(row, i, X)
		v := gb.BaseScore
		for _, t := range gb.Trees {
			v += t.Predict(row)
		}
		out[i] = v
	}
	return out, nil
}

// FeatureImportances は分割利得の合計を正規化した重要度を返す
func (gb *GradientBoostingRegressor) FeatureImportances() ([]float64, error) {
	if err := gb.RequireFitted("GradientBoostingRegressor", "FeatureImportances"); err != nil {
		return nil, err
	}
	return tree.Normalize(append([]float64(nil), gb.Gains...)), nil
}

// GetParams はハイパーパラメータを返す
func (gb *GradientBoostingRegressor) GetParams() map[string]interface{} {
	params := map[string]interface{}{
		"n_estimators":     gb.NEstimators,
		"learning_rate":    gb.LearningRate,
		"max_depth":        gb.MaxDepth,
		"reg_lambda":       gb.Lambda,
		"min_child_weight": gb.MinChildWeight,
		"subsample":        gb.Subsample,
	}
	if gb.Seed != nil {
		params["random_state"] = *gb.Seed
	}
	return params
}

// String はモデルの文字列表現を返す
func (gb *GradientBoostingRegressor) String() string {
	return fmt.Sprintf("GradientBoostingRegressor(n_estimators=%d, learning_rate=%g, max_depth=%d)",
		gb.NEstimators, gb.LearningRate, gb.MaxDepth)
}

func meanSquaredError(pred, y []float64) float64 {
	sum := 0.0
	for i := range pred {
		d := pred[i] - y[i]
		sum += d * d
	}
	return sum / float64(len(pred))
}
