package backend

import (
	"encoding/gob"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/biascorrect/core/model"
	"github.com/YuminosukeSato/biascorrect/ensemble"
	"github.com/YuminosukeSato/biascorrect/linear"
	"github.com/YuminosukeSato/biascorrect/pkg/errors"
	"github.com/YuminosukeSato/biascorrect/pkg/log"
)

func init() {
	// 成果物の TrainedModel フィールドを gob で保存するため具象型を登録する
	gob.Register(&XGBoostModel{})
	gob.Register(&LinearModel{})
}

// TrainedModel は学習済みの補正モデル。学習後は読み取り専用。
type TrainedModel interface {
	// Predict は X の各行に対する補正後の値を返す。
	// X の列数が学習時と異なる場合は DimensionError。
	Predict(X mat.Matrix) ([]float64, error)
	Method() Method
}

// Backend は設定済みの学習手法
type Backend interface {
	Method() Method
	Train(X mat.Matrix, y []float64) (TrainedModel, error)
}

// Option は Backend の設定オプション
type Option func(*options)

type options struct {
	logger log.Logger
}

// WithLogger はロガーを設定する
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New は設定に対応する Backend を作成する。設定は作成時に検証される。
func New(cfg Config, opts ...Option) (Backend, error) {
	if cfg == nil {
		return nil, errors.NewConfigError("", "method", "config must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.GetLoggerWithName("backend")
	}
	o.logger = o.logger.With(log.ModelNameKey, string(cfg.Method()))

	switch c := cfg.(type) {
	case XGBoostConfig:
		return &xgboostBackend{cfg: c, logger: o.logger}, nil
	case LinearRegressionConfig:
		return &linearBackend{logger: o.logger}, nil
	default:
		return nil, errors.NewUnknownMethodError(string(cfg.Method()), SupportedMethods())
	}
}

func checkTrainingData(op string, X mat.Matrix, y []float64) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if len(y) != r {
		return errors.NewDimensionError(op, r, len(y), 0)
	}
	return nil
}

// fit は回帰モデルを学習し、ハイパーパラメータと所要時間をログに残す
func fit(logger log.Logger, op string, reg model.Regressor, X mat.Matrix, y []float64) error {
	if err := checkTrainingData(op, X, y); err != nil {
		return err
	}

	start := time.Now()
	if err := reg.Fit(X, y); err != nil {
		return err
	}

	r, c := X.Dims()
	fields := []any{
		log.OperationKey, log.OperationFit,
		log.SamplesKey, r,
		log.FeaturesKey, c,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	}
	if pg, ok := reg.(model.ParameterGetter); ok {
		fields = append(fields, "hyperparams", pg.GetParams())
	}
	if sc, ok := reg.(model.Scorer); ok {
		// 学習データ上の R²。目的変数が定数なら定義できないので記録しない
		if r2, err := sc.Score(X, y); err == nil {
			fields = append(fields, "metrics.train_r2", r2)
		}
	}
	logger.Info("Backend trained", fields...)
	return nil
}

type xgboostBackend struct {
	cfg    XGBoostConfig
	logger log.Logger
}

func (b *xgboostBackend) Method() Method { return MethodXGBoost }

func (b *xgboostBackend) Train(X mat.Matrix, y []float64) (_ TrainedModel, err error) {
	defer errors.Recover(&err, "backend.xgboost.Train")

	opts := []ensemble.GBOption{
		ensemble.WithNEstimators(b.cfg.NEstimators),
		ensemble.WithLearningRate(b.cfg.LearningRate),
		ensemble.WithMaxDepth(b.cfg.MaxDepth),
		ensemble.WithLogger(b.logger),
	}
	if b.cfg.Seed != nil {
		opts = append(opts, ensemble.WithRandomState(*b.cfg.Seed))
	}
	gb := ensemble.NewGradientBoostingRegressor(opts...)
	if err := fit(b.logger, "backend.xgboost.Train", gb, X, y); err != nil {
		return nil, err
	}
	return &XGBoostModel{Model: gb}, nil
}

type linearBackend struct {
	logger log.Logger
}

func (b *linearBackend) Method() Method { return MethodLinearRegression }

func (b *linearBackend) Train(X mat.Matrix, y []float64) (_ TrainedModel, err error) {
	defer errors.Recover(&err, "backend.linear_regression.Train")

	lr := linear.NewLinearRegression()
	if err := fit(b.logger, "backend.linear_regression.Train", lr, X, y); err != nil {
		return nil, err
	}
	return &LinearModel{Model: lr}, nil
}

// XGBoostModel は勾配ブースティングで学習したモデル
type XGBoostModel struct {
	Model *ensemble.GradientBoostingRegressor
}

func (m *XGBoostModel) Method() Method { return MethodXGBoost }

func (m *XGBoostModel) Predict(X mat.Matrix) ([]float64, error) {
	return m.Model.Predict(X)
}

// FeatureImportances は分割利得に基づく重要度を返す
func (m *XGBoostModel) FeatureImportances() ([]float64, error) {
	return m.Model.FeatureImportances()
}

// LinearModel は線形回帰で学習したモデル
type LinearModel struct {
	Model *linear.LinearRegression
}

func (m *LinearModel) Method() Method { return MethodLinearRegression }

func (m *LinearModel) Predict(X mat.Matrix) ([]float64, error) {
	return m.Model.Predict(X)
}

// Coefficients は学習した係数を返す
func (m *LinearModel) Coefficients() []float64 { return m.Model.Coefficients() }

// Intercept は学習した切片を返す
func (m *LinearModel) Intercept() float64 { return m.Model.Intercept() }
