// Package preprocessing はスケーリング処理を提供します。
// スケーラーは学習データにのみ Fit し、得られた ScalerState をテストデータや
// 推論時の新しいデータに適用することで、データリークを防ぎます。
package preprocessing

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/biascorrect/dataset"
	"github.com/YuminosukeSato/biascorrect/pkg/errors"
	"github.com/YuminosukeSato/biascorrect/pkg/log"
)

// ScalerState は学習済みの Min-Max スケーリングパラメータ
//
// Fit 後は変更されないため、複数のゴルーチンから同時に Transform /
// InverseTransform を呼び出しても安全です。フィールドは gob で永続化するために公開しています。
type ScalerState struct {
	// Names は Fit 時の列名（順序を含めて完全一致が必要）
	Names []string

	// Min は各列の最小値
	Min []float64

	// Max は各列の最大値
	Max []float64
}

// MinMaxScaler は列ごとに (x - min) / (max - min) で [0, 1] に変換するスケーラー
type MinMaxScaler struct {
	logger log.Logger
}

// ScalerOption は MinMaxScaler の設定オプション
type ScalerOption func(*MinMaxScaler)

// WithLogger はスケーラーのロガーを設定する
func WithLogger(logger log.Logger) ScalerOption {
	return func(s *MinMaxScaler) {
		s.logger = logger
	}
}

// NewMinMaxScaler は新しいMinMaxScalerを作成する
//
// 使用例:
//
//	state, xTrainScaled, err := preprocessing.NewMinMaxScaler().Fit(xTrain)
//	xTestScaled, err := state.Transform(xTest)
func NewMinMaxScaler(opts ...ScalerOption) *MinMaxScaler {
	s := &MinMaxScaler{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.GetLoggerWithName("preprocessing.MinMaxScaler")
	}
	return s
}

// Fit は各列の最小値・最大値を計算し、学習データを変換した結果と共に返す
//
// パラメータ:
//   - m: 学習データ (n_samples × n_features)
//
// 戻り値:
//   - *ScalerState: 学習済みの状態
//   - *dataset.FeatureMatrix: スケーリング済みの学習データ
//   - error: 空のデータの場合
func (s *MinMaxScaler) Fit(m *dataset.FeatureMatrix) (*ScalerState, *dataset.FeatureMatrix, error) {
	if m == nil {
		return nil, nil, errors.NewModelError("MinMaxScaler.Fit", "empty data", errors.ErrEmptyData)
	}
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, nil, errors.NewModelError("MinMaxScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	state := &ScalerState{
		Names: m.Names(),
		Min:   make([]float64, c),
		Max:   make([]float64, c),
	}
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, m.Raw())
		state.Min[j] = floats.Min(col)
		state.Max[j] = floats.Max(col)
	}

	scaled, err := state.Transform(m)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Debug("Scaler fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, r,
		log.FeaturesKey, c,
	)
	return state, scaled, nil
}

// scale は列 j の変換幅を返す。最大値と最小値が等しい列は1として扱う
func (st *ScalerState) scale(j int) float64 {
	if rng := st.Max[j] - st.Min[j]; rng != 0 {
		return rng
	}
	return 1
}

func (st *ScalerState) checkSchema(op string, m *dataset.FeatureMatrix) error {
	if m == nil {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if names := m.Names(); !slices.Equal(names, st.Names) {
		return errors.NewSchemaMismatchError(op, st.Names, names)
	}
	return nil
}

// Transform は学習済みのパラメータでデータをスケーリングする。
// 範囲外の値はクリップしないため、結果は [0, 1] を超えることがある。
func (st *ScalerState) Transform(m *dataset.FeatureMatrix) (*dataset.FeatureMatrix, error) {
	if err := st.checkSchema("ScalerState.Transform", m); err != nil {
		return nil, err
	}
	return st.apply(m, func(x float64, j int) float64 {
		return (x - st.Min[j]) / st.scale(j)
	})
}

// InverseTransform はスケーリングされたデータを元の範囲に戻す
func (st *ScalerState) InverseTransform(m *dataset.FeatureMatrix) (*dataset.FeatureMatrix, error) {
	if err := st.checkSchema("ScalerState.InverseTransform", m); err != nil {
		return nil, err
	}
	return st.apply(m, func(x float64, j int) float64 {
		return x*st.scale(j) + st.Min[j]
	})
}

// InverseColumn は指定した列だけを元の範囲に戻して返す
//
// 使用例:
//
//	fcstRaw, err := state.InverseColumn(xTestScaled, dataset.ForecastColumn)
func (st *ScalerState) InverseColumn(m *dataset.FeatureMatrix, name string) ([]float64, error) {
	if err := st.checkSchema("ScalerState.InverseColumn", m); err != nil {
		return nil, err
	}
	j := slices.Index(st.Names, name)
	if j < 0 {
		return nil, errors.NewSchemaMismatchError("ScalerState.InverseColumn", st.Names, []string{name})
	}
	col, err := m.Column(name)
	if err != nil {
		return nil, err
	}
	scale := st.scale(j)
	for i := range col {
		col[i] = col[i]*scale + st.Min[j]
	}
	return col, nil
}

func (st *ScalerState) apply(m *dataset.FeatureMatrix, fn func(x float64, j int) float64) (*dataset.FeatureMatrix, error) {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return fn(v, j)
	}, m.Raw())
	return dataset.NewFeatureMatrix(st.Names, out)
}

// String はスケーラー状態の文字列表現を返す
func (st *ScalerState) String() string {
	return fmt.Sprintf("ScalerState(columns=%v)", st.Names)
}
