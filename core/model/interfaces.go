// Package model は学習器の共通インターフェースと学習状態の管理、
// 学習済みモデルの永続化を提供します。
package model

import "gonum.org/v1/gonum/mat"

// Regressor は単一目的変数の回帰モデルのインターフェース
type Regressor interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X mat.Matrix, y []float64) error

	// Predict は入力データの各行に対する予測値を返す
	Predict(X mat.Matrix) ([]float64, error)
}

// Scorer は決定係数を計算できるモデルのインターフェース
type Scorer interface {
	Score(X mat.Matrix, y []float64) (float64, error)
}

// FeatureImportancer は学習後に特徴量重要度を返せるモデルのインターフェース
type FeatureImportancer interface {
	// FeatureImportances は合計が1になるよう正規化された重要度を返す
	FeatureImportances() ([]float64, error)
}

// ParameterGetter はハイパーパラメータを公開するモデルのインターフェース
type ParameterGetter interface {
	GetParams() map[string]interface{}
}
