// Package backend selects and trains the regression model that learns the
// forecast correction.
//
// 2つの手法をサポートします:
//   - "xgboost": 二次勾配ブースティング木 (ensemble.GradientBoostingRegressor)
//   - "linear_regression": 切片付き最小二乗法 (linear.LinearRegression)
package backend

import (
	"github.com/YuminosukeSato/biascorrect/pkg/errors"
)

// Method は学習手法の名前
type Method string

const (
	// MethodXGBoost は勾配ブースティング木
	MethodXGBoost Method = "xgboost"
	// MethodLinearRegression は線形回帰
	MethodLinearRegression Method = "linear_regression"
)

// SupportedMethods は受け付ける手法名の一覧
func SupportedMethods() []string {
	return []string{string(MethodXGBoost), string(MethodLinearRegression)}
}

// ParseMethod は文字列を Method に変換する。
// 未知の名前は UnknownMethodError になる。
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodXGBoost, MethodLinearRegression:
		return m, nil
	default:
		return "", errors.NewUnknownMethodError(s, SupportedMethods())
	}
}

func (m Method) String() string { return string(m) }
