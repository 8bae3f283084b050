package backend

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/YuminosukeSato/biascorrect/pkg/errors"
)

// ObjectiveSquaredError は唯一サポートする損失関数
const ObjectiveSquaredError = "reg:squarederror"

// Config は手法ごとの設定。XGBoostConfig と LinearRegressionConfig のみが実装する。
type Config interface {
	Method() Method
	Validate() error
	sealed()
}

// XGBoostConfig は勾配ブースティングの設定
type XGBoostConfig struct {
	Objective    string
	NEstimators  int
	LearningRate float64
	MaxDepth     int
	Seed         *uint64 // nil なら実行ごとに異なる乱数
}

// DefaultXGBoostConfig は既定の設定を返す
func DefaultXGBoostConfig() XGBoostConfig {
	return XGBoostConfig{
		Objective:    ObjectiveSquaredError,
		NEstimators:  100,
		LearningRate: 0.1,
		MaxDepth:     3,
	}
}

func (XGBoostConfig) Method() Method { return MethodXGBoost }
func (XGBoostConfig) sealed()        {}

// Validate は設定値を検証し、問題があれば ConfigError を返す
func (c XGBoostConfig) Validate() error {
	const m = string(MethodXGBoost)
	switch {
	case c.Objective != ObjectiveSquaredError:
		return errors.NewConfigError(m, "objective",
			fmt.Sprintf("unsupported objective %q (only %q)", c.Objective, ObjectiveSquaredError))
	case c.NEstimators < 1:
		return errors.NewConfigError(m, "n_estimators", fmt.Sprintf("must be >= 1, got %d", c.NEstimators))
	case !(c.LearningRate > 0) || math.IsInf(c.LearningRate, 0):
		return errors.NewConfigError(m, "learning_rate", fmt.Sprintf("must be a positive number, got %v", c.LearningRate))
	case c.MaxDepth < 1:
		return errors.NewConfigError(m, "max_depth", fmt.Sprintf("must be >= 1, got %d", c.MaxDepth))
	}
	return nil
}

// LinearRegressionConfig は線形回帰の設定。必須項目はない。
type LinearRegressionConfig struct{}

func (LinearRegressionConfig) Method() Method  { return MethodLinearRegression }
func (LinearRegressionConfig) Validate() error { return nil }
func (LinearRegressionConfig) sealed()         {}

// DefaultConfig は手法の既定設定を返す
func DefaultConfig(method Method) (Config, error) {
	switch method {
	case MethodXGBoost:
		return DefaultXGBoostConfig(), nil
	case MethodLinearRegression:
		return LinearRegressionConfig{}, nil
	default:
		return nil, errors.NewUnknownMethodError(string(method), SupportedMethods())
	}
}

var xgboostRequired = []string{"objective", "n_estimators", "learning_rate", "max_depth"}

// ConfigFromMap は文字列キーの設定から Config を組み立てる。
// YAML や JSON から読み込んだ値を想定し、整数は int/int64/uint64 または
// 小数部のない float64 を受け付ける。
//
// xgboost では objective, n_estimators, learning_rate, max_depth が必須で、
// random_state は任意。linear_regression はキーを持たない。
func ConfigFromMap(method Method, params map[string]any) (Config, error) {
	switch method {
	case MethodXGBoost:
		return xgboostFromMap(params)
	case MethodLinearRegression:
		if len(params) > 0 {
			return nil, errors.NewConfigError(string(method), strings.Join(sortedKeys(params), ","),
				"linear_regression takes no parameters")
		}
		return LinearRegressionConfig{}, nil
	default:
		return nil, errors.NewUnknownMethodError(string(method), SupportedMethods())
	}
}

func xgboostFromMap(params map[string]any) (Config, error) {
	const m = string(MethodXGBoost)
	for _, key := range xgboostRequired {
		if _, ok := params[key]; !ok {
			return nil, errors.NewConfigError(m, key, "missing required key")
		}
	}

	var cfg XGBoostConfig
	for _, key := range sortedKeys(params) {
		value := params[key]
		var err error
		switch key {
		case "objective":
			s, ok := value.(string)
			if !ok {
				err = typeError(m, key, "string", value)
			}
			cfg.Objective = s
		case "n_estimators":
			cfg.NEstimators, err = toInt(m, key, value)
		case "learning_rate":
			cfg.LearningRate, err = toFloat(m, key, value)
		case "max_depth":
			cfg.MaxDepth, err = toInt(m, key, value)
		case "random_state":
			if value == nil {
				continue
			}
			var seed int
			seed, err = toInt(m, key, value)
			if err == nil && seed < 0 {
				err = errors.NewConfigError(m, key, fmt.Sprintf("must be >= 0, got %d", seed))
			}
			s := uint64(seed)
			cfg.Seed = &s
		default:
			err = errors.NewConfigError(m, key, "unknown key")
		}
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func sortedKeys(params map[string]any) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func typeError(method, key, want string, value any) error {
	return errors.NewConfigError(method, key, fmt.Sprintf("expected %s, got %T", want, value))
}

func toInt(method, key string, value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		if v < math.MinInt || v > math.MaxInt {
			return 0, rangeError(method, key, value)
		}
		return int(v), nil
	case uint64:
		if v > math.MaxInt {
			return 0, rangeError(method, key, value)
		}
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			break
		}
		// float64(math.MaxInt) は 2^63 に丸められるため上限は未満で比較する
		if v < float64(math.MinInt) || v >= float64(math.MaxInt) {
			return 0, rangeError(method, key, value)
		}
		return int(v), nil
	}
	return 0, typeError(method, key, "integer", value)
}

func rangeError(method, key string, value any) error {
	return errors.NewConfigError(method, key, fmt.Sprintf("integer %v out of range", value))
}

func toFloat(method, key string, value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return 0, typeError(method, key, "number", value)
}
