package bc

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/biascorrect/backend"
	"github.com/YuminosukeSato/biascorrect/core/model"
	"github.com/YuminosukeSato/biascorrect/dataset"
	"github.com/YuminosukeSato/biascorrect/modelselection"
	"github.com/YuminosukeSato/biascorrect/pkg/errors"
	"github.com/YuminosukeSato/biascorrect/pkg/log"
)

func seed(v uint64) *uint64 { return &v }

func linearConfig() Config {
	cfg := DefaultConfig()
	cfg.Method = backend.MethodLinearRegression
	cfg.Backend = nil
	cfg.Seed = seed(42)
	cfg.ImportanceEstimators = 10
	return cfg
}

// covariateInput は fcst に 3 つの共変量による系統誤差が乗ったデータ
func covariateInput(n int) dataset.Input {
	in := dataset.Input{
		Obs:  make([]float64, n),
		Fcst: make([]float64, n),
		Covariates: dataset.Covariates{
			{Name: "var1", Values: make([]float64, n)},
			{Name: "var2", Values: make([]float64, n)},
			{Name: "var3", Values: make([]float64, n)},
		},
	}
	for i := 0; i < n; i++ {
		v1 := math.Sin(float64(i) / 5)
		v2 := float64(i%7) / 7
		v3 := float64((i*11)%17) / 17
		obs := 10 + 3*math.Cos(float64(i)/9)
		in.Obs[i] = obs
		in.Fcst[i] = obs + 1.5 - 0.8*v1 + 0.4*v2
		in.Covariates[0].Values[i] = v1
		in.Covariates[1].Values[i] = v2
		in.Covariates[2].Values[i] = v3
	}
	return in
}

func TestTrainLinearNoCovariates(t *testing.T) {
	logger, buf := log.NewTestLogger(log.LevelDebug)
	trainer, err := NewTrainer(linearConfig(), WithLogger(logger))
	require.NoError(t, err)

	a, err := trainer.Train(dataset.Input{
		Obs:  []float64{1, 2, 3, 4, 5},
		Fcst: []float64{1.1, 2.1, 2.9, 4.2, 5.1},
	})
	require.NoError(t, err)
	require.NotNil(t, a)

	assert.Equal(t, StageEvaluated, trainer.Stage())
	assert.Less(t, a.Metrics.RMSE, 0.5)
	assert.Equal(t, backend.MethodLinearRegression, a.Method)
	assert.Equal(t, []string{"fcst"}, a.FeatureNames)
	assert.Equal(t, []string{"fcst"}, a.Scaler.Names)
	assert.Contains(t, buf.String(), "Training completed")
}

func TestTrainXGBoostWithCovariates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = seed(7)
	cfg.ImportanceEstimators = 20
	trainer, err := NewTrainer(cfg, WithLogger(log.NewNopLogger()))
	require.NoError(t, err)

	in := covariateInput(300)
	a, err := trainer.Train(in)
	require.NoError(t, err)

	assert.Equal(t, backend.MethodXGBoost, a.Method)
	assert.Equal(t, []string{"var1", "var2", "var3", "fcst"}, a.FeatureNames)
	assert.True(t, a.Metrics.RSquaredDefined)
	assert.Greater(t, a.Metrics.RSquared, 0.8)

	require.Len(t, a.FeatureImportance, 4)
	sum := 0.0
	for _, s := range a.FeatureImportance {
		sum += s.Score
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Equal(t, "fcst", a.FeatureImportance[0].Name)

	report := trainer.Report()
	require.Len(t, report.Input, 2)
	assert.Equal(t, SeriesForecast, report.Input[0].Name)
	assert.Equal(t, SeriesObserved, report.Input[1].Name)
	require.Len(t, report.Correction, 4)
	names := []string{}
	for _, s := range report.Correction {
		names = append(names, s.Name)
		assert.Len(t, s.Values, 60)
	}
	assert.Equal(t, []string{SeriesAfterBC, SeriesBeforeBCScaled, SeriesBeforeBCRaw, SeriesObserved}, names)
}

func TestTrainScalerSeesTrainRowsOnly(t *testing.T) {
	cfg := linearConfig()
	in := covariateInput(100)

	// Run と同じ seed で分割を再現し、全体の極値をテスト側の行に置く
	split, err := modelselection.TrainTestSplit(len(in.Obs), cfg.TestFraction, cfg.Seed)
	require.NoError(t, err)
	hi, lo := split.Test[0], split.Test[1]
	in.Fcst[hi], in.Fcst[lo] = 1e3, -1e3
	in.Covariates[0].Values[hi], in.Covariates[0].Values[lo] = 1e3, -1e3

	a, err := Run(cfg, in, WithLogger(log.NewNopLogger()))
	require.NoError(t, err)

	columns := [][]float64{
		in.Covariates[0].Values,
		in.Covariates[1].Values,
		in.Covariates[2].Values,
		in.Fcst,
	}
	wantMin := make([]float64, len(columns))
	wantMax := make([]float64, len(columns))
	for j, col := range columns {
		wantMin[j], wantMax[j] = math.Inf(1), math.Inf(-1)
		for _, i := range split.Train {
			wantMin[j] = math.Min(wantMin[j], col[i])
			wantMax[j] = math.Max(wantMax[j], col[i])
		}
	}

	require.NotNil(t, a.Scaler)
	assert.Equal(t, []string{"var1", "var2", "var3", "fcst"}, a.Scaler.Names)
	assert.Equal(t, wantMin, a.Scaler.Min)
	assert.Equal(t, wantMax, a.Scaler.Max)
	assert.Less(t, a.Scaler.Max[3], 1e3)
	assert.Greater(t, a.Scaler.Min[3], -1e3)
}

func TestTrainReproducible(t *testing.T) {
	in := covariateInput(80)
	cfg := DefaultConfig()
	cfg.Seed = seed(3)
	cfg.ImportanceEstimators = 5

	first, err := Run(cfg, in, WithLogger(log.NewNopLogger()))
	require.NoError(t, err)
	second, err := Run(cfg, in, WithLogger(log.NewNopLogger()))
	require.NoError(t, err)

	assert.Equal(t, first.Metrics, second.Metrics)
	assert.Equal(t, first.FeatureImportance, second.FeatureImportance)
}

func TestUnknownMethod(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Method = "random_forest_unsupported"
	cfg.Backend = nil

	a, err := Run(cfg, dataset.Input{Obs: []float64{1, 2}, Fcst: []float64{1, 2}})
	assert.Nil(t, a)
	var unknown *errors.UnknownMethodError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "random_forest_unsupported", unknown.Method)
}

func TestNewTrainerValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		check  func(t *testing.T, err error)
	}{
		{
			name:   "test fraction",
			mutate: func(c *Config) { c.TestFraction = 1 },
			check: func(t *testing.T, err error) {
				var e *errors.InvalidFractionError
				assert.ErrorAs(t, err, &e)
			},
		},
		{
			name:   "mismatched backend",
			mutate: func(c *Config) { c.Backend = backend.LinearRegressionConfig{} },
			check: func(t *testing.T, err error) {
				var e *errors.ConfigError
				assert.ErrorAs(t, err, &e)
			},
		},
		{
			name: "invalid hyperparameter",
			mutate: func(c *Config) {
				xc := backend.DefaultXGBoostConfig()
				xc.LearningRate = -1
				c.Backend = xc
			},
			check: func(t *testing.T, err error) {
				var e *errors.ConfigError
				require.ErrorAs(t, err, &e)
				assert.Equal(t, "learning_rate", e.Key)
			},
		},
		{
			name:   "importance estimators",
			mutate: func(c *Config) { c.ImportanceEstimators = 0 },
			check: func(t *testing.T, err error) {
				var e *errors.ConfigError
				assert.ErrorAs(t, err, &e)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			trainer, err := NewTrainer(cfg)
			assert.Nil(t, trainer)
			tt.check(t, err)
		})
	}
}

func TestTrainStageErrors(t *testing.T) {
	trainer, err := NewTrainer(linearConfig(), WithLogger(log.NewNopLogger()))
	require.NoError(t, err)

	t.Run("prepare", func(t *testing.T) {
		a, err := trainer.Train(dataset.Input{
			Obs:        []float64{1, 2, 3},
			Fcst:       []float64{1, 2, 3},
			Covariates: dataset.Covariates{{Name: "var1", Values: []float64{1, 2}}},
		})
		assert.Nil(t, a)
		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StagePrepared, stageErr.Stage)
		var dimErr *errors.DimensionError
		assert.ErrorAs(t, err, &dimErr)
		assert.Equal(t, StageInit, trainer.Stage())
	})

	t.Run("split", func(t *testing.T) {
		a, err := trainer.Train(dataset.Input{Obs: []float64{1}, Fcst: []float64{1}})
		assert.Nil(t, a)
		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StageSplit, stageErr.Stage)
		var fracErr *errors.InvalidFractionError
		assert.ErrorAs(t, err, &fracErr)
		assert.Equal(t, StagePrepared, trainer.Stage())
		assert.Contains(t, err.Error(), "stage split")
	})
}

type failingExporter struct{}

func (failingExporter) Export(*Artifact) error { return errors.New("disk full") }

func TestExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	trainer, err := NewTrainer(linearConfig(),
		WithLogger(log.NewNopLogger()),
		WithExporter(DirExporter{Dir: dir}),
	)
	require.NoError(t, err)

	in := covariateInput(50)
	a, err := trainer.Train(in)
	require.NoError(t, err)
	assert.Equal(t, StageExported, trainer.Stage())
	assert.FileExists(t, filepath.Join(dir, model.ArtifactFilename))

	// 既存ディレクトリへの再出力も成功する
	_, err = trainer.Train(in)
	require.NoError(t, err)

	loaded, err := LoadArtifact(dir)
	require.NoError(t, err)
	assert.Equal(t, a.Scaler, loaded.Scaler)
	assert.Equal(t, a.Metrics, loaded.Metrics)
	assert.Equal(t, a.FeatureImportance, loaded.FeatureImportance)

	want, err := NewPredictor(a).Predict(in.Fcst, in.Covariates)
	require.NoError(t, err)
	got, err := NewPredictor(loaded).Predict(in.Fcst, in.Covariates)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-12)

	t.Run("failing exporter", func(t *testing.T) {
		trainer, err := NewTrainer(linearConfig(), WithLogger(log.NewNopLogger()), WithExporter(failingExporter{}))
		require.NoError(t, err)
		a, err := trainer.Train(in)
		assert.Nil(t, a)
		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StageExported, stageErr.Stage)
		assert.Equal(t, StageEvaluated, trainer.Stage())
	})

	t.Run("missing artifact", func(t *testing.T) {
		_, err := LoadArtifact(t.TempDir())
		assert.Error(t, err)
	})
}

func TestPredictor(t *testing.T) {
	in := covariateInput(100)
	a, err := Run(linearConfig(), in, WithLogger(log.NewNopLogger()))
	require.NoError(t, err)
	p := NewPredictor(a)

	t.Run("values outside the training range are not clipped", func(t *testing.T) {
		covs := dataset.Covariates{
			{Name: "var1", Values: []float64{5, -5}},
			{Name: "var2", Values: []float64{0.5, 0.5}},
			{Name: "var3", Values: []float64{0.5, 0.5}},
		}
		x, err := p.Features([]float64{100, -100}, covs)
		require.NoError(t, err)
		assert.Equal(t, []string{"var1", "var2", "var3", "fcst"}, x.Names())

		fcst, err := x.Column("fcst")
		require.NoError(t, err)
		assert.Greater(t, fcst[0], 1.0)
		assert.Less(t, fcst[1], 0.0)

		pred, err := p.Predict([]float64{100, -100}, covs)
		require.NoError(t, err)
		assert.Len(t, pred, 2)
	})

	t.Run("reordered covariates", func(t *testing.T) {
		covs := dataset.Covariates{in.Covariates[1], in.Covariates[0], in.Covariates[2]}
		_, err := p.Predict(in.Fcst, covs)
		var schemaErr *errors.SchemaMismatchError
		assert.ErrorAs(t, err, &schemaErr)
	})

	t.Run("missing covariate", func(t *testing.T) {
		_, err := p.Predict(in.Fcst, in.Covariates[:2])
		var schemaErr *errors.SchemaMismatchError
		assert.ErrorAs(t, err, &schemaErr)
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := p.Predict(in.Fcst[:10], in.Covariates)
		var dimErr *errors.DimensionError
		assert.ErrorAs(t, err, &dimErr)
	})

	t.Run("non-finite input", func(t *testing.T) {
		xgb := DefaultConfig()
		xgb.Seed = seed(42)
		xgb.ImportanceEstimators = 5
		boosted, err := Run(xgb, in, WithLogger(log.NewNopLogger()))
		require.NoError(t, err)

		for _, pred := range []*Predictor{p, NewPredictor(boosted)} {
			fcst := []float64{in.Fcst[0], math.NaN(), in.Fcst[2]}
			covs := dataset.Covariates{
				{Name: "var1", Values: in.Covariates[0].Values[:3]},
				{Name: "var2", Values: in.Covariates[1].Values[:3]},
				{Name: "var3", Values: []float64{0.1, 0.2, math.Inf(1)}},
			}
			out, err := pred.Predict(fcst, covs)
			assert.Nil(t, out)
			var numErr *errors.NumericalInstabilityError
			require.ErrorAs(t, err, &numErr)
			assert.Equal(t, 1, numErr.Iteration)

			fcst[1] = in.Fcst[1]
			_, err = pred.Predict(fcst, covs)
			require.ErrorAs(t, err, &numErr)
			assert.Equal(t, 2, numErr.Iteration)
		}
	})

	t.Run("empty artifact", func(t *testing.T) {
		_, err := NewPredictor(&Artifact{}).Predict(in.Fcst, nil)
		var nf *errors.NotFittedError
		assert.ErrorAs(t, err, &nf)
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("xgboost", func(t *testing.T) {
		cfg, err := LoadConfig(strings.NewReader(`
method: xgboost
test_fraction: 0.25
seed: 42
importance_estimators: 50
params:
  objective: reg:squarederror
  n_estimators: 200
  learning_rate: 0.05
  max_depth: 4
  random_state: 1
`))
		require.NoError(t, err)
		assert.Equal(t, backend.MethodXGBoost, cfg.Method)
		assert.Equal(t, 0.25, cfg.TestFraction)
		require.NotNil(t, cfg.Seed)
		assert.Equal(t, uint64(42), *cfg.Seed)
		assert.Equal(t, 50, cfg.ImportanceEstimators)
		xc := cfg.Backend.(backend.XGBoostConfig)
		assert.Equal(t, 200, xc.NEstimators)
		assert.Equal(t, 0.05, xc.LearningRate)
		assert.Equal(t, 4, xc.MaxDepth)
	})

	t.Run("linear defaults", func(t *testing.T) {
		cfg, err := LoadConfig(strings.NewReader("method: linear_regression\n"))
		require.NoError(t, err)
		assert.Equal(t, backend.MethodLinearRegression, cfg.Method)
		assert.Equal(t, 0.2, cfg.TestFraction)
		assert.Nil(t, cfg.Seed)
		assert.Equal(t, DefaultImportanceEstimators, cfg.ImportanceEstimators)
	})

	t.Run("missing xgboost key", func(t *testing.T) {
		_, err := LoadConfig(strings.NewReader(`
method: xgboost
params:
  objective: reg:squarederror
  n_estimators: 100
  learning_rate: 0.1
`))
		var cfgErr *errors.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "max_depth", cfgErr.Key)
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := LoadConfig(strings.NewReader("method: svr\n"))
		var unknown *errors.UnknownMethodError
		assert.ErrorAs(t, err, &unknown)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := LoadConfig(strings.NewReader("method: linear_regression\ntest_size: 0.3\n"))
		assert.Error(t, err)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bc.yaml")
		require.NoError(t, os.WriteFile(path, []byte("method: linear_regression\ntest_fraction: 0.3\n"), 0o600))
		cfg, err := LoadConfigFile(path)
		require.NoError(t, err)
		assert.Equal(t, 0.3, cfg.TestFraction)

		_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "init", StageInit.String())
	assert.Equal(t, "exported", StageExported.String())
	assert.Equal(t, "Stage(42)", Stage(42).String())
}
