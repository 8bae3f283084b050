// Package bc corrects the bias of a forecast against observations.
//
// A Trainer combines the forecast with optional covariates, splits the rows,
// fits a min-max scaler on the training rows only, trains the configured
// backend, evaluates it on the held-out rows and ranks the features. The
// resulting Artifact is what a Predictor needs to correct new forecasts.
//
// Example:
//
//	cfg := bc.DefaultConfig()
//	cfg.Method = backend.MethodLinearRegression
//	cfg.Backend = nil
//	trainer, err := bc.NewTrainer(cfg, bc.WithExporter(bc.DirExporter{Dir: "out"}))
//	artifact, err := trainer.Train(dataset.Input{Obs: obs, Fcst: fcst})
//	corrected, err := bc.NewPredictor(artifact).Predict(newFcst, nil)
package bc

import (
	"sync"
	"time"

	"github.com/YuminosukeSato/biascorrect/backend"
	"github.com/YuminosukeSato/biascorrect/core/model"
	"github.com/YuminosukeSato/biascorrect/dataset"
	"github.com/YuminosukeSato/biascorrect/inspection"
	"github.com/YuminosukeSato/biascorrect/metrics"
	"github.com/YuminosukeSato/biascorrect/modelselection"
	"github.com/YuminosukeSato/biascorrect/pkg/errors"
	"github.com/YuminosukeSato/biascorrect/pkg/log"
	"github.com/YuminosukeSato/biascorrect/preprocessing"
)

// Trainer runs the training pipeline. A Trainer may be reused; runs are
// serialized.
type Trainer struct {
	cfg      Config
	backend  backend.Backend
	exporter Exporter
	logger   log.Logger

	mu     sync.Mutex
	stage  Stage
	report Report
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithLogger sets the logger used by the trainer and its backend.
func WithLogger(logger log.Logger) Option {
	return func(t *Trainer) { t.logger = logger }
}

// WithExporter hands every finished artifact to e.
func WithExporter(e Exporter) Option {
	return func(t *Trainer) { t.exporter = e }
}

// NewTrainer validates cfg and builds its backend. Unknown methods, invalid
// hyperparameters and invalid test fractions are reported here, before any
// data is touched.
func NewTrainer(cfg Config, opts ...Option) (*Trainer, error) {
	resolved, err := cfg.resolve()
	if err != nil {
		return nil, err
	}

	t := &Trainer{cfg: resolved}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = log.GetLoggerWithName("bc.Trainer")
	}

	t.backend, err = backend.New(resolved.Backend, backend.WithLogger(t.logger))
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Config returns the validated configuration.
func (t *Trainer) Config() Config { return t.cfg }

// Stage returns the last stage reached by the most recent run.
func (t *Trainer) Stage() Stage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stage
}

// Report returns the plotting series of the most recent run. Series that
// the run did not reach are empty.
func (t *Trainer) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.report
}

// Train runs every stage on in. On failure it returns a *StageError naming
// the stage that could not be reached and no artifact.
func (t *Trainer) Train(in dataset.Input) (*Artifact, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stage = StageInit
	t.report = Report{}
	start := time.Now()

	a, err := t.run(in)
	if err != nil {
		t.logger.Error("Training failed", err,
			log.PhaseKey, log.PhaseTraining,
			"pipeline.stage", t.stage.String(),
		)
		return nil, err
	}

	t.logger.Info("Training completed",
		log.ModelNameKey, string(a.Method),
		"pipeline.stage", t.stage.String(),
		log.RMSEKey, a.Metrics.RMSE,
		log.R2ScoreKey, a.Metrics.RSquared,
		log.MAEKey, a.Metrics.MAE,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return a, nil
}

func (t *Trainer) fail(next Stage, err error) error {
	return &StageError{Stage: next, Err: err}
}

func (t *Trainer) run(in dataset.Input) (*Artifact, error) {
	// Init → Prepared
	if err := in.Validate(); err != nil {
		return nil, t.fail(StagePrepared, err)
	}
	features, err := in.Features()
	if err != nil {
		return nil, t.fail(StagePrepared, err)
	}
	t.stage = StagePrepared
	t.report.Input = InputSeries(in.Obs, in.Fcst)

	// Prepared → Split
	rows, _ := features.Dims()
	split, err := modelselection.TrainTestSplit(rows, t.cfg.TestFraction, t.cfg.Seed)
	if err != nil {
		return nil, t.fail(StageSplit, err)
	}
	data, err := split.Apply(features, in.Obs)
	if err != nil {
		return nil, t.fail(StageSplit, err)
	}
	t.stage = StageSplit
	t.logger.Debug("Data split",
		log.OperationKey, log.OperationSplit,
		log.TrainSamplesKey, len(split.Train),
		log.TestSamplesKey, len(split.Test),
	)

	// Split → Scaled: テストデータはスケーラーの学習に使わない
	scaler, xTrain, err := preprocessing.NewMinMaxScaler(preprocessing.WithLogger(t.logger)).Fit(data.XTrain)
	if err != nil {
		return nil, t.fail(StageScaled, err)
	}
	xTest, err := scaler.Transform(data.XTest)
	if err != nil {
		return nil, t.fail(StageScaled, err)
	}
	t.stage = StageScaled

	// Scaled → Trained
	trained, err := t.backend.Train(xTrain.Raw(), data.YTrain)
	if err != nil {
		return nil, t.fail(StageTrained, err)
	}
	t.stage = StageTrained
	if fi, ok := trained.(model.FeatureImportancer); ok {
		if gains, err := fi.FeatureImportances(); err == nil {
			t.logger.Debug("Backend feature importances", "model.feature_importances", gains)
		}
	}

	// Trained → Evaluated
	yPred, err := trained.Predict(xTest.Raw())
	if err != nil {
		return nil, t.fail(StageEvaluated, err)
	}
	scores, err := metrics.Evaluate(yPred, data.YTest)
	if err != nil {
		return nil, t.fail(StageEvaluated, err)
	}
	importance, err := inspection.ComputeFeatureImportance(
		xTrain.Raw(), data.YTrain, xTrain.Names(), t.cfg.ImportanceEstimators, t.cfg.Seed)
	if err != nil {
		return nil, t.fail(StageEvaluated, err)
	}
	correction, err := CorrectionSeries(yPred, xTest, scaler, data.YTest)
	if err != nil {
		return nil, t.fail(StageEvaluated, err)
	}
	t.stage = StageEvaluated
	t.report.Correction = correction
	t.logger.Info("Training evaluation",
		log.PhaseKey, log.PhaseTesting,
		log.RMSEKey, scores.RMSE,
		log.R2ScoreKey, scores.RSquared,
		log.MAEKey, scores.MAE,
		"metrics.r2_defined", scores.RSquaredDefined,
		"feature_importance", importance.String(),
	)

	a := &Artifact{
		Method:            t.cfg.Method,
		Model:             trained,
		Scaler:            scaler,
		Metrics:           scores,
		FeatureImportance: importance,
		FeatureNames:      features.Names(),
	}

	// Evaluated → Exported
	if t.exporter == nil {
		return a, nil
	}
	if err := t.exporter.Export(a); err != nil {
		return nil, t.fail(StageExported, errors.Wrap(err, "export artifact"))
	}
	t.stage = StageExported
	t.logger.Info("Artifact exported", log.OperationKey, log.OperationExport)
	return a, nil
}

// Run is a shortcut for NewTrainer followed by Train.
func Run(cfg Config, in dataset.Input, opts ...Option) (*Artifact, error) {
	t, err := NewTrainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return t.Train(in)
}
