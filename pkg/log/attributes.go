// Standard attribute keys for bias-correction logging.
//
// Keys follow a hierarchical naming convention ("model.name", "data.samples")
// so pipeline runs can be filtered and aggregated by log tooling.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the backend or estimator type.
	// Examples: "xgboost", "linear_regression", "MinMaxScaler"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging.
	// Set automatically by GetLoggerWithName.
	ComponentKey = "ml.component"

	// PhaseKey indicates the pipeline stage.
	// Examples: "prepared", "split", "scaled", "trained"
	PhaseKey = "ml.phase"
)

// Data Shape
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"

	// TrainSamplesKey and TestSamplesKey record the split sizes.
	TrainSamplesKey = "data.train_samples"
	TestSamplesKey  = "data.test_samples"
)

// Performance Metrics
const (
	DurationMsKey = "perf.duration_ms"
	LossKey       = "metrics.loss"
	R2ScoreKey    = "metrics.r2_score"
	RMSEKey       = "metrics.rmse"
	MAEKey        = "metrics.mae"
	IterationKey  = "training.iteration"
)

// Hyperparameters and Configuration
const (
	LearningRateKey = "hyperparams.learning_rate"
	EstimatorsKey   = "hyperparams.n_estimators"
	MaxDepthKey     = "hyperparams.max_depth"
	RandomSeedKey   = "config.random_seed"
	OutputDirKey    = "config.output_dir"
)

// Error Context
const (
	ErrorTypeKey = "error.type"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationInverse      = "inverse_transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"
	OperationSplit        = "split"
	OperationExport       = "export"

	PhaseTraining      = "training"
	PhaseTesting       = "testing"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
)
