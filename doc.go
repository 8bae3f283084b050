// Package biascorrect corrects the systematic bias of forecasts against
// observations with a regression model trained on the forecast and optional
// covariates.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/biascorrect/backend"
//	    "github.com/YuminosukeSato/biascorrect/bc"
//	    "github.com/YuminosukeSato/biascorrect/dataset"
//	)
//
//	func main() {
//	    cfg := bc.DefaultConfig()
//	    cfg.Method = backend.MethodLinearRegression
//	    cfg.Backend = nil
//
//	    artifact, err := bc.Run(cfg, dataset.Input{
//	        Obs:  []float64{1, 2, 3, 4, 5},
//	        Fcst: []float64{1.1, 2.1, 2.9, 4.2, 5.1},
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("RMSE:", artifact.Metrics.RMSE)
//
//	    corrected, err := bc.NewPredictor(artifact).Predict([]float64{6.2}, nil)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("Corrected:", corrected)
//	}
//
// # Packages
//
//   - bc: training pipeline (Trainer), inference (Predictor), YAML config, artifact export
//   - dataset: FeatureMatrix and covariate/forecast combination
//   - preprocessing: min-max scaler with a persisted, schema-checked state
//   - modelselection: reproducible train/test split
//   - backend: "xgboost" and "linear_regression" model selection
//   - ensemble: gradient boosting and random forest regressors
//   - tree: regression tree growing shared by the ensembles
//   - linear: ordinary least squares
//   - metrics: RMSE, R², MAE
//   - inspection: random forest feature importance
//   - vis: line and scatter plots of the pipeline series
//   - core/model: shared model interfaces, fitted state and gob persistence
//   - core/parallel: parallel processing utilities
//   - pkg/errors, pkg/log: error types and structured logging
//
// # Performance
//
// Split search in gradient boosting runs in parallel over features, and the
// random forest grows its trees concurrently. Each tree draws from its own
// seeded stream, so results do not depend on scheduling.
package biascorrect
