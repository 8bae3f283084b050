package bc

import (
	"github.com/YuminosukeSato/biascorrect/dataset"
	"github.com/YuminosukeSato/biascorrect/pkg/errors"
)

// Predictor applies a trained artifact to new forecasts. It never refits the
// scaler or the model and is safe for concurrent use.
type Predictor struct {
	artifact *Artifact
}

// NewPredictor wraps a.
func NewPredictor(a *Artifact) *Predictor {
	return &Predictor{artifact: a}
}

// Features combines and scales fcst and covs with the persisted scaler.
// The covariate names must match the training covariates in order. NaN or
// Inf anywhere in the input is a NumericalInstabilityError whose Iteration
// is the offending row.
func (p *Predictor) Features(fcst []float64, covs dataset.Covariates) (*dataset.FeatureMatrix, error) {
	if p.artifact == nil || p.artifact.Scaler == nil || p.artifact.Model == nil {
		return nil, errors.NewNotFittedError("bc.Predictor", "Predict")
	}
	x, err := dataset.Combine(covs, fcst)
	if err != nil {
		return nil, err
	}
	if err := errors.CheckMatrix("bc.Predictor.Features", x.Raw()); err != nil {
		return nil, err
	}
	return p.artifact.Scaler.Transform(x)
}

// Predict returns the corrected forecast for every row. Scaled inputs
// outside the training range are not clipped.
func (p *Predictor) Predict(fcst []float64, covs dataset.Covariates) ([]float64, error) {
	x, err := p.Features(fcst, covs)
	if err != nil {
		return nil, err
	}
	return p.artifact.Model.Predict(x.Raw())
}
