package bc

import (
	"github.com/YuminosukeSato/biascorrect/dataset"
	"github.com/YuminosukeSato/biascorrect/pkg/errors"
	"github.com/YuminosukeSato/biascorrect/preprocessing"
)

// Series names used by InputSeries and CorrectionSeries.
const (
	SeriesForecast       = "fcst"
	SeriesObserved       = "obs"
	SeriesAfterBC        = "after_bc"
	SeriesBeforeBCScaled = "before_bc_scaled"
	SeriesBeforeBCRaw    = "before_bc_raw"
)

// Series is a named sequence of values handed to a plotting collaborator.
type Series struct {
	Name   string
	Values []float64
}

// Report holds the series of the last training run.
type Report struct {
	Input      []Series
	Correction []Series
}

// InputSeries returns the raw forecast and observation series.
func InputSeries(obs, fcst []float64) []Series {
	return []Series{
		{Name: SeriesForecast, Values: clone(fcst)},
		{Name: SeriesObserved, Values: clone(obs)},
	}
}

// CorrectionSeries compares the corrected test predictions with the
// forecast, both as scaled and recovered from the scaler, and with the
// observations.
func CorrectionSeries(afterBC []float64, xTest *dataset.FeatureMatrix, state *preprocessing.ScalerState, obs []float64) ([]Series, error) {
	rows, _ := xTest.Dims()
	if len(afterBC) != rows {
		return nil, errors.NewDimensionError("bc.CorrectionSeries(after_bc)", rows, len(afterBC), 0)
	}
	if len(obs) != rows {
		return nil, errors.NewDimensionError("bc.CorrectionSeries(obs)", rows, len(obs), 0)
	}

	scaled, err := xTest.Column(dataset.ForecastColumn)
	if err != nil {
		return nil, err
	}
	raw, err := state.InverseColumn(xTest, dataset.ForecastColumn)
	if err != nil {
		return nil, err
	}
	return []Series{
		{Name: SeriesAfterBC, Values: clone(afterBC)},
		{Name: SeriesBeforeBCScaled, Values: scaled},
		{Name: SeriesBeforeBCRaw, Values: raw},
		{Name: SeriesObserved, Values: clone(obs)},
	}, nil
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}
