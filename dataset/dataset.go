// Package dataset assembles forecast and covariate series into the feature
// matrix consumed by the scaler and the regression backends.
package dataset

import (
	"slices"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/biascorrect/pkg/errors"
)

// ForecastColumn is the name of the forecast column. It is always the last
// column of a combined FeatureMatrix.
const ForecastColumn = "fcst"

// FeatureMatrix is a dense matrix with named columns.
// It is read-only after construction.
type FeatureMatrix struct {
	names []string
	data  *mat.Dense
}

// NewFeatureMatrix wraps data with column names. Names must be unique and
// match the column count.
func NewFeatureMatrix(names []string, data *mat.Dense) (*FeatureMatrix, error) {
	if data == nil {
		return nil, errors.NewModelError("dataset.NewFeatureMatrix", "nil matrix", errors.ErrEmptyData)
	}
	_, c := data.Dims()
	if len(names) != c {
		return nil, errors.NewDimensionError("dataset.NewFeatureMatrix", c, len(names), 1)
	}
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			return nil, errors.NewValidationError("names", "duplicate column name", n)
		}
		seen[n] = struct{}{}
	}
	return &FeatureMatrix{names: slices.Clone(names), data: data}, nil
}

// Dims returns the number of rows and columns.
func (m *FeatureMatrix) Dims() (rows, cols int) {
	return m.data.Dims()
}

// Names returns a copy of the column names in order.
func (m *FeatureMatrix) Names() []string {
	return slices.Clone(m.names)
}

// Raw exposes the underlying matrix for read-only use.
func (m *FeatureMatrix) Raw() mat.Matrix {
	return m.data
}

// Index returns the position of the named column, or -1.
func (m *FeatureMatrix) Index(name string) int {
	return slices.Index(m.names, name)
}

// Column returns a copy of the named column.
func (m *FeatureMatrix) Column(name string) ([]float64, error) {
	j := m.Index(name)
	if j < 0 {
		return nil, errors.NewSchemaMismatchError("FeatureMatrix.Column", m.names, []string{name})
	}
	r, _ := m.data.Dims()
	return mat.Col(make([]float64, r), j, m.data), nil
}

// Rows returns a new FeatureMatrix holding the given rows in the given order.
func (m *FeatureMatrix) Rows(idx []int) (*FeatureMatrix, error) {
	r, c := m.data.Dims()
	if len(idx) == 0 {
		return nil, errors.NewModelError("FeatureMatrix.Rows", "no rows selected", errors.ErrEmptyData)
	}
	out := mat.NewDense(len(idx), c, nil)
	for i, src := range idx {
		if src < 0 || src >= r {
			return nil, errors.NewValueError("FeatureMatrix.Rows", "row index out of range")
		}
		out.SetRow(i, m.data.RawRowView(src))
	}
	return &FeatureMatrix{names: slices.Clone(m.names), data: out}, nil
}

// Covariate is one named auxiliary series.
type Covariate struct {
	Name   string
	Values []float64
}

// Covariates is an ordered set of covariate series. The slice order
// determines the feature column order.
type Covariates []Covariate

// CovariatesFromMap builds Covariates from a map, ordering names lexically.
func CovariatesFromMap(m map[string][]float64) Covariates {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	covs := make(Covariates, 0, len(names))
	for _, name := range names {
		covs = append(covs, Covariate{Name: name, Values: m[name]})
	}
	return covs
}

// Names returns the covariate names in order.
func (c Covariates) Names() []string {
	names := make([]string, len(c))
	for i, cov := range c {
		names[i] = cov.Name
	}
	return names
}

// Validate checks for empty, duplicate or reserved names.
func (c Covariates) Validate() error {
	seen := make(map[string]struct{}, len(c))
	for _, cov := range c {
		switch {
		case cov.Name == "":
			return errors.NewValidationError("covariates", "covariate name must not be empty", cov.Name)
		case cov.Name == ForecastColumn:
			return errors.NewValidationError("covariates", "covariate name is reserved for the forecast column", cov.Name)
		}
		if _, dup := seen[cov.Name]; dup {
			return errors.NewValidationError("covariates", "duplicate covariate name", cov.Name)
		}
		seen[cov.Name] = struct{}{}
	}
	return nil
}

// Combine builds the feature matrix: one column per covariate in order,
// followed by the forecast column. Inputs are copied.
func Combine(covs Covariates, fcst []float64) (*FeatureMatrix, error) {
	if len(fcst) == 0 {
		return nil, errors.NewModelError("dataset.Combine", "empty forecast", errors.ErrEmptyData)
	}
	if err := covs.Validate(); err != nil {
		return nil, err
	}
	for _, cov := range covs {
		if len(cov.Values) != len(fcst) {
			return nil, errors.NewDimensionError("dataset.Combine("+cov.Name+")", len(fcst), len(cov.Values), 0)
		}
	}

	n, p := len(fcst), len(covs)+1
	data := mat.NewDense(n, p, nil)
	for j, cov := range covs {
		data.SetCol(j, cov.Values)
	}
	data.SetCol(p-1, fcst)

	names := append(covs.Names(), ForecastColumn)
	return &FeatureMatrix{names: names, data: data}, nil
}

// Input is a complete training input: observations, forecasts and optional
// covariates, all aligned by index.
type Input struct {
	Obs        []float64
	Fcst       []float64
	Covariates Covariates
}

// Validate checks that all series are non-empty, equally long and finite.
func (in Input) Validate() error {
	if len(in.Obs) == 0 || len(in.Fcst) == 0 {
		return errors.NewModelError("dataset.Input.Validate", "empty series", errors.ErrEmptyData)
	}
	if len(in.Obs) != len(in.Fcst) {
		return errors.NewDimensionError("dataset.Input.Validate(fcst)", len(in.Obs), len(in.Fcst), 0)
	}
	if err := in.Covariates.Validate(); err != nil {
		return err
	}
	if err := errors.CheckNumericalStability("obs", in.Obs, -1); err != nil {
		return err
	}
	if err := errors.CheckNumericalStability("fcst", in.Fcst, -1); err != nil {
		return err
	}
	for _, cov := range in.Covariates {
		if len(cov.Values) != len(in.Obs) {
			return errors.NewDimensionError("dataset.Input.Validate("+cov.Name+")", len(in.Obs), len(cov.Values), 0)
		}
		if err := errors.CheckNumericalStability(cov.Name, cov.Values, -1); err != nil {
			return err
		}
	}
	return nil
}

// Features combines the covariates and forecast of the input.
func (in Input) Features() (*FeatureMatrix, error) {
	return Combine(in.Covariates, in.Fcst)
}
