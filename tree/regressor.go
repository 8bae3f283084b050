package tree

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/biascorrect/core/model"
	"github.com/YuminosukeSato/biascorrect/pkg/errors"
)

// DecisionTreeRegressor is a CART regression tree using squared error.
type DecisionTreeRegressor struct {
	model.StateManager

	// MaxDepth limits the tree depth. 0 grows until leaves are pure.
	MaxDepth int

	// MinSamplesLeaf is the minimum number of samples in each leaf.
	MinSamplesLeaf int

	Tree *Tree
}

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

// WithMaxDepth sets the maximum depth. 0 means unlimited.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.MaxDepth = depth
	}
}

// WithMinSamplesLeaf sets the minimum number of samples per leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeRegressor) {
		dt.MinSamplesLeaf = n
	}
}

// NewDecisionTreeRegressor creates an unfitted tree with unlimited depth and
// one sample per leaf.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	dt := &DecisionTreeRegressor{MinSamplesLeaf: 1}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// CARTParams returns grower parameters equivalent to a squared-error CART
// tree when fitted with gradients -y and unit hessians.
func CARTParams(maxDepth, minSamplesLeaf int) Params {
	if minSamplesLeaf < 1 {
		minSamplesLeaf = 1
	}
	return Params{
		MaxDepth:       maxDepth,
		Lambda:         0,
		MinChildWeight: float64(minSamplesLeaf),
	}
}

// CARTTargets returns the gradient and hessian vectors that make the grower
// fit y by least squares.
func CARTTargets(y []float64) (gradients, hessians []float64) {
	gradients = make([]float64, len(y))
	hessians = make([]float64, len(y))
	for i, v := range y {
		gradients[i] = -v
		hessians[i] = 1
	}
	return gradients, hessians
}

// Fit grows the tree on X and y.
func (dt *DecisionTreeRegressor) Fit(X mat.Matrix, y []float64) (err error) {
	defer errors.Recover(&err, "DecisionTreeRegressor.Fit")

	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("DecisionTreeRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if len(y) != r {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", r, len(y), 0)
	}
	if dt.MaxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be >= 0", dt.MaxDepth)
	}

	indices := make([]int, r)
	for i := range indices {
		indices[i] = i
	}
	grad, hess := CARTTargets(y)
	dt.Tree = NewGrower(X, CARTParams(dt.MaxDepth, dt.MinSamplesLeaf)).Grow(grad, hess, indices)
	dt.SetFitted(c, r)
	return nil
}

// Predict returns one prediction per row of X.
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) ([]float64, error) {
	if err := dt.RequireFitted("DecisionTreeRegressor", "Predict"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := dt.RequireFeatures("DecisionTreeRegressor.Predict", c); err != nil {
		return nil, err
	}
	out := make([]float64, r)
	row := make([]float64, c)
	for i := range out {
		mat.Row(row, i, X)
		out[i] = dt.Tree.Predict(row)
	}
	return out, nil
}

// FeatureImportances returns the normalized impurity decrease per feature.
func (dt *DecisionTreeRegressor) FeatureImportances() ([]float64, error) {
	if err := dt.RequireFitted("DecisionTreeRegressor", "FeatureImportances"); err != nil {
		return nil, err
	}
	return Normalize(dt.Tree.GainImportance()), nil
}

// GetParams returns the hyperparameters.
func (dt *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"max_depth":        dt.MaxDepth,
		"min_samples_leaf": dt.MinSamplesLeaf,
	}
}

func (dt *DecisionTreeRegressor) String() string {
	return fmt.Sprintf("DecisionTreeRegressor(max_depth=%d, min_samples_leaf=%d)", dt.MaxDepth, dt.MinSamplesLeaf)
}
