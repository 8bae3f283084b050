package ensemble

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/biascorrect/core/model"
	"github.com/YuminosukeSato/biascorrect/core/parallel"
	"github.com/YuminosukeSato/biascorrect/pkg/errors"
	"github.com/YuminosukeSato/biascorrect/tree"
)

// RandomForestRegressor averages CART trees grown on bootstrap samples.
//
// Trees are grown concurrently. Tree i draws its bootstrap sample from a
// PCG stream keyed by (seed, i), so results do not depend on scheduling.
type RandomForestRegressor struct {
	model.StateManager

	NEstimators    int
	MaxDepth       int // 0 grows until leaves are pure
	MinSamplesLeaf int
	Bootstrap      bool
	Seed           *uint64

	Trees       []*tree.Tree
	Importances []float64
}

// RFOption configures a RandomForestRegressor.
type RFOption func(*RandomForestRegressor)

// WithTrees sets the number of trees.
func WithTrees(n int) RFOption {
	return func(rf *RandomForestRegressor) { rf.NEstimators = n }
}

// WithForestMaxDepth sets the depth limit of every tree.
func WithForestMaxDepth(depth int) RFOption {
	return func(rf *RandomForestRegressor) { rf.MaxDepth = depth }
}

// WithForestSeed fixes the random seed.
func WithForestSeed(seed uint64) RFOption {
	return func(rf *RandomForestRegressor) { rf.Seed = &seed }
}

// WithBootstrap toggles bootstrap sampling. Without it every tree sees all
// rows and the forest is deterministic regardless of seed.
func WithBootstrap(enabled bool) RFOption {
	return func(rf *RandomForestRegressor) { rf.Bootstrap = enabled }
}

// NewRandomForestRegressor creates a forest of 100 fully grown bootstrap trees.
func NewRandomForestRegressor(opts ...RFOption) *RandomForestRegressor {
	rf := &RandomForestRegressor{
		NEstimators:    100,
		MinSamplesLeaf: 1,
		Bootstrap:      true,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// Fit grows the forest.
func (rf *RandomForestRegressor) Fit(X mat.Matrix, y []float64) (err error) {
	defer errors.Recover(&err, "RandomForestRegressor.Fit")

	if rf.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", rf.NEstimators)
	}
	if rf.MaxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be >= 0", rf.MaxDepth)
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("RandomForestRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if len(y) != r {
		return errors.NewDimensionError("RandomForestRegressor.Fit", r, len(y), 0)
	}

	var base uint64
	if rf.Seed != nil {
		base = *rf.Seed
	} else {
		base = rand.Uint64()
	}

	grower := tree.NewGrower(X, tree.CARTParams(rf.MaxDepth, rf.MinSamplesLeaf))
	grad, hess := tree.CARTTargets(y)
	all := make([]int, r)
	for i := range all {
		all[i] = i
	}

	trees := make([]*tree.Tree, rf.NEstimators)
	parallel.ForEach(rf.NEstimators, 1, func(i int) {
		rows := all
		if rf.Bootstrap {
			rng := rand.New(rand.NewPCG(base, uint64(i)))
			rows = bootstrap(rng, r)
		}
		trees[i] = grower.Grow(grad, hess, rows)
	})

	// 木ごとに正規化してから平均する
	importances := make([]float64, c)
	for _, t := range trees {
		for j, v := range tree.Normalize(t.GainImportance()) {
			importances[j] += v
		}
	}
	rf.Trees = trees
	rf.Importances = tree.Normalize(importances)
	rf.SetFitted(c, r)
	return nil
}

// Predict returns the mean prediction of all trees.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) ([]float64, error) {
	if err := rf.RequireFitted("RandomForestRegressor", "Predict"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if err := rf.RequireFeatures("RandomForestRegressor.Predict", c); err != nil {
		return nil, err
	}

	out := make([]float64, r)
	row := make([]float64, c)
	for i := range out {
		mat.Row(row, i, X)
		sum := 0.0
		for _, t := range rf.Trees {
			sum += t.Predict(row)
		}
		out[i] = sum / float64(len(rf.Trees))
	}
	return out, nil
}

// FeatureImportances returns the impurity-based importances, summing to 1
// unless no tree could split.
func (rf *RandomForestRegressor) FeatureImportances() ([]float64, error) {
	if err := rf.RequireFitted("RandomForestRegressor", "FeatureImportances"); err != nil {
		return nil, err
	}
	return append([]float64(nil), rf.Importances...), nil
}

func (rf *RandomForestRegressor) String() string {
	return fmt.Sprintf("RandomForestRegressor(n_estimators=%d, max_depth=%d, bootstrap=%t)",
		rf.NEstimators, rf.MaxDepth, rf.Bootstrap)
}
