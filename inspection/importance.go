// Package inspection ranks the features that drive a regression target.
package inspection

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/biascorrect/ensemble"
	"github.com/YuminosukeSato/biascorrect/pkg/errors"
)

// FeatureScore pairs a feature name with its normalized importance.
type FeatureScore struct {
	Name  string
	Score float64
}

// FeatureImportance is a ranking of features, most important first.
type FeatureImportance []FeatureScore

// Names returns the feature names in rank order.
func (fi FeatureImportance) Names() []string {
	names := make([]string, len(fi))
	for i, s := range fi {
		names[i] = s.Name
	}
	return names
}

// Get returns the score of name and whether it is present.
func (fi FeatureImportance) Get(name string) (float64, bool) {
	for _, s := range fi {
		if s.Name == name {
			return s.Score, true
		}
	}
	return 0, false
}

func (fi FeatureImportance) String() string {
	var b []byte
	for i, s := range fi {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = fmt.Appendf(b, "%s=%.4f", s.Name, s.Score)
	}
	return "[" + string(b) + "]"
}

// ComputeFeatureImportance fits a random forest of nEstimators bootstrap
// trees on (X, y) and returns the impurity-based importance of each column,
// labelled with names and sorted in descending order. Ties keep the column
// order. The result is diagnostic only and does not feed back into training.
//
// seed fixes the bootstrap draws; nil uses fresh entropy.
func ComputeFeatureImportance(X mat.Matrix, y []float64, names []string, nEstimators int, seed *uint64) (FeatureImportance, error) {
	const op = "inspection.FeatureImportance"

	_, c := X.Dims()
	if len(names) != c {
		return nil, errors.NewDimensionError(op, c, len(names), 1)
	}
	if nEstimators < 1 {
		return nil, errors.NewConfigError("random_forest", "n_estimators",
			fmt.Sprintf("must be >= 1, got %d", nEstimators))
	}

	opts := []ensemble.RFOption{ensemble.WithTrees(nEstimators)}
	if seed != nil {
		opts = append(opts, ensemble.WithForestSeed(*seed))
	}
	rf := ensemble.NewRandomForestRegressor(opts...)
	if err := rf.Fit(X, y); err != nil {
		return nil, errors.Wrap(err, op)
	}
	importances, err := rf.FeatureImportances()
	if err != nil {
		return nil, err
	}

	out := make(FeatureImportance, c)
	for j, name := range names {
		out[j] = FeatureScore{Name: name, Score: importances[j]}
	}
	slices.SortStableFunc(out, func(a, b FeatureScore) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return out, nil
}
