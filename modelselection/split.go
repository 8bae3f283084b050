// Package modelselection partitions rows into train and test subsets.
package modelselection

import (
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/biascorrect/dataset"
	"github.com/YuminosukeSato/biascorrect/pkg/errors"
)

// DefaultTestFraction is the share of rows held out when none is configured.
const DefaultTestFraction = 0.2

// Split is a disjoint partition of row indices. Train and Test together
// cover every row exactly once.
type Split struct {
	Train []int
	Test  []int
}

// TrainTestSplit shuffles the row indices [0, nRows) and holds out
// ceil(testFraction*nRows) of them for testing.
//
// A nil seed draws a fresh one, so the partition differs across calls.
// Equal seeds always give identical partitions.
func TrainTestSplit(nRows int, testFraction float64, seed *uint64) (Split, error) {
	if math.IsNaN(testFraction) || testFraction <= 0 || testFraction >= 1 {
		return Split{}, errors.NewInvalidFractionError(testFraction, 0)
	}

	nTest := int(math.Ceil(testFraction * float64(nRows)))
	nTrain := nRows - nTest
	if nTest < 1 || nTrain < 1 {
		return Split{}, errors.NewInvalidFractionError(testFraction, nRows)
	}

	indices := make([]int, nRows)
	for i := range indices {
		indices[i] = i
	}

	r := newRand(seed)
	r.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	return Split{
		Test:  indices[:nTest:nTest],
		Train: indices[nTest:],
	}, nil
}

func newRand(seed *uint64) *rand.Rand {
	if seed == nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(*seed, *seed))
}

// Data holds the row subsets produced by Split.Apply.
type Data struct {
	XTrain *dataset.FeatureMatrix
	XTest  *dataset.FeatureMatrix
	YTrain []float64
	YTest  []float64
}

// Apply selects the train and test rows of x and y.
func (s Split) Apply(x *dataset.FeatureMatrix, y []float64) (Data, error) {
	rows, _ := x.Dims()
	if len(y) != rows {
		return Data{}, errors.NewDimensionError("Split.Apply", rows, len(y), 0)
	}
	if len(s.Train)+len(s.Test) != rows {
		return Data{}, errors.NewDimensionError("Split.Apply", len(s.Train)+len(s.Test), rows, 0)
	}

	xTrain, err := x.Rows(s.Train)
	if err != nil {
		return Data{}, err
	}
	xTest, err := x.Rows(s.Test)
	if err != nil {
		return Data{}, err
	}
	return Data{
		XTrain: xTrain,
		XTest:  xTest,
		YTrain: pick(y, s.Train),
		YTest:  pick(y, s.Test),
	}, nil
}

func pick(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = v[j]
	}
	return out
}
