package tree

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/biascorrect/core/parallel"
)

// parallelMinWork is the number of (row, feature) pairs below which split
// search runs sequentially.
const parallelMinWork = 2048

// gainEpsilon is the relative gain below which a split is treated as noise.
const gainEpsilon = 1e-12

// Params controls tree growth.
type Params struct {
	// MaxDepth limits the depth of the tree. 0 means unlimited.
	MaxDepth int

	// Lambda is the L2 regularization on leaf weights.
	Lambda float64

	// MinChildWeight is the minimum hessian sum required in each child.
	MinChildWeight float64

	// MinSplitGain is the minimum gain required to split a node.
	MinSplitGain float64
}

// SplitInfo describes the best split found for a node.
type SplitInfo struct {
	Feature   int
	Threshold float64
	Gain      float64
	Valid     bool
}

// Grower builds trees over a fixed feature matrix. The matrix is copied into
// column-major slices once so repeated growth (one tree per boosting round or
// per forest member) does not pay for matrix access.
type Grower struct {
	params Params
	cols   [][]float64
}

// builder holds the per-tree state so one Grower can serve concurrent Grow
// calls.
type builder struct {
	*Grower
	gradients []float64
	hessians  []float64
}

// NewGrower prepares a grower for X.
func NewGrower(X mat.Matrix, params Params) *Grower {
	_, c := X.Dims()
	cols := make([][]float64, c)
	for j := range cols {
		cols[j] = mat.Col(nil, j, X)
	}
	return &Grower{params: params, cols: cols}
}

// Grow fits one tree to the given gradients and hessians using the rows in
// indices. indices may repeat rows (bootstrap samples); each occurrence
// counts. Grow is safe for concurrent use.
func (g *Grower) Grow(gradients, hessians []float64, indices []int) *Tree {
	b := &builder{Grower: g, gradients: gradients, hessians: hessians}

	tree := &Tree{NFeatures: len(g.cols)}
	if len(indices) == 0 {
		tree.Nodes = append(tree.Nodes, Node{LeftChild: -1, RightChild: -1})
		return tree
	}
	b.buildNode(tree, indices, 0)
	return tree
}

func (g *builder) buildNode(tree *Tree, indices []int, depth int) int {
	nodeIdx := len(tree.Nodes)
	sumGrad, sumHess := g.sums(indices)
	tree.Nodes = append(tree.Nodes, Node{
		LeftChild:  -1,
		RightChild: -1,
		LeafValue:  g.calculateLeafValue(sumGrad, sumHess),
		Cover:      sumHess,
	})

	if g.params.MaxDepth > 0 && depth >= g.params.MaxDepth {
		return nodeIdx
	}
	if len(indices) < 2 {
		return nodeIdx
	}

	best := g.findBestSplit(indices, sumGrad, sumHess)
	parentScore := sumGrad * sumGrad / (sumHess + g.params.Lambda)
	if !best.Valid || best.Gain <= g.params.MinSplitGain+gainEpsilon*math.Abs(parentScore) {
		return nodeIdx
	}

	leftIndices, rightIndices := g.splitData(indices, best)
	tree.Nodes[nodeIdx].SplitFeature = best.Feature
	tree.Nodes[nodeIdx].Threshold = best.Threshold
	tree.Nodes[nodeIdx].Gain = best.Gain

	left := g.buildNode(tree, leftIndices, depth+1)
	right := g.buildNode(tree, rightIndices, depth+1)
	tree.Nodes[nodeIdx].LeftChild = left
	tree.Nodes[nodeIdx].RightChild = right
	return nodeIdx
}

func (g *builder) sums(indices []int) (sumGrad, sumHess float64) {
	for _, idx := range indices {
		sumGrad += g.gradients[idx]
		sumHess += g.hessians[idx]
	}
	return sumGrad, sumHess
}

// findBestSplit evaluates every feature, in parallel for large nodes, and
// returns the split with the highest gain. Ties go to the lower feature index.
func (g *builder) findBestSplit(indices []int, sumGrad, sumHess float64) SplitInfo {
	candidates := make([]SplitInfo, len(g.cols))
	threshold := len(g.cols)
	if len(indices)*len(g.cols) >= parallelMinWork {
		threshold = 1
	}
	parallel.ForEach(len(g.cols), threshold, func(feature int) {
		candidates[feature] = g.findBestSplitForFeature(indices, feature, sumGrad, sumHess)
	})

	best := SplitInfo{Gain: math.Inf(-1)}
	for _, c := range candidates {
		if c.Valid && c.Gain > best.Gain {
			best = c
		}
	}
	return best
}

type featureValue struct {
	value float64
	idx   int
}

func (g *builder) findBestSplitForFeature(indices []int, feature int, totalGrad, totalHess float64) SplitInfo {
	col := g.cols[feature]
	values := make([]featureValue, len(indices))
	for i, idx := range indices {
		values[i] = featureValue{value: col[idx], idx: idx}
	}
	sort.Slice(values, func(i, j int) bool {
		return values[i].value < values[j].value
	})

	best := SplitInfo{Feature: feature, Gain: math.Inf(-1)}
	leftGrad, leftHess := 0.0, 0.0
	for i := 0; i < len(values)-1; i++ {
		idx := values[i].idx
		leftGrad += g.gradients[idx]
		leftHess += g.hessians[idx]

		if values[i].value == values[i+1].value {
			continue
		}

		rightGrad := totalGrad - leftGrad
		rightHess := totalHess - leftHess
		if leftHess < g.params.MinChildWeight || rightHess < g.params.MinChildWeight {
			continue
		}

		gain := g.calculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess)
		if gain > best.Gain {
			best.Gain = gain
			best.Threshold = midpoint(values[i].value, values[i+1].value)
			best.Valid = true
		}
	}
	return best
}

// calculateSplitGain is the second-order loss reduction of a split.
func (g *builder) calculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess float64) float64 {
	lambda := g.params.Lambda
	leftScore := (leftGrad * leftGrad) / (leftHess + lambda)
	rightScore := (rightGrad * rightGrad) / (rightHess + lambda)
	totalScore := (totalGrad * totalGrad) / (totalHess + lambda)
	return 0.5 * (leftScore + rightScore - totalScore)
}

func (g *builder) splitData(indices []int, split SplitInfo) (left, right []int) {
	col := g.cols[split.Feature]
	for _, idx := range indices {
		if col[idx] <= split.Threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	return left, right
}

// calculateLeafValue is the optimal leaf weight -G/(H+lambda).
func (g *builder) calculateLeafValue(sumGrad, sumHess float64) float64 {
	denom := sumHess + g.params.Lambda
	if denom == 0 {
		return 0
	}
	return -sumGrad / denom
}

// midpoint returns a threshold t with lo <= t < hi.
func midpoint(lo, hi float64) float64 {
	if mid := lo + (hi-lo)/2; mid < hi {
		return mid
	}
	return lo
}
