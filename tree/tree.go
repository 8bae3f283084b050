// Package tree grows second-order regression trees.
//
// A single grower serves both gradient boosting (gradients and hessians of
// the loss) and plain CART regression (gradient = -y, hessian = 1, no
// regularization), where the split gain reduces to half the decrease in
// squared error and leaf values reduce to the mean target.
package tree

// Node is a single node of a regression tree. Nodes are stored flat in
// Tree.Nodes and refer to their children by index.
type Node struct {
	LeftChild  int // -1 for leaves
	RightChild int // -1 for leaves

	SplitFeature int
	Threshold    float64 // samples with value <= Threshold go left
	Gain         float64

	LeafValue float64
	Cover     float64 // sum of hessians reaching this node
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree is a fitted regression tree. The root is Nodes[0].
type Tree struct {
	Nodes     []Node
	NFeatures int
}

// Predict returns the leaf value reached by features.
func (t *Tree) Predict(features []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	nodeID := 0
	for {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			return node.LeafValue
		}
		if features[node.SplitFeature] <= node.Threshold {
			nodeID = node.LeftChild
		} else {
			nodeID = node.RightChild
		}
	}
}

// Depth returns the number of edges on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(id int) int
	walk = func(id int) int {
		n := &t.Nodes[id]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(walk(n.LeftChild), walk(n.RightChild))
	}
	return walk(0)
}

// NumLeaves counts the leaves of the tree.
func (t *Tree) NumLeaves() int {
	count := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			count++
		}
	}
	return count
}

// GainImportance returns the total split gain per feature, unnormalized.
func (t *Tree) GainImportance() []float64 {
	importance := make([]float64, t.NFeatures)
	for i := range t.Nodes {
		node := &t.Nodes[i]
		if !node.IsLeaf() {
			importance[node.SplitFeature] += node.Gain
		}
	}
	return importance
}

// Normalize scales v in place so that it sums to 1. All-zero input is left
// unchanged.
func Normalize(v []float64) []float64 {
	total := 0.0
	for _, x := range v {
		total += x
	}
	if total > 0 {
		for i := range v {
			v[i] /= total
		}
	}
	return v
}
