package model

import (
	"sort"

	"golang.org/x/exp/rand"
)

// TreeNode is one node of a fitted tree. Children are indexes into Tree.Nodes.
type TreeNode struct {
	IsLeaf     bool
	FeatureIdx int
	Threshold  float64
	LeftChild  int
	RightChild int

	// Samples is the number of bootstrap rows that reached the node
	Samples  int
	Impurity float64

	// Distribution holds the class frequencies of a leaf
	Distribution []float64
}

// Tree is a CART classification tree grown with the Gini criterion.
type Tree struct {
	Nodes           []TreeNode
	MaxDepth        int
	MinSamplesSplit int
	MaxFeatures     int
	NumFeatures     int
	NumClasses      int
}

type treeBuilder struct {
	tree    *Tree
	x       [][]float64
	y       []int
	rnd     *rand.Rand
	scratch []int
}

type split struct {
	feature   int
	threshold float64
	impurity  float64
}

// Fit grows the tree over the rows listed in samples. Rows may repeat, as they do
// in a bootstrap sample. Candidate features at every split are drawn from rnd.
func (t *Tree) Fit(x [][]float64, y []int, samples []int, rnd *rand.Rand) {
	if t.MinSamplesSplit < 2 {
		t.MinSamplesSplit = 2
	}
	if t.MaxFeatures <= 0 || t.MaxFeatures > t.NumFeatures {
		t.MaxFeatures = t.NumFeatures
	}
	t.Nodes = t.Nodes[:0]
	b := &treeBuilder{
		tree:    t,
		x:       x,
		y:       y,
		rnd:     rnd,
		scratch: make([]int, len(samples)),
	}
	b.build(append([]int(nil), samples...), 0)
}

func (b *treeBuilder) build(samples []int, depth int) int {
	counts := b.classCounts(samples)
	impurity := gini(counts, len(samples))

	index := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, TreeNode{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		Samples:    len(samples),
		Impurity:   impurity,
	})

	maxDepthReached := b.tree.MaxDepth > 0 && depth >= b.tree.MaxDepth
	if impurity == 0 || len(samples) < b.tree.MinSamplesSplit || maxDepthReached {
		b.makeLeaf(index, counts, len(samples))
		return index
	}

	best, ok := b.findBestSplit(samples)
	if !ok {
		b.makeLeaf(index, counts, len(samples))
		return index
	}

	left, right := b.partition(samples, best)
	leftIndex := b.build(left, depth+1)
	rightIndex := b.build(right, depth+1)

	node := &b.tree.Nodes[index]
	node.FeatureIdx = best.feature
	node.Threshold = best.threshold
	node.LeftChild = leftIndex
	node.RightChild = rightIndex
	return index
}

func (b *treeBuilder) makeLeaf(index int, counts []int, total int) {
	distribution := make([]float64, len(counts))
	for class, count := range counts {
		distribution[class] = float64(count) / float64(total)
	}
	node := &b.tree.Nodes[index]
	node.IsLeaf = true
	node.Distribution = distribution
}

// findBestSplit visits features in random order until MaxFeatures non-constant
// features have been evaluated, keeping the threshold with the lowest weighted Gini.
func (b *treeBuilder) findBestSplit(samples []int) (split, bool) {
	n := len(samples)
	order := b.scratch[:n]
	best := split{feature: -1}
	found := false
	visited := 0

	for _, feature := range b.rnd.Perm(b.tree.NumFeatures) {
		if visited >= b.tree.MaxFeatures {
			break
		}
		copy(order, samples)
		sort.SliceStable(order, func(i, j int) bool {
			return b.x[order[i]][feature] < b.x[order[j]][feature]
		})
		if b.x[order[0]][feature] == b.x[order[n-1]][feature] {
			continue
		}
		visited++

		left := make([]int, b.tree.NumClasses)
		right := b.classCounts(samples)
		for i := 0; i < n-1; i++ {
			class := b.y[order[i]]
			left[class]++
			right[class]--

			value, next := b.x[order[i]][feature], b.x[order[i+1]][feature]
			if value == next {
				continue
			}
			nLeft, nRight := i+1, n-i-1
			impurity := (float64(nLeft)*gini(left, nLeft) + float64(nRight)*gini(right, nRight)) / float64(n)
			if !found || impurity < best.impurity {
				best = split{feature: feature, threshold: (value + next) / 2, impurity: impurity}
				found = true
			}
		}
	}
	return best, found
}

func (b *treeBuilder) partition(samples []int, s split) ([]int, []int) {
	var left, right []int
	for _, idx := range samples {
		if b.x[idx][s.feature] <= s.threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	return left, right
}

func (b *treeBuilder) classCounts(samples []int) []int {
	counts := make([]int, b.tree.NumClasses)
	for _, idx := range samples {
		counts[b.y[idx]]++
	}
	return counts
}

func gini(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}
	impurity := 1.0
	for _, count := range counts {
		p := float64(count) / float64(total)
		impurity -= p * p
	}
	return impurity
}

// PredictProba walks the tree and returns the class distribution of the reached leaf.
func (t *Tree) PredictProba(row []float64) []float64 {
	idx := 0
	for {
		node := &t.Nodes[idx]
		if node.IsLeaf {
			return node.Distribution
		}
		if row[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
}

// FeatureImportances returns the impurity decrease contributed by each feature,
// weighted by node size and normalised to sum to one. A tree without splits
// returns all zeros.
func (t *Tree) FeatureImportances() []float64 {
	importances := make([]float64, t.NumFeatures)
	for _, node := range t.Nodes {
		if node.IsLeaf {
			continue
		}
		left, right := t.Nodes[node.LeftChild], t.Nodes[node.RightChild]
		decrease := float64(node.Samples)*node.Impurity -
			float64(left.Samples)*left.Impurity -
			float64(right.Samples)*right.Impurity
		// zero-gain splits can come out slightly negative
		if decrease > 0 {
			importances[node.FeatureIdx] += decrease
		}
	}
	total := 0.0
	for _, v := range importances {
		total += v
	}
	if total > 0 {
		for i := range importances {
			importances[i] /= total
		}
	}
	return importances
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	return t.depthFrom(0)
}

func (t *Tree) depthFrom(idx int) int {
	node := t.Nodes[idx]
	if node.IsLeaf {
		return 0
	}
	left, right := t.depthFrom(node.LeftChild), t.depthFrom(node.RightChild)
	if left > right {
		return left + 1
	}
	return right + 1
}
