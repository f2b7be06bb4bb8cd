package tree

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// featureThreshold is the smallest gap between two sorted feature values
// that still counts as a split point.
const featureThreshold = 1e-7

// builder grows a tree depth-first into a flat node array.
type builder struct {
	X         mat.Matrix
	y         []int
	nClasses  int
	nFeatures int
	nTotal    int

	criterion           impurity
	maxDepth            int
	minSamplesSplit     int
	minSamplesLeaf      int
	maxFeatures         int
	minImpurityDecrease float64
	rng                 *rand.Rand

	nodes        []Node
	importances  []float64
	maxDepthSeen int
	nLeaves      int
}

type splitCandidate struct {
	feature     int
	threshold   float64
	pos         int // samples[:pos] go left after sorting by feature
	improvement float64
	order       []int
}

// build adds the subtree for samples and returns its node index.
func (b *builder) build(samples []int, depth int) int {
	counts := make([]float64, b.nClasses)
	for _, s := range samples {
		counts[b.y[s]]++
	}
	n := len(samples)
	nodeImpurity := b.criterion(counts, float64(n))

	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{
		Feature:  -1,
		Left:     -1,
		Right:    -1,
		Impurity: nodeImpurity,
		NSamples: n,
		Value:    counts,
	})
	if depth > b.maxDepthSeen {
		b.maxDepthSeen = depth
	}

	isLeaf := (b.maxDepth > 0 && depth >= b.maxDepth) ||
		n < b.minSamplesSplit ||
		n < 2*b.minSamplesLeaf ||
		nodeImpurity <= 0

	var best *splitCandidate
	if !isLeaf {
		best = b.findSplit(samples, nodeImpurity)
	}
	if best == nil {
		b.nLeaves++
		return id
	}

	weighted := float64(n) / float64(b.nTotal)
	decrease := max(weighted*best.improvement, 0)
	if decrease < b.minImpurityDecrease {
		b.nLeaves++
		return id
	}
	b.importances[best.feature] += decrease

	left := b.build(best.order[:best.pos], depth+1)
	right := b.build(best.order[best.pos:], depth+1)

	node := &b.nodes[id]
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Left = left
	node.Right = right
	return id
}

// candidateFeatures returns the order in which features are examined.
// All features are scanned in index order unless maxFeatures limits the search.
func (b *builder) candidateFeatures() []int {
	features := make([]int, b.nFeatures)
	for i := range features {
		features[i] = i
	}
	if b.maxFeatures > 0 && b.maxFeatures < b.nFeatures {
		b.rng.Shuffle(len(features), func(i, j int) {
			features[i], features[j] = features[j], features[i]
		})
	}
	return features
}

// findSplit returns the split with the largest impurity improvement, or nil
// if no threshold satisfies minSamplesLeaf. Constant features do not count
// toward maxFeatures.
func (b *builder) findSplit(samples []int, nodeImpurity float64) *splitCandidate {
	n := len(samples)
	limit := b.nFeatures
	if b.maxFeatures > 0 && b.maxFeatures < b.nFeatures {
		limit = b.maxFeatures
	}

	var best *splitCandidate
	values := make([]float64, n)
	leftCounts := make([]float64, b.nClasses)
	rightCounts := make([]float64, b.nClasses)
	visited := 0

	for _, f := range b.candidateFeatures() {
		if visited >= limit {
			break
		}

		order := append([]int(nil), samples...)
		sort.SliceStable(order, func(i, j int) bool {
			return b.X.At(order[i], f) < b.X.At(order[j], f)
		})
		for i, s := range order {
			values[i] = b.X.At(s, f)
		}
		if values[n-1] <= values[0]+featureThreshold {
			continue
		}
		visited++

		for k := range leftCounts {
			leftCounts[k] = 0
			rightCounts[k] = 0
		}
		for _, s := range order {
			rightCounts[b.y[s]]++
		}

		for i := 0; i < n-1; i++ {
			c := b.y[order[i]]
			leftCounts[c]++
			rightCounts[c]--

			nLeft := i + 1
			nRight := n - nLeft
			if values[i+1] <= values[i]+featureThreshold {
				continue
			}
			if nLeft < b.minSamplesLeaf || nRight < b.minSamplesLeaf {
				continue
			}

			li := b.criterion(leftCounts, float64(nLeft))
			ri := b.criterion(rightCounts, float64(nRight))
			improvement := nodeImpurity -
				(float64(nLeft)/float64(n))*li -
				(float64(nRight)/float64(n))*ri

			if best == nil || improvement > best.improvement {
				threshold := (values[i] + values[i+1]) / 2
				if threshold >= values[i+1] {
					threshold = values[i]
				}
				best = &splitCandidate{
					feature:     f,
					threshold:   threshold,
					pos:         nLeft,
					improvement: improvement,
					order:       order,
				}
			}
		}
	}
	return best
}
