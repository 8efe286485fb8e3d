package models

import (
	"math"
	"math/rand"
)

type isoNode struct {
	Feature   int
	Threshold float64
	Left      *isoNode
	Right     *isoNode
	Size      int
}

// IsolationForest is an unsupervised anomaly scorer: random axis-aligned
// splits isolate outliers in short paths. It is fit on the training
// feature matrix only and never sees labels.
type IsolationForest struct {
	NTrees     int
	SampleSize int
	Seed       int64

	Trees []*isoNode
	// Psi is the per-tree sample size actually used, needed to
	// normalize path lengths at scoring time.
	Psi int
}

func NewIsolationForest() *IsolationForest {
	return &IsolationForest{NTrees: 200, SampleSize: 256, Seed: 42}
}

func (f *IsolationForest) Name() string { return "IsolationForest" }

func (f *IsolationForest) Fit(X [][]float64) {
	n := len(X)
	if n == 0 {
		return
	}
	psi := f.SampleSize
	if psi > n {
		psi = n
	}
	f.Psi = psi
	maxDepth := int(math.Ceil(math.Log2(float64(psi)))) + 1

	rng := rand.New(rand.NewSource(f.Seed))
	f.Trees = make([]*isoNode, f.NTrees)
	for t := 0; t < f.NTrees; t++ {
		sample := make([][]float64, psi)
		for i, idx := range rng.Perm(n)[:psi] {
			sample[i] = X[idx]
		}
		f.Trees[t] = buildIsoTree(sample, 0, maxDepth, rng)
	}
}

func buildIsoTree(X [][]float64, depth, maxDepth int, rng *rand.Rand) *isoNode {
	n := len(X)
	if n <= 1 || depth >= maxDepth {
		return &isoNode{Feature: -1, Size: n}
	}
	nFeats := len(X[0])
	// A few attempts to find a feature with spread; constant subsamples
	// become leaves.
	for attempt := 0; attempt < nFeats; attempt++ {
		j := rng.Intn(nFeats)
		lo, hi := X[0][j], X[0][j]
		for _, row := range X[1:] {
			if row[j] < lo {
				lo = row[j]
			}
			if row[j] > hi {
				hi = row[j]
			}
		}
		if hi <= lo {
			continue
		}
		thr := lo + rng.Float64()*(hi-lo)
		var left, right [][]float64
		for _, row := range X {
			if row[j] < thr {
				left = append(left, row)
			} else {
				right = append(right, row)
			}
		}
		return &isoNode{
			Feature:   j,
			Threshold: thr,
			Left:      buildIsoTree(left, depth+1, maxDepth, rng),
			Right:     buildIsoTree(right, depth+1, maxDepth, rng),
			Size:      n,
		}
	}
	return &isoNode{Feature: -1, Size: n}
}

// avgPathLength is the expected path length of an unsuccessful BST search
// over n points, the standard normalizer for isolation scores.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	const euler = 0.5772156649
	fn := float64(n)
	return 2*(math.Log(fn-1)+euler) - 2*(fn-1)/fn
}

func (node *isoNode) pathLength(row []float64, depth float64) float64 {
	if node.Feature == -1 {
		return depth + avgPathLength(node.Size)
	}
	if row[node.Feature] < node.Threshold {
		return node.Left.pathLength(row, depth+1)
	}
	return node.Right.pathLength(row, depth+1)
}

// Score returns the anomaly score s(x) in (0, 1]; values near 1 mark
// anomalies.
func (f *IsolationForest) Score(X [][]float64) []float64 {
	out := make([]float64, len(X))
	if len(f.Trees) == 0 {
		return out
	}
	c := avgPathLength(f.Psi)
	if c == 0 {
		c = 1
	}
	for i, row := range X {
		var sum float64
		for _, tree := range f.Trees {
			sum += tree.pathLength(row, 0)
		}
		mean := sum / float64(len(f.Trees))
		out[i] = math.Pow(2, -mean/c)
	}
	return out
}

// DecisionFunction maps scores so that negative values mark anomalies,
// centered at the 0.5 score contour. Points below the configured cutoff
// are treated as outliers downstream.
func (f *IsolationForest) DecisionFunction(X [][]float64) []float64 {
	out := f.Score(X)
	for i, s := range out {
		out[i] = 0.5 - s
	}
	return out
}
