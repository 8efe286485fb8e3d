// Package split builds the leakage-safe partitions used during training:
// a chronological train/holdout cut and stratified cross-validation folds.
package split

import (
	"errors"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ErrNoPositiveExamples reports a fold whose training portion carries no
// positive label, which would make fold-wise encoder fitting degenerate.
var ErrNoPositiveExamples = errors.New("split: fold training set has no positive examples")

// Fold holds row indices into the training frame.
type Fold struct {
	Train []int
	Val   []int
}

// TimeSplit cuts rows at the given quantile of the time vector: rows
// strictly before the cutoff train, the rest are held out. All rows train
// when every timestamp is identical.
func TimeSplit(times []float64, quantile float64) (train, holdout []int) {
	sorted := append([]float64(nil), times...)
	sort.Float64s(sorted)
	cutoff := stat.Quantile(quantile, stat.LinInterp, sorted, nil)
	for i, t := range times {
		if t < cutoff {
			train = append(train, i)
		} else {
			holdout = append(holdout, i)
		}
	}
	if len(train) == 0 {
		return holdout, nil
	}
	return train, holdout
}

// StratifiedKFold shuffles indices per class and deals them round-robin
// into k folds, so every fold mirrors the global label balance. Each fold's
// validation set is disjoint and the union covers every row exactly once.
func StratifiedKFold(y []int, k int, seed int64) ([]Fold, error) {
	rng := rand.New(rand.NewSource(seed))
	byClass := map[int][]int{}
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	assignment := make([]int, len(y))
	for _, c := range classes {
		idx := byClass[c]
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		for j, row := range idx {
			assignment[row] = j % k
		}
	}

	folds := make([]Fold, k)
	for row, foldID := range assignment {
		for f := 0; f < k; f++ {
			if f == foldID {
				folds[f].Val = append(folds[f].Val, row)
			} else {
				folds[f].Train = append(folds[f].Train, row)
			}
		}
	}
	for _, f := range folds {
		positives := 0
		for _, row := range f.Train {
			if y[row] == 1 {
				positives++
			}
		}
		if positives == 0 {
			return nil, ErrNoPositiveExamples
		}
	}
	return folds, nil
}
