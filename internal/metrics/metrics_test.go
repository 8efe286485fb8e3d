package metrics

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	sepScores = []float64{0.9, 0.8, 0.7, 0.3, 0.2}
	sepLabels = []int{1, 1, 1, 0, 0}
)

func TestROCAUCPerfectRanking(t *testing.T) {
	assert.InDelta(t, 1.0, ROCAUC(sepScores, sepLabels), 1e-12)
}

func TestROCAUCInvertedRanking(t *testing.T) {
	scores := []float64{0.1, 0.2, 0.3, 0.8, 0.9}
	assert.InDelta(t, 0.0, ROCAUC(scores, sepLabels), 1e-12)
}

func TestROCAUCTies(t *testing.T) {
	scores := []float64{0.5, 0.5, 0.5, 0.5}
	labels := []int{1, 0, 1, 0}
	assert.InDelta(t, 0.5, ROCAUC(scores, labels), 1e-12)
}

func TestPRAUCPerfectRanking(t *testing.T) {
	assert.InDelta(t, 1.0, PRAUC(sepScores, sepLabels), 1e-9)
}

func TestBestF1Threshold(t *testing.T) {
	thr, f1 := BestF1Threshold(sepScores, sepLabels)
	assert.InDelta(t, 1.0, f1, 1e-9)
	// the loosest threshold that still keeps precision perfect
	assert.InDelta(t, 0.7, thr, 1e-12)
}

func TestYoudenThreshold(t *testing.T) {
	thr, j := YoudenThreshold(sepScores, sepLabels)
	assert.InDelta(t, 1.0, j, 1e-12)
	assert.InDelta(t, 0.7, thr, 1e-12)
}

func TestYoudenNoisyScores(t *testing.T) {
	scores := []float64{0.9, 0.8, 0.35, 0.6, 0.3, 0.2}
	labels := []int{1, 1, 1, 0, 0, 0}
	thr, j := YoudenThreshold(scores, labels)
	// 0.8 and 0.35 tie at J = 2/3; the sweep keeps the first maximum
	assert.InDelta(t, 0.8, thr, 1e-12)
	assert.InDelta(t, 2.0/3.0, j, 1e-12)
}

// At the Youden threshold, TPR - FPR must dominate the same statistic at
// the best-F1 threshold and at the default 0.5 cut.
func TestYoudenDominatesOnJ(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	n := 400
	scores := make([]float64, n)
	labels := make([]int, n)
	for i := range scores {
		if i%5 == 0 {
			labels[i] = 1
			scores[i] = 0.55 + 0.45*rng.Float64()
		} else {
			scores[i] = 0.7 * rng.Float64()
		}
	}

	jAt := func(thr float64) float64 {
		s := EvaluateAt(scores, labels, thr)
		tpr := float64(s.TP) / float64(s.TP+s.FN)
		fpr := float64(s.FP) / float64(s.FP+s.TN)
		return tpr - fpr
	}

	youdenThr, j := YoudenThreshold(scores, labels)
	f1Thr, _ := BestF1Threshold(scores, labels)
	assert.InDelta(t, j, jAt(youdenThr), 1e-12)
	assert.GreaterOrEqual(t, j, jAt(f1Thr))
	assert.GreaterOrEqual(t, j, jAt(0.5))
}

func TestEvaluateAt(t *testing.T) {
	s := EvaluateAt(sepScores, sepLabels, 0.5)
	assert.Equal(t, 3, s.TP)
	assert.Equal(t, 0, s.FP)
	assert.Equal(t, 2, s.TN)
	assert.Equal(t, 0, s.FN)
	assert.InDelta(t, 1.0, s.F1, 1e-12)

	s = EvaluateAt(sepScores, sepLabels, 0.85)
	assert.Equal(t, 1, s.TP)
	assert.Equal(t, 2, s.FN)
	assert.InDelta(t, 1.0, s.Precision, 1e-12)
	assert.InDelta(t, 1.0/3.0, s.Recall, 1e-12)
}
