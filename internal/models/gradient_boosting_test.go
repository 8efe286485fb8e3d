package models

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func separable(n int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		v := rng.Float64()
		X[i] = []float64{v, rng.NormFloat64()}
		if v > 0.5 {
			y[i] = 1
		}
	}
	return X, y
}

func TestGradientBoostingLearnsSeparableData(t *testing.T) {
	X, y := separable(400, 1)
	gb := NewGradientBoosting()
	gb.NEstimators = 40
	gb.LearningRate = 0.3
	gb.MinSamples = 5
	require.NoError(t, gb.Fit(X, y, nil, nil))
	require.NotEmpty(t, gb.Trees)

	probs := gb.PredictProba([][]float64{{0.9, 0}, {0.1, 0}})
	assert.Greater(t, probs[0], probs[1])
	assert.Greater(t, probs[0], 0.5)
	assert.Less(t, probs[1], 0.5)
	for _, p := range probs {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestGradientBoostingEarlyStopping(t *testing.T) {
	X, y := separable(400, 2)
	Xval, yval := separable(100, 3)

	gb := NewGradientBoosting()
	gb.NEstimators = 100
	gb.LearningRate = 0.3
	gb.MinSamples = 5
	gb.EarlyStoppingRounds = 5
	require.NoError(t, gb.Fit(X, y, Xval, yval))

	best := gb.BestIteration()
	assert.Greater(t, best, 0)
	assert.LessOrEqual(t, best, len(gb.Trees))
}

func TestGradientBoostingInitOnEmptyTrees(t *testing.T) {
	// A model with no usable split still predicts the base rate.
	X := [][]float64{{1}, {1}, {1}, {1}}
	y := []int{1, 0, 1, 0}
	gb := NewGradientBoosting()
	gb.MinSamples = 2
	require.NoError(t, gb.Fit(X, y, nil, nil))

	p := gb.PredictProba([][]float64{{1}})[0]
	assert.InDelta(t, 0.5, p, 1e-9)
}

func TestGradientBoostingPredictThreshold(t *testing.T) {
	X, y := separable(300, 4)
	gb := NewGradientBoosting()
	gb.NEstimators = 30
	gb.LearningRate = 0.3
	gb.MinSamples = 5
	require.NoError(t, gb.Fit(X, y, nil, nil))

	preds := gb.Predict(X)
	correct := 0
	for i := range preds {
		if preds[i] == y[i] {
			correct++
		}
	}
	assert.Greater(t, float64(correct)/float64(len(y)), 0.9)
}
