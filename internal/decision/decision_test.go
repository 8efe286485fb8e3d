package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAnomaly(t *testing.T) {
	// inverted then min-max scaled: most negative raw score maps to 1
	got := NormalizeAnomaly([]float64{0.5, -0.5, 0.3})
	assert.InDeltaSlice(t, []float64{0, 1, 0.2}, got, 1e-12)
}

func TestNormalizeAnomalyConstant(t *testing.T) {
	got := NormalizeAnomaly([]float64{0.1, 0.1, 0.1})
	assert.Equal(t, []float64{0, 0, 0}, got)
}

func TestNormalizeAnomalySingleton(t *testing.T) {
	// a one-row batch has no range, so the anomaly term contributes 0 to
	// the weighted blend
	assert.Equal(t, []float64{0}, NormalizeAnomaly([]float64{-0.7}))

	e := Engine{Policy: PolicyWeighted, Alpha: 0.85}
	got := e.Combine([]float64{0.6}, []float64{-0.7})
	assert.InDelta(t, 0.85*0.6, got[0], 1e-12)
}

func TestWeightedCombine(t *testing.T) {
	e := Engine{Policy: PolicyWeighted, Alpha: 0.85}
	probs := []float64{0.1, 0.2, 0.9}
	iso := []float64{0.5, -0.5, 0.3}

	got := e.Combine(probs, iso)
	// 0.85*0.9 + 0.15*0.2
	assert.InDelta(t, 0.795, got[2], 1e-12)
	// 0.85*0.2 + 0.15*1
	assert.InDelta(t, 0.32, got[1], 1e-12)
}

func TestOrCombineIsIdentity(t *testing.T) {
	e := Engine{Policy: PolicyOr}
	probs := []float64{0.3, 0.7}
	got := e.Combine(probs, []float64{-1, 1})
	assert.Equal(t, probs, got)
	// must be a copy, not an alias
	got[0] = 99
	assert.Equal(t, 0.3, probs[0])
}

func TestDecideOrPolicy(t *testing.T) {
	e := Engine{Policy: PolicyOr, Threshold: 0.6, AnomalyCutoff: -0.2}
	probs := []float64{0.7, 0.1, 0.1, 0.59}
	iso := []float64{0.1, -0.5, -0.1, -0.2}

	got := e.Decide(probs, iso)
	assert.Equal(t, []bool{true, true, false, false}, got)
}

func TestDecideWeightedPolicy(t *testing.T) {
	e := Engine{Policy: PolicyWeighted, Threshold: 0.5, Alpha: 0.85}
	probs := []float64{0.9, 0.1, 0.5}
	iso := []float64{0.4, 0.4, -0.6}

	got := e.Decide(probs, iso)
	// combined: 0.765, 0.085, 0.575
	assert.Equal(t, []bool{true, false, true}, got)
}
