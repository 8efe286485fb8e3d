// Package decision turns the supervised probability and the unsupervised
// anomaly score into a single fraud verdict.
package decision

import "math"

// Policy selects how the two scores are combined.
type Policy string

const (
	// PolicyOr flags when either detector fires: probability at or above
	// the threshold, or anomaly score below the cutoff.
	PolicyOr Policy = "or"
	// PolicyWeighted blends the probability with the normalized inverted
	// anomaly score and thresholds the blend.
	PolicyWeighted Policy = "weighted"
)

// Engine applies a decision policy with fitted parameters.
type Engine struct {
	Policy        Policy
	Threshold     float64
	Alpha         float64
	AnomalyCutoff float64
}

// NormalizeAnomaly inverts raw anomaly scores (so higher means more
// anomalous) and min-max scales them to [0, 1] within the batch. A
// constant batch maps to all zeros, which means single-row batches
// always normalize to 0 and the anomaly term drops out of the weighted
// blend. Callers scoring rows one at a time should batch them when the
// weighted policy is in effect.
func NormalizeAnomaly(iso []float64) []float64 {
	out := make([]float64, len(iso))
	if len(iso) == 0 {
		return out
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, v := range iso {
		out[i] = -v
		if out[i] < lo {
			lo = out[i]
		}
		if out[i] > hi {
			hi = out[i]
		}
	}
	if hi <= lo {
		for i := range out {
			out[i] = 0
		}
		return out
	}
	for i := range out {
		out[i] = (out[i] - lo) / (hi - lo)
	}
	return out
}

// Combine produces the score the threshold applies to. Under the OR
// policy that is the raw probability; under the weighted policy it is
// alpha*p + (1-alpha)*normalized anomaly.
func (e Engine) Combine(probs, iso []float64) []float64 {
	if e.Policy != PolicyWeighted {
		return append([]float64(nil), probs...)
	}
	norm := NormalizeAnomaly(iso)
	out := make([]float64, len(probs))
	for i := range probs {
		out[i] = e.Alpha*probs[i] + (1-e.Alpha)*norm[i]
	}
	return out
}

// Decide returns the per-row fraud flags for a batch.
func (e Engine) Decide(probs, iso []float64) []bool {
	out := make([]bool, len(probs))
	if e.Policy == PolicyWeighted {
		for i, s := range e.Combine(probs, iso) {
			out[i] = s >= e.Threshold
		}
		return out
	}
	for i := range probs {
		out[i] = probs[i] >= e.Threshold || iso[i] < e.AnomalyCutoff
	}
	return out
}
