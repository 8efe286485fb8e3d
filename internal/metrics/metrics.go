// Package metrics implements the ranking and thresholding measures used to
// evaluate fraud scores: ROC/PR curves and their areas, plus the two
// supported threshold selectors (best F1 and Youden's J).
package metrics

import (
	"math"
	"sort"
)

// Curve is a sequence of (X, Y) points with the score threshold that
// produced each point.
type Curve struct {
	X          []float64
	Y          []float64
	Thresholds []float64
}

type pair struct {
	score float64
	label int
}

func sortedPairs(scores []float64, y []int) []pair {
	ps := make([]pair, len(scores))
	for i := range scores {
		ps[i] = pair{scores[i], y[i]}
	}
	sort.SliceStable(ps, func(a, b int) bool { return ps[a].score > ps[b].score })
	return ps
}

// ROCCurve sweeps every distinct score as a threshold, from permissive to
// strict, yielding FPR on X and TPR on Y.
func ROCCurve(scores []float64, y []int) Curve {
	ps := sortedPairs(scores, y)
	var pos, neg float64
	for _, p := range ps {
		if p.label == 1 {
			pos++
		} else {
			neg++
		}
	}
	c := Curve{X: []float64{0}, Y: []float64{0}, Thresholds: []float64{math.Inf(1)}}
	var tp, fp float64
	for i, p := range ps {
		if p.label == 1 {
			tp++
		} else {
			fp++
		}
		if i+1 < len(ps) && ps[i+1].score == p.score {
			continue
		}
		tpr, fpr := 0.0, 0.0
		if pos > 0 {
			tpr = tp / pos
		}
		if neg > 0 {
			fpr = fp / neg
		}
		c.X = append(c.X, fpr)
		c.Y = append(c.Y, tpr)
		c.Thresholds = append(c.Thresholds, p.score)
	}
	return c
}

// ROCAUC integrates the ROC curve with the trapezoid rule.
func ROCAUC(scores []float64, y []int) float64 {
	c := ROCCurve(scores, y)
	var auc float64
	for i := 1; i < len(c.X); i++ {
		auc += (c.X[i] - c.X[i-1]) * (c.Y[i] + c.Y[i-1]) / 2
	}
	return auc
}

// PRCurve sweeps score thresholds yielding recall on X and precision on Y.
func PRCurve(scores []float64, y []int) Curve {
	ps := sortedPairs(scores, y)
	var pos float64
	for _, p := range ps {
		if p.label == 1 {
			pos++
		}
	}
	c := Curve{}
	var tp, predicted float64
	for i, p := range ps {
		predicted++
		if p.label == 1 {
			tp++
		}
		if i+1 < len(ps) && ps[i+1].score == p.score {
			continue
		}
		recall := 0.0
		if pos > 0 {
			recall = tp / pos
		}
		c.X = append(c.X, recall)
		c.Y = append(c.Y, tp/predicted)
		c.Thresholds = append(c.Thresholds, p.score)
	}
	return c
}

// PRAUC is the average-precision style step sum over the curve.
func PRAUC(scores []float64, y []int) float64 {
	c := PRCurve(scores, y)
	var auc, prevRec float64
	for i := range c.X {
		auc += (c.X[i] - prevRec) * c.Y[i]
		prevRec = c.X[i]
	}
	return auc
}

// BestF1Threshold walks the precision/recall curve and returns the score
// threshold maximizing F1, together with that F1.
func BestF1Threshold(scores []float64, y []int) (threshold, f1 float64) {
	c := PRCurve(scores, y)
	threshold = 0.5
	for i := range c.Thresholds {
		p, r := c.Y[i], c.X[i]
		f := 2 * p * r / (p + r + 1e-9)
		if f > f1 {
			f1 = f
			threshold = c.Thresholds[i]
		}
	}
	return threshold, f1
}

// YoudenThreshold walks the ROC curve and returns the score threshold
// maximizing Youden's J statistic (TPR - FPR), together with that J.
func YoudenThreshold(scores []float64, y []int) (threshold, j float64) {
	c := ROCCurve(scores, y)
	threshold = 0.5
	j = math.Inf(-1)
	for i := 1; i < len(c.Thresholds); i++ {
		if stat := c.Y[i] - c.X[i]; stat > j {
			j = stat
			threshold = c.Thresholds[i]
		}
	}
	return threshold, j
}

// Summary bundles the classification measures reported at a fixed
// threshold.
type Summary struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	TP        int
	FP        int
	TN        int
	FN        int
}

// EvaluateAt applies a decision vector (or probabilities against a
// threshold) and tallies the confusion counts and derived rates.
func EvaluateAt(scores []float64, y []int, threshold float64) Summary {
	var s Summary
	for i, score := range scores {
		pred := score >= threshold
		actual := y[i] == 1
		switch {
		case pred && actual:
			s.TP++
		case pred && !actual:
			s.FP++
		case !pred && actual:
			s.FN++
		default:
			s.TN++
		}
	}
	total := float64(s.TP + s.FP + s.TN + s.FN)
	if total > 0 {
		s.Accuracy = float64(s.TP+s.TN) / total
	}
	if s.TP+s.FP > 0 {
		s.Precision = float64(s.TP) / float64(s.TP+s.FP)
	}
	if s.TP+s.FN > 0 {
		s.Recall = float64(s.TP) / float64(s.TP+s.FN)
	}
	if s.Precision+s.Recall > 0 {
		s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
	}
	return s
}
