package models

import (
	"math"
	"sort"

	"frauddetect/internal/metrics"
)

type gbTree struct {
	Feature   int
	Threshold float64
	LeftVal   float64
	RightVal  float64
}

// GradientBoosting boosts depth-1 regression trees on the logistic loss.
// When a validation set is supplied to Fit, training stops after
// EarlyStoppingRounds iterations without a validation AUC improvement and
// prediction replays only the trees up to the best round.
type GradientBoosting struct {
	NEstimators         int
	LearningRate        float64
	MinSamples          int
	MaxThresholdsPerFe  int
	EarlyStoppingRounds int

	Init  float64
	Trees []gbTree
	Best  int
}

func NewGradientBoosting() *GradientBoosting {
	return &GradientBoosting{
		NEstimators:         200,
		LearningRate:        0.05,
		MinSamples:          30,
		MaxThresholdsPerFe:  32,
		EarlyStoppingRounds: 50,
	}
}

func (gb *GradientBoosting) Name() string       { return "GradientBoosting" }
func (gb *GradientBoosting) BestIteration() int { return gb.Best }

func sigmoid(z float64) float64 { return 1.0 / (1.0 + math.Exp(-z)) }

func (gb *GradientBoosting) Fit(X [][]float64, y []int, Xval [][]float64, yval []int) error {
	n := len(X)
	if n == 0 {
		return nil
	}
	pos := 0
	for i := 0; i < n; i++ {
		if y[i] == 1 {
			pos++
		}
	}
	base := float64(pos) / float64(n)
	if base <= 1e-3 {
		base = 1e-3
	}
	if base >= 1-1e-3 {
		base = 1 - 1e-3
	}
	gb.Init = math.Log(base / (1.0 - base))
	gb.Trees = gb.Trees[:0]

	F := make([]float64, n)
	for i := 0; i < n; i++ {
		F[i] = gb.Init
	}
	var Fval []float64
	if len(Xval) > 0 {
		Fval = make([]float64, len(Xval))
		for i := range Fval {
			Fval[i] = gb.Init
		}
	}

	bestAUC := math.Inf(-1)
	gb.Best = 0
	stale := 0

	for m := 0; m < gb.NEstimators; m++ {
		r := make([]float64, n)
		for i := 0; i < n; i++ {
			r[i] = float64(y[i]) - sigmoid(F[i])
		}

		best := gbTree{Feature: -1}
		bestSSE := math.MaxFloat64
		nFeats := len(X[0])
		for j := 0; j < nFeats; j++ {
			for _, thr := range gbCandidateThresholds(X, j, gb.MaxThresholdsPerFe) {
				leftSum, leftCount := 0.0, 0.0
				rightSum, rightCount := 0.0, 0.0
				for i := 0; i < n; i++ {
					if X[i][j] <= thr {
						leftSum += r[i]
						leftCount++
					} else {
						rightSum += r[i]
						rightCount++
					}
				}
				if int(leftCount) < gb.MinSamples || int(rightCount) < gb.MinSamples {
					continue
				}
				leftAvg := leftSum / leftCount
				rightAvg := rightSum / rightCount

				leftSS, rightSS := 0.0, 0.0
				for i := 0; i < n; i++ {
					if X[i][j] <= thr {
						d := r[i] - leftAvg
						leftSS += d * d
					} else {
						d := r[i] - rightAvg
						rightSS += d * d
					}
				}
				if sse := leftSS + rightSS; sse < bestSSE {
					bestSSE = sse
					best = gbTree{Feature: j, Threshold: thr, LeftVal: leftAvg, RightVal: rightAvg}
				}
			}
		}
		if best.Feature == -1 {
			break
		}
		gb.Trees = append(gb.Trees, best)
		for i := 0; i < n; i++ {
			F[i] += gb.LearningRate * best.apply(X[i])
		}

		if Fval == nil {
			gb.Best = len(gb.Trees)
			continue
		}
		probs := make([]float64, len(Xval))
		for i := range Xval {
			Fval[i] += gb.LearningRate * best.apply(Xval[i])
			probs[i] = sigmoid(Fval[i])
		}
		if auc := metrics.ROCAUC(probs, yval); auc > bestAUC {
			bestAUC = auc
			gb.Best = len(gb.Trees)
			stale = 0
		} else {
			stale++
			if gb.EarlyStoppingRounds > 0 && stale >= gb.EarlyStoppingRounds {
				break
			}
		}
	}
	if gb.Best == 0 {
		gb.Best = len(gb.Trees)
	}
	return nil
}

func (t gbTree) apply(row []float64) float64 {
	if row[t.Feature] > t.Threshold {
		return t.RightVal
	}
	return t.LeftVal
}

func (gb *GradientBoosting) PredictProba(X [][]float64) []float64 {
	stop := gb.Best
	if stop <= 0 || stop > len(gb.Trees) {
		stop = len(gb.Trees)
	}
	out := make([]float64, len(X))
	for i := range X {
		f := gb.Init
		for _, t := range gb.Trees[:stop] {
			f += gb.LearningRate * t.apply(X[i])
		}
		out[i] = sigmoid(f)
	}
	return out
}

func (gb *GradientBoosting) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	for i, p := range gb.PredictProba(X) {
		if p >= 0.5 {
			out[i] = 1
		}
	}
	return out
}

func gbCandidateThresholds(X [][]float64, j int, nCand int) []float64 {
	if nCand <= 0 {
		nCand = 16
	}
	n := len(X)
	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		vals[i] = X[i][j]
	}
	sort.Float64s(vals)
	out := make([]float64, 0, nCand)
	for k := 1; k < nCand; k++ {
		idx := int(math.Round(float64(k) / float64(nCand) * float64(n-1)))
		if idx <= 0 || idx >= n {
			continue
		}
		thr := vals[idx]
		if len(out) == 0 || thr != out[len(out)-1] {
			out = append(out, thr)
		}
	}
	if len(out) == 0 {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += vals[i]
		}
		out = append(out, sum/float64(n))
	}
	return out
}
