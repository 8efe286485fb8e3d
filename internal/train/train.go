// Package train runs the full offline training flow: cleaning, feature
// engineering, a chronological holdout cut, fold-wise refitting of the
// target encoder and projection, out-of-fold scoring, anomaly model
// fitting, and threshold selection. All leakage-sensitive state is fitted
// inside each fold's training portion only.
package train

import (
	"fmt"
	"math"
	"path/filepath"

	"go.uber.org/zap"

	"frauddetect/internal/artifacts"
	"frauddetect/internal/clean"
	"frauddetect/internal/config"
	"frauddetect/internal/data"
	"frauddetect/internal/decision"
	"frauddetect/internal/encode"
	"frauddetect/internal/features"
	"frauddetect/internal/metrics"
	"frauddetect/internal/models"
	"frauddetect/internal/pca"
	"frauddetect/internal/split"
)

// Result carries everything the caller needs for reporting after a run.
type Result struct {
	OOF       []float64
	Labels    []int
	Holdout   []float64
	HoldLabel []int
	Threshold artifacts.ThresholdRecord
	Metrics   map[string]float64
}

// Orchestrator owns one training run.
type Orchestrator struct {
	Cfg config.Config
	Log *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) *Orchestrator {
	return &Orchestrator{Cfg: cfg, Log: log}
}

func (o *Orchestrator) newClassifier(fold int) models.Classifier {
	cfg := o.Cfg
	if cfg.Algo == "lightgbm" {
		m := models.NewLightGBMCLI(filepath.Join(cfg.ModelsDir, fmt.Sprintf("lgbm_fold%d", fold)))
		m.NumIterations = cfg.Estimators
		m.LearningRate = cfg.LearningRate
		m.EarlyStoppingRounds = cfg.EarlyStoppingRounds
		return m
	}
	m := models.NewGradientBoosting()
	m.NEstimators = cfg.Estimators
	m.LearningRate = cfg.LearningRate
	m.MinSamples = cfg.MinSamples
	m.EarlyStoppingRounds = cfg.EarlyStoppingRounds
	return m
}

func labelsOf(f *data.Frame, label string) []int {
	vals := f.Numeric(label)
	out := make([]int, len(vals))
	for i, v := range vals {
		if v >= 0.5 {
			out[i] = 1
		}
	}
	return out
}

// Run executes training end to end and persists all artifacts.
func (o *Orchestrator) Run(csvPath string) (*Result, error) {
	cfg := o.Cfg
	cols := cfg.Columns
	log := o.Log

	raw, err := data.LoadCSV(csvPath)
	if err != nil {
		return nil, err
	}
	log.Info("loaded dataset", zap.Int("rows", raw.Rows()), zap.Int("columns", len(raw.Names())))

	frame := clean.Basic(raw)
	frame = clean.Impute(frame)
	frame, dropped, err := clean.DropUnlabeled(frame, cols.Label)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		log.Info("dropped unlabeled rows", zap.Int("rows", dropped))
	}

	frame = features.Engineer(frame, cols)

	times := features.TimeValues(frame, cols)
	trainIdx, holdIdx := split.TimeSplit(times, cfg.HoldoutQuantile)
	trainBase := frame.Subset(trainIdx)
	holdBase := frame.Subset(holdIdx)
	log.Info("chronological split",
		zap.Int("train", trainBase.Rows()), zap.Int("holdout", holdBase.Rows()))

	store := artifacts.NewStore(cfg.ModelsDir)

	// Full-train encoder and projection: used only for holdout scoring
	// and persisted for inference. Never touch the folds below.
	encFull := encode.Fit(trainBase, cols.Categorical, cols.Label, cfg.Smoothing)
	trainEnc := encFull.Apply(trainBase)
	basisFull, trainProj, err := pca.Fit(trainEnc, cols.ProjectionPrefix, cfg.Components)
	if err != nil {
		return nil, err
	}
	if err := store.SaveEncoder(encFull); err != nil {
		return nil, err
	}
	if basisFull != nil {
		if err := store.SaveBasis(basisFull, -1); err != nil {
			return nil, err
		}
	}

	selected := features.Select(trainProj, cols, cfg.MaxFeatures)
	if err := store.SaveFeatures(selected); err != nil {
		return nil, err
	}
	log.Info("selected features", zap.Int("count", len(selected)))

	y := labelsOf(trainBase, cols.Label)
	folds, err := split.StratifiedKFold(y, cfg.Folds, cfg.Seed)
	if err != nil {
		return nil, err
	}

	holdEnc := encFull.Apply(holdBase)
	if basisFull != nil {
		holdEnc = basisFull.Apply(holdEnc)
	}
	XHold := holdEnc.Matrix(selected)
	yHold := labelsOf(holdBase, cols.Label)
	holdSum := make([]float64, len(XHold))

	oof := make([]float64, trainBase.Rows())
	for k, fold := range folds {
		foldTrain := trainBase.Subset(fold.Train)
		foldVal := trainBase.Subset(fold.Val)

		encFold := encode.Fit(foldTrain, cols.Categorical, cols.Label, cfg.Smoothing)
		ftEnc := encFold.Apply(foldTrain)
		fvEnc := encFold.Apply(foldVal)

		basisFold, ftEnc, err := pca.Fit(ftEnc, cols.ProjectionPrefix, cfg.Components)
		if err != nil {
			return nil, err
		}
		if basisFold != nil {
			fvEnc = basisFold.Apply(fvEnc)
			if err := store.SaveBasis(basisFold, k); err != nil {
				return nil, err
			}
		}

		Xtr := ftEnc.Matrix(selected)
		Xval := fvEnc.Matrix(selected)
		ytr := make([]int, len(fold.Train))
		yval := make([]int, len(fold.Val))
		for i, row := range fold.Train {
			ytr[i] = y[row]
		}
		for i, row := range fold.Val {
			yval[i] = y[row]
		}

		model := o.newClassifier(k)
		if err := model.Fit(Xtr, ytr, Xval, yval); err != nil {
			return nil, fmt.Errorf("fold %d: %w", k, err)
		}
		for i, p := range model.PredictProba(Xval) {
			oof[fold.Val[i]] = p
		}
		for i, p := range model.PredictProba(XHold) {
			holdSum[i] += p
		}
		if err := store.SaveModel(model, k); err != nil {
			return nil, err
		}
		log.Info("fold trained",
			zap.Int("fold", k),
			zap.String("model", model.Name()),
			zap.Int("best_iteration", model.BestIteration()))
	}

	oofAUC := metrics.ROCAUC(oof, y)
	log.Info("out-of-fold ranking", zap.Float64("auc", oofAUC))

	// Anomaly model on the full training partition, labels unseen, bound
	// to the same selected feature set as the fold models.
	XIso := trainProj.Matrix(selected)
	iso := models.NewIsolationForest()
	iso.NTrees = cfg.IsoTrees
	iso.SampleSize = cfg.IsoSampleSize
	iso.Seed = cfg.Seed
	iso.Fit(XIso)
	if err := store.SaveIsoForest(iso); err != nil {
		return nil, err
	}
	if err := store.SaveIsoFeatures(selected); err != nil {
		return nil, err
	}
	isoTrain := iso.DecisionFunction(XIso)

	// Threshold search runs on out-of-fold scores only.
	engine := decision.Engine{
		Policy:        decision.Policy(cfg.Policy),
		Alpha:         cfg.Alpha,
		AnomalyCutoff: cfg.AnomalyCutoff,
	}
	search := engine.Combine(oof, isoTrain)
	rec := artifacts.ThresholdRecord{
		Metric:        cfg.ThresholdMetric,
		Policy:        cfg.Policy,
		Alpha:         cfg.Alpha,
		AnomalyCutoff: cfg.AnomalyCutoff,
	}
	if cfg.ThresholdMetric == "youden" {
		rec.Threshold, rec.Value = metrics.YoudenThreshold(search, y)
	} else {
		rec.Threshold, rec.Value = metrics.BestF1Threshold(search, y)
	}
	if err := store.SaveThreshold(rec); err != nil {
		return nil, err
	}
	log.Info("threshold selected",
		zap.String("metric", rec.Metric),
		zap.Float64("threshold", rec.Threshold),
		zap.Float64("value", rec.Value))

	holdProbs := make([]float64, len(holdSum))
	for i, s := range holdSum {
		holdProbs[i] = s / float64(len(folds))
	}
	valAUC := math.NaN()
	if hasBothClasses(yHold) {
		valAUC = metrics.ROCAUC(holdProbs, yHold)
		log.Info("holdout ranking", zap.Float64("auc", valAUC))
	}

	result := &Result{
		OOF:       oof,
		Labels:    y,
		Holdout:   holdProbs,
		HoldLabel: yHold,
		Threshold: rec,
		Metrics: map[string]float64{
			"oof_auc":                 oofAUC,
			"best_threshold":          rec.Threshold,
			"threshold_" + rec.Metric: rec.Value,
			"folds":                   float64(len(folds)),
			"train_rows":              float64(trainBase.Rows()),
			"holdout_rows":            float64(holdBase.Rows()),
		},
	}
	if !math.IsNaN(valAUC) {
		result.Metrics["holdout_auc"] = valAUC
	}
	metricsPath := filepath.Join(cfg.OutputsDir, "evaluation_metrics.json")
	if err := artifacts.WriteJSON(metricsPath, result.Metrics); err != nil {
		return nil, err
	}
	return result, nil
}

func hasBothClasses(y []int) bool {
	var pos, neg bool
	for _, v := range y {
		if v == 1 {
			pos = true
		} else {
			neg = true
		}
	}
	return pos && neg
}
