package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"frauddetect/internal/config"
	"frauddetect/internal/data"
	"frauddetect/internal/metrics"
	"frauddetect/internal/train"
	"frauddetect/pkg/utils"
)

func main() {
	_ = godotenv.Load()
	logger := utils.Logger()
	defer logger.Sync()

	preset := flag.String("preset", "kfold", "Training preset: kfold|timesplit|ensemble")
	input := flag.String("input", "", "Input CSV (defaults to <data_dir>/transactions.csv)")
	regen := flag.Bool("regen", false, "Generate a synthetic dataset before training")
	n := flag.Int("n", 50000, "Synthetic rows when regenerating")
	latent := flag.Int("latent", 12, "Synthetic latent numeric columns")
	folds := flag.Int("folds", 0, "Override number of CV folds")
	algo := flag.String("algo", "", "Override algorithm: gb|lightgbm")
	estimators := flag.Int("estimators", 0, "Override boosting rounds")
	lr := flag.Float64("lr", 0, "Override learning rate")
	components := flag.Int("components", 0, "Override projection components")
	maxFeatures := flag.Int("max_features", 0, "Override selected feature count")
	curves := flag.Bool("curves", true, "Write ROC and PR curve PNGs")
	flag.Parse()

	cfg, err := config.Preset(*preset)
	if err != nil {
		logger.Fatal("invalid preset", zap.Error(err))
	}
	cfg = config.FromEnv(cfg)
	if *folds > 0 {
		cfg.Folds = *folds
	}
	if *algo != "" {
		cfg.Algo = *algo
	}
	if *estimators > 0 {
		cfg.Estimators = *estimators
	}
	if *lr > 0 {
		cfg.LearningRate = *lr
	}
	if *components > 0 {
		cfg.Components = *components
	}
	if *maxFeatures > 0 {
		cfg.MaxFeatures = *maxFeatures
	}
	if err := cfg.Columns.Validate(true); err != nil {
		logger.Fatal("column mapping rejected", zap.Error(err))
	}

	csvPath := *input
	if csvPath == "" {
		csvPath = filepath.Join(cfg.DataDir, "transactions.csv")
	}
	if *regen {
		logger.Info("generating synthetic dataset", zap.Int("n", *n), zap.String("out", csvPath))
		if err := data.GenerateSyntheticTransactions(*n, *latent, 0.02, cfg.Seed, csvPath); err != nil {
			logger.Fatal("dataset generation failed", zap.Error(err))
		}
	}

	logger.Info("training run",
		zap.String("preset", *preset),
		zap.String("algo", cfg.Algo),
		zap.Int("folds", cfg.Folds),
		zap.String("policy", cfg.Policy),
		zap.String("threshold_metric", cfg.ThresholdMetric))

	result, err := train.New(cfg, logger).Run(csvPath)
	if err != nil {
		logger.Fatal("training failed", zap.Error(err))
	}

	if *curves {
		rocPath := filepath.Join(cfg.OutputsDir, "roc_curve.png")
		prPath := filepath.Join(cfg.OutputsDir, "pr_curve.png")
		roc := metrics.ROCCurve(result.OOF, result.Labels)
		pr := metrics.PRCurve(result.OOF, result.Labels)
		if err := plotCurvePNG(rocPath, "ROC (out-of-fold)", "FPR", "TPR", roc); err != nil {
			logger.Warn("roc plot failed", zap.Error(err))
		}
		if err := plotCurvePNG(prPath, "Precision-Recall (out-of-fold)", "Recall", "Precision", pr); err != nil {
			logger.Warn("pr plot failed", zap.Error(err))
		} else {
			logger.Info("curves written", zap.String("roc", rocPath), zap.String("pr", prPath))
		}
	}

	logger.Info("done",
		zap.Float64("oof_auc", result.Metrics["oof_auc"]),
		zap.Float64("threshold", result.Threshold.Threshold))
}

func plotCurvePNG(path, title, xLabel, yLabel string, c metrics.Curve) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	pts := make(plotter.XYs, len(c.X))
	for i := range c.X {
		pts[i].X = c.X[i]
		pts[i].Y = c.Y[i]
	}
	if err := plotutil.AddLinePoints(p, title, pts); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}
