package train

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"frauddetect/internal/artifacts"
	"frauddetect/internal/config"
	"frauddetect/internal/data"
	"frauddetect/internal/infer"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(root, "data")
	cfg.ModelsDir = filepath.Join(root, "models")
	cfg.OutputsDir = filepath.Join(root, "outputs")
	cfg.Folds = 3
	cfg.Estimators = 15
	cfg.MinSamples = 5
	cfg.Components = 3
	cfg.MaxFeatures = 25
	cfg.IsoTrees = 30
	cfg.IsoSampleSize = 128
	return cfg
}

func TestRunEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("full pipeline run")
	}
	cfg := testConfig(t)
	csvPath := filepath.Join(cfg.DataDir, "transactions.csv")
	require.NoError(t, data.GenerateSyntheticTransactions(800, 6, 0.08, cfg.Seed, csvPath))

	result, err := New(cfg, zap.NewNop()).Run(csvPath)
	require.NoError(t, err)

	require.Len(t, result.OOF, len(result.Labels))
	for _, p := range result.OOF {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
	assert.Greater(t, result.Metrics["oof_auc"], 0.5, "structural fraud signal must rank above chance")
	assert.Equal(t, float64(cfg.Folds), result.Metrics["folds"])
	assert.Greater(t, result.Threshold.Threshold, 0.0)
	assert.Equal(t, "f1", result.Threshold.Metric)

	for _, name := range []string{
		"target_encoder.gob", "pca_full.gob", "selected_features.json",
		"model_fold0.gob", "model_fold1.gob", "model_fold2.gob",
		"isoforest.gob", "isoforest_features.json", "threshold.json",
	} {
		_, err := os.Stat(filepath.Join(cfg.ModelsDir, name))
		assert.NoError(t, err, name)
	}
	_, err = os.Stat(filepath.Join(cfg.OutputsDir, "evaluation_metrics.json"))
	assert.NoError(t, err)

	// The anomaly model sees exactly the selected feature set.
	store := artifacts.NewStore(cfg.ModelsDir)
	selected, err := store.LoadFeatures()
	require.NoError(t, err)
	isoFeats, err := store.LoadIsoFeatures()
	require.NoError(t, err)
	assert.Equal(t, selected, isoFeats)

	rec, err := store.LoadThreshold()
	require.NoError(t, err)
	assert.Equal(t, cfg.Policy, rec.Policy)
	assert.Equal(t, cfg.Alpha, rec.Alpha)
	assert.Equal(t, cfg.AnomalyCutoff, rec.AnomalyCutoff)
}

func TestRunThenScore(t *testing.T) {
	if testing.Short() {
		t.Skip("full pipeline run")
	}
	cfg := testConfig(t)
	csvPath := filepath.Join(cfg.DataDir, "transactions.csv")
	require.NoError(t, data.GenerateSyntheticTransactions(600, 6, 0.08, cfg.Seed, csvPath))

	_, err := New(cfg, zap.NewNop()).Run(csvPath)
	require.NoError(t, err)

	pipeline, err := infer.Load(cfg, zap.NewNop())
	require.NoError(t, err)

	newPath := filepath.Join(cfg.DataDir, "new_transactions.csv")
	require.NoError(t, data.GenerateSyntheticTransactions(120, 6, 0.08, cfg.Seed+1, newPath))
	preds, err := pipeline.ScoreCSV(newPath)
	require.NoError(t, err)
	require.Len(t, preds, 120)

	flagged := 0
	for _, p := range preds {
		assert.NotEmpty(t, p.ID)
		assert.GreaterOrEqual(t, p.Probability, 0.0)
		assert.LessOrEqual(t, p.Probability, 1.0)
		if p.Fraud {
			flagged++
		}
	}
	assert.Greater(t, flagged, 0, "synthetic batch carries structural frauds")

	top := infer.TopN(preds, 10)
	require.Len(t, top, 10)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].Probability, top[i].Probability)
	}

	_, err = os.Stat(filepath.Join(cfg.OutputsDir, "new_predictions.csv"))
	assert.NoError(t, err)
}

func TestRunMissingInput(t *testing.T) {
	cfg := testConfig(t)
	_, err := New(cfg, zap.NewNop()).Run(filepath.Join(cfg.DataDir, "absent.csv"))
	assert.ErrorIs(t, err, data.ErrMissingInputFile)
}
