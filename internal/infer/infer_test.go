package infer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"frauddetect/internal/artifacts"
	"frauddetect/internal/config"
	"frauddetect/internal/data"
	"frauddetect/internal/decision"
	"frauddetect/internal/encode"
	"frauddetect/internal/models"
)

func seedArtifacts(t *testing.T, store *artifacts.Store, rec artifacts.ThresholdRecord) {
	t.Helper()

	f := data.NewFrame(4)
	f.SetStrings("device_used", []string{"mobile", "web", "mobile", "web"})
	f.SetNumeric("fraud_flag", []float64{1, 0, 1, 0})
	require.NoError(t, store.SaveEncoder(encode.Fit(f, []string{"device_used"}, "fraud_flag", 0.3)))
	require.NoError(t, store.SaveFeatures([]string{"amount"}))
	require.NoError(t, store.SaveIsoFeatures([]string{"amount"}))

	rng := rand.New(rand.NewSource(7))
	X := make([][]float64, 120)
	y := make([]int, 120)
	for i := range X {
		v := rng.Float64()
		X[i] = []float64{v}
		if v > 0.5 {
			y[i] = 1
		}
	}
	gb := models.NewGradientBoosting()
	gb.NEstimators = 10
	gb.MinSamples = 5
	require.NoError(t, gb.Fit(X, y, nil, nil))
	require.NoError(t, store.SaveModel(gb, 0))

	iso := models.NewIsolationForest()
	iso.NTrees = 10
	iso.Fit(X)
	require.NoError(t, store.SaveIsoForest(iso))
	require.NoError(t, store.SaveThreshold(rec))
}

// The engine must come from the persisted threshold record, not from the
// preset the scoring process happens to run under.
func TestLoadEngineFromThresholdRecord(t *testing.T) {
	cfg := config.Default()
	cfg.ModelsDir = t.TempDir()
	cfg.Policy = "or"
	cfg.Alpha = 0.5
	cfg.AnomalyCutoff = -0.9

	rec := artifacts.ThresholdRecord{
		Threshold:     0.37,
		Metric:        "youden",
		Value:         0.6,
		Policy:        "weighted",
		Alpha:         0.85,
		AnomalyCutoff: -0.2,
	}
	seedArtifacts(t, artifacts.NewStore(cfg.ModelsDir), rec)

	p, err := Load(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, decision.PolicyWeighted, p.engine.Policy)
	assert.Equal(t, rec.Threshold, p.engine.Threshold)
	assert.Equal(t, rec.Alpha, p.engine.Alpha)
	assert.Equal(t, rec.AnomalyCutoff, p.engine.AnomalyCutoff)
}
