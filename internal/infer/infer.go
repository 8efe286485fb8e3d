// Package infer replays the fitted pipeline over unseen transactions: the
// same cleaning and feature sequence as training, the persisted encoder
// and projection, an ensemble average over the fold models, and the stored
// decision policy.
package infer

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"frauddetect/internal/artifacts"
	"frauddetect/internal/clean"
	"frauddetect/internal/config"
	"frauddetect/internal/data"
	"frauddetect/internal/decision"
	"frauddetect/internal/encode"
	"frauddetect/internal/features"
	"frauddetect/internal/models"
	"frauddetect/internal/pca"
)

// Prediction is the scored verdict for one transaction.
type Prediction struct {
	ID           string
	Probability  float64
	AnomalyScore float64
	Fraud        bool
}

// Pipeline holds every fitted artifact needed to score a batch.
type Pipeline struct {
	Cfg config.Config
	Log *zap.Logger

	encoder     *encode.TargetEncoder
	basis       *pca.Basis
	selected    []string
	isoFeatures []string
	models      []models.Classifier
	iso         *models.IsolationForest
	engine      decision.Engine
}

// Load restores a pipeline from the configured models directory. A missing
// projection basis is only an error when the selected feature list expects
// projected columns.
func Load(cfg config.Config, log *zap.Logger) (*Pipeline, error) {
	store := artifacts.NewStore(cfg.ModelsDir)
	p := &Pipeline{Cfg: cfg, Log: log}

	var err error
	if p.encoder, err = store.LoadEncoder(); err != nil {
		return nil, err
	}
	if p.selected, err = store.LoadFeatures(); err != nil {
		return nil, err
	}
	if store.BasisExists() {
		if p.basis, err = store.LoadBasis(); err != nil {
			return nil, err
		}
	} else {
		for _, name := range p.selected {
			if strings.HasPrefix(name, "V_pca_") {
				return nil, artifacts.ErrProjectionArtifactMissing
			}
		}
	}
	if p.isoFeatures, err = store.LoadIsoFeatures(); err != nil {
		return nil, err
	}
	if p.models, err = store.LoadModels(); err != nil {
		return nil, err
	}
	if p.iso, err = store.LoadIsoForest(); err != nil {
		return nil, err
	}
	rec, err := store.LoadThreshold()
	if err != nil {
		return nil, err
	}
	// The decision engine replays the policy the threshold was tuned
	// under, not whatever preset this process was launched with.
	p.engine = decision.Engine{
		Policy:        decision.Policy(rec.Policy),
		Threshold:     rec.Threshold,
		Alpha:         rec.Alpha,
		AnomalyCutoff: rec.AnomalyCutoff,
	}
	log.Info("pipeline loaded",
		zap.Int("fold_models", len(p.models)),
		zap.Int("features", len(p.selected)),
		zap.String("policy", rec.Policy),
		zap.Float64("threshold", rec.Threshold))
	return p, nil
}

// Score runs the fitted pipeline over a raw frame.
func (p *Pipeline) Score(raw *data.Frame) ([]Prediction, error) {
	cols := p.Cfg.Columns
	frame := clean.Basic(raw)
	frame = clean.Impute(frame)
	frame = features.Engineer(frame, cols)
	frame = p.encoder.Apply(frame)
	if p.basis != nil {
		frame = p.basis.Apply(frame)
	}

	X := frame.Matrix(p.selected)
	probs := make([]float64, len(X))
	for _, m := range p.models {
		for i, pr := range m.PredictProba(X) {
			probs[i] += pr
		}
	}
	for i := range probs {
		probs[i] /= float64(len(p.models))
	}
	iso := p.iso.DecisionFunction(frame.Matrix(p.isoFeatures))
	flags := p.engine.Decide(probs, iso)

	ids := rowIDs(raw, cols.ID)
	out := make([]Prediction, len(probs))
	for i := range out {
		out[i] = Prediction{
			ID:           ids[i],
			Probability:  probs[i],
			AnomalyScore: iso[i],
			Fraud:        flags[i],
		}
	}
	return out, nil
}

func rowIDs(f *data.Frame, col string) []string {
	out := make([]string, f.Rows())
	if strs := f.Strings(col); strs != nil {
		copy(out, strs)
	} else if nums := f.Numeric(col); nums != nil {
		for i, v := range nums {
			out[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
	} else {
		for i := range out {
			out[i] = strconv.Itoa(i)
		}
	}
	return out
}

// TopN returns the n highest-probability predictions, most suspicious
// first.
func TopN(preds []Prediction, n int) []Prediction {
	sorted := append([]Prediction(nil), preds...)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].Probability > sorted[b].Probability
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// ScoreCSV scores a CSV batch and writes the predictions to the outputs
// directory.
func (p *Pipeline) ScoreCSV(path string) ([]Prediction, error) {
	raw, err := data.LoadCSV(path)
	if err != nil {
		return nil, err
	}
	preds, err := p.Score(raw)
	if err != nil {
		return nil, err
	}
	out := data.NewFrame(len(preds))
	ids := make([]string, len(preds))
	probs := make([]float64, len(preds))
	anomalies := make([]float64, len(preds))
	flags := make([]float64, len(preds))
	for i, pr := range preds {
		ids[i] = pr.ID
		probs[i] = pr.Probability
		anomalies[i] = pr.AnomalyScore
		if pr.Fraud {
			flags[i] = 1
		}
	}
	out.SetStrings(p.Cfg.Columns.ID, ids)
	out.SetNumeric("fraud_probability", probs)
	out.SetNumeric("anomaly_score", anomalies)
	out.SetNumeric("is_fraud_pred", flags)

	dest := filepath.Join(p.Cfg.OutputsDir, "new_predictions.csv")
	if err := data.WriteCSV(dest, out); err != nil {
		return nil, err
	}
	p.Log.Info("predictions written", zap.String("path", dest), zap.Int("rows", len(preds)))
	return preds, nil
}
