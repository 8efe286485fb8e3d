// Package artifacts persists and restores everything a fitted pipeline
// needs to score unseen data: the target encoder, projection bases, fold
// models, the anomaly model, feature lists, and the selected threshold.
// Fitted state goes through gob; human-readable records through JSON.
package artifacts

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"frauddetect/internal/encode"
	"frauddetect/internal/models"
	"frauddetect/internal/pca"
)

// ErrProjectionArtifactMissing reports a scoring run that expects
// projection columns but cannot find the fitted basis on disk.
var ErrProjectionArtifactMissing = errors.New("artifacts: fitted projection basis not found")

const (
	encoderFile     = "target_encoder.gob"
	basisFile       = "pca_full.gob"
	foldBasisFmt    = "pca_fold%d.gob"
	foldModelFmt    = "model_fold%d.gob"
	isoFile         = "isoforest.gob"
	featuresFile    = "selected_features.json"
	isoFeaturesFile = "isoforest_features.json"
	thresholdFile   = "threshold.json"
)

func init() {
	gob.Register(&models.GradientBoosting{})
	gob.Register(&models.LightGBMCLI{})
}

// ThresholdRecord stores the selected decision threshold together with
// the criterion that chose it and the policy parameters it was selected
// under. Scoring rebuilds its decision engine from this record so the
// threshold is never applied under a different policy than the one it
// was tuned for.
type ThresholdRecord struct {
	Threshold     float64 `json:"threshold"`
	Metric        string  `json:"metric"`
	Value         float64 `json:"value"`
	Policy        string  `json:"policy"`
	Alpha         float64 `json:"alpha"`
	AnomalyCutoff float64 `json:"anomaly_cutoff"`
}

// Store reads and writes pipeline artifacts under a single directory.
type Store struct {
	Dir string
}

func NewStore(dir string) *Store { return &Store{Dir: dir} }

func (s *Store) saveGob(name string, v any) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(s.Dir, name))
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(v)
}

func (s *Store) loadGob(name string, v any) error {
	f, err := os.Open(filepath.Join(s.Dir, name))
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v)
}

func (s *Store) SaveEncoder(enc *encode.TargetEncoder) error {
	return s.saveGob(encoderFile, enc)
}

func (s *Store) LoadEncoder() (*encode.TargetEncoder, error) {
	var enc encode.TargetEncoder
	if err := s.loadGob(encoderFile, &enc); err != nil {
		return nil, err
	}
	return &enc, nil
}

// SaveBasis persists a projection basis; fold < 0 saves the full-train
// basis used at scoring time.
func (s *Store) SaveBasis(b *pca.Basis, fold int) error {
	name := basisFile
	if fold >= 0 {
		name = fmt.Sprintf(foldBasisFmt, fold)
	}
	return s.saveGob(name, b)
}

// LoadBasis restores the full-train basis. A missing file maps to
// ErrProjectionArtifactMissing so callers can distinguish "projection was
// never fitted" from IO failures.
func (s *Store) LoadBasis() (*pca.Basis, error) {
	var b pca.Basis
	if err := s.loadGob(basisFile, &b); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrProjectionArtifactMissing
		}
		return nil, err
	}
	return &b, nil
}

// BasisExists reports whether a full-train basis was persisted, without
// decoding it.
func (s *Store) BasisExists() bool {
	_, err := os.Stat(filepath.Join(s.Dir, basisFile))
	return err == nil
}

type modelHolder struct {
	M models.Classifier
}

func (s *Store) SaveModel(m models.Classifier, fold int) error {
	return s.saveGob(fmt.Sprintf(foldModelFmt, fold), &modelHolder{M: m})
}

// LoadModels restores every persisted fold model, ordered by fold index.
func (s *Store) LoadModels() ([]models.Classifier, error) {
	paths, err := filepath.Glob(filepath.Join(s.Dir, "model_fold*.gob"))
	if err != nil {
		return nil, err
	}
	// Lexicographic path order breaks past nine folds; sort on the fold
	// index instead.
	sort.Slice(paths, func(a, b int) bool {
		return foldIndex(paths[a]) < foldIndex(paths[b])
	})
	out := make([]models.Classifier, 0, len(paths))
	for _, p := range paths {
		var h modelHolder
		if err := s.loadGob(filepath.Base(p), &h); err != nil {
			return nil, err
		}
		out = append(out, h.M)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("artifacts: no fold models in %s", s.Dir)
	}
	return out, nil
}

func foldIndex(path string) int {
	var k int
	if _, err := fmt.Sscanf(filepath.Base(path), foldModelFmt, &k); err != nil {
		return -1
	}
	return k
}

func (s *Store) SaveIsoForest(f *models.IsolationForest) error {
	return s.saveGob(isoFile, f)
}

func (s *Store) LoadIsoForest() (*models.IsolationForest, error) {
	var f models.IsolationForest
	if err := s.loadGob(isoFile, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Store) SaveJSON(name string, v any) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	return WriteJSON(filepath.Join(s.Dir, name), v)
}

func (s *Store) loadJSON(name string, v any) error {
	raw, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func (s *Store) SaveFeatures(names []string) error {
	return s.SaveJSON(featuresFile, names)
}

func (s *Store) LoadFeatures() ([]string, error) {
	var names []string
	if err := s.loadJSON(featuresFile, &names); err != nil {
		return nil, err
	}
	return names, nil
}

func (s *Store) SaveIsoFeatures(names []string) error {
	return s.SaveJSON(isoFeaturesFile, names)
}

func (s *Store) LoadIsoFeatures() ([]string, error) {
	var names []string
	if err := s.loadJSON(isoFeaturesFile, &names); err != nil {
		return nil, err
	}
	return names, nil
}

func (s *Store) SaveThreshold(rec ThresholdRecord) error {
	return s.SaveJSON(thresholdFile, rec)
}

func (s *Store) LoadThreshold() (ThresholdRecord, error) {
	var rec ThresholdRecord
	err := s.loadJSON(thresholdFile, &rec)
	return rec, err
}

// WriteJSON writes indented JSON to an arbitrary path, creating parent
// directories as needed.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
