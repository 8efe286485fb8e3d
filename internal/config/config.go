// Package config carries the explicit pipeline configuration. There is no
// mutable package-level state: binaries build a Config in main and hand it
// to the orchestrator or inference pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// ErrSchemaDrift marks a required column mapping that is absent from the
// configuration. It is raised at construction time instead of guessing
// column names at runtime.
var ErrSchemaDrift = errors.New("schema drift")

// Columns is the versioned column-name mapping for the raw transaction
// schema. Optional columns may be left empty; the feature transforms that
// consume them degrade to constant outputs.
type Columns struct {
	ID          string
	Timestamp   string
	Amount      string
	Sender      string
	Receiver    string
	Device      string
	Latency     string
	Bandwidth   string
	Geolocation string
	Label       string

	// Categorical columns that receive target encoding.
	Categorical []string

	// ProjectionPrefix selects the numeric telemetry block reduced by the
	// projection basis.
	ProjectionPrefix string
}

// Validate fails fast when a required mapping is missing. The label column
// is only required when training.
func (c Columns) Validate(training bool) error {
	required := map[string]string{
		"id":        c.ID,
		"timestamp": c.Timestamp,
		"amount":    c.Amount,
		"sender":    c.Sender,
		"receiver":  c.Receiver,
	}
	if training {
		required["label"] = c.Label
	}
	for key, v := range required {
		if v == "" {
			return fmt.Errorf("%w: column mapping %q is not configured", ErrSchemaDrift, key)
		}
	}
	return nil
}

// Config is the full pipeline configuration.
type Config struct {
	DataDir    string
	ModelsDir  string
	OutputsDir string

	Seed            int64
	Folds           int
	HoldoutQuantile float64

	Smoothing   float64
	Components  int
	MaxFeatures int

	Algo                string // gb | lightgbm
	Estimators          int
	LearningRate        float64
	MinSamples          int
	EarlyStoppingRounds int

	IsoTrees      int
	IsoSampleSize int

	Policy          string // or | weighted
	Alpha           float64
	AnomalyCutoff   float64
	ThresholdMetric string // f1 | youden

	Columns Columns
}

// DefaultColumns maps the synthetic transaction schema shipped with the
// generator.
func DefaultColumns() Columns {
	return Columns{
		ID:          "transaction_id",
		Timestamp:   "timestamp",
		Amount:      "amount",
		Sender:      "sender_account_id",
		Receiver:    "receiver_account_id",
		Device:      "device_used",
		Latency:     "latency_ms",
		Bandwidth:   "bandwidth_mbps",
		Geolocation: "geolocation",
		Label:       "fraud_flag",
		Categorical: []string{
			"transaction_type", "transaction_status", "device_used", "network_slice_id",
		},
		ProjectionPrefix: "V",
	}
}

func Default() Config {
	return Config{
		DataDir:             "data",
		ModelsDir:           "models",
		OutputsDir:          "outputs",
		Seed:                42,
		Folds:               5,
		HoldoutQuantile:     0.8,
		Smoothing:           0.3,
		Components:          20,
		MaxFeatures:         100,
		Algo:                "gb",
		Estimators:          200,
		LearningRate:        0.05,
		MinSamples:          30,
		EarlyStoppingRounds: 50,
		IsoTrees:            200,
		IsoSampleSize:       256,
		Policy:              "or",
		Alpha:               0.85,
		AnomalyCutoff:       -0.2,
		ThresholdMetric:     "f1",
		Columns:             DefaultColumns(),
	}
}

// Preset returns one of the named training variants. The three historical
// training scripts collapse into these configuration presets.
func Preset(name string) (Config, error) {
	cfg := Default()
	switch name {
	case "", "kfold":
		// OOF threshold by best F1, OR decision rule.
	case "timesplit":
		cfg.ThresholdMetric = "youden"
		cfg.LearningRate = 0.05
		cfg.Estimators = 300
	case "ensemble":
		cfg.Policy = "weighted"
		cfg.ThresholdMetric = "youden"
		cfg.LearningRate = 0.02
		cfg.Estimators = 400
		cfg.MinSamples = 50
	default:
		return cfg, fmt.Errorf("unknown preset %q", name)
	}
	return cfg, nil
}

// FromEnv overlays directory and seed settings from the environment.
// Callers load a .env file first when one exists.
func FromEnv(cfg Config) Config {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("MODELS_DIR"); v != "" {
		cfg.ModelsDir = v
	}
	if v := os.Getenv("OUTPUTS_DIR"); v != "" {
		cfg.OutputsDir = v
	}
	if v := os.Getenv("SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Seed = n
		}
	}
	return cfg
}
