package models

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// LightGBMCLI shells out to the lightgbm binary for training and scoring.
// It is a drop-in Classifier for installations where the CLI is available;
// the in-process GradientBoosting remains the default.
type LightGBMCLI struct {
	ExecPath            string
	WorkDir             string
	NumLeaves           int
	MaxDepth            int
	MinDataInLeaf       int
	NumIterations       int
	LearningRate        float64
	EarlyStoppingRounds int
	Device              string
	ModelPath           string

	best int
}

func NewLightGBMCLI(workDir string) *LightGBMCLI {
	return &LightGBMCLI{
		ExecPath:            "lightgbm",
		WorkDir:             workDir,
		NumLeaves:           31,
		MaxDepth:            -1,
		MinDataInLeaf:       100,
		NumIterations:       200,
		LearningRate:        0.05,
		EarlyStoppingRounds: 50,
		Device:              "cpu",
		ModelPath:           filepath.Join(workDir, "lgbm_model.txt"),
	}
}

func (l *LightGBMCLI) Name() string {
	if l.Device == "gpu" {
		return "LightGBM(GPU)"
	}
	return "LightGBM(CPU)"
}

func (l *LightGBMCLI) BestIteration() int { return l.best }

func (l *LightGBMCLI) Fit(X [][]float64, y []int, Xval [][]float64, yval []int) error {
	if len(X) == 0 {
		return nil
	}
	if err := os.MkdirAll(l.WorkDir, 0o755); err != nil {
		return err
	}

	trainCSV := filepath.Join(l.WorkDir, "lgbm_train.csv")
	if err := writeCSVLabelFirst(trainCSV, X, y); err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "task=train\nboosting=gbdt\nobjective=binary\nmetric=auc\n")
	fmt.Fprintf(&sb, "data=%s\nheader=false\nlabel_column=0\n", trainCSV)
	fmt.Fprintf(&sb, "num_leaves=%d\nmax_depth=%d\nmin_data_in_leaf=%d\n", l.NumLeaves, l.MaxDepth, l.MinDataInLeaf)
	fmt.Fprintf(&sb, "num_iterations=%d\nlearning_rate=%f\n", l.NumIterations, l.LearningRate)
	if len(Xval) > 0 {
		validCSV := filepath.Join(l.WorkDir, "lgbm_valid.csv")
		if err := writeCSVLabelFirst(validCSV, Xval, yval); err != nil {
			return err
		}
		fmt.Fprintf(&sb, "valid_data=%s\nearly_stopping_round=%d\n", validCSV, l.EarlyStoppingRounds)
	}
	device := l.Device
	if device == "" {
		device = "cpu"
	}
	tree := "serial"
	if device == "gpu" {
		tree = "gpu"
	}
	fmt.Fprintf(&sb, "device=%s\ntree_learner=%s\noutput_model=%s\n", device, tree, l.ModelPath)

	conf := filepath.Join(l.WorkDir, "lgbm_train.conf")
	if err := os.WriteFile(conf, []byte(sb.String()), 0o644); err != nil {
		return err
	}

	cmd := exec.Command(l.ExecPath, fmt.Sprintf("config=%s", conf))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return errors.New("lightgbm CLI failed (is 'lightgbm' installed and on PATH?)")
	}
	if _, err := os.Stat(l.ModelPath); err != nil {
		return errors.New("lightgbm model file missing after training")
	}
	l.best = l.readBestIteration()
	return nil
}

// readBestIteration scans the text model dump for the iteration the early
// stopping kept. Zero means the full run was used.
func (l *LightGBMCLI) readBestIteration() int {
	f, err := os.Open(l.ModelPath)
	if err != nil {
		return 0
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if v, ok := strings.CutPrefix(line, "best_iteration="); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n
			}
		}
	}
	return 0
}

func (l *LightGBMCLI) Predict(X [][]float64) []int {
	ps := l.PredictProba(X)
	out := make([]int, len(ps))
	for i := range ps {
		if ps[i] >= 0.5 {
			out[i] = 1
		}
	}
	return out
}

func (l *LightGBMCLI) PredictProba(X [][]float64) []float64 {
	if len(X) == 0 {
		return []float64{}
	}
	predCSV := filepath.Join(l.WorkDir, "lgbm_pred.csv")
	zeros := make([]int, len(X))
	if err := writeCSVLabelFirst(predCSV, X, zeros); err != nil {
		return []float64{}
	}

	conf := filepath.Join(l.WorkDir, "lgbm_predict.conf")
	outPath := filepath.Join(l.WorkDir, "lgbm_preds.txt")
	cfg := fmt.Sprintf("task=predict\ninput_model=%s\ndata=%s\nheader=false\nlabel_column=0\noutput_result=%s\n",
		l.ModelPath, predCSV, outPath,
	)
	if err := os.WriteFile(conf, []byte(cfg), 0o644); err != nil {
		return []float64{}
	}

	cmd := exec.Command(l.ExecPath, fmt.Sprintf("config=%s", conf))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return []float64{}
	}

	f, err := os.Open(outPath)
	if err != nil {
		return []float64{}
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	ps := make([]float64, 0, len(X))
	for sc.Scan() {
		var v float64
		if _, err := fmt.Sscan(sc.Text(), &v); err == nil {
			ps = append(ps, v)
		}
	}
	return ps
}

func writeCSVLabelFirst(path string, X [][]float64, y []int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for i := range X {
		fmt.Fprintf(w, "%d", y[i])
		for j := range X[i] {
			fmt.Fprintf(w, ",%g", X[i][j])
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}
