package main

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"frauddetect/internal/config"
	"frauddetect/internal/infer"
	"frauddetect/pkg/utils"
)

func main() {
	_ = godotenv.Load()
	logger := utils.Logger()
	defer logger.Sync()

	preset := flag.String("preset", "kfold", "Preset the pipeline was trained with")
	input := flag.String("input", "", "CSV of transactions to score (defaults to <data_dir>/new_transactions.csv)")
	top := flag.Int("top", 10, "Print the N most suspicious transactions")
	flag.Parse()

	cfg, err := config.Preset(*preset)
	if err != nil {
		logger.Fatal("invalid preset", zap.Error(err))
	}
	cfg = config.FromEnv(cfg)
	if err := cfg.Columns.Validate(false); err != nil {
		logger.Fatal("column mapping rejected", zap.Error(err))
	}

	csvPath := *input
	if csvPath == "" {
		csvPath = filepath.Join(cfg.DataDir, "new_transactions.csv")
	}

	pipeline, err := infer.Load(cfg, logger)
	if err != nil {
		logger.Fatal("pipeline load failed", zap.Error(err))
	}
	preds, err := pipeline.ScoreCSV(csvPath)
	if err != nil {
		logger.Fatal("scoring failed", zap.Error(err))
	}

	flagged := 0
	for _, p := range preds {
		if p.Fraud {
			flagged++
		}
	}
	logger.Info("batch scored", zap.Int("rows", len(preds)), zap.Int("flagged", flagged))

	fmt.Printf("top %d suspicious transactions:\n", *top)
	for _, p := range infer.TopN(preds, *top) {
		marker := " "
		if p.Fraud {
			marker = "*"
		}
		fmt.Printf("%s %-36s  p=%.4f  iso=%+.4f\n", marker, p.ID, p.Probability, p.AnomalyScore)
	}
}
