package utils

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// Logger returns the process-wide zap logger. When LOG_FILE is set the
// output is teed to that file and stdout, both JSON-encoded.
func Logger() *zap.Logger {
	if logger != nil {
		return logger
	}
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		l, _ := zap.NewProduction()
		logger = l
		return logger
	}
	_ = os.MkdirAll(filepath.Dir(logFile), 0o755)
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		l, _ := zap.NewProduction()
		logger = l
		return logger
	}
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	lvl := zapcore.InfoLevel
	if os.Getenv("LOG_LEVEL") == "debug" {
		lvl = zapcore.DebugLevel
	}
	fileCore := zapcore.NewCore(enc, zapcore.AddSync(f), lvl)
	consoleCore := zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), lvl)
	logger = zap.New(zapcore.NewTee(fileCore, consoleCore))
	return logger
}
