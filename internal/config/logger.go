package config

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap logger; LOG_FORMAT=console selects the development encoder.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	var zc zap.Config
	if strings.ToLower(cfg.LogFormat) == "console" {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "ts"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}

// MustNewLogger exits the process if the logger cannot be built.
func MustNewLogger(cfg *Config) *zap.Logger {
	logger, err := NewLogger(cfg)
	if err != nil {
		os.Stderr.WriteString("failed to create logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	return logger
}
