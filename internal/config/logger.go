package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger from Viper settings: "logging.level"
// (debug, info, warn, error; default "info") and "logging.format" ("json"
// for production deployments, "console" for reading check-by-check output
// during development).
func NewLogger(v *viper.Viper) (*zap.Logger, error) {
	raw := v.GetString("logging.level")
	if raw == "" {
		raw = "info"
	}
	level, err := zapcore.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid logging.level %q: %w", raw, err)
	}

	var cfg zap.Config
	switch v.GetString("logging.format") {
	case "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "json", "":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid logging.format %q: must be \"json\" or \"console\"", v.GetString("logging.format"))
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	return cfg.Build()
}
