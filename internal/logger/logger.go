// Package logger initializes the process-wide zap logger.  Packages log
// through zap.L() so nothing carries a logger dependency explicitly.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init builds the global logger for the given environment and installs it
// via zap.ReplaceGlobals.  Production gets JSON output; anything else gets
// the colored development console.
func Init(env string) error {
	var cfg zap.Config
	if env == "prod" || env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(l)
	return nil
}

// Sync flushes buffered entries; call on shutdown.
func Sync() {
	_ = zap.L().Sync()
}
