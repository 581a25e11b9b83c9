// Package logr creates the process logger.
package logr

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger backed by zap.
// In debug mode V levels up to verbosity are enabled.
func New(debug bool, verbosity int) (logr.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		// zap levels are negative logr V levels
		cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbosity))
	} else {
		cfg = zap.NewProductionConfig()
	}

	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return logr.Discard(), fmt.Errorf("error building zap logger: %w", err)
	}
	return zapr.NewLogger(l), nil
}
