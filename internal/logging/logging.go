// SPDX-License-Identifier: EPL-2.0

// Package logging builds the zap loggers used by the command line tool.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger writing to stderr at level. development selects
// the console encoder and stack traces on warnings.
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg.Build()
}

// LevelForVerbosity maps a -v count to a level name: 0 is info, anything
// above is debug.
func LevelForVerbosity(v int) string {
	if v > 0 {
		return zapcore.DebugLevel.String()
	}
	return zapcore.InfoLevel.String()
}
