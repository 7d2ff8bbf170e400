// Package logger builds the service's zap loggers.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a development logger for appEnv "development" and a JSON
// production logger otherwise.
func New(appEnv string) (*zap.Logger, error) {
	var cfg zap.Config
	if appEnv == "development" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	return cfg.Build()
}

// NewNamed returns New(appEnv) named after the service.
func NewNamed(appEnv, name string) (*zap.Logger, error) {
	l, err := New(appEnv)
	if err != nil {
		return nil, err
	}
	return l.Named(name), nil
}

// NewWithLevel is NewNamed with an explicit minimum level such as "debug" or "warn".
// An empty level keeps the environment default.
func NewWithLevel(appEnv, name, level string) (*zap.Logger, error) {
	if level == "" {
		return NewNamed(appEnv, name)
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	l, err := NewNamed(appEnv, name)
	if err != nil {
		return nil, err
	}
	return l.WithOptions(zap.IncreaseLevel(lvl)), nil
}
