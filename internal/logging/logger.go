// Package logging builds the zap logger shared by the api and worker binaries.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON production logger, or a console logger when env is "dev".
// Every entry carries the service and env fields.
func New(service, env, level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if env == "dev" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", service), zap.String("env", env)), nil
}

// ParseLevel maps a LOG_LEVEL value to a zap level; unknown values are info.
func ParseLevel(lvl string) zapcore.Level {
	l, err := zapcore.ParseLevel(strings.TrimSpace(lvl))
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
