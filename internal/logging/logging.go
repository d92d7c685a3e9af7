// Package logging builds the process logger.
//
// All output goes to stderr because stdout carries the MCP protocol.
package logging

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvLevel names the environment variable holding the log level.
const EnvLevel = "BRIGHTNESS_MCP_LOG_LEVEL"

// NewConfig returns the console logger config at the given level.
func NewConfig(level zapcore.Level) zap.Config {
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// ParseLevel maps debug, info, warn and error (any case) to a zap level.
// An empty string is info.
func ParseLevel(s string) (zapcore.Level, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel, errors.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

// New builds a named stderr logger at level.
func New(name, level string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger, err := NewConfig(lvl).Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}
	return logger.Named(name), nil
}

// FromEnv builds a logger at the level in EnvLevel, falling back to info
// when the variable is unset or invalid.
func FromEnv(name string) *zap.Logger {
	raw := os.Getenv(EnvLevel)
	logger, err := New(name, raw)
	if err != nil {
		logger, err = New(name, "info")
		if err != nil {
			return zap.NewNop()
		}
		logger.Warn("ignoring invalid log level", zap.String("env", EnvLevel), zap.String("value", raw))
	}
	return logger
}
