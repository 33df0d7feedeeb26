// Package logging builds the zap loggers used by teemscan.
package logging

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level maps the -v verbosity (0..3) to a zap level.
func Level(verbosity int, quiet bool) zapcore.Level {
	switch {
	case quiet:
		return zapcore.ErrorLevel
	case verbosity <= 0:
		return zapcore.WarnLevel
	case verbosity == 1:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// New builds a console logger on stderr.
func New(verbosity int, quiet bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(Level(verbosity, quiet))
	config.DisableStacktrace = true
	config.DisableCaller = verbosity < 3
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.EncoderConfig.TimeKey = ""
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// NewWriter is New writing to w, for tests and the progress UI.
func NewWriter(w io.Writer, verbosity int, quiet bool) *zap.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), Level(verbosity, quiet))
	return zap.New(core)
}

// ForLibrary tags every entry with the library name.
func ForLibrary(l *zap.Logger, lib string) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return l.With(zap.String("lib", lib))
}
