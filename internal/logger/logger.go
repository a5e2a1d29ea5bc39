// Package logger provides leveled, structured logging for the analysis commands.
// It wraps zap behind a small package-level API so services log without
// carrying a logger through every constructor.
package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu            sync.RWMutex
	defaultLogger = zap.NewNop().Sugar()
)

// Init configures the default logger. Level is one of debug, info, warn or
// error (unknown values fall back to info); format is "json" or "text".
func Init(level string, format string) error {
	var cfg zap.Config
	if strings.ToLower(format) == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.DisableStacktrace = true
	}
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	cfg.OutputPaths = []string{"stderr"}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}

	mu.Lock()
	defaultLogger = l.Sugar()
	mu.Unlock()
	return nil
}

// ParseLevel maps a level name onto a zap level
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Set replaces the default logger, mainly for tests
func Set(l *zap.Logger) {
	mu.Lock()
	defaultLogger = l.Sugar()
	mu.Unlock()
}

// L returns the current sugared logger
func L() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// Debug logs a message at DebugLevel with alternating key/value pairs
func Debug(msg string, keysAndValues ...interface{}) {
	L().Debugw(msg, keysAndValues...)
}

// Info logs a message at InfoLevel
func Info(msg string, keysAndValues ...interface{}) {
	L().Infow(msg, keysAndValues...)
}

// Warn logs a message at WarnLevel
func Warn(msg string, keysAndValues ...interface{}) {
	L().Warnw(msg, keysAndValues...)
}

// Error logs a message at ErrorLevel
func Error(msg string, keysAndValues ...interface{}) {
	L().Errorw(msg, keysAndValues...)
}

// Sync flushes buffered entries
func Sync() {
	_ = L().Sync()
}
