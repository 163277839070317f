// Package logx provides structured logging functionality
package logx

import (
	"os"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a named view on the global zap logger.
//
// It keeps only its scope and resolves the current global logger on every
// call, so package-level scopes created during init follow a later Init.
type Logger struct {
	scope string
}

var global atomic.Pointer[zap.Logger]

func init() {
	level := "info"
	if isLocalDev(os.Getenv("APP_ENV")) {
		level = "debug"
	}
	Init(level, "text")
}

func isLocalDev(appEnv string) bool {
	return appEnv == "local" || appEnv == "dev" || appEnv == "development"
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}

// buildConfig returns the zap configuration for level and format. "json"
// selects JSON lines; anything else is coloured console output.
func buildConfig(level, format string) zap.Config {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(parseLevel(level))
	config.Sampling = nil
	config.EncoderConfig = zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     timeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if strings.EqualFold(format, "json") {
		config.Encoding = "json"
		config.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	} else {
		config.Encoding = "console"
	}
	return config
}

// Init configures the global logger. Scoped loggers pick it up on their next call.
func Init(level, format string) {
	z, err := buildConfig(level, format).Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	if old := global.Swap(z); old != nil {
		_ = old.Sync()
	}
}

// GetScope returns a named logger bound to the global configuration.
func GetScope(name string) *Logger {
	return &Logger{scope: name}
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
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

func (l *Logger) resolve() *zap.Logger {
	z := global.Load()
	if z == nil {
		return zap.NewNop()
	}
	if l.scope == "" {
		return z
	}
	return z.Named(l.scope)
}

// Sugar returns the sugar logger for key-value style logging
func (l *Logger) Sugar() *zap.SugaredLogger { return l.resolve().Sugar() }

// Zap returns the underlying zap logger
func (l *Logger) Zap() *zap.Logger { return l.resolve() }

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.resolve().Debug(msg, fields...) }

func (l *Logger) Info(msg string, fields ...zap.Field) { l.resolve().Info(msg, fields...) }

func (l *Logger) Warn(msg string, fields ...zap.Field) { l.resolve().Warn(msg, fields...) }

func (l *Logger) Error(msg string, fields ...zap.Field) { l.resolve().Error(msg, fields...) }
