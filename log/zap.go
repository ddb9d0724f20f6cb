package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"moul.io/zapfilter"
)

// Logger is a thin wrapper around zap.Logger.
// Components receive a *Logger via options and derive named children.
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

type (
	Field = zapcore.Field
	Level = zapcore.Level
)

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
)

// field helpers so callers don't need to import zap directly
var (
	String     = zap.String
	Int        = zap.Int
	Int32      = zap.Int32
	Int64      = zap.Int64
	Uint64     = zap.Uint64
	Float64    = zap.Float64
	Bool       = zap.Bool
	Time       = zap.Time
	Duration   = zap.Duration
	Any        = zap.Any
	ErrorField = zap.Error
)

var defaultLogger *Logger

func init() {
	defaultLogger = DevLogger(os.Stderr, zapcore.InfoLevel)
}

// Default returns the process-wide logger.
func Default() *Logger { return defaultLogger }

// ResetDefault replaces the process-wide logger.
func ResetDefault(l *Logger) { defaultLogger = l }

func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name), level: l.level}
}

func (l *Logger) SetLevel(lvl zapcore.Level) { l.level.SetLevel(lvl) }

// New creates a logger with the given encoder style ("json" or "text"),
// minimum level and optional zapfilter rules
// (e.g. "*:info arbiter:debug", see moul.io/zapfilter).
func New(format string, lvl zapcore.Level, filterRules string) (*Logger, error) {
	level := zap.NewAtomicLevelAt(lvl)
	var encoder zapcore.Encoder
	switch format {
	case "json":
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case "text", "":
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	if filterRules != "" {
		filter, err := zapfilter.ParseRules(filterRules)
		if err != nil {
			return nil, fmt.Errorf("invalid log filter rules: %w", err)
		}
		core = zapfilter.NewFilteringCore(core, filter)
	}
	return &Logger{
		Logger: zap.New(core, zap.AddCaller()),
		level:  level,
	}, nil
}

// DevLogger is used for tests and as fallback before config is resolved.
func DevLogger(w zapcore.WriteSyncer, lvl zapcore.Level) *Logger {
	level := zap.NewAtomicLevelAt(lvl)
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return &Logger{
		Logger: zap.New(zapcore.NewCore(encoder, zapcore.Lock(w), level)),
		level:  level,
	}
}

// ParseLevel parses a zap level string ("debug", "info", ...).
func ParseLevel(s string) (zapcore.Level, error) {
	return zapcore.ParseLevel(s)
}

// package level convenience functions on the default logger

func Debug(msg string, fields ...Field) { defaultLogger.Debug(msg, fields...) }
func Info(msg string, fields ...Field)  { defaultLogger.Info(msg, fields...) }
func Warn(msg string, fields ...Field)  { defaultLogger.Warn(msg, fields...) }
func Error(msg string, fields ...Field) { defaultLogger.Error(msg, fields...) }
