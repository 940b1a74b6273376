package log

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _logger *zap.Logger
var defaultlogger *zap.Logger

type contextKey int

const (
	contextKeyFields contextKey = iota
)

// Output formats
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

func init() {
	Structured()
}

func setLogger(l *zap.Logger) {
	defaultlogger = l
}
func resetLogger() {
	defaultlogger = _logger
}

// levelFromEnv reads LOGLEVEL (debug, info, warn, error), defaulting to info
func levelFromEnv() zap.AtomicLevel {
	lvl := zap.NewAtomicLevelAt(zap.InfoLevel)
	if env := os.Getenv("LOGLEVEL"); env != "" {
		if err := lvl.UnmarshalText([]byte(env)); err != nil {
			lvl = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
	}
	return lvl
}

func build(cfg zap.Config, enc zapcore.EncoderConfig) {
	enc.LevelKey = "severity"
	enc.StacktraceKey = ""
	enc.MessageKey = "message"
	cfg.EncoderConfig = enc
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.Level = levelFromEnv()
	// Logs must not pollute the stdout of the cli (products can be piped)
	cfg.OutputPaths = []string{"stderr"}
	var err error
	_logger, err = cfg.Build()
	if err != nil {
		panic(err)
	}
	defaultlogger = _logger
}

// Structured sets output to be JSON encoded
func Structured() {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	build(zap.NewProductionConfig(), enc)
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02T15:04:05.000"))
}

// Console sets output to be human-readable
func Console() {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.EncodeTime = timeEncoder
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	build(zap.NewDevelopmentConfig(), enc)
}

// SetFormat switches between FormatJSON and FormatConsole
func SetFormat(format string) error {
	switch format {
	case FormatJSON, "":
		Structured()
	case FormatConsole:
		Console()
	default:
		return fmt.Errorf("unknown log format: %s (expected %s or %s)", format, FormatJSON, FormatConsole)
	}
	return nil
}

// Logger returns a logger that will print fields previously added to the context
func Logger(ctx context.Context) *zap.Logger {
	if flds, ok := ctx.Value(contextKeyFields).([]zap.Field); ok {
		return defaultlogger.With(flds...)
	}
	return defaultlogger
}

// With adds a key=value field to the returned context
func With(ctx context.Context, key string, value interface{}) context.Context {
	return WithFields(ctx, zap.Any(key, value))
}

// WithFields adds fields to the returned context
func WithFields(ctx context.Context, fields ...zapcore.Field) context.Context {
	flds, _ := ctx.Value(contextKeyFields).([]zap.Field)
	fflds := make([]zap.Field, 0, len(flds)+len(fields))
	fflds = append(fflds, flds...)
	fflds = append(fflds, fields...)
	return context.WithValue(ctx, contextKeyFields, fflds)
}

// Sync flushes the default logger
func Sync() {
	_ = defaultlogger.Sync()
}
