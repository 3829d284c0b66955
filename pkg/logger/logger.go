// Package logger provides a simple, clean logging interface.
package logger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the logging interface.
type Logger interface {
	// Context-aware variants
	Info(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Fatal(ctx context.Context, msg string, fields ...Field)

	Named(name string) Logger
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// Field constructors.
func String(key, val string) Field          { return Field{Key: key, Value: val} }
func Int(key string, val int) Field         { return Field{Key: key, Value: val} }
func Float64(key string, val float64) Field { return Field{Key: key, Value: val} }
func Bool(key string, val bool) Field       { return Field{Key: key, Value: val} }
func Any(key string, val interface{}) Field { return Field{Key: key, Value: val} }
func Error(err error) Field                 { return Field{Key: "error", Value: err} }

type correlationKey struct{}

// WithCorrelationID returns a context whose log lines carry the given id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id stored by WithCorrelationID, if any.
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// zapLogger implements Logger using zap.
type zapLogger struct {
	l *zap.Logger
}

func (z *zapLogger) Named(name string) Logger {
	return &zapLogger{l: z.l.Named(name)}
}

func (z *zapLogger) Info(ctx context.Context, msg string, fields ...Field) {
	z.l.Info(msg, convertFields(ctx, fields)...)
}

func (z *zapLogger) Error(ctx context.Context, msg string, fields ...Field) {
	z.l.Error(msg, convertFields(ctx, fields)...)
}

func (z *zapLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	z.l.Debug(msg, convertFields(ctx, fields)...)
}

func (z *zapLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	z.l.Warn(msg, convertFields(ctx, fields)...)
}

func (z *zapLogger) Fatal(ctx context.Context, msg string, fields ...Field) {
	z.l.Fatal(msg, convertFields(ctx, fields)...)
}

// convertFields converts our Field type to zap fields.
func convertFields(ctx context.Context, fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+1)
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			out = append(out, zap.NamedError(f.Key, err))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	if id := CorrelationID(ctx); id != "" {
		out = append(out, zap.String("correlation_id", id))
	}
	return out
}

var global Logger
var level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// Option configures Init.
type Option func(*zap.Config)

// WithFormat selects the encoder: "json" (default) or "console".
func WithFormat(format string) Option {
	return func(c *zap.Config) {
		if strings.EqualFold(format, "console") {
			c.Encoding = "console"
			c.EncoderConfig = zap.NewDevelopmentEncoderConfig()
			c.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	}
}

// Init initializes the global logger.
func Init(opts ...Option) error {
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.Sampling = nil
	for _, opt := range opts {
		opt(&cfg)
	}
	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	global = &zapLogger{l: z}
	return nil
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &zapLogger{l: zap.NewNop()}
}

// Get returns the global logger.
func Get() Logger {
	if global == nil {
		// The logger should be explicitly initialized by the application
		panic("logger not initialized. Call logger.Init() first")
	}
	return global
}

// Named creates a named logger.
func Named(name string) Logger {
	return Get().Named(name)
}

// Sync flushes buffered log entries.
func Sync() error {
	if z, ok := global.(*zapLogger); ok {
		// stdout/stderr return EINVAL on some platforms; nothing was lost.
		_ = z.l.Sync()
	}
	return nil
}

// SetLevel updates the current logging level for the global logger.
func SetLevel(l zapcore.Level) { level.SetLevel(l) }

// SetLevelString parses and sets the logging level.
// Accepts: debug, info, warn/warning, error (case-insensitive).
func SetLevelString(lvl string) error {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		SetLevel(zapcore.DebugLevel)
	case "", "info":
		SetLevel(zapcore.InfoLevel)
	case "warn", "warning":
		SetLevel(zapcore.WarnLevel)
	case "error":
		SetLevel(zapcore.ErrorLevel)
	default:
		return fmt.Errorf("unknown log level: %s", lvl)
	}
	return nil
}
