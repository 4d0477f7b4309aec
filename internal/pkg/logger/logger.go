package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	TraceIDKey = "traceid" // Key for trace ID in logs
	SpanIDKey  = "spanid"  // Key for span ID in logs
)

var logger = zap.NewNop()

// Setup initializes the global logger with the production JSON encoder.
func Setup(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.LevelKey = "severity"
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	logger = l
	return nil
}

// Replace swaps the global logger and returns a func restoring the previous one.
func Replace(l *zap.Logger) func() {
	prev := logger
	logger = l.WithOptions(zap.AddCallerSkip(1))
	return func() { logger = prev }
}

// Sync flushes buffered entries.
func Sync() error {
	return logger.Sync()
}

// traceFields extracts trace and span IDs from the OpenTelemetry span in ctx.
func traceFields(ctx context.Context, fields []zap.Field) []zap.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return fields
	}
	return append(fields,
		zap.String(TraceIDKey, sc.TraceID().String()),
		zap.String(SpanIDKey, sc.SpanID().String()),
	)
}

func Debug(msg string, fields ...zap.Field) {
	logger.Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	logger.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	logger.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	logger.Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	logger.Fatal(msg, fields...)
}

// DebugCtx logs a debug message with trace and span IDs from context.
func DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	logger.Debug(msg, traceFields(ctx, fields)...)
}

// InfoCtx logs an info message with trace and span IDs from context.
func InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	logger.Info(msg, traceFields(ctx, fields)...)
}

// WarnCtx logs a warning message with trace and span IDs from context.
func WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	logger.Warn(msg, traceFields(ctx, fields)...)
}

// ErrorCtx logs an error message with trace and span IDs from context.
func ErrorCtx(ctx context.Context, msg string, fields ...zap.Field) {
	logger.Error(msg, traceFields(ctx, fields)...)
}
