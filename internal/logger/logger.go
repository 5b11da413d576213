package logger

import (
	"context"

	"forex-journal/internal/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap.Logger. format "json" selects the production
// encoder; anything else gets the human-readable development encoder.
func NewLogger(level string, format string) (*zap.Logger, error) {
	logLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	cfg.Level = zap.NewAtomicLevelAt(logLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build(zap.Fields(zap.String("service", "forex-journal")))
}

// WithTrace tags log with the trace id carried by ctx, when tracing is on.
func WithTrace(ctx context.Context, log *zap.Logger) *zap.Logger {
	if id, ok := trace.TraceID(ctx); ok {
		return log.With(zap.String("trace_id", id))
	}
	return log
}
