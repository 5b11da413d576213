// Package trace wraps OpenTelemetry for the journal. Spans are exported to
// stdout when tracing is enabled in config and are no-ops otherwise.
package trace

import (
	"context"
	"fmt"
	"io"
	"os"

	"forex-journal/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// output receives exported spans.
var output io.Writer = os.Stdout

var (
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
)

// Init starts span export under cfg.ServiceName. With cfg.Enabled false it
// resets the package to no-op spans.
func Init(cfg config.Trace, version string) error {
	tracer = nil
	if !cfg.Enabled {
		return nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(output), stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("failed to create span exporter: %w", err)
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return fmt.Errorf("failed to build trace resource: %w", err)
	}

	provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	tracer = provider.Tracer(cfg.ServiceName)
	return nil
}

// Shutdown flushes pending spans and stops export.
func Shutdown(ctx context.Context) error {
	if provider == nil {
		return nil
	}
	p := provider
	provider, tracer = nil, nil
	return p.Shutdown(ctx)
}

// StartSpan opens a child span of whatever span ctx carries. When tracing
// is off it returns ctx unchanged together with the span already in it.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// TraceID returns the id of the trace ctx belongs to, for log correlation.
func TraceID(ctx context.Context) (string, bool) {
	if tracer == nil {
		return "", false
	}
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return "", false
	}
	return sc.TraceID().String(), true
}
