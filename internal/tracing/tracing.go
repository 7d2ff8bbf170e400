// Package tracing installs the process tracer provider. Finished spans are written
// to the service log at debug level.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// NewProvider creates a tracer provider that exports spans to logger.
func NewProvider(serviceName string, logger *zap.Logger) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(sdkresource.NewSchemaless(attribute.String("service.name", serviceName))),
		sdktrace.WithBatcher(NewLogExporter(logger)),
	)
}

// Install creates a provider with NewProvider and registers it globally. The
// returned function flushes and stops it.
func Install(serviceName string, logger *zap.Logger) func(context.Context) error {
	tp := NewProvider(serviceName, logger)
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}

// LogExporter is a SpanExporter that logs each span.
type LogExporter struct {
	logger *zap.Logger
}

// NewLogExporter creates a LogExporter.
func NewLogExporter(logger *zap.Logger) *LogExporter {
	return &LogExporter{logger: logger}
}

// ExportSpans logs spans at debug level.
func (e *LogExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		fields := []zap.Field{
			zap.String("span", s.Name()),
			zap.String("trace_id", s.SpanContext().TraceID().String()),
			zap.String("span_id", s.SpanContext().SpanID().String()),
			zap.Duration("elapsed", s.EndTime().Sub(s.StartTime())),
			zap.String("status", s.Status().Code.String()),
		}
		for _, kv := range s.Attributes() {
			fields = append(fields, zap.String(string(kv.Key), kv.Value.Emit()))
		}
		e.logger.Debug("span finished", fields...)
	}
	return nil
}

// Shutdown is a no-op.
func (e *LogExporter) Shutdown(context.Context) error {
	return nil
}
