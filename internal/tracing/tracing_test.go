package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestProvider_LogsFinishedSpans(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tp := NewProvider("service-routing", zap.New(core))

	_, span := tp.Tracer("test").Start(context.Background(), "fetch route")
	span.SetAttributes(attribute.Int("waypoints", 3))
	span.End()

	require.NoError(t, tp.ForceFlush(context.Background()))
	require.NoError(t, tp.Shutdown(context.Background()))

	entries := logs.FilterMessage("span finished").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "fetch route", fields["span"])
	assert.Equal(t, "3", fields["waypoints"])
	assert.Equal(t, "Unset", fields["status"])
}

func TestProvider_NothingLoggedAboveDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	tp := NewProvider("service-routing", zap.New(core))

	_, span := tp.Tracer("test").Start(context.Background(), "fetch route")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	assert.Zero(t, logs.Len())
}
