package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpan_ExportsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	obs, err := New("assessment-test",
		WithRegisterer(prom.NewRegistry()),
		WithSpanExporter(exporter),
	)
	require.NoError(t, err)
	defer obs.Shutdown()

	ctx, span := obs.StartSpan(context.Background(), "evaluate", attribute.String("catalog", "2.1.0"))
	_, child := obs.StartSpan(ctx, "persist")
	EndSpan(child, errors.New("postgres down"))
	EndSpan(span, nil)

	require.NoError(t, obs.ForceFlush(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "persist", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, spans[1].SpanContext.TraceID(), spans[0].SpanContext.TraceID())
	assert.Equal(t, "evaluate", spans[1].Name)
}

func TestObservability_RecordsWithoutPanicking(t *testing.T) {
	obs, err := New("assessment-test", WithRegisterer(prom.NewRegistry()))
	require.NoError(t, err)

	obs.RecordJobProcessed(context.Background(), "evaluate-assessment", "success")
	obs.RecordJobDuration(context.Background(), "evaluate-assessment", 12*time.Millisecond, "success")
	obs.Shutdown()
}

func TestObservability_NilSafe(t *testing.T) {
	var obs *Observability
	obs.RecordJobProcessed(context.Background(), "x", "failed")
	obs.Shutdown()

	_, span := obs.StartSpan(context.Background(), "noop")
	EndSpan(span, nil)
	assert.NoError(t, obs.ForceFlush(context.Background()))
}
