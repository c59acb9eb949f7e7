package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestGetTraceContextEmptyWithoutSpan(t *testing.T) {
	tc := GetTraceContext(context.Background())
	assert.Empty(t, tc.TraceID)
	assert.Empty(t, tc.SpanID)
	assert.False(t, tc.Sampled)
	assert.False(t, HasTraceContext(context.Background()))
}

func TestGetTraceContextPopulatedWithRecordingSpan(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	assert.True(t, HasTraceContext(ctx))
	tc := GetTraceContext(ctx)
	assert.NotEmpty(t, tc.TraceID)
	assert.NotEmpty(t, tc.SpanID)
}

func TestRecordSpanErrorSetsStatus(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	RecordSpanError(ctx, errors.New("boom"))
	assert.Equal(t, codes.Error, span.(sdktrace.ReadOnlySpan).Status().Code)
	span.End()
	// the span has ended, so these are no-ops; exercised for panics only
	SetSpanAttributes(ctx)
	SetSpanStatus(ctx, codes.Ok, "done")
}

func TestSpanHelpersNilSafeWithoutContext(t *testing.T) {
	AddSpanEvent(nil, "evt")
	RecordSpanError(nil, errors.New("x"))
	SetSpanAttributes(nil)
	SetSpanStatus(nil, codes.Error, "x")
}
