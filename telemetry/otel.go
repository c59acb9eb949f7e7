package telemetry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/stormforge/stormforge/core"
)

// Provider wires a tracer and meter to an OTLP/HTTP collector, following
// itsneelabh-gomind/telemetry/otel.go's OTelProvider shape with the
// agent-specific EnableTelemetry hook dropped (StormForge has no BaseAgent
// to instrument — see DESIGN.md).
type Provider struct {
	tracer         trace.Tracer
	meter          metric.Meter
	traceProvider  *sdktrace.TracerProvider
	metricProvider *sdkmetric.MeterProvider

	mu           sync.Mutex
	shutdown     bool
	shutdownOnce sync.Once
}

// NewProvider builds a Provider exporting traces and metrics to endpoint
// over OTLP/HTTP, and installs it as the global otel tracer/meter provider
// plus a W3C tracecontext+baggage propagator.
func NewProvider(ctx context.Context, serviceName, endpoint string) (*Provider, error) {
	res, err := sdkresource.New(ctx,
		sdkresource.WithAttributes(semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	traceExp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("telemetry: build trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)

	metricExp, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(endpoint), otlpmetrichttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("telemetry: build metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return &Provider{
		tracer:         tp.Tracer(serviceName),
		meter:          mp.Meter(serviceName),
		traceProvider:  tp,
		metricProvider: mp,
	}, nil
}

// Span wraps an OpenTelemetry span with the narrow surface action/worker
// code needs, mirroring core.Span from itsneelabh-gomind/telemetry.
type Span interface {
	End()
	SetAttribute(key string, value interface{})
	RecordError(err error)
}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() { s.span.End() }

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	s.span.SetAttributes(attributeFor(key, value))
}

func (s *otelSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func attributeFor(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}

// StartSpan opens a child span named name under ctx's current trace.
func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := p.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

// RecordMetric reports value under name, picking an instrument kind from
// the name the way itsneelabh-gomind/telemetry/otel.go's RecordMetric does:
// "duration"/"latency"/"time"/"size"/"queue" record as histograms, anything
// else increments a counter.
func (p *Provider) RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	opt := metric.WithAttributes(attrs...)

	switch {
	case containsAny(name, "duration", "latency", "time", "size", "queue"):
		h, err := p.meter.Float64Histogram(name)
		if err != nil {
			return
		}
		h.Record(ctx, value, opt)
	default:
		c, err := p.meter.Float64Counter(name)
		if err != nil {
			return
		}
		c.Add(ctx, value, opt)
	}
}

func containsAny(s string, substrings ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Shutdown flushes and closes the trace/metric providers. Safe to call more
// than once.
func (p *Provider) Shutdown(ctx context.Context) error {
	var err error
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.shutdown = true
		p.mu.Unlock()

		if shutErr := p.traceProvider.Shutdown(ctx); shutErr != nil {
			err = fmt.Errorf("telemetry: shutdown trace provider: %w", shutErr)
		}
		if shutErr := p.metricProvider.Shutdown(ctx); shutErr != nil {
			if err != nil {
				err = fmt.Errorf("%w; telemetry: shutdown metric provider: %v", err, shutErr)
			} else {
				err = fmt.Errorf("telemetry: shutdown metric provider: %w", shutErr)
			}
		}
	})
	return err
}

// AnnotateSpanError records err onto the span that ctx carries, if any,
// pulling the Op/SessionID out of a wrapped core.StormForgeError so span
// attributes carry the same action/session identifiers the logs do.
func AnnotateSpanError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if sfe := asStormForgeError(err); sfe != nil {
		span.SetAttributes(
			attribute.String("stormforge.op", sfe.Op),
			attribute.String("stormforge.kind", sfe.Kind),
			attribute.String("stormforge.session_id", sfe.SessionID),
		)
	}
}

func asStormForgeError(err error) *core.StormForgeError {
	for err != nil {
		if sfe, ok := err.(*core.StormForgeError); ok {
			return sfe
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		err = u.Unwrap()
	}
	return nil
}
