// Package observability provides optional OpenTelemetry tracing for pipeline
// runs. Tracing is off unless explicitly enabled; spans export to stdout.
package observability

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Config controls tracing for a process.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	SamplingRate   float64
}

// DefaultConfig returns the tracing defaults: disabled, full sampling once
// enabled.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "quarry",
		ServiceVersion: "1.0.0",
		SamplingRate:   1.0,
	}
}

var (
	tracer   trace.Tracer
	initOnce sync.Once
)

// Initialize sets up the tracer provider. Only the first call takes effect.
// With Enabled false the no-op tracer stays in place.
func Initialize(cfg Config) error {
	var err error
	initOnce.Do(func() {
		if !cfg.Enabled {
			return
		}
		err = initTracing(cfg)
	})
	return err
}

func initTracing(cfg Config) error {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SamplingRate <= 0:
		sampler = sdktrace.NeverSample()
	case cfg.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SamplingRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	tracer = tp.Tracer(cfg.ServiceName)
	return nil
}

// StartSpan begins a span. Before Initialize the no-op tracer is used, so
// calling sites never need to guard.
func StartSpan(ctx context.Context, operationName string) (context.Context, *Span) {
	t := tracer
	if t == nil {
		t = otel.Tracer("quarry")
	}
	ctx, span := t.Start(ctx, operationName)
	return ctx, &Span{span: span}
}

// Span wraps an OTel span and batches attributes until End.
type Span struct {
	span       trace.Span
	attributes []attribute.KeyValue
}

// SetAttribute adds an attribute to the span, applied in one batch at End.
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue

	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}

	s.attributes = append(s.attributes, attr)
}

// Fail marks the span failed with the error message.
func (s *Span) Fail(err error) {
	s.span.SetStatus(codes.Error, err.Error())
	s.SetAttribute("error", true)
}

// End applies the batched attributes and finishes the span.
func (s *Span) End() {
	if len(s.attributes) > 0 {
		s.span.SetAttributes(s.attributes...)
	}
	s.span.End()
}

// Shutdown flushes and stops the tracer provider.
func Shutdown(ctx context.Context) error {
	if tp, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); ok {
		if err := tp.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown tracer: %w", err)
		}
	}
	return nil
}
