// Package telemetry bootstraps the OpenTelemetry tracer provider used by
// pkg/transport, pkg/planner, pkg/scheduler and pkg/orchestrator. Adapted
// from the teacher's telemetry/otel.go (NewOTelProvider's resource/batch
// processor/shutdown shape), rebound from the teacher's OTLP/HTTP exporter
// to OTLP/gRPC plus a stdout fallback for local runs without a collector.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// Provider owns the process-wide TracerProvider and its exporter pipeline.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// Setup builds and installs the global TracerProvider. With otlpEndpoint
// empty, spans are exported to stdout (useful for local runs with no
// collector); otherwise they're batched to the endpoint over OTLP/gRPC.
func Setup(ctx context.Context, serviceName, otlpEndpoint string) (*Provider, error) {
	if serviceName == "" {
		return nil, fmt.Errorf("telemetry: service name is required")
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	exporter, err := newExporter(ctx, otlpEndpoint)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return &Provider{tp: tp}, nil
}

func newExporter(ctx context.Context, otlpEndpoint string) (sdktrace.SpanExporter, error) {
	if otlpEndpoint == "" {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	return otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(otlpEndpoint),
		otlptracegrpc.WithInsecure(),
	)
}

// Tracer returns a tracer under the given instrumentation name, for
// components that don't want to call otel.Tracer directly.
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.tp.Tracer(name)
}

// Shutdown flushes pending spans and stops the exporter pipeline.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.tp.Shutdown(ctx)
}
