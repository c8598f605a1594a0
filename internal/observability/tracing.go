package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"upysize/internal/errors"
)

// Tracer is the process-wide tracer. It defaults to a no-op and becomes
// real once SetupTracing runs against a collector endpoint.
var Tracer trace.Tracer = otel.Tracer("upysize")

// SetupTracing installs an OTLP/gRPC trace pipeline. endpoint is
// host:port of the collector; empty keeps the no-op tracer. The returned
// shutdown flushes pending spans.
func SetupTracing(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "create trace exporter")
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName("upysize")),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "build trace resource")
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	Tracer = provider.Tracer("upysize")

	return provider.Shutdown, nil
}
