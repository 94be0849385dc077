// Package telemetry configures OpenTelemetry tracing for API requests.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// ServiceName identifies this program in exported traces.
const ServiceName = "concierge"

// EndpointEnv is read when the config names no endpoint.
const EndpointEnv = "OTEL_EXPORTER_OTLP_ENDPOINT"

// ResolveEndpoint returns the configured endpoint, falling back to
// EndpointEnv.
func ResolveEndpoint(configured string) string {
	if e := strings.TrimSpace(configured); e != "" {
		return e
	}
	return strings.TrimSpace(os.Getenv(EndpointEnv))
}

// Setup installs a global tracer provider exporting to endpoint over
// OTLP/HTTP. An empty endpoint falls back to EndpointEnv; when both are
// empty the default no-op provider stays in place. The returned shutdown
// function flushes pending spans.
func Setup(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	endpoint = ResolveEndpoint(endpoint)
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{}
	switch {
	case strings.HasPrefix(endpoint, "http://"), strings.HasPrefix(endpoint, "https://"):
		opts = append(opts, otlptracehttp.WithEndpointURL(endpoint))
	default:
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(ServiceName),
	)
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}
