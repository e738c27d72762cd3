// Package telemetry installs the OpenTelemetry trace provider used by the
// service spans.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"ilmhub/internal/config"
)

// DefaultServiceName identifies ilm in the trace backend.
const DefaultServiceName = "ilmhub"

// ShutdownFunc flushes and stops the trace provider.
type ShutdownFunc func(context.Context) error

func noop(context.Context) error { return nil }

// Setup installs the exporter selected by cfg as the global trace provider.
// With type "none" the global no-op provider stays in place.
func Setup(cfg config.TelemetryConfig, version string) (ShutdownFunc, error) {
	switch cfg.Type {
	case "none", "":
		return noop, nil
	case "jaeger":
		if cfg.JaegerEndpoint == "" {
			return nil, fmt.Errorf("jaeger telemetry requires jaeger_endpoint to be set")
		}
		name := cfg.ServiceName
		if name == "" {
			name = DefaultServiceName
		}
		return InitJaeger(name, version, cfg.JaegerEndpoint)
	default:
		return nil, fmt.Errorf("unknown telemetry type: %s", cfg.Type)
	}
}

// InitJaeger exports spans to a Jaeger collector endpoint.
func InitJaeger(serviceName, version, endpoint string) (ShutdownFunc, error) {
	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(endpoint)))
	if err != nil {
		return nil, fmt.Errorf("creating jaeger exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
