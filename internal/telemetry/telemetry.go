package telemetry

import (
	"context"
	"log/slog"

	"github.com/hugh/prompthub/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Setup installs a global tracer provider exporting over OTLP/gRPC. Without
// an endpoint it is a no-op. The returned function flushes and stops the
// provider.
func Setup(ctx context.Context, cfg config.TelemetryConfig, serviceName string, log *slog.Logger) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if cfg.Endpoint == "" {
		return noop
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		log.Warn("otel exporter unavailable, tracing disabled", "error", err)
		return noop
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		log.Warn("otel resource incomplete", "error", err)
	}

	provider := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	log.Info("tracing enabled", "endpoint", cfg.Endpoint)

	return provider.Shutdown
}
