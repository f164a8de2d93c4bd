// Package otel wires OpenTelemetry tracing.
//
// Tracing is opt-in: with an empty endpoint no global provider is registered
// and spans started through otel.Tracer are no-ops.
package otel

import (
	"context"
	"log/slog"

	"github.com/webitel/message-wall/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/fx"
)

// ShutdownFunc flushes pending spans.
type ShutdownFunc func(context.Context) error

// Setup registers the global tracer provider described by cfg.
func Setup(ctx context.Context, cfg config.OtelConfig, version string) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }
	if cfg.Endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(cfg.Endpoint),
	)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp.Shutdown, nil
}

// Module installs tracing for the lifetime of the app.
func Module(version string) fx.Option {
	return fx.Module("otel",
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) {
			var shutdown ShutdownFunc
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					var err error
					if shutdown, err = Setup(ctx, cfg.Otel, version); err != nil {
						return err
					}
					if cfg.Otel.Endpoint != "" {
						logger.Info("TRACING_ENABLED", "endpoint", cfg.Otel.Endpoint, "ratio", cfg.Otel.SampleRatio)
					}
					return nil
				},
				OnStop: func(ctx context.Context) error {
					if shutdown == nil {
						return nil
					}
					return shutdown(ctx)
				},
			})
		}),
	)
}
