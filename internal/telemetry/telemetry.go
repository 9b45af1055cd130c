// Package telemetry wires OpenTelemetry tracing and metrics for the bot.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/yelinaung/split-bot/internal/config"
)

// ServiceName is reported as service.name on every span and metric.
const ServiceName = "split-bot"

const instrumentationName = "gitlab.com/yelinaung/split-bot"

// ShutdownFunc flushes and stops the providers installed by Setup.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

type exporters struct {
	span   sdktrace.SpanExporter
	metric sdkmetric.Exporter
}

// newExporters is a seam for tests.
var newExporters = func(ctx context.Context, kind string) (exporters, error) {
	switch kind {
	case config.ExporterStdout:
		span, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return exporters{}, err
		}
		metric, err := stdoutmetric.New()
		if err != nil {
			return exporters{}, err
		}
		return exporters{span: span, metric: metric}, nil
	case config.ExporterOTLPGRPC:
		span, err := otlptracegrpc.New(ctx)
		if err != nil {
			return exporters{}, err
		}
		metric, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return exporters{}, err
		}
		return exporters{span: span, metric: metric}, nil
	case config.ExporterOTLPHTTP:
		span, err := otlptracehttp.New(ctx)
		if err != nil {
			return exporters{}, err
		}
		metric, err := otlpmetrichttp.New(ctx)
		if err != nil {
			return exporters{}, err
		}
		return exporters{span: span, metric: metric}, nil
	default:
		return exporters{}, fmt.Errorf("unknown exporter %q", kind)
	}
}

// Setup installs global trace and metric providers for the given exporter
// kind. With config.ExporterNone the otel no-op globals stay in place.
// OTLP endpoints are taken from the standard OTEL_EXPORTER_OTLP_* variables.
func Setup(ctx context.Context, kind, version string) (ShutdownFunc, error) {
	if kind == "" || kind == config.ExporterNone {
		return noopShutdown, nil
	}

	exp, err := newExporters(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("create %s exporters: %w", kind, err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", ServiceName),
		attribute.String("service.version", version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp.span),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp.metric)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

// Tracer returns the tracer for the named component.
func Tracer(component string) trace.Tracer {
	return otel.Tracer(instrumentationName + "/" + component)
}
