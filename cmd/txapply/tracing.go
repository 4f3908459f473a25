package main

import (
	"context"
	"fmt"

	log "github.com/colorfulnotion/zkapply/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/colorfulnotion/zkapply/cmd/txapply"

// initTracing installs an OTLP/HTTP exporting tracer provider. With no
// endpoint the global no-op provider stays in place.
func initTracing(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	if endpoint == "" {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	exp, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter %s: %w", endpoint, err)
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", "txapply"),
		attribute.String("service.version", Version),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	log.Debug(log.CLI, "tracing enabled", "endpoint", endpoint)
	return tp.Shutdown, nil
}

func tracer() trace.Tracer { return otel.Tracer(tracerName) }
