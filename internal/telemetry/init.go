// Package telemetry wires the optional OpenTelemetry tracer used to
// record per-lookup spans (internal/telemetry/lookuptrace). Only the
// stdout exporter is wired: there is no real transport in this module
// for a collector to sit behind (§1 — no real RPC transport).
package telemetry

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"overlaylab/internal/config"
)

// InitTracer configures the global tracer provider from cfg and returns
// a shutdown function. When tracing is disabled it returns a no-op
// shutdown so callers can defer it unconditionally.
//
// Each call is tagged with a fresh run id (via google/uuid) so that
// successive runs of the same protocol in one process produce
// distinguishable traces.
func InitTracer(cfg config.TracingConfig) func(context.Context) error {
	if !cfg.Enabled {
		log.Println("tracing disabled")
		return func(context.Context) error { return nil }
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "overlaylab"
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			attribute.String("overlaylab.run_id", uuid.NewString()),
		),
	)
	if err != nil {
		log.Fatalf("failed to create telemetry resource: %v", err)
	}

	var tp *sdktrace.TracerProvider
	switch cfg.Exporter {
	case "stdout", "":
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			log.Fatalf("failed to initialize stdout exporter: %v", err)
		}
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(res),
		)
	default:
		panic(fmt.Sprintf("unsupported tracing exporter: %s", cfg.Exporter))
	}

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	return tp.Shutdown
}
