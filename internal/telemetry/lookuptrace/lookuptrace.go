// Package lookuptrace wraps a single overlay Lookup call in an
// OpenTelemetry span, recording the fields a benchmark harness cares
// about (hop count, success, path length) as span attributes.
//
// Unlike the gRPC interceptor style this is adapted from, there is no
// wire context to propagate: every call in this module is a direct,
// in-process method invocation (§5), so the span simply brackets the
// call on the caller's goroutine.
package lookuptrace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"overlaylab/internal/domain"
	"overlaylab/internal/lookup"
)

const tracerName = "overlaylab/lookuptrace"

var tracer = otel.Tracer(tracerName)

// Trace runs fn inside a span named "lookup" carrying the protocol
// name, the initiator id, and the key being resolved, then annotates
// the span with fn's result before returning it.
func Trace(ctx context.Context, protocol string, initiator, key domain.ID, fn func() lookup.Result) lookup.Result {
	_, span := tracer.Start(ctx, "lookup", trace.WithAttributes(
		attribute.String("overlaylab.protocol", protocol),
		attribute.String("overlaylab.initiator", initiator.String()),
		attribute.String("overlaylab.key", key.String()),
	))
	defer span.End()

	res := fn()
	span.SetAttributes(
		attribute.Int("overlaylab.hop_count", res.HopCount),
		attribute.Int("overlaylab.path_length", len(res.Path)),
		attribute.Bool("overlaylab.success", res.Success),
		attribute.String("overlaylab.responsible_node", res.ResponsibleNode.String()),
	)
	return res
}
