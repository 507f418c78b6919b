package simserver

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/signalsfoundry/psim/internal/logging"
	"github.com/signalsfoundry/psim/internal/observability"
)

const (
	tracerName = "github.com/signalsfoundry/psim/internal/simserver"

	// RunIDMetadataKey carries the run identifier a client wants its calls
	// logged under.
	RunIDMetadataKey = "x-run-id"
)

// RunIDUnaryServerInterceptor places a run id on the context, taken from
// inbound metadata when present and otherwise from runID, and attaches a
// per-call logger annotated with run_id and method.
func RunIDUnaryServerInterceptor(base logging.Logger, runID string) grpc.UnaryServerInterceptor {
	if base == nil {
		base = logging.Noop()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		id := runID
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(RunIDMetadataKey); len(vals) > 0 && vals[0] != "" {
				id = vals[0]
			}
		}
		if id != "" {
			ctx = logging.ContextWithRunID(ctx, id)
		}
		ctx, callLog := logging.WithRunLogger(ctx, base.With(logging.String("method", info.FullMethod)))
		ctx = logging.ContextWithLogger(ctx, callLog)

		resp, err := handler(ctx, req)
		if err != nil {
			callLog.Warn(ctx, "rpc failed", logging.Err(err))
		} else {
			callLog.Debug(ctx, "rpc handled")
		}
		return resp, err
	}
}

// TracingUnaryServerInterceptor names the server span after the method and
// adds rpc attributes, starting a span when no stats handler created one.
func TracingUnaryServerInterceptor() grpc.UnaryServerInterceptor {
	tracer := otel.Tracer(tracerName)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		service, method := observability.SplitMethod(info.FullMethod)
		name := fmt.Sprintf("psim/%s/%s", service, method)

		span := trace.SpanFromContext(ctx)
		created := false
		if !span.SpanContext().IsValid() {
			ctx, span = tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindServer))
			created = true
		} else {
			span.SetName(name)
		}

		attrs := []attribute.KeyValue{
			attribute.String("rpc.system", "grpc"),
			attribute.String("rpc.service", service),
			attribute.String("rpc.method", method),
			attribute.String("rpc.full_method", strings.TrimPrefix(info.FullMethod, "/")),
		}
		if id := logging.RunIDFromContext(ctx); id != "" {
			attrs = append(attrs, attribute.String("psim.run_id", id))
		}
		span.SetAttributes(attrs...)

		resp, err := handler(ctx, req)
		if err != nil {
			span.RecordError(err)
		}
		if created {
			span.End()
		}
		return resp, err
	}
}
