package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrPhase  = attribute.Key("viking.phase")
	AttrWorker = attribute.Key("viking.worker")
	AttrMark   = attribute.Key("viking.mark")
)

// StartRequestSpan starts a client span for one attempted request.
func StartRequestSpan(ctx context.Context, tracer trace.Tracer, method, target string, phase, worker int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "HTTP "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", target),
			AttrPhase.Int(phase),
			AttrWorker.Int(worker),
		),
	)
}

// EndRequestSpan finishes a request span. A non-nil err marks a transport failure.
func EndRequestSpan(span trace.Span, status int, mark string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return
	}
	span.SetAttributes(
		attribute.Int("http.response.status_code", status),
		AttrMark.String(mark),
	)
	if mark == "error" {
		span.SetStatus(codes.Error, http.StatusText(status))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
