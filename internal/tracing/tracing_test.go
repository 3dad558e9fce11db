package tracing_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/viking/internal/config"
	"github.com/torosent/viking/internal/tracing"
)

func setupTestTracer(t *testing.T) (*tracetest.InMemoryExporter, trace.Tracer) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return exporter, tp.Tracer("test")
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestInitDisabledByDefault(t *testing.T) {
	p, err := tracing.Init(context.Background(), config.TracingConfig{}, "run")
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	if p.ShouldPropagate() {
		t.Error("ShouldPropagate() = true, want false when tracing disabled")
	}
	_, span := p.Tracer().Start(context.Background(), "test")
	defer span.End()
	if span.SpanContext().IsValid() {
		t.Error("disabled tracer produced a valid span context")
	}
}

func TestInitWithEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		protocol string
		endpoint string
	}{
		{"grpc", "grpc", "localhost:4317"},
		{"http", "http", "localhost:4318"},
		{"default protocol", "", "localhost:4317"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tracing.Init(context.Background(), config.TracingConfig{
				Endpoint:   tt.endpoint,
				Protocol:   tt.protocol,
				Insecure:   true,
				SampleRate: 1.0,
			}, "01HZX")
			if err != nil {
				t.Fatalf("Init() error = %v", err)
			}
			t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
			if p.ShouldPropagate() {
				t.Error("ShouldPropagate() = true without trace-propagate")
			}
		})
	}
}

func TestInitPropagateWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	p, err := tracing.Init(context.Background(), config.TracingConfig{Propagate: true, SampleRate: 1.0}, "run")
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	if !p.ShouldPropagate() {
		t.Fatal("ShouldPropagate() = false, want true")
	}
	ctx, span := p.Tracer().Start(context.Background(), "request")
	defer span.End()

	headers := make(http.Header)
	tracing.InjectHTTPHeaders(ctx, headers)
	if headers.Get("Traceparent") == "" {
		t.Error("traceparent not injected when propagating without an exporter")
	}
}

func TestInitRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.TracingConfig
	}{
		{"unsupported protocol", config.TracingConfig{Endpoint: "localhost:4317", Protocol: "thrift", Insecure: true, SampleRate: 1}},
		{"negative sample rate", config.TracingConfig{Endpoint: "localhost:4317", SampleRate: -0.5}},
		{"sample rate above one", config.TracingConfig{Endpoint: "localhost:4317", SampleRate: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tracing.Init(context.Background(), tt.cfg, ""); err == nil {
				t.Fatal("Init() error = nil, want error")
			}
		})
	}
}

func TestNilProviderSafety(t *testing.T) {
	var p *tracing.Provider
	if p.ShouldPropagate() {
		t.Error("nil provider ShouldPropagate() = true, want false")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("nil provider Shutdown() error = %v", err)
	}
	_, span := p.Tracer().Start(context.Background(), "test")
	span.End()
}

func TestRequestSpanSuccess(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	_, span := tracing.StartRequestSpan(context.Background(), tracer, http.MethodGet, "http://x/items/1", 2, 3)
	tracing.EndRequestSpan(span, 200, "success", nil)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	got := spans[0]
	if got.Name != "HTTP GET" {
		t.Errorf("span name = %q, want %q", got.Name, "HTTP GET")
	}
	if got.SpanKind != trace.SpanKindClient {
		t.Errorf("span kind = %v, want client", got.SpanKind)
	}
	if got.Status.Code != codes.Ok {
		t.Errorf("status = %v, want Ok", got.Status.Code)
	}
	if v, ok := attrValue(got.Attributes, "url.full"); !ok || v.AsString() != "http://x/items/1" {
		t.Errorf("url.full = %v", v.AsString())
	}
	if v, ok := attrValue(got.Attributes, "viking.phase"); !ok || v.AsInt64() != 2 {
		t.Errorf("viking.phase = %v", v.AsInt64())
	}
	if v, ok := attrValue(got.Attributes, "http.response.status_code"); !ok || v.AsInt64() != 200 {
		t.Errorf("status_code = %v", v.AsInt64())
	}
	if v, ok := attrValue(got.Attributes, "viking.mark"); !ok || v.AsString() != "success" {
		t.Errorf("viking.mark = %v", v.AsString())
	}
}

func TestRequestSpanErrorMark(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	_, span := tracing.StartRequestSpan(context.Background(), tracer, http.MethodGet, "http://x", 1, 0)
	tracing.EndRequestSpan(span, 503, "error", nil)

	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Status.Code != codes.Error {
		t.Fatalf("expected one errored span, got %+v", spans)
	}
}

func TestRequestSpanTransportError(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	_, span := tracing.StartRequestSpan(context.Background(), tracer, http.MethodGet, "http://x", 1, 0)
	tracing.EndRequestSpan(span, 0, "", errors.New("connection refused"))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("status = %v, want Error", spans[0].Status.Code)
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected the error to be recorded as a span event")
	}
	if _, ok := attrValue(spans[0].Attributes, "http.response.status_code"); ok {
		t.Error("transport failure should not carry a status code")
	}
}

func TestInjectHTTPHeaders(t *testing.T) {
	_, tracer := setupTestTracer(t)

	ctx, span := tracer.Start(context.Background(), "test-inject")
	defer span.End()

	headers := make(http.Header)
	tracing.InjectHTTPHeaders(ctx, headers)

	got := headers.Get("Traceparent")
	// version-traceid-spanid-flags
	if len(got) < 55 {
		t.Errorf("traceparent header too short: %q", got)
	}
}

func TestInjectHTTPHeadersNoSpan(t *testing.T) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
	))
	headers := make(http.Header)
	tracing.InjectHTTPHeaders(context.Background(), headers)

	if got := headers.Get("Traceparent"); got != "" {
		t.Errorf("traceparent header should be empty without span, got %q", got)
	}
}
