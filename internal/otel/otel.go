// Package otel turns bus events into OpenTelemetry spans: one span per HTTP
// request, a child span per executed operation and a span event per
// top-level field.
package otel

import (
	"context"
	"sync"

	eventbus "github.com/hanpama/gqlexec/internal/eventbus"
	events "github.com/hanpama/gqlexec/internal/events"
	reqid "github.com/hanpama/gqlexec/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const instrumentation = "github.com/hanpama/gqlexec"

// Setup exports spans over OTLP/gRPC to endpoint and subscribes to the
// process-wide bus. An empty endpoint leaves tracing off. The returned
// function flushes and stops the exporter.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := NewTracing(tp.Tracer(instrumentation)).Subscribe()
	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

// Tracing keeps the spans that are open per request ID.
type Tracing struct {
	tracer trace.Tracer

	requests   sync.Map // reqid.ID -> trace.Span
	operations sync.Map // reqid.ID -> trace.Span
}

func NewTracing(tracer trace.Tracer) *Tracing {
	return &Tracing{tracer: tracer}
}

// Subscribe attaches t to the process-wide bus.
func (t *Tracing) Subscribe() (unsubscribe func()) {
	return joined(
		eventbus.Subscribe(t.httpStart),
		eventbus.Subscribe(t.httpFinish),
		eventbus.Subscribe(t.operationStart),
		eventbus.Subscribe(t.operationFinish),
		eventbus.Subscribe(t.fieldFinish),
	)
}

// Attach subscribes t to b.
func (t *Tracing) Attach(b *eventbus.Bus) (detach func()) {
	return joined(
		eventbus.On(b, t.httpStart),
		eventbus.On(b, t.httpFinish),
		eventbus.On(b, t.operationStart),
		eventbus.On(b, t.operationFinish),
		eventbus.On(b, t.fieldFinish),
	)
}

func joined(fns ...func()) func() {
	return func() {
		for _, fn := range fns {
			fn()
		}
	}
}

func (t *Tracing) httpStart(ctx context.Context, e events.HTTPStart) {
	rid, _ := reqid.FromContext(ctx)
	_, span := t.tracer.Start(ctx, "http.request", trace.WithSpanKind(trace.SpanKindServer))
	span.SetAttributes(
		semconv.HTTPMethodKey.String(e.Request.Method),
		attribute.String("http.target", e.Request.URL.Path),
		attribute.String("graphql.request_id", rid.String()),
	)
	t.requests.Store(rid, span)
}

func (t *Tracing) httpFinish(ctx context.Context, e events.HTTPFinish) {
	rid, _ := reqid.FromContext(ctx)
	v, ok := t.requests.LoadAndDelete(rid)
	if !ok {
		return
	}
	span := v.(trace.Span)
	span.SetAttributes(
		semconv.HTTPStatusCodeKey.Int(e.Status),
		attribute.Int("graphql.operations", e.Operations),
	)
	if e.Status >= 500 {
		span.SetStatus(codes.Error, "")
	}
	span.End()
}

func (t *Tracing) operationStart(ctx context.Context, e events.GraphQLStart) {
	rid, _ := reqid.FromContext(ctx)
	parent := ctx
	if v, ok := t.requests.Load(rid); ok {
		parent = trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	_, span := t.tracer.Start(parent, "graphql.operation")
	span.SetAttributes(
		attribute.String("graphql.operation.name", e.OperationName),
		attribute.String("graphql.operation.type", e.OperationType),
	)
	t.operations.Store(rid, span)
}

func (t *Tracing) operationFinish(ctx context.Context, e events.GraphQLFinish) {
	rid, _ := reqid.FromContext(ctx)
	v, ok := t.operations.LoadAndDelete(rid)
	if !ok {
		return
	}
	span := v.(trace.Span)
	span.SetAttributes(attribute.Int("graphql.error_count", len(e.Errors)))
	if len(e.Errors) > 0 {
		var kinds []string
		seen := map[string]bool{}
		for _, err := range e.Errors {
			if k := string(err.Kind); k != "" && !seen[k] {
				seen[k] = true
				kinds = append(kinds, k)
			}
		}
		span.SetAttributes(attribute.StringSlice("graphql.error_kinds", kinds))
		span.SetStatus(codes.Error, e.Errors[0].Message)
	}
	span.End()
}

func (t *Tracing) fieldFinish(ctx context.Context, e events.FieldFinish) {
	rid, _ := reqid.FromContext(ctx)
	v, ok := t.operations.Load(rid)
	if !ok {
		return
	}
	v.(trace.Span).AddEvent("graphql.field", trace.WithAttributes(
		attribute.String("graphql.field.parent_type", e.ParentType),
		attribute.String("graphql.field.name", e.Field),
		attribute.String("graphql.field.key", e.Key),
		attribute.Bool("graphql.field.aborted", e.Aborted),
		attribute.Int64("graphql.field.duration_us", e.Duration.Microseconds()),
	))
}
