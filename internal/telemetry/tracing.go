// Package telemetry configures OpenTelemetry tracing for API requests.
//
// Request spans follow the OTel HTTP client semantic conventions:
//   - http.request.method
//   - url.full
//   - server.address
//   - http.response.status_code
//
// Custom span attributes use the `coreapi.` prefix.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/fivetwenty-io/paycore/pkg/coreapi"
)

const (
	tracerName  = "github.com/fivetwenty-io/paycore"
	serviceName = "coreapi"
)

// Tracer returns the package-level tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// InitTraceProvider initialises the OTel trace provider with an OTLP gRPC exporter.
// If endpoint is empty, tracing is disabled (noop provider is used).
// Returns a shutdown function that must be called on application exit.
func InitTraceProvider(ctx context.Context, endpoint string, version string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// StartRequestSpan creates a client span for one performed request.
func StartRequestSpan(ctx context.Context, tracer trace.Tracer, req *coreapi.Request, encoding coreapi.ParametersEncoding) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		semconv.HTTPRequestMethodKey.String(req.Method),
		attribute.String("coreapi.parameters_encoding", encoding.String()),
	}

	if req.URL != nil {
		attrs = append(attrs,
			semconv.URLFull(req.URL.Redacted()),
			semconv.ServerAddress(req.URL.Hostname()),
		)
	}

	return tracer.Start(ctx, "coreapi.request",
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndRequestSpan enriches the span with the outcome and ends it.
func EndRequestSpan(span trace.Span, outcome coreapi.Outcome) {
	if outcome.Response != nil {
		span.SetAttributes(semconv.HTTPResponseStatusCode(outcome.Response.StatusCode))
	}

	if outcome.Err != nil {
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, outcome.Err.Error())
		span.SetAttributes(attribute.Bool("coreapi.canceled", coreapi.IsCanceled(outcome.Err)))
	}

	span.End()
}

// RecordBuildFailure records a task that failed before any request was sent.
func RecordBuildFailure(ctx context.Context, tracer trace.Tracer, err error) {
	_, span := tracer.Start(ctx, "coreapi.build")
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
}
