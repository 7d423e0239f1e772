package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// TracerName is the instrumentation scope for agentforge spans.
const TracerName = "agentforge"

// TraceProvider wraps the tracer with its shutdown hook.
type TraceProvider struct {
	Tracer   trace.Tracer
	shutdown func(context.Context) error
}

// InitTracing sets up a trace provider with a stdout exporter. When
// disabled it returns a no-op provider with zero overhead.
func InitTracing(ctx context.Context, enabled bool, serviceName string) (*TraceProvider, error) {
	if !enabled {
		return &TraceProvider{
			Tracer:   nooptrace.NewTracerProvider().Tracer(TracerName),
			shutdown: func(context.Context) error { return nil },
		}, nil
	}

	if serviceName == "" {
		serviceName = "agentforge"
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	// Traces go to stderr: stdout is reserved for the stdio transport.
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(stderrWriter{}))
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &TraceProvider{
		Tracer:   tp.Tracer(TracerName),
		shutdown: tp.Shutdown,
	}, nil
}

// Shutdown flushes and stops the provider.
func (p *TraceProvider) Shutdown(ctx context.Context) error {
	return p.shutdown(ctx)
}

// stderrWriter routes exporter output to stderr without holding a
// long-lived *os.File reference.
type stderrWriter struct{}

func (stderrWriter) Write(p []byte) (int, error) { return os.Stderr.Write(p) }
