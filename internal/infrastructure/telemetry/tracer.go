// Package telemetry wires OpenTelemetry tracing and Prometheus metrics.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"

	"pharmaerp/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Config holds trace export settings.
type Config struct {
	Enabled       bool
	ServiceName   string
	Environment   string
	Endpoint      string // OTLP gRPC collector, host:port
	Insecure      bool
	SamplingRatio float64
}

// TracerProvider owns the SDK provider installed as the global otel provider.
// A disabled provider leaves the global no-op tracer in place.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	log      *logger.Logger
	cfg      Config
}

// NewTracerProvider installs an OTLP-exporting tracer provider and the W3C propagators.
// The postgres TxManager and the gin middleware pick it up through otel's globals.
func NewTracerProvider(ctx context.Context, cfg Config, log *logger.Logger) (*TracerProvider, error) {
	if log == nil {
		log = logger.Default()
	}
	tp := &TracerProvider{log: log.WithComponent("telemetry"), cfg: cfg}

	if !cfg.Enabled {
		tp.log.Infow("Tracing disabled")
		return tp, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}

	tp.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SamplingRatio)),
	)

	otel.SetTracerProvider(tp.provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tp.log.Infow("Tracing enabled",
		"endpoint", cfg.Endpoint,
		"sampling_ratio", cfg.SamplingRatio,
		"service", cfg.ServiceName,
	)
	return tp, nil
}

func newResource(cfg Config) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			attribute.String("deployment.environment.name", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}
	return res, nil
}

// newSampler respects an upstream sampling decision and applies the ratio to root spans.
func newSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// Enabled reports whether spans are exported.
func (tp *TracerProvider) Enabled() bool {
	return tp.provider != nil
}

// Shutdown flushes pending spans.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := tp.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown tracer provider: %w", err)
	}
	tp.log.Infow("Tracer provider flushed")
	return nil
}
