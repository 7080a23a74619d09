// Package telemetry provides OpenTelemetry instrumentation for rouse.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/yairfalse/rouse/internal/config"
	"github.com/yairfalse/rouse/internal/reconciler"
)

var _ reconciler.Metrics = (*Provider)(nil)

// Provider wraps OTEL tracer and meter providers.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter

	// Metrics
	reconcileDuration metric.Float64Histogram
	pollIterations    metric.Int64Counter
	startActions      metric.Int64Counter
	reconcileErrors   metric.Int64Counter
}

// NewProvider creates a new telemetry provider.
func NewProvider(ctx context.Context, cfg config.OTELConfig) (*Provider, error) {
	return newProvider(ctx, cfg)
}

// newProvider accepts extra metric readers so tests can collect in-process.
func newProvider(ctx context.Context, cfg config.OTELConfig, readers ...sdkmetric.Reader) (*Provider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	p := &Provider{}

	if err := p.setupTracing(ctx, cfg, res); err != nil {
		return nil, err
	}

	if err := p.setupMetrics(ctx, cfg, res, readers); err != nil {
		if p.tracerProvider != nil {
			_ = p.tracerProvider.Shutdown(ctx)
		}
		return nil, err
	}

	if err := p.initMetrics(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Provider) setupTracing(ctx context.Context, cfg config.OTELConfig, res *resource.Resource) error {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
	}

	if cfg.Traces.Enabled && cfg.Endpoint != "" {
		exp, err := createTraceExporter(ctx, cfg)
		if err != nil {
			return fmt.Errorf("create trace exporter: %w", err)
		}
		sampler := sdktrace.TraceIDRatioBased(cfg.Traces.SampleRate)
		opts = append(opts, sdktrace.WithBatcher(exp), sdktrace.WithSampler(sampler))
	}

	p.tracerProvider = sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(p.tracerProvider)
	p.tracer = p.tracerProvider.Tracer("rouse")

	return nil
}

func (p *Provider) setupMetrics(ctx context.Context, cfg config.OTELConfig, res *resource.Resource, readers []sdkmetric.Reader) error {
	opts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
	}

	if cfg.Metrics.Enabled && cfg.Endpoint != "" {
		exp, err := createMetricExporter(ctx, cfg)
		if err != nil {
			return fmt.Errorf("create metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
	}
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}

	p.meterProvider = sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(p.meterProvider)
	p.meter = p.meterProvider.Meter("rouse")

	return nil
}

func createTraceExporter(ctx context.Context, cfg config.OTELConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptracegrpc.New(ctx, opts...)
}

func createMetricExporter(ctx context.Context, cfg config.OTELConfig) (sdkmetric.Exporter, error) {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	return otlpmetricgrpc.New(ctx, opts...)
}

func (p *Provider) initMetrics() error {
	var err error

	p.reconcileDuration, err = p.meter.Float64Histogram(
		"rouse_reconcile_duration_seconds",
		metric.WithDescription("Duration of reconciliations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create reconcile_duration: %w", err)
	}

	p.pollIterations, err = p.meter.Int64Counter(
		"rouse_poll_iterations_total",
		metric.WithDescription("Total inventory polls"),
	)
	if err != nil {
		return fmt.Errorf("create poll_iterations: %w", err)
	}

	p.startActions, err = p.meter.Int64Counter(
		"rouse_start_actions_total",
		metric.WithDescription("Total instances asked to start"),
	)
	if err != nil {
		return fmt.Errorf("create start_actions: %w", err)
	}

	p.reconcileErrors, err = p.meter.Int64Counter(
		"rouse_reconcile_errors_total",
		metric.WithDescription("Total failed reconciliations by kind"),
	)
	if err != nil {
		return fmt.Errorf("create reconcile_errors: %w", err)
	}

	return nil
}

// Tracer returns the tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// RecordIteration counts one inventory poll.
func (p *Provider) RecordIteration(ctx context.Context) {
	p.pollIterations.Add(ctx, 1)
}

// RecordStartActions counts instances asked to start.
func (p *Provider) RecordStartActions(ctx context.Context, count int) {
	p.startActions.Add(ctx, int64(count))
}

// RecordReconcile records the duration and, on failure, the error kind.
func (p *Provider) RecordReconcile(ctx context.Context, d time.Duration, kind string) {
	p.reconcileDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("result", kind),
	))
	if kind != reconciler.KindNone {
		p.reconcileErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", kind),
		))
	}
}

// ForceFlush exports anything buffered. Lambda may freeze the sandbox as
// soon as the handler returns.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if err := p.tracerProvider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("flush tracer: %w", err)
	}
	if err := p.meterProvider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("flush meter: %w", err)
	}
	return nil
}

// Shutdown flushes and shuts down the providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown tracer: %w", err)
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown meter: %w", err)
		}
	}
	return nil
}
