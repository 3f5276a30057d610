// Package telemetry provides OpenTelemetry tracing and metrics.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/jsamuelsen/contextify/internal/platform/config"
)

const shutdownTimeout = 5 * time.Second

// Config holds telemetry configuration.
type Config struct {
	Enabled bool

	// Endpoint is the collector URL. An http:// scheme disables TLS.
	Endpoint     string
	ServiceName  string
	Version      string
	Environment  string
	SamplingRate float64
}

// ConfigFrom builds a telemetry Config from the service configuration.
// The service name falls back to the application name.
func ConfigFrom(app config.AppConfig, tel config.TelemetryConfig) *Config {
	name := tel.ServiceName
	if name == "" {
		name = app.Name
	}

	return &Config{
		Enabled:      tel.Enabled,
		Endpoint:     tel.Endpoint,
		ServiceName:  name,
		Version:      app.Version,
		Environment:  app.Environment,
		SamplingRate: tel.SamplingRate,
	}
}

// Option replaces part of the OTLP pipeline.
type Option func(*options)

type options struct {
	spans   trace.SpanExporter
	metrics metric.Reader
}

// WithSpanExporter exports spans to e instead of the OTLP collector.
func WithSpanExporter(e trace.SpanExporter) Option {
	return func(o *options) { o.spans = e }
}

// WithMetricReader collects metrics through r instead of a periodic OTLP push.
func WithMetricReader(r metric.Reader) Option {
	return func(o *options) { o.metrics = r }
}

// Provider owns the tracer and meter providers installed as globals.
type Provider struct {
	tracerProvider *trace.TracerProvider
	meterProvider  *metric.MeterProvider
}

// New installs global tracer and meter providers exporting to cfg.Endpoint,
// plus the W3C trace context and baggage propagators. HTTP spans and the
// dispatcher's delivery counters both flow through them. A disabled config
// returns a Provider whose Shutdown does nothing.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	if o.spans == nil {
		if o.spans, err = otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(cfg.Endpoint)); err != nil {
			return nil, fmt.Errorf("creating trace exporter: %w", err)
		}
	}

	if o.metrics == nil {
		exporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpointURL(cfg.Endpoint))
		if err != nil {
			return nil, fmt.Errorf("creating metric exporter: %w", err)
		}
		o.metrics = metric.NewPeriodicReader(exporter)
	}

	p := &Provider{
		tracerProvider: trace.NewTracerProvider(
			trace.WithResource(res),
			trace.WithBatcher(o.spans),
			trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(cfg.SamplingRate))),
		),
		meterProvider: metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(o.metrics),
		),
	}

	otel.SetTracerProvider(p.tracerProvider)
	otel.SetMeterProvider(p.meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return p, nil
}

// Shutdown flushes and stops both providers, bounded by shutdownTimeout.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	if err := p.tracerProvider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down tracer provider: %w", err))
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down meter provider: %w", err))
	}

	return errors.Join(errs...)
}
