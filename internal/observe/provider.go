package observe

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Resource attribute keys describing the run.
const (
	EngineKey = attribute.Key("hesitate.engine")
	ModelKey  = attribute.Key("hesitate.model")
)

// ProviderConfig describes the run the telemetry belongs to.
type ProviderConfig struct {
	// ServiceName defaults to "hesitate".
	ServiceName    string
	ServiceVersion string

	// Engine and Model name the transcription engine and model selector.
	// Both become resource attributes on every exported metric and span.
	Engine string
	Model  string

	// Registerer receives the Prometheus collector. Nil means
	// prometheus.DefaultRegisterer, which is what [ServeMetrics] gathers by
	// default.
	Registerer prometheus.Registerer

	// TraceExporter is optional; without it spans are sampled but dropped.
	TraceExporter sdktrace.SpanExporter
}

// newResource builds the resource shared by the meter and tracer providers.
func newResource(ctx context.Context, cfg ProviderConfig) (*resource.Resource, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "hesitate"
	}
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	if cfg.Engine != "" {
		attrs = append(attrs, EngineKey.String(cfg.Engine))
	}
	if cfg.Model != "" {
		attrs = append(attrs, ModelKey.String(cfg.Model))
	}
	return resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(attrs...),
	)
}

// InitProvider installs a MeterProvider feeding the Prometheus exporter and a
// TracerProvider as the global OTel providers for this run. The returned
// shutdown flushes both; call it once the run has finished.
func InitProvider(ctx context.Context, cfg ProviderConfig) (shutdown func(context.Context) error, err error) {
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("observe: resource: %w", err)
	}

	var expOpts []promexporter.Option
	if cfg.Registerer != nil {
		expOpts = append(expOpts, promexporter.WithRegisterer(cfg.Registerer))
	}
	promExp, err := promexporter.New(expOpts...)
	if err != nil {
		return nil, fmt.Errorf("observe: prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExp),
	)

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.TraceExporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(cfg.TraceExporter))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)

	otel.SetMeterProvider(mp)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}
