package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/datapipe/result"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// Enabled turns on metric export.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// ServiceName is the name of the service.
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	// ServiceVersion is the version of the service.
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	// Environment is the deployment environment (dev, staging, prod).
	Environment string `yaml:"environment" mapstructure:"environment"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	// Insecure allows insecure connections (for development).
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
	// Interval is the metric export interval.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// PipelineMetrics holds the instruments fed from execution reports.
type PipelineMetrics struct {
	executions metric.Int64Counter
	duration   metric.Float64Histogram
	recordsIn  metric.Int64Counter
	recordsOut metric.Int64Counter
	stepErrors metric.Int64Counter
	parkings   metric.Int64Counter
}

// NewPipelineMetrics creates the pipeline instruments on the given meter.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	executions, err := meter.Int64Counter("pipeline.executions",
		metric.WithDescription("Finished pipeline executions by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.executions counter: %w", err)
	}

	duration, err := meter.Float64Histogram("pipeline.duration",
		metric.WithDescription("Total duration of pipeline executions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.duration histogram: %w", err)
	}

	recordsIn, err := meter.Int64Counter("step.records.in",
		metric.WithDescription("Resources received by steps"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating step.records.in counter: %w", err)
	}

	recordsOut, err := meter.Int64Counter("step.records.out",
		metric.WithDescription("Resources emitted by steps"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating step.records.out counter: %w", err)
	}

	stepErrors, err := meter.Int64Counter("step.errors",
		metric.WithDescription("Step failures seen by the error policy"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating step.errors counter: %w", err)
	}

	parkings, err := meter.Int64Counter("step.parkings",
		metric.WithDescription("Resources moved to a parking target"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating step.parkings counter: %w", err)
	}

	return &PipelineMetrics{
		executions: executions,
		duration:   duration,
		recordsIn:  recordsIn,
		recordsOut: recordsOut,
		stepErrors: stepErrors,
		parkings:   parkings,
	}, nil
}

// RecordReport records one finished execution.
func (m *PipelineMetrics) RecordReport(ctx context.Context, rep *result.Report) {
	pipelineAttrs := []attribute.KeyValue{
		attribute.String(AttrPipeline, rep.Pipeline),
		attribute.String(AttrMode, rep.Mode),
	}
	m.executions.Add(ctx, 1, metric.WithAttributes(
		append(pipelineAttrs, attribute.String(AttrStatus, rep.Status))...,
	))
	m.duration.Record(ctx, time.Duration(rep.TotalMS*int64(time.Millisecond)).Seconds(),
		metric.WithAttributes(pipelineAttrs...))

	for _, s := range rep.Steps {
		attrs := metric.WithAttributes(
			attribute.String(AttrPipeline, rep.Pipeline),
			attribute.String(AttrStep, s.Name),
			attribute.String(AttrOperation, s.Operation),
		)
		m.recordsIn.Add(ctx, int64(s.RecordsIn), attrs)
		m.recordsOut.Add(ctx, int64(s.RecordsOut), attrs)
		if s.Errors > 0 {
			m.stepErrors.Add(ctx, int64(s.Errors), attrs)
		}
		if s.Parkings > 0 {
			m.parkings.Add(ctx, int64(s.Parkings), attrs)
		}
	}
}
