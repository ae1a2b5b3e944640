package observability

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/datapipe/component"
	"github.com/kbukum/datapipe/logger"
)

// Config groups tracer and meter settings.
type Config struct {
	Tracer TracerConfig `yaml:"tracer" mapstructure:"tracer"`
	Meter  MeterConfig  `yaml:"meter" mapstructure:"meter"`
}

// ApplyDefaults fills exporter defaults for serviceName without enabling
// export.
func (c *Config) ApplyDefaults(serviceName string) {
	td := DefaultTracerConfig(serviceName)
	if c.Tracer.ServiceName == "" {
		c.Tracer.ServiceName = td.ServiceName
	}
	if c.Tracer.ServiceVersion == "" {
		c.Tracer.ServiceVersion = td.ServiceVersion
	}
	if c.Tracer.Environment == "" {
		c.Tracer.Environment = td.Environment
	}
	if c.Tracer.Endpoint == "" {
		c.Tracer.Endpoint = td.Endpoint
	}
	if c.Tracer.SampleRate == 0 && c.Tracer.Enabled {
		c.Tracer.SampleRate = td.SampleRate
	}

	md := DefaultMeterConfig(serviceName)
	if c.Meter.ServiceName == "" {
		c.Meter.ServiceName = md.ServiceName
	}
	if c.Meter.ServiceVersion == "" {
		c.Meter.ServiceVersion = md.ServiceVersion
	}
	if c.Meter.Environment == "" {
		c.Meter.Environment = md.Environment
	}
	if c.Meter.Endpoint == "" {
		c.Meter.Endpoint = md.Endpoint
	}
	if c.Meter.Interval <= 0 {
		c.Meter.Interval = md.Interval
	}
}

// Component installs the configured providers on Start and flushes them on
// Stop. With export disabled the global no-op providers stay in place and
// the pipeline instruments are still usable.
type Component struct {
	cfg Config
	log *logger.Logger

	mu      sync.Mutex
	tp      *sdktrace.TracerProvider
	mp      *sdkmetric.MeterProvider
	metrics *PipelineMetrics
}

var _ component.Component = (*Component)(nil)

// NewComponent creates an observability component.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	return &Component{cfg: cfg, log: log.WithComponent("observability")}
}

// Name returns the component name.
func (c *Component) Name() string { return "observability" }

// Start initializes the enabled providers and the pipeline instruments.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.Tracer.Enabled {
		tp, err := InitTracer(ctx, &c.cfg.Tracer)
		if err != nil {
			return err
		}
		c.tp = tp
		c.log.Info("tracer initialized", logger.Fields(
			"endpoint", c.cfg.Tracer.Endpoint, "sample_rate", c.cfg.Tracer.SampleRate))
	}
	if c.cfg.Meter.Enabled {
		mp, err := InitMeter(ctx, &c.cfg.Meter)
		if err != nil {
			return err
		}
		c.mp = mp
		c.log.Info("meter initialized", logger.Fields(
			"endpoint", c.cfg.Meter.Endpoint, "interval", c.cfg.Meter.Interval.String()))
	}
	m, err := NewPipelineMetrics(Meter(TracerName))
	if err != nil {
		return err
	}
	c.metrics = m
	return nil
}

// Metrics returns the pipeline instruments, or nil before Start.
func (c *Component) Metrics() *PipelineMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// Tracer returns the pipeline tracer of the installed provider.
func (c *Component) Tracer() trace.Tracer { return Tracer(TracerName) }

// Stop flushes and shuts down the providers.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	if c.tp != nil {
		if err := c.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
		c.tp = nil
	}
	if c.mp != nil {
		if err := c.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
		c.mp = nil
	}
	return errors.Join(errs...)
}

// Health reports healthy once the instruments exist.
func (c *Component) Health(context.Context) component.Health {
	if c.Metrics() == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "not started"}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe reports the exporters in use.
func (c *Component) Describe() component.Description {
	details := "export=off"
	switch {
	case c.cfg.Tracer.Enabled && c.cfg.Meter.Enabled:
		details = "traces+metrics endpoint=" + c.cfg.Tracer.Endpoint
	case c.cfg.Tracer.Enabled:
		details = "traces endpoint=" + c.cfg.Tracer.Endpoint
	case c.cfg.Meter.Enabled:
		details = "metrics endpoint=" + c.cfg.Meter.Endpoint
	}
	return component.Description{Name: "OpenTelemetry", Type: "observability", Details: details}
}
