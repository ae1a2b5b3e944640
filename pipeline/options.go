package pipeline

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/datapipe/logger"
	"github.com/kbukum/datapipe/observability"
	"github.com/kbukum/datapipe/transfer"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithTransfer sets the transfer manager used for parking and injected into
// steps. The default is a transfer.Copier.
func WithTransfer(m transfer.Manager) Option {
	return func(p *Pipeline) { p.transfer = m }
}

// WithTarget sets the parking target function. It takes precedence over
// Config.ParkingTarget.
func WithTarget(t transfer.Target) Option {
	return func(p *Pipeline) { p.target = t }
}

// WithMetrics records every finished execution.
func WithMetrics(m *observability.PipelineMetrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithTracer wraps every execution in a span.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}
