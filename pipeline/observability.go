package pipeline

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/datapipe/logger"
	"github.com/kbukum/datapipe/observability"
	"github.com/kbukum/datapipe/result"
)

func (p *Pipeline) startSpan(ctx context.Context, res *result.PipelineResult) (context.Context, trace.Span) {
	tracer := p.tracer
	if tracer == nil {
		tracer = observability.Tracer(observability.TracerName)
	}
	return tracer.Start(ctx, observability.SpanPipelineExecute,
		trace.WithAttributes(
			attribute.String(observability.AttrPipeline, p.cfg.Name),
			attribute.String(observability.AttrExecutionID, res.ExecutionID()),
			attribute.Int(observability.AttrRun, res.Run()),
			attribute.String(observability.AttrMode, string(p.mode)),
		))
}

// finish ends the span, records metrics and logs the outcome.
func (p *Pipeline) finish(ctx context.Context, span trace.Span, x *execution, err error) {
	rep := x.res.Report()

	span.SetAttributes(
		attribute.String(observability.AttrStatus, rep.Status),
		attribute.Int64(observability.AttrDurationMS, rep.TotalMS),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	if p.metrics != nil {
		p.metrics.RecordReport(ctx, rep)
	}

	fields := logger.Fields(
		logger.FieldStatus, rep.Status,
		logger.FieldDuration, rep.TotalMS,
		"execution_ms", rep.ExecutionMS,
	)
	if err != nil {
		x.log.Error("Pipeline failed", logger.MergeWithError(fields, err))
		return
	}
	x.log.Info("Pipeline finished", fields)
}
