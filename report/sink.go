package report

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/observability"
	"github.com/kbukum/datapipe/result"
)

// Sink receives finished execution reports.
type Sink interface {
	Write(ctx context.Context, rep *result.Report) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, rep *result.Report) error

// Write calls f.
func (f SinkFunc) Write(ctx context.Context, rep *result.Report) error { return f(ctx, rep) }

// traced runs fn inside a report.write span tagged with the sink kind.
func traced(ctx context.Context, kind string, rep *result.Report, fn func(context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, observability.SpanReportWrite)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrSink, kind)
	observability.SetSpanAttribute(ctx, observability.AttrPipeline, rep.Pipeline)
	observability.SetSpanAttribute(ctx, observability.AttrExecutionID, rep.ExecutionID)
	err := fn(ctx)
	observability.SetSpanError(ctx, err)
	return err
}

// JSONSink writes each report as one indented JSON document.
type JSONSink struct {
	mu     sync.Mutex
	w      io.Writer
	indent bool
}

// NewJSONSink writes reports to w. Indented output is used when indent is set.
func NewJSONSink(w io.Writer, indent bool) *JSONSink {
	return &JSONSink{w: w, indent: indent}
}

// Write encodes rep to the writer.
func (s *JSONSink) Write(ctx context.Context, rep *result.Report) error {
	return traced(ctx, "json", rep, func(context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		enc := json.NewEncoder(s.w)
		if s.indent {
			enc.SetIndent("", "  ")
		}
		if err := enc.Encode(rep); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode report")
		}
		return nil
	})
}

// MultiSink writes to every sink, continuing past failures.
type MultiSink []Sink

// Write writes rep to each sink and joins the errors.
func (m MultiSink) Write(ctx context.Context, rep *result.Report) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Write(ctx, rep); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
