// Package runner hosts a pipeline as a long-running component.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/datapipe/component"
	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/logger"
	"github.com/kbukum/datapipe/pipeline"
	"github.com/kbukum/datapipe/report"
	"github.com/kbukum/datapipe/result"
)

// DefaultReportTimeout bounds the report write after an execution.
const DefaultReportTimeout = 30 * time.Second

// Option configures a StreamRunner.
type Option func(*StreamRunner)

// WithSink writes the report of every finished execution to s.
func WithSink(s report.Sink) Option {
	return func(r *StreamRunner) { r.sink = s }
}

// WithReportTimeout overrides DefaultReportTimeout.
func WithReportTimeout(d time.Duration) Option {
	return func(r *StreamRunner) { r.reportTimeout = d }
}

// StreamRunner executes a pipeline in the background. Start launches one
// execution; Stop cancels it and waits for it to end. A stream pipeline runs
// until stopped or until its cycle limit or timeout ends it.
type StreamRunner struct {
	p             *pipeline.Pipeline
	sink          report.Sink
	log           *logger.Logger
	reportTimeout time.Duration

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	stopping bool
	running  bool
	lastErr  error
	last     *result.Report
}

var _ component.Component = (*StreamRunner)(nil)

// New creates a runner for p.
func New(p *pipeline.Pipeline, log *logger.Logger, opts ...Option) *StreamRunner {
	r := &StreamRunner{
		p:             p,
		log:           log.WithComponent("runner").WithFields(logger.Fields(logger.FieldPipeline, p.Name())),
		reportTimeout: DefaultReportTimeout,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Name returns the component name.
func (r *StreamRunner) Name() string { return "runner:" + r.p.Name() }

// Start launches an execution detached from ctx. Starting a running runner
// fails with INVALID_INPUT.
func (r *StreamRunner) Start(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return apperrors.InvalidInput("runner", "pipeline "+r.p.Name()+" is already running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true
	r.stopping = false
	r.lastErr = nil

	go r.execute(ctx, r.done)
	r.log.Info("runner started", logger.Fields(logger.FieldMode, string(r.p.Mode())))
	return nil
}

func (r *StreamRunner) execute(ctx context.Context, done chan struct{}) {
	defer close(done)
	res, err := r.p.Execute(ctx)

	r.mu.Lock()
	if err != nil && r.stopping && apperrors.IsCode(err, apperrors.ErrCodeInterrupted) {
		err = nil
	}
	r.lastErr = err
	r.running = false
	r.mu.Unlock()

	if err != nil {
		r.log.Error("pipeline execution failed", logger.MergeWithError(nil, err))
	}
	if res == nil {
		return
	}
	rep := res.Report()
	r.mu.Lock()
	r.last = rep
	r.mu.Unlock()

	if r.sink == nil {
		return
	}
	wctx, cancel := context.WithTimeout(context.Background(), r.reportTimeout)
	defer cancel()
	if werr := r.sink.Write(wctx, rep); werr != nil {
		r.log.Error("report write failed", logger.MergeWithError(
			logger.Fields(logger.FieldExecutionID, rep.ExecutionID), werr))
	}
}

// Done is closed when the current execution and its report write finish.
// It is nil before the first Start.
func (r *StreamRunner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Stop cancels the execution and waits for it within ctx.
func (r *StreamRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	done, cancel := r.done, r.cancel
	if done == nil {
		r.mu.Unlock()
		return nil
	}
	r.stopping = true
	r.mu.Unlock()

	cancel()
	select {
	case <-done:
		r.log.Info("runner stopped")
		return nil
	case <-ctx.Done():
		return apperrors.Timeout("stop " + r.Name()).WithCause(ctx.Err())
	}
}

// Err returns the error of the last finished execution.
func (r *StreamRunner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Report returns the report of the last finished execution, or nil.
func (r *StreamRunner) Report() *result.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Health is healthy while running or after a clean finish, and unhealthy
// before the first Start or after a failed execution.
func (r *StreamRunner) Health(context.Context) component.Health {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := component.Health{Name: r.Name(), Status: component.StatusHealthy}
	switch {
	case r.done == nil:
		h.Status, h.Message = component.StatusUnhealthy, "not started"
	case r.running:
		h.Message = "running"
	case r.lastErr != nil:
		h.Status, h.Message = component.StatusUnhealthy, r.lastErr.Error()
	default:
		h.Message = "finished"
	}
	return h
}

// Describe reports the pipeline mode and step count.
func (r *StreamRunner) Describe() component.Description {
	return component.Description{
		Name:    "Pipeline " + r.p.Name(),
		Type:    "pipeline",
		Details: fmt.Sprintf("%s steps=%d", r.p.Mode(), len(r.p.Steps())),
	}
}
