package result

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/resource"
	"github.com/kbukum/datapipe/step"
)

// Status is the exit status of an execution.
type Status string

const (
	StatusCreated   Status = "created"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

// Option configures a PipelineResult.
type Option func(*PipelineResult)

// WithRun sets the run number of the execution.
func WithRun(n int) Option {
	return func(r *PipelineResult) { r.run = n }
}

// WithDownstream makes the result keep resources that reached the end of
// the cascade.
func WithDownstream() Option {
	return func(r *PipelineResult) { r.collectDownstream = true }
}

// PipelineResult accumulates the metrics of one execution.
type PipelineResult struct {
	// mu is held shared by mutators and exclusively by Stop.
	mu     sync.RWMutex
	closed bool
	status Status
	err    error

	executionID string
	pipeline    string
	mode        step.ProcessingType
	run         int

	total     *Timer
	execution *Timer

	steps []*StepResult
	byID  map[int]*StepResult

	pollWait atomic.Int64
	pushWait atomic.Int64

	dataMu            sync.Mutex
	collectDownstream bool
	downstream        []resource.Resource
	lastParking       resource.Resource
}

// New creates a result for steps, which must already have their ids
// assigned. The total and execution timers start immediately.
func New(pipeline string, mode step.ProcessingType, steps []step.Step, opts ...Option) *PipelineResult {
	r := &PipelineResult{
		status:      StatusCreated,
		executionID: uuid.NewString(),
		pipeline:    pipeline,
		mode:        mode,
		run:         1,
		total:       StartTimer(),
		execution:   StartTimer(),
		byID:        make(map[int]*StepResult, len(steps)),
	}
	for _, s := range steps {
		sr := newStepResult(s)
		r.steps = append(r.steps, sr)
		r.byID[s.ID()] = sr
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *PipelineResult) update(s step.Step, fn func(*StepResult)) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return r.closedError()
	}
	sr, ok := r.byID[s.ID()]
	if !ok {
		return apperrors.NotFound("step result", s.Identity().String())
	}
	fn(sr)
	return nil
}

func (r *PipelineResult) closedError() error {
	return apperrors.Newf(apperrors.ErrCodeResultClosed,
		"result of pipeline %q execution %s is closed", r.pipeline, r.executionID)
}

// AddInput records one resource received by s.
func (r *PipelineResult) AddInput(s step.Step) error {
	return r.update(s, func(sr *StepResult) { sr.in.Add(1) })
}

// AddOutput records one resource emitted by s.
func (r *PipelineResult) AddOutput(s step.Step) error {
	return r.update(s, func(sr *StepResult) { sr.out.Add(1) })
}

// AddExecution records one run of s.
func (r *PipelineResult) AddExecution(s step.Step) error {
	return r.update(s, func(sr *StepResult) { sr.executions.Add(1) })
}

// AddError records one failure of s.
func (r *PipelineResult) AddError(s step.Step) error {
	return r.update(s, func(sr *StepResult) { sr.errors.Add(1) })
}

// AddParking records that s parked a resource at target.
func (r *PipelineResult) AddParking(s step.Step, target resource.Resource) error {
	return r.update(s, func(sr *StepResult) {
		sr.parkings.Add(1)
		r.dataMu.Lock()
		r.lastParking = target
		r.dataMu.Unlock()
	})
}

// AddDownstream records a resource that left the cascade uncollected. It is
// ignored unless the result was created WithDownstream.
func (r *PipelineResult) AddDownstream(res resource.Resource) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return r.closedError()
	}
	if r.collectDownstream {
		r.dataMu.Lock()
		r.downstream = append(r.downstream, res)
		r.dataMu.Unlock()
	}
	return nil
}

// AddPollWait adds time spent waiting before a stream re-poll.
func (r *PipelineResult) AddPollWait(d time.Duration) error {
	return r.addWait(&r.pollWait, d)
}

// AddPushWait adds time spent pacing stream output.
func (r *PipelineResult) AddPushWait(d time.Duration) error {
	return r.addWait(&r.pushWait, d)
}

func (r *PipelineResult) addWait(w *atomic.Int64, d time.Duration) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return r.closedError()
	}
	w.Add(int64(d))
	return nil
}

// Start marks the execution as running and restarts the execution timer.
func (r *PipelineResult) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return r.closedError()
	}
	r.status = StatusRunning
	r.execution.Restart()
	return nil
}

// StopExecution stops the execution timer. The total timer keeps running
// until Stop.
func (r *PipelineResult) StopExecution() {
	r.execution.Stop()
}

// Stop closes the result with its final status. The execution timer is
// stopped if it is still running; the total timer is stopped last.
func (r *PipelineResult) Stop(status Status, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return r.closedError()
	}
	r.execution.Stop()
	r.total.Stop()
	r.closed = true
	r.status = status
	r.err = err
	return nil
}

// Closed reports whether Stop was called.
func (r *PipelineResult) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// ExecutionID returns the unique id of the execution.
func (r *PipelineResult) ExecutionID() string { return r.executionID }

// Pipeline returns the pipeline name.
func (r *PipelineResult) Pipeline() string { return r.pipeline }

// Mode returns the processing type of the pipeline.
func (r *PipelineResult) Mode() step.ProcessingType { return r.mode }

// Run returns the run number.
func (r *PipelineResult) Run() int { return r.run }

// Status returns the current status.
func (r *PipelineResult) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Err returns the error the execution ended with.
func (r *PipelineResult) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// TotalDuration returns the time from creation to Stop.
func (r *PipelineResult) TotalDuration() time.Duration { return r.total.Duration() }

// ExecutionDuration returns the time spent running the cascade.
func (r *PipelineResult) ExecutionDuration() time.Duration { return r.execution.Duration() }

// PollWait returns the cumulative stream re-poll wait.
func (r *PipelineResult) PollWait() time.Duration { return time.Duration(r.pollWait.Load()) }

// PushWait returns the cumulative stream push wait.
func (r *PipelineResult) PushWait() time.Duration { return time.Duration(r.pushWait.Load()) }

// Step returns the counters of the step with the given id.
func (r *PipelineResult) Step(id int) (*StepResult, bool) {
	sr, ok := r.byID[id]
	return sr, ok
}

// Steps returns the step counters in declaration order.
func (r *PipelineResult) Steps() []*StepResult {
	return append([]*StepResult(nil), r.steps...)
}

// Downstream returns the resources that left the cascade uncollected.
func (r *PipelineResult) Downstream() []resource.Resource {
	r.dataMu.Lock()
	defer r.dataMu.Unlock()
	return append([]resource.Resource(nil), r.downstream...)
}

// LastParkingTarget returns the target of the most recent parking, or nil.
func (r *PipelineResult) LastParkingTarget() resource.Resource {
	r.dataMu.Lock()
	defer r.dataMu.Unlock()
	return r.lastParking
}
