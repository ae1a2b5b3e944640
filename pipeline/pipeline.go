package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/logger"
	"github.com/kbukum/datapipe/observability"
	"github.com/kbukum/datapipe/result"
	"github.com/kbukum/datapipe/step"
	"github.com/kbukum/datapipe/transfer"
)

// Pipeline is a reusable, validated chain of steps. Executions are
// serialized.
type Pipeline struct {
	cfg   Config
	steps []step.Step
	mode  step.ProcessingType

	log      *logger.Logger
	transfer transfer.Manager
	target   transfer.Target
	metrics  *observability.PipelineMetrics
	tracer   trace.Tracer

	// mu serializes executions.
	mu   sync.Mutex
	root *node

	stateMu sync.RWMutex
	runs    int
	status  result.Status
	last    *result.PipelineResult
}

// New validates cfg and steps and builds the first cascade. Steps get their
// ids in declaration order. Every step implementing step.Configurable
// receives the pipeline environment.
func New(cfg Config, steps []step.Step, opts ...Option) (*Pipeline, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:    cfg,
		steps:  append([]step.Step(nil), steps...),
		status: result.StatusCreated,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.GetGlobalLogger()
	}
	p.log = p.log.WithComponent("pipeline").WithFields(logger.Fields(logger.FieldPipeline, cfg.Name))
	if p.transfer == nil {
		p.transfer = transfer.NewCopier(transfer.WithLogger(p.log))
	}

	if err := p.checkSteps(); err != nil {
		return nil, err
	}
	if p.target == nil && cfg.ParkingTarget != "" {
		t, err := transfer.Template(cfg.ParkingTarget)
		if err != nil {
			return nil, p.configError(err.Error())
		}
		p.target = t
	}
	if cfg.OnError == ActionPark && p.target == nil {
		return nil, p.configError("on_error park needs a parking target")
	}

	env := step.Environment{
		Pipeline: cfg.Name,
		Mode:     p.mode,
		Logger:   p.log,
		Transfer: p.transfer,
		Target:   p.target,
	}
	for _, s := range p.steps {
		if c, ok := s.(step.Configurable); ok {
			if err := c.Configure(env); err != nil {
				return nil, apperrors.Wrap(err, apperrors.ErrCodeConfiguration,
					fmt.Sprintf("pipeline %q: configure step %s", cfg.Name, s.Identity()))
			}
		}
	}

	root, err := p.build()
	if err != nil {
		return nil, err
	}
	p.root = root
	return p, nil
}

func (p *Pipeline) configError(msg string) error {
	return apperrors.Configuration(fmt.Sprintf("pipeline %q: %s", p.cfg.Name, msg)).
		WithDetail("pipeline", p.cfg.Name)
}

// checkSteps assigns ids and enforces the declaration rules.
func (p *Pipeline) checkSteps() error {
	if len(p.steps) == 0 {
		return p.configError("no steps declared")
	}
	names := make(map[string]int, len(p.steps))
	for i, s := range p.steps {
		if s == nil {
			return p.configError(fmt.Sprintf("step %d is nil", i))
		}
		step.Assign(s, i)
		if err := step.Validate(s); err != nil {
			return p.configError(err.Error())
		}
		if prev, dup := names[s.Name()]; dup {
			return p.configError(fmt.Sprintf("steps %d and %d share the name %q", prev, i, s.Name()))
		}
		names[s.Name()] = i
		switch {
		case i == 0 && !s.Kind().IsRoot():
			return p.configError(fmt.Sprintf("first step %s must be a supplier, got %s", s.Identity(), s.Kind()))
		case i > 0 && s.Kind().IsRoot():
			return p.configError(fmt.Sprintf("step %s is a supplier but is not first", s.Identity()))
		}
	}
	p.mode = p.steps[0].ProcessingType()
	return nil
}

// build creates a fresh cascade from the step list.
func (p *Pipeline) build() (*node, error) {
	var root, cur *node
	for _, s := range p.steps {
		switch s.Kind() {
		case step.KindBatchSupplier, step.KindStreamSupplier:
			src := &rootSource{supplier: s.(step.Supplier), s: s}
			if poller, ok := s.(step.Poller); ok && s.Kind() == step.KindStreamSupplier {
				src.poller = poller
			}
			root = &node{src: src}
			cur = root
		case step.KindMap, step.KindFilterMap:
			cur.maps = append(cur.maps, s.(step.Mapper))
		case step.KindSplit:
			cur.child = &node{src: &splitSource{splitter: s.(step.Splitter)}}
			cur = cur.child
		case step.KindCollect:
			interval := p.cfg.WindowInterval
			if w, ok := s.(step.Windowed); ok && w.WindowInterval() > 0 {
				interval = w.WindowInterval()
			}
			cur.child = &node{src: &collectSource{collector: s.(step.Collector), interval: interval}}
			cur = cur.child
		default:
			return nil, p.configError(fmt.Sprintf("step %s has unknown kind %s", s.Identity(), s.Kind()))
		}
	}
	return root, nil
}

// rebuild resets stateful steps and replaces the cascade.
func (p *Pipeline) rebuild() error {
	for _, s := range p.steps {
		if r, ok := s.(step.Rebuilder); ok {
			if err := r.Rebuild(); err != nil {
				return apperrors.Wrap(err, apperrors.ErrCodeInternal,
					fmt.Sprintf("pipeline %q: rebuild step %s", p.cfg.Name, s.Identity()))
			}
		}
	}
	root, err := p.build()
	if err != nil {
		return err
	}
	p.root = root
	return nil
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return p.cfg.Name }

// Config returns the effective configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Mode returns the processing type of the root supplier.
func (p *Pipeline) Mode() step.ProcessingType { return p.mode }

// Steps returns the declared steps.
func (p *Pipeline) Steps() []step.Step { return append([]step.Step(nil), p.steps...) }

// Runs returns the number of executions started.
func (p *Pipeline) Runs() int {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.runs
}

// Status returns the status of the latest execution.
func (p *Pipeline) Status() result.Status {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.status
}

// Result returns the result of the latest execution, or nil.
func (p *Pipeline) Result() *result.PipelineResult {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.last
}

// Execute runs the pipeline once. The result is returned even when the
// execution fails.
func (p *Pipeline) Execute(ctx context.Context) (*result.PipelineResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stateMu.Lock()
	p.runs++
	run := p.runs
	p.stateMu.Unlock()

	opts := []result.Option{result.WithRun(run)}
	if p.cfg.CollectDownstream {
		opts = append(opts, result.WithDownstream())
	}
	res := result.New(p.cfg.Name, p.mode, p.steps, opts...)

	if run > 1 {
		if err := p.rebuild(); err != nil {
			_ = res.Stop(result.StatusFailed, err)
			p.setState(result.StatusFailed, res)
			p.log.Error("Pipeline rebuild failed", logger.MergeWithError(
				logger.Fields(logger.FieldExecutionID, res.ExecutionID(), logger.FieldRun, run), err))
			return res, err
		}
	}
	x := &execution{
		cfg:       &p.cfg,
		mode:      p.mode,
		res:       res,
		transfer:  p.transfer,
		target:    p.target,
		root:      p.root,
		maxCycles: p.cfg.maxCycles(),
		log: p.log.WithFields(logger.Fields(
			logger.FieldExecutionID, res.ExecutionID(),
			logger.FieldRun, run,
			logger.FieldMode, string(p.mode),
		)),
	}

	ctx, span := p.startSpan(ctx, res)
	p.setState(result.StatusRunning, res)
	// res is fresh and only Stop closes it, so Start cannot fail here.
	_ = res.Start()
	x.log.Info("Pipeline started")

	status, err := p.run(ctx, x)

	_ = res.Stop(status, err)
	p.setState(status, res)
	p.finish(ctx, span, x, err)
	return res, err
}

func (p *Pipeline) setState(status result.Status, res *result.PipelineResult) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	p.status = status
	p.last = res
}

// run executes the cascade, under a deadline when a timeout is configured.
func (p *Pipeline) run(ctx context.Context, x *execution) (result.Status, error) {
	if p.cfg.Timeout <= 0 {
		err := p.runCascade(ctx, x)
		x.res.StopExecution()
		return p.outcome(ctx, x, err)
	}

	tctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.runCascade(tctx, x) }()

	select {
	case err := <-done:
		x.res.StopExecution()
		if err != nil && isContextErr(err) && ctx.Err() == nil && tctx.Err() != nil {
			return p.timedOut(x)
		}
		return p.outcome(ctx, x, err)
	case <-tctx.Done():
		x.res.StopExecution()
		cancel()
		p.await(x, done)
		if ctx.Err() != nil {
			return p.outcome(ctx, x, ctx.Err())
		}
		return p.timedOut(x)
	}
}

func (p *Pipeline) outcome(ctx context.Context, x *execution, err error) (result.Status, error) {
	if err == nil {
		return result.StatusCompleted, nil
	}
	if isContextErr(err) && ctx.Err() != nil {
		return result.StatusFailed, apperrors.Wrap(err, apperrors.ErrCodeInterrupted,
			fmt.Sprintf("pipeline %q interrupted", p.cfg.Name)).
			WithDetail("pipeline", p.cfg.Name)
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		err = apperrors.Wrap(err, apperrors.ErrCodeInternal,
			fmt.Sprintf("pipeline %q failed", p.cfg.Name)).
			WithDetail("pipeline", p.cfg.Name)
	}
	return result.StatusFailed, err
}

func (p *Pipeline) timedOut(x *execution) (result.Status, error) {
	fields := logger.Fields("timeout", p.cfg.Timeout.String(), "timeout_type", string(p.cfg.TimeoutType))
	if p.cfg.TimeoutType == TimeoutDuration {
		x.log.Info("Pipeline reached its run duration", fields)
		return result.StatusTimedOut, nil
	}
	x.log.Warn("Pipeline timed out", fields)
	return result.StatusTimedOut, apperrors.Timeout(fmt.Sprintf("pipeline %q", p.cfg.Name)).
		WithDetail("pipeline", p.cfg.Name).
		WithDetail("timeout", p.cfg.Timeout.String())
}

// await waits up to ShutdownGrace for the cancelled worker.
func (p *Pipeline) await(x *execution, done <-chan error) {
	t := time.NewTimer(p.cfg.ShutdownGrace)
	defer t.Stop()
	select {
	case err := <-done:
		if err != nil && !isContextErr(err) {
			x.log.Warn("Worker failed while shutting down", logger.Fields(logger.FieldError, err.Error()))
		}
	case <-t.C:
		x.log.Warn("Worker did not stop within the shutdown grace period",
			logger.Fields("grace", p.cfg.ShutdownGrace.String()))
	}
}

// runCascade fires the root hooks around the cascade and manages the
// window tasks of a stream run.
func (p *Pipeline) runCascade(ctx context.Context, x *execution) (err error) {
	owner := x.root.owner()
	defer func() {
		if cerr := p.complete(ctx, x); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if s, ok := owner.(step.Starter); ok {
		if serr := s.OnStart(ctx); serr != nil {
			return x.handle(ctx, serr, owner, "start")
		}
	}
	if x.mode == step.Stream {
		x.startWindows(ctx)
	}
	return x.root.execute(ctx, x, nil)
}

// complete stops the window tasks, optionally flushes stream collectors and
// fires the root completion hook.
func (p *Pipeline) complete(ctx context.Context, x *execution) error {
	cctx := context.WithoutCancel(ctx)
	err := x.stopWindows(cctx)

	if err == nil && x.mode == step.Stream && p.cfg.FlushOnComplete && ctx.Err() == nil {
		x.root.walk(func(n *node) {
			if err == nil {
				err = n.drain(ctx, x, true)
			}
		})
	}

	owner := x.root.owner()
	if c, ok := owner.(step.Completer); ok {
		if cerr := c.OnComplete(cctx); cerr != nil {
			if herr := x.handle(cctx, cerr, owner, "complete"); herr != nil && err == nil {
				err = herr
			}
		}
	}
	return err
}
