package pipeline

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/logger"
	"github.com/kbukum/datapipe/resource"
	"github.com/kbukum/datapipe/result"
	"github.com/kbukum/datapipe/step"
	"github.com/kbukum/datapipe/transfer"
)

// fatalCodes are engine errors that end the execution when they surface
// outside any step, e.g. from a windowed drain.
var fatalCodes = map[apperrors.ErrorCode]bool{
	apperrors.ErrCodeConfiguration:   true,
	apperrors.ErrCodeStepFailed:      true,
	apperrors.ErrCodeInvariant:       true,
	apperrors.ErrCodeTimeout:         true,
	apperrors.ErrCodeInterrupted:     true,
	apperrors.ErrCodeParkingFailed:   true,
	apperrors.ErrCodeCollectorFailed: true,
	apperrors.ErrCodeResultClosed:    true,
	apperrors.ErrCodeInternal:        true,
}

func isFatal(err error) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr) && fatalCodes[appErr.Code]
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// stepFailure carries a failure detected off the main loop, such as a
// windowed drain, until the main loop can handle it.
type stepFailure struct {
	step      step.Step
	what      string
	resources []resource.Resource
	node      *node
	err       error
}

func (f *stepFailure) Error() string {
	return fmt.Sprintf("step %s %s failed: %v", f.step.Identity(), f.what, f.err)
}

func (f *stepFailure) Unwrap() error { return f.err }

// execution is the per-run state shared by all nodes.
type execution struct {
	cfg       *Config
	mode      step.ProcessingType
	res       *result.PipelineResult
	log       *logger.Logger
	transfer  transfer.Manager
	target    transfer.Target
	root      *node
	windows   []*window
	maxCycles uint64
}

// handle applies the error policy to err. It returns nil when the failure
// was recovered and a fatal error otherwise. An error raised by step s always
// goes through the policy, whatever its code; only errors not attributed to
// a step are passed through or wrapped as fatal.
func (x *execution) handle(ctx context.Context, err error, s step.Step, what string, implicated ...resource.Resource) error {
	if err == nil {
		return nil
	}
	if isContextErr(err) && ctx.Err() != nil {
		return err
	}
	if s == nil {
		if isFatal(err) {
			return err
		}
		return apperrors.Wrap(err, apperrors.ErrCodeInternal,
			fmt.Sprintf("pipeline %q: %s failed", x.cfg.Name, what)).
			WithDetail("pipeline", x.cfg.Name)
	}

	if rerr := x.res.AddError(s); rerr != nil {
		return rerr
	}
	fields := x.stepFields(s, implicated)
	fields[logger.FieldAction] = string(x.cfg.OnError)
	fields[logger.FieldError] = err.Error()

	switch x.cfg.OnError {
	case ActionDiscard:
		x.log.Warn("Step failed, discarding "+what, fields)
		return nil
	case ActionPark:
		if len(implicated) == 0 {
			x.log.Warn("Step failed with nothing to park, discarding "+what, fields)
			return nil
		}
		for _, r := range implicated {
			if perr := x.park(ctx, s, r); perr != nil {
				return apperrors.Newf(apperrors.ErrCodeParkingFailed,
					"pipeline %q: step %s failed on %s: %v; parking failed: %v",
					x.cfg.Name, s.Identity(), r.Key(), err, perr).
					WithCause(err).
					WithDetails(x.details(s, r))
			}
		}
		return nil
	default:
		x.log.Error("Step failed, stopping pipeline", fields)
		msg := fmt.Sprintf("pipeline %q: step %s failed during %s", x.cfg.Name, s.Identity(), what)
		var r resource.Resource
		if len(implicated) > 0 {
			r = implicated[0]
			msg += " on " + r.Key()
		}
		return apperrors.New(apperrors.ErrCodeStepFailed, msg).
			WithCause(err).
			WithDetails(x.details(s, r))
	}
}

// park copies r to its parking target.
func (x *execution) park(ctx context.Context, s step.Step, r resource.Resource) error {
	dst, err := x.target(r, s.Name())
	if err != nil {
		return err
	}
	if err := x.transfer.Transfer(ctx, r, dst); err != nil {
		return fmt.Errorf("transfer %s to %s: %w", r.Key(), dst.Key(), err)
	}
	if err := x.res.AddParking(s, dst); err != nil {
		return err
	}
	fields := x.stepFields(s, []resource.Resource{r})
	fields[logger.FieldTarget] = dst.Key()
	x.log.Info("Parked resource", fields)
	return nil
}

// recover handles a drain failure and clears the collector buffer when the
// policy recovered it.
func (x *execution) recover(ctx context.Context, f *stepFailure) error {
	if err := x.handle(ctx, f.err, f.step, f.what, f.resources...); err != nil {
		return err
	}
	f.node.resetBuffer()
	return nil
}

// invariant reports a broken engine invariant. It bypasses the policy.
func (x *execution) invariant(s step.Step, r resource.Resource, what string) error {
	msg := fmt.Sprintf("pipeline %q: step %s: %s", x.cfg.Name, s.Identity(), what)
	if r != nil {
		msg += " (" + r.Key() + ")"
	}
	fields := x.stepFields(s, nil)
	x.log.Error("Invariant violated: "+what, fields)
	return apperrors.Invariant(msg).WithDetails(x.details(s, r))
}

func (x *execution) details(s step.Step, r resource.Resource) map[string]any {
	d := map[string]any{
		"pipeline":  x.cfg.Name,
		"step":      s.Name(),
		"step_id":   s.ID(),
		"operation": s.Operation(),
	}
	if r != nil {
		d["resource"] = r.Key()
	}
	return d
}

func (x *execution) stepFields(s step.Step, rs []resource.Resource) map[string]interface{} {
	fields := logger.Fields(
		logger.FieldStep, s.Name(),
		logger.FieldStepID, s.ID(),
		logger.FieldOperation, s.Operation(),
	)
	if len(rs) == 1 {
		fields[logger.FieldResource] = rs[0].Key()
	} else if len(rs) > 1 {
		fields[logger.FieldCount] = len(rs)
	}
	return fields
}
