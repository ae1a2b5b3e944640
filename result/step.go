package result

import (
	"sync/atomic"

	"github.com/kbukum/datapipe/step"
)

// StepResult holds the counters of one step.
type StepResult struct {
	identity step.Identity
	kind     step.Kind

	in         atomic.Uint64
	out        atomic.Uint64
	executions atomic.Uint64
	errors     atomic.Uint64
	parkings   atomic.Uint64
}

func newStepResult(s step.Step) *StepResult {
	return &StepResult{identity: s.Identity(), kind: s.Kind()}
}

// Identity returns the step identity.
func (r *StepResult) Identity() step.Identity { return r.identity }

// Kind returns the step kind.
func (r *StepResult) Kind() step.Kind { return r.kind }

// RecordsIn returns the number of resources the step received.
func (r *StepResult) RecordsIn() uint64 { return r.in.Load() }

// RecordsOut returns the number of resources the step emitted.
func (r *StepResult) RecordsOut() uint64 { return r.out.Load() }

// Executions returns the number of times the step ran.
func (r *StepResult) Executions() uint64 { return r.executions.Load() }

// Errors returns the number of step failures.
func (r *StepResult) Errors() uint64 { return r.errors.Load() }

// Parkings returns the number of resources moved to a parking target.
func (r *StepResult) Parkings() uint64 { return r.parkings.Load() }

func (r *StepResult) report() StepReport {
	return StepReport{
		ID:             r.identity.ID,
		Name:           r.identity.Name,
		Operation:      r.identity.Operation,
		Kind:           r.kind.String(),
		ProcessingType: string(r.kind.ProcessingType()),
		RecordsIn:      r.RecordsIn(),
		RecordsOut:     r.RecordsOut(),
		Executions:     r.Executions(),
		Errors:         r.Errors(),
		Parkings:       r.Parkings(),
	}
}
