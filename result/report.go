package result

import (
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/datapipe/resource"
)

// Report is the immutable document describing one execution.
type Report struct {
	ExecutionID       string       `json:"execution_id"`
	Pipeline          string       `json:"pipeline"`
	Run               int          `json:"run"`
	Mode              string       `json:"mode"`
	Status            string       `json:"status"`
	Error             string       `json:"error,omitempty"`
	StartedAt         time.Time    `json:"started_at"`
	FinishedAt        time.Time    `json:"finished_at"`
	TotalMS           int64        `json:"total_ms"`
	ExecutionMS       int64        `json:"execution_ms"`
	PollWaitMS        int64        `json:"poll_wait_ms"`
	PushWaitMS        int64        `json:"push_wait_ms"`
	Steps             []StepReport `json:"steps"`
	Downstream        []string     `json:"downstream,omitempty"`
	LastParkingTarget string       `json:"last_parking_target,omitempty"`
}

// StepReport is the per-step part of a Report.
type StepReport struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Operation      string `json:"operation"`
	Kind           string `json:"kind"`
	ProcessingType string `json:"processing_type"`
	RecordsIn      uint64 `json:"records_in"`
	RecordsOut     uint64 `json:"records_out"`
	Executions     uint64 `json:"executions"`
	Errors         uint64 `json:"errors"`
	Parkings       uint64 `json:"parkings"`
}

// Report snapshots the result. Steps are ordered by id.
func (r *PipelineResult) Report() *Report {
	rep := &Report{
		ExecutionID: r.executionID,
		Pipeline:    r.pipeline,
		Run:         r.run,
		Mode:        string(r.mode),
		Status:      string(r.Status()),
		StartedAt:   r.total.Started(),
		FinishedAt:  r.total.Finished(),
		TotalMS:     r.TotalDuration().Milliseconds(),
		ExecutionMS: r.ExecutionDuration().Milliseconds(),
		PollWaitMS:  r.PollWait().Milliseconds(),
		PushWaitMS:  r.PushWait().Milliseconds(),
	}
	if err := r.Err(); err != nil {
		rep.Error = err.Error()
	}
	for _, sr := range r.steps {
		rep.Steps = append(rep.Steps, sr.report())
	}
	if ds := r.Downstream(); len(ds) > 0 {
		rep.Downstream = resource.Names(ds)
	}
	if t := r.LastParkingTarget(); t != nil {
		rep.LastParkingTarget = t.Key()
	}
	return rep
}

// Failed reports whether the execution ended with an error.
func (r *Report) Failed() bool { return r.Error != "" }

// String renders a short multi-line summary.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pipeline %s run %d (%s) %s in %dms\n", r.Pipeline, r.Run, r.Mode, r.Status, r.TotalMS)
	for _, s := range r.Steps {
		fmt.Fprintf(&b, "  #%d %-20s in=%d out=%d exec=%d err=%d park=%d\n",
			s.ID, s.Name, s.RecordsIn, s.RecordsOut, s.Executions, s.Errors, s.Parkings)
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "  error: %s\n", r.Error)
	}
	return b.String()
}
