package result

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/resource"
	"github.com/kbukum/datapipe/step"
)

func testSteps() []step.Step {
	src := step.NewSource("src", "define", step.FromSlice())
	m := step.NewMap("", "select", nil)
	step.Assign(src, 0)
	step.Assign(m, 1)
	return []step.Step{src, m}
}

func TestTimer(t *testing.T) {
	tm := StartTimer()
	time.Sleep(5 * time.Millisecond)
	if tm.Stopped() {
		t.Fatal("timer should be running")
	}
	d := tm.Stop()
	if d < 5*time.Millisecond {
		t.Errorf("Stop = %v", d)
	}
	time.Sleep(2 * time.Millisecond)
	if tm.Stop() != d || tm.Duration() != d {
		t.Error("Stop must be idempotent")
	}
}

func TestPipelineResult_Counters(t *testing.T) {
	steps := testSteps()
	r := New("orders", step.Batch, steps)
	if r.ExecutionID() == "" {
		t.Fatal("missing execution id")
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.AddInput(steps[1])
			_ = r.AddOutput(steps[1])
		}()
	}
	wg.Wait()
	_ = r.AddExecution(steps[0])
	_ = r.AddError(steps[1])

	sr, ok := r.Step(1)
	if !ok {
		t.Fatal("missing step result")
	}
	if sr.RecordsIn() != 50 || sr.RecordsOut() != 50 || sr.Errors() != 1 {
		t.Errorf("counters = in %d out %d err %d", sr.RecordsIn(), sr.RecordsOut(), sr.Errors())
	}
	if sr.Identity().Name != "step1" {
		t.Errorf("name = %s", sr.Identity().Name)
	}
}

func TestPipelineResult_ClosedAfterStop(t *testing.T) {
	steps := testSteps()
	r := New("orders", step.Batch, steps)
	if err := r.Stop(StatusCompleted, nil); err != nil {
		t.Fatal(err)
	}
	if err := r.AddInput(steps[0]); !apperrors.IsCode(err, apperrors.ErrCodeResultClosed) {
		t.Errorf("AddInput after Stop = %v", err)
	}
	if err := r.AddPollWait(time.Second); !apperrors.IsCode(err, apperrors.ErrCodeResultClosed) {
		t.Errorf("AddPollWait after Stop = %v", err)
	}
	if err := r.Stop(StatusFailed, nil); err == nil {
		t.Error("second Stop should fail")
	}
	if r.Status() != StatusCompleted {
		t.Errorf("status = %s", r.Status())
	}
}

func TestPipelineResult_ExecutionStoppedEarly(t *testing.T) {
	r := New("p", step.Stream, testSteps())
	_ = r.Start()
	time.Sleep(10 * time.Millisecond)
	r.StopExecution()
	exec := r.ExecutionDuration()
	time.Sleep(10 * time.Millisecond)
	_ = r.Stop(StatusTimedOut, nil)

	if r.ExecutionDuration() != exec {
		t.Error("execution timer must keep its first stop")
	}
	if r.TotalDuration() < exec+10*time.Millisecond {
		t.Errorf("total %v should cover execution %v", r.TotalDuration(), exec)
	}
}

func TestPipelineResult_DownstreamAndParking(t *testing.T) {
	steps := testSteps()
	cat := resource.NewCatalog("main")

	plain := New("p", step.Batch, steps)
	_ = plain.AddDownstream(cat.Table("a"))
	if len(plain.Downstream()) != 0 {
		t.Error("downstream should be ignored unless enabled")
	}

	r := New("p", step.Batch, steps, WithDownstream(), WithRun(3))
	_ = r.AddDownstream(cat.Table("a"))
	_ = r.AddParking(steps[1], cat.Table("parked_a"))
	_ = r.AddParking(steps[1], cat.Table("parked_b"))
	_ = r.Stop(StatusFailed, apperrors.New(apperrors.ErrCodeStepFailed, "boom"))

	rep := r.Report()
	if rep.Run != 3 || rep.Status != "failed" || !rep.Failed() {
		t.Errorf("report = %+v", rep)
	}
	if len(rep.Downstream) != 1 || rep.Downstream[0] != "a" {
		t.Errorf("downstream = %v", rep.Downstream)
	}
	if rep.LastParkingTarget != "table:main/parked_b" {
		t.Errorf("last parking = %s", rep.LastParkingTarget)
	}
	if rep.Steps[1].Parkings != 2 || rep.Steps[1].Kind != "map" {
		t.Errorf("step report = %+v", rep.Steps[1])
	}

	data, err := json.Marshal(rep)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["execution_id"] != r.ExecutionID() {
		t.Errorf("execution_id = %v", decoded["execution_id"])
	}
}
