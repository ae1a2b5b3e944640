package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/resource"
	"github.com/kbukum/datapipe/result"
	"github.com/kbukum/datapipe/step"
)

// merge emits one table holding the rows of every buffered table.
func merge(cat *resource.Catalog, name string) step.CollectFunc {
	return func(_ context.Context, buffered []resource.Resource) (step.Supplier, error) {
		var rows []resource.Row
		var schema *resource.Schema
		for _, r := range buffered {
			s, rs, ok := cat.Get(r.Name())
			if !ok {
				continue
			}
			schema = s
			rows = append(rows, rs...)
		}
		return step.FromSlice(cat.Put(name, schema, rows)), nil
	}
}

func TestCollector_BatchDrain(t *testing.T) {
	cat := resource.NewCatalog("main")
	col := step.NewCollector("union", "union", merge(cat, "merged"))
	cm := newCountingMap("count")
	p := newTestPipeline(t, testConfig("collect"), []step.Step{
		step.NewSource("src", "define", step.FromSlice(seedTables(cat, "a", "b", "c")...)),
		col,
		cm,
	})

	res, err := p.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := cm.seen(); len(got) != 1 || got[0] != "merged" {
		t.Errorf("seen = %v", got)
	}
	_, rows, _ := cat.Get("merged")
	if len(rows) != 3 {
		t.Errorf("merged rows = %d", len(rows))
	}
	c, _ := res.Step(1)
	if c.RecordsIn() != 3 || c.RecordsOut() != 1 || c.Executions() != 1 {
		t.Errorf("collector in=%d out=%d exec=%d", c.RecordsIn(), c.RecordsOut(), c.Executions())
	}
	if len(col.Buffered()) != 0 {
		t.Error("buffer should be reset after a drain")
	}
}

func TestCollector_EmptyIsSkipped(t *testing.T) {
	cat := resource.NewCatalog("main")
	calls := 0
	col := step.NewCollector("union", "union", func(ctx context.Context, b []resource.Resource) (step.Supplier, error) {
		calls++
		return merge(cat, "merged")(ctx, b)
	})
	cm := newCountingMap("count")
	p := newTestPipeline(t, testConfig("empty"), []step.Step{
		step.NewSource("src", "define", step.FromSlice()),
		col,
		cm,
	})
	res, err := p.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls != 0 || len(cm.seen()) != 0 {
		t.Errorf("calls=%d seen=%v", calls, cm.seen())
	}
	if c, _ := res.Step(1); c.Executions() != 0 {
		t.Errorf("collector executions = %d", c.Executions())
	}
}

func failingCollect(context.Context, []resource.Resource) (step.Supplier, error) {
	return nil, errors.New("cannot merge")
}

func TestCollector_FailureDiscardResetsBuffer(t *testing.T) {
	cat := resource.NewCatalog("main")
	col := step.NewCollector("union", "union", failingCollect)
	cfg := testConfig("collect-discard")
	cfg.OnError = ActionDiscard
	p := newTestPipeline(t, cfg, []step.Step{
		step.NewSource("src", "define", step.FromSlice(seedTables(cat, "a", "b")...)),
		col,
	})
	res, err := p.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if c, _ := res.Step(1); c.Errors() != 1 {
		t.Errorf("errors = %d", c.Errors())
	}
	if len(col.Buffered()) != 0 {
		t.Error("a recovered collect failure must reset the buffer")
	}
}

func TestCollector_FailureParksWholeBuffer(t *testing.T) {
	cat := resource.NewCatalog("main")
	cfg := testConfig("collect-park")
	cfg.OnError = ActionPark
	cfg.ParkingTarget = "parked_{{.Name}}"
	p := newTestPipeline(t, cfg, []step.Step{
		step.NewSource("src", "define", step.FromSlice(seedTables(cat, "a", "b", "c")...)),
		step.NewCollector("union", "union", failingCollect),
	})
	res, err := p.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	c, _ := res.Step(1)
	if c.Errors() != 1 || c.Parkings() != 3 {
		t.Errorf("errors=%d parkings=%d", c.Errors(), c.Parkings())
	}
	for _, n := range []string{"parked_a", "parked_b", "parked_c"} {
		if !cat.Exists(n) {
			t.Errorf("missing %s", n)
		}
	}
}

func TestCollector_StreamWindow(t *testing.T) {
	cat := resource.NewCatalog("main")
	tr := &trickle{pending: seedTables(cat, "a", "b", "c", "d", "e", "f")}
	var drains atomic.Int32
	col := step.NewCollector("batch", "union", func(_ context.Context, b []resource.Resource) (step.Supplier, error) {
		drains.Add(1)
		return step.FromSlice(b...), nil
	}).WithWindow(30 * time.Millisecond)
	cm := newCountingMap("count")

	cfg := testConfig("windowed")
	cfg.PollInterval = 5 * time.Millisecond
	cfg.Timeout = 300 * time.Millisecond
	cfg.TimeoutType = TimeoutDuration
	p := newTestPipeline(t, cfg, []step.Step{step.NewStreamSource("src", "trickle", tr), col, cm})

	res, err := p.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if drains.Load() < 1 {
		t.Fatal("window never drained the collector")
	}
	if len(cm.seen()) != 6 {
		t.Errorf("seen = %v", cm.seen())
	}
	if c, _ := res.Step(1); c.RecordsIn() != 6 || c.RecordsOut() != 6 {
		t.Errorf("collector in=%d out=%d", c.RecordsIn(), c.RecordsOut())
	}
}

func TestCollector_StreamWindowErrorRecovered(t *testing.T) {
	cat := resource.NewCatalog("main")
	tr := &trickle{pending: seedTables(cat, "a", "b", "c", "d", "e", "f", "g", "h")}
	var calls atomic.Int32
	col := step.NewCollector("flaky", "union", func(_ context.Context, b []resource.Resource) (step.Supplier, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("transient")
		}
		return step.FromSlice(b...), nil
	}).WithWindow(20 * time.Millisecond)
	cm := newCountingMap("count")

	cfg := testConfig("windowed-discard")
	cfg.OnError = ActionDiscard
	cfg.PollInterval = 5 * time.Millisecond
	cfg.Timeout = 400 * time.Millisecond
	cfg.TimeoutType = TimeoutDuration
	p := newTestPipeline(t, cfg, []step.Step{step.NewStreamSource("src", "trickle", tr), col, cm})

	res, err := p.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	c, _ := res.Step(1)
	if c.Errors() != 1 {
		t.Errorf("collector errors = %d", c.Errors())
	}
	if calls.Load() < 2 || len(cm.seen()) == 0 {
		t.Errorf("window should restart after a recovered failure: calls=%d seen=%v", calls.Load(), cm.seen())
	}
}

func TestCollector_StreamWindowErrorStops(t *testing.T) {
	cat := resource.NewCatalog("main")
	tr := &trickle{pending: seedTables(cat, "a", "b", "c")}
	col := step.NewCollector("broken", "union", failingCollect).WithWindow(20 * time.Millisecond)

	cfg := testConfig("windowed-stop")
	cfg.PollInterval = 5 * time.Millisecond
	cfg.Timeout = 2 * time.Second
	p := newTestPipeline(t, cfg, []step.Step{step.NewStreamSource("src", "trickle", tr), col})

	res, err := p.Execute(context.Background())
	if !apperrors.IsCode(err, apperrors.ErrCodeStepFailed) {
		t.Fatalf("expected STEP_FAILED, got %v", err)
	}
	appErr, _ := apperrors.AsAppError(err)
	if appErr.Details["step"] != "broken" {
		t.Errorf("details = %v", appErr.Details)
	}
	if res.Status() != result.StatusFailed {
		t.Errorf("status = %s", res.Status())
	}
}

func TestCollector_FlushOnComplete(t *testing.T) {
	for _, flush := range []bool{false, true} {
		cat := resource.NewCatalog("main")
		col := step.NewCollector("hold", "union", nil).WithWindow(time.Hour)
		cm := newCountingMap("count")
		cfg := testConfig("flush")
		cfg.MaxCycleCount = 4
		cfg.FlushOnComplete = flush
		p := newTestPipeline(t, cfg, []step.Step{
			step.NewStreamSource("src", "gen", &endless{cat: cat}),
			col,
			cm,
		})
		if _, err := p.Execute(context.Background()); err != nil {
			t.Fatalf("Execute: %v", err)
		}
		want := 0
		if flush {
			want = 4
		}
		if len(cm.seen()) != want {
			t.Errorf("flush=%v: seen %d, want %d", flush, len(cm.seen()), want)
		}
	}
}

func TestSplit_RunsSubSupplier(t *testing.T) {
	cat := resource.NewCatalog("main")
	var completed atomic.Int32
	split := step.NewSplit("fan", "split", func(_ context.Context, r resource.Resource) (step.Supplier, error) {
		h := &hooked{SliceSupplier: step.FromSlice(r.Relocate(r.Name()+"_1"), r.Relocate(r.Name()+"_2"))}
		completed.Add(1)
		return h, nil
	})
	cm := newCountingMap("count")
	p := newTestPipeline(t, testConfig("split"), []step.Step{
		step.NewSource("src", "define", step.FromSlice(seedTables(cat, "a", "b")...)),
		split,
		cm,
	})
	res, err := p.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(cm.seen()) != 4 {
		t.Errorf("seen = %v", cm.seen())
	}
	s, _ := res.Step(1)
	if s.RecordsIn() != 2 || s.RecordsOut() != 4 || s.Executions() != 2 {
		t.Errorf("split in=%d out=%d exec=%d", s.RecordsIn(), s.RecordsOut(), s.Executions())
	}
}
