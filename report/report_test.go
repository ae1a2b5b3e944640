package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kbukum/datapipe/database"
	"github.com/kbukum/datapipe/logger"
	"github.com/kbukum/datapipe/result"
	"github.com/kbukum/datapipe/storage"
	"github.com/kbukum/datapipe/storage/memory"
)

func sampleReport(id string) *result.Report {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &result.Report{
		ExecutionID: id,
		Pipeline:    "orders",
		Run:         1,
		Mode:        "batch",
		Status:      "completed",
		StartedAt:   start,
		FinishedAt:  start.Add(250 * time.Millisecond),
		TotalMS:     250,
		ExecutionMS: 240,
		Steps: []result.StepReport{
			{ID: 0, Name: "source", Operation: "tables", Kind: "supplier", RecordsOut: 3, Executions: 3},
			{ID: 1, Name: "copy", Operation: "transfer", Kind: "map", RecordsIn: 3, RecordsOut: 2, Executions: 3, Errors: 1, Parkings: 1},
		},
		LastParkingTarget: "table:errors_copy_c",
	}
}

func TestJSONSink(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONSink(&buf, false).Write(context.Background(), sampleReport("e1")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var got result.Report
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ExecutionID != "e1" || len(got.Steps) != 2 {
		t.Fatalf("decoded %+v", got)
	}
}

func TestStorageSink(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	sink, err := NewStorageSink(store, "")
	if err != nil {
		t.Fatalf("NewStorageSink: %v", err)
	}
	if err := sink.Write(ctx, sampleReport("e2")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := storage.ReadAll(ctx, store, "reports/orders/e2.json")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Contains(data, []byte(`"execution_id": "e2"`)) {
		t.Fatalf("unexpected object: %s", data)
	}
}

func TestStorageSink_BadPattern(t *testing.T) {
	if _, err := NewStorageSink(memory.New(), "{{.Pipeline"); err == nil {
		t.Fatal("expected parse error")
	}
	sink, err := NewStorageSink(memory.New(), "{{.Missing}}.json")
	if err != nil {
		t.Fatalf("NewStorageSink: %v", err)
	}
	if err := sink.Write(context.Background(), sampleReport("e3")); err == nil {
		t.Fatal("expected render error for unknown field")
	}
}

func TestDBSink(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Enabled:    true,
		DSN:        filepath.Join(t.TempDir(), "reports.db"),
		MaxRetries: 1,
	}, logger.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	sink, err := NewDBSink(db)
	if err != nil {
		t.Fatalf("NewDBSink: %v", err)
	}
	if _, err := NewDBSink(db); err != nil {
		t.Fatalf("second NewDBSink: %v", err)
	}
	if !db.GormDB.Migrator().HasIndex("pipeline_runs", "idx_pipeline_runs_pipeline_started") {
		t.Error("expected pipeline index")
	}

	first := sampleReport("e4")
	second := sampleReport("e5")
	second.Run = 2
	second.StartedAt = first.StartedAt.Add(time.Minute)
	for _, rep := range []*result.Report{first, second} {
		if err := sink.Write(ctx, rep); err != nil {
			t.Fatalf("Write %s: %v", rep.ExecutionID, err)
		}
	}

	runs, err := sink.Runs(ctx, "orders", 0)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ExecutionID != "e5" {
		t.Fatalf("runs = %+v", runs)
	}
	steps := runs[1].Steps
	if len(steps) != 2 || steps[1].Name != "copy" || steps[1].Parkings != 1 {
		t.Fatalf("steps = %+v", steps)
	}

	if err := sink.Write(ctx, first); err == nil {
		t.Fatal("duplicate execution id must fail")
	}
}

type fakePublisher struct {
	keys []string
	err  error
}

func (f *fakePublisher) PublishJSON(_ context.Context, key string, _ any) error {
	f.keys = append(f.keys, key)
	return f.err
}

func TestKafkaSink(t *testing.T) {
	pub := &fakePublisher{}
	if err := NewKafkaSink(pub).Write(context.Background(), sampleReport("e6")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(pub.keys) != 1 || pub.keys[0] != "e6" {
		t.Fatalf("keys = %v", pub.keys)
	}
}

func TestMultiSink_ContinuesPastFailures(t *testing.T) {
	boom := errors.New("boom")
	var buf bytes.Buffer
	failing := NewKafkaSink(&fakePublisher{err: boom})
	m := MultiSink{failing, nil, NewJSONSink(&buf, true)}

	err := m.Write(context.Background(), sampleReport("e7"))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if buf.Len() == 0 {
		t.Fatal("json sink was skipped")
	}
}
