package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/datapipe/database"
	"github.com/kbukum/datapipe/logger"
	"github.com/kbukum/datapipe/report"
	"github.com/kbukum/datapipe/result"
)

const ordersDef = `
name: orders
steps:
  - operation: define
    args:
      table: orders
      columns: [id, status]
      rows:
        - [1, open]
        - [2, closed]
  - operation: select
    args:
      where: {status: open}
  - operation: transfer
    args: {target: "exports/{{.Name}}.jsonl", into: object, store: mem}
`

func writeFiles(t *testing.T) (cfgPath, defPath string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath = filepath.Join(dir, "datapipe.yml")
	cfg := `
name: datapipe-test
environment: development
logging:
  level: error
storage:
  mem:
    provider: memory
pipelines:
  dirs: [` + dir + `]
`
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	defPath = filepath.Join(dir, "orders.yaml")
	if err := os.WriteFile(defPath, []byte(ordersDef), 0o600); err != nil {
		t.Fatal(err)
	}
	return cfgPath, defPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRun_BatchReportToStdout(t *testing.T) {
	cfgPath, defPath := writeFiles(t)
	out, err := execute(t, "run", defPath, "--config", cfgPath, "--report", "-")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	var rep result.Report
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if rep.Pipeline != "orders" || rep.Status != string(result.StatusCompleted) {
		t.Errorf("report = %s %s", rep.Pipeline, rep.Status)
	}
	if len(rep.Steps) != 3 || rep.Steps[1].RecordsOut != 1 {
		t.Errorf("steps = %+v", rep.Steps)
	}
}

func TestRun_ByNameWithReportDB(t *testing.T) {
	cfgPath, _ := writeFiles(t)
	dsn := filepath.Join(t.TempDir(), "reports.db")
	if out, err := execute(t, "run", "orders", "--config", cfgPath, "--report-db", dsn); err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Enabled: true, DSN: dsn, MaxRetries: 1}, logger.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	sink, err := report.NewDBSink(db)
	if err != nil {
		t.Fatalf("NewDBSink: %v", err)
	}
	runs, err := sink.Runs(ctx, "orders", 0)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || len(runs[0].Steps) != 3 {
		t.Fatalf("runs = %+v", runs)
	}
}

func TestRun_FailureExitsWithError(t *testing.T) {
	cfgPath, _ := writeFiles(t)
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	doc := `
name: bad
steps:
  - operation: define
    args: {table: t, columns: [id], rows: [[1]]}
  - operation: transfer
    args: {target: "out", into: object, store: missing}
`
	if err := os.WriteFile(bad, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "run", bad, "--config", cfgPath); err == nil {
		t.Fatal("expected run to fail")
	}
}

func TestValidate(t *testing.T) {
	cfgPath, defPath := writeFiles(t)
	out, err := execute(t, "validate", defPath, "--config", cfgPath)
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "pipeline orders is valid (BATCH, 3 steps)") {
		t.Errorf("output = %q", out)
	}

	if _, err := execute(t, "validate", "missing-pipeline", "--config", cfgPath); err == nil {
		t.Error("expected unknown definition to fail")
	}
}

func TestOps(t *testing.T) {
	out, err := execute(t, "ops")
	if err != nil {
		t.Fatalf("ops: %v", err)
	}
	for _, op := range []string{"define", "consume", "watch", "union"} {
		if !strings.Contains(out, op) {
			t.Errorf("ops output misses %s:\n%s", op, out)
		}
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "datapipe dev") {
		t.Errorf("output = %q", out)
	}
}
