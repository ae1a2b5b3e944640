package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/datapipe/logger"
	"github.com/kbukum/datapipe/resource"
	"github.com/kbukum/datapipe/step"
)

func testConfig(name string) Config {
	return Config{Name: name}
}

func newTestPipeline(t *testing.T, cfg Config, steps []step.Step, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Nop())}, opts...)
	p, err := New(cfg, steps, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

// seedTables creates tables with one column and one row each.
func seedTables(cat *resource.Catalog, names ...string) []resource.Resource {
	out := make([]resource.Resource, len(names))
	for i, n := range names {
		out[i] = cat.Put(n, resource.NewSchema("id"), []resource.Row{{i}})
	}
	return out
}

func passMap(name string) step.Mapper {
	return step.NewMap(name, "pass", func(_ context.Context, r resource.Resource) (resource.Resource, error) {
		return r, nil
	})
}

// countingMap passes resources through and records their names.
type countingMap struct {
	step.Mapper
	mu    sync.Mutex
	names []string
}

func newCountingMap(name string) *countingMap {
	c := &countingMap{}
	c.Mapper = step.NewMap(name, "count", func(_ context.Context, r resource.Resource) (resource.Resource, error) {
		c.mu.Lock()
		c.names = append(c.names, r.Name())
		c.mu.Unlock()
		return r, nil
	})
	return c
}

func (c *countingMap) seen() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.names...)
}

// endless yields a new table on every call and never runs dry.
type endless struct {
	cat   *resource.Catalog
	n     atomic.Int64
	polls atomic.Int64
}

func (e *endless) HasNext(context.Context) (bool, error) { return true, nil }

func (e *endless) Next(context.Context) (resource.Resource, error) {
	i := e.n.Add(1)
	return e.cat.Put(fmt.Sprintf("t%d", i), resource.NewSchema("id"), []resource.Row{{i}}), nil
}

func (e *endless) Poll(context.Context) error {
	e.polls.Add(1)
	return nil
}

// trickle holds back its resources until polled, one per poll.
type trickle struct {
	mu      sync.Mutex
	pending []resource.Resource
	ready   []resource.Resource
	polls   int
}

func (t *trickle) HasNext(context.Context) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ready) > 0, nil
}

func (t *trickle) Next(context.Context) (resource.Resource, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.ready) == 0 {
		return nil, step.ErrExhausted
	}
	r := t.ready[0]
	t.ready = t.ready[1:]
	return r, nil
}

func (t *trickle) Poll(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.polls++
	if len(t.pending) > 0 {
		t.ready = append(t.ready, t.pending[0])
		t.pending = t.pending[1:]
	}
	return nil
}

func (t *trickle) pollCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.polls
}

// hooked records lifecycle hook calls of a supplier.
type hooked struct {
	*step.SliceSupplier
	started, completed atomic.Int32
}

func (h *hooked) OnStart(context.Context) error    { h.started.Add(1); return nil }
func (h *hooked) OnComplete(context.Context) error { h.completed.Add(1); return nil }

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
