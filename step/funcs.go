package step

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/datapipe/resource"
)

// MapFunc transforms one resource.
type MapFunc func(ctx context.Context, r resource.Resource) (resource.Resource, error)

// SplitFunc turns one resource into a sub-supplier.
type SplitFunc func(ctx context.Context, r resource.Resource) (Supplier, error)

// CollectFunc turns the buffered resources into a sub-supplier.
type CollectFunc func(ctx context.Context, buffered []resource.Resource) (Supplier, error)

type funcMapper struct {
	Base
	fn MapFunc
}

func (m *funcMapper) Apply(ctx context.Context, r resource.Resource) (resource.Resource, error) {
	return m.fn(ctx, r)
}

// NewMap creates a map step from a function.
func NewMap(name, operation string, fn MapFunc) Mapper {
	return &funcMapper{Base: NewBase(KindMap, operation, name, nil), fn: fn}
}

// NewFilter creates a filtering map step from a function; fn may return nil
// to drop the resource.
func NewFilter(name, operation string, fn MapFunc) Mapper {
	return &funcMapper{Base: NewBase(KindFilterMap, operation, name, nil), fn: fn}
}

type funcSplitter struct {
	Base
	fn SplitFunc
}

func (s *funcSplitter) Split(ctx context.Context, r resource.Resource) (Supplier, error) {
	return s.fn(ctx, r)
}

// NewSplit creates a split step from a function.
func NewSplit(name, operation string, fn SplitFunc) Splitter {
	return &funcSplitter{Base: NewBase(KindSplit, operation, name, nil), fn: fn}
}

type sourceStep struct {
	Base
	Supplier
}

func (s *sourceStep) OnStart(ctx context.Context) error {
	if st, ok := s.Supplier.(Starter); ok {
		return st.OnStart(ctx)
	}
	return nil
}

func (s *sourceStep) OnComplete(ctx context.Context) error {
	if c, ok := s.Supplier.(Completer); ok {
		return c.OnComplete(ctx)
	}
	return nil
}

func (s *sourceStep) Rebuild() error {
	if r, ok := s.Supplier.(Rebuilder); ok {
		return r.Rebuild()
	}
	return nil
}

// NewSource wraps a supplier as a batch root step. Start, completion and
// rebuild hooks of the supplier are forwarded.
func NewSource(name, operation string, s Supplier) BatchSupplier {
	return &sourceStep{Base: NewBase(KindBatchSupplier, operation, name, nil), Supplier: s}
}

// PollingSupplier is a supplier that can be refreshed.
type PollingSupplier interface {
	Supplier
	Poller
}

type streamSourceStep struct {
	sourceStep
	poller Poller
}

func (s *streamSourceStep) Poll(ctx context.Context) error { return s.poller.Poll(ctx) }

// NewStreamSource wraps a polling supplier as a stream root step.
func NewStreamSource(name, operation string, s PollingSupplier) StreamSupplier {
	return &streamSourceStep{
		sourceStep: sourceStep{Base: NewBase(KindStreamSupplier, operation, name, nil), Supplier: s},
		poller:     s,
	}
}

// BufferCollector is a Collector that keeps accepted resources in order and
// hands them to a CollectFunc.
type BufferCollector struct {
	Base
	mu     sync.Mutex
	buf    []resource.Resource
	fn     CollectFunc
	window time.Duration
}

// NewCollector creates a buffering collect step. fn is called with a
// snapshot of the buffer on every drain; a nil fn emits the buffer as is.
func NewCollector(name, operation string, fn CollectFunc) *BufferCollector {
	return &BufferCollector{Base: NewBase(KindCollect, operation, name, nil), fn: fn}
}

// NewCollectorFromSpec creates a buffering collect step that reports the
// name, operation and arguments of spec.
func NewCollectorFromSpec(spec Spec, fn CollectFunc) *BufferCollector {
	return &BufferCollector{Base: spec.Base(KindCollect), fn: fn}
}

// WithWindow sets the drain interval used in stream mode.
func (c *BufferCollector) WithWindow(d time.Duration) *BufferCollector {
	c.window = d
	return c
}

// WindowInterval implements Windowed. Zero means the pipeline default.
func (c *BufferCollector) WindowInterval() time.Duration { return c.window }

// Accept implements Collector.
func (c *BufferCollector) Accept(_ context.Context, r resource.Resource) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf = append(c.buf, r)
	return nil
}

// Collect implements Collector. An empty buffer yields no sub-supplier.
func (c *BufferCollector) Collect(ctx context.Context) (Supplier, error) {
	buffered := c.Buffered()
	if len(buffered) == 0 {
		return nil, nil
	}
	if c.fn == nil {
		return FromSlice(buffered...), nil
	}
	return c.fn(ctx, buffered)
}

// Reset implements Collector.
func (c *BufferCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf = nil
}

// Buffered implements Collector.
func (c *BufferCollector) Buffered() []resource.Resource {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]resource.Resource(nil), c.buf...)
}

// Rebuild implements Rebuilder.
func (c *BufferCollector) Rebuild() error {
	c.Reset()
	return nil
}
