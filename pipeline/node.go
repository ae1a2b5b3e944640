package pipeline

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/datapipe/resource"
	"github.com/kbukum/datapipe/step"
)

// source is the supplier side of a node.
type source interface {
	owner() step.Step
}

type rootSource struct {
	supplier step.Supplier
	poller   step.Poller
	s        step.Step
}

type splitSource struct {
	splitter step.Splitter
}

type collectSource struct {
	collector step.Collector
	interval  time.Duration
}

func (r *rootSource) owner() step.Step    { return r.s }
func (s *splitSource) owner() step.Step   { return s.splitter }
func (c *collectSource) owner() step.Step { return c.collector }

// node is one segment of the cascade: a supplier followed by its maps and
// an optional child node.
type node struct {
	src   source
	maps  []step.Mapper
	child *node

	lastPoll time.Time

	// bufMu guards the collector buffer; drainMu serializes drains.
	bufMu     sync.Mutex
	drainMu   sync.Mutex
	lastDrain atomic.Int64
}

func (n *node) owner() step.Step { return n.src.owner() }

func (n *node) collector() (*collectSource, bool) {
	c, ok := n.src.(*collectSource)
	return c, ok
}

// execute feeds input into the node. Root nodes ignore input.
func (n *node) execute(ctx context.Context, x *execution, input resource.Resource) error {
	switch src := n.src.(type) {
	case *rootSource:
		return n.loop(ctx, x, src.supplier, src.poller)
	case *splitSource:
		if err := x.res.AddInput(src.splitter); err != nil {
			return err
		}
		sub, err := src.splitter.Split(ctx, input)
		if err != nil {
			return x.handle(ctx, err, src.splitter, "split", input)
		}
		if sub == nil {
			return nil
		}
		return n.runSub(ctx, x, sub)
	case *collectSource:
		if err := x.res.AddInput(src.collector); err != nil {
			return err
		}
		n.bufMu.Lock()
		err := src.collector.Accept(ctx, input)
		n.bufMu.Unlock()
		if err != nil {
			return x.handle(ctx, err, src.collector, "accept", input)
		}
		return nil
	}
	return nil
}

// runSub runs the loop over an intermediate sub-supplier between its start
// and completion hooks. The completion hook fires even when the loop fails.
func (n *node) runSub(ctx context.Context, x *execution, sub step.Supplier) (err error) {
	if c, ok := sub.(step.Completer); ok {
		defer func() {
			cctx := context.WithoutCancel(ctx)
			if cerr := c.OnComplete(cctx); cerr != nil && err == nil {
				err = x.handle(cctx, cerr, n.owner(), "complete")
			}
		}()
	}
	if s, ok := sub.(step.Starter); ok {
		if err := s.OnStart(ctx); err != nil {
			return x.handle(ctx, err, n.owner(), "start")
		}
	}
	return n.loop(ctx, x, sub, nil)
}

// loop pulls resources from sup until it is exhausted, the cycle limit is
// reached or the context ends. poller is set only for a stream root.
func (n *node) loop(ctx context.Context, x *execution, sup step.Supplier, poller step.Poller) error {
	owner := n.owner()
	stream := x.mode == step.Stream
	_, isRoot := n.src.(*rootSource)

	// Only a back-to-back repeat from a batch, non-split supplier is an
	// invariant violation.
	_, isSplit := n.src.(*splitSource)
	checkRepeat := !stream && !isSplit
	var prev resource.Resource

	var cycles uint64
	produced := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hasNext, err := sup.HasNext(ctx)
		if err != nil {
			if err := x.handle(ctx, err, owner, "has next"); err != nil {
				return err
			}
			hasNext = false
		}

		if stream && isRoot {
			if err := x.checkWindows(ctx); err != nil {
				return err
			}
		}

		if !hasNext {
			if !stream || poller == nil {
				break
			}
			if err := n.pause(ctx, x); err != nil {
				return err
			}
			if err := poller.Poll(ctx); err != nil {
				if err := x.handle(ctx, err, owner, "poll"); err != nil {
					return err
				}
			}
			continue
		}

		if stream && x.cfg.PushInterval > 0 {
			if err := sleep(ctx, x.cfg.PushInterval); err != nil {
				return err
			}
			if err := x.res.AddPushWait(x.cfg.PushInterval); err != nil {
				return err
			}
		}

		if cycles >= x.maxCycles {
			break
		}
		cycles++

		r, err := sup.Next(ctx)
		if err != nil {
			if err := x.handle(ctx, err, owner, "next"); err != nil {
				return err
			}
			continue
		}
		if err := x.res.AddOutput(owner); err != nil {
			return err
		}
		produced = true

		if checkRepeat {
			if prev != nil && resource.Equal(prev, r) {
				return x.invariant(owner, r, "supplier returned the same resource twice in a row in batch mode")
			}
			prev = r
		}

		if err := n.process(ctx, x, r); err != nil {
			return err
		}
	}

	if !stream && n.child != nil {
		if err := n.child.drain(ctx, x, true); err != nil {
			return err
		}
	}
	if produced {
		return x.res.AddExecution(owner)
	}
	return nil
}

// pause waits until PollInterval has passed since the previous poll. The
// first poll is not delayed.
func (n *node) pause(ctx context.Context, x *execution) error {
	if !n.lastPoll.IsZero() {
		if delay := x.cfg.PollInterval - time.Since(n.lastPoll); delay > 0 {
			if err := sleep(ctx, delay); err != nil {
				return err
			}
			if err := x.res.AddPollWait(delay); err != nil {
				return err
			}
		}
	}
	n.lastPoll = time.Now()
	return nil
}

// process runs r through the node's maps, then hands it to the child or
// records it as downstream.
func (n *node) process(ctx context.Context, x *execution, r resource.Resource) error {
	cur := r
	for _, m := range n.maps {
		if err := x.res.AddInput(m); err != nil {
			return err
		}
		if err := x.res.AddExecution(m); err != nil {
			return err
		}
		out, err := m.Apply(ctx, cur)
		if err != nil {
			return x.handle(ctx, err, m, "apply", cur)
		}
		if isNil(out) {
			if m.Kind() == step.KindFilterMap {
				return nil
			}
			return x.invariant(m, cur, "map returned no resource")
		}
		if s := out.Schema(); s != nil && s.ColumnCount() == 0 {
			return x.invariant(m, out, "map returned a resource with zero columns")
		}
		if err := x.res.AddOutput(m); err != nil {
			return err
		}
		cur = out
	}

	if n.child == nil {
		return x.res.AddDownstream(cur)
	}
	if err := n.child.execute(ctx, x, cur); err != nil {
		return err
	}
	if x.mode == step.Stream && n.child.due() {
		return n.child.drain(ctx, x, true)
	}
	return nil
}

// due reports whether a collector node's window has elapsed.
func (n *node) due() bool {
	c, ok := n.collector()
	if !ok {
		return false
	}
	last := time.Unix(0, n.lastDrain.Load())
	return time.Since(last) >= c.interval
}

// drain materializes a collector's buffer and runs the loop over it. It is
// a no-op for other nodes. A synchronous drain routes a collect failure
// through the error policy; an asynchronous one returns it as a
// *stepFailure for the main loop.
func (n *node) drain(ctx context.Context, x *execution, direct bool) error {
	c, ok := n.collector()
	if !ok {
		return nil
	}
	n.drainMu.Lock()
	defer n.drainMu.Unlock()
	n.lastDrain.Store(time.Now().UnixNano())

	n.bufMu.Lock()
	buffered := c.collector.Buffered()
	sub, err := c.collector.Collect(ctx)
	if err == nil {
		c.collector.Reset()
	}
	n.bufMu.Unlock()

	if err != nil {
		f := &stepFailure{step: c.collector, what: "collect", resources: buffered, node: n, err: err}
		if !direct {
			return f
		}
		return x.recover(ctx, f)
	}
	if sub == nil {
		return nil
	}
	return n.runSub(ctx, x, sub)
}

// resetBuffer drops whatever a collector holds.
func (n *node) resetBuffer() {
	if c, ok := n.collector(); ok {
		n.bufMu.Lock()
		c.collector.Reset()
		n.bufMu.Unlock()
	}
}

// walk calls fn for n and every descendant.
func (n *node) walk(fn func(*node)) {
	for cur := n; cur != nil; cur = cur.child {
		fn(cur)
	}
}

// isNil reports whether r is nil, including a typed nil pointer.
func isNil(r resource.Resource) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
