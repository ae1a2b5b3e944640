package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/logger"
)

// window periodically drains one collector node while a stream execution
// runs. A drain error halts the task and waits in err until the main loop
// takes it.
type window struct {
	n        *node
	x        *execution
	interval time.Duration

	mu     sync.Mutex
	err    error
	base   context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newWindow(n *node, x *execution, interval time.Duration) *window {
	return &window{n: n, x: x, interval: interval}
}

// start launches the task. The task outlives cancellation of ctx and ends
// only through stop.
func (w *window) start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.base == nil {
		w.base = context.WithoutCancel(ctx)
	}
	wctx, cancel := context.WithCancel(w.base)
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done
	go w.run(wctx, done)
	w.x.log.Debug("Window task started", w.fields())
}

func (w *window) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !w.n.due() {
				continue
			}
			if err := w.n.drain(ctx, w.x, false); err != nil {
				if ctx.Err() != nil && isContextErr(err) {
					return
				}
				w.mu.Lock()
				w.err = err
				w.mu.Unlock()
				w.x.log.Debug("Window task halted", logger.MergeWithError(w.fields(), err))
				return
			}
		}
	}
}

// take returns and clears the pending error.
func (w *window) take() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.err
	w.err = nil
	return err
}

// restart relaunches a halted task.
func (w *window) restart() {
	w.mu.Lock()
	base := w.base
	w.mu.Unlock()
	w.start(base)
}

// stop cancels the task and waits up to timeout for it to finish.
func (w *window) stop(timeout time.Duration) error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
		w.x.log.Debug("Window task stopped", w.fields())
		return nil
	case <-t.C:
		s := w.n.owner()
		return apperrors.Newf(apperrors.ErrCodeCollectorFailed,
			"pipeline %q: window task of collector %s did not stop within %s",
			w.x.cfg.Name, s.Identity(), timeout).
			WithDetails(w.x.details(s, nil))
	}
}

func (w *window) fields() map[string]interface{} {
	s := w.n.owner()
	return logger.Fields(logger.FieldStep, s.Name(), "interval", w.interval.String())
}

// startWindows launches one task per collector node.
func (x *execution) startWindows(ctx context.Context) {
	now := time.Now().UnixNano()
	x.root.walk(func(n *node) {
		c, ok := n.collector()
		if !ok {
			return
		}
		n.lastDrain.Store(now)
		w := newWindow(n, x, c.interval)
		x.windows = append(x.windows, w)
		w.start(ctx)
	})
}

// checkWindows routes pending window errors through the error policy. A
// recovered task is restarted.
func (x *execution) checkWindows(ctx context.Context) error {
	for _, w := range x.windows {
		err := w.take()
		if err == nil {
			continue
		}
		if err := x.windowError(ctx, w, err); err != nil {
			return err
		}
		w.restart()
	}
	return nil
}

func (x *execution) windowError(ctx context.Context, w *window, err error) error {
	var f *stepFailure
	if errors.As(err, &f) {
		return x.recover(ctx, f)
	}
	return x.handle(ctx, err, nil, "window drain of "+w.n.owner().Name())
}

// stopWindows stops every task and surfaces pending errors. The first
// error wins.
func (x *execution) stopWindows(ctx context.Context) error {
	var first error
	for _, w := range x.windows {
		if err := w.stop(x.cfg.WindowShutdownTimeout); err != nil && first == nil {
			first = err
		}
	}
	for _, w := range x.windows {
		if err := w.take(); err != nil {
			if herr := x.windowError(ctx, w, err); herr != nil && first == nil {
				first = herr
			}
		}
	}
	return first
}
