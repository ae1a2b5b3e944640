package component

import (
	"context"
	"sync"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/logger"
)

// Lazy is a Component whose setup is deferred until the first Get. Start
// only records that the component may be used; a failed initialization is
// retried by the next Get.
type Lazy[T any] struct {
	name   string
	init   func(ctx context.Context) (T, error)
	closer func(T) error
	log    *logger.Logger

	mu        sync.RWMutex
	value     T
	ready     bool
	lastError error
}

var _ Component = (*Lazy[int])(nil)

// NewLazy creates a lazy component named name built by init.
func NewLazy[T any](name string, init func(context.Context) (T, error), log *logger.Logger) *Lazy[T] {
	return &Lazy[T]{name: name, init: init, log: log.WithComponent(name)}
}

// WithCloser sets the function releasing an initialized value on Stop.
func (l *Lazy[T]) WithCloser(fn func(T) error) *Lazy[T] {
	l.closer = fn
	return l
}

// Name returns the component name.
func (l *Lazy[T]) Name() string { return l.name }

// Start is a no-op; initialization happens on first Get.
func (l *Lazy[T]) Start(context.Context) error { return nil }

// Get returns the value, initializing it on first use. Concurrent callers
// share one initialization.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	l.mu.RLock()
	if l.ready {
		v := l.value
		l.mu.RUnlock()
		return v, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ready {
		return l.value, nil
	}
	if l.init == nil {
		var zero T
		return zero, apperrors.Newf(apperrors.ErrCodeConfiguration, "no initializer for component %s", l.name)
	}

	l.log.Debug("initializing lazy component")
	v, err := l.init(ctx)
	if err != nil {
		l.lastError = err
		var zero T
		return zero, wrap(err, "initialize "+l.name)
	}
	l.value, l.ready, l.lastError = v, true, nil
	l.log.Debug("lazy component initialized")
	return v, nil
}

// Initialized reports whether a value is held.
func (l *Lazy[T]) Initialized() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ready
}

// Stop closes an initialized value and forgets it.
func (l *Lazy[T]) Stop(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.ready {
		return nil
	}
	var err error
	if l.closer != nil {
		err = l.closer(l.value)
	}
	var zero T
	l.value, l.ready = zero, false
	return err
}

// Health is healthy before first use and after a successful initialization,
// unhealthy after a failed one.
func (l *Lazy[T]) Health(context.Context) Health {
	l.mu.RLock()
	defer l.mu.RUnlock()
	switch {
	case l.ready:
		return Health{Name: l.name, Status: StatusHealthy}
	case l.lastError != nil:
		return Health{Name: l.name, Status: StatusUnhealthy, Message: l.lastError.Error()}
	default:
		return Health{Name: l.name, Status: StatusHealthy, Message: "not initialized"}
	}
}
