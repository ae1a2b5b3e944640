package transfer

import (
	"context"
	"time"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/logger"
	"github.com/kbukum/datapipe/resilience"
	"github.com/kbukum/datapipe/resource"
)

// Manager copies the content of src to dst.
type Manager interface {
	Transfer(ctx context.Context, src, dst resource.Resource) error
}

// ManagerFunc adapts a function to Manager.
type ManagerFunc func(ctx context.Context, src, dst resource.Resource) error

// Transfer implements Manager.
func (f ManagerFunc) Transfer(ctx context.Context, src, dst resource.Resource) error {
	return f(ctx, src, dst)
}

// Copier is the default Manager for tables and storage objects. Transient
// storage failures are retried.
type Copier struct {
	retry resilience.RetryConfig
	log   *logger.Logger
}

// Option configures a Copier.
type Option func(*Copier)

// WithRetry sets the retry policy for each transfer.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *Copier) { c.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Copier) { c.log = l }
}

// NewCopier creates a Copier.
func NewCopier(opts ...Option) *Copier {
	c := &Copier{retry: resilience.DefaultRetryConfig(), log: logger.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithComponent("transfer")
	return c
}

// Transfer implements Manager. Copying a resource onto itself is a no-op.
func (c *Copier) Transfer(ctx context.Context, src, dst resource.Resource) error {
	if src == nil || dst == nil {
		return apperrors.InvalidInput("resource", "transfer needs a source and a destination")
	}
	if resource.Equal(src, dst) {
		return nil
	}

	retry := c.retry
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		c.log.Warn("Transfer failed, retrying", logger.Fields(
			logger.FieldResource, src.Key(),
			logger.FieldTarget, dst.Key(),
			"attempt", attempt,
			"backoff", backoff.String(),
			logger.FieldError, err.Error(),
		))
	}

	start := time.Now()
	err := resilience.RetryFunc(ctx, retry, func() error {
		return c.copy(ctx, src, dst)
	})
	if err != nil {
		return err
	}
	c.log.Debug("Transferred resource", logger.Fields(
		logger.FieldResource, src.Key(),
		logger.FieldTarget, dst.Key(),
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return nil
}

func (c *Copier) copy(ctx context.Context, src, dst resource.Resource) error {
	switch s := src.(type) {
	case *resource.Table:
		switch d := dst.(type) {
		case *resource.Table:
			return copyTable(s, d)
		case *resource.Object:
			return exportTable(ctx, s, d)
		}
	case *resource.Object:
		switch d := dst.(type) {
		case *resource.Object:
			return copyObject(ctx, s, d)
		case *resource.Table:
			return importObject(ctx, s, d)
		}
	}
	return apperrors.Newf(apperrors.ErrCodeInvalidInput,
		"cannot transfer %T to %T", src, dst)
}
