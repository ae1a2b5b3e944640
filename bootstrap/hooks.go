package bootstrap

import (
	"context"

	apperrors "github.com/kbukum/datapipe/errors"
)

// Hook runs once during startup or shutdown.
type Hook func(ctx context.Context) error

// OnStart appends hooks run after every component has started.
func (a *App[C]) OnStart(hooks ...Hook) { a.onStart = append(a.onStart, hooks...) }

// OnStop appends hooks run before components are stopped.
func (a *App[C]) OnStop(hooks ...Hook) { a.onStop = append(a.onStop, hooks...) }

// runHooks stops at the first failing hook.
func runHooks(ctx context.Context, phase string, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			code := apperrors.CodeOf(err)
			if code == "" {
				code = apperrors.ErrCodeInternal
			}
			return apperrors.Wrap(err, code, phase+" hook failed").WithDetail("hook", i)
		}
	}
	return nil
}
