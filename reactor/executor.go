package reactor

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/plugin-reactor/errors"
)

// Run drives f to completion on the calling goroutine.
//
// Each iteration polls f with a fresh waker. If f stays pending and its
// waker was not called during the poll, Run blocks in the reactor until a
// registered pollable is ready. A pending f with no outstanding waits can
// never progress; Run then returns an error matching errors.ErrDeadlock.
// Cancelling ctx aborts a blocked Run with ctx.Err().
func Run[T any](ctx context.Context, r *Reactor, f Future[T]) (T, error) {
	var zero T
	polls := 0

	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		woken := false
		cx := NewContext(WakerFunc(func() { woken = true }))
		polls++
		if v, ok := f.Poll(cx); ok {
			r.log.Debug("executor: root future resolved", zap.Int("polls", polls))
			return v, nil
		}
		if woken {
			continue
		}

		if r.Pending() == 0 {
			r.log.Warn("executor: deadlock", zap.Int("polls", polls))
			return zero, errors.Deadlock("root future is pending with no outstanding waits")
		}
		if err := r.blockUntil(ctx); err != nil {
			return zero, err
		}
	}
}

// BlockOn is Run with a background context.
func BlockOn[T any](r *Reactor, f Future[T]) (T, error) {
	return Run(context.Background(), r, f)
}
