package reactor

import "github.com/wippyai/plugin-reactor/errors"

// Waker schedules the task owning a pending future to be polled again.
type Waker interface {
	Wake()
}

// WakerFunc adapts a function to Waker.
type WakerFunc func()

func (f WakerFunc) Wake() { f() }

// Context carries the waker of the task polling a future.
type Context struct {
	waker Waker
}

// NewContext returns a context for polling with w.
func NewContext(w Waker) *Context {
	return &Context{waker: w}
}

// Waker returns the waker the polled future must arrange to call.
func (c *Context) Waker() Waker {
	if c == nil || c.waker == nil {
		errors.Raise(errors.PhaseReactor, errors.KindInternal, "future polled without a waker")
	}
	return c.waker
}

// Future is a value that becomes available later. Poll returns the value
// and true once ready; otherwise false, after arranging for cx's waker to be
// called when progress is possible. A future must not be polled after it
// returned true.
type Future[T any] interface {
	Poll(cx *Context) (T, bool)
}

// FutureFunc adapts a poll function to Future.
type FutureFunc[T any] func(cx *Context) (T, bool)

func (f FutureFunc[T]) Poll(cx *Context) (T, bool) { return f(cx) }

// Closer is implemented by futures that hold reactor registrations. Close
// releases them; calling it on a resolved future is a no-op.
type Closer interface {
	Close()
}

type readyFuture[T any] struct {
	value T
}

func (f readyFuture[T]) Poll(*Context) (T, bool) { return f.value, true }

// Ready returns a future that resolves to v on the first poll.
func Ready[T any](v T) Future[T] {
	return readyFuture[T]{value: v}
}
