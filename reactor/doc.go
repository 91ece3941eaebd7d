// Package reactor bridges host-side asynchronous sources and the
// poll-based readiness protocol seen by plugin components.
//
// The model is single-threaded and cooperative. A Future is advanced by
// calling Poll with a Context carrying the current Waker. A Reactor tracks
// outstanding waits: WaitFor returns a future that registers a pollable on
// its first poll, re-registers the caller's current waker on every poll,
// and resolves exactly once when the pollable reports ready.
//
// Run drives one root future to completion:
//
//	r := reactor.New(reactor.WithLogger(log))
//	_, err := reactor.Run(ctx, r, reactor.Join[struct{}](
//	    r.WaitFor(timer),
//	    r.WaitFor(stream),
//	))
//
// When the root future is pending and nothing woke it, Run blocks in the
// reactor's multiplex check, which wakes at least one registered waker. A
// pending root with no outstanding waits is a deadlock; Run reports
// errors.ErrDeadlock instead of spinning.
//
// There is no built-in timeout. Race the target against a wait on a
// timer-backed pollable instead.
//
// Nothing in this package is safe for concurrent use.
package reactor
