// Package poll implements re-checkable readiness sources and the arena the
// reactor keeps them in.
//
// A capability object (timer, stream, file descriptor) implements
// Subscriber. A Pollable binds a resource handle to such a capability and
// can be checked any number of times:
//
//	h, _ := table.Insert(timer)
//	ph, _ := poll.Subscribe(table, h) // pollable is a child of the timer
//	p, _ := poll.Lookup(table, ph)
//	p.Ready()
//
// Poll is the batch multiplex check. It blocks until at least one input is
// ready and returns the ready positions. Calling it with no pollables is a
// protocol violation and panics with an *errors.Trap.
//
// Poller is the reactor's arena of outstanding pollables keyed by EventKey.
// Its BlockUntil is the only blocking call in the subsystem.
package poll
