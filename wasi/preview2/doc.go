// Package preview2 holds the WASI Preview2 resources of a component
// instance and exposes their readiness to the reactor.
//
// # Quick Start
//
//	w := preview2.New().WithStdin([]byte("input data"))
//	defer w.Close()
//
//	timer, _ := w.Resources().Add(preview2.NewTimerAfter(time.Second))
//	pollable, _ := w.Resources().Subscribe(timer)
//
// # Resource Management
//
// ResourceTable wraps resource.Table. Every handle a component sees is a
// table handle; stale handles are rejected because slots are generational.
//
//   - Resource: interface for host objects (streams, timers, errors)
//   - Subscribe: creates a pollable owned by its source resource
//   - SubscribeOwned: stores a hidden source and returns only its pollable
//   - Remove: deletes and drops a handle, refusing while it owns pollables
//
// Sources implement poll.Subscriber. Sources that also implement
// poll.Notifier let the reactor sleep instead of re-checking:
//
//   - TimerResource: ready once a deadline passes
//   - ManualResource: ready when the host says so
//   - CountdownResource: ready after a fixed number of failed checks
//   - FDResource: ready when a host descriptor is readable or writable
//   - InputStreamResource, OutputStreamResource: wasi:io/streams
//
// Sub-packages provide the host functions:
//
//   - io: wasi:io/poll, wasi:io/streams and wasi:io/error
//   - clocks: wasi:clocks/monotonic-clock and wasi:clocks/wall-clock
//   - cli: wasi:cli/stdin, stdout and stderr
//
// # Thread Safety
//
// A single WASI context should be used with one component instance at a time.
// Resources may be made ready from any goroutine.
package preview2
