// Package pluginreactor provides poll-based readiness for WASI hosts written
// in Go.
//
// A guest component waits on host resources (timers, streams, file
// descriptors) through pollables. The host keeps every resource in a
// generational handle table, turns pollables into futures, and drives those
// futures on a single-threaded reactor that blocks only when no task can make
// progress.
//
// # Architecture Overview
//
//	pluginreactor/
//	├── resource/        Generational handle table with parent/child ownership
//	├── poll/            Pollable, Poller and the blocking multiplex check
//	├── reactor/         Reactor, WaitFor futures, Run and combinators
//	├── errors/          Structured errors and traps
//	├── wasi/preview2/   Resource table, streams, timers and WASI host modules
//	│   ├── io/          wasi:io/poll, streams and error
//	│   ├── clocks/      wasi:clocks/monotonic-clock and wall-clock
//	│   └── cli/         wasi:cli/stdin, stdout and stderr
//	└── cmd/reactor/     CLI that runs YAML wait scenarios
//
// # Quick Start
//
// Wait for the first of two timers:
//
//	table := preview2.NewResourceTable()
//	r := reactor.New()
//
//	fast, _ := table.SubscribeOwned(preview2.NewTimerAfter(10 * time.Millisecond))
//	slow, _ := table.SubscribeOwned(preview2.NewTimerAfter(time.Second))
//	pf, _ := table.Pollable(fast)
//	ps, _ := table.Pollable(slow)
//
//	won, err := reactor.BlockOn(r, reactor.Race[struct{}](r.WaitFor(pf), r.WaitFor(ps)))
//	// won.Index == 0
//
// # Host Modules
//
// Register the WASI interfaces of one instance in a wazero runtime:
//
//	w := preview2.New().WithStdout(os.Stdout)
//	host := io.NewHost(w.Resources(), reactor.New(reactor.WithLogger(log)))
//	_ = io.Instantiate(ctx, rt, host)
//	_, _ = clocks.InstantiateMonotonic(ctx, rt, clocks.NewMonotonicClockHost(w.Resources()))
//	_ = cli.Instantiate(ctx, rt, cli.NewHost(w))
//
// Guests then block in wasi:io/poll.poll, which runs the reactor until at
// least one pollable is ready.
//
// # Error Handling
//
// Recoverable failures are returned as *errors.Error values matched with
// errors.Is against the sentinels in package errors. Misuse that leaves the
// host in an undefined state, such as polling a resolved wait, panics with
// *errors.Trap; host functions let the trap unwind the guest call.
package pluginreactor
