// Package clocks implements WASI clock interfaces for time operations.
//
// Implements:
//   - wasi:clocks/monotonic-clock@0.2.8 - Monotonic time and timer pollables
//   - wasi:clocks/wall-clock@0.2.8 - Wall clock time
//
// Monotonic instants are nanoseconds relative to host creation.
// subscribe-instant and subscribe-duration return pollables backed by
// preview2.TimerResource; dropping the pollable stops its timer.
package clocks
