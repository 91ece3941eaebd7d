// Package io implements WASI I/O interfaces over the reactor.
//
// Implements:
//   - wasi:io/poll@0.2.8 - poll, pollable.ready, pollable.block
//   - wasi:io/streams@0.2.8 - non-blocking reads, writes and subscribe
//   - wasi:io/error@0.2.8 - Stream errors
//
// Invalid handles and misuse trap the calling guest: the host function
// panics with an *errors.Trap, which wazero reports as a wasm trap.
// Instantiate registers the hosts as wazero host modules lowered per the
// canonical ABI.
package io
