// Package cli implements the WASI CLI standard stream getters.
//
// Implements:
//   - wasi:cli/stdin@0.2.8 - Standard input
//   - wasi:cli/stdout@0.2.8 - Standard output
//   - wasi:cli/stderr@0.2.8 - Standard error
//
// Each getter returns an owned stream handle from the instance's resource
// table. Guests wait on the streams with subscribe and wasi:io/poll.
package cli
