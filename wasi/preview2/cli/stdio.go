package cli

import (
	"context"

	"github.com/wippyai/plugin-reactor/errors"
	"github.com/wippyai/plugin-reactor/wasi/preview2"
)

// StdinHost implements wasi:cli/stdin.
type StdinHost struct {
	wasi *preview2.WASI
}

func NewStdinHost(w *preview2.WASI) *StdinHost {
	return &StdinHost{wasi: w}
}

func (h *StdinHost) Namespace() string {
	return "wasi:cli/stdin@0.2.8"
}

// GetStdin returns the stdin stream handle.
func (h *StdinHost) GetStdin(_ context.Context) uint32 {
	handle, err := h.wasi.StdinHandle()
	errors.Fail(errors.PhaseHost, err, "get-stdin")
	return handle
}

// StdoutHost implements wasi:cli/stdout.
type StdoutHost struct {
	wasi *preview2.WASI
}

func NewStdoutHost(w *preview2.WASI) *StdoutHost {
	return &StdoutHost{wasi: w}
}

func (h *StdoutHost) Namespace() string {
	return "wasi:cli/stdout@0.2.8"
}

// GetStdout returns the stdout stream handle.
func (h *StdoutHost) GetStdout(_ context.Context) uint32 {
	handle, err := h.wasi.StdoutHandle()
	errors.Fail(errors.PhaseHost, err, "get-stdout")
	return handle
}

// StderrHost implements wasi:cli/stderr.
type StderrHost struct {
	wasi *preview2.WASI
}

func NewStderrHost(w *preview2.WASI) *StderrHost {
	return &StderrHost{wasi: w}
}

func (h *StderrHost) Namespace() string {
	return "wasi:cli/stderr@0.2.8"
}

// GetStderr returns the stderr stream handle.
func (h *StderrHost) GetStderr(_ context.Context) uint32 {
	handle, err := h.wasi.StderrHandle()
	errors.Fail(errors.PhaseHost, err, "get-stderr")
	return handle
}

// Host groups the three stream getters of one instance.
type Host struct {
	Stdin  *StdinHost
	Stdout *StdoutHost
	Stderr *StderrHost
}

func NewHost(w *preview2.WASI) *Host {
	return &Host{
		Stdin:  NewStdinHost(w),
		Stdout: NewStdoutHost(w),
		Stderr: NewStderrHost(w),
	}
}
