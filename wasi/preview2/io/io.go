package io

import (
	"github.com/wippyai/plugin-reactor/reactor"
	"github.com/wippyai/plugin-reactor/wasi/preview2"
)

// Host aggregates all IO hosts for convenience.
type Host struct {
	Error   *ErrorHost
	Poll    *PollHost
	Streams *StreamsHost
}

// NewHost creates all IO hosts sharing one resource table and reactor.
func NewHost(resources *preview2.ResourceTable, r *reactor.Reactor) *Host {
	return &Host{
		Error:   NewErrorHost(resources),
		Poll:    NewPollHost(resources, r),
		Streams: NewStreamsHost(resources),
	}
}
