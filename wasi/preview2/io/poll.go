package io

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/plugin-reactor/errors"
	"github.com/wippyai/plugin-reactor/poll"
	"github.com/wippyai/plugin-reactor/reactor"
	"github.com/wippyai/plugin-reactor/wasi/preview2"
)

// PollHost implements wasi:io/poll on top of a per-instance reactor.
type PollHost struct {
	resources *preview2.ResourceTable
	reactor   *reactor.Reactor
}

// NewPollHost creates a poll host. A nil reactor gets a default one.
func NewPollHost(resources *preview2.ResourceTable, r *reactor.Reactor) *PollHost {
	if r == nil {
		r = reactor.New()
	}
	return &PollHost{resources: resources, reactor: r}
}

func (h *PollHost) Namespace() string {
	return "wasi:io/poll@0.2.8"
}

// Reactor returns the reactor driving blocking calls.
func (h *PollHost) Reactor() *reactor.Reactor {
	return h.reactor
}

func (h *PollHost) pollable(self uint32) *poll.Pollable {
	p, err := h.resources.Pollable(self)
	errors.Fail(errors.PhaseHost, err, "pollable handle %d", self)
	return p
}

// Poll blocks until at least one of the given pollables is ready and
// returns the positions of every ready entry in ascending order.
// An empty or oversized list, or a handle that is not a live pollable,
// traps the call.
func (h *PollHost) Poll(ctx context.Context, handles []uint32) ([]uint32, error) {
	poll.CheckList(len(handles))

	waits := make([]*reactor.WaitFuture, len(handles))
	for i, handle := range handles {
		waits[i] = h.reactor.WaitFor(h.pollable(handle))
	}
	defer func() {
		for _, w := range waits {
			w.Close()
		}
	}()

	done := make([]bool, len(waits))
	ready, err := reactor.Run(ctx, h.reactor, reactor.FutureFunc[[]uint32](func(cx *reactor.Context) ([]uint32, bool) {
		var ready []uint32
		for i, w := range waits {
			if !done[i] {
				_, done[i] = w.Poll(cx)
			}
			if done[i] {
				ready = append(ready, uint32(i))
			}
		}
		return ready, len(ready) > 0
	}))
	if err != nil {
		return nil, err
	}

	h.reactor.Logger().Debug("poll: ready",
		zap.Int("pollables", len(handles)),
		zap.Int("ready", len(ready)))
	return ready, nil
}

// MethodPollableReady reports readiness without blocking.
func (h *PollHost) MethodPollableReady(_ context.Context, self uint32) bool {
	return h.pollable(self).Ready()
}

// MethodPollableBlock blocks until the pollable is ready.
func (h *PollHost) MethodPollableBlock(ctx context.Context, self uint32) error {
	w := h.reactor.WaitFor(h.pollable(self))
	defer w.Close()
	_, err := reactor.Run[struct{}](ctx, h.reactor, w)
	return err
}

// ResourceDropPollable removes the pollable from the table.
func (h *PollHost) ResourceDropPollable(_ context.Context, self uint32) {
	h.pollable(self)
	errors.Fail(errors.PhaseHost, h.resources.Remove(self), "drop pollable %d", self)
}

func (h *PollHost) Register() map[string]any {
	return map[string]any{
		"poll":                    h.Poll,
		"[method]pollable.ready":  h.MethodPollableReady,
		"[method]pollable.block":  h.MethodPollableBlock,
		"[resource-drop]pollable": h.ResourceDropPollable,
	}
}
