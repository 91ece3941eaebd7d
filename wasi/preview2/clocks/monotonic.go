package clocks

import (
	"context"
	"time"

	"github.com/wippyai/plugin-reactor/errors"
	"github.com/wippyai/plugin-reactor/wasi/preview2"
)

// MonotonicClockHost implements wasi:clocks/monotonic-clock. Instants are
// nanoseconds since the host was created.
type MonotonicClockHost struct {
	resources *preview2.ResourceTable
	startTime time.Time
}

func NewMonotonicClockHost(resources *preview2.ResourceTable) *MonotonicClockHost {
	return &MonotonicClockHost{
		resources: resources,
		startTime: time.Now(),
	}
}

func (h *MonotonicClockHost) Namespace() string {
	return "wasi:clocks/monotonic-clock@0.2.8"
}

func (h *MonotonicClockHost) Now(_ context.Context) uint64 {
	return uint64(time.Since(h.startTime).Nanoseconds())
}

func (h *MonotonicClockHost) Resolution(_ context.Context) uint64 {
	return 1
}

// SubscribeInstant returns a pollable that is ready once the clock reaches
// when. Instants in the past are ready immediately.
func (h *MonotonicClockHost) SubscribeInstant(_ context.Context, when uint64) uint32 {
	return h.subscribe(h.startTime.Add(time.Duration(min(when, maxDuration))))
}

// SubscribeDuration returns a pollable that is ready after duration
// nanoseconds.
func (h *MonotonicClockHost) SubscribeDuration(_ context.Context, duration uint64) uint32 {
	return h.subscribe(time.Now().Add(time.Duration(min(duration, maxDuration))))
}

const maxDuration = uint64(1<<63 - 1)

func (h *MonotonicClockHost) subscribe(deadline time.Time) uint32 {
	p, err := h.resources.SubscribeOwned(preview2.NewTimerResource(deadline))
	errors.Fail(errors.PhaseHost, err, "clock subscription")
	return p
}

func (h *MonotonicClockHost) Register() map[string]any {
	return map[string]any{
		"now":                h.Now,
		"resolution":         h.Resolution,
		"subscribe-instant":  h.SubscribeInstant,
		"subscribe-duration": h.SubscribeDuration,
	}
}
