package clocks

import (
	"context"
	"time"
)

// WallClockHost implements wasi:clocks/wall-clock. It reads the host clock
// directly and holds no resources.
type WallClockHost struct{}

func NewWallClockHost() *WallClockHost {
	return &WallClockHost{}
}

func (h *WallClockHost) Namespace() string {
	return "wasi:clocks/wall-clock@0.2.8"
}

// Datetime is a wall-clock instant: whole seconds since the Unix epoch plus
// a nanosecond remainder below one second.
type Datetime struct {
	Seconds     uint64
	Nanoseconds uint32
}

// Now returns the current time. It is not monotonic.
func (h *WallClockHost) Now(_ context.Context) Datetime {
	now := time.Now()
	return Datetime{
		Seconds:     uint64(now.Unix()),
		Nanoseconds: uint32(now.Nanosecond()),
	}
}

// Resolution reports a one nanosecond tick.
func (h *WallClockHost) Resolution(_ context.Context) Datetime {
	return Datetime{Nanoseconds: 1}
}

// Register maps the interface's function names to their handlers.
func (h *WallClockHost) Register() map[string]any {
	return map[string]any{
		"now":        h.Now,
		"resolution": h.Resolution,
	}
}
