package poll

import (
	"context"
	"math"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/plugin-reactor/errors"
)

// Multiplexer is the batch readiness check: given pollables, block until at
// least one is ready and return the ready positions in input order.
type Multiplexer interface {
	Poll(ctx context.Context, pollables []*Pollable) ([]uint32, error)
}

// MultiplexFunc adapts a function to Multiplexer.
type MultiplexFunc func(ctx context.Context, pollables []*Pollable) ([]uint32, error)

func (f MultiplexFunc) Poll(ctx context.Context, pollables []*Pollable) ([]uint32, error) {
	return f(ctx, pollables)
}

const (
	defaultMinBackoff = 100 * time.Microsecond
	defaultMaxBackoff = 10 * time.Millisecond
)

// DefaultMultiplexer scans Ready on every input, then sleeps on the inputs'
// Notify channels. Sources without a channel are re-checked with an
// exponential backoff between MinBackoff and MaxBackoff.
type DefaultMultiplexer struct {
	Logger     *zap.Logger
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// Default is the multiplexer used by Poll and by pollers created without one.
var Default Multiplexer = &DefaultMultiplexer{}

// Poll runs the batch check with the Default multiplexer.
func Poll(ctx context.Context, pollables []*Pollable) ([]uint32, error) {
	return Default.Poll(ctx, pollables)
}

// CheckList traps when n pollables cannot be passed to a multiplex check.
func CheckList(n int) {
	if n == 0 {
		errors.ProtocolViolation(errors.PhasePoll, "poll called with an empty pollable list")
	}
	if uint64(n) > math.MaxUint32 {
		errors.ProtocolViolation(errors.PhasePoll, "poll called with %d pollables, limit %d", n, uint64(math.MaxUint32))
	}
}

func (m *DefaultMultiplexer) Poll(ctx context.Context, pollables []*Pollable) ([]uint32, error) {
	CheckList(len(pollables))

	log := m.Logger
	if log == nil {
		log = zap.NewNop()
	}
	backoff, maxBackoff := m.MinBackoff, m.MaxBackoff
	if backoff <= 0 {
		backoff = defaultMinBackoff
	}
	if maxBackoff < backoff {
		maxBackoff = max(defaultMaxBackoff, backoff)
	}

	for {
		if ready := scan(pollables); len(ready) > 0 {
			return ready, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cases := make([]reflect.SelectCase, 0, len(pollables)+2)
		spinning := false
		for _, p := range pollables {
			ch := p.notify()
			if ch == nil {
				spinning = true
				continue
			}
			cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ch)})
		}
		if done := ctx.Done(); done != nil {
			cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(done)})
		}

		var timer *time.Timer
		if spinning {
			timer = time.NewTimer(backoff)
			cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(timer.C)})
			backoff = min(backoff*2, maxBackoff)
		}

		log.Debug("poll: waiting",
			zap.Int("pollables", len(pollables)),
			zap.Bool("spinning", spinning))

		reflect.Select(cases)
		if timer != nil {
			timer.Stop()
		}
	}
}

func scan(pollables []*Pollable) []uint32 {
	var ready []uint32
	for i, p := range pollables {
		if p.Ready() {
			ready = append(ready, uint32(i))
		}
	}
	return ready
}
