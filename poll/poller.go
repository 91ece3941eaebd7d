package poll

import (
	"context"
	"strconv"

	"github.com/wippyai/plugin-reactor/errors"
)

// EventKey identifies a pollable tracked by a Poller.
type EventKey uint32

func (k EventKey) String() string {
	return "event#" + strconv.FormatUint(uint64(k), 10)
}

// Poller is a dense arena of outstanding pollables.
// Not safe for concurrent use; it belongs to one reactor.
type Poller struct {
	mux   Multiplexer
	slots []*Pollable
	free  []EventKey
	len   int
}

// NewPoller creates an empty poller. A nil mux selects Default.
func NewPoller(mux Multiplexer) *Poller {
	if mux == nil {
		mux = Default
	}
	return &Poller{mux: mux}
}

// Insert tracks p and returns its key. Keys of removed entries are
// recycled; a key is never handed out while it is still tracked.
func (p *Poller) Insert(pollable *Pollable) EventKey {
	if pollable == nil {
		errors.ProtocolViolation(errors.PhasePoll, "insert of nil pollable")
	}
	p.len++
	if n := len(p.free); n > 0 {
		key := p.free[n-1]
		p.free = p.free[:n-1]
		p.slots[key] = pollable
		return key
	}
	p.slots = append(p.slots, pollable)
	return EventKey(len(p.slots) - 1)
}

// Get returns the pollable tracked under key.
func (p *Poller) Get(key EventKey) (*Pollable, bool) {
	if int(key) >= len(p.slots) {
		return nil, false
	}
	pollable := p.slots[key]
	return pollable, pollable != nil
}

// Remove stops tracking key and returns its pollable.
func (p *Poller) Remove(key EventKey) (*Pollable, bool) {
	pollable, ok := p.Get(key)
	if !ok {
		return nil, false
	}
	p.slots[key] = nil
	p.free = append(p.free, key)
	p.len--
	return pollable, true
}

// Len returns the number of tracked pollables.
func (p *Poller) Len() int {
	return p.len
}

// Keys returns the tracked keys in ascending order.
func (p *Poller) Keys() []EventKey {
	keys := make([]EventKey, 0, p.len)
	for i, pollable := range p.slots {
		if pollable != nil {
			keys = append(keys, EventKey(i))
		}
	}
	return keys
}

// BlockUntil snapshots the tracked pollables, runs the multiplex check on
// them and returns the keys reported ready. It blocks the caller.
func (p *Poller) BlockUntil(ctx context.Context) ([]EventKey, error) {
	if p.len == 0 {
		return nil, errors.New(errors.PhasePoll, errors.KindDeadlock).
			Detail("block requested with no tracked pollables").
			Build()
	}

	keys := make([]EventKey, 0, p.len)
	targets := make([]*Pollable, 0, p.len)
	for i, pollable := range p.slots {
		if pollable != nil {
			keys = append(keys, EventKey(i))
			targets = append(targets, pollable)
		}
	}

	positions, err := p.mux.Poll(ctx, targets)
	if err != nil {
		return nil, err
	}

	ready := make([]EventKey, 0, len(positions))
	for _, pos := range positions {
		if int(pos) >= len(keys) {
			errors.ProtocolViolation(errors.PhasePoll, "multiplexer reported position %d of %d", pos, len(keys))
		}
		ready = append(ready, keys[pos])
	}
	return ready, nil
}
