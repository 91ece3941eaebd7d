package reactor

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/plugin-reactor/errors"
	"github.com/wippyai/plugin-reactor/poll"
)

// EventType identifies a reactor state change reported to observers.
type EventType uint8

const (
	EventRegistered EventType = iota
	EventResolved
	EventCancelled
	EventBlock
	EventWoken
)

func (t EventType) String() string {
	switch t {
	case EventRegistered:
		return "registered"
	case EventResolved:
		return "resolved"
	case EventCancelled:
		return "cancelled"
	case EventBlock:
		return "block"
	case EventWoken:
		return "woken"
	default:
		return "unknown"
	}
}

// Event describes one reactor state change.
type Event struct {
	Type    EventType
	Key     poll.EventKey
	Pending int
}

// Reactor associates outstanding pollables with the wakers of the tasks
// waiting on them.
type Reactor struct {
	poller   *poll.Poller
	wakers   map[poll.EventKey]Waker
	log      *zap.Logger
	metrics  *Metrics
	observer func(Event)
	mux      poll.Multiplexer
	draining bool
}

// Option configures a Reactor.
type Option func(*Reactor)

// WithMultiplexer sets the batch readiness check used when blocking.
func WithMultiplexer(m poll.Multiplexer) Option {
	return func(r *Reactor) { r.mux = m }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reactor) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMetrics records reactor activity into m.
func WithMetrics(m *Metrics) Option {
	return func(r *Reactor) { r.metrics = m }
}

// WithObserver calls fn synchronously on every reactor state change.
func WithObserver(fn func(Event)) Option {
	return func(r *Reactor) { r.observer = fn }
}

// New creates a reactor with an empty poller.
func New(opts ...Option) *Reactor {
	r := &Reactor{
		wakers: make(map[poll.EventKey]Waker),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.poller = poll.NewPoller(r.mux)
	return r
}

// Logger returns the reactor's logger.
func (r *Reactor) Logger() *zap.Logger {
	return r.log
}

// Pending returns the number of in-flight waits.
func (r *Reactor) Pending() int {
	return len(r.wakers)
}

// WaitFor returns a future that resolves once p is ready. The future must
// be dropped after it resolves; Close it to abandon a pending wait.
func (r *Reactor) WaitFor(p *poll.Pollable) *WaitFuture {
	return &WaitFuture{reactor: r, pollable: p}
}

func (r *Reactor) register(p *poll.Pollable) poll.EventKey {
	key := r.poller.Insert(p)
	r.log.Debug("reactor: registered", zap.Stringer("key", key), zap.Uint32("source", uint32(p.Source())))
	return key
}

// release forgets key in both the poller and the waker map.
func (r *Reactor) release(key poll.EventKey) {
	r.poller.Remove(key)
	delete(r.wakers, key)
	if r.metrics != nil {
		r.metrics.Pending.Set(float64(len(r.wakers)))
	}
}

func (r *Reactor) emit(t EventType, key poll.EventKey) {
	if r.observer != nil {
		r.observer(Event{Type: t, Key: key, Pending: len(r.wakers)})
	}
}

// blockUntil runs the poller's multiplex check and wakes the waker of every
// key reported ready. A ready key without a waker is a reactor bug.
func (r *Reactor) blockUntil(ctx context.Context) error {
	if r.draining {
		errors.Raise(errors.PhaseReactor, errors.KindInternal, "reentrant block")
	}
	r.draining = true
	defer func() { r.draining = false }()

	r.log.Debug("reactor: blocking", zap.Int("pending", len(r.wakers)))
	r.emit(EventBlock, 0)
	if r.metrics != nil {
		r.metrics.Blocks.Inc()
	}

	keys, err := r.poller.BlockUntil(ctx)
	if err != nil {
		return err
	}

	for _, key := range keys {
		w, ok := r.wakers[key]
		if !ok {
			errors.Raise(errors.PhaseReactor, errors.KindInternal, "ready %v has no registered waker", key)
		}
		r.log.Debug("reactor: waking", zap.Stringer("key", key))
		r.emit(EventWoken, key)
		if r.metrics != nil {
			r.metrics.Wakes.Inc()
		}
		w.Wake()
	}
	return nil
}

type waitState uint8

const (
	waitIdle waitState = iota
	waitRegistered
	waitDone
	waitClosed
)

// WaitFuture suspends until its pollable is ready.
type WaitFuture struct {
	reactor  *Reactor
	pollable *poll.Pollable
	key      poll.EventKey
	state    waitState
}

// Poll registers the pollable on the first call, records the current
// waker on every call, and resolves once the pollable is ready.
func (w *WaitFuture) Poll(cx *Context) (struct{}, bool) {
	r := w.reactor

	switch w.state {
	case waitDone:
		errors.ProtocolViolation(errors.PhaseReactor, "wait on %v polled after it resolved", w.key)
	case waitClosed:
		errors.ProtocolViolation(errors.PhaseReactor, "wait polled after Close")
	}

	// The waker may differ between polls; always keep the latest.
	waker := cx.Waker()
	if w.state == waitIdle {
		w.key = r.register(w.pollable)
		w.state = waitRegistered
		r.wakers[w.key] = waker
		r.emit(EventRegistered, w.key)
		if r.metrics != nil {
			r.metrics.Pending.Set(float64(len(r.wakers)))
		}
	} else {
		r.wakers[w.key] = waker
	}

	if !w.pollable.Ready() {
		return struct{}{}, false
	}

	r.release(w.key)
	w.state = waitDone
	r.log.Debug("reactor: resolved", zap.Stringer("key", w.key))
	r.emit(EventResolved, w.key)
	if r.metrics != nil {
		r.metrics.Resolved.Inc()
	}
	return struct{}{}, true
}

// Key returns the poller key of a registered wait.
func (w *WaitFuture) Key() (poll.EventKey, bool) {
	return w.key, w.state == waitRegistered
}

// Close abandons a pending wait, removing its key and waker from the
// reactor. Idempotent; a no-op once the wait resolved.
func (w *WaitFuture) Close() {
	switch w.state {
	case waitRegistered:
		r := w.reactor
		r.release(w.key)
		r.log.Debug("reactor: cancelled", zap.Stringer("key", w.key))
		r.emit(EventCancelled, w.key)
		if r.metrics != nil {
			r.metrics.Cancelled.Inc()
		}
		w.state = waitClosed
	case waitIdle:
		w.state = waitClosed
	}
}
