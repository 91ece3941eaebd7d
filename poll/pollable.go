package poll

import (
	"context"

	"github.com/wippyai/plugin-reactor/errors"
	"github.com/wippyai/plugin-reactor/resource"
)

// Subscriber is the readiness capability of a resource. Ready must not
// block and must not fail; errors of the underlying operation surface
// through the resource's own accessors.
type Subscriber interface {
	Ready() bool
}

// Notifier is an optional extension of Subscriber. The returned channel is
// closed (or receives) once the source may have become ready, letting the
// multiplex check sleep instead of spinning.
type Notifier interface {
	Subscriber
	Notify() <-chan struct{}
}

// ReadyFunc adapts a function to Subscriber.
type ReadyFunc func() bool

func (f ReadyFunc) Ready() bool { return f() }

// Pollable is a readiness source bound to a resource handle.
type Pollable struct {
	table  *resource.Table
	source resource.Handle
}

// New binds a pollable to the Subscriber stored under source.
func New(table *resource.Table, source resource.Handle) *Pollable {
	return &Pollable{table: table, source: source}
}

// Source returns the handle of the capability this pollable checks.
func (p *Pollable) Source() resource.Handle {
	return p.source
}

// Ready reports whether the bound source is ready. A source that has left
// the table counts as ready: it can no longer change state.
func (p *Pollable) Ready() bool {
	s, err := resource.Get[Subscriber](p.table, p.source)
	if err != nil {
		return true
	}
	return s.Ready()
}

// notify returns the source's notification channel, or nil when the source
// offers none.
func (p *Pollable) notify() <-chan struct{} {
	n, err := resource.Get[Notifier](p.table, p.source)
	if err != nil {
		return nil
	}
	return n.Notify()
}

// Block waits until the pollable is ready or ctx ends.
func (p *Pollable) Block(ctx context.Context) error {
	_, err := Poll(ctx, []*Pollable{p})
	return err
}

// Subscribe creates a pollable for the Subscriber stored under source and
// stores it as a child of source.
func Subscribe(table *resource.Table, source resource.Handle) (resource.Handle, error) {
	if _, err := resource.Get[Subscriber](table, source); err != nil {
		return 0, err
	}
	h, err := table.InsertChild(New(table, source), source)
	if err != nil {
		return 0, errors.Wrap(errors.PhasePoll, kindOf(err), err, "subscribe")
	}
	return h, nil
}

// Lookup returns the pollable stored under h.
func Lookup(table *resource.Table, h resource.Handle) (*Pollable, error) {
	return resource.Get[*Pollable](table, h)
}

func kindOf(err error) errors.Kind {
	var e *errors.Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return errors.KindInternal
}
