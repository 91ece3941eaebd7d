package reactor

import (
	"context"
	"testing"

	"github.com/wippyai/plugin-reactor/errors"
	"github.com/wippyai/plugin-reactor/poll"
	"github.com/wippyai/plugin-reactor/resource"
)

// flaky reports ready after a fixed number of not-ready checks.
type flaky struct {
	notReady int
	calls    int
}

func (f *flaky) Ready() bool {
	f.calls++
	return f.calls > f.notReady
}

func newPollable(t *testing.T, table *resource.Table, s poll.Subscriber) *poll.Pollable {
	t.Helper()
	h, err := table.Insert(s)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	return poll.New(table, h)
}

type countingWaker struct {
	wakes int
}

func (w *countingWaker) Wake() { w.wakes++ }

func expectTrap(t *testing.T, kind errors.Kind, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		trap := errors.Recover(recover())
		if trap == nil {
			t.Fatal("expected trap")
		}
		if trap.Err.Kind != kind {
			t.Fatalf("trap kind = %v, want %v", trap.Err.Kind, kind)
		}
	}()
	fn()
}

func TestWaitFor_SuspendsTwiceThenResolvesOnce(t *testing.T) {
	table := resource.NewTable()
	r := New()
	src := &flaky{notReady: 2}
	w := r.WaitFor(newPollable(t, table, src))
	cx := NewContext(&countingWaker{})

	suspensions := 0
	for {
		if _, ok := w.Poll(cx); ok {
			break
		}
		suspensions++
		if suspensions > 2 {
			t.Fatal("wait suspended more than twice")
		}
	}
	if suspensions != 2 {
		t.Fatalf("suspensions = %d, want 2", suspensions)
	}
	if r.Pending() != 0 || r.poller.Len() != 0 {
		t.Fatalf("resolved wait left state: pending=%d poller=%d", r.Pending(), r.poller.Len())
	}

	expectTrap(t, errors.KindProtocolViolation, func() { w.Poll(cx) })
}

func TestWaitFor_RegistersOnFirstPoll(t *testing.T) {
	table := resource.NewTable()
	r := New()
	w := r.WaitFor(newPollable(t, table, &poll.Signal{}))

	if r.Pending() != 0 {
		t.Fatal("WaitFor registered before being polled")
	}
	if _, ok := w.Key(); ok {
		t.Fatal("unpolled wait reports a key")
	}

	w.Poll(NewContext(&countingWaker{}))
	key, ok := w.Key()
	if !ok {
		t.Fatal("polled wait has no key")
	}
	if _, tracked := r.poller.Get(key); !tracked || r.Pending() != 1 {
		t.Fatal("wait not tracked after first poll")
	}

	w.Poll(NewContext(&countingWaker{}))
	if r.poller.Len() != 1 {
		t.Fatalf("second poll inserted again, poller len = %d", r.poller.Len())
	}
}

func TestWaitFor_ReRegistersCurrentWaker(t *testing.T) {
	table := resource.NewTable()
	sig := &poll.Signal{}
	r := New()
	w := r.WaitFor(newPollable(t, table, sig))

	first, second := &countingWaker{}, &countingWaker{}
	w.Poll(NewContext(first))
	w.Poll(NewContext(second))

	sig.Set()
	if err := r.blockUntil(context.Background()); err != nil {
		t.Fatalf("blockUntil failed: %v", err)
	}
	if first.wakes != 0 || second.wakes != 1 {
		t.Fatalf("wakes first=%d second=%d, want 0 and 1", first.wakes, second.wakes)
	}
}

func TestWaitFor_ImmediatelyReady(t *testing.T) {
	table := resource.NewTable()
	sig := &poll.Signal{}
	sig.Set()
	r := New()

	if _, ok := r.WaitFor(newPollable(t, table, sig)).Poll(NewContext(&countingWaker{})); !ok {
		t.Fatal("ready pollable did not resolve on first poll")
	}
	if r.Pending() != 0 || r.poller.Len() != 0 {
		t.Fatal("immediately ready wait left state behind")
	}
}

func TestWaitFuture_Close(t *testing.T) {
	table := resource.NewTable()
	r := New()
	w := r.WaitFor(newPollable(t, table, &poll.Signal{}))

	w.Poll(NewContext(&countingWaker{}))
	if r.Pending() != 1 {
		t.Fatal("wait not registered")
	}

	w.Close()
	if r.Pending() != 0 || r.poller.Len() != 0 {
		t.Fatalf("Close leaked: pending=%d poller=%d", r.Pending(), r.poller.Len())
	}
	w.Close()

	expectTrap(t, errors.KindProtocolViolation, func() { w.Poll(NewContext(&countingWaker{})) })
}

func TestWaitFuture_CloseAfterResolveIsNoop(t *testing.T) {
	table := resource.NewTable()
	sig := &poll.Signal{}
	sig.Set()
	var events []Event
	r := New(WithObserver(func(e Event) { events = append(events, e) }))

	w := r.WaitFor(newPollable(t, table, sig))
	w.Poll(NewContext(&countingWaker{}))
	w.Close()

	for _, e := range events {
		if e.Type == EventCancelled {
			t.Fatal("Close after resolve reported a cancellation")
		}
	}
}

func TestWaitFor_ReadyIdempotent(t *testing.T) {
	table := resource.NewTable()
	sig := &poll.Signal{}
	p := newPollable(t, table, sig)
	r := New()
	w := r.WaitFor(p)
	w.Poll(NewContext(&countingWaker{}))
	sig.Set()

	tableLen, pending, tracked := table.Len(), r.Pending(), r.poller.Len()
	for i := 0; i < 3; i++ {
		if !p.Ready() {
			t.Fatal("ready pollable reported not ready")
		}
	}
	if table.Len() != tableLen || r.Pending() != pending || r.poller.Len() != tracked {
		t.Fatal("Ready changed table or reactor state")
	}
}

func TestBlockUntil_MissingWakerTraps(t *testing.T) {
	table := resource.NewTable()
	sig := &poll.Signal{}
	sig.Set()
	r := New()
	r.poller.Insert(newPollable(t, table, sig))

	expectTrap(t, errors.KindInternal, func() { r.blockUntil(context.Background()) })
}

func TestBlockUntil_ReentrantTraps(t *testing.T) {
	table := resource.NewTable()
	var r *Reactor
	r = New(WithMultiplexer(poll.MultiplexFunc(func(ctx context.Context, _ []*poll.Pollable) ([]uint32, error) {
		r.blockUntil(ctx)
		return nil, nil
	})))
	w := r.WaitFor(newPollable(t, table, &poll.Signal{}))
	w.Poll(NewContext(&countingWaker{}))

	expectTrap(t, errors.KindInternal, func() { r.blockUntil(context.Background()) })
}

func TestReactor_Observer(t *testing.T) {
	table := resource.NewTable()
	sig := &poll.Signal{}
	var types []EventType
	r := New(WithObserver(func(e Event) { types = append(types, e.Type) }))

	w := r.WaitFor(newPollable(t, table, sig))
	w.Poll(NewContext(&countingWaker{}))
	sig.Set()
	r.blockUntil(context.Background())
	w.Poll(NewContext(&countingWaker{}))

	want := []EventType{EventRegistered, EventBlock, EventWoken, EventResolved}
	if len(types) != len(want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("events = %v, want %v", types, want)
		}
	}
	if EventResolved.String() != "resolved" {
		t.Fatalf("String = %q", EventResolved.String())
	}
}
