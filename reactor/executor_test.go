package reactor

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/plugin-reactor/errors"
	"github.com/wippyai/plugin-reactor/poll"
	"github.com/wippyai/plugin-reactor/resource"
)

// never is pending forever and registers nothing.
type never struct{}

func (never) Poll(*Context) (struct{}, bool) { return struct{}{}, false }

func TestRun_Ready(t *testing.T) {
	v, err := BlockOn(New(), Ready(42))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if v != 42 {
		t.Fatalf("v = %d", v)
	}
}

func TestRun_WaitsOnSignal(t *testing.T) {
	table := resource.NewTable()
	sig := &poll.Signal{}
	r := New()

	time.AfterFunc(10*time.Millisecond, sig.Set)

	if _, err := BlockOn[struct{}](r, r.WaitFor(newPollable(t, table, sig))); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if r.Pending() != 0 {
		t.Fatalf("Pending = %d after run", r.Pending())
	}
}

func TestRun_Deadlock(t *testing.T) {
	_, err := BlockOn[struct{}](New(), never{})
	if !errors.Is(err, errors.ErrDeadlock) {
		t.Fatalf("err = %v, want deadlock", err)
	}
}

func TestRun_SelfWakeDoesNotDeadlock(t *testing.T) {
	polls := 0
	f := FutureFunc[int](func(cx *Context) (int, bool) {
		polls++
		if polls < 3 {
			cx.Waker().Wake()
			return 0, false
		}
		return polls, true
	})

	v, err := BlockOn(New(), f)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if v != 3 {
		t.Fatalf("polls = %d, want 3", v)
	}
}

func TestRun_ContextCanceled(t *testing.T) {
	table := resource.NewTable()
	r := New()
	w := r.WaitFor(newPollable(t, table, &poll.Signal{}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Run[struct{}](ctx, r, w)
	if err != context.DeadlineExceeded {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if r.Pending() != 1 {
		t.Fatal("cancelled run should leave the wait for its owner to close")
	}
	w.Close()
	if r.Pending() != 0 {
		t.Fatal("Close did not release the wait")
	}
}

// Scenario: P0 ready at once, P1 ready after one multiplex check, P2 never.
func TestRun_ThreePollableScenario(t *testing.T) {
	table := resource.NewTable()
	s0, s1, s2 := &poll.Signal{}, &poll.Signal{}, &poll.Signal{}

	var reported [][]uint32
	mux := poll.MultiplexFunc(func(ctx context.Context, ps []*poll.Pollable) ([]uint32, error) {
		got, err := poll.Poll(ctx, ps)
		reported = append(reported, got)
		if len(reported) == 1 {
			s1.Set()
		}
		return got, err
	})
	r := New(WithMultiplexer(mux))

	p0, p1, p2 := newPollable(t, table, s0), newPollable(t, table, s1), newPollable(t, table, s2)
	w0, w1, w2 := r.WaitFor(p0), r.WaitFor(p1), r.WaitFor(p2)

	cx := NewContext(&countingWaker{})
	for _, w := range []*WaitFuture{w0, w1, w2} {
		if _, ok := w.Poll(cx); ok {
			t.Fatal("nothing should be ready yet")
		}
	}
	s0.Set()
	k0, _ := w0.Key()
	k1, _ := w1.Key()
	k2, _ := w2.Key()

	keys, err := r.poller.BlockUntil(context.Background())
	if err != nil {
		t.Fatalf("BlockUntil failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != k0 {
		t.Fatalf("first BlockUntil = %v, want [%v]", keys, k0)
	}
	if _, ok := w0.Poll(cx); !ok {
		t.Fatal("P0 did not resolve")
	}

	keys, err = r.poller.BlockUntil(context.Background())
	if err != nil {
		t.Fatalf("BlockUntil failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != k1 {
		t.Fatalf("second BlockUntil = %v, want [%v]", keys, k1)
	}
	if _, ok := w1.Poll(cx); !ok {
		t.Fatal("P1 did not resolve")
	}

	if _, tracked := r.poller.Get(k2); !tracked || r.Pending() != 1 {
		t.Fatal("P2 should remain tracked")
	}

	// P2 alone never progresses; once its wait is dropped nothing is left.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := Run[struct{}](ctx, r, w2); err != context.DeadlineExceeded {
		t.Fatalf("run on P2 err = %v, want deadline exceeded", err)
	}
	w2.Close()
	if _, err := BlockOn[struct{}](r, never{}); !errors.Is(err, errors.ErrDeadlock) {
		t.Fatalf("err = %v, want deadlock", err)
	}
}

func TestRun_JoinWaits(t *testing.T) {
	table := resource.NewTable()
	a, b := &poll.Signal{}, &poll.Signal{}
	r := New()

	time.AfterFunc(5*time.Millisecond, a.Set)
	time.AfterFunc(15*time.Millisecond, b.Set)

	res, err := BlockOn(r, Join[struct{}](
		r.WaitFor(newPollable(t, table, a)),
		r.WaitFor(newPollable(t, table, b)),
	))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("results = %v", res)
	}
	if r.Pending() != 0 {
		t.Fatalf("Pending = %d", r.Pending())
	}
}

func TestRun_RaceClosesLoser(t *testing.T) {
	table := resource.NewTable()
	fast := &poll.Signal{}
	r := New()

	time.AfterFunc(5*time.Millisecond, fast.Set)

	res, err := BlockOn(r, Race[struct{}](
		r.WaitFor(newPollable(t, table, &poll.Signal{})),
		r.WaitFor(newPollable(t, table, fast)),
	))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Index != 1 {
		t.Fatalf("winner = %d, want 1", res.Index)
	}
	if r.Pending() != 0 || r.poller.Len() != 0 {
		t.Fatalf("loser leaked: pending=%d poller=%d", r.Pending(), r.poller.Len())
	}
}

func TestRun_MetricsAndLogs(t *testing.T) {
	table := resource.NewTable()
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	core, logs := observer.New(zap.DebugLevel)

	sig := &poll.Signal{}
	r := New(WithMetrics(m), WithLogger(zap.New(core)))
	time.AfterFunc(20*time.Millisecond, sig.Set)

	if _, err := BlockOn[struct{}](r, r.WaitFor(newPollable(t, table, sig))); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := testutil.ToFloat64(m.Resolved); got != 1 {
		t.Fatalf("resolved = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Pending); got != 0 {
		t.Fatalf("pending = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.Blocks); got < 1 {
		t.Fatalf("blocks = %v, want >= 1", got)
	}
	if got := testutil.ToFloat64(m.Wakes); got != testutil.ToFloat64(m.Blocks) {
		t.Fatalf("wakes = %v, blocks = %v", got, testutil.ToFloat64(m.Blocks))
	}
	if logs.FilterMessage("reactor: registered").Len() != 1 {
		t.Fatal("missing registration log")
	}
	if logs.FilterMessage("executor: root future resolved").Len() != 1 {
		t.Fatal("missing resolution log")
	}
}
