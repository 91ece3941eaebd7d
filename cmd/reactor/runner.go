package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/plugin-reactor/reactor"
	"github.com/wippyai/plugin-reactor/wasi/preview2"
)

// Outcome summarizes one scenario run.
type Outcome struct {
	RunID    uuid.UUID
	Scenario string
	Mode     string
	// Ready lists the waits that resolved, in resolution order.
	Ready    []string
	TimedOut bool
	Elapsed  time.Duration
}

// Runner executes scenarios, each on a fresh resource table and reactor.
type Runner struct {
	log      *zap.Logger
	metrics  *reactor.Metrics
	observer func(reactor.Event)
	onReady  func(name string)
}

// NewRunner creates a runner. metrics and observer may be nil.
func NewRunner(log *zap.Logger, metrics *reactor.Metrics, observer func(reactor.Event)) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{log: log, metrics: metrics, observer: observer}
}

func newSource(w Wait) preview2.Resource {
	switch w.Type {
	case WaitTimer:
		return preview2.NewTimerAfter(w.Duration)
	case WaitManual:
		return preview2.NewCountdownResource(w.After)
	default:
		return preview2.NewManualResource(false)
	}
}

// OnReady sets a callback invoked on the run goroutine each time a wait
// resolves.
func (rn *Runner) OnReady(fn func(name string)) *Runner {
	rn.onReady = fn
	return rn
}

// Run drives sc to completion. Mode all waits for every wait, mode race for
// the first one. A positive Timeout races the whole scenario against a timer.
func (rn *Runner) Run(ctx context.Context, sc *Scenario) (*Outcome, error) {
	out := &Outcome{RunID: uuid.New(), Scenario: sc.Name, Mode: sc.Mode}
	log := rn.log.With(zap.String("run", out.RunID.String()), zap.String("scenario", sc.Name))

	opts := []reactor.Option{reactor.WithLogger(log)}
	if rn.metrics != nil {
		opts = append(opts, reactor.WithMetrics(rn.metrics))
	}
	if rn.observer != nil {
		opts = append(opts, reactor.WithObserver(rn.observer))
	}
	r := reactor.New(opts...)

	table := preview2.NewResourceTable()
	defer table.Close()

	var waits []*reactor.WaitFuture
	defer func() {
		for _, w := range waits {
			w.Close()
		}
	}()

	subscribe := func(name string, src preview2.Resource) (*reactor.WaitFuture, error) {
		h, err := table.SubscribeOwned(src)
		if err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", name, err)
		}
		p, err := table.Pollable(h)
		if err != nil {
			return nil, fmt.Errorf("pollable %s: %w", name, err)
		}
		w := r.WaitFor(p)
		waits = append(waits, w)
		return w, nil
	}

	futs := make([]reactor.Future[string], len(sc.Waits))
	for i, wait := range sc.Waits {
		w, err := subscribe(wait.Name, newSource(wait))
		if err != nil {
			return nil, err
		}
		name := wait.Name
		futs[i] = reactor.Map[struct{}, string](w, func(struct{}) string {
			out.Ready = append(out.Ready, name)
			if rn.onReady != nil {
				rn.onReady(name)
			}
			return name
		})
	}

	var body reactor.Future[bool]
	if sc.Mode == ModeRace {
		body = reactor.Map(reactor.Race(futs...), func(reactor.Raced[string]) bool { return false })
	} else {
		body = reactor.Map(reactor.Join(futs...), func([]string) bool { return false })
	}

	if sc.Timeout > 0 {
		tw, err := subscribe("timeout", preview2.NewTimerAfter(sc.Timeout))
		if err != nil {
			return nil, err
		}
		timeout := reactor.Map[struct{}, bool](tw, func(struct{}) bool { return true })
		body = reactor.Map(reactor.Race(body, timeout), func(v reactor.Raced[bool]) bool { return v.Value })
	}

	log.Info("run started", zap.String("mode", sc.Mode), zap.Int("waits", len(sc.Waits)))
	start := time.Now()
	timedOut, err := reactor.Run(ctx, r, body)
	out.Elapsed = time.Since(start)
	if err != nil {
		log.Warn("run failed", zap.Error(err), zap.Duration("elapsed", out.Elapsed))
		return out, err
	}
	out.TimedOut = timedOut

	log.Info("run finished",
		zap.Strings("ready", out.Ready),
		zap.Bool("timed_out", out.TimedOut),
		zap.Duration("elapsed", out.Elapsed))
	return out, nil
}
