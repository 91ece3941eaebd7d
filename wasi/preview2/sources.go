package preview2

import (
	"sync"
	"time"

	"github.com/wippyai/plugin-reactor/poll"
)

// TimerResource becomes ready once its deadline passes.
type TimerResource struct {
	deadline time.Time
	timer    *time.Timer
	sig      poll.Signal
	mu       sync.Mutex
}

// NewTimerResource creates a timer that fires at deadline. A deadline in the
// past is ready immediately.
func NewTimerResource(deadline time.Time) *TimerResource {
	t := &TimerResource{deadline: deadline}
	remaining := time.Until(deadline)
	if remaining <= 0 {
		t.sig.Set()
		return t
	}
	t.timer = time.AfterFunc(remaining, t.sig.Set)
	return t
}

// NewTimerAfter creates a timer that fires after d.
func NewTimerAfter(d time.Duration) *TimerResource {
	return NewTimerResource(time.Now().Add(d))
}

func (t *TimerResource) Type() ResourceType      { return ResourceTimer }
func (t *TimerResource) Deadline() time.Time     { return t.deadline }
func (t *TimerResource) Ready() bool             { return t.sig.Ready() }
func (t *TimerResource) Notify() <-chan struct{} { return t.sig.Notify() }

// Drop stops the underlying timer.
func (t *TimerResource) Drop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// ManualResource is a readiness source controlled by the host.
type ManualResource struct {
	poll.Signal
}

// NewManualResource creates a manual source in the given state.
func NewManualResource(ready bool) *ManualResource {
	m := &ManualResource{}
	if ready {
		m.Set()
	}
	return m
}

func (m *ManualResource) Type() ResourceType { return ResourceManual }
func (m *ManualResource) Drop()              {}

// SetReady sets or clears the source.
func (m *ManualResource) SetReady(ready bool) {
	if ready {
		m.Set()
		return
	}
	m.Reset()
}

// CountdownResource turns ready on the readiness check after the given
// number of failed checks. It has no notification channel, so waiters
// re-check it on a backoff.
type CountdownResource struct {
	mu     sync.Mutex
	after  int
	checks int
}

// NewCountdownResource creates a source that reports not-ready for the
// first after checks.
func NewCountdownResource(after int) *CountdownResource {
	return &CountdownResource{after: after}
}

func (c *CountdownResource) Type() ResourceType { return ResourceManual }
func (c *CountdownResource) Drop()              {}

// Ready implements poll.Subscriber.
func (c *CountdownResource) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.checks >= c.after {
		return true
	}
	c.checks++
	return false
}

// Checks returns the number of not-ready answers given so far.
func (c *CountdownResource) Checks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checks
}
