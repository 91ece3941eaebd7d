package poll

import "sync"

// Signal is a level-triggered readiness flag with a channel view.
// The channel returned by Notify is closed while the signal is set; Reset
// swaps in a fresh channel. The zero value is unset and ready to use.
type Signal struct {
	ch  chan struct{}
	mu  sync.Mutex
	set bool
}

// Set marks the signal ready and releases every Notify channel.
func (s *Signal) Set() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set {
		return
	}
	s.set = true
	if s.ch == nil {
		s.ch = make(chan struct{})
	}
	close(s.ch)
}

// Reset marks the signal not ready.
func (s *Signal) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return
	}
	s.set = false
	s.ch = make(chan struct{})
}

// IsSet reports whether the signal is ready.
func (s *Signal) IsSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// Ready implements Subscriber.
func (s *Signal) Ready() bool { return s.IsSet() }

// Notify implements Notifier.
func (s *Signal) Notify() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch == nil {
		s.ch = make(chan struct{})
		if s.set {
			close(s.ch)
		}
	}
	return s.ch
}
