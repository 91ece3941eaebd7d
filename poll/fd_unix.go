//go:build unix

package poll

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

const fdWatchInterval = 50 * time.Millisecond

// FD is a readiness source for a host file descriptor, backed by poll(2).
// The descriptor stays owned by the caller; Drop never closes it.
type FD struct {
	stop     chan struct{}
	sig      Signal
	fd       int
	events   int16
	mu       sync.Mutex
	watching bool
	closed   bool
}

// NewFDReadable returns a source that is ready when fd can be read without
// blocking, or has hung up or failed.
func NewFDReadable(fd int) *FD {
	return &FD{fd: fd, events: unix.POLLIN, stop: make(chan struct{})}
}

// NewFDWritable returns a source that is ready when fd accepts writes.
func NewFDWritable(fd int) *FD {
	return &FD{fd: fd, events: unix.POLLOUT, stop: make(chan struct{})}
}

func (f *FD) check(timeout time.Duration) bool {
	fds := []unix.PollFd{{Fd: int32(f.fd), Events: f.events}}
	for {
		n, err := unix.Poll(fds, int(timeout/time.Millisecond))
		if err == unix.EINTR {
			continue
		}
		// A failing descriptor is "ready": the next I/O call reports the error.
		return err != nil || (n > 0 && fds[0].Revents != 0)
	}
}

// Ready implements Subscriber without blocking.
func (f *FD) Ready() bool {
	return f.check(0)
}

// Notify implements Notifier. A watcher goroutine polls the descriptor
// until it becomes ready or the source is dropped. After Drop the returned
// channel is already closed.
func (f *FD) Notify() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || f.Ready() {
		f.sig.Set()
		return f.sig.Notify()
	}
	f.sig.Reset()
	if !f.watching {
		f.watching = true
		go f.watch()
	}
	return f.sig.Notify()
}

func (f *FD) watch() {
	defer func() {
		f.mu.Lock()
		f.watching = false
		f.mu.Unlock()
	}()
	for {
		select {
		case <-f.stop:
			return
		default:
		}
		if f.check(fdWatchInterval) {
			f.sig.Set()
			return
		}
	}
}

// Drop stops the watcher goroutine and fires any outstanding Notify channel.
func (f *FD) Drop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.stop)
		f.sig.Set()
	}
}
