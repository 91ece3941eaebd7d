package reactor

import "github.com/eapache/queue"

type join[T any] struct {
	parent    Waker
	ready     *queue.Queue
	futs      []Future[T]
	results   []T
	done      []bool
	queued    []bool
	remaining int
	started   bool
}

// Join resolves to the results of all fs, in argument order. Only children
// whose waker fired since the last poll are polled again.
func Join[T any](fs ...Future[T]) Future[[]T] {
	return &join[T]{
		ready:     queue.New(),
		futs:      fs,
		results:   make([]T, len(fs)),
		done:      make([]bool, len(fs)),
		queued:    make([]bool, len(fs)),
		remaining: len(fs),
	}
}

func (j *join[T]) enqueue(i int) {
	if !j.queued[i] {
		j.queued[i] = true
		j.ready.Add(i)
	}
}

func (j *join[T]) Poll(cx *Context) ([]T, bool) {
	j.parent = cx.Waker()
	if !j.started {
		j.started = true
		for i := range j.futs {
			j.enqueue(i)
		}
	}

	// Children re-queued while this batch runs wait for the next poll.
	for n := j.ready.Length(); n > 0; n-- {
		i := j.ready.Remove().(int)
		j.queued[i] = false
		if j.done[i] {
			continue
		}
		v, ok := j.futs[i].Poll(NewContext(j.childWaker(i)))
		if ok {
			j.results[i] = v
			j.done[i] = true
			j.remaining--
		}
	}

	if j.remaining == 0 {
		return j.results, true
	}
	return nil, false
}

// Close closes every child that has not resolved.
func (j *join[T]) Close() {
	for i, f := range j.futs {
		if j.done[i] {
			continue
		}
		if c, ok := f.(Closer); ok {
			c.Close()
		}
	}
}

func (j *join[T]) childWaker(i int) Waker {
	return WakerFunc(func() {
		j.enqueue(i)
		j.parent.Wake()
	})
}

// Raced is the outcome of Race: the index of the winning future and its value.
type Raced[T any] struct {
	Value T
	Index int
}

type race[T any] struct {
	futs []Future[T]
}

// Race resolves with the first of fs to become ready, checked in argument
// order. Losers implementing Closer are closed; Join, Race, Then and Map all
// do, so waits nested inside a losing branch are released too.
func Race[T any](fs ...Future[T]) Future[Raced[T]] {
	return &race[T]{futs: fs}
}

func (r *race[T]) Poll(cx *Context) (Raced[T], bool) {
	for i, f := range r.futs {
		v, ok := f.Poll(cx)
		if !ok {
			continue
		}
		for k, other := range r.futs {
			if k == i {
				continue
			}
			if c, ok := other.(Closer); ok {
				c.Close()
			}
		}
		return Raced[T]{Index: i, Value: v}, true
	}
	return Raced[T]{}, false
}

// Close closes every child. Closing a resolved wait is a no-op.
func (r *race[T]) Close() {
	for _, f := range r.futs {
		if c, ok := f.(Closer); ok {
			c.Close()
		}
	}
}

type then[T, U any] struct {
	first  Future[T]
	next   func(T) Future[U]
	second Future[U]
}

// Then runs fn on f's result and continues with the future it returns.
func Then[T, U any](f Future[T], fn func(T) Future[U]) Future[U] {
	return &then[T, U]{first: f, next: fn}
}

func (t *then[T, U]) Poll(cx *Context) (U, bool) {
	if t.second == nil {
		v, ok := t.first.Poll(cx)
		if !ok {
			var zero U
			return zero, false
		}
		t.second = t.next(v)
	}
	return t.second.Poll(cx)
}

// Close closes whichever stage is running.
func (t *then[T, U]) Close() {
	var f any = t.first
	if t.second != nil {
		f = t.second
	}
	if c, ok := f.(Closer); ok {
		c.Close()
	}
}

type mapped[T, U any] struct {
	inner Future[T]
	fn    func(T) U
}

// Map converts f's result with fn. Close is forwarded to f.
func Map[T, U any](f Future[T], fn func(T) U) Future[U] {
	return &mapped[T, U]{inner: f, fn: fn}
}

func (m *mapped[T, U]) Poll(cx *Context) (U, bool) {
	v, ok := m.inner.Poll(cx)
	if !ok {
		var zero U
		return zero, false
	}
	return m.fn(v), true
}

func (m *mapped[T, U]) Close() {
	if c, ok := m.inner.(Closer); ok {
		c.Close()
	}
}
