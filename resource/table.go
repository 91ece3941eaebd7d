package resource

import (
	"slices"
	"sync"

	"github.com/wippyai/plugin-reactor/errors"
)

// Table is a generational handle arena with parent/child ownership tracking.
// Thread-safe; every operation applies its invariants under a single lock.
type Table struct {
	entries   []entry
	free      []uint32
	observers []observerSlot
	capacity  int
	live      int
	nextObsID uint64
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	closed    bool
}

type entry struct {
	value      any
	children   map[Handle]struct{}
	parent     Handle
	generation uint32
	valid      bool
}

type observerSlot struct {
	obs Observer
	id  uint64
}

// Option configures a Table.
type Option func(*Table)

// WithCapacity bounds the number of live entries. Values outside
// (0, MaxSlots] are clamped to MaxSlots.
func WithCapacity(n int) Option {
	return func(t *Table) {
		if n <= 0 || n > MaxSlots {
			n = MaxSlots
		}
		t.capacity = n
	}
}

// NewTable creates an empty table.
func NewTable(opts ...Option) *Table {
	t := &Table{
		entries:  make([]entry, 0, 64),
		free:     make([]uint32, 0, 16),
		capacity: MaxSlots,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Insert stores a value with no parent and returns its handle. It fails
// with ErrCapacity when the handle space is exhausted or the table is closed.
func (t *Table) Insert(value any) (Handle, error) {
	return t.insert(value, 0)
}

// InsertChild stores a value owned by parent. The parent cannot be removed
// until the child is.
func (t *Table) InsertChild(value any, parent Handle) (Handle, error) {
	if parent == 0 {
		return 0, errors.NotFound(errors.PhaseTable, "parent handle", parent)
	}
	return t.insert(value, parent)
}

func (t *Table) insert(value any, parent Handle) (Handle, error) {
	t.mu.Lock()

	if t.closed {
		t.mu.Unlock()
		return 0, errors.New(errors.PhaseTable, errors.KindCapacity).
			Detail("resource table closed").
			Value(0).
			Build()
	}

	var p *entry
	if parent != 0 {
		var err error
		if p, err = t.lookup(parent); err != nil {
			t.mu.Unlock()
			return 0, errors.NotFound(errors.PhaseTable, "parent handle", parent)
		}
	}

	if t.live >= t.capacity {
		t.mu.Unlock()
		return 0, errors.Capacity(errors.PhaseTable, "handle space", t.capacity)
	}

	var slot uint32
	if n := len(t.free); n > 0 {
		slot = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		if len(t.entries) >= MaxSlots {
			t.mu.Unlock()
			return 0, errors.Capacity(errors.PhaseTable, "handle space", MaxSlots)
		}
		t.entries = append(t.entries, entry{})
		slot = uint32(len(t.entries) - 1)
	}

	e := &t.entries[slot]
	e.value = value
	e.parent = parent
	e.children = nil
	e.valid = true
	h := makeHandle(slot, e.generation)

	if p != nil {
		if p.children == nil {
			p.children = make(map[Handle]struct{})
		}
		p.children[h] = struct{}{}
	}
	t.live++
	t.mu.Unlock()

	t.notify(Event{Type: EventCreated, Handle: h, Parent: parent, Value: value})
	return h, nil
}

// lookup resolves a handle to its live entry. Caller holds t.mu.
func (t *Table) lookup(h Handle) (*entry, error) {
	slot, ok := h.slot()
	if !ok || int(slot) >= len(t.entries) {
		return nil, errors.NotFound(errors.PhaseTable, "handle", h)
	}
	e := &t.entries[slot]
	if !e.valid || e.generation != h.generation() {
		return nil, errors.NotFound(errors.PhaseTable, "handle", h)
	}
	return e, nil
}

// Value returns the type-erased value stored under h.
func (t *Table) Value(h Handle) (any, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, err := t.lookup(h)
	if err != nil {
		return nil, err
	}
	return e.value, nil
}

// Contains reports whether h refers to a live entry.
func (t *Table) Contains(h Handle) bool {
	_, err := t.Value(h)
	return err == nil
}

// Delete removes h and returns its value to the caller without dropping it.
// It fails with ErrHasChildren while h owns live children, leaving the
// table untouched.
func (t *Table) Delete(h Handle) (any, error) {
	return t.remove(h, nil)
}

// remove deletes h. When check is non-nil it vets the stored value first,
// so a rejected removal leaves the table unchanged.
func (t *Table) remove(h Handle, check func(any) error) (any, error) {
	t.mu.Lock()

	e, err := t.lookup(h)
	if err != nil {
		t.mu.Unlock()
		return nil, err
	}
	if n := len(e.children); n > 0 {
		t.mu.Unlock()
		return nil, errors.HasChildren(errors.PhaseTable, h, n)
	}
	if check != nil {
		if err := check(e.value); err != nil {
			t.mu.Unlock()
			return nil, err
		}
	}

	value, parent := e.value, e.parent
	if parent != 0 {
		if p, err := t.lookup(parent); err == nil {
			delete(p.children, h)
		}
	}
	t.release(h, e)
	t.mu.Unlock()

	t.notify(Event{Type: EventDropped, Handle: h, Parent: parent, Value: value})
	return value, nil
}

// release invalidates e and recycles its slot unless the generation is spent.
// Caller holds t.mu.
func (t *Table) release(h Handle, e *entry) {
	slot, _ := h.slot()
	e.value = nil
	e.parent = 0
	e.children = nil
	e.valid = false
	t.live--
	if e.generation == maxGeneration {
		return
	}
	e.generation++
	t.free = append(t.free, slot)
}

// Parent returns the parent of h, or 0 if h has none.
func (t *Table) Parent(h Handle) (Handle, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, err := t.lookup(h)
	if err != nil {
		return 0, err
	}
	return e.parent, nil
}

// Children returns the live children of h in ascending handle order.
func (t *Table) Children(h Handle) ([]Handle, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, err := t.lookup(h)
	if err != nil {
		return nil, err
	}
	out := make([]Handle, 0, len(e.children))
	for c := range e.children {
		out = append(out, c)
	}
	slices.Sort(out)
	return out, nil
}

// Len returns the number of live entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

// Each calls fn for every live entry in slot order until fn returns false.
// fn must not call back into the table.
func (t *Table) Each(fn func(Handle, any) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i := range t.entries {
		e := &t.entries[i]
		if !e.valid {
			continue
		}
		if !fn(makeHandle(uint32(i), e.generation), e.value) {
			return
		}
	}
}

// Subscribe adds an observer for lifecycle events and returns a function
// that removes it.
func (t *Table) Subscribe(o Observer) (cancel func()) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()

	t.nextObsID++
	id := t.nextObsID
	t.observers = append(t.observers, observerSlot{obs: o, id: id})

	return func() {
		t.obsMu.Lock()
		defer t.obsMu.Unlock()
		t.observers = slices.DeleteFunc(t.observers, func(s observerSlot) bool {
			return s.id == id
		})
	}
}

// Clear drops all entries, children before parents.
func (t *Table) Clear() {
	for {
		t.mu.Lock()
		var leaves []Handle
		for i := range t.entries {
			e := &t.entries[i]
			if e.valid && len(e.children) == 0 {
				leaves = append(leaves, makeHandle(uint32(i), e.generation))
			}
		}
		t.mu.Unlock()

		if len(leaves) == 0 {
			return
		}
		for _, h := range leaves {
			value, err := t.Delete(h)
			if err != nil {
				continue
			}
			if d, ok := value.(Dropper); ok {
				d.Drop()
			}
		}
	}
}

// Close drops all entries; later inserts fail with ErrCapacity.
func (t *Table) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	t.Clear()
	return nil
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, s := range t.observers {
		s.obs.OnResourceEvent(e)
	}
}
