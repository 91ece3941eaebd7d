// Package resource provides the handle table backing every resource a
// plugin component can see.
//
// Resources are host-side values addressed from the guest by opaque 32-bit
// handles. The table stores type-erased values and tracks parent/child
// ownership between them, so that a resource derived from another one (a
// pollable subscribed to a stream, for example) keeps its parent alive.
//
// # Handle Table
//
//	table := resource.NewTable()
//
//	// Insert a value, get a handle
//	h, err := table.Insert(stream)
//
//	// Derive a child that must not outlive its parent
//	ph, err := table.InsertChild(pollable, h)
//
//	// Typed access
//	s, err := resource.Get[*Stream](table, h)
//
//	// Children must go first
//	_, err = table.Delete(h)  // ErrHasChildren
//	_, err = table.Delete(ph)
//	_, err = table.Delete(h)
//
// # Handles
//
// A handle packs a slot index (low IndexBits bits, offset by one so that
// handle 0 is never valid) with the slot's generation (high bits). Removing
// an entry bumps its slot generation, so a handle kept past its removal is
// rejected with ErrNotFound even after the slot is reused. A slot whose
// generation would wrap is retired instead of reused.
//
// # Errors
//
// Accessors return *errors.Error values matched with the sentinels in the
// errors package: ErrCapacity, ErrNotFound, ErrWrongType and ErrHasChildren.
// Inserting into a closed table fails with ErrCapacity.
//
// # Observers
//
// Register observers to track resource lifecycle events:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    log.Printf("%v %d", e.Type, e.Handle)
//	}))
//
// # Memory Management
//
// Resources are not garbage collected. Delete and Remove hand the value back
// to the caller without dropping it. Clear and Close drop every live entry,
// children first, calling Drop on values that implement Dropper.
package resource
