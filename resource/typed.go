package resource

import (
	"fmt"
	"reflect"

	"github.com/wippyai/plugin-reactor/errors"
)

// Get returns the value under h as a T.
// Concrete T must match the stored dynamic type exactly; interface T
// matches any implementation.
func Get[T any](t *Table, h Handle) (T, error) {
	var zero T
	v, err := t.Value(h)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, wrongType[T](h, v)
	}
	return typed, nil
}

// GetMut returns a pointer to the T stored under h. The entry must hold a
// *T; mutations through the pointer are visible to later Get calls.
func GetMut[T any](t *Table, h Handle) (*T, error) {
	v, err := t.Value(h)
	if err != nil {
		return nil, err
	}
	p, ok := v.(*T)
	if !ok || p == nil {
		return nil, wrongType[*T](h, v)
	}
	return p, nil
}

// Update replaces the T stored under h with fn's result, atomically with
// respect to other table operations. fn must not call back into the table.
func Update[T any](t *Table, h Handle, fn func(T) T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, err := t.lookup(h)
	if err != nil {
		return err
	}
	typed, ok := e.value.(T)
	if !ok {
		return wrongType[T](h, e.value)
	}
	e.value = fn(typed)
	return nil
}

// Remove deletes h and returns its value as a T. A type mismatch or live
// children leave the table unchanged.
func Remove[T any](t *Table, h Handle) (T, error) {
	var zero T
	v, err := t.remove(h, func(v any) error {
		if _, ok := v.(T); !ok {
			return wrongType[T](h, v)
		}
		return nil
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

func wrongType[T any](h Handle, got any) error {
	return errors.WrongType(errors.PhaseTable, h, reflect.TypeFor[T]().String(), fmt.Sprintf("%T", got))
}
