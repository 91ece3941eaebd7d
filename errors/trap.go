package errors

import "fmt"

// Trap is the panic value for unrecoverable invariant breaches.
//
// Host functions raise a Trap to abort the current guest call; wazero turns
// the panic into a wasm trap. Library code never recovers a Trap itself.
type Trap struct {
	Err *Error
}

func (t *Trap) Error() string {
	return "trap: " + t.Err.Error()
}

func (t *Trap) Unwrap() error {
	return t.Err
}

// Raise panics with a Trap built from phase, kind and a formatted detail.
func Raise(phase Phase, kind Kind, format string, args ...any) {
	panic(&Trap{Err: &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: fmt.Sprintf(format, args...),
	}})
}

// ProtocolViolation panics with a protocol violation Trap.
func ProtocolViolation(phase Phase, format string, args ...any) {
	Raise(phase, KindProtocolViolation, format, args...)
}

// Recover converts a recovered panic value into a Trap.
// Values that are not traps are re-panicked.
func Recover(r any) *Trap {
	if r == nil {
		return nil
	}
	if t, ok := r.(*Trap); ok {
		return t
	}
	panic(r)
}

// Fail panics with a Trap wrapping err. The trap keeps err's kind when err
// is an *Error and is KindInternal otherwise. A nil err does nothing.
func Fail(phase Phase, err error, format string, args ...any) {
	if err == nil {
		return
	}
	kind := KindInternal
	var e *Error
	if As(err, &e) {
		kind = e.Kind
	}
	panic(&Trap{Err: &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: fmt.Sprintf(format, args...),
		Cause:  err,
	}})
}
