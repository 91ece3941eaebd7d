// Package errors provides structured error types for the plugin reactor.
//
// Errors are categorized by Phase (which subsystem produced the error) and
// Kind (error category). The Error type carries a detail message, the
// offending value, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseTable, errors.KindWrongType).
//		GoType("*clocks.Timer").
//		Value(handle).
//		Detail("stored value is %s", got).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotFound(errors.PhaseTable, "handle", h)
//	err := errors.HasChildren(errors.PhaseTable, h, 3)
//
// Recoverable errors are matched by kind with the exported sentinels:
//
//	if errors.Is(err, errors.ErrNotFound) { ... }
//
// Fatal invariant breaches (protocol violations, reactor bugs) are not
// returned. They panic with a *Trap so that the enclosing host call aborts
// while the process survives.
package errors
