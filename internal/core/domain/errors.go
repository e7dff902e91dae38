package domain

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks across adapter boundaries.
var (
	ErrValidation = errors.New("validation error")
	ErrExecution  = errors.New("execution error")
	ErrTransport  = errors.New("transport error")
)

// ValidationError reports malformed or out-of-range tool arguments.
// Nothing is mutated when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid is shorthand for a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ExecutionError wraps a database failure. The message is the driver's.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string { return e.Err.Error() }

func (e *ExecutionError) Unwrap() []error { return []error{ErrExecution, e.Err} }

// TransportError is a failed delivery to one viewer. It is logged and the
// viewer is dropped; tool callers never see it.
type TransportError struct {
	Viewer uint64
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("viewer %d: %v", e.Viewer, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }
