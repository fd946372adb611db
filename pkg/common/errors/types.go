package errors

import (
	"fmt"
	"strings"
)

// ValidationError describes a rejected configuration value.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError without a hint.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint sets a remediation hint and returns the same instance.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap makes every ValidationError match ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// OperationError wraps a failure of a named operation of a module.
type OperationError struct {
	Module    string
	Operation string
	Cause     error
	Context   string
}

// NewOperationError creates an OperationError.
func NewOperationError(module, operation string, cause error) *OperationError {
	return &OperationError{
		Module:    module,
		Operation: operation,
		Cause:     cause,
	}
}

// WithContext attaches additional context and returns the same instance.
func (e *OperationError) WithContext(context string) *OperationError {
	e.Context = context
	return e
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s.%s failed: %v", e.Module, e.Operation, e.Cause)
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// TaskExecutionError is returned to result waiters when the task itself
// failed. Cause is the error returned (or panic recovered) by the task.
type TaskExecutionError struct {
	Cause error
}

func (e *TaskExecutionError) Error() string {
	return fmt.Sprintf("task execution failed: %v", e.Cause)
}

func (e *TaskExecutionError) Unwrap() error {
	return e.Cause
}

// PanicError is a panic recovered from a task or callback.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value if it was an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// CompositeError carries a primary error and the errors suppressed after it,
// in the order they occurred.
type CompositeError struct {
	Primary    error
	Suppressed []error
}

// Combine drops nil errors and returns nil, the only remaining error, or a
// *CompositeError with the first error as primary.
func Combine(errs ...error) error {
	var primary error
	var suppressed []error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if primary == nil {
			primary = err
			continue
		}
		suppressed = append(suppressed, err)
	}
	if len(suppressed) == 0 {
		return primary
	}
	return &CompositeError{Primary: primary, Suppressed: suppressed}
}

func (e *CompositeError) Error() string {
	if len(e.Suppressed) == 0 {
		return e.Primary.Error()
	}
	parts := make([]string, 0, len(e.Suppressed))
	for _, err := range e.Suppressed {
		parts = append(parts, err.Error())
	}
	return fmt.Sprintf("%v (suppressed: %s)", e.Primary, strings.Join(parts, "; "))
}

// Unwrap exposes the primary error followed by the suppressed ones, so that
// errors.Is and errors.As inspect all of them.
func (e *CompositeError) Unwrap() []error {
	out := make([]error, 0, len(e.Suppressed)+1)
	out = append(out, e.Primary)
	return append(out, e.Suppressed...)
}
