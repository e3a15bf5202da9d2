// Package errs defines Sunwell's closed error taxonomy. Every
// error surfaced by the execution core is, or wraps, one of these kinds, so
// callers can dispatch on Kind with errors.As instead of string matching.
package errs

import (
	"errors"
	"fmt"
)

// Kind is the closed set of error categories.
type Kind string

const (
	// UserAbort means the user cancelled; recoverable via checkpoint.
	UserAbort Kind = "user_abort"
	// BudgetExceeded means tokens, time, iterations, or scope were exhausted.
	BudgetExceeded Kind = "budget_exceeded"
	// GuardrailViolation means a classification was Forbidden, or Dangerous
	// without approval.
	GuardrailViolation Kind = "guardrail_violation"
	// ToolExecutionError means a tool call returned failure.
	ToolExecutionError Kind = "tool_execution_error"
	// ModelError means the model provider faulted.
	ModelError Kind = "model_error"
	// GateError means a gate subprocess failed to run (distinct from a gate
	// reporting failures normally).
	GateError Kind = "gate_error"
	// IntegrityError means a checkpoint or memory file is corrupt.
	IntegrityError Kind = "integrity_error"
	// Stuck means the same error kind persisted across convergence iterations.
	Stuck Kind = "stuck"
	// Internal means a bug; diagnostic context should be preserved.
	Internal Kind = "internal"
)

// Error is the concrete error type wrapping a Kind, a message, and an
// optional cause. Error chains are built with errors.Is/As via Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New constructs an Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf formats a message and returns an Error of the given kind.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an existing error, preserving it as the cause. If
// err is already an *Error, its kind is overridden but its message and cause
// chain are preserved so repeated classification does not lose context.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return &Error{Kind: kind, Message: e.Message, Cause: e.Cause}
	}
	return &Error{Kind: kind, Message: err.Error(), Cause: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the cause, enabling errors.Is/As across the chain.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf extracts the Kind of err, defaulting to Internal when err does not
// carry a Kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if err == nil {
		return ""
	}
	return Internal
}
