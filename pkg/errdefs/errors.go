package errdefs

import (
	"errors"
	"fmt"
)

var (
	// ErrConstraintViolation indicates a unique or foreign key constraint was violated.
	// Callers must not retry the same call blindly.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrNotFound indicates that the update or delete target does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIOFailure indicates a stream read/write error or unreachable storage.
	ErrIOFailure = errors.New("io failure")

	// ErrPartialComposite indicates that one step of a multi-step operation
	// failed after earlier steps had already been committed.
	ErrPartialComposite = errors.New("partial composite failure")
)

// CompositeError describes the failing step of a multi-step operation.
type CompositeError struct {
	Op   string
	Step string
	Err  error
}

func (e *CompositeError) Error() string {
	return fmt.Sprintf("%s: step '%s' failed: %v", e.Op, e.Step, e.Err)
}

// Unwrap exposes both the partial-failure kind and the underlying cause.
func (e *CompositeError) Unwrap() []error {
	return []error{ErrPartialComposite, e.Err}
}

// Partial wraps err as a CompositeError for the given operation step.
func Partial(op, step string, err error) error {
	if err == nil {
		return nil
	}
	return &CompositeError{Op: op, Step: step, Err: err}
}

// IO wraps err as an ErrIOFailure with a short description.
func IO(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrIOFailure, what, err)
}

// Message returns the human-readable text shown to users for err.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPartialComposite):
		return "The operation was only partially completed."
	case errors.Is(err, ErrConstraintViolation):
		return "The entry already exists or references something that no longer exists."
	case errors.Is(err, ErrNotFound):
		return "The requested entry could not be found."
	case errors.Is(err, ErrIOFailure):
		return "The file could not be read or written."
	default:
		return err.Error()
	}
}
