package fd

import (
	"errors"
	"fmt"
)

var (
	// ErrFail is the domain-failure signal: a narrowing would have left a
	// domain empty. Every pruning operation returns an error matching it
	// (errors.Is) instead of building an empty version.
	ErrFail = errors.New("domain wipe-out")

	// ErrInvalidConfig is returned when a configuration fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// FailError carries the context of a domain failure. It matches ErrFail.
type FailError struct {
	// Var is the variable whose domain would have become empty, if known.
	Var Var
	// Constraint is the constraint being evaluated when the failure
	// happened. It is filled in by Store.Consistency.
	Constraint Constraint
}

func (e *FailError) Error() string {
	switch {
	case e.Var != nil && e.Constraint != nil:
		return fmt.Sprintf("%s: %s in %s", ErrFail, e.Var.ID(), e.Constraint)
	case e.Var != nil:
		return fmt.Sprintf("%s: %s", ErrFail, e.Var.ID())
	case e.Constraint != nil:
		return fmt.Sprintf("%s in %s", ErrFail, e.Constraint)
	default:
		return ErrFail.Error()
	}
}

// Is makes errors.Is(err, ErrFail) succeed for every FailError.
func (e *FailError) Is(target error) bool {
	return target == ErrFail
}

// IsFailure reports whether err is a domain failure.
func IsFailure(err error) bool {
	return errors.Is(err, ErrFail)
}
