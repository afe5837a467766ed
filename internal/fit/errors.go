package fit

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when ingredients or targets cannot form a
// problem. It is fatal and reported before any optimization starts.
var ErrInvalidInput = errors.New("invalid input")

// ErrLengthMismatch is returned when a solution vector does not line up with
// the ingredient list it should be applied to.
var ErrLengthMismatch = errors.New("solution length does not match ingredients")

// InputError describes which part of the input was rejected.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidInput) match any InputError.
func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, format string, args ...any) error {
	return &InputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
