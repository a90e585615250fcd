package migspec

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownField is returned when Args carry a flag outside the schema.
	ErrUnknownField = errors.New("unknown field")

	// ErrTooManyEntries is returned when a selector lists more than
	// MaxSelectorEntries values.
	ErrTooManyEntries = errors.New("too many entries")
)

// FieldError reports a problem with one flag while building a Spec.
type FieldError struct {
	Flag string
	Err  error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("--%s: %v", e.Flag, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
