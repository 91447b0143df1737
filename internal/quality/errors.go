package quality

import (
	"errors"
	"fmt"
)

var (
	// ErrNoModel is returned when no complete, usable artifact set exists.
	ErrNoModel = errors.New("no model available")
	// ErrSchemaMismatch is returned when persisted features differ from the canonical schema.
	ErrSchemaMismatch = errors.New("feature schema mismatch")
)

// InputError reports a prediction input that cannot be used as a number.
type InputError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid value for %s (%v): %s", e.Field, e.Value, e.Reason)
}
