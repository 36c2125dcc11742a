package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAssumption marks inputs the engine refuses to correct silently.
	ErrInvalidAssumption = errors.New("invalid assumption")
	// ErrDataUnavailable marks lookups that found nothing (deal, actuals, market context).
	ErrDataUnavailable = errors.New("data unavailable")
)

// AssumptionError describes a single rejected input value.
type AssumptionError struct {
	Field  string
	Value  string
	Reason string
}

func (e *AssumptionError) Error() string {
	return fmt.Sprintf("invalid assumption %s=%s: %s", e.Field, e.Value, e.Reason)
}

func (e *AssumptionError) Unwrap() error {
	return ErrInvalidAssumption
}

// NewAssumptionError builds an AssumptionError for field with the offending value.
func NewAssumptionError(field string, value interface{}, reason string) *AssumptionError {
	return &AssumptionError{
		Field:  field,
		Value:  fmt.Sprint(value),
		Reason: reason,
	}
}
