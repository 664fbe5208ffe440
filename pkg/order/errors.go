package order

import (
	"errors"
	"fmt"
)

// ErrValidation is matched by every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError reports an order or query that does not have the expected
// shape. It is a caller error and is never worth retrying.
type ValidationError struct {
	Name   string // argument being checked, e.g. "orders[2]" or "request"
	Field  string // offending field, empty when the whole value is rejected
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("%s.%s: %s", e.Name, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(name, field, reason string) *ValidationError {
	return &ValidationError{Name: name, Field: field, Reason: reason}
}
