package domain

import "errors"

var (
	// ErrOrderNotFound is returned when a cancel, amend or trade extraction
	// names an order that is not resting in the book. This is a caller bug,
	// not a liquidity condition.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidOrder is the class of all construction/amend validation
	// failures. Concrete failures are ValidationError values wrapping it.
	ErrInvalidOrder = errors.New("invalid order")
)

// ValidationError describes a single rejected order field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid order [" + e.Field + "]: " + e.Reason
}

// Is makes every ValidationError match errors.Is(err, ErrInvalidOrder).
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidOrder
}
