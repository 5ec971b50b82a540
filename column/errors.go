package column

import "errors"

var (
	// ErrInvalidValue is returned when a value fails the column's type check
	// or validator.
	ErrInvalidValue = errors.New("invalid value")

	// ErrUnsupportedOperator is returned when an operator is not meaningful
	// for the column's declared type.
	ErrUnsupportedOperator = errors.New("unsupported operator")

	// ErrInvalidDeclaration is returned when a column declaration cannot be
	// parsed.
	ErrInvalidDeclaration = errors.New("invalid column declaration")
)
