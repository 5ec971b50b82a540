package column

import (
	"fmt"
	"strings"
)

// Operator is a comparison used in filters.
type Operator int

const (
	// Noop means "no explicit comparison". It is never a valid comparison
	// itself.
	Noop Operator = iota
	Equals
	NotEquals
	LessThan
	GreaterThan
	LessOrEqual
	GreaterOrEqual
)

// String returns the SQL spelling of the operator.
func (o Operator) String() string {
	switch o {
	case Equals:
		return "="
	case NotEquals:
		return "!="
	case LessThan:
		return "<"
	case GreaterThan:
		return ">"
	case LessOrEqual:
		return "<="
	case GreaterOrEqual:
		return ">="
	default:
		return ""
	}
}

// Ordering reports whether the operator compares by order rather than
// identity.
func (o Operator) Ordering() bool {
	switch o {
	case LessThan, GreaterThan, LessOrEqual, GreaterOrEqual:
		return true
	}
	return false
}

// ParseOperator converts the textual form of an operator.
func ParseOperator(s string) (Operator, error) {
	switch strings.TrimSpace(s) {
	case "=", "==":
		return Equals, nil
	case "!=", "<>":
		return NotEquals, nil
	case "<":
		return LessThan, nil
	case ">":
		return GreaterThan, nil
	case "<=":
		return LessOrEqual, nil
	case ">=":
		return GreaterOrEqual, nil
	}
	return Noop, fmt.Errorf("%w: %q", ErrUnsupportedOperator, s)
}
