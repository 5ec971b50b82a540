package table

import (
	"errors"
	"fmt"

	"github.com/MoffettMcKenna/IniLiteORM/column"
)

// Error types for table operations.
var (
	// ErrUnknownColumn is returned when a column reference does not resolve.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrAmbiguousColumn is returned when a bare name matches columns of both
	// tables of a joined view.
	ErrAmbiguousColumn = errors.New("ambiguous column")

	// ErrReadOnlyColumn is returned when a write touches a column outside the
	// table that receives writes.
	ErrReadOnlyColumn = errors.New("column is read-only")

	// ErrMalformedOperation is returned when an operation is called without
	// the columns it needs.
	ErrMalformedOperation = errors.New("malformed operation")

	// ErrStoreExecution is matched by every *StatementError.
	ErrStoreExecution = errors.New("store execution failed")

	// ErrIllegalTransition is returned for Create or Sync in the wrong state.
	ErrIllegalTransition = errors.New("illegal state transition")

	// ErrSyncNotImplemented is returned by Sync when no Syncer is installed.
	ErrSyncNotImplemented = errors.New("schema synchronization not implemented")

	// ErrInvalidValue is returned when a value fails its column's validation.
	ErrInvalidValue = column.ErrInvalidValue

	// ErrUnsupportedOperator is returned when an operator does not apply to a
	// column's type.
	ErrUnsupportedOperator = column.ErrUnsupportedOperator
)

// ColumnError reports a rejected column reference, value or operator.
type ColumnError struct {
	Table    string
	Column   string
	Value    any
	Operator Operator
	Err      error
}

// Error implements the error interface.
func (e *ColumnError) Error() string {
	ref := e.Column
	if e.Table != "" {
		ref = e.Table + "." + e.Column
	}
	switch {
	case errors.Is(e.Err, ErrUnsupportedOperator):
		return fmt.Sprintf("%s: %v %q", ref, e.Err, e.Operator.String())
	case errors.Is(e.Err, ErrInvalidValue):
		return fmt.Sprintf("%s: %v %v", ref, e.Err, e.Value)
	default:
		return fmt.Sprintf("%s: %v", ref, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *ColumnError) Unwrap() error {
	return e.Err
}

// StatementError carries a statement the store rejected.
type StatementError struct {
	Statement string
	Args      []any
	Err       error
}

// Error implements the error interface.
func (e *StatementError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrStoreExecution, e.Statement, e.Err)
}

// Unwrap returns the underlying error.
func (e *StatementError) Unwrap() error {
	return e.Err
}

// Is matches ErrStoreExecution as well as the driver error.
func (e *StatementError) Is(target error) bool {
	return target == ErrStoreExecution
}
