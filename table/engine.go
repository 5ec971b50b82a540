package table

import (
	"context"
	"fmt"

	"github.com/MoffettMcKenna/IniLiteORM/column"
	"github.com/MoffettMcKenna/IniLiteORM/internal/debug"
	"github.com/MoffettMcKenna/IniLiteORM/store"
)

// resolved is a column reference bound to its column.
type resolved struct {
	sql   string // as written in SELECT and WHERE
	owner *Table
	col   *column.Column
}

// hooks are the points where a plain table and a joined view differ.
type hooks interface {
	// label names the table or view in errors.
	label() string
	// from is the body of the FROM clause.
	from() string
	// allColumns lists the references GetAll selects.
	allColumns() []string
	// resolve binds a bare or qualified column reference.
	resolve(ref string) (resolved, error)
	// target is the table that receives writes.
	target() *Table
}

// engine implements filtering, reads and writes on top of hooks.
type engine struct {
	hooks   hooks
	store   store.Store
	filters []Where
}

// Filter appends a clause to the standing filters.
func (e *engine) Filter(ref string, op Operator, value any) error {
	w, err := e.where(ref, op, value)
	if err != nil {
		return err
	}
	e.filters = append(e.filters, w)
	return nil
}

// ClearFilters drops every standing filter.
func (e *engine) ClearFilters() {
	e.filters = nil
}

// Filters returns a copy of the standing filters.
func (e *engine) Filters() []Where {
	return append([]Where(nil), e.filters...)
}

// where validates a filter: column first, then operator, then value.
func (e *engine) where(ref string, op Operator, value any) (Where, error) {
	r, err := e.hooks.resolve(ref)
	if err != nil {
		return Where{}, err
	}
	if !r.col.ValidateOperator(op) || (value == nil && op.Ordering()) {
		return Where{}, &ColumnError{Table: e.hooks.label(), Column: ref, Value: value, Operator: op, Err: ErrUnsupportedOperator}
	}
	if value != nil && !r.col.Validate(value) {
		return Where{}, &ColumnError{Table: e.hooks.label(), Column: ref, Value: value, Operator: op, Err: ErrInvalidValue}
	}
	return Where{Column: r.sql, Operator: op, Value: value, owner: r.owner}, nil
}

// GetAll selects every exposed column under the standing filters.
func (e *engine) GetAll(ctx context.Context) (store.Rows, error) {
	return e.Get(ctx, e.hooks.allColumns()...)
}

// Get selects the given columns under the standing filters and returns the
// raw rows.
func (e *engine) Get(ctx context.Context, refs ...string) (store.Rows, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: Get on %s needs at least one column", ErrMalformedOperation, e.hooks.label())
	}

	cols := make([]string, 0, len(refs))
	for _, ref := range refs {
		r, err := e.hooks.resolve(ref)
		if err != nil {
			return nil, err
		}
		cols = append(cols, r.sql)
	}

	q := buildSelect(cols, e.hooks.from(), e.filters)
	rows, err := e.store.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, &StatementError{Statement: q.SQL, Args: q.Args, Err: err}
	}
	return rows, nil
}

// Add inserts one row and returns the store-assigned row id. Declared
// columns missing from values get their default; primary keys and
// store-evaluated defaults are left to the store.
func (e *engine) Add(ctx context.Context, values map[string]any) (int64, error) {
	t := e.hooks.target()

	given, err := e.writeValues(values)
	if err != nil {
		return 0, err
	}

	var cols []string
	var args []any
	for _, col := range t.columns {
		if v, ok := given[col.Name()]; ok {
			cols = append(cols, quote(col.Name()))
			args = append(args, v)
			continue
		}
		if col.PrimaryKey() {
			continue
		}

		switch col.DefaultKind() {
		case column.DefaultValue:
			v, _ := col.Default()
			cols = append(cols, quote(col.Name()))
			args = append(args, v)
		case column.DefaultStore:
			// evaluated by the store
		default:
			if !col.Nullable() {
				return 0, &ColumnError{Table: t.name, Column: col.Name(), Err: fmt.Errorf("%w: missing value for NOT NULL column", ErrInvalidValue)}
			}
			cols = append(cols, quote(col.Name()))
			args = append(args, nil)
		}
	}
	if len(cols) == 0 {
		return 0, fmt.Errorf("%w: Add on %s has no columns to insert", ErrMalformedOperation, e.hooks.label())
	}

	q := buildInsert(quote(t.name), cols, args)
	res, err := e.store.Exec(ctx, q.SQL, q.Args...)
	if err != nil {
		return 0, &StatementError{Statement: q.SQL, Args: q.Args, Err: err}
	}
	return res.LastInsertID, nil
}

// UpdateValue sets one column on every row matching the standing filters.
func (e *engine) UpdateValue(ctx context.Context, ref string, value any) (int64, error) {
	return e.UpdateValues(ctx, map[string]any{ref: value})
}

// UpdateValueWhere sets one column on the rows matching a single inline
// condition. The standing filters are ignored unless op is Noop.
func (e *engine) UpdateValueWhere(ctx context.Context, ref string, value any, compRef string, op Operator, compValue any) (int64, error) {
	given, err := e.writeValues(map[string]any{ref: value})
	if err != nil {
		return 0, err
	}
	filters, err := e.writeFilters(compRef, op, compValue)
	if err != nil {
		return 0, err
	}
	return e.update(ctx, given, filters)
}

// UpdateValues sets several columns on every row matching the standing
// filters.
func (e *engine) UpdateValues(ctx context.Context, values map[string]any) (int64, error) {
	given, err := e.writeValues(values)
	if err != nil {
		return 0, err
	}
	filters, err := e.writeFilters("", Noop, nil)
	if err != nil {
		return 0, err
	}
	return e.update(ctx, given, filters)
}

func (e *engine) update(ctx context.Context, given map[string]any, filters []Where) (int64, error) {
	t := e.hooks.target()
	if len(given) == 0 {
		return 0, fmt.Errorf("%w: update on %s needs at least one column", ErrMalformedOperation, e.hooks.label())
	}

	var cols []string
	var args []any
	for _, col := range t.columns {
		if v, ok := given[col.Name()]; ok {
			cols = append(cols, quote(col.Name()))
			args = append(args, v)
		}
	}

	q := buildUpdate(quote(t.name), cols, args, filters)
	res, err := e.store.Exec(ctx, q.SQL, q.Args...)
	if err != nil {
		return 0, &StatementError{Statement: q.SQL, Args: q.Args, Err: err}
	}
	return res.RowsAffected, nil
}

// Delete removes every row matching the standing filters.
func (e *engine) Delete(ctx context.Context) (int64, error) {
	return e.DeleteWhere(ctx, "", Noop, nil)
}

// DeleteWhere removes the rows matching a single inline condition. The
// standing filters are ignored unless op is Noop.
func (e *engine) DeleteWhere(ctx context.Context, ref string, op Operator, value any) (int64, error) {
	filters, err := e.writeFilters(ref, op, value)
	if err != nil {
		return 0, err
	}

	t := e.hooks.target()
	q := buildDelete(quote(t.name), filters)
	res, err := e.store.Exec(ctx, q.SQL, q.Args...)
	if err != nil {
		debug.Warn("Delete failed", "table", t.name, "sql", q.SQL, "error", err)
		return 0, &StatementError{Statement: q.SQL, Args: q.Args, Err: err}
	}
	return res.RowsAffected, nil
}

// SetDefault replaces a column's default value.
func (e *engine) SetDefault(ref string, value any) error {
	r, err := e.hooks.resolve(ref)
	if err != nil {
		return err
	}
	if err := r.col.SetDefault(value); err != nil {
		return &ColumnError{Table: e.hooks.label(), Column: ref, Value: value, Err: err}
	}
	return nil
}

// UpdateValidators installs a custom validator on a column.
func (e *engine) UpdateValidators(ref string, v column.Validator) error {
	r, err := e.hooks.resolve(ref)
	if err != nil {
		return err
	}
	if err := r.col.SetValidator(v); err != nil {
		return &ColumnError{Table: e.hooks.label(), Column: ref, Err: err}
	}
	return nil
}

// writeValues resolves and validates the values of a write, keyed by the
// bare column name of the target table.
func (e *engine) writeValues(values map[string]any) (map[string]any, error) {
	t := e.hooks.target()

	given := make(map[string]any, len(values))
	for ref, v := range values {
		r, err := e.hooks.resolve(ref)
		if err != nil {
			return nil, err
		}
		if r.owner != t {
			return nil, &ColumnError{Table: e.hooks.label(), Column: ref, Err: ErrReadOnlyColumn}
		}
		if _, dup := given[r.col.Name()]; dup {
			return nil, &ColumnError{Table: e.hooks.label(), Column: ref, Err: fmt.Errorf("%w: column given twice", ErrMalformedOperation)}
		}
		if !r.col.Validate(v) {
			return nil, &ColumnError{Table: e.hooks.label(), Column: ref, Value: v, Err: ErrInvalidValue}
		}
		given[r.col.Name()] = v
	}
	return given, nil
}

// writeFilters picks the condition of an update or delete: the inline one
// when op is not Noop, the standing filters otherwise. Every clause must
// belong to the target table.
func (e *engine) writeFilters(ref string, op Operator, value any) ([]Where, error) {
	if op != Noop {
		w, err := e.where(ref, op, value)
		if err != nil {
			return nil, err
		}
		if w.owner != e.hooks.target() {
			return nil, &ColumnError{Table: e.hooks.label(), Column: ref, Err: ErrReadOnlyColumn}
		}
		return []Where{w}, nil
	}

	for _, w := range e.filters {
		if w.owner != e.hooks.target() {
			return nil, &ColumnError{Table: e.hooks.label(), Column: w.Column, Err: ErrReadOnlyColumn}
		}
	}
	return e.filters, nil
}
