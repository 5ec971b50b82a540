// Package table builds and runs parameterized SQL for declared tables and
// for two-table joined views, validating every column reference, operator
// and value before anything reaches the store.
package table

import (
	"context"
	"fmt"
	"strings"

	"github.com/MoffettMcKenna/IniLiteORM/column"
	"github.com/MoffettMcKenna/IniLiteORM/ddl"
	"github.com/MoffettMcKenna/IniLiteORM/internal/debug"
	"github.com/MoffettMcKenna/IniLiteORM/store"
)

// ColumnDecl declares one column, e.g. {"age", "INTEGER DEFAULT 0"}.
type ColumnDecl struct {
	Name string
	Decl string
}

// Table is a declared table bound to a store. Validity against the
// existing schema is decided once, in New.
type Table struct {
	engine

	name        string
	columns     []*column.Column
	byName      map[string]*column.Column
	primaryKeys []string

	exists bool
	valid  bool
	drift  []Drift
	syncer Syncer
}

// Option configures a Table.
type Option func(*Table)

// WithSyncer sets the Syncer run by Sync. A nil Syncer makes Sync fail
// with ErrSyncNotImplemented.
func WithSyncer(s Syncer) Option {
	return func(t *Table) {
		t.syncer = s
	}
}

// New declares a table. existing is the parsed definition found in the
// store; nil or empty means there is none to trust.
func New(name string, decls []ColumnDecl, st store.Store, existing *ddl.TableDef, opts ...Option) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty table name", ErrMalformedOperation)
	}
	if len(decls) == 0 {
		return nil, fmt.Errorf("%w: table %s declares no columns", ErrMalformedOperation, name)
	}

	t := &Table{
		name:   name,
		byName: make(map[string]*column.Column, len(decls)),
		syncer: ReportSyncer{},
	}
	t.engine = engine{hooks: t, store: st}

	for _, d := range decls {
		if _, dup := t.byName[d.Name]; dup {
			return nil, fmt.Errorf("%w: table %s declares column %s twice", column.ErrInvalidDeclaration, name, d.Name)
		}
		col, err := column.Parse(d.Name, d.Decl)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		t.columns = append(t.columns, col)
		t.byName[col.Name()] = col
		if col.PrimaryKey() {
			t.primaryKeys = append(t.primaryKeys, col.Name())
		}
	}

	for _, opt := range opts {
		opt(t)
	}

	if !existing.Empty() {
		t.exists = true
		t.drift = computeDrift(t.columns, existing)
		t.valid = len(t.drift) == 0
	}

	debug.Debug("Checked table", "table", name, "exists", t.exists, "valid", t.valid, "drift", len(t.drift))
	return t, nil
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Column looks up a declared column.
func (t *Table) Column(name string) (*column.Column, bool) {
	c, ok := t.byName[name]
	return c, ok
}

// Columns returns the columns in declared order.
func (t *Table) Columns() []*column.Column {
	return append([]*column.Column(nil), t.columns...)
}

// ColumnNames returns the column names in declared order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name()
	}
	return names
}

// PrimaryKeys returns the primary-key column names.
func (t *Table) PrimaryKeys() []string {
	return append([]string(nil), t.primaryKeys...)
}

// Exists reports whether the store held a definition of the table.
func (t *Table) Exists() bool { return t.exists }

// IsValid reports whether the stored definition matches the declaration.
func (t *Table) IsValid() bool { return t.valid }

// Drift returns the differences found at construction.
func (t *Table) Drift() []Drift {
	return append([]Drift(nil), t.drift...)
}

// Store returns the store the table runs against.
func (t *Table) Store() store.Store { return t.store }

// BuildSQL renders the CREATE TABLE statement for the declaration.
func (t *Table) BuildSQL() string {
	frags := make([]string, len(t.columns))
	for i, c := range t.columns {
		frags[i] = c.BuildDDLFragment()
	}
	return "Create Table " + quote(t.name) + " (" + strings.Join(frags, ", ") + ");"
}

// Create issues CREATE TABLE. It is only allowed when the store held no
// definition.
func (t *Table) Create(ctx context.Context) error {
	if t.exists {
		return fmt.Errorf("%w: table %s already exists", ErrIllegalTransition, t.name)
	}

	q := t.BuildSQL()
	if _, err := t.store.Exec(ctx, q); err != nil {
		return &StatementError{Statement: q, Err: err}
	}

	t.exists = true
	t.valid = true
	t.drift = nil
	debug.Info("Created table", "table", t.name)
	return nil
}

// Sync hands the drift to the installed Syncer. It is only allowed when
// the table exists and is invalid.
func (t *Table) Sync(ctx context.Context) error {
	if !t.exists || t.valid {
		return fmt.Errorf("%w: table %s does not need synchronizing", ErrIllegalTransition, t.name)
	}
	if t.syncer == nil {
		return fmt.Errorf("table %s: %w", t.name, ErrSyncNotImplemented)
	}
	return t.syncer.Sync(ctx, t, t.Drift())
}

// Equal reports whether two tables declare the same name and columns.
func (t *Table) Equal(other *Table) bool {
	if other == nil || t.name != other.name || len(t.columns) != len(other.columns) {
		return false
	}
	for i, c := range t.columns {
		o := other.columns[i]
		if c.Name() != o.Name() || !ddl.Equal(c.Tokens(), o.Tokens()) {
			return false
		}
	}
	return true
}

// Join builds a joined view with t as the primary table.
func (t *Table) Join(other *Table, key, otherKey string) (*JoinedView, error) {
	return NewJoinedView(t, other, key, otherKey)
}

// hooks

func (t *Table) label() string { return t.name }

func (t *Table) from() string { return quote(t.name) }

func (t *Table) allColumns() []string { return t.ColumnNames() }

func (t *Table) target() *Table { return t }

// resolve accepts "col" and "table.col".
func (t *Table) resolve(ref string) (resolved, error) {
	name := ref
	if prefix, rest, ok := strings.Cut(ref, "."); ok && prefix == t.name {
		name = rest
	}
	col, ok := t.byName[name]
	if !ok {
		return resolved{}, &ColumnError{Table: t.name, Column: ref, Err: ErrUnknownColumn}
	}
	return resolved{sql: quote(col.Name()), owner: t, col: col}, nil
}

func quote(name string) string {
	return ddl.QuoteIdent(name)
}
