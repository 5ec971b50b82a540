package table

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/MoffettMcKenna/IniLiteORM/column"
)

// JoinedView is a left join of a primary table onto a secondary table by
// key equality. Reads see both tables; writes land in the primary only.
// The join keys are not part of the exposed columns.
type JoinedView struct {
	engine

	primary      *Table
	secondary    *Table
	primaryKey   string
	secondaryKey string

	primaryCols   []string
	secondaryCols []string
	primaryKeys   []string
}

// NewJoinedView joins secondary onto primary on
// primary.primaryKey = secondary.secondaryKey. Both tables must outlive the
// view; it runs against the primary table's store.
//
// The primary join key is hidden, so Add through the view can never set it.
// When that key is a NOT NULL column with no default and not a primary key,
// the view is read and update only: Add fails with ErrReadOnlyColumn and rows
// have to be inserted through the primary table.
func NewJoinedView(primary, secondary *Table, primaryKey, secondaryKey string) (*JoinedView, error) {
	if primary == nil || secondary == nil {
		return nil, fmt.Errorf("%w: joined view needs two tables", ErrMalformedOperation)
	}
	if primary == secondary || primary.name == secondary.name {
		return nil, fmt.Errorf("%w: cannot join %s onto itself", ErrMalformedOperation, primary.name)
	}
	if _, ok := primary.byName[primaryKey]; !ok {
		return nil, &ColumnError{Table: primary.name, Column: primaryKey, Err: ErrUnknownColumn}
	}
	if _, ok := secondary.byName[secondaryKey]; !ok {
		return nil, &ColumnError{Table: secondary.name, Column: secondaryKey, Err: ErrUnknownColumn}
	}

	v := &JoinedView{
		primary:      primary,
		secondary:    secondary,
		primaryKey:   primaryKey,
		secondaryKey: secondaryKey,
	}
	v.engine = engine{hooks: v, store: primary.store}

	for _, side := range []struct {
		table *Table
		key   string
		cols  *[]string
	}{
		{primary, primaryKey, &v.primaryCols},
		{secondary, secondaryKey, &v.secondaryCols},
	} {
		for _, col := range side.table.columns {
			if col.Name() == side.key {
				continue
			}
			*side.cols = append(*side.cols, col.Name())
			if col.PrimaryKey() {
				v.primaryKeys = append(v.primaryKeys, side.table.name+"."+col.Name())
			}
		}
	}
	return v, nil
}

// Insertable reports whether Add can work through the view, which is not the
// case when the hidden primary join key needs a value.
func (v *JoinedView) Insertable() bool {
	col := v.primary.byName[v.primaryKey]
	return col.PrimaryKey() || col.Nullable() || col.DefaultKind() != column.DefaultNone
}

// Add inserts into the primary table. See NewJoinedView for when it is
// refused.
func (v *JoinedView) Add(ctx context.Context, values map[string]any) (int64, error) {
	if !v.Insertable() {
		return 0, &ColumnError{
			Table:  v.Name(),
			Column: v.primary.name + "." + v.primaryKey,
			Err:    fmt.Errorf("%w: join key is NOT NULL without a default, insert through table %s", ErrReadOnlyColumn, v.primary.name),
		}
	}
	return v.engine.Add(ctx, values)
}

// Name returns "primary/secondary".
func (v *JoinedView) Name() string {
	return v.primary.name + "/" + v.secondary.name
}

// Primary returns the table that receives writes.
func (v *JoinedView) Primary() *Table { return v.primary }

// Secondary returns the joined table.
func (v *JoinedView) Secondary() *Table { return v.secondary }

// Keys returns the join key of each side.
func (v *JoinedView) Keys() (primaryKey, secondaryKey string) {
	return v.primaryKey, v.secondaryKey
}

// Columns returns the exposed column names of one side, keyed by table
// name. Unknown tables yield nil.
func (v *JoinedView) Columns(tableName string) []string {
	switch tableName {
	case v.primary.name:
		return append([]string(nil), v.primaryCols...)
	case v.secondary.name:
		return append([]string(nil), v.secondaryCols...)
	}
	return nil
}

// PrimaryKeys returns the qualified primary keys of both sides.
func (v *JoinedView) PrimaryKeys() []string {
	return append([]string(nil), v.primaryKeys...)
}

// hooks

func (v *JoinedView) label() string { return v.Name() }

func (v *JoinedView) from() string {
	p, s := quote(v.primary.name), quote(v.secondary.name)
	return fmt.Sprintf("%s Left Join %s on %s.%s = %s.%s",
		p, s, p, quote(v.primaryKey), s, quote(v.secondaryKey))
}

func (v *JoinedView) allColumns() []string {
	refs := make([]string, 0, len(v.primaryCols)+len(v.secondaryCols))
	for _, c := range v.primaryCols {
		refs = append(refs, v.primary.name+"."+c)
	}
	for _, c := range v.secondaryCols {
		refs = append(refs, v.secondary.name+"."+c)
	}
	return refs
}

func (v *JoinedView) target() *Table { return v.primary }

// resolve accepts "col" when exactly one side exposes it, and "table.col"
// always. Join keys do not resolve.
func (v *JoinedView) resolve(ref string) (resolved, error) {
	if prefix, name, ok := strings.Cut(ref, "."); ok {
		switch prefix {
		case v.primary.name:
			if slices.Contains(v.primaryCols, name) {
				return v.bind(v.primary, name), nil
			}
		case v.secondary.name:
			if slices.Contains(v.secondaryCols, name) {
				return v.bind(v.secondary, name), nil
			}
		}
		return resolved{}, &ColumnError{Table: v.Name(), Column: ref, Err: ErrUnknownColumn}
	}

	inPrimary := slices.Contains(v.primaryCols, ref)
	inSecondary := slices.Contains(v.secondaryCols, ref)
	switch {
	case inPrimary && inSecondary:
		return resolved{}, &ColumnError{Table: v.Name(), Column: ref, Err: ErrAmbiguousColumn}
	case inPrimary:
		return v.bind(v.primary, ref), nil
	case inSecondary:
		return v.bind(v.secondary, ref), nil
	}
	return resolved{}, &ColumnError{Table: v.Name(), Column: ref, Err: ErrUnknownColumn}
}

func (v *JoinedView) bind(t *Table, name string) resolved {
	return resolved{
		sql:   quote(t.name) + "." + quote(name),
		owner: t,
		col:   t.byName[name],
	}
}
