package table

import (
	"context"
	"fmt"
	"strings"

	"github.com/MoffettMcKenna/IniLiteORM/column"
	"github.com/MoffettMcKenna/IniLiteORM/ddl"
	"github.com/MoffettMcKenna/IniLiteORM/internal/debug"
)

// DriftKind classifies a difference between declared and existing schema.
type DriftKind int

const (
	// DriftMissing is a declared column absent from the store.
	DriftMissing DriftKind = iota
	// DriftChanged is a column whose constraint tokens differ.
	DriftChanged
	// DriftExtra is a stored column that is not declared.
	DriftExtra
)

// String returns a short name for the kind.
func (k DriftKind) String() string {
	switch k {
	case DriftMissing:
		return "missing"
	case DriftChanged:
		return "changed"
	case DriftExtra:
		return "extra"
	default:
		return "unknown"
	}
}

// Drift is one column-level difference.
type Drift struct {
	Kind     DriftKind
	Column   string
	Declared []string
	Existing []string
}

// String renders the drift for logs and reports.
func (d Drift) String() string {
	switch d.Kind {
	case DriftMissing:
		return fmt.Sprintf("%s: declared as %q but not in store", d.Column, ddl.Render(d.Declared))
	case DriftExtra:
		return fmt.Sprintf("%s: in store as %q but not declared", d.Column, ddl.Render(d.Existing))
	default:
		return fmt.Sprintf("%s: declared %q, store has %q", d.Column, ddl.Render(d.Declared), ddl.Render(d.Existing))
	}
}

// computeDrift compares each declared column's rebuilt DDL fragment with the
// parsed existing definition.
func computeDrift(columns []*column.Column, existing *ddl.TableDef) []Drift {
	var drift []Drift
	declared := make(map[string]bool, len(columns))

	for _, col := range columns {
		declared[col.Name()] = true

		_, tokens, err := ddl.ParseFragment(col.BuildDDLFragment())
		if err != nil {
			tokens = col.Tokens()
		}

		ex, ok := existing.Column(col.Name())
		switch {
		case !ok:
			drift = append(drift, Drift{Kind: DriftMissing, Column: col.Name(), Declared: tokens})
		case err != nil || !ddl.Equal(tokens, ex.Tokens):
			drift = append(drift, Drift{Kind: DriftChanged, Column: col.Name(), Declared: tokens, Existing: ex.Tokens})
		}
	}

	for _, ex := range existing.Columns {
		if !declared[ex.Name] {
			drift = append(drift, Drift{Kind: DriftExtra, Column: ex.Name, Existing: ex.Tokens})
		}
	}
	return drift
}

// Syncer repairs a table whose stored schema drifted from its declaration.
type Syncer interface {
	Sync(ctx context.Context, t *Table, drift []Drift) error
}

// SyncerFunc adapts a plain function to Syncer.
type SyncerFunc func(ctx context.Context, t *Table, drift []Drift) error

// Sync calls f.
func (f SyncerFunc) Sync(ctx context.Context, t *Table, drift []Drift) error {
	return f(ctx, t, drift)
}

// ReportSyncer logs the drift and changes nothing.
type ReportSyncer struct{}

// Sync implements Syncer.
func (ReportSyncer) Sync(ctx context.Context, t *Table, drift []Drift) error {
	lines := make([]string, len(drift))
	for i, d := range drift {
		lines[i] = d.String()
	}
	debug.Warn("Table schema differs from declaration, leaving it unchanged",
		"table", t.Name(), "drift", strings.Join(lines, "; "))
	return nil
}
