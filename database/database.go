// Package database declares a set of tables against one store and
// reconciles the store with the declaration: missing tables are created and
// seeded, drifted tables are synchronized or reported.
package database

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/MoffettMcKenna/IniLiteORM/ddl"
	"github.com/MoffettMcKenna/IniLiteORM/internal/debug"
	"github.com/MoffettMcKenna/IniLiteORM/store"
	"github.com/MoffettMcKenna/IniLiteORM/table"
	"github.com/spf13/afero"
)

var (
	// ErrUnknownTable is returned when a table name is not declared.
	ErrUnknownTable = errors.New("unknown table")
	// ErrDuplicateTable is returned when a declaration names a table twice.
	ErrDuplicateTable = errors.New("table declared twice")
)

// TableDecl declares one table. Seed optionally names a CSV file whose
// header row lists column names.
type TableDecl struct {
	Name    string
	Seed    string
	Columns []table.ColumnDecl
}

// Declaration is the full set of declared tables, in creation order.
type Declaration struct {
	Tables []TableDecl
}

// TableStatus summarizes one declared table against the store.
type TableStatus struct {
	Name   string
	Exists bool
	Valid  bool
	Drift  []table.Drift
}

// State returns "missing", "valid" or "drifted".
func (s TableStatus) State() string {
	switch {
	case !s.Exists:
		return "missing"
	case s.Valid:
		return "valid"
	default:
		return "drifted"
	}
}

// Database holds the declared tables bound to a store.
type Database struct {
	store      store.Store
	tables     []*table.Table
	byName     map[string]*table.Table
	seeds      map[string]string
	undeclared []string

	update    bool
	fs        afero.Fs
	syncer    table.Syncer
	setSyncer bool
}

// Option configures a Database.
type Option func(*Database)

// WithUpdate makes Reconcile synchronize drifted tables instead of only
// reporting them.
func WithUpdate(update bool) Option {
	return func(d *Database) {
		d.update = update
	}
}

// WithFs sets the filesystem seed files are read from.
func WithFs(fs afero.Fs) Option {
	return func(d *Database) {
		d.fs = fs
	}
}

// WithSyncer installs s on every table.
func WithSyncer(s table.Syncer) Option {
	return func(d *Database) {
		d.syncer = s
		d.setSyncer = true
	}
}

// New reads the existing schema, when the store can report it, and builds
// every declared table. It does not touch the store otherwise.
func New(ctx context.Context, decl Declaration, st store.Store, opts ...Option) (*Database, error) {
	d := &Database{
		store:  st,
		byName: make(map[string]*table.Table, len(decl.Tables)),
		seeds:  make(map[string]string),
		fs:     afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(d)
	}

	existing, err := readSchema(ctx, st)
	if err != nil {
		return nil, err
	}

	var tableOpts []table.Option
	if d.setSyncer {
		tableOpts = append(tableOpts, table.WithSyncer(d.syncer))
	}

	for _, td := range decl.Tables {
		if _, dup := d.byName[td.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTable, td.Name)
		}
		t, err := table.New(td.Name, td.Columns, st, existing[td.Name], tableOpts...)
		if err != nil {
			return nil, err
		}
		d.tables = append(d.tables, t)
		d.byName[td.Name] = t
		if td.Seed != "" {
			d.seeds[td.Name] = td.Seed
		}
	}

	for name := range existing {
		if _, ok := d.byName[name]; !ok {
			d.undeclared = append(d.undeclared, name)
		}
	}
	sort.Strings(d.undeclared)
	return d, nil
}

// Open builds the database and reconciles it with the store.
func Open(ctx context.Context, decl Declaration, st store.Store, opts ...Option) (*Database, error) {
	d, err := New(ctx, decl, st, opts...)
	if err != nil {
		return nil, err
	}
	if err := d.Reconcile(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func readSchema(ctx context.Context, st store.Store) (map[string]*ddl.TableDef, error) {
	sr, ok := st.(store.SchemaReader)
	if !ok {
		return nil, nil
	}
	existing, err := sr.ReadSchema(ctx)
	if errors.Is(err, store.ErrUnsupportedProvider) {
		debug.Warn("Store cannot report its schema, assuming no tables exist", "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return existing, nil
}

// Reconcile creates and seeds missing tables, then synchronizes or reports
// drifted ones. Tables are handled in declared order.
func (d *Database) Reconcile(ctx context.Context) error {
	for _, t := range d.tables {
		switch {
		case !t.Exists():
			if err := t.Create(ctx); err != nil {
				return fmt.Errorf("create %s: %w", t.Name(), err)
			}
			if path, ok := d.seeds[t.Name()]; ok {
				n, err := d.seed(ctx, t, path)
				if err != nil {
					return fmt.Errorf("seed %s: %w", t.Name(), err)
				}
				debug.Info("Seeded table", "table", t.Name(), "rows", n, "file", path)
			}
		case !t.IsValid():
			if !d.update {
				debug.Warn("Table differs from its declaration, update disabled", "table", t.Name(), "drift", len(t.Drift()))
				continue
			}
			if err := t.Sync(ctx); err != nil {
				return fmt.Errorf("sync %s: %w", t.Name(), err)
			}
		}
	}

	for _, name := range d.undeclared {
		debug.Info("Store holds an undeclared table", "table", name)
	}
	return nil
}

// Store returns the underlying store.
func (d *Database) Store() store.Store { return d.store }

// Table looks up a declared table.
func (d *Database) Table(name string) (*table.Table, bool) {
	t, ok := d.byName[name]
	return t, ok
}

// Tables returns the declared tables in order.
func (d *Database) Tables() []*table.Table {
	return append([]*table.Table(nil), d.tables...)
}

// Undeclared returns the names of stored tables nobody declared.
func (d *Database) Undeclared() []string {
	return append([]string(nil), d.undeclared...)
}

// Join builds a joined view of two declared tables.
func (d *Database) Join(primary, secondary, primaryKey, secondaryKey string) (*table.JoinedView, error) {
	p, ok := d.byName[primary]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, primary)
	}
	s, ok := d.byName[secondary]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, secondary)
	}
	return p.Join(s, primaryKey, secondaryKey)
}

// Status reports every declared table in order.
func (d *Database) Status() []TableStatus {
	out := make([]TableStatus, len(d.tables))
	for i, t := range d.tables {
		out[i] = TableStatus{
			Name:   t.Name(),
			Exists: t.Exists(),
			Valid:  t.IsValid(),
			Drift:  t.Drift(),
		}
	}
	return out
}
