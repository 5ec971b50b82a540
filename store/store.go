// Package store executes SQL against a database/sql handle and reads the
// CREATE TABLE text of an existing schema.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MoffettMcKenna/IniLiteORM/ddl"
	"github.com/MoffettMcKenna/IniLiteORM/internal/debug"
	"github.com/MoffettMcKenna/IniLiteORM/telemetry"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
)

// Rows are raw result rows in column order.
type Rows [][]any

// Result describes the effect of an Exec.
type Result struct {
	LastInsertID int64
	RowsAffected int64
}

// Store is the capability tables need from a database.
type Store interface {
	// Query runs a statement and returns every row.
	Query(ctx context.Context, query string, args ...any) (Rows, error)

	// Exec runs a statement in its own transaction and commits it.
	Exec(ctx context.Context, query string, args ...any) (Result, error)
}

// SchemaReader is implemented by stores that can report the CREATE TABLE
// text of the tables they hold.
type SchemaReader interface {
	ReadSchema(ctx context.Context) (map[string]*ddl.TableDef, error)
}

// Config holds connection settings.
type Config struct {
	// Provider is sqlite, postgres or mysql.
	Provider string

	// URL is the file path or DSN.
	URL string

	// MaxOpenConns caps the pool for non-SQLite providers. Zero leaves the
	// driver default.
	MaxOpenConns int

	// ConnectTimeout bounds the initial ping.
	ConnectTimeout time.Duration
}

// SQLStore implements Store and SchemaReader over *sql.DB.
type SQLStore struct {
	db       *sql.DB
	dialect  Dialect
	recorder telemetry.Recorder
}

// Option configures an SQLStore.
type Option func(*SQLStore)

// WithRecorder sets the telemetry recorder.
func WithRecorder(r telemetry.Recorder) Option {
	return func(s *SQLStore) {
		if r != nil {
			s.recorder = r
		}
	}
}

// New wraps an already open database.
func New(db *sql.DB, dialect Dialect, opts ...Option) *SQLStore {
	s := &SQLStore{
		db:       db,
		dialect:  dialect,
		recorder: telemetry.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg Config, opts ...Option) (*SQLStore, error) {
	dialect, err := ParseDialect(cfg.Provider)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.DriverName(), cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == SQLite {
		// One writer at a time
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if dialect == SQLite {
		// Enable foreign keys (disabled by default in SQLite)
		if _, err := db.ExecContext(pingCtx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	debug.Debug("Connected to database", "provider", string(dialect), "driver", dialect.DriverName())
	return New(db, dialect, opts...), nil
}

// SQLiteDriver reports which SQLite driver the binary was built with.
func SQLiteDriver() string {
	return sqliteDriverName + " (" + sqliteDriverType + ")"
}

// DB returns the underlying handle.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Dialect returns the SQL dialect.
func (s *SQLStore) Dialect() Dialect { return s.dialect }

// Close closes the database.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Query implements Store.
func (s *SQLStore) Query(ctx context.Context, query string, args ...any) (rows Rows, err error) {
	if s.db == nil {
		return nil, ErrNotConnected
	}
	query = s.dialect.Rebind(query)
	defer s.observe(ctx, query, args, time.Now(), &err)

	rs, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	return scanAll(rs)
}

// Exec implements Store.
func (s *SQLStore) Exec(ctx context.Context, query string, args ...any) (res Result, err error) {
	if s.db == nil {
		return Result{}, ErrNotConnected
	}
	query = s.dialect.Rebind(query)
	defer s.observe(ctx, query, args, time.Now(), &err)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to begin transaction: %w", err)
	}

	r, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		_ = tx.Rollback()
		return Result{}, err
	}
	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("failed to commit: %w", err)
	}

	// Drivers without LastInsertId (postgres) leave it zero
	res.LastInsertID, _ = r.LastInsertId()
	res.RowsAffected, _ = r.RowsAffected()
	return res, nil
}

func (s *SQLStore) observe(ctx context.Context, query string, args []any, start time.Time, errp *error) {
	elapsed := time.Since(start)
	err := *errp

	debug.Debug("Executed statement", "sql", query, "args", args, "duration", elapsed, "error", err)
	s.recorder.RecordQuery(ctx, telemetry.QueryInfo{
		Operation: telemetry.OperationOf(query),
		Statement: query,
		Duration:  elapsed,
		Success:   err == nil,
		Err:       err,
	})
}

func scanAll(rs *sql.Rows) (Rows, error) {
	cols, err := rs.Columns()
	if err != nil {
		return nil, err
	}

	out := Rows{}
	for rs.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, values)
	}
	return out, rs.Err()
}

// Ensure SQLStore implements Store and SchemaReader.
var (
	_ Store        = (*SQLStore)(nil)
	_ SchemaReader = (*SQLStore)(nil)
)
