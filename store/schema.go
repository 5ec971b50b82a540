package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/MoffettMcKenna/IniLiteORM/ddl"
	"github.com/MoffettMcKenna/IniLiteORM/internal/debug"
)

// ReadSchema returns the parsed CREATE TABLE text of every user table,
// keyed by table name.
func (s *SQLStore) ReadSchema(ctx context.Context) (map[string]*ddl.TableDef, error) {
	if s.db == nil {
		return nil, ErrNotConnected
	}

	var (
		texts map[string]string
		err   error
	)
	switch s.dialect {
	case SQLite:
		texts, err = s.sqliteSchema(ctx)
	case MySQL:
		texts, err = s.mysqlSchema(ctx)
	default:
		return nil, fmt.Errorf("%w: schema reading for %s", ErrUnsupportedProvider, s.dialect)
	}
	if err != nil {
		return nil, err
	}

	schema := make(map[string]*ddl.TableDef, len(texts))
	for name, text := range texts {
		def := ddl.ParseCreate(text)
		if def.Empty() {
			debug.Warn("Could not parse existing table definition", "table", name)
		}
		// The stored name is authoritative even when the text is unusable
		def.Name = name
		schema[name] = def
	}
	return schema, nil
}

// sqliteSchema reads sqlite_master, skipping internal tables.
func (s *SQLStore) sqliteSchema(ctx context.Context) (map[string]string, error) {
	query := `SELECT name, sql FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	texts := make(map[string]string)
	for rows.Next() {
		var name string
		var text sql.NullString
		if err := rows.Scan(&name, &text); err != nil {
			return nil, err
		}
		texts[name] = text.String
	}
	return texts, rows.Err()
}

// mysqlSchema runs SHOW CREATE TABLE for every table of the current
// database.
func (s *SQLStore) mysqlSchema(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, err
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	texts := make(map[string]string, len(names))
	for _, name := range names {
		var table, text string
		quoted := "`" + strings.ReplaceAll(name, "`", "``") + "`"
		if err := s.db.QueryRowContext(ctx, "SHOW CREATE TABLE "+quoted).Scan(&table, &text); err != nil {
			return nil, fmt.Errorf("failed to read definition of %s: %w", name, err)
		}
		texts[name] = text
	}
	return texts, nil
}
