package commands

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MoffettMcKenna/IniLiteORM/cli/internal/ui"
	"github.com/MoffettMcKenna/IniLiteORM/column"
	"github.com/MoffettMcKenna/IniLiteORM/database"
	"github.com/MoffettMcKenna/IniLiteORM/internal/config"
	"github.com/MoffettMcKenna/IniLiteORM/internal/debug"
	"github.com/MoffettMcKenna/IniLiteORM/store"
	"github.com/MoffettMcKenna/IniLiteORM/table"
	"github.com/MoffettMcKenna/IniLiteORM/telemetry"
)

// app carries what commands share: flags, loaded config and statistics.
type app struct {
	opts  *globalOptions
	stats *telemetry.Stats
}

func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.opts.configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Debug {
		debug.Init(true)
	}
	return cfg, nil
}

// openDatabase connects and builds the declared tables without reconciling.
// The returned func closes the store.
func (a *app) openDatabase(ctx context.Context, cfg *config.Config, extra ...database.Option) (*database.Database, func(), error) {
	var storeOpts []store.Option
	if a.opts.stats {
		if a.stats == nil {
			a.stats = telemetry.NewStats()
		}
		storeOpts = append(storeOpts, store.WithRecorder(a.stats))
	}

	st, err := store.Open(ctx, cfg.StoreConfig(), storeOpts...)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := st.Close(); err != nil {
			debug.Warn("Closing store failed", "error", err)
		}
	}

	db, err := database.New(ctx, cfg.Declaration(), st, append(cfg.Options(), extra...)...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return db, closeFn, nil
}

func (a *app) printStats() {
	if a.stats == nil {
		return
	}
	snap := a.stats.Snapshot()
	if len(snap) == 0 {
		return
	}

	rows := make([][]string, len(snap))
	for i, s := range snap {
		rows[i] = []string{s.Operation, fmt.Sprint(s.Count), fmt.Sprint(s.Errors), s.Total.Round(time.Microsecond).String(), s.Average().Round(time.Microsecond).String()}
	}
	ui.PrintSection("Statements")
	if err := ui.PrintTable([]string{"Operation", "Count", "Errors", "Total", "Average"}, rows); err != nil {
		debug.Warn("Printing statistics failed", "error", err)
	}
}

// reader is the read surface shared by tables and joined views.
type reader interface {
	Filter(ref string, op table.Operator, value any) error
	Get(ctx context.Context, refs ...string) (store.Rows, error)
	GetAll(ctx context.Context) (store.Rows, error)
}

// columnLookup finds the column a reference names.
type columnLookup func(ref string) (*column.Column, bool)

// operators in match order; longer spellings first.
var operators = []string{"<=", ">=", "!=", "<>", "==", "=", "<", ">"}

// parseCondition splits "age >= 18" into reference, operator and literal.
func parseCondition(s string) (string, column.Operator, string, error) {
	for i := 0; i < len(s); i++ {
		for _, spelling := range operators {
			if !strings.HasPrefix(s[i:], spelling) {
				continue
			}
			ref := strings.TrimSpace(s[:i])
			lit := strings.TrimSpace(s[i+len(spelling):])
			if ref == "" {
				return "", column.Noop, "", fmt.Errorf("condition %q names no column", s)
			}
			op, err := column.ParseOperator(spelling)
			if err != nil {
				return "", column.Noop, "", err
			}
			return ref, op, unquoteLiteral(lit), nil
		}
	}
	return "", column.Noop, "", fmt.Errorf("condition %q has no operator", s)
}

func unquoteLiteral(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}

// applyWhere installs every --where condition as a standing filter.
func applyWhere(r reader, lookup columnLookup, conds []string) error {
	for _, cond := range conds {
		ref, op, lit, err := parseCondition(cond)
		if err != nil {
			return err
		}
		col, ok := lookup(ref)
		if !ok {
			return &table.ColumnError{Column: ref, Err: table.ErrUnknownColumn}
		}
		value, err := col.ParseLiteral(lit)
		if err != nil {
			return &table.ColumnError{Column: ref, Value: lit, Err: err}
		}
		if err := r.Filter(ref, op, value); err != nil {
			return err
		}
	}
	return nil
}

// printRows renders raw rows under the given headers.
func printRows(headers []string, rows store.Rows) error {
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, len(row))
		for j, v := range row {
			cells[i][j] = formatValue(v)
		}
	}
	if err := ui.PrintTable(headers, cells); err != nil {
		return err
	}
	ui.PrintInfo("%d row(s)", len(rows))
	return nil
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		if utf8.Valid(v) {
			return string(v)
		}
		return "x'" + hex.EncodeToString(v) + "'"
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
