package database

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MoffettMcKenna/IniLiteORM/table"
)

// seed inserts every record of a CSV file into t. The header row names the
// columns; empty cells are left to the column default.
func (d *Database) seed(ctx context.Context, t *table.Table, path string) (int, error) {
	f, err := d.fs.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
		if _, ok := t.Column(header[i]); !ok {
			return 0, &table.ColumnError{Table: t.Name(), Column: header[i], Err: table.ErrUnknownColumn}
		}
	}

	n := 0
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}

		values := make(map[string]any, len(record))
		for i, cell := range record {
			if cell == "" {
				continue
			}
			col, _ := t.Column(header[i])
			v, err := col.ParseLiteral(cell)
			if err != nil {
				line, _ := r.FieldPos(i)
				return n, &table.ColumnError{Table: t.Name(), Column: col.Name(), Value: cell, Err: fmt.Errorf("line %d: %w", line, err)}
			}
			values[col.Name()] = v
		}

		if _, err := t.Add(ctx, values); err != nil {
			return n, err
		}
		n++
	}
}
