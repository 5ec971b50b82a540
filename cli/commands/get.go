package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MoffettMcKenna/IniLiteORM/column"
	"github.com/MoffettMcKenna/IniLiteORM/database"
	"github.com/MoffettMcKenna/IniLiteORM/table"
)

// NewGetCommand creates the get command.
func NewGetCommand(a *app) *cobra.Command {
	var where []string

	cmd := &cobra.Command{
		Use:   "get <table> [columns...]",
		Short: "Read rows from a declared table",
		Example: `  inilite get users
  inilite get users name age --where "age >= 18" --where "name != 'Bob'"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			db, closeFn, err := a.openDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			t, ok := db.Table(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", database.ErrUnknownTable, args[0])
			}
			if err := applyWhere(t, tableLookup(t), where); err != nil {
				return err
			}

			cols := args[1:]
			if len(cols) == 0 {
				cols = t.ColumnNames()
			}
			rows, err := t.Get(ctx, cols...)
			if err != nil {
				return err
			}
			return printRows(cols, rows)
		},
	}

	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, `filter such as "age >= 18" (repeatable, joined with AND)`)
	return cmd
}

func tableLookup(t *table.Table) columnLookup {
	return func(ref string) (*column.Column, bool) {
		if prefix, name, ok := strings.Cut(ref, "."); ok && prefix == t.Name() {
			ref = name
		}
		return t.Column(ref)
	}
}
