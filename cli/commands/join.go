package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MoffettMcKenna/IniLiteORM/column"
	"github.com/MoffettMcKenna/IniLiteORM/table"
)

// NewJoinCommand creates the join command.
func NewJoinCommand(a *app) *cobra.Command {
	var (
		on    string
		where []string
	)

	cmd := &cobra.Command{
		Use:   "join <primary> <secondary> [columns...]",
		Short: "Read rows through a left join of two declared tables",
		Example: `  inilite join users addresses --on id=user_id
  inilite join users addresses --on id=user_id users.name city --where "city = Paris"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			primaryKey, secondaryKey, ok := strings.Cut(on, "=")
			if !ok || primaryKey == "" || secondaryKey == "" {
				return fmt.Errorf("--on must look like primary_key=secondary_key, got %q", on)
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			db, closeFn, err := a.openDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			view, err := db.Join(args[0], args[1], strings.TrimSpace(primaryKey), strings.TrimSpace(secondaryKey))
			if err != nil {
				return err
			}
			if err := applyWhere(view, viewLookup(view), where); err != nil {
				return err
			}

			cols := args[2:]
			if len(cols) == 0 {
				cols = viewColumns(view)
			}
			rows, err := view.Get(ctx, cols...)
			if err != nil {
				return err
			}
			return printRows(cols, rows)
		},
	}

	cmd.Flags().StringVar(&on, "on", "", "join keys as primary_key=secondary_key")
	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, `filter such as "users.age >= 18" (repeatable, joined with AND)`)
	_ = cmd.MarkFlagRequired("on")
	return cmd
}

// viewColumns lists every exposed column, qualified.
func viewColumns(v *table.JoinedView) []string {
	var cols []string
	for _, t := range []*table.Table{v.Primary(), v.Secondary()} {
		for _, name := range v.Columns(t.Name()) {
			cols = append(cols, t.Name()+"."+name)
		}
	}
	return cols
}

// viewLookup finds the column behind a view reference. Ambiguity is left
// for the view itself to report.
func viewLookup(v *table.JoinedView) columnLookup {
	return func(ref string) (*column.Column, bool) {
		if prefix, name, ok := strings.Cut(ref, "."); ok {
			for _, t := range []*table.Table{v.Primary(), v.Secondary()} {
				if t.Name() == prefix {
					return t.Column(name)
				}
			}
			return nil, false
		}
		if c, ok := v.Primary().Column(ref); ok {
			return c, true
		}
		return v.Secondary().Column(ref)
	}
}
