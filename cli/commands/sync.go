package commands

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/MoffettMcKenna/IniLiteORM/cli/internal/ui"
	"github.com/MoffettMcKenna/IniLiteORM/database"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Create, seed and synchronize tables",
		Long: `Create and seed every missing table and hand drifted tables to the
synchronizer. A confirmation is asked first unless --yes is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			db, closeFn, err := a.openDatabase(ctx, cfg, database.WithUpdate(true))
			if err != nil {
				return err
			}
			defer closeFn()

			plan := syncPlan(db.Status(), cfg.Declaration())
			if len(plan) == 0 {
				ui.PrintSuccess("Nothing to do, every table matches its declaration")
				return nil
			}

			ui.PrintSection("Planned changes")
			ui.PrintList(plan)

			if !yes {
				confirmed := false
				prompt := &survey.Confirm{
					Message: fmt.Sprintf("Apply %d change(s) to %s?", len(plan), cfg.Database.File),
					Default: false,
				}
				if err := survey.AskOne(prompt, &confirmed); err != nil {
					return err
				}
				if !confirmed {
					ui.PrintWarning("Aborted")
					return nil
				}
			}

			if err := db.Reconcile(ctx); err != nil {
				return err
			}
			ui.PrintSuccess("Applied %d change(s)", len(plan))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// syncPlan lists what Reconcile will do, in declared order.
func syncPlan(status []database.TableStatus, decl database.Declaration) []string {
	seeds := make(map[string]string, len(decl.Tables))
	for _, t := range decl.Tables {
		seeds[t.Name] = t.Seed
	}

	var plan []string
	for _, s := range status {
		switch {
		case !s.Exists && seeds[s.Name] != "":
			plan = append(plan, fmt.Sprintf("create %s and seed it from %s", s.Name, seeds[s.Name]))
		case !s.Exists:
			plan = append(plan, "create "+s.Name)
		case !s.Valid:
			plan = append(plan, fmt.Sprintf("synchronize %s (%d difference(s))", s.Name, len(s.Drift)))
		}
	}
	return plan
}
