package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MoffettMcKenna/IniLiteORM/cli/internal/ui"
	"github.com/MoffettMcKenna/IniLiteORM/database"
)

// errNotReconciled makes check exit non-zero when any table needs work.
var errNotReconciled = errors.New("database does not match its declaration")

// NewCheckCommand creates the check command.
func NewCheckCommand(a *app) *cobra.Command {
	var markdown bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare the declared tables with the database",
		Long: `Report every declared table as missing, valid or drifted, with the
column-level differences of drifted tables. Nothing is changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := runCheck(cmd.Context(), a, markdown)
			if err != nil {
				return err
			}
			if !ok {
				return errNotReconciled
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&markdown, "markdown", false, "render the report as markdown")
	return cmd
}

// runCheck prints the report and tells whether every table is valid.
func runCheck(ctx context.Context, a *app, markdown bool) (bool, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return false, err
	}
	db, closeFn, err := a.openDatabase(ctx, cfg)
	if err != nil {
		return false, err
	}
	defer closeFn()

	status := db.Status()
	if markdown {
		return allValid(status), ui.PrintMarkdown(checkMarkdown(cfg.Database.File, status, db.Undeclared()))
	}

	ui.PrintSection(fmt.Sprintf("Tables in %s", cfg.Database.File))
	rows := make([][]string, len(status))
	for i, s := range status {
		rows[i] = []string{s.Name, ui.Printer(s.State()).Sprint(s.State()), fmt.Sprint(len(s.Drift))}
	}
	if err := ui.PrintTable([]string{"Table", "State", "Drift"}, rows); err != nil {
		return false, err
	}

	for _, s := range status {
		if len(s.Drift) == 0 {
			continue
		}
		ui.PrintWarning("%s differs from its declaration:", s.Name)
		lines := make([]string, len(s.Drift))
		for i, d := range s.Drift {
			lines[i] = d.String()
		}
		ui.PrintList(lines)
	}

	if undeclared := db.Undeclared(); len(undeclared) > 0 {
		ui.PrintInfo("Undeclared tables in the database:")
		ui.PrintList(undeclared)
	}

	ok := allValid(status)
	if ok {
		ui.PrintSuccess("All %d table(s) match their declaration", len(status))
	}
	return ok, nil
}

func allValid(status []database.TableStatus) bool {
	for _, s := range status {
		if !s.Valid {
			return false
		}
	}
	return true
}

func checkMarkdown(file string, status []database.TableStatus, undeclared []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Schema check: `%s`\n\n", file)
	b.WriteString("| Table | State | Drift |\n|---|---|---|\n")
	for _, s := range status {
		fmt.Fprintf(&b, "| %s | %s | %d |\n", s.Name, s.State(), len(s.Drift))
	}

	for _, s := range status {
		if len(s.Drift) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", s.Name)
		for _, d := range s.Drift {
			fmt.Fprintf(&b, "- **%s** %s\n", d.Kind, d.String())
		}
	}

	if len(undeclared) > 0 {
		b.WriteString("\n## Undeclared\n\n")
		for _, name := range undeclared {
			fmt.Fprintf(&b, "- %s\n", name)
		}
	}
	return b.String()
}
