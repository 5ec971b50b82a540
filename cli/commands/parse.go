package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MoffettMcKenna/IniLiteORM/cli/internal/ui"
	"github.com/MoffettMcKenna/IniLiteORM/ddl"
)

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Show how CREATE TABLE statements are tokenized",
		Long: `Run the CREATE TABLE parser over a SQL script and print the constraint
tokens of every column. Reads standard input when the file is "-" or omitted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				src []byte
				err error
			)
			if len(args) == 0 || args[0] == "-" {
				src, err = io.ReadAll(cmd.InOrStdin())
			} else {
				src, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			return runParse(string(src))
		},
	}
}

func runParse(src string) error {
	stmts := ddl.SplitStatements(src)
	if len(stmts) == 0 {
		ui.PrintWarning("No statements found")
		return nil
	}

	for _, stmt := range stmts {
		def := ddl.ParseCreate(stmt)
		if def.Empty() {
			label := def.Name
			if label == "" {
				label = firstLine(stmt)
			}
			ui.PrintWarning("Skipped %s: not a well-formed CREATE TABLE statement", label)
			continue
		}

		ui.PrintSection(def.Name)
		rows := make([][]string, len(def.Columns))
		for i, col := range def.Columns {
			rows[i] = []string{col.Name, strings.Join(col.Tokens, " | "), ddl.Render(col.Tokens)}
		}
		if err := ui.PrintTable([]string{"Column", "Tokens", "Rendered"}, rows); err != nil {
			return err
		}
		if len(def.Constraints) > 0 {
			ui.PrintInfo("Table constraints:")
			ui.PrintList(def.Constraints)
		}
	}
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
