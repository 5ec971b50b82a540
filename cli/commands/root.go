// Package commands implements the inilite CLI.
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MoffettMcKenna/IniLiteORM/cli/internal/version"
	"github.com/MoffettMcKenna/IniLiteORM/internal/debug"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	debug      bool
	stats      bool
}

// Execute runs the CLI until it finishes or receives SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand creates the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	a := &app{opts: opts}

	cmd := &cobra.Command{
		Use:   "inilite",
		Short: "Declare SQL tables in a config file and keep a database in line with them",
		Long: `inilite reads table declarations from inilite.yaml, compares them with the
CREATE TABLE text stored in the database, creates and seeds missing tables
and reports or synchronizes drifted ones.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			debug.Init(opts.debug)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.printStats()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: search for inilite.yaml)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "log every statement to stderr")
	cmd.PersistentFlags().BoolVar(&opts.stats, "stats", false, "print per-statement timing after the command")

	cmd.AddCommand(NewCheckCommand(a))
	cmd.AddCommand(NewSyncCommand(a))
	cmd.AddCommand(NewParseCommand())
	cmd.AddCommand(NewGetCommand(a))
	cmd.AddCommand(NewJoinCommand(a))
	cmd.AddCommand(NewWatchCommand(a))
	cmd.AddCommand(NewVersionCommand(a))
	return cmd
}
