package commands

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/MoffettMcKenna/IniLiteORM/cli/internal/ui"
	"github.com/MoffettMcKenna/IniLiteORM/cli/internal/watch"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(a *app) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run check whenever the config file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if cfg.File == "" {
				return errors.New("no config file found to watch, pass --config")
			}

			w, err := watch.NewWatcher(cfg.File, func(ctx context.Context) error {
				// Errors in the edited file are reported, not fatal
				if _, err := runCheck(ctx, a, false); err != nil {
					ui.PrintError("%v", err)
				}
				return nil
			})
			if err != nil {
				return err
			}
			w.SetDebounce(debounce)

			ui.PrintInfo("Watching %s, press Ctrl+C to stop", cfg.File)
			return w.Run(cmd.Context())
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before re-checking")
	return cmd
}
