package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MoffettMcKenna/IniLiteORM/cli/internal/ui"
	"github.com/MoffettMcKenna/IniLiteORM/cli/internal/version"
	"github.com/MoffettMcKenna/IniLiteORM/internal/config"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(a *app) *cobra.Command {
	var checkConfig bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(ui.Out, version.Get().FullString())
			if !checkConfig {
				return nil
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			source := cfg.File
			if source == "" {
				source = "defaults"
			}
			ui.PrintSuccess("Config format %s (%s) satisfies %s", cfg.Version, source, config.SupportedVersions)
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkConfig, "check-config", false, "also verify the config format version")
	return cmd
}
