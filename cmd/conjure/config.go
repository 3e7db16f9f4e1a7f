// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/conjure-dev/conjure/internal/config"
)

func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage conjure configuration",
		Long: `Manage conjure configuration.

Configuration is read from config.cue in:
  - Linux: $XDG_CONFIG_HOME/conjure or ~/.config/conjure
  - macOS: ~/Library/Application Support/conjure
  - Windows: %APPDATA%\conjure

Every field can be overridden with a CONJURE_ environment variable, e.g.
CONJURE_EXECUTOR=virtual or CONJURE_LOG_LEVEL=debug.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if app.cfgPath != "" {
				fmt.Fprintf(app.deps.Stdout, "// loaded from %s\n", app.cfgPath)
			}
			fmt.Fprint(app.deps.Stdout, config.GenerateCUE(app.cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if app.cfgPath != "" {
				fmt.Fprintln(app.deps.Stdout, app.cfgPath)
				return nil
			}
			dir, err := config.Dir()
			if err != nil {
				return err
			}
			fmt.Fprintln(app.deps.Stdout, filepath.Join(dir, config.FileName)+" (not created)")
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if app.cfgPath != "" {
				return fmt.Errorf("config file already exists at %s", app.cfgPath)
			}
			dir, err := config.Dir()
			if err != nil {
				return err
			}
			path, err := config.Save(app.cfg, dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(app.deps.Stdout, app.styles.Success.Render("Created "+path))
			return nil
		},
	})

	return cfgCmd
}
