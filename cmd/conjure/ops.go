// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conjure-dev/conjure/internal/console"
)

func newOpsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ops [operation]",
		Short: "List the project's quick operations, or run one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.loadProject(cmd.Context())
			if err != nil {
				return err
			}

			if len(args) == 0 {
				ops := p.Operations()
				if len(ops) == 0 {
					fmt.Fprintln(app.deps.Stdout, "No quick operations defined.")
					return nil
				}
				section := ""
				for _, op := range ops {
					if op.Section != section {
						if section != "" {
							fmt.Fprintln(app.deps.Stdout)
						}
						section = op.Section
						fmt.Fprintln(app.deps.Stdout, app.styles.Title.Render(section))
					}
					fmt.Fprintf(app.deps.Stdout, "  %s", app.styles.Cmd.Render(op.Title))
					if op.Description != "" {
						fmt.Fprintf(app.deps.Stdout, "  %s", app.styles.Subtitle.Render(op.Description))
					}
					fmt.Fprintln(app.deps.Stdout)
				}
				return nil
			}

			op, ok := p.Operation(args[0])
			if !ok {
				return fmt.Errorf("unknown operation %q, run 'conjure ops' to list them", args[0])
			}
			return runResult(app.withConsole(cmd.Context(), func(ctx context.Context, c *console.Console) bool {
				return c.RunScenario(ctx, op.Scenario)
			}))
		},
	}
}
