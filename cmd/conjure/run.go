// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conjure-dev/conjure/internal/console"
	"github.com/conjure-dev/conjure/internal/project"
	"github.com/conjure-dev/conjure/pkg/scenario"
)

type runFlags struct {
	dir     string
	title   string
	warn    bool
	publish string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.publish, "publish", "all", "line categories to print: all, none, or empty-line|information|command|output|error")
}

func (f *runFlags) options() ([]console.RunOption, error) {
	strategy, err := scenario.ParsePublishStrategy(f.publish)
	if err != nil {
		return nil, err
	}
	opts := []console.RunOption{console.WithStrategy(strategy)}
	if f.title != "" {
		opts = append(opts, console.WithTitle(f.title))
	}
	if f.dir != "" {
		opts = append(opts, console.AtPath(f.dir))
	}
	if f.warn {
		opts = append(opts, console.ConvertErrorToWarning())
	}
	return opts, nil
}

func newRunCommand(app *App) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run [flags] [--] <command>...",
		Short: "Run a single shell command and stream its output",
		Example: `  conjure run -- make lint
  conjure run --dir ios --title pods -- pod install`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")
			return runResult(app.withConsole(cmd.Context(), func(ctx context.Context, c *console.Console) bool {
				return c.RunText(ctx, text, opts...)
			}))
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&flags.dir, "dir", "", "working directory of the command")
	cmd.Flags().StringVar(&flags.title, "title", "", "name printed in the starting line")
	cmd.Flags().BoolVar(&flags.warn, "warn", false, "report a failure as a warning")
	flags.register(cmd)
	return cmd
}

func newScenarioCommand(app *App) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "scenario [file.cue]",
		Short: "Run a scenario file, or the project's generation scenario",
		Long: `Run the steps of a scenario in order.

A required step that fails aborts the scenario; an optional step that fails
prints a warning and the scenario continues. Without a file the project's
generation scenario runs without the version gate of 'conjure generate'.

A scenario file looks like:

  title: "Release"
  steps: [
  	{run: "make dist"},
  	{run: "notify-send done", optional: true},
  ]`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}

			var s scenario.Scenario
			if len(args) == 1 {
				s, err = project.LoadScenarioFile(cmd.Context(), args[0])
			} else {
				var p *project.Project
				if p, err = app.loadProject(cmd.Context()); err == nil {
					s = p.GenerationScenario()
				}
			}
			if err != nil {
				return err
			}

			return runResult(app.withConsole(cmd.Context(), func(ctx context.Context, c *console.Console) bool {
				return c.RunScenario(ctx, s, opts...)
			}))
		},
	}
	cmd.Flags().StringVar(&flags.title, "title", "", "name printed in the starting line (default is the scenario title)")
	flags.register(cmd)
	return cmd
}
